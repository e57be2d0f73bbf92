package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"order-sync/internal/models"
)

// lookupField returns the first present key, so both the snake_case names and
// the capitalised names of the intake form are accepted.
func lookupField(fields map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := fields[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// asText renders strings and JSON numbers as trimmed text.
func asText(field string, v any) (string, error) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), nil
	case json.Number:
		return t.String(), nil
	case float64:
		if t != math.Trunc(t) {
			return strconv.FormatFloat(t, 'f', -1, 64), nil
		}
		return strconv.FormatInt(int64(t), 10), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	}
	return "", &ValidationError{Field: field, Reason: fmt.Sprintf("unsupported value type %T", v)}
}

// asInt accepts integral JSON numbers and numeric strings that fit the
// INTEGER columns they are stored in.
func asInt(field string, v any) (int, error) {
	malformed := &ValidationError{Field: field, Reason: fmt.Sprintf("%v is not a whole number", v)}
	var n int64
	switch t := v.(type) {
	case int:
		n = int64(t)
	case int64:
		n = t
	case float64:
		if t != math.Trunc(t) || math.IsInf(t, 0) || math.IsNaN(t) {
			return 0, malformed
		}
		if t > math.MaxInt32 || t < math.MinInt32 {
			return 0, outOfRange(field, v)
		}
		n = int64(t)
	case json.Number:
		parsed, err := strconv.ParseInt(t.String(), 10, 64)
		if err != nil {
			return 0, malformed
		}
		n = parsed
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, nil
		}
		parsed, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			var ne *strconv.NumError
			if errors.As(err, &ne) && ne.Err == strconv.ErrRange {
				return 0, outOfRange(field, v)
			}
			return 0, malformed
		}
		n = parsed
	default:
		return 0, malformed
	}
	if n > math.MaxInt32 || n < math.MinInt32 {
		return 0, outOfRange(field, v)
	}
	return int(n), nil
}

func outOfRange(field string, v any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf("%v is out of range", v)}
}

// asDate parses YYYY-MM-DD, also tolerating a full RFC 3339 timestamp.
func asDate(field string, v any) (time.Time, error) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, &ValidationError{Field: field, Reason: "date must be a YYYY-MM-DD string"}
	}
	s = strings.TrimSpace(s)
	if d, err := time.Parse(models.DateLayout, s); err == nil {
		return d, nil
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return truncateDay(ts), nil
	}
	return time.Time{}, &ValidationError{Field: field, Reason: fmt.Sprintf("%q is not a YYYY-MM-DD date", s)}
}

func optionalID(fields map[string]any, field string, keys ...string) (*string, error) {
	v, ok := lookupField(fields, keys...)
	if !ok {
		return nil, nil
	}
	s, err := asText(field, v)
	if err != nil {
		return nil, err
	}
	if s == "" {
		return nil, nil
	}
	return &s, nil
}

// parseIntake validates the intake form into an InputOrder without an id.
func parseIntake(fields map[string]any) (*models.InputOrder, error) {
	required := func(field string, keys ...string) (string, error) {
		v, ok := lookupField(fields, keys...)
		if !ok {
			return "", &ValidationError{Field: field, Reason: "is required"}
		}
		s, err := asText(field, v)
		if err != nil {
			return "", err
		}
		if s == "" {
			return "", &ValidationError{Field: field, Reason: "must not be empty"}
		}
		return s, nil
	}

	order := &models.InputOrder{}
	var err error

	if order.IDPesanan, err = required("id_pesanan", "id_pesanan"); err != nil {
		return nil, err
	}
	if order.IDAdmin, err = required("id_admin", "id_admin", "ID"); err != nil {
		return nil, err
	}
	deadline, err := required("deadline", "deadline", "Deadline")
	if err != nil {
		return nil, err
	}
	if order.Deadline, err = asDate("deadline", deadline); err != nil {
		return nil, err
	}

	if v, ok := lookupField(fields, "platform", "Platform"); ok {
		if order.Platform, err = asText("platform", v); err != nil {
			return nil, err
		}
	}
	if v, ok := lookupField(fields, "qty"); ok {
		if order.Qty, err = asInt("qty", v); err != nil {
			return nil, err
		}
		if order.Qty < 0 {
			return nil, &ValidationError{Field: "qty", Reason: "must not be negative"}
		}
	}
	if v, ok := lookupField(fields, "nama_ket"); ok {
		if order.NamaKet, err = asText("nama_ket", v); err != nil {
			return nil, err
		}
	}
	if v, ok := lookupField(fields, "link"); ok {
		if order.Link, err = asText("link", v); err != nil {
			return nil, err
		}
	}

	if order.IDDesainer, err = optionalID(fields, "id_desainer", "id_desainer", "id_desain", "desainer"); err != nil {
		return nil, err
	}
	if order.IDPenjahit, err = optionalID(fields, "id_penjahit", "id_penjahit", "penjahit", "Penjahit"); err != nil {
		return nil, err
	}
	if order.IDQC, err = optionalID(fields, "id_qc", "id_qc", "qc"); err != nil {
		return nil, err
	}

	return order, nil
}

// coerceColumnValue converts an edit value to the Go type the column is stored as.
func coerceColumnValue(col models.Column, v any) (any, error) {
	switch col.Kind {
	case models.KindInteger:
		if v == nil {
			return nil, &ValidationError{Field: col.Name, Reason: "must not be null"}
		}
		n, err := asInt(col.Name, v)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, &ValidationError{Field: col.Name, Reason: "must not be negative"}
		}
		return n, nil
	case models.KindDate:
		if v == nil {
			return nil, &ValidationError{Field: col.Name, Reason: "must not be null"}
		}
		return asDate(col.Name, v)
	case models.KindNullableText:
		if v == nil {
			return (*string)(nil), nil
		}
		s, err := asText(col.Name, v)
		if err != nil {
			return nil, err
		}
		if s == "" {
			return (*string)(nil), nil
		}
		return &s, nil
	default:
		if v == nil {
			return "", nil
		}
		return asText(col.Name, v)
	}
}
