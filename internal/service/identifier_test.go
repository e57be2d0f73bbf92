package service

import (
	"context"
	"testing"
	"time"

	"order-sync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMonthYear(t *testing.T) {
	assert.Equal(t, "0624", MonthYear(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "1299", MonthYear(time.Date(2099, 12, 31, 23, 59, 0, 0, time.UTC)))
	assert.Equal(t, "0100", MonthYear(time.Date(2000, 1, 15, 0, 0, 0, 0, time.UTC)))
}

func TestNextIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		last    string
		want    string
		wantErr bool
	}{
		{name: "first of month", last: "", want: "0624-00001"},
		{name: "increments", last: "0624-00041", want: "0624-00042"},
		{name: "carries digits", last: "0624-09999", want: "0624-10000"},
		{name: "last slot", last: "0624-99998", want: "0624-99999"},
		{name: "exhausted", last: "0624-99999", wantErr: true},
		{name: "other prefix", last: "0524-00003", wantErr: true},
		{name: "short suffix", last: "0624-123", wantErr: true},
		{name: "non numeric", last: "0624-00a12", wantErr: true},
		{name: "signed", last: "0624-+0012", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := nextIdentifier("0624", tt.last)
			if tt.wantErr {
				var ge *GenerationError
				require.ErrorAs(t, err, &ge)
				assert.Equal(t, "0624", ge.Prefix)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidMonthYear(t *testing.T) {
	for _, ok := range []string{"0124", "1299", "0600"} {
		assert.True(t, validMonthYear(ok), ok)
	}
	for _, bad := range []string{"", "624", "1324", "0024", "06-4", "06245", "+624"} {
		assert.False(t, validMonthYear(bad), bad)
	}
}

func TestNextIDRejectsBadPrefixWithoutLocking(t *testing.T) {
	repo := newMemRepo()
	engine := NewEngine(repo, nil, zap.NewNop(), Options{Location: time.UTC})

	_, err := engine.NextID(context.Background(), repo.Queries(), "13-4")

	var ge *GenerationError
	require.ErrorAs(t, err, &ge)
	assert.Empty(t, repo.callLog())
}

func TestNextIDExhaustedMonth(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.repo.mu.Lock()
	env.repo.state.inputs["0624-99999"] = *parseOrFail(t)
	env.repo.mu.Unlock()

	_, err := env.engine.CreateOrder(context.Background(), intakeFields("2024-06-20"))

	var ge *GenerationError
	require.ErrorAs(t, err, &ge)
	assert.Contains(t, ge.Error(), "exhausted")
	assert.Len(t, env.repo.snapshot().inputs, 1)
}

func parseOrFail(t *testing.T) *models.InputOrder {
	t.Helper()
	order, err := parseIntake(intakeFields("2024-06-20"))
	require.NoError(t, err)
	order.IDInput = "0624-99999"
	return order
}
