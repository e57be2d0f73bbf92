package cli

import (
	"encoding/json"
	"io"

	"order-sync/internal/service"

	"github.com/olekukonko/tablewriter"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeFailures renders resync failures as a table.
func writeFailures(w io.Writer, failures []service.ResyncFailure) error {
	table := tablewriter.NewWriter(w)
	table.Header("ID_INPUT", "REASON")
	for _, f := range failures {
		if err := table.Append([]string{f.IDInput, f.Reason}); err != nil {
			return err
		}
	}
	return table.Render()
}
