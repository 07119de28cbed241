package utils

import (
	"io"

	"github.com/olekukonko/tablewriter"
)

// RenderTable prints rows as an ascii table, used by the CLI to
// summarize a crawl cycle.
func RenderTable(w io.Writer, header []string, rows [][]string) error {
	table := tablewriter.NewTable(w)
	table.Header(header)
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}
