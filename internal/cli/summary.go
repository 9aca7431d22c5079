package cli

import (
	"os"

	"github.com/olekukonko/tablewriter"
)

// PrintBootSummary renders the boot-time handler/listener table using
// olekukonko/tablewriter.
func PrintBootSummary(rows [][]string) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Component", "Name", "Detail"})
	table.AppendBulk(rows)
	table.Render()
}
