package reporting

import (
	"strings"
)

// RenderCSV renders the retention table as CSV string.
// Labels and cells never contain commas or quotes, so no quoting is needed.
func RenderCSV(t *Table) string {
	var sb strings.Builder

	// Header
	sb.WriteString(strings.Join(t.Header, ","))
	sb.WriteString("\n")

	// Rows
	for _, rec := range t.Records() {
		sb.WriteString(strings.Join(rec, ","))
		sb.WriteString("\n")
	}

	return sb.String()
}
