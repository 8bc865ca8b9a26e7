package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

const markdownTime = "2006-01-02 15:04:05"

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Cohort Retention Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Run: %s\n\n", r.RunID))
	if r.DataVersion != "" {
		sb.WriteString(fmt.Sprintf("Data version: %s\n\n", r.DataVersion))
	}

	// Study Window
	sb.WriteString("## Study Window\n\n")
	sb.WriteString("| Parameter | Value |\n")
	sb.WriteString("|-----------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Oldest (inclusive) | %s |\n", r.Window.Oldest.Format(markdownTime)))
	sb.WriteString(fmt.Sprintf("| Recent (exclusive) | %s |\n", r.Window.Recent.Format(markdownTime)))
	sb.WriteString(fmt.Sprintf("| Interval Length | %d days |\n", r.Window.IntervalDays))
	sb.WriteString(fmt.Sprintf("| Intervals | %d |\n", r.Window.Intervals))
	sb.WriteString(fmt.Sprintf("| Timezone Offset | %s |\n", r.Window.Offset))
	sb.WriteString("\n")

	// Data Summary
	sb.WriteString("## Data Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Customers | %s |\n", humanize.Comma(int64(r.DataSummary.Customers))))
	sb.WriteString(fmt.Sprintf("| Cohorts | %s |\n", humanize.Comma(int64(r.DataSummary.Cohorts))))
	sb.WriteString(fmt.Sprintf("| Cohorts With Orders | %s |\n", humanize.Comma(int64(r.DataSummary.CohortsWithOrders))))
	sb.WriteString("\n")

	// Data Quality
	sb.WriteString("## Data Quality\n\n")
	if len(r.DataQuality.Rows) > 0 {
		sb.WriteString("| Counter | Count |\n")
		sb.WriteString("|---------|-------|\n")
		for _, row := range r.DataQuality.Rows {
			sb.WriteString(fmt.Sprintf("| %s | %s |\n", row.Name, humanize.Comma(int64(row.Count))))
		}
	} else {
		sb.WriteString("No ingestion counters recorded.\n")
	}
	sb.WriteString("\n")

	// Retention
	sb.WriteString("## Retention\n\n")
	if r.Table != nil && len(r.Table.Rows) > 0 {
		sb.WriteString("| " + strings.Join(r.Table.Header, " | ") + " |\n")
		sb.WriteString("|" + strings.Repeat("---|", len(r.Table.Header)) + "\n")
		for _, rec := range r.Table.Records() {
			sb.WriteString("| " + strings.Join(rec, " | ") + " |\n")
		}
	} else {
		sb.WriteString("No orders recorded for any cohort.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
