package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/domain"
)

func renderReports(w io.Writer, reports []*domain.Report) {
	if len(reports) == 0 {
		fmt.Fprintln(w, "No reports found.")
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Topic", "Keywords", "Period", "Created", "Status", "Job", "Link"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	for _, r := range reports {
		table.Append([]string{
			r.Topic,
			strings.Join(r.Keywords, ", "),
			r.StartDate + " ~ " + r.EndDate,
			r.CreatedAt,
			statusText(r),
			r.JobID,
			r.URL,
		})
	}
	table.Render()
}

func statusText(r *domain.Report) string {
	if r.IsProcessing() {
		return fmt.Sprintf("%s %d%%", r.Status, r.Progress)
	}
	return r.Status
}
