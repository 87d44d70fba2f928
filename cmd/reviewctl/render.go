package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/jonesrussell/north-cloud/draft-review/internal/domain"
	"github.com/jonesrussell/north-cloud/draft-review/internal/review"
)

const maxTitleWidth = 48

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.Style().Format.Footer = text.FormatDefault
	return t
}

func renderStats(out io.Writer, s domain.Stats) {
	t := newTable(out)
	t.AppendHeader(table.Row{"Total", "Pending", "Approved", "Rejected", "High", "Medium", "Low"})
	t.AppendRow(table.Row{s.Total, s.Pending, s.Approved, s.Rejected, s.ByPriority.High, s.ByPriority.Medium, s.ByPriority.Low})
	t.Render()
}

func renderList(out io.Writer, l domain.ListResponse) {
	t := newTable(out)
	t.AppendHeader(table.Row{"ID", "Status", "Priority", "Type", "Title", "Deadline", "Source"})
	for _, d := range l.Items {
		t.AppendRow(table.Row{d.ID, d.Status, d.Priority, d.Type, truncate(d.Title, maxTitleWidth), d.Deadline, d.Source})
	}
	t.AppendFooter(table.Row{"", "", "", "", fmt.Sprintf("page %d of %d", l.Page, l.TotalPages), "", fmt.Sprintf("%d matching", l.Total)})
	t.Render()
}

func renderDraft(out io.Writer, d domain.Draft) {
	t := newTable(out)
	rows := []table.Row{
		{"ID", d.ID},
		{"Status", d.Status},
		{"Priority", d.Priority},
		{"Source", d.Source},
		{"URL", d.URL},
		{"Title", d.Title},
		{"Type", d.Type},
		{"Description", d.Description},
		{"Deadline", d.Deadline},
		{"Location", d.Location},
		{"Amount", d.Amount},
		{"Link", d.Link},
		{"Eligibility", strings.Join(d.Eligibility, "\n")},
		{"Benefits", strings.Join(d.Benefits, "\n")},
		{"Instructions", strings.Join(d.Instructions, "\n")},
	}
	if d.Status.Reviewed() {
		rows = append(rows, table.Row{"Reviewed", fmt.Sprintf("%s by %s", formatTime(d.ReviewedAt), d.ReviewedBy)})
	}
	if d.OpportunityID != "" {
		rows = append(rows, table.Row{"Opportunity", d.OpportunityID})
	}
	if d.Feedback != "" {
		rows = append(rows, table.Row{"Feedback", d.Feedback})
	}
	if d.RegeneratedAt != nil {
		rows = append(rows, table.Row{"Regenerated", formatTime(d.RegeneratedAt)})
	}
	t.AppendRows(rows)
	t.Render()
}

// renderSummary prints one line describing the console state.
func renderSummary(out io.Writer, snap review.ConsoleSnapshot) {
	state := "idle"
	switch {
	case snap.Busy():
		state = "loading"
	case snap.List.Failed():
		state = fmt.Sprintf("list error: %v", snap.List.Err)
	case snap.Stats.Failed():
		state = fmt.Sprintf("stats error: %v", snap.Stats.Err)
	case snap.List.Succeeded():
		state = "ok"
	}

	fmt.Fprintf(out, "[%s] %s | pending %d of %d | page %d/%d | search %q\n",
		time.Now().Format(time.TimeOnly), state,
		snap.Stats.Value.Pending, snap.Stats.Value.Total,
		snap.Filters.Page, snap.List.Value.TotalPages, snap.Filters.Search,
	)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Local().Format(time.DateTime)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
