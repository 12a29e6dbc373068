package output

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/fairweather/catwalk/pkg/catwalk/types"
)

// PrettyFormatter formats output with colors and styling using lipgloss.
// It produces a visually appealing output suitable for terminal display.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")
	w.WriteString(f.formatCounts(r))
	w.WriteString(f.formatFooter(r))
	return nil
}

// formatHeader builds the header box with session metadata.
func (f *PrettyFormatter) formatHeader(r *Result) string {
	s := &r.Summary
	var lines []string

	lines = append(lines, fmt.Sprintf("%s %s",
		LabelStyle.Render("Root:"), ValueStyle.Render(s.Root)))

	info := []string{
		fmt.Sprintf("%s %s", LabelStyle.Render("Volume:"), ValueStyle.Render(s.VolumeClass)),
		fmt.Sprintf("%s %s", LabelStyle.Render("Elapsed:"), ValueStyle.Render(formatDuration(s.Elapsed))),
		fmt.Sprintf("%s %s", LabelStyle.Render("Session:"), MutedStyle.Render(shortID(s.SessionID))),
	}
	lines = append(lines, strings.Join(info, "  "))

	if s.Cancelled {
		notice := "Session cancelled"
		if s.LastCheckpoint != "" {
			notice += ", resumable from checkpoint"
		}
		lines = append(lines, WarningStyle.Bold(true).Render(notice))
	}

	return HeaderBox.Render(strings.Join(lines, "\n"))
}

// formatCounts builds the per-status count rows.
func (f *PrettyFormatter) formatCounts(r *Result) string {
	s := &r.Summary
	var sb strings.Builder

	rows := []struct {
		label string
		count int64
		style func(...string) string
	}{
		{"new", s.New, SuccessStyle.Render},
		{"modified", s.Modified, WarningStyle.Render},
		{"unchanged", s.Unchanged, MutedStyle.Render},
		{"missing", s.Missing, ErrorStyle.Render},
	}

	for _, row := range rows {
		sb.WriteString(fmt.Sprintf("  %s %s\n",
			CountStyle.Render(padLeft(fmt.Sprint(row.count), 9)),
			row.style(row.label)))
	}

	if skipped := s.Skipped.Total(); skipped > 0 {
		detail := skipDetail(s.Skipped)
		sb.WriteString(fmt.Sprintf("  %s %s %s\n",
			CountStyle.Render(padLeft(fmt.Sprint(skipped), 9)),
			MutedStyle.Render("skipped"),
			MutedStyle.Render(detail)))
	}

	return sb.String()
}

// formatFooter builds the footer box with commit and catalog totals.
func (f *PrettyFormatter) formatFooter(r *Result) string {
	s := &r.Summary
	parts := []string{
		fmt.Sprintf("%s %s", LabelStyle.Render("Committed:"),
			ValueStyle.Render(fmt.Sprint(s.Committed))),
	}

	if r.CatalogRecords >= 0 {
		parts = append(parts,
			fmt.Sprintf("%s %s", LabelStyle.Render("Catalog:"),
				ValueStyle.Render(fmt.Sprintf("%d records, %s",
					r.CatalogRecords, types.FormatSize(r.CatalogBytes)))))
	}

	return FooterBox.Render(strings.Join(parts, "  "))
}

// skipDetail lists the nonzero skip buckets.
func skipDetail(c types.SkipCounters) string {
	var parts []string
	if c.Permission > 0 {
		parts = append(parts, fmt.Sprintf("%d permission", c.Permission))
	}
	if c.LongPath > 0 {
		parts = append(parts, fmt.Sprintf("%d long-path", c.LongPath))
	}
	if c.Ignored > 0 {
		parts = append(parts, fmt.Sprintf("%d ignored", c.Ignored))
	}
	if c.Cycles > 0 {
		parts = append(parts, fmt.Sprintf("%d cycles", c.Cycles))
	}
	if c.ReadFailed > 0 {
		parts = append(parts, fmt.Sprintf("%d unreadable", c.ReadFailed))
	}
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// formatDuration renders a duration at sensible precision for humans.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	case d < time.Minute:
		return d.Round(100 * time.Millisecond).String()
	default:
		return d.Round(time.Second).String()
	}
}

// shortID truncates a session UUID for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// padLeft pads s with spaces on the left to the given width.
func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
