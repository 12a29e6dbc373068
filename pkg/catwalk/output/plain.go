package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"

	"github.com/fairweather/catwalk/pkg/catwalk/types"
)

// PlainFormatter formats output as simple labeled rows.
// It produces plain text suitable for scripting and piping.
// No colors or styling are applied.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)

	s := &r.Summary
	rows := [][2]string{
		{"session", s.SessionID},
		{"root", s.Root},
		{"class", s.VolumeClass},
		{"new", fmt.Sprint(s.New)},
		{"modified", fmt.Sprint(s.Modified)},
		{"unchanged", fmt.Sprint(s.Unchanged)},
		{"missing", fmt.Sprint(s.Missing)},
		{"skipped", fmt.Sprint(s.Skipped.Total())},
		{"committed", fmt.Sprint(s.Committed)},
		{"elapsed", s.Elapsed.String()},
		{"cancelled", fmt.Sprint(s.Cancelled)},
	}
	if s.Cancelled && s.LastCheckpoint != "" {
		rows = append(rows, [2]string{"checkpoint", s.LastCheckpoint})
	}
	if r.CatalogRecords >= 0 {
		rows = append(rows,
			[2]string{"catalog_records", fmt.Sprint(r.CatalogRecords)},
			[2]string{"catalog_size", types.FormatSize(r.CatalogBytes)})
	}

	for _, row := range rows {
		if _, err := fmt.Fprintf(tw, "%s\t%s\n", row[0], row[1]); err != nil {
			return err
		}
	}

	return tw.Flush()
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

// Ensure PlainFormatter implements Formatter.
var _ Formatter = (*PlainFormatter)(nil)
