package output

import (
	"bytes"
	"encoding/json"
)

// jsonOutput represents the full JSON output structure.
type jsonOutput struct {
	Session jsonSession `json:"session"`
	Catalog *jsonTotals `json:"catalog,omitempty"`
}

// jsonSession represents the session summary in JSON output.
type jsonSession struct {
	ID          string `json:"id"`
	Root        string `json:"root"`
	VolumeClass string `json:"volume_class"`
	New         int64  `json:"new"`
	Modified    int64  `json:"modified"`
	Unchanged   int64  `json:"unchanged"`
	Missing     int64  `json:"missing"`
	Skipped     int64  `json:"skipped"`
	Committed   int64  `json:"committed"`
	Elapsed     string `json:"elapsed"`
	Cancelled   bool   `json:"cancelled"`
	Checkpoint  string `json:"checkpoint,omitempty"`
}

// jsonTotals represents whole-catalog totals in JSON output.
type jsonTotals struct {
	Records   int64 `json:"records"`
	TotalSize int64 `json:"total_size"`
}

// JSONFormatter formats output as a single indented JSON object.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Result) error {
	s := &r.Summary
	out := jsonOutput{
		Session: jsonSession{
			ID:          s.SessionID,
			Root:        s.Root,
			VolumeClass: s.VolumeClass,
			New:         s.New,
			Modified:    s.Modified,
			Unchanged:   s.Unchanged,
			Missing:     s.Missing,
			Skipped:     s.Skipped.Total(),
			Committed:   s.Committed,
			Elapsed:     s.Elapsed.String(),
			Cancelled:   s.Cancelled,
			Checkpoint:  s.LastCheckpoint,
		},
	}
	if r.CatalogRecords >= 0 {
		out.Catalog = &jsonTotals{
			Records:   r.CatalogRecords,
			TotalSize: r.CatalogBytes,
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

// Ensure JSONFormatter implements Formatter.
var _ Formatter = (*JSONFormatter)(nil)
