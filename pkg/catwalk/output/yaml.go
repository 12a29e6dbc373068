package output

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

// yamlOutput represents the full YAML output structure.
type yamlOutput struct {
	Session yamlSession `yaml:"session"`
	Catalog *yamlTotals `yaml:"catalog,omitempty"`
}

// yamlSession represents the session summary in YAML output.
type yamlSession struct {
	ID          string `yaml:"id"`
	Root        string `yaml:"root"`
	VolumeClass string `yaml:"volume_class"`
	New         int64  `yaml:"new"`
	Modified    int64  `yaml:"modified"`
	Unchanged   int64  `yaml:"unchanged"`
	Missing     int64  `yaml:"missing"`
	Skipped     int64  `yaml:"skipped"`
	Committed   int64  `yaml:"committed"`
	Elapsed     string `yaml:"elapsed"`
	Cancelled   bool   `yaml:"cancelled"`
	Checkpoint  string `yaml:"checkpoint,omitempty"`
}

// yamlTotals represents whole-catalog totals in YAML output.
type yamlTotals struct {
	Records   int64 `yaml:"records"`
	TotalSize int64 `yaml:"total_size"`
}

// YAMLFormatter formats output as YAML.
// It produces the same structure as JSONFormatter but in YAML format.
type YAMLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *YAMLFormatter) Format(w *bytes.Buffer, r *Result) error {
	s := &r.Summary
	out := yamlOutput{
		Session: yamlSession{
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
		out.Catalog = &yamlTotals{
			Records:   r.CatalogRecords,
			TotalSize: r.CatalogBytes,
		}
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(out); err != nil {
		return err
	}
	return encoder.Close()
}

func init() {
	Register("yaml", func() Formatter {
		return &YAMLFormatter{}
	})
}

// Ensure YAMLFormatter implements Formatter.
var _ Formatter = (*YAMLFormatter)(nil)
