package output

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairweather/catwalk/pkg/catwalk/types"
)

// testResult builds a populated Result shared by the formatter tests.
func testResult() *Result {
	return &Result{
		Summary: types.Summary{
			SessionID:   "0b5e7c1a-9f3d-4a21-8c4e-d2f6a1b3c4d5",
			Root:        "/mnt/media",
			VolumeClass: "ssd",
			New:         120,
			Modified:    8,
			Unchanged:   3400,
			Missing:     2,
			Skipped:     types.SkipCounters{Permission: 3, Ignored: 12},
			Committed:   3530,
			Elapsed:     42 * time.Second,
		},
		CatalogRecords: 3530,
		CatalogBytes:   7 * types.GiB,
	}
}

func TestRegistry_GetAndAvailable(t *testing.T) {
	for _, name := range []string{"pretty", "plain", "json", "yaml"} {
		f, err := Get(name)
		require.NoError(t, err, name)
		assert.NotNil(t, f)
	}

	assert.Equal(t, []string{"json", "plain", "pretty", "yaml"}, Available())
}

func TestRegistry_UnknownFormatter(t *testing.T) {
	_, err := Get("carrier-pigeon")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown formatter")
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	r := NewRegistry()
	r.Register("plain", func() Formatter { return &PlainFormatter{} })
	r.Register("plain", func() Formatter { return &JSONFormatter{} })

	f, err := r.Get("plain")
	require.NoError(t, err)
	assert.IsType(t, &JSONFormatter{}, f)
	assert.Equal(t, []string{"plain"}, r.Available())
}

func TestAllFormatters_NeverError(t *testing.T) {
	result := testResult()
	for _, name := range Available() {
		t.Run(name, func(t *testing.T) {
			f, err := Get(name)
			require.NoError(t, err)

			var buf bytes.Buffer
			require.NoError(t, f.Format(&buf, result))
			assert.NotEmpty(t, buf.String())
		})
	}
}
