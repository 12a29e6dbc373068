package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainFormatter_Format_BasicOutput(t *testing.T) {
	formatter := &PlainFormatter{}
	var buf bytes.Buffer

	require.NoError(t, formatter.Format(&buf, testResult()))
	out := buf.String()

	assert.Contains(t, out, "root")
	assert.Contains(t, out, "/mnt/media")
	assert.Contains(t, out, "ssd")
	assert.Contains(t, out, "120")
	assert.Contains(t, out, "3400")
	assert.Contains(t, out, "catalog_records")
	assert.Contains(t, out, "7.0 GiB")

	// Plain output carries no ANSI escapes.
	assert.NotContains(t, out, "\x1b[")
}

func TestPlainFormatter_Format_OmitsCheckpointWhenNotCancelled(t *testing.T) {
	formatter := &PlainFormatter{}
	var buf bytes.Buffer

	result := testResult()
	result.Summary.LastCheckpoint = "/mnt/media/somewhere"

	require.NoError(t, formatter.Format(&buf, result))
	assert.NotContains(t, buf.String(), "checkpoint")
}

func TestPlainFormatter_Format_CancelledWithCheckpoint(t *testing.T) {
	formatter := &PlainFormatter{}
	var buf bytes.Buffer

	result := testResult()
	result.Summary.Cancelled = true
	result.Summary.LastCheckpoint = "/mnt/media/photos/img_0042.jpg"

	require.NoError(t, formatter.Format(&buf, result))
	out := buf.String()

	assert.Contains(t, out, "cancelled true")
	assert.Contains(t, out, "/mnt/media/photos/img_0042.jpg")
}

func TestPlainFormatter_Format_NoCatalogTotals(t *testing.T) {
	formatter := &PlainFormatter{}
	var buf bytes.Buffer

	result := testResult()
	result.CatalogRecords = -1
	result.CatalogBytes = -1

	require.NoError(t, formatter.Format(&buf, result))
	assert.NotContains(t, buf.String(), "catalog_records")
}

func TestPlainFormatter_Format_OneRowPerLine(t *testing.T) {
	formatter := &PlainFormatter{}
	var buf bytes.Buffer

	require.NoError(t, formatter.Format(&buf, testResult()))

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		fields := strings.Fields(line)
		assert.GreaterOrEqual(t, len(fields), 2, "line %q", line)
	}
}
