package classify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairweather/catwalk/pkg/catwalk/shard"
	"github.com/fairweather/catwalk/pkg/catwalk/types"
)

var baseTime = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func priorState() map[string]shard.Prior {
	return map[string]shard.Prior{
		"/v/kept.txt": {
			Size: 100, ModTime: baseTime,
			ContentHash: "aaaa", Category: types.CategoryDocument,
			Status: types.StatusUnchanged,
		},
		"/v/grown.txt": {
			Size: 50, ModTime: baseTime,
			ContentHash: "bbbb", Status: types.StatusNew,
		},
		"/v/gone.txt": {
			Size: 10, ModTime: baseTime,
			ContentHash: "cccc", Status: types.StatusNew,
		},
		"/v/already-missing.txt": {
			Size: 10, ModTime: baseTime,
			ContentHash: "dddd", Status: types.StatusMissing,
		},
	}
}

func TestDecide_NewPath(t *testing.T) {
	c := New(priorState(), false, "")

	d := c.Decide(types.FileEntry{Path: "/v/brand-new.txt", Size: 5, ModTime: baseTime})

	assert.Equal(t, types.StatusNew, d.Status)
	assert.True(t, d.NeedHash)
	assert.Nil(t, d.Prior)
}

func TestDecide_UnchangedSkipsHashInDeltaMode(t *testing.T) {
	c := New(priorState(), false, "")

	d := c.Decide(types.FileEntry{Path: "/v/kept.txt", Size: 100, ModTime: baseTime})

	assert.Equal(t, types.StatusUnchanged, d.Status)
	assert.False(t, d.NeedHash, "delta mode reuses the stored hash")
	require.NotNil(t, d.Prior)
	assert.Equal(t, "aaaa", d.Prior.ContentHash)
	assert.Equal(t, types.CategoryDocument, d.Prior.Category)
}

func TestDecide_FullModeAlwaysHashes(t *testing.T) {
	c := New(priorState(), true, "")

	d := c.Decide(types.FileEntry{Path: "/v/kept.txt", Size: 100, ModTime: baseTime})

	assert.True(t, d.NeedHash, "full mode ignores the metadata short-circuit")

	// Equal hash settles back to unchanged; a different hash means the
	// content rotted under identical metadata.
	assert.Equal(t, types.StatusUnchanged, c.Finalize(d, "aaaa"))
	assert.Equal(t, types.StatusModified, c.Finalize(d, "eeee"))
}

func TestDecide_MetadataChange(t *testing.T) {
	c := New(priorState(), false, "")

	d := c.Decide(types.FileEntry{Path: "/v/grown.txt", Size: 70, ModTime: baseTime})

	assert.Equal(t, types.StatusModified, d.Status)
	assert.True(t, d.NeedHash)

	// Touch without rewrite: the hash matches but the metadata moved, and
	// delta classification reports what the metadata says.
	d2 := c.Decide(types.FileEntry{Path: "/v/grown.txt", Size: 50, ModTime: baseTime.Add(time.Hour)})
	assert.Equal(t, types.StatusModified, d2.Status)
	assert.Equal(t, types.StatusModified, c.Finalize(d2, "bbbb"))
}

func TestFinalize_FullModeReclassifiesOnHashEquality(t *testing.T) {
	c := New(priorState(), true, "")

	// Metadata moved but the bytes did not; a full rescan trusts the hash.
	d := c.Decide(types.FileEntry{Path: "/v/grown.txt", Size: 50, ModTime: baseTime.Add(time.Hour)})
	assert.Equal(t, types.StatusModified, d.Status)
	assert.Equal(t, types.StatusUnchanged, c.Finalize(d, "bbbb"))
	assert.Equal(t, types.StatusModified, c.Finalize(d, "ffff"))
}

func TestMissing_UnobservedPaths(t *testing.T) {
	c := New(priorState(), false, "")

	c.Decide(types.FileEntry{Path: "/v/kept.txt", Size: 100, ModTime: baseTime})
	c.Decide(types.FileEntry{Path: "/v/grown.txt", Size: 70, ModTime: baseTime})

	missing := c.Missing()

	// gone.txt was never observed; already-missing stays as it is.
	require.Len(t, missing, 1)
	assert.Equal(t, "/v/gone.txt", missing[0].Path)
	assert.Equal(t, types.StatusMissing, missing[0].Status)
	assert.Equal(t, "cccc", missing[0].ContentHash, "missing marks keep the last known hash")
	assert.Equal(t, int64(10), missing[0].Size)
}

func TestMissing_ResumeCursorExemptsCoveredPaths(t *testing.T) {
	// A resumed session never walks paths at or before the cursor, so
	// they must not be reported missing.
	c := New(priorState(), false, "/v/gone.txt")

	c.Decide(types.FileEntry{Path: "/v/kept.txt", Size: 100, ModTime: baseTime})

	missing := c.Missing()
	for _, rec := range missing {
		assert.NotEqual(t, "/v/gone.txt", rec.Path)
		assert.NotEqual(t, "/v/already-missing.txt", rec.Path)
	}
}

func TestMissing_EmptyPrior(t *testing.T) {
	c := New(nil, false, "")
	c.Decide(types.FileEntry{Path: "/v/a.txt"})
	assert.Empty(t, c.Missing())
}
