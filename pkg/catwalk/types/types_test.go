package types

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr error
	}{
		{"plain bytes", "1024", 1024, nil},
		{"kilobytes", "100K", 100 * KiB, nil},
		{"megabytes", "50M", 50 * MiB, nil},
		{"gigabytes", "2G", 2 * GiB, nil},
		{"terabytes", "1T", TiB, nil},
		{"with B suffix", "100KB", 100 * KiB, nil},
		{"with iB suffix", "50MiB", 50 * MiB, nil},
		{"decimal value", "1.5G", int64(1.5 * float64(GiB)), nil},
		{"lowercase", "100m", 100 * MiB, nil},
		{"with spaces", "  100M  ", 100 * MiB, nil},
		{"empty", "", 0, ErrInvalidSize},
		{"negative", "-100M", 0, ErrNegativeSize},
		{"garbage", "abc", 0, ErrInvalidSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSize(tt.input)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPathCompare_SubtreeContiguity(t *testing.T) {
	// A directory's subtree must sort as one contiguous block. Plain byte
	// comparison breaks this ("a/b.txt" < "a/b/x" is false byte-wise since
	// '.' < '/' is false), which is exactly what the separator mapping
	// fixes.
	paths := []string{
		"/root/a/b/x",
		"/root/a/b.txt",
		"/root/a/b/y/z",
		"/root/a/c",
		"/root/a!",
	}

	sort.Slice(paths, func(i, j int) bool {
		return PathLess(paths[i], paths[j])
	})

	assert.Equal(t, []string{
		"/root/a/b/x",
		"/root/a/b/y/z",
		"/root/a/b.txt",
		"/root/a/c",
		"/root/a!",
	}, paths)
}

func TestPathCompare_MatchesWalkOrder(t *testing.T) {
	// The walk visits children byte-sorted, descending into each directory
	// before its siblings. PathCompare must agree with that visit order.
	visitOrder := []string{
		"/v/a",
		"/v/dir/inner/deep.txt",
		"/v/dir/inner2.txt",
		"/v/zz",
	}

	for i := 0; i < len(visitOrder)-1; i++ {
		assert.True(t, PathLess(visitOrder[i], visitOrder[i+1]),
			"%s should sort before %s", visitOrder[i], visitOrder[i+1])
	}
}

func TestPathCompare_Basics(t *testing.T) {
	assert.Equal(t, 0, PathCompare("/a/b", "/a/b"))
	assert.Equal(t, -1, PathCompare("/a", "/a/b"))
	assert.Equal(t, 1, PathCompare("/a/b", "/a"))
	assert.Equal(t, -1, PathCompare("/a/b", "/a/c"))
}

func TestSkipCounters(t *testing.T) {
	a := SkipCounters{Permission: 1, Ignored: 2}
	b := SkipCounters{Permission: 3, Cycles: 1, ReadFailed: 5}

	a.Add(b)
	assert.Equal(t, int64(4), a.Permission)
	assert.Equal(t, int64(2), a.Ignored)
	assert.Equal(t, int64(1), a.Cycles)
	assert.Equal(t, int64(12), a.Total())
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "new", StatusNew.String())
	assert.Equal(t, "modified", StatusModified.String())
	assert.Equal(t, "unchanged", StatusUnchanged.String())
	assert.Equal(t, "missing", StatusMissing.String())
	assert.Equal(t, "unknown", Status(99).String())
}

func TestCategoryString(t *testing.T) {
	assert.Equal(t, "image", CategoryImage.String())
	assert.Equal(t, "code", CategoryCode.String())
	assert.Equal(t, "other", CategoryOther.String())
	assert.Equal(t, "other", Category(99).String())
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "1.0 KiB", FormatSize(1024))
	assert.Equal(t, "1.0 GiB", FormatSize(GiB))
}
