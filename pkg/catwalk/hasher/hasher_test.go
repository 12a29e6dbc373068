package hasher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairweather/catwalk/pkg/catwalk/classify"
	"github.com/fairweather/catwalk/pkg/catwalk/enumerate"
	"github.com/fairweather/catwalk/pkg/catwalk/fault"
	"github.com/fairweather/catwalk/pkg/catwalk/profile"
	"github.com/fairweather/catwalk/pkg/catwalk/shard"
	"github.com/fairweather/catwalk/pkg/catwalk/types"
)

func testProfile() profile.Profile {
	return profile.Profile{
		Class:     profile.ClassSSD,
		Workers:   4,
		ChunkSize: 64, // Small chunks so multi-chunk hashing is exercised
	}
}

// runPool pushes entries through a pool and returns the records produced.
func runPool(t *testing.T, p *Pool, entries []types.FileEntry) []types.ContentRecord {
	t.Helper()

	queue := enumerate.NewQueue(len(entries) + 1)
	for _, e := range entries {
		require.NoError(t, queue.Push(context.Background(), e))
	}
	queue.Close()

	out := make(chan types.ContentRecord, len(entries)+16)
	require.NoError(t, p.Run(context.Background(), queue, out))
	close(out)

	var records []types.ContentRecord
	for rec := range out {
		records = append(records, rec)
	}
	return records
}

func writeFile(t *testing.T, dir, name string, content []byte) types.FileEntry {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	info, err := os.Stat(path)
	require.NoError(t, err)
	return types.FileEntry{Path: path, Size: info.Size(), ModTime: info.ModTime()}
}

func TestPool_HashesNewFiles(t *testing.T) {
	dir := t.TempDir()
	content := []byte("some file content that spans multiple chunks when chunks are tiny........")
	entry := writeFile(t, dir, "file.bin", content)

	p := NewPool(testProfile(), fault.New(fault.DefaultOptions()), classify.New(nil, false, ""))
	records := runPool(t, p, []types.FileEntry{entry})

	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, entry.Path, rec.Path)
	assert.Equal(t, types.StatusNew, rec.Status)

	// Chunked hashing must agree with hashing the whole content at once.
	want := fmt.Sprintf("%016x", xxhash.Sum64(content))
	assert.Equal(t, want, rec.ContentHash)
}

func TestPool_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "empty", nil)

	p := NewPool(testProfile(), fault.New(fault.DefaultOptions()), classify.New(nil, false, ""))
	records := runPool(t, p, []types.FileEntry{entry})

	require.Len(t, records, 1)
	want := fmt.Sprintf("%016x", xxhash.Sum64(nil))
	assert.Equal(t, want, records[0].ContentHash)
}

func TestPool_UnchangedShortCircuit(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "stable.pdf", []byte("stable content"))

	prior := map[string]shard.Prior{
		entry.Path: {
			Size: entry.Size, ModTime: entry.ModTime,
			ContentHash: "feedfacecafebeef", Category: types.CategoryDocument,
		},
	}

	p := NewPool(testProfile(), fault.New(fault.DefaultOptions()), classify.New(prior, false, ""))
	records := runPool(t, p, []types.FileEntry{entry})

	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, types.StatusUnchanged, rec.Status)
	assert.Equal(t, "feedfacecafebeef", rec.ContentHash,
		"stored hash is reused without reading the file")
	assert.Equal(t, types.CategoryDocument, rec.Category)
}

func TestPool_FullModeRehashesUnchanged(t *testing.T) {
	dir := t.TempDir()
	content := []byte("content that quietly rotted")
	entry := writeFile(t, dir, "rotted", content)

	prior := map[string]shard.Prior{
		entry.Path: {
			Size: entry.Size, ModTime: entry.ModTime,
			ContentHash: "0000000000000000", // does not match the real hash
		},
	}

	p := NewPool(testProfile(), fault.New(fault.DefaultOptions()), classify.New(prior, true, ""))
	records := runPool(t, p, []types.FileEntry{entry})

	require.Len(t, records, 1)
	assert.Equal(t, types.StatusModified, records[0].Status,
		"full mode detects corruption under unchanged metadata")
	want := fmt.Sprintf("%016x", xxhash.Sum64(content))
	assert.Equal(t, want, records[0].ContentHash)
}

func TestPool_SkipsUnreadableAndReportsThem(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.txt", []byte("fine"))
	ghost := types.FileEntry{Path: filepath.Join(dir, "ghost.txt"), Size: 1, ModTime: time.Now()}

	var skipped []string
	exec := fault.New(fault.Options{MaxAttempts: 1, InitialBackoff: time.Millisecond, Timeout: time.Second})
	p := NewPool(testProfile(), exec, classify.New(nil, false, ""))
	p.SetOnSkip(func(path string) { skipped = append(skipped, path) })

	records := runPool(t, p, []types.FileEntry{good, ghost})

	require.Len(t, records, 1)
	assert.Equal(t, good.Path, records[0].Path)
	assert.Equal(t, []string{ghost.Path}, skipped)
	assert.Equal(t, int64(1), p.Counters().ReadFailed)
}

func TestPool_ManyFilesAllWorkers(t *testing.T) {
	dir := t.TempDir()

	var entries []types.FileEntry
	for i := 0; i < 50; i++ {
		entries = append(entries, writeFile(t, dir,
			fmt.Sprintf("f%02d.dat", i), []byte(fmt.Sprintf("content-%d", i))))
	}

	p := NewPool(testProfile(), fault.New(fault.DefaultOptions()), classify.New(nil, false, ""))
	records := runPool(t, p, entries)

	require.Len(t, records, len(entries))

	seen := make(map[string]bool)
	for _, rec := range records {
		assert.False(t, seen[rec.Path], "each entry produces exactly one record")
		seen[rec.Path] = true
		assert.NotEmpty(t, rec.ContentHash)
	}
}

func TestPool_Cancellation(t *testing.T) {
	p := NewPool(testProfile(), fault.New(fault.DefaultOptions()), classify.New(nil, false, ""))

	queue := enumerate.NewQueue(10)
	out := make(chan types.ContentRecord)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Run(ctx, queue, out)
	require.ErrorIs(t, err, context.Canceled)
}

func TestCategoryFor_Extensions(t *testing.T) {
	tests := []struct {
		path string
		want types.Category
	}{
		{"/v/photo.JPG", types.CategoryImage},
		{"/v/clip.mkv", types.CategoryVideo},
		{"/v/song.flac", types.CategoryAudio},
		{"/v/report.pdf", types.CategoryDocument},
		{"/v/backup.tar", types.CategoryArchive},
		{"/v/main.go", types.CategoryCode},
		{"/v/unknown.xyz", types.CategoryOther},
		{"/v/noext", types.CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, CategoryFor(tt.path, nil))
		})
	}
}

func TestCategoryFor_HeaderSniff(t *testing.T) {
	tests := []struct {
		name   string
		header []byte
		want   types.Category
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, types.CategoryImage},
		{"png", []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, types.CategoryImage},
		{"pdf", []byte("%PDF-1.7"), types.CategoryDocument},
		{"zip", []byte("PK\x03\x04rest"), types.CategoryArchive},
		{"gzip", []byte{0x1F, 0x8B, 0x08}, types.CategoryArchive},
		{"flac", []byte("fLaC...."), types.CategoryAudio},
		{"wav", append([]byte("RIFF1234"), []byte("WAVEfmt ")...), types.CategoryAudio},
		{"webp", append([]byte("RIFF1234"), []byte("WEBPVP8 ")...), types.CategoryImage},
		{"mp4", []byte("\x00\x00\x00\x20ftypisom"), types.CategoryVideo},
		{"plain", []byte("just some text"), types.CategoryOther},
		{"empty", nil, types.CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CategoryFor("/v/noext", tt.header))
		})
	}
}

func TestCategoryFor_ExtensionWinsOverHeader(t *testing.T) {
	// Known extension decides without consulting content.
	got := CategoryFor("/v/file.mp3", []byte("%PDF"))
	assert.Equal(t, types.CategoryAudio, got)
}
