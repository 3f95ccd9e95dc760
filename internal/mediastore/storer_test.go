package mediastore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/journalport/internal/entities"
)

type memIndex struct {
	rows    map[string]*entities.MediaChecksum
	lookups int
	inserts int
}

func newMemIndex() *memIndex {
	return &memIndex{rows: map[string]*entities.MediaChecksum{}}
}

func (m *memIndex) Lookup(ownerID uint, checksum string) (*entities.MediaChecksum, error) {
	m.lookups++
	return m.rows[cacheKey(ownerID, checksum)], nil
}

func (m *memIndex) Insert(row *entities.MediaChecksum) error {
	m.inserts++
	k := cacheKey(row.OwnerID, row.Checksum)
	if _, ok := m.rows[k]; ok {
		return gorm.ErrDuplicatedKey
	}
	m.rows[k] = row
	return nil
}

// racingIndex simulates a concurrent job that inserts the same checksum
// between our lookup and our insert.
type racingIndex struct {
	*memIndex
	winnerPath string
}

func (r *racingIndex) Insert(row *entities.MediaChecksum) error {
	winner := *row
	winner.RelativePath = r.winnerPath
	r.rows[cacheKey(row.OwnerID, row.Checksum)] = &winner
	return gorm.ErrDuplicatedKey
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0644))
	return p
}

func newStorer(t *testing.T, index ChecksumIndex) (*Storer, *LocalBlobs) {
	t.Helper()
	blobs, err := NewLocalBlobs(filepath.Join(t.TempDir(), "media"))
	require.NoError(t, err)
	storer, err := NewStorer(blobs, index, 16, nil)
	require.NoError(t, err)
	return storer, blobs
}

func countFiles(t *testing.T, root string) int {
	t.Helper()
	n := 0
	require.NoError(t, filepath.Walk(root, func(_ string, info os.FileInfo, err error) error {
		if err == nil && info.Mode().IsRegular() {
			n++
		}
		return err
	}))
	return n
}

func TestKey(t *testing.T) {
	assert.Equal(t, "7/images/ab/abcdef.jpg", Key(7, entities.MediaTypeImage, "abcdef", "JPG"))
	assert.Equal(t, "7/videos/ab/abcdef.mov", Key(7, entities.MediaTypeVideo, "abcdef", ".mov"))
	assert.Equal(t, "7/files/ab/abcdef", Key(7, entities.MediaTypeUnknown, "abcdef", ""))
}

func TestStorer_DedupSameBytes(t *testing.T) {
	index := newMemIndex()
	storer, blobs := newStorer(t, index)
	src := t.TempDir()
	a := writeFile(t, src, "a.jpg", "same-bytes")
	b := writeFile(t, src, "b.jpg", "same-bytes")

	first, err := storer.Store(context.Background(), StoreRequest{OwnerID: 1, SourcePath: a, Kind: entities.MediaTypeImage, Ext: ".jpg"})
	require.NoError(t, err)
	assert.False(t, first.Deduplicated)
	assert.Equal(t, int64(len("same-bytes")), first.Size)

	second, err := storer.Store(context.Background(), StoreRequest{OwnerID: 1, SourcePath: b, Kind: entities.MediaTypeImage, Ext: ".jpg"})
	require.NoError(t, err)
	assert.True(t, second.Deduplicated)
	assert.Equal(t, first.RelativePath, second.RelativePath)
	assert.Equal(t, first.Checksum, second.Checksum)

	assert.Equal(t, 1, countFiles(t, blobs.Root()))
	assert.Len(t, index.rows, 1)
	assert.Equal(t, 1, index.inserts)

	// Another owner gets its own copy.
	third, err := storer.Store(context.Background(), StoreRequest{OwnerID: 2, SourcePath: b, Kind: entities.MediaTypeImage, Ext: ".jpg"})
	require.NoError(t, err)
	assert.False(t, third.Deduplicated)
	assert.Equal(t, 2, countFiles(t, blobs.Root()))
}

func TestStorer_DeclaredChecksumSkipsIO(t *testing.T) {
	index := newMemIndex()
	storer, _ := newStorer(t, index)
	src := writeFile(t, t.TempDir(), "a.jpg", "bytes")

	stored, err := storer.Store(context.Background(), StoreRequest{OwnerID: 1, SourcePath: src, Kind: entities.MediaTypeImage, Ext: ".jpg"})
	require.NoError(t, err)

	res, err := storer.Store(context.Background(), StoreRequest{
		OwnerID:          1,
		SourcePath:       "/does/not/exist",
		DeclaredChecksum: stored.Checksum,
		Kind:             entities.MediaTypeImage,
	})
	require.NoError(t, err)
	assert.True(t, res.Deduplicated)
	assert.Equal(t, stored.RelativePath, res.RelativePath)
}

func TestStorer_CacheInFrontOfIndex(t *testing.T) {
	index := newMemIndex()
	storer, _ := newStorer(t, index)
	src := writeFile(t, t.TempDir(), "a.jpg", "bytes")

	stored, err := storer.Store(context.Background(), StoreRequest{OwnerID: 1, SourcePath: src, Kind: entities.MediaTypeImage})
	require.NoError(t, err)
	before := index.lookups

	_, ok, err := storer.Known(1, stored.Checksum)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, before, index.lookups)
}

func TestStorer_RaceReportsWinner(t *testing.T) {
	index := &racingIndex{memIndex: newMemIndex(), winnerPath: "1/images/xx/winner.jpg"}
	storer, _ := newStorer(t, index)
	src := writeFile(t, t.TempDir(), "a.jpg", "contested")

	res, err := storer.Store(context.Background(), StoreRequest{OwnerID: 1, SourcePath: src, Kind: entities.MediaTypeImage, Ext: ".jpg"})
	require.NoError(t, err)
	assert.True(t, res.Deduplicated)
	assert.Equal(t, "1/images/xx/winner.jpg", res.RelativePath)
}

func TestLocalBlobs(t *testing.T) {
	blobs, err := NewLocalBlobs(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()
	src, err := os.Open(writeFile(t, t.TempDir(), "x", "payload"))
	require.NoError(t, err)
	defer src.Close()

	require.NoError(t, blobs.Put(ctx, "1/files/ab/abc", src, 7))
	ok, err := blobs.Exists(ctx, "1/files/ab/abc")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = blobs.Open(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, blobs.Put(ctx, "../escape", src, 7))

	require.NoError(t, blobs.Delete(ctx, "1/files/ab/abc"))
	ok, err = blobs.Exists(ctx, "1/files/ab/abc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMediaTypeForMime(t *testing.T) {
	tests := map[string]entities.MediaType{
		"image/jpeg":      entities.MediaTypeImage,
		"video/quicktime": entities.MediaTypeVideo,
		"audio/mpeg":      entities.MediaTypeAudio,
		"application/pdf": entities.MediaTypeUnknown,
	}
	for mime, want := range tests {
		assert.Equal(t, want, MediaTypeForMime(mime), mime)
	}
}
