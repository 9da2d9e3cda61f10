package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/openinfo/internal/model"
	"github.com/stretchr/testify/require"
)

func setupSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testRecord(id, date string) *model.Record {
	return &model.Record{
		DivisionID: model.DivisionID,
		ID:         id,
		Identifier: "FIN-2011-" + id,
		Title:      "FOI Request - FIN-2011-" + id,
		Date:       date,
		Files:      []model.Document{{Title: "Package.pdf", URL: "/ibc/download/Package.pdf"}},
	}
}

func TestSQLiteStore_UpsertPreservesCreatedAt(t *testing.T) {
	s := setupSQLite(t)
	ctx := context.Background()

	first := time.Date(2015, 11, 3, 10, 0, 0, 0, time.UTC)
	second := first.Add(48 * time.Hour)

	s.now = func() time.Time { return first }
	record := testRecord("00184", "2015-11-03")
	require.NoError(t, s.Upsert(ctx, record))
	require.Equal(t, first, record.CreatedAt)

	s.now = func() time.Time { return second }
	again := testRecord("00184", "2015-11-03")
	again.NumberOfPages = 10
	require.NoError(t, s.Upsert(ctx, again))

	got, err := s.Get(ctx, again.Fingerprint())
	require.NoError(t, err)
	require.Equal(t, first, got.CreatedAt)
	require.Equal(t, second, got.UpdatedAt)
	require.Equal(t, 10, got.NumberOfPages)
	require.Len(t, got.Files, 1)

	fps, err := s.Fingerprints(ctx)
	require.NoError(t, err)
	require.Len(t, fps, 1)
}

func TestSQLiteStore_GetMissing(t *testing.T) {
	s := setupSQLite(t)

	_, err := s.Get(context.Background(), model.Fingerprint{DivisionID: model.DivisionID, ID: "nope"})
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLiteStore_EachAllowsUpsert(t *testing.T) {
	s := setupSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, testRecord("2", "2015-12-01")))
	require.NoError(t, s.Upsert(ctx, testRecord("1", "2015-11-03")))

	var seen []string
	err := s.Each(ctx, func(r *model.Record) error {
		seen = append(seen, r.ID)
		r.ByteSize = 42
		return s.Upsert(ctx, r)
	})
	require.NoError(t, err)
	require.Equal(t, []string{"1", "2"}, seen)

	records, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "2", records[0].ID)
	for _, r := range records {
		require.Equal(t, int64(42), r.ByteSize)
	}

	limited, err := s.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
}

func TestSQLiteStore_EachStopsOnError(t *testing.T) {
	s := setupSQLite(t)
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, testRecord("1", "2015-11-03")))
	require.NoError(t, s.Upsert(ctx, testRecord("2", "2015-11-04")))

	boom := errors.New("boom")
	calls := 0
	err := s.Each(ctx, func(*model.Record) error {
		calls++
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, calls)
}

func TestFSBlobStore_WriteExistsSize(t *testing.T) {
	dir := t.TempDir()
	blobs, err := NewFSBlobStore(dir)
	require.NoError(t, err)

	path := "2015/11/3032724/Package.pdf"
	require.False(t, blobs.Exists(path))

	n, err := blobs.Write(path, strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	require.Equal(t, int64(8), n)
	require.True(t, blobs.Exists(path))

	size, err := blobs.Size(path)
	require.NoError(t, err)
	require.Equal(t, int64(8), size)

	fullPath, err := blobs.Path(path)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "2015", "11", "3032724", "Package.pdf"), fullPath)

	_, err = os.Stat(fullPath + ".tmp")
	require.True(t, os.IsNotExist(err))
}

func TestFSBlobStore_RefusesPathsOutsideRoot(t *testing.T) {
	parent := t.TempDir()
	dir := filepath.Join(parent, "downloads")
	blobs, err := NewFSBlobStore(dir)
	require.NoError(t, err)

	for _, path := range []string{"../escaped.csv", "2015/11/../../../escaped.csv", "..", "", "."} {
		_, err := blobs.Path(path)
		require.ErrorIs(t, err, ErrOutsideRoot, path)

		_, err = blobs.Write(path, strings.NewReader("date,amount\n"))
		require.ErrorIs(t, err, ErrOutsideRoot, path)
		require.False(t, blobs.Exists(path), path)
	}

	_, err = os.Stat(filepath.Join(parent, "escaped.csv"))
	require.True(t, os.IsNotExist(err))

	// Cleaned paths that stay inside are fine
	_, err = blobs.Path("2015/11/../11/3032724/Records.csv")
	require.NoError(t, err)
}

func TestFSBlobStore_SizeMissing(t *testing.T) {
	blobs, err := NewFSBlobStore(t.TempDir())
	require.NoError(t, err)

	_, err = blobs.Size("2015/11/1/missing.pdf")
	require.Error(t, err)
}
