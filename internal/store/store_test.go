package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "court.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func stores(t *testing.T) map[string]BlobStore {
	return map[string]BlobStore{
		"memory": NewMemoryStore(),
		"sqlite": openTestSQLite(t),
	}
}

func TestBlobStore_PutGet(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			doc := []byte(`{"isCalibrated":true,"calibrationError":0.42}`)
			require.NoError(t, s.Put(ctx, "calibration/a", doc))

			got, err := s.Get(ctx, "calibration/a")
			require.NoError(t, err)
			assert.JSONEq(t, string(doc), string(got))

			// Overwrite.
			require.NoError(t, s.Put(ctx, "calibration/a", []byte(`{}`)))
			got, err = s.Get(ctx, "calibration/a")
			require.NoError(t, err)
			assert.Equal(t, `{}`, string(got))

			_, err = s.Get(ctx, "calibration/missing")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestBlobStore_DeleteAndKeys(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, k := range []string{"heatmap/2", "calibration/b", "heatmap/1", "Heatmap/upper", "heatmap_x"} {
				require.NoError(t, s.Put(ctx, k, []byte(`1`)))
			}

			keys, err := s.Keys(ctx, "heatmap/")
			require.NoError(t, err)
			assert.Equal(t, []string{"heatmap/1", "heatmap/2"}, keys)

			all, err := s.Keys(ctx, "")
			require.NoError(t, err)
			assert.Len(t, all, 5)

			none, err := s.Keys(ctx, "zzz")
			require.NoError(t, err)
			assert.NotNil(t, none)
			assert.Empty(t, none)

			require.NoError(t, s.Delete(ctx, "heatmap/1"))
			assert.ErrorIs(t, s.Delete(ctx, "heatmap/1"), ErrNotFound)
			keys, err = s.Keys(ctx, "heatmap/")
			require.NoError(t, err)
			assert.Equal(t, []string{"heatmap/2"}, keys)
		})
	}
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	v := []byte("abc")
	require.NoError(t, s.Put(ctx, "k", v))
	v[0] = 'x'
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
	got[1] = 'y'
	again, _ := s.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewMemoryStore()
	assert.ErrorIs(t, s.Put(ctx, "k", nil), context.Canceled)
	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSQLiteStore_Migrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "court.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)

	version, dirty, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	require.NoError(t, s.Put(context.Background(), "k", []byte("v")))
	require.NoError(t, s.Close())

	// Reopening is a no-op migration and keeps the data.
	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))
}

func TestNewKey(t *testing.T) {
	a, b := NewKey("calibration"), NewKey("calibration")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "calibration/"))
	assert.Len(t, a, len("calibration/")+36)
}
