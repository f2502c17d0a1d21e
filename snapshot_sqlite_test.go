package linkshortener

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteSnapshot(t *testing.T) (*SQLiteSnapshot, string) {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "links.sqlite") + "?_journal_mode=wal"
	snap, err := NewSQLiteSnapshot(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { snap.Close() })

	return snap, dsn
}

func TestSQLiteSnapshot(t *testing.T) {
	t.Run("fresh database loads nothing", func(t *testing.T) {
		snap, _ := newTestSQLiteSnapshot(t)
		s := NewStore()

		require.NoError(t, snap.Load(s))
		assert.Zero(t, s.Len())
	})

	t.Run("round trip across reopen", func(t *testing.T) {
		snap, dsn := newTestSQLiteSnapshot(t)

		s := NewStore()
		for _, u := range []string{"https://a.example", "https://b.example/?q=1,2"} {
			_, err := s.Shorten(u)
			require.NoError(t, err)
		}
		require.NoError(t, snap.Save(s))
		require.NoError(t, snap.Close())

		reopened, err := NewSQLiteSnapshot(dsn)
		require.NoError(t, err)
		defer reopened.Close()

		loaded := NewStore()
		require.NoError(t, reopened.Load(loaded))
		assert.ElementsMatch(t, s.Entries(), loaded.Entries())
		assertBijection(t, loaded)
	})

	t.Run("save replaces previous contents", func(t *testing.T) {
		snap, _ := newTestSQLiteSnapshot(t)

		first := NewStore()
		first.Put("k1", "https://a.example")
		first.Put("k2", "https://b.example")
		require.NoError(t, snap.Save(first))

		second := NewStore()
		second.Put("k3", "https://a.example")
		require.NoError(t, snap.Save(second))

		loaded := NewStore()
		require.NoError(t, snap.Load(loaded))
		assert.Equal(t, []Entry{{Key: "k3", LongURL: "https://a.example"}}, loaded.Entries())
	})

	t.Run("closed database", func(t *testing.T) {
		snap, _ := newTestSQLiteSnapshot(t)
		require.NoError(t, snap.Close())

		assert.Error(t, snap.Save(NewStore()))
		assert.Error(t, snap.Load(NewStore()))
	})
}
