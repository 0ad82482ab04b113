package settings

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	s, err := Open(filepath.Join(t.TempDir(), "settings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetMissing(t *testing.T) {
	s := newTestStore(t)
	st, ok, err := s.Get("nope")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, Default, st)
}

func TestPutGet(t *testing.T) {
	s := newTestStore(t)
	want := Settings{
		AutoManaged:        false,
		DownloadLimit:      100,
		UploadLimit:        200,
		MaxConnections:     50,
		MaxUploads:         4,
		SequentialDownload: true,
		QueuePosition:      3,
		SavePath:           "/data/movies",
	}
	require.NoError(t, s.Put("a", want))
	st, ok, err := s.Get("a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, st)
}

func TestNegativeLimitsAreUnlimited(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Put("a", Settings{DownloadLimit: -1, UploadLimit: -5, MaxConnections: -1, MaxUploads: -1}))
	st, _, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, 0, st.DownloadLimit)
	assert.Equal(t, 0, st.UploadLimit)
	assert.Equal(t, 0, st.MaxConnections)
	assert.Equal(t, 0, st.MaxUploads)
}

func TestUpdate(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Put("a", Default))
	require.NoError(t, s.Update("a", func(st *Settings) error {
		assert.Equal(t, Default, *st)
		st.UploadLimit = 10
		return nil
	}))
	st, ok, err := s.Get("a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, st.AutoManaged)
	assert.Equal(t, 10, st.UploadLimit)

	errAbort := errors.New("abort")
	err = s.Update("a", func(st *Settings) error {
		st.UploadLimit = 20
		return errAbort
	})
	assert.ErrorIs(t, err, errAbort)
	st, _, err = s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, 10, st.UploadLimit)
}

func TestUpdateMissing(t *testing.T) {
	s := newTestStore(t)
	called := false
	err := s.Update("a", func(st *Settings) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, called)

	all, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestUpdateAfterDelete(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Put("a", Default))
	require.NoError(t, s.Delete("a"))
	err := s.Update("a", func(st *Settings) error {
		st.DownloadLimit = 1
		return nil
	})
	assert.ErrorIs(t, err, ErrNotFound)
	_, ok, err := s.Get("a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteCompactsQueue(t *testing.T) {
	s := newTestStore(t)
	for i, id := range []string{"a", "b", "c"} {
		pos, err := s.NextQueuePosition()
		require.NoError(t, err)
		assert.Equal(t, i, pos)
		require.NoError(t, s.Put(id, Settings{QueuePosition: pos}))
	}

	require.NoError(t, s.Delete("b"))
	require.NoError(t, s.Delete("b"))

	all, err := s.List()
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, 0, all["a"].QueuePosition)
	assert.Equal(t, 1, all["c"].QueuePosition)

	pos, err := s.NextQueuePosition()
	require.NoError(t, err)
	assert.Equal(t, 2, pos)
}
