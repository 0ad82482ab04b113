package rpcserver

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/rainview/internal/rpcclient"
	"github.com/cenkalti/rainview/internal/session"
	"github.com/cenkalti/rainview/torrent"
	"github.com/fortytw2/leaktest"
	"github.com/powerman/rpc-codec/jsonrpc2"
	"github.com/rcrowley/go-metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	m           sync.Mutex
	valid       bool
	limits      [4]int
	sequential  bool
	autoManaged bool
	movedTo     string
	calls       []string
}

func (h *fakeHandle) IsValid() bool {
	h.m.Lock()
	defer h.m.Unlock()
	return h.valid
}

func (h *fakeHandle) limit(i int) int {
	h.m.Lock()
	defer h.m.Unlock()
	return h.limits[i]
}

func (h *fakeHandle) setLimit(i, val int) error {
	h.m.Lock()
	defer h.m.Unlock()
	if !h.valid {
		return torrent.ErrInvalidHandle
	}
	h.limits[i] = val
	return nil
}

func (h *fakeHandle) call(name string) error {
	h.m.Lock()
	defer h.m.Unlock()
	h.calls = append(h.calls, name)
	return nil
}

func (h *fakeHandle) DownloadLimit() int                { return h.limit(0) }
func (h *fakeHandle) UploadLimit() int                  { return h.limit(1) }
func (h *fakeHandle) MaxConnections() int               { return h.limit(2) }
func (h *fakeHandle) MaxUploads() int                   { return h.limit(3) }
func (h *fakeHandle) SetDownloadLimit(val int) error    { return h.setLimit(0, val) }
func (h *fakeHandle) SetUploadLimit(val int) error      { return h.setLimit(1, val) }
func (h *fakeHandle) SetMaxConnections(val int) error   { return h.setLimit(2, val) }
func (h *fakeHandle) SetMaxUploads(val int) error       { return h.setLimit(3, val) }
func (h *fakeHandle) Pause() error                      { return h.call("pause") }
func (h *fakeHandle) Resume() error                     { return h.call("resume") }
func (h *fakeHandle) ClearError() error                 { return h.call("clear-error") }
func (h *fakeHandle) SetSequentialDownload(v bool) error {
	h.m.Lock()
	h.sequential = v
	h.m.Unlock()
	return nil
}
func (h *fakeHandle) SetAutoManaged(v bool) error {
	h.m.Lock()
	h.autoManaged = v
	h.m.Unlock()
	return h.call("auto-managed=" + strconv.FormatBool(v))
}
func (h *fakeHandle) MoveStorage(dir string) error {
	h.m.Lock()
	h.movedTo = dir
	h.m.Unlock()
	return nil
}

type fakeSession struct {
	m        sync.Mutex
	torrents []*torrent.Torrent
	handles  map[string]*fakeHandle
	added    []byte
	registry metrics.Registry
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		handles:  make(map[string]*fakeHandle),
		registry: metrics.NewRegistry(),
	}
}

func (s *fakeSession) put(st *torrent.Status) (*torrent.Torrent, *fakeHandle) {
	s.m.Lock()
	defer s.m.Unlock()
	h := &fakeHandle{valid: true}
	t := torrent.New(h, st)
	t.Update(st)
	s.torrents = append(s.torrents, t)
	s.handles[st.ID] = h
	return t, h
}

func (s *fakeSession) Torrents() []*torrent.Torrent {
	s.m.Lock()
	defer s.m.Unlock()
	return append([]*torrent.Torrent(nil), s.torrents...)
}

func (s *fakeSession) Torrent(id string) (*torrent.Torrent, error) {
	s.m.Lock()
	defer s.m.Unlock()
	for _, t := range s.torrents {
		if t.ID() == id {
			return t, nil
		}
	}
	return nil, session.ErrTorrentNotFound
}

func (s *fakeSession) AddTorrent(r io.Reader, stopped bool) (*torrent.Torrent, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(b, []byte("d")) {
		return nil, fmt.Errorf("%w: not a bencoded dictionary", session.ErrInvalidInput)
	}
	s.m.Lock()
	s.added = b
	s.m.Unlock()
	t, _ := s.put(&torrent.Status{ID: "new", Name: "added", Paused: stopped, AutoManaged: !stopped})
	return t, nil
}

func (s *fakeSession) AddURI(uri string, stopped bool) (*torrent.Torrent, error) {
	return nil, fmt.Errorf("%w: unsupported uri: %s", session.ErrInvalidInput, uri)
}

func (s *fakeSession) RemoveTorrent(id string) error {
	s.m.Lock()
	defer s.m.Unlock()
	for i, t := range s.torrents {
		if t.ID() == id {
			s.torrents = append(s.torrents[:i], s.torrents[i+1:]...)
			s.handles[id].m.Lock()
			s.handles[id].valid = false
			s.handles[id].m.Unlock()
			return nil
		}
	}
	return session.ErrTorrentNotFound
}

func (s *fakeSession) Stats() session.Stats {
	return session.Stats{
		Torrents:      len(s.Torrents()),
		States:        map[torrent.State]int{torrent.Downloading: 1},
		SpeedDownload: 100,
		Uptime:        90 * time.Second,
	}
}

func (s *fakeSession) Metrics() metrics.Registry { return s.registry }

func startServer(t *testing.T, ses Session) (clt *rpcclient.Client, stop func()) {
	srv := New(ses, "1.2.3")
	require.NoError(t, srv.Start("127.0.0.1", 0))
	clt = rpcclient.NewURL("http://" + srv.Addr().String() + "/")
	return clt, func() {
		clt.Close()
		http.DefaultClient.CloseIdleConnections()
		assert.NoError(t, srv.Stop(time.Second))
	}
}

func errorCode(err error) int {
	return jsonrpc2.ServerError(err).Code
}

func TestVersionAndList(t *testing.T) {
	defer leaktest.Check(t)()
	ses := newFakeSession()
	ses.put(&torrent.Status{
		ID:                  "t1",
		Name:                "foo",
		InfoHash:            torrent.InfoHash{0xab},
		State:               torrent.EngineDownloading,
		AutoManaged:         true,
		DownloadPayloadRate: 100,
		TotalWanted:         1000,
		TotalWantedDone:     500,
		Progress:            0.5,
		HasMetadata:         true,
		TotalSize:           1000,
	})
	clt, stop := startServer(t, ses)
	defer stop()

	version, err := clt.ServerVersion()
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", version)

	torrents, err := clt.ListTorrents()
	require.NoError(t, err)
	require.Len(t, torrents, 1)
	tor := torrents[0]
	assert.Equal(t, "t1", tor.ID)
	assert.Equal(t, "foo", tor.Name)
	assert.Equal(t, "ab00000000000000000000000000000000000000", tor.InfoHash)
	assert.Equal(t, "downloading", tor.State)
	assert.Equal(t, int64(1000), tor.Size)
	require.NotNil(t, tor.ETA)
	assert.Equal(t, 5, *tor.ETA)
	assert.Nil(t, tor.Error)
	assert.False(t, tor.Paused)
}

func TestGetTorrentNotFound(t *testing.T) {
	defer leaktest.Check(t)()
	clt, stop := startServer(t, newFakeSession())
	defer stop()

	_, err := clt.GetTorrent("missing")
	require.Error(t, err)
	assert.Equal(t, 1, errorCode(err))

	err = clt.PauseTorrent("missing")
	assert.Equal(t, 1, errorCode(err))
}

func TestErroredTorrent(t *testing.T) {
	defer leaktest.Check(t)()
	ses := newFakeSession()
	ses.put(&torrent.Status{ID: "t1", State: torrent.EngineDownloading, Paused: true, Err: errors.New("disk full")})
	clt, stop := startServer(t, ses)
	defer stop()

	tor, err := clt.GetTorrent("t1")
	require.NoError(t, err)
	assert.Equal(t, "error", tor.State)
	require.NotNil(t, tor.Error)
	assert.Equal(t, "disk full", *tor.Error)
	assert.Nil(t, tor.ETA)
}

func TestAddTorrent(t *testing.T) {
	defer leaktest.Check(t)()
	ses := newFakeSession()
	clt, stop := startServer(t, ses)
	defer stop()

	tor, err := clt.AddTorrent(bytes.NewReader([]byte("d4:infodee")), true)
	require.NoError(t, err)
	assert.Equal(t, "new", tor.ID)
	assert.Equal(t, "downloading-paused", tor.State)
	assert.Equal(t, []byte("d4:infodee"), ses.added)

	_, err = clt.AddTorrent(bytes.NewReader([]byte("garbage")), false)
	assert.Equal(t, 2, errorCode(err))

	_, err = clt.AddURI("ftp://foo", false)
	assert.Equal(t, 2, errorCode(err))
}

func TestPauseResume(t *testing.T) {
	defer leaktest.Check(t)()
	ses := newFakeSession()
	_, h := ses.put(&torrent.Status{ID: "t1", State: torrent.EngineDownloading, AutoManaged: true})
	clt, stop := startServer(t, ses)
	defer stop()

	require.NoError(t, clt.PauseTorrent("t1"))
	require.NoError(t, clt.ResumeTorrent("t1", true))
	h.m.Lock()
	defer h.m.Unlock()
	assert.Equal(t, []string{"auto-managed=false", "pause", "auto-managed=false", "resume"}, h.calls)
}

func TestSetLimits(t *testing.T) {
	defer leaktest.Check(t)()
	ses := newFakeSession()
	_, h := ses.put(&torrent.Status{ID: "t1", State: torrent.EngineDownloading})
	clt, stop := startServer(t, ses)
	defer stop()

	download, connections := 1024, 50
	require.NoError(t, clt.SetLimits("t1", &download, nil, &connections, nil))
	require.NoError(t, clt.SetSequentialDownload("t1", true))
	require.NoError(t, clt.MoveStorage("t1", "/mnt/data"))

	tor, err := clt.GetTorrent("t1")
	require.NoError(t, err)
	assert.Equal(t, 1024, tor.DownloadLimit)
	assert.Equal(t, 0, tor.UploadLimit)
	assert.Equal(t, 50, tor.MaxConnections)
	h.m.Lock()
	assert.True(t, h.sequential)
	assert.Equal(t, "/mnt/data", h.movedTo)
	h.m.Unlock()

	err = clt.MoveStorage("t1", "")
	assert.Equal(t, 2, errorCode(err))
}

func TestRemoveTorrent(t *testing.T) {
	defer leaktest.Check(t)()
	ses := newFakeSession()
	ses.put(&torrent.Status{ID: "t1"})
	clt, stop := startServer(t, ses)
	defer stop()

	require.NoError(t, clt.RemoveTorrent("t1"))
	err := clt.RemoveTorrent("t1")
	assert.Equal(t, 1, errorCode(err))
	torrents, err := clt.ListTorrents()
	require.NoError(t, err)
	assert.Empty(t, torrents)
}

func TestSessionStats(t *testing.T) {
	defer leaktest.Check(t)()
	clt, stop := startServer(t, newFakeSession())
	defer stop()

	stats, err := clt.GetSessionStats()
	require.NoError(t, err)
	assert.Equal(t, 90, stats.Uptime)
	assert.Equal(t, 100, stats.SpeedDownload)
	assert.Equal(t, map[string]int{"downloading": 1}, stats.States)
}

func TestMetricsEndpoint(t *testing.T) {
	defer leaktest.Check(t)()
	ses := newFakeSession()
	metrics.GetOrRegisterGauge("torrents", ses.registry).Update(3)
	srv := New(ses, "test")
	require.NoError(t, srv.Start("127.0.0.1", 0))
	defer srv.Stop(time.Second)

	resp, err := http.Get("http://" + srv.Addr().String() + "/metrics")
	require.NoError(t, err)
	b, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	http.DefaultClient.CloseIdleConnections()
	assert.JSONEq(t, `{"torrents":{"value":3}}`, string(b))
}
