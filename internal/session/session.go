// Package session runs torrents in the rain engine and keeps a torrent.Torrent view for each of them.
package session

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	rain "github.com/cenkalti/rain/torrent"
	"github.com/cenkalti/rainview/internal/logger"
	"github.com/cenkalti/rainview/internal/queue"
	"github.com/cenkalti/rainview/internal/settings"
	"github.com/cenkalti/rainview/torrent"
	"github.com/gofrs/uuid"
	"github.com/mitchellh/go-homedir"
)

var (
	// ErrTorrentNotFound is returned when there is no torrent with the given ID in the session.
	ErrTorrentNotFound = errors.New("torrent not found")
	// ErrInvalidInput is returned when the torrent file or URI cannot be added to the engine.
	ErrInvalidInput = errors.New("invalid input")
	// ErrMoving is returned when removing a torrent while its storage is being moved.
	ErrMoving = errors.New("torrent storage is being moved")
)

// Session polls the rain engine and projects the status of each torrent into a torrent.Torrent.
type Session struct {
	config    Config
	rain      *rain.Session
	settings  *settings.Store
	limits    queue.Limits
	log       logger.Logger
	createdAt time.Time

	m        sync.RWMutex
	torrents map[string]*torrent.Torrent
	handles  map[string]*handle
	moving   map[string]struct{}
	stats    Stats

	// Errors of stopped torrents that are ignored until the torrent is started again.
	clearedErrors map[string]struct{}

	mAdd sync.Mutex

	metrics *sessionMetrics

	refreshC chan struct{}
	closeC   chan struct{}
	doneC    chan struct{}
}

// Stats about the session.
type Stats struct {
	Torrents      int
	States        map[torrent.State]int
	SpeedDownload int
	SpeedUpload   int
	Uptime        time.Duration
}

// New opens the databases, starts the rain engine and begins polling torrents.
func New(cfg Config) (*Session, error) {
	var err error
	if cfg.Database, err = homedir.Expand(cfg.Database); err != nil {
		return nil, err
	}
	if cfg.SettingsDatabase, err = homedir.Expand(cfg.SettingsDatabase); err != nil {
		return nil, err
	}
	if cfg.DataDir, err = homedir.Expand(cfg.DataDir); err != nil {
		return nil, err
	}
	for _, dir := range []string{filepath.Dir(cfg.Database), filepath.Dir(cfg.SettingsDatabase), cfg.DataDir} {
		if err = os.MkdirAll(dir, 0o750); err != nil {
			return nil, err
		}
	}
	sto, err := settings.Open(cfg.SettingsDatabase)
	if err != nil {
		return nil, fmt.Errorf("cannot open settings database: %w", err)
	}
	rc := rain.DefaultConfig
	rc.Database = cfg.Database
	rc.DataDir = cfg.DataDir
	rc.DataDirIncludesTorrentID = true
	rc.PortBegin = cfg.PortBegin
	rc.PortEnd = cfg.PortEnd
	rc.DHTEnabled = cfg.DHTEnabled
	rc.SpeedLimitDownload = cfg.SpeedLimitDownload
	rc.SpeedLimitUpload = cfg.SpeedLimitUpload
	rc.RPCEnabled = false
	rs, err := rain.NewSession(rc)
	if err != nil {
		sto.Close()
		return nil, err
	}
	s := &Session{
		config:    cfg,
		rain:      rs,
		settings:  sto,
		limits:    cfg.queueLimits(),
		log:       logger.New("session"),
		createdAt: time.Now(),
		torrents:  make(map[string]*torrent.Torrent),
		handles:   make(map[string]*handle),
		moving:    make(map[string]struct{}),

		clearedErrors: make(map[string]struct{}),
		refreshC:  make(chan struct{}, 1),
		closeC:    make(chan struct{}),
		doneC:     make(chan struct{}),
	}
	err = s.loadExistingTorrents()
	if err != nil {
		rs.Close()
		sto.Close()
		return nil, err
	}
	s.initMetrics()
	s.refresh()
	go s.run()
	return s, nil
}

// loadExistingTorrents creates views for torrents that are loaded by the engine from its database.
// Settings of torrents that are not in the engine anymore are deleted.
func (s *Session) loadExistingTorrents() error {
	all, err := s.settings.List()
	if err != nil {
		return err
	}
	for _, rt := range s.rain.ListTorrents() {
		id := rt.ID()
		if _, ok := all[id]; ok {
			delete(all, id)
		} else {
			pos, err := s.settings.NextQueuePosition()
			if err != nil {
				return err
			}
			st := settings.Default
			st.QueuePosition = pos
			if err = s.settings.Put(id, st); err != nil {
				return err
			}
			s.log.Infof("torrent %s is not in settings database, added to queue position %d", id, pos)
		}
		s.insert(rt)
	}
	for id := range all {
		s.log.Warningf("deleting settings of unknown torrent: %s", id)
		if err = s.settings.Delete(id); err != nil {
			return err
		}
	}
	s.log.Infof("loaded %d existing torrents", len(s.torrents))
	return nil
}

// Close stops polling, closes the engine and the settings database.
func (s *Session) Close() error {
	close(s.closeC)
	<-s.doneC
	s.metrics.Close()
	err := s.rain.Close()
	if err2 := s.settings.Close(); err == nil {
		err = err2
	}
	return err
}

func (s *Session) run() {
	defer close(s.doneC)
	ticker := time.NewTicker(s.config.UpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.refresh()
		case <-s.refreshC:
			s.refresh()
		case <-s.closeC:
			return
		}
	}
}

// triggerRefresh makes the update loop poll the engine without waiting for the next tick.
func (s *Session) triggerRefresh() {
	select {
	case s.refreshC <- struct{}{}:
	default:
	}
}

// refresh updates views from the engine and applies the queue.
func (s *Session) refresh() {
	s.m.Lock()
	defer s.m.Unlock()

	all, err := s.settings.List()
	if err != nil {
		s.log.Errorln("cannot read settings:", err)
		return
	}

	stats := Stats{
		Torrents: len(s.torrents),
		States:   make(map[torrent.State]int),
		Uptime:   time.Since(s.createdAt),
	}
	entries := make([]queue.Entry, 0, len(s.torrents))
	for id, t := range s.torrents {
		h := s.handles[id]
		rs := h.t.Stats()
		st, ok := all[id]
		if !ok {
			st = settings.Default
		}
		stopped := rs.Status == rain.Stopped || rs.Status == rain.Stopping
		if _, ok := s.clearedErrors[id]; ok && stopped {
			rs.Error = nil
		}
		if stopped && rs.Error != nil && st.AutoManaged {
			// Failed torrents wait for the user instead of being restarted by the queue.
			s.log.Warningf("torrent %s stopped with error: %s", id, rs.Error)
			err = s.settings.Update(id, func(st2 *settings.Settings) error {
				st2.AutoManaged = false
				return nil
			})
			if err != nil {
				s.log.Errorln("cannot update settings:", err)
			}
			st.AutoManaged = false
		}
		status := newStatus(id, h.t.Name(), torrent.InfoHash(h.t.InfoHash()), &rs, &st, s.dataPath(id))
		status.AddedAt = h.t.AddedAt()
		t.Update(&status)

		stats.States[t.State()]++
		stats.SpeedDownload += status.DownloadPayloadRate
		stats.SpeedUpload += status.UploadPayloadRate

		if _, ok := s.moving[id]; ok {
			continue
		}
		entries = append(entries, queue.Entry{
			ID:            id,
			QueuePosition: st.QueuePosition,
			AutoManaged:   st.AutoManaged,
			Running:       !stopped,
			Seeding:       status.State == torrent.EngineSeeding || status.State == torrent.EngineFinished,
			Errored:       rs.Error != nil && stopped,
		})
	}
	s.stats = stats
	s.metrics.mark(&stats, s.config.UpdateInterval)

	start, stop := queue.Plan(entries, s.limits)
	for _, id := range start {
		s.log.Debugln("queue is starting torrent:", id)
		delete(s.clearedErrors, id)
		if err = s.handles[id].t.Start(); err != nil {
			s.log.Errorf("cannot start torrent %s: %s", id, err)
		}
	}
	for _, id := range stop {
		s.log.Debugln("queue is stopping torrent:", id)
		if err = s.handles[id].t.Stop(); err != nil {
			s.log.Errorf("cannot stop torrent %s: %s", id, err)
		}
	}
}

// start runs the torrent outside of the queue.
func (s *Session) start(h *handle) error {
	s.m.Lock()
	delete(s.clearedErrors, h.id)
	s.m.Unlock()
	return h.t.Start()
}

func (s *Session) dataPath(id string) string {
	return filepath.Join(s.config.DataDir, id)
}

// insert must be called with s.m held or before the update loop starts.
func (s *Session) insert(rt *rain.Torrent) *torrent.Torrent {
	h := &handle{id: rt.ID(), t: rt, session: s}
	var st torrent.Status
	st.ID = rt.ID()
	st.Name = rt.Name()
	st.InfoHash = torrent.InfoHash(rt.InfoHash())
	st.SavePath = s.dataPath(rt.ID())
	st.AddedAt = rt.AddedAt()
	t := torrent.New(h, &st)
	s.torrents[h.id] = t
	s.handles[h.id] = h
	return t
}

func newID() (string, error) {
	u, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(u[:]), nil
}

// AddTorrent adds a torrent from a torrent file.
// The torrent is given to the queue unless stopped is true.
func (s *Session) AddTorrent(r io.Reader, stopped bool) (*torrent.Torrent, error) {
	return s.add(stopped, func(opt *rain.AddTorrentOptions) (*rain.Torrent, error) {
		return s.rain.AddTorrent(r, opt)
	})
}

// AddURI adds a torrent from a magnet link or from the URL of a torrent file.
// The torrent is given to the queue unless stopped is true.
func (s *Session) AddURI(uri string, stopped bool) (*torrent.Torrent, error) {
	return s.add(stopped, func(opt *rain.AddTorrentOptions) (*rain.Torrent, error) {
		return s.rain.AddURI(uri, opt)
	})
}

func (s *Session) add(stopped bool, fn func(opt *rain.AddTorrentOptions) (*rain.Torrent, error)) (*torrent.Torrent, error) {
	s.mAdd.Lock()
	defer s.mAdd.Unlock()

	id, err := newID()
	if err != nil {
		return nil, err
	}
	pos, err := s.settings.NextQueuePosition()
	if err != nil {
		return nil, err
	}
	st := settings.Default
	st.AutoManaged = !stopped
	st.QueuePosition = pos
	if err = s.settings.Put(id, st); err != nil {
		return nil, err
	}
	// Engine never starts the torrent by itself. It is started by the queue.
	rt, err := fn(&rain.AddTorrentOptions{ID: id, Stopped: true})
	if err != nil {
		if err2 := s.settings.Delete(id); err2 != nil {
			s.log.Errorln("cannot delete settings:", err2)
		}
		var e *rain.InputError
		if errors.As(err, &e) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidInput, e.Error())
		}
		return nil, err
	}
	s.m.Lock()
	t := s.insert(rt)
	s.m.Unlock()
	s.log.Infof("added torrent %s (%s) to queue position %d", id, rt.Name(), pos)
	s.triggerRefresh()
	return t, nil
}

// RemoveTorrent stops the torrent and deletes its data.
func (s *Session) RemoveTorrent(id string) error {
	s.m.Lock()
	defer s.m.Unlock()
	if _, ok := s.torrents[id]; !ok {
		return ErrTorrentNotFound
	}
	if _, ok := s.moving[id]; ok {
		return ErrMoving
	}
	st, _, err := s.settings.Get(id)
	if err != nil {
		return err
	}
	if err = s.rain.RemoveTorrent(id); err != nil {
		return err
	}
	delete(s.torrents, id)
	delete(s.handles, id)
	delete(s.clearedErrors, id)
	if st.SavePath != "" {
		if err = os.RemoveAll(st.SavePath); err != nil {
			s.log.Errorf("cannot remove moved data of torrent %s: %s", id, err)
		}
		if err = os.Remove(s.dataPath(id)); err != nil && !os.IsNotExist(err) {
			s.log.Errorf("cannot remove link of torrent %s: %s", id, err)
		}
	}
	s.log.Infoln("removed torrent:", id)
	return s.settings.Delete(id)
}

// Torrents returns the torrents in the session ordered by their queue positions.
func (s *Session) Torrents() []*torrent.Torrent {
	s.m.RLock()
	ret := make([]*torrent.Torrent, 0, len(s.torrents))
	for _, t := range s.torrents {
		ret = append(ret, t)
	}
	s.m.RUnlock()
	sort.Slice(ret, func(i, j int) bool {
		pi, pj := ret[i].QueuePosition(), ret[j].QueuePosition()
		if pi != pj {
			return pi < pj
		}
		return ret[i].ID() < ret[j].ID()
	})
	return ret
}

// Torrent returns the torrent with id.
func (s *Session) Torrent(id string) (*torrent.Torrent, error) {
	s.m.RLock()
	defer s.m.RUnlock()
	t, ok := s.torrents[id]
	if !ok {
		return nil, ErrTorrentNotFound
	}
	return t, nil
}

// Stats returns the statistics calculated on the last poll.
func (s *Session) Stats() Stats {
	s.m.RLock()
	defer s.m.RUnlock()
	ret := s.stats
	ret.States = make(map[torrent.State]int, len(s.stats.States))
	for k, v := range s.stats.States {
		ret.States[k] = v
	}
	ret.Uptime = time.Since(s.createdAt)
	return ret
}
