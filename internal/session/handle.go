package session

import (
	"errors"

	rain "github.com/cenkalti/rain/torrent"
	"github.com/cenkalti/rainview/internal/settings"
	"github.com/cenkalti/rainview/torrent"
)

// handle implements torrent.Handle on top of a rain torrent.
// Limits are kept in the settings store. Rain applies speed limits only session-wide.
type handle struct {
	id      string
	t       *rain.Torrent
	session *Session
}

var _ torrent.Handle = (*handle)(nil)

func (h *handle) IsValid() bool {
	return h.session.rain.GetTorrent(h.id) != nil
}

func (h *handle) get() settings.Settings {
	st, _, err := h.session.settings.Get(h.id)
	if err != nil {
		h.session.log.Errorf("cannot read settings of torrent %s: %s", h.id, err)
		return settings.Default
	}
	return st
}

func (h *handle) update(fn func(st *settings.Settings)) error {
	if !h.IsValid() {
		return torrent.ErrInvalidHandle
	}
	err := h.session.settings.Update(h.id, func(st *settings.Settings) error {
		fn(st)
		return nil
	})
	if errors.Is(err, settings.ErrNotFound) {
		return torrent.ErrInvalidHandle
	}
	return err
}

func (h *handle) DownloadLimit() int  { return h.get().DownloadLimit }
func (h *handle) UploadLimit() int    { return h.get().UploadLimit }
func (h *handle) MaxConnections() int { return h.get().MaxConnections }
func (h *handle) MaxUploads() int     { return h.get().MaxUploads }

func (h *handle) SetDownloadLimit(limit int) error {
	return h.update(func(st *settings.Settings) { st.DownloadLimit = limit })
}

func (h *handle) SetUploadLimit(limit int) error {
	return h.update(func(st *settings.Settings) { st.UploadLimit = limit })
}

func (h *handle) SetMaxConnections(limit int) error {
	return h.update(func(st *settings.Settings) { st.MaxConnections = limit })
}

func (h *handle) SetMaxUploads(limit int) error {
	return h.update(func(st *settings.Settings) { st.MaxUploads = limit })
}

func (h *handle) SetSequentialDownload(val bool) error {
	return h.update(func(st *settings.Settings) { st.SequentialDownload = val })
}

func (h *handle) SetAutoManaged(val bool) error {
	return h.update(func(st *settings.Settings) { st.AutoManaged = val })
}

func (h *handle) MoveStorage(dir string) error {
	return h.session.moveStorage(h, dir)
}

func (h *handle) Pause() error {
	if !h.IsValid() {
		return torrent.ErrInvalidHandle
	}
	return h.t.Stop()
}

// Resume starts the torrent if it is not auto-managed.
// Auto-managed torrents are started by the queue on the next poll.
func (h *handle) Resume() error {
	if !h.IsValid() {
		return torrent.ErrInvalidHandle
	}
	if h.get().AutoManaged {
		h.session.triggerRefresh()
		return nil
	}
	return h.session.start(h)
}

// ClearError hides the last error of a stopped torrent until it is started again.
// Rain clears the error itself when the torrent is started.
func (h *handle) ClearError() error {
	if !h.IsValid() {
		return torrent.ErrInvalidHandle
	}
	h.session.m.Lock()
	h.session.clearedErrors[h.id] = struct{}{}
	h.session.m.Unlock()
	return nil
}
