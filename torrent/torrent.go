// Package torrent provides a view over a torrent that is running inside a torrent engine.
// Accessors read from the last status snapshot given to Update.
// Limits and commands are delegated to the engine's Handle.
package torrent

import (
	"sync"
	"time"
)

// Torrent wraps the engine's handle and the latest status snapshot of a single torrent.
// It is safe for concurrent use.
type Torrent struct {
	handle Handle

	m      sync.RWMutex
	status Status
	state  State
}

// New returns a Torrent in Unknown state. The state is classified on the first call to Update.
func New(h Handle, st *Status) *Torrent {
	return &Torrent{
		handle: h,
		status: *st,
		state:  Unknown,
	}
}

// Update replaces the status snapshot and classifies the torrent again.
func (t *Torrent) Update(st *Status) {
	t.m.Lock()
	t.status = *st
	t.state = nextState(t.state, &t.status)
	t.m.Unlock()
}

// Status returns a copy of the latest status snapshot.
func (t *Torrent) Status() Status {
	t.m.RLock()
	defer t.m.RUnlock()
	return t.status
}

// State returns the display state derived on the last Update.
func (t *Torrent) State() State {
	t.m.RLock()
	defer t.m.RUnlock()
	return t.state
}

func (t *Torrent) ID() string {
	t.m.RLock()
	defer t.m.RUnlock()
	return t.status.ID
}

func (t *Torrent) Name() string {
	t.m.RLock()
	defer t.m.RUnlock()
	return t.status.Name
}

func (t *Torrent) SavePath() string {
	t.m.RLock()
	defer t.m.RUnlock()
	return t.status.SavePath
}

func (t *Torrent) InfoHash() InfoHash {
	t.m.RLock()
	defer t.m.RUnlock()
	return t.status.InfoHash
}

func (t *Torrent) AddedAt() time.Time {
	t.m.RLock()
	defer t.m.RUnlock()
	return t.status.AddedAt
}

// Err returns the error that caused the engine to stop the torrent.
func (t *Torrent) Err() error {
	t.m.RLock()
	defer t.m.RUnlock()
	return t.status.Err
}

// DownloadRate returns payload download speed in bytes per second.
func (t *Torrent) DownloadRate() int {
	t.m.RLock()
	defer t.m.RUnlock()
	return t.status.DownloadPayloadRate
}

// UploadRate returns payload upload speed in bytes per second.
func (t *Torrent) UploadRate() int {
	t.m.RLock()
	defer t.m.RUnlock()
	return t.status.UploadPayloadRate
}

// Progress is in the range [0, 1].
func (t *Torrent) Progress() float32 {
	t.m.RLock()
	defer t.m.RUnlock()
	return t.status.Progress
}

func (t *Torrent) QueuePosition() int {
	t.m.RLock()
	defer t.m.RUnlock()
	return t.status.QueuePosition
}

func (t *Torrent) SequentialDownload() bool {
	t.m.RLock()
	defer t.m.RUnlock()
	return t.status.SequentialDownload
}

func (t *Torrent) TotalWanted() int64 {
	t.m.RLock()
	defer t.m.RUnlock()
	return t.status.TotalWanted
}

func (t *Torrent) TotalWantedDone() int64 {
	t.m.RLock()
	defer t.m.RUnlock()
	return t.status.TotalWantedDone
}

// Size returns the total length of files in torrent.
// It returns -1 if the metadata is not downloaded yet.
func (t *Torrent) Size() int64 {
	t.m.RLock()
	defer t.m.RUnlock()
	if !t.status.HasMetadata {
		return -1
	}
	return t.status.TotalSize
}

// ETA returns the time remaining to download all wanted bytes at the current download rate.
// ok is false when the torrent is paused, there is nothing left to download or the rate is zero.
func (t *Torrent) ETA() (eta time.Duration, ok bool) {
	t.m.RLock()
	defer t.m.RUnlock()
	if t.status.isPaused() {
		return 0, false
	}
	remaining := t.status.TotalWanted - t.status.TotalWantedDone
	if remaining > 0 && t.status.DownloadPayloadRate > 0 {
		return time.Duration(remaining/int64(t.status.DownloadPayloadRate)) * time.Second, true
	}
	return 0, false
}

// HasError is true if the engine has stopped the torrent because of an error.
func (t *Torrent) HasError() bool {
	t.m.RLock()
	defer t.m.RUnlock()
	return t.status.hasError()
}

// IsChecking is true while the engine is verifying existing data.
func (t *Torrent) IsChecking() bool {
	t.m.RLock()
	defer t.m.RUnlock()
	return t.status.isChecking()
}

// IsForced is true if the torrent is running outside the control of the queue.
func (t *Torrent) IsForced() bool {
	t.m.RLock()
	defer t.m.RUnlock()
	return t.status.isForced()
}

// IsPaused is true if the torrent is stopped by the user.
func (t *Torrent) IsPaused() bool {
	t.m.RLock()
	defer t.m.RUnlock()
	return t.status.isPaused()
}

// IsQueued is true if the torrent is stopped by the queue and waits for a free slot.
func (t *Torrent) IsQueued() bool {
	t.m.RLock()
	defer t.m.RUnlock()
	return t.status.isQueued()
}

// IsSeeding is true if all wanted pieces are downloaded.
func (t *Torrent) IsSeeding() bool {
	t.m.RLock()
	defer t.m.RUnlock()
	return t.status.isSeeding()
}

func (t *Torrent) IsValid() bool { return t.handle.IsValid() }

func (t *Torrent) DownloadLimit() int { return t.handle.DownloadLimit() }

func (t *Torrent) UploadLimit() int { return t.handle.UploadLimit() }

func (t *Torrent) MaxConnections() int { return t.handle.MaxConnections() }

func (t *Torrent) MaxUploads() int { return t.handle.MaxUploads() }

func (t *Torrent) SetDownloadLimit(limit int) error { return t.handle.SetDownloadLimit(limit) }

func (t *Torrent) SetUploadLimit(limit int) error { return t.handle.SetUploadLimit(limit) }

func (t *Torrent) SetMaxConnections(limit int) error { return t.handle.SetMaxConnections(limit) }

func (t *Torrent) SetMaxUploads(limit int) error { return t.handle.SetMaxUploads(limit) }

func (t *Torrent) SetSequentialDownload(val bool) error {
	return t.handle.SetSequentialDownload(val)
}

// MoveStorage moves the files of the torrent into dir.
func (t *Torrent) MoveStorage(dir string) error {
	return t.handle.MoveStorage(dir)
}

// Pause stops the torrent and takes it out of the queue.
// Pausing an already paused torrent does nothing.
func (t *Torrent) Pause() error {
	if t.IsPaused() {
		return nil
	}
	err := t.handle.SetAutoManaged(false)
	if err != nil {
		return err
	}
	return t.handle.Pause()
}

// Resume starts the torrent. If force is false the torrent is given to the queue,
// otherwise it runs regardless of the queue limits.
// The error of a failed torrent is cleared before resuming.
func (t *Torrent) Resume(force bool) error {
	if t.HasError() {
		err := t.handle.ClearError()
		if err != nil {
			return err
		}
	}
	err := t.handle.SetAutoManaged(!force)
	if err != nil {
		return err
	}
	return t.handle.Resume()
}
