package torrent

import "errors"

// ErrInvalidHandle is returned by handle methods after the torrent is removed from the engine.
var ErrInvalidHandle = errors.New("invalid torrent handle")

// Handle controls a single torrent inside the engine.
// Limits are in bytes per second or counts. Zero means unlimited.
type Handle interface {
	// IsValid returns false after the torrent is removed from the engine.
	IsValid() bool

	DownloadLimit() int
	SetDownloadLimit(limit int) error
	UploadLimit() int
	SetUploadLimit(limit int) error
	MaxConnections() int
	SetMaxConnections(limit int) error
	MaxUploads() int
	SetMaxUploads(limit int) error

	SetSequentialDownload(val bool) error
	// MoveStorage moves the torrent's files into dir.
	MoveStorage(dir string) error

	// SetAutoManaged gives the control of starting and stopping the torrent to the queue.
	SetAutoManaged(val bool) error
	Pause() error
	Resume() error
	ClearError() error
}
