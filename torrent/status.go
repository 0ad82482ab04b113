package torrent

import (
	"encoding/hex"
	"time"
)

// EngineState is the raw state reported by the torrent engine.
type EngineState int

const (
	// EngineCheckingFiles indicates that the engine is hashing pieces that already exist on disk.
	EngineCheckingFiles EngineState = iota
	// EngineCheckingResumeData indicates that the engine is validating fast-resume data.
	EngineCheckingResumeData
	// EngineDownloadingMetadata indicates that the torrent is added via magnet link and the info dictionary is being downloaded from peers.
	EngineDownloadingMetadata
	// EngineDownloading indicates that the torrent's files are being downloaded from peers.
	EngineDownloading
	// EngineFinished indicates that all wanted pieces are downloaded but some unwanted pieces are missing.
	EngineFinished
	// EngineSeeding indicates that all pieces are downloaded and the torrent is only uploading.
	EngineSeeding
	// EngineAllocating indicates that the engine is creating/opening files on the disk.
	EngineAllocating
)

func (s EngineState) String() string {
	m := map[EngineState]string{
		EngineCheckingFiles:       "checking-files",
		EngineCheckingResumeData:  "checking-resume-data",
		EngineDownloadingMetadata: "downloading-metadata",
		EngineDownloading:         "downloading",
		EngineFinished:            "finished",
		EngineSeeding:             "seeding",
		EngineAllocating:          "allocating",
	}
	return m[s]
}

// InfoHash is the SHA-1 hash of the torrent's info dictionary.
type InfoHash [20]byte

// String encodes info hash in hex as 40 characters.
func (h InfoHash) String() string {
	return hex.EncodeToString(h[:])
}

// Status is a snapshot of the raw status fields of a torrent as reported by the engine.
// A new snapshot is passed to Torrent.Update on every poll.
type Status struct {
	// ID of the torrent in the engine.
	ID string
	// Name can change after metadata is downloaded.
	Name string
	// Directory that contains the torrent's files.
	SavePath string
	InfoHash InfoHash
	State    EngineState
	// Paused is true when the engine is not running the torrent.
	Paused bool
	// AutoManaged torrents are started and stopped by the queue.
	AutoManaged bool
	// Err is the reason of the last unexpected stop.
	Err error
	// Payload bytes per second, protocol overhead excluded.
	DownloadPayloadRate int
	UploadPayloadRate   int
	// Number of bytes that are going to be downloaded.
	TotalWanted int64
	// Number of wanted bytes that are downloaded and passed hash check.
	TotalWantedDone int64
	// Progress is in the range [0, 1].
	Progress      float32
	QueuePosition int
	// Pieces are requested in order.
	SequentialDownload bool
	// HasMetadata is false until the info dictionary is known.
	HasMetadata bool
	// Sum of the lengths of all files. Only valid when HasMetadata is true.
	TotalSize int64
	AddedAt   time.Time
}
