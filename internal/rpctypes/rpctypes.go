// Package rpctypes contains the request and response types of the JSON-RPC interface.
package rpctypes

// Torrent is the view of a torrent that is sent to clients.
type Torrent struct {
	ID       string
	Name     string
	InfoHash string
	State    string
	SavePath string
	AddedAt  Time `structs:",omitnested"`

	// Progress is in the range [0, 1].
	Progress        float32
	DownloadRate    int
	UploadRate      int
	Size            int64
	TotalWanted     int64
	TotalWantedDone int64
	// ETA is in seconds. Nil when it cannot be calculated.
	ETA *int

	QueuePosition      int
	DownloadLimit      int
	UploadLimit        int
	MaxConnections     int
	MaxUploads         int
	SequentialDownload bool

	Paused   bool
	Queued   bool
	Forced   bool
	Seeding  bool
	Checking bool
	Error    *string
}

type SessionStats struct {
	Torrents      int
	States        map[string]int
	SpeedDownload int
	SpeedUpload   int
	Uptime        int
}

type ListTorrentsRequest struct {
}

type ListTorrentsResponse struct {
	Torrents []Torrent
}

type GetTorrentRequest struct {
	ID string
}

type GetTorrentResponse struct {
	Torrent Torrent
}

type AddTorrentRequest struct {
	// Torrent is the content of the .torrent file encoded in base64.
	Torrent string
	Stopped bool
}

type AddTorrentResponse struct {
	Torrent Torrent
}

type AddURIRequest struct {
	URI     string
	Stopped bool
}

type AddURIResponse struct {
	Torrent Torrent
}

type RemoveTorrentRequest struct {
	ID string
}

type RemoveTorrentResponse struct {
}

type PauseTorrentRequest struct {
	ID string
}

type PauseTorrentResponse struct {
}

type ResumeTorrentRequest struct {
	ID    string
	Force bool
}

type ResumeTorrentResponse struct {
}

// SetLimitsRequest changes the limits of a torrent. Nil fields are left unchanged.
type SetLimitsRequest struct {
	ID             string
	DownloadLimit  *int
	UploadLimit    *int
	MaxConnections *int
	MaxUploads     *int
}

type SetLimitsResponse struct {
}

type SetSequentialDownloadRequest struct {
	ID         string
	Sequential bool
}

type SetSequentialDownloadResponse struct {
}

type MoveStorageRequest struct {
	ID  string
	Dir string
}

type MoveStorageResponse struct {
}

type GetSessionStatsRequest struct {
}

type GetSessionStatsResponse struct {
	Stats SessionStats
}
