package session

import (
	rain "github.com/cenkalti/rain/torrent"
	"github.com/cenkalti/rainview/internal/settings"
	"github.com/cenkalti/rainview/torrent"
)

// engineState maps the status of a rain torrent into the raw engine state.
// A stopped torrent reports the state it would be in if it were running.
func engineState(stats *rain.Stats) (state torrent.EngineState, paused bool) {
	switch stats.Status {
	case rain.DownloadingMetadata:
		return torrent.EngineDownloadingMetadata, false
	case rain.Allocating:
		return torrent.EngineAllocating, false
	case rain.Verifying:
		return torrent.EngineCheckingFiles, false
	case rain.Downloading:
		return torrent.EngineDownloading, false
	case rain.Seeding:
		return torrent.EngineSeeding, false
	}
	switch {
	case stats.Pieces.Total == 0:
		return torrent.EngineDownloadingMetadata, true
	case stats.Bytes.Incomplete == 0:
		return torrent.EngineSeeding, true
	default:
		return torrent.EngineDownloading, true
	}
}

func newStatus(id, name string, infoHash torrent.InfoHash, stats *rain.Stats, st *settings.Settings, savePath string) torrent.Status {
	state, paused := engineState(stats)
	ret := torrent.Status{
		ID:                  id,
		Name:                name,
		SavePath:            savePath,
		InfoHash:            infoHash,
		State:               state,
		Paused:              paused,
		AutoManaged:         st.AutoManaged,
		DownloadPayloadRate: stats.Speed.Download,
		UploadPayloadRate:   stats.Speed.Upload,
		TotalWanted:         stats.Bytes.Total,
		TotalWantedDone:     stats.Bytes.Completed,
		QueuePosition:       st.QueuePosition,
		SequentialDownload:  st.SequentialDownload,
		HasMetadata:         stats.Pieces.Total > 0,
		TotalSize:           stats.Bytes.Total,
	}
	if paused {
		ret.Err = stats.Error
	}
	if st.SavePath != "" {
		ret.SavePath = st.SavePath
	}
	if stats.Bytes.Total > 0 {
		ret.Progress = float32(float64(stats.Bytes.Completed) / float64(stats.Bytes.Total))
	}
	return ret
}
