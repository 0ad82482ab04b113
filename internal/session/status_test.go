package session

import (
	"errors"
	"testing"

	rain "github.com/cenkalti/rain/torrent"
	"github.com/cenkalti/rainview/internal/settings"
	"github.com/cenkalti/rainview/torrent"
	"github.com/stretchr/testify/assert"
)

func TestEngineState(t *testing.T) {
	running := map[rain.Status]torrent.EngineState{
		rain.DownloadingMetadata: torrent.EngineDownloadingMetadata,
		rain.Allocating:          torrent.EngineAllocating,
		rain.Verifying:           torrent.EngineCheckingFiles,
		rain.Downloading:         torrent.EngineDownloading,
		rain.Seeding:             torrent.EngineSeeding,
	}
	for rs, want := range running {
		var stats rain.Stats
		stats.Status = rs
		stats.Pieces.Total = 10
		state, paused := engineState(&stats)
		assert.Equal(t, want, state, rs.String())
		assert.False(t, paused, rs.String())
	}

	for _, rs := range []rain.Status{rain.Stopped, rain.Stopping} {
		var stats rain.Stats
		stats.Status = rs
		state, paused := engineState(&stats)
		assert.True(t, paused)
		assert.Equal(t, torrent.EngineDownloadingMetadata, state)

		stats.Pieces.Total = 10
		stats.Bytes.Total = 100
		stats.Bytes.Incomplete = 40
		state, _ = engineState(&stats)
		assert.Equal(t, torrent.EngineDownloading, state)

		stats.Bytes.Incomplete = 0
		state, _ = engineState(&stats)
		assert.Equal(t, torrent.EngineSeeding, state)
	}
}

func TestNewStatus(t *testing.T) {
	var stats rain.Stats
	stats.Status = rain.Downloading
	stats.Error = errors.New("ignored while running")
	stats.Pieces.Total = 4
	stats.Bytes.Total = 200
	stats.Bytes.Completed = 50
	stats.Bytes.Incomplete = 150
	stats.Speed.Download = 10
	stats.Speed.Upload = 5
	st := settings.Settings{AutoManaged: true, QueuePosition: 2, SequentialDownload: true}
	ih := torrent.InfoHash{1, 2, 3}

	status := newStatus("id1", "foo", ih, &stats, &st, "/data/id1")
	assert.Equal(t, torrent.Status{
		ID:                  "id1",
		Name:                "foo",
		SavePath:            "/data/id1",
		InfoHash:            ih,
		State:               torrent.EngineDownloading,
		AutoManaged:         true,
		DownloadPayloadRate: 10,
		UploadPayloadRate:   5,
		TotalWanted:         200,
		TotalWantedDone:     50,
		Progress:            0.25,
		QueuePosition:       2,
		SequentialDownload:  true,
		HasMetadata:         true,
		TotalSize:           200,
	}, status)

	stats.Status = rain.Stopped
	st.SavePath = "/mnt/id1"
	status = newStatus("id1", "foo", ih, &stats, &st, "/data/id1")
	assert.True(t, status.Paused)
	assert.EqualError(t, status.Err, "ignored while running")
	assert.Equal(t, "/mnt/id1", status.SavePath)

	var empty rain.Stats
	status = newStatus("id2", "", ih, &empty, &settings.Default, "/data/id2")
	assert.False(t, status.HasMetadata)
	assert.Equal(t, float32(0), status.Progress)
}
