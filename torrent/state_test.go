package torrent

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextState(t *testing.T) {
	errDisk := errors.New("disk full")
	cases := []struct {
		name   string
		status Status
		prev   State
		want   State
	}{
		{"paused with error", Status{Paused: true, Err: errDisk, State: EngineDownloading}, Unknown, Error},
		{"paused seeding", Status{Paused: true, State: EngineSeeding}, Unknown, UploadingPaused},
		{"paused finished", Status{Paused: true, State: EngineFinished}, Unknown, UploadingPaused},
		{"paused downloading", Status{Paused: true, State: EngineDownloading}, Unknown, DownloadingPaused},
		{"paused metadata", Status{Paused: true, State: EngineDownloadingMetadata}, Unknown, DownloadingPaused},
		{"queued seeding", Status{Paused: true, AutoManaged: true, State: EngineSeeding}, Unknown, UploadingQueued},
		{"queued downloading", Status{Paused: true, AutoManaged: true, State: EngineDownloading}, Unknown, DownloadingQueued},
		{"queued with error", Status{Paused: true, AutoManaged: true, Err: errDisk, State: EngineDownloading}, Unknown, DownloadingQueued},
		{"queued while checking files", Status{Paused: true, AutoManaged: true, State: EngineCheckingFiles}, Unknown, DownloadingChecking},
		{"queued while checking resume data", Status{Paused: true, AutoManaged: true, State: EngineCheckingResumeData}, Unknown, CheckingResumeData},
		{"forced seeding", Status{State: EngineSeeding, UploadPayloadRate: 10}, Unknown, UploadingForced},
		{"forced finished", Status{State: EngineFinished}, Unknown, UploadingForced},
		{"uploading", Status{AutoManaged: true, State: EngineSeeding, UploadPayloadRate: 10}, Unknown, Uploading},
		{"uploading stalled", Status{AutoManaged: true, State: EngineFinished}, Unknown, UploadingStalled},
		{"checking resume data", Status{AutoManaged: true, State: EngineCheckingResumeData}, Unknown, CheckingResumeData},
		{"checking files", Status{AutoManaged: true, State: EngineCheckingFiles}, Unknown, DownloadingChecking},
		{"downloading metadata", Status{AutoManaged: true, State: EngineDownloadingMetadata}, Unknown, DownloadingMetadata},
		{"forced downloading", Status{State: EngineDownloading, DownloadPayloadRate: 10}, Unknown, DownloadingForced},
		{"downloading", Status{AutoManaged: true, State: EngineDownloading, DownloadPayloadRate: 10}, Unknown, Downloading},
		{"downloading stalled", Status{AutoManaged: true, State: EngineDownloading}, Unknown, DownloadingStalled},
		{"allocating keeps previous", Status{AutoManaged: true, State: EngineAllocating}, DownloadingQueued, DownloadingQueued},
		{"allocating from unknown", Status{AutoManaged: true, State: EngineAllocating}, Unknown, Unknown},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			st := c.status
			assert.Equal(t, c.want, nextState(c.prev, &st))
		})
	}
}

func TestStateText(t *testing.T) {
	for _, s := range States() {
		b, err := s.MarshalText()
		require.NoError(t, err)
		var s2 State
		require.NoError(t, s2.UnmarshalText(b))
		assert.Equal(t, s, s2)
	}
	assert.Len(t, States(), 15)
	assert.Equal(t, "downloading-stalled", DownloadingStalled.String())
	assert.Equal(t, "state(99)", State(99).String())

	_, err := State(99).MarshalText()
	assert.Error(t, err)
	var s State
	assert.Error(t, s.UnmarshalText([]byte("sleeping")))
}
