package torrent

import "fmt"

// State is the coarse state of a torrent that is shown to the user.
// It is derived from the raw engine status on every Update.
type State int

const (
	// Unknown is the state before the first Update.
	Unknown State = iota
	CheckingResumeData
	Downloading
	DownloadingChecking
	DownloadingForced
	DownloadingMetadata
	DownloadingPaused
	DownloadingQueued
	DownloadingStalled
	Error
	Uploading
	UploadingForced
	UploadingPaused
	UploadingQueued
	UploadingStalled
)

var stateNames = map[State]string{
	Unknown:             "unknown",
	CheckingResumeData:  "checking-resume-data",
	Downloading:         "downloading",
	DownloadingChecking: "downloading-checking",
	DownloadingForced:   "downloading-forced",
	DownloadingMetadata: "downloading-metadata",
	DownloadingPaused:   "downloading-paused",
	DownloadingQueued:   "downloading-queued",
	DownloadingStalled:  "downloading-stalled",
	Error:               "error",
	Uploading:           "uploading",
	UploadingForced:     "uploading-forced",
	UploadingPaused:     "uploading-paused",
	UploadingQueued:     "uploading-queued",
	UploadingStalled:    "uploading-stalled",
}

// States returns all states in declaration order.
func States() []State {
	ret := make([]State, 0, len(stateNames))
	for s := Unknown; s <= UploadingStalled; s++ {
		ret = append(ret, s)
	}
	return ret
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	if _, ok := stateNames[s]; !ok {
		return nil, fmt.Errorf("invalid state: %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(b []byte) error {
	for k, v := range stateNames {
		if v == string(b) {
			*s = k
			return nil
		}
	}
	return fmt.Errorf("invalid state: %q", string(b))
}

func (st *Status) isPaused() bool {
	return st.Paused && !st.AutoManaged
}

func (st *Status) isQueued() bool {
	return st.Paused && st.AutoManaged
}

func (st *Status) isForced() bool {
	return !st.Paused && !st.AutoManaged
}

func (st *Status) hasError() bool {
	return st.Paused && st.Err != nil
}

func (st *Status) isChecking() bool {
	return st.State == EngineCheckingFiles || st.State == EngineCheckingResumeData
}

func (st *Status) isSeeding() bool {
	return st.State == EngineFinished || st.State == EngineSeeding
}

// nextState classifies the status. prev is returned for engine states that have no display state.
func nextState(prev State, st *Status) State {
	if st.isPaused() {
		switch {
		case st.hasError():
			return Error
		case st.isSeeding():
			return UploadingPaused
		default:
			return DownloadingPaused
		}
	}
	if st.isQueued() && !st.isChecking() {
		if st.isSeeding() {
			return UploadingQueued
		}
		return DownloadingQueued
	}
	switch st.State {
	case EngineFinished, EngineSeeding:
		switch {
		case st.isForced():
			return UploadingForced
		case st.UploadPayloadRate > 0:
			return Uploading
		default:
			return UploadingStalled
		}
	case EngineCheckingResumeData:
		return CheckingResumeData
	case EngineCheckingFiles:
		return DownloadingChecking
	case EngineDownloadingMetadata:
		return DownloadingMetadata
	case EngineDownloading:
		switch {
		case st.isForced():
			return DownloadingForced
		case st.DownloadPayloadRate > 0:
			return Downloading
		default:
			return DownloadingStalled
		}
	}
	return prev
}
