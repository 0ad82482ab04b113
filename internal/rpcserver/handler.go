package rpcserver

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/cenkalti/rainview/internal/rpctypes"
	"github.com/cenkalti/rainview/internal/session"
	"github.com/cenkalti/rainview/torrent"
	"github.com/powerman/rpc-codec/jsonrpc2"
	"github.com/rcrowley/go-metrics"
)

var errTorrentNotFound = jsonrpc2.NewError(1, "torrent not found")

type handler struct {
	session Session
	version string
}

// rpcError converts session errors into JSON-RPC errors with well known codes.
func rpcError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, session.ErrTorrentNotFound), errors.Is(err, torrent.ErrInvalidHandle):
		return errTorrentNotFound
	case errors.Is(err, session.ErrInvalidInput):
		return jsonrpc2.NewError(2, err.Error())
	default:
		return err
	}
}

func (h *handler) Version(args struct{}, reply *string) error {
	*reply = h.version
	return nil
}

func (h *handler) ListTorrents(args *rpctypes.ListTorrentsRequest, reply *rpctypes.ListTorrentsResponse) error {
	torrents := h.session.Torrents()
	reply.Torrents = make([]rpctypes.Torrent, 0, len(torrents))
	for _, t := range torrents {
		reply.Torrents = append(reply.Torrents, newTorrent(t))
	}
	return nil
}

func (h *handler) GetTorrent(args *rpctypes.GetTorrentRequest, reply *rpctypes.GetTorrentResponse) error {
	t, err := h.session.Torrent(args.ID)
	if err != nil {
		return rpcError(err)
	}
	reply.Torrent = newTorrent(t)
	return nil
}

func (h *handler) AddTorrent(args *rpctypes.AddTorrentRequest, reply *rpctypes.AddTorrentResponse) error {
	r := base64.NewDecoder(base64.StdEncoding, strings.NewReader(args.Torrent))
	t, err := h.session.AddTorrent(r, args.Stopped)
	if err != nil {
		return rpcError(err)
	}
	reply.Torrent = newTorrent(t)
	return nil
}

func (h *handler) AddURI(args *rpctypes.AddURIRequest, reply *rpctypes.AddURIResponse) error {
	t, err := h.session.AddURI(args.URI, args.Stopped)
	if err != nil {
		return rpcError(err)
	}
	reply.Torrent = newTorrent(t)
	return nil
}

func (h *handler) RemoveTorrent(args *rpctypes.RemoveTorrentRequest, reply *rpctypes.RemoveTorrentResponse) error {
	return rpcError(h.session.RemoveTorrent(args.ID))
}

func (h *handler) PauseTorrent(args *rpctypes.PauseTorrentRequest, reply *rpctypes.PauseTorrentResponse) error {
	t, err := h.session.Torrent(args.ID)
	if err != nil {
		return rpcError(err)
	}
	return rpcError(t.Pause())
}

func (h *handler) ResumeTorrent(args *rpctypes.ResumeTorrentRequest, reply *rpctypes.ResumeTorrentResponse) error {
	t, err := h.session.Torrent(args.ID)
	if err != nil {
		return rpcError(err)
	}
	return rpcError(t.Resume(args.Force))
}

func (h *handler) SetLimits(args *rpctypes.SetLimitsRequest, reply *rpctypes.SetLimitsResponse) error {
	t, err := h.session.Torrent(args.ID)
	if err != nil {
		return rpcError(err)
	}
	setters := []struct {
		val *int
		fn  func(int) error
	}{
		{args.DownloadLimit, t.SetDownloadLimit},
		{args.UploadLimit, t.SetUploadLimit},
		{args.MaxConnections, t.SetMaxConnections},
		{args.MaxUploads, t.SetMaxUploads},
	}
	for _, s := range setters {
		if s.val == nil {
			continue
		}
		if err = s.fn(*s.val); err != nil {
			return rpcError(err)
		}
	}
	return nil
}

func (h *handler) SetSequentialDownload(args *rpctypes.SetSequentialDownloadRequest, reply *rpctypes.SetSequentialDownloadResponse) error {
	t, err := h.session.Torrent(args.ID)
	if err != nil {
		return rpcError(err)
	}
	return rpcError(t.SetSequentialDownload(args.Sequential))
}

func (h *handler) MoveStorage(args *rpctypes.MoveStorageRequest, reply *rpctypes.MoveStorageResponse) error {
	if args.Dir == "" {
		return jsonrpc2.NewError(2, "dir is required")
	}
	t, err := h.session.Torrent(args.ID)
	if err != nil {
		return rpcError(err)
	}
	return rpcError(t.MoveStorage(args.Dir))
}

func (h *handler) GetSessionStats(args *rpctypes.GetSessionStatsRequest, reply *rpctypes.GetSessionStatsResponse) error {
	s := h.session.Stats()
	reply.Stats = rpctypes.SessionStats{
		Torrents:      s.Torrents,
		States:        make(map[string]int, len(s.States)),
		SpeedDownload: s.SpeedDownload,
		SpeedUpload:   s.SpeedUpload,
		Uptime:        int(s.Uptime.Seconds()),
	}
	for state, n := range s.States {
		reply.Stats.States[state.String()] = n
	}
	return nil
}

func (h *handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	metrics.WriteJSONOnce(h.session.Metrics(), w)
}

func newTorrent(t *torrent.Torrent) rpctypes.Torrent {
	st := t.Status()
	ret := rpctypes.Torrent{
		ID:                 st.ID,
		Name:               st.Name,
		InfoHash:           st.InfoHash.String(),
		State:              t.State().String(),
		SavePath:           st.SavePath,
		AddedAt:            rpctypes.Time{Time: st.AddedAt},
		Progress:           st.Progress,
		DownloadRate:       st.DownloadPayloadRate,
		UploadRate:         st.UploadPayloadRate,
		Size:               t.Size(),
		TotalWanted:        st.TotalWanted,
		TotalWantedDone:    st.TotalWantedDone,
		QueuePosition:      st.QueuePosition,
		SequentialDownload: st.SequentialDownload,
		Paused:             t.IsPaused(),
		Queued:             t.IsQueued(),
		Forced:             t.IsForced(),
		Seeding:            t.IsSeeding(),
		Checking:           t.IsChecking(),
	}
	if t.IsValid() {
		ret.DownloadLimit = t.DownloadLimit()
		ret.UploadLimit = t.UploadLimit()
		ret.MaxConnections = t.MaxConnections()
		ret.MaxUploads = t.MaxUploads()
	}
	if eta, ok := t.ETA(); ok {
		sec := int(eta.Seconds())
		ret.ETA = &sec
	}
	if t.HasError() {
		errStr := st.Err.Error()
		ret.Error = &errStr
	}
	return ret
}
