// Package rpcclient is the client of the JSON-RPC interface served by rpcserver.
package rpcclient

import (
	"encoding/base64"
	"io"
	"net"
	"strconv"

	"github.com/cenkalti/rainview/internal/rpctypes"
	"github.com/powerman/rpc-codec/jsonrpc2"
)

type Client struct {
	client *jsonrpc2.Client
	addr   string
}

// New returns a client for the server at http://host:port/.
func New(host string, port int) *Client {
	addr := "http://" + net.JoinHostPort(host, strconv.Itoa(port)) + "/"
	return NewURL(addr)
}

func NewURL(addr string) *Client {
	return &Client{
		client: jsonrpc2.NewHTTPClient(addr),
		addr:   addr,
	}
}

func (c *Client) Addr() string {
	return c.addr
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) ServerVersion() (string, error) {
	var reply string
	return reply, c.client.Call("Session.Version", nil, &reply)
}

func (c *Client) ListTorrents() ([]rpctypes.Torrent, error) {
	var reply rpctypes.ListTorrentsResponse
	return reply.Torrents, c.client.Call("Session.ListTorrents", nil, &reply)
}

func (c *Client) GetTorrent(id string) (*rpctypes.Torrent, error) {
	args := rpctypes.GetTorrentRequest{ID: id}
	var reply rpctypes.GetTorrentResponse
	return &reply.Torrent, c.client.Call("Session.GetTorrent", args, &reply)
}

func (c *Client) AddTorrent(f io.Reader, stopped bool) (*rpctypes.Torrent, error) {
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	args := rpctypes.AddTorrentRequest{
		Torrent: base64.StdEncoding.EncodeToString(b),
		Stopped: stopped,
	}
	var reply rpctypes.AddTorrentResponse
	return &reply.Torrent, c.client.Call("Session.AddTorrent", args, &reply)
}

func (c *Client) AddURI(uri string, stopped bool) (*rpctypes.Torrent, error) {
	args := rpctypes.AddURIRequest{URI: uri, Stopped: stopped}
	var reply rpctypes.AddURIResponse
	return &reply.Torrent, c.client.Call("Session.AddURI", args, &reply)
}

func (c *Client) RemoveTorrent(id string) error {
	args := rpctypes.RemoveTorrentRequest{ID: id}
	var reply rpctypes.RemoveTorrentResponse
	return c.client.Call("Session.RemoveTorrent", args, &reply)
}

func (c *Client) PauseTorrent(id string) error {
	args := rpctypes.PauseTorrentRequest{ID: id}
	var reply rpctypes.PauseTorrentResponse
	return c.client.Call("Session.PauseTorrent", args, &reply)
}

func (c *Client) ResumeTorrent(id string, force bool) error {
	args := rpctypes.ResumeTorrentRequest{ID: id, Force: force}
	var reply rpctypes.ResumeTorrentResponse
	return c.client.Call("Session.ResumeTorrent", args, &reply)
}

// SetLimits changes the limits of a torrent. Nil values are not changed.
func (c *Client) SetLimits(id string, download, upload, connections, uploads *int) error {
	args := rpctypes.SetLimitsRequest{
		ID:             id,
		DownloadLimit:  download,
		UploadLimit:    upload,
		MaxConnections: connections,
		MaxUploads:     uploads,
	}
	var reply rpctypes.SetLimitsResponse
	return c.client.Call("Session.SetLimits", args, &reply)
}

func (c *Client) SetSequentialDownload(id string, sequential bool) error {
	args := rpctypes.SetSequentialDownloadRequest{ID: id, Sequential: sequential}
	var reply rpctypes.SetSequentialDownloadResponse
	return c.client.Call("Session.SetSequentialDownload", args, &reply)
}

func (c *Client) MoveStorage(id, dir string) error {
	args := rpctypes.MoveStorageRequest{ID: id, Dir: dir}
	var reply rpctypes.MoveStorageResponse
	return c.client.Call("Session.MoveStorage", args, &reply)
}

func (c *Client) GetSessionStats() (*rpctypes.SessionStats, error) {
	var reply rpctypes.GetSessionStatsResponse
	return &reply.Stats, c.client.Call("Session.GetSessionStats", nil, &reply)
}
