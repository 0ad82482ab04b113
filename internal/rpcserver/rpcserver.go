// Package rpcserver exposes a session over JSON-RPC 2.0 on HTTP.
package rpcserver

import (
	"context"
	"expvar"
	"io"
	"net"
	"net/http"
	"net/rpc"
	"strconv"
	"time"

	"github.com/cenkalti/rainview/internal/logger"
	"github.com/cenkalti/rainview/internal/session"
	"github.com/cenkalti/rainview/torrent"
	"github.com/powerman/rpc-codec/jsonrpc2"
	"github.com/rcrowley/go-metrics"
)

// Session is the part of *session.Session that is served over RPC.
type Session interface {
	Torrents() []*torrent.Torrent
	Torrent(id string) (*torrent.Torrent, error)
	AddTorrent(r io.Reader, stopped bool) (*torrent.Torrent, error)
	AddURI(uri string, stopped bool) (*torrent.Torrent, error)
	RemoveTorrent(id string) error
	Stats() session.Stats
	Metrics() metrics.Registry
}

var _ Session = (*session.Session)(nil)

type Server struct {
	rpcServer  *rpc.Server
	httpServer http.Server
	listener   net.Listener
	log        logger.Logger
}

func New(ses Session, version string) *Server {
	h := &handler{session: ses, version: version}
	srv := rpc.NewServer()
	_ = srv.RegisterName("Session", h)

	mux := http.NewServeMux()
	mux.Handle("/debug/vars", expvar.Handler())
	mux.HandleFunc("/metrics", h.handleMetrics)
	mux.Handle("/", jsonrpc2.HTTPHandler(srv))

	return &Server{
		rpcServer: srv,
		httpServer: http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: logger.New("rpc server"),
	}
}

// Start listens on host:port and serves requests in a new goroutine.
// Port 0 picks a random port. Use Addr to get the actual address.
func (s *Server) Start(host string, port int) error {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = listener

	s.log.Infoln("RPC server is listening on", listener.Addr().String())

	go func() {
		err := s.httpServer.Serve(listener)
		if err == http.ErrServerClosed {
			return
		}
		s.log.Errorln("RPC server stopped:", err)
	}()

	return nil
}

// Addr returns the listening address after Start.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Stop waits for active requests to finish up to timeout.
func (s *Server) Stop(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
