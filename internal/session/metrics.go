package session

import (
	"time"

	"github.com/cenkalti/rainview/torrent"
	"github.com/rcrowley/go-metrics"
)

type sessionMetrics struct {
	registry metrics.Registry

	Torrents      metrics.Gauge
	Uptime        metrics.Gauge
	States        map[torrent.State]metrics.Gauge
	SpeedDownload metrics.Meter
	SpeedUpload   metrics.Meter
}

func (s *Session) initMetrics() {
	r := metrics.NewRegistry()
	s.metrics = &sessionMetrics{
		registry: r,

		Torrents: metrics.NewRegisteredFunctionalGauge("torrents", r, func() int64 {
			s.m.RLock()
			defer s.m.RUnlock()
			return int64(len(s.torrents))
		}),
		Uptime:        metrics.NewRegisteredFunctionalGauge("uptime", r, func() int64 { return int64(time.Since(s.createdAt) / time.Second) }),
		States:        make(map[torrent.State]metrics.Gauge),
		SpeedDownload: metrics.NewRegisteredMeter("speed_download", r),
		SpeedUpload:   metrics.NewRegisteredMeter("speed_upload", r),
	}
	for _, state := range torrent.States() {
		state := state
		s.metrics.States[state] = metrics.NewRegisteredFunctionalGauge("torrents_"+state.String(), r, func() int64 {
			s.m.RLock()
			defer s.m.RUnlock()
			return int64(s.stats.States[state])
		})
	}
}

// mark records the bytes transferred during the last poll interval.
func (m *sessionMetrics) mark(stats *Stats, interval time.Duration) {
	m.SpeedDownload.Mark(int64(float64(stats.SpeedDownload) * interval.Seconds()))
	m.SpeedUpload.Mark(int64(float64(stats.SpeedUpload) * interval.Seconds()))
}

func (m *sessionMetrics) Close() {
	m.SpeedDownload.Stop()
	m.SpeedUpload.Stop()
}

// Metrics returns the registry that holds the metrics of the session.
func (s *Session) Metrics() metrics.Registry {
	return s.metrics.registry
}
