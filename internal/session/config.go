package session

import (
	"time"

	"github.com/cenkalti/rainview/internal/queue"
)

// Config for Session.
type Config struct {
	// Database file of the rain engine. Holds the metadata and resume data of torrents.
	Database string `yaml:"database"`
	// Database file that holds limits, queue positions and save paths of torrents.
	SettingsDatabase string `yaml:"settings-database"`
	// Torrent data is saved under DataDir/<torrent id>.
	DataDir string `yaml:"data-dir"`
	// New torrents get a listening port from this range.
	PortBegin uint16 `yaml:"port-begin"`
	PortEnd   uint16 `yaml:"port-end"`
	// Enable peer discovery over DHT.
	DHTEnabled bool `yaml:"dht-enabled"`
	// Session-wide speed limits in KB/s. Zero means unlimited.
	SpeedLimitDownload int64 `yaml:"speed-limit-download"`
	SpeedLimitUpload   int64 `yaml:"speed-limit-upload"`
	// Open file limit is raised to this value on startup.
	MaxOpenFiles uint64 `yaml:"max-open-files"`
	// Status of torrents are polled from the engine at this interval.
	UpdateInterval time.Duration `yaml:"update-interval"`
	// Time to wait for a torrent to stop before moving its files.
	MoveStopTimeout time.Duration `yaml:"move-stop-timeout"`
	// Number of auto-managed torrents that are allowed to run. Negative values mean unlimited.
	Queue struct {
		ActiveDownloads int `yaml:"active-downloads"`
		ActiveSeeds     int `yaml:"active-seeds"`
		ActiveLimit     int `yaml:"active-limit"`
	} `yaml:"queue"`
	// Host to listen for RPC server.
	RPCHost string `yaml:"rpc-host"`
	// Listen port for RPC server.
	RPCPort int `yaml:"rpc-port"`
	// Time to wait for ongoing requests before shutting down RPC HTTP server.
	RPCShutdownTimeout time.Duration `yaml:"rpc-shutdown-timeout"`
	// One of debug, info, notice, warning, error, critical.
	LogLevel string `yaml:"log-level"`
}

// DefaultConfig for Session. Do not pass zero value Config to New.
var DefaultConfig = Config{
	Database:           "~/rainview/session.db",
	SettingsDatabase:   "~/rainview/settings.db",
	DataDir:            "~/rainview/data",
	PortBegin:          50000,
	PortEnd:            60000,
	DHTEnabled:         true,
	MaxOpenFiles:       10240,
	UpdateInterval:     time.Second,
	MoveStopTimeout:    30 * time.Second,
	RPCHost:            "127.0.0.1",
	RPCPort:            7247,
	RPCShutdownTimeout: 5 * time.Second,
	LogLevel:           "info",
}

func init() {
	DefaultConfig.Queue.ActiveDownloads = 3
	DefaultConfig.Queue.ActiveSeeds = 5
	DefaultConfig.Queue.ActiveLimit = 15
}

func (c *Config) queueLimits() queue.Limits {
	return queue.Limits{
		ActiveDownloads: c.Queue.ActiveDownloads,
		ActiveSeeds:     c.Queue.ActiveSeeds,
		ActiveLimit:     c.Queue.ActiveLimit,
	}
}
