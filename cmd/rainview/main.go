package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/boltdb/bolt"
	"github.com/cenkalti/boltbrowser/boltbrowser"
	clog "github.com/cenkalti/log"
	"github.com/cenkalti/rainview/internal/console"
	"github.com/cenkalti/rainview/internal/jsonutil"
	"github.com/cenkalti/rainview/internal/logger"
	"github.com/cenkalti/rainview/internal/magnet"
	"github.com/cenkalti/rainview/internal/metainfo"
	"github.com/cenkalti/rainview/internal/rpcclient"
	"github.com/cenkalti/rainview/internal/rpcserver"
	"github.com/cenkalti/rainview/internal/session"
	"github.com/mitchellh/go-homedir"
	"github.com/urfave/cli"
)

// Version is set by the build script.
var Version = "0.0.0"

var (
	app = cli.NewApp()
	cfg *session.Config
	clt *rpcclient.Client
	log = logger.New("rainview")
)

func main() {
	app.Version = Version
	app.Usage = "BitTorrent server with an auto-managed queue"
	app.EnableBashCompletion = true
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config,c",
			Usage: "read config from `FILE`",
			Value: defaultConfigPath,
		},
		cli.BoolFlag{
			Name:  "debug,d",
			Usage: "enable debug log",
		},
	}
	app.Before = handleBeforeCommand
	idFlag := cli.StringFlag{
		Name:     "id",
		Usage:    "torrent ID",
		Required: true,
	}
	app.Commands = []cli.Command{
		{
			Name:   "server",
			Usage:  "run rainview server",
			Action: handleServer,
		},
		{
			Name:  "client",
			Usage: "send rpc request to server",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "url",
					Usage: "URL of RPC server, defaults to rpc-host and rpc-port in config",
				},
			},
			Before: handleBeforeClient,
			Subcommands: []cli.Command{
				{
					Name:   "version",
					Usage:  "server version",
					Action: handleVersion,
				},
				{
					Name:   "list",
					Usage:  "list torrents",
					Action: handleList,
				},
				{
					Name:   "get",
					Usage:  "get torrent",
					Flags:  []cli.Flag{idFlag},
					Action: handleGet,
				},
				{
					Name:      "add",
					Usage:     "add torrent file or magnet link",
					ArgsUsage: "<file-or-uri>",
					Flags: []cli.Flag{
						cli.BoolFlag{
							Name:  "stopped",
							Usage: "do not start torrent automatically",
						},
					},
					Action: handleAdd,
				},
				{
					Name:   "remove",
					Usage:  "remove torrent",
					Flags:  []cli.Flag{idFlag},
					Action: handleRemove,
				},
				{
					Name:   "pause",
					Usage:  "pause torrent",
					Flags:  []cli.Flag{idFlag},
					Action: handlePause,
				},
				{
					Name:  "resume",
					Usage: "resume torrent",
					Flags: []cli.Flag{
						idFlag,
						cli.BoolFlag{
							Name:  "force",
							Usage: "start regardless of queue limits",
						},
					},
					Action: handleResume,
				},
				{
					Name:  "set-limits",
					Usage: "set limits of torrent, zero means unlimited",
					Flags: []cli.Flag{
						idFlag,
						cli.IntFlag{Name: "download", Usage: "download speed limit in bytes per second"},
						cli.IntFlag{Name: "upload", Usage: "upload speed limit in bytes per second"},
						cli.IntFlag{Name: "connections", Usage: "max connections"},
						cli.IntFlag{Name: "uploads", Usage: "max upload slots"},
					},
					Action: handleSetLimits,
				},
				{
					Name:  "sequential",
					Usage: "download pieces in order",
					Flags: []cli.Flag{
						idFlag,
						cli.BoolTFlag{Name: "enable", Usage: "set to false to disable"},
					},
					Action: handleSequential,
				},
				{
					Name:  "move",
					Usage: "move files of torrent to another directory",
					Flags: []cli.Flag{
						idFlag,
						cli.StringFlag{Name: "dir", Usage: "target directory", Required: true},
					},
					Action: handleMove,
				},
				{
					Name:   "stats",
					Usage:  "get session stats",
					Action: handleStats,
				},
				{
					Name:   "console",
					Usage:  "show torrents in a terminal UI",
					Action: handleConsole,
				},
			},
			After: handleAfterClient,
		},
		{
			Name:      "inspect",
			Usage:     "show contents of a torrent file or magnet link",
			ArgsUsage: "<file-or-uri>",
			Action:    handleInspect,
		},
		{
			Name:   "boltbrowser",
			Hidden: true,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "file",
					Usage: "database file, defaults to settings-database in config",
				},
			},
			Action: handleBoltBrowser,
		},
	}
	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func handleBeforeCommand(c *cli.Context) error {
	var err error
	cfg, err = loadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("cannot load config: %w", err)
	}
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	if c.Bool("debug") {
		level = clog.DEBUG
	}
	logger.SetLevel(level)
	return nil
}

func handleServer(c *cli.Context) error {
	if cfg.MaxOpenFiles > 0 {
		if err := setNoFile(cfg.MaxOpenFiles); err != nil {
			log.Warningf("cannot raise open file limit to %d: %s", cfg.MaxOpenFiles, err)
		}
	}
	ses, err := session.New(*cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := ses.Close(); err != nil {
			log.Errorln("cannot close session:", err)
		}
	}()

	srv := rpcserver.New(ses, Version)
	if err = srv.Start(cfg.RPCHost, cfg.RPCPort); err != nil {
		return err
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	s := <-ch
	log.Infof("received %s, stopping server", s)
	return srv.Stop(cfg.RPCShutdownTimeout)
}

func handleBeforeClient(c *cli.Context) error {
	if u := c.String("url"); u != "" {
		clt = rpcclient.NewURL(u)
	} else {
		clt = rpcclient.New(cfg.RPCHost, cfg.RPCPort)
	}
	return nil
}

func handleAfterClient(c *cli.Context) error {
	if clt != nil {
		return clt.Close()
	}
	return nil
}

func printPretty(v any) error {
	b, err := jsonutil.MarshalCompactPretty(v, true)
	if err != nil {
		return err
	}
	_, _ = os.Stdout.Write(b)
	return nil
}

func handleVersion(c *cli.Context) error {
	version, err := clt.ServerVersion()
	if err != nil {
		return err
	}
	fmt.Println(version)
	return nil
}

func handleList(c *cli.Context) error {
	torrents, err := clt.ListTorrents()
	if err != nil {
		return err
	}
	b, err := jsonutil.MarshalPretty(torrents, true)
	if err != nil {
		return err
	}
	_, _ = os.Stdout.Write(b)
	fmt.Println()
	return nil
}

func handleGet(c *cli.Context) error {
	t, err := clt.GetTorrent(c.String("id"))
	if err != nil {
		return err
	}
	return printPretty(t)
}

func handleAdd(c *cli.Context) error {
	arg := c.Args().Get(0)
	if arg == "" {
		return cli.NewExitError("torrent file or URI is required", 2)
	}
	if isURI(arg) {
		t, err := clt.AddURI(arg, c.Bool("stopped"))
		if err != nil {
			return err
		}
		return printPretty(t)
	}
	arg, err := homedir.Expand(arg)
	if err != nil {
		return err
	}
	f, err := os.Open(arg)
	if err != nil {
		return err
	}
	defer f.Close()
	t, err := clt.AddTorrent(f, c.Bool("stopped"))
	if err != nil {
		return err
	}
	return printPretty(t)
}

func isURI(arg string) bool {
	return magnet.IsMagnet(arg) || strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://")
}

func handleRemove(c *cli.Context) error {
	return clt.RemoveTorrent(c.String("id"))
}

func handlePause(c *cli.Context) error {
	return clt.PauseTorrent(c.String("id"))
}

func handleResume(c *cli.Context) error {
	return clt.ResumeTorrent(c.String("id"), c.Bool("force"))
}

func handleSetLimits(c *cli.Context) error {
	get := func(name string) *int {
		if !c.IsSet(name) {
			return nil
		}
		val := c.Int(name)
		return &val
	}
	return clt.SetLimits(c.String("id"), get("download"), get("upload"), get("connections"), get("uploads"))
}

func handleSequential(c *cli.Context) error {
	return clt.SetSequentialDownload(c.String("id"), c.BoolT("enable"))
}

func handleMove(c *cli.Context) error {
	dir, err := homedir.Expand(c.String("dir"))
	if err != nil {
		return err
	}
	return clt.MoveStorage(c.String("id"), dir)
}

func handleStats(c *cli.Context) error {
	s, err := clt.GetSessionStats()
	if err != nil {
		return err
	}
	return printPretty(s)
}

func handleConsole(c *cli.Context) error {
	interval := cfg.UpdateInterval
	if interval <= 0 {
		interval = time.Second
	}
	return console.New(clt, interval).Run()
}

// inspectResult is the printed form of a torrent file or magnet link.
type inspectResult struct {
	Name        string
	InfoHash    string
	Trackers    [][]string
	Private     bool     `structs:",omitempty"`
	Size        int64    `structs:",omitempty"`
	PieceLength uint32   `structs:",omitempty"`
	NumPieces   uint32   `structs:",omitempty"`
	Files       []string `structs:",omitempty"`
	WebSeeds    []string `structs:",omitempty"`
	Peers       []string `structs:",omitempty"`
	Comment     string   `structs:",omitempty"`
	CreatedBy   string   `structs:",omitempty"`
	CreatedAt   string   `structs:",omitempty"`
}

func handleInspect(c *cli.Context) error {
	arg := c.Args().Get(0)
	if arg == "" {
		return cli.NewExitError("torrent file or magnet link is required", 2)
	}
	if magnet.IsMagnet(arg) {
		m, err := magnet.New(arg)
		if err != nil {
			return err
		}
		return printPretty(inspectResult{
			Name:     m.Name,
			InfoHash: m.InfoHash.String(),
			Trackers: m.Trackers,
			Peers:    m.Peers,
		})
	}
	arg, err := homedir.Expand(arg)
	if err != nil {
		return err
	}
	f, err := os.Open(arg)
	if err != nil {
		return err
	}
	defer f.Close()
	mi, err := metainfo.Parse(f)
	if err != nil {
		return err
	}
	res := inspectResult{
		Name:        mi.Name,
		InfoHash:    mi.InfoHash.String(),
		Trackers:    mi.Trackers,
		Private:     mi.Private,
		Size:        mi.TotalLength,
		PieceLength: mi.PieceLength,
		NumPieces:   mi.NumPieces,
		WebSeeds:    mi.WebSeeds,
		Comment:     mi.Comment,
		CreatedBy:   mi.CreatedBy,
	}
	for _, file := range mi.Files {
		res.Files = append(res.Files, file.Path+" ("+strconv.FormatInt(file.Length, 10)+" bytes)")
	}
	if !mi.CreationDate.IsZero() {
		res.CreatedAt = mi.CreationDate.Format(time.RFC3339)
	}
	return printPretty(res)
}

func handleBoltBrowser(c *cli.Context) error {
	path := c.String("file")
	if path == "" {
		path = cfg.SettingsDatabase
	}
	path, err := homedir.Expand(path)
	if err != nil {
		return err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second, ReadOnly: true})
	if err != nil {
		return err
	}
	defer db.Close()
	boltbrowser.Browse(db, true)
	return nil
}
