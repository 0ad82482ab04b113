// Package console is a terminal UI that lists torrents of a server and sends commands to it.
package console

import (
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/rainview/internal/rpctypes"
	"github.com/jroimartin/gocui"
)

const (
	listView   = "torrents"
	statusView = "status"
)

// Client is the part of rpcclient.Client used by the console.
type Client interface {
	ListTorrents() ([]rpctypes.Torrent, error)
	PauseTorrent(id string) error
	ResumeTorrent(id string, force bool) error
}

type Console struct {
	client   Client
	interval time.Duration

	m        sync.Mutex
	torrents []rpctypes.Torrent
	selected int
	message  string

	stopC chan struct{}
}

func New(clt Client, interval time.Duration) *Console {
	return &Console{
		client:   clt,
		interval: interval,
		stopC:    make(chan struct{}),
	}
}

func (c *Console) Run() error {
	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return err
	}
	defer g.Close()

	g.SetManagerFunc(c.layout)
	if err = c.keybindings(g); err != nil {
		return err
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.poll(g)
	}()

	err = g.MainLoop()
	close(c.stopC)
	wg.Wait()
	if err == gocui.ErrQuit {
		err = nil
	}
	return err
}

func (c *Console) keybindings(g *gocui.Gui) error {
	bindings := []struct {
		key interface{}
		fn  func(*gocui.Gui, *gocui.View) error
	}{
		{gocui.KeyCtrlC, quit},
		{'q', quit},
		{gocui.KeyArrowUp, c.selectPrev},
		{'k', c.selectPrev},
		{gocui.KeyArrowDown, c.selectNext},
		{'j', c.selectNext},
		{'p', c.command(func(id string) error { return c.client.PauseTorrent(id) })},
		{'r', c.command(func(id string) error { return c.client.ResumeTorrent(id, false) })},
		{'f', c.command(func(id string) error { return c.client.ResumeTorrent(id, true) })},
	}
	for _, b := range bindings {
		if err := g.SetKeybinding("", b.key, gocui.ModNone, b.fn); err != nil {
			return err
		}
	}
	return nil
}

func quit(g *gocui.Gui, v *gocui.View) error {
	return gocui.ErrQuit
}

// poll refreshes the torrent list until the main loop exits.
func (c *Console) poll(g *gocui.Gui) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		c.refresh()
		g.Update(func(g *gocui.Gui) error { return nil })
		select {
		case <-ticker.C:
		case <-c.stopC:
			return
		}
	}
}

func (c *Console) refresh() {
	torrents, err := c.client.ListTorrents()
	c.m.Lock()
	defer c.m.Unlock()
	if err != nil {
		c.message = "error: " + err.Error()
		return
	}
	c.torrents = torrents
	if c.selected >= len(torrents) {
		c.selected = len(torrents) - 1
	}
	if c.selected < 0 {
		c.selected = 0
	}
}

func (c *Console) selectPrev(g *gocui.Gui, v *gocui.View) error {
	c.m.Lock()
	if c.selected > 0 {
		c.selected--
	}
	c.m.Unlock()
	return nil
}

func (c *Console) selectNext(g *gocui.Gui, v *gocui.View) error {
	c.m.Lock()
	if c.selected < len(c.torrents)-1 {
		c.selected++
	}
	c.m.Unlock()
	return nil
}

// command returns a key handler that runs fn on the selected torrent.
func (c *Console) command(fn func(id string) error) func(*gocui.Gui, *gocui.View) error {
	return func(g *gocui.Gui, v *gocui.View) error {
		c.m.Lock()
		if len(c.torrents) == 0 {
			c.m.Unlock()
			return nil
		}
		id := c.torrents[c.selected].ID
		c.m.Unlock()

		err := fn(id)
		c.m.Lock()
		if err != nil {
			c.message = "error: " + err.Error()
		} else {
			c.message = ""
		}
		c.m.Unlock()
		go c.refresh()
		return nil
	}
}

func (c *Console) layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()
	if maxY < 4 {
		return nil
	}

	c.m.Lock()
	defer c.m.Unlock()

	v, err := g.SetView(listView, 0, 0, maxX-1, maxY-3)
	if err != nil && err != gocui.ErrUnknownView {
		return err
	}
	v.Title = "Torrents"
	v.Highlight = true
	v.SelBgColor = gocui.ColorGreen
	v.SelFgColor = gocui.ColorBlack
	v.Clear()
	fmt.Fprintln(v, header(maxX-2))
	for _, t := range c.torrents {
		fmt.Fprintln(v, formatRow(&t, maxX-2))
	}
	if len(c.torrents) > 0 {
		if err = v.SetCursor(0, c.selected+1); err != nil {
			return err
		}
	}

	v, err = g.SetView(statusView, 0, maxY-3, maxX-1, maxY-1)
	if err != nil && err != gocui.ErrUnknownView {
		return err
	}
	v.Frame = false
	v.Clear()
	if c.message != "" {
		fmt.Fprint(v, c.message)
	} else {
		fmt.Fprintf(v, "%d torrents | p: pause  r: resume  f: force  q: quit", len(c.torrents))
	}
	return nil
}
