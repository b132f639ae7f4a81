package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/solar3s/padlink/bridge"
	"github.com/solar3s/padlink/composer"
	"github.com/solar3s/padlink/console"
	"github.com/solar3s/padlink/discovery"
	"github.com/solar3s/padlink/display"
	"github.com/solar3s/padlink/frame"
	"github.com/solar3s/padlink/history"
	"github.com/solar3s/padlink/keypad"
	"github.com/solar3s/padlink/link"
	"github.com/solar3s/padlink/uart"
	"github.com/solar3s/padlink/web"
)

// node is one side of the link with everything it runs.
type node struct {
	manager *link.Manager
	server  *web.Server
	display display.Display
	reset   chan struct{}
	tasks   []func(context.Context) error
	closers []func()
}

func newNode(cfg *web.Config, opener link.Opener) *node {
	n := &node{
		manager: link.NewManager(&cfg.Link, opener),
		server:  web.NewServer(Version, cfg),
		display: display.Log{},
		reset:   make(chan struct{}, 1),
	}
	n.server.Link = n.manager
	n.server.OnReset = n.requestReset
	n.tasks = append(n.tasks, n.runLink)
	return n
}

func (n *node) start(ctx context.Context, g *errgroup.Group) {
	for _, task := range n.tasks {
		task := task
		g.Go(func() error { return task(ctx) })
	}
}

// close releases resources in reverse order of acquisition.
func (n *node) close() {
	for i := len(n.closers) - 1; i >= 0; i-- {
		n.closers[i]()
	}
}

func (n *node) requestReset() error {
	if n.manager.Fatal() == nil {
		return errors.New("link is still trying to connect")
	}
	select {
	case n.reset <- struct{}{}:
		return nil
	default:
		return errors.New("reset already pending")
	}
}

// runLink keeps the connection manager running. When it gives up, the
// failure is reported and the link waits for a reset from the status server.
func (n *node) runLink(ctx context.Context) error {
	for {
		err := n.manager.Run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		log.Error().Err(err).Msg("link stopped, POST /link/reset to retry")
		n.display.SetText(display.WidgetLink, "gave up: "+err.Error())
		select {
		case <-ctx.Done():
			return nil
		case <-n.reset:
			log.Info().Msg("link reset requested")
			n.manager.Reset()
		}
	}
}

func newHub(cfg *web.Config) (*node, error) {
	serialConn, err := uart.Open(&cfg.Serial)
	if err != nil {
		return nil, fmt.Errorf("error opening serial port: %w", err)
	}
	log.Info().Str("port", serialConn.Path()).Msg("serial port ready")

	n := newNode(cfg, link.NewListener(&cfg.Link))
	n.closers = append(n.closers, func() { serialConn.Close() })

	hub := bridge.NewHub(&cfg.Bridge, n.manager, serialConn)
	n.server.Bridge = hub
	n.tasks = append(n.tasks, hub.Run)

	if cfg.Discovery.Enabled {
		port, err := listenPort(cfg.Link.ListenAddr)
		if err != nil {
			return nil, err
		}
		announcer, err := discovery.Announce(&cfg.Discovery, port)
		if err != nil {
			log.Warn().Err(err).Msg("hub will not be discoverable")
		} else {
			n.closers = append(n.closers, announcer.Shutdown)
		}
	}
	return n, nil
}

func listenPort(addr string) (int, error) {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("listen address %q: %w", addr, err)
	}
	return strconv.Atoi(p)
}

func newTerminal(cfg *web.Config, root string) (*node, error) {
	dialer := link.NewDialer(&cfg.Link)
	if cfg.Discovery.Enabled {
		dialer.Resolve = discovery.Resolver(&cfg.Discovery)
	}
	n := newNode(cfg, dialer)

	dec := keypad.NewDecoder(&cfg.Keypad, nil)
	widgets := display.NewMemory()
	n.server.Widgets = widgets
	outputs := display.Multi{widgets}
	if cfg.Console {
		con, err := console.Open(dec)
		if err != nil {
			return nil, fmt.Errorf("error opening console: %w", err)
		}
		outputs = append(outputs, con)
		n.closers = append(n.closers, con.Close)
		n.tasks = append(n.tasks, func(ctx context.Context) error {
			err := con.Run(ctx)
			if err == nil && ctx.Err() == nil {
				// user quit from the console
				return context.Canceled
			}
			return err
		})
	} else {
		outputs = append(outputs, display.Log{})
	}
	n.display = outputs

	comp := composer.New(&cfg.Composer, n.manager, n.display)
	term := bridge.NewTerminal(&cfg.Bridge, n.manager, n.display)
	n.server.Bridge = term

	if cfg.History.Enabled {
		journal, err := history.Open(filepath.Join(root, cfg.History.Path), &cfg.History)
		if err != nil {
			log.Warn().Err(err).Msg("history disabled")
		} else {
			n.server.History = journal
			n.closers = append(n.closers, func() { journal.Close() })
			comp.OnCommit = record(journal, history.Out)
			term.OnFrame = record(journal, history.In)
		}
	}

	n.tasks = append(n.tasks,
		func(ctx context.Context) error {
			dec.Run(ctx, comp)
			return nil
		},
		term.Run,
		func(ctx context.Context) error {
			watchLink(ctx, n.manager, term, n.display)
			return nil
		},
	)
	n.display.SetText(display.WidgetCompose, "")
	return n, nil
}

func record(j *history.Journal, dir history.Direction) func(frame.Frame) {
	return func(f frame.Frame) {
		if err := j.Record(dir, f); err != nil {
			log.Error().Err(err).Str("direction", string(dir)).Msg("error recording frame")
		}
	}
}

// watchLink shows the connection state on the link widget.
func watchLink(ctx context.Context, m *link.Manager, term *bridge.Terminal, d display.Display) {
	var last string
	for {
		s := m.Snapshot()
		text := s.String()
		if e := term.Stats().ProtocolErrors; e > 0 {
			text = fmt.Sprintf("%s, %d bad frames", text, e)
		}
		if s.Fatal != "" {
			text = "gave up: " + s.Fatal
		}
		if text != last {
			d.SetText(display.WidgetLink, text)
			last = text
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(250 * time.Millisecond):
		}
	}
}
