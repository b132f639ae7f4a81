package link

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Opener produces a fresh connected socket each time it is called.
type Opener interface {
	Open(ctx context.Context) (net.Conn, error)
	String() string
}

// Dialer connects out to the hub. It is the terminal side of the link.
type Dialer struct {
	Addr      string
	Timeout   time.Duration
	KeepAlive net.KeepAliveConfig

	// Resolve, if set, is asked for the hub address before every dial.
	// Addr is used when it fails.
	Resolve func(ctx context.Context) (string, error)
}

func NewDialer(cfg *Config) *Dialer {
	if cfg == nil {
		cfg = &DefaultConfig
	}
	return &Dialer{
		Addr:      cfg.PeerAddr,
		Timeout:   time.Duration(cfg.ConnectTimeout),
		KeepAlive: cfg.KeepAliveConfig(),
	}
}

func (d *Dialer) Open(ctx context.Context) (net.Conn, error) {
	addr := d.Addr
	if d.Resolve != nil {
		a, err := d.Resolve(ctx)
		switch {
		case err != nil:
			log.Debug().Err(err).Str("fallback", addr).Msg("hub lookup failed")
		case a != "":
			addr = a
		}
	}
	nd := net.Dialer{
		Timeout:         d.Timeout,
		KeepAliveConfig: d.KeepAlive,
	}
	return nd.DialContext(ctx, "tcp", addr)
}

func (d *Dialer) String() string {
	return "dial " + d.Addr
}

// Listener accepts one terminal at a time. It is the hub side of the link.
// The listening socket is bound on first use and kept across reconnects.
type Listener struct {
	Addr      string
	KeepAlive net.KeepAliveConfig
	Poll      time.Duration // accept deadline, bounds ctx cancellation latency

	mu sync.Mutex
	ln *net.TCPListener
}

func NewListener(cfg *Config) *Listener {
	if cfg == nil {
		cfg = &DefaultConfig
	}
	return &Listener{
		Addr:      cfg.ListenAddr,
		KeepAlive: cfg.KeepAliveConfig(),
		Poll:      250 * time.Millisecond,
	}
}

func (l *Listener) listener() (*net.TCPListener, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln != nil {
		return l.ln, nil
	}
	addr, err := net.ResolveTCPAddr("tcp", l.Addr)
	if err != nil {
		return nil, err
	}
	ln, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return nil, err
	}
	l.ln = ln
	log.Info().Str("addr", ln.Addr().String()).Msg("listening for terminal")
	return ln, nil
}

// Local returns the bound address, binding it if needed.
func (l *Listener) Local() (net.Addr, error) {
	ln, err := l.listener()
	if err != nil {
		return nil, err
	}
	return ln.Addr(), nil
}

func (l *Listener) Open(ctx context.Context) (net.Conn, error) {
	ln, err := l.listener()
	if err != nil {
		return nil, err
	}
	poll := l.Poll
	if poll <= 0 {
		poll = 250 * time.Millisecond
	}
	for {
		_ = ln.SetDeadline(time.Now().Add(poll))
		c, err := ln.AcceptTCP()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				continue
			}
			return nil, err
		}
		if err := c.SetKeepAliveConfig(l.KeepAlive); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("keepalive on %s: %w", c.RemoteAddr(), err)
		}
		return c, nil
	}
}

func (l *Listener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	err := l.ln.Close()
	l.ln = nil
	return err
}

func (l *Listener) String() string {
	return "listen " + l.Addr
}
