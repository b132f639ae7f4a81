// Package bridge moves bytes between the link and the local side of a node:
// the UART on the hub, the display on the terminal.
package bridge

import (
	"sync/atomic"
	"time"

	"github.com/rkjdid/util"
)

type Config struct {
	SerialTimeout util.Duration // hub: wait for serial bytes per read
	SocketPoll    util.Duration // interval between Receive polls when idle
	MaxRead       int           // largest serial chunk forwarded at once
}

var DefaultConfig = Config{
	SerialTimeout: util.Duration(100 * time.Millisecond),
	SocketPoll:    util.Duration(10 * time.Millisecond),
	MaxRead:       255,
}

// Link is the side of a link.Manager the bridge uses.
type Link interface {
	Connected() bool
	Send([]byte) error
	Receive() ([]byte, error)
}

// Serial is the side of a uart.SerialConnection the hub uses.
type Serial interface {
	Read(max int, timeout time.Duration) ([]byte, error)
	Write([]byte) error
}

// Stats counts what went through a bridge since it was created.
type Stats struct {
	ToLink         uint64 // bytes sent to the link
	FromLink       uint64 // bytes received from the link
	Dropped        uint64 `json:",omitempty"` // bytes discarded while the link was down
	Frames         uint64 `json:",omitempty"` // frames delivered to the display
	Unknown        uint64 `json:",omitempty"` // frames with an unrecognized id
	ProtocolErrors uint64 `json:",omitempty"`
}

type counters struct {
	toLink, fromLink, dropped  atomic.Uint64
	frames, unknown, protoErrs atomic.Uint64
}

func (c *counters) stats() Stats {
	return Stats{
		ToLink:         c.toLink.Load(),
		FromLink:       c.fromLink.Load(),
		Dropped:        c.dropped.Load(),
		Frames:         c.frames.Load(),
		Unknown:        c.unknown.Load(),
		ProtocolErrors: c.protoErrs.Load(),
	}
}

func withDefaults(cfg *Config) Config {
	if cfg == nil {
		cfg = &DefaultConfig
	}
	c := *cfg
	if c.SerialTimeout <= 0 {
		c.SerialTimeout = DefaultConfig.SerialTimeout
	}
	if c.SocketPoll <= 0 {
		c.SocketPoll = DefaultConfig.SocketPoll
	}
	if c.MaxRead <= 0 {
		c.MaxRead = DefaultConfig.MaxRead
	}
	return c
}
