package web

import (
	"fmt"

	"github.com/solar3s/padlink/bridge"
	"github.com/solar3s/padlink/composer"
	"github.com/solar3s/padlink/discovery"
	"github.com/solar3s/padlink/history"
	"github.com/solar3s/padlink/keypad"
	"github.com/solar3s/padlink/link"
	"github.com/solar3s/padlink/uart"
)

type Mode string

const (
	ModeHub      Mode = "hub"
	ModeTerminal Mode = "terminal"
)

var DefaultConfig = Config{
	Mode:      ModeTerminal,
	Console:   true,
	LogFile:   "padlink.log",
	Link:      link.DefaultConfig,
	Bridge:    bridge.DefaultConfig,
	Serial:    uart.DefaultConfig,
	Keypad:    keypad.DefaultConfig,
	Composer:  composer.DefaultConfig,
	Web:       DefaultServerConfig,
	Discovery: discovery.DefaultConfig,
	History:   history.DefaultConfig,
}

// Config is the whole node configuration, as stored in config.toml.
type Config struct {
	Mode      Mode
	Console   bool   // terminal: draw widgets on the tty, otherwise log them
	LogFile   string // relative to the root directory, used while the console owns the tty
	Link      link.Config
	Bridge    bridge.Config
	Serial    uart.Config // hub only
	Keypad    keypad.Config
	Composer  composer.Config
	Web       ServerConfig
	Discovery discovery.Config
	History   history.Config // terminal only
}

func (c *Config) Validate() error {
	switch c.Mode {
	case ModeHub, ModeTerminal:
	default:
		return fmt.Errorf("unknown mode %q, expected %q or %q", c.Mode, ModeHub, ModeTerminal)
	}
	if c.Link.MaxFailures < 0 {
		return fmt.Errorf("Link.MaxFailures must be positive or 0, got %d", c.Link.MaxFailures)
	}
	if c.Composer.MinValue > c.Composer.MaxValue {
		return fmt.Errorf("Composer.MinValue (%d) above MaxValue (%d)", c.Composer.MinValue, c.Composer.MaxValue)
	}
	return nil
}
