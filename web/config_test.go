package web

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rkjdid/util"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	cfg.Mode = "relay"
	if err := cfg.Validate(); err == nil {
		t.Error("expected unknown mode to be rejected")
	}
}

func TestConfigFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := util.WriteTomlFile(&DefaultConfig, path); err != nil {
		t.Fatal(err)
	}

	var cfg *Config
	if err := util.ReadTomlFile(&cfg, path); err != nil {
		t.Fatal(err)
	}
	if cfg.Mode != ModeTerminal {
		t.Errorf("expected mode %s, got %s", ModeTerminal, cfg.Mode)
	}
	if cfg.Link.MaxFailures != 10 || cfg.Link.KeepaliveMisses != 3 {
		t.Errorf("unexpected link config %+v", cfg.Link)
	}
	if time.Duration(cfg.Keypad.Debounce) != 100*time.Millisecond {
		t.Errorf("expected 100ms debounce, got %s", time.Duration(cfg.Keypad.Debounce))
	}
	if cfg.Serial.BaudRate != 115200 {
		t.Errorf("expected 115200 baud, got %d", cfg.Serial.BaudRate)
	}
	if cfg.Composer.MinValue != -32768 || cfg.Composer.MaxValue != 32767 {
		t.Errorf("unexpected numeric bounds %d..%d", cfg.Composer.MinValue, cfg.Composer.MaxValue)
	}
}

const hubConfig = `
Mode = "hub"

[Link]
ListenAddr = ":4000"
MaxFailures = 5
RetryInterval = "2s"

[Serial]
Device = "/dev/ttyUSB0"
BaudRate = 9600
`

func TestDecodeOverlaysDefaults(t *testing.T) {
	cfg := DefaultConfig
	if _, err := toml.Decode(hubConfig, &cfg); err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.Mode != ModeHub {
		t.Errorf("expected hub mode, got %s", cfg.Mode)
	}
	if cfg.Link.ListenAddr != ":4000" || cfg.Link.MaxFailures != 5 {
		t.Errorf("unexpected link config %+v", cfg.Link)
	}
	if time.Duration(cfg.Link.RetryInterval) != 2*time.Second {
		t.Errorf("expected 2s retry interval, got %s", time.Duration(cfg.Link.RetryInterval))
	}
	// untouched keys keep their defaults
	if cfg.Link.PeerAddr != DefaultConfig.Link.PeerAddr {
		t.Errorf("expected default peer address, got %s", cfg.Link.PeerAddr)
	}
	if cfg.Serial.Device != "/dev/ttyUSB0" || cfg.Serial.BaudRate != 9600 {
		t.Errorf("unexpected serial config %+v", cfg.Serial)
	}
}
