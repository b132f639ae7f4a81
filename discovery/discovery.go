// Package discovery lets a terminal find its hub over mDNS instead of relying
// on the access point's fixed address.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/rkjdid/util"
	"github.com/rs/zerolog/log"
)

const (
	Service = "_padlink._tcp"
	Domain  = "local."
)

var ErrNotFound = errors.New("discovery: no hub found")

type Config struct {
	Enabled  bool
	Instance string        // announced name, defaults to padlink-<hostname>
	Timeout  util.Duration // how long a lookup browses
}

var DefaultConfig = Config{
	Enabled: false,
	Timeout: util.Duration(2 * time.Second),
}

func (c Config) instance() string {
	if c.Instance != "" {
		return c.Instance
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "hub"
	}
	return "padlink-" + host
}

// Announce registers the hub on the local network. The caller shuts the
// returned server down on exit.
func Announce(cfg *Config, port int) (*zeroconf.Server, error) {
	if cfg == nil {
		cfg = &DefaultConfig
	}
	server, err := zeroconf.Register(cfg.instance(), Service, Domain, port, []string{"proto=aa55"}, nil)
	if err != nil {
		return nil, fmt.Errorf("discovery: register: %w", err)
	}
	log.Info().Str("service", Service).Str("instance", cfg.instance()).Int("port", port).Msg("mDNS service registered")
	return server, nil
}

func entryAddr(e *zeroconf.ServiceEntry) (string, bool) {
	if e == nil || e.Port == 0 {
		return "", false
	}
	var ip net.IP
	switch {
	case len(e.AddrIPv4) > 0:
		ip = e.AddrIPv4[0]
	case len(e.AddrIPv6) > 0:
		ip = e.AddrIPv6[0]
	default:
		return "", false
	}
	return net.JoinHostPort(ip.String(), strconv.Itoa(e.Port)), true
}

// Lookup browses for a hub and returns the address of the first one found.
func Lookup(ctx context.Context, cfg *Config) (string, error) {
	if cfg == nil {
		cfg = &DefaultConfig
	}
	resolver, err := zeroconf.NewResolver()
	if err != nil {
		return "", fmt.Errorf("discovery: resolver: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Timeout))
	defer cancel()
	entries := make(chan *zeroconf.ServiceEntry)
	if err = resolver.Browse(ctx, Service, Domain, entries); err != nil {
		return "", fmt.Errorf("discovery: browse: %w", err)
	}
	for {
		select {
		case e, ok := <-entries:
			if !ok {
				return "", ErrNotFound
			}
			if addr, ok := entryAddr(e); ok {
				log.Debug().Str("instance", e.Instance).Str("addr", addr).Msg("mDNS hub found")
				return addr, nil
			}
		case <-ctx.Done():
			return "", ErrNotFound
		}
	}
}

// Resolver adapts Lookup to link.Dialer.Resolve.
func Resolver(cfg *Config) func(context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		return Lookup(ctx, cfg)
	}
}
