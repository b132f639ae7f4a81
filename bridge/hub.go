package bridge

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/solar3s/padlink/link"
	"github.com/solar3s/padlink/metrics"
	"github.com/solar3s/padlink/uart"
)

// Hub passes bytes through unchanged between the UART and the link.
type Hub struct {
	cfg    Config
	link   Link
	serial Serial
	counters
}

func NewHub(cfg *Config, l Link, s Serial) *Hub {
	return &Hub{
		cfg:    withDefaults(cfg),
		link:   l,
		serial: s,
	}
}

func (h *Hub) Stats() Stats {
	return h.stats()
}

// Run pumps both directions until ctx is done or the serial port closes.
func (h *Hub) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return h.serialToLink(ctx) })
	g.Go(func() error { return h.linkToSerial(ctx) })
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (h *Hub) serialToLink(ctx context.Context) error {
	timeout := time.Duration(h.cfg.SerialTimeout)
	for ctx.Err() == nil {
		b, err := h.serial.Read(h.cfg.MaxRead, timeout)
		if err != nil {
			if errors.Is(err, uart.ErrClosedPort) {
				return err
			}
			log.Error().Err(err).Msg("serial read")
			select {
			case <-ctx.Done():
			case <-time.After(timeout):
			}
			continue
		}
		if len(b) == 0 {
			continue
		}
		h.forward(b)
	}
	return ctx.Err()
}

// forward sends serial bytes to the link, or drops them when it is down.
func (h *Hub) forward(b []byte) {
	if !h.link.Connected() {
		h.drop(b, link.ErrNotConnected)
		return
	}
	if err := h.link.Send(b); err != nil {
		h.drop(b, err)
		return
	}
	h.toLink.Add(uint64(len(b)))
	metrics.BridgeBytes.WithLabelValues("serial_to_link").Add(float64(len(b)))
}

func (h *Hub) drop(b []byte, err error) {
	log.Warn().Err(err).Int("bytes", len(b)).Msg("link down, serial data discarded")
	h.dropped.Add(uint64(len(b)))
	metrics.BridgeDropped.WithLabelValues("serial_to_link").Add(float64(len(b)))
}

func (h *Hub) linkToSerial(ctx context.Context) error {
	poll := time.Duration(h.cfg.SocketPoll)
	for {
		b, err := h.link.Receive()
		if err == nil {
			if len(b) == 0 {
				continue
			}
			if err := h.serial.Write(b); err != nil {
				if errors.Is(err, uart.ErrClosedPort) {
					return err
				}
				log.Error().Err(err).Int("bytes", len(b)).Msg("serial write")
				metrics.BridgeDropped.WithLabelValues("link_to_serial").Add(float64(len(b)))
				continue
			}
			h.fromLink.Add(uint64(len(b)))
			metrics.BridgeBytes.WithLabelValues("link_to_serial").Add(float64(len(b)))
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(poll):
		}
	}
}
