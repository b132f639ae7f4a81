package bridge

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/solar3s/padlink/display"
	"github.com/solar3s/padlink/frame"
	"github.com/solar3s/padlink/link"
	"github.com/solar3s/padlink/metrics"
)

// Terminal decodes frames received from the hub and shows them.
type Terminal struct {
	cfg     Config
	link    Link
	display display.Display
	asm     *Reassembler
	lost    bool
	counters

	// OnFrame, when set, is called with every frame shown on the display.
	OnFrame func(frame.Frame)
}

func NewTerminal(cfg *Config, l Link, d display.Display) *Terminal {
	if d == nil {
		d = display.Multi{}
	}
	return &Terminal{
		cfg:     withDefaults(cfg),
		link:    l,
		display: d,
		asm:     NewReassembler(),
	}
}

func (t *Terminal) Stats() Stats {
	return t.stats()
}

// Run polls the link until ctx is done.
func (t *Terminal) Run(ctx context.Context) error {
	poll := time.Duration(t.cfg.SocketPoll)
	for {
		b, err := t.link.Receive()
		switch {
		case err == nil:
			t.lost = false
			t.Feed(b)
			continue
		case errors.Is(err, link.ErrConnectionLost):
			if !t.lost && t.asm.Buffered() > 0 {
				log.Debug().Int("bytes", t.asm.Buffered()).Msg("partial frame dropped with connection")
			}
			// a new socket starts on a frame boundary
			t.asm.Reset()
			t.lost = true
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(poll):
		}
	}
}

// Feed reassembles b and dispatches every frame it completes.
func (t *Terminal) Feed(b []byte) {
	t.fromLink.Add(uint64(len(b)))
	metrics.BridgeBytes.WithLabelValues("link_to_display").Add(float64(len(b)))
	t.asm.Write(b)
	for {
		f, err := t.asm.Next()
		if err == ErrNeedMore {
			return
		}
		if err != nil {
			t.protocolError(err)
			continue
		}
		t.dispatch(f)
	}
}

func (t *Terminal) protocolError(err error) {
	t.protoErrs.Add(1)
	reason := "unknown"
	var pe *frame.ProtocolError
	if errors.As(err, &pe) {
		reason = pe.Reason()
	}
	metrics.ProtocolErrors.WithLabelValues(reason).Inc()
	log.Warn().Err(err).Str("reason", reason).Msg("frame discarded")
}

func (t *Terminal) dispatch(f frame.Frame) {
	var w display.Widget
	switch f.ID {
	case frame.Numeric:
		w = display.WidgetNumeric
	case frame.Text:
		w = display.WidgetText
	case frame.ReadOnly:
		w = display.WidgetReadOnly
	default:
		t.unknown.Add(1)
		log.Warn().Str("id", f.ID.String()).Int("payload", len(f.Payload)).Msg("unrecognized frame id")
		display.Show(t.display, display.Inbound(display.StatusUnknownInbound))
		return
	}

	t.frames.Add(1)
	metrics.FramesIn.WithLabelValues(f.ID.String()).Inc()
	log.Debug().Str("kind", f.ID.String()).Int("payload", len(f.Payload)).Msg("frame received")
	t.display.SetText(w, string(f.Payload))
	display.Show(t.display, display.Inbound(display.StatusOK))
	if t.OnFrame != nil {
		t.OnFrame(f)
	}
}
