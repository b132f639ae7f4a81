package keypad

import (
	"context"
	"time"

	"github.com/rkjdid/util"
	"github.com/rs/zerolog/log"

	"github.com/solar3s/padlink/metrics"
)

type Config struct {
	Debounce     util.Duration // minimum spacing between two accepted presses
	QueueSize    int           // decoded events waiting for the consumer
	PollInterval util.Duration // consumer drain interval
}

var DefaultConfig = Config{
	Debounce:     util.Duration(100 * time.Millisecond),
	QueueSize:    5,
	PollInterval: util.Duration(10 * time.Millisecond),
}

type Stage int

// A press walks Idle -> ColumnScan -> DebounceCheck -> Emit and always
// returns to Idle.
const (
	Idle Stage = iota
	ColumnScan
	DebounceCheck
	Emit
)

var stageNames = [...]string{"Idle", "ColumnScan", "DebounceCheck", "Emit"}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "Stage(?)"
	}
	return stageNames[s]
}

// Decoder turns edge notifications into debounced, multi-tap keypad events.
//
// Press is the interrupt-side producer and must only be called from a single
// goroutine; it never blocks. Run is the consumer side.
type Decoder struct {
	layout   *Layout
	debounce time.Duration
	poll     time.Duration
	events   chan Event

	// KeyState, owned by Press
	pressed   bool
	lastKey   Key
	layer     int
	lastPress time.Time
}

func NewDecoder(cfg *Config, layout *Layout) *Decoder {
	if cfg == nil {
		cfg = &DefaultConfig
	}
	if layout == nil {
		layout = &DefaultLayout
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = DefaultConfig.QueueSize
	}
	poll := time.Duration(cfg.PollInterval)
	if poll <= 0 {
		poll = time.Duration(DefaultConfig.PollInterval)
	}
	return &Decoder{
		layout:   layout,
		debounce: time.Duration(cfg.Debounce),
		poll:     poll,
		events:   make(chan Event, size),
	}
}

// Layout returns the key table used by d.
func (d *Decoder) Layout() *Layout {
	return d.layout
}

// Events exposes the bounded queue filled by Press.
func (d *Decoder) Events() <-chan Event {
	return d.events
}

// Press handles one edge notification. It returns the stage the press ended
// in: Emit when an event was queued, Idle otherwise.
func (d *Decoder) Press(ke KeyEvent) Stage {
	ev, stage := d.decode(ke)
	if stage != Emit {
		log.Debug().Int("row", ke.Row).Int("col", ke.Col).Str("stage", stage.String()).Msg("keypad press suppressed")
		return Idle
	}
	select {
	case d.events <- ev:
		return Emit
	default:
		metrics.KeypadDropped.Inc()
		log.Warn().Str("event", ev.String()).Msg("keypad queue full, event dropped")
		return Idle
	}
}

// decode runs the scan and debounce stages and updates KeyState.
// The returned stage is where decoding stopped.
func (d *Decoder) decode(ke KeyEvent) (Event, Stage) {
	cp, ok := d.layout.Lookup(ke.Row, ke.Col)
	if !ok {
		return Event{}, ColumnScan
	}

	if d.pressed && ke.At.Sub(d.lastPress) < d.debounce {
		return Event{}, DebounceCheck
	}

	key := Key{Row: ke.Row, Col: ke.Col}
	same := d.pressed && key == d.lastKey
	d.pressed = true
	d.lastPress = ke.At
	d.lastKey = key

	if cp.Control != Character {
		d.layer = 0
		return Event{Type: cp.Control, Key: key}, Emit
	}

	if same {
		d.layer = (d.layer + 1) % Layers
	} else {
		d.layer = 0
	}
	return Event{
		Type:   Character,
		Key:    key,
		Rune:   cp.Layers[d.layer],
		Layer:  d.layer,
		Repeat: same,
	}, Emit
}

// Run drains the queue every poll interval and hands each event to h,
// in arrival order, until ctx is done.
func (d *Decoder) Run(ctx context.Context, h Handler) {
	t := time.NewTicker(d.poll)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		d.drain(h)
	}
}

func (d *Decoder) drain(h Handler) {
	for {
		select {
		case ev := <-d.events:
			h.Handle(ev)
		default:
			return
		}
	}
}
