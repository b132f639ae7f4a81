// Package composer holds the terminal's compose buffer: characters typed on
// the keypad, edited in place, and committed as one outbound frame.
//
// The first character of the buffer selects the frame id; the rest is the
// payload. A buffer reading "1hello" commits a text frame carrying "hello".
package composer

import (
	"errors"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/solar3s/padlink/display"
	"github.com/solar3s/padlink/frame"
	"github.com/solar3s/padlink/keypad"
	"github.com/solar3s/padlink/metrics"
)

type Config struct {
	MaxLen      int   // maximum characters in the buffer
	MaxFrameLen int   // link limit for the frame length byte
	MinValue    int64 // numeric frames: smallest accepted value
	MaxValue    int64 // numeric frames: largest accepted value
}

var DefaultConfig = Config{
	MaxLen:      255,
	MaxFrameLen: frame.MaxFrameLen,
	MinValue:    -32768,
	MaxValue:    32767,
}

// Sender transmits an encoded frame, typically a *link.Manager.
type Sender interface {
	Send([]byte) error
}

// Composer owns the compose buffer. It is safe for concurrent use.
type Composer struct {
	mu      sync.Mutex
	cfg     Config
	buf     []rune // characters finalised before the cursor
	pending rune   // character shown at the cursor, still cycling
	showing bool   // pending is set

	sender  Sender
	display display.Display

	// OnCommit, when set, is called with every frame handed to the sender.
	OnCommit func(frame.Frame)
}

func New(cfg *Config, sender Sender, d display.Display) *Composer {
	if cfg == nil {
		cfg = &DefaultConfig
	}
	if d == nil {
		d = display.Multi{}
	}
	return &Composer{
		cfg:     *cfg,
		sender:  sender,
		display: d,
	}
}

// Text returns the buffer as displayed, including the character at the
// cursor.
func (c *Composer) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text()
}

// Cursor returns the insertion point: the number of finalised characters.
func (c *Composer) Cursor() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buf)
}

func (c *Composer) text() string {
	if c.showing {
		return string(c.buf) + string(c.pending)
	}
	return string(c.buf)
}

func (c *Composer) size() int {
	if c.showing {
		return len(c.buf) + 1
	}
	return len(c.buf)
}

// Insert finalises the character at the cursor, if any, and starts a new
// one with r.
func (c *Composer) Insert(r rune) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.insert(r)
}

func (c *Composer) insert(r rune) error {
	if c.size()+1 > c.cfg.MaxLen {
		return compositionError(ErrBufferFull, strconv.Itoa(c.cfg.MaxLen)+" characters")
	}
	c.advance()
	c.pending, c.showing = r, true
	return nil
}

// Cycle replaces the character at the cursor with r. With nothing at the
// cursor it behaves like Insert.
func (c *Composer) Cycle(r rune) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.showing {
		return c.insert(r)
	}
	c.pending = r
	return nil
}

// AdvanceCursor finalises the character at the cursor so the next press of
// the same key starts a new character.
func (c *Composer) AdvanceCursor() {
	c.mu.Lock()
	c.advance()
	c.mu.Unlock()
}

func (c *Composer) advance() {
	if c.showing {
		c.buf = append(c.buf, c.pending)
		c.showing = false
	}
}

// DeleteLast removes the most recent character. It does nothing on an empty
// buffer.
func (c *Composer) DeleteLast() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.showing {
		c.showing = false
		return
	}
	if len(c.buf) > 0 {
		c.buf = c.buf[:len(c.buf)-1]
	}
}

// Clear empties the buffer and resets the cursor.
func (c *Composer) Clear() {
	c.mu.Lock()
	c.clear()
	c.mu.Unlock()
}

func (c *Composer) clear() {
	c.buf = c.buf[:0]
	c.showing = false
}

// Build validates the buffer and returns the frame it would commit,
// without sending it or changing the buffer.
func (c *Composer) Build() (frame.Frame, []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.build()
}

func (c *Composer) build() (frame.Frame, []byte, error) {
	text := []rune(c.text())
	if len(text) == 0 {
		return frame.Frame{}, nil, compositionError(ErrUnknownTarget, "empty message")
	}
	if text[0] > 0xff {
		return frame.Frame{}, nil, compositionError(ErrUnknownTarget, strconv.QuoteRune(text[0]))
	}
	f := frame.Frame{
		ID:      frame.Kind(text[0]),
		Payload: []byte(string(text[1:])),
	}

	switch f.ID {
	case frame.Text:
	case frame.Numeric:
		if err := c.checkNumeric(f.Payload); err != nil {
			return frame.Frame{}, nil, err
		}
	case frame.ReadOnly:
		return frame.Frame{}, nil, compositionError(ErrReadOnlyTarget, f.ID.String())
	default:
		return frame.Frame{}, nil, compositionError(ErrUnknownTarget, f.ID.String())
	}

	b, err := frame.EncodeLimit(f.ID, f.Payload, c.cfg.MaxFrameLen)
	if err != nil {
		if errors.Is(err, frame.ErrPayloadTooLarge) {
			return frame.Frame{}, nil, compositionError(ErrPayloadTooLarge, strconv.Itoa(len(f.Payload))+" bytes")
		}
		return frame.Frame{}, nil, err
	}
	return f, b, nil
}

func (c *Composer) checkNumeric(payload []byte) error {
	v, err := strconv.ParseInt(string(payload), 10, 64)
	if err != nil {
		return compositionError(ErrValueOutOfRange, strconv.Quote(string(payload)))
	}
	if v < c.cfg.MinValue || v > c.cfg.MaxValue {
		return compositionError(ErrValueOutOfRange, strconv.FormatInt(v, 10))
	}
	return nil
}

// Commit validates the buffer against its frame id, encodes it and hands
// the frame to the sender. The buffer is cleared only when the send
// succeeds.
func (c *Composer) Commit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, b, err := c.build()
	if err != nil {
		return err
	}
	if c.sender == nil {
		return errors.New("composer: no sender")
	}
	if err := c.sender.Send(b); err != nil {
		return err
	}

	metrics.FramesOut.WithLabelValues(f.ID.String()).Inc()
	log.Info().Str("kind", f.ID.String()).Int("bytes", len(b)).Msg("frame committed")
	if c.OnCommit != nil {
		c.OnCommit(f)
	}
	c.clear()
	return nil
}

// Handle applies one keypad event and refreshes the display.
func (c *Composer) Handle(ev keypad.Event) {
	var err error
	switch ev.Type {
	case keypad.Character:
		if ev.Repeat {
			err = c.Cycle(ev.Rune)
		} else {
			err = c.Insert(ev.Rune)
		}
	case keypad.AdvanceCursor:
		c.AdvanceCursor()
	case keypad.DeleteLast:
		c.DeleteLast()
	case keypad.ClearAll:
		c.Clear()
	case keypad.Commit:
		err = c.Commit()
		if err == nil {
			display.Show(c.display, display.Outbound(display.StatusOK))
		}
	}
	c.report(ev, err)
	c.display.SetText(display.WidgetCompose, c.Text())
}

func (c *Composer) report(ev keypad.Event, err error) {
	if err == nil {
		return
	}
	var ce *Error
	if errors.As(err, &ce) {
		log.Warn().Err(err).Str("event", ev.String()).Msg("composition rejected")
		display.Show(c.display, display.Outbound(ce.Code))
		return
	}
	log.Warn().Err(err).Msg("send failed, message kept")
	c.display.SetText(display.WidgetLink, "send failed: "+err.Error())
}

var _ keypad.Handler = (*Composer)(nil)
