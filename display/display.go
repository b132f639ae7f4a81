// Package display defines the terminal's display collaborator and a few
// implementations that do not need a screen.
package display

import (
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

// Widget names one text field on the terminal screen.
type Widget string

const (
	WidgetNumeric  Widget = "numeric"  // last inbound numeric value
	WidgetText     Widget = "text"     // last inbound free text
	WidgetReadOnly Widget = "readonly" // last inbound read-only value
	WidgetCompose  Widget = "compose"  // message being typed
	WidgetInbound  Widget = "inbound"  // inbound status code
	WidgetOutbound Widget = "outbound" // outbound status code
	WidgetLink     Widget = "link"     // connection state
)

// Widgets lists every widget, in screen order.
var Widgets = []Widget{
	WidgetLink,
	WidgetNumeric,
	WidgetText,
	WidgetReadOnly,
	WidgetInbound,
	WidgetCompose,
	WidgetOutbound,
}

// Display accepts text for a widget. Implementations must be safe for
// concurrent use.
type Display interface {
	SetText(w Widget, text string)
}

// Func adapts a function to Display.
type Func func(Widget, string)

func (f Func) SetText(w Widget, text string) {
	f(w, text)
}

// Multi forwards every update to each display in order.
type Multi []Display

func (m Multi) SetText(w Widget, text string) {
	for _, d := range m {
		if d != nil {
			d.SetText(w, text)
		}
	}
}

// Log writes widget updates to the process logger, for headless runs.
type Log struct{}

func (Log) SetText(w Widget, text string) {
	log.Info().Str("widget", string(w)).Str("text", text).Msg("display")
}

// Memory keeps the latest text of every widget.
type Memory struct {
	mu      sync.RWMutex
	widgets map[Widget]string
}

func NewMemory() *Memory {
	return &Memory{widgets: make(map[Widget]string)}
}

func (m *Memory) SetText(w Widget, text string) {
	m.mu.Lock()
	m.widgets[w] = text
	m.mu.Unlock()
}

// Text returns the latest text of w.
func (m *Memory) Text(w Widget) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.widgets[w]
}

// Snapshot copies every widget's latest text.
func (m *Memory) Snapshot() map[Widget]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[Widget]string, len(m.widgets))
	for k, v := range m.widgets {
		out[k] = v
	}
	return out
}

// Names returns the widgets set so far, sorted.
func (m *Memory) Names() []Widget {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Widget, 0, len(m.widgets))
	for k := range m.widgets {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
