// Package console is the terminal's screen and keypad when running on a
// regular tty: widgets are drawn with tcell and keyboard keys stand in for
// the 4x4 matrix.
package console

import (
	"context"
	"sync"
	"time"
	"unicode"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
	"github.com/rs/zerolog/log"

	"github.com/solar3s/padlink/display"
	"github.com/solar3s/padlink/keypad"
)

const (
	title      = " padlink terminal "
	help       = " 0-9 A-D * #  enter:# tab:* bksp:D del:C  esc:quit "
	labelWidth = 10
)

// Keypad receives the edges produced by keyboard keys.
type Keypad interface {
	Layout() *keypad.Layout
	Press(keypad.KeyEvent) keypad.Stage
}

type Console struct {
	screen tcell.Screen
	keypad Keypad

	mu      sync.Mutex
	widgets map[display.Widget]string
}

// New wraps screen, which must already be initialised.
func New(screen tcell.Screen, kp Keypad) *Console {
	c := &Console{
		screen:  screen,
		keypad:  kp,
		widgets: make(map[display.Widget]string),
	}
	screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorReset).Foreground(tcell.ColorReset))
	screen.Clear()
	c.mu.Lock()
	c.draw()
	c.mu.Unlock()
	return c
}

// Open initialises the process terminal and returns a console on it.
func Open(kp Keypad) (*Console, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err = screen.Init(); err != nil {
		return nil, err
	}
	return New(screen, kp), nil
}

func (c *Console) SetText(w display.Widget, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.widgets[w] = text
	c.draw()
}

// Close restores the terminal.
func (c *Console) Close() {
	c.screen.Fini()
}

func (c *Console) put(x, y int, s string, style tcell.Style) int {
	w, _ := c.screen.Size()
	for _, r := range s {
		if x >= w {
			break
		}
		c.screen.SetContent(x, y, r, nil, style)
		x += runewidth.RuneWidth(r)
	}
	return x
}

func (c *Console) line(y int, s string, style tcell.Style) {
	w, _ := c.screen.Size()
	for x := 0; x < w; x++ {
		c.screen.SetContent(x, y, ' ', nil, style)
	}
	c.put(0, y, runewidth.Truncate(s, w, "…"), style)
}

func widgetStyle(w display.Widget, text string) tcell.Style {
	style := tcell.StyleDefault
	switch w {
	case display.WidgetInbound, display.WidgetOutbound:
		if text != "" && text != display.StatusOK.String() {
			return style.Foreground(tcell.ColorRed).Bold(true)
		}
		return style.Foreground(tcell.ColorGreen)
	case display.WidgetCompose:
		return style.Bold(true)
	}
	return style
}

// draw repaints every widget. mu must be held.
func (c *Console) draw() {
	w, h := c.screen.Size()
	bar := tcell.StyleDefault.Background(tcell.ColorDarkBlue).Foreground(tcell.ColorWhite)
	c.line(0, title, bar.Bold(true))

	for i, wd := range display.Widgets {
		y := i + 2
		if y >= h-1 {
			break
		}
		c.line(y, "", tcell.StyleDefault)
		label := runewidth.FillRight(string(wd), labelWidth)
		x := c.put(1, y, label, tcell.StyleDefault.Dim(true))
		text := c.widgets[wd]
		if avail := w - x; avail > 0 {
			c.put(x, y, runewidth.Truncate(text, avail, "…"), widgetStyle(wd, text))
		}
	}
	if h > 1 {
		c.line(h-1, help, bar)
	}
	c.screen.Show()
}

// keyLabel maps a keyboard key onto the label of a keypad key.
func keyLabel(ev *tcell.EventKey) (rune, bool) {
	switch ev.Key() {
	case tcell.KeyEnter:
		return '#', true
	case tcell.KeyTab, tcell.KeyRight:
		return '*', true
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		return 'D', true
	case tcell.KeyDelete:
		return 'C', true
	case tcell.KeyRune:
		r := unicode.ToUpper(ev.Rune())
		switch {
		case r >= '0' && r <= '9', r >= 'A' && r <= 'D', r == '*', r == '#':
			return r, true
		}
	}
	return 0, false
}

// Run forwards key presses to the keypad until ctx is done or the user
// quits with Esc or Ctrl-C.
func (c *Console) Run(ctx context.Context) error {
	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	defer close(quit)
	go c.screen.ChannelEvents(events, quit)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
					log.Info().Msg("quit from console")
					return nil
				}
				c.press(ev)
			case *tcell.EventResize:
				c.mu.Lock()
				c.screen.Sync()
				c.draw()
				c.mu.Unlock()
			}
		}
	}
}

func (c *Console) press(ev *tcell.EventKey) {
	label, ok := keyLabel(ev)
	if !ok {
		return
	}
	key, ok := c.keypad.Layout().Find(label)
	if !ok {
		return
	}
	at := ev.When()
	if at.IsZero() {
		at = time.Now()
	}
	c.keypad.Press(keypad.KeyEvent{Row: key.Row, Col: key.Col, At: at})
}

var _ display.Display = (*Console)(nil)
