package keypad

import (
	"fmt"
	"time"
)

// Type tags a keypad Event.
type Type int

const (
	Character Type = iota
	AdvanceCursor
	DeleteLast
	ClearAll
	Commit
)

func (t Type) String() string {
	switch t {
	case Character:
		return "Character"
	case AdvanceCursor:
		return "AdvanceCursor"
	case DeleteLast:
		return "DeleteLast"
	case ClearAll:
		return "ClearAll"
	case Commit:
		return "Commit"
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// KeyEvent is one edge notification: the row that fired and the column found
// by the scan, stamped in the edge source's clock.
type KeyEvent struct {
	Row, Col int
	At       time.Time
}

// Event is what the decoder hands to the composer.
// Rune, Layer and Repeat are only meaningful for Character events.
type Event struct {
	Type   Type
	Key    Key
	Rune   rune
	Layer  int
	Repeat bool // same key as the previous accepted press
}

func (e Event) String() string {
	if e.Type != Character {
		return e.Type.String()
	}
	return fmt.Sprintf("Character(%q, layer %d, repeat %t)", e.Rune, e.Layer, e.Repeat)
}

// Handler consumes decoded keypad events.
type Handler interface {
	Handle(Event)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(Event)

func (f HandlerFunc) Handle(e Event) {
	f(e)
}
