package display

import "fmt"

// Status is a contract-visible indicator code shown on the inbound and
// outbound status widgets.
type Status byte

const (
	StatusOK              Status = 0x00
	StatusUnknownInbound  Status = 0x01 // unrecognized frame id received
	StatusUnknownOutbound Status = 0x02 // unrecognized frame id composed
	StatusOutOfRange      Status = 0x03 // value out of range or payload too long
	StatusReadOnly        Status = 0x04 // attempted write to a read-only kind
)

// String renders s the way the status widgets show it.
func (s Status) String() string {
	return fmt.Sprintf("0x%02X", byte(s))
}

// Describe returns a human-readable explanation of s.
func (s Status) Describe() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusUnknownInbound:
		return "unrecognized frame id"
	case StatusUnknownOutbound:
		return "unrecognized outbound frame id"
	case StatusOutOfRange:
		return "value out of range or payload too long"
	case StatusReadOnly:
		return "write to read-only kind"
	}
	return fmt.Sprintf("unknown status %s", s)
}

// StatusMessage is one status widget update, as broadcast to status
// subscribers.
type StatusMessage struct {
	Widget   Widget
	Code     Status
	Status   string
	Erronous bool
}

func statusMessage(w Widget, code Status) StatusMessage {
	return StatusMessage{
		Widget:   w,
		Code:     code,
		Status:   code.Describe(),
		Erronous: code != StatusOK,
	}
}

// Inbound builds the inbound indicator update for code.
func Inbound(code Status) StatusMessage {
	return statusMessage(WidgetInbound, code)
}

// Outbound builds the outbound indicator update for code.
func Outbound(code Status) StatusMessage {
	return statusMessage(WidgetOutbound, code)
}

// Show writes m onto d.
func Show(d Display, m StatusMessage) {
	d.SetText(m.Widget, m.Code.String())
}
