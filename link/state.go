package link

import (
	"fmt"
	"time"
)

//go:generate stringer -type=State
type State int

const (
	Disconnected State = State(iota)
	Connecting   State = State(iota)
	Connected    State = State(iota)
	Reconnecting State = State(iota)
)

// Snapshot is the externally visible state of a Manager at a given time.
type Snapshot struct {
	Time     time.Time
	State    State
	Retries  int
	Session  string // id of the current socket, empty when none
	Remote   string
	Since    time.Time // time of the last state transition
	Fatal    string    `json:",omitempty"`
	RxBytes  uint64
	TxBytes  uint64
	LastSeen time.Time
}

func (s Snapshot) String() string {
	if s.Remote == "" {
		return fmt.Sprintf("%s (retries %d)", s.State, s.Retries)
	}
	return fmt.Sprintf("%s to %s (retries %d)", s.State, s.Remote, s.Retries)
}
