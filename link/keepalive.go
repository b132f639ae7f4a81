package link

import (
	"context"
	"net"
	"time"

	"github.com/rs/zerolog/log"
)

// Probe checks that conn can still carry traffic. A nil error is a hit.
type Probe func(conn net.Conn) error

// ZeroWriteProbe issues an empty write bounded by timeout. It only reports
// an error already set on the socket, such as one raised by the OS keepalive;
// it sends nothing the peer has to answer, so it does not detect a silent
// peer by itself.
func ZeroWriteProbe(timeout time.Duration) Probe {
	return func(conn net.Conn) error {
		if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return err
		}
		_, err := conn.Write(nil)
		_ = conn.SetWriteDeadline(time.Time{})
		return err
	}
}

// keepalive probes the current socket every KeepaliveInterval and returns
// once the socket is dropped or ctx is done.
func (m *Manager) keepalive(ctx context.Context) {
	m.mu.RLock()
	conn, done := m.conn, m.done
	m.mu.RUnlock()
	if conn == nil || done == nil {
		return
	}

	interval := time.Duration(m.cfg.KeepaliveInterval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-time.After(interval):
		}

		m.wmu.Lock()
		err := m.probe(conn)
		m.wmu.Unlock()
		if err != nil {
			m.miss(conn, "keepalive", err)
			continue
		}

		m.mu.Lock()
		if m.conn == conn && m.misses > 0 {
			log.Debug().Int("misses", m.misses).Msg("link liveness restored")
			m.misses = 0
		}
		m.mu.Unlock()
	}
}
