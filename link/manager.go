package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/google/uuid"
	"github.com/rkjdid/util"
	"github.com/rs/zerolog/log"

	"github.com/solar3s/padlink/metrics"
)

var (
	ErrNotConnected     = errors.New("link: not connected")
	ErrSendTimeout      = errors.New("link: send timeout")
	ErrWouldBlock       = errors.New("link: no data available")
	ErrConnectionLost   = errors.New("link: connection lost")
	ErrRetriesExhausted = errors.New("link: reconnect attempts exhausted")
)

type Config struct {
	PeerAddr          string        // terminal: hub address to dial
	ListenAddr        string        // hub: accept address
	ConnectTimeout    util.Duration // dial timeout
	RetryInterval     util.Duration // fixed delay between connect attempts
	MaxFailures       int           // consecutive connect failures before giving up, 0 retries forever
	KeepaliveInterval util.Duration // liveness probe period while connected
	KeepaliveMisses   int           // consecutive probe failures before reconnecting
	SendTimeout       util.Duration // upper bound for one Send
	RxQueue           int           // received chunks buffered for Receive
	TCPKeepAlive      util.Duration // OS keepalive idle time and probe interval
	TCPKeepAliveCount int           // OS keepalive probes before the socket errors
}

var DefaultConfig = Config{
	PeerAddr:          "192.168.4.1:12345",
	ListenAddr:        ":12345",
	ConnectTimeout:    util.Duration(5 * time.Second),
	RetryInterval:     util.Duration(time.Second),
	MaxFailures:       10,
	KeepaliveInterval: util.Duration(time.Second),
	KeepaliveMisses:   3,
	SendTimeout:       util.Duration(500 * time.Millisecond),
	RxQueue:           64,
	TCPKeepAlive:      util.Duration(time.Second),
	TCPKeepAliveCount: 1,
}

// KeepAliveConfig returns the OS-level keepalive settings for sockets.
func (c Config) KeepAliveConfig() net.KeepAliveConfig {
	return net.KeepAliveConfig{
		Enable:   true,
		Idle:     time.Duration(c.TCPKeepAlive),
		Interval: time.Duration(c.TCPKeepAlive),
		Count:    c.TCPKeepAliveCount,
	}
}

// Manager owns one point-to-point TCP connection: it opens it, watches its
// liveness, and replaces it when it fails.
//
// The socket and the state are only ever changed together, under mu.
type Manager struct {
	cfg    Config
	opener Opener
	probe  Probe
	delay  backoff.BackOff

	mu       sync.RWMutex
	state    State
	conn     net.Conn
	session  string
	remote   string
	since    time.Time
	retries  int
	misses   int
	fatal    error
	done     chan struct{} // closed when the current socket is dropped
	rxBytes  uint64
	txBytes  uint64
	lastSeen time.Time

	// rx outlives sockets, chunks read before a drop are still delivered
	// once the next socket is up.
	rx chan []byte

	wmu sync.Mutex // one writer on the socket at a time
	wg  sync.WaitGroup
}

func NewManager(cfg *Config, opener Opener) *Manager {
	if cfg == nil {
		cfg = &DefaultConfig
	}
	c := *cfg
	if c.KeepaliveMisses <= 0 {
		c.KeepaliveMisses = DefaultConfig.KeepaliveMisses
	}
	if c.KeepaliveInterval <= 0 {
		c.KeepaliveInterval = DefaultConfig.KeepaliveInterval
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = DefaultConfig.SendTimeout
	}
	if c.RxQueue <= 0 {
		c.RxQueue = DefaultConfig.RxQueue
	}
	return &Manager{
		cfg:    c,
		opener: opener,
		probe:  ZeroWriteProbe(time.Duration(c.SendTimeout)),
		delay:  backoff.NewConstantBackOff(time.Duration(c.RetryInterval)),
		state:  Disconnected,
		since:  time.Now(),
		rx:     make(chan []byte, c.RxQueue),
	}
}

// SetProbe replaces the keepalive probe. It must be called before Run.
func (m *Manager) SetProbe(p Probe) {
	m.probe = p
}

func (m *Manager) State() State {
	if m == nil {
		return Disconnected
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Connected is the liveness flag read by the bridge.
func (m *Manager) Connected() bool {
	return m.State() == Connected
}

// Fatal returns the error that stopped automatic reconnection, if any.
func (m *Manager) Fatal() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fatal
}

// Snapshot retrieves the state of m at a given time.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := Snapshot{
		Time:     time.Now(),
		State:    m.state,
		Retries:  m.retries,
		Session:  m.session,
		Remote:   m.remote,
		Since:    m.since,
		RxBytes:  m.rxBytes,
		TxBytes:  m.txBytes,
		LastSeen: m.lastSeen,
	}
	if m.fatal != nil {
		s.Fatal = m.fatal.Error()
	}
	return s
}

// setState must be called with mu held.
func (m *Manager) setState(s State) {
	if m.state == s {
		return
	}
	log.Debug().Str("from", m.state.String()).Str("to", s.String()).Msg("link state")
	m.state = s
	m.since = time.Now()
	metrics.LinkState.Set(float64(s))
}

// Connect opens the transport once. A failure counts towards MaxFailures;
// past the threshold the manager stays Disconnected and returns
// ErrRetriesExhausted until Reset is called.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.fatal != nil {
		err := m.fatal
		m.mu.Unlock()
		return err
	}
	if m.state == Connected {
		m.mu.Unlock()
		return nil
	}
	m.setState(Connecting)
	m.mu.Unlock()

	conn, err := m.opener.Open(ctx)
	if err != nil {
		if ctx.Err() != nil {
			m.mu.Lock()
			m.setState(Disconnected)
			m.mu.Unlock()
			return ctx.Err()
		}
		return m.connectFailed(err)
	}
	m.attach(conn)
	return nil
}

func (m *Manager) connectFailed(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retries++
	metrics.LinkFailures.WithLabelValues("connect").Inc()
	if m.cfg.MaxFailures > 0 && m.retries >= m.cfg.MaxFailures {
		m.fatal = fmt.Errorf("%w after %d attempts: %v", ErrRetriesExhausted, m.retries, err)
		m.setState(Disconnected)
		log.Error().Err(err).Int("retries", m.retries).Str("peer", m.opener.String()).Msg("giving up on link")
		return m.fatal
	}
	m.setState(Reconnecting)
	log.Warn().Err(err).Int("retries", m.retries).Str("peer", m.opener.String()).Msg("connect failed")
	return fmt.Errorf("link: connect: %w", err)
}

func (m *Manager) attach(conn net.Conn) {
	m.mu.Lock()
	m.conn = conn
	m.session = uuid.NewString()
	m.remote = conn.RemoteAddr().String()
	m.retries = 0
	m.misses = 0
	m.done = make(chan struct{})
	m.delay.Reset()
	m.setState(Connected)
	done, session := m.done, m.session
	m.mu.Unlock()

	log.Info().Str("remote", conn.RemoteAddr().String()).Str("session", session).Msg("link connected")
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.readLoop(conn, done)
	}()
}

func (m *Manager) readLoop(conn net.Conn, done <-chan struct{}) {
	buf := make([]byte, 1024)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			b := append([]byte(nil), buf[:n]...)
			select {
			case m.rx <- b:
			default:
				select {
				case m.rx <- b:
				case <-done:
					return
				}
			}
			m.mu.Lock()
			m.rxBytes += uint64(n)
			m.lastSeen = time.Now()
			m.mu.Unlock()
		}
		if err != nil {
			m.fail(conn, "read", err)
			return
		}
	}
}

// fail drops conn if it is still the current socket.
func (m *Manager) fail(conn net.Conn, cause string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == nil || m.conn != conn {
		return
	}
	m.drop(cause, err)
}

// miss records one failed liveness check against conn.
func (m *Manager) miss(conn net.Conn, cause string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == nil || m.conn != conn {
		return
	}
	m.misses++
	log.Warn().Err(err).Str("cause", cause).Int("misses", m.misses).Msg("link liveness check failed")
	if m.misses >= m.cfg.KeepaliveMisses {
		m.drop(cause, err)
	}
}

// drop closes the current socket and moves to Reconnecting. mu must be held.
func (m *Manager) drop(cause string, err error) {
	log.Warn().Err(err).Str("cause", cause).Str("session", m.session).Msg("link lost, reconnecting")
	_ = m.conn.Close()
	m.conn = nil
	m.session = ""
	if m.done != nil {
		close(m.done)
		m.done = nil
	}
	metrics.LinkFailures.WithLabelValues(cause).Inc()
	m.setState(Reconnecting)
}

// Send writes b to the socket within SendTimeout. It never touches the
// socket unless the state is Connected.
func (m *Manager) Send(b []byte) error {
	m.mu.RLock()
	conn, st := m.conn, m.state
	m.mu.RUnlock()
	if st != Connected || conn == nil {
		return ErrNotConnected
	}

	// a write cut short by the deadline leaves a partial frame on the wire,
	// the receiving reassembler resyncs past it.
	timeout := time.Duration(m.cfg.SendTimeout)
	m.wmu.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(timeout))
	n, err := conn.Write(b)
	m.wmu.Unlock()

	m.mu.Lock()
	m.txBytes += uint64(n)
	m.mu.Unlock()

	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			err = fmt.Errorf("%w (%s)", ErrSendTimeout, timeout)
		} else {
			err = fmt.Errorf("link: send: %w", err)
		}
		m.miss(conn, "send", err)
		return err
	}
	return nil
}

// Receive returns the next chunk read from the socket without blocking.
// Chunks already read are still delivered after the socket is lost, and
// after a new socket replaced it.
func (m *Manager) Receive() ([]byte, error) {
	select {
	case b := <-m.rx:
		return b, nil
	default:
	}
	if m.State() != Connected {
		return nil, ErrConnectionLost
	}
	return nil, ErrWouldBlock
}

// Run keeps the link up until ctx is done or reconnection is exhausted.
// Connect attempts are spaced by RetryInterval.
func (m *Manager) Run(ctx context.Context) error {
	defer m.Close()
	for {
		err := m.Connect(ctx)
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, ErrRetriesExhausted):
			return err
		case err != nil:
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(m.delay.NextBackOff()):
			}
			continue
		}
		m.keepalive(ctx)
	}
}

// Reset clears a fatal condition so Connect and Run may be used again.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.fatal = nil
	m.retries = 0
	m.mu.Unlock()
}

// Close drops the socket, if any, and waits for the reader to return.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
		m.session = ""
	}
	if m.done != nil {
		close(m.done)
		m.done = nil
	}
	m.setState(Disconnected)
	m.mu.Unlock()
	m.wg.Wait()

	if c, ok := m.opener.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
