package uart

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rkjdid/util"
	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

var ErrNoSerialPortFound = errors.New("didn't find any available serial port")
var ErrClosedPort = errors.New("serial port is closed")

type Config struct {
	Device       string // empty means auto-detect
	BaudRate     int
	MaxRead      int           // largest chunk returned by one Read
	ReadTimeout  util.Duration // default wait for Read
	WriteTimeout util.Duration
}

var DefaultConfig = Config{
	BaudRate:     115200,
	MaxRead:      255,
	ReadTimeout:  util.Duration(time.Second),
	WriteTimeout: util.Duration(time.Second),
}

// Mode returns the line settings, always 8N1.
func (c Config) Mode() *serial.Mode {
	return &serial.Mode{
		BaudRate: c.BaudRate,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}
}

// portPoll bounds how long the read routine blocks in the driver, so that
// Close is noticed.
const portPoll = 50 * time.Millisecond

// SerialConnection moves bytes to and from a UART through two routines,
// so that callers get timeouts on both directions.
type SerialConnection struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	port io.ReadWriteCloser
	path string

	pending []byte // read but not yet returned
	rdChan  chan []byte
	wrChan  chan writeRequest
	errChan chan error

	closeChan chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewSerial wraps an open port. Start must be called before use.
func NewSerial(port io.ReadWriteCloser, name string) *SerialConnection {
	return &SerialConnection{
		port:      port,
		path:      name,
		rdChan:    make(chan []byte),
		wrChan:    make(chan writeRequest),
		errChan:   make(chan error),
		closeChan: make(chan struct{}),

		ReadTimeout:  time.Duration(DefaultConfig.ReadTimeout),
		WriteTimeout: time.Duration(DefaultConfig.WriteTimeout),
	}
}

// Start begins the two routines responsible
// for reading and writing on serial port.
func (sc *SerialConnection) Start() {
	sc.wg.Add(2)
	go func() {
		sc.readRoutine()
		sc.wg.Done()
	}()
	go func() {
		sc.writeRoutine()
		sc.wg.Done()
	}()
}

// Read returns at most max bytes, waiting up to timeout for some to arrive.
// A timeout is not an error: it yields an empty slice.
func (sc *SerialConnection) Read(max int, timeout time.Duration) (b []byte, err error) {
	if len(sc.pending) == 0 {
		select {
		case sc.pending = <-sc.rdChan:
		case err = <-sc.errChan:
			return nil, err
		case <-sc.closeChan:
			return nil, ErrClosedPort
		case <-time.After(timeout):
			return nil, nil
		}
	}
	n := len(sc.pending)
	if max > 0 && n > max {
		n = max
	}
	b, sc.pending = sc.pending[:n], sc.pending[n:]
	return b, nil
}

type writeRequest struct {
	b   []byte
	res chan error
}

// Write pushes b to sc.wrChan and waits for the port to take it. It returns
// the port's error, or an error after sc.WriteTimeout, or if connection is
// closed.
func (sc *SerialConnection) Write(b []byte) (err error) {
	req := writeRequest{b: b, res: make(chan error, 1)}
	timeout := time.After(sc.WriteTimeout)
	select {
	case sc.wrChan <- req:
	case <-sc.closeChan:
		return ErrClosedPort
	case <-timeout:
		return fmt.Errorf("write timeout (%s)", sc.WriteTimeout)
	}
	select {
	case err = <-req.res:
	case <-sc.closeChan:
		err = ErrClosedPort
	case <-timeout:
		err = fmt.Errorf("write timeout (%s)", sc.WriteTimeout)
	}
	return err
}

// Close notifies read/write routines to stop, then waits
// for them to return, it then actually closes serial port.
func (sc *SerialConnection) Close() error {
	var err error
	sc.closeOnce.Do(func() {
		close(sc.closeChan)
		err = sc.port.Close()
		sc.wg.Wait()
	})
	return err
}

// Path returns device name / path of serial port.
func (sc *SerialConnection) Path() string {
	return sc.path
}

func (sc *SerialConnection) readRoutine() {
	for {
		b := make([]byte, 256)
		i, err := sc.port.Read(b)
		switch {
		case err != nil:
			select {
			case sc.errChan <- err:
			case <-sc.closeChan:
				return
			}
			// the driver won't recover, don't spin on it
			select {
			case <-sc.closeChan:
				return
			case <-time.After(portPoll):
			}
		case i > 0:
			select {
			case sc.rdChan <- b[:i]:
			case <-sc.closeChan:
				return
			}
		default:
			select {
			case <-sc.closeChan:
				return
			default:
			}
		}
	}
}

func (sc *SerialConnection) writeRoutine() {
	var req writeRequest
	for {
		select {
		case req = <-sc.wrChan:
		case <-sc.closeChan:
			return
		}
		n, err := sc.port.Write(req.b)
		if err == nil && n < len(req.b) {
			err = io.ErrShortWrite
		}
		if err != nil {
			log.Debug().Err(err).Str("port", sc.path).Int("written", n).Msg("serial write")
		}
		req.res <- err
	}
}

// Open opens cfg.Device, or the first plausible port when it is empty.
func Open(cfg *Config) (*SerialConnection, error) {
	if cfg == nil {
		cfg = &DefaultConfig
	}
	if cfg.Device == "" {
		return FindSerial(cfg)
	}
	port, err := OpenPortName(cfg.Device, cfg)
	if err != nil {
		return nil, err
	}
	return start(port, cfg.Device, cfg), nil
}

func start(port io.ReadWriteCloser, name string, cfg *Config) *SerialConnection {
	conn := NewSerial(port, name)
	conn.ReadTimeout = time.Duration(cfg.ReadTimeout)
	conn.WriteTimeout = time.Duration(cfg.WriteTimeout)
	conn.Start()
	return conn
}

// candidates lists port names, USB serial bridges first.
func candidates() ([]string, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil || len(details) == 0 {
		return serial.GetPortsList()
	}
	var usb, other []string
	for _, d := range details {
		if d.IsUSB {
			usb = append(usb, d.Name)
		} else {
			other = append(other, d.Name)
		}
	}
	return append(usb, other...), nil
}

// FindSerial opens the first available serial port (platform independant hopefully).
// If cfg is nil, DefaultConfig is used.
func FindSerial(cfg *Config) (*SerialConnection, error) {
	if cfg == nil {
		cfg = &DefaultConfig
	}
	ports, err := candidates()
	if err != nil {
		return nil, err
	}
	for _, v := range ports {
		if strings.HasPrefix(v, "/dev/ttyS") {
			continue
		}
		log.Debug().Str("port", v).Msg("trying serial port")
		port, perr := OpenPortName(v, cfg)
		if perr != nil {
			err = perr
			continue
		}
		log.Info().Str("port", v).Int("baud", cfg.BaudRate).Msg("serial port opened")
		return start(port, v, cfg), nil
	}
	if err == nil {
		return nil, ErrNoSerialPortFound
	}
	return nil, err
}

func OpenPortName(name string, cfg *Config) (serial.Port, error) {
	if cfg == nil {
		cfg = &DefaultConfig
	}
	port, err := serial.Open(name, cfg.Mode())
	if err != nil {
		return nil, err
	}
	if err = port.SetReadTimeout(portPoll); err != nil {
		port.Close()
		return nil, err
	}
	return port, nil
}
