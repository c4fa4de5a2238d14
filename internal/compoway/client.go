package compoway

import (
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/goburrow/serial"
	"github.com/harubonchi/heat-cycle-demo/internal/errors"
	"github.com/harubonchi/heat-cycle-demo/internal/logger"
)

// Link defaults: 9600 baud, 7 data bits, even parity, 2 stop bits.
const (
	DefaultBaudRate        = 9600
	DefaultExchangeTimeout = 250 * time.Millisecond

	defaultDataBits     = 7
	defaultParity       = "E"
	defaultStopBits     = 2
	defaultChunkTimeout = 20 * time.Millisecond
	defaultSubAddress   = "00"
	defaultSession      = "0"

	// Bounds the stale-byte discard loop when the line carries
	// continuous noise.
	drainRounds = 8
)

// Config describes one half-duplex instrument link. Zero values select
// the link defaults above and the command catalog in commands.go.
type Config struct {
	Address         string
	BaudRate        int
	SubAddress      string
	Session         string
	ExchangeTimeout time.Duration
	// ChunkTimeout bounds each blocking port read so the exchange
	// deadline stays responsive.
	ChunkTimeout time.Duration

	// Command overrides for firmware variants.
	ProcessValueCommand string
	SetpointCommand     string
	CurrentCommand      string
}

func (cfg Config) withDefaults() Config {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	if cfg.SubAddress == "" {
		cfg.SubAddress = defaultSubAddress
	}
	if cfg.Session == "" {
		cfg.Session = defaultSession
	}
	if cfg.ExchangeTimeout == 0 {
		cfg.ExchangeTimeout = DefaultExchangeTimeout
	}
	if cfg.ChunkTimeout == 0 {
		cfg.ChunkTimeout = defaultChunkTimeout
	}
	if cfg.ProcessValueCommand == "" {
		cfg.ProcessValueCommand = CmdReadProcessValue
	}
	if cfg.SetpointCommand == "" {
		cfg.SetpointCommand = CmdReadSetpoint
	}
	if cfg.CurrentCommand == "" {
		cfg.CurrentCommand = CmdReadCurrent
	}

	return cfg
}

// Reading is the outcome of one instrument exchange. Command always holds
// the literal request (node, sub-address, session, command body) that was
// put on the wire, for diagnostics. Value is meaningful only when Valid.
type Reading struct {
	Command string
	Value   float64
	Valid   bool
	At      time.Time
}

// Client drives one CompoWay/F instrument link. The mutex keeps a single
// request outstanding on the half-duplex line; a polling goroutine issuing
// reads back to back forms a naturally contiguous group.
type Client struct {
	port io.ReadWriteCloser
	rx   *Receiver
	cfg  Config
	mu   sync.Mutex
}

// Open connects to the serial link. An unopenable port is the one fatal
// condition of a session; every later failure degrades to an invalid
// reading.
func Open(cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()

	port, err := serial.Open(&serial.Config{
		Address:  cfg.Address,
		BaudRate: cfg.BaudRate,
		DataBits: defaultDataBits,
		Parity:   defaultParity,
		StopBits: defaultStopBits,
		Timeout:  cfg.ChunkTimeout,
	})
	if err != nil {
		errFactory := errors.New()
		return nil, errFactory.Wrap(ErrOpenPortFailed, err)
	}

	logger.Info().
		Str("address", cfg.Address).
		Int("baud_rate", cfg.BaudRate).
		Msg("Instrument link opened")

	return NewClient(port, cfg), nil
}

// NewClient wraps an already-open byte stream.
func NewClient(port io.ReadWriteCloser, cfg Config) *Client {
	cfg = cfg.withDefaults()

	return &Client{
		port: port,
		rx:   NewReceiver(port),
		cfg:  cfg,
	}
}

func (c *Client) Close() error {
	return c.port.Close()
}

// ReadProcessValue reads the displayed value from the node's process
// value register.
func (c *Client) ReadProcessValue(node string) Reading {
	return c.read(node, c.cfg.ProcessValueCommand, decodeProcessValue)
}

// ReadSetpoint reads the active setpoint from the node.
func (c *Client) ReadSetpoint(node string) Reading {
	return c.read(node, c.cfg.SetpointCommand, decodeSetpoint)
}

// ReadCurrent reads the heater current in amps from the node.
func (c *Client) ReadCurrent(node string) Reading {
	return c.read(node, c.cfg.CurrentCommand, decodeCurrent)
}

// Exchange performs one drain, encode, write, receive, decode cycle under
// the configured deadline. The returned string is the literal request
// body, populated on failure as well.
func (c *Client) Exchange(node, command string) (Response, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	errFactory := errors.New()
	sent := padField(node) + padField(c.cfg.SubAddress) + c.cfg.Session + command

	frame, err := EncodeFrame(node, c.cfg.SubAddress, c.cfg.Session, command)
	if err != nil {
		return Response{}, sent, err
	}

	c.drain()

	deadline := time.Now().Add(c.cfg.ExchangeTimeout)
	if _, err := c.port.Write(frame); err != nil {
		return Response{}, sent, errFactory.Wrap(ErrTransportFailed, err)
	}

	raw, err := c.rx.ReadFrame(deadline)
	if err != nil {
		return Response{}, sent, err
	}

	resp, err := DecodeResponse(raw)
	if err != nil {
		return Response{}, sent, err
	}

	return resp, sent, nil
}

func (c *Client) read(node, command string, decode func(string) (float64, error)) Reading {
	reading := Reading{At: time.Now()}

	resp, sent, err := c.Exchange(node, command)
	reading.Command = sent
	if err != nil {
		logExchangeFailure(node, sent, err)
		return reading
	}
	if !resp.OK() {
		errFactory := errors.New()
		logExchangeFailure(node, sent, errFactory.WithData(ErrDeviceRejected, resp.EndCode))
		return reading
	}

	value, err := decode(resp.DataHex)
	if err != nil {
		logExchangeFailure(node, sent, err)
		return reading
	}

	reading.Value = value
	reading.Valid = true

	return reading
}

// drain discards bytes left over from an earlier exchange so a late reply
// cannot be taken for the next one.
func (c *Client) drain() {
	chunk := make([]byte, chunkSize)
	for i := 0; i < drainRounds; i++ {
		n, err := c.port.Read(chunk)
		if n <= 0 || err != nil {
			return
		}
	}
}

func logExchangeFailure(node, command string, err error) {
	logger.Debug().
		Str("node", node).
		Str("command", command).
		Str("error_code", string(errors.CodeOf(err))).
		Err(err).
		Msg("Instrument exchange failed")
}

// decodeProcessValue takes the low word of the payload, where the
// controller reports the displayed value.
func decodeProcessValue(data string) (float64, error) {
	errFactory := errors.New()

	if len(data) < 4 {
		return 0, errFactory.WithData(ErrFieldDecode, data)
	}

	raw, err := strconv.ParseUint(data[len(data)-4:], 16, 16)
	if err != nil {
		return 0, errFactory.Wrap(ErrFieldDecode, err)
	}

	return float64(raw), nil
}

// decodeSetpoint prefers the leading 32-bit field and falls back to the
// low word when that field reads zero.
func decodeSetpoint(data string) (float64, error) {
	errFactory := errors.New()

	if len(data) >= 8 {
		head, err := strconv.ParseUint(data[:8], 16, 32)
		if err != nil {
			return 0, errFactory.Wrap(ErrFieldDecode, err)
		}
		if head != 0 {
			return float64(head), nil
		}
	}

	if len(data) < 4 {
		return 0, errFactory.WithData(ErrFieldDecode, data)
	}

	tail, err := strconv.ParseUint(data[len(data)-4:], 16, 16)
	if err != nil {
		return 0, errFactory.Wrap(ErrFieldDecode, err)
	}

	return float64(tail), nil
}

// decodeCurrent reads the 0.1 A register pair: 32-bit field first, low
// word fallback, zero when the element reads empty. Zero is a valid
// reading, not a failure.
func decodeCurrent(data string) (float64, error) {
	errFactory := errors.New()

	if len(data) >= 8 {
		head, err := strconv.ParseUint(data[:8], 16, 32)
		if err != nil {
			return 0, errFactory.Wrap(ErrFieldDecode, err)
		}
		if head != 0 {
			return float64(head) / 10, nil
		}
	}

	if len(data) >= 4 {
		tail, err := strconv.ParseUint(data[len(data)-4:], 16, 16)
		if err != nil {
			return 0, errFactory.Wrap(ErrFieldDecode, err)
		}
		if tail != 0 {
			return float64(tail) / 10, nil
		}
	}

	return 0, nil
}
