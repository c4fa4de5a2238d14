package compoway_test

import (
	"testing"
	"time"

	"github.com/goburrow/serial"
	"github.com/harubonchi/heat-cycle-demo/internal/compoway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePort behaves like an instrument on a half-duplex link: nothing to
// read until a request is written, then the next scripted reply becomes
// readable. Bytes in pending before any write model a stale late reply.
type fakePort struct {
	pending []byte
	replies [][]byte
	writes  [][]byte
	closed  bool
}

func (p *fakePort) Read(b []byte) (int, error) {
	if len(p.pending) == 0 {
		return 0, serial.ErrTimeout
	}

	n := copy(b, p.pending)
	p.pending = p.pending[n:]

	return n, nil
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.writes = append(p.writes, append([]byte(nil), b...))
	if len(p.replies) > 0 {
		p.pending = append(p.pending, p.replies[0]...)
		p.replies = p.replies[1:]
	}

	return len(b), nil
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func newTestClient(port *fakePort, cfg compoway.Config) *compoway.Client {
	if cfg.ExchangeTimeout == 0 {
		cfg.ExchangeTimeout = 50 * time.Millisecond
	}

	return compoway.NewClient(port, cfg)
}

func TestReadProcessValue(t *testing.T) {
	port := &fakePort{replies: [][]byte{
		respFrame("01", "00", "00", "01", "01", "0000000017"),
	}}
	client := newTestClient(port, compoway.Config{})

	reading := client.ReadProcessValue("1")
	require.True(t, reading.Valid)
	assert.InDelta(t, 23.0, reading.Value, 1e-9, "Expected the low word decoded")
	assert.Equal(t, "01000"+compoway.CmdReadProcessValue, reading.Command)
	assert.False(t, reading.At.IsZero())
}

func TestReadSetpointHeadField(t *testing.T) {
	port := &fakePort{replies: [][]byte{
		respFrame("01", "00", "00", "01", "01", "000000C8"),
	}}
	client := newTestClient(port, compoway.Config{})

	reading := client.ReadSetpoint("1")
	require.True(t, reading.Valid)
	assert.InDelta(t, 200.0, reading.Value, 1e-9)
}

func TestReadSetpointTailFallback(t *testing.T) {
	port := &fakePort{replies: [][]byte{
		respFrame("01", "00", "00", "01", "01", "000000000064"),
	}}
	client := newTestClient(port, compoway.Config{})

	reading := client.ReadSetpoint("1")
	require.True(t, reading.Valid)
	assert.InDelta(t, 100.0, reading.Value, 1e-9, "Expected the low word when the wide field is zero")
}

func TestReadSetpointAlternateCommand(t *testing.T) {
	port := &fakePort{replies: [][]byte{
		respFrame("01", "00", "00", "01", "01", "000000C8"),
	}}
	client := newTestClient(port, compoway.Config{SetpointCommand: compoway.CmdReadSetpointAlt})

	reading := client.ReadSetpoint("1")
	require.True(t, reading.Valid)
	assert.Equal(t, "01000"+compoway.CmdReadSetpointAlt, reading.Command)
}

func TestReadCurrent(t *testing.T) {
	head := &fakePort{replies: [][]byte{
		respFrame("02", "00", "00", "01", "01", "00000017"),
	}}
	reading := newTestClient(head, compoway.Config{}).ReadCurrent("2")
	require.True(t, reading.Valid)
	assert.InDelta(t, 2.3, reading.Value, 1e-9, "Expected 0.1 A units scaled")

	tail := &fakePort{replies: [][]byte{
		respFrame("02", "00", "00", "01", "01", "000000000017"),
	}}
	reading = newTestClient(tail, compoway.Config{}).ReadCurrent("2")
	require.True(t, reading.Valid)
	assert.InDelta(t, 2.3, reading.Value, 1e-9, "Expected the low word fallback scaled")
}

func TestReadCurrentAllZero(t *testing.T) {
	port := &fakePort{replies: [][]byte{
		respFrame("02", "00", "00", "01", "01", "00000000"),
	}}
	client := newTestClient(port, compoway.Config{})

	reading := client.ReadCurrent("2")
	require.True(t, reading.Valid, "An idle heater reads as a valid zero")
	assert.Zero(t, reading.Value)
}

func TestReadDeviceRejected(t *testing.T) {
	port := &fakePort{replies: [][]byte{
		respFrame("01", "00", "0F", "01", "01", ""),
	}}
	client := newTestClient(port, compoway.Config{})

	reading := client.ReadProcessValue("1")
	assert.False(t, reading.Valid)
	assert.Equal(t, "01000"+compoway.CmdReadProcessValue, reading.Command,
		"Expected the command kept for diagnostics on failure")
}

func TestReadTimeout(t *testing.T) {
	port := &fakePort{}
	client := newTestClient(port, compoway.Config{ExchangeTimeout: 20 * time.Millisecond})

	reading := client.ReadProcessValue("1")
	assert.False(t, reading.Valid)
	assert.NotEmpty(t, reading.Command)
}

func TestReadCorruptReply(t *testing.T) {
	corrupt := respFrame("01", "00", "00", "01", "01", "0000000017")
	corrupt[12] ^= 0x01

	port := &fakePort{replies: [][]byte{corrupt}}
	client := newTestClient(port, compoway.Config{ExchangeTimeout: 20 * time.Millisecond})

	reading := client.ReadProcessValue("1")
	assert.False(t, reading.Valid, "A checksum mismatch degrades to an invalid reading")
}

func TestDrainDiscardsStaleReply(t *testing.T) {
	stale := respFrame("01", "00", "00", "01", "01", "0000000001")
	fresh := respFrame("01", "00", "00", "01", "01", "0000000017")

	port := &fakePort{pending: stale, replies: [][]byte{fresh}}
	client := newTestClient(port, compoway.Config{})

	reading := client.ReadProcessValue("1")
	require.True(t, reading.Valid)
	assert.InDelta(t, 23.0, reading.Value, 1e-9,
		"Expected the late reply from the previous exchange discarded")
}

func TestExchangeWritesEncodedFrame(t *testing.T) {
	port := &fakePort{replies: [][]byte{
		respFrame("01", "00", "00", "01", "01", "0000"),
	}}
	client := newTestClient(port, compoway.Config{})

	frame, err := compoway.EncodeFrame("1", "00", "0", compoway.CmdReadProcessValue)
	require.NoError(t, err)

	_, _, err = client.Exchange("1", compoway.CmdReadProcessValue)
	require.NoError(t, err)
	require.Len(t, port.writes, 1)
	assert.Equal(t, frame, port.writes[0])
}

func TestClientClose(t *testing.T) {
	port := &fakePort{}
	client := newTestClient(port, compoway.Config{})

	require.NoError(t, client.Close())
	assert.True(t, port.closed)
}
