package compoway_test

import (
	"testing"

	"github.com/harubonchi/heat-cycle-demo/internal/compoway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// respFrame builds a reply frame the way a device would: STX, the ASCII
// body, ETX, then the XOR of everything after STX through ETX.
func respFrame(node, sub, end, mres, sres, data string) []byte {
	body := node + sub + end + mres + sres + data

	frame := append([]byte{0x02}, body...)
	frame = append(frame, 0x03)

	var sum byte
	for _, b := range frame[1:] {
		sum ^= b
	}

	return append(frame, sum)
}

func TestEncodeFrame(t *testing.T) {
	frame, err := compoway.EncodeFrame("1", "0", "0", compoway.CmdReadProcessValue)
	require.NoError(t, err)

	assert.EqualValues(t, 0x02, frame[0], "Expected STX first")
	assert.EqualValues(t, 0x03, frame[len(frame)-2], "Expected ETX before the check character")
	assert.Equal(t, "01000"+compoway.CmdReadProcessValue, string(frame[1:len(frame)-2]),
		"Expected node and sub-address zero-padded")

	var sum byte
	for _, b := range frame[1 : len(frame)-1] {
		sum ^= b
	}
	assert.Equal(t, sum, frame[len(frame)-1], "Expected XOR over node through ETX")
}

func TestEncodeFrameInvalidSession(t *testing.T) {
	_, err := compoway.EncodeFrame("01", "00", "", compoway.CmdReadProcessValue)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compoway_invalid_session")

	_, err = compoway.EncodeFrame("01", "00", "00", compoway.CmdReadProcessValue)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compoway_invalid_session")
}

func TestDecodeResponse(t *testing.T) {
	raw := respFrame("01", "00", "00", "01", "01", "0000000017")

	resp, err := compoway.DecodeResponse(raw)
	require.NoError(t, err)

	assert.Equal(t, "01", resp.Node)
	assert.Equal(t, "00", resp.Sub)
	assert.Equal(t, "00", resp.EndCode)
	assert.Equal(t, "01", resp.MainCode)
	assert.Equal(t, "01", resp.SubCode)
	assert.Equal(t, "0000000017", resp.DataHex)
	assert.True(t, resp.OK(), "Expected end code 00 to report success")
	assert.Equal(t, raw, resp.Raw, "Expected raw frame kept for diagnostics")
}

func TestDecodeResponseRejectedEndCode(t *testing.T) {
	resp, err := compoway.DecodeResponse(respFrame("01", "00", "0F", "01", "01", ""))
	require.NoError(t, err, "A rejection is a well-formed frame, not a decode failure")
	assert.False(t, resp.OK())
	assert.Equal(t, "0F", resp.EndCode)
}

func TestDecodeResponseTooShort(t *testing.T) {
	raw := respFrame("01", "00", "00", "01", "01", "")
	require.Len(t, raw, 13, "Empty payload is the minimum frame")

	_, err := compoway.DecodeResponse(raw[:12])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compoway_frame_too_short")
}

func TestDecodeResponseMarkerMismatch(t *testing.T) {
	raw := respFrame("01", "00", "00", "01", "01", "0000")
	raw[0] = 'X'

	_, err := compoway.DecodeResponse(raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compoway_marker_mismatch")

	raw = respFrame("01", "00", "00", "01", "01", "0000")
	raw[len(raw)-2] = 'X'

	_, err = compoway.DecodeResponse(raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compoway_marker_mismatch")
}

func TestDecodeResponseChecksumMismatch(t *testing.T) {
	raw := respFrame("01", "00", "00", "01", "01", "0000000017")
	raw[11] ^= 0x01 // corrupt one payload byte

	_, err := compoway.DecodeResponse(raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compoway_checksum_mismatch")
}

func TestDecodeResponseFieldDecode(t *testing.T) {
	raw := respFrame("01", "00", "ZZ", "01", "01", "0000")

	_, err := compoway.DecodeResponse(raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compoway_field_decode_failed")
}

// A short mangled frame reports its length before anything else.
func TestDecodeResponseChecksOrdered(t *testing.T) {
	_, err := compoway.DecodeResponse([]byte{0x02, 'z', 'z', 0x03, 0x00})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compoway_frame_too_short")
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	frame, err := compoway.EncodeFrame("2", "00", "0", compoway.CmdReadCurrent)
	require.NoError(t, err)

	// A request parses with the same framing rules; the field split is
	// only meaningful for replies, but markers and checksum must hold.
	resp, err := compoway.DecodeResponse(frame)
	require.NoError(t, err)
	assert.Equal(t, "02", resp.Node)
}
