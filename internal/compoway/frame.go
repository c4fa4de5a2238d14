package compoway

import (
	"fmt"

	"github.com/harubonchi/heat-cycle-demo/internal/errors"
)

// CompoWay/F framing. A request is STX, node, sub-address, session id,
// ASCII-hex command, ETX, then a block check character computed as the XOR
// of every byte after STX through ETX inclusive.
const (
	stx byte = 0x02
	etx byte = 0x03
)

const (
	// Reply header: STX plus node(2), sub(2), end code(2), MRC(2), SRC(2).
	headerLen = 11
	// ETX plus the check character.
	trailerLen  = 2
	minFrameLen = headerLen + trailerLen
)

// EndCodeOK is the end code a device reports when it accepted the command.
const EndCodeOK = "00"

// Response is one parsed reply frame. Raw keeps the full frame for
// diagnostics.
type Response struct {
	Node     string
	Sub      string
	EndCode  string
	MainCode string
	SubCode  string
	DataHex  string
	Raw      []byte
}

// OK reports whether the device accepted the command.
func (r Response) OK() bool {
	return r.EndCode == EndCodeOK
}

// EncodeFrame builds one request frame. Node and sub-address are
// zero-padded to two characters; the session id must be exactly one
// character.
func EncodeFrame(node, sub, session, command string) ([]byte, error) {
	if len(session) != 1 {
		errFactory := errors.New()
		return nil, errFactory.WithData(ErrInvalidSession, session)
	}

	body := padField(node) + padField(sub) + session + command

	frame := make([]byte, 0, len(body)+3)
	frame = append(frame, stx)
	frame = append(frame, body...)
	frame = append(frame, etx)
	frame = append(frame, bcc(frame[1:]))

	return frame, nil
}

// DecodeResponse validates one raw reply frame and splits it into fields.
// Checks run in order: length, markers, checksum, header fields. Every
// failure attaches the offending frame to the error.
func DecodeResponse(raw []byte) (Response, error) {
	errFactory := errors.New()

	if len(raw) < minFrameLen {
		return Response{}, errFactory.WithData(ErrFrameTooShort, frameDump(raw))
	}
	if raw[0] != stx || raw[len(raw)-2] != etx {
		return Response{}, errFactory.WithData(ErrMarkerMismatch, frameDump(raw))
	}
	if raw[len(raw)-1] != bcc(raw[1:len(raw)-1]) {
		return Response{}, errFactory.WithData(ErrChecksumMismatch, frameDump(raw))
	}
	if !isHexField(raw[1:headerLen]) {
		return Response{}, errFactory.WithData(ErrFieldDecode, frameDump(raw))
	}

	return Response{
		Node:     string(raw[1:3]),
		Sub:      string(raw[3:5]),
		EndCode:  string(raw[5:7]),
		MainCode: string(raw[7:9]),
		SubCode:  string(raw[9:11]),
		DataHex:  string(raw[headerLen : len(raw)-trailerLen]),
		Raw:      raw,
	}, nil
}

// bcc XORs all bytes of p into the block check character.
func bcc(p []byte) byte {
	var sum byte
	for _, b := range p {
		sum ^= b
	}

	return sum
}

// padField left-pads v with zeros to two characters.
func padField(v string) string {
	for len(v) < 2 {
		v = "0" + v
	}

	return v
}

func isHexField(p []byte) bool {
	for _, b := range p {
		switch {
		case b >= '0' && b <= '9':
		case b >= 'A' && b <= 'F':
		case b >= 'a' && b <= 'f':
		default:
			return false
		}
	}

	return true
}

func frameDump(raw []byte) string {
	return fmt.Sprintf("% x", raw)
}
