package fxplc

import (
	"context"
	"encoding/hex"
	"fmt"
)

const (
	stx byte = 0x02
	etx byte = 0x03
	ack byte = 0x06
	nak byte = 0x15
)

// command is the ASCII-hex framed command code sent as the first payload
// character (spec.md §4.B).
type command byte

const (
	cmdByteRead  command = 0
	cmdByteWrite command = 1
	cmdForceOn   command = 7
	cmdForceOff  command = 8
)

// checksum computes the low two hex digits (uppercase) of the sum of the
// given bytes, per spec.md §4.B / §8 property 2.
func checksum(payload []byte) string {
	sum := 0
	for _, b := range payload {
		sum += int(b)
	}
	return fmt.Sprintf("%02X", sum&0xFF)
}

// encodeFrame builds a complete outbound frame for the given command and
// binary payload: STX | cmd_ascii | payload_ascii_hex | ETX | checksum_hex.
func encodeFrame(cmd command, payload []byte) []byte {
	cmdAscii := byte('0' + cmd)
	payloadHex := []byte(hex.EncodeToString(payload))
	for i, c := range payloadHex {
		if c >= 'a' && c <= 'f' {
			payloadHex[i] = c - ('a' - 'A')
		}
	}

	body := make([]byte, 0, 1+len(payloadHex))
	body = append(body, cmdAscii)
	body = append(body, payloadHex...)

	checksumInput := make([]byte, 0, len(body)+1)
	checksumInput = append(checksumInput, body...)
	checksumInput = append(checksumInput, etx)
	sum := checksum(checksumInput)

	frame := make([]byte, 0, 2+len(body)+2)
	frame = append(frame, stx)
	frame = append(frame, body...)
	frame = append(frame, etx)
	frame = append(frame, sum...)
	return frame
}

// byteRangeReader is the minimal read contract the codec needs from a
// Transport: one byte at a time, so framing can resync on unexpected
// input.
type byteRangeReader interface {
	Read(ctx context.Context, size int) ([]byte, error)
}

// decodeResponse consumes one reply from the transport and returns its
// binary payload, per spec.md §4.B.
func decodeResponse(ctx context.Context, t byteRangeReader) ([]byte, error) {
	code, err := readExact(ctx, t, 1)
	if err != nil {
		return nil, err
	}
	switch code[0] {
	case ack:
		return []byte{}, nil
	case nak:
		return nil, errNotSupportedCommand
	case stx:
		return decodeSTXBody(ctx, t)
	default:
		return nil, errResponseMalformed("unexpected leading byte")
	}
}

// decodeSTXBody reads the rest of a frame once STX has already been seen.
// Any failure here means a response was in progress and then cut short —
// per spec.md §4.B and the Python original's ResponseMalformedError, that
// is always ResponseMalformed, never NoResponse/NotConnected: those kinds
// describe the link never producing a response at all, which by this
// point it already has, incompletely.
func decodeSTXBody(ctx context.Context, t byteRangeReader) ([]byte, error) {
	data := make([]byte, 0, 16)
	for {
		b, err := readExact(ctx, t, 1)
		if err != nil {
			return nil, errResponseMalformed("truncated frame body")
		}
		if b[0] == etx {
			break
		}
		data = append(data, b[0])
	}

	sum, err := readExact(ctx, t, 2)
	if err != nil {
		return nil, errResponseMalformed("truncated checksum")
	}

	want := checksum(append(append([]byte{}, data...), etx))
	if string(sum) != want {
		return nil, errResponseMalformed("checksum mismatch")
	}

	decoded, err := hex.DecodeString(string(data))
	if err != nil {
		return nil, errResponseMalformed("payload not valid hex")
	}
	return decoded, nil
}

// readExact reads exactly n bytes from t, retrying short reads, since a
// Transport.Read may return fewer bytes than requested.
func readExact(ctx context.Context, t byteRangeReader, n int) ([]byte, error) {
	out := make([]byte, 0, n)
	for len(out) < n {
		chunk, err := t.Read(ctx, n-len(out))
		if err != nil {
			return nil, err
		}
		if len(chunk) == 0 {
			return nil, errNoResponse
		}
		out = append(out, chunk...)
	}
	return out, nil
}
