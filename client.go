package fxplc

import (
	"encoding/binary"

	"github.com/GoAethereal/cancel"
)

// plcClient is the client contract the broker depends on. Client is the
// production implementation; MockClient is a parallel, independent
// implementation of the same contract for offline/demo operation
// (spec.md §9, "Mock client" design note) — never a runtime-patched
// variant of Client.
type plcClient interface {
	ReadBit(ctx cancel.Context, ref Ref) (bool, error)
	WriteBit(ctx cancel.Context, ref Ref, value bool) error
	ReadNumber(ctx cancel.Context, ref Ref, enc NumberEncoding) (interface{}, error)
	WriteNumber(ctx cancel.Context, ref Ref, value float64, enc NumberEncoding) error
	ReadBytes(ctx cancel.Context, addr, count int) ([]byte, error)
	WriteBytes(ctx cancel.Context, addr int, data []byte) error
	Close() error
}

var _ plcClient = (*Client)(nil)

// Client is a single connection to one PLC. It owns exactly one Transport
// and serializes every exchange through an internal lock, one request at a
// time. A failure partway through an exchange leaves framing undefined
// (spec.md §4.D); the broker discards such a client rather than reusing it.
type Client struct {
	t   Transport
	mtx mutex
}

// NewClient wraps an already-open Transport.
func NewClient(t Transport) *Client {
	return &Client{t: t, mtx: newMutex()}
}

// Close releases the underlying transport.
func (c *Client) Close() error {
	return c.t.Close()
}

// ReadBit reads the single bit addressed by ref's bit-image mapping
// (spec.md §4.D).
func (c *Client) ReadBit(ctx cancel.Context, ref Ref) (bool, error) {
	addr, bit, err := bitImageAddress(ref)
	if err != nil {
		return false, err
	}
	resp, err := c.readBytes(ctx, addr, 1)
	if err != nil {
		return false, err
	}
	if len(resp) != 1 {
		return false, errResponseMalformed("bit read did not return exactly one byte")
	}
	return resp[0]&(1<<uint(bit)) != 0, nil
}

// WriteBit force-writes a single coil via force-on/force-off, per
// spec.md §4.D.
func (c *Client) WriteBit(ctx cancel.Context, ref Ref, value bool) error {
	addr, err := forceBitAddress(ref)
	if err != nil {
		return err
	}
	payload := make([]byte, 2)
	binary.LittleEndian.PutUint16(payload, uint16(addr))

	cmd := cmdForceOff
	if value {
		cmd = cmdForceOn
	}
	_, err = c.exchange(ctx, cmd, payload)
	return err
}

// ReadNumber reads a numeric register, decoding per enc (spec.md §4.D).
func (c *Client) ReadNumber(ctx cancel.Context, ref Ref, enc NumberEncoding) (interface{}, error) {
	addr, err := wordDataAddress(ref)
	if err != nil {
		return nil, err
	}
	resp, err := c.readBytes(ctx, addr, enc.Size())
	if err != nil {
		return nil, err
	}
	if len(resp) != enc.Size() {
		return nil, errResponseMalformed("number read returned wrong byte count")
	}
	return decodeNumber(enc, resp), nil
}

// WriteNumber encodes value per enc and byte-writes it to ref's address.
func (c *Client) WriteNumber(ctx cancel.Context, ref Ref, value float64, enc NumberEncoding) error {
	addr, err := wordDataAddress(ref)
	if err != nil {
		return err
	}
	return c.writeBytes(ctx, addr, encodeNumber(enc, value))
}

// ReadBytes is the raw escape hatch: a byte-read command at addr for count
// bytes (spec.md §4.D).
func (c *Client) ReadBytes(ctx cancel.Context, addr, count int) ([]byte, error) {
	return c.readBytes(ctx, addr, count)
}

// WriteBytes is the raw escape hatch: a byte-write command at addr.
func (c *Client) WriteBytes(ctx cancel.Context, addr int, data []byte) error {
	return c.writeBytes(ctx, addr, data)
}

func (c *Client) readBytes(ctx cancel.Context, addr, count int) ([]byte, error) {
	payload := make([]byte, 3)
	binary.BigEndian.PutUint16(payload, uint16(addr))
	payload[2] = byte(count)
	return c.exchange(ctx, cmdByteRead, payload)
}

func (c *Client) writeBytes(ctx cancel.Context, addr int, data []byte) error {
	payload := make([]byte, 3+len(data))
	binary.BigEndian.PutUint16(payload, uint16(addr))
	payload[2] = byte(len(data))
	copy(payload[3:], data)
	_, err := c.exchange(ctx, cmdByteWrite, payload)
	return err
}

// exchange holds the single-flight lock for the full request/response
// round trip. The lock is never released until the exchange is fully
// resolved, since an interrupted exchange leaves the link's framing
// undefined (spec.md §4.D).
func (c *Client) exchange(ctx cancel.Context, cmd command, payload []byte) ([]byte, error) {
	if err := c.mtx.lock(ctx); err != nil {
		return nil, errCancelled
	}
	defer c.mtx.unlock()

	std, cancelStd := cancel.Promote(ctx)
	defer cancelStd()

	if err := c.t.Write(std, encodeFrame(cmd, payload)); err != nil {
		return nil, transportError(err)
	}
	resp, err := decodeResponse(std, c.t)
	if err != nil {
		return nil, transportError(err)
	}
	return resp, nil
}

// transportError converts a transport-internal error kind into the kind a
// caller sees: a read timeout is simply silence on the link (spec.md
// §4.D), and a dropped connection is indistinguishable from never having
// connected at all.
func transportError(err error) error {
	e, ok := err.(*Error)
	if !ok {
		return err
	}
	switch e.Kind {
	case timeout:
		return errNoResponse
	case connectionClosed:
		return errNotConnected
	default:
		return e
	}
}
