package fxplc

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/GoAethereal/cancel"
)

// tcpTransport is the serial-over-TCP bridge Transport variant
// (spec.md §4.A).
type tcpTransport struct {
	conn        net.Conn
	readTimeout time.Duration
}

var _ Transport = (*tcpTransport)(nil)

// newTCPTransport dials host:port, then sleeps flushDelay and drains any
// banner bytes a serial-to-TCP bridge may emit on connect, exactly as
// TransportTCP.py's connect() does.
func newTCPTransport(ctx context.Context, host string, port int, connectTimeout, readTimeout, flushDelay time.Duration) (Transport, error) {
	dialCtx, dialCancel := cancel.Promote(ctx)
	defer dialCancel()
	dialCtx, timeoutCancel := context.WithTimeout(dialCtx, connectTimeout)
	defer timeoutCancel()

	conn, err := new(net.Dialer).DialContext(dialCtx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, errNotConnected
	}

	t := &tcpTransport{conn: conn, readTimeout: readTimeout}
	time.Sleep(flushDelay)
	t.drain()
	return t, nil
}

// drain reads and discards any bytes available right after connect,
// without blocking past a short deadline, mirroring the non-blocking
// recv loop in TransportTCP.py.
func (t *tcpTransport) drain() {
	_ = t.conn.SetReadDeadline(time.Now().Add(20 * time.Millisecond))
	buf := make([]byte, 1024)
	for {
		n, err := t.conn.Read(buf)
		if n == 0 || err != nil {
			break
		}
	}
	_ = t.conn.SetReadDeadline(time.Time{})
}

func (t *tcpTransport) Write(ctx context.Context, data []byte) error {
	if t.conn == nil {
		return errNotConnected
	}
	if _, err := t.conn.Write(data); err != nil {
		return errConnectionClosed
	}
	return nil
}

func (t *tcpTransport) Read(ctx context.Context, size int) ([]byte, error) {
	if t.conn == nil {
		return nil, errNotConnected
	}
	deadline := t.readTimeout
	if dl, ok := ctx.Deadline(); ok {
		if remaining := time.Until(dl); remaining < deadline {
			deadline = remaining
		}
	}
	_ = t.conn.SetReadDeadline(time.Now().Add(deadline))

	buf := make([]byte, size)
	n, err := t.conn.Read(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, errTimeout
		}
		return nil, errConnectionClosed
	}
	return buf[:n], nil
}

func (t *tcpTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}
