package fxplc

import (
	"context"
	"time"

	serial "github.com/daedaluz/goserial"
)

// serialTransport is the direct serial-line Transport variant
// (spec.md §4.A): 7 data bits, even parity, one stop bit, 9600 baud by
// default (38400 permitted). Both buffers are flushed before every write,
// and a dedicated reader goroutine owns the port so writes and reads never
// race on the same file descriptor.
type serialTransport struct {
	port        *serial.Port
	readTimeout time.Duration

	rx     chan []byte
	rxErr  chan error
	closed chan struct{}

	// pending holds bytes delivered by readLoop but not yet consumed by a
	// caller: readLoop forwards a whole burst (e.g. a complete STX-framed
	// reply) in one chunk, while the codec reads one byte at a time, so
	// any tail beyond the requested size must be held for the next Read
	// rather than dropped.
	pending []byte
}

var _ Transport = (*serialTransport)(nil)

func newSerialTransport(path string, baud int, readTimeout time.Duration) (Transport, error) {
	opts := serial.NewOptions().SetReadTimeout(readTimeout)
	port, err := serial.Open(path, opts)
	if err != nil {
		return nil, errNotConnected
	}

	if err := configureLine(port, baud); err != nil {
		port.Close()
		return nil, errNotConnected
	}

	t := &serialTransport{
		port:        port,
		readTimeout: readTimeout,
		rx:          make(chan []byte),
		rxErr:       make(chan error),
		closed:      make(chan struct{}),
	}
	// A single dedicated goroutine performs all blocking reads, matching
	// TransportSerial.py's single-worker ThreadPoolExecutor: no other
	// goroutine ever touches the serial file descriptor for reads.
	go t.readLoop()
	return t, nil
}

// configureLine sets 7 data bits, even parity, one stop bit, and the
// requested baud rate via the port's termios attributes.
func configureLine(port *serial.Port, baud int) error {
	attrs, err := port.GetAttr()
	if err != nil {
		return err
	}
	attrs.Cflag &= ^(serial.CSIZE | serial.PARODD | serial.CSTOPB)
	attrs.Cflag |= serial.CS7 | serial.PARENB | serial.CREAD | serial.CLOCAL
	attrs.Lflag &= ^(serial.ICANON | serial.ECHO | serial.ECHONL | serial.ISIG | serial.IEXTEN)
	attrs.Iflag &= ^(serial.IGNBRK | serial.BRKINT | serial.PARMRK | serial.ISTRIP | serial.INLCR | serial.IGNCR | serial.ICRNL | serial.IXON)
	attrs.Oflag &= ^serial.OPOST

	speed := serial.B9600
	if baud == AlternateBaud {
		speed = serial.B38400
	}
	attrs.SetSpeed(speed)

	return port.SetAttr(serial.TCSANOW, attrs)
}

func (t *serialTransport) readLoop() {
	buf := make([]byte, 256)
	for {
		n, err := t.port.ReadTimeout(buf, t.readTimeout)
		select {
		case <-t.closed:
			return
		default:
		}
		// The Daedaluz port's ReadTimeout waits for input readiness then
		// reads; both "no byte arrived" and the poll wait itself
		// returning early surface here as a plain error with n==0. Per
		// spec.md §4.A that is always a Timeout, never a distinct I/O
		// failure kind, for this transport.
		if err != nil || n == 0 {
			select {
			case t.rxErr <- errTimeout:
			case <-t.closed:
				return
			}
			continue
		}
		cp := make([]byte, n)
		copy(cp, buf[:n])
		select {
		case t.rx <- cp:
		case <-t.closed:
			return
		}
	}
}

// Write flushes both the input and output buffers before writing, which
// discards any stale bytes left over from a previous failed exchange — a
// critical invariant for framing resync (spec.md §4.A).
func (t *serialTransport) Write(ctx context.Context, data []byte) error {
	if err := t.port.Flush(serial.TCIOFLUSH); err != nil {
		return errConnectionClosed
	}
	t.pending = nil
	for drained := false; !drained; {
		select {
		case <-t.rx:
		default:
			drained = true
		}
	}
	if _, err := t.port.Write(data); err != nil {
		return errConnectionClosed
	}
	return nil
}

func (t *serialTransport) Read(ctx context.Context, size int) ([]byte, error) {
	if len(t.pending) > 0 {
		return t.takePending(size), nil
	}
	select {
	case data := <-t.rx:
		t.pending = data
		return t.takePending(size), nil
	case <-t.rxErr:
		// readLoop only ever sends errTimeout on this channel.
		return nil, errTimeout
	case <-ctx.Done():
		return nil, errTimeout
	case <-t.closed:
		return nil, errConnectionClosed
	}
}

// takePending serves up to size bytes from t.pending, leaving any tail
// for the next Read call.
func (t *serialTransport) takePending(size int) []byte {
	if size > len(t.pending) {
		size = len(t.pending)
	}
	out := t.pending[:size]
	t.pending = t.pending[size:]
	return out
}

func (t *serialTransport) Close() error {
	select {
	case <-t.closed:
		return nil
	default:
		close(t.closed)
	}
	return t.port.Close()
}
