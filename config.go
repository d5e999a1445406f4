package fxplc

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultBaud is the default serial line speed (spec.md §4.A).
const DefaultBaud = 9600

// AlternateBaud is the only other permitted serial line speed.
const AlternateBaud = 38400

// DefaultReadTimeout is the default per-transport read deadline.
const DefaultReadTimeout = time.Second

// DefaultFlushDelay is the default post-connect drain delay for the TCP
// transport variant (spec.md §4.A).
const DefaultFlushDelay = time.Second

// TransportConfig describes how to reach the PLC: either a serial device
// path, or a "tcp:<host>:<port>" address for a serial-to-TCP bridge
// (spec.md §6).
type TransportConfig struct {
	// Path is either a serial device path (e.g. "/dev/ttyUSB0") or
	// "tcp:<host>:<port>".
	Path string
	// Baud is the serial line speed. Ignored for TCP. Zero means
	// DefaultBaud.
	Baud int
	// ReadTimeout bounds every blocking read. Zero means
	// DefaultReadTimeout.
	ReadTimeout time.Duration
	// ConnectTimeout bounds the TCP dial. Ignored for serial. Zero means
	// DefaultReadTimeout.
	ConnectTimeout time.Duration
	// FlushDelay is how long the TCP variant waits after connecting
	// before draining any banner bytes. Ignored for serial. Zero means
	// DefaultFlushDelay.
	FlushDelay time.Duration
}

// Verify validates the TransportConfig.
func (c TransportConfig) Verify() error {
	if c.Path == "" {
		return fmt.Errorf("fxplc: transport path is empty")
	}
	if !c.isTCP() && c.Baud != 0 && c.Baud != DefaultBaud && c.Baud != AlternateBaud {
		return fmt.Errorf("fxplc: unsupported baud rate %d", c.Baud)
	}
	return nil
}

func (c TransportConfig) isTCP() bool {
	return strings.HasPrefix(c.Path, "tcp:")
}

func (c TransportConfig) withDefaults() TransportConfig {
	if c.Baud == 0 {
		c.Baud = DefaultBaud
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultReadTimeout
	}
	if c.FlushDelay == 0 {
		c.FlushDelay = DefaultFlushDelay
	}
	return c
}

// tcpFactory and serialFactory are the two transportFactory variants dial
// chooses between; the mock variant lives in broker.go's connect, which
// short-circuits before either is consulted.
var tcpFactory transportFactory = func(ctx context.Context, cfg TransportConfig) (Transport, error) {
	host, port, err := splitTCPPath(cfg.Path)
	if err != nil {
		return nil, err
	}
	return newTCPTransport(ctx, host, port, cfg.ConnectTimeout, cfg.ReadTimeout, cfg.FlushDelay)
}

var serialFactory transportFactory = func(ctx context.Context, cfg TransportConfig) (Transport, error) {
	return newSerialTransport(cfg.Path, cfg.Baud, cfg.ReadTimeout)
}

// dial opens the Transport described by cfg, choosing the TCP or serial
// variant per the "tcp:<host>:<port>" convention in spec.md §6.
func dial(ctx context.Context, cfg TransportConfig) (Transport, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Verify(); err != nil {
		return nil, err
	}
	factory := serialFactory
	if cfg.isTCP() {
		factory = tcpFactory
	}
	return factory(ctx, cfg)
}

func splitTCPPath(path string) (host string, port int, err error) {
	parts := strings.Split(path, ":")
	if len(parts) != 3 || parts[0] != "tcp" {
		return "", 0, fmt.Errorf("fxplc: malformed tcp path %q, want tcp:<host>:<port>", path)
	}
	port, err = strconv.Atoi(parts[2])
	if err != nil {
		return "", 0, fmt.Errorf("fxplc: malformed tcp port in %q: %w", path, err)
	}
	return parts[1], port, nil
}
