package fxplc

import "context"

// Transport is a byte pipe to the physical link (serial line or serial-
// over-TCP bridge), per spec.md §4.A. Read may return fewer bytes than
// requested but never zero bytes without an error. Writes are fire-and-
// forget; errors surface on the next read.
type Transport interface {
	Write(ctx context.Context, data []byte) error
	Read(ctx context.Context, size int) ([]byte, error)
	Close() error
}

// transportFactory builds a fresh Transport from a TransportConfig. The
// two concrete variants (serial, TCP) implement it as the serialFactory
// and tcpFactory vars in config.go; the mock variant does not, since
// Broker.connect returns a MockClient without dialing.
type transportFactory func(ctx context.Context, cfg TransportConfig) (Transport, error)
