package fxplc

import "github.com/GoAethereal/cancel"

// MockClient is a no-op plcClient for offline/demo operation: every
// operation succeeds immediately with a zero value, touching no transport
// at all. It is an independent implementation of the contract, not a
// patched Client (spec.md §9).
type MockClient struct{}

// NewMockClient returns a ready-to-use mock client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

var _ plcClient = (*MockClient)(nil)

func (*MockClient) ReadBit(ctx cancel.Context, ref Ref) (bool, error) {
	return false, nil
}

func (*MockClient) WriteBit(ctx cancel.Context, ref Ref, value bool) error {
	return nil
}

func (*MockClient) ReadNumber(ctx cancel.Context, ref Ref, enc NumberEncoding) (interface{}, error) {
	return decodeNumber(enc, make([]byte, enc.Size())), nil
}

func (*MockClient) WriteNumber(ctx cancel.Context, ref Ref, value float64, enc NumberEncoding) error {
	return nil
}

func (*MockClient) ReadBytes(ctx cancel.Context, addr, count int) ([]byte, error) {
	return make([]byte, count), nil
}

func (*MockClient) WriteBytes(ctx cancel.Context, addr int, data []byte) error {
	return nil
}

func (*MockClient) Close() error {
	return nil
}
