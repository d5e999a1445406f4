package fxplc

import (
	"context"
	"testing"
	"time"

	"github.com/GoAethereal/cancel"
)

var dummyOp operation = func(ctx cancel.Context, c plcClient) (interface{}, error) {
	return nil, nil
}

func TestBrokerFIFOOrdering(t *testing.T) {
	b := NewBroker()
	b.cfg = TransportConfig{Path: mockPath}

	const n = 5
	var order []int
	reqs := make([]*request, n)
	for i := 0; i < n; i++ {
		i := i
		reqs[i] = &request{
			op: func(ctx cancel.Context, c plcClient) (interface{}, error) {
				order = append(order, i)
				return i, nil
			},
			deadline: time.Now().Add(requestDeadline),
			result:   make(chan requestOutcome, 1),
		}
		b.queue <- reqs[i]
	}

	if err := b.mu.lock(context.Background()); err != nil {
		t.Fatal(err)
	}
	b.spawnWorkerLocked()
	b.mu.unlock()

	for i := 0; i < n; i++ {
		if out := <-reqs[i].result; out.err != nil {
			t.Fatalf("request %d: %v", i, out.err)
		}
	}
	b.Pause()

	for i, v := range order {
		if v != i {
			t.Errorf("order[%d] = %d, want %d", i, v, i)
		}
	}
}

func TestBrokerQueueFull(t *testing.T) {
	b := NewBroker()
	b.state = stateRunning // fill the channel directly; no worker drains it

	for i := 0; i < queueCapacity; i++ {
		b.queue <- &request{op: dummyOp, deadline: time.Now().Add(requestDeadline), result: make(chan requestOutcome, 1)}
	}

	_, err := b.enqueue(dummyOp)
	e, ok := err.(*Error)
	if !ok || e.Kind != QueueFull {
		t.Errorf("enqueue at capacity: got %v, want QueueFull", err)
	}
}

func TestBrokerServicePaused(t *testing.T) {
	b := NewBroker()
	_, err := b.enqueue(dummyOp)
	e, ok := err.(*Error)
	if !ok || e.Kind != ServicePaused {
		t.Errorf("enqueue while stopped: got %v, want ServicePaused", err)
	}
}

// alwaysMalformedClient wraps a scripted transport whose every response
// carries one byte more than a valid bit-read reply, forcing
// ResponseMalformed on every attempt.
func alwaysMalformedClient() (plcClient, *scriptedTransport) {
	body := []byte("0102") // two decoded bytes where ReadBit's byte-read expects exactly one
	resp := append([]byte{stx}, body...)
	resp = append(resp, etx)
	resp = append(resp, checksum(append(append([]byte{}, body...), etx))...)
	tr := &scriptedTransport{}
	for i := 0; i < maxAttempts*2; i++ {
		tr.responses = append(tr.responses, resp)
	}
	return NewClient(tr), tr
}

func TestBrokerRetryThenTeardown(t *testing.T) {
	connectCount := 0
	var transports []*scriptedTransport

	b := NewBroker()
	b.cfg = TransportConfig{Path: "dummy"}
	b.connectFunc = func(ctx context.Context) (plcClient, error) {
		connectCount++
		c, tr := alwaysMalformedClient()
		transports = append(transports, tr)
		return c, nil
	}

	readBit := operation(func(ctx cancel.Context, c plcClient) (interface{}, error) {
		return c.ReadBit(ctx, Ref{Class: Memory, Index: 17})
	})

	if err := b.Start(b.cfg); err != nil {
		t.Fatal(err)
	}

	_, err := b.enqueue(readBit)
	e, ok := err.(*Error)
	if !ok || e.Kind != RequestError {
		t.Fatalf("exhausted retries: got %v, want RequestError", err)
	}

	// The next request forces a reconnect: the first transport was torn
	// down after 5 failed attempts (spec.md §4.E step 4, §8 property 6).
	_, err = b.enqueue(readBit)
	if err == nil {
		t.Fatal("expected second request to also fail against the malformed script")
	}

	b.Pause()

	if connectCount != 2 {
		t.Errorf("connectCount = %d, want 2 (initial connect + one reconnect)", connectCount)
	}
	if !transports[0].closed {
		t.Errorf("first transport was not closed after exhausting retries")
	}
}
