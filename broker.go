package fxplc

import (
	"context"
	"log"
	"time"

	"github.com/GoAethereal/cancel"
)

const (
	// queueCapacity is the broker's bounded FIFO depth (spec.md §4.E).
	queueCapacity = 10
	// maxAttempts is the number of retryable attempts per request.
	maxAttempts = 5
	// retryDelay is the sleep between retryable attempts.
	retryDelay = 500 * time.Millisecond
	// requestDeadline is the per-request wall-clock budget from enqueue.
	requestDeadline = 10 * time.Second
	// reconnectDelay is the sleep between failed connect attempts.
	reconnectDelay = time.Second
	// mockPath is the TransportConfig.Path convention that selects
	// MockClient instead of a real transport, supporting offline/demo
	// operation (spec.md §9, "Mock client" design note).
	mockPath = "mock"
)

// operation is one unit of work dispatched to the worker against a live
// plcClient; it is how Broker.enqueue-level callers express what they
// want without the broker itself knowing about registers or variables.
type operation func(ctx cancel.Context, c plcClient) (interface{}, error)

type request struct {
	op       operation
	deadline time.Time
	result   chan requestOutcome
}

type requestOutcome struct {
	value interface{}
	err   error
}

type brokerState byte

const (
	stateStopped brokerState = iota
	stateRunning
	statePaused
)

// Broker is the single-link request broker of spec.md §4.E: every PLC
// exchange funnels through a bounded FIFO queue and is executed, one at a
// time, against a single client the worker owns. Ownership is strictly
// one-way — broker owns worker, worker owns client, client owns
// transport (spec.md §9) — so a failure always surfaces by dropping down
// from the top rather than through a back-reference.
type Broker struct {
	mu    mutex // cancellable: guards state transitions and the tunnel handoff
	state brokerState
	cfg   TransportConfig

	queue chan *request

	workerCancel context.CancelFunc
	workerDone   chan struct{}

	tunnel chan struct{}

	// connectFunc overrides how the worker obtains a client, for tests
	// that need to inject a scripted transport. Nil means connect().
	connectFunc func(ctx context.Context) (plcClient, error)
}

// NewBroker returns a Broker in the Stopped state.
func NewBroker() *Broker {
	return &Broker{
		mu:    newMutex(),
		queue: make(chan *request, queueCapacity),
	}
}

// Start transitions Stopped -> Running, spawning a worker against cfg.
func (b *Broker) Start(cfg TransportConfig) error {
	if err := b.mu.lock(context.Background()); err != nil {
		return err
	}
	defer b.mu.unlock()
	if b.state != stateStopped {
		return nil
	}
	b.cfg = cfg
	b.spawnWorkerLocked()
	return nil
}

// Pause transitions Running -> Paused: the worker is cancelled at its
// next suspension point, its client is closed, and whatever request it
// was servicing is discarded as Cancelled (spec.md §4.E, §5).
func (b *Broker) Pause() error {
	if err := b.mu.lock(context.Background()); err != nil {
		return err
	}
	defer b.mu.unlock()
	b.stopWorkerLocked()
	b.state = statePaused
	return nil
}

// Resume transitions Paused -> Running.
func (b *Broker) Resume() error {
	if err := b.mu.lock(context.Background()); err != nil {
		return err
	}
	defer b.mu.unlock()
	if b.state != statePaused {
		return nil
	}
	b.spawnWorkerLocked()
	return nil
}

// PauseForTunnel pauses the broker and hands back a freshly dialed,
// exclusive Transport for external raw access (spec.md §4.E aux tunnel).
// Exactly one tunnel may be open at a time.
func (b *Broker) PauseForTunnel(ctx context.Context) (Transport, error) {
	if err := b.mu.lock(ctx); err != nil {
		return nil, err
	}
	defer b.mu.unlock()
	if b.tunnel != nil {
		return nil, errServicePaused
	}
	b.stopWorkerLocked()
	b.state = statePaused

	t, err := dial(ctx, b.cfg)
	if err != nil {
		return nil, err
	}
	b.tunnel = make(chan struct{})
	return t, nil
}

// ResumeFromTunnel closes out a tunnel opened by PauseForTunnel and
// resumes ordinary servicing.
func (b *Broker) ResumeFromTunnel() error {
	if err := b.mu.lock(context.Background()); err != nil {
		return err
	}
	defer b.mu.unlock()
	if b.tunnel == nil {
		return nil
	}
	close(b.tunnel)
	b.tunnel = nil
	b.spawnWorkerLocked()
	return nil
}

func (b *Broker) spawnWorkerLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	b.workerCancel = cancel
	b.workerDone = make(chan struct{})
	b.state = stateRunning
	go b.run(ctx, b.workerDone)
}

func (b *Broker) stopWorkerLocked() {
	if b.workerCancel == nil {
		return
	}
	b.workerCancel()
	<-b.workerDone
	b.workerCancel = nil
	b.workerDone = nil
}

// enqueue places op on the bounded FIFO and blocks until the worker
// resolves it or its 10 s deadline elapses (spec.md §4.E).
func (b *Broker) enqueue(op operation) (interface{}, error) {
	if err := b.mu.lock(context.Background()); err != nil {
		return nil, err
	}
	if b.state != stateRunning {
		b.mu.unlock()
		return nil, errServicePaused
	}
	req := &request{op: op, deadline: time.Now().Add(requestDeadline), result: make(chan requestOutcome, 1)}
	select {
	case b.queue <- req:
		b.mu.unlock()
	default:
		b.mu.unlock()
		return nil, errQueueFull
	}

	select {
	case out := <-req.result:
		return out.value, out.err
	case <-time.After(requestDeadline):
		return nil, errRequestTimeout
	}
}

// connect opens a fresh client per cfg, choosing MockClient for the
// offline/demo path convention (spec.md §9).
func (b *Broker) connect(ctx context.Context) (plcClient, error) {
	if b.cfg.Path == mockPath {
		return NewMockClient(), nil
	}
	t, err := dial(ctx, b.cfg)
	if err != nil {
		return nil, err
	}
	return NewClient(t), nil
}

// doConnect is the worker's connect entry point: connectFunc when set
// (test injection), otherwise the ordinary cfg-driven connect.
func (b *Broker) doConnect(ctx context.Context) (plcClient, error) {
	if b.connectFunc != nil {
		return b.connectFunc(ctx)
	}
	return b.connect(ctx)
}

// run is the worker loop (spec.md §4.E). It holds at most one client at a
// time and opens it when a request is dequeued and none is held, retrying
// a failed connect every reconnectDelay. Five exhausted retryable attempts
// tear the client down, so the next dequeued request reopens it.
func (b *Broker) run(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	var client plcClient
	defer func() {
		if client != nil {
			client.Close()
		}
	}()

	for {
		var current *request
		select {
		case <-ctx.Done():
			return
		case current = <-b.queue:
		}

		for client == nil {
			c, err := b.doConnect(ctx)
			if err != nil {
				log.Println("fxplc: connect failed, retrying")
				select {
				case <-time.After(reconnectDelay):
					continue
				case <-ctx.Done():
					current.result <- requestOutcome{err: errCancelled}
					return
				}
			}
			client = c
		}

		if time.Now().After(current.deadline) {
			current.result <- requestOutcome{err: errRequestTimeout}
			continue
		}

		if ctx.Err() != nil {
			current.result <- requestOutcome{err: errCancelled}
			return
		}

		if !b.attempt(ctx, client, current) {
			client.Close()
			client = nil
		}
	}
}

// attempt executes current.op against client up to maxAttempts times,
// retrying only ResponseMalformed and NoResponse failures with a 500 ms
// pause between attempts (spec.md §4.E step 3). It always delivers a
// result to current.result before returning, and reports whether client
// remains trustworthy for the next request.
func (b *Broker) attempt(ctx context.Context, client plcClient, current *request) (clientOK bool) {
	for i := 0; i < maxAttempts; i++ {
		sig := cancel.New().Propagate(ctx)
		value, err := current.op(sig, client)
		sig.Cancel()

		if err == nil {
			current.result <- requestOutcome{value: value}
			return true
		}

		fe, ok := err.(*Error)
		if !ok || !fe.retryable() {
			current.result <- requestOutcome{err: errRequestError}
			return true
		}

		if i == maxAttempts-1 {
			break
		}
		select {
		case <-time.After(retryDelay):
		case <-ctx.Done():
			current.result <- requestOutcome{err: errCancelled}
			return false
		}
	}
	current.result <- requestOutcome{err: errRequestError}
	return false
}
