// Package poller drives the fetch → dispatch cycle and owns its lifecycle.
package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"command-agent/agent/internal/command"
	"command-agent/agent/internal/logger"
)

var (
	ErrAlreadyRunning = errors.New("poller already running")
	ErrShutdown       = errors.New("poller shut down")
)

type State int32

const (
	Stopped State = iota
	Polling
	Stopping
)

func (s State) String() string {
	switch s {
	case Polling:
		return "polling"
	case Stopping:
		return "stopping"
	default:
		return "stopped"
	}
}

// Fetcher asks the controller for pending commands; *controller.Client satisfies it.
type Fetcher interface {
	FetchCommands(ctx context.Context, deviceID string) ([]command.Command, error)
}

// BatchDispatcher runs one fetched batch in order; *command.Dispatcher satisfies it.
type BatchDispatcher interface {
	DispatchAll(ctx context.Context, cmds []command.Command)
}

// Pool runs dispatch batches off the polling goroutine; *workerpool.Pool satisfies it.
type Pool interface {
	Go(ctx context.Context, name string, fn func(ctx context.Context)) error
	Close(ctx context.Context) error
}

type Options struct {
	Interval     time.Duration
	FetchTimeout time.Duration
}

type Poller struct {
	fetcher    Fetcher
	dispatcher BatchDispatcher
	pool       Pool
	deviceID   func() string
	opts       Options

	mu       sync.Mutex
	state    State
	shutdown bool
	stopCh chan struct{}
	doneCh chan struct{}

	cycles atomic.Int64
}

func New(f Fetcher, d BatchDispatcher, pool Pool, deviceID func() string, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = 10 * time.Second
	}
	return &Poller{fetcher: f, dispatcher: d, pool: pool, deviceID: deviceID, opts: opts}
}

func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Cycles reports how many fetch cycles have completed.
func (p *Poller) Cycles() int64 { return p.cycles.Load() }

// Start launches the polling goroutine. The first cycle runs immediately.
func (p *Poller) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shutdown {
		return ErrShutdown
	}
	if p.state != Stopped {
		return ErrAlreadyRunning
	}
	p.state = Polling
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	go p.loop(p.stopCh, p.doneCh)
	logger.Infof("Command polling started, interval=%v", p.opts.Interval)
	return nil
}

// Stop prevents further cycles and waits for a cycle in flight to finish or ctx to end.
// Dispatch batches already handed to the pool keep running; see Shutdown.
func (p *Poller) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.state != Polling {
		p.mu.Unlock()
		return nil
	}
	p.state = Stopping
	close(p.stopCh)
	doneCh := p.doneCh
	p.mu.Unlock()

	select {
	case <-doneCh:
		p.markStopped()
		logger.Info("Command polling stopped")
		return nil
	case <-ctx.Done():
		// the loop exits on its own once the in-flight fetch returns
		go func() {
			<-doneCh
			p.markStopped()
		}()
		return ctx.Err()
	}
}

func (p *Poller) markStopped() {
	p.mu.Lock()
	p.state = Stopped
	p.mu.Unlock()
}

// Shutdown stops polling and drains the worker pool; the poller cannot be restarted afterwards.
func (p *Poller) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.shutdown = true
	p.mu.Unlock()

	stopErr := p.Stop(ctx)
	if err := p.pool.Close(ctx); err != nil {
		logger.Warnf("Worker pool drain incomplete: %v", err)
		return err
	}
	return stopErr
}

func (p *Poller) loop(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-timer.C:
		}
		p.cycle(stopCh)
		p.cycles.Add(1)
		timer.Reset(p.opts.Interval)
	}
}

func (p *Poller) cycle(stopCh <-chan struct{}) {
	// not tied to stop: a fetch already in flight completes
	ctx := context.Background()
	if p.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.FetchTimeout)
		defer cancel()
	}
	cmds, err := p.fetcher.FetchCommands(ctx, p.deviceID())
	if err != nil {
		logger.Errorf("Error polling for commands: %v", err)
		return
	}
	if len(cmds) == 0 {
		logger.Debugf("No pending commands")
		return
	}
	logger.Infof("Received %d command(s)", len(cmds))

	// a saturated pool may hold the loop for at most one interval, and never past stop
	handoff, cancel := context.WithTimeout(context.Background(), p.opts.Interval)
	defer cancel()
	go func() {
		select {
		case <-stopCh:
			cancel()
		case <-handoff.Done():
		}
	}()
	err = p.pool.Go(handoff, "dispatch batch", func(ctx context.Context) {
		p.dispatcher.DispatchAll(ctx, cmds)
	})
	if err != nil {
		logger.Errorf("Dropping %d command(s): %v", len(cmds), err)
	}
}
