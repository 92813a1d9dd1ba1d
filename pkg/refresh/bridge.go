package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// Signals understood by the bridge.
const (
	RefreshSignal   = unix.SIGUSR1
	DebouncedSignal = unix.SIGUSR2
)

// Publisher makes the running process discoverable to whoever sends the
// refresh signals, typically by writing a PID file.
type Publisher interface {
	Publish() error
	Withdraw() error
}

// Bridge turns refresh signals into Flag requests.
type Bridge struct {
	flag      *Flag
	debounce  time.Duration
	publisher Publisher
	logger    *slog.Logger

	// notify and stop default to os/signal; tests may swap them.
	notify func(c chan<- os.Signal, sig ...os.Signal)
	stop   func(c chan<- os.Signal)

	mu      sync.Mutex
	sigs    chan os.Signal
	done    chan struct{}
	wg      sync.WaitGroup
	started bool
}

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithDebounce enables the debounced signal. A zero window leaves SIGUSR2
// at its default disposition.
func WithDebounce(d time.Duration) BridgeOption {
	return func(b *Bridge) { b.debounce = d }
}

// WithPublisher publishes the process on Start and withdraws it on Stop.
func WithPublisher(p Publisher) BridgeOption {
	return func(b *Bridge) { b.publisher = p }
}

// WithLogger sets the logger used for signal events.
func WithLogger(l *slog.Logger) BridgeOption {
	return func(b *Bridge) { b.logger = l }
}

// NewBridge returns a bridge that raises flag.
func NewBridge(flag *Flag, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		flag:   flag,
		logger: slog.Default(),
		notify: signal.Notify,
		stop:   signal.Stop,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Start installs the signal handlers and publishes the process. Handling
// stops when ctx is cancelled or Stop is called.
func (b *Bridge) Start(ctx context.Context) error {
	if b.flag == nil {
		return errors.New("refresh bridge: nil flag")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return errors.New("refresh bridge: already started")
	}

	sigs := make(chan os.Signal, 1)
	watched := []os.Signal{RefreshSignal}
	if b.debounce > 0 {
		watched = append(watched, DebouncedSignal)
	}
	b.notify(sigs, watched...)

	if b.publisher != nil {
		if err := b.publisher.Publish(); err != nil {
			b.stop(sigs)
			return fmt.Errorf("refresh bridge: publish: %w", err)
		}
	}

	b.sigs = sigs
	b.done = make(chan struct{})
	b.started = true

	b.wg.Add(1)
	go b.run(ctx)

	b.logger.Debug("refresh bridge started", "signals", len(watched), "debounce", b.debounce)
	return nil
}

// Stop removes the signal handlers, waits for the bridge goroutine and
// withdraws the publication. It is safe to call more than once.
func (b *Bridge) Stop() error {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return nil
	}
	b.started = false
	b.stop(b.sigs)
	close(b.done)
	b.mu.Unlock()

	b.wg.Wait()

	if b.publisher != nil {
		if err := b.publisher.Withdraw(); err != nil {
			return fmt.Errorf("refresh bridge: withdraw: %w", err)
		}
	}
	return nil
}

func (b *Bridge) run(ctx context.Context) {
	defer b.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.done:
			return
		case sig := <-b.sigs:
			b.handle(ctx, sig)
		}
	}
}

// handle processes one signal. The debounced signal holds the goroutine for
// the whole window and drops everything that arrives meanwhile.
func (b *Bridge) handle(ctx context.Context, sig os.Signal) {
	b.flag.Request()
	if sig != DebouncedSignal || b.debounce <= 0 {
		return
	}

	b.logger.Debug("debounced refresh", "window", b.debounce)
	timer := time.NewTimer(b.debounce)
	defer timer.Stop()
	for {
		select {
		case <-timer.C:
			return
		case <-ctx.Done():
			return
		case <-b.done:
			return
		case <-b.sigs:
		}
	}
}
