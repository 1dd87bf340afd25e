// Package shutdown turns termination signals into context cancellation.
//
//	ctx, stop := shutdown.Notify(context.Background())
//	defer stop()
//
// The first signal cancels ctx so a sync pass stops between documents and
// deferred cleanup runs. A second signal exits immediately.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// ForcedExitCode is the exit status after a second signal.
const ForcedExitCode = 130

type options struct {
	signals []os.Signal
	exit    func(code int)
}

// Option configures Notify.
type Option func(*options)

// WithSignals replaces the default SIGINT and SIGTERM.
func WithSignals(sigs ...os.Signal) Option {
	return func(o *options) { o.signals = sigs }
}

// WithExit replaces os.Exit for the second signal.
func WithExit(fn func(code int)) Option {
	return func(o *options) { o.exit = fn }
}

// Notify returns a context that is canceled on the first signal. The
// returned stop func releases the signal handler and cancels the context.
func Notify(parent context.Context, opts ...Option) (context.Context, func()) {
	o := &options{
		signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		exit:    os.Exit,
	}
	for _, opt := range opts {
		opt(o)
	}

	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, o.signals...)
	stopped := make(chan struct{})

	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-stopped:
			return
		}
		select {
		case <-sigCh:
			o.exit(ForcedExitCode)
		case <-stopped:
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			signal.Stop(sigCh)
			close(stopped)
			cancel()
		})
	}
	return ctx, stop
}
