// Package shutdown ties process lifetime to termination signals.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-nearby/nearby/internal/logging"
)

// New returns a context cancelled on SIGINT or SIGTERM. The returned
// function releases the signal handler; a second signal terminates the
// process immediately.
func New() (context.Context, func()) {
	ctx := logging.WithLogger(context.Background(), logging.DefaultLogger())
	ctx, cancel := context.WithCancel(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}
