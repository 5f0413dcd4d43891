//go:build windows

package main

import (
	"context"
	"os"
	"os/signal"
)

// shutdownSignals stop the server gracefully.
// syscall.SIGTERM is not delivered on Windows.
var shutdownSignals = []os.Signal{os.Interrupt}

// notifyContext returns a context canceled on the first shutdown signal.
// Call stop() to release resources; a second signal then kills the process.
func notifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, shutdownSignals...)
}
