package run

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ridge/redchat/tlog"
	"go.uber.org/zap"
)

// exitOnSecondSignal is the exit code used when the user insists on
// terminating while shutdown is still in progress (128 + SIGINT)
const exitOnSecondSignal = 130

// handleSignals returns when the first termination signal arrives, which
// cancels the top-level task. A second signal exits the process at once, so a
// stuck shutdown can still be interrupted from the terminal.
func handleSignals(ctx context.Context) error {
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case <-ctx.Done():
		signal.Stop(ch)
		return ctx.Err()
	case sig := <-ch:
		logger := tlog.Get(ctx)
		logger.Info("Shutting down", zap.Stringer("signal", sig))
		go func() {
			defer signal.Stop(ch)
			sig := <-ch
			logger.Warn("Second signal, exiting immediately", zap.Stringer("signal", sig))
			os.Exit(exitOnSecondSignal)
		}()
		return nil
	}
}
