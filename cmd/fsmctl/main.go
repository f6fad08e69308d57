// Command fsmctl inspects, renders and drives state machines described in
// YAML definition files.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/amp-labs/lifecycle/logger"
	"github.com/amp-labs/lifecycle/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)

	stop()

	if shutdownErr := telemetry.Shutdown(context.Background()); shutdownErr != nil {
		logger.Get().Warn("Telemetry shutdown failed", "error", shutdownErr)
	}

	if err != nil {
		logger.Fatal("fsmctl failed", "error", err)
	}
}
