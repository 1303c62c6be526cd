// Command padkit-monitor connects to a gamepad bridge and prints the
// unified event stream, which is handy for checking mappings and filter
// settings against a real controller.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/soar/padkit/backend/remote"
	"github.com/soar/padkit/config"
	"github.com/soar/padkit/event"
	"github.com/soar/padkit/gamepad"
)

// Cross-platform signal handling: os.Interrupt covers Ctrl+C on Windows and
// SIGINT on Unix.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

func main() {
	zl, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	logger := zl.Sugar()
	defer func() { _ = zl.Sync() }()

	opts, err := config.Load()
	if err != nil {
		logger.Fatalw("loading configuration", "error", err)
	}

	b, err := remote.Dial(opts.BridgeAddr, logger)
	if err != nil {
		logger.Fatalw("connecting to bridge", "error", err, "addr", opts.BridgeAddr)
	}

	pads := gamepad.New(b, opts, logger)
	defer func() {
		if err := pads.Close(); err != nil {
			logger.Warnw("closing backend", "error", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), shutdownSignals...)
	defer cancel()

	logger.Infow("padkit monitor started", "bridge", opts.BridgeAddr)
	logger.Info("Press Ctrl+C to exit")

	for {
		ev, ok := pads.NextEventBlocking(ctx)
		if !ok {
			break
		}
		printEvent(logger, pads, ev)
	}

	logger.Info("padkit monitor stopped")
}

func printEvent(logger *zap.SugaredLogger, pads *gamepad.Context, ev event.Event) {
	name := "?"
	if pad, ok := pads.Gamepad(ev.ID); ok {
		name = pad.Name()
	}
	switch ev.Kind {
	case event.KindConnected, event.KindDisconnected:
		logger.Infow(ev.Kind.String(), "gamepad", ev.ID, "name", name)
	case event.KindButtonPressed, event.KindButtonReleased, event.KindButtonRepeated:
		logger.Infow(ev.Kind.String(), "gamepad", ev.ID, "button", ev.Button.String(), "code", ev.Code)
	case event.KindButtonChanged:
		logger.Infow(ev.Kind.String(), "gamepad", ev.ID, "button", ev.Button.String(), "value", ev.Value)
	case event.KindAxisChanged:
		logger.Infow(ev.Kind.String(), "gamepad", ev.ID, "axis", ev.Axis.String(), "value", ev.Value)
	}
}
