package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ghanabus/bustracker"
	"github.com/ghanabus/bustracker/track"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	tr, err := bustracker.New(
		bustracker.WithPort(3000),
		bustracker.WithStalenessWindow(15*time.Second),
		bustracker.WithSweepInterval(2*time.Second),
		bustracker.WithLogger(logger),
		bustracker.WithUpdateCallback(func(s track.VehicleState) {
			if s.Speed == 0 {
				logger.Info("bus stopped", "lat", s.Position.Lat(), "lng", s.Position.Lng())
			}
		}),
	)
	if err != nil {
		slog.Error("failed to create tracker", "error", err)
		os.Exit(1)
	}

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// fake GPS device circling Accra (see device.go)
	go StartFakeDevice(ctx, "http://localhost:3000", 2*time.Second)

	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════════════════╗")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Bustracker Demo                                     ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Open http://localhost:3000 in your browser          ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   A fake GPS device sends a fix every 2 seconds.      ║")
	fmt.Println("  ║   Stop it with Ctrl+C and watch the dashboard flip    ║")
	fmt.Println("  ║   to offline after the staleness window.              ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ╚═══════════════════════════════════════════════════════╝")
	fmt.Println()

	if err := tr.Start(ctx); err != nil {
		slog.Error("tracker error", "error", err)
		os.Exit(1)
	}
}
