// Package bustracker provides a real-time vehicle tracking service: GPS
// fixes in, live WebSocket updates out, with a built-in map dashboard and
// a rule-based chat assistant.
//
// The tracker is designed as an SDK-first library, allowing developers to
// programmatically configure and run the service as part of their
// applications, with composable configuration via the functional options
// pattern.
//
// # Quick Start
//
// Create a tracker and start it with graceful shutdown:
//
//	tr, _ := bustracker.New(bustracker.WithPort(3000))
//
//	// Set up graceful shutdown on SIGINT/SIGTERM
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	tr.Start(ctx) // blocks until context is cancelled
//
// # Configuration
//
// The tracker uses the functional options pattern for configuration:
//
//	tr, err := bustracker.New(
//	    bustracker.WithPort(3000),
//	    bustracker.WithStalenessWindow(30 * time.Second),
//	    bustracker.WithSweepInterval(5 * time.Second),
//	    bustracker.WithAuthenticator(bustracker.NewTokenAuthenticator(token)),
//	)
//
// # Data Flow
//
// A tracking device POSTs fixes to /ingest (or publishes them to a NATS
// subject). Each accepted fix replaces the single shared vehicle state and
// is pushed to every connected /stream WebSocket client as a
// POSITION_UPDATE message. New clients receive one INITIAL_DATA snapshot
// on connect. When no fix arrives within the staleness window, the monitor
// marks the vehicle disconnected and pushes a CONNECTION_STATUS message.
//
// # Architecture
//
// The tracker consists of several internal packages (under internal/):
//
//   - internal/state: The single shared vehicle state with atomic staleness marking
//   - internal/ingest: The write path applying validated fixes
//   - internal/hub: The WebSocket subscriber registry and broadcast fan-out
//   - internal/monitor: The timeout-based liveness sweeper
//   - internal/chat: The rule-ladder chat responder
//   - internal/history: Fix and chat persistence (memory ring, Postgres)
//   - internal/server: The HTTP and WebSocket surface
//   - internal/feed: The optional NATS fix source
//   - dashboard: Embedded web UI assets
//
// The internal packages are not part of the public API and may change
// without notice. The library is designed for single-binary deployment
// using Go's embed directive for static assets.
package bustracker
