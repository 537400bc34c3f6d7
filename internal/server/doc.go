// Package server provides the HTTP surface of the bus tracker.
//
// This package is internal to bustracker and handles all HTTP concerns:
//
//   - Dashboard serving: the embedded HTML/JS map at "/"
//   - Ingest: POST /ingest accepts GPS fixes from tracking devices
//   - Chat: POST /chat answers rider questions about the bus
//   - Health: GET /health reports liveness and connection counts
//   - History: GET /history returns recent fixes from the recorder
//   - Push channel: GET /stream upgrades to a WebSocket fed by the hub
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
//
// Users of the bustracker library should not need to interact with this
// package directly. The server is started by [bustracker.Tracker.Start].
package server
