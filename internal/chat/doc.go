// Package chat answers rider questions about the tracked bus.
//
// The [Responder] is a fixed ladder of keyword rules evaluated in order
// against the lowercased query; the first matching rule wins and renders
// its reply from a live snapshot of the vehicle state. There is no session
// or conversation memory.
package chat
