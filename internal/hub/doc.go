// Package hub tracks connected push-channel subscribers and fans broadcast
// messages out to them.
//
// Delivery is best effort: a broadcast reaches every subscriber that is in
// an open-ready state at call time, skips the rest, and never blocks on or
// evicts a slow subscriber. Eviction is the owning transport's job: it
// detaches a subscriber when its connection closes or errors.
package hub
