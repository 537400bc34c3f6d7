// Package monitor flips the tracked vehicle to stale when fixes stop
// arriving.
//
// The sweeper ticks at a fixed interval and compares the last-fix timestamp
// against the staleness window. It only transitions CONNECTED to STALE;
// the reverse transition belongs exclusively to the ingest path, which sets
// Connected on every accepted fix.
package monitor
