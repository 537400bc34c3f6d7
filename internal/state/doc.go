// Package state holds the single shared vehicle-state record.
//
// The store is the only shared mutable value in the tracker. It is replaced
// wholesale on every accepted fix; MarkDisconnected is the one documented
// exception, flipping just the Connected flag so the rest of the record
// survives a staleness transition.
package state
