// Package ingest applies incoming GPS fixes to the tracker.
//
// The [Pipeline] is the single write path for position data: every fix,
// whether it arrived over HTTP or a message bus, goes through
// [Pipeline.Apply] so that validation, state replacement, persistence and
// fan-out always happen in the same order.
package ingest
