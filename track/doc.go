// Package track defines the shared domain types for the bus tracker: the
// vehicle state record, inbound GPS fixes, and the broadcast message
// envelope pushed to connected clients.
//
// These types form the wire contract between the tracking server, reporting
// devices, and browser clients. They are deliberately free of behavior
// beyond validation and JSON encoding so that every other package can
// depend on them without cycles.
package track
