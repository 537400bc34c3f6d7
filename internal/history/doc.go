// Package history provides the durable-store collaborators behind the
// tracker's best-effort persistence: an in-memory ring for development and
// a Postgres-backed recorder for deployments.
//
// Writes on the ingest path are fire-and-forget; a recorder failure is
// logged by the caller and never affects live state or the device's
// response.
package history
