// Package server implements the HTTP and WebSocket API surface of the
// orchestrator: workflow definition CRUD, run invocation, live run
// snapshots, step history, and streaming step results.
package server
