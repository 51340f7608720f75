// Package api defines the public types exchanged with the Tandem engine:
// workflow definitions, per-step requests and assertions, and the result
// envelopes produced by a run.
package api
