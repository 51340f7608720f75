// Package executor contains the protocol-specific adapters that
// perform the actual network call for one step. Every executor
// normalizes its outcome into an api.Envelope: ordinary
// application-level failures become success=false envelopes, and only
// genuinely exceptional conditions surface as errors.
package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/tandemflow/tandem/pkg/api"
)

type (
	// Executor performs the call described by a fully-resolved request,
	// applying the credential bundle when one is provided
	Executor interface {
		Execute(
			context.Context, *api.Request, *api.Credentials,
		) (*api.Envelope, error)
	}

	// Registry maps protocol tags to executor implementations
	Registry map[api.Protocol]Executor
)

// ErrUnknownProtocol is returned when a request carries a protocol tag
// with no registered executor
var ErrUnknownProtocol = errors.New("unknown protocol")

// Lookup selects the executor for a protocol tag
func (r Registry) Lookup(p api.Protocol) (Executor, error) {
	exec, ok := r[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProtocol, p)
	}
	return exec, nil
}

// NewRegistry wires the standard protocol executors
func NewRegistry(cfg Config) Registry {
	httpExec := NewHTTPExecutor(cfg)
	return Registry{
		api.ProtocolHTTP:    httpExec,
		api.ProtocolGraphQL: NewGraphQLExecutor(httpExec),
		api.ProtocolGRPC:    NewGRPCExecutor(cfg),
	}
}
