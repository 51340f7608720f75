package api

import (
	"errors"
	"fmt"
	"strings"
)

type (
	// Protocol tags the wire protocol a request is dispatched over.
	// The set is closed; unknown tags are rejected at executor lookup
	Protocol string

	// Step is one ordered unit of work in a workflow, wrapping a single
	// protocol call. Steps are read-only during execution; the engine
	// never mutates a stored step
	Step struct {
		Order             int                `json:"order"`
		Name              string             `json:"name,omitempty"`
		Request           *Request           `json:"request"`
		Mappings          []*VariableMapping `json:"mappings,omitempty"`
		Assertions        []*Assertion       `json:"assertions,omitempty"`
		ContinueOnFailure bool               `json:"continue_on_failure,omitempty"`
	}

	// Request is the protocol-tagged template for a step's call. String
	// fields and body leaves may carry {{variable}} placeholder tokens
	// that are substituted before dispatch
	Request struct {
		Protocol  Protocol          `json:"protocol"`
		Method    string            `json:"method,omitempty"`
		URL       string            `json:"url,omitempty"`
		Headers   map[string]string `json:"headers,omitempty"`
		Query     map[string]string `json:"query,omitempty"`
		Body      any               `json:"body,omitempty"`
		GraphQL   *GraphQLConfig    `json:"graphql,omitempty"`
		GRPC      *GRPCConfig       `json:"grpc,omitempty"`
		SpecID    string            `json:"spec_id,omitempty"`
		TimeoutMs int64             `json:"timeout_ms,omitempty"`
	}

	// GraphQLConfig carries the query document posted to a GraphQL
	// endpoint identified by the request URL
	GraphQLConfig struct {
		Query         string         `json:"query"`
		OperationName string         `json:"operation_name,omitempty"`
		Variables     map[string]any `json:"variables,omitempty"`
	}

	// GRPCConfig identifies a unary gRPC method on a target host. The
	// request body is JSON-encoded and passed through verbatim
	GRPCConfig struct {
		Target   string            `json:"target"`
		Method   string            `json:"method"`
		Metadata map[string]string `json:"metadata,omitempty"`
	}

	// VariableMapping declares a data dependency: a value read from an
	// earlier step's response body and bound to a placeholder token in
	// this step's request
	VariableMapping struct {
		SourceStep     int    `json:"source_step"`
		SourcePath     string `json:"source_path"`
		TargetVariable string `json:"target_variable"`
	}
)

const (
	ProtocolHTTP    Protocol = "http"
	ProtocolGraphQL Protocol = "graphql"
	ProtocolGRPC    Protocol = "grpc"
)

var (
	ErrRequestRequired    = errors.New("step request required")
	ErrInvalidProtocol    = errors.New("invalid protocol")
	ErrRequestURLEmpty    = errors.New("request URL empty")
	ErrGraphQLRequired    = errors.New("graphql config required")
	ErrGraphQLQueryEmpty  = errors.New("graphql query empty")
	ErrGRPCRequired       = errors.New("grpc config required")
	ErrGRPCTargetEmpty    = errors.New("grpc target empty")
	ErrGRPCMethodEmpty    = errors.New("grpc method empty")
	ErrMappingPathEmpty   = errors.New("mapping source path empty")
	ErrMappingTargetEmpty = errors.New("mapping target variable empty")
)

var validProtocols = map[Protocol]bool{
	ProtocolHTTP:    true,
	ProtocolGraphQL: true,
	ProtocolGRPC:    true,
}

// Validate checks the step's request template, variable mappings, and
// assertions
func (s *Step) Validate() error {
	if s.Request == nil {
		return ErrRequestRequired
	}
	if err := s.Request.Validate(); err != nil {
		return err
	}

	for _, m := range s.Mappings {
		if err := m.Validate(); err != nil {
			return err
		}
	}

	for _, a := range s.Assertions {
		if err := a.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Label returns the step name, falling back to its order
func (s *Step) Label() string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("step %d", s.Order)
}

// Validate checks the protocol tag and its protocol-specific fields
func (r *Request) Validate() error {
	if !validProtocols[r.Protocol] {
		return fmt.Errorf("%w: %s", ErrInvalidProtocol, r.Protocol)
	}

	switch r.Protocol {
	case ProtocolHTTP:
		if r.URL == "" {
			return ErrRequestURLEmpty
		}
	case ProtocolGraphQL:
		if r.URL == "" {
			return ErrRequestURLEmpty
		}
		if r.GraphQL == nil {
			return ErrGraphQLRequired
		}
		if r.GraphQL.Query == "" {
			return ErrGraphQLQueryEmpty
		}
	case ProtocolGRPC:
		if r.GRPC == nil {
			return ErrGRPCRequired
		}
		if r.GRPC.Target == "" {
			return ErrGRPCTargetEmpty
		}
		if r.GRPC.Method == "" {
			return ErrGRPCMethodEmpty
		}
	}
	return nil
}

// Validate checks that the mapping names both a source path and a
// target variable
func (m *VariableMapping) Validate() error {
	if strings.TrimSpace(m.SourcePath) == "" {
		return ErrMappingPathEmpty
	}
	if strings.TrimSpace(m.TargetVariable) == "" {
		return ErrMappingTargetEmpty
	}
	return nil
}
