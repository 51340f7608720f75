package executor

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/tandemflow/tandem/pkg/api"
)

type (
	// GRPCExecutor invokes unary methods with JSON-encoded messages
	// through a passthrough codec, so no compiled stubs are needed. The
	// server (or its gateway) must accept the grpc+json content
	// subtype. Connections are dialed lazily and cached per target
	GRPCExecutor struct {
		conns map[string]*grpc.ClientConn
		mu    sync.Mutex
	}

	// rawCodec moves pre-encoded JSON bytes through the gRPC transport
	// untouched
	rawCodec struct{}
)

var _ Executor = (*GRPCExecutor)(nil)

func NewGRPCExecutor(Config) *GRPCExecutor {
	return &GRPCExecutor{
		conns: map[string]*grpc.ClientConn{},
	}
}

func (x *GRPCExecutor) Execute(
	ctx context.Context, req *api.Request, creds *api.Credentials,
) (*api.Envelope, error) {
	conn, err := x.conn(req.GRPC.Target)
	if err != nil {
		return nil, err
	}

	payload := []byte("{}")
	if req.Body != nil {
		if payload, err = json.Marshal(req.Body); err != nil {
			return nil, fmt.Errorf("request body not serializable: %w", err)
		}
	}

	ctx = metadata.NewOutgoingContext(ctx, callMetadata(req, creds))

	var reply []byte
	var header metadata.MD
	err = conn.Invoke(ctx, fullMethod(req.GRPC.Method), payload, &reply,
		grpc.ForceCodec(rawCodec{}),
		grpc.Header(&header),
	)
	if err != nil {
		st := status.Convert(err)
		return &api.Envelope{
			StatusCode: int(st.Code()),
			Headers:    flattenMetadata(header),
			Error:      st.Message(),
			Success:    false,
		}, nil
	}

	return &api.Envelope{
		StatusCode: 0,
		Headers:    flattenMetadata(header),
		Body:       parseBody(reply),
		Success:    true,
	}, nil
}

// Close tears down all cached connections
func (x *GRPCExecutor) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	var firstErr error
	for target, conn := range x.conns {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(x.conns, target)
	}
	return firstErr
}

func (x *GRPCExecutor) conn(target string) (*grpc.ClientConn, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if conn, ok := x.conns[target]; ok {
		return conn, nil
	}

	conn, err := grpc.NewClient(target,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("dialing %q: %w", target, err)
	}
	x.conns[target] = conn
	return conn, nil
}

func callMetadata(req *api.Request, creds *api.Credentials) metadata.MD {
	md := metadata.New(req.GRPC.Metadata)

	if creds != nil {
		switch creds.Type {
		case api.CredentialBearer:
			md.Set("authorization", "Bearer "+creds.Token)
		case api.CredentialBasic:
			raw := creds.Username + ":" + creds.Password
			md.Set("authorization",
				"Basic "+base64.StdEncoding.EncodeToString([]byte(raw)))
		case api.CredentialAPIKey:
			header := creds.Header
			if header == "" {
				header = "x-api-key"
			}
			md.Set(header, creds.Value)
		}
	}
	return md
}

func fullMethod(method string) string {
	if strings.HasPrefix(method, "/") {
		return method
	}
	return "/" + method
}

func flattenMetadata(md metadata.MD) map[string]string {
	out := make(map[string]string, len(md))
	for name, values := range md {
		if len(values) > 0 {
			out[name] = values[0]
		}
	}
	return out
}

func (rawCodec) Marshal(v any) ([]byte, error) {
	switch t := v.(type) {
	case []byte:
		return t, nil
	case *[]byte:
		return *t, nil
	default:
		return nil, fmt.Errorf("raw codec cannot marshal %T", v)
	}
}

func (rawCodec) Unmarshal(data []byte, v any) error {
	out, ok := v.(*[]byte)
	if !ok {
		return fmt.Errorf("raw codec cannot unmarshal into %T", v)
	}
	*out = data
	return nil
}

func (rawCodec) Name() string {
	return "json"
}
