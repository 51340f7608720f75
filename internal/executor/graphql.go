package executor

import (
	"context"
	"net/http"

	"github.com/tandemflow/tandem/pkg/api"
)

// GraphQLExecutor posts query documents to a GraphQL endpoint over the
// shared HTTP plumbing. A response carrying a non-empty errors array is
// a failed envelope even when the transport reported 200
type GraphQLExecutor struct {
	http *HTTPExecutor
}

var _ Executor = (*GraphQLExecutor)(nil)

func NewGraphQLExecutor(httpExec *HTTPExecutor) *GraphQLExecutor {
	return &GraphQLExecutor{http: httpExec}
}

func (x *GraphQLExecutor) Execute(
	ctx context.Context, req *api.Request, creds *api.Credentials,
) (*api.Envelope, error) {
	payload := map[string]any{
		"query": req.GraphQL.Query,
	}
	if req.GraphQL.OperationName != "" {
		payload["operationName"] = req.GraphQL.OperationName
	}
	if len(req.GraphQL.Variables) > 0 {
		payload["variables"] = req.GraphQL.Variables
	}

	env, err := x.http.do(
		ctx, http.MethodPost, req.URL, req.Headers, req.Query, payload,
		creds, req.TimeoutMs,
	)
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return env, nil
	}

	body, ok := env.Body.(map[string]any)
	if !ok {
		return env, nil
	}

	if msg, failed := graphQLError(body); failed {
		env.Success = false
		env.Error = msg
	}
	if data, ok := body["data"]; ok {
		env.Body = data
	}
	return env, nil
}

func graphQLError(body map[string]any) (string, bool) {
	raw, ok := body["errors"].([]any)
	if !ok || len(raw) == 0 {
		return "", false
	}

	if first, ok := raw[0].(map[string]any); ok {
		if msg, ok := first["message"].(string); ok && msg != "" {
			return msg, true
		}
	}
	return "graphql request failed", true
}
