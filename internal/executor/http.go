package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tandemflow/tandem/pkg/api"
)

type (
	// Config carries the tuning knobs shared by the protocol executors
	Config struct {
		Timeout     time.Duration
		MaxRetries  uint64
		InitBackoff time.Duration
	}

	// HTTPExecutor performs REST-style calls. Transport-level failures
	// are retried with exponential backoff before being reported as
	// failed envelopes; non-2xx responses are failed envelopes without
	// retry
	HTTPExecutor struct {
		client      *http.Client
		maxRetries  uint64
		initBackoff time.Duration
	}
)

var _ Executor = (*HTTPExecutor)(nil)

func NewHTTPExecutor(cfg Config) *HTTPExecutor {
	return &HTTPExecutor{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		maxRetries:  cfg.MaxRetries,
		initBackoff: cfg.InitBackoff,
	}
}

func (x *HTTPExecutor) Execute(
	ctx context.Context, req *api.Request, creds *api.Credentials,
) (*api.Envelope, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	return x.do(
		ctx, method, req.URL, req.Headers, req.Query, req.Body,
		creds, req.TimeoutMs,
	)
}

// do is the shared HTTP plumbing, also used by the GraphQL executor
func (x *HTTPExecutor) do(
	ctx context.Context, method, rawURL string,
	headers, query map[string]string, body any,
	creds *api.Credentials, timeoutMs int64,
) (*api.Envelope, error) {
	target, err := buildURL(rawURL, query)
	if err != nil {
		return nil, err
	}

	var payload []byte
	if body != nil {
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("request body not serializable: %w", err)
		}
	}

	if timeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(
			ctx, time.Duration(timeoutMs)*time.Millisecond,
		)
		defer cancel()
	}

	var resp *http.Response
	attempt := func() error {
		httpReq, err := x.newRequest(
			ctx, method, target, headers, payload, creds,
		)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err = x.client.Do(httpReq)
		return err
	}

	if err := backoff.Retry(attempt, x.policy(ctx)); err != nil {
		return api.FailedEnvelope(err.Error()), nil
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return api.FailedEnvelope(
			fmt.Sprintf("reading response body: %v", err)), nil
	}

	env := &api.Envelope{
		StatusCode: resp.StatusCode,
		Headers:    flattenHeaders(resp.Header),
		Body:       parseBody(data),
		Success:    resp.StatusCode >= 200 && resp.StatusCode < 300,
	}
	if !env.Success {
		env.Error = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	return env, nil
}

func (x *HTTPExecutor) newRequest(
	ctx context.Context, method, target string,
	headers map[string]string, payload []byte, creds *api.Credentials,
) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", "Tandem-Engine/1.0")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for name, value := range headers {
		httpReq.Header.Set(name, value)
	}

	applyCredentials(httpReq, creds)
	return httpReq, nil
}

func (x *HTTPExecutor) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if x.initBackoff > 0 {
		b.InitialInterval = x.initBackoff
	}
	return backoff.WithContext(
		backoff.WithMaxRetries(b, x.maxRetries), ctx,
	)
}

func applyCredentials(httpReq *http.Request, creds *api.Credentials) {
	if creds == nil {
		return
	}

	switch creds.Type {
	case api.CredentialBearer:
		httpReq.Header.Set("Authorization", "Bearer "+creds.Token)
	case api.CredentialBasic:
		httpReq.SetBasicAuth(creds.Username, creds.Password)
	case api.CredentialAPIKey:
		header := creds.Header
		if header == "" {
			header = "X-API-Key"
		}
		httpReq.Header.Set(header, creds.Value)
	}
}

func buildURL(rawURL string, query map[string]string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid request URL %q: %w", rawURL, err)
	}

	if len(query) > 0 {
		q := u.Query()
		for name, value := range query {
			q.Set(name, value)
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// parseBody keeps JSON responses structured so path extraction can
// address into them; everything else stays a string
func parseBody(data []byte) any {
	if len(data) == 0 {
		return nil
	}

	var body any
	if err := json.Unmarshal(data, &body); err != nil {
		return string(data)
	}
	return body
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		if len(values) > 0 {
			out[name] = values[0]
		}
	}
	return out
}
