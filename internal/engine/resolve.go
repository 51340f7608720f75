package engine

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/tandemflow/tandem/pkg/api"
)

var placeholderPattern = regexp.MustCompile(
	`\{\{\s*([A-Za-z_][A-Za-z0-9_.-]*)\s*\}\}`,
)

// Resolve produces the request a step will actually send, with
// placeholder tokens replaced by values extracted from earlier steps'
// response bodies. The stored step and its template are never mutated;
// the returned request shares no memory with them.
//
// A mapping whose source step has no recorded output is a warning, not
// an error: the placeholder is left unresolved in the output. A
// malformed source path is an authoring error and fails resolution
func Resolve(
	step *api.Step, ctx map[int]any,
) (*api.Request, []string, error) {
	req, err := cloneRequest(step.Request)
	if err != nil {
		return nil, nil, err
	}
	if len(step.Mappings) == 0 {
		return req, nil, nil
	}

	vars := map[string]any{}
	var warnings []string
	for _, m := range step.Mappings {
		source, ok := ctx[m.SourceStep]
		if !ok {
			warnings = append(warnings, fmt.Sprintf(
				"no recorded output from step %d for variable %q",
				m.SourceStep, m.TargetVariable,
			))
			continue
		}

		value, found, err := Extract(source, m.SourcePath)
		if err != nil {
			return nil, warnings, fmt.Errorf(
				"variable %q: %w", m.TargetVariable, err,
			)
		}
		if !found {
			vars[m.TargetVariable] = nil
			continue
		}
		vars[m.TargetVariable] = value
	}

	substituteRequest(req, vars)
	return req, warnings, nil
}

func cloneRequest(req *api.Request) (*api.Request, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	var clone api.Request
	if err := json.Unmarshal(data, &clone); err != nil {
		return nil, err
	}
	return &clone, nil
}

// substituteRequest walks the request's field tree, substituting
// placeholder tokens in string leaves. Body and GraphQL variable leaves
// additionally support whole-value substitution: a string field whose
// entire value is a single placeholder is replaced by the bound value
// itself, which may be a number, object, or null
func substituteRequest(req *api.Request, vars map[string]any) {
	if len(vars) == 0 {
		return
	}

	req.Method = substituteText(req.Method, vars)
	req.URL = substituteText(req.URL, vars)
	req.SpecID = substituteText(req.SpecID, vars)
	for k, v := range req.Headers {
		req.Headers[k] = substituteText(v, vars)
	}
	for k, v := range req.Query {
		req.Query[k] = substituteText(v, vars)
	}
	req.Body = substituteValue(req.Body, vars)

	if gql := req.GraphQL; gql != nil {
		gql.Query = substituteText(gql.Query, vars)
		gql.OperationName = substituteText(gql.OperationName, vars)
		for k, v := range gql.Variables {
			gql.Variables[k] = substituteValue(v, vars)
		}
	}

	if rpc := req.GRPC; rpc != nil {
		rpc.Target = substituteText(rpc.Target, vars)
		rpc.Method = substituteText(rpc.Method, vars)
		for k, v := range rpc.Metadata {
			rpc.Metadata[k] = substituteText(v, vars)
		}
	}
}

func substituteValue(v any, vars map[string]any) any {
	switch t := v.(type) {
	case string:
		if name, ok := wholePlaceholder(t); ok {
			if bound, exists := vars[name]; exists {
				return bound
			}
			return t
		}
		return substituteText(t, vars)
	case map[string]any:
		for k, elem := range t {
			t[k] = substituteValue(elem, vars)
		}
		return t
	case []any:
		for i, elem := range t {
			t[i] = substituteValue(elem, vars)
		}
		return t
	default:
		return v
	}
}

func substituteText(s string, vars map[string]any) string {
	if s == "" {
		return s
	}
	return placeholderPattern.ReplaceAllStringFunc(s, func(tok string) string {
		name := placeholderPattern.FindStringSubmatch(tok)[1]
		bound, ok := vars[name]
		if !ok {
			return tok
		}
		return textForm(bound)
	})
}

// wholePlaceholder reports whether the string consists of exactly one
// placeholder token and nothing else
func wholePlaceholder(s string) (string, bool) {
	loc := placeholderPattern.FindStringSubmatchIndex(s)
	if loc == nil || loc[0] != 0 || loc[1] != len(s) {
		return "", false
	}
	return s[loc[2]:loc[3]], true
}

// textForm renders a bound value for embedding inside a string field:
// strings verbatim, everything else in its serialized form
func textForm(v any) string {
	if s, ok := v.(string); ok {
		return s
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
