package engine

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/tandemflow/tandem/pkg/api"
)

// EvaluateAssertions produces one verdict per assertion. Assertions are
// evaluated independently: an internal error in one (a malformed path,
// an unknown type) becomes a failed verdict with an explanatory message
// and never aborts evaluation of the rest
func EvaluateAssertions(
	assertions []*api.Assertion, env *api.Envelope, durationMs int64,
) []*api.AssertionResult {
	results := make([]*api.AssertionResult, len(assertions))
	for i, a := range assertions {
		results[i] = evaluateAssertion(a, env, durationMs)
	}
	return results
}

func evaluateAssertion(
	a *api.Assertion, env *api.Envelope, durationMs int64,
) (res *api.AssertionResult) {
	defer func() {
		if r := recover(); r != nil {
			res = verdict(a, nil, false,
				fmt.Sprintf("assertion error: %v", r))
		}
	}()

	switch a.Type {
	case api.AssertStatusCode:
		return assertStatusCode(a, env)
	case api.AssertMaxResponseTime:
		return assertMaxResponseTime(a, durationMs)
	case api.AssertBodyContains:
		return assertBodyContains(a, env)
	case api.AssertHeaderPresent:
		return assertHeaderPresent(a, env)
	case api.AssertPathEquals:
		return assertPathEquals(a, env)
	default:
		return verdict(a, nil, false,
			fmt.Sprintf("unknown assertion type %q", a.Type))
	}
}

func assertStatusCode(a *api.Assertion, env *api.Envelope) *api.AssertionResult {
	expected, ok := asInt64(a.Expected)
	if !ok {
		return verdict(a, env.StatusCode, false,
			fmt.Sprintf("expected status %v is not a number", a.Expected))
	}

	if int64(env.StatusCode) != expected {
		return verdict(a, env.StatusCode, false, fmt.Sprintf(
			"status code %d, expected %d", env.StatusCode, expected))
	}
	return verdict(a, env.StatusCode, true,
		fmt.Sprintf("status code %d", env.StatusCode))
}

func assertMaxResponseTime(
	a *api.Assertion, durationMs int64,
) *api.AssertionResult {
	limit, ok := asInt64(a.Expected)
	if !ok {
		return verdict(a, durationMs, false,
			fmt.Sprintf("expected limit %v is not a number", a.Expected))
	}

	if durationMs > limit {
		return verdict(a, durationMs, false, fmt.Sprintf(
			"response took %dms, limit %dms", durationMs, limit))
	}
	return verdict(a, durationMs, true, fmt.Sprintf(
		"response took %dms (limit %dms)", durationMs, limit))
}

func assertBodyContains(
	a *api.Assertion, env *api.Envelope,
) *api.AssertionResult {
	needle := textForm(a.Expected)
	if !strings.Contains(bodyText(env.Body), needle) {
		return verdict(a, nil, false, fmt.Sprintf(
			"response body does not contain %q", needle))
	}
	return verdict(a, nil, true, fmt.Sprintf(
		"response body contains %q", needle))
}

func assertHeaderPresent(
	a *api.Assertion, env *api.Envelope,
) *api.AssertionResult {
	name := textForm(a.Expected)
	for header := range env.Headers {
		if strings.EqualFold(header, name) {
			return verdict(a, header, true, fmt.Sprintf(
				"header %q present", header))
		}
	}
	return verdict(a, nil, false, fmt.Sprintf("header %q missing", name))
}

func assertPathEquals(
	a *api.Assertion, env *api.Envelope,
) *api.AssertionResult {
	actual, found, err := Extract(env.Body, a.Path)
	if err != nil {
		return verdict(a, nil, false, err.Error())
	}
	if !found {
		return verdict(a, nil, false, fmt.Sprintf(
			"path %q not found in response body", a.Path))
	}

	if !deepEqual(actual, a.Expected) {
		return verdict(a, actual, false, fmt.Sprintf(
			"path %q is %s, expected %s",
			a.Path, textForm(actual), textForm(a.Expected)))
	}
	return verdict(a, actual, true, fmt.Sprintf(
		"path %q equals %s", a.Path, textForm(actual)))
}

func verdict(
	a *api.Assertion, actual any, passed bool, msg string,
) *api.AssertionResult {
	return &api.AssertionResult{
		Type:     a.Type,
		Expected: a.Expected,
		Actual:   actual,
		Passed:   passed,
		Message:  msg,
	}
}

// deepEqual compares values after JSON normalization so that 42 and
// float64(42) or struct-typed and map-typed equivalents compare equal
func deepEqual(a, b any) bool {
	return reflect.DeepEqual(jsonNormalize(a), jsonNormalize(b))
}

func jsonNormalize(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}

	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

func bodyText(body any) string {
	switch t := body.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return textForm(t)
	}
}

func asInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case float64:
		return int64(t), true
	case float32:
		return int64(t), true
	case json.Number:
		i, err := t.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}
