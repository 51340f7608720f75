package api

import "errors"

type (
	// AssertionType identifies one of the supported response checks
	AssertionType string

	// Assertion is a declared, typed check against a step's response,
	// used to determine pass/fail beyond raw transport success
	Assertion struct {
		Type     AssertionType `json:"type"`
		Expected any           `json:"expected"`
		Path     string        `json:"path,omitempty"`
	}

	// AssertionResult reports one assertion's verdict with a
	// human-readable message
	AssertionResult struct {
		Type     AssertionType `json:"type"`
		Expected any           `json:"expected"`
		Actual   any           `json:"actual,omitempty"`
		Passed   bool          `json:"passed"`
		Message  string        `json:"message"`
	}
)

const (
	AssertStatusCode      AssertionType = "status_code"
	AssertMaxResponseTime AssertionType = "max_response_time"
	AssertBodyContains    AssertionType = "body_contains"
	AssertHeaderPresent   AssertionType = "header_present"
	AssertPathEquals      AssertionType = "path_equals"
)

var ErrAssertionPathRequired = errors.New(
	"path_equals assertion requires a path",
)

// Validate checks structural requirements of the assertion. Unknown
// assertion types are not rejected here; the evaluator reports them as
// failed results so one bad assertion cannot block a whole workflow
func (a *Assertion) Validate() error {
	if a.Type == AssertPathEquals && a.Path == "" {
		return ErrAssertionPathRequired
	}
	return nil
}
