// Package tandem chains API calls against different wire protocols into
// named workflows, passing data extracted from one call's response into
// later calls' requests.
package tandem

const (
	Name    = "tandem"
	Version = "0.3.1"
)
