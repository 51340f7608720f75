package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrMalformedPath is returned for syntactically invalid path
// expressions. A path that is well-formed but addresses nothing is not
// an error; Extract reports it as not found
var ErrMalformedPath = errors.New("malformed path expression")

// Extract addresses a value inside an arbitrary nested structure using
// a dotted path (a.b.c), bracket/array-index navigation (a[0].b), or a
// $-rooted expression ($.a.b). Traversal short-circuits to not-found
// the first time a segment is missing or the current value is not
// indexable. Pure and deterministic
func Extract(value any, path string) (any, bool, error) {
	norm, err := normalizePath(path)
	if err != nil {
		return nil, false, err
	}
	if norm == "" {
		return value, true, nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return nil, false, fmt.Errorf("value not addressable: %w", err)
	}

	res := gjson.GetBytes(data, norm)
	if !res.Exists() {
		return nil, false, nil
	}
	return res.Value(), true, nil
}

// normalizePath rewrites the supported path grammar into gjson's dotted
// form, rooting unrooted expressions along the way. An empty result
// addresses the root value itself
func normalizePath(path string) (string, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return "", fmt.Errorf("%w: empty path", ErrMalformedPath)
	}
	if p == "$" {
		return "", nil
	}
	if strings.HasPrefix(p, "$.") {
		p = p[2:]
	} else if p[0] == '$' {
		p = p[1:]
	}
	if p == "" {
		return "", fmt.Errorf("%w: %s", ErrMalformedPath, path)
	}

	var segs []string
	closed := false
	for i := 0; i < len(p); {
		switch c := p[i]; {
		case c == '.':
			if !closed {
				return "", fmt.Errorf("%w: %s", ErrMalformedPath, path)
			}
			closed = false
			i++
		case c == '[':
			end := strings.IndexByte(p[i:], ']')
			if end < 0 {
				return "", fmt.Errorf("%w: %s", ErrMalformedPath, path)
			}
			seg, err := bracketSegment(p[i+1 : i+end])
			if err != nil {
				return "", fmt.Errorf("%w: %s", err, path)
			}
			segs = append(segs, seg)
			i += end + 1
			closed = true
		default:
			if closed {
				return "", fmt.Errorf("%w: %s", ErrMalformedPath, path)
			}
			j := i
			for j < len(p) && p[j] != '.' && p[j] != '[' {
				j++
			}
			segs = append(segs, escapeSegment(p[i:j]))
			i = j
			closed = true
		}
	}
	if !closed {
		return "", fmt.Errorf("%w: %s", ErrMalformedPath, path)
	}
	return strings.Join(segs, "."), nil
}

// bracketSegment interprets the inside of one [...] group: either a
// quoted key or a bare array index
func bracketSegment(inner string) (string, error) {
	s := strings.TrimSpace(inner)
	if s == "" {
		return "", ErrMalformedPath
	}

	if s[0] == '\'' || s[0] == '"' {
		if len(s) < 2 || s[len(s)-1] != s[0] {
			return "", ErrMalformedPath
		}
		key := s[1 : len(s)-1]
		if key == "" {
			return "", ErrMalformedPath
		}
		return escapeSegment(key), nil
	}

	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return "", ErrMalformedPath
		}
	}
	return s, nil
}

// escapeSegment protects characters gjson treats as wildcards
func escapeSegment(seg string) string {
	if !strings.ContainsAny(seg, `*?.\`) {
		return seg
	}

	var sb strings.Builder
	for i := 0; i < len(seg); i++ {
		switch seg[i] {
		case '*', '?', '.', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteByte(seg[i])
	}
	return sb.String()
}
