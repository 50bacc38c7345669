package workflow

import (
	"regexp"
	"strings"
)

// Placeholder stands in for step outputs that have not been computed.
const Placeholder = "<output from skill>"

var (
	exactRef = regexp.MustCompile(`^\$\{([^{}]+)\}$`)
	anyRef   = regexp.MustCompile(`\$\{([^{}]+)\}`)
)

// Substitute replaces value with the context entry it references when value
// is exactly "${name}" or "${a.b.c}". Anything else, including references
// that cannot be resolved, is returned unchanged.
func Substitute(value any, vars map[string]any) any {
	s, ok := value.(string)
	if !ok {
		return value
	}
	ref, ok := ExactReference(s)
	if !ok {
		return value
	}
	if v, ok := Lookup(vars, ref); ok {
		return v
	}
	return value
}

// ExactReference reports the reference path when s is entirely a reference.
func ExactReference(s string) (string, bool) {
	m := exactRef.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// References returns the root names of every ${...} occurrence in s, in
// order of appearance.
func References(s string) []string {
	var roots []string
	for _, m := range anyRef.FindAllStringSubmatch(s, -1) {
		roots = append(roots, rootOf(strings.TrimSpace(m[1])))
	}
	return roots
}

// Lookup resolves a dotted path against vars, traversing nested maps.
func Lookup(vars map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	cur, ok := vars[parts[0]]
	if !ok {
		return nil, false
	}
	for _, p := range parts[1:] {
		switch m := cur.(type) {
		case map[string]any:
			cur, ok = m[p]
		case map[string]string:
			cur, ok = m[p]
		default:
			ok = false
		}
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func rootOf(path string) string {
	root, _, _ := strings.Cut(path, ".")
	return root
}
