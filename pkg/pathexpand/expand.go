package pathexpand

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// ErrCycleDetected is matched by every *CycleError via errors.Is.
var ErrCycleDetected = errors.New("pathexpand: path expansion loop detected")

// refPattern matches $name and ${name}.
var refPattern = regexp.MustCompile(`\$(?:\{([A-Za-z_][A-Za-z0-9_]*)\}|([A-Za-z_][A-Za-z0-9_]*))`)

// Unresolved is a key whose value still carried a reference when expansion
// stopped making progress.
type Unresolved struct {
	Key   string
	Value string
}

// CycleError reports the keys that never resolved, sorted by key.
type CycleError struct {
	Pending []Unresolved
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	var b strings.Builder
	b.WriteString(ErrCycleDetected.Error())
	b.WriteString(":")
	for _, u := range e.Pending {
		fmt.Fprintf(&b, "\n\t%s: %s", u.Key, u.Value)
	}
	return b.String()
}

// Is makes errors.Is(err, ErrCycleDetected) true.
func (e *CycleError) Is(target error) bool {
	return target == ErrCycleDetected
}

// Keys returns the unresolved key names.
func (e *CycleError) Keys() []string {
	keys := make([]string, len(e.Pending))
	for i, u := range e.Pending {
		keys[i] = u.Key
	}
	return keys
}

// Result is the outcome of a successful expansion.
type Result struct {
	// Paths maps every template key to its absolute, fully resolved path.
	Paths map[string]string

	// Passes is the number of substitution passes that were needed.
	Passes int
}

// Expand resolves templates against seeds and returns absolute paths for
// the template keys only. Seeds feed the substitution but are not part of
// the result. Neither input map is modified.
func Expand(templates, seeds map[string]string) (map[string]string, error) {
	res, err := ExpandResult(templates, seeds)
	if err != nil {
		return nil, err
	}
	return res.Paths, nil
}

// ExpandResult is Expand with pass accounting.
func ExpandResult(templates, seeds map[string]string) (*Result, error) {
	subst := make(map[string]string, len(templates)+len(seeds))
	for k, v := range seeds {
		subst[k] = v
	}
	for k, v := range templates {
		subst[k] = v
	}

	keys := make([]string, 0, len(subst))
	for k := range subst {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lastPending := 0
	passes := 0
	for {
		passes++
		resolved := make(map[string]string, len(subst))
		for k, v := range subst {
			if !HasReference(v) {
				resolved[k] = v
			}
		}

		next := make(map[string]string, len(subst))
		var pending []Unresolved
		for _, k := range keys {
			v := substitute(subst[k], resolved)
			next[k] = v
			if HasReference(v) {
				pending = append(pending, Unresolved{Key: k, Value: v})
			}
		}
		subst = next

		if len(pending) == 0 {
			break
		}
		if len(pending) == lastPending {
			return nil, &CycleError{Pending: pending}
		}
		lastPending = len(pending)
	}

	out := make(map[string]string, len(templates))
	for k := range templates {
		abs, err := filepath.Abs(subst[k])
		if err != nil {
			return nil, fmt.Errorf("pathexpand: make %s absolute: %w", k, err)
		}
		out[k] = abs
	}

	return &Result{Paths: out, Passes: passes}, nil
}

// HasReference reports whether s still contains a $name or ${name}.
func HasReference(s string) bool {
	return refPattern.MatchString(s)
}

// substitute replaces every reference in s that has an entry in values.
// Other references are left as written.
func substitute(s string, values map[string]string) string {
	if !strings.Contains(s, "$") {
		return s
	}
	return refPattern.ReplaceAllStringFunc(s, func(ref string) string {
		m := refPattern.FindStringSubmatch(ref)
		name := m[1]
		if name == "" {
			name = m[2]
		}
		if v, ok := values[name]; ok {
			return v
		}
		return ref
	})
}
