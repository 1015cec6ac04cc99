package compiler

import (
	"strings"

	"github.com/roach88/quadquery/internal/operator"
	"github.com/roach88/quadquery/internal/querybuilder"
)

// expander rewrites compact IRIs ("s:name") using declared prefixes.
// Strings whose prefix is not declared pass through unchanged.
type expander struct {
	prefixes map[string]string
}

func (e expander) key(s string) string {
	if len(e.prefixes) == 0 {
		return s
	}
	name, local, ok := strings.Cut(s, ":")
	if !ok || strings.HasPrefix(local, "//") {
		return s
	}
	if ns, ok := e.prefixes[name]; ok {
		return ns + local
	}
	return s
}

func (e expander) groupPath(p string) string {
	steps := strings.Split(p, querybuilder.PathSeparator)
	for i, step := range steps {
		steps[i] = e.key(step)
	}
	return strings.Join(steps, querybuilder.PathSeparator)
}

// tree expands keys and string values of a decoded document subtree.
// Operator tags and literal lexical forms are left alone.
func (e expander) tree(v any) any {
	if len(e.prefixes) == 0 {
		return v
	}
	switch val := v.(type) {
	case string:
		return e.key(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = e.tree(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			switch k {
			case operator.OpKey, "@value", "@language":
				out[k] = item
			default:
				out[e.key(k)] = e.tree(item)
			}
		}
		return out
	default:
		return v
	}
}
