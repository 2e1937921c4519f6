package modelselection

import (
	"fmt"
	"sort"
	"strings"
)

// ParamGrid maps a hyperparameter name to the values to try.
type ParamGrid map[string][]interface{}

// Expand returns every combination of the grid. Keys are taken in sorted
// order and the last key varies fastest, so the order is stable across runs.
// An empty grid yields a single empty combination.
func (g ParamGrid) Expand() []map[string]interface{} {
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	combos := []map[string]interface{}{{}}
	for _, k := range keys {
		values := g[k]
		if len(values) == 0 {
			continue
		}
		next := make([]map[string]interface{}, 0, len(combos)*len(values))
		for _, base := range combos {
			for _, v := range values {
				c := make(map[string]interface{}, len(base)+1)
				for bk, bv := range base {
					c[bk] = bv
				}
				c[k] = v
				next = append(next, c)
			}
		}
		combos = next
	}
	return combos
}

// Size returns the number of combinations Expand yields.
func (g ParamGrid) Size() int {
	n := 1
	for _, v := range g {
		if len(v) > 0 {
			n *= len(v)
		}
	}
	return n
}

// FormatParams renders params as "k=v" pairs in key order.
func FormatParams(params map[string]interface{}) string {
	if len(params) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, params[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
