package model

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/YuminosukeSato/examscore/pkg/errors"
)

// BindParams assigns params onto the pointers in fields, keyed by parameter
// name. Supported targets are *int, *float64, *bool and *string. Whole
// float64 values are accepted for *int because YAML and JSON decode numbers
// as float64. Unknown names and mismatched types yield a ValidationError.
//
// Example:
//
//	func (r *Tree) SetParams(p map[string]interface{}) error {
//	    return model.BindParams("DecisionTreeRegressor", p, map[string]interface{}{
//	        "max_depth": &r.MaxDepth,
//	    })
//	}
func BindParams(estimator string, params map[string]interface{}, fields map[string]interface{}) error {
	for _, name := range sortedKeys(params) {
		target, ok := fields[name]
		if !ok {
			return errors.NewValidationError(name,
				fmt.Sprintf("unknown parameter for %s (valid: %s)", estimator, strings.Join(sortedKeys(fields), ", ")),
				params[name])
		}
		if err := assign(name, target, params[name]); err != nil {
			return err
		}
	}
	return nil
}

func assign(name string, target, value interface{}) error {
	switch t := target.(type) {
	case *int:
		switch v := value.(type) {
		case int:
			*t = v
			return nil
		case int64:
			*t = int(v)
			return nil
		case float64:
			if v == math.Trunc(v) && !math.IsInf(v, 0) {
				*t = int(v)
				return nil
			}
		}
		return errors.NewValidationError(name, "must be an integer", value)
	case *float64:
		switch v := value.(type) {
		case float64:
			*t = v
			return nil
		case int:
			*t = float64(v)
			return nil
		case int64:
			*t = float64(v)
			return nil
		}
		return errors.NewValidationError(name, "must be a number", value)
	case *bool:
		if v, ok := value.(bool); ok {
			*t = v
			return nil
		}
		return errors.NewValidationError(name, "must be a boolean", value)
	case *string:
		if v, ok := value.(string); ok {
			*t = v
			return nil
		}
		return errors.NewValidationError(name, "must be a string", value)
	}
	return errors.NewValueError("BindParams", fmt.Sprintf("unsupported target %T for %s", target, name))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
