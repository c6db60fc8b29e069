// Package resolver assembles the concrete parameter values for one
// function call from the pipeline's configuration and the execution's
// runtime inputs.
package resolver

import (
	"fmt"
	"regexp"
	"strings"

	"api-collector/internal/common/errors"
	"api-collector/internal/models"
	"api-collector/internal/pipeline/fieldpath"
)

// Resolved holds the final parameter values, partitioned by wire
// location. Path, query and header values are already stringified.
type Resolved struct {
	Path   map[string]string
	Query  map[string]string
	Header map[string]string
	Body   map[string]interface{}
}

func newResolved() *Resolved {
	return &Resolved{
		Path:   make(map[string]string),
		Query:  make(map[string]string),
		Header: make(map[string]string),
		Body:   make(map[string]interface{}),
	}
}

// Clone returns an independent copy, used by pagination to vary page
// parameters per request without touching the shared resolution.
func (r *Resolved) Clone() *Resolved {
	clone := newResolved()
	for k, v := range r.Path {
		clone.Path[k] = v
	}
	for k, v := range r.Query {
		clone.Query[k] = v
	}
	for k, v := range r.Header {
		clone.Header[k] = v
	}
	for k, v := range r.Body {
		clone.Body[k] = v
	}
	return clone
}

// Set places a value at the given location, stringifying for every
// location except the body.
func (r *Resolved) Set(location models.ParameterLocation, name string, value interface{}) {
	switch location {
	case models.ParameterLocationPath:
		r.Path[name] = fmt.Sprint(value)
	case models.ParameterLocationHeader:
		r.Header[name] = fmt.Sprint(value)
	case models.ParameterLocationBody:
		r.Body[name] = value
	default:
		r.Query[name] = fmt.Sprint(value)
	}
}

// Resolve produces the parameter set for calling a function. Each
// declared parameter takes the first value found in precedence order:
// runtime override, pipeline mapping (a path into the prior step
// output), pipeline static value, then the function's own default.
// A required parameter with no value from any source fails resolution.
func Resolve(function *models.FunctionDefinition, pipeline *models.Pipeline, runtime map[string]interface{}, prior interface{}) (*Resolved, error) {
	resolved := newResolved()

	for _, param := range function.Parameters {
		value, found := lookup(param.Name, pipeline, runtime, prior)
		if !found {
			if param.Default != nil {
				value = param.Default
			} else if param.Required {
				return nil, errors.MissingParameterError(param.Name, function.Name)
			} else {
				continue
			}
		}

		if err := checkRules(param, value); err != nil {
			return nil, err
		}

		resolved.Set(param.Location, param.Name, value)
	}

	return resolved, nil
}

func lookup(name string, pipeline *models.Pipeline, runtime map[string]interface{}, prior interface{}) (interface{}, bool) {
	if runtime != nil {
		if value, ok := runtime[name]; ok {
			return value, true
		}
	}

	if pipeline != nil {
		if path, ok := pipeline.ParameterMappings[name]; ok {
			if value, ok := fieldpath.Get(prior, normalizeMapping(path)); ok {
				return value, true
			}
		}
		if value, ok := pipeline.StaticParameters[name]; ok {
			return value, true
		}
	}

	return nil, false
}

// normalizeMapping reduces a mapping expression to a plain field path
// into the prior step output. Mappings are written JSONPath-style, so
// "$.prev.id", "$.id", "prev.id" and "id" all address the same field.
func normalizeMapping(path string) string {
	path = strings.TrimPrefix(path, "$.")
	path = strings.TrimPrefix(path, "$")
	if path == "prev" {
		return ""
	}
	return strings.TrimPrefix(path, "prev.")
}

func checkRules(param models.FunctionParameter, value interface{}) error {
	rules := param.Validation
	if rules == nil {
		return nil
	}

	fail := func(msg string) error {
		return errors.ValidationError(fmt.Sprintf("parameter %s: %s", param.Name, msg))
	}

	if s, ok := value.(string); ok {
		if rules.Pattern != "" {
			matched, err := regexp.MatchString(rules.Pattern, s)
			if err != nil || !matched {
				return fail(fmt.Sprintf("value %q does not match pattern %s", s, rules.Pattern))
			}
		}
		if rules.MinLength != nil && len(s) < *rules.MinLength {
			return fail(fmt.Sprintf("value shorter than minimum length %d", *rules.MinLength))
		}
		if rules.MaxLength != nil && len(s) > *rules.MaxLength {
			return fail(fmt.Sprintf("value longer than maximum length %d", *rules.MaxLength))
		}
	}

	if n, ok := asNumber(value); ok {
		if rules.Minimum != nil && n < *rules.Minimum {
			return fail(fmt.Sprintf("value %v below minimum %v", n, *rules.Minimum))
		}
		if rules.Maximum != nil && n > *rules.Maximum {
			return fail(fmt.Sprintf("value %v above maximum %v", n, *rules.Maximum))
		}
	}

	if len(rules.Enum) > 0 {
		for _, allowed := range rules.Enum {
			if fmt.Sprint(allowed) == fmt.Sprint(value) {
				return nil
			}
		}
		return fail(fmt.Sprintf("value %v not in enum", value))
	}

	return nil
}

func asNumber(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
