package expression

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

var validate = validator.New()

// Options returns the compile options for pipeline expressions: the
// environment plus the custom function library.
func Options(env map[string]interface{}) []expr.Option {
	options := []expr.Option{expr.Env(env)}
	for name, fn := range functionLibrary {
		options = append(options, expr.Function(name, fn))
	}
	return options
}

type exprFunc func(params ...interface{}) (interface{}, error)

var functionLibrary = map[string]exprFunc{
	// strings
	"upper":      stringFunc1("upper", strings.ToUpper),
	"lower":      stringFunc1("lower", strings.ToLower),
	"trim":       stringFunc1("trim", strings.TrimSpace),
	"contains":   stringFunc2("contains", func(s, sub string) interface{} { return strings.Contains(s, sub) }),
	"startsWith": stringFunc2("startsWith", func(s, p string) interface{} { return strings.HasPrefix(s, p) }),
	"endsWith":   stringFunc2("endsWith", func(s, suf string) interface{} { return strings.HasSuffix(s, suf) }),
	"replace":    replaceFunc,
	"split":      splitFunc,
	"join":       joinFunc,
	"concat":     concatFunc,

	// math
	"round": mathFunc1("round", math.Round),
	"floor": mathFunc1("floor", math.Floor),
	"ceil":  mathFunc1("ceil", math.Ceil),
	"abs":   mathFunc1("abs", math.Abs),
	"min":   foldFunc("min", math.Min),
	"max":   foldFunc("max", math.Max),
	"sum":   sumFunc,
	"avg":   avgFunc,

	// arrays
	"includes": includesFunc,
	"indexOf":  indexOfFunc,
	"unique":   uniqueFunc,
	"reverse":  reverseFunc,
	"sortBy":   sortFunc,
	"flatten":  flattenFunc,

	// objects
	"keys":   keysFunc,
	"values": valuesFunc,
	"merge":  mergeFunc,
	"pick":   pickFunc,
	"omit":   omitFunc,
	"has":    hasFunc,

	// time
	"now":        func(...interface{}) (interface{}, error) { return time.Now(), nil },
	"parseDate":  parseDateFunc,
	"formatDate": formatDateFunc,

	// utility
	"default":  defaultFunc,
	"coalesce": coalesceFunc,
	"typeof":   typeofFunc,
	"isEmpty":  isEmptyFunc,
	"isNull":   func(params ...interface{}) (interface{}, error) { return len(params) == 1 && params[0] == nil, nil },
	"toJSON":   toJSONFunc,
	"fromJSON": fromJSONFunc,
	"uuid":     func(...interface{}) (interface{}, error) { return uuid.New().String(), nil },
	"validate": validateFunc,
}

// argument helpers

func needArgs(name string, params []interface{}, n int) error {
	if len(params) != n {
		return fmt.Errorf("%s() requires exactly %d argument(s)", name, n)
	}
	return nil
}

func needString(name string, v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s() requires string arguments", name)
	}
	return s, nil
}

func toFloat64(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case float32:
		return float64(val)
	case int:
		return float64(val)
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	default:
		return 0
	}
}

func toArray(v interface{}) ([]interface{}, bool) {
	arr, ok := v.([]interface{})
	return arr, ok
}

func toObject(v interface{}) (map[string]interface{}, bool) {
	obj, ok := v.(map[string]interface{})
	return obj, ok
}

// generic constructors

func stringFunc1(name string, fn func(string) string) exprFunc {
	return func(params ...interface{}) (interface{}, error) {
		if err := needArgs(name, params, 1); err != nil {
			return nil, err
		}
		s, err := needString(name, params[0])
		if err != nil {
			return nil, err
		}
		return fn(s), nil
	}
}

func stringFunc2(name string, fn func(string, string) interface{}) exprFunc {
	return func(params ...interface{}) (interface{}, error) {
		if err := needArgs(name, params, 2); err != nil {
			return nil, err
		}
		a, err := needString(name, params[0])
		if err != nil {
			return nil, err
		}
		b, err := needString(name, params[1])
		if err != nil {
			return nil, err
		}
		return fn(a, b), nil
	}
}

func mathFunc1(name string, fn func(float64) float64) exprFunc {
	return func(params ...interface{}) (interface{}, error) {
		if err := needArgs(name, params, 1); err != nil {
			return nil, err
		}
		return fn(toFloat64(params[0])), nil
	}
}

func foldFunc(name string, fn func(float64, float64) float64) exprFunc {
	return func(params ...interface{}) (interface{}, error) {
		if len(params) == 0 {
			return nil, fmt.Errorf("%s() requires at least 1 argument", name)
		}
		result := toFloat64(params[0])
		for _, v := range params[1:] {
			result = fn(result, toFloat64(v))
		}
		return result, nil
	}
}

// string functions

func replaceFunc(params ...interface{}) (interface{}, error) {
	if err := needArgs("replace", params, 3); err != nil {
		return nil, err
	}
	s, err := needString("replace", params[0])
	if err != nil {
		return nil, err
	}
	from, err := needString("replace", params[1])
	if err != nil {
		return nil, err
	}
	to, err := needString("replace", params[2])
	if err != nil {
		return nil, err
	}
	return strings.ReplaceAll(s, from, to), nil
}

func splitFunc(params ...interface{}) (interface{}, error) {
	if err := needArgs("split", params, 2); err != nil {
		return nil, err
	}
	s, err := needString("split", params[0])
	if err != nil {
		return nil, err
	}
	sep, err := needString("split", params[1])
	if err != nil {
		return nil, err
	}
	parts := strings.Split(s, sep)
	result := make([]interface{}, len(parts))
	for i, p := range parts {
		result[i] = p
	}
	return result, nil
}

func joinFunc(params ...interface{}) (interface{}, error) {
	if err := needArgs("join", params, 2); err != nil {
		return nil, err
	}
	arr, ok := toArray(params[0])
	if !ok {
		return "", nil
	}
	sep, err := needString("join", params[1])
	if err != nil {
		return nil, err
	}
	parts := lo.Map(arr, func(item interface{}, _ int) string {
		return fmt.Sprint(item)
	})
	return strings.Join(parts, sep), nil
}

func concatFunc(params ...interface{}) (interface{}, error) {
	var b strings.Builder
	for _, p := range params {
		b.WriteString(fmt.Sprint(p))
	}
	return b.String(), nil
}

// math aggregates

func sumFunc(params ...interface{}) (interface{}, error) {
	values := params
	if len(params) == 1 {
		if arr, ok := toArray(params[0]); ok {
			values = arr
		}
	}
	total := 0.0
	for _, v := range values {
		total += toFloat64(v)
	}
	return total, nil
}

func avgFunc(params ...interface{}) (interface{}, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("avg() requires at least 1 argument")
	}
	values := params
	if len(params) == 1 {
		if arr, ok := toArray(params[0]); ok {
			values = arr
		}
	}
	if len(values) == 0 {
		return 0.0, nil
	}
	total := 0.0
	for _, v := range values {
		total += toFloat64(v)
	}
	return total / float64(len(values)), nil
}

// array functions

func includesFunc(params ...interface{}) (interface{}, error) {
	if err := needArgs("includes", params, 2); err != nil {
		return nil, err
	}
	arr, ok := toArray(params[0])
	if !ok {
		return false, nil
	}
	return lo.Contains(arr, params[1]), nil
}

func indexOfFunc(params ...interface{}) (interface{}, error) {
	if err := needArgs("indexOf", params, 2); err != nil {
		return nil, err
	}
	arr, ok := toArray(params[0])
	if !ok {
		return -1, nil
	}
	return lo.IndexOf(arr, params[1]), nil
}

func uniqueFunc(params ...interface{}) (interface{}, error) {
	if err := needArgs("unique", params, 1); err != nil {
		return nil, err
	}
	arr, ok := toArray(params[0])
	if !ok {
		return params[0], nil
	}
	return lo.Uniq(arr), nil
}

func reverseFunc(params ...interface{}) (interface{}, error) {
	if err := needArgs("reverse", params, 1); err != nil {
		return nil, err
	}
	arr, ok := toArray(params[0])
	if !ok {
		return params[0], nil
	}
	return lo.Reverse(arr), nil
}

func sortFunc(params ...interface{}) (interface{}, error) {
	if err := needArgs("sortBy", params, 1); err != nil {
		return nil, err
	}
	arr, ok := toArray(params[0])
	if !ok {
		return params[0], nil
	}
	result := make([]interface{}, len(arr))
	copy(result, arr)
	sort.Slice(result, func(i, j int) bool {
		return fmt.Sprint(result[i]) < fmt.Sprint(result[j])
	})
	return result, nil
}

func flattenFunc(params ...interface{}) (interface{}, error) {
	if err := needArgs("flatten", params, 1); err != nil {
		return nil, err
	}
	arr, ok := toArray(params[0])
	if !ok {
		return []interface{}{params[0]}, nil
	}
	var result []interface{}
	for _, item := range arr {
		if nested, ok := toArray(item); ok {
			result = append(result, nested...)
		} else {
			result = append(result, item)
		}
	}
	return result, nil
}

// object functions

func keysFunc(params ...interface{}) (interface{}, error) {
	if err := needArgs("keys", params, 1); err != nil {
		return nil, err
	}
	obj, ok := toObject(params[0])
	if !ok {
		return nil, fmt.Errorf("keys() requires an object argument")
	}
	keys := lo.Keys(obj)
	sort.Strings(keys)
	result := make([]interface{}, len(keys))
	for i, k := range keys {
		result[i] = k
	}
	return result, nil
}

func valuesFunc(params ...interface{}) (interface{}, error) {
	if err := needArgs("values", params, 1); err != nil {
		return nil, err
	}
	obj, ok := toObject(params[0])
	if !ok {
		return nil, fmt.Errorf("values() requires an object argument")
	}
	return lo.Values(obj), nil
}

func mergeFunc(params ...interface{}) (interface{}, error) {
	result := make(map[string]interface{})
	for _, p := range params {
		if obj, ok := toObject(p); ok {
			for k, v := range obj {
				result[k] = v
			}
		}
	}
	return result, nil
}

func pickFunc(params ...interface{}) (interface{}, error) {
	obj, keys, err := objectAndKeys("pick", params)
	if err != nil {
		return nil, err
	}
	return lo.PickByKeys(obj, keys), nil
}

func omitFunc(params ...interface{}) (interface{}, error) {
	obj, keys, err := objectAndKeys("omit", params)
	if err != nil {
		return nil, err
	}
	return lo.OmitByKeys(obj, keys), nil
}

func objectAndKeys(name string, params []interface{}) (map[string]interface{}, []string, error) {
	if len(params) < 2 {
		return nil, nil, fmt.Errorf("%s() requires at least 2 arguments", name)
	}
	obj, ok := toObject(params[0])
	if !ok {
		return nil, nil, fmt.Errorf("%s() first argument must be an object", name)
	}
	keys := make([]string, 0, len(params)-1)
	for _, p := range params[1:] {
		if key, ok := p.(string); ok {
			keys = append(keys, key)
		}
	}
	return obj, keys, nil
}

func hasFunc(params ...interface{}) (interface{}, error) {
	if err := needArgs("has", params, 2); err != nil {
		return nil, err
	}
	obj, ok := toObject(params[0])
	if !ok {
		return false, nil
	}
	key, ok := params[1].(string)
	if !ok {
		return false, nil
	}
	_, exists := obj[key]
	return exists, nil
}

// time functions

func parseDateFunc(params ...interface{}) (interface{}, error) {
	if err := needArgs("parseDate", params, 2); err != nil {
		return nil, err
	}
	layout, err := needString("parseDate", params[0])
	if err != nil {
		return nil, err
	}
	value, err := needString("parseDate", params[1])
	if err != nil {
		return nil, err
	}
	return time.Parse(layout, value)
}

func formatDateFunc(params ...interface{}) (interface{}, error) {
	if err := needArgs("formatDate", params, 2); err != nil {
		return nil, err
	}
	t, ok := params[0].(time.Time)
	if !ok {
		return nil, fmt.Errorf("formatDate() first argument must be a time")
	}
	layout, err := needString("formatDate", params[1])
	if err != nil {
		return nil, err
	}
	return t.Format(layout), nil
}

// utility functions

func defaultFunc(params ...interface{}) (interface{}, error) {
	if err := needArgs("default", params, 2); err != nil {
		return nil, err
	}
	if params[0] == nil {
		return params[1], nil
	}
	if s, ok := params[0].(string); ok && s == "" {
		return params[1], nil
	}
	return params[0], nil
}

func coalesceFunc(params ...interface{}) (interface{}, error) {
	for _, p := range params {
		if p == nil {
			continue
		}
		if s, ok := p.(string); ok && s == "" {
			continue
		}
		return p, nil
	}
	return nil, nil
}

func typeofFunc(params ...interface{}) (interface{}, error) {
	if err := needArgs("typeof", params, 1); err != nil {
		return nil, err
	}
	switch params[0].(type) {
	case nil:
		return "null", nil
	case string:
		return "string", nil
	case bool:
		return "boolean", nil
	case float64, float32, int, int32, int64:
		return "number", nil
	case []interface{}:
		return "array", nil
	case map[string]interface{}:
		return "object", nil
	default:
		return fmt.Sprintf("%T", params[0]), nil
	}
}

func isEmptyFunc(params ...interface{}) (interface{}, error) {
	if err := needArgs("isEmpty", params, 1); err != nil {
		return nil, err
	}
	switch v := params[0].(type) {
	case nil:
		return true, nil
	case string:
		return v == "", nil
	case []interface{}:
		return len(v) == 0, nil
	case map[string]interface{}:
		return len(v) == 0, nil
	default:
		return false, nil
	}
}

func toJSONFunc(params ...interface{}) (interface{}, error) {
	if err := needArgs("toJSON", params, 1); err != nil {
		return nil, err
	}
	data, err := json.Marshal(params[0])
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func fromJSONFunc(params ...interface{}) (interface{}, error) {
	if err := needArgs("fromJSON", params, 1); err != nil {
		return nil, err
	}
	raw, err := needString("fromJSON", params[0])
	if err != nil {
		return nil, err
	}
	var result interface{}
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, err
	}
	return result, nil
}

// validateFunc checks a value against go-playground validator tags,
// e.g. validate(email, "required,email")
func validateFunc(params ...interface{}) (interface{}, error) {
	if err := needArgs("validate", params, 2); err != nil {
		return nil, err
	}
	rules, err := needString("validate", params[1])
	if err != nil {
		return nil, err
	}
	if err := validate.Var(params[0], rules); err != nil {
		return nil, err
	}
	return params[0], nil
}
