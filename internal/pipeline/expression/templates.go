package expression

import (
	"fmt"
	"regexp"
	"strings"
)

// templateRegex matches ${path} placeholders
var templateRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// UndefinedVariableError reports a template path with no value in the
// execution context.
type UndefinedVariableError struct {
	Path string
}

func (e *UndefinedVariableError) Error() string {
	return fmt.Sprintf("undefined variable: %s", e.Path)
}

// ResolveTemplates substitutes every ${path} placeholder in a string
// with the context value at that path. A missing path fails the whole
// resolution rather than silently passing the placeholder through.
func ResolveTemplates(template string, ctx ContextResolver) (string, error) {
	var resolveErr error

	result := templateRegex.ReplaceAllStringFunc(template, func(match string) string {
		path := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")

		value, found := ctx.GetPath(path)
		if !found {
			if resolveErr == nil {
				resolveErr = &UndefinedVariableError{Path: path}
			}
			return match
		}

		return fmt.Sprint(value)
	})

	if resolveErr != nil {
		return "", resolveErr
	}
	return result, nil
}

// ResolveTemplatesInValue walks maps, slices and strings, resolving
// placeholders wherever they appear. Other value types pass through.
func ResolveTemplatesInValue(value interface{}, ctx ContextResolver) (interface{}, error) {
	switch v := value.(type) {
	case string:
		return ResolveTemplates(v, ctx)
	case map[string]interface{}:
		result := make(map[string]interface{}, len(v))
		for key, item := range v {
			resolved, err := ResolveTemplatesInValue(item, ctx)
			if err != nil {
				return nil, err
			}
			result[key] = resolved
		}
		return result, nil
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, item := range v {
			resolved, err := ResolveTemplatesInValue(item, ctx)
			if err != nil {
				return nil, err
			}
			result[i] = resolved
		}
		return result, nil
	default:
		return value, nil
	}
}
