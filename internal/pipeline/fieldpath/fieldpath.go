// Package fieldpath reads and writes values in decoded JSON documents
// using dot-separated paths. Array elements are addressed either as
// "items[0].name" or "items.0.name".
package fieldpath

import (
	"strconv"
	"strings"
)

// Get returns the value at path, or (nil, false) when any segment is
// missing. An empty path returns the document itself.
func Get(doc interface{}, path string) (interface{}, bool) {
	if path == "" {
		return doc, doc != nil
	}

	current := doc
	for _, segment := range split(path) {
		if current == nil {
			return nil, false
		}

		switch v := current.(type) {
		case map[string]interface{}:
			next, ok := v[segment]
			if !ok {
				return nil, false
			}
			current = next
		case []interface{}:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil, false
			}
			current = v[idx]
		default:
			return nil, false
		}
	}

	return current, true
}

// Set writes value at path, creating intermediate maps as needed.
// Existing non-map intermediates are replaced. Array segments are not
// created, only traversed.
func Set(doc map[string]interface{}, path string, value interface{}) {
	if doc == nil || path == "" {
		return
	}

	segments := split(path)
	current := doc

	for _, segment := range segments[:len(segments)-1] {
		next, ok := current[segment].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			current[segment] = next
		}
		current = next
	}

	current[segments[len(segments)-1]] = value
}

// Delete removes the value at path. Missing segments are a no-op.
func Delete(doc map[string]interface{}, path string) {
	if doc == nil || path == "" {
		return
	}

	segments := split(path)
	current := doc

	for _, segment := range segments[:len(segments)-1] {
		next, ok := current[segment].(map[string]interface{})
		if !ok {
			return
		}
		current = next
	}

	delete(current, segments[len(segments)-1])
}

// Select projects a document onto the named paths. Paths that resolve
// are copied into a fresh document at the same location; paths that do
// not resolve are omitted.
func Select(doc map[string]interface{}, paths []string) map[string]interface{} {
	result := make(map[string]interface{})
	for _, path := range paths {
		if value, ok := Get(doc, path); ok {
			Set(result, path, value)
		}
	}
	return result
}

// split breaks a path into segments, normalizing "[n]" index syntax
// into plain segments.
func split(path string) []string {
	normalized := strings.NewReplacer("[", ".", "]", "").Replace(path)
	raw := strings.Split(normalized, ".")

	segments := raw[:0]
	for _, s := range raw {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}
