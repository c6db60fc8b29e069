package core

import (
	"sync"

	"api-collector/internal/pipeline/fieldpath"
)

// Well-known context keys set by the coordinator and executor.
const (
	KeyFunction   = "function"
	KeyParameters = "parameters"
	KeyBaseURL    = "base_url"
	KeyInput      = "input"
	KeyItem       = "item"
	KeyIndex      = "index"
)

// Context is the thread-safe value store shared by the steps of one
// execution. ForEach iterations fork child contexts that shadow the
// parent without mutating it.
type Context struct {
	mu     sync.RWMutex
	values map[string]interface{}
	parent *Context
}

// NewContext creates an empty execution context
func NewContext() *Context {
	return &Context{
		values: make(map[string]interface{}),
	}
}

// Fork creates a child context layered over this one
func (c *Context) Fork() *Context {
	return &Context{
		values: make(map[string]interface{}),
		parent: c,
	}
}

// Set stores a value under key
func (c *Context) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.values[key] = value
}

// Get retrieves a value, consulting the parent chain on miss
func (c *Context) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	value, ok := c.values[key]
	c.mu.RUnlock()

	if ok {
		return value, true
	}
	if c.parent != nil {
		return c.parent.Get(key)
	}
	return nil, false
}

// GetPath resolves a dotted path whose first segment is a context key,
// e.g. "input.user.name" or "item.id"
func (c *Context) GetPath(path string) (interface{}, bool) {
	root, rest := splitRoot(path)

	value, ok := c.Get(root)
	if !ok {
		return nil, false
	}
	if rest == "" {
		return value, true
	}
	return fieldpath.Get(value, rest)
}

// GetAll flattens the parent chain into a fresh map, local values
// shadowing parent values
func (c *Context) GetAll() map[string]interface{} {
	var base map[string]interface{}
	if c.parent != nil {
		base = c.parent.GetAll()
	} else {
		base = make(map[string]interface{})
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	for k, v := range c.values {
		base[k] = v
	}
	return base
}

func splitRoot(path string) (string, string) {
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			return path[:i], path[i+1:]
		}
		if path[i] == '[' {
			return path[:i], path[i:]
		}
	}
	return path, ""
}
