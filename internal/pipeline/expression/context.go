package expression

// ContextResolver resolves dotted paths against an execution context
type ContextResolver interface {
	GetPath(path string) (interface{}, bool)
}
