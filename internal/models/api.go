package models

// Request and response bodies for the HTTP shell

// ImportRequest asks for one schema document to be normalized into
// function definitions. Content carries raw document text for the
// OpenAPI and WSDL importers; Endpoint is the introspection URL for
// the GraphQL importer.
type ImportRequest struct {
	Type     string `json:"type"` // openapi, graphql, wsdl
	Content  string `json:"content,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
}

// ImportResponse returns the normalized catalog entries for one document
type ImportResponse struct {
	Functions []FunctionDefinition `json:"functions"`
	Metadata  *ImportMetadata      `json:"metadata,omitempty"`
}

// ExecuteRequest triggers one pipeline run. Either PipelineID names a
// previously registered pipeline or Pipeline carries the definition
// inline; an inline definition wins when both are present. Input is the
// output of a preceding run, made addressable to the pipeline's
// parameter mappings.
type ExecuteRequest struct {
	PipelineID string                 `json:"pipeline_id,omitempty"`
	Pipeline   *Pipeline              `json:"pipeline,omitempty"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
	Input      interface{}            `json:"input,omitempty"`
	DryRun     bool                   `json:"dry_run,omitempty"`
}

// ErrorResponse is the JSON body returned for failed requests
type ErrorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type,omitempty"`
}
