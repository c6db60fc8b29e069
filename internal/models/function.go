package models

import (
	"time"
)

// ParameterType is the declared type of a function parameter
type ParameterType string

const (
	ParameterTypeString  ParameterType = "string"
	ParameterTypeInteger ParameterType = "integer"
	ParameterTypeNumber  ParameterType = "number"
	ParameterTypeBoolean ParameterType = "boolean"
	ParameterTypeArray   ParameterType = "array"
	ParameterTypeObject  ParameterType = "object"
)

// ParameterLocation is where a parameter is sent on the wire
type ParameterLocation string

const (
	ParameterLocationPath   ParameterLocation = "path"
	ParameterLocationQuery  ParameterLocation = "query"
	ParameterLocationHeader ParameterLocation = "header"
	ParameterLocationBody   ParameterLocation = "body"
)

// ValidationRules holds the declared constraints for one parameter value
type ValidationRules struct {
	Pattern   string        `json:"pattern,omitempty"`
	Minimum   *float64      `json:"minimum,omitempty"`
	Maximum   *float64      `json:"maximum,omitempty"`
	MinLength *int          `json:"min_length,omitempty"`
	MaxLength *int          `json:"max_length,omitempty"`
	Enum      []interface{} `json:"enum,omitempty"`
}

// FunctionParameter describes one parameter of a callable function
type FunctionParameter struct {
	Name        string            `json:"name"`
	Type        ParameterType     `json:"type"`
	Location    ParameterLocation `json:"location"`
	Required    bool              `json:"required"`
	Default     interface{}       `json:"default,omitempty"`
	Description string            `json:"description,omitempty"`
	Validation  *ValidationRules  `json:"validation,omitempty"`
}

// RequestBody describes the request body of a function
type RequestBody struct {
	ContentType string                 `json:"content_type"`
	Schema      map[string]interface{} `json:"schema,omitempty"`
	Required    bool                   `json:"required"`
}

// ResponseInfo carries per-status-code response metadata
type ResponseInfo struct {
	Description string                 `json:"description,omitempty"`
	Schema      map[string]interface{} `json:"schema,omitempty"`
}

// ResponseDescriptor describes the response shape of a function.
// Schema is taken from the first 2xx status code; every status code
// is retained in StatusCodes with its own description and schema.
type ResponseDescriptor struct {
	Schema         map[string]interface{}  `json:"schema,omitempty"`
	ExpectedFormat string                  `json:"expected_format,omitempty"`
	StatusCodes    map[string]ResponseInfo `json:"status_codes,omitempty"`
}

// FunctionDefinition is the normalized description of one callable API
// operation. Instances are produced by the schema importers and owned
// exclusively by their datasource catalog.
type FunctionDefinition struct {
	ID                 string              `json:"id"`
	Name               string              `json:"name"`
	Description        string              `json:"description,omitempty"`
	Method             string              `json:"method"`
	Path               string              `json:"path"`
	Parameters         []FunctionParameter `json:"parameters,omitempty"`
	RequestBody        *RequestBody        `json:"request_body,omitempty"`
	Response           *ResponseDescriptor `json:"response,omitempty"`
	RequiresAuth       bool                `json:"requires_auth"`
	Scopes             []string            `json:"scopes,omitempty"`
	Timeout            time.Duration       `json:"timeout,omitempty"`
	Deprecated         bool                `json:"deprecated,omitempty"`
	DeprecationMessage string              `json:"deprecation_message,omitempty"`

	// Attributes is an open protocol-specific bag. The GraphQL importer
	// stores the operation type and unwrapped return type here, the WSDL
	// importer the SOAP action and message names.
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Attribute returns a protocol-specific attribute value, or "" when absent
func (f *FunctionDefinition) Attribute(key string) string {
	if f.Attributes == nil {
		return ""
	}
	return f.Attributes[key]
}

// Parameter returns the named parameter declaration, or nil when absent
func (f *FunctionDefinition) Parameter(name string) *FunctionParameter {
	for i := range f.Parameters {
		if f.Parameters[i].Name == name {
			return &f.Parameters[i]
		}
	}
	return nil
}

// Well-known protocol attribute keys
const (
	AttrOperationType   = "operation_type"   // graphql: query/mutation/subscription
	AttrFieldName       = "field_name"       // graphql: schema field name
	AttrReturnType      = "return_type"      // graphql: unwrapped return type name
	AttrSOAPAction      = "soap_action"      // soap: binding soapAction value
	AttrInputMessage    = "input_message"    // soap: input message name
	AttrOutputMessage   = "output_message"   // soap: output message name
	AttrTargetNamespace = "target_namespace" // soap: wsdl targetNamespace
)

// ImportMetadata describes one importer run over a schema document
type ImportMetadata struct {
	SourceType string    `json:"source_type"` // openapi, graphql, wsdl
	Title      string    `json:"title,omitempty"`
	Version    string    `json:"version,omitempty"`
	BaseURL    string    `json:"base_url,omitempty"`
	Warnings   []string  `json:"warnings,omitempty"`
	ImportedAt time.Time `json:"imported_at"`
}
