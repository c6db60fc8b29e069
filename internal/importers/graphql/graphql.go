// Package graphql imports a GraphQL endpoint into the normalized function
// model using the schema introspection mechanism.
package graphql

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"api-collector/internal/common/errors"
	commonhttp "api-collector/internal/common/http"
	"api-collector/internal/common/logging"
	"api-collector/internal/models"
)

// maxUnwrapDepth bounds type unwrapping so a malformed or cyclic ofType
// chain fails instead of looping forever. Valid wrapper chains are always
// finite and shallow.
const maxUnwrapDepth = 32

// introspectionQuery is the fixed query sent to every endpoint. The type
// reference fragment is nested deep enough for any practical wrapper chain.
const introspectionQuery = `query IntrospectionQuery {
  __schema {
    queryType { name }
    mutationType { name }
    subscriptionType { name }
    types {
      kind
      name
      description
      fields(includeDeprecated: true) {
        name
        description
        args {
          name
          description
          defaultValue
          type { ...TypeRef }
        }
        type { ...TypeRef }
        isDeprecated
        deprecationReason
      }
    }
  }
}
fragment TypeRef on __Type {
  kind name
  ofType { kind name
    ofType { kind name
      ofType { kind name
        ofType { kind name
          ofType { kind name
            ofType { kind name
              ofType { kind name } } } } } } }
}`

// Wire shapes of the introspection response

type typeRef struct {
	Kind   string   `json:"kind"`
	Name   string   `json:"name"`
	OfType *typeRef `json:"ofType"`
}

type inputValue struct {
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	DefaultValue *string `json:"defaultValue"`
	Type         typeRef `json:"type"`
}

type fieldDef struct {
	Name              string       `json:"name"`
	Description       string       `json:"description"`
	Args              []inputValue `json:"args"`
	Type              typeRef      `json:"type"`
	IsDeprecated      bool         `json:"isDeprecated"`
	DeprecationReason string       `json:"deprecationReason"`
}

type fullType struct {
	Kind        string     `json:"kind"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Fields      []fieldDef `json:"fields"`
}

type namedType struct {
	Name string `json:"name"`
}

type schemaInfo struct {
	QueryType        *namedType `json:"queryType"`
	MutationType     *namedType `json:"mutationType"`
	SubscriptionType *namedType `json:"subscriptionType"`
	Types            []fullType `json:"types"`
}

type introspectionResponse struct {
	Data struct {
		Schema *schemaInfo `json:"__schema"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Importer introspects GraphQL endpoints
type Importer struct {
	caller *commonhttp.Caller
	logger logging.Logger
}

// New creates a GraphQL importer using the shared outbound caller
func New(caller *commonhttp.Caller) *Importer {
	return &Importer{
		caller: caller,
		logger: logging.GetGlobalLogger(),
	}
}

// Type returns the schema type handled by this importer
func (i *Importer) Type() string {
	return "graphql"
}

// Parse introspects the endpoint and emits one function per field of the
// query, mutation and subscription types
func (i *Importer) Parse(ctx context.Context, endpoint string) ([]models.FunctionDefinition, *models.ImportMetadata, error) {
	body, err := json.Marshal(map[string]string{"query": introspectionQuery})
	if err != nil {
		return nil, nil, errors.InternalError("failed to encode introspection query", err)
	}

	resp, err := i.caller.Do(ctx, &commonhttp.Request{
		Method:      "POST",
		URL:         endpoint,
		Body:        body,
		ContentType: "application/json",
	})
	if err != nil {
		return nil, nil, errors.IntrospectionError(fmt.Sprintf("introspection request to %s failed", endpoint), err)
	}
	if !resp.IsSuccess() {
		return nil, nil, errors.IntrospectionError(
			fmt.Sprintf("introspection request to %s returned status %d", endpoint, resp.StatusCode), nil)
	}

	var introspection introspectionResponse
	if err := json.Unmarshal(resp.RawBody, &introspection); err != nil {
		return nil, nil, errors.FormatError("introspection response is not valid JSON", err)
	}
	if len(introspection.Errors) > 0 {
		return nil, nil, errors.FormatError(
			fmt.Sprintf("introspection query rejected: %s", introspection.Errors[0].Message), nil)
	}
	if introspection.Data.Schema == nil {
		return nil, nil, errors.FormatError("introspection response has no __schema", nil)
	}

	schema := introspection.Data.Schema

	metadata := &models.ImportMetadata{
		SourceType: "graphql",
		BaseURL:    endpoint,
		ImportedAt: time.Now().UTC(),
	}

	// Name to type lookup for resolving the three operation root types
	typesByName := make(map[string]fullType, len(schema.Types))
	for _, t := range schema.Types {
		typesByName[t.Name] = t
	}

	var functions []models.FunctionDefinition
	usedIDs := make(map[string]bool)

	operationRoots := []struct {
		operationType string
		root          *namedType
	}{
		{"query", schema.QueryType},
		{"mutation", schema.MutationType},
		{"subscription", schema.SubscriptionType},
	}

	for _, root := range operationRoots {
		if root.root == nil {
			continue
		}

		rootType, ok := typesByName[root.root.Name]
		if !ok {
			metadata.Warnings = append(metadata.Warnings,
				fmt.Sprintf("%s type %s not present in schema types", root.operationType, root.root.Name))
			continue
		}

		for _, field := range rootType.Fields {
			function, err := i.buildFunction(root.operationType, field, metadata)
			if err != nil {
				metadata.Warnings = append(metadata.Warnings,
					fmt.Sprintf("%s field %s skipped: %v", root.operationType, field.Name, err))
				continue
			}

			// Field names can repeat across operation types
			if usedIDs[function.ID] {
				function.ID = root.operationType + "_" + function.ID
			}
			usedIDs[function.ID] = true

			functions = append(functions, function)
		}
	}

	i.logger.Debug("introspected graphql endpoint",
		logging.String("endpoint", endpoint),
		logging.Int("functions", len(functions)),
	)

	return functions, metadata, nil
}

// buildFunction emits one function for a root-type field
func (i *Importer) buildFunction(operationType string, field fieldDef, metadata *models.ImportMetadata) (models.FunctionDefinition, error) {
	returnType, _, err := unwrapType(&field.Type)
	if err != nil {
		return models.FunctionDefinition{}, err
	}

	function := models.FunctionDefinition{
		ID:           field.Name,
		Name:         field.Name,
		Description:  field.Description,
		Method:       "POST",
		Path:         "/graphql",
		RequiresAuth: true,
		Deprecated:   field.IsDeprecated,
		Attributes: map[string]string{
			models.AttrOperationType: operationType,
			models.AttrFieldName:     field.Name,
			models.AttrReturnType:    returnType,
		},
	}
	if field.IsDeprecated {
		function.DeprecationMessage = field.DeprecationReason
	}

	for _, arg := range field.Args {
		typeName, required, err := unwrapType(&arg.Type)
		if err != nil {
			metadata.Warnings = append(metadata.Warnings,
				fmt.Sprintf("field %s: argument %s skipped: %v", field.Name, arg.Name, err))
			continue
		}

		parameter := models.FunctionParameter{
			Name:        arg.Name,
			Type:        scalarToParameterType(typeName, &arg.Type),
			Location:    models.ParameterLocationBody,
			Required:    required,
			Description: arg.Description,
		}
		if arg.DefaultValue != nil {
			parameter.Default = *arg.DefaultValue
		}

		function.Parameters = append(function.Parameters, parameter)
	}

	return function, nil
}

// unwrapType peels NON_NULL and LIST wrappers down to the named type.
// The parameter is required exactly when the outermost wrapper is
// NON_NULL. Depth is bounded to survive malformed cyclic chains.
func unwrapType(ref *typeRef) (name string, required bool, err error) {
	required = ref.Kind == "NON_NULL"

	current := ref
	for depth := 0; current != nil; depth++ {
		if depth >= maxUnwrapDepth {
			return "", false, fmt.Errorf("type wrapper nesting exceeds %d levels", maxUnwrapDepth)
		}

		if current.Kind != "NON_NULL" && current.Kind != "LIST" {
			return current.Name, required, nil
		}

		current = current.OfType
	}

	return "", false, fmt.Errorf("wrapper chain ends without a named type")
}

// scalarToParameterType maps GraphQL scalars to internal parameter types.
// A LIST anywhere in the wrapper chain makes the parameter an array.
func scalarToParameterType(name string, ref *typeRef) models.ParameterType {
	for current, depth := ref, 0; current != nil && depth < maxUnwrapDepth; current, depth = current.OfType, depth+1 {
		if current.Kind == "LIST" {
			return models.ParameterTypeArray
		}
	}

	switch name {
	case "Int":
		return models.ParameterTypeInteger
	case "Float":
		return models.ParameterTypeNumber
	case "Boolean":
		return models.ParameterTypeBoolean
	case "String", "ID":
		return models.ParameterTypeString
	default:
		// Input objects and custom scalars travel as objects
		return models.ParameterTypeObject
	}
}
