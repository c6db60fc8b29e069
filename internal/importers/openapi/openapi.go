// Package openapi imports OpenAPI 3.x and Swagger 2.0 documents into the
// normalized function model.
package openapi

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"api-collector/internal/common/errors"
	"api-collector/internal/common/logging"
	"api-collector/internal/models"
)

// httpVerbs are the path-item keys that describe operations. Anything
// else under a path (shared parameters, summary, description) is ignored.
var httpVerbs = []string{"get", "put", "post", "delete", "options", "head", "patch", "trace"}

// pathTokenRegex matches {token} segments in a path template
var pathTokenRegex = regexp.MustCompile(`\{([^}]+)\}`)

// Importer parses OpenAPI/Swagger documents
type Importer struct {
	logger logging.Logger
}

// New creates an OpenAPI importer
func New() *Importer {
	return &Importer{logger: logging.GetGlobalLogger()}
}

// Type returns the schema type handled by this importer
func (i *Importer) Type() string {
	return "openapi"
}

// Parse normalizes an OpenAPI 3.x or Swagger 2.0 document
func (i *Importer) Parse(_ context.Context, source string) ([]models.FunctionDefinition, *models.ImportMetadata, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(source), &doc); err != nil {
		return nil, nil, errors.FormatError("document is not valid JSON", err)
	}

	metadata := &models.ImportMetadata{
		SourceType: "openapi",
		ImportedAt: time.Now().UTC(),
	}

	if info, ok := doc["info"].(map[string]interface{}); ok {
		metadata.Title, _ = info["title"].(string)
		metadata.Version, _ = info["version"].(string)
	}

	switch {
	case doc["openapi"] != nil:
		version, _ := doc["openapi"].(string)
		if !strings.HasPrefix(version, "3.") {
			return nil, nil, errors.UnsupportedSchemaError(fmt.Sprintf("unsupported OpenAPI version: %v", doc["openapi"]))
		}
		functions, err := i.parseDocument(doc, metadata, false)
		return functions, metadata, err
	case doc["swagger"] != nil:
		version, _ := doc["swagger"].(string)
		if version != "2.0" {
			return nil, nil, errors.UnsupportedSchemaError(fmt.Sprintf("unsupported Swagger version: %v", doc["swagger"]))
		}
		functions, err := i.parseDocument(doc, metadata, true)
		return functions, metadata, err
	default:
		return nil, nil, errors.FormatError("document declares neither 'openapi' nor 'swagger'", nil)
	}
}

// parseDocument walks every path item and emits one function per operation
func (i *Importer) parseDocument(doc map[string]interface{}, metadata *models.ImportMetadata, isV2 bool) ([]models.FunctionDefinition, error) {
	metadata.BaseURL = resolveBaseURL(doc, isV2)

	paths, ok := doc["paths"].(map[string]interface{})
	if !ok {
		return nil, errors.FormatError("document has no 'paths' object", nil)
	}

	pathKeys := make([]string, 0, len(paths))
	for path := range paths {
		pathKeys = append(pathKeys, path)
	}
	sort.Strings(pathKeys)

	var functions []models.FunctionDefinition

	for _, path := range pathKeys {
		pathItem, ok := paths[path].(map[string]interface{})
		if !ok {
			metadata.Warnings = append(metadata.Warnings, fmt.Sprintf("path %s: item is not an object, skipped", path))
			continue
		}

		for _, verb := range httpVerbs {
			operation, ok := pathItem[verb].(map[string]interface{})
			if !ok {
				continue
			}

			function := i.buildFunction(path, verb, operation, metadata, isV2)
			functions = append(functions, function)
		}
	}

	i.logger.Debug("parsed openapi document",
		logging.String("title", metadata.Title),
		logging.Int("functions", len(functions)),
		logging.Int("warnings", len(metadata.Warnings)),
	)

	return functions, nil
}

// buildFunction emits one function definition for a path+verb operation
func (i *Importer) buildFunction(path, verb string, operation map[string]interface{}, metadata *models.ImportMetadata, isV2 bool) models.FunctionDefinition {
	method := strings.ToUpper(verb)

	operationID, _ := operation["operationId"].(string)
	if operationID == "" {
		operationID = synthesizeOperationID(verb, path)
	}

	function := models.FunctionDefinition{
		ID:           operationID,
		Name:         operationID,
		Method:       method,
		Path:         path,
		RequiresAuth: requiresAuth(operation),
	}

	if summary, ok := operation["summary"].(string); ok {
		function.Description = summary
	}
	if description, ok := operation["description"].(string); ok && function.Description == "" {
		function.Description = description
	}

	if deprecated, ok := operation["deprecated"].(bool); ok && deprecated {
		function.Deprecated = true
		if msg, ok := operation["x-deprecation-message"].(string); ok {
			function.DeprecationMessage = msg
		}
	}

	function.Scopes = collectScopes(operation)

	function.Parameters = i.parseParameters(path, operation, metadata, isV2)
	addImplicitPathParameters(&function)

	if isV2 {
		function.RequestBody = i.parseBodyV2(path, method, operation, metadata)
		function.Response = i.parseResponsesV2(operation)
	} else {
		function.RequestBody = i.parseBodyV3(path, method, operation, metadata)
		function.Response = i.parseResponsesV3(operation)
	}

	return function
}

// parseParameters reads the operation's explicit parameters array. Body
// parameters (Swagger 2.0) are handled by parseBodyV2 and skipped here.
func (i *Importer) parseParameters(path string, operation map[string]interface{}, metadata *models.ImportMetadata, isV2 bool) []models.FunctionParameter {
	rawParams, ok := operation["parameters"].([]interface{})
	if !ok {
		return nil
	}

	var parameters []models.FunctionParameter

	for idx, rawParam := range rawParams {
		param, ok := rawParam.(map[string]interface{})
		if !ok {
			metadata.Warnings = append(metadata.Warnings, fmt.Sprintf("path %s: parameter %d is not an object, skipped", path, idx))
			continue
		}

		location, _ := param["in"].(string)
		if location == "body" {
			continue
		}

		name, _ := param["name"].(string)
		if name == "" || location == "" {
			metadata.Warnings = append(metadata.Warnings, fmt.Sprintf("path %s: parameter %d has no name or location, skipped", path, idx))
			continue
		}

		parameter := models.FunctionParameter{
			Name:     name,
			Location: models.ParameterLocation(location),
			Required: boolValue(param["required"]),
		}

		if description, ok := param["description"].(string); ok {
			parameter.Description = description
		}

		// 3.x nests type information under "schema", 2.0 keeps it inline
		typeSource := param
		if !isV2 {
			if schema, ok := param["schema"].(map[string]interface{}); ok {
				typeSource = schema
			}
		}

		parameter.Type = parameterType(typeSource)
		parameter.Default = typeSource["default"]
		parameter.Validation = parseValidation(typeSource)

		parameters = append(parameters, parameter)
	}

	return parameters
}

// addImplicitPathParameters declares every {token} in the path template
// that the operation did not list explicitly
func addImplicitPathParameters(function *models.FunctionDefinition) {
	declared := make(map[string]bool, len(function.Parameters))
	for _, parameter := range function.Parameters {
		if parameter.Location == models.ParameterLocationPath {
			declared[parameter.Name] = true
		}
	}

	for _, match := range pathTokenRegex.FindAllStringSubmatch(function.Path, -1) {
		token := match[1]
		if declared[token] {
			continue
		}
		declared[token] = true
		function.Parameters = append(function.Parameters, models.FunctionParameter{
			Name:     token,
			Type:     models.ParameterTypeString,
			Location: models.ParameterLocationPath,
			Required: true,
		})
	}
}

// parseBodyV3 reads requestBody.content, preferring application/json
func (i *Importer) parseBodyV3(path, method string, operation map[string]interface{}, metadata *models.ImportMetadata) *models.RequestBody {
	requestBody, ok := operation["requestBody"].(map[string]interface{})
	if !ok {
		return nil
	}

	content, ok := requestBody["content"].(map[string]interface{})
	if !ok || len(content) == 0 {
		metadata.Warnings = append(metadata.Warnings, fmt.Sprintf("%s %s: requestBody has no content, skipped", method, path))
		return nil
	}

	contentType := preferredContentType(content)
	body := &models.RequestBody{
		ContentType: contentType,
		Required:    boolValue(requestBody["required"]),
	}

	if media, ok := content[contentType].(map[string]interface{}); ok {
		if schema, ok := media["schema"].(map[string]interface{}); ok {
			body.Schema = schema
		}
	}

	return body
}

// parseBodyV2 reads the in:body parameter and consumes[0]
func (i *Importer) parseBodyV2(path, method string, operation map[string]interface{}, metadata *models.ImportMetadata) *models.RequestBody {
	rawParams, _ := operation["parameters"].([]interface{})

	for _, rawParam := range rawParams {
		param, ok := rawParam.(map[string]interface{})
		if !ok {
			continue
		}
		if location, _ := param["in"].(string); location != "body" {
			continue
		}

		body := &models.RequestBody{
			ContentType: "application/json",
			Required:    boolValue(param["required"]),
		}

		if consumes, ok := operation["consumes"].([]interface{}); ok && len(consumes) > 0 {
			if contentType, ok := consumes[0].(string); ok {
				body.ContentType = contentType
			}
		}

		if schema, ok := param["schema"].(map[string]interface{}); ok {
			body.Schema = schema
		} else {
			metadata.Warnings = append(metadata.Warnings, fmt.Sprintf("%s %s: body parameter has no schema", method, path))
		}

		return body
	}

	return nil
}

// parseResponsesV3 retains every status code and takes the overall schema
// from the first 2xx code
func (i *Importer) parseResponsesV3(operation map[string]interface{}) *models.ResponseDescriptor {
	responses, ok := operation["responses"].(map[string]interface{})
	if !ok || len(responses) == 0 {
		return nil
	}

	descriptor := &models.ResponseDescriptor{
		StatusCodes: make(map[string]models.ResponseInfo, len(responses)),
	}

	for _, code := range sortedKeys(responses) {
		response, ok := responses[code].(map[string]interface{})
		if !ok {
			continue
		}

		info := models.ResponseInfo{}
		info.Description, _ = response["description"].(string)

		var contentType string
		if content, ok := response["content"].(map[string]interface{}); ok && len(content) > 0 {
			contentType = preferredContentType(content)
			if media, ok := content[contentType].(map[string]interface{}); ok {
				info.Schema, _ = media["schema"].(map[string]interface{})
			}
		}

		descriptor.StatusCodes[code] = info

		if descriptor.Schema == nil && isSuccessCode(code) {
			descriptor.Schema = info.Schema
			descriptor.ExpectedFormat = contentType
		}
	}

	return descriptor
}

// parseResponsesV2 is the Swagger 2.0 shape: schema sits directly on the
// response object and the format comes from produces[0]
func (i *Importer) parseResponsesV2(operation map[string]interface{}) *models.ResponseDescriptor {
	responses, ok := operation["responses"].(map[string]interface{})
	if !ok || len(responses) == 0 {
		return nil
	}

	descriptor := &models.ResponseDescriptor{
		StatusCodes: make(map[string]models.ResponseInfo, len(responses)),
	}

	if produces, ok := operation["produces"].([]interface{}); ok && len(produces) > 0 {
		descriptor.ExpectedFormat, _ = produces[0].(string)
	}

	for _, code := range sortedKeys(responses) {
		response, ok := responses[code].(map[string]interface{})
		if !ok {
			continue
		}

		info := models.ResponseInfo{}
		info.Description, _ = response["description"].(string)
		info.Schema, _ = response["schema"].(map[string]interface{})

		descriptor.StatusCodes[code] = info

		if descriptor.Schema == nil && isSuccessCode(code) {
			descriptor.Schema = info.Schema
		}
	}

	return descriptor
}

// resolveBaseURL reads servers[0].url (3.x) or scheme://host/basePath (2.0)
func resolveBaseURL(doc map[string]interface{}, isV2 bool) string {
	if isV2 {
		host, _ := doc["host"].(string)
		if host == "" {
			return ""
		}

		scheme := "https"
		if schemes, ok := doc["schemes"].([]interface{}); ok && len(schemes) > 0 {
			if s, ok := schemes[0].(string); ok {
				scheme = s
			}
		}

		basePath, _ := doc["basePath"].(string)
		return scheme + "://" + host + basePath
	}

	if servers, ok := doc["servers"].([]interface{}); ok && len(servers) > 0 {
		if server, ok := servers[0].(map[string]interface{}); ok {
			url, _ := server["url"].(string)
			return url
		}
	}

	return ""
}

// synthesizeOperationID derives a deterministic id for operations that
// declare none: lower(method) + path stripped of '/', '{' and '}'
func synthesizeOperationID(verb, path string) string {
	sanitized := strings.NewReplacer("/", "", "{", "", "}", "").Replace(path)
	return strings.ToLower(verb) + sanitized
}

// requiresAuth is true unless the operation declares an empty security array
func requiresAuth(operation map[string]interface{}) bool {
	security, ok := operation["security"].([]interface{})
	if ok && len(security) == 0 {
		return false
	}
	return true
}

// collectScopes flattens every scope across the operation's security requirements
func collectScopes(operation map[string]interface{}) []string {
	security, ok := operation["security"].([]interface{})
	if !ok {
		return nil
	}

	var scopes []string
	seen := make(map[string]bool)

	for _, requirement := range security {
		schemes, ok := requirement.(map[string]interface{})
		if !ok {
			continue
		}
		for _, rawScopes := range schemes {
			scopeList, ok := rawScopes.([]interface{})
			if !ok {
				continue
			}
			for _, rawScope := range scopeList {
				if scope, ok := rawScope.(string); ok && !seen[scope] {
					seen[scope] = true
					scopes = append(scopes, scope)
				}
			}
		}
	}

	return scopes
}

// parameterType maps a schema object's type key to the internal type,
// defaulting to string
func parameterType(schema map[string]interface{}) models.ParameterType {
	rawType, _ := schema["type"].(string)
	switch rawType {
	case "integer":
		return models.ParameterTypeInteger
	case "number":
		return models.ParameterTypeNumber
	case "boolean":
		return models.ParameterTypeBoolean
	case "array":
		return models.ParameterTypeArray
	case "object":
		return models.ParameterTypeObject
	default:
		return models.ParameterTypeString
	}
}

// parseValidation extracts declared value constraints; nil when none exist
func parseValidation(schema map[string]interface{}) *models.ValidationRules {
	rules := &models.ValidationRules{}
	found := false

	if pattern, ok := schema["pattern"].(string); ok && pattern != "" {
		rules.Pattern = pattern
		found = true
	}
	if minimum, ok := schema["minimum"].(float64); ok {
		rules.Minimum = &minimum
		found = true
	}
	if maximum, ok := schema["maximum"].(float64); ok {
		rules.Maximum = &maximum
		found = true
	}
	if minLength, ok := schema["minLength"].(float64); ok {
		length := int(minLength)
		rules.MinLength = &length
		found = true
	}
	if maxLength, ok := schema["maxLength"].(float64); ok {
		length := int(maxLength)
		rules.MaxLength = &length
		found = true
	}
	if enum, ok := schema["enum"].([]interface{}); ok && len(enum) > 0 {
		rules.Enum = enum
		found = true
	}

	if !found {
		return nil
	}
	return rules
}

// preferredContentType picks application/json when declared, otherwise
// the first content type in sorted order
func preferredContentType(content map[string]interface{}) string {
	if _, ok := content["application/json"]; ok {
		return "application/json"
	}

	keys := sortedKeys(content)
	if len(keys) > 0 {
		return keys[0]
	}
	return ""
}

// isSuccessCode reports whether a response code string is 2xx
func isSuccessCode(code string) bool {
	return len(code) == 3 && code[0] == '2'
}

// sortedKeys returns map keys in ascending order for deterministic output
func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// boolValue converts an untyped JSON value to bool, treating anything
// but true as false
func boolValue(v interface{}) bool {
	b, _ := v.(bool)
	return b
}
