// Package wsdl imports WSDL/SOAP service descriptions into the normalized
// function model.
package wsdl

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"api-collector/internal/common/errors"
	"api-collector/internal/common/logging"
	"api-collector/internal/models"
)

// WSDL and SOAP binding namespaces
const (
	wsdlNamespace   = "http://schemas.xmlsoap.org/wsdl/"
	soap11Namespace = "http://schemas.xmlsoap.org/wsdl/soap/"
	soap12Namespace = "http://schemas.xmlsoap.org/wsdl/soap12/"
	xmlnsNamespace  = "http://www.w3.org/2000/xmlns/"
)

// xsdTypeTable maps XSD simple types to internal parameter types.
// Anything absent defaults to string.
var xsdTypeTable = map[string]models.ParameterType{
	"string":        models.ParameterTypeString,
	"int":           models.ParameterTypeInteger,
	"integer":       models.ParameterTypeInteger,
	"long":          models.ParameterTypeInteger,
	"short":         models.ParameterTypeInteger,
	"byte":          models.ParameterTypeInteger,
	"unsignedInt":   models.ParameterTypeInteger,
	"unsignedLong":  models.ParameterTypeInteger,
	"unsignedShort": models.ParameterTypeInteger,
	"decimal":       models.ParameterTypeNumber,
	"float":         models.ParameterTypeNumber,
	"double":        models.ParameterTypeNumber,
	"boolean":       models.ParameterTypeBoolean,
}

// xmlNode is a generic namespace-aware XML element
type xmlNode struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Nodes   []xmlNode  `xml:",any"`
	Text    string     `xml:",chardata"`
}

// attr returns the value of the first attribute with the given local name
func (n *xmlNode) attr(local string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// children returns child elements matching namespace and local name.
// An empty namespace matches any.
func (n *xmlNode) children(space, local string) []*xmlNode {
	var matches []*xmlNode
	for i := range n.Nodes {
		child := &n.Nodes[i]
		if child.XMLName.Local != local {
			continue
		}
		if space != "" && child.XMLName.Space != space {
			continue
		}
		matches = append(matches, child)
	}
	return matches
}

// child returns the first matching child element, or nil
func (n *xmlNode) child(space, local string) *xmlNode {
	matches := n.children(space, local)
	if len(matches) == 0 {
		return nil
	}
	return matches[0]
}

// messagePart is one <part> of an input or output message
type messagePart struct {
	name    string
	element string
	xsdType string
}

// Importer parses WSDL documents
type Importer struct {
	logger logging.Logger
}

// New creates a WSDL importer
func New() *Importer {
	return &Importer{logger: logging.GetGlobalLogger()}
}

// Type returns the schema type handled by this importer
func (i *Importer) Type() string {
	return "wsdl"
}

// Parse normalizes a WSDL document into one function per portType operation
func (i *Importer) Parse(_ context.Context, source string) ([]models.FunctionDefinition, *models.ImportMetadata, error) {
	var root xmlNode
	if err := xml.Unmarshal([]byte(source), &root); err != nil {
		return nil, nil, errors.FormatError("document is not valid XML", err)
	}

	wsdlNS, err := resolveWSDLNamespace(&root)
	if err != nil {
		return nil, nil, err
	}

	targetNamespace := root.attr("targetNamespace")

	metadata := &models.ImportMetadata{
		SourceType: "wsdl",
		ImportedAt: time.Now().UTC(),
	}

	if service := root.child(wsdlNS, "service"); service != nil {
		metadata.Title = service.attr("name")
		metadata.BaseURL = resolveEndpointAddress(service, wsdlNS)
	}

	messages := collectMessages(&root, wsdlNS)
	bindings := root.children(wsdlNS, "binding")

	var functions []models.FunctionDefinition
	usedIDs := make(map[string]bool)

	for _, portType := range root.children(wsdlNS, "portType") {
		portTypeName := portType.attr("name")

		for _, operation := range portType.children(wsdlNS, "operation") {
			operationName := operation.attr("name")
			if operationName == "" {
				metadata.Warnings = append(metadata.Warnings,
					fmt.Sprintf("portType %s: operation without a name, skipped", portTypeName))
				continue
			}

			function := i.buildFunction(operation, operationName, targetNamespace, wsdlNS, messages, bindings, metadata)

			if usedIDs[function.ID] {
				function.ID = portTypeName + "_" + function.ID
			}
			usedIDs[function.ID] = true

			functions = append(functions, function)
		}
	}

	i.logger.Debug("parsed wsdl document",
		logging.String("service", metadata.Title),
		logging.Int("functions", len(functions)),
	)

	return functions, metadata, nil
}

// buildFunction emits one function for a portType operation
func (i *Importer) buildFunction(operation *xmlNode, operationName, targetNamespace, wsdlNS string, messages map[string][]messagePart, bindings []*xmlNode, metadata *models.ImportMetadata) models.FunctionDefinition {
	function := models.FunctionDefinition{
		ID:           operationName,
		Name:         operationName,
		Method:       "POST",
		Path:         "/soap",
		RequiresAuth: true,
		Attributes: map[string]string{
			models.AttrTargetNamespace: targetNamespace,
		},
	}

	if doc := operation.child(wsdlNS, "documentation"); doc != nil {
		function.Description = strings.TrimSpace(doc.Text)
	}

	if action := resolveSOAPAction(bindings, operationName, wsdlNS); action != "" {
		function.Attributes[models.AttrSOAPAction] = action
	}

	var inputMessage string
	if input := operation.child(wsdlNS, "input"); input != nil {
		inputMessage = localName(input.attr("message"))
		function.Attributes[models.AttrInputMessage] = inputMessage
	}
	if output := operation.child(wsdlNS, "output"); output != nil {
		function.Attributes[models.AttrOutputMessage] = localName(output.attr("message"))
	}

	if inputMessage != "" {
		parts, ok := messages[inputMessage]
		if !ok {
			metadata.Warnings = append(metadata.Warnings,
				fmt.Sprintf("operation %s: input message %s not found", operationName, inputMessage))
		}
		for _, part := range parts {
			parameter, err := partToParameter(part)
			if err != nil {
				metadata.Warnings = append(metadata.Warnings,
					fmt.Sprintf("operation %s: part skipped: %v", operationName, err))
				continue
			}
			function.Parameters = append(function.Parameters, parameter)
		}
	}

	return function
}

// resolveWSDLNamespace finds the namespace the document binds to the wsdl
// prefix, falling back to the root's own namespace when the root element
// is literally "definitions"
func resolveWSDLNamespace(root *xmlNode) (string, error) {
	for _, a := range root.Attrs {
		if a.Name.Local == "wsdl" && (a.Name.Space == "xmlns" || a.Name.Space == xmlnsNamespace) {
			return a.Value, nil
		}
	}

	if root.XMLName.Local == "definitions" {
		if root.XMLName.Space != "" {
			return root.XMLName.Space, nil
		}
		return wsdlNamespace, nil
	}

	return "", errors.FormatError("document is not a WSDL definitions document", nil)
}

// resolveEndpointAddress locates the first SOAP 1.1 or 1.2 address under
// any service port, first match wins
func resolveEndpointAddress(service *xmlNode, wsdlNS string) string {
	for _, port := range service.children(wsdlNS, "port") {
		for _, ns := range []string{soap11Namespace, soap12Namespace} {
			if address := port.child(ns, "address"); address != nil {
				return address.attr("location")
			}
		}
	}
	return ""
}

// collectMessages indexes every message's parts by message name
func collectMessages(root *xmlNode, wsdlNS string) map[string][]messagePart {
	messages := make(map[string][]messagePart)

	for _, message := range root.children(wsdlNS, "message") {
		name := message.attr("name")
		if name == "" {
			continue
		}

		var parts []messagePart
		for _, part := range message.children(wsdlNS, "part") {
			parts = append(parts, messagePart{
				name:    part.attr("name"),
				element: part.attr("element"),
				xsdType: part.attr("type"),
			})
		}
		messages[name] = parts
	}

	return messages
}

// resolveSOAPAction scans every binding for an operation child matching
// the portType operation name and returns the first soapAction found,
// SOAP 1.1 before 1.2. This is a first-match heuristic: bindings are not
// namespace-disambiguated, so two bindings sharing an operation name
// resolve to whichever binding appears first.
func resolveSOAPAction(bindings []*xmlNode, operationName, wsdlNS string) string {
	for _, binding := range bindings {
		for _, operation := range binding.children(wsdlNS, "operation") {
			if operation.attr("name") != operationName {
				continue
			}
			for _, ns := range []string{soap11Namespace, soap12Namespace} {
				if soapOp := operation.child(ns, "operation"); soapOp != nil {
					if action := soapOp.attr("soapAction"); action != "" {
						return action
					}
				}
			}
		}
	}
	return ""
}

// partToParameter converts one message part. An element reference keeps
// the element's local name as the semantic type in the description; a
// plain XSD type maps through the fixed type table. Every SOAP parameter
// travels in the body and is required.
func partToParameter(part messagePart) (models.FunctionParameter, error) {
	parameter := models.FunctionParameter{
		Location: models.ParameterLocationBody,
		Required: true,
	}

	switch {
	case part.element != "":
		element := localName(part.element)
		parameter.Name = part.name
		if parameter.Name == "" {
			parameter.Name = element
		}
		parameter.Type = models.ParameterTypeObject
		parameter.Description = element
	case part.xsdType != "":
		if part.name == "" {
			return models.FunctionParameter{}, fmt.Errorf("part with type %s has no name", part.xsdType)
		}
		parameter.Name = part.name
		parameter.Type = mapXSDType(part.xsdType)
	default:
		return models.FunctionParameter{}, fmt.Errorf("part %q declares neither element nor type", part.name)
	}

	return parameter, nil
}

// mapXSDType resolves an XSD type reference through the fixed table
func mapXSDType(ref string) models.ParameterType {
	if mapped, ok := xsdTypeTable[localName(ref)]; ok {
		return mapped
	}
	return models.ParameterTypeString
}

// localName strips any namespace prefix from a qualified name
func localName(qualified string) string {
	if idx := strings.LastIndex(qualified, ":"); idx >= 0 {
		return qualified[idx+1:]
	}
	return qualified
}
