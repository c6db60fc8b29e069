package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/clbanning/mxj/v2"

	"api-collector/internal/common/errors"
	commonhttp "api-collector/internal/common/http"
	"api-collector/internal/models"
	"api-collector/internal/pipeline/core"
	"api-collector/internal/pipeline/fieldpath"
	"api-collector/internal/pipeline/resolver"
)

var (
	callerMu      sync.RWMutex
	defaultCaller *commonhttp.Caller
)

// SetCaller installs the HTTP caller used by ApiCall and Pagination
// steps. Called once during wiring; tests install callers pointed at
// local servers.
func SetCaller(c *commonhttp.Caller) {
	callerMu.Lock()
	defer callerMu.Unlock()
	defaultCaller = c
}

func getCaller() *commonhttp.Caller {
	callerMu.RLock()
	c := defaultCaller
	callerMu.RUnlock()
	if c != nil {
		return c
	}

	callerMu.Lock()
	defer callerMu.Unlock()
	if defaultCaller == nil {
		defaultCaller = commonhttp.NewCaller()
	}
	return defaultCaller
}

// callTarget bundles everything needed to perform the pipeline's
// function call: the catalog function, the resolved parameters and the
// datasource base URL, all placed in the run context by the coordinator.
type callTarget struct {
	function *models.FunctionDefinition
	params   *resolver.Resolved
	baseURL  string
}

func targetFromContext(runCtx *core.Context) (*callTarget, error) {
	raw, ok := runCtx.Get(core.KeyFunction)
	if !ok {
		return nil, errors.InternalError("no function bound to execution context", nil)
	}
	function, ok := raw.(*models.FunctionDefinition)
	if !ok {
		return nil, errors.InternalError("execution context holds an invalid function", nil)
	}

	params := &resolver.Resolved{}
	if raw, ok := runCtx.Get(core.KeyParameters); ok {
		if resolved, ok := raw.(*resolver.Resolved); ok {
			params = resolved
		}
	}

	baseURL := ""
	if raw, ok := runCtx.Get(core.KeyBaseURL); ok {
		baseURL, _ = raw.(string)
	}

	return &callTarget{function: function, params: params, baseURL: baseURL}, nil
}

// performCall builds and executes one HTTP request against the target
// with the given parameter set, returning the decoded response payload.
func performCall(ctx context.Context, target *callTarget, params *resolver.Resolved, timeout string) (interface{}, error) {
	req, err := buildRequest(target, params)
	if err != nil {
		return nil, err
	}

	if timeout != "" {
		if d, parseErr := time.ParseDuration(timeout); parseErr == nil && d > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
	}

	resp, err := getCaller().Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, errors.ConnectionError(
			fmt.Sprintf("%s %s returned status %d", req.Method, target.function.Path, resp.StatusCode), nil)
	}

	return resp.Body, nil
}

func buildRequest(target *callTarget, params *resolver.Resolved) (*commonhttp.Request, error) {
	path, err := substitutePath(target.function.Path, params.Path)
	if err != nil {
		return nil, err
	}

	req := &commonhttp.Request{
		Method:      target.function.Method,
		URL:         strings.TrimRight(target.baseURL, "/") + path,
		Headers:     make(map[string]string),
		QueryParams: params.Query,
	}
	for k, v := range params.Header {
		req.Headers[k] = v
	}

	if len(params.Body) == 0 {
		return req, nil
	}

	if action := target.function.Attribute(models.AttrSOAPAction); action != "" {
		return soapRequest(req, target.function, params.Body, action)
	}

	body, err := json.Marshal(params.Body)
	if err != nil {
		return nil, errors.InternalError("failed to encode request body", err)
	}
	req.Body = body
	req.ContentType = "application/json"
	if target.function.RequestBody != nil && target.function.RequestBody.ContentType != "" {
		req.ContentType = target.function.RequestBody.ContentType
	}

	return req, nil
}

// soapRequest wraps the body parameters in a SOAP 1.1 envelope with the
// operation element in the service's target namespace.
func soapRequest(req *commonhttp.Request, function *models.FunctionDefinition, body map[string]interface{}, action string) (*commonhttp.Request, error) {
	operation := map[string]interface{}{}
	for k, v := range body {
		operation[k] = v
	}
	if ns := function.Attribute(models.AttrTargetNamespace); ns != "" {
		operation["-xmlns"] = ns
	}

	envelope := mxj.Map{
		"soap:Envelope": map[string]interface{}{
			"-xmlns:soap": "http://schemas.xmlsoap.org/soap/envelope/",
			"soap:Body": map[string]interface{}{
				function.Name: operation,
			},
		},
	}

	encoded, err := envelope.Xml()
	if err != nil {
		return nil, errors.InternalError("failed to encode soap envelope", err)
	}

	req.Body = encoded
	req.ContentType = "text/xml; charset=utf-8"
	req.Headers["SOAPAction"] = action
	return req, nil
}

func substitutePath(path string, values map[string]string) (string, error) {
	result := path
	for name, value := range values {
		result = strings.ReplaceAll(result, "{"+name+"}", url.PathEscape(value))
	}

	if i := strings.IndexByte(result, '{'); i >= 0 {
		return "", errors.InternalError(fmt.Sprintf("unresolved path segment in %s", result), nil)
	}
	return result, nil
}

// projectResponse applies an optional response path to the decoded
// payload, failing when the path does not resolve.
func projectResponse(payload interface{}, responsePath string) (interface{}, error) {
	if responsePath == "" {
		return payload, nil
	}
	value, ok := fieldpath.Get(payload, responsePath)
	if !ok {
		return nil, errors.ValidationError(fmt.Sprintf("response path %s not found in payload", responsePath))
	}
	return value, nil
}
