// Package http provides the shared outbound HTTP client used by the
// schema importers and the ApiCall/Pagination steps.
package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/clbanning/mxj/v2"
	"golang.org/x/time/rate"

	"api-collector/internal/common/errors"
)

// ClientConfig holds HTTP client configuration
type ClientConfig struct {
	Timeout             time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	DisableKeepAlives   bool
	DisableCompression  bool
	InsecureSkipVerify  bool
	Transport           http.RoundTripper
	RequestsPerSecond   float64
}

// DefaultClientConfig returns default HTTP client configuration
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:             30 * time.Second,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		RequestsPerSecond:   50,
	}
}

// ClientOption is a function that modifies ClientConfig
type ClientOption func(*ClientConfig)

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.Timeout = timeout
	}
}

// WithTransport sets a custom transport
func WithTransport(transport http.RoundTripper) ClientOption {
	return func(c *ClientConfig) {
		c.Transport = transport
	}
}

// WithInsecureSkipVerify disables SSL certificate verification
func WithInsecureSkipVerify() ClientOption {
	return func(c *ClientConfig) {
		c.InsecureSkipVerify = true
	}
}

// WithRequestsPerSecond bounds the outbound request rate
func WithRequestsPerSecond(rps float64) ClientOption {
	return func(c *ClientConfig) {
		c.RequestsPerSecond = rps
	}
}

// NewHTTPClient creates a new http.Client with the given options
func NewHTTPClient(opts ...ClientOption) *http.Client {
	cfg := DefaultClientConfig()

	for _, opt := range opts {
		opt(&cfg)
	}

	var transport http.RoundTripper
	if cfg.Transport != nil {
		transport = cfg.Transport
	} else {
		httpTransport := &http.Transport{
			MaxIdleConns:        cfg.MaxIdleConns,
			MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
			IdleConnTimeout:     cfg.IdleConnTimeout,
			DisableKeepAlives:   cfg.DisableKeepAlives,
			DisableCompression:  cfg.DisableCompression,
		}

		if cfg.InsecureSkipVerify {
			httpTransport.TLSClientConfig = &tls.Config{
				InsecureSkipVerify: true,
			}
		}

		transport = httpTransport
	}

	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
	}
}

// Request describes one outbound call
type Request struct {
	Method      string
	URL         string
	Headers     map[string]string
	QueryParams map[string]string
	Body        []byte
	ContentType string
}

// Response is an HTTP response with its body decoded when possible
type Response struct {
	StatusCode int
	Headers    map[string]string
	RawBody    []byte
	// Body holds the decoded payload: a map or slice for JSON and XML
	// responses, the raw string otherwise
	Body     interface{}
	Duration time.Duration
}

// IsSuccess reports whether the status code is 2xx
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Caller performs outbound requests with rate limiting and body decoding
type Caller struct {
	client  *http.Client
	limiter *rate.Limiter
}

// NewCaller creates a rate-limited caller around a configured client
func NewCaller(opts ...ClientOption) *Caller {
	cfg := DefaultClientConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 50
	}

	return &Caller{
		client:  NewHTTPClient(opts...),
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)),
	}
}

// NewCallerWithClient wraps an existing client, used by tests
func NewCallerWithClient(client *http.Client) *Caller {
	return &Caller{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(50), 50),
	}
}

// Do performs the request and decodes the response body by content type
func (c *Caller) Do(ctx context.Context, req *Request) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.ConnectionError("request rate limiter interrupted", err)
	}

	targetURL, err := buildURL(req.URL, req.QueryParams)
	if err != nil {
		return nil, errors.ValidationError(fmt.Sprintf("invalid request url: %v", err))
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, targetURL, body)
	if err != nil {
		return nil, errors.ValidationError(fmt.Sprintf("invalid request: %v", err))
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}

	started := time.Now()
	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, errors.ConnectionError(fmt.Sprintf("request to %s failed", req.URL), err)
	}
	defer httpResp.Body.Close()

	rawBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, errors.ConnectionError("failed to read response body", err)
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    flattenHeaders(httpResp.Header),
		RawBody:    rawBody,
		Duration:   time.Since(started),
	}
	resp.Body = decodeBody(rawBody, httpResp.Header.Get("Content-Type"))

	return resp, nil
}

// buildURL appends query parameters to a base URL
func buildURL(base string, queryParams map[string]string) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", err
	}

	if len(queryParams) > 0 {
		query := parsed.Query()
		for key, value := range queryParams {
			query.Set(key, value)
		}
		parsed.RawQuery = query.Encode()
	}

	return parsed.String(), nil
}

// flattenHeaders keeps the first value of each response header
func flattenHeaders(header http.Header) map[string]string {
	flat := make(map[string]string, len(header))
	for key, values := range header {
		if len(values) > 0 {
			flat[key] = values[0]
		}
	}
	return flat
}

// decodeBody parses JSON and XML bodies into generic values. SOAP
// endpoints answer XML, which mxj flattens into a map so downstream
// steps see one payload shape regardless of wire format.
func decodeBody(rawBody []byte, contentType string) interface{} {
	if len(rawBody) == 0 {
		return nil
	}

	switch {
	case strings.Contains(contentType, "json"):
		var decoded interface{}
		if err := json.Unmarshal(rawBody, &decoded); err == nil {
			return decoded
		}
	case strings.Contains(contentType, "xml"):
		if decoded, err := mxj.NewMapXml(rawBody); err == nil {
			return map[string]interface{}(decoded)
		}
	default:
		// Content sniffing for servers that omit the header
		trimmed := bytes.TrimSpace(rawBody)
		if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
			var decoded interface{}
			if err := json.Unmarshal(trimmed, &decoded); err == nil {
				return decoded
			}
		}
	}

	return string(rawBody)
}
