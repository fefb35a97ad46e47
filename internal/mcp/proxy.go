package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bobmcallan/openapi-mcp/internal/common"
	"github.com/bobmcallan/openapi-mcp/internal/config"
)

// defaultMaxResponseSize caps a response body when no limit is configured.
const defaultMaxResponseSize = 50 << 20 // 50MB

// Proxy turns validated tool arguments into an HTTP request against the
// integration and renders the response as a tool result.
type Proxy struct {
	httpClient      *http.Client
	logger          *common.Logger
	redactor        *Redactor
	maxResponseSize int64
	now             func() time.Time
}

// NewProxy creates a proxy with the configured timeout and response limit.
func NewProxy(cfg config.HTTPConfig, redactor *Redactor, logger *common.Logger) *Proxy {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	limit := cfg.MaxResponseBytes
	if limit <= 0 {
		limit = defaultMaxResponseSize
	}
	return &Proxy{
		httpClient:      &http.Client{Timeout: timeout},
		logger:          logger,
		redactor:        redactor,
		maxResponseSize: limit,
		now:             time.Now,
	}
}

// outbound is the request assembled from one tool call.
type outbound struct {
	Method  string
	URL     string
	Params  map[string]any
	Data    any
	Headers map[string]string

	query   url.Values
	cookies map[string]string
}

// Execute dispatches one call. Failures come back as error results, never as Go errors.
func (p *Proxy) Execute(ctx context.Context, ep *Endpoint, args map[string]any, env config.Environment) *mcp.CallToolResult {
	req := p.build(ep, args, env)

	body, err := p.do(ctx, ep, req)
	if err != nil {
		return errorResult(p.formatError(req, err))
	}
	return &mcp.CallToolResult{Content: []mcp.Content{mcp.NewTextContent(p.redactor.Body(body))}}
}

// build routes arguments by location and injects credentials from the environment.
func (p *Proxy) build(ep *Endpoint, args map[string]any, env config.Environment) *outbound {
	req := &outbound{
		Method:  ep.Method,
		URL:     ep.URL(),
		Params:  map[string]any{},
		Headers: map[string]string{},
		query:   url.Values{},
		cookies: map[string]string{},
	}

	rest := make(map[string]any, len(args))
	for k, v := range args {
		rest[k] = v
	}
	if body, ok := rest[bodyKey]; ok {
		req.Data = body
		delete(rest, bodyKey)
	}

	for _, key := range sortedArgKeys(rest) {
		value := rest[key]
		switch {
		case ep.Paths[key] != nil:
			req.URL = strings.ReplaceAll(req.URL, "{"+key+"}", url.PathEscape(stringify(value)))
		case ep.Queries[key] != nil:
			req.Params[key] = value
			addQuery(req.query, key, value)
		case ep.Headers[key] != nil:
			req.Headers[key] = stringify(value)
		case ep.Cookies[key] != nil:
			req.cookies[key] = stringify(value)
		}
	}

	p.injectSecurity(ep, env, req)

	if env.SignRequests {
		sig, err := Signature(env.ClientID(), env.PublicKey, p.now())
		if err != nil {
			p.logger.Error().Str("integration", ep.Integration).Str("tool", ep.Title).Err(err).Msg("failed to sign request")
		} else {
			req.Headers[signatureHeader] = sig
		}
	}
	return req
}

// injectSecurity fills security parameters from composite keys and from the
// environment's location maps. Environment values override caller values.
func (p *Proxy) injectSecurity(ep *Endpoint, env config.Environment, req *outbound) {
	for _, sp := range ep.Security {
		value, ok := securityValue(env, sp)
		if direct, has := env.Location(sp.In)[sp.Name]; has && direct != "" {
			value, ok = direct, true
		}
		if !ok {
			continue
		}
		switch sp.In {
		case "header":
			if sp.Type == "http" && sp.Scheme == "bearer" {
				req.Headers["Authorization"] = "Bearer " + value
				continue
			}
			req.Headers[sp.Name] = value
		case "query":
			req.Params[sp.Name] = value
			req.query.Set(sp.Name, value)
		case "cookie":
			req.cookies[sp.Name] = value
		}
	}
}

func (p *Proxy) do(ctx context.Context, ep *Endpoint, out *outbound) ([]byte, error) {
	target := out.URL
	if len(out.query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + out.query.Encode()
	}

	var bodyReader io.Reader
	if out.Data != nil {
		data, err := json.Marshal(out.Data)
		if err != nil {
			return nil, &ExecutionError{Message: fmt.Sprintf("failed to marshal request: %v", err)}
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, out.Method, target, bodyReader)
	if err != nil {
		return nil, &ExecutionError{Message: err.Error()}
	}
	req.Header.Set("Accept", "application/json")
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range out.Headers {
		req.Header.Set(k, v)
	}
	for _, name := range sortedKeys(out.cookies) {
		req.AddCookie(&http.Cookie{Name: name, Value: out.cookies[name]})
	}

	p.logger.Debug().Str("method", out.Method).Str("path", ep.Path).Str("integration", ep.Integration).Msg("proxy request")

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		p.logger.Error().Str("method", out.Method).Str("path", ep.Path).Int64("duration_ms", duration.Milliseconds()).Str("error", err.Error()).Msg("proxy request failed")
		return nil, &ExecutionError{Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, p.maxResponseSize+1))
	if err != nil {
		return nil, &ExecutionError{Status: resp.StatusCode, Message: fmt.Sprintf("failed to read response: %v", err)}
	}
	if int64(len(body)) > p.maxResponseSize {
		return nil, &ExecutionError{
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("response exceeds %d bytes", p.maxResponseSize),
		}
	}

	p.logger.Debug().Int("status", resp.StatusCode).Int64("duration_ms", duration.Milliseconds()).Msg("proxy response")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ExecutionError{
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("Request failed with status code %d", resp.StatusCode),
			Payload: p.redactor.Body(body),
		}
	}
	return body, nil
}

// formatError renders the failure with the received payload, the message and
// the masked request echo.
func (p *Proxy) formatError(out *outbound, err error) string {
	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		execErr = &ExecutionError{Message: err.Error()}
	}
	execErr.Request = map[string]any{
		"method":  out.Method,
		"url":     out.URL,
		"headers": p.redactor.Headers(out.Headers),
	}
	if len(out.Params) > 0 {
		execErr.Request["params"] = out.Params
	}
	if out.Data != nil {
		execErr.Request["data"] = p.redactor.Value(out.Data)
	}

	payload := execErr.Payload
	if payload == "" {
		payload = "{}"
	}
	echo := map[string]any{
		"message": execErr.Message,
		"config":  execErr.Request,
	}
	if execErr.Status != 0 {
		echo["status"] = execErr.Status
	}
	return fmt.Sprintf("receivedPayload: %s\n\n errorMessage: %s\n\n%s", payload, execErr.Message, p.redactor.encode(echo))
}

func addQuery(q url.Values, key string, value any) {
	switch v := value.(type) {
	case []any:
		for _, item := range v {
			q.Add(key, stringify(item))
		}
	case nil:
	default:
		q.Set(key, stringify(v))
	}
}

// stringify renders scalars plainly and containers as JSON.
func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case nil:
		return ""
	case map[string]any, []any:
		data, _ := json.Marshal(x)
		return string(data)
	}
	return fmt.Sprint(v)
}

func sortedArgKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
