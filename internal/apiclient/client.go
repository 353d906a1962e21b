// Package apiclient issues every request the storefront client makes and
// folds each outcome, success or failure, into a single Result.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/theLastOfCats/storefront/internal/logger"
)

// Credentials is the part of the token store the client needs.
type Credentials interface {
	Token(ctx context.Context) (string, error)
	Clear(ctx context.Context)
	ClearProfile(ctx context.Context)
}

type Kind string

const (
	KindNone         Kind = ""
	KindAuthRequired Kind = "auth_required"
	KindUnauthorized Kind = "unauthorized"
	KindNetwork      Kind = "network"
	KindHTTP         Kind = "http"
	KindDecode       Kind = "decode"
)

type Request struct {
	Endpoint string
	Method   string
	Data     any
	Params   map[string]any
	Headers  map[string]string
	// Public skips the credential. Requests are authenticated by default.
	Public bool
}

type Result struct {
	Success bool
	Status  int
	Data    json.RawMessage
	Error   string
	Kind    Kind
	// Code is the machine-readable error code from the response body, if any.
	Code string
}

// Error is the error form of a failed Result.
type Error struct {
	Status  int
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

// Err returns nil for a successful result.
func (r Result) Err() error {
	if r.Success {
		return nil
	}
	return &Error{Status: r.Status, Kind: r.Kind, Code: r.Code, Message: r.Error}
}

// Decode unmarshals the body of a successful result into v.
func (r Result) Decode(v any) error {
	if err := r.Err(); err != nil {
		return err
	}
	if len(r.Data) == 0 {
		return nil
	}
	return json.Unmarshal(r.Data, v)
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
	Tokens  Credentials

	mu             sync.Mutex
	onUnauthorized []func(ctx context.Context)
}

func New(baseURL string, tokens Credentials) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    http.DefaultClient,
		Tokens:  tokens,
	}
}

// OnUnauthorized registers fn to run after a 401 has cleared the stored
// credential. The returned func removes the subscription.
func (c *Client) OnUnauthorized(fn func(ctx context.Context)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = append(c.onUnauthorized, fn)
	idx := len(c.onUnauthorized) - 1
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.onUnauthorized[idx] = nil
	}
}

// HasCredential reports whether a bearer credential is stored.
func (c *Client) HasCredential(ctx context.Context) bool {
	token, err := c.Tokens.Token(ctx)
	return err == nil && token != ""
}

func (c *Client) Call(ctx context.Context, req Request) Result {
	start := time.Now()
	res := c.do(ctx, req)

	logger.Logger.Debug().
		Str("method", req.Method).
		Str("endpoint", req.Endpoint).
		Int("status", res.Status).
		Bool("success", res.Success).
		Str("kind", string(res.Kind)).
		Dur("duration", time.Since(start)).
		Msg("api call")
	return res
}

func (c *Client) do(ctx context.Context, req Request) Result {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	var token string
	if !req.Public {
		t, err := c.Tokens.Token(ctx)
		if err != nil || t == "" {
			return Result{Kind: KindAuthRequired, Error: "Authentication required"}
		}
		token = t
	}

	target := c.BaseURL + req.Endpoint
	if q := encodeParams(req.Params); q != "" {
		target += "?" + q
	}

	var body io.Reader
	if req.Data != nil && hasBody(method) {
		raw, err := json.Marshal(req.Data)
		if err != nil {
			return Result{Kind: KindDecode, Error: fmt.Sprintf("encode request: %v", err)}
		}
		body = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return Result{Kind: KindNetwork, Error: err.Error()}
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return Result{Kind: KindNetwork, Error: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{Status: resp.StatusCode, Kind: KindNetwork, Error: err.Error()}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if len(bytes.TrimSpace(raw)) > 0 && !json.Valid(raw) {
			return Result{Status: resp.StatusCode, Kind: KindDecode, Error: "Invalid JSON response"}
		}
		return Result{Success: true, Status: resp.StatusCode, Data: raw}
	}

	res := Result{Status: resp.StatusCode, Kind: KindHTTP, Data: raw}
	res.Error, res.Code = errorMessage(raw, resp.StatusCode)

	if resp.StatusCode == http.StatusUnauthorized {
		res.Kind = KindUnauthorized
		c.unauthorized(ctx)
	}
	return res
}

func (c *Client) unauthorized(ctx context.Context) {
	c.Tokens.Clear(ctx)
	c.Tokens.ClearProfile(ctx)
	logger.Logger.Info().Msg("credential rejected by server, cleared local session")

	c.mu.Lock()
	subscribers := append([]func(context.Context){}, c.onUnauthorized...)
	c.mu.Unlock()

	for _, fn := range subscribers {
		if fn != nil {
			fn(ctx)
		}
	}
}

func errorMessage(raw []byte, status int) (string, string) {
	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Code    string `json:"code"`
	}
	_ = json.Unmarshal(raw, &envelope)

	switch {
	case envelope.Message != "":
		return envelope.Message, envelope.Code
	case envelope.Error != "":
		return envelope.Error, envelope.Code
	default:
		return fmt.Sprintf("HTTP %d", status), envelope.Code
	}
}

func hasBody(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch
}

// encodeParams drops nil values, including typed nil pointers.
func encodeParams(params map[string]any) string {
	values := url.Values{}
	for k, v := range params {
		if v == nil {
			continue
		}
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Pointer {
			if rv.IsNil() {
				continue
			}
			v = rv.Elem().Interface()
		}
		values.Set(k, fmt.Sprint(v))
	}
	return values.Encode()
}
