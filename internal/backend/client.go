// Package backend is the HTTP client for the external verification and inventory backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 1 << 20
	tracerName     = "session-issuance-console/backend"
)

// TokenSource supplies the operator bearer token and is told when the backend rejects it.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Invalidate(token string)
}

// Client calls the backend admin API. Every method makes exactly one HTTP request.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	tokens     TokenSource
	tracer     trace.Tracer
}

// NewClient returns a client for baseURL. timeout <= 0 selects 15s. tokens may be nil for Login-only use.
func NewClient(baseURL string, tokens TokenSource, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
		tracer:     otel.Tracer(tracerName),
	}
}

// call describes one backend request.
type call struct {
	op       string
	method   string
	path     string
	body     any
	auth     bool
	fallback string
}

// do performs c and decodes a 2xx body into out. Non-2xx answers become go-errors envelopes whose
// message is the backend's detail/message, or c.fallback.
func (cl *Client) do(ctx context.Context, c call, out any) error {
	ctx, span := cl.tracer.Start(ctx, "backend."+c.op, trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", c.method),
			attribute.String("url.path", c.path),
		))
	defer span.End()

	err := cl.roundTrip(ctx, span, c, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, c.op+" failed")
	}
	return err
}

func (cl *Client) roundTrip(ctx context.Context, span trace.Span, c call, out any) error {
	meta := map[string]any{"operation": c.op}

	var body io.Reader
	if c.body != nil {
		raw, err := json.Marshal(c.body)
		if err != nil {
			return backendWrapError(err, goerrors.CategoryInternal, "encode request", 0, meta)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, c.method, cl.BaseURL+c.path, body)
	if err != nil {
		return backendWrapError(err, goerrors.CategoryInternal, "build request", 0, meta)
	}
	if c.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	var token string
	if c.auth {
		if cl.tokens == nil {
			return backendError("Operator is not logged in", goerrors.CategoryAuth, http.StatusUnauthorized, meta)
		}
		token, err = cl.tokens.Token(ctx)
		if err != nil {
			category, msg := Classify(err)
			if category == goerrors.CategoryInternal {
				category, msg = goerrors.CategoryAuth, "Operator is not logged in"
			}
			return backendWrapError(err, category, msg, http.StatusUnauthorized, meta)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := cl.HTTPClient.Do(req)
	if err != nil {
		return backendWrapError(err, goerrors.CategoryExternal, "Network error. Could not reach backend.", 0, meta)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return backendWrapError(err, goerrors.CategoryExternal, "Network error. Could not read backend response.", resp.StatusCode, meta)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		meta["status"] = resp.StatusCode
		if resp.StatusCode == http.StatusUnauthorized && token != "" {
			cl.tokens.Invalidate(token)
		}
		msg := errorMessage(raw)
		if msg == "" {
			msg = c.fallback
		}
		return backendError(msg, statusCategory(resp.StatusCode), resp.StatusCode, meta)
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return backendWrapError(err, goerrors.CategoryExternal, fmt.Sprintf("Unexpected backend response for %s", c.op), resp.StatusCode, meta)
	}
	return nil
}

// errorMessage extracts "detail", "message" or "error" from an error body. FastAPI validation
// details (arrays) are ignored.
func errorMessage(raw []byte) string {
	var env struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return ""
	}
	if len(env.Detail) > 0 {
		var s string
		if json.Unmarshal(env.Detail, &s) == nil && s != "" {
			return s
		}
	}
	if env.Message != "" {
		return env.Message
	}
	return env.Error
}

func rejected(success *bool) bool {
	return success != nil && !*success
}

func orFallback(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}
