package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/rflorenc/shopify-metadata-migrator/internal/models"
)

// ErrGraphQL is matched by every error caused by a non-empty "errors" array
// in a GraphQL response.
const ErrGraphQL = errors.ConstError("GraphQL request failed")

// ErrNoData is matched when a response without errors carries no "data".
const ErrNoData = errors.ConstError("GraphQL response carries no data")

// GraphQLError is one entry of the top-level "errors" array.
type GraphQLError struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// RequestError carries the protocol-level errors of a failed request.
type RequestError struct {
	Errors []GraphQLError
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: %s", ErrGraphQL, formatGraphQLErrors(e.Errors))
}

// Unwrap lets errors.Is(err, ErrGraphQL) match.
func (e *RequestError) Unwrap() error {
	return ErrGraphQL
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors json.RawMessage `json:"errors,omitempty"`
}

// Client performs GraphQL requests against a single Admin API endpoint.
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
	logger     *zap.SugaredLogger
	trace      bool
}

// ClientOption customises a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds each request. Zero means no timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient = &http.Client{Timeout: d}
	}
}

// WithLogger sets the logger used for protocol errors and tracing.
func WithLogger(l *zap.SugaredLogger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTrace enables logging of request and response bodies at debug level.
// The access token is never logged.
func WithTrace(enabled bool) ClientOption {
	return func(c *Client) {
		c.trace = enabled
	}
}

// NewClient creates a Client for a store.
func NewClient(store *models.Store, opts ...ClientOption) *Client {
	return NewEndpointClient(store.Endpoint(), store.Token, opts...)
}

// NewEndpointClient creates a Client for an explicit endpoint URL.
func NewEndpointClient(endpoint, token string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:   endpoint,
		token:      token,
		httpClient: &http.Client{},
		logger:     zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the URL requests are sent to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Do posts a query with its variables and decodes the "data" member into out.
// A nil variables map is sent as an empty object. A JSON body with errors is
// a protocol failure whatever the HTTP status; other non-2xx responses are
// reported by status.
func (c *Client) Do(ctx context.Context, query string, variables map[string]any, out any) error {
	if variables == nil {
		variables = map[string]any{}
	}
	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return errors.Annotate(err, "marshaling body")
	}
	if c.trace {
		c.logger.Debugw("GraphQL request", "endpoint", c.endpoint, "query", query, "variables", variables)
	}

	body, status, err := c.post(ctx, payload)
	if err != nil {
		return err
	}
	if c.trace {
		c.logger.Debugw("GraphQL response", "endpoint", c.endpoint, "status", status, "body", string(body))
	}

	var resp graphQLResponse
	parseErr := json.Unmarshal(body, &resp)
	if parseErr == nil {
		if gqlErrs := parseGraphQLErrors(resp.Errors); len(gqlErrs) > 0 {
			c.logger.Errorw("GraphQL errors", "endpoint", c.endpoint, "status", status, "errors", string(resp.Errors))
			return &RequestError{Errors: gqlErrs}
		}
	}
	if status < 200 || status >= 300 {
		return errors.Errorf("POST %s: HTTP %d: %s", c.endpoint, status, truncate(strings.TrimSpace(string(body)), 200))
	}
	if parseErr != nil {
		return errors.Annotatef(parseErr, "parsing response from %s", c.endpoint)
	}
	if out == nil {
		return nil
	}
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		return errors.Annotatef(ErrNoData, "POST %s", c.endpoint)
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return errors.Annotate(err, "decoding response data")
	}
	return nil
}

// post sends the request and returns the body with its status code. Only
// transport failures are returned as errors.
func (c *Client) post(ctx context.Context, payload []byte) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, errors.Annotate(err, "creating request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, errors.Annotatef(err, "POST %s", c.endpoint)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, errors.Annotate(err, "reading response")
	}
	return body, resp.StatusCode, nil
}

// parseGraphQLErrors accepts the standard array form as well as the plain
// string Shopify sometimes returns for authentication problems.
func parseGraphQLErrors(raw json.RawMessage) []GraphQLError {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	var list []GraphQLError
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var msg string
	if err := json.Unmarshal(raw, &msg); err == nil {
		if msg == "" {
			return nil
		}
		return []GraphQLError{{Message: msg}}
	}
	return []GraphQLError{{Message: trimmed}}
}

func formatGraphQLErrors(errs []GraphQLError) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		msg := strings.TrimSpace(e.Message)
		if msg == "" {
			continue
		}
		if len(e.Path) > 0 {
			msg = fmt.Sprintf("%s (path: %v)", msg, e.Path)
		}
		parts = append(parts, msg)
	}
	if len(parts) == 0 {
		return "unknown graphql error"
	}
	return strings.Join(parts, "; ")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
