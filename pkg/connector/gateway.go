package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxResponseSizeBytes = 2 << 20

// RawResponse is what the gateway hands back for any reachable response,
// 2xx or not. JSON is a best-effort parse of the body and stays nil when the
// body is not a JSON object.
type RawResponse struct {
	StatusCode int
	Body       []byte
	JSON       map[string]any
}

// Decode unmarshals the response body into v.
func (r *RawResponse) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}

// BodyText returns the trimmed response body for error messages.
func (r *RawResponse) BodyText() string {
	return strings.TrimSpace(string(r.Body))
}

// Gateway issues authenticated HTTP calls against one remote base URL.
// Only transport-level failures are returned as errors; any response from
// the remote, whatever its status, comes back as a RawResponse because both
// remote systems encode logical failure in ways the connectors must inspect.
type Gateway interface {
	Do(ctx context.Context, method, endpoint string, query url.Values, body any) (*RawResponse, error)
	Get(ctx context.Context, endpoint string, query url.Values) (*RawResponse, error)
	Post(ctx context.Context, endpoint string, body any) (*RawResponse, error)
}

// Authenticator attaches credentials to an outgoing request.
type Authenticator interface {
	Apply(req *http.Request) error
}

// BasicAuth authenticates with a username and a secret (Vtiger access key,
// Mautic password).
type BasicAuth struct {
	Username string
	Secret   string
}

func (a BasicAuth) Apply(req *http.Request) error {
	req.SetBasicAuth(a.Username, a.Secret)
	return nil
}

// BearerAuth authenticates with a token obtained from a TokenSource on every
// request; the source decides whether that means a cached static token or a
// lazy exchange.
type BearerAuth struct {
	Source TokenSource
}

func (a BearerAuth) Apply(req *http.Request) error {
	if a.Source == nil {
		return errors.New("bearer auth requires a token source")
	}
	token, err := a.Source.Token(req.Context())
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// GatewayOption customizes an httpGateway.
type GatewayOption func(*httpGateway)

func WithHTTPClient(client *http.Client) GatewayOption {
	return func(g *httpGateway) {
		if client != nil {
			g.httpClient = client
		}
	}
}

type httpGateway struct {
	baseURL    string
	auth       Authenticator
	httpClient *http.Client
}

// NewGateway builds a Gateway rooted at baseURL. The auth may be nil for
// unauthenticated endpoints. Timeouts and cancellation belong to the HTTP
// client and the caller's context; the gateway adds neither retries nor its
// own deadline.
func NewGateway(baseURL string, auth Authenticator, timeout time.Duration, opts ...GatewayOption) (Gateway, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, Configf("base url is required")
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, Configf("invalid base url %q: %v", baseURL, err)
	}

	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	g := &httpGateway{
		baseURL: trimmed,
		auth:    auth,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g, nil
}

func (g *httpGateway) Get(ctx context.Context, endpoint string, query url.Values) (*RawResponse, error) {
	return g.Do(ctx, http.MethodGet, endpoint, query, nil)
}

func (g *httpGateway) Post(ctx context.Context, endpoint string, body any) (*RawResponse, error) {
	return g.Do(ctx, http.MethodPost, endpoint, nil, body)
}

func (g *httpGateway) Do(ctx context.Context, method, endpoint string, query url.Values, body any) (*RawResponse, error) {
	target := g.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, Transportf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, Transportf("build request: %v", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if g.auth != nil {
		if err := g.auth.Apply(req); err != nil {
			return nil, AsError(err)
		}
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, Transportf("%s %s: %v", method, endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, Transportf("read response body: %v", err)
	}

	out := &RawResponse{
		StatusCode: resp.StatusCode,
		Body:       raw,
	}
	var parsed map[string]any
	if json.Unmarshal(raw, &parsed) == nil {
		out.JSON = parsed
	}
	return out, nil
}
