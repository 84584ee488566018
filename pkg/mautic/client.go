// Package mautic is the marketing-automation connector: contact search,
// paginated listing, and tag mutation against the Mautic REST API.
//
// Mautic has no direct lookup-by-email endpoint, so lookups go through the
// search API; contacts come back as an object keyed by record id. Validation
// failures arrive as an errors[] array in the body, sometimes under a non-2xx
// status, and are surfaced distinctly from generic HTTP failures.
package mautic

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	connectorx "github.com/PH536-UI/mr-dom-ph-copilot/pkg/connector"
)

// Config holds credentials for one Mautic instance. Exactly one credential
// shape has to be present; precedence is access token, then basic auth, then
// client id/secret (resolved lazily through an OAuth2 client-credentials
// exchange on first call).
type Config struct {
	URL          string        `envconfig:"URL" split_words:"true" required:"true"`
	AccessToken  string        `envconfig:"ACCESS_TOKEN" split_words:"true"`
	Username     string        `envconfig:"USERNAME" split_words:"true"`
	Password     string        `envconfig:"PASSWORD" split_words:"true"`
	ClientID     string        `envconfig:"CLIENT_ID" split_words:"true"`
	ClientSecret string        `envconfig:"CLIENT_SECRET" split_words:"true"`
	TokenURL     string        `envconfig:"TOKEN_URL" split_words:"true"`
	PageSize     int           `envconfig:"PAGE_SIZE" split_words:"true" default:"100"`
	MaxRecords   int           `envconfig:"MAX_RECORDS" split_words:"true" default:"10000"`
	Timeout      time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"15s"`
}

// Option customizes a Client.
type Option func(*Client)

// WithGateway replaces the HTTP gateway, mainly for tests.
func WithGateway(gw connectorx.Gateway) Option {
	return func(c *Client) {
		if gw != nil {
			c.gateway = gw
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// Client is the Mautic connector. Like the CRM connector it is built once at
// process start; concurrency safety is whatever the HTTP client provides.
type Client struct {
	cfg        Config
	gateway    connectorx.Gateway
	httpClient *http.Client
}

// NewClient resolves the authentication mode from the supplied credentials
// and fails only when no recognized shape is present. Token-exchange modes
// may still fail on first call; everything else fails here.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, connectorx.Configf("mautic url is required")
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.MaxRecords <= 0 {
		cfg.MaxRecords = 10000
	}

	c := &Client{cfg: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if c.gateway == nil {
		auth, err := resolveAuth(cfg)
		if err != nil {
			return nil, err
		}
		gwOpts := []connectorx.GatewayOption{}
		if c.httpClient != nil {
			gwOpts = append(gwOpts, connectorx.WithHTTPClient(c.httpClient))
		}
		gw, err := connectorx.NewGateway(cfg.URL, auth, cfg.Timeout, gwOpts...)
		if err != nil {
			return nil, err
		}
		c.gateway = gw
	}

	return c, nil
}

func resolveAuth(cfg Config) (connectorx.Authenticator, error) {
	switch {
	case strings.TrimSpace(cfg.AccessToken) != "":
		return connectorx.BearerAuth{Source: connectorx.StaticToken(cfg.AccessToken)}, nil
	case strings.TrimSpace(cfg.Username) != "" && strings.TrimSpace(cfg.Password) != "":
		return connectorx.BasicAuth{
			Username: strings.TrimSpace(cfg.Username),
			Secret:   strings.TrimSpace(cfg.Password),
		}, nil
	case strings.TrimSpace(cfg.ClientID) != "" && strings.TrimSpace(cfg.ClientSecret) != "":
		tokenURL := strings.TrimSpace(cfg.TokenURL)
		if tokenURL == "" {
			tokenURL = strings.TrimRight(strings.TrimSpace(cfg.URL), "/") + "/oauth/v2/token"
		}
		source, err := connectorx.NewClientCredentials(tokenURL, cfg.ClientID, cfg.ClientSecret)
		if err != nil {
			return nil, err
		}
		return connectorx.BearerAuth{Source: source}, nil
	default:
		return nil, connectorx.Configf("mautic credentials are required: access token, username/password, or client id/secret")
	}
}

// GetContactByEmail searches for the contact with the given email and
// returns the single match, or a not-found error when the search is empty.
func (c *Client) GetContactByEmail(ctx context.Context, email string) (connectorx.Record, error) {
	params := url.Values{}
	params.Set("search", "email:"+email)
	params.Set("limit", "1")

	resp, err := c.gateway.Get(ctx, "contacts", params)
	if err != nil {
		return nil, err
	}

	contacts, _, err := parseContactsResponse(resp)
	if err != nil {
		return nil, err
	}
	if len(contacts) == 0 {
		return nil, connectorx.NotFoundf("no mautic contact found with email %s", email)
	}
	return contacts[0], nil
}

// ListContacts fetches one page of contacts plus the remote's total count.
// Records are ordered by ascending contact id: the wire format is an object
// keyed by id, so this is the only deterministic reading of its order.
func (c *Client) ListContacts(ctx context.Context, limit, start int) ([]connectorx.Record, int, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("start", strconv.Itoa(start))

	resp, err := c.gateway.Get(ctx, "contacts", params)
	if err != nil {
		return nil, 0, err
	}
	return parseContactsResponse(resp)
}

// ListAllContacts pages through the whole contact store with the configured
// page size. Same termination rules as the CRM connector: short page, or the
// record ceiling with a warning; any page error aborts the iteration.
func (c *Client) ListAllContacts(ctx context.Context) ([]connectorx.Record, error) {
	var all []connectorx.Record
	for start := 0; ; start += c.cfg.PageSize {
		log.Debug().Int("start", start).Int("limit", c.cfg.PageSize).Msg("mautic: fetching page")

		page, _, err := c.ListContacts(ctx, c.cfg.PageSize, start)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)

		if len(page) < c.cfg.PageSize {
			break
		}
		if len(all) >= c.cfg.MaxRecords {
			log.Warn().
				Int("records", len(all)).
				Int("max_records", c.cfg.MaxRecords).
				Msg("mautic: pagination stopped at record ceiling")
			break
		}
	}
	return all, nil
}

// AddTagToContact attaches one tag to the contact. A structured validation
// rejection from Mautic comes back as a validation-kind error carrying the
// remote's message, so callers can tell bad input from an unreachable
// service.
func (c *Client) AddTagToContact(ctx context.Context, contactID int, tag string) (connectorx.Record, error) {
	if strings.TrimSpace(tag) == "" {
		return nil, connectorx.Validationf("tag must not be empty")
	}

	endpoint := fmt.Sprintf("contacts/%d/tags/add", contactID)
	resp, err := c.gateway.Post(ctx, endpoint, map[string]any{
		"tags": []string{tag},
	})
	if err != nil {
		return nil, err
	}
	if err := checkErrors(resp); err != nil {
		return nil, err
	}

	var parsed struct {
		Contact connectorx.Record `json:"contact"`
	}
	if err := resp.Decode(&parsed); err != nil {
		return nil, connectorx.HTTPStatusf(resp.StatusCode, "unparseable mautic response: %s", resp.BodyText())
	}
	return parsed.Contact, nil
}

type contactsResponse struct {
	Total    flexibleInt                  `json:"total"`
	Contacts map[string]connectorx.Record `json:"contacts"`
}

func parseContactsResponse(resp *connectorx.RawResponse) ([]connectorx.Record, int, error) {
	if err := checkErrors(resp); err != nil {
		return nil, 0, err
	}

	var parsed contactsResponse
	if err := resp.Decode(&parsed); err != nil {
		return nil, 0, connectorx.HTTPStatusf(resp.StatusCode, "unparseable mautic response: %s", resp.BodyText())
	}
	return orderedRecords(parsed.Contacts), int(parsed.Total), nil
}

// orderedRecords flattens the id-keyed contact object into a slice ordered by
// ascending numeric id, falling back to lexicographic for non-numeric keys.
func orderedRecords(contacts map[string]connectorx.Record) []connectorx.Record {
	if len(contacts) == 0 {
		return nil
	}
	ids := make([]string, 0, len(contacts))
	for id := range contacts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, aErr := strconv.Atoi(ids[i])
		b, bErr := strconv.Atoi(ids[j])
		if aErr == nil && bErr == nil {
			return a < b
		}
		return ids[i] < ids[j]
	})

	records := make([]connectorx.Record, 0, len(ids))
	for _, id := range ids {
		records = append(records, contacts[id])
	}
	return records
}

// checkErrors normalizes Mautic failure shapes. A structured errors[] body is
// a validation failure whatever the HTTP status; a bare non-2xx without one
// is a generic HTTP failure.
func checkErrors(resp *connectorx.RawResponse) error {
	if resp.JSON != nil {
		if rawErrs, ok := resp.JSON["errors"].([]any); ok && len(rawErrs) > 0 {
			if first, ok := rawErrs[0].(map[string]any); ok {
				message, _ := first["message"].(string)
				if message == "" {
					message = "mautic validation error"
				}
				code := ""
				if v, ok := first["code"].(float64); ok {
					code = strconv.Itoa(int(v))
				}
				return &connectorx.Error{
					Kind:       connectorx.KindValidation,
					Message:    message,
					Code:       code,
					HTTPStatus: resp.StatusCode,
				}
			}
		}
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return connectorx.HTTPStatusf(resp.StatusCode, "mautic http error: %s", resp.BodyText())
	}
	return nil
}

type flexibleInt int

// Mautic serializes total as either a number or a string depending on
// version.
func (f *flexibleInt) UnmarshalJSON(data []byte) error {
	trimmed := strings.Trim(string(data), `"`)
	if trimmed == "" || trimmed == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return err
	}
	*f = flexibleInt(n)
	return nil
}
