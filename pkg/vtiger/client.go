// Package vtiger is the CRM connector: it translates typed calls into
// authenticated requests against the Vtiger REST API and normalizes its
// success/failure conventions into the shared connector error taxonomy.
//
// Vtiger answers HTTP 200 even for logical failures; the body carries a
// "success" boolean and, on failure, a nested {code, message} error object.
package vtiger

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	connectorx "github.com/PH536-UI/mr-dom-ph-copilot/pkg/connector"
)

const defaultModule = "Contacts"

// Config holds the credentials and iteration bounds for one Vtiger instance.
// Base URL looks like https://<instance>.odx.vtiger.com/restapi/v1/vtiger/default.
type Config struct {
	URL        string        `envconfig:"URL" split_words:"true" required:"true"`
	Username   string        `envconfig:"USERNAME" split_words:"true" required:"true"`
	AccessKey  string        `envconfig:"ACCESS_KEY" split_words:"true" required:"true"`
	ScoreField string        `envconfig:"SCORE_FIELD" split_words:"true" default:"cf_lead_score"`
	PageSize   int           `envconfig:"PAGE_SIZE" split_words:"true" default:"100"`
	MaxRecords int           `envconfig:"MAX_RECORDS" split_words:"true" default:"10000"`
	Timeout    time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"15s"`
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

// Client is the Vtiger CRM connector. One instance is built at process start
// and shared for the process lifetime; it holds no mutable state beyond the
// HTTP client, so it is as safe for concurrent use as that client is.
type Client struct {
	cfg        Config
	gateway    connectorx.Gateway
	httpClient *http.Client
}

// NewClient validates credentials eagerly: basic auth is fully determined by
// the supplied username and access key, so an unusable configuration must
// fail here instead of on the first call.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, connectorx.Configf("vtiger url is required")
	}
	if strings.TrimSpace(cfg.Username) == "" || strings.TrimSpace(cfg.AccessKey) == "" {
		return nil, connectorx.Configf("vtiger username and access key are both required")
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.MaxRecords <= 0 {
		cfg.MaxRecords = 10000
	}
	if strings.TrimSpace(cfg.ScoreField) == "" {
		cfg.ScoreField = "cf_lead_score"
	}

	c := &Client{cfg: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if c.gateway == nil {
		auth := connectorx.BasicAuth{
			Username: strings.TrimSpace(cfg.Username),
			Secret:   strings.TrimSpace(cfg.AccessKey),
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

type queryResponse struct {
	Success bool                `json:"success"`
	Result  []connectorx.Record `json:"result"`
	Error   *apiError           `json:"error"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Query runs one VQL query and returns the matching records in arrival
// order. The query string is sent verbatim: this layer neither validates nor
// escapes it, so callers interpolating user-supplied values must quote them
// (see QuoteValue). Known injection surface.
func (c *Client) Query(ctx context.Context, queryString string) ([]connectorx.Record, error) {
	params := url.Values{}
	params.Set("query", queryString)

	resp, err := c.gateway.Get(ctx, "query", params)
	if err != nil {
		return nil, err
	}
	return c.parseQueryResponse(resp)
}

// QueryAll runs baseQuery page by page, appending "LIMIT offset, size" and
// advancing the offset until a short page or the configured record ceiling.
// baseQuery must not already carry LIMIT/OFFSET clauses. Any page failure
// aborts the iteration and is returned as-is, with no partial results.
func (c *Client) QueryAll(ctx context.Context, baseQuery string) ([]connectorx.Record, error) {
	base := strings.TrimSuffix(strings.TrimSpace(baseQuery), ";")

	var all []connectorx.Record
	for offset := 0; ; offset += c.cfg.PageSize {
		paginated := fmt.Sprintf("%s LIMIT %d, %d;", base, offset, c.cfg.PageSize)
		log.Debug().Str("query", paginated).Msg("vtiger: fetching page")

		page, err := c.Query(ctx, paginated)
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
				Msg("vtiger: pagination stopped at record ceiling")
			break
		}
	}
	return all, nil
}

// RetrieveByEmail looks a single record up by email in the given module
// (Contacts when empty). Zero matches become a distinguished not-found error
// rather than an empty success. The email is quoted before interpolation.
func (c *Client) RetrieveByEmail(ctx context.Context, email, module string) (connectorx.Record, error) {
	if strings.TrimSpace(module) == "" {
		module = defaultModule
	}

	records, err := c.Query(ctx, SelectByField(module, "email", email))
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, connectorx.NotFoundf("no %s record found with email %s", module, email)
	}
	return records[0], nil
}

// Update mutates an existing record. Vtiger's update endpoint takes the
// record id inside the element payload, serialized as a JSON string field
// alongside operation=update.
func (c *Client) Update(ctx context.Context, recordID string, values map[string]any) (connectorx.Record, error) {
	if strings.TrimSpace(recordID) == "" {
		return nil, connectorx.Validationf("record id is required for update")
	}

	element := make(map[string]any, len(values)+1)
	for k, v := range values {
		element[k] = v
	}
	element["id"] = recordID

	encoded, err := json.Marshal(element)
	if err != nil {
		return nil, connectorx.Validationf("encode update element: %v", err)
	}

	resp, err := c.gateway.Post(ctx, "update", map[string]any{
		"operation": "update",
		"element":   string(encoded),
	})
	if err != nil {
		return nil, err
	}
	return c.parseUpdateResponse(resp)
}

// UpdateLeadScore sets the configured score field on the record matching
// email. Scores outside 0-100 are rejected before any HTTP round trip.
func (c *Client) UpdateLeadScore(ctx context.Context, email string, score int) (connectorx.Record, error) {
	if score < 0 || score > 100 {
		return nil, connectorx.Validationf("invalid score %d: must be between 0 and 100", score)
	}

	record, err := c.RetrieveByEmail(ctx, email, defaultModule)
	if err != nil {
		return nil, err
	}
	id, ok := record["id"].(string)
	if !ok || strings.TrimSpace(id) == "" {
		return nil, connectorx.APIError("", fmt.Sprintf("record for %s has no id field", email), 0)
	}

	return c.Update(ctx, id, map[string]any{c.cfg.ScoreField: score})
}

// ScoreField reports which custom field UpdateLeadScore writes.
func (c *Client) ScoreField() string {
	return c.cfg.ScoreField
}

func (c *Client) parseQueryResponse(resp *connectorx.RawResponse) ([]connectorx.Record, error) {
	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var parsed queryResponse
	if err := resp.Decode(&parsed); err != nil {
		return nil, connectorx.HTTPStatusf(resp.StatusCode, "unparseable vtiger response: %s", resp.BodyText())
	}
	if !parsed.Success {
		return nil, logicalError(parsed.Error, resp.StatusCode)
	}
	return parsed.Result, nil
}

func (c *Client) parseUpdateResponse(resp *connectorx.RawResponse) (connectorx.Record, error) {
	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var parsed struct {
		Success bool              `json:"success"`
		Result  connectorx.Record `json:"result"`
		Error   *apiError         `json:"error"`
	}
	if err := resp.Decode(&parsed); err != nil {
		return nil, connectorx.HTTPStatusf(resp.StatusCode, "unparseable vtiger response: %s", resp.BodyText())
	}
	if !parsed.Success {
		return nil, logicalError(parsed.Error, resp.StatusCode)
	}
	return parsed.Result, nil
}

// checkStatus handles the reachable-but-failing HTTP statuses. Vtiger puts
// detail in an error object even on non-200 when it can.
func checkStatus(resp *connectorx.RawResponse) error {
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}
	detail := resp.BodyText()
	if resp.JSON != nil {
		if errObj, ok := resp.JSON["error"].(map[string]any); ok {
			if msg, ok := errObj["message"].(string); ok && msg != "" {
				detail = msg
			}
		}
	}
	return connectorx.HTTPStatusf(resp.StatusCode, "vtiger http error: %s", detail)
}

func logicalError(apiErr *apiError, status int) error {
	code := "VTIGER_UNKNOWN_ERROR"
	message := "unknown vtiger api error"
	if apiErr != nil {
		if apiErr.Code != "" {
			code = apiErr.Code
		}
		if apiErr.Message != "" {
			message = apiErr.Message
		}
	}
	return connectorx.APIError(code, message, status)
}
