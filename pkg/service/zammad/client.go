package zammad

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/jira2zammad/pkg/domain/model"
	"github.com/secmon-lab/jira2zammad/pkg/utils/logging"
	"github.com/secmon-lab/jira2zammad/pkg/utils/safe"
)

const (
	// DefaultTimeout bounds a single HTTP request
	DefaultTimeout = 60 * time.Second
	// DefaultPerPage is the page size of search requests
	DefaultPerPage = 100

	userAgent = "jira2zammad"
	apiPrefix = "/api/v1"
)

// client implements Service interface
type client struct {
	baseURL    string
	username   string
	password   string
	token      string
	insecure   bool
	perPage    int
	rps        float64
	threshold  uint32
	open       time.Duration
	httpClient *http.Client
	guard      *guard
}

// Option is a functional option for client configuration
type Option func(*client)

// WithBasicAuth authenticates with user name and password
func WithBasicAuth(username, password string) Option {
	return func(c *client) {
		c.username = username
		c.password = password
	}
}

// WithToken authenticates with an HTTP access token, taking precedence over basic auth
func WithToken(token string) Option {
	return func(c *client) {
		c.token = token
	}
}

// WithInsecureSkipVerify disables TLS certificate verification
func WithInsecureSkipVerify() Option {
	return func(c *client) {
		c.insecure = true
	}
}

// WithHTTPClient replaces the HTTP client, mainly for tests
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithRateLimit limits requests per second. Zero or less disables pacing.
func WithRateLimit(rps float64) Option {
	return func(c *client) {
		c.rps = rps
	}
}

// WithCircuitBreaker sets the consecutive failure threshold and the open period
func WithCircuitBreaker(threshold uint32, open time.Duration) Option {
	return func(c *client) {
		c.threshold = threshold
		c.open = open
	}
}

// WithPerPage sets the page size of search requests
func WithPerPage(n int) Option {
	return func(c *client) {
		c.perPage = n
	}
}

// New creates a new Zammad service for the instance at baseURL
func New(baseURL string, opts ...Option) (Service, error) {
	if baseURL == "" {
		return nil, goerr.New("Zammad base URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, goerr.Wrap(err, "invalid Zammad base URL", goerr.V(model.URLKey, baseURL))
	}

	c := &client{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		perPage:   DefaultPerPage,
		threshold: DefaultFailureThreshold,
		open:      DefaultOpenTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if c.insecure {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402 -- opt-in via zammad.verify=false
		}
		c.httpClient = &http.Client{Timeout: DefaultTimeout, Transport: transport}
	}
	if c.perPage <= 0 {
		c.perPage = DefaultPerPage
	}
	c.guard = newGuard(c.rps, c.threshold, c.open)

	return c, nil
}

func (c *client) Me(ctx context.Context) (*model.ZammadUser, error) {
	var attrs map[string]any
	if err := c.call(ctx, http.MethodGet, "/users/me", nil, &attrs); err != nil {
		return nil, goerr.Wrap(err, "failed to get current user")
	}
	return decodeUser(attrs), nil
}

func (c *client) SearchUsers(ctx context.Context, query string) ([]*model.ZammadUser, error) {
	var users []*model.ZammadUser
	err := c.search(ctx, "/users/search", query, func(attrs map[string]any) {
		users = append(users, decodeUser(attrs))
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search users", goerr.V("query", query))
	}
	return users, nil
}

func (c *client) FindUser(ctx context.Context, id int64) (*model.ZammadUser, error) {
	var attrs map[string]any
	if err := c.call(ctx, http.MethodGet, "/users/"+strconv.FormatInt(id, 10), nil, &attrs); err != nil {
		return nil, goerr.Wrap(err, "failed to find user", goerr.V("user_id", id))
	}
	return decodeUser(attrs), nil
}

func (c *client) CreateUser(ctx context.Context, params map[string]any) (*model.ZammadUser, error) {
	var attrs map[string]any
	if err := c.call(ctx, http.MethodPost, "/users", params, &attrs); err != nil {
		return nil, goerr.Wrap(err, "failed to create user")
	}
	return decodeUser(attrs), nil
}

func (c *client) UpdateUser(ctx context.Context, id int64, params map[string]any) (*model.ZammadUser, error) {
	var attrs map[string]any
	if err := c.call(ctx, http.MethodPut, "/users/"+strconv.FormatInt(id, 10), params, &attrs); err != nil {
		return nil, goerr.Wrap(err, "failed to update user", goerr.V("user_id", id))
	}
	return decodeUser(attrs), nil
}

func (c *client) SearchTickets(ctx context.Context, query string) ([]*model.ZammadTicket, error) {
	var tickets []*model.ZammadTicket
	err := c.search(ctx, "/tickets/search", query, func(attrs map[string]any) {
		tickets = append(tickets, decodeTicket(attrs))
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search tickets", goerr.V("query", query))
	}
	return tickets, nil
}

func (c *client) CreateTicket(ctx context.Context, params map[string]any) (*model.ZammadTicket, error) {
	var attrs map[string]any
	if err := c.call(ctx, http.MethodPost, "/tickets", params, &attrs); err != nil {
		return nil, goerr.Wrap(err, "failed to create ticket")
	}
	return decodeTicket(attrs), nil
}

func (c *client) AddTag(ctx context.Context, ticketID int64, tag string) error {
	params := map[string]any{
		"object": "Ticket",
		"o_id":   ticketID,
		"item":   tag,
	}
	if err := c.call(ctx, http.MethodPost, "/tags/add", params, nil); err != nil {
		return goerr.Wrap(err, "failed to add tag", goerr.V("ticket_id", ticketID), goerr.V("tag", tag))
	}
	return nil
}

func (c *client) CreateArticle(ctx context.Context, params map[string]any) (*model.ZammadArticle, error) {
	var attrs map[string]any
	if err := c.call(ctx, http.MethodPost, "/ticket_articles", params, &attrs); err != nil {
		return nil, goerr.Wrap(err, "failed to create article", goerr.V("ticket_id", params["ticket_id"]))
	}
	return decodeArticle(attrs), nil
}

func (c *client) AddLink(ctx context.Context, targetID int64, sourceNumber string, linkType string) error {
	params := map[string]any{
		"link_type":                 linkType,
		"link_object_target":        "Ticket",
		"link_object_target_value":  targetID,
		"link_object_source":        "Ticket",
		"link_object_source_number": sourceNumber,
	}
	if err := c.call(ctx, http.MethodPost, "/links/add", params, nil); err != nil {
		return goerr.Wrap(err, "failed to add link",
			goerr.V("target_id", targetID),
			goerr.V("source_number", sourceNumber),
			goerr.V("link_type", linkType))
	}
	return nil
}

// search walks the expanded search endpoint page by page until a short page.
func (c *client) search(ctx context.Context, path, query string, each func(map[string]any)) error {
	for page := 1; ; page++ {
		params := url.Values{
			"query":    {query},
			"expand":   {"true"},
			"page":     {strconv.Itoa(page)},
			"per_page": {strconv.Itoa(c.perPage)},
		}

		var results []map[string]any
		if err := c.call(ctx, http.MethodGet, path+"?"+params.Encode(), nil, &results); err != nil {
			return goerr.Wrap(err, "search page failed", goerr.V("page", page))
		}
		for _, r := range results {
			each(r)
		}
		if len(results) < c.perPage {
			return nil
		}
	}
}

// call sends one JSON request through the guard and decodes the answer into out when given.
func (c *client) call(ctx context.Context, method, path string, body any, out any) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return goerr.Wrap(err, "failed to encode request", goerr.V("path", path))
		}
		payload = data
	}

	return c.guard.run(ctx, func() error {
		return c.send(ctx, method, path, payload, out)
	})
}

func (c *client) send(ctx context.Context, method, path string, payload []byte, out any) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, reader)
	if err != nil {
		return goerr.Wrap(err, "failed to create request", goerr.V("path", path))
	}
	c.setAuth(req)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	logging.From(ctx).Debug("Zammad request", "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return goerr.Wrap(&transportError{err: err}, "Zammad request failed",
			goerr.V("method", method),
			goerr.V("path", path))
	}
	defer safe.Drain(ctx, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       path,
			Body:       string(raw),
		}
		return goerr.Wrap(apiErr, "Zammad API returned error",
			goerr.V(model.StatusCodeKey, resp.StatusCode),
			goerr.V(model.URLKey, path),
			goerr.V(model.BodyKey, apiErr.Body))
	}

	if out == nil {
		return nil
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return goerr.Wrap(model.ErrUpstreamFailure, "failed to decode Zammad response",
			goerr.V("path", path),
			goerr.V("error", err.Error()))
	}
	return nil
}

func (c *client) setAuth(req *http.Request) {
	switch {
	case c.token != "":
		req.Header.Set("Authorization", "Token token="+c.token)
	case c.username != "":
		req.SetBasicAuth(c.username, c.password)
	}
}
