package jira

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"iter"
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

	userAgent       = "jira2zammad"
	commentPageSize = 100
)

// client implements Service interface
type client struct {
	baseURL    string
	username   string
	password   string
	token      string
	insecure   bool
	httpClient *http.Client
}

// Option is a functional option for client configuration
type Option func(*client)

// WithBasicAuth authenticates with user name and password (or API token on Cloud)
func WithBasicAuth(username, password string) Option {
	return func(c *client) {
		c.username = username
		c.password = password
	}
}

// WithToken authenticates with a personal access token
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

// New creates a new Jira service for the instance at baseURL
func New(baseURL string, opts ...Option) (Service, error) {
	if baseURL == "" {
		return nil, goerr.New("Jira base URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, goerr.Wrap(err, "invalid Jira base URL", goerr.V(model.URLKey, baseURL))
	}

	c := &client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if c.insecure {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402 -- opt-in via jira.options.verify=false
		}
		c.httpClient = &http.Client{Timeout: DefaultTimeout, Transport: transport}
	}

	return c, nil
}

func (c *client) SearchIssues(ctx context.Context, jql string, opt SearchOption) iter.Seq2[*model.JiraIssue, error] {
	return func(yield func(*model.JiraIssue, error) bool) {
		startAt := opt.StartAt
		maxResults := opt.MaxResults
		if maxResults <= 0 {
			maxResults = DefaultMaxResults
		}

		for {
			params := url.Values{
				"jql":        {jql},
				"startAt":    {strconv.Itoa(startAt)},
				"maxResults": {strconv.Itoa(maxResults)},
				"expand":     {"renderedFields"},
				"fields":     {"*all"},
			}

			var result rawSearchResult
			if err := c.getJSON(ctx, "/rest/api/2/search?"+params.Encode(), &result); err != nil {
				yield(nil, goerr.Wrap(err, "failed to search issues", goerr.V("jql", jql), goerr.V("startAt", startAt)))
				return
			}

			logging.From(ctx).Debug("Jira search page",
				"jql", jql,
				"startAt", startAt,
				"issues", len(result.Issues),
				"total", result.Total,
			)

			if len(result.Issues) == 0 {
				return
			}

			for _, data := range result.Issues {
				issue, err := decodeIssue(data)
				if err != nil {
					err = goerr.Wrap(model.ErrInvalidRecord, "undecodable issue in search result",
						goerr.V("jql", jql), goerr.V("startAt", startAt), goerr.V("cause", err.Error()))
				}
				if !yield(issue, err) {
					return
				}
			}

			// the original page size is kept as step so that --start-at offsets stay aligned
			if result.Total > 0 && startAt+len(result.Issues) >= result.Total {
				return
			}
			startAt += maxResults
		}
	}
}

func (c *client) Comments(ctx context.Context, issueID string) ([]*model.JiraComment, error) {
	var comments []*model.JiraComment
	startAt := 0

	for {
		params := url.Values{
			"expand":     {"renderedBody,properties"},
			"startAt":    {strconv.Itoa(startAt)},
			"maxResults": {strconv.Itoa(commentPageSize)},
		}
		path := "/rest/api/2/issue/" + url.PathEscape(issueID) + "/comment?" + params.Encode()

		var page rawCommentPage
		if err := c.getJSON(ctx, path, &page); err != nil {
			return nil, goerr.Wrap(err, "failed to list comments", goerr.V("issue_id", issueID))
		}

		for i := range page.Comments {
			comments = append(comments, page.Comments[i].toModel())
		}

		if len(page.Comments) == 0 || startAt+len(page.Comments) >= page.Total {
			break
		}
		startAt += len(page.Comments)
	}

	return comments, nil
}

func (c *client) LookupUser(ctx context.Context, user *model.JiraUser) (*model.JiraUser, error) {
	if user == nil {
		return nil, goerr.Wrap(model.ErrRecordNotFound, "no user reference given")
	}

	params := url.Values{}
	switch {
	case user.AccountID != "":
		params.Set("accountId", user.AccountID)
	case user.Key != "":
		params.Set("key", user.Key)
	case user.Name != "":
		params.Set("username", user.Name)
	default:
		return nil, goerr.Wrap(model.ErrRecordNotFound, "user reference has no key", goerr.V("user", user.String()))
	}

	var raw rawUser
	if err := c.getJSON(ctx, "/rest/api/2/user?"+params.Encode(), &raw); err != nil {
		return nil, goerr.Wrap(err, "failed to look up user", goerr.V("user", user.String()))
	}
	return raw.toModel(), nil
}

func (c *client) Download(ctx context.Context, attachment *model.JiraAttachment) ([]byte, error) {
	target := attachment.ContentURL
	if target == "" {
		target = "/secure/attachment/" + url.PathEscape(attachment.ID) + "/" + url.PathEscape(attachment.Filename)
	}
	if strings.HasPrefix(target, "/") {
		target = c.baseURL + target
	}

	resp, err := c.do(ctx, http.MethodGet, target)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to download attachment",
			goerr.V("attachment_id", attachment.ID),
			goerr.V("filename", attachment.Filename))
	}
	defer safe.Close(ctx, resp.Body)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, goerr.Wrap(model.ErrUpstreamFailure, "failed to read attachment",
			goerr.V("attachment_id", attachment.ID),
			goerr.V("error", err.Error()))
	}
	return data, nil
}

func (c *client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, c.baseURL+path)
	if err != nil {
		return err
	}
	defer safe.Close(ctx, resp.Body)

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return goerr.Wrap(model.ErrUpstreamFailure, "failed to decode Jira response",
			goerr.V(model.URLKey, path),
			goerr.V("error", err.Error()))
	}
	return nil
}

// do sends an authenticated request and turns non-2xx responses into ErrUpstreamFailure.
// On success the caller owns resp.Body.
func (c *client) do(ctx context.Context, method, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create request", goerr.V(model.URLKey, target))
	}
	c.setAuth(req)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(model.ErrUpstreamFailure, "Jira request failed",
			goerr.V(model.URLKey, target),
			goerr.V("error", err.Error()))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		safe.Close(ctx, resp.Body)
		return nil, goerr.Wrap(model.ErrUpstreamFailure, "Jira API returned error",
			goerr.V(model.StatusCodeKey, resp.StatusCode),
			goerr.V(model.URLKey, target),
			goerr.V(model.BodyKey, string(body)))
	}

	return resp, nil
}

// setAuth prefers token auth when configured.
func (c *client) setAuth(req *http.Request) {
	switch {
	case c.token != "":
		req.Header.Set("Authorization", "Bearer "+c.token)
	case c.username != "":
		req.SetBasicAuth(c.username, c.password)
	}
}
