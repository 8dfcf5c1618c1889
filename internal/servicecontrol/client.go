package servicecontrol

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/busscope/internal/message"
)

// ErrForeignURL is returned when an absolute url does not point at the
// service's own scheme and host.
var ErrForeignURL = errors.New("url is not on the service host")

// DefaultPageSize is used when a query does not set one.
const DefaultPageSize = 10

// Observer receives one call per logical request (after retries) with the
// operation name, the outcome ("ok" or an ErrorKind) and the elapsed time.
type Observer func(operation, outcome string, elapsed time.Duration)

// Client talks to one monitoring service instance.
// A Client is safe for concurrent use.
type Client struct {
	baseURL  string
	http     *http.Client
	retry    RetryConfig
	pageSize int
	observe  Observer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-attempt timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithRetry sets the retry policy.
func WithRetry(cfg RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithPageSize sets the default page size for audit queries.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithObserver registers a request observer, typically for metrics.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observe = o }
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid service url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid service url %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid service url %q: missing host", baseURL)
	}

	c := &Client{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: 10 * time.Second},
		retry:    DefaultRetryConfig(),
		pageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the service url the client was created with.
func (c *Client) BaseURL() string { return c.baseURL }

// GetEndpoints lists endpoints grouped by name in first-seen order. With
// monitoredOnly, instances that are not monitored are skipped.
func (c *Client) GetEndpoints(ctx context.Context, monitoredOnly bool) ([]EndpointGroup, error) {
	var infos []EndpointInfo
	if _, err := c.getJSON(ctx, "get_endpoints", "endpoints", nil, &infos); err != nil {
		return nil, err
	}

	var groups []EndpointGroup
	index := make(map[string]int)
	for _, info := range infos {
		if monitoredOnly && !info.Monitored {
			continue
		}
		i, ok := index[info.Name]
		if !ok {
			i = len(groups)
			index[info.Name] = i
			groups = append(groups, EndpointGroup{Name: info.Name})
		}
		groups[i].Instances = append(groups[i].Instances, info)
	}
	return groups, nil
}

// GetAuditMessages returns one page of audited messages. System messages
// are always excluded.
func (c *Client) GetAuditMessages(ctx context.Context, q AuditQuery) (*AuditPage, error) {
	path := "messages"
	if q.Endpoint != "" {
		path = "endpoints/" + url.PathEscape(q.Endpoint) + "/messages"
	}

	params := url.Values{}
	if q.Search != "" {
		path = joinPath(path, "search")
		params.Set("q", q.Search)
	}
	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = c.pageSize
	}
	page := q.Page
	if page <= 0 {
		page = 1
	}
	params.Set("per_page", strconv.Itoa(pageSize))
	params.Set("page", strconv.Itoa(page))
	if q.OrderBy != "" {
		params.Set("order_by", q.OrderBy)
		direction := "desc"
		if q.Ascending {
			direction = "asc"
		}
		params.Set("direction", direction)
	}
	params.Set("include_system_messages", "false")

	var wire []wireMessage
	hdr, err := c.getJSON(ctx, "get_messages", path, params, &wire)
	if err != nil {
		return nil, err
	}

	total, _ := strconv.Atoi(hdr.Get("Total-Count"))
	return &AuditPage{TotalCount: total, Messages: toMessages(wire)}, nil
}

// GetConversation fetches the messages of one conversation. A pageSize of
// zero uses the client default.
func (c *Client) GetConversation(ctx context.Context, conversationID string, pageSize int) ([]message.Message, error) {
	if pageSize <= 0 {
		pageSize = c.pageSize
	}
	params := url.Values{}
	params.Set("page", "1")
	params.Set("per_page", strconv.Itoa(pageSize))

	var wire []wireMessage
	if _, err := c.getJSON(ctx, "get_conversation", "conversations/"+url.PathEscape(conversationID), params, &wire); err != nil {
		return nil, err
	}
	return toMessages(wire), nil
}

// GetMessageBody fetches a message body. bodyURL may be absolute, relative
// to the service, or empty to use the default body route. XML is returned
// as-is, JSON is re-indented with two spaces, anything else is raw.
func (c *Client) GetMessageBody(ctx context.Context, messageID, bodyURL string) (string, error) {
	target := bodyURL
	if target == "" {
		target = "messages/" + url.PathEscape(messageID) + "/body"
	}
	if isAbsolute(target) && !c.sameOrigin(target) {
		return "", fmt.Errorf("get_body: %q: %w", target, ErrForeignURL)
	}

	body, _, err := c.do(ctx, "get_body", http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}
	return FormatBody(body), nil
}

// FormatBody renders a raw body for display.
func FormatBody(body []byte) string {
	if bytes.HasPrefix(bytes.TrimSpace(body), []byte("<?xml")) {
		return string(body)
	}
	if json.Valid(body) {
		var out bytes.Buffer
		if err := json.Indent(&out, body, "", "  "); err == nil {
			return out.String()
		}
	}
	return string(body)
}

// RetryMessage asks the service to retry a failed message.
func (c *Client) RetryMessage(ctx context.Context, messageID, instanceID string) error {
	var params url.Values
	if instanceID != "" {
		params = url.Values{"instance_id": {instanceID}}
	}
	_, _, err := c.do(ctx, "retry_message", http.MethodPost, "errors/"+url.PathEscape(messageID)+"/retry", params)
	return err
}

// GetSaga returns the raw saga history document.
func (c *Client) GetSaga(ctx context.Context, sagaID string) (json.RawMessage, error) {
	var raw json.RawMessage
	if _, err := c.getJSON(ctx, "get_saga", "sagas/"+url.PathEscape(sagaID), nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Ping checks that the service answers. It is a single HEAD request with
// caching disabled and no retries.
func (c *Client) Ping(ctx context.Context) error {
	start := time.Now()
	err := c.ping(ctx)
	c.record("ping", err, time.Since(start))
	return err
}

func (c *Client) ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return &StatusError{StatusCode: resp.StatusCode, URL: c.baseURL}
	}
	return nil
}

// requestError marks failures that happen before anything is sent.
type requestError struct {
	err error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func (c *Client) getJSON(ctx context.Context, operation, path string, params url.Values, out any) (http.Header, error) {
	body, hdr, err := c.do(ctx, operation, http.MethodGet, path, params)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return nil, fmt.Errorf("%s: unmarshal response: %w", operation, err)
	}
	return hdr, nil
}

// do issues one logical request under the retry policy and returns the
// response body and headers.
func (c *Client) do(ctx context.Context, operation, method, path string, params url.Values) ([]byte, http.Header, error) {
	target := c.resolve(path)
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var (
		body []byte
		hdr  http.Header
	)
	start := time.Now()
	err := withRetry(ctx, c.retry, operation, func() error {
		var err error
		body, hdr, err = c.once(ctx, method, target)
		return err
	})
	c.record(operation, err, time.Since(start))
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", operation, err)
	}

	slog.Debug("upstream request",
		"operation", operation,
		"method", method,
		"url", target,
		"bytes", len(body),
	)
	return body, hdr, nil
}

func (c *Client) once(ctx context.Context, method, target string) ([]byte, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, nil, &requestError{fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, nil, &StatusError{
			StatusCode: resp.StatusCode,
			URL:        target,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	return body, resp.Header, nil
}

func (c *Client) record(operation string, err error, elapsed time.Duration) {
	if c.observe == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = string(Classify(err))
	}
	c.observe(operation, outcome, elapsed)
}

// resolve turns path into an absolute url. Absolute urls pass through.
func (c *Client) resolve(path string) string {
	if isAbsolute(path) {
		return path
	}
	return joinPath(c.baseURL, path)
}

func isAbsolute(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

// sameOrigin reports whether target has the base url's scheme and host.
func (c *Client) sameOrigin(target string) bool {
	t, err := url.Parse(target)
	if err != nil {
		return false
	}
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(t.Scheme, base.Scheme) && strings.EqualFold(t.Host, base.Host)
}

// joinPath joins base and path with exactly one slash between them.
func joinPath(base, path string) string {
	switch {
	case !strings.HasSuffix(base, "/") && !strings.HasPrefix(path, "/"):
		return base + "/" + path
	case strings.HasSuffix(base, "/") && strings.HasPrefix(path, "/"):
		return base + path[1:]
	default:
		return base + path
	}
}
