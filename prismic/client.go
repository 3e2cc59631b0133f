// Package prismic is a small client for the Prismic REST API v2. It covers the
// calls the blog needs: master ref lookup, document search, lookup by UID,
// preview resolution and replaying next_page cursors.
package prismic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

var (
	// ErrNotFound is returned when a query matches no document.
	ErrNotFound = errors.New("prismic: document not found")
	// ErrForeignCursor is returned when a cursor does not point at the
	// configured API origin.
	ErrForeignCursor = errors.New("prismic: cursor does not belong to this repository")
	// ErrNoMasterRef is returned when the API root advertises no master ref.
	ErrNoMasterRef = errors.New("prismic: no master ref")
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("prismic: api returned %d", e.Status)
	}
	return fmt.Sprintf("prismic: api returned %d: %s", e.Status, e.Message)
}

// Client talks to one Prismic repository.
type Client struct {
	endpoint    string
	origin      *url.URL
	accessToken string
	http        *http.Client
	refTTL      time.Duration

	mu        sync.Mutex
	master    string
	masterAge time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithAccessToken sets the token sent with API root and search calls.
func WithAccessToken(token string) Option {
	return func(c *Client) { c.accessToken = token }
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRefTTL sets how long the master ref is reused before the API root is
// fetched again (default 5s).
func WithRefTTL(d time.Duration) Option {
	return func(c *Client) { c.refTTL = d }
}

// New creates a Client for endpoint, e.g. https://repo.cdn.prismic.io/api/v2.
func New(endpoint string, opts ...Option) (*Client, error) {
	endpoint = strings.TrimRight(endpoint, "/")
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("prismic: parse endpoint: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("prismic: endpoint %q must be an absolute URL", endpoint)
	}
	c := &Client{
		endpoint: endpoint,
		origin:   u,
		http:     &http.Client{Timeout: 15 * time.Second},
		refTTL:   5 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// At builds an "at" predicate, e.g. At("document.type", "posts").
func At(path, value string) string {
	return "[at(" + path + "," + strconv.Quote(value) + ")]"
}

// MasterRef returns the published content ref, cached for the ref TTL.
func (c *Client) MasterRef(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.master != "" && time.Since(c.masterAge) < c.refTTL {
		ref := c.master
		c.mu.Unlock()
		return ref, nil
	}
	c.mu.Unlock()

	u := c.endpoint
	if c.accessToken != "" {
		u += "?access_token=" + url.QueryEscape(c.accessToken)
	}
	var root apiRoot
	if err := c.get(ctx, u, &root); err != nil {
		return "", fmt.Errorf("api root: %w", err)
	}
	for _, r := range root.Refs {
		if r.IsMasterRef {
			c.mu.Lock()
			c.master = r.Ref
			c.masterAge = time.Now()
			c.mu.Unlock()
			return r.Ref, nil
		}
	}
	return "", ErrNoMasterRef
}

// Query runs a documents/search call.
func (c *Client) Query(ctx context.Context, q Query) (Response, error) {
	ref := q.Ref
	if ref == "" {
		var err error
		if ref, err = c.MasterRef(ctx); err != nil {
			return Response{}, err
		}
	}
	v := url.Values{}
	v.Set("ref", ref)
	if len(q.Predicates) > 0 {
		v.Set("q", "["+strings.Join(q.Predicates, "")+"]")
	}
	if len(q.Fetch) > 0 {
		v.Set("fetch", strings.Join(q.Fetch, ","))
	}
	if q.Orderings != "" {
		v.Set("orderings", q.Orderings)
	}
	if q.PageSize > 0 {
		v.Set("pageSize", strconv.Itoa(q.PageSize))
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if c.accessToken != "" {
		v.Set("access_token", c.accessToken)
	}
	var resp Response
	if err := c.get(ctx, c.endpoint+"/documents/search?"+v.Encode(), &resp); err != nil {
		return Response{}, err
	}
	return resp, nil
}

// QueryByType lists documents of docType. Only Fetch, PageSize, Page,
// Orderings and Ref of q are used; the type predicate is prepended.
func (c *Client) QueryByType(ctx context.Context, docType string, q Query) (Response, error) {
	q.Predicates = append([]string{At("document.type", docType)}, q.Predicates...)
	return c.Query(ctx, q)
}

// GetByUID returns the document of docType whose UID is uid.
func (c *Client) GetByUID(ctx context.Context, docType, uid, ref string) (Document, error) {
	resp, err := c.Query(ctx, Query{
		Predicates: []string{At("my."+docType+".uid", uid)},
		PageSize:   1,
		Ref:        ref,
	})
	if err != nil {
		return Document{}, err
	}
	if len(resp.Results) == 0 {
		return Document{}, ErrNotFound
	}
	return resp.Results[0], nil
}

// ResolvePreview looks up documentID in the revision named by the preview
// token. An unknown document yields ErrNotFound; an expired or malformed
// token surfaces as *APIError with a 4xx status.
func (c *Client) ResolvePreview(ctx context.Context, token, documentID string) (Document, error) {
	if token == "" || documentID == "" {
		return Document{}, ErrNotFound
	}
	resp, err := c.Query(ctx, Query{
		Predicates: []string{At("document.id", documentID)},
		PageSize:   1,
		Ref:        token,
	})
	if err != nil {
		return Document{}, err
	}
	if len(resp.Results) == 0 {
		return Document{}, ErrNotFound
	}
	return resp.Results[0], nil
}

// FetchPage replays a next_page cursor exactly as the API returned it.
func (c *Client) FetchPage(ctx context.Context, cursor string) (Response, error) {
	u, err := url.Parse(cursor)
	if err != nil || !strings.EqualFold(u.Host, c.origin.Host) || !strings.EqualFold(u.Scheme, c.origin.Scheme) {
		return Response{}, ErrForeignCursor
	}
	var resp Response
	if err := c.get(ctx, cursor, &resp); err != nil {
		return Response{}, err
	}
	return resp, nil
}

func (c *Client) get(ctx context.Context, u string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return &APIError{Status: res.StatusCode, Message: apiMessage(body)}
	}
	if err := json.NewDecoder(res.Body).Decode(v); err != nil {
		return fmt.Errorf("prismic: decode response: %w", err)
	}
	return nil
}

func apiMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return strings.TrimSpace(string(body))
}

// IsClientError reports whether err is an API answer in the 4xx range.
func IsClientError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500
}
