// Package customsearch wraps the Google Custom Search JSON API.
package customsearch

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/rotisserie/eris"
	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// MaxPageSize is the largest page the API returns.
const MaxPageSize = 10

var (
	// ErrRateLimited indicates the daily or per-minute quota was exceeded (429).
	ErrRateLimited = eris.New("customsearch: rate limit exceeded")

	// ErrBadRequest indicates the API rejected the query or offset (400),
	// which it also does once Start passes the result horizon.
	ErrBadRequest = eris.New("customsearch: bad request")

	// ErrUnauthorized indicates an invalid key or engine id (401/403).
	ErrUnauthorized = eris.New("customsearch: unauthorized")
)

// Client searches a programmable search engine.
type Client interface {
	Search(ctx context.Context, q Query) (*Page, error)
}

// Query is one page request. Start is the 1-based offset of the first result.
type Query struct {
	Text  string
	Start int
	Num   int
}

// Item is a single ranked search result.
type Item struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Page is one page of results.
type Page struct {
	Items        []Item
	HasNextPage  bool
	TotalResults int64
}

// Option configures the client.
type Option func(*apiClient)

// WithBaseURL overrides the default API endpoint.
func WithBaseURL(url string) Option {
	return func(c *apiClient) {
		c.opts = append(c.opts, option.WithEndpoint(url))
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *apiClient) {
		c.opts = append(c.opts, option.WithHTTPClient(hc))
	}
}

type apiClient struct {
	engineID string
	svc      *customsearch.Service
	opts     []option.ClientOption
}

// NewClient creates a Custom Search client for the given key and engine id.
func NewClient(ctx context.Context, apiKey, engineID string, opts ...Option) (Client, error) {
	c := &apiClient{engineID: engineID}
	for _, o := range opts {
		o(c)
	}
	svc, err := customsearch.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, c.opts...)...)
	if err != nil {
		return nil, eris.Wrap(err, "customsearch: create service")
	}
	c.svc = svc
	return c, nil
}

func (c *apiClient) Search(ctx context.Context, q Query) (*Page, error) {
	num := q.Num
	if num <= 0 || num > MaxPageSize {
		num = MaxPageSize
	}
	start := q.Start
	if start < 1 {
		start = 1
	}

	res, err := c.svc.Cse.List().
		Q(q.Text).
		Cx(c.engineID).
		Start(int64(start)).
		Num(int64(num)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify(err, start)
	}

	page := &Page{Items: make([]Item, 0, len(res.Items))}
	for _, it := range res.Items {
		if it == nil {
			continue
		}
		page.Items = append(page.Items, Item{Title: it.Title, Link: it.Link, Snippet: it.Snippet})
	}
	if res.Queries != nil {
		page.HasNextPage = len(res.Queries.NextPage) > 0
	}
	if res.SearchInformation != nil {
		page.TotalResults, _ = strconv.ParseInt(res.SearchInformation.TotalResults, 10, 64)
	}
	return page, nil
}

// classify maps API status codes onto the package sentinels.
func classify(err error, start int) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusTooManyRequests:
			return eris.Wrapf(ErrRateLimited, "start %d: %s", start, gerr.Message)
		case http.StatusBadRequest:
			return eris.Wrapf(ErrBadRequest, "start %d: %s", start, gerr.Message)
		case http.StatusUnauthorized, http.StatusForbidden:
			return eris.Wrapf(ErrUnauthorized, "start %d: %s", start, gerr.Message)
		}
	}
	return eris.Wrapf(err, "customsearch: search start %d", start)
}

// IsRateLimited reports whether err is a quota rejection.
func IsRateLimited(err error) bool { return errors.Is(err, ErrRateLimited) }

// IsBadRequest reports whether err is a rejected query or offset.
func IsBadRequest(err error) bool { return errors.Is(err, ErrBadRequest) }
