package firecrawl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Default base URL for the Firecrawl v1 API.
const defaultBaseURL = "https://api.firecrawl.dev/v1"

// Extract job states reported by GET /extract/{id}.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)

// Client defines the Firecrawl extract operations.
type Client interface {
	StartExtract(ctx context.Context, req ExtractRequest) (*ExtractResponse, error)
	GetExtractStatus(ctx context.Context, id string) (*ExtractStatusResponse, error)
}

// ExtractRequest is the body for POST /extract.
type ExtractRequest struct {
	URLs   []string `json:"urls"`
	Prompt string   `json:"prompt,omitempty"`
	Schema any      `json:"schema,omitempty"`
}

// ExtractResponse is the response from POST /extract. Small jobs may come
// back already completed with Data set.
type ExtractResponse struct {
	Success bool            `json:"success"`
	ID      string          `json:"id"`
	Status  string          `json:"status,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// ExtractStatusResponse is the response from GET /extract/{id}.
type ExtractStatusResponse struct {
	Success bool            `json:"success"`
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// DecodeData unmarshals the extracted data into out. Firecrawl returns either
// an object or a one-element array depending on the URL count; the first
// element is used for arrays.
func (r *ExtractStatusResponse) DecodeData(out any) error {
	data := bytes.TrimSpace(r.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return eris.New("firecrawl: extract returned no data")
	}
	if data[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return eris.Wrap(err, "firecrawl: decode extract data array")
		}
		if len(items) == 0 {
			return eris.New("firecrawl: extract returned no data")
		}
		data = items[0]
	}
	return eris.Wrap(json.Unmarshal(data, out), "firecrawl: decode extract data")
}

// APIError is returned when Firecrawl responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("firecrawl: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// httpClient implements Client using net/http.
type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a new Firecrawl client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) StartExtract(ctx context.Context, req ExtractRequest) (*ExtractResponse, error) {
	var resp ExtractResponse
	if err := c.post(ctx, "/extract", req, &resp); err != nil {
		return nil, eris.Wrap(err, "firecrawl: start extract")
	}
	if !resp.Success {
		return nil, eris.New("firecrawl: start extract: request not accepted")
	}
	return &resp, nil
}

func (c *httpClient) GetExtractStatus(ctx context.Context, id string) (*ExtractStatusResponse, error) {
	var resp ExtractStatusResponse
	if err := c.get(ctx, fmt.Sprintf("/extract/%s", id), &resp); err != nil {
		return nil, eris.Wrapf(err, "firecrawl: get extract status %s", id)
	}
	return &resp, nil
}

func (c *httpClient) post(ctx context.Context, path string, body any, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return eris.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	return c.do(req, out)
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	return c.do(req, out)
}

func (c *httpClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrap(err, "decode response")
	}

	return nil
}
