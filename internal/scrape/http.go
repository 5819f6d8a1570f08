package scrape

import (
	"context"
	"html"
	"io"
	"mime"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/sells-group/leadgen-cli/internal/resilience"
)

const (
	defaultMaxChars  = 3000
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	maxBodyBytes     = 1 << 20
)

// HTTPFetcher downloads pages with net/http and strips them to text.
type HTTPFetcher struct {
	client    *http.Client
	maxChars  int
	userAgent string
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithMaxChars caps the returned text length in characters.
func WithMaxChars(n int) Option {
	return func(f *HTTPFetcher) {
		if n > 0 {
			f.maxChars = n
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *HTTPFetcher) { f.client = c }
}

// WithUserAgent overrides the request User-Agent.
func WithUserAgent(ua string) Option {
	return func(f *HTTPFetcher) { f.userAgent = ua }
}

// NewHTTPFetcher creates a fetcher whose requests give up after timeout.
func NewHTTPFetcher(timeout time.Duration, opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: timeout,
				}).DialContext,
				TLSHandshakeTimeout: timeout,
			},
		},
		maxChars:  defaultMaxChars,
		userAgent: defaultUserAgent,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fetch downloads url and returns its visible body text, collapsed to single
// spaces and truncated to the configured length.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", eris.Wrap(err, "scrape: create request")
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", eris.Wrapf(err, "scrape: fetch %s", url)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(decodeBody(resp), maxBodyBytes))
	if err != nil {
		return "", eris.Wrapf(err, "scrape: read %s", url)
	}

	if bt := DetectBlock(resp, body); bt != BlockNone {
		return "", eris.Wrapf(ErrBlocked, "%s (%s)", url, bt)
	}
	if resp.StatusCode >= 400 {
		return "", eris.Wrap(resilience.NewStatusError("scrape", resp.StatusCode, nil), url)
	}

	text := Truncate(PageText(string(body)), f.maxChars)
	if text == "" {
		return "", eris.Wrap(ErrNoContent, url)
	}
	return text, nil
}

// decodeBody converts the response to UTF-8 using the declared charset.
// Unknown charsets are passed through unchanged.
func decodeBody(resp *http.Response) io.Reader {
	_, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		return resp.Body
	}
	charset := params["charset"]
	if charset == "" || strings.EqualFold(charset, "utf-8") {
		return resp.Body
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return resp.Body
	}
	return enc.NewDecoder().Reader(resp.Body)
}

var (
	bodyRe  = regexp.MustCompile(`(?is)<body[^>]*>(.*)</body>`)
	dropRes = func() []*regexp.Regexp {
		var out []*regexp.Regexp
		for _, tag := range []string{"script", "style", "nav", "header", "footer", "noscript"} {
			out = append(out, regexp.MustCompile(`(?is)<`+tag+`\b[^>]*>.*?</`+tag+`>`))
		}
		return out
	}()
	commentRe = regexp.MustCompile(`(?s)<!--.*?-->`)
	tagRe     = regexp.MustCompile(`<[^>]+>`)
	spaceRe   = regexp.MustCompile(`\s+`)
)

// PageText returns the visible text of the document body with script,
// style, nav, header, and footer blocks removed and whitespace collapsed.
func PageText(doc string) string {
	if m := bodyRe.FindStringSubmatch(doc); m != nil {
		doc = m[1]
	}
	doc = commentRe.ReplaceAllString(doc, " ")
	for _, re := range dropRes {
		doc = re.ReplaceAllString(doc, " ")
	}
	doc = tagRe.ReplaceAllString(doc, " ")
	doc = strings.ReplaceAll(html.UnescapeString(doc), "\u00a0", " ")
	doc = spaceRe.ReplaceAllString(doc, " ")
	return strings.TrimSpace(doc)
}

// Truncate cuts s to at most n characters without splitting a rune.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n]))
}
