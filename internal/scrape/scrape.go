// Package scrape fetches web pages and reduces them to plain text for
// prompting.
package scrape

import (
	"context"

	"github.com/rotisserie/eris"
)

var (
	// ErrBlocked is returned when the page is an anti-bot interstitial.
	ErrBlocked = eris.New("scrape: blocked")
	// ErrNoContent is returned when a page has no visible text.
	ErrNoContent = eris.New("scrape: no content")
)

// PageFetcher returns the visible text of a web page.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}
