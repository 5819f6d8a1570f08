package scrape

import (
	"net/http"
	"strings"
)

// BlockType describes the kind of anti-bot page detected.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
)

var (
	cloudflareMarkers = []string{"checking your browser", "cf-browser-verification", "cf-challenge"}
	captchaMarkers    = []string{"g-recaptcha", "h-captcha", "hcaptcha.com", "complete the captcha"}
)

// DetectBlock inspects a response for a challenge page instead of content.
// Pages that merely mention a captcha in their copy are not treated as blocked.
func DetectBlock(resp *http.Response, body []byte) BlockType {
	if resp == nil {
		return BlockNone
	}

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusServiceUnavailable {
		if resp.Header.Get("cf-ray") != "" || strings.EqualFold(resp.Header.Get("server"), "cloudflare") {
			return BlockCloudflare
		}
	}

	lower := strings.ToLower(string(body))
	if containsAny(lower, cloudflareMarkers) {
		return BlockCloudflare
	}
	if containsAny(lower, captchaMarkers) {
		return BlockCaptcha
	}
	return BlockNone
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
