package scrape

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectBlock(t *testing.T) {
	tests := []struct {
		name   string
		status int
		header http.Header
		body   string
		want   BlockType
	}{
		{"nil-safe ok page", 200, nil, "<p>Roofing since 1990</p>", BlockNone},
		{"cloudflare header", 403, http.Header{"Cf-Ray": {"abc"}}, "denied", BlockCloudflare},
		{"cloudflare server", 503, http.Header{"Server": {"cloudflare"}}, "", BlockCloudflare},
		{"challenge body", 200, nil, "<title>Just a moment</title>Checking your browser", BlockCloudflare},
		{"recaptcha widget", 200, nil, `<div class="g-recaptcha"></div>`, BlockCaptcha},
		{"captcha in copy", 200, nil, "<p>We never use a captcha on our forms.</p>", BlockNone},
		{"403 without cloudflare", 403, nil, "forbidden", BlockNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{StatusCode: tt.status, Header: tt.header}
			if resp.Header == nil {
				resp.Header = http.Header{}
			}
			assert.Equal(t, tt.want, DetectBlock(resp, []byte(tt.body)))
		})
	}

	assert.Equal(t, BlockNone, DetectBlock(nil, nil))
}
