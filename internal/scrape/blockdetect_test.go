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
		{"cloudflare ray on 403", 403, http.Header{"Cf-Ray": {"abc123"}}, "", BlockCloudflare},
		{"cloudflare server on 503", 503, http.Header{"Server": {"cloudflare"}}, "", BlockCloudflare},
		{"cloudflare challenge body", 200, nil, "<title>Just a moment</title>Checking your browser before accessing", BlockCloudflare},
		{"throttled", http.StatusTooManyRequests, nil, "slow down", BlockThrottled},
		{"datadome header", 403, http.Header{"X-Datadome": {"protected"}}, "", BlockDataDome},
		{"datadome captcha frame", 200, nil, `<iframe src="https://geo.captcha-delivery.com/captcha/"></iframe>`, BlockDataDome},
		{"imperva incident", 200, nil, "Request unsuccessful. Incapsula incident ID: 123-456", BlockImperva},
		{"akamai reference", 403, nil, "<h1>Access Denied</h1>You don't have permission. Reference #18.2f3c", BlockAkamai},
		{"recaptcha", 200, nil, "<body>Please complete the reCAPTCHA to continue</body>", BlockCaptcha},
		{"noscript shell", 200, nil, "<html><noscript>Enable JavaScript to continue</noscript></html>", BlockJSShell},
		{"empty next root", 200, nil, `<html><body><div id="__next"> </div><script src="/app.js"></script></body></html>`, BlockJSShell},
		{"clean venue page", 200, nil, "<html><body>Royal Banquets, Salt Lake. Capacity 50 to 300 guests.</body></html>", BlockNone},
		{"403 without markers", 403, nil, "<html>Forbidden</html>", BlockNone},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := &http.Response{StatusCode: tc.status, Header: tc.header}
			blocked, got := DetectBlock(resp, []byte(tc.body))
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.want != BlockNone, blocked)
		})
	}
}

func TestDetectBlock_NilResponse(t *testing.T) {
	blocked, bt := DetectBlock(nil, nil)
	assert.False(t, blocked)
	assert.Equal(t, BlockNone, bt)
}

func TestDetectBlock_LargeAppRootIsNotShell(t *testing.T) {
	body := make([]byte, 0, 4096)
	body = append(body, `<div id="root"></div>`...)
	for len(body) < 3000 {
		body = append(body, "<p>Mehendi artist in Kolkata, bridal packages from 8000.</p>"...)
	}
	blocked, _ := DetectBlock(&http.Response{StatusCode: 200}, body)
	assert.False(t, blocked)
}

func TestBlockType_Rendered(t *testing.T) {
	assert.True(t, BlockJSShell.Rendered())
	assert.False(t, BlockCloudflare.Rendered())
	assert.False(t, BlockThrottled.Rendered())
}

func TestBlockedError(t *testing.T) {
	err := &BlockedError{Type: BlockImperva, Status: 403}
	assert.Equal(t, "blocked by imperva (status 403)", err.Error())
}
