package scrape

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

// BlockType names the anti-bot layer that refused a fetch.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockAkamai     BlockType = "akamai"
	BlockImperva    BlockType = "imperva"
	BlockDataDome   BlockType = "datadome"
	BlockCaptcha    BlockType = "captcha"
	BlockThrottled  BlockType = "throttled"
	BlockJSShell    BlockType = "js_shell"
)

// Rendered reports whether a headless browser can get past this block.
func (t BlockType) Rendered() bool { return t == BlockJSShell }

// BlockedError is returned by LocalScraper when a response is a block page.
type BlockedError struct {
	Type   BlockType
	Status int
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("blocked by %s (status %d)", e.Type, e.Status)
}

// probe is what a rule sees of a response.
type probe struct {
	status int
	header http.Header
	body   string // lower-cased
	size   int
}

type blockRule struct {
	kind  BlockType
	match func(p probe) bool
}

// Rules run in order; the first match wins. Header and status checks come
// before body checks.
var blockRules = []blockRule{
	{BlockCloudflare, func(p probe) bool {
		if p.status != http.StatusForbidden && p.status != http.StatusServiceUnavailable {
			return false
		}
		return p.header.Get("cf-ray") != "" || p.header.Get("cf-cache-status") != "" ||
			strings.EqualFold(p.header.Get("server"), "cloudflare")
	}},
	{BlockThrottled, func(p probe) bool { return p.status == http.StatusTooManyRequests }},
	{BlockDataDome, func(p probe) bool {
		return p.header.Get("x-datadome") != "" || strings.Contains(p.body, "captcha-delivery.com")
	}},
	{BlockImperva, func(p probe) bool {
		return strings.Contains(p.body, "incapsula incident id") || strings.Contains(p.body, "_incapsula_resource")
	}},
	{BlockAkamai, func(p probe) bool {
		return strings.Contains(p.body, "access denied") && strings.Contains(p.body, "reference #")
	}},
	{BlockCloudflare, func(p probe) bool {
		return strings.Contains(p.body, "checking your browser") ||
			strings.Contains(p.body, "cf-browser-verification") ||
			(strings.Contains(p.body, "cloudflare") && strings.Contains(p.body, "challenge"))
	}},
	{BlockCaptcha, func(p probe) bool {
		return strings.Contains(p.body, "captcha") || strings.Contains(p.body, "px-captcha")
	}},
	{BlockJSShell, func(p probe) bool {
		if p.size >= 2000 {
			return false
		}
		return (strings.Contains(p.body, "<noscript") && strings.Contains(p.body, "javascript")) ||
			strings.Contains(p.body, `meta http-equiv="refresh"`) ||
			emptyAppRoot.MatchString(p.body)
	}},
}

// emptyAppRoot matches the mount point of a client-rendered app with
// nothing inside it.
var emptyAppRoot = regexp.MustCompile(`<div id="(root|app|__next)">\s*</div>`)

// DetectBlock checks an HTTP response for signs of anti-bot protection.
func DetectBlock(resp *http.Response, body []byte) (bool, BlockType) {
	if resp == nil {
		return false, BlockNone
	}
	p := probe{
		status: resp.StatusCode,
		header: resp.Header,
		body:   strings.ToLower(string(body)),
		size:   len(body),
	}
	if p.header == nil {
		p.header = http.Header{}
	}
	for _, r := range blockRules {
		if r.match(p) {
			return true, r.kind
		}
	}
	return false, BlockNone
}
