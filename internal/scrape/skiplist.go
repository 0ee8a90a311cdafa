package scrape

import (
	"net/url"
	"path"
	"strings"
)

// defaultSkipHosts are social networks whose pages are login walls or
// app shells with no vendor details.
var defaultSkipHosts = []string{
	"facebook.com",
	"instagram.com",
	"twitter.com",
	"x.com",
	"linkedin.com",
	"youtube.com",
	"pinterest.com",
	"pinterest.in",
}

// defaultSkipPatterns are glob patterns matched against the URL path.
var defaultSkipPatterns = []string{
	"/*.pdf",
}

// SkipList rejects URLs that are never worth fetching.
type SkipList struct {
	hosts    []string
	patterns []string
}

// NewSkipList builds a skip list. Nil arguments select the defaults.
func NewSkipList(hosts, patterns []string) *SkipList {
	if hosts == nil {
		hosts = defaultSkipHosts
	}
	if patterns == nil {
		patterns = defaultSkipPatterns
	}
	return &SkipList{hosts: hosts, patterns: patterns}
}

// Skipped reports whether rawURL is on a skipped host, matches a skipped
// path pattern, or does not parse.
func (s *SkipList) Skipped(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range s.hosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	p := strings.ToLower(u.Path)
	for _, pattern := range s.patterns {
		if matchSegmented(strings.ToLower(pattern), p) {
			return true
		}
	}
	return false
}

// matchSegmented performs glob matching where "/*.pdf" matches a PDF at
// any depth and "/blog/*" matches "/blog/a/b".
func matchSegmented(pattern, urlPath string) bool {
	if ok, _ := path.Match(pattern, urlPath); ok {
		return true
	}
	if strings.HasPrefix(pattern, "/*.") {
		return strings.HasSuffix(urlPath, strings.TrimPrefix(pattern, "/*"))
	}
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if urlPath == prefix || strings.HasPrefix(urlPath, prefix+"/") {
			return true
		}
	}
	return false
}
