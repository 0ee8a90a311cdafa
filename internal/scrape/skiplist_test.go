package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSkipList_Defaults(t *testing.T) {
	s := NewSkipList(nil, nil)

	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.facebook.com/royalcaterers", true},
		{"https://m.facebook.com/royalcaterers", true},
		{"https://instagram.com/p/xyz", true},
		{"https://x.com/vendor", true},
		{"https://www.youtube.com/watch?v=1", true},
		{"https://in.pinterest.com/pin/1", true},
		{"https://www.pinterest.in/pin/1", true},
		{"https://vendor.example/menu.PDF", true},
		{"https://vendor.example/docs/2024/brochure.pdf", true},
		{"not a url", true},
		{"https://www.wedmegood.com/vendors/mumbai/royal", false},
		{"https://notfacebook.com/page", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Skipped(tt.url))
		})
	}
}

func TestSkipList_Custom(t *testing.T) {
	s := NewSkipList([]string{"justdial.com"}, []string{"/blog/*"})

	assert.True(t, s.Skipped("https://www.justdial.com/Mumbai/Caterers"))
	assert.True(t, s.Skipped("https://vendor.example/blog/post/1"))
	assert.True(t, s.Skipped("https://vendor.example/blog"))
	assert.False(t, s.Skipped("https://www.facebook.com/vendor"))
	assert.False(t, s.Skipped("https://vendor.example/menu.pdf"))
}

func TestMatchSegmented(t *testing.T) {
	assert.True(t, matchSegmented("/*.pdf", "/a.pdf"))
	assert.True(t, matchSegmented("/*.pdf", "/a/b/c.pdf"))
	assert.False(t, matchSegmented("/*.pdf", "/a/b/c.html"))
	assert.True(t, matchSegmented("/gallery/*", "/gallery/2023/img"))
	assert.False(t, matchSegmented("/gallery/*", "/galleryx"))
}
