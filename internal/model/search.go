package model

import "time"

// SearchQuery is one web-search query issued by a strategy. Queries are
// tried in order; earlier queries are preferred.
type SearchQuery struct {
	Text          string `json:"text"`
	PreferredSite string `json:"preferred_site,omitempty"`
}

// SearchHit is a single search result in backend relevance order.
type SearchHit struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// MinDocumentChars is the shortest distilled text worth sending to the LLM.
const MinDocumentChars = 200

// FetchedDocument is the distilled main text of a page.
type FetchedDocument struct {
	URL       string    `json:"url"`
	Text      string    `json:"text"`
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Usable reports whether the document has enough text to extract from.
func (d FetchedDocument) Usable() bool {
	return len(d.Text) >= MinDocumentChars
}
