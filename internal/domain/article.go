package domain

import "strings"

// Article is a headline record produced by the feed source.
type Article struct {
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	Source    string `json:"source"`
	URL       string `json:"url"`
	Published string `json:"published"`
}

// NormalizedTitle is the key used to deduplicate headlines across feeds.
func (a Article) NormalizedTitle() string {
	return strings.Join(strings.Fields(strings.ToLower(a.Title)), " ")
}
