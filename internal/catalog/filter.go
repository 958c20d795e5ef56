package catalog

import (
	"strings"

	"github.com/kakomon/admin/internal/models"
)

// Filter is the list page's search state. Empty fields match everything.
type Filter struct {
	Search  string `json:"search"`
	Subject string `json:"subject"`
	Year    string `json:"year"`
}

// Match reports whether doc passes all three criteria: search text contained
// in school or filename (case-insensitive), exact subject, exact year string.
func (f Filter) Match(doc models.Document) bool {
	return f.matchSearch(doc) && f.matchSubject(doc) && f.matchYear(doc)
}

func (f Filter) matchSearch(doc models.Document) bool {
	if f.Search == "" {
		return true
	}
	needle := strings.ToLower(f.Search)
	return strings.Contains(strings.ToLower(doc.School), needle) ||
		strings.Contains(strings.ToLower(doc.Filename), needle)
}

func (f Filter) matchSubject(doc models.Document) bool {
	return f.Subject == "" || doc.Subject == f.Subject
}

func (f Filter) matchYear(doc models.Document) bool {
	return f.Year == "" || doc.YearKey() == f.Year
}

// Apply returns the matching documents in source order.
func Apply(docs []models.Document, f Filter) []models.Document {
	out := make([]models.Document, 0, len(docs))
	for _, d := range docs {
		if f.Match(d) {
			out = append(out, d)
		}
	}
	return out
}
