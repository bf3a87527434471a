package search

import (
	"strings"

	"github.com/zhouzirui/help-center/backend/internal/model/article"
	"github.com/zhouzirui/help-center/backend/internal/model/persona"
)

const (
	// FeaturedLimit is the number of articles shown on the home view.
	FeaturedLimit = 10
	// RelatedLimit is the number of related articles shown beside an article.
	RelatedLimit = 3
)

// Query describes a search/browse request. Zero fields do not filter.
type Query struct {
	Text     string
	Audience article.Audience
	Category string
}

// Guide is a topic with its articles resolved.
type Guide struct {
	Title    string            `json:"title"`
	Articles []article.Article `json:"articles"`
}

// Engine filters the static article store. It holds no mutable state.
type Engine struct {
	store article.Store
}

// NewEngine creates an engine over store.
func NewEngine(store article.Store) *Engine {
	return &Engine{store: store}
}

// Store exposes the underlying article store.
func (e *Engine) Store() article.Store {
	return e.store
}

// Search returns the articles whose title, description, section titles or
// section bodies contain query, case-insensitively, in store order. An empty
// query matches every article. A non-empty audience keeps only articles
// listing it.
func (e *Engine) Search(query string, audience article.Audience) []article.Article {
	needle := strings.ToLower(query)
	results := make([]article.Article, 0)

	for _, item := range e.store.List() {
		if audience != "" && !item.HasAudience(audience) {
			continue
		}
		if needle != "" && !matches(item, needle) {
			continue
		}
		results = append(results, item)
	}

	return results
}

func matches(item article.Article, needle string) bool {
	if strings.Contains(strings.ToLower(item.Title), needle) ||
		strings.Contains(strings.ToLower(item.Description), needle) {
		return true
	}
	for _, section := range item.Sections {
		if strings.Contains(strings.ToLower(section.Title), needle) ||
			strings.Contains(strings.ToLower(section.Body), needle) {
			return true
		}
	}
	return false
}

// FilterCategory keeps the articles whose category equals category. Empty keeps all.
func FilterCategory(items []article.Article, category string) []article.Article {
	if category == "" {
		return items
	}

	filtered := make([]article.Article, 0, len(items))
	for _, item := range items {
		if item.Category == category {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

// Browse applies the search and then the category filter, as the search view does.
func (e *Engine) Browse(q Query) []article.Article {
	return FilterCategory(e.Search(q.Text, q.Audience), q.Category)
}

// Featured returns the default article list for a persona: the first articles
// of the store while exploring, otherwise the first articles of its audience.
func (e *Engine) Featured(p persona.Persona, limit int) []article.Article {
	audience, _ := p.Role.Audience()
	items := e.Search("", audience)
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

// Related returns other articles sharing a's category or any of its audience tags.
func (e *Engine) Related(a article.Article, limit int) []article.Article {
	related := make([]article.Article, 0, limit)
	for _, item := range e.store.List() {
		if item.ID == a.ID {
			continue
		}
		if item.Category != a.Category && !item.SharesAudience(a) {
			continue
		}
		related = append(related, item)
		if limit > 0 && len(related) == limit {
			break
		}
	}
	return related
}

// Guides resolves the guides-by-topic index against the store.
func (e *Engine) Guides() []Guide {
	topics := e.store.Topics()
	guides := make([]Guide, 0, len(topics))

	for _, topic := range topics {
		guide := Guide{Title: topic.Title, Articles: make([]article.Article, 0, len(topic.Slugs))}
		for _, slug := range topic.Slugs {
			if item, ok := e.store.FindBySlug(slug); ok {
				guide.Articles = append(guide.Articles, item)
			}
		}
		guides = append(guides, guide)
	}

	return guides
}

// Categories returns the distinct category labels in store order.
func (e *Engine) Categories() []string {
	seen := make(map[string]struct{})
	var labels []string
	for _, item := range e.store.List() {
		if _, ok := seen[item.Category]; ok {
			continue
		}
		seen[item.Category] = struct{}{}
		labels = append(labels, item.Category)
	}
	return labels
}
