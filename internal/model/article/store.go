package article

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidArticle is returned when the bundled data breaks a store invariant.
var ErrInvalidArticle = errors.New("invalid article")

// Store exposes the static article collection.
type Store interface {
	List() []Article
	FindBySlug(slug string) (Article, bool)
	Topics() []Topic
	Categories() []Category
}

// MemoryStore implements Store with an in-memory slice. It is never mutated after construction.
type MemoryStore struct {
	items      []Article
	bySlug     map[string]int
	topics     []Topic
	categories []Category
}

// NewMemoryStore validates items and returns a store preserving their order.
func NewMemoryStore(items []Article, topics []Topic, categories []Category) (*MemoryStore, error) {
	store := &MemoryStore{
		items:      append([]Article(nil), items...),
		bySlug:     make(map[string]int, len(items)),
		topics:     append([]Topic(nil), topics...),
		categories: append([]Category(nil), categories...),
	}

	for i, item := range store.items {
		if err := validate(item); err != nil {
			return nil, err
		}
		if _, dup := store.bySlug[item.Slug]; dup {
			return nil, fmt.Errorf("%w: duplicate slug %q", ErrInvalidArticle, item.Slug)
		}
		store.bySlug[item.Slug] = i
	}

	for _, topic := range store.topics {
		for _, slug := range topic.Slugs {
			if _, ok := store.bySlug[slug]; !ok {
				return nil, fmt.Errorf("%w: topic %q references unknown slug %q", ErrInvalidArticle, topic.Title, slug)
			}
		}
	}

	return store, nil
}

func validate(item Article) error {
	if item.Slug == "" {
		return fmt.Errorf("%w: article %q has no slug", ErrInvalidArticle, item.ID)
	}
	if len(item.Audience) == 0 {
		return fmt.Errorf("%w: article %q has an empty audience", ErrInvalidArticle, item.Slug)
	}
	for _, aud := range item.Audience {
		if !aud.Valid() {
			return fmt.Errorf("%w: article %q has unknown audience %q", ErrInvalidArticle, item.Slug, aud)
		}
	}
	if item.LastUpdated != "" {
		if _, err := time.Parse(time.DateOnly, item.LastUpdated); err != nil {
			return fmt.Errorf("%w: article %q has malformed date %q", ErrInvalidArticle, item.Slug, item.LastUpdated)
		}
	}
	return nil
}

// List returns every article in insertion order.
func (s *MemoryStore) List() []Article {
	return append([]Article(nil), s.items...)
}

// FindBySlug looks up an article by its URL-stable key.
func (s *MemoryStore) FindBySlug(slug string) (Article, bool) {
	idx, ok := s.bySlug[slug]
	if !ok {
		return Article{}, false
	}
	return s.items[idx], true
}

// Topics returns the guides-by-topic index.
func (s *MemoryStore) Topics() []Topic {
	return append([]Topic(nil), s.topics...)
}

// Categories returns the home page category cards.
func (s *MemoryStore) Categories() []Category {
	return append([]Category(nil), s.categories...)
}
