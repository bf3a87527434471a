package article

import (
	"fmt"
	"strings"
)

// Audience is a role tag attached to an article indicating its intended readership.
type Audience string

const (
	AudienceEmployee   Audience = "employee"
	AudienceAdmin      Audience = "admin"
	AudienceBookkeeper Audience = "bookkeeper"
	AudienceVendor     Audience = "vendor"
)

// Audiences lists every audience tag in display order.
func Audiences() []Audience {
	return []Audience{AudienceEmployee, AudienceAdmin, AudienceBookkeeper, AudienceVendor}
}

// Valid reports whether a is one of the known audience tags.
func (a Audience) Valid() bool {
	switch a {
	case AudienceEmployee, AudienceAdmin, AudienceBookkeeper, AudienceVendor:
		return true
	}
	return false
}

// Label returns the human readable audience name.
func (a Audience) Label() string {
	switch a {
	case AudienceEmployee:
		return "Employee"
	case AudienceAdmin:
		return "Admin"
	case AudienceBookkeeper:
		return "Bookkeeper"
	case AudienceVendor:
		return "Vendor"
	}
	return ""
}

// ParseAudience converts raw input (query strings, CLI flags) into an Audience.
// Empty input yields the zero value and no error.
func ParseAudience(raw string) (Audience, error) {
	value := Audience(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return "", nil
	}
	if !value.Valid() {
		return "", fmt.Errorf("unknown audience %q", raw)
	}
	return value, nil
}

// Section is one titled block of an article body.
type Section struct {
	ID    string `json:"id" yaml:"id"`
	Title string `json:"title" yaml:"title"`
	Body  string `json:"body" yaml:"body"`
}

// Article is a single help-center entry.
type Article struct {
	ID          string     `json:"id" yaml:"id"`
	Slug        string     `json:"slug" yaml:"slug"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description" yaml:"description"`
	Category    string     `json:"category" yaml:"category"`
	Audience    []Audience `json:"audience" yaml:"audience"`
	LastUpdated string     `json:"lastUpdated" yaml:"updated"`
	Sections    []Section  `json:"sections" yaml:"sections"`
}

// HasAudience reports whether the article lists aud in its audience set.
func (a Article) HasAudience(aud Audience) bool {
	for _, item := range a.Audience {
		if item == aud {
			return true
		}
	}
	return false
}

// SharesAudience reports whether a and other have at least one audience tag in common.
func (a Article) SharesAudience(other Article) bool {
	for _, item := range other.Audience {
		if a.HasAudience(item) {
			return true
		}
	}
	return false
}

// Topic groups articles for the guides-by-topic index.
type Topic struct {
	Title string   `json:"title" yaml:"title"`
	Slugs []string `json:"slugs" yaml:"slugs"`
}

// Category is a home page card that links to a canned search.
type Category struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Icon        string `json:"icon" yaml:"icon"`
	Query       string `json:"query" yaml:"query"`
}
