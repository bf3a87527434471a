package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zhouzirui/help-center/backend/internal/model/article"
	"github.com/zhouzirui/help-center/backend/internal/service/search"
)

// Run executes the search command.
func (c *SearchCmd) Run(deps *Dependencies) error {
	audience, err := article.ParseAudience(c.Audience)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", err)
		return err
	}

	results := deps.Engine.Browse(search.Query{
		Text:     strings.TrimSpace(c.Query),
		Audience: audience,
		Category: strings.TrimSpace(c.Category),
	})
	if len(results) == 0 {
		fmt.Fprintln(deps.Stdout, "No articles found.")
		return nil
	}

	for _, item := range results {
		fmt.Fprintf(deps.Stdout, "%s  %s  [%s]\n", item.Slug, item.Title, item.Category)
	}
	return nil
}

// Run executes the article command.
func (c *ArticleCmd) Run(deps *Dependencies) error {
	item, ok := deps.Engine.Store().FindBySlug(c.Slug)
	if !ok {
		fmt.Fprintf(deps.Stderr, "error: article %q not found. Use 'helpctl search' to find one.\n", c.Slug)
		return fmt.Errorf("article %q not found", c.Slug)
	}

	fmt.Fprintf(deps.Stdout, "%s\n%s\n", item.Title, item.Description)
	fmt.Fprintf(deps.Stdout, "Category: %s  Updated: %s\n", item.Category, item.LastUpdated)
	for _, section := range item.Sections {
		fmt.Fprintf(deps.Stdout, "\n## %s\n%s\n", section.Title, strings.TrimSpace(section.Body))
	}

	related := deps.Engine.Related(item, search.RelatedLimit)
	if len(related) > 0 {
		fmt.Fprintln(deps.Stdout, "\nRelated:")
		for _, rel := range related {
			fmt.Fprintf(deps.Stdout, "  %s  %s\n", rel.Slug, rel.Title)
		}
	}
	return nil
}

// Run executes the guides command.
func (c *GuidesCmd) Run(deps *Dependencies) error {
	for _, guide := range deps.Engine.Guides() {
		fmt.Fprintln(deps.Stdout, guide.Title)
		for _, item := range guide.Articles {
			fmt.Fprintf(deps.Stdout, "  %s  %s\n", item.Slug, item.Title)
		}
	}
	return nil
}

// Run executes the ask command.
func (c *AskCmd) Run(deps *Dependencies) error {
	if deps.Asker == nil {
		return errors.New("ask is not available")
	}

	answer, err := deps.Asker.Ask(deps.Ctx, c.Query)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", err)
		return err
	}

	fmt.Fprintln(deps.Stdout, answer.Answer)
	if len(answer.Sources) > 0 {
		fmt.Fprintln(deps.Stdout, "\nSources:")
		for i, src := range answer.Sources {
			fmt.Fprintf(deps.Stdout, "  %d. %s  %s\n", i+1, src.Title, src.URL)
		}
	}
	return nil
}

// Run executes the identify command.
func (c *IdentifyCmd) Run(deps *Dependencies) error {
	if deps.Lookup == nil {
		return errors.New("identify is not available")
	}

	result, err := deps.Lookup.Lookup(deps.Ctx, c.IP)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", err)
		return err
	}

	if !result.Identified || result.Company == nil {
		fmt.Fprintf(deps.Stdout, "Not identified: %s\n", result.Reason)
		return nil
	}

	company := result.Company
	fmt.Fprintf(deps.Stdout, "%s\n", company.Name)
	for _, field := range []struct{ label, value string }{
		{"Industry", company.Industry},
		{"Size", company.Size},
		{"Domain", company.Domain},
	} {
		if field.value != "" {
			fmt.Fprintf(deps.Stdout, "%s: %s\n", field.label, field.value)
		}
	}
	return nil
}
