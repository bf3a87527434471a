package helpdesk

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/zhouzirui/help-center/backend/internal/model/helpdesk"
)

// NoResultsAnswer is returned without consulting the model when the search found nothing.
const NoResultsAnswer = "I couldn't find any relevant help articles for your question. Please try rephrasing your query or contact support directly."

// ErrInvalidQuery is returned for an empty query.
var ErrInvalidQuery = errors.New("missing or invalid query parameter")

// Searcher finds help-desk articles for a query.
type Searcher interface {
	Search(ctx context.Context, query string) ([]helpdesk.Source, error)
}

// Answerer synthesizes an answer from retrieved sources.
type Answerer interface {
	Answer(ctx context.Context, query string, sources []helpdesk.Source) (string, error)
}

// Service combines remote search with model synthesis.
type Service struct {
	searcher Searcher
	answerer Answerer
	logger   *slog.Logger
}

// NewService wires a Searcher and an Answerer.
func NewService(searcher Searcher, answerer Answerer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{searcher: searcher, answerer: answerer, logger: logger}
}

// Ask searches the help desk for query and asks the model to answer from the results.
func (s *Service) Ask(ctx context.Context, query string) (helpdesk.Answer, error) {
	if strings.TrimSpace(query) == "" {
		return helpdesk.Answer{}, ErrInvalidQuery
	}

	s.logger.Info("searching help center", "query", query)
	sources, err := s.searcher.Search(ctx, query)
	if err != nil {
		s.logger.Error("help center search failed", "error", err)
		return helpdesk.Answer{}, err
	}

	if len(sources) == 0 {
		s.logger.Info("no articles found", "query", query)
		return helpdesk.Answer{Answer: NoResultsAnswer, Sources: []helpdesk.Source{}}, nil
	}

	answer, err := s.answerer.Answer(ctx, query, sources)
	if err != nil {
		return helpdesk.Answer{}, err
	}

	return helpdesk.Answer{Answer: answer, Sources: sources, Query: query}, nil
}
