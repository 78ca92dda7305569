// Package search ranks stored pages against user queries: semantic search
// over embedding vectors, a paginated multilingual variant, plain substring
// search and page-to-page similarity.
package search

import (
	"context"
	"math"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"maktaba/app/internal/library"
	"maktaba/app/internal/metric"
)

const (
	defaultLimit = 10
	// defaultSemanticThreshold filters same-language matches.
	defaultSemanticThreshold = 0.7
	// defaultMultilingualThreshold is lower: cross-language embedding
	// similarity runs below same-language similarity for the same meaning.
	defaultMultilingualThreshold = 0.6
	// textSearchScore is a sentinel, not a real similarity. Substring hits
	// carry no comparable score.
	textSearchScore = 0.5
)

// Result is one ranked page hit. OriginalText and the translations carry the
// page's full stored text so callers need no second lookup to display a hit.
type Result struct {
	PageID          uint
	BookID          uint
	PageNumber      int
	BookTitle       string
	BookAuthor      string
	OriginalText    string
	EnTranslation   string
	IDTranslation   string
	Snippet         string
	PageImageURL    string
	SimilarityScore float64
}

// Page is one window of paginated multilingual results.
type Page struct {
	Results []Result
	Total   int64
	HasMore bool
}

// QueryEmbedder produces query-side embeddings.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Service executes searches against the page store.
type Service struct {
	repo     library.Repository
	embedder QueryEmbedder
	logger   *logrus.Logger
	metrics  *metric.Metrics
}

// Options wires the search service.
type Options struct {
	Repository library.Repository
	Embedder   QueryEmbedder
	Logger     *logrus.Logger
	Metrics    *metric.Metrics
}

// NewService constructs the search service.
func NewService(opts Options) (*Service, error) {
	if opts.Repository == nil {
		return nil, eris.New("library repository is required")
	}
	if opts.Embedder == nil {
		return nil, eris.New("query embedder is required")
	}

	return &Service{
		repo:     opts.Repository,
		embedder: opts.Embedder,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}, nil
}

// Semantic ranks pages by cosine similarity to the query. Pass NaN as the
// threshold to use the default cutoff; any real value, including zero and
// negatives, is applied as given. A failed query embedding degrades to an
// empty result set rather than an error: the caller sees "no matches", not an
// outage.
func (s *Service) Semantic(ctx context.Context, query string, limit int, threshold float64) ([]Result, error) {
	s.metrics.SearchExecuted("semantic")

	limit = normalizeLimit(limit)
	if math.IsNaN(threshold) {
		threshold = defaultSemanticThreshold
	}

	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		s.logError(logrus.Fields{"query_length": len(query)}, err, "embedding search query")
		return []Result{}, nil
	}

	rows, err := s.repo.SemanticRows(ctx, vector, threshold, limit, 0)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		results = append(results, resultFromRow(row, buildSnippet(row.OriginalText, query, snippetLength), row.SimilarityScore))
	}

	return results, nil
}

// Multilingual is the paginated cross-language variant: it returns a window
// of results plus the total match count, with language-aware snippets taken
// from stored translations where available. As with Semantic, a NaN threshold
// selects the default cutoff and any real value is applied as given.
func (s *Service) Multilingual(ctx context.Context, query, queryLanguage string, limit, offset int, threshold float64) (*Page, error) {
	s.metrics.SearchExecuted("multilingual")

	limit = normalizeLimit(limit)
	if offset < 0 {
		offset = 0
	}
	if math.IsNaN(threshold) {
		threshold = defaultMultilingualThreshold
	}

	language := queryLanguage
	if language == "" {
		language = DetectLanguage(query)
	}

	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		s.logError(logrus.Fields{"query_length": len(query)}, err, "embedding search query")
		return &Page{Results: []Result{}}, nil
	}

	total, err := s.repo.CountSemanticRows(ctx, vector, threshold)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.SemanticRows(ctx, vector, threshold, limit, offset)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		results = append(results, resultFromRow(row, languageSnippet(row, query, language), row.SimilarityScore))
	}

	return &Page{
		Results: results,
		Total:   total,
		HasMore: int64(offset+len(results)) < total,
	}, nil
}

// Text performs a case-insensitive substring search over original text. Every
// hit carries the fixed sentinel score; it is not comparable to semantic
// scores.
func (s *Service) Text(ctx context.Context, query string, limit int) ([]Result, error) {
	s.metrics.SearchExecuted("text")

	rows, err := s.repo.TextRows(ctx, query, normalizeLimit(limit))
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		results = append(results, resultFromRow(row, buildSnippet(row.OriginalText, query, snippetLength), textSearchScore))
	}

	return results, nil
}

// SimilarPages ranks all other pages by similarity to the reference page's
// stored vector. A reference page without a vector yields an empty set.
func (s *Service) SimilarPages(ctx context.Context, pageID uint, limit int) ([]Result, error) {
	s.metrics.SearchExecuted("similar")

	page, err := s.repo.GetPageByID(ctx, pageID)
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, eris.Wrapf(library.ErrPageNotFound, "page %d", pageID)
	}
	if page.EmbeddingVector == nil {
		return []Result{}, nil
	}

	rows, err := s.repo.SimilarRows(ctx, pageID, page.EmbeddingVector.Slice(), normalizeLimit(limit))
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		results = append(results, resultFromRow(row, buildSnippet(row.OriginalText, "", snippetLength), row.SimilarityScore))
	}

	return results, nil
}

func resultFromRow(row library.SearchRow, snippet string, score float64) Result {
	return Result{
		PageID:          row.PageID,
		BookID:          row.BookID,
		PageNumber:      row.PageNumber,
		BookTitle:       row.BookTitle,
		BookAuthor:      row.BookAuthor,
		OriginalText:    row.OriginalText,
		EnTranslation:   row.EnTranslation,
		IDTranslation:   row.IDTranslation,
		Snippet:         snippet,
		PageImageURL:    row.PageImageURL,
		SimilarityScore: score,
	}
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	return limit
}

func (s *Service) logError(fields logrus.Fields, err error, message string) {
	if s.logger == nil || err == nil {
		return
	}

	entry := s.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}
