// Package ingest orchestrates turning uploaded files into stored, embedded
// book pages. Files are processed independently and sequentially; one file's
// failure never aborts its siblings.
package ingest

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"maktaba/app/internal/extract"
	"maktaba/app/internal/library"
	"maktaba/app/internal/metric"
)

// Status reports the outcome for one file in a batch.
type Status string

const (
	// StatusSuccess means all of the file's pages were committed.
	StatusSuccess Status = "success"
	// StatusError means the file contributed no pages.
	StatusError Status = "error"
)

// allowedContentTypes is the upload allow-list. Anything else is rejected
// per file, before extraction.
var allowedContentTypes = map[string]struct{}{
	"text/plain":         {},
	"text/markdown":      {},
	"application/pdf":    {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
}

// File is one uploaded document.
type File struct {
	Filename    string
	ContentType string
	Data        []byte
}

// PageSummary describes one stored page of a successfully ingested file.
type PageSummary struct {
	PageNumber int
	TextLength int
}

// FileResult is the per-file outcome of an ingestion batch.
type FileResult struct {
	Filename string
	Status   Status
	Error    string
	Pages    []PageSummary
}

// Extractor turns a file into ordered page texts.
type Extractor interface {
	ExtractFile(ctx context.Context, filename string, data []byte) ([]extract.ExtractedPage, error)
}

// DocumentEmbedder produces storage-side embeddings for page text.
type DocumentEmbedder interface {
	EmbedDocument(ctx context.Context, text string) ([]float32, error)
	ModelTag() string
}

// ObjectStore persists page images.
type ObjectStore interface {
	Store(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Orchestrator runs the ingestion pipeline.
type Orchestrator struct {
	repo      library.Repository
	extractor Extractor
	embedder  DocumentEmbedder
	store     ObjectStore
	logger    *logrus.Logger
	metrics   *metric.Metrics
}

// Options wires the orchestrator with its dependencies.
type Options struct {
	Repository library.Repository
	Extractor  Extractor
	Embedder   DocumentEmbedder
	Store      ObjectStore
	Logger     *logrus.Logger
	Metrics    *metric.Metrics
}

// NewOrchestrator constructs the ingestion orchestrator.
func NewOrchestrator(opts Options) (*Orchestrator, error) {
	if opts.Repository == nil {
		return nil, eris.New("library repository is required")
	}
	if opts.Extractor == nil {
		return nil, eris.New("extractor is required")
	}
	if opts.Embedder == nil {
		return nil, eris.New("document embedder is required")
	}
	if opts.Store == nil {
		return nil, eris.New("object store is required")
	}

	return &Orchestrator{
		repo:      opts.Repository,
		extractor: opts.Extractor,
		embedder:  opts.Embedder,
		store:     opts.Store,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}, nil
}

// Ingest processes the uploaded files for one book. Files run sequentially;
// each file's pages commit atomically, and a failed file is reported in its
// result entry without aborting the batch.
func (o *Orchestrator) Ingest(ctx context.Context, bookID uint, files []File) ([]FileResult, error) {
	book, err := o.repo.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, eris.Wrapf(library.ErrBookNotFound, "book %d", bookID)
	}

	results := make([]FileResult, 0, len(files))
	for _, file := range files {
		result := o.ingestFile(ctx, bookID, file)
		if result.Status == StatusSuccess {
			o.metrics.FileProcessed("success")
		} else {
			o.metrics.FileProcessed("error")
		}
		results = append(results, result)
	}

	return results, nil
}

func (o *Orchestrator) ingestFile(ctx context.Context, bookID uint, file File) FileResult {
	result := FileResult{Filename: file.Filename, Status: StatusError}

	if _, ok := allowedContentTypes[file.ContentType]; !ok {
		result.Error = fmt.Sprintf("unsupported content type: %s", file.ContentType)
		return result
	}

	extracted, err := o.extractor.ExtractFile(ctx, file.Filename, file.Data)
	if err != nil {
		o.logError(logrus.Fields{"book_id": bookID, "filename": file.Filename}, err, "extracting file")
		result.Error = extractionMessage(err)
		return result
	}
	if len(extracted) == 0 {
		result.Error = "no extractable content"
		return result
	}

	start, err := o.repo.NextPageNumber(ctx, bookID)
	if err != nil {
		o.logError(logrus.Fields{"book_id": bookID, "filename": file.Filename}, err, "determining next page number")
		result.Error = "could not assign page numbers"
		return result
	}

	pages := o.buildPages(ctx, bookID, start, extracted)

	if err := o.repo.CreatePages(ctx, bookID, pages); err != nil {
		o.logError(logrus.Fields{"book_id": bookID, "filename": file.Filename}, err, "persisting pages")
		if eris.Is(err, library.ErrDuplicatePage) {
			result.Error = "page numbering conflict with a concurrent upload"
		} else {
			result.Error = "could not persist pages"
		}
		return result
	}

	o.setCoverFromFirstImage(ctx, bookID, pages)

	result.Status = StatusSuccess
	result.Error = ""
	result.Pages = make([]PageSummary, 0, len(pages))
	for _, page := range pages {
		result.Pages = append(result.Pages, PageSummary{
			PageNumber: page.PageNumber,
			TextLength: utf8.RuneCountInString(page.OriginalText),
		})
	}

	return result
}

// buildPages assigns sequential page numbers, embeds each page's text and
// uploads page images. A page whose embedding fails is still persisted; it
// simply stays out of semantic search until re-embedded.
func (o *Orchestrator) buildPages(ctx context.Context, bookID uint, start int, extracted []extract.ExtractedPage) []*library.Page {
	pages := make([]*library.Page, 0, len(extracted))

	for i, unit := range extracted {
		page := &library.Page{
			BookID:       bookID,
			PageNumber:   start + i,
			OriginalText: unit.Text,
		}

		vector, err := o.embedder.EmbedDocument(ctx, unit.Text)
		if err != nil {
			o.logError(logrus.Fields{"book_id": bookID, "page_number": page.PageNumber}, err, "embedding page text")
		} else {
			page.EmbeddingVector = library.VectorParam(vector)
			page.EmbeddingModel = o.embedder.ModelTag()
		}

		if len(unit.ImagePNG) > 0 {
			key := fmt.Sprintf("books/%d/pages/%d_%s.png", bookID, page.PageNumber, uuid.NewString()[:8])
			url, storeErr := o.store.Store(ctx, key, unit.ImagePNG, "image/png")
			if storeErr != nil {
				o.logError(logrus.Fields{"book_id": bookID, "page_number": page.PageNumber}, storeErr, "storing page image")
			} else {
				page.PageImageURL = url
			}
		}

		o.metrics.PageIngested(string(unit.Method))
		pages = append(pages, page)
	}

	return pages
}

// setCoverFromFirstImage sets the book cover to the first new page's image if
// the book has none yet. First write wins under concurrent uploads.
func (o *Orchestrator) setCoverFromFirstImage(ctx context.Context, bookID uint, pages []*library.Page) {
	if len(pages) == 0 || pages[0].PageImageURL == "" {
		return
	}

	if _, err := o.repo.SetCoverIfEmpty(ctx, bookID, pages[0].PageImageURL); err != nil {
		o.logError(logrus.Fields{"book_id": bookID}, err, "setting cover from page image")
	}
}

func extractionMessage(err error) string {
	switch {
	case eris.Is(err, extract.ErrEncrypted):
		return "document is encrypted and could not be unlocked"
	case eris.Is(err, extract.ErrEncoding):
		return "file is not valid utf-8 text"
	case eris.Is(err, extract.ErrUnsupported):
		return "unsupported file type"
	default:
		return "extraction failed"
	}
}

func (o *Orchestrator) logError(fields logrus.Fields, err error, message string) {
	if o.logger == nil || err == nil {
		return
	}

	entry := o.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}
