package library

import (
	"context"
	"fmt"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// ErrBookNotFound indicates the referenced book does not exist.
var ErrBookNotFound = eris.New("book not found")

// ErrPageNotFound indicates the referenced page does not exist.
var ErrPageNotFound = eris.New("page not found")

// ErrInvalidImage indicates a cover upload that is not an allowed image type
// or exceeds the size limit.
var ErrInvalidImage = eris.New("invalid cover image")

const maxCoverSizeBytes = 10 * 1024 * 1024

var coverExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// DocumentEmbedder produces storage-side embeddings for page text.
type DocumentEmbedder interface {
	EmbedDocument(ctx context.Context, text string) ([]float32, error)
	ModelTag() string
}

// ObjectStore persists binary blobs and returns an opaque locator.
type ObjectStore interface {
	Store(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

// Service defines higher-level book and page operations built on top of the
// repository, embedder and object store.
type Service interface {
	CreateBook(ctx context.Context, book *Book) error
	GetBook(ctx context.Context, id uint) (*Book, error)
	ListBooks(ctx context.Context) ([]Book, error)
	DeleteBook(ctx context.Context, id uint) error
	UploadCover(ctx context.Context, bookID uint, data []byte, contentType string) (string, error)
	DeleteCover(ctx context.Context, bookID uint) error

	GetPage(ctx context.Context, bookID uint, pageNumber int) (*Page, error)
	ListPages(ctx context.Context, bookID uint) ([]Page, error)
	UpdatePageText(ctx context.Context, bookID uint, pageNumber int, text string) (*Page, error)
	SetTranslation(ctx context.Context, bookID uint, pageNumber int, language string, translation string) (*Page, error)
	DeletePage(ctx context.Context, bookID uint, pageNumber int) error
}

type service struct {
	repo      Repository
	embedder  DocumentEmbedder
	store     ObjectStore
	logger    *logrus.Logger
	sentryHub *sentry.Hub
}

var _ Service = (*service)(nil)

// ServiceOptions wires the library service with its dependencies.
type ServiceOptions struct {
	Repository Repository
	Embedder   DocumentEmbedder
	Store      ObjectStore
	Logger     *logrus.Logger
	SentryHub  *sentry.Hub
}

// NewService constructs the library service.
func NewService(opts ServiceOptions) (Service, error) {
	if opts.Repository == nil {
		return nil, eris.New("library repository is required")
	}
	if opts.Embedder == nil {
		return nil, eris.New("document embedder is required")
	}
	if opts.Store == nil {
		return nil, eris.New("object store is required")
	}

	return &service{
		repo:      opts.Repository,
		embedder:  opts.Embedder,
		store:     opts.Store,
		logger:    opts.Logger,
		sentryHub: opts.SentryHub,
	}, nil
}

func (s *service) CreateBook(ctx context.Context, book *Book) error {
	if book == nil {
		return eris.New("book is nil")
	}

	book.Title = strings.TrimSpace(book.Title)
	if book.Title == "" {
		return eris.New("book title is required")
	}

	if err := s.repo.CreateBook(ctx, book); err != nil {
		s.recordError(logrus.Fields{"title": book.Title}, err, "creating book")
		return err
	}

	return nil
}

func (s *service) GetBook(ctx context.Context, id uint) (*Book, error) {
	book, err := s.repo.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, eris.Wrapf(ErrBookNotFound, "book %d", id)
	}

	return book, nil
}

func (s *service) ListBooks(ctx context.Context) ([]Book, error) {
	return s.repo.ListBooks(ctx)
}

func (s *service) DeleteBook(ctx context.Context, id uint) error {
	book, err := s.GetBook(ctx, id)
	if err != nil {
		return err
	}

	if book.CoverImageURL != "" {
		if err := s.store.Delete(ctx, book.CoverImageURL); err != nil {
			// The row cascade matters more than the orphaned object.
			s.recordError(logrus.Fields{"book_id": id}, err, "deleting cover object")
		}
	}

	return s.repo.DeleteBook(ctx, id)
}

func (s *service) UploadCover(ctx context.Context, bookID uint, data []byte, contentType string) (string, error) {
	if _, err := s.GetBook(ctx, bookID); err != nil {
		return "", err
	}

	extension, allowed := coverExtensions[contentType]
	if !allowed {
		return "", eris.Wrapf(ErrInvalidImage, "content type %s", contentType)
	}
	if len(data) == 0 || len(data) > maxCoverSizeBytes {
		return "", eris.Wrapf(ErrInvalidImage, "size %d bytes", len(data))
	}

	key := fmt.Sprintf("covers/%d_%s%s", bookID, uuid.NewString()[:8], extension)
	url, err := s.store.Store(ctx, key, data, contentType)
	if err != nil {
		s.recordError(logrus.Fields{"book_id": bookID}, err, "storing cover image")
		return "", eris.Wrap(err, "storing cover image")
	}

	if err := s.repo.UpdateBookCover(ctx, bookID, url); err != nil {
		s.recordError(logrus.Fields{"book_id": bookID}, err, "updating cover url")
		return "", err
	}

	return url, nil
}

func (s *service) DeleteCover(ctx context.Context, bookID uint) error {
	book, err := s.GetBook(ctx, bookID)
	if err != nil {
		return err
	}

	if book.CoverImageURL == "" {
		return nil
	}

	if err := s.store.Delete(ctx, book.CoverImageURL); err != nil {
		s.recordError(logrus.Fields{"book_id": bookID}, err, "deleting cover object")
	}

	return s.repo.UpdateBookCover(ctx, bookID, "")
}

func (s *service) GetPage(ctx context.Context, bookID uint, pageNumber int) (*Page, error) {
	page, err := s.repo.GetPage(ctx, bookID, pageNumber)
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, eris.Wrapf(ErrPageNotFound, "page %d of book %d", pageNumber, bookID)
	}

	return page, nil
}

func (s *service) ListPages(ctx context.Context, bookID uint) ([]Page, error) {
	if _, err := s.GetBook(ctx, bookID); err != nil {
		return nil, err
	}

	return s.repo.ListPages(ctx, bookID)
}

// UpdatePageText replaces the page's original text and regenerates its
// embedding. Emptied text clears the stored vector so the page drops out of
// semantic search instead of matching on stale meaning.
func (s *service) UpdatePageText(ctx context.Context, bookID uint, pageNumber int, text string) (*Page, error) {
	page, err := s.GetPage(ctx, bookID, pageNumber)
	if err != nil {
		return nil, err
	}

	page.OriginalText = text
	page.EmbeddingVector = nil

	if strings.TrimSpace(text) != "" {
		vector, embedErr := s.embedder.EmbedDocument(ctx, text)
		if embedErr != nil {
			s.recordError(logrus.Fields{"book_id": bookID, "page_number": pageNumber}, embedErr, "regenerating page embedding")
		} else {
			page.EmbeddingVector = VectorParam(vector)
			page.EmbeddingModel = s.embedder.ModelTag()
		}
	}

	if err := s.repo.SavePage(ctx, page); err != nil {
		return nil, err
	}

	return page, nil
}

func (s *service) SetTranslation(ctx context.Context, bookID uint, pageNumber int, language string, translation string) (*Page, error) {
	page, err := s.GetPage(ctx, bookID, pageNumber)
	if err != nil {
		return nil, err
	}

	switch language {
	case "en":
		page.EnTranslation = translation
	case "id":
		page.IDTranslation = translation
	default:
		return nil, eris.Errorf("unsupported translation language: %s", language)
	}

	if err := s.repo.SavePage(ctx, page); err != nil {
		return nil, err
	}

	return page, nil
}

func (s *service) DeletePage(ctx context.Context, bookID uint, pageNumber int) error {
	if _, err := s.GetPage(ctx, bookID, pageNumber); err != nil {
		return err
	}

	return s.repo.DeletePage(ctx, bookID, pageNumber)
}

func (s *service) recordError(fields logrus.Fields, err error, message string) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if len(fields) > 0 {
			entry = entry.WithFields(fields)
		}
		entry.Error(message)
	}

	if s.sentryHub != nil {
		s.sentryHub.CaptureException(err)
	}
}
