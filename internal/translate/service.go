package translate

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"maktaba/app/internal/library"
)

// ErrNoText indicates a page with no original text to translate.
var ErrNoText = eris.New("page has no text to translate")

// PageStore is the slice of the library service the translation flow needs.
type PageStore interface {
	GetPage(ctx context.Context, bookID uint, pageNumber int) (*library.Page, error)
	SetTranslation(ctx context.Context, bookID uint, pageNumber int, language string, translation string) (*library.Page, error)
}

// Service translates stored pages and persists the result.
type Service struct {
	translator Translator
	pages      PageStore
	logger     *logrus.Logger
}

// ServiceOptions wires the translation service.
type ServiceOptions struct {
	Translator Translator
	Pages      PageStore
	Logger     *logrus.Logger
}

// NewService constructs the translation service.
func NewService(opts ServiceOptions) (*Service, error) {
	if opts.Translator == nil {
		return nil, eris.New("translator is required")
	}
	if opts.Pages == nil {
		return nil, eris.New("page store is required")
	}

	return &Service{
		translator: opts.Translator,
		pages:      opts.Pages,
		logger:     opts.Logger,
	}, nil
}

// TranslatePage translates the page's stored original text into the target
// language and persists it in the matching translation column.
func (s *Service) TranslatePage(ctx context.Context, bookID uint, pageNumber int, target Target) (*library.Page, error) {
	page, err := s.pages.GetPage(ctx, bookID, pageNumber)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(page.OriginalText) == "" {
		return nil, eris.Wrapf(ErrNoText, "page %d of book %d", pageNumber, bookID)
	}

	translation, err := s.translator.TranslateText(ctx, page.OriginalText, target)
	if err != nil {
		s.logError(logrus.Fields{"book_id": bookID, "page_number": pageNumber, "target": string(target)}, err, "translating page text")
		return nil, err
	}

	return s.pages.SetTranslation(ctx, bookID, pageNumber, string(target), translation)
}

// TranslatePageImage translates a page directly from its image, for scans
// whose stored text is too degraded to translate well. The resulting
// translation is persisted the same way as the text path.
func (s *Service) TranslatePageImage(ctx context.Context, bookID uint, pageNumber int, imagePNG []byte, target Target) (*library.Page, error) {
	if _, err := s.pages.GetPage(ctx, bookID, pageNumber); err != nil {
		return nil, err
	}

	translation, err := s.translator.TranslateImage(ctx, imagePNG, target)
	if err != nil {
		s.logError(logrus.Fields{"book_id": bookID, "page_number": pageNumber, "target": string(target)}, err, "translating page image")
		return nil, err
	}

	return s.pages.SetTranslation(ctx, bookID, pageNumber, string(target), translation)
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
