package library

import (
	"context"
	"strings"

	"github.com/pgvector/pgvector-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrDuplicatePage indicates an insert would violate the (book_id,
// page_number) uniqueness invariant.
var ErrDuplicatePage = eris.New("page number already exists for this book")

// Repository defines persistence operations for books and pages, including
// the vector-similarity queries used by the search engine.
type Repository interface {
	CreateBook(ctx context.Context, book *Book) error
	GetBook(ctx context.Context, id uint) (*Book, error)
	ListBooks(ctx context.Context) ([]Book, error)
	DeleteBook(ctx context.Context, id uint) error
	UpdateBookCover(ctx context.Context, id uint, url string) error
	SetCoverIfEmpty(ctx context.Context, id uint, url string) (bool, error)

	GetPage(ctx context.Context, bookID uint, pageNumber int) (*Page, error)
	GetPageByID(ctx context.Context, id uint) (*Page, error)
	ListPages(ctx context.Context, bookID uint) ([]Page, error)
	NextPageNumber(ctx context.Context, bookID uint) (int, error)
	CreatePages(ctx context.Context, bookID uint, pages []*Page) error
	SavePage(ctx context.Context, page *Page) error
	DeletePage(ctx context.Context, bookID uint, pageNumber int) error

	SemanticRows(ctx context.Context, vector []float32, threshold float64, limit, offset int) ([]SearchRow, error)
	CountSemanticRows(ctx context.Context, vector []float32, threshold float64) (int64, error)
	SimilarRows(ctx context.Context, pageID uint, vector []float32, limit int) ([]SearchRow, error)
	TextRows(ctx context.Context, query string, limit int) ([]SearchRow, error)
}

// GormRepository persists books and pages using a Gorm database connection.
type GormRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewRepository constructs a Gorm-backed repository implementation.
func NewRepository(db *gorm.DB, logger *logrus.Logger) (*GormRepository, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}

	return &GormRepository{db: db, logger: logger}, nil
}

var _ Repository = (*GormRepository)(nil)

// CreateBook stores a new book.
func (r *GormRepository) CreateBook(ctx context.Context, book *Book) error {
	if book == nil {
		return eris.New("book is nil")
	}
	if strings.TrimSpace(book.Title) == "" {
		return eris.New("book title is required")
	}
	if book.Language == "" {
		book.Language = "ar"
	}

	if err := r.db.WithContext(ctx).Create(book).Error; err != nil {
		r.logError(logrus.Fields{"title": book.Title}, err, "creating book")
		return eris.Wrapf(err, "creating book: %s", book.Title)
	}

	return nil
}

// GetBook returns the book for the provided id or nil when not found.
func (r *GormRepository) GetBook(ctx context.Context, id uint) (*Book, error) {
	var book Book
	err := r.db.WithContext(ctx).First(&book, "id = ?", id).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"book_id": id}, err, "fetching book")
		return nil, eris.Wrapf(err, "fetching book: %d", id)
	}

	return &book, nil
}

// ListBooks returns every book ordered by title.
func (r *GormRepository) ListBooks(ctx context.Context) ([]Book, error) {
	var books []Book
	if err := r.db.WithContext(ctx).Order("title ASC").Find(&books).Error; err != nil {
		r.logError(nil, err, "listing books")
		return nil, eris.Wrap(err, "listing books")
	}

	return books, nil
}

// DeleteBook removes the book; the database cascades deletion to its pages.
func (r *GormRepository) DeleteBook(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&Book{}, "id = ?", id).Error; err != nil {
		r.logError(logrus.Fields{"book_id": id}, err, "deleting book")
		return eris.Wrapf(err, "deleting book: %d", id)
	}

	return nil
}

// UpdateBookCover sets the cover image URL unconditionally. An empty url
// clears the cover.
func (r *GormRepository) UpdateBookCover(ctx context.Context, id uint, url string) error {
	err := r.db.WithContext(ctx).
		Model(&Book{}).
		Where("id = ?", id).
		Update("cover_image_url", url).Error
	if err != nil {
		r.logError(logrus.Fields{"book_id": id}, err, "updating book cover")
		return eris.Wrapf(err, "updating cover for book: %d", id)
	}

	return nil
}

// SetCoverIfEmpty sets the cover only when no cover is present yet
// (first-write-wins). It reports whether the cover was set.
func (r *GormRepository) SetCoverIfEmpty(ctx context.Context, id uint, url string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&Book{}).
		Where("id = ? AND (cover_image_url IS NULL OR cover_image_url = '')", id).
		Update("cover_image_url", url)
	if result.Error != nil {
		r.logError(logrus.Fields{"book_id": id}, result.Error, "setting initial book cover")
		return false, eris.Wrapf(result.Error, "setting initial cover for book: %d", id)
	}

	return result.RowsAffected > 0, nil
}

// GetPage returns the page identified by book and page number, or nil when
// not found.
func (r *GormRepository) GetPage(ctx context.Context, bookID uint, pageNumber int) (*Page, error) {
	var page Page
	err := r.db.WithContext(ctx).
		First(&page, "book_id = ? AND page_number = ?", bookID, pageNumber).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"book_id": bookID, "page_number": pageNumber}, err, "fetching page")
		return nil, eris.Wrapf(err, "fetching page %d of book %d", pageNumber, bookID)
	}

	return &page, nil
}

// GetPageByID returns the page with the given id, or nil when not found.
func (r *GormRepository) GetPageByID(ctx context.Context, id uint) (*Page, error) {
	var page Page
	err := r.db.WithContext(ctx).First(&page, "id = ?", id).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"page_id": id}, err, "fetching page by id")
		return nil, eris.Wrapf(err, "fetching page: %d", id)
	}

	return &page, nil
}

// ListPages returns every page of a book in page order.
func (r *GormRepository) ListPages(ctx context.Context, bookID uint) ([]Page, error) {
	var pages []Page
	err := r.db.WithContext(ctx).
		Where("book_id = ?", bookID).
		Order("page_number ASC").
		Find(&pages).Error
	if err != nil {
		r.logError(logrus.Fields{"book_id": bookID}, err, "listing pages")
		return nil, eris.Wrapf(err, "listing pages of book %d", bookID)
	}

	return pages, nil
}

// NextPageNumber returns max(page_number)+1 for the book, starting at 1.
func (r *GormRepository) NextPageNumber(ctx context.Context, bookID uint) (int, error) {
	var maxNumber int
	err := r.db.WithContext(ctx).
		Model(&Page{}).
		Where("book_id = ?", bookID).
		Select("COALESCE(MAX(page_number), 0)").
		Scan(&maxNumber).Error
	if err != nil {
		r.logError(logrus.Fields{"book_id": bookID}, err, "computing next page number")
		return 0, eris.Wrapf(err, "computing next page number for book %d", bookID)
	}

	return maxNumber + 1, nil
}

// CreatePages inserts a batch of pages atomically. Page-number assignment for
// a book is serialized with a transaction-scoped advisory lock so concurrent
// ingestions cannot interleave numbering.
func (r *GormRepository) CreatePages(ctx context.Context, bookID uint, pages []*Page) error {
	if len(pages) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", int64(bookID)).Error; err != nil {
			return eris.Wrap(err, "acquiring page numbering lock")
		}
		if err := tx.Create(&pages).Error; err != nil {
			if eris.Is(err, gorm.ErrDuplicatedKey) {
				return eris.Wrapf(ErrDuplicatePage, "book %d", bookID)
			}
			return eris.Wrap(err, "inserting pages")
		}
		return nil
	})
	if err != nil {
		r.logError(logrus.Fields{"book_id": bookID, "count": len(pages)}, err, "creating pages")
		return err
	}

	return nil
}

// SavePage updates an existing page row.
func (r *GormRepository) SavePage(ctx context.Context, page *Page) error {
	if page == nil {
		return eris.New("page is nil")
	}

	if err := r.db.WithContext(ctx).Save(page).Error; err != nil {
		if eris.Is(err, gorm.ErrDuplicatedKey) {
			return eris.Wrapf(ErrDuplicatePage, "book %d", page.BookID)
		}
		r.logError(logrus.Fields{"page_id": page.ID}, err, "saving page")
		return eris.Wrapf(err, "saving page: %d", page.ID)
	}

	return nil
}

// DeletePage removes a single page.
func (r *GormRepository) DeletePage(ctx context.Context, bookID uint, pageNumber int) error {
	err := r.db.WithContext(ctx).
		Delete(&Page{}, "book_id = ? AND page_number = ?", bookID, pageNumber).Error
	if err != nil {
		r.logError(logrus.Fields{"book_id": bookID, "page_number": pageNumber}, err, "deleting page")
		return eris.Wrapf(err, "deleting page %d of book %d", pageNumber, bookID)
	}

	return nil
}

const searchColumns = `
	p.id AS page_id,
	p.book_id,
	p.page_number,
	p.original_text,
	p.en_translation,
	p.id_translation,
	p.page_image_url,
	b.title AS book_title,
	b.author AS book_author`

// SemanticRows ranks pages by cosine similarity against the query vector,
// filtered to similarity >= threshold. Ties break on page id ascending so
// results are reproducible.
func (r *GormRepository) SemanticRows(ctx context.Context, vector []float32, threshold float64, limit, offset int) ([]SearchRow, error) {
	param := pgvector.NewVector(vector)

	var rows []SearchRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT`+searchColumns+`,
			1 - (p.embedding_vector <=> ?) AS similarity_score
		FROM pages p
		JOIN books b ON b.id = p.book_id
		WHERE p.embedding_vector IS NOT NULL
			AND 1 - (p.embedding_vector <=> ?) >= ?
		ORDER BY p.embedding_vector <=> ?, p.id ASC
		LIMIT ? OFFSET ?`,
		param, param, threshold, param, limit, offset,
	).Scan(&rows).Error
	if err != nil {
		r.logError(logrus.Fields{"threshold": threshold}, err, "running semantic search query")
		return nil, eris.Wrap(err, "running semantic search query")
	}

	return rows, nil
}

// CountSemanticRows counts pages matching the same predicate as SemanticRows
// without limit or offset, for pagination totals.
func (r *GormRepository) CountSemanticRows(ctx context.Context, vector []float32, threshold float64) (int64, error) {
	param := pgvector.NewVector(vector)

	var total int64
	err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(*)
		FROM pages p
		WHERE p.embedding_vector IS NOT NULL
			AND 1 - (p.embedding_vector <=> ?) >= ?`,
		param, threshold,
	).Scan(&total).Error
	if err != nil {
		r.logError(logrus.Fields{"threshold": threshold}, err, "counting semantic search matches")
		return 0, eris.Wrap(err, "counting semantic search matches")
	}

	return total, nil
}

// SimilarRows ranks all pages other than pageID by similarity to the given
// vector, without threshold filtering.
func (r *GormRepository) SimilarRows(ctx context.Context, pageID uint, vector []float32, limit int) ([]SearchRow, error) {
	param := pgvector.NewVector(vector)

	var rows []SearchRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT`+searchColumns+`,
			1 - (p.embedding_vector <=> ?) AS similarity_score
		FROM pages p
		JOIN books b ON b.id = p.book_id
		WHERE p.embedding_vector IS NOT NULL
			AND p.id != ?
		ORDER BY p.embedding_vector <=> ?, p.id ASC
		LIMIT ?`,
		param, pageID, param, limit,
	).Scan(&rows).Error
	if err != nil {
		r.logError(logrus.Fields{"page_id": pageID}, err, "running similar pages query")
		return nil, eris.Wrap(err, "running similar pages query")
	}

	return rows, nil
}

// TextRows matches pages whose original text contains the query,
// case-insensitively. SimilarityScore is left zero; the search engine
// assigns its sentinel value.
func (r *GormRepository) TextRows(ctx context.Context, query string, limit int) ([]SearchRow, error) {
	pattern := "%" + escapeLike(query) + "%"

	var rows []SearchRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT`+searchColumns+`
		FROM pages p
		JOIN books b ON b.id = p.book_id
		WHERE p.original_text ILIKE ?
		ORDER BY p.id ASC
		LIMIT ?`,
		pattern, limit,
	).Scan(&rows).Error
	if err != nil {
		r.logError(nil, err, "running text search query")
		return nil, eris.Wrap(err, "running text search query")
	}

	return rows, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(query string) string {
	return likeEscaper.Replace(query)
}

func (r *GormRepository) logError(fields logrus.Fields, err error, message string) {
	if r.logger == nil || err == nil {
		return
	}

	entry := r.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}
