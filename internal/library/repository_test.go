package library

import (
	"context"
	"io"
	"math"
	"os"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	appdb "maktaba/app/internal/db"
)

func TestNewRepositoryRequiresDatabase(t *testing.T) {
	if _, err := NewRepository(nil, nil); err == nil {
		t.Fatalf("expected error when database is nil")
	}
}

func TestSemanticRowsFiltersBelowThreshold(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	book := seedBook(t, repo, "كتاب التوحيد")
	seedPages(t, repo, book.ID, []*Page{
		{PageNumber: 1, OriginalText: "نص مطابق", EmbeddingVector: VectorParam(testVector(1, 0))},
		{PageNumber: 2, OriginalText: "نص قريب", EmbeddingVector: VectorParam(testVector(1, 1))},
		{PageNumber: 3, OriginalText: "نص بعيد", EmbeddingVector: VectorParam(testVector(0, 1))},
		{PageNumber: 4, OriginalText: "صفحة بلا متجه"},
	})

	rows, err := repo.SemanticRows(ctx, testVector(1, 0), 0.5, 10, 0)
	if err != nil {
		t.Fatalf("SemanticRows returned error: %v", err)
	}

	if len(rows) != 2 {
		t.Fatalf("expected 2 rows above threshold 0.5, got %d", len(rows))
	}
	if rows[0].PageNumber != 1 || rows[1].PageNumber != 2 {
		t.Fatalf("expected pages [1 2] by descending similarity, got [%d %d]", rows[0].PageNumber, rows[1].PageNumber)
	}
	if math.Abs(rows[0].SimilarityScore-1.0) > 0.01 {
		t.Errorf("self-similarity score = %v, want ~1.0", rows[0].SimilarityScore)
	}
	if math.Abs(rows[1].SimilarityScore-0.7071) > 0.01 {
		t.Errorf("second score = %v, want ~0.7071", rows[1].SimilarityScore)
	}
	if rows[0].BookTitle != "كتاب التوحيد" {
		t.Errorf("book title = %q, want joined book metadata", rows[0].BookTitle)
	}
}

func TestSemanticRowsBreaksTiesOnPageID(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	book := seedBook(t, repo, "كتاب")
	seedPages(t, repo, book.ID, []*Page{
		{PageNumber: 1, OriginalText: "نص", EmbeddingVector: VectorParam(testVector(1, 0))},
		{PageNumber: 2, OriginalText: "نص", EmbeddingVector: VectorParam(testVector(1, 0))},
	})

	rows, err := repo.SemanticRows(ctx, testVector(1, 0), 0.9, 10, 0)
	if err != nil {
		t.Fatalf("SemanticRows returned error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 tied rows, got %d", len(rows))
	}
	if rows[0].PageID >= rows[1].PageID {
		t.Errorf("tied rows ordered [%d %d], want ascending page id", rows[0].PageID, rows[1].PageID)
	}
}

func TestSemanticRowsPaginationIsDisjoint(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	book := seedBook(t, repo, "كتاب")
	seedPages(t, repo, book.ID, []*Page{
		{PageNumber: 1, OriginalText: "أ", EmbeddingVector: VectorParam(testVector(1, 0))},
		{PageNumber: 2, OriginalText: "ب", EmbeddingVector: VectorParam(testVector(1, 1))},
		{PageNumber: 3, OriginalText: "ج", EmbeddingVector: VectorParam(testVector(1, 2))},
		{PageNumber: 4, OriginalText: "د", EmbeddingVector: VectorParam(testVector(1, 3))},
	})

	query := testVector(1, 0)

	total, err := repo.CountSemanticRows(ctx, query, 0.3)
	if err != nil {
		t.Fatalf("CountSemanticRows returned error: %v", err)
	}
	if total != 4 {
		t.Fatalf("expected total 4, got %d", total)
	}

	first, err := repo.SemanticRows(ctx, query, 0.3, 2, 0)
	if err != nil {
		t.Fatalf("SemanticRows (first window) returned error: %v", err)
	}
	second, err := repo.SemanticRows(ctx, query, 0.3, 2, 2)
	if err != nil {
		t.Fatalf("SemanticRows (second window) returned error: %v", err)
	}

	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("expected two windows of 2, got %d and %d", len(first), len(second))
	}

	seen := map[uint]bool{}
	for _, row := range append(first, second...) {
		if seen[row.PageID] {
			t.Fatalf("page %d appeared in both windows", row.PageID)
		}
		seen[row.PageID] = true
	}
}

func TestCreatePagesRejectsDuplicatePageNumber(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	book := seedBook(t, repo, "كتاب")
	seedPages(t, repo, book.ID, []*Page{
		{PageNumber: 1, OriginalText: "أولى"},
		{PageNumber: 2, OriginalText: "ثانية"},
	})

	err := repo.CreatePages(ctx, book.ID, []*Page{
		{BookID: book.ID, PageNumber: 2, OriginalText: "مكررة"},
	})
	if err == nil {
		t.Fatalf("expected error inserting duplicate page number")
	}
	if !eris.Is(err, ErrDuplicatePage) {
		t.Errorf("expected ErrDuplicatePage, got %v", err)
	}
}

func TestSimilarRowsExcludesReferencePage(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	book := seedBook(t, repo, "كتاب")
	pages := []*Page{
		{PageNumber: 1, OriginalText: "المرجع", EmbeddingVector: VectorParam(testVector(1, 0))},
		{PageNumber: 2, OriginalText: "الشبيه", EmbeddingVector: VectorParam(testVector(1, 0))},
	}
	seedPages(t, repo, book.ID, pages)

	rows, err := repo.SimilarRows(ctx, pages[0].ID, testVector(1, 0), 10)
	if err != nil {
		t.Fatalf("SimilarRows returned error: %v", err)
	}

	if len(rows) != 1 {
		t.Fatalf("expected 1 similar page, got %d", len(rows))
	}
	if rows[0].PageID == pages[0].ID {
		t.Errorf("reference page %d appeared in its own results", pages[0].ID)
	}
	if math.Abs(rows[0].SimilarityScore-1.0) > 0.01 {
		t.Errorf("identical-vector score = %v, want ~1.0", rows[0].SimilarityScore)
	}
}

func TestTextRowsEscapesLikeWildcards(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	book := seedBook(t, repo, "كتاب")
	seedPages(t, repo, book.ID, []*Page{
		{PageNumber: 1, OriginalText: "خصم 100% على الكتب"},
		{PageNumber: 2, OriginalText: "خصم 100x على الكتب"},
	})

	rows, err := repo.TextRows(ctx, "100%", 10)
	if err != nil {
		t.Fatalf("TextRows returned error: %v", err)
	}

	if len(rows) != 1 {
		t.Fatalf("expected 1 literal match for %%, got %d", len(rows))
	}
	if rows[0].PageNumber != 1 {
		t.Errorf("matched page %d, want the literal-percent page", rows[0].PageNumber)
	}
}

// setupRepository connects to the Postgres instance named by
// TEST_DATABASE_URL and resets the library tables. The database-backed tests
// are skipped when no instance is available.
func setupRepository(t *testing.T) *GormRepository {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	gormDB, err := appdb.Open(appdb.Options{URL: url})
	if err != nil {
		t.Fatalf("db.Open returned error: %v", err)
	}

	t.Cleanup(func() {
		if closeErr := appdb.Close(gormDB); closeErr != nil {
			t.Fatalf("closing database failed: %v", closeErr)
		}
	})

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	if err := Migrate(context.Background(), gormDB, logger); err != nil {
		t.Fatalf("Migrate returned error: %v", err)
	}

	if err := gormDB.Exec("TRUNCATE books, pages RESTART IDENTITY CASCADE").Error; err != nil {
		t.Fatalf("resetting tables failed: %v", err)
	}

	repo, err := NewRepository(gormDB, logger)
	if err != nil {
		t.Fatalf("NewRepository returned error: %v", err)
	}

	return repo
}

func seedBook(t *testing.T, repo *GormRepository, title string) *Book {
	t.Helper()

	book := &Book{Title: title, Author: "مؤلف"}
	if err := repo.CreateBook(context.Background(), book); err != nil {
		t.Fatalf("CreateBook returned error: %v", err)
	}
	return book
}

func seedPages(t *testing.T, repo *GormRepository, bookID uint, pages []*Page) {
	t.Helper()

	for _, page := range pages {
		page.BookID = bookID
	}
	if err := repo.CreatePages(context.Background(), bookID, pages); err != nil {
		t.Fatalf("CreatePages returned error: %v", err)
	}
}

// testVector spreads two components over the stored vector dimension so
// cosine similarities against testVector(1, 0) are exact and easy to read.
func testVector(x, y float32) []float32 {
	vector := make([]float32, 1536)
	vector[0] = x
	vector[1] = y
	return vector
}
