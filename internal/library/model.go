package library

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// Book represents a scanned Arabic book owning an ordered set of pages.
type Book struct {
	ID            uint   `gorm:"primaryKey"`
	Title         string `gorm:"size:500;not null;index"`
	Author        string `gorm:"size:300;index"`
	Language      string `gorm:"size:10;not null;default:ar;index"`
	Description   string `gorm:"type:text"`
	CoverImageURL string `gorm:"type:text"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Pages []Page `gorm:"constraint:OnDelete:CASCADE"`
}

// TableName defines the table name for the Book model.
func (Book) TableName() string {
	return "books"
}

// Page represents a single digitized book page. EmbeddingVector is nil for
// pages whose embedding failed or was cleared; such pages stay reachable via
// text search but not semantic search.
type Page struct {
	ID              uint             `gorm:"primaryKey"`
	BookID          uint             `gorm:"not null;index;uniqueIndex:idx_pages_book_page"`
	PageNumber      int              `gorm:"not null;uniqueIndex:idx_pages_book_page"`
	OriginalText    string           `gorm:"type:text;not null"`
	EmbeddingVector *pgvector.Vector `gorm:"type:vector(1536)"`
	EmbeddingModel  string           `gorm:"size:100;not null;index"`
	EnTranslation   string           `gorm:"type:text"`
	IDTranslation   string           `gorm:"column:id_translation;type:text"`
	PageImageURL    string           `gorm:"size:500"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TableName defines the table name for the Page model.
func (Page) TableName() string {
	return "pages"
}

// VectorParam wraps a raw float32 slice as a nullable vector column value.
// A nil or empty slice maps to NULL.
func VectorParam(values []float32) *pgvector.Vector {
	if len(values) == 0 {
		return nil
	}
	vector := pgvector.NewVector(values)
	return &vector
}

// SearchRow is one ranked row produced by the repository's similarity and
// text queries, joined with its book metadata.
type SearchRow struct {
	PageID          uint
	BookID          uint
	PageNumber      int
	OriginalText    string
	EnTranslation   string
	IDTranslation   string
	PageImageURL    string
	BookTitle       string
	BookAuthor      string
	SimilarityScore float64
}
