package research

import "time"

// Position classifies the trade direction of a research article.
type Position string

const (
	PositionLong  Position = "long"
	PositionShort Position = "short"
)

// Valid reports whether the position is one of the two known directions.
func (p Position) Valid() bool {
	return p == PositionLong || p == PositionShort
}

// Article represents a published research write-up persisted in the database.
//
// Slug is derived from the title once, at creation; edits never recompute it.
// The statistical fields are operator-entered and independently optional; a
// nil pointer means "absent", never zero. PDFKey is an opaque blob-store key,
// resolvable only through a signed URL.
type Article struct {
	ID       string   `gorm:"primaryKey;size:36"`
	Title    string   `gorm:"size:255;not null"`
	Slug     string   `gorm:"size:255;uniqueIndex:idx_articles_slug;not null"`
	Content  string   `gorm:"type:text;not null"`
	Pair     string   `gorm:"size:32;not null"`
	Position Position `gorm:"size:8;not null;default:long"`

	Mean     *float64
	Median   *float64
	Mode     *float64
	Variance *float64
	Stdev    *float64

	PDFKey   *string `gorm:"size:255"`
	AuthorID string  `gorm:"size:36;not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName defines the table name for the Article model.
func (Article) TableName() string {
	return "articles"
}

// HasStats reports whether at least one statistical field is present.
func (a *Article) HasStats() bool {
	return a.Mean != nil || a.Median != nil || a.Mode != nil || a.Variance != nil || a.Stdev != nil
}
