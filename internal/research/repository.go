package research

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Repository defines persistence operations for research articles.
type Repository interface {
	List(ctx context.Context) ([]Article, error)
	GetBySlug(ctx context.Context, slug string) (*Article, error)
	GetByID(ctx context.Context, id string) (*Article, error)
	Create(ctx context.Context, article *Article) error
	Update(ctx context.Context, article *Article) error
	Delete(ctx context.Context, id string) error
}

// ErrSlugTaken indicates a create collided with an existing article's slug.
var ErrSlugTaken = eris.New("slug already in use")

// GormRepository persists articles using a Gorm database connection.
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

// List returns every article ordered by creation time, newest first. An empty
// store yields an empty slice, not an error.
func (r *GormRepository) List(ctx context.Context) ([]Article, error) {
	articles := make([]Article, 0)

	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&articles).Error; err != nil {
		r.logError(nil, err, "listing articles")
		return nil, eris.Wrap(err, "listing articles")
	}

	return articles, nil
}

// GetBySlug returns the article for the provided slug or nil when not found.
func (r *GormRepository) GetBySlug(ctx context.Context, slug string) (*Article, error) {
	trimmed := strings.TrimSpace(slug)
	if trimmed == "" {
		return nil, eris.New("slug is required")
	}

	var article Article
	err := r.db.WithContext(ctx).First(&article, "slug = ?", trimmed).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"slug": trimmed}, err, "fetching article by slug")
		return nil, eris.Wrapf(err, "fetching article by slug: %s", trimmed)
	}

	return &article, nil
}

// GetByID returns the article for the provided id or nil when not found.
func (r *GormRepository) GetByID(ctx context.Context, id string) (*Article, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return nil, eris.New("article id is required")
	}

	var article Article
	err := r.db.WithContext(ctx).First(&article, "id = ?", trimmed).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"article_id": trimmed}, err, "fetching article by id")
		return nil, eris.Wrapf(err, "fetching article by id: %s", trimmed)
	}

	return &article, nil
}

// Create inserts a new article, assigning its id. Slug collisions are
// rejected with ErrSlugTaken rather than silently aliasing routes.
func (r *GormRepository) Create(ctx context.Context, article *Article) error {
	if article == nil {
		return eris.New("article is nil")
	}

	if strings.TrimSpace(article.Slug) == "" {
		return eris.New("article slug is required")
	}
	article.Slug = strings.TrimSpace(article.Slug)

	if article.ID == "" {
		article.ID = uuid.NewString()
	}

	existing, err := r.GetBySlug(ctx, article.Slug)
	if err != nil {
		return err
	}
	if existing != nil {
		return eris.Wrapf(ErrSlugTaken, "creating article: %s", article.Slug)
	}

	if err := r.db.WithContext(ctx).Create(article).Error; err != nil {
		r.logError(logrus.Fields{"slug": article.Slug}, err, "creating article")
		return eris.Wrapf(err, "creating article: %s", article.Slug)
	}

	return nil
}

// mutableColumns are the fields overwritten on update. Slug, author and
// creation time are immutable once set.
var mutableColumns = []string{
	"title", "content", "pair", "position",
	"mean", "median", "mode", "variance", "stdev",
	"pdf_key",
}

// Update overwrites the mutable fields of an existing article. Selecting the
// columns explicitly forces nil statistics to be written as NULL instead of
// being skipped as zero values.
func (r *GormRepository) Update(ctx context.Context, article *Article) error {
	if article == nil {
		return eris.New("article is nil")
	}

	if strings.TrimSpace(article.ID) == "" {
		return eris.New("article id is required")
	}

	result := r.db.WithContext(ctx).
		Model(&Article{}).
		Where("id = ?", article.ID).
		Select(mutableColumns).
		Updates(article)
	if result.Error != nil {
		r.logError(logrus.Fields{"article_id": article.ID}, result.Error, "updating article")
		return eris.Wrapf(result.Error, "updating article: %s", article.ID)
	}

	if result.RowsAffected == 0 {
		return eris.Errorf("updating article: no row with id %s", article.ID)
	}

	return nil
}

// Delete removes the article row unconditionally. The associated attachment
// blob, if any, is left behind (see the service for the operator warning).
func (r *GormRepository) Delete(ctx context.Context, id string) error {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return eris.New("article id is required")
	}

	if err := r.db.WithContext(ctx).Delete(&Article{}, "id = ?", trimmed).Error; err != nil {
		r.logError(logrus.Fields{"article_id": trimmed}, err, "deleting article")
		return eris.Wrapf(err, "deleting article: %s", trimmed)
	}

	return nil
}

func (r *GormRepository) logError(fields logrus.Fields, err error, message string) {
	if r.logger == nil {
		return
	}

	entry := r.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}
