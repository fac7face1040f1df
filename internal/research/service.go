package research

import (
	"context"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"traderesearch/app/internal/storage"
)

// Identity is the caller's session identity as consumed by this package. It
// is injected per call; the service never reads ambient global state.
type Identity struct {
	UserID string
	Admin  bool
}

// Attachment is an uploaded file accompanying a create or update.
type Attachment struct {
	Filename string
	Reader   io.Reader
}

// ErrForbidden indicates the identity lacks the admin claim required for
// authoring operations. Enforced here so bypassing the route gate gains
// nothing.
var ErrForbidden = eris.New("admin privileges required")

// Service exposes the article operations with the error policy the UI relies
// on: reads degrade to empty results, writes surface their failures.
type Service interface {
	List(ctx context.Context) []Article
	GetBySlug(ctx context.Context, slug string) *Article
	GetByID(ctx context.Context, id string) *Article
	Create(ctx context.Context, ident Identity, draft Draft, attachment *Attachment) (*Article, error)
	Update(ctx context.Context, ident Identity, id string, draft Draft, attachment *Attachment) (*Article, error)
	Delete(ctx context.Context, ident Identity, id string) error
	ResolveAttachment(key string) (string, error)
}

type service struct {
	repo      Repository
	blobs     storage.Store
	logger    *logrus.Logger
	sentryHub *sentry.Hub
	urlTTL    time.Duration
	now       func() time.Time
}

var _ Service = (*service)(nil)

// NewService wires the research service with its dependencies.
func NewService(repo Repository, blobs storage.Store, urlTTL time.Duration, logger *logrus.Logger, hub *sentry.Hub) (Service, error) {
	if repo == nil {
		return nil, eris.New("article repository is required")
	}
	if blobs == nil {
		return nil, eris.New("blob store is required")
	}
	if urlTTL <= 0 {
		urlTTL = time.Hour
	}

	return &service{
		repo:      repo,
		blobs:     blobs,
		logger:    logger,
		sentryHub: hub,
		urlTTL:    urlTTL,
		now:       time.Now,
	}, nil
}

// List returns the newest-first article sequence. Failures are logged and
// degrade to an empty result; absence of content is a valid UI state.
func (s *service) List(ctx context.Context) []Article {
	articles, err := s.repo.List(ctx)
	if err != nil {
		s.recordError(nil, err, "listing articles")
		return []Article{}
	}

	return articles
}

// GetBySlug returns the article or nil; read failures degrade to not-found.
func (s *service) GetBySlug(ctx context.Context, slug string) *Article {
	article, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		s.recordError(logrus.Fields{"slug": slug}, err, "fetching article")
		return nil
	}

	return article
}

// GetByID returns the article or nil; read failures degrade to not-found.
func (s *service) GetByID(ctx context.Context, id string) *Article {
	article, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.recordError(logrus.Fields{"article_id": id}, err, "fetching article by id")
		return nil
	}

	return article
}

// Create validates the draft, uploads the attachment first when present, and
// inserts the record. An upload failure aborts the whole operation; no record
// is written with a silently missing attachment.
func (s *service) Create(ctx context.Context, ident Identity, draft Draft, attachment *Attachment) (*Article, error) {
	if err := s.requireAdmin(ident); err != nil {
		return nil, err
	}

	if errs := draft.Validate(); errs != nil {
		return nil, errs
	}

	slug := DeriveSlug(draft.Title)

	var pdfKey *string
	if attachment != nil {
		key, err := s.uploadAttachment(ctx, slug, attachment)
		if err != nil {
			return nil, err
		}
		pdfKey = &key
	}

	article := &Article{
		Title:    draft.Title,
		Slug:     slug,
		Content:  draft.Content,
		Pair:     draft.Pair,
		Position: draft.Position,
		Mean:     draft.Mean,
		Median:   draft.Median,
		Mode:     draft.Mode,
		Variance: draft.Variance,
		Stdev:    draft.Stdev,
		PDFKey:   pdfKey,
		AuthorID: ident.UserID,
	}

	if err := s.repo.Create(ctx, article); err != nil {
		s.recordError(logrus.Fields{"slug": slug}, err, "creating article")
		return nil, err
	}

	return article, nil
}

// Update overwrites the article's mutable fields. The slug stays as derived
// from the original title; a missing new attachment preserves the old key.
func (s *service) Update(ctx context.Context, ident Identity, id string, draft Draft, attachment *Attachment) (*Article, error) {
	if err := s.requireAdmin(ident); err != nil {
		return nil, err
	}

	if errs := draft.Validate(); errs != nil {
		return nil, errs
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.recordError(logrus.Fields{"article_id": id}, err, "loading article for update")
		return nil, err
	}
	if existing == nil {
		return nil, eris.Errorf("no article with id %s", id)
	}

	pdfKey := existing.PDFKey
	if attachment != nil {
		key, uploadErr := s.uploadAttachment(ctx, existing.Slug, attachment)
		if uploadErr != nil {
			return nil, uploadErr
		}
		pdfKey = &key
	}

	updated := &Article{
		ID:       existing.ID,
		Title:    draft.Title,
		Slug:     existing.Slug,
		Content:  draft.Content,
		Pair:     draft.Pair,
		Position: draft.Position,
		Mean:     draft.Mean,
		Median:   draft.Median,
		Mode:     draft.Mode,
		Variance: draft.Variance,
		Stdev:    draft.Stdev,
		PDFKey:   pdfKey,
		AuthorID: existing.AuthorID,
	}

	if err := s.repo.Update(ctx, updated); err != nil {
		s.recordError(logrus.Fields{"article_id": id}, err, "updating article")
		return nil, err
	}

	return updated, nil
}

// Delete hard-deletes the row. The attachment blob is deliberately left in
// place; the warning gives operators a handle for manual cleanup.
func (s *service) Delete(ctx context.Context, ident Identity, id string) error {
	if err := s.requireAdmin(ident); err != nil {
		return err
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.recordError(logrus.Fields{"article_id": id}, err, "loading article for delete")
		return err
	}
	if existing == nil {
		// Deleting a missing id is a no-op, matching the store contract.
		return nil
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.recordError(logrus.Fields{"article_id": id}, err, "deleting article")
		return err
	}

	if existing.PDFKey != nil && s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"article_id": id,
			"pdf_key":    *existing.PDFKey,
		}).Warn("article deleted; attachment blob left in storage")
	}

	return nil
}

// ResolveAttachment mints a fresh signed URL for the blob key. Callers are
// expected to request a new URL on every render; nothing is cached here.
func (s *service) ResolveAttachment(key string) (string, error) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return "", eris.New("attachment key is required")
	}

	signed, err := s.blobs.SignedURL(trimmed, int64(s.urlTTL/time.Second))
	if err != nil {
		s.recordError(logrus.Fields{"pdf_key": trimmed}, err, "signing attachment url")
		return "", eris.Wrapf(err, "signing attachment url: %s", trimmed)
	}

	return signed, nil
}

func (s *service) requireAdmin(ident Identity) error {
	if ident.Admin {
		return nil
	}

	err := eris.Wrap(ErrForbidden, "authoring operation rejected")
	s.recordError(logrus.Fields{"user_id": ident.UserID}, err, "non-admin identity invoked authoring operation")
	return err
}

// uploadAttachment stores the file under {slug}-{unixMillis}.{ext} and
// returns the generated key.
func (s *service) uploadAttachment(ctx context.Context, slug string, attachment *Attachment) (string, error) {
	if attachment.Reader == nil {
		return "", eris.New("attachment reader is required")
	}

	ext := strings.ToLower(filepath.Ext(attachment.Filename))
	if ext == "" {
		ext = ".pdf"
	}

	key := slug + "-" + strconv.FormatInt(s.now().UnixMilli(), 10) + ext

	if err := s.blobs.Put(ctx, key, attachment.Reader); err != nil {
		s.recordError(logrus.Fields{"pdf_key": key}, err, "uploading attachment")
		return "", eris.Wrapf(err, "uploading attachment: %s", key)
	}

	return key, nil
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
