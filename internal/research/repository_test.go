package research

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"traderesearch/app/internal/db"
)

func TestNewRepositoryRequiresDatabase(t *testing.T) {
	t.Parallel()

	if _, err := NewRepository(nil, nil); err == nil {
		t.Fatalf("expected error when database is nil")
	}
}

func TestListOnEmptyStoreReturnsEmptySlice(t *testing.T) {
	t.Parallel()

	repo := setupRepository(t)

	articles, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if articles == nil {
		t.Fatalf("expected empty slice, got nil")
	}
	if len(articles) != 0 {
		t.Fatalf("expected zero articles, got %d", len(articles))
	}
}

func TestGetBySlugReturnsNilForMissingArticle(t *testing.T) {
	t.Parallel()

	repo := setupRepository(t)

	article, err := repo.GetBySlug(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetBySlug returned error: %v", err)
	}
	if article != nil {
		t.Fatalf("expected nil article for missing slug, got %#v", article)
	}
}

func TestCreateAssignsIDAndRoundTrips(t *testing.T) {
	t.Parallel()

	repo := setupRepository(t)
	ctx := context.Background()

	mean := 1.0825
	article := &Article{
		Title:    "Test Alpha",
		Slug:     "test-alpha",
		Content:  "## Setup\nbody",
		Pair:     "EUR/USD",
		Position: PositionLong,
		Mean:     &mean,
		AuthorID: "author-1",
	}

	if err := repo.Create(ctx, article); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if article.ID == "" {
		t.Fatalf("expected id assigned on create")
	}

	stored, err := repo.GetBySlug(ctx, "test-alpha")
	if err != nil {
		t.Fatalf("GetBySlug returned error: %v", err)
	}
	if stored == nil {
		t.Fatalf("expected stored article to be present")
	}
	if stored.Title != "Test Alpha" || stored.Pair != "EUR/USD" {
		t.Fatalf("unexpected stored fields: %#v", stored)
	}
	if stored.Mean == nil || *stored.Mean != mean {
		t.Fatalf("expected mean preserved, got %v", stored.Mean)
	}
	if stored.Median != nil {
		t.Fatalf("expected absent median to stay NULL, got %v", *stored.Median)
	}
	if stored.PDFKey != nil {
		t.Fatalf("expected no attachment key, got %v", *stored.PDFKey)
	}
	if stored.CreatedAt.IsZero() {
		t.Fatalf("expected created_at assigned by the store")
	}
}

func TestCreateRejectsSlugCollision(t *testing.T) {
	t.Parallel()

	repo := setupRepository(t)
	ctx := context.Background()

	first := &Article{Title: "EUR/USD Setup", Slug: "eurusd-setup", Content: "a", Pair: "EUR/USD", Position: PositionLong, AuthorID: "author-1"}
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	second := &Article{Title: "EUR USD Setup", Slug: "eurusd-setup", Content: "b", Pair: "EUR/USD", Position: PositionShort, AuthorID: "author-1"}
	err := repo.Create(ctx, second)
	if err == nil {
		t.Fatalf("expected slug collision to be rejected")
	}
	if !eris.Is(err, ErrSlugTaken) {
		t.Fatalf("expected ErrSlugTaken, got %v", err)
	}
}

func TestListOrdersNewestFirst(t *testing.T) {
	t.Parallel()

	repo := setupRepository(t)
	ctx := context.Background()

	slugs := []string{"first", "second", "third"}
	for _, slug := range slugs {
		article := &Article{Title: slug, Slug: slug, Content: "c", Pair: "EUR/USD", Position: PositionLong, AuthorID: "author-1"}
		if err := repo.Create(ctx, article); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
		// SQLite timestamps need distinct values for a deterministic order.
		time.Sleep(5 * time.Millisecond)
	}

	listed, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}

	expected := []string{"third", "second", "first"}
	if len(listed) != len(expected) {
		t.Fatalf("expected %d articles, got %d", len(expected), len(listed))
	}
	for idx, slug := range expected {
		if listed[idx].Slug != slug {
			t.Fatalf("expected slug %q at index %d, got %q", slug, idx, listed[idx].Slug)
		}
	}
}

func TestUpdateOverwritesMutableFieldsOnly(t *testing.T) {
	t.Parallel()

	repo := setupRepository(t)
	ctx := context.Background()

	mean := 1.1
	article := &Article{Title: "Title A", Slug: "title-a", Content: "c", Pair: "EUR/USD", Position: PositionLong, Mean: &mean, AuthorID: "author-1"}
	if err := repo.Create(ctx, article); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	updated := &Article{
		ID:       article.ID,
		Title:    "Title B",
		Slug:     article.Slug,
		Content:  "revised",
		Pair:     "GBP/JPY",
		Position: PositionShort,
		AuthorID: article.AuthorID,
	}
	if err := repo.Update(ctx, updated); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	stored, err := repo.GetByID(ctx, article.ID)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if stored == nil {
		t.Fatalf("expected article to exist after update")
	}

	if stored.Title != "Title B" || stored.Content != "revised" || stored.Position != PositionShort {
		t.Fatalf("expected mutable fields overwritten, got %#v", stored)
	}
	if stored.Slug != "title-a" {
		t.Fatalf("expected slug unchanged by update, got %q", stored.Slug)
	}
	if stored.Mean != nil {
		t.Fatalf("expected absent mean to overwrite stored value, got %v", *stored.Mean)
	}
	if stored.AuthorID != "author-1" {
		t.Fatalf("expected author unchanged, got %q", stored.AuthorID)
	}
}

func TestUpdateMissingArticleFails(t *testing.T) {
	t.Parallel()

	repo := setupRepository(t)

	err := repo.Update(context.Background(), &Article{ID: "missing", Title: "t", Content: "c", Pair: "p", Position: PositionLong})
	if err == nil {
		t.Fatalf("expected error updating missing article")
	}
}

func TestDeleteRemovesRowAndToleratesMissingID(t *testing.T) {
	t.Parallel()

	repo := setupRepository(t)
	ctx := context.Background()

	article := &Article{Title: "Doomed", Slug: "doomed", Content: "c", Pair: "EUR/USD", Position: PositionLong, AuthorID: "author-1"}
	if err := repo.Create(ctx, article); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := repo.Delete(ctx, article.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	listed, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	for _, item := range listed {
		if item.ID == article.ID {
			t.Fatalf("expected deleted id to be gone from listing")
		}
	}

	if err := repo.Delete(ctx, "never-existed"); err != nil {
		t.Fatalf("expected delete of missing id to no-op, got %v", err)
	}
}

func setupRepository(t *testing.T) *GormRepository {
	t.Helper()

	path := filepath.Join(t.TempDir(), "repo.db")
	gormDB, err := db.Open(db.Options{Path: path})
	if err != nil {
		t.Fatalf("db.Open returned error: %v", err)
	}

	t.Cleanup(func() {
		if closeErr := db.Close(gormDB); closeErr != nil {
			t.Fatalf("closing database failed: %v", closeErr)
		}
	})

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	if err := Migrate(context.Background(), gormDB, logger); err != nil {
		t.Fatalf("Migrate returned error: %v", err)
	}

	repo, err := NewRepository(gormDB, logger)
	if err != nil {
		t.Fatalf("NewRepository returned error: %v", err)
	}

	return repo
}
