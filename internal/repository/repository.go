package repository

import (
	"context"

	"github.com/article-generation-api/internal/database"
	"github.com/article-generation-api/internal/models"
)

// ArticleRepository is the durable copy of the article collection.
// The in-memory store stays authoritative; the repository only mirrors it.
type ArticleRepository interface {
	// LoadAll returns every article, most recently created first
	LoadAll(ctx context.Context) ([]*models.Article, error)
	// Save inserts or fully replaces the article with the same id
	Save(ctx context.Context, article *models.Article) error
	Delete(ctx context.Context, id int64) error
}

// Repositories holds all repository interfaces
type Repositories struct {
	Article ArticleRepository
}

// New creates all repositories with the given database connection
func New(db *database.DB) *Repositories {
	return &Repositories{
		Article: NewArticleRepo(db),
	}
}
