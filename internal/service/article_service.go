package service

import (
	"context"

	"github.com/article-generation-api/internal/events"
	"github.com/article-generation-api/internal/models"
	"github.com/article-generation-api/internal/render"
	"github.com/article-generation-api/internal/store"
	"github.com/article-generation-api/internal/validation"
	"github.com/rs/zerolog"
)

// Preview is an article rendered for display
type Preview struct {
	ID          int64                `json:"id"`
	Slug        string               `json:"slug"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Tags        []string             `json:"tags"`
	Status      models.ArticleStatus `json:"status"`
	IsPublished bool                 `json:"is_published"`
	HTML        string               `json:"html"`
}

// articleService is the concrete implementation of ArticleService
type articleService struct {
	store     *store.Store
	validator *validation.Validator
	notifier  *notifier
	log       zerolog.Logger
}

func newArticleService(st *store.Store, v *validation.Validator, n *notifier, log zerolog.Logger) *articleService {
	return &articleService{
		store:     st,
		validator: v,
		notifier:  n,
		log:       log.With().Str("service", "article").Logger(),
	}
}

// List returns articles most recently created first
func (s *articleService) List(ctx context.Context, publishedOnly bool) []*models.Article {
	if publishedOnly {
		return s.store.ListPublished()
	}
	return s.store.List()
}

// Get returns one article
func (s *articleService) Get(ctx context.Context, id int64) (*models.Article, error) {
	return s.store.Get(id)
}

// Update applies a manual edit
func (s *articleService) Update(ctx context.Context, id int64, edit *models.ArticleEdit) (*models.Article, error) {
	if errs := s.validator.ValidateEdit(edit); len(errs) > 0 {
		return nil, &ValidationFailedError{Errors: errs}
	}

	article, err := s.store.Update(id, *edit)
	if err != nil {
		s.logMissing(err, id, "update")
		return nil, err
	}

	s.log.Info().Int64("article_id", id).Msg("Article updated")
	s.notifier.notify(events.EventUpdated, article)
	return article, nil
}

// TogglePublish flips the publish flag
func (s *articleService) TogglePublish(ctx context.Context, id int64) (*models.Article, error) {
	article, err := s.store.TogglePublish(id)
	if err != nil {
		s.logMissing(err, id, "toggle publish")
		return nil, err
	}

	event := events.EventUnpublished
	if article.IsPublished {
		event = events.EventPublished
	}
	s.log.Info().Int64("article_id", id).Bool("is_published", article.IsPublished).Msg("Article publish state changed")
	s.notifier.notify(event, article)
	return article, nil
}

// Delete removes an article. A running generation for it is discarded
// when it completes.
func (s *articleService) Delete(ctx context.Context, id int64) error {
	article, err := s.store.Get(id)
	if err != nil {
		s.logMissing(err, id, "delete")
		return err
	}
	if err := s.store.Delete(id); err != nil {
		s.logMissing(err, id, "delete")
		return err
	}

	s.log.Info().Int64("article_id", id).Msg("Article deleted")
	s.notifier.notify(events.EventDeleted, article)
	return nil
}

// Preview renders the article content as sanitized HTML
func (s *articleService) Preview(ctx context.Context, id int64) (*Preview, error) {
	article, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}

	html, err := render.Markdown(article.Content)
	if err != nil {
		return nil, err
	}

	return &Preview{
		ID:          article.ID,
		Slug:        article.Slug,
		Title:       article.Title,
		Description: article.Description,
		Tags:        article.Tags,
		Status:      article.Status,
		IsPublished: article.IsPublished,
		HTML:        html,
	}, nil
}

// Counts returns per-status totals
func (s *articleService) Counts() store.Counts {
	return s.store.Counts()
}

func (s *articleService) logMissing(err error, id int64, op string) {
	if store.IsNotFound(err) {
		s.log.Info().Int64("article_id", id).Str("op", op).Msg("Article not found")
	}
}
