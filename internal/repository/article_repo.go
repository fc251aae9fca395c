package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/article-generation-api/internal/database"
	"github.com/article-generation-api/internal/models"
)

// articleRepo is the PostgreSQL implementation of ArticleRepository
type articleRepo struct {
	db *database.DB
}

// NewArticleRepo creates a new article repository
func NewArticleRepo(db *database.DB) ArticleRepository {
	return &articleRepo{db: db}
}

const articleColumns = `id, slug, topic, additional_context_url, images, title, description, content,
	tags, status, error_message, attempt, is_published, created_at, updated_at`

// Save upserts the full article row
func (r *articleRepo) Save(ctx context.Context, article *models.Article) error {
	tagsJSON, err := encodeTags(article.Tags)
	if err != nil {
		return err
	}
	imagesJSON, err := encodeImages(article.Images)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO articles (` + articleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			slug = EXCLUDED.slug,
			topic = EXCLUDED.topic,
			additional_context_url = EXCLUDED.additional_context_url,
			images = EXCLUDED.images,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			content = EXCLUDED.content,
			tags = EXCLUDED.tags,
			status = EXCLUDED.status,
			error_message = EXCLUDED.error_message,
			attempt = EXCLUDED.attempt,
			is_published = EXCLUDED.is_published,
			updated_at = EXCLUDED.updated_at
	`
	_, err = r.db.ExecContext(ctx, query,
		article.ID, article.Slug, article.Topic, article.AdditionalContextURL, imagesJSON,
		article.Title, article.Description, article.Content, tagsJSON,
		string(article.Status), article.ErrorMessage, article.Attempt, article.IsPublished,
		article.CreatedAt, article.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save article %d: %w", article.ID, err)
	}
	return nil
}

// Delete removes an article by ID; deleting a missing row is not an error
func (r *articleRepo) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM articles WHERE id = $1", id); err != nil {
		return fmt.Errorf("failed to delete article %d: %w", id, err)
	}
	return nil
}

// LoadAll retrieves all articles, newest first
func (r *articleRepo) LoadAll(ctx context.Context) ([]*models.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []*models.Article
	for rows.Next() {
		var article models.Article
		var tagsJSON, imagesJSON []byte
		var status string

		err := rows.Scan(
			&article.ID, &article.Slug, &article.Topic, &article.AdditionalContextURL, &imagesJSON,
			&article.Title, &article.Description, &article.Content, &tagsJSON,
			&status, &article.ErrorMessage, &article.Attempt, &article.IsPublished,
			&article.CreatedAt, &article.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		article.Status = models.ArticleStatus(status)

		if article.Tags, err = decodeTags(tagsJSON); err != nil {
			return nil, fmt.Errorf("article %d: %w", article.ID, err)
		}
		if article.Images, err = decodeImages(imagesJSON); err != nil {
			return nil, fmt.Errorf("article %d: %w", article.ID, err)
		}
		articles = append(articles, &article)
	}

	return articles, rows.Err()
}

func encodeTags(tags []string) ([]byte, error) {
	if tags == nil {
		return []byte("[]"), nil
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tags: %w", err)
	}
	return b, nil
}

func decodeTags(raw []byte) ([]string, error) {
	tags := []string{}
	if len(raw) == 0 {
		return tags, nil
	}
	if err := json.Unmarshal(raw, &tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}
	return tags, nil
}

func encodeImages(images []models.ImageReference) ([]byte, error) {
	if images == nil {
		return []byte("[]"), nil
	}
	b, err := json.Marshal(images)
	if err != nil {
		return nil, fmt.Errorf("failed to encode images: %w", err)
	}
	return b, nil
}

func decodeImages(raw []byte) ([]models.ImageReference, error) {
	images := []models.ImageReference{}
	if len(raw) == 0 {
		return images, nil
	}
	if err := json.Unmarshal(raw, &images); err != nil {
		return nil, fmt.Errorf("failed to decode images: %w", err)
	}
	return images, nil
}
