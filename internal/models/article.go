package models

import (
	"time"
)

// ArticleStatus represents the generation state of an article
type ArticleStatus string

const (
	ArticleStatusProcessing ArticleStatus = "PROCESSING"
	ArticleStatusDone       ArticleStatus = "DONE"
	ArticleStatusError      ArticleStatus = "ERROR"
)

// Article is a content record tracked through generation and publication
type Article struct {
	ID                   int64            `json:"id" db:"id"`
	Slug                 string           `json:"slug" db:"slug"`
	Topic                string           `json:"topic" db:"topic"`
	AdditionalContextURL string           `json:"additional_context_url,omitempty" db:"additional_context_url"`
	Images               []ImageReference `json:"images" db:"-"` // Stored as JSON in DB
	Title                string           `json:"title" db:"title"`
	Description          string           `json:"description" db:"description"`
	Content              string           `json:"content" db:"content"`
	Tags                 []string         `json:"tags" db:"-"` // Stored as JSON in DB
	Status               ArticleStatus    `json:"status" db:"status"`
	ErrorMessage         string           `json:"error_message,omitempty" db:"error_message"`
	Attempt              int              `json:"attempt" db:"attempt"`
	IsPublished          bool             `json:"is_published" db:"is_published"`
	CreatedAt            time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at" db:"updated_at"`
}

// Clone returns a deep copy so callers never share slices with the store
func (a *Article) Clone() *Article {
	if a == nil {
		return nil
	}
	c := *a
	c.Tags = append(make([]string, 0, len(a.Tags)), a.Tags...)
	c.Images = append(make([]ImageReference, 0, len(a.Images)), a.Images...)
	return &c
}

// ImageReference is the metadata of an uploaded image
type ImageReference struct {
	Filename     string `json:"filename" validate:"required"`
	OriginalName string `json:"original_name"`
}

// GenerationRequest is the ephemeral input bundle used to start generation
type GenerationRequest struct {
	Topic                string           `json:"topic" validate:"notblank,max=500"`
	AdditionalContextURL string           `json:"additional_context_url,omitempty" validate:"omitempty,url,startswith=http"`
	Images               []ImageReference `json:"images,omitempty" validate:"dive"`
}

// GenerationSuccessPatch is applied when the generator resolves for an attempt
type GenerationSuccessPatch struct {
	Attempt     int
	Title       string
	Description string
	Content     string
	Slug        string
	Tags        []string
}

// GenerationFailurePatch is applied when the generator fails or times out
type GenerationFailurePatch struct {
	Attempt int
	Reason  string
}

// ArticleEdit carries the operator-editable fields of an article.
// A nil Tags leaves the current tags untouched.
type ArticleEdit struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Content     string   `json:"content"`
	Tags        []string `json:"tags,omitempty" validate:"omitempty,dive,notblank"`
}
