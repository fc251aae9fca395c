// Package events publishes article lifecycle notifications.
package events

import (
	"context"
	"time"

	"github.com/article-generation-api/internal/models"
)

// EventType names a lifecycle transition
type EventType string

const (
	EventCreated      EventType = "article.created"
	EventCompleted    EventType = "article.completed"
	EventFailed       EventType = "article.failed"
	EventUpdated      EventType = "article.updated"
	EventPublished    EventType = "article.published"
	EventUnpublished  EventType = "article.unpublished"
	EventRegenerating EventType = "article.regenerating"
	EventDeleted      EventType = "article.deleted"
)

// Event is the payload delivered to subscribers
type Event struct {
	Type        EventType            `json:"type"`
	ArticleID   int64                `json:"article_id"`
	Slug        string               `json:"slug,omitempty"`
	Status      models.ArticleStatus `json:"status,omitempty"`
	Attempt     int                  `json:"attempt,omitempty"`
	IsPublished bool                 `json:"is_published"`
	Reason      string               `json:"reason,omitempty"`
	OccurredAt  time.Time            `json:"occurred_at"`
}

// NewEvent snapshots the fields of article relevant to subscribers
func NewEvent(t EventType, article *models.Article) Event {
	return Event{
		Type:        t,
		ArticleID:   article.ID,
		Slug:        article.Slug,
		Status:      article.Status,
		Attempt:     article.Attempt,
		IsPublished: article.IsPublished,
		Reason:      article.ErrorMessage,
		OccurredAt:  time.Now().UTC(),
	}
}

// Publisher delivers events. Delivery is best effort; callers log failures.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NopPublisher drops every event
type NopPublisher struct{}

// Publish implements Publisher
func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Close implements Publisher
func (NopPublisher) Close() error { return nil }
