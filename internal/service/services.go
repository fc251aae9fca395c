package service

import (
	"context"

	"github.com/article-generation-api/internal/config"
	"github.com/article-generation-api/internal/events"
	"github.com/article-generation-api/internal/generator"
	"github.com/article-generation-api/internal/images"
	"github.com/article-generation-api/internal/models"
	"github.com/article-generation-api/internal/store"
	"github.com/article-generation-api/internal/validation"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// GenerationService defines the interface for article generation
type GenerationService interface {
	Submit(ctx context.Context, req *models.GenerationRequest) (*models.Article, error)
	Regenerate(ctx context.Context, id int64, req *models.GenerationRequest) (*models.Article, error)
	ActiveTasks() int
	Shutdown(ctx context.Context) error
}

// ArticleService defines the interface for operator actions on articles
type ArticleService interface {
	List(ctx context.Context, publishedOnly bool) []*models.Article
	Get(ctx context.Context, id int64) (*models.Article, error)
	Update(ctx context.Context, id int64, edit *models.ArticleEdit) (*models.Article, error)
	TogglePublish(ctx context.Context, id int64) (*models.Article, error)
	Delete(ctx context.Context, id int64) error
	Preview(ctx context.Context, id int64) (*Preview, error)
	Counts() store.Counts
}

// ImageService defines the interface for image uploads
type ImageService interface {
	Upload(ctx context.Context, files []images.Upload) ([]models.ImageReference, error)
	List() []models.ImageReference
}

// Services holds all service interfaces
type Services struct {
	Generation GenerationService
	Article    ArticleService
	Image      ImageService
}

// Dependencies are the collaborators shared by the services
type Dependencies struct {
	Store     *store.Store
	Generator generator.Generator
	Images    *images.Tracker
	Publisher events.Publisher
	Tracer    trace.Tracer
}

// NewServices creates all services
func NewServices(deps Dependencies, cfg *config.Config, log zerolog.Logger) *Services {
	if deps.Publisher == nil {
		deps.Publisher = events.NopPublisher{}
	}
	if deps.Tracer == nil {
		deps.Tracer = noop.NewTracerProvider().Tracer(cfg.Tracing.ServiceName)
	}

	v := validation.NewValidator()
	notifier := newNotifier(deps.Publisher, log)

	return &Services{
		Generation: newGenerationService(deps, v, notifier, cfg.Generation, log),
		Article:    newArticleService(deps.Store, v, notifier, log),
		Image:      deps.Images,
	}
}
