package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/article-generation-api/internal/config"
	"github.com/article-generation-api/internal/events"
	"github.com/article-generation-api/internal/generator"
	"github.com/article-generation-api/internal/images"
	"github.com/article-generation-api/internal/models"
	"github.com/article-generation-api/internal/store"
	"github.com/article-generation-api/internal/validation"
	"github.com/article-generation-api/pkg/tracing"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
)

// generationService runs one background task per submitted article and
// reports the outcome back to the store as a success or failure patch.
type generationService struct {
	store     *store.Store
	gen       generator.Generator
	images    *images.Tracker
	validator *validation.Validator
	notifier  *notifier
	tracer    trace.Tracer
	timeout   time.Duration
	log       zerolog.Logger

	// Bounds concurrent generator calls; queued tasks wait here while
	// their articles already show PROCESSING.
	sem     *semaphore.Weighted
	active  atomic.Int64
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	closing bool
}

// newGenerationService creates a GenerationService with a bounded worker pool
func newGenerationService(deps Dependencies, v *validation.Validator, n *notifier, cfg config.GenerationConfig, log zerolog.Logger) *generationService {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = config.DefaultMaxConcurrent()
	}

	log.Info().
		Int("max_concurrent", maxConcurrent).
		Dur("timeout", cfg.Timeout).
		Msg("Initializing generation worker pool")

	ctx, cancel := context.WithCancel(context.Background())
	return &generationService{
		store:     deps.Store,
		gen:       deps.Generator,
		images:    deps.Images,
		validator: v,
		notifier:  n,
		tracer:    deps.Tracer,
		timeout:   cfg.Timeout,
		log:       log.With().Str("service", "generation").Logger(),
		sem:       semaphore.NewWeighted(int64(maxConcurrent)),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Submit creates a PROCESSING article and starts generating it in the
// background. It returns as soon as the record exists.
func (s *generationService) Submit(ctx context.Context, req *models.GenerationRequest) (*models.Article, error) {
	if s.isClosing() {
		return nil, ErrShuttingDown
	}

	resolved, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	article, err := s.store.Create(*resolved)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("article_id", article.ID).
		Str("slug", article.Slug).
		Str("topic", article.Topic).
		Msg("Article submitted for generation")
	s.notifier.notify(events.EventCreated, article)

	s.start(article)
	return article, nil
}

// Regenerate returns a DONE or ERROR article to PROCESSING and starts a
// new attempt. A nil req reuses the article's previous inputs.
func (s *generationService) Regenerate(ctx context.Context, id int64, req *models.GenerationRequest) (*models.Article, error) {
	if s.isClosing() {
		return nil, ErrShuttingDown
	}

	var resolved *models.GenerationRequest
	if req != nil {
		var err error
		if resolved, err = s.prepare(req); err != nil {
			return nil, err
		}
	}

	article, err := s.store.BeginRegeneration(id, resolved)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("article_id", article.ID).
		Int("attempt", article.Attempt).
		Msg("Article submitted for regeneration")
	s.notifier.notify(events.EventRegenerating, article)

	s.start(article)
	return article, nil
}

// ActiveTasks returns the number of generator calls in flight
func (s *generationService) ActiveTasks() int {
	return int(s.active.Load())
}

// Shutdown stops accepting work, cancels running generations, waits for
// every task to record its outcome and flushes queued events.
func (s *generationService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return nil
	}
	s.closing = true
	s.mu.Unlock()

	s.log.Info().Int("active", s.ActiveTasks()).Msg("Generation service stopping")
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("generation tasks still running: %w", ctx.Err())
	}

	if err := s.notifier.close(ctx); err != nil {
		return fmt.Errorf("events still pending: %w", err)
	}
	s.log.Info().Msg("Generation service stopped")
	return nil
}

// prepare validates req and resolves its image references to the ones
// the tracker handed out.
func (s *generationService) prepare(req *models.GenerationRequest) (*models.GenerationRequest, error) {
	if errs := s.validator.ValidateGenerationRequest(req); len(errs) > 0 {
		if req != nil && strings.TrimSpace(req.Topic) == "" {
			return nil, store.ErrEmptyTopic
		}
		return nil, &ValidationFailedError{Errors: errs}
	}

	resolved := *req
	if len(req.Images) > 0 && s.images != nil {
		names := make([]string, len(req.Images))
		for i, img := range req.Images {
			names[i] = img.Filename
		}
		refs, err := s.images.Resolve(names)
		if err != nil {
			return nil, &ValidationFailedError{Errors: []validation.ValidationError{{
				Field:   "images",
				Message: err.Error(),
			}}}
		}
		resolved.Images = refs
	}
	return &resolved, nil
}

func (s *generationService) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

// start launches the task for the article's current attempt
func (s *generationService) start(article *models.Article) {
	in := generator.Input{
		Topic:                article.Topic,
		AdditionalContextURL: article.AdditionalContextURL,
		Images:               article.Images,
	}

	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		s.finish(article.ID, article.Attempt, in, generator.Output{}, ErrGenerationCancelled)
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go s.run(article.ID, article.Attempt, in)
}

// run waits for a worker slot, calls the generator under the configured
// timeout and applies the outcome.
func (s *generationService) run(id int64, attempt int, in generator.Input) {
	defer s.wg.Done()

	if err := s.sem.Acquire(s.ctx, 1); err != nil {
		s.finish(id, attempt, in, generator.Output{}, ErrGenerationCancelled)
		return
	}
	defer s.sem.Release(1)

	s.active.Add(1)
	defer s.active.Add(-1)

	ctx, span := tracing.StartSpan(s.ctx, s.tracer, "article.generate",
		attribute.Int64(tracing.ArticleIDKey, id),
		attribute.Int(tracing.AttemptKey, attempt),
		attribute.String(tracing.TopicKey, in.Topic),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	out, err := s.generate(ctx, in)
	if err != nil {
		switch {
		case s.ctx.Err() != nil:
			err = ErrGenerationCancelled
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			err = fmt.Errorf("%w after %s", ErrGenerationTimeout, s.timeout)
		}
		tracing.SetError(span, err)
	}

	s.log.Debug().
		Int64("article_id", id).
		Int("attempt", attempt).
		Dur("duration", time.Since(start)).
		Bool("ok", err == nil).
		Msg("Generator returned")

	status := s.finish(id, attempt, in, out, err)
	span.SetAttributes(attribute.String(tracing.StatusKey, string(status)))
}

// generate calls the generator in its own goroutine so the deadline holds
// even for generators that ignore ctx. Panics become errors.
func (s *generationService) generate(ctx context.Context, in generator.Input) (generator.Output, error) {
	type result struct {
		out generator.Output
		err error
	}
	ch := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error().Interface("panic", r).Str("topic", in.Topic).Msg("Generator panicked - recovered")
				ch <- result{err: fmt.Errorf("%w: %v", ErrGeneratorPanic, r)}
			}
		}()
		out, err := s.gen.Generate(ctx, in)
		ch <- result{out: out, err: err}
	}()

	select {
	case r := <-ch:
		return r.out, r.err
	case <-ctx.Done():
		return generator.Output{}, ctx.Err()
	}
}

// finish applies the success or failure patch for one attempt and returns
// the resulting status. A missing article or a superseded attempt means
// the result is discarded.
func (s *generationService) finish(id int64, attempt int, in generator.Input, out generator.Output, genErr error) models.ArticleStatus {
	var (
		article *models.Article
		err     error
		event   events.EventType
	)

	if genErr == nil {
		tags := out.Tags
		if len(tags) == 0 {
			tags = []string{in.Topic}
		}
		article, err = s.store.ApplySuccess(id, models.GenerationSuccessPatch{
			Attempt:     attempt,
			Title:       out.Title,
			Description: out.Description,
			Content:     out.Content,
			Slug:        in.Topic,
			Tags:        tags,
		})
		event = events.EventCompleted
	} else {
		reason := (&GenerationError{ArticleID: id, Attempt: attempt, Err: genErr}).Error()
		article, err = s.store.ApplyFailure(id, models.GenerationFailurePatch{
			Attempt: attempt,
			Reason:  reason,
		})
		event = events.EventFailed
	}

	switch {
	case store.IsNotFound(err):
		s.log.Info().Int64("article_id", id).Msg("Article deleted before generation finished, result discarded")
		return ""
	case store.IsInvalidTransition(err):
		s.log.Warn().Err(err).Int64("article_id", id).Int("attempt", attempt).Msg("Generation result discarded")
		return ""
	case err != nil:
		s.log.Error().Err(err).Int64("article_id", id).Msg("Failed to record generation result")
		return ""
	}

	if genErr != nil {
		s.log.Warn().
			Int64("article_id", id).
			Int("attempt", attempt).
			Str("reason", article.ErrorMessage).
			Msg("Article generation failed")
	} else {
		s.log.Info().
			Int64("article_id", id).
			Int("attempt", attempt).
			Str("slug", article.Slug).
			Msg("Article generated")
	}

	s.notifier.notify(event, article)
	return article.Status
}
