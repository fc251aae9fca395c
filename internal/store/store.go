// Package store holds the authoritative article collection.
//
// Every read and write goes through Store, which guards the whole
// collection with a single RWMutex. Readers always receive deep copies,
// so a caller can never observe or cause a half-applied mutation.
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/article-generation-api/internal/models"
	"github.com/article-generation-api/internal/repository"
	"github.com/article-generation-api/internal/slug"
	"github.com/rs/zerolog"
)

const (
	defaultFailureReason     = "generation failed"
	interruptedFailureReason = "generation interrupted by restart"
)

// Counts summarizes the collection for metrics
type Counts struct {
	Total      int `json:"total"`
	Processing int `json:"processing"`
	Done       int `json:"done"`
	Error      int `json:"error"`
	Published  int `json:"published"`
}

// Store is the single owner of the article collection
type Store struct {
	mu       sync.RWMutex
	articles []*models.Article // most recently created first
	byID     map[int64]*models.Article
	slugs    map[string]int64
	lastID   int64
	closed   bool

	repo    repository.ArticleRepository
	journal *journal
	now     func() time.Time
	log     zerolog.Logger
}

// Option configures a Store
type Option func(*Store)

// WithRepository mirrors every mutation to repo and enables Load
func WithRepository(repo repository.ArticleRepository) Option {
	return func(s *Store) {
		s.repo = repo
	}
}

// WithClock overrides the time source, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates an empty store
func New(log zerolog.Logger, opts ...Option) *Store {
	s := &Store{
		byID:  make(map[int64]*models.Article),
		slugs: make(map[string]int64),
		now:   time.Now,
		log:   log.With().Str("component", "store").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.repo != nil {
		s.journal = newJournal(s.repo, s.log)
	}
	return s
}

// Load replaces the collection with the repository contents.
// It is a no-op for a store without a repository.
func (s *Store) Load(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}

	loaded, err := s.repo.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load articles: %w", err)
	}

	sort.SliceStable(loaded, func(i, j int) bool {
		if !loaded[i].CreatedAt.Equal(loaded[j].CreatedAt) {
			return loaded[i].CreatedAt.After(loaded[j].CreatedAt)
		}
		return loaded[i].ID > loaded[j].ID
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	s.articles = s.articles[:0]
	s.byID = make(map[int64]*models.Article, len(loaded))
	s.slugs = make(map[string]int64, len(loaded))

	ids := make([]int64, 0, len(loaded))
	for _, a := range loaded {
		if _, dup := s.byID[a.ID]; dup {
			s.log.Warn().Int64("article_id", a.ID).Msg("Skipping duplicate article id from repository")
			continue
		}
		if owner, dup := s.slugs[a.Slug]; dup {
			s.log.Warn().Int64("article_id", a.ID).Int64("owner_id", owner).Str("slug", a.Slug).
				Msg("Skipping article with duplicate slug from repository")
			continue
		}
		if a.Tags == nil {
			a.Tags = []string{}
		}
		s.articles = append(s.articles, a)
		s.byID[a.ID] = a
		s.slugs[a.Slug] = a.ID
		ids = append(ids, a.ID)
	}
	s.lastID = slug.NextID(ids) - 1

	s.log.Info().Int("count", len(s.articles)).Int64("last_id", s.lastID).Msg("Articles loaded")
	return nil
}

// Create inserts a new PROCESSING article at the front of the collection
func (s *Store) Create(req models.GenerationRequest) (*models.Article, error) {
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return nil, ErrEmptyTopic
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastID++
	now := s.now()
	article := &models.Article{
		ID:                   s.lastID,
		Slug:                 slug.TemporaryUnique(s.slugTakenBy(0)),
		Topic:                topic,
		AdditionalContextURL: strings.TrimSpace(req.AdditionalContextURL),
		Images:               append([]models.ImageReference{}, req.Images...),
		Tags:                 []string{},
		Status:               models.ArticleStatusProcessing,
		Attempt:              1,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	s.articles = append([]*models.Article{article}, s.articles...)
	s.byID[article.ID] = article
	s.slugs[article.Slug] = article.ID
	s.record(article)

	return article.Clone(), nil
}

// ApplySuccess moves a PROCESSING article to DONE with the generated content.
// The permanent slug is derived from the patch slug source, falling back
// to the topic, against the slugs held at that moment.
func (s *Store) ApplySuccess(id int64, patch models.GenerationSuccessPatch) (*models.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	article, err := s.processing(id, patch.Attempt)
	if err != nil {
		return nil, err
	}

	source := patch.Slug
	if slug.Normalize(source) == "" {
		source = article.Topic
	}
	final := slug.Derive(source, id, s.slugTakenBy(id))
	if !slug.Valid(final) {
		s.log.Warn().Int64("article_id", id).Str("slug", final).Msg("Derived slug rejected, using id slug")
		final = slug.Unique("", id, s.slugTakenBy(id))
	}

	delete(s.slugs, article.Slug)
	article.Slug = final
	s.slugs[final] = id

	article.Title = patch.Title
	article.Description = patch.Description
	article.Content = patch.Content
	article.Tags = append([]string{}, patch.Tags...)
	article.Status = models.ArticleStatusDone
	article.ErrorMessage = ""
	article.UpdatedAt = s.now()
	s.record(article)

	return article.Clone(), nil
}

// ApplyFailure moves a PROCESSING article to ERROR, leaving content as is
func (s *Store) ApplyFailure(id int64, patch models.GenerationFailurePatch) (*models.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	article, err := s.processing(id, patch.Attempt)
	if err != nil {
		return nil, err
	}

	s.fail(article, patch.Reason)
	return article.Clone(), nil
}

// Update applies an operator edit; status, slug, id, created_at and the
// publish flag are never touched.
func (s *Store) Update(id int64, edit models.ArticleEdit) (*models.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	article, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("article %d: %w", id, ErrNotFound)
	}

	article.Title = edit.Title
	article.Description = edit.Description
	article.Content = edit.Content
	if edit.Tags != nil {
		article.Tags = append([]string{}, edit.Tags...)
	}
	article.UpdatedAt = s.now()
	s.record(article)

	return article.Clone(), nil
}

// TogglePublish flips the publish flag regardless of status
func (s *Store) TogglePublish(id int64) (*models.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	article, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("article %d: %w", id, ErrNotFound)
	}

	article.IsPublished = !article.IsPublished
	article.UpdatedAt = s.now()
	s.record(article)

	return article.Clone(), nil
}

// BeginRegeneration returns a finished article to PROCESSING as a new
// attempt. A nil req reuses the inputs of the previous attempt.
func (s *Store) BeginRegeneration(id int64, req *models.GenerationRequest) (*models.Article, error) {
	var topic string
	if req != nil {
		topic = strings.TrimSpace(req.Topic)
		if topic == "" {
			return nil, ErrEmptyTopic
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	article, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("article %d: %w", id, ErrNotFound)
	}
	if article.Status == models.ArticleStatusProcessing {
		return nil, fmt.Errorf("article %d: %w", id, ErrGenerationActive)
	}

	if req != nil {
		article.Topic = topic
		article.AdditionalContextURL = strings.TrimSpace(req.AdditionalContextURL)
		article.Images = append([]models.ImageReference{}, req.Images...)
	}
	article.Attempt++
	article.Status = models.ArticleStatusProcessing
	article.ErrorMessage = ""
	article.UpdatedAt = s.now()
	s.record(article)

	return article.Clone(), nil
}

// Delete removes an article. A generation completing afterwards finds
// the id missing and becomes a no-op.
func (s *Store) Delete(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	article, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("article %d: %w", id, ErrNotFound)
	}

	for i, a := range s.articles {
		if a.ID == id {
			s.articles = append(s.articles[:i], s.articles[i+1:]...)
			break
		}
	}
	delete(s.byID, id)
	delete(s.slugs, article.Slug)

	if s.journal != nil && !s.closed {
		s.journal.enqueue(journalEntry{deleteID: id})
	}
	return nil
}

// RecoverInterrupted fails every article left PROCESSING, which after a
// restart means its generation task no longer exists. Returns their ids.
func (s *Store) RecoverInterrupted() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []int64
	for _, article := range s.articles {
		if article.Status == models.ArticleStatusProcessing {
			s.fail(article, interruptedFailureReason)
			ids = append(ids, article.ID)
		}
	}
	return ids
}

// Get returns a copy of one article
func (s *Store) Get(id int64) (*models.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	article, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("article %d: %w", id, ErrNotFound)
	}
	return article.Clone(), nil
}

// List returns a consistent snapshot, most recently created first
func (s *Store) List() []*models.Article {
	return s.filter(func(*models.Article) bool { return true })
}

// ListPublished returns the published articles, most recently created first
func (s *Store) ListPublished() []*models.Article {
	return s.filter(func(a *models.Article) bool { return a.IsPublished })
}

// Counts returns per-status totals
func (s *Store) Counts() Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := Counts{Total: len(s.articles)}
	for _, a := range s.articles {
		switch a.Status {
		case models.ArticleStatusProcessing:
			c.Processing++
		case models.ArticleStatusDone:
			c.Done++
		case models.ArticleStatusError:
			c.Error++
		}
		if a.IsPublished {
			c.Published++
		}
	}
	return c
}

// Close flushes pending repository writes. Mutations after Close only
// affect memory.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	if s.journal != nil {
		s.journal.close()
	}
}

func (s *Store) filter(keep func(*models.Article) bool) []*models.Article {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Article, 0, len(s.articles))
	for _, a := range s.articles {
		if keep(a) {
			out = append(out, a.Clone())
		}
	}
	return out
}

// processing looks up an article that may receive a generation patch.
// Caller must hold s.mu.
func (s *Store) processing(id int64, attempt int) (*models.Article, error) {
	article, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("article %d: %w", id, ErrNotFound)
	}
	if article.Status != models.ArticleStatusProcessing {
		return nil, fmt.Errorf("%w: article %d is %s", ErrInvalidTransition, id, article.Status)
	}
	if attempt != article.Attempt {
		return nil, fmt.Errorf("%w: article %d attempt %d is stale, current is %d",
			ErrInvalidTransition, id, attempt, article.Attempt)
	}
	return article, nil
}

// fail marks article as ERROR. Caller must hold s.mu.
func (s *Store) fail(article *models.Article, reason string) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = defaultFailureReason
	}
	article.Status = models.ArticleStatusError
	article.ErrorMessage = reason
	article.UpdatedAt = s.now()
	s.record(article)
}

// slugTakenBy reports slugs owned by any article other than self.
// Caller must hold s.mu.
func (s *Store) slugTakenBy(self int64) func(string) bool {
	return func(candidate string) bool {
		owner, ok := s.slugs[candidate]
		return ok && owner != self
	}
}

// record queues a snapshot for the repository. Caller must hold s.mu.
func (s *Store) record(article *models.Article) {
	if s.journal == nil || s.closed {
		return
	}
	s.journal.enqueue(journalEntry{article: article.Clone()})
}
