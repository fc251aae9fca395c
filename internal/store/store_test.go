package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/article-generation-api/internal/mocks"
	"github.com/article-generation-api/internal/models"
	"github.com/article-generation-api/internal/slug"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(opts ...Option) *Store {
	return New(zerolog.Nop(), opts...)
}

func success(attempt int, title string) models.GenerationSuccessPatch {
	return models.GenerationSuccessPatch{
		Attempt:     attempt,
		Title:       title,
		Description: "D",
		Content:     "C",
		Tags:        []string{"AI"},
	}
}

func TestCreate_ReturnsProcessingRecord(t *testing.T) {
	s := newTestStore()

	article, err := s.Create(models.GenerationRequest{Topic: "AI Ethics"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), article.ID)
	assert.Equal(t, models.ArticleStatusProcessing, article.Status)
	assert.Empty(t, article.Title)
	assert.Empty(t, article.Description)
	assert.Empty(t, article.Content)
	assert.Empty(t, article.Tags)
	assert.False(t, article.IsPublished)
	assert.Equal(t, 1, article.Attempt)
	assert.True(t, slug.IsTemporary(article.Slug), "slug %q should be temporary", article.Slug)
}

func TestScenarioA_SuccessDerivesSlug(t *testing.T) {
	s := newTestStore()
	article, err := s.Create(models.GenerationRequest{Topic: "AI Ethics"})
	require.NoError(t, err)

	done, err := s.ApplySuccess(article.ID, models.GenerationSuccessPatch{
		Attempt: 1, Title: "T", Description: "D", Content: "C", Slug: "AI Ethics", Tags: []string{"AI"},
	})
	require.NoError(t, err)

	got, err := s.Get(article.ID)
	require.NoError(t, err)
	assert.Equal(t, done, got)
	assert.Equal(t, models.ArticleStatusDone, got.Status)
	assert.Equal(t, "ai-ethics", got.Slug)
	assert.Equal(t, []string{"AI"}, got.Tags)
	assert.Equal(t, "T", got.Title)
}

func TestScenarioB_EmptyTopicRejected(t *testing.T) {
	s := newTestStore()

	for _, topic := range []string{"", "   ", "\t\n"} {
		_, err := s.Create(models.GenerationRequest{Topic: topic})
		assert.ErrorIs(t, err, ErrEmptyTopic)
	}
	assert.Empty(t, s.List())
}

func TestScenarioC_FailureKeepsContentEmpty(t *testing.T) {
	s := newTestStore()
	article, err := s.Create(models.GenerationRequest{Topic: "Slow topic"})
	require.NoError(t, err)

	failed, err := s.ApplyFailure(article.ID, models.GenerationFailurePatch{Attempt: 1, Reason: "generation timed out"})
	require.NoError(t, err)

	assert.Equal(t, models.ArticleStatusError, failed.Status)
	assert.Equal(t, "generation timed out", failed.ErrorMessage)
	assert.Empty(t, failed.Title)
	assert.Empty(t, failed.Description)
	assert.Empty(t, failed.Content)
	assert.False(t, failed.IsPublished)
	assert.True(t, slug.IsTemporary(failed.Slug))
}

func TestApplyFailure_DefaultReason(t *testing.T) {
	s := newTestStore()
	article, _ := s.Create(models.GenerationRequest{Topic: "X"})

	failed, err := s.ApplyFailure(article.ID, models.GenerationFailurePatch{Attempt: 1})
	require.NoError(t, err)
	assert.Equal(t, defaultFailureReason, failed.ErrorMessage)
}

func TestScenarioD_TrailingSpaceGetsDistinctSlug(t *testing.T) {
	s := newTestStore()
	first, err := s.Create(models.GenerationRequest{Topic: "X"})
	require.NoError(t, err)
	second, err := s.Create(models.GenerationRequest{Topic: "X "})
	require.NoError(t, err)

	a, err := s.ApplySuccess(first.ID, success(1, "one"))
	require.NoError(t, err)
	b, err := s.ApplySuccess(second.ID, success(1, "two"))
	require.NoError(t, err)

	assert.Equal(t, "x", a.Slug)
	assert.Equal(t, fmt.Sprintf("x-%d", second.ID), b.Slug)
	assert.NotEqual(t, a.Slug, b.Slug)
}

func TestApplySuccess_DerivesValidSlug(t *testing.T) {
	tests := []struct {
		name   string
		topic  string
		source string
		want   string
	}{
		{"topic fallback", "Café Über 2024", "", "café-über-2024"},
		{"explicit source", "ignored", "Go  Generics!", "go-generics"},
		{"symbols only", "!!!", "", "article-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore()
			a, err := s.Create(models.GenerationRequest{Topic: tt.topic})
			require.NoError(t, err)

			patch := success(1, "T")
			patch.Slug = tt.source
			done, err := s.ApplySuccess(a.ID, patch)
			require.NoError(t, err)

			assert.Equal(t, tt.want, done.Slug)
			assert.True(t, slug.Valid(done.Slug))
		})
	}
}

func TestScenarioE_PublishNotGatedByStatus(t *testing.T) {
	s := newTestStore()
	article, _ := s.Create(models.GenerationRequest{Topic: "Broken"})
	_, err := s.ApplyFailure(article.ID, models.GenerationFailurePatch{Attempt: 1, Reason: "boom"})
	require.NoError(t, err)

	published, err := s.TogglePublish(article.ID)
	require.NoError(t, err)
	assert.True(t, published.IsPublished)
	assert.Equal(t, models.ArticleStatusError, published.Status)
}

func TestTogglePublish_Twice(t *testing.T) {
	s := newTestStore()
	article, _ := s.Create(models.GenerationRequest{Topic: "Toggle"})

	_, err := s.TogglePublish(article.ID)
	require.NoError(t, err)
	again, err := s.TogglePublish(article.ID)
	require.NoError(t, err)

	assert.False(t, again.IsPublished)
	assert.Empty(t, s.ListPublished())
}

func TestListPublished(t *testing.T) {
	s := newTestStore()
	a, _ := s.Create(models.GenerationRequest{Topic: "A"})
	s.Create(models.GenerationRequest{Topic: "B"})
	c, _ := s.Create(models.GenerationRequest{Topic: "C"})

	s.TogglePublish(a.ID)
	s.TogglePublish(c.ID)

	published := s.ListPublished()
	require.Len(t, published, 2)
	assert.Equal(t, c.ID, published[0].ID)
	assert.Equal(t, a.ID, published[1].ID)
}

func TestTransitions_AtMostOnce(t *testing.T) {
	s := newTestStore()
	article, _ := s.Create(models.GenerationRequest{Topic: "Once"})

	_, err := s.ApplySuccess(article.ID, success(1, "T"))
	require.NoError(t, err)

	_, err = s.ApplySuccess(article.ID, success(1, "T2"))
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = s.ApplyFailure(article.ID, models.GenerationFailurePatch{Attempt: 1, Reason: "late"})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	got, _ := s.Get(article.ID)
	assert.Equal(t, models.ArticleStatusDone, got.Status)
	assert.Equal(t, "T", got.Title)
}

func TestMissingID(t *testing.T) {
	s := newTestStore()

	_, err := s.ApplySuccess(42, success(1, "T"))
	assert.True(t, IsNotFound(err))
	_, err = s.ApplyFailure(42, models.GenerationFailurePatch{Attempt: 1})
	assert.True(t, IsNotFound(err))
	_, err = s.Update(42, models.ArticleEdit{})
	assert.True(t, IsNotFound(err))
	_, err = s.TogglePublish(42)
	assert.True(t, IsNotFound(err))
	_, err = s.BeginRegeneration(42, nil)
	assert.True(t, IsNotFound(err))
	assert.True(t, IsNotFound(s.Delete(42)))
	_, err = s.Get(42)
	assert.True(t, IsNotFound(err))
}

func TestList_NewestFirstRegardlessOfMutationOrder(t *testing.T) {
	base := time.Date(2024, 8, 1, 10, 0, 0, 0, time.UTC)
	tick := 0
	s := newTestStore(WithClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}))

	var ids []int64
	for _, topic := range []string{"one", "two", "three", "four"} {
		a, err := s.Create(models.GenerationRequest{Topic: topic})
		require.NoError(t, err)
		ids = append(ids, a.ID)
	}

	// Mutate oldest first, then fail the newest
	s.ApplySuccess(ids[0], success(1, "first"))
	s.Update(ids[1], models.ArticleEdit{Title: "edited"})
	s.TogglePublish(ids[2])
	s.ApplyFailure(ids[3], models.GenerationFailurePatch{Attempt: 1, Reason: "x"})

	list := s.List()
	require.Len(t, list, 4)
	for i, a := range list {
		assert.Equal(t, ids[len(ids)-1-i], a.ID)
	}
}

func TestList_ReturnsCopies(t *testing.T) {
	s := newTestStore()
	article, _ := s.Create(models.GenerationRequest{Topic: "Copy"})
	s.ApplySuccess(article.ID, success(1, "T"))

	list := s.List()
	list[0].Title = "mutated"
	list[0].Tags[0] = "mutated"

	got, _ := s.Get(article.ID)
	assert.Equal(t, "T", got.Title)
	assert.Equal(t, []string{"AI"}, got.Tags)
}

func TestUpdate_KeepsLifecycleFields(t *testing.T) {
	s := newTestStore()
	article, _ := s.Create(models.GenerationRequest{Topic: "Edit me"})
	done, _ := s.ApplySuccess(article.ID, success(1, "T"))
	s.TogglePublish(article.ID)

	edited, err := s.Update(article.ID, models.ArticleEdit{Title: "New", Description: "ND", Content: "NC"})
	require.NoError(t, err)

	assert.Equal(t, "New", edited.Title)
	assert.Equal(t, "ND", edited.Description)
	assert.Equal(t, "NC", edited.Content)
	assert.Equal(t, []string{"AI"}, edited.Tags, "nil tags keep existing")
	assert.Equal(t, done.Slug, edited.Slug)
	assert.Equal(t, models.ArticleStatusDone, edited.Status)
	assert.True(t, edited.IsPublished)

	edited, err = s.Update(article.ID, models.ArticleEdit{Title: "New", Tags: []string{}})
	require.NoError(t, err)
	assert.Empty(t, edited.Tags)
}

func TestRegeneration(t *testing.T) {
	s := newTestStore()
	article, _ := s.Create(models.GenerationRequest{Topic: "Regen"})

	_, err := s.BeginRegeneration(article.ID, nil)
	assert.ErrorIs(t, err, ErrGenerationActive, "cannot regenerate while PROCESSING")

	s.ApplyFailure(article.ID, models.GenerationFailurePatch{Attempt: 1, Reason: "boom"})

	regen, err := s.BeginRegeneration(article.ID, &models.GenerationRequest{Topic: "  New topic "})
	require.NoError(t, err)
	assert.Equal(t, models.ArticleStatusProcessing, regen.Status)
	assert.Equal(t, 2, regen.Attempt)
	assert.Equal(t, "New topic", regen.Topic)
	assert.Empty(t, regen.ErrorMessage)

	// A stale completion from the first attempt cannot land
	_, err = s.ApplySuccess(article.ID, success(1, "stale"))
	assert.ErrorIs(t, err, ErrInvalidTransition)

	done, err := s.ApplySuccess(article.ID, success(2, "fresh"))
	require.NoError(t, err)
	assert.Equal(t, "new-topic", done.Slug)
	assert.Equal(t, "fresh", done.Title)

	_, err = s.BeginRegeneration(article.ID, &models.GenerationRequest{Topic: " "})
	assert.ErrorIs(t, err, ErrEmptyTopic)
}

func TestRegeneration_KeepsOwnSlug(t *testing.T) {
	s := newTestStore()
	article, _ := s.Create(models.GenerationRequest{Topic: "Same"})
	s.ApplySuccess(article.ID, success(1, "T"))

	s.BeginRegeneration(article.ID, nil)
	done, err := s.ApplySuccess(article.ID, success(2, "T2"))
	require.NoError(t, err)
	assert.Equal(t, "same", done.Slug, "an article never collides with itself")
}

func TestDelete_ThenCompletionIsNotFound(t *testing.T) {
	s := newTestStore()
	article, _ := s.Create(models.GenerationRequest{Topic: "Gone"})

	require.NoError(t, s.Delete(article.ID))
	_, err := s.ApplySuccess(article.ID, success(1, "T"))
	assert.True(t, IsNotFound(err))
	assert.Empty(t, s.List())

	next, _ := s.Create(models.GenerationRequest{Topic: "Next"})
	assert.Greater(t, next.ID, article.ID, "ids are never reused")
}

func TestDelete_FreesSlug(t *testing.T) {
	s := newTestStore()
	a, _ := s.Create(models.GenerationRequest{Topic: "Go"})
	s.ApplySuccess(a.ID, success(1, "T"))
	require.NoError(t, s.Delete(a.ID))

	b, _ := s.Create(models.GenerationRequest{Topic: "Go"})
	done, err := s.ApplySuccess(b.ID, success(1, "T"))
	require.NoError(t, err)
	assert.Equal(t, "go", done.Slug)
}

func TestCounts(t *testing.T) {
	s := newTestStore()
	a, _ := s.Create(models.GenerationRequest{Topic: "A"})
	b, _ := s.Create(models.GenerationRequest{Topic: "B"})
	s.Create(models.GenerationRequest{Topic: "C"})
	s.ApplySuccess(a.ID, success(1, "T"))
	s.ApplyFailure(b.ID, models.GenerationFailurePatch{Attempt: 1})
	s.TogglePublish(a.ID)

	assert.Equal(t, Counts{Total: 3, Processing: 1, Done: 1, Error: 1, Published: 1}, s.Counts())
}

func TestConcurrentCreateAndComplete(t *testing.T) {
	s := newTestStore()
	const n = 50

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := s.Create(models.GenerationRequest{Topic: "Same topic"})
			if err != nil {
				t.Error(err)
				return
			}
			if _, err := s.ApplySuccess(a.ID, success(1, "T")); err != nil {
				t.Error(err)
			}
			s.List()
		}()
	}
	wg.Wait()

	list := s.List()
	require.Len(t, list, n)

	slugs := make(map[string]bool, n)
	ids := make(map[int64]bool, n)
	for i, a := range list {
		assert.False(t, slugs[a.Slug], "duplicate slug %s", a.Slug)
		assert.False(t, ids[a.ID], "duplicate id %d", a.ID)
		slugs[a.Slug] = true
		ids[a.ID] = true
		if i > 0 {
			assert.Less(t, a.ID, list[i-1].ID)
		}
	}
}

func TestWriteThrough(t *testing.T) {
	repo := mocks.NewMockArticleRepository()
	s := newTestStore(WithRepository(repo))

	a, _ := s.Create(models.GenerationRequest{Topic: "Persist"})
	s.ApplySuccess(a.ID, success(1, "T"))
	s.TogglePublish(a.ID)
	b, _ := s.Create(models.GenerationRequest{Topic: "Drop"})
	require.NoError(t, s.Delete(b.ID))

	s.Close()

	saved := repo.Get(a.ID)
	require.NotNil(t, saved)
	assert.Equal(t, models.ArticleStatusDone, saved.Status)
	assert.True(t, saved.IsPublished)
	assert.Equal(t, "persist", saved.Slug)
	assert.Nil(t, repo.Get(b.ID))
	assert.Equal(t, 1, repo.DeleteCalls)
}

func TestWriteThrough_SlowRepositoryDoesNotBlockStore(t *testing.T) {
	release := make(chan struct{})
	var (
		mu        sync.Mutex
		saved     int
		published bool
	)
	repo := mocks.NewMockArticleRepository()
	repo.SaveFunc = func(ctx context.Context, article *models.Article) error {
		<-release
		mu.Lock()
		saved++
		published = article.IsPublished
		mu.Unlock()
		return nil
	}
	s := newTestStore(WithRepository(repo))

	a, err := s.Create(models.GenerationRequest{Topic: "Backlog"})
	require.NoError(t, err)

	const toggles = 2001
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for i := 0; i < toggles; i++ {
			s.TogglePublish(a.ID)
		}
	}()

	select {
	case <-writerDone:
	case <-time.After(2 * time.Second):
		t.Fatal("mutations blocked behind a stalled repository")
	}

	listed := make(chan int)
	go func() { listed <- len(s.List()) }()
	select {
	case n := <-listed:
		assert.Equal(t, 1, n)
	case <-time.After(time.Second):
		t.Fatal("List blocked behind a stalled repository")
	}

	close(release)
	s.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, toggles+1, saved, "every snapshot is written once the repository recovers")
	assert.True(t, published, "snapshots are written in commit order")
}

func TestWriteThrough_RepositoryErrorsDoNotFailMutations(t *testing.T) {
	repo := mocks.NewMockArticleRepository()
	repo.SaveError = errors.New("connection refused")
	s := newTestStore(WithRepository(repo))

	a, err := s.Create(models.GenerationRequest{Topic: "Resilient"})
	require.NoError(t, err)
	_, err = s.ApplySuccess(a.ID, success(1, "T"))
	require.NoError(t, err)
	s.Close()

	got, err := s.Get(a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ArticleStatusDone, got.Status)
}

func TestLoadAndRecover(t *testing.T) {
	created := time.Date(2024, 8, 1, 10, 0, 0, 0, time.UTC)
	repo := mocks.NewMockArticleRepository()
	repo.Put(
		&models.Article{ID: 3, Slug: "go", Topic: "Go", Status: models.ArticleStatusDone, Attempt: 1, CreatedAt: created},
		&models.Article{ID: 7, Slug: "temp-abcd1234", Topic: "Rust", Status: models.ArticleStatusProcessing, Attempt: 1, CreatedAt: created.Add(time.Minute)},
		&models.Article{ID: 5, Slug: "zig", Topic: "Zig", Status: models.ArticleStatusError, Attempt: 2, CreatedAt: created.Add(time.Minute)},
	)

	s := newTestStore(WithRepository(repo))
	require.NoError(t, s.Load(context.Background()))

	list := s.List()
	require.Len(t, list, 3)
	assert.Equal(t, []int64{7, 5, 3}, []int64{list[0].ID, list[1].ID, list[2].ID})

	recovered := s.RecoverInterrupted()
	assert.Equal(t, []int64{7}, recovered)
	got, _ := s.Get(7)
	assert.Equal(t, models.ArticleStatusError, got.Status)
	assert.Equal(t, interruptedFailureReason, got.ErrorMessage)

	next, err := s.Create(models.GenerationRequest{Topic: "Go"})
	require.NoError(t, err)
	assert.Equal(t, int64(8), next.ID)

	done, err := s.ApplySuccess(next.ID, success(1, "T"))
	require.NoError(t, err)
	assert.Equal(t, "go-8", done.Slug, "loaded slugs still count for collisions")

	s.Close()
	assert.Equal(t, models.ArticleStatusError, repo.Get(7).Status)
}

func TestLoad_Error(t *testing.T) {
	repo := mocks.NewMockArticleRepository()
	repo.LoadError = errors.New("relation does not exist")
	s := newTestStore(WithRepository(repo))
	defer s.Close()

	assert.Error(t, s.Load(context.Background()))
}

func TestLoad_WithoutRepositoryIsNoop(t *testing.T) {
	s := newTestStore()
	assert.NoError(t, s.Load(context.Background()))
	s.Close()
	s.Close()
}
