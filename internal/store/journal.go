package store

import (
	"context"
	"sync"
	"time"

	"github.com/article-generation-api/internal/models"
	"github.com/article-generation-api/internal/repository"
	"github.com/rs/zerolog"
)

const journalWriteTimeout = 5 * time.Second

// journalEntry is one write to mirror: a snapshot to upsert, or a delete
type journalEntry struct {
	article  *models.Article
	deleteID int64
}

// journal applies store mutations to the repository in the order they
// were committed. Entries are appended while the store lock is held and
// written by a single goroutine. The queue is unbounded, so enqueueing
// never waits on repository I/O.
type journal struct {
	repo repository.ArticleRepository
	log  zerolog.Logger

	mu      sync.Mutex
	pending []journalEntry
	closed  bool
	wake    chan struct{}
	done    chan struct{}
}

func newJournal(repo repository.ArticleRepository, log zerolog.Logger) *journal {
	j := &journal{
		repo: repo,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
		log:  log.With().Str("component", "journal").Logger(),
	}
	go j.run()
	return j
}

// enqueue appends an entry and returns immediately
func (j *journal) enqueue(entry journalEntry) {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return
	}
	j.pending = append(j.pending, entry)
	j.mu.Unlock()

	select {
	case j.wake <- struct{}{}:
	default:
	}
}

func (j *journal) run() {
	defer close(j.done)

	for {
		j.mu.Lock()
		batch := j.pending
		j.pending = nil
		closed := j.closed
		j.mu.Unlock()

		for _, entry := range batch {
			j.write(entry)
		}

		if len(batch) == 0 {
			if closed {
				return
			}
			<-j.wake
		}
	}
}

func (j *journal) write(entry journalEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), journalWriteTimeout)
	defer cancel()

	if entry.article != nil {
		if err := j.repo.Save(ctx, entry.article); err != nil {
			j.log.Error().Err(err).Int64("article_id", entry.article.ID).Msg("Failed to persist article")
		}
		return
	}
	if err := j.repo.Delete(ctx, entry.deleteID); err != nil {
		j.log.Error().Err(err).Int64("article_id", entry.deleteID).Msg("Failed to persist article deletion")
	}
}

// close stops accepting entries and waits until the backlog is written
func (j *journal) close() {
	j.mu.Lock()
	j.closed = true
	j.mu.Unlock()

	select {
	case j.wake <- struct{}{}:
	default:
	}
	<-j.done
}
