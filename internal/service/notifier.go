package service

import (
	"context"
	"sync"
	"time"

	"github.com/article-generation-api/internal/events"
	"github.com/article-generation-api/internal/models"
	"github.com/rs/zerolog"
)

const (
	publishTimeout     = 2 * time.Second
	notifierBufferSize = 256
)

// notifier publishes lifecycle events from a single background goroutine.
// Publishing is best effort: a slow or broken broker never delays or
// fails an article operation, and events are dropped when the buffer is full.
type notifier struct {
	publisher events.Publisher
	queue     chan events.Event
	done      chan struct{}
	log       zerolog.Logger

	mu     sync.Mutex
	closed bool
}

func newNotifier(publisher events.Publisher, log zerolog.Logger) *notifier {
	n := &notifier{
		publisher: publisher,
		queue:     make(chan events.Event, notifierBufferSize),
		done:      make(chan struct{}),
		log:       log.With().Str("component", "notifier").Logger(),
	}
	go n.run()
	return n
}

// notify queues an event without blocking
func (n *notifier) notify(t events.EventType, article *models.Article) {
	event := events.NewEvent(t, article)

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}

	select {
	case n.queue <- event:
	default:
		n.log.Warn().Str("event", string(t)).Int64("article_id", article.ID).Msg("Event buffer full, event dropped")
	}
}

func (n *notifier) run() {
	defer close(n.done)

	for event := range n.queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		if err := n.publisher.Publish(ctx, event); err != nil {
			n.log.Warn().Err(err).Str("event", string(event.Type)).Int64("article_id", event.ArticleID).Msg("Failed to publish event")
		}
		cancel()
	}
}

// close stops accepting events and waits for the backlog to be published
// or for ctx to end. A second call is a no-op.
func (n *notifier) close(ctx context.Context) error {
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.queue)
	}
	n.mu.Unlock()

	select {
	case <-n.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
