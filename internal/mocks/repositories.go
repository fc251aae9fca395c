package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/article-generation-api/internal/models"
)

// MockArticleRepository is a mock implementation of ArticleRepository.
// It is safe for concurrent use since the store journal writes from its
// own goroutine.
type MockArticleRepository struct {
	mu          sync.Mutex
	Articles    map[int64]*models.Article
	SaveError   error
	DeleteError error
	LoadError   error
	SaveCalls   int
	DeleteCalls int
	SaveFunc    func(ctx context.Context, article *models.Article) error
}

func NewMockArticleRepository() *MockArticleRepository {
	return &MockArticleRepository{
		Articles: make(map[int64]*models.Article),
	}
}

func (m *MockArticleRepository) LoadAll(ctx context.Context) ([]*models.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.LoadError != nil {
		return nil, m.LoadError
	}
	out := make([]*models.Article, 0, len(m.Articles))
	for _, a := range m.Articles {
		out = append(out, a.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockArticleRepository) Save(ctx context.Context, article *models.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveCalls++
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, article)
	}
	if m.SaveError != nil {
		return m.SaveError
	}
	m.Articles[article.ID] = article.Clone()
	return nil
}

func (m *MockArticleRepository) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DeleteCalls++
	if m.DeleteError != nil {
		return m.DeleteError
	}
	delete(m.Articles, id)
	return nil
}

// Get returns a copy of the stored article, or nil
func (m *MockArticleRepository) Get(id int64) *models.Article {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Articles[id].Clone()
}

// Put seeds the repository
func (m *MockArticleRepository) Put(articles ...*models.Article) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range articles {
		m.Articles[a.ID] = a.Clone()
	}
}
