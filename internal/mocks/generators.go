package mocks

import (
	"context"
	"sync"

	"github.com/article-generation-api/internal/generator"
)

// MockGenerator is a mock implementation of generator.Generator.
// GenerateFunc decides the outcome; when nil the generator echoes the
// topic back as content.
type MockGenerator struct {
	mu           sync.Mutex
	GenerateFunc func(ctx context.Context, in generator.Input) (generator.Output, error)
	Calls        []generator.Input
}

func (m *MockGenerator) Generate(ctx context.Context, in generator.Input) (generator.Output, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, in)
	fn := m.GenerateFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, in)
	}
	return generator.Output{
		Title:       "Article on: " + in.Topic,
		Description: "About " + in.Topic,
		Content:     "# " + in.Topic,
		Tags:        []string{in.Topic},
	}, nil
}

// CallCount returns how many generations were started
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// GatedGenerator blocks every call until Release is invoked for its
// topic, so tests control the order in which generations resolve.
type GatedGenerator struct {
	mu      sync.Mutex
	gates   map[string]chan result
	Started chan string
}

type result struct {
	out generator.Output
	err error
}

func NewGatedGenerator() *GatedGenerator {
	return &GatedGenerator{
		gates:   make(map[string]chan result),
		Started: make(chan string, 64),
	}
}

func (g *GatedGenerator) gate(topic string) chan result {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[topic]
	if !ok {
		ch = make(chan result, 1)
		g.gates[topic] = ch
	}
	return ch
}

func (g *GatedGenerator) Generate(ctx context.Context, in generator.Input) (generator.Output, error) {
	ch := g.gate(in.Topic)
	g.Started <- in.Topic

	select {
	case <-ctx.Done():
		return generator.Output{}, ctx.Err()
	case r := <-ch:
		return r.out, r.err
	}
}

// Release resolves the pending generation for topic
func (g *GatedGenerator) Release(topic string, out generator.Output, err error) {
	g.gate(topic) <- result{out: out, err: err}
}
