// Package generator adapts external content generators to a single
// interface used by the generation service.
package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/article-generation-api/internal/models"
)

// ErrMalformedOutput indicates the generator answered with unusable content
var ErrMalformedOutput = errors.New("malformed generator output")

// Input is everything a generator gets for one article
type Input struct {
	Topic                string
	AdditionalContextURL string
	Images               []models.ImageReference
}

// Output is the generated article content
type Output struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Content     string   `json:"content"`
	Tags        []string `json:"tags"`
}

// Generator turns a topic into article content. Implementations may be
// slow and must honour ctx cancellation where they can.
type Generator interface {
	Generate(ctx context.Context, in Input) (Output, error)
}

// Template is a local generator that fills fixed templates with the
// topic. It never fails except on cancellation.
type Template struct {
	// Delay simulates generator latency
	Delay time.Duration
}

// NewTemplate creates a template generator
func NewTemplate(delay time.Duration) *Template {
	return &Template{Delay: delay}
}

// Generate implements Generator
func (g *Template) Generate(ctx context.Context, in Input) (Output, error) {
	if g.Delay > 0 {
		timer := time.NewTimer(g.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Output{}, ctx.Err()
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}

	topic := strings.TrimSpace(in.Topic)
	var content strings.Builder
	fmt.Fprintf(&content, "Content of the article about %s...", topic)
	if in.AdditionalContextURL != "" {
		fmt.Fprintf(&content, "\n\nReference: %s", in.AdditionalContextURL)
	}
	for _, img := range in.Images {
		fmt.Fprintf(&content, "\n\n![%s](%s)", img.OriginalName, img.Filename)
	}

	return Output{
		Title:       "Article on: " + topic,
		Description: fmt.Sprintf("An automatically generated article about %s...", strings.ToLower(topic)),
		Content:     content.String(),
		Tags:        []string{topic},
	}, nil
}

// normalizeTags trims tags, drops blanks and keeps the first occurrence
// of each tag compared case-insensitively.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	return out
}
