package validation

import (
	"strings"
	"testing"

	"github.com/article-generation-api/internal/models"
)

func TestValidateGenerationRequest(t *testing.T) {
	validator := NewValidator()

	tests := []struct {
		name       string
		req        *models.GenerationRequest
		wantErrors int
		wantFields []string
	}{
		{
			name:       "valid topic only",
			req:        &models.GenerationRequest{Topic: "AI Ethics"},
			wantErrors: 0,
		},
		{
			name: "valid with context and images",
			req: &models.GenerationRequest{
				Topic:                "Go",
				AdditionalContextURL: "https://go.dev/blog",
				Images:               []models.ImageReference{{Filename: "1-a.png", OriginalName: "a.png"}},
			},
			wantErrors: 0,
		},
		{
			name:       "nil request",
			req:        nil,
			wantErrors: 1,
			wantFields: []string{"topic"},
		},
		{
			name:       "empty topic",
			req:        &models.GenerationRequest{Topic: ""},
			wantErrors: 1,
			wantFields: []string{"topic"},
		},
		{
			name:       "whitespace-only topic",
			req:        &models.GenerationRequest{Topic: "   \t"},
			wantErrors: 1,
			wantFields: []string{"topic"},
		},
		{
			name:       "topic too long",
			req:        &models.GenerationRequest{Topic: strings.Repeat("a", 501)},
			wantErrors: 1,
			wantFields: []string{"topic"},
		},
		{
			name:       "context url not a url",
			req:        &models.GenerationRequest{Topic: "Go", AdditionalContextURL: "not a url"},
			wantErrors: 1,
			wantFields: []string{"additional_context_url"},
		},
		{
			name:       "context url wrong scheme",
			req:        &models.GenerationRequest{Topic: "Go", AdditionalContextURL: "ftp://example.com/file"},
			wantErrors: 1,
			wantFields: []string{"additional_context_url"},
		},
		{
			name:       "image without filename",
			req:        &models.GenerationRequest{Topic: "Go", Images: []models.ImageReference{{OriginalName: "a.png"}}},
			wantErrors: 1,
			wantFields: []string{"images[0].filename"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errors := validator.ValidateGenerationRequest(tt.req)
			if len(errors) != tt.wantErrors {
				t.Fatalf("ValidateGenerationRequest() got %d errors, want %d: %+v", len(errors), tt.wantErrors, errors)
			}
			assertFields(t, errors, tt.wantFields)
		})
	}
}

func TestValidateEdit(t *testing.T) {
	validator := NewValidator()

	tests := []struct {
		name       string
		edit       *models.ArticleEdit
		wantErrors int
		wantFields []string
	}{
		{
			name:       "valid edit",
			edit:       &models.ArticleEdit{Title: "New", Content: "Body", Tags: []string{"go", "ai"}},
			wantErrors: 0,
		},
		{
			name:       "empty fields are allowed",
			edit:       &models.ArticleEdit{},
			wantErrors: 0,
		},
		{
			name:       "nil edit",
			edit:       nil,
			wantErrors: 1,
			wantFields: []string{"body"},
		},
		{
			name:       "blank tag",
			edit:       &models.ArticleEdit{Tags: []string{"go", "  "}},
			wantErrors: 1,
			wantFields: []string{"tags[1]"},
		},
		{
			name:       "duplicate tag ignoring case",
			edit:       &models.ArticleEdit{Tags: []string{"Go", "go"}},
			wantErrors: 1,
			wantFields: []string{"tags[1]"},
		},
		{
			name:       "tag too long",
			edit:       &models.ArticleEdit{Tags: []string{strings.Repeat("x", MaxTagLength+1)}},
			wantErrors: 1,
			wantFields: []string{"tags[0]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errors := validator.ValidateEdit(tt.edit)
			if len(errors) != tt.wantErrors {
				t.Fatalf("ValidateEdit() got %d errors, want %d: %+v", len(errors), tt.wantErrors, errors)
			}
			assertFields(t, errors, tt.wantFields)
		})
	}
}

func TestValidationErrorMessages(t *testing.T) {
	validator := NewValidator()

	errors := validator.ValidateGenerationRequest(&models.GenerationRequest{Topic: " "})
	if len(errors) != 1 {
		t.Fatalf("got %d errors, want 1", len(errors))
	}
	if errors[0].Message != "topic is required" {
		t.Errorf("Message = %q, want %q", errors[0].Message, "topic is required")
	}
}

func assertFields(t *testing.T, errors []ValidationError, want []string) {
	t.Helper()
	for _, field := range want {
		found := false
		for _, e := range errors {
			if e.Field == field {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected error for field %q, got %+v", field, errors)
		}
	}
}
