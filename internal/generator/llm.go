package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/article-generation-api/internal/config"
	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const llmSystemInstructions = `You write blog articles for a content team.
Answer with a single JSON object and nothing else, using exactly these keys:
  "title": a concise headline,
  "description": one or two sentences summarizing the article,
  "content": the full article body in Markdown,
  "tags": an array of 1 to 5 short topic tags.`

// LLM generates articles through an OpenAI-compatible chat model
type LLM struct {
	model       llms.Model
	temperature float64
	maxTokens   int
	log         zerolog.Logger
}

// NewLLM creates a generator backed by the configured OpenAI-compatible endpoint
func NewLLM(cfg config.LLMConfig, log zerolog.Logger) (*LLM, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("LLM_API_KEY is required for the llm generator")
	}

	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm client: %w", err)
	}

	return NewLLMWithModel(model, cfg.Temperature, cfg.MaxTokens, log), nil
}

// NewLLMWithModel wraps an existing langchaingo model
func NewLLMWithModel(model llms.Model, temperature float64, maxTokens int, log zerolog.Logger) *LLM {
	return &LLM{
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		log:         log.With().Str("component", "llm_generator").Logger(),
	}
}

// Generate implements Generator
func (g *LLM) Generate(ctx context.Context, in Input) (Output, error) {
	prompt := buildPrompt(in)
	g.log.Debug().Str("topic", in.Topic).Int("prompt_len", len(prompt)).Msg("Calling llm")

	opts := []llms.CallOption{
		llms.WithTemperature(g.temperature),
		llms.WithJSONMode(),
	}
	if g.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(g.maxTokens))
	}

	raw, err := llms.GenerateFromSinglePrompt(ctx, g.model, prompt, opts...)
	if err != nil {
		return Output{}, fmt.Errorf("llm call failed: %w", err)
	}

	out, err := parseOutput(raw)
	if err != nil {
		g.log.Warn().Err(err).Str("topic", in.Topic).Msg("Unusable llm response")
		return Output{}, err
	}
	return out, nil
}

func buildPrompt(in Input) string {
	var b strings.Builder
	b.WriteString(llmSystemInstructions)
	b.WriteString("\n\nTopic: ")
	b.WriteString(strings.TrimSpace(in.Topic))
	if in.AdditionalContextURL != "" {
		b.WriteString("\nUse this page as additional context: ")
		b.WriteString(in.AdditionalContextURL)
	}
	if len(in.Images) > 0 {
		b.WriteString("\nThe article has these attached images; reference them in the Markdown as ![original name](filename):")
		for _, img := range in.Images {
			fmt.Fprintf(&b, "\n- %s (filename %s)", img.OriginalName, img.Filename)
		}
	}
	return b.String()
}

// parseOutput extracts the JSON object from a model answer, tolerating
// code fences and surrounding prose.
func parseOutput(raw string) (Output, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return Output{}, fmt.Errorf("%w: no JSON object in response", ErrMalformedOutput)
	}

	var out Output
	if err := json.Unmarshal([]byte(raw[start:end+1]), &out); err != nil {
		return Output{}, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	out.Title = strings.TrimSpace(out.Title)
	out.Description = strings.TrimSpace(out.Description)
	out.Content = strings.TrimSpace(out.Content)
	out.Tags = normalizeTags(out.Tags)

	if out.Title == "" || out.Content == "" {
		return Output{}, fmt.Errorf("%w: title and content are required", ErrMalformedOutput)
	}
	return out, nil
}
