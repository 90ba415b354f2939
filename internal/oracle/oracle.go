// Package oracle adapts Gemini into the two black-box collaborators the
// dialogue manager needs: the NLU intent/slot extractor and the NLG
// response renderer.
package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/maazq/expensebot/internal/domain"
)

// DefaultModelName is the Gemini model used for both extraction and
// rendering.
const DefaultModelName = "gemini-2.0-flash"

// callTimeout bounds each model call; on expiry the caller sees a plain
// error and the dialogue layer degrades.
const callTimeout = 20 * time.Second

// Client wraps a genai client for the expense-bot prompts.
type Client struct {
	client *genai.Client
	model  string
	log    zerolog.Logger
}

// NewClient creates the Gemini-backed oracle. Credentials come from the
// environment (GEMINI_API_KEY or application default credentials).
func NewClient(ctx context.Context, model string, log zerolog.Logger) (*Client, error) {
	if model == "" {
		model = DefaultModelName
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewClient: create genai client: %w", err)
	}
	return &Client{client: c, model: model, log: log}, nil
}

// Extract implements domain.Oracle. Unparseable model output degrades to a
// clarification extraction; only transport-level failures surface as
// errors.
func (c *Client) Extract(ctx context.Context, req domain.ExtractRequest) (*domain.Extraction, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	prompt := buildExtractionPrompt(req)
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("Extract: generate content: %w", err)
	}

	raw := resp.Text()
	if raw == "" {
		c.log.Warn().Msg("Extraction model returned empty response")
		return &domain.Extraction{Intent: domain.IntentClarification}, nil
	}

	ext, err := decodeExtraction(raw)
	if err != nil {
		c.log.Warn().Err(err).Str("raw", raw).Msg("Extraction output unparseable, degrading to clarification")
		return &domain.Extraction{Intent: domain.IntentClarification}, nil
	}
	return ext, nil
}

// Render implements domain.Renderer: it rewrites the deterministic reply
// into conversational prose. Errors propagate so the orchestrator can fall
// back to the deterministic text.
func (c *Client) Render(ctx context.Context, intent domain.Intent, result *domain.OperationResult) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	prompt := buildRenderPrompt(intent, result)
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("Render: generate content: %w", err)
	}

	text := cleanRenderedText(resp.Text())
	if text == "" {
		return "", fmt.Errorf("Render: empty response from model")
	}
	return text, nil
}
