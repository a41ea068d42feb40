package oracle

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"BloomFeed/internal/config"
	"BloomFeed/internal/domain"
)

// TextClient is the narrow oracle transport the classifier depends on,
// kept small so tests can substitute a scripted fake.
type TextClient interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// GeminiClient talks to the Gemini API with a fixed rating rubric and a
// structured array response schema.
type GeminiClient struct {
	client *genai.Client
	model  string
}

var _ TextClient = (*GeminiClient)(nil)

var systemInstruction = fmt.Sprintf(`
You are a news curator for a publication dedicated to constructive,
solutions-oriented journalism. You will receive a numbered list of news
items, each with a title, an excerpt and a source name.

For EVERY item, in the SAME ORDER as the input, produce one JSON object:

- bloom_score: integer 1-5 rating how constructive the item is.
  1 = alarming or hopeless framing, no agency offered.
  2 = mostly negative, problem-focused.
  3 = neutral reporting, neither alarming nor uplifting.
  4 = positive development or progress clearly described.
  5 = strongly constructive: a problem plus a working solution or
      measurable improvement.
- category: exactly one of "%s".
  Use "general" only when nothing else fits.
- is_weird: true when the item is a curiosity or wonder story (odd
  discoveries, delightful strangeness) rather than conventional news.
- summary: one or two plain sentences restating the item neutrally.
- tags: 3 to 5 short lowercase topic tags.
- confidence: your confidence in this rating, 0.0 to 1.0.

Respond with a JSON array only. One object per input item, input order
preserved. Never merge, drop or reorder items.`,
	strings.Join(domain.Categories, `", "`))

// NewGeminiClient builds a client from configuration. The API key is
// required; daemon and run-once modes both fail fast without it.
func NewGeminiClient(ctx context.Context, cfg config.OracleConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("oracle API key is required (set GEMINI_API_KEY)")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiClient{client: client, model: cfg.Model}, nil
}

// GenerateJSON sends one chunk prompt and returns the raw response text.
func (c *GeminiClient) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		{Parts: []*genai.Part{{Text: systemInstruction}}, Role: "system"},
		{Parts: []*genai.Part{{Text: prompt}}, Role: "user"},
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema(),
	})
	if err != nil {
		return "", fmt.Errorf("gemini API call failed: %w", err)
	}

	return resp.Text(), nil
}

func responseSchema() *genai.Schema {
	verdictSchema := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"bloom_score": {Type: genai.TypeInteger, Description: "Constructiveness rating, 1-5."},
			"category":    {Type: genai.TypeString, Description: "One of the fixed category labels."},
			"is_weird":    {Type: genai.TypeBoolean, Description: "Curiosity/wonder flag."},
			"summary":     {Type: genai.TypeString, Description: "One or two neutral sentences."},
			"tags":        {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			"confidence":  {Type: genai.TypeNumber, Description: "Rating confidence, 0.0-1.0."},
		},
		Required: []string{"bloom_score", "category", "is_weird", "summary", "tags", "confidence"},
	}

	return &genai.Schema{
		Type:  genai.TypeArray,
		Items: verdictSchema,
	}
}
