package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"portfolio-mapper-backend/internal/config"
	"portfolio-mapper-backend/internal/llm"
)

// Client implements llm.Client using the Google Gemini API. Every call
// requests a JSON-only response MIME type.
type Client struct {
	client *genai.Client
	model  string
	safety []*genai.SafetySetting
}

// NewClient constructs a Gemini client from catalog settings. A missing
// API key or an unrecognized safety setting is a configuration error.
func NewClient(ctx context.Context, apiKey string, settings config.GeminiSettings) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	model := strings.TrimSpace(settings.ModelName)
	if model == "" {
		return nil, fmt.Errorf("gemini model_name is required")
	}

	safety, err := safetySettings(settings.SafetySettings)
	if err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("initialize gemini client: %w", err)
	}
	return &Client{
		client: client,
		model:  model,
		safety: safety,
	}, nil
}

// GenerateJSON sends the prompt and returns the raw response text.
// Provider and network failures, including context deadline expiry, are
// wrapped as llm.TransportError.
func (c *Client) GenerateJSON(ctx context.Context, prompt string, cfg llm.GenerationConfig) (string, error) {
	model := c.client.GenerativeModel(c.model)
	model.SafetySettings = c.safety
	model.ResponseMIMEType = "application/json"
	if cfg.Temperature != nil {
		model.SetTemperature(*cfg.Temperature)
	}
	if cfg.TopP != nil {
		model.SetTopP(*cfg.TopP)
	}
	if cfg.TopK != nil {
		model.SetTopK(*cfg.TopK)
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", &llm.TransportError{Err: err}
	}
	text := responseText(resp)
	if text == "" {
		return "", &llm.TransportError{Err: fmt.Errorf("gemini returned no usable candidate")}
	}
	return text, nil
}

// Close releases the underlying API connection.
func (c *Client) Close() error {
	return c.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return strings.TrimSpace(b.String())
}

func safetySettings(settings []config.SafetySetting) ([]*genai.SafetySetting, error) {
	out := make([]*genai.SafetySetting, 0, len(settings))
	for _, s := range settings {
		category, err := harmCategory(s.Category)
		if err != nil {
			return nil, err
		}
		threshold, err := harmThreshold(s.Threshold)
		if err != nil {
			return nil, err
		}
		out = append(out, &genai.SafetySetting{
			Category:  category,
			Threshold: threshold,
		})
	}
	return out, nil
}

func harmCategory(raw string) (genai.HarmCategory, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "HARM_CATEGORY_HARASSMENT":
		return genai.HarmCategoryHarassment, nil
	case "HARM_CATEGORY_HATE_SPEECH":
		return genai.HarmCategoryHateSpeech, nil
	case "HARM_CATEGORY_SEXUALLY_EXPLICIT":
		return genai.HarmCategorySexuallyExplicit, nil
	case "HARM_CATEGORY_DANGEROUS_CONTENT":
		return genai.HarmCategoryDangerousContent, nil
	default:
		return 0, fmt.Errorf("unknown gemini safety category %q", raw)
	}
}

func harmThreshold(raw string) (genai.HarmBlockThreshold, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "BLOCK_NONE":
		return genai.HarmBlockNone, nil
	case "BLOCK_LOW_AND_ABOVE":
		return genai.HarmBlockLowAndAbove, nil
	case "BLOCK_MEDIUM_AND_ABOVE":
		return genai.HarmBlockMediumAndAbove, nil
	case "BLOCK_ONLY_HIGH":
		return genai.HarmBlockOnlyHigh, nil
	default:
		return 0, fmt.Errorf("unknown gemini safety threshold %q", raw)
	}
}

var _ llm.Client = (*Client)(nil)
