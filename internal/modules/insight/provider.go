// README: LLM provider interface and the Gemini JSON-mode implementation.
package insight

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const geminiModel = "gemini-2.0-flash"

// Prompt is one structured question. Fields lists the string keys the JSON
// answer must carry.
type Prompt struct {
	Text   string
	Fields []string
}

// Provider answers a prompt with raw JSON text.
type Provider interface {
	Name() string
	Complete(ctx context.Context, p Prompt) (string, error)
}

// GeminiProvider implements Provider on Google's Gemini models in JSON mode.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider builds a client once; Close releases it.
func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini: missing api key")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &GeminiProvider{client: client, model: geminiModel}, nil
}

func (p *GeminiProvider) Close() {
	p.client.Close()
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) Complete(ctx context.Context, prompt Prompt) (string, error) {
	model := p.client.GenerativeModel(p.model)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = objectSchema(prompt.Fields)
	model.SetTemperature(0.4)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt.Text))
	if err != nil {
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini: API returned empty candidates")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("gemini: API returned empty text parts")
	}
	return text.String(), nil
}

func objectSchema(fields []string) *genai.Schema {
	if len(fields) == 0 {
		return nil
	}
	props := make(map[string]*genai.Schema, len(fields))
	for _, f := range fields {
		props[f] = &genai.Schema{Type: genai.TypeString}
	}
	return &genai.Schema{Type: genai.TypeObject, Properties: props, Required: fields}
}

// cleanJSONString removes markdown code fences if present (e.g. ```json ... ```).
func cleanJSONString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.TrimPrefix(input, "```json")
	input = strings.TrimPrefix(input, "```")
	input = strings.TrimSuffix(input, "```")
	return strings.TrimSpace(input)
}
