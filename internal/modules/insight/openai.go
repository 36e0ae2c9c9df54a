// README: OpenAI chat completions provider over resty.
package insight

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	openAIBaseURL = "https://api.openai.com"
	openAIModel   = "gpt-4o-mini"
)

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// OpenAIProvider talks to the chat completions endpoint in JSON mode.
type OpenAIProvider struct {
	http  *resty.Client
	model string
}

// NewOpenAIProvider targets api.openai.com unless baseURL is set.
func NewOpenAIProvider(apiKey, baseURL string) *OpenAIProvider {
	if baseURL == "" {
		baseURL = openAIBaseURL
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30*time.Second).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &OpenAIProvider{http: client, model: openAIModel}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Complete(ctx context.Context, prompt Prompt) (string, error) {
	system := "You are the analytics engine of a blood donation network. Answer with a single JSON object."
	if len(prompt.Fields) > 0 {
		system += " Use exactly these string keys: " + strings.Join(prompt.Fields, ", ") + "."
	}
	body := chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt.Text},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	var cr chatResponse
	resp, err := p.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&cr).
		SetError(&cr).
		Post("/v1/chat/completions")
	if err != nil {
		return "", fmt.Errorf("openai: do request: %w", err)
	}
	if cr.Error != nil {
		return "", fmt.Errorf("openai: api error (status %d): %s", resp.StatusCode(), cr.Error.Message)
	}
	if resp.IsError() {
		return "", fmt.Errorf("openai: unexpected status %d", resp.StatusCode())
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("openai: API returned empty choices array (raw: %s)", resp.String())
	}
	return cr.Choices[0].Message.Content, nil
}
