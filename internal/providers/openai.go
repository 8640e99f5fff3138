package providers

import (
	"context"
	"fmt"
	"net/http"
)

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// OpenAICompatible calls a /chat/completions endpoint, as served by Groq.
type OpenAICompatible struct {
	httpBackend
}

func NewOpenAICompatible(name string, opts Options) *OpenAICompatible {
	return &OpenAICompatible{httpBackend: newHTTPBackend(name, opts)}
}

func (c *OpenAICompatible) Complete(ctx context.Context, messages []Message) (string, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.apiKey)

	var resp chatResponse
	err := c.postJSON(ctx, c.baseURL+"/chat/completions", header, chatRequest{Model: c.model, Messages: messages}, &resp)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%s: response has no content", c.name)
	}
	return resp.Choices[0].Message.Content, nil
}
