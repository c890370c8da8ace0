package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Client wraps one genai connection for both embedding and completion calls.
// It is created once at bootstrap and shared by all requests.
type Client struct {
	client          *genai.Client
	embedModel      string
	completionModel string
}

func NewClient(ctx context.Context, apiKey, embedModel, completionModel string, opts ...option.ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key not configured")
	}

	opts = append(opts, option.WithAPIKey(apiKey))
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return &Client{
		client:          client,
		embedModel:      embedModel,
		completionModel: completionModel,
	}, nil
}

// Embed returns the embedding vector for text. The model is deterministic for
// a given input, which retrieval relies on.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	slog.DebugContext(ctx, "embedding content", "model", c.embedModel, "length", len(text))

	em := c.client.EmbeddingModel(c.embedModel)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		slog.ErrorContext(ctx, "embedding failed", "error", err)
		return nil, err
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("empty embedding received")
	}
	return res.Embedding.Values, nil
}

// Complete runs a single-turn, low-temperature completion and returns the
// generated text verbatim.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	model := c.client.GenerativeModel(c.completionModel)
	model.SetTemperature(0.2)

	res, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		slog.ErrorContext(ctx, "completion failed", "error", err)
		return "", err
	}

	if len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty completion received")
	}

	var answer string
	for _, part := range res.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			answer += string(text)
		}
	}
	return answer, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}
