package embedding

import (
	"context"
	"fmt"
	"sync"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "text-embedding-3-small"

// OpenAIOptions configures the OpenAI provider.
type OpenAIOptions struct {
	// Model is the embedding model identifier.
	Model string

	// BaseURL overrides the API endpoint (for compatible servers).
	BaseURL string

	// RequestsPerSecond throttles Embed calls when > 0.
	RequestsPerSecond float64
}

// OpenAI embeds text through the OpenAI embeddings API. The client is
// created lazily on first use; changing the model via SetModel takes
// effect on the next Embed call.
type OpenAI struct {
	mu      sync.Mutex
	apiKey  string
	baseURL string
	model   string
	client  *openai.Client
	limiter *rate.Limiter
}

// NewOpenAI creates a provider authenticating with the given API key.
func NewOpenAI(apiKey string, optFns ...func(o *OpenAIOptions)) *OpenAI {
	opts := OpenAIOptions{
		Model: DefaultOpenAIModel,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	p := &OpenAI{
		apiKey:  apiKey,
		baseURL: opts.BaseURL,
		model:   opts.Model,
	}
	if opts.RequestsPerSecond > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return p
}

// Model returns the currently active model identifier.
func (p *OpenAI) Model() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.model
}

// SetModel switches the active model. The swap is lazy: nothing is loaded
// until the next Embed call.
func (p *OpenAI) SetModel(model string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if model != "" {
		p.model = model
	}
}

// Embed returns the embedding vector for the given text.
func (p *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	client, model, err := p.ensureClient()
	if err != nil {
		return nil, err
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInference, err)
		}
	}

	resp, err := client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(model),
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInference, err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty response for model %q", ErrInference, model)
	}
	return resp.Data[0].Embedding, nil
}

func (p *OpenAI) ensureClient() (*openai.Client, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client == nil {
		if p.apiKey == "" {
			return nil, "", fmt.Errorf("%w: missing API key", ErrModelLoad)
		}
		cfg := openai.DefaultConfig(p.apiKey)
		if p.baseURL != "" {
			cfg.BaseURL = p.baseURL
		}
		p.client = openai.NewClientWithConfig(cfg)
	}
	return p.client, p.model, nil
}
