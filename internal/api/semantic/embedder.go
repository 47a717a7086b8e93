package semantic

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"

	"github.com/FACorreiaa/go-poi-resolver/config"
)

// Embedder turns text into a fixed-size vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

var ErrEmptyEmbedding = errors.New("embedder returned no vector")

// NewEmbedder builds the configured embedder. It returns nil, nil when embeddings are
// disabled, which turns the semantic tier into a permanent miss.
func NewEmbedder(ctx context.Context, cfg config.SemanticConfig) (Embedder, error) {
	switch cfg.Embedder {
	case "", "none":
		return nil, nil
	case "gemini":
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create genai client: %w", err)
		}
		return NewGeminiEmbedder(client.Models, cfg.Model, cfg.Dimensions), nil
	case "openai":
		return NewOpenAIEmbedder(openai.NewClient(cfg.APIKey), cfg.Model, cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown semantic.embedder %q", cfg.Embedder)
	}
}

// geminiModels is the part of genai.Models used for embeddings.
type geminiModels interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

type GeminiEmbedder struct {
	models     geminiModels
	model      string
	dimensions int32
}

func NewGeminiEmbedder(models geminiModels, model string, dimensions int) *GeminiEmbedder {
	return &GeminiEmbedder{models: models, model: model, dimensions: int32(dimensions)}
}

func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	cfg := &genai.EmbedContentConfig{}
	if e.dimensions > 0 {
		cfg.OutputDimensionality = &e.dimensions
	}
	resp, err := e.models.EmbedContent(ctx, e.model, genai.Text(text), cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, ErrEmptyEmbedding
	}
	return resp.Embeddings[0].Values, nil
}

// openAIEmbeddings is the part of *openai.Client used for embeddings.
type openAIEmbeddings interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

type OpenAIEmbedder struct {
	client     openAIEmbeddings
	model      openai.EmbeddingModel
	dimensions int
}

func NewOpenAIEmbedder(client openAIEmbeddings, model string, dimensions int) *OpenAIEmbedder {
	m := openai.SmallEmbedding3
	if model != "" {
		m = openai.EmbeddingModel(model)
	}
	return &OpenAIEmbedder{client: client, model: m, dimensions: dimensions}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      e.model,
		Dimensions: e.dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embed: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, ErrEmptyEmbedding
	}
	return resp.Data[0].Embedding, nil
}
