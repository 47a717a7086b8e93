package semantic

import (
	"context"
	"errors"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/FACorreiaa/go-poi-resolver/config"
)

type fakeGeminiModels struct {
	gotModel string
	gotDims  *int32
	resp     *genai.EmbedContentResponse
	err      error
}

func (f *fakeGeminiModels) EmbedContent(_ context.Context, model string, _ []*genai.Content, cfg *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	f.gotModel = model
	f.gotDims = cfg.OutputDimensionality
	return f.resp, f.err
}

type fakeOpenAI struct {
	got  openai.EmbeddingRequest
	resp openai.EmbeddingResponse
	err  error
}

func (f *fakeOpenAI) CreateEmbeddings(_ context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	f.got = conv.Convert()
	return f.resp, f.err
}

func TestGeminiEmbedder(t *testing.T) {
	models := &fakeGeminiModels{resp: &genai.EmbedContentResponse{
		Embeddings: []*genai.ContentEmbedding{{Values: []float32{0.1, 0.2}}},
	}}
	e := NewGeminiEmbedder(models, "text-embedding-004", 768)

	vec, err := e.Embed(context.Background(), "Torre Civica")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2}, vec)
	assert.Equal(t, "text-embedding-004", models.gotModel)
	require.NotNil(t, models.gotDims)
	assert.Equal(t, int32(768), *models.gotDims)

	models.resp = &genai.EmbedContentResponse{}
	_, err = e.Embed(context.Background(), "x")
	assert.ErrorIs(t, err, ErrEmptyEmbedding)

	models.err = errors.New("unavailable")
	_, err = e.Embed(context.Background(), "x")
	assert.ErrorContains(t, err, "unavailable")
}

func TestOpenAIEmbedder(t *testing.T) {
	client := &fakeOpenAI{resp: openai.EmbeddingResponse{
		Data: []openai.Embedding{{Embedding: []float32{0.5}}},
	}}
	e := NewOpenAIEmbedder(client, "", 768)

	vec, err := e.Embed(context.Background(), "Torre Civica")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5}, vec)
	assert.Equal(t, openai.SmallEmbedding3, client.got.Model)
	assert.Equal(t, 768, client.got.Dimensions)

	client.resp = openai.EmbeddingResponse{}
	_, err = e.Embed(context.Background(), "x")
	assert.ErrorIs(t, err, ErrEmptyEmbedding)
}

func TestNewEmbedder(t *testing.T) {
	e, err := NewEmbedder(context.Background(), config.SemanticConfig{Embedder: "none"})
	assert.NoError(t, err)
	assert.Nil(t, e)

	e, err = NewEmbedder(context.Background(), config.SemanticConfig{Embedder: "openai", APIKey: "k", Dimensions: 768})
	assert.NoError(t, err)
	assert.IsType(t, &OpenAIEmbedder{}, e)

	_, err = NewEmbedder(context.Background(), config.SemanticConfig{Embedder: "word2vec"})
	assert.Error(t, err)
}
