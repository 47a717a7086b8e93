package provider

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/FACorreiaa/go-poi-resolver/internal/types"
)

type fakeGenerator struct {
	text   string
	err    error
	prompt string
}

func (f *fakeGenerator) GenerateContent(_ context.Context, _ string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.prompt = contents[0].Parts[0].Text
	}
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: f.text}}},
		}},
	}, nil
}

func newTestGemini(gen *fakeGenerator) *Gemini {
	return NewGemini(gen, "gemini-2.0-flash", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestGemini_Search(t *testing.T) {
	t.Run("parses fenced json", func(t *testing.T) {
		gen := &fakeGenerator{text: "```json\n{\"name\":\"Torre Civica\",\"category\":\"monument\",\"description\":\"A tower.\",\"latitude\":45.07,\"longitude\":7.68,\"found\":true}\n```"}
		raw, err := newTestGemini(gen).Search(context.Background(), "Torre Civica", "ExampleCity")
		require.NoError(t, err)
		assert.Equal(t, "Torre Civica", raw.Name)
		assert.Equal(t, types.CategoryMonument, raw.Category)
		assert.InDelta(t, 45.07, *raw.Latitude, 1e-9)
		assert.Contains(t, gen.prompt, `"Torre Civica"`)
	})

	t.Run("not found is empty", func(t *testing.T) {
		gen := &fakeGenerator{text: `{"name":"","found":false}`}
		_, err := newTestGemini(gen).Search(context.Background(), "Nowhere", "ExampleCity")
		assert.ErrorIs(t, err, types.ErrProviderEmpty)
	})

	t.Run("garbage is a provider error", func(t *testing.T) {
		gen := &fakeGenerator{text: `{not json}`}
		_, err := newTestGemini(gen).Search(context.Background(), "x", "y")
		var perr *types.ProviderError
		assert.True(t, errors.As(err, &perr))
	})

	t.Run("deadline becomes timeout", func(t *testing.T) {
		gen := &fakeGenerator{err: context.DeadlineExceeded}
		_, err := newTestGemini(gen).Search(context.Background(), "x", "y")
		assert.ErrorIs(t, err, types.ErrProviderTimeout)
	})
}

func TestGemini_SearchCategory(t *testing.T) {
	gen := &fakeGenerator{text: `{"places":[
		{"name":"Parco del Valentino","category":"park","latitude":45.05,"longitude":7.68},
		{"name":"","category":"park"},
		{"name":"Giardini Reali","category":"garden","latitude":45.07,"longitude":7.69}
	]}`}
	got, err := newTestGemini(gen).SearchCategory(context.Background(), types.CategoryPark, "Turin", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, types.CategoryPark, got[1].Category)
}

func TestCleanJSONResponse(t *testing.T) {
	assert.Equal(t, `{"a":1}`, cleanJSONResponse("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanJSONResponse(`Sure! Here it is: {"a":1} hope this helps`))
	assert.Equal(t, "plain", cleanJSONResponse("plain"))
}
