package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/FACorreiaa/go-poi-resolver/internal/types"
)

const defaultTemperature = 0.2

// generator is the part of genai.Models the Gemini provider uses.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

var (
	_ Provider         = (*Gemini)(nil)
	_ CategorySearcher = (*Gemini)(nil)
)

// Gemini asks a generative model for structured place facts.
type Gemini struct {
	models generator
	model  string
	logger *slog.Logger
}

func NewGemini(models generator, model string, logger *slog.Logger) *Gemini {
	return &Gemini{models: models, model: model, logger: logger}
}

func (g *Gemini) Name() string { return KindGemini }

type geminiPlace struct {
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Found       *bool    `json:"found,omitempty"`
}

func (p geminiPlace) raw() RawPlace {
	category, err := types.ParseCategory(p.Category)
	if err != nil || category == "" {
		category = types.CategoryOther
	}
	return RawPlace{
		Name:        p.Name,
		Category:    category,
		Description: p.Description,
		Latitude:    p.Latitude,
		Longitude:   p.Longitude,
	}
}

func categoryList() string {
	names := make([]string, len(types.AllCategories))
	for i, c := range types.AllCategories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

func singlePlacePrompt(query, city string) string {
	return fmt.Sprintf(`Return facts about the point of interest %q in %q as a single JSON object with the keys
"name", "category" (one of: %s), "description" (at most two sentences), "latitude", "longitude" and "found".
Set "found" to false if the place does not exist in that city. Return only JSON.`, query, city, categoryList())
}

func categoryPrompt(category types.Category, city string, limit int) string {
	return fmt.Sprintf(`List up to %d well known places of category %q in %q as JSON:
{"places": [{"name": "", "category": "%s", "description": "", "latitude": 0, "longitude": 0}]}.
Return only JSON.`, limit, category, city, category)
}

func (g *Gemini) generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](defaultTemperature),
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", wrap(g.Name(), err)
	}
	if resp == nil {
		return "", types.ErrProviderEmpty
	}
	text := cleanJSONResponse(resp.Text())
	if text == "" {
		return "", types.ErrProviderEmpty
	}
	return text, nil
}

func (g *Gemini) Search(ctx context.Context, query, city string) (*RawPlace, error) {
	text, err := g.generate(ctx, singlePlacePrompt(query, city))
	if err != nil {
		return nil, err
	}

	var p geminiPlace
	if err = json.Unmarshal([]byte(text), &p); err != nil {
		g.logger.WarnContext(ctx, "Unparseable model response", slog.String("response", text), slog.Any("error", err))
		return nil, wrap(g.Name(), fmt.Errorf("failed to parse response: %w", err))
	}
	if (p.Found != nil && !*p.Found) || strings.TrimSpace(p.Name) == "" {
		return nil, types.ErrProviderEmpty
	}

	raw := p.raw()
	return &raw, nil
}

func (g *Gemini) SearchCategory(ctx context.Context, category types.Category, city string, limit int) ([]RawPlace, error) {
	text, err := g.generate(ctx, categoryPrompt(category, city, limit))
	if err != nil {
		return nil, err
	}

	var decoded struct {
		Places []geminiPlace `json:"places"`
	}
	if err = json.Unmarshal([]byte(text), &decoded); err != nil {
		return nil, wrap(g.Name(), fmt.Errorf("failed to parse response: %w", err))
	}

	out := make([]RawPlace, 0, len(decoded.Places))
	for _, p := range decoded.Places {
		if strings.TrimSpace(p.Name) == "" {
			continue
		}
		raw := p.raw()
		if raw.Category == types.CategoryOther {
			raw.Category = category
		}
		out = append(out, raw)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	if len(out) == 0 {
		return nil, types.ErrProviderEmpty
	}
	return out, nil
}

// cleanJSONResponse strips markdown fences and any prose around the outermost JSON object.
func cleanJSONResponse(response string) string {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	firstBrace := strings.Index(response, "{")
	if firstBrace == -1 {
		return response
	}
	lastBrace := strings.LastIndex(response, "}")
	if lastBrace == -1 || lastBrace <= firstBrace {
		return response
	}
	return strings.TrimSpace(response[firstBrace : lastBrace+1])
}
