package resolver

import (
	"log/slog"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	api "github.com/FACorreiaa/go-poi-resolver/internal/api"
	"github.com/FACorreiaa/go-poi-resolver/internal/types"
)

type Handler struct {
	service Service
	logger  *slog.Logger
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// ResolvePlace godoc
// @Summary      Resolve a place
// @Description  Resolves a place by name and city through the structured, semantic, cache and provider tiers.
// @Tags         places
// @Produce      json
// @Param        name      query  string  true   "Place name"
// @Param        city      query  string  true   "City"
// @Param        category  query  string  false  "Category hint"
// @Param        refresh   query  bool    false  "Bypass stale cache entries"
// @Success      200  {object}  types.Place
// @Failure      400  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]interface{}
// @Router       /places/resolve [get]
func (h *Handler) ResolvePlace(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ResolverHandler").Start(r.Context(), "ResolvePlace", trace.WithAttributes(
		attribute.String("http.method", r.Method),
		attribute.String("http.route", "/api/v1/places/resolve"),
	))
	defer span.End()

	q := r.URL.Query()
	req := types.ResolutionRequest{
		Name:         q.Get("name"),
		City:         q.Get("city"),
		CategoryHint: q.Get("category"),
	}
	if raw := q.Get("refresh"); raw != "" {
		refresh, err := strconv.ParseBool(raw)
		if err != nil {
			api.ErrorResponse(w, r, http.StatusBadRequest, "invalid refresh: must be a boolean")
			return
		}
		req.Refresh = refresh
	}

	p, err := h.service.Resolve(ctx, req)
	if err != nil {
		span.RecordError(err)
		api.WriteError(w, r, h.logger, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, p)
}
