package itinerary

import (
	"log/slog"
	"net/http"

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

// BuildItinerary godoc
// @Summary      Build an itinerary
// @Description  Orders places of a city into a walkable route from a start anchor, optionally ending at an end anchor.
// @Tags         itineraries
// @Accept       json
// @Produce      json
// @Param        request  body      types.ItineraryRequest  true  "Itinerary request"
// @Success      200      {object}  types.Itinerary
// @Failure      400      {object}  map[string]interface{}
// @Failure      422      {object}  map[string]interface{}
// @Router       /itineraries [post]
func (h *Handler) BuildItinerary(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ItineraryHandler").Start(r.Context(), "BuildItinerary", trace.WithAttributes(
		attribute.String("http.method", r.Method),
		attribute.String("http.route", "/api/v1/itineraries"),
	))
	defer span.End()

	var req types.ItineraryRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		span.RecordError(err)
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	it, err := h.service.Build(ctx, req)
	if err != nil {
		span.RecordError(err)
		api.WriteError(w, r, h.logger, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, it)
}
