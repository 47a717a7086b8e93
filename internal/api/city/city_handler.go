package city

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	api "github.com/FACorreiaa/go-poi-resolver/internal/api"
)

type Handler struct {
	logger *slog.Logger
	repo   Repository
}

func NewCityHandler(repo Repository, logger *slog.Logger) *Handler {
	return &Handler{
		logger: logger,
		repo:   repo,
	}
}

// GetAllCities godoc
// @Summary      List known cities
// @Description  Returns every city with a known center, used for batch planning.
// @Tags         cities
// @Produce      json
// @Success      200  {array}  types.City
// @Router       /cities [get]
func (h *Handler) GetAllCities(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("CityHandler").Start(r.Context(), "GetAllCities")
	defer span.End()

	l := h.logger.With(slog.String("method", "GetAllCities"))

	cities, err := h.repo.GetAllCities(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Repository operation failed")
		api.WriteError(w, r, l, err)
		return
	}

	l.DebugContext(ctx, "Successfully returned cities", slog.Int("count", len(cities)))
	span.SetStatus(codes.Ok, "Cities returned successfully")
	api.WriteJSONResponse(w, r, http.StatusOK, cities)
}
