package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/FACorreiaa/go-poi-resolver/internal/api/batch"
	"github.com/FACorreiaa/go-poi-resolver/internal/api/city"
	"github.com/FACorreiaa/go-poi-resolver/internal/api/itinerary"
	"github.com/FACorreiaa/go-poi-resolver/internal/api/resolver"
)

// Config contains dependencies needed for the router setup
type Config struct {
	ResolverHandler  *resolver.Handler
	ItineraryHandler *itinerary.Handler
	CityHandler      *city.Handler
	BatchHandler     *batch.Handler
	// AdminMiddleware guards /api/v1/admin.
	AdminMiddleware func(http.Handler) http.Handler
	AllowedOrigins  []string
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (like logger, requestID, recoverer) are expected
// to be applied *before* mounting this router in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/places/resolve", cfg.ResolverHandler.ResolvePlace)
		r.Post("/itineraries", cfg.ItineraryHandler.BuildItinerary)
		r.Get("/cities", cfg.CityHandler.GetAllCities)

		r.Route("/admin", func(r chi.Router) {
			r.Use(cfg.AdminMiddleware)
			r.Post("/batches/plan", cfg.BatchHandler.PlanBatches)
			r.Post("/batches/run", cfg.BatchHandler.RunBatches)
		})
	})

	return r
}
