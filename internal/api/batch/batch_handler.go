package batch

import (
	"context"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	appMiddleware "github.com/FACorreiaa/go-poi-resolver/app/middleware"
	api "github.com/FACorreiaa/go-poi-resolver/internal/api"
	"github.com/FACorreiaa/go-poi-resolver/internal/types"
)

type planner interface {
	Plan(ctx context.Context, req types.BatchPlanRequest) (*types.BatchPlan, error)
}

type runner interface {
	Run(ctx context.Context, plan *types.BatchPlan) (*types.BatchReport, error)
}

type Handler struct {
	logger  *slog.Logger
	planner planner
	runner  runner
}

// NewHandler wires the admin endpoints. A nil runner disables RunBatches.
func NewHandler(p *Planner, r *Runner, logger *slog.Logger) *Handler {
	h := &Handler{logger: logger, planner: p}
	if r != nil {
		h.runner = r
	}
	return h
}

// PlanBatches godoc
// @Summary      Plan a pre-warm run
// @Description  Groups (city, category) targets into geographic batches and estimates their cost.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      types.BatchPlanRequest  true  "Targets"
// @Success      200      {object}  types.BatchPlan
// @Failure      400      {object}  map[string]interface{}
// @Router       /admin/batches/plan [post]
func (h *Handler) PlanBatches(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("BatchHandler").Start(r.Context(), "PlanBatches", trace.WithAttributes(
		attribute.String("http.method", r.Method),
		attribute.String("http.route", "/api/v1/admin/batches/plan"),
	))
	defer span.End()

	plan, ok := h.plan(w, r.WithContext(ctx))
	if !ok {
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, plan)
}

// RunBatches godoc
// @Summary      Run a pre-warm
// @Description  Plans the targets and executes the plan against the paid provider, writing every result back.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      types.BatchPlanRequest  true  "Targets"
// @Success      200      {object}  types.BatchReport
// @Failure      400      {object}  map[string]interface{}
// @Failure      503      {object}  map[string]interface{}
// @Router       /admin/batches/run [post]
func (h *Handler) RunBatches(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("BatchHandler").Start(r.Context(), "RunBatches", trace.WithAttributes(
		attribute.String("http.method", r.Method),
		attribute.String("http.route", "/api/v1/admin/batches/run"),
	))
	defer span.End()

	if h.runner == nil {
		api.ErrorResponse(w, r, http.StatusServiceUnavailable, "configured provider cannot run category searches")
		return
	}

	plan, ok := h.plan(w, r.WithContext(ctx))
	if !ok {
		return
	}

	subject, _ := appMiddleware.GetSubjectFromContext(ctx)
	h.logger.InfoContext(ctx, "Admin batch run requested",
		slog.String("subject", subject),
		slog.Int("calls", plan.TotalCalls),
		slog.Float64("estimated_cost_usd", plan.EstimatedCostUSD))

	report, err := h.runner.Run(ctx, plan)
	if err != nil {
		span.RecordError(err)
		api.WriteError(w, r, h.logger, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, report)
}

func (h *Handler) plan(w http.ResponseWriter, r *http.Request) (*types.BatchPlan, bool) {
	var req types.BatchPlanRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return nil, false
	}
	plan, err := h.planner.Plan(r.Context(), req)
	if err != nil {
		trace.SpanFromContext(r.Context()).RecordError(err)
		api.WriteError(w, r, h.logger, err)
		return nil, false
	}
	return plan, true
}
