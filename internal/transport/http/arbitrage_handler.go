package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "volarb/internal/errors"
	"volarb/internal/middleware"
	"volarb/internal/services"
	"volarb/internal/volarb"
)

// ArbitrageService is the service surface the handler needs
type ArbitrageService interface {
	Defaults() volarb.Params
	Mono(ctx context.Context, pair volarb.Pair, opts services.AnalysisOptions) (*services.MonoResult, error)
	Poly(ctx context.Context, pair volarb.Pair, opts services.AnalysisOptions) (*services.PolyResult, error)
	Tails(ctx context.Context, pair volarb.Pair, opts services.AnalysisOptions) (*services.TailsResult, error)
	Dispersion(ctx context.Context, pair volarb.Pair, convention volarb.Convention, opts services.AnalysisOptions) (*services.DispersionResult, error)
	Render(ctx context.Context, assets []volarb.PriceSeries, convention volarb.Convention, opts services.AnalysisOptions) (*services.RenderResult, error)
}

// ArbitrageHandler handles the /arb endpoints
type ArbitrageHandler struct {
	service      ArbitrageService
	validator    *middleware.Validator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewArbitrageHandler creates a new arbitrage handler
func NewArbitrageHandler(service ArbitrageService, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *ArbitrageHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if errorHandler == nil {
		errorHandler = apierrors.NewErrorHandler(logger, false)
	}
	return &ArbitrageHandler{
		service:      service,
		validator:    middleware.NewValidator(),
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "arbitrage")),
	}
}

// Routes returns the arbitrage routes
func (h *ArbitrageHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/reducers", h.Reducers)
	r.Post("/mono", h.Mono)
	r.Post("/poly", h.Poly)
	r.Post("/tails", h.Tails)
	r.Post("/dispersion", h.Dispersion)
	r.Post("/render", h.Render)
	return r
}

// Reducers handles GET /arb/reducers
func (h *ArbitrageHandler) Reducers(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"reducers": volarb.ReducerNames(),
		"defaults": h.service.Defaults(),
	})
}

// Mono handles POST /arb/mono
func (h *ArbitrageHandler) Mono(w http.ResponseWriter, r *http.Request) {
	var req PairRequest
	if err := h.validator.DecodeAndValidate(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	result, err := h.service.Mono(r.Context(), req.pair(), req.Options.analysis(req.RunID))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// Poly handles POST /arb/poly. Progress is published to websocket
// subscribers under the request's run_id while the sweep runs.
func (h *ArbitrageHandler) Poly(w http.ResponseWriter, r *http.Request) {
	var req PairRequest
	if err := h.validator.DecodeAndValidate(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "starting sweep",
		slog.String("pair", req.A.Symbol+"/"+req.B.Symbol),
		slog.Int("observations", len(req.A.Close)),
		slog.String("run_id", req.RunID))

	result, err := h.service.Poly(r.Context(), req.pair(), req.Options.analysis(req.RunID))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// Tails handles POST /arb/tails
func (h *ArbitrageHandler) Tails(w http.ResponseWriter, r *http.Request) {
	var req PairRequest
	if err := h.validator.DecodeAndValidate(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	result, err := h.service.Tails(r.Context(), req.pair(), req.Options.analysis(req.RunID))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// Dispersion handles POST /arb/dispersion
func (h *ArbitrageHandler) Dispersion(w http.ResponseWriter, r *http.Request) {
	var req DispersionRequest
	if err := h.validator.DecodeAndValidate(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	pair := volarb.Pair{A: req.A.series(), B: req.B.series()}
	result, err := h.service.Dispersion(r.Context(), pair, volarb.Convention(req.Convention), req.Options.analysis(""))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// Render handles POST /arb/render
func (h *ArbitrageHandler) Render(w http.ResponseWriter, r *http.Request) {
	var req RenderRequest
	if err := h.validator.DecodeAndValidate(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	assets := make([]volarb.PriceSeries, len(req.Assets))
	for i, a := range req.Assets {
		assets[i] = a.series()
	}

	result, err := h.service.Render(r.Context(), assets, volarb.Convention(req.Convention), req.Options.analysis(""))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}
