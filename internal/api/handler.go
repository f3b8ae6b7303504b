package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pictor-board/pictor/internal/auth"
	"github.com/pictor-board/pictor/internal/platform/httpx"
	"github.com/pictor-board/pictor/internal/shared"
)

// Handler exposes job invocation over HTTP.
type Handler struct {
	logger   *slog.Logger
	registry *Registry
	runner   *Runner
	validate *validator.Validate
}

// NewHandler constructs the job invocation handler.
func NewHandler(logger *slog.Logger, registry *Registry, runner *Runner) *Handler {
	return &Handler{logger: logger, registry: registry, runner: runner, validate: validator.New()}
}

// MountRoutes attaches job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/{jobType}", h.invoke)
}

type invokeRequest struct {
	Arguments map[string]string `json:"arguments" validate:"required"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"jobs": h.registry.Names()})
}

func (h *Handler) invoke(w http.ResponseWriter, r *http.Request) {
	jobType := chi.URLParam(r, "jobType")
	job, ok := h.registry.Lookup(jobType)
	if !ok {
		httpx.Error(w, shared.NewError(shared.KindNotFound, "Unknown job type %q", jobType))
		return
	}

	var req invokeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, shared.NewError(shared.KindValidation, "Malformed request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Error(w, shared.NewError(shared.KindValidation, "Field \"arguments\" is required"))
		return
	}

	actor := auth.FromContext(r.Context())
	result, err := h.runner.Run(r.Context(), job, NewArgumentSet(req.Arguments), actor)
	if err != nil {
		if shared.KindOf(err) == shared.KindInternal {
			h.logger.Error("job execution", slog.String("job", jobType), slog.Any("error", err))
		}
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"result": result})
}
