package reverse

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pictor-board/pictor/internal/access"
	"github.com/pictor-board/pictor/internal/auth"
	"github.com/pictor-board/pictor/internal/platform/httpx"
	"github.com/pictor-board/pictor/internal/shared"
)

// Handler exposes reverse search over HTTP.
type Handler struct {
	logger   *slog.Logger
	searcher Searcher
	resolver *access.Resolver
	validate *validator.Validate
}

// NewHandler constructs the reverse-search handler.
func NewHandler(logger *slog.Logger, searcher Searcher, resolver *access.Resolver) *Handler {
	return &Handler{logger: logger, searcher: searcher, resolver: resolver, validate: validator.New()}
}

// MountRoutes attaches reverse-search routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.search)
}

type searchRequest struct {
	URL string `json:"url" validate:"required,url"`
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	actor := auth.FromContext(r.Context())
	if !h.resolver.Allows(access.PrivReverseSearch, actor.Rank) {
		httpx.Error(w, shared.NewError(shared.KindInsufficientPrivilege, "You don't have privileges to reverse search posts."))
		return
	}

	var req searchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, shared.NewError(shared.KindValidation, "Malformed request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Error(w, shared.NewError(shared.KindValidation, "A valid image URL is required"))
		return
	}

	result, err := h.searcher.Lookup(r.Context(), req.URL)
	if err != nil {
		h.logger.Error("reverse search", slog.Any("error", err))
		httpx.JSON(w, http.StatusBadGateway, httpx.ErrorResponse{
			Kind:    shared.KindInternal,
			Message: "Reverse search unavailable",
		})
		return
	}

	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	httpx.JSON(w, http.StatusOK, Page(result, offset, limit))
}
