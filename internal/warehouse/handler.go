package warehouse

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/hvacdesk/hvacdesk/internal/platform/httpx"
	"github.com/hvacdesk/hvacdesk/internal/shared"
)

// Handler exposes the stored-unit ledger API.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var req ListUnitsRequest
	if v := r.URL.Query().Get("status"); v != "" {
		s := UnitStatus(v)
		if !s.IsValid() {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown unit status")
			return
		}
		req.Status = &s
	}
	if v := r.URL.Query().Get("warehouse_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			req.WarehouseID = &id
		}
	}
	if v := r.URL.Query().Get("category"); v != "" {
		req.Category = &v
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page <= 0 {
		page = 1
	}
	perPage := 50
	req.Limit = perPage
	req.Offset = (page - 1) * perPage

	units, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list stored units failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSONList(w, http.StatusOK, units, shared.NewPagination(page, perPage, total))
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	view, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateUnitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}

	unit, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.logger.Error("create stored unit failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, unit)
}

func (h *Handler) Release(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var info ReleaseInfo
	if err := httpx.DecodeJSON(r, &info); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}

	unit, err := h.service.Release(r.Context(), id, info)
	if err != nil {
		h.logger.Error("release unit failed", "error", err, "id", id)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, unit)
}

func (h *Handler) RevertRelease(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	unit, err := h.service.RevertRelease(r.Context(), id)
	if err != nil {
		h.logger.Error("revert release failed", "error", err, "id", id)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, unit)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete stored unit failed", "error", err, "id", id)
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrNotFound
	}
	return id, nil
}
