package prepurchase

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/hvacdesk/hvacdesk/internal/platform/httpx"
	"github.com/hvacdesk/hvacdesk/internal/shared"
)

// Handler exposes the prepurchase ledger API.
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
	if v := r.URL.Query().Get("product_name"); v != "" {
		req.ProductName = &v
	}
	req.AvailableOnly = r.URL.Query().Get("available_only") == "true"

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page <= 0 {
		page = 1
	}
	perPage := 50
	req.Limit = perPage
	req.Offset = (page - 1) * perPage

	units, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list prepurchase units failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSONList(w, http.StatusOK, units, shared.NewPagination(page, perPage, total))
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := unitID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	unit, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, unit)
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
		h.logger.Error("create prepurchase unit failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, unit)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := unitID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req UpdateUnitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	unit, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, unit)
}

func (h *Handler) AddUsage(w http.ResponseWriter, r *http.Request) {
	id, err := unitID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req AddUsageRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	unit, err := h.service.AddUsage(r.Context(), id, req)
	if err != nil {
		h.logger.Error("add usage failed", "error", err, "unit_id", id)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, unit)
}

func (h *Handler) RemoveUsage(w http.ResponseWriter, r *http.Request) {
	usageID, err := strconv.ParseInt(chi.URLParam(r, "usageID"), 10, 64)
	if err != nil || usageID <= 0 {
		httpx.RespondError(w, ErrUsageNotFound)
		return
	}
	unit, err := h.service.RemoveUsage(r.Context(), usageID)
	if err != nil {
		h.logger.Error("remove usage failed", "error", err, "usage_id", usageID)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, unit)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := unitID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete prepurchase unit failed", "error", err, "id", id)
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func unitID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrNotFound
	}
	return id, nil
}
