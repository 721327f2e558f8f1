package settlement

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/hvacdesk/hvacdesk/internal/platform/httpx"
	"github.com/hvacdesk/hvacdesk/internal/workorders"
)

// BatchObserver receives batch outcome counts for metrics.
type BatchObserver interface {
	ObserveBatchOrders(succeeded, failed int)
}

// Handler exposes the installer settlement API.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	observer BatchObserver
}

// NewHandler constructs Handler. observer may be nil.
func NewHandler(logger *slog.Logger, service *Service, observer BatchObserver) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
		observer: observer,
	}
}

type batchRequest struct {
	OrderIDs []int64 `json:"order_ids" validate:"required,min=1,dive,gt=0"`
	Target   string  `json:"target" validate:"required"`
}

func (h *Handler) Batch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}

	result, err := h.service.BatchTransition(r.Context(), req.OrderIDs, workorders.SettlementStatus(req.Target))
	if err != nil {
		h.logger.Error("settlement batch failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	if h.observer != nil {
		h.observer.ObserveBatchOrders(result.Succeeded, result.Failed)
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := orderID(r)
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

func (h *Handler) Revert(w http.ResponseWriter, r *http.Request) {
	id, err := orderID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	view, err := h.service.RevertToUnsettled(r.Context(), id)
	if err != nil {
		h.logger.Error("settlement revert failed", "error", err, "order_id", id)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	month := chi.URLParam(r, "month")
	summary, err := h.service.Summary(r.Context(), month)
	if err != nil {
		h.logger.Error("settlement summary failed", "error", err, "month", month)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) Months(w http.ResponseWriter, r *http.Request) {
	months, err := h.service.Months(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"months": months})
}

func orderID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrOrderNotFound
	}
	return id, nil
}
