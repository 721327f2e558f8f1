package workorders

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/hvacdesk/hvacdesk/internal/platform/httpx"
	"github.com/hvacdesk/hvacdesk/internal/shared"
)

// Handler exposes the work order API.
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
	req := ListWorkOrdersRequest{
		ActiveOnly: r.URL.Query().Get("active") == "true",
	}
	if v := r.URL.Query().Get("status"); v != "" {
		s := Status(v)
		if !s.IsValid() {
			httpx.RespondError(w, ErrInvalidStatus)
			return
		}
		req.Status = &s
	}
	if v := r.URL.Query().Get("affiliate"); v != "" {
		req.Affiliate = &v
	}
	if v := r.URL.Query().Get("business_name"); v != "" {
		req.BusinessName = &v
	}
	if v := r.URL.Query().Get("month"); v != "" {
		if _, err := shared.ParseMonthKey(v); err != nil {
			httpx.RespondError(w, err)
			return
		}
		req.Month = &v
	}
	page, perPage := parsePage(r)
	req.Limit = perPage
	req.Offset = (page - 1) * perPage

	orders, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list work orders failed", "error", err)
		httpx.RespondError(w, err)
		return
	}

	today := h.today(r)
	views := make([]WorkOrderView, 0, len(orders))
	for i := range orders {
		views = append(views, NewWorkOrderView(&orders[i], today))
	}
	httpx.JSONList(w, http.StatusOK, views, shared.NewPagination(page, perPage, total))
}

// Kanban buckets the active orders by their derived stage. Terminal orders
// never appear here.
func (h *Handler) Kanban(w http.ResponseWriter, r *http.Request) {
	orders, _, err := h.service.List(r.Context(), ListWorkOrdersRequest{ActiveOnly: true, Limit: 1000})
	if err != nil {
		h.logger.Error("kanban load failed", "error", err)
		httpx.RespondError(w, err)
		return
	}

	today := h.today(r)
	buckets := map[Status][]WorkOrderView{
		StatusReceived:   {},
		StatusInProgress: {},
		StatusCompleted:  {},
	}
	for i := range orders {
		view := NewWorkOrderView(&orders[i], today)
		if view.KanbanStage.IsTerminal() {
			continue
		}
		buckets[view.KanbanStage] = append(buckets[view.KanbanStage], view)
	}
	httpx.JSON(w, http.StatusOK, buckets)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewWorkOrderView(order, h.today(r)))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateWorkOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}

	order, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.logger.Error("create work order failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, NewWorkOrderView(order, h.today(r)))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req UpdateWorkOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}

	order, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.logger.Error("update work order failed", "error", err, "id", id)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewWorkOrderView(order, h.today(r)))
}

type completeRequest struct {
	CompleteDate time.Time `json:"complete_date"`
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	req := completeRequest{CompleteDate: time.Now().UTC()}
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
			return
		}
	}

	order, err := h.service.Complete(r.Context(), id, req.CompleteDate)
	if err != nil {
		h.logger.Error("complete work order failed", "error", err, "id", id)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewWorkOrderView(order, h.today(r)))
}

func (h *Handler) MarkDelivered(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	order, err := h.service.MarkDelivered(r.Context(), id)
	if err != nil {
		h.logger.Error("mark delivered failed", "error", err, "id", id)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewWorkOrderView(order, h.today(r)))
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	order, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		h.logger.Error("cancel work order failed", "error", err, "id", id)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewWorkOrderView(order, h.today(r)))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete work order failed", "error", err, "id", id)
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// today resolves the reference date for derivation. Tests and back-dated
// queries may pass ?today=YYYY-MM-DD; otherwise the server clock is used.
func (h *Handler) today(r *http.Request) time.Time {
	if v := r.URL.Query().Get("today"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			return t
		}
	}
	return time.Now().UTC()
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrNotFound
	}
	return id, nil
}

func parsePage(r *http.Request) (page, perPage int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page <= 0 {
		page = 1
	}
	perPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage <= 0 || perPage > 1000 {
		perPage = 50
	}
	return page, perPage
}
