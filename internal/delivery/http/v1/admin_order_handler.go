package v1

import (
	"net/http"

	"krume-backend/internal/domain"
	"krume-backend/internal/usecase"
	"krume-backend/pkg/utils"
)

type AdminOrderHandler struct {
	orderUC *usecase.OrderUsecase
}

func NewAdminOrderHandler(uc *usecase.OrderUsecase) *AdminOrderHandler {
	return &AdminOrderHandler{orderUC: uc}
}

func (h *AdminOrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := domain.OrderFilter{
		Page:   utils.ParseInt(query.Get("page"), 1),
		Limit:  utils.ParseInt(query.Get("limit"), 20),
		Status: query.Get("status"),
	}

	orders, page, err := h.orderUC.GetAllOrders(r.Context(), filter)
	if err != nil {
		fail(w, r, err)
		return
	}
	respondPage(w, orders, page)
}

func (h *AdminOrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		unauthorized(w)
		return
	}
	order, err := h.orderUC.GetOrder(r.Context(), user, r.PathValue("id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "", order)
}

func (h *AdminOrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}

	order, err := h.orderUC.UpdateStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Order status updated", order)
}

func (h *AdminOrderHandler) ManageReturn(w http.ResponseWriter, r *http.Request) {
	var req usecase.ManageReturnRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}

	order, err := h.orderUC.ManageReturn(r.Context(), r.PathValue("id"), req)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Return updated", order)
}
