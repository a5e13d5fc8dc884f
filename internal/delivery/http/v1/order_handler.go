package v1

import (
	"net/http"

	"krume-backend/internal/usecase"
)

type OrderHandler struct {
	orderUC *usecase.OrderUsecase
}

func NewOrderHandler(uc *usecase.OrderUsecase) *OrderHandler {
	return &OrderHandler{orderUC: uc}
}

func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		unauthorized(w)
		return
	}
	var req usecase.CreateOrderRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}

	order, err := h.orderUC.Create(r.Context(), user, req)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusCreated, "Order placed", order)
}

func (h *OrderHandler) GetMyOrders(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		unauthorized(w)
		return
	}
	orders, err := h.orderUC.GetMyOrders(r.Context(), user.ID)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "", orders)
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
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

func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		unauthorized(w)
		return
	}
	order, err := h.orderUC.Cancel(r.Context(), user, r.PathValue("id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Order cancelled", order)
}

func (h *OrderHandler) RequestReturn(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		unauthorized(w)
		return
	}
	var req usecase.ReturnRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}

	order, err := h.orderUC.RequestReturn(r.Context(), user, r.PathValue("id"), req)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Return requested", order)
}
