package v1

import (
	"net/http"

	"krume-backend/internal/usecase"
)

// CartHandler serves the signed-in user's cart. Every mutation answers with the
// recomputed cart and bill.
type CartHandler struct {
	cartUC *usecase.CartUsecase
}

func NewCartHandler(uc *usecase.CartUsecase) *CartHandler {
	return &CartHandler{cartUC: uc}
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		unauthorized(w)
		return
	}
	cart, err := h.cartUC.GetCart(r.Context(), user.ID)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "", cart)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		unauthorized(w)
		return
	}
	var req usecase.AddItemRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}

	cart, err := h.cartUC.AddItem(r.Context(), user.ID, req)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Item added to cart", cart)
}

func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		unauthorized(w)
		return
	}
	var req usecase.UpdateItemRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}

	cart, err := h.cartUC.UpdateItem(r.Context(), user.ID, r.PathValue("itemId"), req)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Cart updated", cart)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		unauthorized(w)
		return
	}
	cart, err := h.cartUC.RemoveItem(r.Context(), user.ID, r.PathValue("itemId"))
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Item removed from cart", cart)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		unauthorized(w)
		return
	}
	if err := h.cartUC.ClearCart(r.Context(), user.ID); err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Cart cleared", nil)
}

type applyCouponReq struct {
	Code string `json:"code"`
}

func (h *CartHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		unauthorized(w)
		return
	}
	var req applyCouponReq
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}

	cart, err := h.cartUC.ApplyCoupon(r.Context(), user.ID, req.Code)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Coupon applied", cart)
}

func (h *CartHandler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		unauthorized(w)
		return
	}
	cart, err := h.cartUC.RemoveCoupon(r.Context(), user.ID)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Coupon removed", cart)
}
