package v1

import (
	"net/http"

	"krume-backend/internal/domain"
	"krume-backend/internal/usecase"
	"krume-backend/pkg/utils"
)

// AdminCouponHandler handles admin coupon management endpoints.
type AdminCouponHandler struct {
	couponUC *usecase.CouponUsecase
}

// NewAdminCouponHandler creates a new AdminCouponHandler.
func NewAdminCouponHandler(uc *usecase.CouponUsecase) *AdminCouponHandler {
	return &AdminCouponHandler{couponUC: uc}
}

// ListCoupons returns paginated list of all coupons.
// GET /api/v1/admin/coupons?page=1&limit=20
func (h *AdminCouponHandler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	page := utils.ParseInt(r.URL.Query().Get("page"), 1)
	if page < 1 {
		page = 1
	}
	limit := utils.ParseInt(r.URL.Query().Get("limit"), 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}

	coupons, total, err := h.couponUC.ListCoupons(r.Context(), limit, (page-1)*limit)
	if err != nil {
		fail(w, r, err)
		return
	}
	respondPage(w, coupons, domain.NewPagination(page, limit, total))
}

// CreateCoupon creates a new coupon.
// POST /api/v1/admin/coupons
func (h *AdminCouponHandler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req usecase.CouponRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}

	coupon, err := h.couponUC.CreateCoupon(r.Context(), req)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusCreated, "Coupon created", coupon)
}

// GetCoupon returns a single coupon by ID.
// GET /api/v1/admin/coupons/{id}
func (h *AdminCouponHandler) GetCoupon(w http.ResponseWriter, r *http.Request) {
	coupon, err := h.couponUC.GetCoupon(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "", coupon)
}

// UpdateCoupon updates an existing coupon.
// PUT /api/v1/admin/coupons/{id}
func (h *AdminCouponHandler) UpdateCoupon(w http.ResponseWriter, r *http.Request) {
	var req usecase.CouponRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}

	coupon, err := h.couponUC.UpdateCoupon(r.Context(), r.PathValue("id"), req)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Coupon updated", coupon)
}

// DeleteCoupon deletes a coupon by ID.
// DELETE /api/v1/admin/coupons/{id}
func (h *AdminCouponHandler) DeleteCoupon(w http.ResponseWriter, r *http.Request) {
	if err := h.couponUC.DeleteCoupon(r.Context(), r.PathValue("id")); err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Coupon deleted", nil)
}
