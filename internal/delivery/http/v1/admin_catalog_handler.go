package v1

import (
	"net/http"

	"krume-backend/internal/usecase"
)

type AdminCatalogHandler struct {
	catalogUC *usecase.CatalogUsecase
}

func NewAdminCatalogHandler(uc *usecase.CatalogUsecase) *AdminCatalogHandler {
	return &AdminCatalogHandler{catalogUC: uc}
}

// ListProducts includes inactive products unless isActive is given.
func (h *AdminCatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter := productFilter(r)
	switch r.URL.Query().Get("isActive") {
	case "true":
		t := true
		filter.IsActive = &t
	case "false":
		f := false
		filter.IsActive = &f
	}

	products, page, err := h.catalogUC.ListProducts(r.Context(), filter)
	if err != nil {
		fail(w, r, err)
		return
	}
	respondPage(w, products, page)
}

func (h *AdminCatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalogUC.GetProduct(r.Context(), r.PathValue("id"), true)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "", product)
}

func (h *AdminCatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var in usecase.ProductInput
	if err := decode(r, &in); err != nil {
		fail(w, r, err)
		return
	}

	product, err := h.catalogUC.CreateProduct(r.Context(), in)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusCreated, "Product created", product)
}

func (h *AdminCatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var in usecase.ProductInput
	if err := decode(r, &in); err != nil {
		fail(w, r, err)
		return
	}

	product, err := h.catalogUC.UpdateProduct(r.Context(), r.PathValue("id"), in)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Product updated", product)
}
