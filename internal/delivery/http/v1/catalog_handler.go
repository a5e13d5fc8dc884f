package v1

import (
	"net/http"

	"krume-backend/internal/domain"
	"krume-backend/internal/usecase"
	"krume-backend/pkg/utils"
)

type CatalogHandler struct {
	catalogUC *usecase.CatalogUsecase
}

func NewCatalogHandler(uc *usecase.CatalogUsecase) *CatalogHandler {
	return &CatalogHandler{catalogUC: uc}
}

// productFilter reads category, q, page and limit from the query string.
func productFilter(r *http.Request) domain.ProductFilter {
	query := r.URL.Query()
	limit := utils.ParseInt(query.Get("limit"), 20)
	if limit <= 0 {
		limit = 20
	}
	page := utils.ParseInt(query.Get("page"), 1)
	if page <= 0 {
		page = 1
	}
	return domain.ProductFilter{
		Category: query.Get("category"),
		Query:    query.Get("q"),
		Limit:    limit,
		Offset:   (page - 1) * limit,
	}
}

func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter := productFilter(r)
	active := true
	filter.IsActive = &active

	products, page, err := h.catalogUC.ListProducts(r.Context(), filter)
	if err != nil {
		fail(w, r, err)
		return
	}
	respondPage(w, products, page)
}

func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalogUC.GetProduct(r.Context(), r.PathValue("id"), false)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "", product)
}
