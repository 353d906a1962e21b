package api

import (
	"net/http"
	"strconv"

	"github.com/theLastOfCats/storefront/internal/db"
	"github.com/theLastOfCats/storefront/internal/model"
)

const defaultNewLimit = 6

// Public catalog routes and what backs them.
var (
	productRoutes = map[string]model.Catalog{
		"products":    model.CatalogProduct,
		"productnndt": model.CatalogNNDT,
		"productctgd": model.CatalogCTGD,
	}
	postRoutes = []string{"bsct", "thuvien"}
)

type CatalogHandler struct {
	DB *db.DB
}

func pageParams(r *http.Request) (int, int) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = model.DefaultLimit
	}
	if limit > model.MaxLimit {
		limit = model.MaxLimit
	}
	return page, limit
}

func listFilter(r *http.Request) db.ListFilter {
	page, limit := pageParams(r)
	return db.ListFilter{
		Search:     r.URL.Query().Get("search"),
		CategoryID: r.URL.Query().Get("category"),
		Page:       page,
		Limit:      limit,
	}
}

func newLimit(r *http.Request) int {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		return defaultNewLimit
	}
	return min(limit, model.MaxLimit)
}

func (h *CatalogHandler) ListProducts(catalog model.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, page, err := h.DB.ListProducts(catalog, listFilter(r))
		if err != nil {
			internalError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, model.ListPage[model.Product]{Items: items, Pagination: page})
	}
}

func (h *CatalogHandler) NewProducts(catalog model.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := h.DB.NewProducts(catalog, newLimit(r))
		if err != nil {
			internalError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	}
}

func (h *CatalogHandler) ListPosts(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, page, err := h.DB.ListPosts(kind, listFilter(r))
		if err != nil {
			internalError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, model.ListPage[model.Post]{Items: items, Pagination: page})
	}
}

func (h *CatalogHandler) NewPosts(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := h.DB.NewPosts(kind, newLimit(r))
		if err != nil {
			internalError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	}
}

func (h *CatalogHandler) ListSlides(w http.ResponseWriter, r *http.Request) {
	items, page, err := h.DB.ListSlides(listFilter(r))
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.ListPage[model.Slide]{Items: items, Pagination: page})
}

func (h *CatalogHandler) NewSlides(w http.ResponseWriter, r *http.Request) {
	items, _, err := h.DB.ListSlides(db.ListFilter{Page: 1, Limit: newLimit(r)})
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// Categories lists the categories keyed by the route name. Slides have none.
func (h *CatalogHandler) Categories(catalog string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := h.DB.ListCategories(catalog)
		if err != nil {
			internalError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
	}
}
