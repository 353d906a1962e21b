package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/theLastOfCats/storefront/internal/db"
	"github.com/theLastOfCats/storefront/internal/logger"
	"github.com/theLastOfCats/storefront/internal/model"
)

type FavouriteHandler struct {
	DB *db.DB
}

func (h *FavouriteHandler) List(w http.ResponseWriter, r *http.Request, userID string) {
	q := r.URL.Query()
	page, limit := pageParams(r)

	query := db.FavouriteQuery{
		Page:      page,
		Limit:     limit,
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	}
	if pt := q.Get("productType"); pt != "" {
		c, err := model.ParseCatalog(pt)
		if err != nil {
			JSONError(w, err.Error(), CodeInvalidInput, http.StatusBadRequest)
			return
		}
		query.Catalog = c
	}

	entries, pagination, err := h.DB.ListFavourites(userID, query)
	if err != nil {
		internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, model.FavouriteList{Products: entries, Pagination: pagination})
}

func (h *FavouriteHandler) Toggle(w http.ResponseWriter, r *http.Request, userID string) {
	var req model.ToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, "Invalid request body", CodeInvalidInput, http.StatusBadRequest)
		return
	}

	ref, err := req.Ref()
	if err != nil {
		JSONError(w, err.Error(), CodeInvalidInput, http.StatusBadRequest)
		return
	}

	added, favouriteID, err := h.DB.ToggleFavourite(r.Context(), userID, ref)
	if errors.Is(err, db.ErrNotFound) {
		JSONError(w, "Product not found", CodeNotFound, http.StatusNotFound)
		return
	}
	if err != nil {
		internalError(w, r, err)
		return
	}

	resp := model.ToggleResponse{IsFavourite: added, FavouriteID: favouriteID}
	if added {
		resp.Action = model.ActionAdded
		resp.Message = "Added to favourites"
	} else {
		resp.Action = model.ActionRemoved
		resp.Message = "Removed from favourites"
	}

	logger.Logger.Debug().Str("user_id", userID).Str("product", ref.Key()).Str("action", string(resp.Action)).Msg("favourite toggled")
	writeJSON(w, http.StatusOK, resp)
}

func (h *FavouriteHandler) Check(w http.ResponseWriter, r *http.Request, userID string) {
	q := r.URL.Query()
	ref, err := model.RefOf(q.Get("productType"), q.Get("productId"))
	if err != nil || ref.ID == "" {
		JSONError(w, "productType and productId are required", CodeInvalidInput, http.StatusBadRequest)
		return
	}

	_, err = h.DB.FindFavourite(userID, ref)
	switch {
	case errors.Is(err, db.ErrNotFound):
		writeJSON(w, http.StatusOK, model.CheckResponse{IsFavourite: false})
	case err != nil:
		internalError(w, r, err)
	default:
		writeJSON(w, http.StatusOK, model.CheckResponse{IsFavourite: true})
	}
}
