package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rflorenc/shopify-metadata-migrator/internal/models"
	"github.com/rflorenc/shopify-metadata-migrator/internal/platform"
)

// storeView is a store as returned by the API. The token is masked.
type storeView struct {
	models.Store
	Token string `json:"token,omitempty"`
}

func viewStore(s *models.Store) storeView {
	return storeView{Store: *s, Token: s.MaskedToken()}
}

func (s *Server) CreateStore(w http.ResponseWriter, r *http.Request) {
	var store models.Store
	if err := json.NewDecoder(r.Body).Decode(&store); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if store.Domain == "" {
		writeError(w, http.StatusBadRequest, "domain is required")
		return
	}
	if store.Token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}
	if store.Name == "" {
		store.Name = store.Handle()
	}
	if store.APIVersion != "" {
		if err := platform.ValidateAPIVersion(store.APIVersion); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	s.Stores.Create(&store)
	s.Logger.Infow("store registered", "name", store.Name, "domain", store.Handle())
	writeJSON(w, http.StatusCreated, viewStore(&store))
}

func (s *Server) ListStores(w http.ResponseWriter, r *http.Request) {
	stores := s.Stores.List()
	views := make([]storeView, 0, len(stores))
	for _, st := range stores {
		views = append(views, viewStore(st))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) DeleteStore(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.Stores.Delete(id) {
		writeError(w, http.StatusNotFound, "store not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) TestStore(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	store := s.Stores.Get(id)
	if store == nil {
		writeError(w, http.StatusNotFound, "store not found")
		return
	}
	if !platform.CheckAndStore(r.Context(), s.platformFor(store, s.Logger), store, s.Stores, s.Logger) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ok":    false,
			"error": s.Stores.Get(id).PingError,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":        true,
		"shop_name": s.Stores.Get(id).ShopName,
	})
}
