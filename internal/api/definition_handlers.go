package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rflorenc/shopify-metadata-migrator/internal/migration"
)

// ListMetaobjectDefinitions returns the first page of a store's metaobject definitions.
func (s *Server) ListMetaobjectDefinitions(w http.ResponseWriter, r *http.Request) {
	store := s.Stores.Get(chi.URLParam(r, "id"))
	if store == nil {
		writeError(w, http.StatusNotFound, "store not found")
		return
	}
	page, err := s.platformFor(store, s.Logger).MetaobjectDefinitions(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"definitions":   nonNil(page.Definitions),
		"has_next_page": page.HasNextPage,
	})
}

// ListMetafieldDefinitions returns the first page of a store's metafield
// definitions for one owner type.
func (s *Server) ListMetafieldDefinitions(w http.ResponseWriter, r *http.Request) {
	store := s.Stores.Get(chi.URLParam(r, "id"))
	if store == nil {
		writeError(w, http.StatusNotFound, "store not found")
		return
	}
	ownerTypes := migration.ParseOwnerTypes(chi.URLParam(r, "ownerType"))
	opts := migration.Options{MigrateMetafields: true, OwnerTypes: ownerTypes}
	if len(ownerTypes) != 1 {
		writeError(w, http.StatusBadRequest, "exactly one owner type is required")
		return
	}
	if err := opts.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, err := s.platformFor(store, s.Logger).MetafieldDefinitions(r.Context(), ownerTypes[0])
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"owner_type":    ownerTypes[0],
		"definitions":   nonNil(page.Definitions),
		"has_next_page": page.HasNextPage,
	})
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
