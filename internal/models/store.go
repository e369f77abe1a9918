package models

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultAPIVersion is the Admin API version used when none is configured.
const DefaultAPIVersion = "2025-07"

// Store represents a Shopify store and the access token used to reach it.
type Store struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Domain      string     `json:"domain"` // "my-shop" or "my-shop.myshopify.com"
	Token       string     `json:"token,omitempty"`
	APIVersion  string     `json:"api_version"`
	PingStatus  string     `json:"ping_status"` // "unknown", "ok", "error"
	PingError   string     `json:"ping_error,omitempty"`
	ShopName    string     `json:"shop_name,omitempty"`
	LastChecked *time.Time `json:"last_checked,omitempty"`
}

// Handle returns the store handle without scheme or the myshopify.com suffix.
func (s *Store) Handle() string {
	h := strings.TrimSpace(s.Domain)
	h = strings.TrimPrefix(h, "https://")
	h = strings.TrimPrefix(h, "http://")
	h = strings.TrimRight(h, "/")
	return strings.TrimSuffix(h, ".myshopify.com")
}

// Endpoint returns the Admin GraphQL endpoint for this store.
func (s *Store) Endpoint() string {
	version := s.APIVersion
	if version == "" {
		version = DefaultAPIVersion
	}
	return fmt.Sprintf("https://%s.myshopify.com/admin/api/%s/graphql.json", s.Handle(), version)
}

// MaskedToken hides the access token for display.
func (s *Store) MaskedToken() string {
	if s.Token == "" {
		return ""
	}
	return "••••••••"
}

// StoreRegistry is an in-memory thread-safe registry of stores.
type StoreRegistry struct {
	mu     sync.RWMutex
	stores map[string]*Store
}

// NewStoreRegistry creates an empty store registry.
func NewStoreRegistry() *StoreRegistry {
	return &StoreRegistry{stores: make(map[string]*Store)}
}

// Create adds a new store, assigning it a UUID.
func (r *StoreRegistry) Create(s *Store) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.ID = uuid.New().String()
	if s.APIVersion == "" {
		s.APIVersion = DefaultAPIVersion
	}
	s.PingStatus = "unknown"
	r.stores[s.ID] = s
}

// Get returns a store by ID, or nil if not found.
func (r *StoreRegistry) Get(id string) *Store {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stores[id]
}

// Lookup returns a store by ID or, failing that, by name.
func (r *StoreRegistry) Lookup(ref string) *Store {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.stores[ref]; ok {
		return s
	}
	for _, s := range r.stores {
		if s.Name == ref {
			return s
		}
	}
	return nil
}

// List returns all stores.
func (r *StoreRegistry) List() []*Store {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*Store, 0, len(r.stores))
	for _, s := range r.stores {
		result = append(result, s)
	}
	return result
}

// Delete removes a store by ID.
func (r *StoreRegistry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.stores[id]; !ok {
		return false
	}
	delete(r.stores, id)
	return true
}

// SetHealth records the result of a connectivity check.
func (r *StoreRegistry) SetHealth(id, status, errMsg, shopName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stores[id]
	if !ok {
		return
	}
	now := time.Now()
	s.PingStatus = status
	s.PingError = errMsg
	if shopName != "" {
		s.ShopName = shopName
	}
	s.LastChecked = &now
}
