// Package devserver is a self-contained stand-in for the production
// backend: the websocket fan-out plus the REST subset the client
// packages talk to. It keeps everything in memory and exists for local
// development and integration tests.
package devserver

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sharat789/steam-bazaar-fev2/internal/models"
)

// Store is the in-memory session and product catalog.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*models.SessionWithCreator
	products map[string]*models.Product
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*models.SessionWithCreator),
		products: make(map[string]*models.Product),
	}
}

// Seed loads a demo catalog and one scheduled session so a freshly
// started server is immediately usable.
func (s *Store) Seed() {
	now := time.Now()
	original := 129.99
	demo := []models.Product{
		{ID: "p-sneaker", Name: "Retro Runner Sneaker", Description: "Limited colorway", Price: 89.99, OriginalPrice: &original, Category: "footwear", InStock: true, CreatedAt: now, UpdatedAt: now},
		{ID: "p-hoodie", Name: "Oversize Logo Hoodie", Price: 59.00, Category: "apparel", InStock: true, CreatedAt: now, UpdatedAt: now},
		{ID: "p-cap", Name: "Corduroy Cap", Price: 24.50, Category: "accessories", InStock: false, CreatedAt: now, UpdatedAt: now},
	}
	session := &models.SessionWithCreator{
		Session: models.Session{
			ID:        "demo-session",
			Title:     "Friday Drop",
			Status:    models.StatusScheduled,
			CreatorID: "1",
			CreatedAt: now,
			UpdatedAt: now,
			Products:  demo,
		},
		Creator: models.SessionCreator{ID: "1", Username: "demo-creator", Email: "creator@example.com"},
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range demo {
		p := demo[i]
		s.products[p.ID] = &p
	}
	s.sessions[session.ID] = session
}

// GetSession returns a copy of the session, or an error if unknown.
func (s *Store) GetSession(id string) (*models.SessionWithCreator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s not found", id)
	}
	cp := *sess
	return &cp, nil
}

// ListSessions returns all sessions, optionally filtered by creator.
func (s *Store) ListSessions(creatorID string) []models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		if creatorID != "" && sess.CreatorID != creatorID {
			continue
		}
		out = append(out, sess.Session)
	}
	return out
}

// CreateSession adds a new scheduled session and returns it.
func (s *Store) CreateSession(title, description, category string, tags, productIDs []string) *models.SessionWithCreator {
	now := time.Now()
	sess := &models.SessionWithCreator{
		Session: models.Session{
			ID:          uuid.NewString(),
			Title:       title,
			Description: description,
			Category:    category,
			Tags:        tags,
			Status:      models.StatusScheduled,
			CreatorID:   "1",
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		Creator: models.SessionCreator{ID: "1", Username: "demo-creator", Email: "creator@example.com"},
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, pid := range productIDs {
		if p, ok := s.products[pid]; ok {
			sess.Products = append(sess.Products, *p)
		}
	}
	s.sessions[sess.ID] = sess
	return sess
}

// SetStatus transitions a session's lifecycle status.
func (s *Store) SetStatus(id string, status models.SessionStatus) (*models.SessionWithCreator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s not found", id)
	}
	now := time.Now()
	sess.Status = status
	sess.UpdatedAt = now
	switch status {
	case models.StatusLive:
		if sess.StartedAt == nil {
			sess.StartedAt = &now
		}
	case models.StatusEnded:
		sess.EndedAt = &now
		sess.ActiveProductID = nil
	}
	cp := *sess
	return &cp, nil
}

// DeleteSession removes a session.
func (s *Store) DeleteSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("session %s not found", id)
	}
	delete(s.sessions, id)
	return nil
}

// SetActiveProduct records the showcased product on the session, nil to
// clear. Returns the product when one is being set.
func (s *Store) SetActiveProduct(sessionID string, productID *string) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %s not found", sessionID)
	}
	if productID == nil {
		sess.ActiveProductID = nil
		return nil, nil
	}
	p, ok := s.products[*productID]
	if !ok {
		return nil, fmt.Errorf("product %s not found", *productID)
	}
	sess.ActiveProductID = productID
	cp := *p
	return &cp, nil
}

// GetProduct returns a copy of the product.
func (s *Store) GetProduct(id string) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return nil, fmt.Errorf("product %s not found", id)
	}
	cp := *p
	return &cp, nil
}

// ListProducts returns the catalog.
func (s *Store) ListProducts() []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, *p)
	}
	return out
}

// PutProduct creates or replaces a product. A missing ID gets one.
func (s *Store) PutProduct(p models.Product) models.Product {
	now := time.Now()
	if p.ID == "" {
		p.ID = uuid.NewString()
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = &p
	return p
}

// DeleteProduct removes a product.
func (s *Store) DeleteProduct(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return fmt.Errorf("product %s not found", id)
	}
	delete(s.products, id)
	return nil
}
