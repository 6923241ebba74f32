package main

import (
	"sync"
	"time"

	"github.com/Simplici0/partquote/internal/cart"
	"github.com/Simplici0/partquote/internal/registry"
)

// cartSession owns the cart of one login. Handlers hold mu for the whole
// request so a session has a single writer.
type cartSession struct {
	mu       sync.Mutex
	cart     *cart.Cart
	lastUsed time.Time
}

type cartStore struct {
	mu       sync.Mutex
	reg      *registry.Registry
	opts     []cart.Option
	sessions map[string]*cartSession
	idleTTL  time.Duration
	now      func() time.Time
}

func newCartStore(reg *registry.Registry, idleTTL time.Duration, opts ...cart.Option) *cartStore {
	return &cartStore{
		reg:      reg,
		opts:     opts,
		sessions: make(map[string]*cartSession),
		idleTTL:  idleTTL,
		now:      time.Now,
	}
}

// acquire returns the locked session for id, creating an empty cart on
// first use. The caller must call release.
func (s *cartStore) acquire(id string) *cartSession {
	s.mu.Lock()
	cs, ok := s.sessions[id]
	if !ok {
		cs = &cartSession{cart: cart.New(s.reg, s.opts...)}
		s.sessions[id] = cs
	}
	cs.lastUsed = s.now()
	s.mu.Unlock()

	cs.mu.Lock()
	return cs
}

func (cs *cartSession) release() {
	cs.mu.Unlock()
}

func (s *cartStore) drop(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// sweep drops carts idle for longer than the store's TTL and returns how
// many were dropped.
func (s *cartStore) sweep() int {
	if s.idleTTL <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()
	dropped := 0
	for id, cs := range s.sessions {
		if cs.lastUsed.Before(cutoff) {
			delete(s.sessions, id)
			dropped++
		}
	}
	return dropped
}

func (s *cartStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
