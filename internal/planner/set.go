package planner

import (
	"context"
	"sync"

	"dayplanner/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Set hands out one planner per authenticated owner. The first touch loads
// the owner's collection from the backend; sign-out drops the planner so the
// in-memory collection is discarded, not persisted-then-cleared.
type Set struct {
	mtx      sync.Mutex
	backend  Backend
	planners map[uuid.UUID]*Planner
}

func NewSet(backend Backend) *Set {
	return &Set{
		backend:  backend,
		planners: make(map[uuid.UUID]*Planner),
	}
}

func (s *Set) Get(ctx context.Context, ownerID uuid.UUID) (*Planner, error) {
	if ownerID == uuid.Nil {
		return nil, ErrUnauthenticated
	}

	s.mtx.Lock()
	p, ok := s.planners[ownerID]
	s.mtx.Unlock()
	if ok {
		return p, nil
	}

	p = New(ownerID, s.backend)
	if err := p.Load(ctx); err != nil {
		return nil, err
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()
	// Another request may have loaded the same owner concurrently; keep the
	// planner that got registered first.
	if existing, ok := s.planners[ownerID]; ok {
		return existing, nil
	}
	s.planners[ownerID] = p
	logger.Info("Planner: collection loaded", zap.String("owner_id", ownerID.String()))
	return p, nil
}

func (s *Set) Drop(ownerID uuid.UUID) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if _, ok := s.planners[ownerID]; ok {
		delete(s.planners, ownerID)
		logger.Info("Planner: collection discarded", zap.String("owner_id", ownerID.String()))
	}
}
