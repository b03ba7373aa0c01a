package memory

import (
	"sync"

	"diachron/internal/domain"
	perr "diachron/internal/platform/errors"
	"diachron/internal/resultstore"
)

// Storage keeps run matrices in process memory, in save order.
type Storage struct {
	mu   sync.RWMutex
	runs []*domain.Runs
}

var _ domain.RunStore = (*Storage)(nil)

func NewStorage() *Storage { return &Storage{} }

func (s *Storage) Save(runs *domain.Runs) (string, error) {
	if err := resultstore.Prepare(runs); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.runs {
		if r.ID == runs.ID {
			s.runs[i] = resultstore.Clone(runs)
			return runs.ID, nil
		}
	}
	s.runs = append(s.runs, resultstore.Clone(runs))
	return runs.ID, nil
}

func (s *Storage) Load(id string) (*domain.Runs, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.runs {
		if r.ID == id {
			return resultstore.Clone(r), nil
		}
	}
	return nil, perr.NotFoundf("runs %s not found", id)
}

func (s *Storage) Latest(variant domain.Variant) (*domain.Runs, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.runs) - 1; i >= 0; i-- {
		if s.runs[i].Variant == variant {
			return resultstore.Clone(s.runs[i]), nil
		}
	}
	return nil, perr.NotFoundf("no %s runs stored", variant)
}

func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = nil
	return nil
}
