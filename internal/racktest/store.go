package racktest

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/JaimeStill/racksmith/internal/analysis"
	"github.com/JaimeStill/racksmith/internal/racks"
	"github.com/JaimeStill/racksmith/pkg/chains"
	"github.com/JaimeStill/racksmith/pkg/compliance"
	"github.com/JaimeStill/racksmith/pkg/pagination"
)

// Store is an in-memory analysis.Store. Saves counts calls to Save.
type Store struct {
	mu      sync.Mutex
	results map[uuid.UUID]analysis.Result
	chains  map[uuid.UUID][]chains.Chain
	Saves   int
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		results: make(map[uuid.UUID]analysis.Result),
		chains:  make(map[uuid.UUID][]chains.Chain),
	}
}

func (s *Store) Current(_ context.Context, rackID uuid.UUID) (*analysis.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.results[rackID]
	if !ok {
		return nil, analysis.ErrNotAnalyzed
	}
	return &r, nil
}

func (s *Store) Save(_ context.Context, r *analysis.Result, list []chains.Chain) (*analysis.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Saves++
	saved := *r
	if prev, ok := s.results[r.RackID]; ok {
		saved.ID = prev.ID
	}
	s.results[r.RackID] = saved
	if list != nil {
		s.chains[r.RackID] = slices.Clone(list)
	}
	return &saved, nil
}

func (s *Store) Chains(_ context.Context, rackID uuid.UUID) ([]chains.Chain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.chains[rackID]), nil
}

func (s *Store) Chain(_ context.Context, rackID uuid.UUID, identifier string) (*chains.Chain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := chains.Find(s.chains[rackID], identifier)
	if !ok {
		return nil, fmt.Errorf("%w: %s", analysis.ErrChainNotFound, identifier)
	}
	return &c, nil
}

func (s *Store) List(
	_ context.Context,
	page pagination.PageRequest,
	filters analysis.Filters,
) (*pagination.PageResult[analysis.Result], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []analysis.Result
	for _, r := range s.results {
		if filters.Status != nil && string(r.Status) != *filters.Status {
			continue
		}
		if filters.Compliant != nil && r.Compliant != *filters.Compliant {
			continue
		}
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b analysis.Result) int {
		return cmp.Compare(a.RackID.String(), b.RackID.String())
	})

	result := pagination.NewPageResult(out, len(out), page.Page, page.PageSize)
	return &result, nil
}

// Policy is a fixed analysis.Policies.
type Policy compliance.Policy

func (p Policy) Current() compliance.Policy {
	return compliance.Policy(p)
}

// Authorizer allows every rack except those listed in Denied, which fail
// with racks.ErrForbidden.
type Authorizer struct {
	Denied map[uuid.UUID]bool
}

func (a Authorizer) Authorize(_ context.Context, _ racks.Principal, ids []uuid.UUID) error {
	for _, id := range ids {
		if a.Denied[id] {
			return fmt.Errorf("%w: %s", racks.ErrForbidden, id)
		}
	}
	return nil
}
