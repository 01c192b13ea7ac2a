// Package memory provides an in-process core.Store.
//
// Every write runs against a cloned copy of the state that is swapped in
// only when the whole operation succeeds, so the lead and its history
// entry are visible together or not at all. It backs tests and local runs
// without Postgres (STORE_DRIVER=memory).
package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/lakshya1112/Buyer-lead-app/internal/core"
)

var errDuplicateKey = errors.New(`duplicate key value violates unique constraint "leads_pkey"`)

type state struct {
	leads   map[uuid.UUID]core.Lead
	history map[uuid.UUID][]core.HistoryEntry
}

func (s state) clone() state {
	cp := state{
		leads:   make(map[uuid.UUID]core.Lead, len(s.leads)),
		history: make(map[uuid.UUID][]core.HistoryEntry, len(s.history)),
	}
	for id, l := range s.leads {
		cp.leads[id] = l
	}
	for id, h := range s.history {
		cp.history[id] = append([]core.HistoryEntry(nil), h...)
	}
	return cp
}

// Store is a mutex-guarded in-memory core.Store.
type Store struct {
	mu    sync.RWMutex
	state state

	// historyErr, when set, fails every history append after the lead
	// write has been staged.
	historyErr error
}

// New returns an empty store.
func New() *Store {
	return &Store{state: state{
		leads:   make(map[uuid.UUID]core.Lead),
		history: make(map[uuid.UUID][]core.HistoryEntry),
	}}
}

// FailHistoryAppends makes later history appends fail with err.
// Pass nil to restore normal behaviour.
func (s *Store) FailHistoryAppends(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.historyErr = err
}

// runInTx applies fn to a copy of the state and keeps it only if fn succeeds.
func (s *Store) runInTx(ctx context.Context, fn func(tx *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.state.clone()
	if err := fn(&tx); err != nil {
		return err
	}
	s.state = tx
	return nil
}

func (s *Store) appendHistory(tx *state, e core.HistoryEntry) error {
	if s.historyErr != nil {
		return core.NewPersistenceError("append history", s.historyErr)
	}
	tx.history[e.LeadID] = append(tx.history[e.LeadID], e)
	return nil
}

func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (core.Lead, error) {
	if err := ctx.Err(); err != nil {
		return core.Lead{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.state.leads[id]
	if !ok {
		return core.Lead{}, core.ErrNotFound
	}
	return cloneLead(l), nil
}

func (s *Store) FindMany(ctx context.Context, filter core.ListFilter, page core.PageRequest) ([]core.Lead, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	matches := s.match(filter)

	if page.Offset >= len(matches) {
		return []core.Lead{}, nil
	}
	end := len(matches)
	if page.Limit > 0 && page.Offset+page.Limit < end {
		end = page.Offset + page.Limit
	}
	return matches[page.Offset:end], nil
}

func (s *Store) Count(ctx context.Context, filter core.ListFilter) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return len(s.match(filter)), nil
}

func (s *Store) match(f core.ListFilter) []core.Lead {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(f.Search))
	var out []core.Lead
	for _, l := range s.state.leads {
		if f.City != "" && l.City != f.City {
			continue
		}
		if f.PropertyType != "" && l.PropertyType != f.PropertyType {
			continue
		}
		if f.Status != "" && l.Status != f.Status {
			continue
		}
		if f.Timeline != "" && l.Timeline != f.Timeline {
			continue
		}
		if search != "" && !matchesSearch(l, search) {
			continue
		}
		out = append(out, cloneLead(l))
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func matchesSearch(l core.Lead, needle string) bool {
	if strings.Contains(strings.ToLower(l.FullName), needle) || strings.Contains(l.Phone, needle) {
		return true
	}
	return l.Email != nil && strings.Contains(strings.ToLower(*l.Email), needle)
}

func (s *Store) CreateWithHistory(ctx context.Context, lead core.Lead, entry core.HistoryEntry) error {
	return s.runInTx(ctx, func(tx *state) error {
		return s.insert(tx, lead, entry)
	})
}

func (s *Store) CreateBatchWithHistory(ctx context.Context, batch []core.NewLead) error {
	return s.runInTx(ctx, func(tx *state) error {
		for _, n := range batch {
			if err := s.insert(tx, n.Lead, n.Entry); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) insert(tx *state, lead core.Lead, entry core.HistoryEntry) error {
	if _, exists := tx.leads[lead.ID]; exists {
		return core.NewPersistenceError("insert lead", errDuplicateKey)
	}
	tx.leads[lead.ID] = cloneLead(lead)
	return s.appendHistory(tx, entry)
}

func (s *Store) UpdateWithHistory(ctx context.Context, u core.LeadUpdate, entry core.HistoryEntry) (core.Lead, error) {
	var updated core.Lead
	err := s.runInTx(ctx, func(tx *state) error {
		current, ok := tx.leads[u.ID]
		switch {
		case !ok:
			return core.ErrNotFound
		case current.OwnerID != u.Precondition.OwnerID:
			return core.ErrForbidden
		case !current.UpdatedAt.Equal(u.Precondition.UpdatedAt):
			return core.ErrConflict
		}

		next := core.ApplyChanges(current, u.Changes)
		next.UpdatedAt = u.UpdatedAt
		tx.leads[u.ID] = next
		updated = cloneLead(next)

		return s.appendHistory(tx, entry)
	})
	if err != nil {
		return core.Lead{}, err
	}
	return updated, nil
}

func (s *Store) ListHistory(ctx context.Context, leadID uuid.UUID, limit int) ([]core.HistoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.state.history[leadID]
	out := make([]core.HistoryEntry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, entries[i])
	}
	return out, nil
}

func cloneLead(l core.Lead) core.Lead {
	cp := l
	cp.Tags = append([]string{}, l.Tags...)
	return cp
}
