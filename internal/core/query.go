package core

import (
	"context"

	"github.com/google/uuid"
)

// Get returns one lead. Any authenticated actor may read any lead.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Lead, error) {
	if _, err := requireActor(ctx); err != nil {
		return Lead{}, err
	}
	return withStore(s, "find_by_id", func() (Lead, error) {
		return s.store.FindByID(ctx, id)
	})
}

// List returns one page of leads matching filter, newest first.
// page is 1-based; out-of-range sizes fall back to DefaultPageSize or MaxPageSize.
func (s *Service) List(ctx context.Context, filter ListFilter, page, pageSize int) (LeadPage, error) {
	if _, err := requireActor(ctx); err != nil {
		return LeadPage{}, err
	}
	if page < 1 {
		page = 1
	}
	switch {
	case pageSize <= 0:
		pageSize = DefaultPageSize
	case pageSize > MaxPageSize:
		pageSize = MaxPageSize
	}

	total, err := withStore(s, "count", func() (int, error) {
		return s.store.Count(ctx, filter)
	})
	if err != nil {
		return LeadPage{}, err
	}

	items, err := withStore(s, "find_many", func() ([]Lead, error) {
		return s.store.FindMany(ctx, filter, PageRequest{Limit: pageSize, Offset: (page - 1) * pageSize})
	})
	if err != nil {
		return LeadPage{}, err
	}
	if items == nil {
		items = []Lead{}
	}

	return LeadPage{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}, nil
}

// History returns the newest entries for a lead.
func (s *Service) History(ctx context.Context, id uuid.UUID, limit int) ([]HistoryEntry, error) {
	if _, err := requireActor(ctx); err != nil {
		return nil, err
	}
	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return withStore(s, "list_history", func() ([]HistoryEntry, error) {
		return s.store.ListHistory(ctx, id, limit)
	})
}
