package core

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store is the persistence collaborator for leads and their history.
//
// The *WithHistory methods are atomic: the lead write and the history
// append are both visible or neither is. Infrastructure failures are
// returned as *PersistenceError.
type Store interface {
	// FindByID returns ErrNotFound when no lead has the id.
	FindByID(ctx context.Context, id uuid.UUID) (Lead, error)

	// FindMany returns leads matching filter ordered by UpdatedAt descending.
	FindMany(ctx context.Context, filter ListFilter, page PageRequest) ([]Lead, error)

	Count(ctx context.Context, filter ListFilter) (int, error)

	CreateWithHistory(ctx context.Context, lead Lead, entry HistoryEntry) error

	// CreateBatchWithHistory inserts every lead and entry in one unit.
	CreateBatchWithHistory(ctx context.Context, batch []NewLead) error

	// UpdateWithHistory applies u only if the stored lead still matches
	// u.Precondition, checked in the same operation as the write. When it
	// does not match, the result is ErrNotFound, ErrForbidden or ErrConflict.
	UpdateWithHistory(ctx context.Context, u LeadUpdate, entry HistoryEntry) (Lead, error)

	// ListHistory returns entries for a lead, newest first.
	ListHistory(ctx context.Context, leadID uuid.UUID, limit int) ([]HistoryEntry, error)
}

// NewLead pairs a lead with its creation entry for batch inserts.
type NewLead struct {
	Lead  Lead
	Entry HistoryEntry
}

// Precondition is what the stored lead must still look like for an update
// to apply.
type Precondition struct {
	UpdatedAt time.Time
	OwnerID   string
}

// LeadUpdate is a patch against one lead.
type LeadUpdate struct {
	ID           uuid.UUID
	Precondition Precondition
	Changes      ChangeSet
	UpdatedAt    time.Time
}
