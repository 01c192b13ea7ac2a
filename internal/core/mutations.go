package core

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/lakshya1112/Buyer-lead-app/internal/logging"
)

// UpdateResult describes the outcome of a successful Update.
type UpdateResult struct {
	Lead    Lead      `json:"lead"`
	Changes ChangeSet `json:"changes"`
	Changed bool      `json:"changed"`
}

// Create validates row and stores it as a new lead owned by the actor,
// together with its "Created" history entry.
func (s *Service) Create(ctx context.Context, row RawRow) (Lead, error) {
	lead, err := s.create(ctx, row)
	s.metrics.observeMutation("create", err)
	return lead, err
}

func (s *Service) create(ctx context.Context, row RawRow) (Lead, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return Lead{}, err
	}
	v, err := Validate(row)
	if err != nil {
		return Lead{}, err
	}

	now := s.timestamp(time.Time{})
	lead := v.newLead(actor, now)
	entry := NewCreatedEntry(lead, actor, now)

	if _, err := withStore(s, "create", func() (struct{}, error) {
		return struct{}{}, s.store.CreateWithHistory(ctx, lead, entry)
	}); err != nil {
		return Lead{}, err
	}

	logging.WithFields(ctx, "lead_id", lead.ID, "actor", actor.ID).Info("lead created")
	return lead, nil
}

// newLead turns a validated candidate into a fresh record.
func (v ValidatedLead) newLead(actor Actor, at time.Time) Lead {
	lead := v.lead
	lead.ID = uuid.New()
	lead.OwnerID = actor.ID
	lead.Status = StatusNew
	lead.Tags = []string{}
	lead.UpdatedAt = at
	return lead
}

// Update applies row to the lead with the given id.
//
// expectedUpdatedAt is the UpdatedAt the caller last read. If the stored
// lead is newer by more than ConflictTolerance the call fails with
// ErrConflict. Fields absent from row are left unchanged. When nothing
// changes, no write happens and Changed is false.
func (s *Service) Update(ctx context.Context, id uuid.UUID, row RawRow, expectedUpdatedAt time.Time) (UpdateResult, error) {
	res, err := s.update(ctx, id, row, expectedUpdatedAt)
	s.metrics.observeMutation("update", err)
	return res, err
}

func (s *Service) update(ctx context.Context, id uuid.UUID, row RawRow, expectedUpdatedAt time.Time) (UpdateResult, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return UpdateResult{}, err
	}
	v, err := Validate(row)
	if err != nil {
		return UpdateResult{}, err
	}

	current, err := withStore(s, "find_by_id", func() (Lead, error) {
		return s.store.FindByID(ctx, id)
	})
	if err != nil {
		return UpdateResult{}, err
	}
	if current.OwnerID != actor.ID {
		return UpdateResult{}, ErrForbidden
	}
	if IsStale(expectedUpdatedAt, current.UpdatedAt) {
		return UpdateResult{}, ErrConflict
	}

	changes := Diff(current, v)
	if len(changes) == 0 {
		return UpdateResult{Lead: current}, nil
	}

	// A partial candidate can pass on its own and still break the budget
	// ordering once merged with the stored values.
	next := ApplyChanges(current, changes)
	if !IsValidBudget(next.BudgetMin, next.BudgetMax) {
		return UpdateResult{}, ValidationErrors{{
			Field:   FieldBudgetMax,
			Value:   strconv.Itoa(*next.BudgetMax),
			Message: msgBudgetOrder,
		}}
	}

	now := s.timestamp(current.UpdatedAt)
	entry := NewChangeEntry(id, changes, actor, now)
	update := LeadUpdate{
		ID:           id,
		Precondition: Precondition{UpdatedAt: current.UpdatedAt, OwnerID: actor.ID},
		Changes:      changes,
		UpdatedAt:    now,
	}

	updated, err := withStore(s, "update", func() (Lead, error) {
		return s.store.UpdateWithHistory(ctx, update, entry)
	})
	if err != nil {
		return UpdateResult{}, err
	}

	logging.WithFields(ctx, "lead_id", id, "actor", actor.ID).Info("lead updated", "fields", changes.Fields())
	return UpdateResult{Lead: updated, Changes: changes, Changed: true}, nil
}

// IsStale reports whether a caller holding expected is too far behind current.
func IsStale(expected, current time.Time) bool {
	return expected.Before(current.Add(-ConflictTolerance))
}
