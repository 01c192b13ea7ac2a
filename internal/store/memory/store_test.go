package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakshya1112/Buyer-lead-app/internal/core"
)

var base = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func newLead(name string, at time.Time) core.Lead {
	return core.Lead{
		ID:           uuid.New(),
		FullName:     name,
		Phone:        "9812345678",
		City:         core.CityMohali,
		PropertyType: core.PropertyPlot,
		Purpose:      core.PurposeBuy,
		Timeline:     core.TimelineExploring,
		Source:       core.SourceCall,
		Status:       core.StatusNew,
		Tags:         []string{},
		OwnerID:      "agent-1",
		UpdatedAt:    at,
	}
}

func seed(t *testing.T, s *Store, leads ...core.Lead) {
	t.Helper()
	for _, l := range leads {
		require.NoError(t, s.CreateWithHistory(context.Background(), l, core.NewCreatedEntry(l, core.Actor{ID: l.OwnerID}, l.UpdatedAt)))
	}
}

func statusUpdate(l core.Lead, owner string, at time.Time) core.LeadUpdate {
	return core.LeadUpdate{
		ID:           l.ID,
		Precondition: core.Precondition{UpdatedAt: l.UpdatedAt, OwnerID: owner},
		Changes:      core.ChangeSet{{Field: core.FieldStatus, Old: string(l.Status), New: string(core.StatusContacted)}},
		UpdatedAt:    at,
	}
}

func TestUpdateWithHistory(t *testing.T) {
	ctx := context.Background()
	s := New()
	lead := newLead("Asha Rao", base)
	seed(t, s, lead)

	later := base.Add(time.Minute)
	u := statusUpdate(lead, "agent-1", later)
	got, err := s.UpdateWithHistory(ctx, u, core.NewChangeEntry(lead.ID, u.Changes, core.Actor{ID: "agent-1"}, later))
	require.NoError(t, err)
	assert.Equal(t, core.StatusContacted, got.Status)
	assert.True(t, got.UpdatedAt.Equal(later))

	history, err := s.ListHistory(ctx, lead.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.False(t, history[0].IsCreation(), "newest first")
	assert.True(t, history[1].IsCreation())

	_, err = s.UpdateWithHistory(ctx, u, core.HistoryEntry{LeadID: lead.ID})
	assert.ErrorIs(t, err, core.ErrConflict, "reusing the old timestamp must fail")
}

func TestUpdateWithHistory_Preconditions(t *testing.T) {
	s := New()
	lead := newLead("Asha Rao", base)
	seed(t, s, lead)

	stale := statusUpdate(lead, "agent-1", base)
	stale.Precondition.UpdatedAt = base.Add(-time.Second)

	tests := []struct {
		name    string
		update  core.LeadUpdate
		wantErr error
	}{
		{"unknown lead", statusUpdate(newLead("Ghost", base), "agent-1", base), core.ErrNotFound},
		{"other owner", statusUpdate(lead, "agent-2", base), core.ErrForbidden},
		{"stale timestamp", stale, core.ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.UpdateWithHistory(context.Background(), tt.update, core.HistoryEntry{LeadID: tt.update.ID})
			assert.ErrorIs(t, err, tt.wantErr)

			stored, err := s.FindByID(context.Background(), lead.ID)
			require.NoError(t, err)
			assert.Equal(t, core.StatusNew, stored.Status)
		})
	}
}

func TestUpdateWithHistory_SameTokenOnlyOneWins(t *testing.T) {
	ctx := context.Background()
	s := New()
	lead := newLead("Asha Rao", base)
	seed(t, s, lead)

	const editors = 8
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		conflicts atomic.Int32
	)
	for i := range editors {
		wg.Add(1)
		go func() {
			defer wg.Done()
			at := base.Add(time.Duration(i+1) * time.Millisecond)
			u := core.LeadUpdate{
				ID:           lead.ID,
				Precondition: core.Precondition{UpdatedAt: lead.UpdatedAt, OwnerID: lead.OwnerID},
				Changes:      core.ChangeSet{{Field: core.FieldNotes, Old: nil, New: fmt.Sprintf("editor %d", i)}},
				UpdatedAt:    at,
			}
			_, err := s.UpdateWithHistory(ctx, u, core.NewChangeEntry(lead.ID, u.Changes, core.Actor{ID: "agent-1"}, at))
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, core.ErrConflict):
				conflicts.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, successes.Load())
	assert.EqualValues(t, editors-1, conflicts.Load())

	history, err := s.ListHistory(ctx, lead.ID, 0)
	require.NoError(t, err)
	assert.Len(t, history, 2, "one creation plus the single winning edit")
}

func TestHistoryFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	s := New()
	lead := newLead("Asha Rao", base)
	seed(t, s, lead)

	s.FailHistoryAppends(errors.New("disk full"))

	u := statusUpdate(lead, "agent-1", base.Add(time.Minute))
	_, err := s.UpdateWithHistory(ctx, u, core.HistoryEntry{LeadID: lead.ID})
	var pe *core.PersistenceError
	require.ErrorAs(t, err, &pe)

	stored, err := s.FindByID(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, lead, stored)

	fresh := newLead("Bina Das", base)
	err = s.CreateBatchWithHistory(ctx, []core.NewLead{{Lead: fresh, Entry: core.HistoryEntry{LeadID: fresh.ID}}})
	require.Error(t, err)
	_, err = s.FindByID(ctx, fresh.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestCreateBatch_DuplicateAbortsAll(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := newLead("Asha Rao", base)
	b := newLead("Bina Das", base)

	err := s.CreateBatchWithHistory(ctx, []core.NewLead{
		{Lead: a, Entry: core.HistoryEntry{LeadID: a.ID}},
		{Lead: b, Entry: core.HistoryEntry{LeadID: b.ID}},
		{Lead: a, Entry: core.HistoryEntry{LeadID: a.ID}},
	})
	assert.Equal(t, "DB001", core.MapError(err).Code)

	n, err := s.Count(ctx, core.ListFilter{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFindMany(t *testing.T) {
	ctx := context.Background()
	s := New()

	email := "ravi@Example.com"
	ravi := newLead("Ravi Kumar", base.Add(3*time.Minute))
	ravi.Email = &email
	ravi.City = core.CityChandigarh
	seed(t, s,
		newLead("Asha Rao", base.Add(time.Minute)),
		newLead("Bina Das", base.Add(2*time.Minute)),
		ravi,
	)

	tests := []struct {
		name   string
		filter core.ListFilter
		page   core.PageRequest
		want   []string
	}{
		{"all newest first", core.ListFilter{}, core.PageRequest{}, []string{"Ravi Kumar", "Bina Das", "Asha Rao"}},
		{"paged", core.ListFilter{}, core.PageRequest{Limit: 1, Offset: 1}, []string{"Bina Das"}},
		{"past the end", core.ListFilter{}, core.PageRequest{Limit: 10, Offset: 5}, []string{}},
		{"by city", core.ListFilter{City: core.CityChandigarh}, core.PageRequest{}, []string{"Ravi Kumar"}},
		{"search name", core.ListFilter{Search: "  BINA "}, core.PageRequest{}, []string{"Bina Das"}},
		{"search email", core.ListFilter{Search: "example.com"}, core.PageRequest{}, []string{"Ravi Kumar"}},
		{"search phone", core.ListFilter{Search: "98123"}, core.PageRequest{Limit: 2}, []string{"Ravi Kumar", "Bina Das"}},
		{"no match", core.ListFilter{Status: core.StatusDropped}, core.PageRequest{}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			leads, err := s.FindMany(ctx, tt.filter, tt.page)
			require.NoError(t, err)

			names := []string{}
			for _, l := range leads {
				names = append(names, l.FullName)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestListHistory_Limit(t *testing.T) {
	ctx := context.Background()
	s := New()
	lead := newLead("Asha Rao", base)
	seed(t, s, lead)

	for i := 1; i <= 3; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		u := core.LeadUpdate{
			ID:           lead.ID,
			Precondition: core.Precondition{UpdatedAt: lead.UpdatedAt, OwnerID: lead.OwnerID},
			Changes:      core.ChangeSet{{Field: core.FieldNotes, Old: nil, New: fmt.Sprintf("note %d", i)}},
			UpdatedAt:    at,
		}
		var err error
		lead, err = s.UpdateWithHistory(ctx, u, core.NewChangeEntry(lead.ID, u.Changes, core.Actor{ID: "agent-1"}, at))
		require.NoError(t, err)
	}

	history, err := s.ListHistory(ctx, lead.ID, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	change, ok := history[0].Changes.Get(core.FieldNotes)
	require.True(t, ok)
	assert.Equal(t, "note 3", change.New)
}

func TestReturnedLeadsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	lead := newLead("Asha Rao", base)
	lead.Tags = []string{"hot"}
	seed(t, s, lead)

	got, err := s.FindByID(ctx, lead.ID)
	require.NoError(t, err)
	got.Tags[0] = "cold"

	again, err := s.FindByID(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"hot"}, again.Tags)
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, context.Canceled)
}
