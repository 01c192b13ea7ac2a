package core_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakshya1112/Buyer-lead-app/internal/core"
	"github.com/lakshya1112/Buyer-lead-app/internal/store/memory"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newService(t *testing.T, opts ...core.Option) (*core.Service, *memory.Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC)}
	store := memory.New()
	opts = append([]core.Option{core.WithClock(clock.Now)}, opts...)
	return core.NewService(store, opts...), store, clock
}

func as(id string) context.Context {
	return core.ContextWithActor(context.Background(), core.Actor{ID: id, Label: id + "@example.com"})
}

func leadRow() core.RawRow {
	return core.RawRow{
		core.FieldFullName:     "Meera Joshi",
		core.FieldEmail:        "meera@example.com",
		core.FieldPhone:        "9812345678",
		core.FieldCity:         "Panchkula",
		core.FieldPropertyType: "Villa",
		core.FieldBHK:          "3",
		core.FieldPurpose:      "Buy",
		core.FieldBudgetMin:    "5000000",
		core.FieldBudgetMax:    "7000000",
		core.FieldTimeline:     "3-6m",
		core.FieldSource:       "Referral",
	}
}

func with(row core.RawRow, kv ...string) core.RawRow {
	out := make(core.RawRow, len(row))
	for k, v := range row {
		out[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i]] = kv[i+1]
	}
	return out
}

func count(t *testing.T, store core.Store) int {
	t.Helper()
	n, err := store.Count(context.Background(), core.ListFilter{})
	require.NoError(t, err)
	return n
}

func TestCreate_StoresLeadWithHistory(t *testing.T) {
	svc, store, clock := newService(t)
	ctx := as("agent-1")

	lead, err := svc.Create(ctx, leadRow())
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, lead.ID)
	assert.Equal(t, "agent-1", lead.OwnerID)
	assert.Equal(t, core.StatusNew, lead.Status)
	assert.Equal(t, []string{}, lead.Tags)
	assert.Equal(t, clock.now, lead.UpdatedAt)

	stored, err := store.FindByID(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, lead, stored)

	history, err := svc.History(ctx, lead.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].IsCreation())
	assert.Equal(t, "agent-1@example.com", history[0].ChangedBy)
	assert.Equal(t, lead.FullName, history[0].Created.FullName)
}

func TestCreate_RequiresActor(t *testing.T) {
	svc, store, _ := newService(t)

	_, err := svc.Create(context.Background(), leadRow())

	assert.ErrorIs(t, err, core.ErrUnauthenticated)
	assert.Zero(t, count(t, store))
}

func TestCreate_InvalidRowStoresNothing(t *testing.T) {
	svc, store, _ := newService(t)

	_, err := svc.Create(as("agent-1"), with(leadRow(), core.FieldBudgetMin, "9000000"))

	var verrs core.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.True(t, verrs.HasField(core.FieldBudgetMax))
	assert.Zero(t, count(t, store))
}

func TestCreate_HistoryFailureLeavesNoLead(t *testing.T) {
	svc, store, _ := newService(t)
	store.FailHistoryAppends(errors.New("disk full"))

	_, err := svc.Create(as("agent-1"), leadRow())

	var perr *core.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Zero(t, count(t, store))
}

func TestUpdate_AppliesChangesAndRecordsHistory(t *testing.T) {
	svc, _, clock := newService(t)
	ctx := as("agent-1")
	lead, err := svc.Create(ctx, leadRow())
	require.NoError(t, err)

	clock.Advance(time.Minute)
	res, err := svc.Update(ctx, lead.ID, with(leadRow(), core.FieldStatus, "Contacted", core.FieldNotes, "call after 6pm"), lead.UpdatedAt)
	require.NoError(t, err)

	assert.True(t, res.Changed)
	assert.Equal(t, []string{core.FieldStatus, core.FieldNotes}, res.Changes.Fields())
	assert.Equal(t, core.StatusContacted, res.Lead.Status)
	assert.Equal(t, clock.now, res.Lead.UpdatedAt)

	history, err := svc.History(ctx, lead.ID, 5)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, res.Changes, history[0].Changes)
	assert.True(t, history[1].IsCreation())
}

func TestUpdate_NoChangesIsNoOp(t *testing.T) {
	svc, _, clock := newService(t)
	ctx := as("agent-1")
	lead, err := svc.Create(ctx, leadRow())
	require.NoError(t, err)

	clock.Advance(time.Minute)
	res, err := svc.Update(ctx, lead.ID, leadRow(), lead.UpdatedAt)
	require.NoError(t, err)

	assert.False(t, res.Changed)
	assert.Empty(t, res.Changes)
	assert.Equal(t, lead.UpdatedAt, res.Lead.UpdatedAt)

	history, err := svc.History(ctx, lead.ID, 5)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestUpdate_StaleTimestamp(t *testing.T) {
	tests := []struct {
		name    string
		offset  time.Duration
		wantErr error
	}{
		{"two seconds behind conflicts", -2 * time.Second, core.ErrConflict},
		{"within tolerance succeeds", -500 * time.Millisecond, nil},
		{"exact match succeeds", 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _ := newService(t)
			ctx := as("agent-1")
			lead, err := svc.Create(ctx, leadRow())
			require.NoError(t, err)

			_, err = svc.Update(ctx, lead.ID, with(leadRow(), core.FieldCity, "Mohali"), lead.UpdatedAt.Add(tt.offset))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, "This record has been updated by someone else", core.MapError(err).Message)
				stored, _ := store.FindByID(ctx, lead.ID)
				assert.Equal(t, core.CityPanchkula, stored.City)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestIsStale(t *testing.T) {
	now := time.Now()
	assert.True(t, core.IsStale(now.Add(-2*time.Second), now))
	assert.False(t, core.IsStale(now.Add(-time.Second), now))
	assert.False(t, core.IsStale(now, now))
}

func TestUpdate_OwnershipAndExistence(t *testing.T) {
	svc, _, _ := newService(t)
	lead, err := svc.Create(as("agent-1"), leadRow())
	require.NoError(t, err)

	_, err = svc.Update(as("agent-2"), lead.ID, with(leadRow(), core.FieldCity, "Mohali"), lead.UpdatedAt)
	assert.ErrorIs(t, err, core.ErrForbidden)

	_, err = svc.Update(as("agent-1"), uuid.New(), leadRow(), lead.UpdatedAt)
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = svc.Update(context.Background(), lead.ID, leadRow(), lead.UpdatedAt)
	assert.ErrorIs(t, err, core.ErrUnauthenticated)
}

func TestUpdate_MergedBudgetMustStayOrdered(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := as("agent-1")
	lead, err := svc.Create(ctx, leadRow())
	require.NoError(t, err)

	// Absent budgetMin keeps the stored 5,000,000, which exceeds the new max.
	_, err = svc.Update(ctx, lead.ID, with(leadRow(), core.FieldBudgetMin, "", core.FieldBudgetMax, "100"), lead.UpdatedAt)

	var verrs core.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.True(t, verrs.HasField(core.FieldBudgetMax))
}

func TestUpdate_HistoryFailureLeavesLeadUnchanged(t *testing.T) {
	svc, store, clock := newService(t)
	ctx := as("agent-1")
	lead, err := svc.Create(ctx, leadRow())
	require.NoError(t, err)

	store.FailHistoryAppends(errors.New("disk full"))
	clock.Advance(time.Minute)
	_, err = svc.Update(ctx, lead.ID, with(leadRow(), core.FieldCity, "Mohali"), lead.UpdatedAt)
	require.Error(t, err)

	store.FailHistoryAppends(nil)
	stored, err := svc.Get(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, lead, stored)

	history, err := svc.History(ctx, lead.ID, 5)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestUpdate_TimestampAlwaysAdvances(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := as("agent-1")
	lead, err := svc.Create(ctx, leadRow())
	require.NoError(t, err)

	// The clock has not moved since creation.
	res, err := svc.Update(ctx, lead.ID, with(leadRow(), core.FieldCity, "Mohali"), lead.UpdatedAt)
	require.NoError(t, err)
	assert.Equal(t, lead.UpdatedAt.Add(time.Microsecond), res.Lead.UpdatedAt)
}

func TestUpdate_ChangingToPlotClearsBHK(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := as("agent-1")
	lead, err := svc.Create(ctx, leadRow())
	require.NoError(t, err)

	res, err := svc.Update(ctx, lead.ID, with(leadRow(), core.FieldPropertyType, "Plot"), lead.UpdatedAt)
	require.NoError(t, err)
	assert.Nil(t, res.Lead.BHK)
	assert.Equal(t, core.PropertyPlot, res.Lead.PropertyType)
}

func TestList_PagesNewestFirst(t *testing.T) {
	svc, _, clock := newService(t)
	ctx := as("agent-1")
	var last core.Lead
	for i := 0; i < 12; i++ {
		clock.Advance(time.Second)
		l, err := svc.Create(ctx, with(leadRow(), core.FieldFullName, fmt.Sprintf("Buyer %02d", i)))
		require.NoError(t, err)
		last = l
	}

	page, err := svc.List(ctx, core.ListFilter{}, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 12, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, core.DefaultPageSize, page.PageSize)
	require.Len(t, page.Items, 10)
	assert.Equal(t, last.ID, page.Items[0].ID)

	page, err = svc.List(ctx, core.ListFilter{}, 2, 10)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)

	page, err = svc.List(ctx, core.ListFilter{Search: "buyer 07"}, 1, 500)
	require.NoError(t, err)
	assert.Equal(t, core.MaxPageSize, page.PageSize)
	assert.Equal(t, 1, page.Total)
}

func TestHistory_UnknownLead(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.History(as("agent-1"), uuid.New(), 5)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestMetrics_CountsMutationsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	svc, _, _ := newService(t, core.WithMetrics(core.NewMetrics("test", reg)))

	_, err := svc.Create(as("agent-1"), leadRow())
	require.NoError(t, err)
	_, err = svc.Create(as("agent-1"), with(leadRow(), core.FieldPhone, ""))
	require.Error(t, err)

	n, err := testutil.GatherAndCount(reg, "test_mutations_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "one series per outcome")
}
