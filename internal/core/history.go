package core

// history.go defines the append-only change log kept for every lead.
//
// Each committed write produces exactly one entry:
//   - Created: the full snapshot of a new lead
//   - Changes: the ChangeSet of an update
//
// Entries are immutable once stored. The persisted payload is JSON, either
// {"status":"Created","initialData":{...}} or the ChangeSet object form.

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CreatedMarker is the status recorded in the payload of a creation entry.
const CreatedMarker = "Created"

// HistoryEntry is one immutable audit record for a lead.
type HistoryEntry struct {
	ID        uuid.UUID `json:"id"`
	LeadID    uuid.UUID `json:"leadId"`
	ChangedBy string    `json:"changedBy"`
	ChangedAt time.Time `json:"changedAt"`

	// Exactly one of Created or Changes is set.
	Created *Lead     `json:"created,omitempty"`
	Changes ChangeSet `json:"changes,omitempty"`
}

// IsCreation reports whether the entry records the creation of the lead.
func (h HistoryEntry) IsCreation() bool {
	return h.Created != nil
}

// NewCreatedEntry builds the history entry that accompanies a new lead.
func NewCreatedEntry(lead Lead, actor Actor, at time.Time) HistoryEntry {
	snapshot := lead
	snapshot.Tags = append([]string{}, lead.Tags...)
	return HistoryEntry{
		ID:        uuid.New(),
		LeadID:    lead.ID,
		ChangedBy: actor.DisplayName(),
		ChangedAt: at,
		Created:   &snapshot,
	}
}

// NewChangeEntry builds the history entry for a non-empty update.
func NewChangeEntry(leadID uuid.UUID, changes ChangeSet, actor Actor, at time.Time) HistoryEntry {
	return HistoryEntry{
		ID:        uuid.New(),
		LeadID:    leadID,
		ChangedBy: actor.DisplayName(),
		ChangedAt: at,
		Changes:   changes,
	}
}

type createdPayload struct {
	Status      string `json:"status"`
	InitialData Lead   `json:"initialData"`
}

// MarshalPayload encodes the entry's diff column.
func (h HistoryEntry) MarshalPayload() ([]byte, error) {
	if h.Created != nil {
		return json.Marshal(createdPayload{Status: CreatedMarker, InitialData: *h.Created})
	}
	return json.Marshal(h.Changes)
}

// UnmarshalPayload decodes a diff column into the entry.
func (h *HistoryEntry) UnmarshalPayload(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("history payload: %w", err)
	}
	if status, ok := probe["status"]; ok && bytes.Equal(bytes.TrimSpace(status), []byte(`"`+CreatedMarker+`"`)) {
		if initial, ok := probe["initialData"]; ok {
			var lead Lead
			if err := json.Unmarshal(initial, &lead); err != nil {
				return fmt.Errorf("history payload initialData: %w", err)
			}
			h.Created = &lead
			h.Changes = nil
			return nil
		}
	}
	var cs ChangeSet
	if err := json.Unmarshal(data, &cs); err != nil {
		return fmt.Errorf("history payload: %w", err)
	}
	h.Created = nil
	h.Changes = cs
	return nil
}

// Describe renders the entry as display lines, one per change.
func (h HistoryEntry) Describe() []string {
	if h.Created != nil {
		return []string{"Lead created"}
	}
	lines := make([]string, 0, len(h.Changes))
	for _, ch := range h.Changes {
		lines = append(lines, fmt.Sprintf("%s changed from %s to %s", ch.Field, displayValue(ch.Old), displayValue(ch.New)))
	}
	return lines
}

func displayValue(v any) string {
	if v == nil {
		return "(empty)"
	}
	s := fmt.Sprint(v)
	return `"` + strings.ReplaceAll(s, `"`, `'`) + `"`
}
