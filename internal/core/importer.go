package core

// importer.go implements bulk import as a small state machine:
//
//	AwaitingFile --Load--> Previewing --Commit--> Committing --> Done
//	                           ^                      |
//	                           +------ on failure ----+
//
// Load decodes the file, runs the structural checks (required headers,
// row ceiling) before touching any row, then validates every row with the
// same ruleset as single creates. Nothing is written until Commit, which
// stores all accepted rows and their "Created" entries in one transaction.
// Abandon returns the session to AwaitingFile from any non-terminal state.

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lakshya1112/Buyer-lead-app/internal/logging"
)

// ImportState is the phase of an ImportSession.
type ImportState int

const (
	ImportAwaitingFile ImportState = iota
	ImportPreviewing
	ImportCommitting
	ImportDone
)

func (s ImportState) String() string {
	switch s {
	case ImportAwaitingFile:
		return "awaiting_file"
	case ImportPreviewing:
		return "previewing"
	case ImportCommitting:
		return "committing"
	case ImportDone:
		return "done"
	}
	return fmt.Sprintf("ImportState(%d)", int(s))
}

// AcceptedRow is a row that passed validation.
type AcceptedRow struct {
	Row    int    `json:"row"`
	Values RawRow `json:"values"`
}

// RejectedRow is a row that failed validation. Row is the 1-based line
// number with the header counted as line 1.
type RejectedRow struct {
	Row    int      `json:"row"`
	Values RawRow   `json:"values"`
	Errors []string `json:"errors"`
}

// Preview is the validated partition of an import file.
type Preview struct {
	TotalRows     int           `json:"totalRows"`
	AcceptedCount int           `json:"acceptedCount"`
	RejectedCount int           `json:"rejectedCount"`
	Accepted      []AcceptedRow `json:"accepted"`
	Rejected      []RejectedRow `json:"rejected"`
}

// CommitResult reports a successful import commit.
type CommitResult struct {
	Imported int         `json:"imported"`
	IDs      []uuid.UUID `json:"ids"`
}

// CheckStructure applies the all-or-nothing file checks: required
// headers first, then the row ceiling.
func CheckStructure(t Table, maxRows int) error {
	if missing := t.MissingHeaders(); len(missing) > 0 {
		return &MissingHeadersError{Missing: missing}
	}
	if len(t.Rows) > maxRows {
		return &CapacityError{Limit: maxRows, Found: len(t.Rows)}
	}
	return nil
}

// PartitionRows validates each row in order.
func PartitionRows(rows []RawRow) (Preview, []ValidatedLead) {
	p := Preview{
		TotalRows: len(rows),
		Accepted:  []AcceptedRow{},
		Rejected:  []RejectedRow{},
	}
	var valid []ValidatedLead

	for i, row := range rows {
		line := i + 2
		v, err := Validate(row)
		if err != nil {
			var msgs []string
			if verrs, ok := err.(ValidationErrors); ok {
				msgs = verrs.Messages()
			} else {
				msgs = []string{err.Error()}
			}
			p.Rejected = append(p.Rejected, RejectedRow{Row: line, Values: row, Errors: msgs})
			continue
		}
		p.Accepted = append(p.Accepted, AcceptedRow{Row: line, Values: row})
		valid = append(valid, v)
	}

	p.AcceptedCount = len(p.Accepted)
	p.RejectedCount = len(p.Rejected)
	return p, valid
}

// ImportSession carries one import from upload to commit. It is safe for
// use by one caller at a time; methods are serialized.
type ImportSession struct {
	svc *Service

	mu       sync.Mutex
	state    ImportState
	preview  Preview
	accepted []ValidatedLead
}

// NewImport starts a session in AwaitingFile.
func (s *Service) NewImport() *ImportSession {
	return &ImportSession{svc: s}
}

// State returns the current phase.
func (is *ImportSession) State() ImportState {
	is.mu.Lock()
	defer is.mu.Unlock()
	return is.state
}

// Preview returns the partition computed by Load.
func (is *ImportSession) Preview() Preview {
	is.mu.Lock()
	defer is.mu.Unlock()
	return is.preview
}

// Load decodes and validates an import file. On success the session moves
// to Previewing; on any error it stays in AwaitingFile.
func (is *ImportSession) Load(ctx context.Context, filename string, r io.Reader) (Preview, error) {
	is.mu.Lock()
	defer is.mu.Unlock()

	if is.state != ImportAwaitingFile {
		return Preview{}, ErrInvalidState
	}
	if _, err := requireActor(ctx); err != nil {
		return Preview{}, err
	}

	svc := is.svc
	if err := svc.limiter.Acquire(ctx); err != nil {
		return Preview{}, err
	}
	defer svc.limiter.Release()

	table, err := DecodeTable(filename, r)
	if err != nil {
		return Preview{}, err
	}
	if err := CheckStructure(table, svc.maxImportRows); err != nil {
		return Preview{}, err
	}

	preview, valid := PartitionRows(table.Rows)
	svc.metrics.observeImportRows(preview.AcceptedCount, preview.RejectedCount)

	is.preview = preview
	is.accepted = valid
	is.state = ImportPreviewing

	logging.WithFields(ctx, "file", filename).Info("import previewed",
		"rows", preview.TotalRows,
		"accepted", preview.AcceptedCount,
		"rejected", preview.RejectedCount,
	)
	return preview, nil
}

// Commit stores every accepted row as a new lead owned by the actor.
// All records and history entries land together or not at all. On failure
// the session returns to Previewing so the caller can retry or Abandon.
func (is *ImportSession) Commit(ctx context.Context) (CommitResult, error) {
	is.mu.Lock()
	defer is.mu.Unlock()

	if is.state != ImportPreviewing {
		return CommitResult{}, ErrInvalidState
	}
	actor, err := requireActor(ctx)
	if err != nil {
		return CommitResult{}, err
	}
	if len(is.accepted) == 0 {
		return CommitResult{}, ErrNothingToImport
	}

	is.state = ImportCommitting
	res, err := is.svc.commitBatch(ctx, actor, is.accepted)
	is.svc.metrics.observeImportCommit(err)
	if err != nil {
		is.state = ImportPreviewing
		logging.FromContext(ctx).Error("import commit failed", "rows", len(is.accepted), "error", err)
		return CommitResult{}, err
	}

	is.state = ImportDone
	logging.WithFields(ctx, "actor", actor.ID).Info("import committed", "imported", res.Imported)
	return res, nil
}

// Abandon discards the preview and returns to AwaitingFile.
// It is a no-op once the session is Done or while a commit runs.
func (is *ImportSession) Abandon() {
	is.mu.Lock()
	defer is.mu.Unlock()

	if is.state == ImportDone || is.state == ImportCommitting {
		return
	}
	is.state = ImportAwaitingFile
	is.preview = Preview{}
	is.accepted = nil
}

func (s *Service) commitBatch(ctx context.Context, actor Actor, valid []ValidatedLead) (CommitResult, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return CommitResult{}, err
	}
	defer s.limiter.Release()

	// Once started, a commit runs to completion regardless of the caller.
	ctx, cancel := s.detached(ctx)
	defer cancel()

	now := s.timestamp(time.Time{})
	batch := make([]NewLead, len(valid))
	ids := make([]uuid.UUID, len(valid))
	for i, v := range valid {
		lead := v.newLead(actor, now)
		batch[i] = NewLead{Lead: lead, Entry: NewCreatedEntry(lead, actor, now)}
		ids[i] = lead.ID
	}

	if _, err := withStore(s, "create_batch", func() (struct{}, error) {
		return struct{}{}, s.store.CreateBatchWithHistory(ctx, batch)
	}); err != nil {
		return CommitResult{}, err
	}
	return CommitResult{Imported: len(batch), IDs: ids}, nil
}
