// Package postgres implements core.Store on PostgreSQL using pgx.
//
// Each atomic operation runs in one transaction. UpdateWithHistory folds the
// optimistic-concurrency precondition into the UPDATE's WHERE clause so the
// version check and the write are a single statement.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lakshya1112/Buyer-lead-app/internal/core"
)

// DB is the subset of *pgxpool.Pool the store needs.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is a core.Store backed by the leads and lead_history tables.
type Store struct {
	db DB
}

// New wraps a pool (or any DB).
func New(db DB) *Store {
	return &Store{db: db}
}

const leadColumns = `id, full_name, email, phone, city, property_type, bhk, purpose,
	budget_min, budget_max, timeline, source, status, notes, tags, owner_id, updated_at`

const insertLeadSQL = `INSERT INTO leads (` + leadColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

const insertHistorySQL = `INSERT INTO lead_history (id, lead_id, changed_by, changed_at, diff)
	VALUES ($1, $2, $3, $4, $5)`

func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (core.Lead, error) {
	row := s.db.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Lead{}, core.ErrNotFound
	}
	if err != nil {
		return core.Lead{}, core.NewPersistenceError("find lead", err)
	}
	return lead, nil
}

func (s *Store) FindMany(ctx context.Context, filter core.ListFilter, page core.PageRequest) ([]core.Lead, error) {
	where, args := buildWhere(filter)
	query := `SELECT ` + leadColumns + ` FROM leads` + where + ` ORDER BY updated_at DESC, id`
	if page.Limit > 0 {
		args = append(args, page.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if page.Offset > 0 {
		args = append(args, page.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, core.NewPersistenceError("list leads", err)
	}
	defer rows.Close()

	leads := []core.Lead{}
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, core.NewPersistenceError("scan lead", err)
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewPersistenceError("list leads", err)
	}
	return leads, nil
}

func (s *Store) Count(ctx context.Context, filter core.ListFilter) (int, error) {
	where, args := buildWhere(filter)
	var n int64
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM leads`+where, args...).Scan(&n); err != nil {
		return 0, core.NewPersistenceError("count leads", err)
	}
	return int(n), nil
}

func (s *Store) CreateWithHistory(ctx context.Context, lead core.Lead, entry core.HistoryEntry) error {
	return s.CreateBatchWithHistory(ctx, []core.NewLead{{Lead: lead, Entry: entry}})
}

func (s *Store) CreateBatchWithHistory(ctx context.Context, batch []core.NewLead) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return core.NewPersistenceError("begin", err)
	}
	defer tx.Rollback(ctx)

	for _, n := range batch {
		args, err := leadArgs(n.Lead)
		if err != nil {
			return core.NewPersistenceError("insert lead", err)
		}
		if _, err := tx.Exec(ctx, insertLeadSQL, args...); err != nil {
			return core.NewPersistenceError("insert lead", err)
		}
		if err := insertHistory(ctx, tx, n.Entry); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return core.NewPersistenceError("commit", err)
	}
	return nil
}

func (s *Store) UpdateWithHistory(ctx context.Context, u core.LeadUpdate, entry core.HistoryEntry) (core.Lead, error) {
	query, args, err := buildUpdate(u)
	if err != nil {
		return core.Lead{}, core.NewPersistenceError("update lead", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return core.Lead{}, core.NewPersistenceError("begin", err)
	}
	defer tx.Rollback(ctx)

	lead, err := scanLead(tx.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Lead{}, classifyMiss(ctx, tx, u)
	}
	if err != nil {
		return core.Lead{}, core.NewPersistenceError("update lead", err)
	}

	if err := insertHistory(ctx, tx, entry); err != nil {
		return core.Lead{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return core.Lead{}, core.NewPersistenceError("commit", err)
	}
	return lead, nil
}

// classifyMiss explains why a guarded UPDATE touched no row.
func classifyMiss(ctx context.Context, tx pgx.Tx, u core.LeadUpdate) error {
	var (
		owner     string
		updatedAt time.Time
	)
	err := tx.QueryRow(ctx, `SELECT owner_id, updated_at FROM leads WHERE id = $1`, u.ID).Scan(&owner, &updatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return core.ErrNotFound
	case err != nil:
		return core.NewPersistenceError("check lead", err)
	case owner != u.Precondition.OwnerID:
		return core.ErrForbidden
	default:
		return core.ErrConflict
	}
}

func (s *Store) ListHistory(ctx context.Context, leadID uuid.UUID, limit int) ([]core.HistoryEntry, error) {
	rows, err := s.db.Query(ctx, `SELECT id, lead_id, changed_by, changed_at, diff
		FROM lead_history WHERE lead_id = $1
		ORDER BY changed_at DESC, id DESC LIMIT $2`, leadID, limit)
	if err != nil {
		return nil, core.NewPersistenceError("list history", err)
	}
	defer rows.Close()

	entries := []core.HistoryEntry{}
	for rows.Next() {
		var (
			e    core.HistoryEntry
			diff []byte
		)
		if err := rows.Scan(&e.ID, &e.LeadID, &e.ChangedBy, &e.ChangedAt, &diff); err != nil {
			return nil, core.NewPersistenceError("scan history", err)
		}
		if err := e.UnmarshalPayload(diff); err != nil {
			return nil, core.NewPersistenceError("decode history", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewPersistenceError("list history", err)
	}
	return entries, nil
}

func insertHistory(ctx context.Context, tx pgx.Tx, e core.HistoryEntry) error {
	payload, err := e.MarshalPayload()
	if err != nil {
		return core.NewPersistenceError("encode history", err)
	}
	if _, err := tx.Exec(ctx, insertHistorySQL, e.ID, e.LeadID, e.ChangedBy, e.ChangedAt, payload); err != nil {
		return core.NewPersistenceError("insert history", err)
	}
	return nil
}

// buildUpdate renders the guarded UPDATE for u. Arguments $1-$3 are the
// precondition; changed columns follow in field order, then updated_at.
func buildUpdate(u core.LeadUpdate) (string, []any, error) {
	args := []any{u.ID, u.Precondition.UpdatedAt, u.Precondition.OwnerID}
	sets := make([]string, 0, len(u.Changes)+1)
	for _, ch := range u.Changes {
		f, ok := core.LookupField(ch.Field)
		if !ok {
			return "", nil, fmt.Errorf("update lead: unknown field %q", ch.Field)
		}
		val := ch.New
		if n, ok := val.(int); ok {
			v, err := toPgInt4(&n)
			if err != nil {
				return "", nil, fmt.Errorf("update lead: %s: %w", ch.Field, err)
			}
			val = v
		}
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", f.Column, len(args)))
	}
	args = append(args, u.UpdatedAt)
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))

	query := `UPDATE leads SET ` + strings.Join(sets, ", ") +
		` WHERE id = $1 AND updated_at = $2 AND owner_id = $3 RETURNING ` + leadColumns
	return query, args, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func buildWhere(f core.ListFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if search := strings.TrimSpace(f.Search); search != "" {
		args = append(args, "%"+likeEscaper.Replace(search)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(full_name ILIKE $%d OR email ILIKE $%d OR phone ILIKE $%d)", n, n, n))
	}
	eq := func(col, val string) {
		if val == "" {
			return
		}
		args = append(args, val)
		conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	eq("city", string(f.City))
	eq("property_type", string(f.PropertyType))
	eq("status", string(f.Status))
	eq("timeline", string(f.Timeline))

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func leadArgs(l core.Lead) ([]any, error) {
	budgetMin, err := toPgInt4(l.BudgetMin)
	if err != nil {
		return nil, fmt.Errorf("budget_min: %w", err)
	}
	budgetMax, err := toPgInt4(l.BudgetMax)
	if err != nil {
		return nil, fmt.Errorf("budget_max: %w", err)
	}
	tags := l.Tags
	if tags == nil {
		tags = []string{}
	}
	var bhk pgtype.Text
	if l.BHK != nil {
		bhk = pgtype.Text{String: string(*l.BHK), Valid: true}
	}
	return []any{
		l.ID, l.FullName, toPgText(l.Email), l.Phone, string(l.City), string(l.PropertyType), bhk,
		string(l.Purpose), budgetMin, budgetMax, string(l.Timeline),
		string(l.Source), string(l.Status), toPgText(l.Notes), tags, l.OwnerID, l.UpdatedAt,
	}, nil
}

func scanLead(row pgx.Row) (core.Lead, error) {
	var (
		l                    core.Lead
		city, propertyType   string
		purpose, timeline    string
		source, status       string
		email, bhk, notes    pgtype.Text
		budgetMin, budgetMax pgtype.Int4
	)
	err := row.Scan(
		&l.ID, &l.FullName, &email, &l.Phone, &city, &propertyType, &bhk, &purpose,
		&budgetMin, &budgetMax, &timeline, &source, &status, &notes, &l.Tags, &l.OwnerID, &l.UpdatedAt,
	)
	if err != nil {
		return core.Lead{}, err
	}

	l.City = core.City(city)
	l.PropertyType = core.PropertyType(propertyType)
	l.Purpose = core.Purpose(purpose)
	l.Timeline = core.Timeline(timeline)
	l.Source = core.Source(source)
	l.Status = core.Status(status)
	l.Email = fromPgText(email)
	l.Notes = fromPgText(notes)
	if bhk.Valid {
		b := core.BHK(bhk.String)
		l.BHK = &b
	}
	l.BudgetMin = fromPgInt4(budgetMin)
	l.BudgetMax = fromPgInt4(budgetMax)
	if l.Tags == nil {
		l.Tags = []string{}
	}
	l.UpdatedAt = l.UpdatedAt.UTC()
	return l, nil
}

func toPgText(p *string) pgtype.Text {
	if p == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *p, Valid: true}
}

func fromPgText(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

// toPgInt4 refuses values outside the integer column range instead of
// letting them wrap.
func toPgInt4(p *int) (pgtype.Int4, error) {
	if p == nil {
		return pgtype.Int4{}, nil
	}
	if *p < math.MinInt32 || *p > math.MaxInt32 {
		return pgtype.Int4{}, fmt.Errorf("%d is out of range for integer", *p)
	}
	return pgtype.Int4{Int32: int32(*p), Valid: true}, nil
}

func fromPgInt4(i pgtype.Int4) *int {
	if !i.Valid {
		return nil
	}
	n := int(i.Int32)
	return &n
}
