// Package core provides the business logic for buyer lead intake.
//
// It has no transport dependencies: web handlers, CLI tools and tests all
// drive the same [Service].
//
// # Leads
//
// A [Lead] is created from a [RawRow] (form fields, a JSON body or one row
// of an import file). [Validate] coerces and checks every field, collecting
// all failures as [ValidationErrors] rather than stopping at the first one.
//
// # Updates
//
// Updates use optimistic concurrency. The caller sends back the UpdatedAt
// it loaded; [Service.Update] rejects the edit with [ErrConflict] if the
// stored record has moved on, and [ErrForbidden] if the caller does not own
// the lead. Otherwise [Diff] computes the changed fields and the store
// applies them together with a history entry. An update that changes
// nothing writes nothing.
//
// # History
//
// Every successful create and update appends a [HistoryEntry]. Entries are
// never modified. A creation entry carries the full initial record; a
// change entry carries an ordered [ChangeSet] of old and new values.
//
// # Import and export
//
// [ImportSession] walks an uploaded CSV or XLSX file through preview and
// commit. Files over the row ceiling or missing required columns are
// rejected whole; otherwise rows are partitioned into accepted and rejected,
// and Commit stores every accepted row in one transaction.
// [Service.Export] writes the filtered listing in the same column layout.
//
// # Persistence
//
// The [Store] interface is implemented by internal/store/postgres and, for
// tests and local runs, internal/store/memory.
package core
