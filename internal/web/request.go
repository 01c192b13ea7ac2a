package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lakshya1112/Buyer-lead-app/internal/core"
)

const maxJSONBody = 64 << 10

// leadID parses the {id} route parameter. Malformed IDs cannot name a
// lead, so they report ErrNotFound.
func leadID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, core.ErrNotFound
	}
	return id, nil
}

// parseIntParam parses a positive integer query parameter.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	i, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// parseFilter reads the list and export filters from the query string.
// Enum filters accept the same spellings as the form fields.
func parseFilter(r *http.Request) (core.ListFilter, error) {
	q := r.URL.Query()
	f := core.ListFilter{Search: strings.TrimSpace(q.Get("search"))}
	var errs core.ValidationErrors

	check := func(field string, ok bool) {
		if !ok {
			errs = append(errs, core.FieldError{Field: field, Value: q.Get(field), Message: "Unknown filter value"})
		}
	}
	if v := q.Get(core.FieldCity); v != "" {
		var ok bool
		f.City, ok = core.ParseCity(v)
		check(core.FieldCity, ok)
	}
	if v := q.Get(core.FieldPropertyType); v != "" {
		var ok bool
		f.PropertyType, ok = core.ParsePropertyType(v)
		check(core.FieldPropertyType, ok)
	}
	if v := q.Get(core.FieldStatus); v != "" {
		var ok bool
		f.Status, ok = core.ParseStatus(v)
		check(core.FieldStatus, ok)
	}
	if v := q.Get(core.FieldTimeline); v != "" {
		var ok bool
		f.Timeline, ok = core.ParseTimeline(v)
		check(core.FieldTimeline, ok)
	}

	if len(errs) > 0 {
		return core.ListFilter{}, errs
	}
	return f, nil
}

// parseFormat reads the format query parameter, defaulting to CSV.
func parseFormat(r *http.Request) (core.TableFormat, error) {
	raw := r.URL.Query().Get("format")
	if raw == "" {
		return core.FormatCSV, nil
	}
	format, err := core.ParseTableFormat(raw)
	if err != nil {
		return "", core.ValidationErrors{{Field: "format", Value: raw, Message: "Expected csv or xlsx"}}
	}
	return format, nil
}

// decodeRow reads a JSON object of form fields. Numbers and booleans are
// accepted and kept in their textual form; null becomes empty.
func decodeRow(w http.ResponseWriter, r *http.Request) (core.RawRow, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()

	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("%w body: %v", errMalformed, err)
	}

	row := make(core.RawRow, len(body))
	for k, v := range body {
		switch val := v.(type) {
		case nil:
			row[k] = ""
		case string:
			row[k] = val
		case json.Number:
			row[k] = val.String()
		case bool:
			row[k] = strconv.FormatBool(val)
		default:
			return nil, fmt.Errorf("%w body: field %q must be a scalar", errMalformed, k)
		}
	}
	return row, nil
}

// takeUpdatedAt removes updatedAt from row and parses it.
func takeUpdatedAt(row core.RawRow) (time.Time, error) {
	raw := strings.TrimSpace(row[core.FieldUpdatedAt])
	delete(row, core.FieldUpdatedAt)
	if raw == "" {
		return time.Time{}, core.ValidationErrors{{Field: core.FieldUpdatedAt, Message: "Required"}}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, core.ValidationErrors{{Field: core.FieldUpdatedAt, Value: raw, Message: "Expected an RFC 3339 timestamp"}}
	}
	return t, nil
}
