package core

import (
	"time"

	"github.com/google/uuid"
)

// Canonical field names. They double as import headers, JSON keys and
// history change-set keys.
const (
	FieldID           = "id"
	FieldFullName     = "fullName"
	FieldEmail        = "email"
	FieldPhone        = "phone"
	FieldCity         = "city"
	FieldPropertyType = "propertyType"
	FieldBHK          = "bhk"
	FieldPurpose      = "purpose"
	FieldBudgetMin    = "budgetMin"
	FieldBudgetMax    = "budgetMax"
	FieldTimeline     = "timeline"
	FieldSource       = "source"
	FieldStatus       = "status"
	FieldNotes        = "notes"
	FieldTags         = "tags"
	FieldOwnerID      = "ownerId"
	FieldUpdatedAt    = "updatedAt"
)

// RawRow is an unvalidated candidate keyed by canonical field name.
// It comes from a form, a JSON body or one row of an import file.
type RawRow map[string]string

// Lead is a buyer lead as stored.
type Lead struct {
	ID           uuid.UUID    `json:"id"`
	FullName     string       `json:"fullName"`
	Email        *string      `json:"email"`
	Phone        string       `json:"phone"`
	City         City         `json:"city"`
	PropertyType PropertyType `json:"propertyType"`
	BHK          *BHK         `json:"bhk"`
	Purpose      Purpose      `json:"purpose"`
	BudgetMin    *int         `json:"budgetMin"`
	BudgetMax    *int         `json:"budgetMax"`
	Timeline     Timeline     `json:"timeline"`
	Source       Source       `json:"source"`
	Status       Status       `json:"status"`
	Notes        *string      `json:"notes"`
	Tags         []string     `json:"tags"`
	OwnerID      string       `json:"ownerId"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// FieldSpec describes one editable lead field: its candidate name, its
// storage column and how to read and write it on a Lead.
//
// Get returns a plain comparable value (string or int) or nil when the
// field is absent. Set accepts the same shapes.
type FieldSpec struct {
	Name   string
	Column string
	Get    func(*Lead) any
	Set    func(*Lead, any)

	// Clearable fields treat an absent incoming value as "clear it"
	// rather than "leave it alone".
	Clearable bool
}

// LeadFields lists the editable fields in declaration order. Diffs,
// history payloads and dynamic UPDATE statements all follow this order.
var LeadFields = []FieldSpec{
	{
		Name: FieldFullName, Column: "full_name",
		Get: func(l *Lead) any { return l.FullName },
		Set: func(l *Lead, v any) { l.FullName = asString(v) },
	},
	{
		Name: FieldEmail, Column: "email",
		Get: func(l *Lead) any { return derefString(l.Email) },
		Set: func(l *Lead, v any) { l.Email = stringPtr(v) },
	},
	{
		Name: FieldPhone, Column: "phone",
		Get: func(l *Lead) any { return l.Phone },
		Set: func(l *Lead, v any) { l.Phone = asString(v) },
	},
	{
		Name: FieldCity, Column: "city",
		Get: func(l *Lead) any { return string(l.City) },
		Set: func(l *Lead, v any) { l.City = City(asString(v)) },
	},
	{
		Name: FieldPropertyType, Column: "property_type",
		Get: func(l *Lead) any { return string(l.PropertyType) },
		Set: func(l *Lead, v any) { l.PropertyType = PropertyType(asString(v)) },
	},
	{
		Name: FieldBHK, Column: "bhk",
		Get: func(l *Lead) any {
			if l.BHK == nil {
				return nil
			}
			return string(*l.BHK)
		},
		Set: func(l *Lead, v any) {
			if v == nil {
				l.BHK = nil
				return
			}
			b := BHK(asString(v))
			l.BHK = &b
		},
		Clearable: true,
	},
	{
		Name: FieldPurpose, Column: "purpose",
		Get: func(l *Lead) any { return string(l.Purpose) },
		Set: func(l *Lead, v any) { l.Purpose = Purpose(asString(v)) },
	},
	{
		Name: FieldBudgetMin, Column: "budget_min",
		Get: func(l *Lead) any { return derefInt(l.BudgetMin) },
		Set: func(l *Lead, v any) { l.BudgetMin = intPtr(v) },
	},
	{
		Name: FieldBudgetMax, Column: "budget_max",
		Get: func(l *Lead) any { return derefInt(l.BudgetMax) },
		Set: func(l *Lead, v any) { l.BudgetMax = intPtr(v) },
	},
	{
		Name: FieldTimeline, Column: "timeline",
		Get: func(l *Lead) any { return string(l.Timeline) },
		Set: func(l *Lead, v any) { l.Timeline = Timeline(asString(v)) },
	},
	{
		Name: FieldSource, Column: "source",
		Get: func(l *Lead) any { return string(l.Source) },
		Set: func(l *Lead, v any) { l.Source = Source(asString(v)) },
	},
	{
		Name: FieldStatus, Column: "status",
		Get: func(l *Lead) any {
			if l.Status == "" {
				return nil
			}
			return string(l.Status)
		},
		Set: func(l *Lead, v any) { l.Status = Status(asString(v)) },
	},
	{
		Name: FieldNotes, Column: "notes",
		Get: func(l *Lead) any { return derefString(l.Notes) },
		Set: func(l *Lead, v any) { l.Notes = stringPtr(v) },
	},
}

// LookupField returns the FieldSpec for a canonical field name.
func LookupField(name string) (FieldSpec, bool) {
	for _, f := range LeadFields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// ImportHeaders are the columns every import file must carry.
var ImportHeaders = []string{
	FieldFullName, FieldEmail, FieldPhone, FieldCity, FieldPropertyType, FieldBHK,
	FieldPurpose, FieldBudgetMin, FieldBudgetMax, FieldTimeline, FieldSource, FieldNotes,
}

// ListFilter narrows lead listings and exports. Zero values match everything.
type ListFilter struct {
	// Search is a case-insensitive substring match on name, email or phone.
	Search       string
	City         City
	PropertyType PropertyType
	Status       Status
	Timeline     Timeline
}

// PageRequest selects a window of an ordered listing.
type PageRequest struct {
	Limit  int
	Offset int
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// LeadPage is one page of a listing, ordered by UpdatedAt descending.
type LeadPage struct {
	Items      []Lead `json:"items"`
	Total      int    `json:"total"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
	TotalPages int    `json:"totalPages"`
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func stringPtr(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

func derefString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func intPtr(v any) *int {
	switch n := v.(type) {
	case int:
		return &n
	case int64:
		i := int(n)
		return &i
	case float64:
		i := int(n)
		return &i
	}
	return nil
}

func derefInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
