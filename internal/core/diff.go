package core

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FieldChange is one entry of a ChangeSet.
type FieldChange struct {
	Field string
	Old   any
	New   any
}

// ChangeSet is an ordered list of field changes. It marshals to a JSON
// object keyed by field name with {"old","new"} values, keeping order.
type ChangeSet []FieldChange

// Fields returns the changed field names in order.
func (c ChangeSet) Fields() []string {
	names := make([]string, len(c))
	for i, ch := range c {
		names[i] = ch.Field
	}
	return names
}

// Get returns the change recorded for field.
func (c ChangeSet) Get(field string) (FieldChange, bool) {
	for _, ch := range c {
		if ch.Field == field {
			return ch, true
		}
	}
	return FieldChange{}, false
}

// Diff computes the changes that applying incoming to previous would make.
//
// A field is included only when its value differs and the incoming value
// is set; an absent incoming value means "leave it alone". Clearable fields
// (BHK) are the exception: absent there is an explicit clear.
func Diff(previous Lead, incoming ValidatedLead) ChangeSet {
	var cs ChangeSet
	for _, f := range LeadFields {
		next := f.Get(&incoming.lead)
		if next == nil && !f.Clearable {
			continue
		}
		prev := f.Get(&previous)
		if prev == next {
			continue
		}
		cs = append(cs, FieldChange{Field: f.Name, Old: prev, New: next})
	}
	return cs
}

// ApplyChanges returns a copy of l with every change's New value set.
// Unknown field names are ignored.
func ApplyChanges(l Lead, cs ChangeSet) Lead {
	for _, ch := range cs {
		if f, ok := LookupField(ch.Field); ok {
			f.Set(&l, ch.New)
		}
	}
	return l
}

type changeJSON struct {
	Old any `json:"old"`
	New any `json:"new"`
}

func (c ChangeSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, ch := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(ch.Field)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(changeJSON{Old: ch.Old, New: ch.New})
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the object form back, preserving key order.
// Whole numbers decode as int.
func (c *ChangeSet) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("change set: expected object, got %v", tok)
	}

	var out ChangeSet
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		field, ok := tok.(string)
		if !ok {
			return fmt.Errorf("change set: expected field name, got %v", tok)
		}
		var ch changeJSON
		if err := dec.Decode(&ch); err != nil {
			return fmt.Errorf("change set %s: %w", field, err)
		}
		out = append(out, FieldChange{Field: field, Old: fromJSONNumber(ch.Old), New: fromJSONNumber(ch.New)})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*c = out
	return nil
}

func fromJSONNumber(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return int(i)
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}
