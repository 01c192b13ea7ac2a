package core

// validation.go is the single ruleset every lead candidate passes through,
// whether it arrives from the create form, an edit, or one row of an import.
//
// Validation happens in two passes:
//  1. Field pass: coerce and check each field in LeadFields order
//  2. Refinements: budget ordering (reported on budgetMax), then
//     BHK-required-for-property-type (reported on bhk)
//
// Refinements run even when other fields failed so the caller sees the full
// error set at once.

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/nyaruka/phonenumbers"
)

const (
	MinNameLength  = 2
	MinPhoneDigits = 10
	MaxPhoneDigits = 15
	MaxNotesLength = 1000

	// MaxBudget is the largest budget the integer columns can hold.
	MaxBudget = math.MaxInt32
)

const (
	msgRequired      = "Required"
	msgNameTooShort  = "Full name must be at least 2 characters."
	msgInvalidEmail  = "Invalid email address."
	msgPhoneTooShort = "Phone number must be at least 10 digits."
	msgPhoneTooLong  = "Phone number cannot exceed 15 digits."
	msgPhoneChars    = "Phone number may only contain digits, spaces, - and parentheses, with an optional leading +."
	msgNotANumber    = "Expected a whole number."
	msgNotPositive   = "Number must be greater than 0."
	msgBudgetTooBig  = "Budget cannot exceed 2147483647."
	msgNotesTooLong  = "Notes cannot exceed 1000 characters."
	msgBudgetOrder   = "Max budget cannot be less than Min budget."
	msgBHKRequired   = "BHK is required for this property type."
)

// ErrValidation matches any ValidationErrors via errors.Is.
var ErrValidation = errors.New("validation failed")

var validate = validator.New()

// FieldError is a single field-level problem with a candidate.
type FieldError struct {
	Field   string `json:"field"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ValidationErrors is the ordered error set of a rejected candidate.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	return "validation failed: " + strings.Join(v.Messages(), "; ")
}

func (v ValidationErrors) Is(target error) bool {
	return target == ErrValidation
}

// Messages renders each error as "field: message".
func (v ValidationErrors) Messages() []string {
	out := make([]string, len(v))
	for i, e := range v {
		out[i] = e.Error()
	}
	return out
}

// HasField reports whether any error is attached to field.
func (v ValidationErrors) HasField(field string) bool {
	for _, e := range v {
		if e.Field == field {
			return true
		}
	}
	return false
}

func (v *ValidationErrors) add(field, value, message string) {
	*v = append(*v, FieldError{Field: field, Value: value, Message: message})
}

// ValidatedLead is a candidate that passed Validate. It can only be
// obtained from Validate, so unchecked data never reaches the diff or
// the store.
type ValidatedLead struct {
	lead Lead
}

// Fields returns a copy of the validated values. ID, owner, tags and
// timestamp are zero; Status is empty unless the candidate supplied it.
func (v ValidatedLead) Fields() Lead {
	return v.lead
}

// Validate coerces and checks a raw candidate.
// The returned error is ValidationErrors when the candidate is rejected.
func Validate(row RawRow) (ValidatedLead, error) {
	var (
		errs ValidationErrors
		l    Lead
	)
	get := func(name string) string { return strings.TrimSpace(row[name]) }

	name := get(FieldFullName)
	switch {
	case name == "":
		errs.add(FieldFullName, name, msgRequired)
	case utf8.RuneCountInString(name) < MinNameLength:
		errs.add(FieldFullName, name, msgNameTooShort)
	}
	l.FullName = name

	if email := get(FieldEmail); email != "" {
		if err := validate.Var(email, "email"); err != nil {
			errs.add(FieldEmail, email, msgInvalidEmail)
		} else {
			l.Email = &email
		}
	}

	rawPhone := get(FieldPhone)
	phone, msg := normalizePhone(rawPhone)
	if msg != "" {
		errs.add(FieldPhone, rawPhone, msg)
	}
	l.Phone = phone

	l.City, _ = requiredEnum(&errs, FieldCity, get(FieldCity), ParseCity, Cities)

	var propertyOK bool
	l.PropertyType, propertyOK = requiredEnum(&errs, FieldPropertyType, get(FieldPropertyType), ParsePropertyType, PropertyTypes)

	rawBHK := get(FieldBHK)
	if rawBHK != "" {
		if b, ok := ParseBHK(rawBHK); ok {
			l.BHK = &b
		} else {
			errs.add(FieldBHK, rawBHK, invalidEnum(rawBHK, BHKs))
		}
	}

	l.Purpose, _ = requiredEnum(&errs, FieldPurpose, get(FieldPurpose), ParsePurpose, Purposes)

	l.BudgetMin = optionalBudget(&errs, FieldBudgetMin, get(FieldBudgetMin))
	l.BudgetMax = optionalBudget(&errs, FieldBudgetMax, get(FieldBudgetMax))

	l.Timeline, _ = requiredEnum(&errs, FieldTimeline, get(FieldTimeline), ParseTimeline, Timelines)
	l.Source, _ = requiredEnum(&errs, FieldSource, get(FieldSource), ParseSource, Sources)

	if rawStatus := get(FieldStatus); rawStatus != "" {
		if s, ok := ParseStatus(rawStatus); ok {
			l.Status = s
		} else {
			errs.add(FieldStatus, rawStatus, invalidEnum(rawStatus, Statuses))
		}
	}

	if notes := get(FieldNotes); notes != "" {
		if utf8.RuneCountInString(notes) > MaxNotesLength {
			errs.add(FieldNotes, "", msgNotesTooLong)
		} else {
			l.Notes = &notes
		}
	}

	// Refinement 1: budget ordering.
	if !IsValidBudget(l.BudgetMin, l.BudgetMax) {
		errs.add(FieldBudgetMax, strconv.Itoa(*l.BudgetMax), msgBudgetOrder)
	}

	// Refinement 2: BHK for residential types. Other types never carry one.
	if propertyOK {
		if l.PropertyType.RequiresBHK() {
			if rawBHK == "" {
				errs.add(FieldBHK, "", msgBHKRequired)
			}
		} else {
			l.BHK = nil
		}
	}

	if len(errs) > 0 {
		return ValidatedLead{}, errs
	}
	return ValidatedLead{lead: l}, nil
}

// IsValidBudget reports whether max >= min. Either bound may be absent.
func IsValidBudget(min, max *int) bool {
	if min == nil || max == nil {
		return true
	}
	return *max >= *min
}

// normalizePhone strips formatting and checks the digit count.
// A leading '+' is kept.
func normalizePhone(raw string) (string, string) {
	if raw == "" {
		return "", msgRequired
	}
	for i, r := range raw {
		if r == '+' && i == 0 {
			continue
		}
		if !unicode.IsDigit(r) && !strings.ContainsRune(" -()", r) {
			return "", msgPhoneChars
		}
	}
	digits := phonenumbers.NormalizeDigitsOnly(raw)
	switch {
	case len(digits) < MinPhoneDigits:
		return "", msgPhoneTooShort
	case len(digits) > MaxPhoneDigits:
		return "", msgPhoneTooLong
	}
	if strings.HasPrefix(raw, "+") {
		return "+" + digits, ""
	}
	return digits, ""
}

func optionalBudget(errs *ValidationErrors, field, raw string) *int {
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.ReplaceAll(raw, ",", ""))
	if err != nil {
		errs.add(field, raw, msgNotANumber)
		return nil
	}
	if n <= 0 {
		errs.add(field, raw, msgNotPositive)
		return nil
	}
	if n > MaxBudget {
		errs.add(field, raw, msgBudgetTooBig)
		return nil
	}
	return &n
}

func requiredEnum[T ~string](errs *ValidationErrors, field, raw string, parse func(string) (T, bool), values []T) (T, bool) {
	if raw == "" {
		errs.add(field, raw, msgRequired)
		var zero T
		return zero, false
	}
	v, ok := parse(raw)
	if !ok {
		errs.add(field, raw, invalidEnum(raw, values))
	}
	return v, ok
}

func invalidEnum[T ~string](raw string, values []T) string {
	return fmt.Sprintf("Invalid value %q. Expected one of: %s.", raw, enumNames(values))
}
