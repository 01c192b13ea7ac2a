package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRow() RawRow {
	return RawRow{
		FieldFullName:     "Ravi Kumar",
		FieldEmail:        "ravi@example.com",
		FieldPhone:        "+91 98765-43210",
		FieldCity:         "chandigarh",
		FieldPropertyType: "Apartment",
		FieldBHK:          "2bhk",
		FieldPurpose:      "buy",
		FieldBudgetMin:    "50,00,000",
		FieldBudgetMax:    "7000000",
		FieldTimeline:     "0-3m",
		FieldSource:       "Walk-in",
		FieldNotes:        "  prefers corner units ",
	}
}

func intp(i int) *int { return &i }

func TestIsValidBudget(t *testing.T) {
	tests := []struct {
		name     string
		min, max *int
		want     bool
	}{
		{"max below min", intp(200), intp(100), false},
		{"min absent", nil, intp(50), true},
		{"max absent", intp(50), nil, true},
		{"both absent", nil, nil, true},
		{"equal", intp(100), intp(100), true},
		{"max above min", intp(100), intp(101), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidBudget(tt.min, tt.max))
		})
	}
}

func TestValidate_CoercesValidRow(t *testing.T) {
	v, err := Validate(validRow())
	require.NoError(t, err)

	l := v.Fields()
	assert.Equal(t, "Ravi Kumar", l.FullName)
	assert.Equal(t, "+919876543210", l.Phone)
	assert.Equal(t, CityChandigarh, l.City)
	require.NotNil(t, l.BHK)
	assert.Equal(t, BHKTwo, *l.BHK)
	assert.Equal(t, PurposeBuy, l.Purpose)
	assert.Equal(t, 5000000, *l.BudgetMin)
	assert.Equal(t, 7000000, *l.BudgetMax)
	assert.Equal(t, TimelineZeroToThreeMonths, l.Timeline)
	assert.Equal(t, SourceWalkIn, l.Source)
	assert.Equal(t, "prefers corner units", *l.Notes)
	assert.Empty(t, l.Status, "status is only set when supplied")
}

func TestValidate_CollectsFieldErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(RawRow)
		field   string
		message string
	}{
		{"missing name", func(r RawRow) { r[FieldFullName] = " " }, FieldFullName, msgRequired},
		{"short name", func(r RawRow) { r[FieldFullName] = "R" }, FieldFullName, msgNameTooShort},
		{"bad email", func(r RawRow) { r[FieldEmail] = "ravi@" }, FieldEmail, msgInvalidEmail},
		{"phone letters", func(r RawRow) { r[FieldPhone] = "98765abcde" }, FieldPhone, msgPhoneChars},
		{"phone short", func(r RawRow) { r[FieldPhone] = "12345" }, FieldPhone, msgPhoneTooShort},
		{"phone long", func(r RawRow) { r[FieldPhone] = "1234567890123456" }, FieldPhone, msgPhoneTooLong},
		{"phone dots", func(r RawRow) { r[FieldPhone] = "98765.43210" }, FieldPhone, msgPhoneChars},
		{"phone inner plus", func(r RawRow) { r[FieldPhone] = "98765+43210" }, FieldPhone, msgPhoneChars},
		{"budget not a number", func(r RawRow) { r[FieldBudgetMin] = "lots" }, FieldBudgetMin, msgNotANumber},
		{"budget zero", func(r RawRow) { r[FieldBudgetMin] = "0" }, FieldBudgetMin, msgNotPositive},
		{"budget past column range", func(r RawRow) { r[FieldBudgetMax] = "2147483648" }, FieldBudgetMax, msgBudgetTooBig},
		{"budget in the billions", func(r RawRow) { r[FieldBudgetMin], r[FieldBudgetMax] = "5000000000", "5000000001" }, FieldBudgetMin, msgBudgetTooBig},
		{"notes too long", func(r RawRow) { r[FieldNotes] = strings.Repeat("n", MaxNotesLength+1) }, FieldNotes, msgNotesTooLong},
		{"budget order", func(r RawRow) { r[FieldBudgetMin], r[FieldBudgetMax] = "200", "100" }, FieldBudgetMax, msgBudgetOrder},
		{"bhk required", func(r RawRow) { r[FieldBHK] = "" }, FieldBHK, msgBHKRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := validRow()
			tt.mutate(row)

			_, err := Validate(row)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))

			var verrs ValidationErrors
			require.True(t, errors.As(err, &verrs))
			require.True(t, verrs.HasField(tt.field), "errors: %v", verrs)
			for _, fe := range verrs {
				if fe.Field == tt.field {
					assert.Equal(t, tt.message, fe.Message)
				}
			}
		})
	}
}

func TestValidate_BudgetUpperBound(t *testing.T) {
	row := validRow()
	row[FieldBudgetMin] = "2147483647"
	row[FieldBudgetMax] = "2,147,483,647"

	v, err := Validate(row)
	require.NoError(t, err)
	assert.Equal(t, MaxBudget, *v.Fields().BudgetMin)
	assert.Equal(t, MaxBudget, *v.Fields().BudgetMax)
}

func TestValidate_StatusReportedBeforeNotes(t *testing.T) {
	row := validRow()
	row[FieldStatus] = "Lost"
	row[FieldNotes] = strings.Repeat("n", MaxNotesLength+1)

	_, err := Validate(row)
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	require.Len(t, verrs, 2)
	assert.Equal(t, FieldStatus, verrs[0].Field)
	assert.Equal(t, FieldNotes, verrs[1].Field)
}

func TestValidate_InvalidEnumListsChoices(t *testing.T) {
	row := validRow()
	row[FieldCity] = "Atlantis"

	_, err := Validate(row)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `city: Invalid value "Atlantis". Expected one of: Chandigarh, Mohali, Zirakpur, Panchkula, Other`)
}

func TestValidate_BHKDroppedForNonResidential(t *testing.T) {
	row := validRow()
	row[FieldPropertyType] = "Office"

	v, err := Validate(row)
	require.NoError(t, err)
	assert.Nil(t, v.Fields().BHK)
}

func TestValidate_MessagesFormat(t *testing.T) {
	row := validRow()
	row[FieldBudgetMin], row[FieldBudgetMax] = "300", "100"

	_, err := Validate(row)
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, []string{"budgetMax: Max budget cannot be less than Min budget."}, verrs.Messages())
}

func TestParseEnums_Aliases(t *testing.T) {
	bhk, ok := ParseBHK("1RK")
	assert.True(t, ok)
	assert.Equal(t, BHKStudio, bhk)

	tl, ok := ParseTimeline(">6m")
	assert.True(t, ok)
	assert.Equal(t, TimelineMoreThanSixMonths, tl)

	src, ok := ParseSource("walk in")
	assert.True(t, ok)
	assert.Equal(t, SourceWalkIn, src)

	_, ok = ParseStatus("Lost")
	assert.False(t, ok)
}
