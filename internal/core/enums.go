package core

import "strings"

// City is the city a buyer is looking in.
type City string

const (
	CityChandigarh City = "Chandigarh"
	CityMohali     City = "Mohali"
	CityZirakpur   City = "Zirakpur"
	CityPanchkula  City = "Panchkula"
	CityOther      City = "Other"
)

// Cities lists every City in display order.
var Cities = []City{CityChandigarh, CityMohali, CityZirakpur, CityPanchkula, CityOther}

// PropertyType is the kind of property a buyer wants.
type PropertyType string

const (
	PropertyApartment PropertyType = "Apartment"
	PropertyVilla     PropertyType = "Villa"
	PropertyPlot      PropertyType = "Plot"
	PropertyOffice    PropertyType = "Office"
	PropertyRetail    PropertyType = "Retail"
)

var PropertyTypes = []PropertyType{PropertyApartment, PropertyVilla, PropertyPlot, PropertyOffice, PropertyRetail}

// RequiresBHK reports whether leads of this property type must carry a BHK.
func (p PropertyType) RequiresBHK() bool {
	return p == PropertyApartment || p == PropertyVilla
}

// BHK is the bedroom-hall-kitchen class of a residential property.
type BHK string

const (
	BHKOne    BHK = "One"
	BHKTwo    BHK = "Two"
	BHKThree  BHK = "Three"
	BHKFour   BHK = "Four"
	BHKStudio BHK = "Studio"
)

var BHKs = []BHK{BHKOne, BHKTwo, BHKThree, BHKFour, BHKStudio}

// Purpose is whether the buyer wants to buy or rent.
type Purpose string

const (
	PurposeBuy  Purpose = "Buy"
	PurposeRent Purpose = "Rent"
)

var Purposes = []Purpose{PurposeBuy, PurposeRent}

// Timeline is how soon the buyer intends to close.
type Timeline string

const (
	TimelineZeroToThreeMonths Timeline = "ZeroToThreeMonths"
	TimelineThreeToSixMonths  Timeline = "ThreeToSixMonths"
	TimelineMoreThanSixMonths Timeline = "MoreThanSixMonths"
	TimelineExploring         Timeline = "Exploring"
)

var Timelines = []Timeline{TimelineZeroToThreeMonths, TimelineThreeToSixMonths, TimelineMoreThanSixMonths, TimelineExploring}

// Source is the channel the lead came in through.
type Source string

const (
	SourceWebsite  Source = "Website"
	SourceReferral Source = "Referral"
	SourceWalkIn   Source = "WalkIn"
	SourceCall     Source = "Call"
	SourceOther    Source = "Other"
)

var Sources = []Source{SourceWebsite, SourceReferral, SourceWalkIn, SourceCall, SourceOther}

// Status is the pipeline stage of a lead.
type Status string

const (
	StatusNew         Status = "New"
	StatusQualified   Status = "Qualified"
	StatusContacted   Status = "Contacted"
	StatusVisited     Status = "Visited"
	StatusNegotiation Status = "Negotiation"
	StatusConverted   Status = "Converted"
	StatusDropped     Status = "Dropped"
)

var Statuses = []Status{StatusNew, StatusQualified, StatusContacted, StatusVisited, StatusNegotiation, StatusConverted, StatusDropped}

// Spellings used by the legacy intake form and by hand-edited spreadsheets.
// Keys are compared after foldEnum.
var (
	bhkAliases = map[string]BHK{
		"1": BHKOne, "1bhk": BHKOne,
		"2": BHKTwo, "2bhk": BHKTwo,
		"3": BHKThree, "3bhk": BHKThree,
		"4": BHKFour, "4bhk": BHKFour, "4+": BHKFour, "4+bhk": BHKFour,
		"1rk": BHKStudio,
	}
	timelineAliases = map[string]Timeline{
		"0-3m": TimelineZeroToThreeMonths, "0-3months": TimelineZeroToThreeMonths,
		"3-6m": TimelineThreeToSixMonths, "3-6months": TimelineThreeToSixMonths,
		">6m": TimelineMoreThanSixMonths, ">6months": TimelineMoreThanSixMonths, "6m+": TimelineMoreThanSixMonths,
	}
	sourceAliases = map[string]Source{
		"walk-in": SourceWalkIn, "walk_in": SourceWalkIn,
	}
)

// foldEnum lowercases s and drops inner spaces so "Walk In" and "walkin" compare equal.
func foldEnum(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
}

// parseEnum matches raw against values case-insensitively, then against aliases.
func parseEnum[T ~string](raw string, values []T, aliases map[string]T) (T, bool) {
	key := foldEnum(raw)
	for _, v := range values {
		if foldEnum(string(v)) == key {
			return v, true
		}
	}
	if v, ok := aliases[key]; ok {
		return v, true
	}
	var zero T
	return zero, false
}

func enumNames[T ~string](values []T) string {
	names := make([]string, len(values))
	for i, v := range values {
		names[i] = string(v)
	}
	return strings.Join(names, ", ")
}

func ParseCity(s string) (City, bool)                 { return parseEnum(s, Cities, nil) }
func ParsePropertyType(s string) (PropertyType, bool) { return parseEnum(s, PropertyTypes, nil) }
func ParseBHK(s string) (BHK, bool)                   { return parseEnum(s, BHKs, bhkAliases) }
func ParsePurpose(s string) (Purpose, bool)           { return parseEnum(s, Purposes, nil) }
func ParseTimeline(s string) (Timeline, bool)         { return parseEnum(s, Timelines, timelineAliases) }
func ParseSource(s string) (Source, bool)             { return parseEnum(s, Sources, sourceAliases) }
func ParseStatus(s string) (Status, bool)             { return parseEnum(s, Statuses, nil) }
