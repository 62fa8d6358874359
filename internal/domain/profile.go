package domain

import "time"

// BirthProfile is the optional personal data used to personalize a
// reading's prompt. All fields are optional; an empty profile produces
// an unpersonalized prompt.
type BirthProfile struct {
	BirthDate    *time.Time
	BirthTime    string // "HH:MM", empty if unknown
	BirthCity    string
	BirthCountry string
}

// IsEmpty returns true if no personalization data is present.
func (p BirthProfile) IsEmpty() bool {
	return p.BirthDate == nil && p.BirthTime == "" && p.BirthCity == "" && p.BirthCountry == ""
}

// Age returns whole years elapsed between the birth date and now,
// or -1 if the birth date is unknown.
func (p BirthProfile) Age(now time.Time) int {
	if p.BirthDate == nil {
		return -1
	}
	b := *p.BirthDate
	years := now.Year() - b.Year()
	// Birthday hasn't happened yet this year.
	if now.Month() < b.Month() || (now.Month() == b.Month() && now.Day() < b.Day()) {
		years--
	}
	if years < 0 {
		return -1
	}
	return years
}

// Location renders "city, country" when both are present, otherwise
// whichever is present, otherwise empty.
func (p BirthProfile) Location() string {
	switch {
	case p.BirthCity != "" && p.BirthCountry != "":
		return p.BirthCity + ", " + p.BirthCountry
	case p.BirthCity != "":
		return p.BirthCity
	default:
		return p.BirthCountry
	}
}
