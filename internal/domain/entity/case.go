package entity

import (
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// CaseInfo is the subset of a case record needed to personalize a notification.
// It is read fresh from the case store for every notification and never cached.
type CaseInfo struct {
	ID        int64
	FirstName string
	LastName  string
	// DOB holds the stored date of birth. Older records keep an age string
	// (e.g. "34") in this column instead of a date.
	DOB    string
	Gender string
}

// dobLayouts are the date formats accepted for DOB, tried in order.
var dobLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// Initials returns the uppercased first letter of the first and last name.
// Names are assumed to be a single word each.
func (c *CaseInfo) Initials() (string, error) {
	first, err := firstLetter("first_name", c.FirstName)
	if err != nil {
		return "", err
	}
	last, err := firstLetter("last_name", c.LastName)
	if err != nil {
		return "", err
	}
	return first + last, nil
}

// Age returns the patient's age at the given instant.
// When DOB is a date the age is computed in whole years; otherwise the stored
// value is returned verbatim.
func (c *CaseInfo) Age(now time.Time) string {
	dob := strings.TrimSpace(c.DOB)
	for _, layout := range dobLayouts {
		born, err := time.Parse(layout, dob)
		if err != nil {
			continue
		}
		return strconv.Itoa(YearsBetween(born, now))
	}
	return c.DOB
}

// YearsBetween returns the number of complete years from born to now.
// A birth date in the future yields 0.
func YearsBetween(born, now time.Time) int {
	now = now.In(born.Location())
	years := now.Year() - born.Year()
	if now.Month() < born.Month() || (now.Month() == born.Month() && now.Day() < born.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

func firstLetter(field, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", &ValidationError{Field: field, Message: "must not be empty"}
	}
	r, _ := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r)), nil
}
