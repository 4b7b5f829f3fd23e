package domain

import (
	"fmt"
	"strings"
	"time"
)

// dateLayout is the wire format for release dates.
const dateLayout = "2006-01-02"

// Date is a calendar date without a time component. It marshals to the
// contractual "YYYY-MM-DD" form.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate builds a Date from its components.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// DateOf truncates a time.Time to its calendar date.
func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// ParseDate parses value using a time.Parse layout and keeps only the
// date part.
func ParseDate(layout, value string) (Date, error) {
	t, err := time.Parse(layout, strings.TrimSpace(value))
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// String returns the wire form.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return fmt.Errorf("parse date %q: %w", s, err)
	}
	*d = DateOf(t)
	return nil
}
