package transfer

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
)

const DateLayout = "2006-01-02"

// Date is a calendar date without time or zone, serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(DateLayout) {
		// Tolerate full timestamps, keep only the date part.
		s = s[:len(DateLayout)]
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(DateLayout))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// LocalDate computes the calendar date of utc in the named IANA zone. Unknown
// zones fall back to UTC.
func LocalDate(utc time.Time, zone string) Date {
	loc, err := time.LoadLocation(NormalizeTimezone(zone))
	if err != nil {
		loc = time.UTC
	}
	return DateOf(utc.In(loc))
}

// NormalizeTimezone returns a loadable IANA zone name, defaulting to UTC.
func NormalizeTimezone(zone string) string {
	zone = strings.TrimSpace(zone)
	if zone == "" {
		return "UTC"
	}
	if _, err := time.LoadLocation(zone); err != nil {
		return "UTC"
	}
	return zone
}
