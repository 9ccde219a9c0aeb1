// Package types implements special types for the reconciler.
package types

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// Date is a calendar date without a time of day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate returns a new Date.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// DateOf returns the Date on which a time occurs in that time's location.
func DateOf(t time.Time) Date {
	year, month, day := t.Date()
	return Date{Year: year, Month: month, Day: day}
}

// ParseDate parses a string in RFC3339 full-date format and returns the Date
// value it represents.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}

	return DateOf(t), nil
}

// String returns the date formatted as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Time returns the time.Time at midnight UTC on the date.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// MarshalJSON implements the json.Marshaler interface.
// The output is the result of d.String().
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface.
// The date is expected to be a string in RFC3339 full-date format or a full
// RFC3339 timestamp, of which everything except the date part is ignored.
func (d *Date) UnmarshalJSON(data []byte) error {
	value := strings.Trim(string(data), `"`) // get rid of "
	if value == "" || value == "null" {
		return nil
	}

	pattern := "2006-01-02"
	if strings.Contains(value, "T") {
		pattern = "2006-01-02T15:04:05Z07:00"
	}

	t, err := time.Parse(pattern, value)
	if err != nil {
		return err
	}

	*d = DateOf(t)
	return nil
}

// Scan reads the value from the database.
func (d *Date) Scan(value interface{}) (err error) {
	nullTime := &sql.NullTime{}
	err = nullTime.Scan(value)
	*d = DateOf(nullTime.Time)
	return err
}

// Value returns the value for the SQL driver to write to the database.
func (d Date) Value() (driver.Value, error) {
	return d.Time(), nil
}

// GormDataType defines the data type used by gorm for the type.
func (Date) GormDataType() string {
	return "date"
}

// IsZero reports if the date is the zero value.
func (d Date) IsZero() bool {
	return d == Date{}
}

// Before reports whether the date d is before e.
func (d Date) Before(e Date) bool {
	return d.Time().Before(e.Time())
}

// After reports whether the date d is after e.
func (d Date) After(e Date) bool {
	return d.Time().After(e.Time())
}

// DaysIn returns the number of days in a month.
func DaysIn(year int, month time.Month) int {
	// Day 0 of the following month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// RollForward returns the date months after d, keeping the day of month.
//
// When the anchor day does not exist in the target month, the day is clamped
// to the last day of that month. The clamp is computed from the anchor day
// every time, so an anchor on the 31st stays on the 31st in months that have
// one even when an earlier month clamped it down.
func (d Date) RollForward(months int) Date {
	year, month := d.Year, int(d.Month)+months
	for month > 12 {
		month -= 12
		year++
	}

	day := d.Day
	if last := DaysIn(year, time.Month(month)); day > last {
		day = last
	}

	return Date{Year: year, Month: time.Month(month), Day: day}
}
