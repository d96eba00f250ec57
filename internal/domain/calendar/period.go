package calendar

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidPeriod = errors.New("reference period must be in MM/YYYY format")

// Period is a reference month for a pay record, carried as MM/YYYY on the wire.
type Period struct {
	Month time.Month
	Year  int
}

func ParsePeriod(value string) (Period, error) {
	parts := strings.Split(strings.TrimSpace(value), "/")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 4 {
		return Period{}, ErrInvalidPeriod
	}
	month, err := strconv.Atoi(parts[0])
	if err != nil || month < 1 || month > 12 {
		return Period{}, ErrInvalidPeriod
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil || year < 1900 {
		return Period{}, ErrInvalidPeriod
	}
	return Period{Month: time.Month(month), Year: year}, nil
}

func (p Period) String() string {
	return fmt.Sprintf("%02d/%04d", int(p.Month), p.Year)
}

func (p Period) IsZero() bool {
	return p.Month == 0 && p.Year == 0
}

// MarshalJSON keeps the MM/YYYY wire form.
func (p Period) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Period) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return ErrInvalidPeriod
	}
	parsed, err := ParsePeriod(raw)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Start returns midnight UTC on the first day of the period.
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns midnight UTC on the last day of the period.
func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, -1)
}

// DaysInMonth returns the real calendar length of the period.
func (p Period) DaysInMonth() int {
	return p.End().Day()
}

// Contains reports whether the given date falls inside the period.
func (p Period) Contains(date time.Time) bool {
	return date.Year() == p.Year && date.Month() == p.Month
}
