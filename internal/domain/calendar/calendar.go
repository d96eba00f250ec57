package calendar

import (
	"fmt"
	"time"
)

// Rule selects how day counts are derived for a reference period.
type Rule string

const (
	RuleFixed30      Rule = "FIXED_30"
	RuleRealCalendar Rule = "REAL_CALENDAR"
)

const (
	fixedTotalDays = 30
	fixedWorkDays  = 22
)

func (r Rule) Valid() bool {
	return r == RuleFixed30 || r == RuleRealCalendar
}

// Facts holds the day counts derived for one reference period. They are
// computed on demand and never stored.
type Facts struct {
	TotalDays  int
	WorkDays   int
	RestDays   int
	DaysWorked int
	Prorated   bool
}

// Resolve derives calendar facts for the period under the given rule. A hire
// date inside the period prorates DaysWorked; a hire date outside the period
// leaves the full period in effect.
func Resolve(period Period, rule Rule, hireDate *time.Time) (Facts, error) {
	var facts Facts
	switch rule {
	case RuleFixed30:
		facts.TotalDays = fixedTotalDays
		facts.WorkDays = fixedWorkDays
	case RuleRealCalendar:
		facts.TotalDays = period.DaysInMonth()
		facts.WorkDays = realWorkDays(period)
	default:
		return Facts{}, fmt.Errorf("unknown business days rule %q", rule)
	}
	facts.RestDays = facts.TotalDays - facts.WorkDays

	facts.DaysWorked = facts.TotalDays
	if hireDate != nil && period.Contains(*hireDate) {
		facts.DaysWorked = facts.TotalDays - hireDate.Day() + 1
		facts.Prorated = true
	}
	return facts, nil
}

func realWorkDays(period Period) int {
	workDays := 0
	for day := period.Start(); !day.After(period.End()); day = day.AddDate(0, 0, 1) {
		if day.Weekday() != time.Saturday && day.Weekday() != time.Sunday {
			workDays++
		}
	}
	return workDays
}
