package voucher

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Mode selects how the transport voucher entitlement is computed.
type Mode string

const (
	ModeNone          Mode = "NONE"
	ModeFixed         Mode = "FIXED"
	ModeDynamicPerDay Mode = "DYNAMIC_PER_DAY"
	// ModeDynamicPerTrip bills trips aggregated per traversal instead of per
	// day. The amount reduces to the same formula as DYNAMIC_PER_DAY; the
	// distinction is a settlement detail carried on the policy.
	ModeDynamicPerTrip Mode = "DYNAMIC_PER_TRIP"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeNone, ModeFixed, ModeDynamicPerDay, ModeDynamicPerTrip:
		return true
	}
	return false
}

// Input carries everything the voucher calculation needs for one period.
type Input struct {
	Mode        Mode
	Fare        decimal.Decimal
	TripsPerDay int
	FixedAmount decimal.Decimal
	DaysWorked  int
	AbsenceDays int
}

// Calculate returns the voucher deduction for the period. The result never
// goes below zero.
func Calculate(in Input) (decimal.Decimal, error) {
	switch in.Mode {
	case ModeNone:
		return decimal.Zero, nil
	case ModeFixed:
		return in.FixedAmount, nil
	case ModeDynamicPerDay, ModeDynamicPerTrip:
		attendedDays := in.DaysWorked - in.AbsenceDays
		if attendedDays < 0 {
			attendedDays = 0
		}
		return in.Fare.
			Mul(decimal.NewFromInt(int64(in.TripsPerDay))).
			Mul(decimal.NewFromInt(int64(attendedDays))), nil
	default:
		return decimal.Zero, fmt.Errorf("unknown voucher mode %q", in.Mode)
	}
}
