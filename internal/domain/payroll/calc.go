package payroll

import (
	"github.com/shopspring/decimal"

	"contractorpay/internal/domain/calendar"
	"contractorpay/internal/domain/policy"
	"contractorpay/internal/domain/voucher"
)

var (
	hundred = decimal.NewFromInt(100)
	sixty   = decimal.NewFromInt(60)
	six     = decimal.NewFromInt(6)
)

// Calculate turns contract terms, period inputs, an effective policy and the
// period's calendar facts into a draft pay record. It is pure and
// deterministic: the same four inputs always produce the same record. Every
// line item is rounded to 2 decimal places; gross and net are sums of the
// rounded lines so the totals always match the itemization exactly.
func Calculate(terms ContractTerms, in PeriodInputs, pol policy.CalculationPolicy, facts calendar.Facts) (Record, error) {
	if err := terms.Validate(); err != nil {
		return Record{}, err
	}
	if err := in.Validate(); err != nil {
		return Record{}, err
	}
	if err := pol.Validate(); err != nil {
		return Record{}, err
	}
	if facts.WorkDays <= 0 || facts.TotalDays <= 0 {
		return Record{}, &ConfigurationError{Reason: "period resolved to zero work days"}
	}

	workDays := decimal.NewFromInt(int64(facts.WorkDays))
	restDays := decimal.NewFromInt(int64(facts.RestDays))
	totalDays := decimal.NewFromInt(int64(facts.TotalDays))
	absenceDays := decimal.NewFromInt(int64(in.AbsenceDays))

	hourlyRate := terms.MonthlyValue.Div(terms.MonthlyHours)

	base := terms.MonthlyValue.Round(2)
	earnedBase := base
	if facts.Prorated {
		earnedBase = terms.MonthlyValue.
			Mul(decimal.NewFromInt(int64(facts.DaysWorked))).
			Div(totalDays).
			Round(2)
	}
	proportionalCut := base.Sub(earnedBase)

	overtimeAmt := premiumAmount(hourlyRate, in.OvertimeHours, pol.OvertimePct)
	holidayAmt := premiumAmount(hourlyRate, in.HolidayHours, pol.HolidayPct)
	nightAmt := premiumAmount(hourlyRate, in.NightHours, pol.NightShiftPct)

	var dsrAmt decimal.Decimal
	switch pol.DSRMethod {
	case policy.DSRCalendar:
		dsrAmt = overtimeAmt.Add(holidayAmt).Div(workDays).Mul(restDays).Round(2)
	case policy.DSRFixedRate:
		dsrAmt = overtimeAmt.Div(six).Round(2)
	default:
		return Record{}, &ConfigurationError{Reason: "unknown dsr method " + string(pol.DSRMethod)}
	}

	var advanceAmt decimal.Decimal
	if terms.AdvanceEnabled {
		pct := terms.AdvancePct
		if pct.IsZero() {
			pct = pol.AdvancePct
		}
		advanceAmt = earnedBase.Mul(pct).Div(hundred).Round(2)
	}

	lateAmt := decimal.NewFromInt(int64(in.LateMinutes)).Div(sixty).Mul(hourlyRate).Round(2)

	var absenceAmt, dsrOnAbsence decimal.Decimal
	if in.AbsenceDays > 0 {
		hoursPerDay := terms.MonthlyHours.Div(workDays)
		absenceAmt = absenceDays.Mul(hourlyRate).Mul(hoursPerDay).Round(2)
		dsrOnAbsence = dsrAmt.Mul(absenceDays).Div(workDays).Round(2)
	}

	voucherAmt := decimal.Zero
	if terms.VoucherEligible {
		amount, err := voucher.Calculate(voucher.Input{
			Mode:        pol.VoucherMode,
			Fare:        terms.VoucherFare,
			TripsPerDay: terms.VoucherTripsPerDay,
			FixedAmount: terms.VoucherFixedAmount,
			DaysWorked:  facts.WorkDays,
			AbsenceDays: in.AbsenceDays,
		})
		if err != nil {
			return Record{}, &ConfigurationError{Reason: err.Error()}
		}
		voucherAmt = amount.Round(2)
	}
	manualAmt := in.ManualDiscount.Round(2)

	rec := Record{
		ProviderID:          terms.ProviderID,
		Period:              in.Period,
		Status:              StatusDraft,
		Base:                base,
		ProportionalCut:     proportionalCut,
		OvertimeAmount:      overtimeAmt,
		HolidayAmount:       holidayAmt,
		NightAmount:         nightAmt,
		DSRAmount:           dsrAmt,
		AdvanceAmount:       advanceAmt,
		LateDiscount:        lateAmt,
		AbsenceDiscount:     absenceAmt,
		DSROnAbsence:        dsrOnAbsence,
		VoucherDeduction:    voucherAmt,
		VoucherSettledApart: pol.VoucherSettledSeparately,
		ManualDiscount:      manualAmt,
		Inputs:              in,
	}

	rec.addLine(CategoryEarning, "base pay", earnedBase)
	rec.addLine(CategoryEarning, "overtime premium", overtimeAmt)
	rec.addLine(CategoryEarning, "holiday premium", holidayAmt)
	rec.addLine(CategoryEarning, "night shift premium", nightAmt)
	rec.addLine(CategoryEarning, "rest day premium", dsrAmt)
	rec.addLine(CategoryDeduction, "salary advance", advanceAmt)
	rec.addLine(CategoryDeduction, "late arrival discount", lateAmt)
	rec.addLine(CategoryDeduction, "absence discount", absenceAmt)
	rec.addLine(CategoryDeduction, "rest day premium loss on absence", dsrOnAbsence)
	rec.addLine(CategoryDeduction, "manual discount", manualAmt)
	if pol.VoucherSettledSeparately {
		rec.addLine(CategoryInfo, "transport voucher (settled separately)", voucherAmt)
	} else {
		rec.addLine(CategoryDeduction, "transport voucher", voucherAmt)
	}

	gross := decimal.Zero
	deductions := decimal.Zero
	for _, line := range rec.Lines {
		if line.Amount.IsNegative() {
			return Record{}, &ValidationError{Field: line.Description, Reason: "computed a negative amount"}
		}
		switch line.Category {
		case CategoryEarning:
			gross = gross.Add(line.Amount)
		case CategoryDeduction:
			deductions = deductions.Add(line.Amount)
		}
	}
	rec.Gross = gross
	rec.Net = gross.Sub(deductions)

	if rec.Net.IsNegative() {
		rec.Warnings = append(rec.Warnings, WarningNegativeNet)
	}
	return rec, nil
}

// premiumAmount prices hours at the hourly rate uplifted by a percentage,
// e.g. 50 means time-and-a-half.
func premiumAmount(hourlyRate, hours, pct decimal.Decimal) decimal.Decimal {
	return hourlyRate.Mul(hours).Mul(hundred.Add(pct)).Div(hundred).Round(2)
}

// addLine appends a non-zero line item. The base pay line is kept even at
// zero so every record shows its origin.
func (r *Record) addLine(category, description string, amount decimal.Decimal) {
	if amount.IsZero() && len(r.Lines) > 0 {
		return
	}
	r.Lines = append(r.Lines, LineItem{Category: category, Description: description, Amount: amount})
}
