package payroll

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"contractorpay/internal/domain/calendar"
	"contractorpay/internal/domain/policy"
	"contractorpay/internal/domain/voucher"
)

func testTerms() ContractTerms {
	return ContractTerms{
		ProviderID:   "prov-1",
		MonthlyValue: decimal.NewFromInt(2200),
		MonthlyHours: decimal.NewFromInt(220),
	}
}

func testPolicy() policy.CalculationPolicy {
	return policy.CalculationPolicy{
		CompanyID:        "co-1",
		OvertimePct:      decimal.NewFromInt(50),
		NightShiftPct:    decimal.NewFromInt(20),
		HolidayPct:       decimal.NewFromInt(100),
		AdvancePct:       decimal.NewFromInt(40),
		VoucherMode:      voucher.ModeNone,
		BusinessDaysRule: calendar.RuleFixed30,
		DSRMethod:        policy.DSRCalendar,
	}
}

func fixedFacts(t *testing.T, hire *time.Time) calendar.Facts {
	t.Helper()
	facts, err := calendar.Resolve(calendar.Period{Month: time.April, Year: 2021}, calendar.RuleFixed30, hire)
	if err != nil {
		t.Fatalf("resolve facts: %v", err)
	}
	return facts
}

func testInputs() PeriodInputs {
	return PeriodInputs{Period: calendar.Period{Month: time.April, Year: 2021}}
}

func mustAmount(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Fatalf("expected %s %s, got %s", name, want, got.StringFixed(2))
	}
}

func TestCalculateOvertimeAndRestDayPremium(t *testing.T) {
	in := testInputs()
	in.OvertimeHours = decimal.NewFromInt(5)

	rec, err := Calculate(testTerms(), in, testPolicy(), fixedFacts(t, nil))
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	mustAmount(t, "overtime", rec.OvertimeAmount, "75.00")
	mustAmount(t, "dsr", rec.DSRAmount, "27.27")
	mustAmount(t, "gross", rec.Gross, "2302.27")
	mustAmount(t, "net", rec.Net, "2302.27")
	if rec.Status != StatusDraft {
		t.Fatalf("expected draft record, got %s", rec.Status)
	}
}

func TestCalculateFixedRateDSR(t *testing.T) {
	in := testInputs()
	in.OvertimeHours = decimal.NewFromInt(5)
	pol := testPolicy()
	pol.DSRMethod = policy.DSRFixedRate

	rec, err := Calculate(testTerms(), in, pol, fixedFacts(t, nil))
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	mustAmount(t, "dsr", rec.DSRAmount, "12.50")
}

func TestCalculateProratesFirstMonth(t *testing.T) {
	terms := testTerms()
	terms.MonthlyValue = decimal.NewFromInt(3000)
	in := testInputs()
	hire := time.Date(2021, time.April, 15, 0, 0, 0, 0, time.UTC)
	in.HireDate = &hire

	rec, err := Calculate(terms, in, testPolicy(), fixedFacts(t, &hire))
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	mustAmount(t, "gross", rec.Gross, "1600.00")
	mustAmount(t, "proportional cut", rec.ProportionalCut, "1400.00")
}

func TestCalculateLateMinutes(t *testing.T) {
	in := testInputs()
	in.LateMinutes = 90

	rec, err := Calculate(testTerms(), in, testPolicy(), fixedFacts(t, nil))
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	mustAmount(t, "late discount", rec.LateDiscount, "15.00")
	mustAmount(t, "net", rec.Net, "2185.00")
}

func TestCalculateAbsenceDiscounts(t *testing.T) {
	in := testInputs()
	in.OvertimeHours = decimal.NewFromInt(5)
	in.AbsenceDays = 2

	rec, err := Calculate(testTerms(), in, testPolicy(), fixedFacts(t, nil))
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	mustAmount(t, "absence discount", rec.AbsenceDiscount, "200.00")
	mustAmount(t, "dsr on absence", rec.DSROnAbsence, "2.48")
	mustAmount(t, "net", rec.Net, "2099.79")
}

func TestCalculateAdvanceFallsBackToPolicyPct(t *testing.T) {
	terms := testTerms()
	terms.AdvanceEnabled = true

	rec, err := Calculate(terms, testInputs(), testPolicy(), fixedFacts(t, nil))
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	mustAmount(t, "advance", rec.AdvanceAmount, "880.00")
	mustAmount(t, "net", rec.Net, "1320.00")
}

func TestCalculateVoucherDeduction(t *testing.T) {
	terms := testTerms()
	terms.VoucherEligible = true
	terms.VoucherFare = decimal.RequireFromString("4.60")
	terms.VoucherTripsPerDay = 4
	pol := testPolicy()
	pol.VoucherMode = voucher.ModeDynamicPerDay
	in := testInputs()
	in.AbsenceDays = 2

	rec, err := Calculate(terms, in, pol, fixedFacts(t, nil))
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	mustAmount(t, "voucher", rec.VoucherDeduction, "368.00")
	if rec.Net.GreaterThanOrEqual(rec.Gross) {
		t.Fatal("expected voucher to reduce net below gross")
	}
}

func TestCalculateVoucherSettledSeparately(t *testing.T) {
	terms := testTerms()
	terms.VoucherEligible = true
	terms.VoucherFare = decimal.RequireFromString("4.60")
	terms.VoucherTripsPerDay = 4
	pol := testPolicy()
	pol.VoucherMode = voucher.ModeDynamicPerDay
	pol.VoucherSettledSeparately = true

	rec, err := Calculate(terms, testInputs(), pol, fixedFacts(t, nil))
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if !rec.VoucherSettledApart {
		t.Fatal("expected voucher to be flagged as settled separately")
	}
	mustAmount(t, "net", rec.Net, "2200.00")
	found := false
	for _, line := range rec.Lines {
		if line.Category == CategoryInfo {
			found = true
		}
	}
	if !found {
		t.Fatal("expected an informational voucher line item")
	}
}

func TestCalculateNegativeNetWarning(t *testing.T) {
	in := testInputs()
	in.ManualDiscount = decimal.NewFromInt(5000)

	rec, err := Calculate(testTerms(), in, testPolicy(), fixedFacts(t, nil))
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if !rec.Net.IsNegative() {
		t.Fatalf("expected negative net, got %s", rec.Net)
	}
	if len(rec.Warnings) != 1 || rec.Warnings[0] != WarningNegativeNet {
		t.Fatalf("expected negative_net warning, got %v", rec.Warnings)
	}
}

func TestCalculateRejectsNegativeInput(t *testing.T) {
	in := testInputs()
	in.OvertimeHours = decimal.NewFromInt(-1)

	_, err := Calculate(testTerms(), in, testPolicy(), fixedFacts(t, nil))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCalculateRejectsMissingContractHours(t *testing.T) {
	terms := testTerms()
	terms.MonthlyHours = decimal.Zero

	_, err := Calculate(terms, testInputs(), testPolicy(), fixedFacts(t, nil))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCalculateIsDeterministic(t *testing.T) {
	in := testInputs()
	in.OvertimeHours = decimal.NewFromInt(5)
	in.AbsenceDays = 1
	in.LateMinutes = 30

	first, err := Calculate(testTerms(), in, testPolicy(), fixedFacts(t, nil))
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	second, err := Calculate(testTerms(), in, testPolicy(), fixedFacts(t, nil))
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if !first.Net.Equal(second.Net) || !first.Gross.Equal(second.Gross) || len(first.Lines) != len(second.Lines) {
		t.Fatal("expected identical records from identical inputs")
	}
}

func TestCalculateTotalsMatchLineItems(t *testing.T) {
	terms := testTerms()
	terms.AdvanceEnabled = true
	in := testInputs()
	in.OvertimeHours = decimal.NewFromInt(5)
	in.HolidayHours = decimal.NewFromInt(8)
	in.AbsenceDays = 2
	in.LateMinutes = 45

	rec, err := Calculate(terms, in, testPolicy(), fixedFacts(t, nil))
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	earnings := decimal.Zero
	deductions := decimal.Zero
	for _, line := range rec.Lines {
		switch line.Category {
		case CategoryEarning:
			earnings = earnings.Add(line.Amount)
		case CategoryDeduction:
			deductions = deductions.Add(line.Amount)
		}
	}
	if !rec.Gross.Equal(earnings) {
		t.Fatalf("expected gross %s to equal earning lines %s", rec.Gross, earnings)
	}
	if !rec.Net.Equal(earnings.Sub(deductions)) {
		t.Fatalf("expected net %s to equal earnings minus deductions %s", rec.Net, earnings.Sub(deductions))
	}
}
