package payroll

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"contractorpay/internal/domain/calendar"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

const recordColumns = `
  id, company_id, provider_id, period, status,
  base, proportional_cut, overtime_amount, holiday_amount, night_amount,
  dsr_amount, advance_amount, late_discount, absence_discount, dsr_on_absence,
  voucher_deduction, voucher_settled_apart, manual_discount, gross, net,
  inputs, lines, warnings, closed_at, paid_at, version, created_at, updated_at`

func (s *Store) Insert(ctx context.Context, rec *Record) error {
	inputsJSON, linesJSON, err := marshalRecordJSON(rec)
	if err != nil {
		return err
	}
	err = s.DB.QueryRow(ctx, `
    INSERT INTO pay_records (company_id, provider_id, period, status,
      base, proportional_cut, overtime_amount, holiday_amount, night_amount,
      dsr_amount, advance_amount, late_discount, absence_discount, dsr_on_absence,
      voucher_deduction, voucher_settled_apart, manual_discount, gross, net,
      inputs, lines, warnings)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)
    RETURNING id, version, created_at, updated_at
  `, rec.CompanyID, rec.ProviderID, rec.Period.String(), rec.Status,
		rec.Base, rec.ProportionalCut, rec.OvertimeAmount, rec.HolidayAmount, rec.NightAmount,
		rec.DSRAmount, rec.AdvanceAmount, rec.LateDiscount, rec.AbsenceDiscount, rec.DSROnAbsence,
		rec.VoucherDeduction, rec.VoucherSettledApart, rec.ManualDiscount, rec.Gross, rec.Net,
		inputsJSON, linesJSON, rec.Warnings,
	).Scan(&rec.ID, &rec.Version, &rec.CreatedAt, &rec.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrRecordExists
	}
	return err
}

func (s *Store) ByID(ctx context.Context, companyID, recordID string) (Record, error) {
	return s.scanRecord(s.DB.QueryRow(ctx, `
    SELECT`+recordColumns+`
    FROM pay_records
    WHERE company_id = $1 AND id = $2
  `, companyID, recordID))
}

func (s *Store) List(ctx context.Context, companyID string, filter Filter, limit, offset int) ([]Record, int, error) {
	where := "WHERE company_id = $1"
	args := []any{companyID}
	if filter.ProviderID != "" {
		args = append(args, filter.ProviderID)
		where += fmt.Sprintf(" AND provider_id = $%d", len(args))
	}
	if filter.Period != "" {
		args = append(args, filter.Period)
		where += fmt.Sprintf(" AND period = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var total int
	if err := s.DB.QueryRow(ctx, `SELECT COUNT(*) FROM pay_records `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := s.DB.Query(ctx, `
    SELECT`+recordColumns+`
    FROM pay_records `+where+`
    ORDER BY period DESC, created_at DESC
    LIMIT $`+fmt.Sprint(len(args)-1)+` OFFSET $`+fmt.Sprint(len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := s.scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, rec)
	}
	return records, total, nil
}

func (s *Store) Update(ctx context.Context, rec *Record) error {
	inputsJSON, linesJSON, err := marshalRecordJSON(rec)
	if err != nil {
		return err
	}
	cmd, err := s.DB.Exec(ctx, `
    UPDATE pay_records
    SET status = $1,
        base = $2, proportional_cut = $3, overtime_amount = $4, holiday_amount = $5,
        night_amount = $6, dsr_amount = $7, advance_amount = $8, late_discount = $9,
        absence_discount = $10, dsr_on_absence = $11, voucher_deduction = $12,
        voucher_settled_apart = $13, manual_discount = $14, gross = $15, net = $16,
        inputs = $17, lines = $18, warnings = $19, closed_at = $20, paid_at = $21,
        version = version + 1, updated_at = now()
    WHERE company_id = $22 AND id = $23 AND version = $24
  `, rec.Status,
		rec.Base, rec.ProportionalCut, rec.OvertimeAmount, rec.HolidayAmount,
		rec.NightAmount, rec.DSRAmount, rec.AdvanceAmount, rec.LateDiscount,
		rec.AbsenceDiscount, rec.DSROnAbsence, rec.VoucherDeduction,
		rec.VoucherSettledApart, rec.ManualDiscount, rec.Gross, rec.Net,
		inputsJSON, linesJSON, rec.Warnings, rec.ClosedAt, rec.PaidAt,
		rec.CompanyID, rec.ID, rec.Version)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		if _, err := s.ByID(ctx, rec.CompanyID, rec.ID); errors.Is(err, ErrRecordNotFound) {
			return ErrRecordNotFound
		}
		return ErrVersionConflict
	}
	rec.Version++
	return nil
}

func (s *Store) RegisterRows(ctx context.Context, companyID, period string) ([]RegisterRow, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT r.provider_id, p.name, r.period, r.gross, r.gross - r.net, r.net, r.status
    FROM pay_records r
    JOIN providers p ON p.id = r.provider_id
    WHERE r.company_id = $1 AND r.period = $2
    ORDER BY p.name
  `, companyID, period)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var register []RegisterRow
	for rows.Next() {
		var row RegisterRow
		if err := rows.Scan(&row.ProviderID, &row.ProviderName, &row.Period, &row.Gross, &row.Deductions, &row.Net, &row.Status); err != nil {
			return nil, err
		}
		register = append(register, row)
	}
	return register, nil
}

func (s *Store) PeriodSummary(ctx context.Context, companyID, period string) (PeriodSummary, error) {
	summary := PeriodSummary{Warnings: map[string]int{}}
	var warningLists [][]string
	rows, err := s.DB.Query(ctx, `
    SELECT gross, net, warnings
    FROM pay_records
    WHERE company_id = $1 AND period = $2
  `, companyID, period)
	if err != nil {
		return PeriodSummary{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var gross, net decimal.Decimal
		var warnings []string
		if err := rows.Scan(&gross, &net, &warnings); err != nil {
			return PeriodSummary{}, err
		}
		summary.TotalGross = summary.TotalGross.Add(gross)
		summary.TotalNet = summary.TotalNet.Add(net)
		summary.ProviderCount++
		warningLists = append(warningLists, warnings)
	}
	for _, list := range warningLists {
		for _, warning := range list {
			summary.Warnings[warning]++
		}
	}
	return summary, nil
}

func (s *Store) scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	var period string
	var inputsJSON, linesJSON []byte
	err := row.Scan(
		&rec.ID, &rec.CompanyID, &rec.ProviderID, &period, &rec.Status,
		&rec.Base, &rec.ProportionalCut, &rec.OvertimeAmount, &rec.HolidayAmount, &rec.NightAmount,
		&rec.DSRAmount, &rec.AdvanceAmount, &rec.LateDiscount, &rec.AbsenceDiscount, &rec.DSROnAbsence,
		&rec.VoucherDeduction, &rec.VoucherSettledApart, &rec.ManualDiscount, &rec.Gross, &rec.Net,
		&inputsJSON, &linesJSON, &rec.Warnings, &rec.ClosedAt, &rec.PaidAt,
		&rec.Version, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrRecordNotFound
	}
	if err != nil {
		return Record{}, err
	}
	rec.Period, err = calendar.ParsePeriod(period)
	if err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal(inputsJSON, &rec.Inputs); err != nil {
		return Record{}, err
	}
	rec.Inputs.Period = rec.Period
	if err := json.Unmarshal(linesJSON, &rec.Lines); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func marshalRecordJSON(rec *Record) (inputs, lines []byte, err error) {
	inputs, err = json.Marshal(rec.Inputs)
	if err != nil {
		return nil, nil, err
	}
	lines, err = json.Marshal(rec.Lines)
	if err != nil {
		return nil, nil, err
	}
	return inputs, lines, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
