package policy

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

const policyColumns = `
  overtime_pct, night_shift_pct, holiday_pct, advance_pct,
  voucher_mode, voucher_settled_separately, business_days_rule, dsr_method`

func (s *Store) CompanyPolicy(ctx context.Context, companyID string) (CalculationPolicy, error) {
	var p CalculationPolicy
	var templateID *string
	err := s.DB.QueryRow(ctx, `
    SELECT company_id, template_id::text,`+policyColumns+`, updated_at
    FROM company_policies
    WHERE company_id = $1
  `, companyID).Scan(
		&p.CompanyID, &templateID,
		&p.OvertimePct, &p.NightShiftPct, &p.HolidayPct, &p.AdvancePct,
		&p.VoucherMode, &p.VoucherSettledSeparately, &p.BusinessDaysRule, &p.DSRMethod,
		&p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return CalculationPolicy{}, ErrNoCompanyPolicy
	}
	if err != nil {
		return CalculationPolicy{}, err
	}
	if templateID != nil {
		p.TemplateID = *templateID
	}
	return p, nil
}

func (s *Store) UpsertCompanyPolicy(ctx context.Context, p CalculationPolicy) (CalculationPolicy, error) {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO company_policies (company_id, template_id, overtime_pct, night_shift_pct, holiday_pct,
      advance_pct, voucher_mode, voucher_settled_separately, business_days_rule, dsr_method)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
    ON CONFLICT (company_id)
    DO UPDATE SET template_id = EXCLUDED.template_id,
        overtime_pct = EXCLUDED.overtime_pct,
        night_shift_pct = EXCLUDED.night_shift_pct,
        holiday_pct = EXCLUDED.holiday_pct,
        advance_pct = EXCLUDED.advance_pct,
        voucher_mode = EXCLUDED.voucher_mode,
        voucher_settled_separately = EXCLUDED.voucher_settled_separately,
        business_days_rule = EXCLUDED.business_days_rule,
        dsr_method = EXCLUDED.dsr_method,
        updated_at = now()
  `, p.CompanyID, nullIfEmpty(p.TemplateID), p.OvertimePct, p.NightShiftPct, p.HolidayPct,
		p.AdvancePct, p.VoucherMode, p.VoucherSettledSeparately, p.BusinessDaysRule, p.DSRMethod)
	if err != nil {
		return CalculationPolicy{}, err
	}
	return s.CompanyPolicy(ctx, p.CompanyID)
}

func (s *Store) TemplateByID(ctx context.Context, templateID string) (Template, error) {
	return s.scanTemplate(s.DB.QueryRow(ctx, `
    SELECT id, name, is_default,`+policyColumns+`, created_at
    FROM policy_templates
    WHERE id = $1
  `, templateID))
}

func (s *Store) DefaultTemplate(ctx context.Context) (Template, error) {
	return s.scanTemplate(s.DB.QueryRow(ctx, `
    SELECT id, name, is_default,`+policyColumns+`, created_at
    FROM policy_templates
    WHERE is_default = true
  `))
}

func (s *Store) scanTemplate(row pgx.Row) (Template, error) {
	var t Template
	err := row.Scan(
		&t.ID, &t.Name, &t.IsDefault,
		&t.OvertimePct, &t.NightShiftPct, &t.HolidayPct, &t.AdvancePct,
		&t.VoucherMode, &t.VoucherSettledSeparately, &t.BusinessDaysRule, &t.DSRMethod,
		&t.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Template{}, ErrTemplateNotFound
	}
	if err != nil {
		return Template{}, err
	}
	return t, nil
}

func (s *Store) ListTemplates(ctx context.Context) ([]Template, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, is_default,`+policyColumns+`, created_at
    FROM policy_templates
    ORDER BY is_default DESC, name
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []Template
	for rows.Next() {
		var t Template
		if err := rows.Scan(
			&t.ID, &t.Name, &t.IsDefault,
			&t.OvertimePct, &t.NightShiftPct, &t.HolidayPct, &t.AdvancePct,
			&t.VoucherMode, &t.VoucherSettledSeparately, &t.BusinessDaysRule, &t.DSRMethod,
			&t.CreatedAt,
		); err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, nil
}

func (s *Store) CreateTemplate(ctx context.Context, t Template) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO policy_templates (name, is_default, overtime_pct, night_shift_pct, holiday_pct,
      advance_pct, voucher_mode, voucher_settled_separately, business_days_rule, dsr_method)
    VALUES ($1,false,$2,$3,$4,$5,$6,$7,$8,$9)
    RETURNING id
  `, t.Name, t.OvertimePct, t.NightShiftPct, t.HolidayPct, t.AdvancePct,
		t.VoucherMode, t.VoucherSettledSeparately, t.BusinessDaysRule, t.DSRMethod).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) UpdateTemplate(ctx context.Context, t Template) error {
	cmd, err := s.DB.Exec(ctx, `
    UPDATE policy_templates
    SET name = $1,
        overtime_pct = $2,
        night_shift_pct = $3,
        holiday_pct = $4,
        advance_pct = $5,
        voucher_mode = $6,
        voucher_settled_separately = $7,
        business_days_rule = $8,
        dsr_method = $9
    WHERE id = $10 AND is_default = false
  `, t.Name, t.OvertimePct, t.NightShiftPct, t.HolidayPct, t.AdvancePct,
		t.VoucherMode, t.VoucherSettledSeparately, t.BusinessDaysRule, t.DSRMethod, t.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

func (s *Store) DeleteTemplate(ctx context.Context, templateID string) error {
	cmd, err := s.DB.Exec(ctx, `
    DELETE FROM policy_templates WHERE id = $1 AND is_default = false
  `, templateID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
