package contract

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

func (s *Store) CreateProvider(ctx context.Context, p Provider) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO providers (company_id, name, email, document, hire_date, status)
    VALUES ($1,$2,$3,$4,$5,$6)
    RETURNING id
  `, p.CompanyID, p.Name, p.Email, nullIfEmpty(p.Document), p.HireDate, p.Status).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Provider(ctx context.Context, companyID, providerID string) (Provider, error) {
	var p Provider
	err := s.DB.QueryRow(ctx, `
    SELECT id, company_id, name, email, COALESCE(document, ''), hire_date, status, created_at, updated_at
    FROM providers
    WHERE company_id = $1 AND id = $2
  `, companyID, providerID).Scan(
		&p.ID, &p.CompanyID, &p.Name, &p.Email, &p.Document, &p.HireDate, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Provider{}, ErrProviderNotFound
	}
	if err != nil {
		return Provider{}, err
	}
	return p, nil
}

func (s *Store) ListProviders(ctx context.Context, companyID string, limit, offset int) ([]Provider, int, error) {
	var total int
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(*) FROM providers WHERE company_id = $1
  `, companyID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.DB.Query(ctx, `
    SELECT id, company_id, name, email, COALESCE(document, ''), hire_date, status, created_at, updated_at
    FROM providers
    WHERE company_id = $1
    ORDER BY name
    LIMIT $2 OFFSET $3
  `, companyID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var providers []Provider
	for rows.Next() {
		var p Provider
		if err := rows.Scan(&p.ID, &p.CompanyID, &p.Name, &p.Email, &p.Document, &p.HireDate, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		providers = append(providers, p)
	}
	return providers, total, nil
}

func (s *Store) UpdateProvider(ctx context.Context, p Provider) error {
	cmd, err := s.DB.Exec(ctx, `
    UPDATE providers
    SET name = $1, email = $2, document = $3, hire_date = $4, status = $5, updated_at = now()
    WHERE company_id = $6 AND id = $7
  `, p.Name, p.Email, nullIfEmpty(p.Document), p.HireDate, p.Status, p.CompanyID, p.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrProviderNotFound
	}
	return nil
}

func (s *Store) UpsertContract(ctx context.Context, c Contract) (Contract, error) {
	err := s.DB.QueryRow(ctx, `
    INSERT INTO contracts (company_id, provider_id, monthly_value, monthly_hours,
      advance_enabled, advance_pct, payment_method,
      voucher_eligible, voucher_fare, voucher_trips_per_day, voucher_fixed_amount)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
    ON CONFLICT (provider_id)
    DO UPDATE SET monthly_value = EXCLUDED.monthly_value,
        monthly_hours = EXCLUDED.monthly_hours,
        advance_enabled = EXCLUDED.advance_enabled,
        advance_pct = EXCLUDED.advance_pct,
        payment_method = EXCLUDED.payment_method,
        voucher_eligible = EXCLUDED.voucher_eligible,
        voucher_fare = EXCLUDED.voucher_fare,
        voucher_trips_per_day = EXCLUDED.voucher_trips_per_day,
        voucher_fixed_amount = EXCLUDED.voucher_fixed_amount,
        updated_at = now()
    RETURNING id, created_at, updated_at
  `, c.CompanyID, c.ProviderID, c.MonthlyValue, c.MonthlyHours,
		c.AdvanceEnabled, c.AdvancePct, c.PaymentMethod,
		c.VoucherEligible, c.VoucherFare, c.VoucherTripsPerDay, c.VoucherFixedAmount,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Contract{}, err
	}
	return c, nil
}

func (s *Store) ContractByProvider(ctx context.Context, companyID, providerID string) (Contract, error) {
	var c Contract
	err := s.DB.QueryRow(ctx, `
    SELECT id, company_id, provider_id, monthly_value, monthly_hours,
           advance_enabled, advance_pct, COALESCE(payment_method, ''),
           voucher_eligible, voucher_fare, voucher_trips_per_day, voucher_fixed_amount,
           created_at, updated_at
    FROM contracts
    WHERE company_id = $1 AND provider_id = $2
  `, companyID, providerID).Scan(
		&c.ID, &c.CompanyID, &c.ProviderID, &c.MonthlyValue, &c.MonthlyHours,
		&c.AdvanceEnabled, &c.AdvancePct, &c.PaymentMethod,
		&c.VoucherEligible, &c.VoucherFare, &c.VoucherTripsPerDay, &c.VoucherFixedAmount,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Contract{}, ErrContractNotFound
	}
	if err != nil {
		return Contract{}, err
	}
	return c, nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
