package db

import (
	"context"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"contractorpay/internal/domain/auth"
	"contractorpay/internal/platform/config"
)

// Seed provisions the default company, its admin user and the protected
// default policy template. Every step is idempotent.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	companyID, err := ensureCompany(ctx, pool, cfg.SeedCompanyName)
	if err != nil {
		return err
	}

	if err := ensureDefaultTemplate(ctx, pool); err != nil {
		return err
	}

	if cfg.SeedAdminEmail != "" {
		if err := ensureAdminUser(ctx, pool, companyID, cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
			return err
		}
	}
	return nil
}

func ensureCompany(ctx context.Context, pool *pgxpool.Pool, name string) (string, error) {
	var id string
	err := pool.QueryRow(ctx, "SELECT id FROM companies WHERE name = $1", name).Scan(&id)
	if err == nil {
		return id, nil
	}

	err = pool.QueryRow(ctx, "INSERT INTO companies (name) VALUES ($1) RETURNING id", name).Scan(&id)
	if err != nil {
		return "", err
	}
	slog.Info("seeded company", "name", name)
	return id, nil
}

// ensureDefaultTemplate creates the system-wide protected template. Its
// values are the common market parameters and it can never be edited.
func ensureDefaultTemplate(ctx context.Context, pool *pgxpool.Pool) error {
	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(1) FROM policy_templates WHERE is_default = true").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	_, err := pool.Exec(ctx, `
    INSERT INTO policy_templates (name, is_default, overtime_pct, night_shift_pct, holiday_pct,
      advance_pct, voucher_mode, voucher_settled_separately, business_days_rule, dsr_method)
    VALUES ('Standard', true, 50, 20, 100, 40, 'DYNAMIC_PER_DAY', false, 'FIXED_30', 'CALENDAR')
  `)
	if err != nil {
		return err
	}
	slog.Info("seeded default policy template")
	return nil
}

func ensureAdminUser(ctx context.Context, pool *pgxpool.Pool, companyID, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(1) FROM users WHERE email = $1", email).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	_, err = pool.Exec(ctx, `
    INSERT INTO users (company_id, email, password_hash, role, status)
    VALUES ($1, $2, $3, $4, $5)
  `, companyID, email, hash, auth.RoleAdmin, auth.UserStatusActive)
	if err != nil {
		return err
	}
	slog.Info("seeded admin user", "email", email)
	return nil
}
