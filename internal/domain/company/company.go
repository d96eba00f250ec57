package company

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"contractorpay/internal/domain/auth"
)

var (
	ErrCompanyNotFound = errors.New("company not found")
	ErrUserExists      = errors.New("a user with this email already exists")
)

type Company struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type User struct {
	ID        string     `json:"id"`
	CompanyID string     `json:"companyId"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	Status    string     `json:"status"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) Company(ctx context.Context, companyID string) (Company, error) {
	var c Company
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, created_at FROM companies WHERE id = $1
  `, companyID).Scan(&c.ID, &c.Name, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Company{}, ErrCompanyNotFound
	}
	if err != nil {
		return Company{}, err
	}
	return c, nil
}

func (s *Store) Rename(ctx context.Context, companyID, name string) error {
	cmd, err := s.DB.Exec(ctx, "UPDATE companies SET name = $1 WHERE id = $2", name, companyID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrCompanyNotFound
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context, companyID string) ([]User, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, company_id, email, role, status, last_login, created_at
    FROM users
    WHERE company_id = $1
    ORDER BY email
  `, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.CompanyID, &u.Email, &u.Role, &u.Status, &u.LastLogin, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

// CreateUser provisions an account inside the caller's company. The password
// is stored as a bcrypt hash only.
func (s *Store) CreateUser(ctx context.Context, companyID, email, password, role string) (User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return User{}, err
	}

	email = strings.ToLower(strings.TrimSpace(email))
	var u User
	err = s.DB.QueryRow(ctx, `
    INSERT INTO users (company_id, email, password_hash, role, status)
    VALUES ($1, $2, $3, $4, $5)
    RETURNING id, company_id, email, role, status, last_login, created_at
  `, companyID, email, hash, role, auth.UserStatusActive).Scan(
		&u.ID, &u.CompanyID, &u.Email, &u.Role, &u.Status, &u.LastLogin, &u.CreatedAt,
	)
	if isUniqueViolation(err) {
		return User{}, ErrUserExists
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
