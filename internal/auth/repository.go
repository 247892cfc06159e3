package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medigrid-hms/backend/internal/models"
)

// Repository handles user persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a user repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, COALESCE(email, ''), COALESCE(phone, ''), COALESCE(password_hash, ''), full_name, role, organization_id, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Phone, &u.Password, &u.FullName, &u.Role, &u.OrganizationID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new email/password user.
func (r *Repository) Create(ctx context.Context, email, passwordHash, fullName string, role models.Role, orgID *uuid.UUID) (*models.User, error) {
	const q = `INSERT INTO users (id, email, password_hash, full_name, role, organization_id)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
		RETURNING ` + userColumns
	return scanUser(r.pool.QueryRow(ctx, q, email, passwordHash, fullName, role, orgID))
}

// CreateWithPhone inserts a phone-only user (OTP login). Role defaults to staff
// with no tenant; an org admin links the account to a tenant later.
func (r *Repository) CreateWithPhone(ctx context.Context, phone string) (*models.User, error) {
	const q = `INSERT INTO users (id, phone, full_name, role)
		VALUES (gen_random_uuid(), $1, '', $2)
		RETURNING ` + userColumns
	return scanUser(r.pool.QueryRow(ctx, q, phone, models.RoleStaff))
}

// GetByEmail returns a user by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.pool.QueryRow(ctx, q, email))
}

// GetByPhone returns a user by phone number.
func (r *Repository) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE phone = $1`
	return scanUser(r.pool.QueryRow(ctx, q, phone))
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, q, id))
}

// List returns users, optionally restricted to one organization.
func (r *Repository) List(ctx context.Context, orgID *uuid.UUID) ([]models.UserPublic, error) {
	q := `SELECT ` + userColumns + ` FROM users`
	var args []interface{}
	if orgID != nil {
		q += ` WHERE organization_id = $1`
		args = append(args, *orgID)
	}
	q += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.UserPublic
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, u.ToPublic())
	}
	return list, rows.Err()
}
