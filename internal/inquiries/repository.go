package inquiries

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medigrid-hms/backend/internal/models"
	"github.com/medigrid-hms/backend/internal/scope"
)

// Repository handles sales inquiry database operations.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const columns = `id, organization_id, reference_number, status, hospital_name,
	contact_name, email, phone, source, message, assigned_to_id, lost_reason,
	contacted_at, qualified_at, proposal_sent_at, closed_at, created_at, updated_at`

func scanInquiry(row interface{ Scan(...interface{}) error }) (*models.Inquiry, error) {
	var q models.Inquiry
	err := row.Scan(
		&q.ID, &q.OrganizationID, &q.ReferenceNumber, &q.Status, &q.HospitalName,
		&q.ContactName, &q.Email, &q.Phone, &q.Source, &q.Message, &q.AssignedToID,
		&q.LostReason, &q.ContactedAt, &q.QualifiedAt, &q.ProposalSentAt, &q.ClosedAt,
		&q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *Repository) Create(ctx context.Context, q *models.Inquiry) error {
	query := `
		INSERT INTO inquiries (organization_id, reference_number, status,
			hospital_name, contact_name, email, phone, source, message, assigned_to_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		q.OrganizationID, q.ReferenceNumber, q.Status, q.HospitalName, q.ContactName,
		q.Email, q.Phone, q.Source, q.Message, q.AssignedToID,
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID, sc scope.Scope) (*models.Inquiry, error) {
	query := `SELECT ` + columns + ` FROM inquiries WHERE id = $1`
	args := []interface{}{id}
	if !sc.Unscoped() {
		query += ` AND organization_id = $2`
		args = append(args, *sc.OrganizationID)
	}
	return scanInquiry(r.pool.QueryRow(ctx, query, args...))
}

// ListFilter narrows inquiry listings.
type ListFilter struct {
	Status     string
	Source     string
	AssignedTo *uuid.UUID
}

func (r *Repository) List(ctx context.Context, sc scope.Scope, f ListFilter, p scope.ListParams) ([]models.Inquiry, int, error) {
	where := ""
	var args []interface{}
	add := func(cond string, val interface{}) {
		args = append(args, val)
		if where == "" {
			where = " WHERE "
		} else {
			where += " AND "
		}
		where += fmt.Sprintf(cond, len(args))
	}
	if !sc.Unscoped() {
		add("organization_id = $%d", *sc.OrganizationID)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.Source != "" {
		add("source = $%d", f.Source)
	}
	if f.AssignedTo != nil {
		add("assigned_to_id = $%d", *f.AssignedTo)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM inquiries`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM inquiries%s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		columns, where, p.SortCol, p.SortDir, len(args)+1, len(args)+2)
	args = append(args, p.Limit, p.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []models.Inquiry
	for rows.Next() {
		q, err := scanInquiry(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *q)
	}
	return list, total, rows.Err()
}

func (r *Repository) Update(ctx context.Context, q *models.Inquiry) error {
	query := `
		UPDATE inquiries
		SET hospital_name = $2, contact_name = $3, email = $4, phone = $5,
			source = $6, message = $7, assigned_to_id = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		q.ID, q.HospitalName, q.ContactName, q.Email, q.Phone, q.Source, q.Message,
		q.AssignedToID,
	).Scan(&q.UpdatedAt)
}

// SetStatus moves an inquiry through the pipeline. Transition timestamps are
// first-write-wins: a second pass through the same state keeps the original.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, status, lostReason string) (*models.Inquiry, error) {
	query := `
		UPDATE inquiries
		SET status = $2,
			lost_reason      = CASE WHEN $2 = 'lost' THEN $3 ELSE lost_reason END,
			contacted_at     = CASE WHEN $2 = 'contacted'     THEN COALESCE(contacted_at, NOW())     ELSE contacted_at END,
			qualified_at     = CASE WHEN $2 = 'qualified'     THEN COALESCE(qualified_at, NOW())     ELSE qualified_at END,
			proposal_sent_at = CASE WHEN $2 = 'proposal_sent' THEN COALESCE(proposal_sent_at, NOW()) ELSE proposal_sent_at END,
			closed_at        = CASE WHEN $2 IN ('won', 'lost') THEN COALESCE(closed_at, NOW())       ELSE closed_at END,
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + columns
	return scanInquiry(r.pool.QueryRow(ctx, query, id, status, lostReason))
}

// Delete removes the row permanently.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM inquiries WHERE id = $1`, id)
	return err
}
