package medicalfiles

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medigrid-hms/backend/internal/models"
	"github.com/medigrid-hms/backend/internal/scope"
)

// Repository handles medical file database operations.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const columns = `id, organization_id, file_number, status, patient_name, patient_id,
	file_type, department, location, assignee_id, scanned_at, indexed_at, archived_at,
	created_at, updated_at`

func scanFile(row interface{ Scan(...interface{}) error }) (*models.MedicalFile, error) {
	var mf models.MedicalFile
	err := row.Scan(
		&mf.ID, &mf.OrganizationID, &mf.FileNumber, &mf.Status, &mf.PatientName,
		&mf.PatientID, &mf.FileType, &mf.Department, &mf.Location, &mf.AssigneeID,
		&mf.ScannedAt, &mf.IndexedAt, &mf.ArchivedAt, &mf.CreatedAt, &mf.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &mf, nil
}

func (r *Repository) Create(ctx context.Context, mf *models.MedicalFile) error {
	query := `
		INSERT INTO medical_files (organization_id, file_number, status, patient_name,
			patient_id, file_type, department, location, assignee_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		mf.OrganizationID, mf.FileNumber, mf.Status, mf.PatientName, mf.PatientID,
		mf.FileType, mf.Department, mf.Location, mf.AssigneeID,
	).Scan(&mf.ID, &mf.CreatedAt, &mf.UpdatedAt)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID, sc scope.Scope) (*models.MedicalFile, error) {
	query := `SELECT ` + columns + ` FROM medical_files WHERE id = $1`
	args := []interface{}{id}
	if !sc.Unscoped() {
		query += ` AND organization_id = $2`
		args = append(args, *sc.OrganizationID)
	}
	return scanFile(r.pool.QueryRow(ctx, query, args...))
}

// ListFilter narrows medical file listings.
type ListFilter struct {
	Status     string
	FileType   string
	Department string
	AssigneeID *uuid.UUID
}

func (r *Repository) List(ctx context.Context, sc scope.Scope, f ListFilter, p scope.ListParams) ([]models.MedicalFile, int, error) {
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
	if f.FileType != "" {
		add("file_type = $%d", f.FileType)
	}
	if f.Department != "" {
		add("department = $%d", f.Department)
	}
	if f.AssigneeID != nil {
		add("assignee_id = $%d", *f.AssigneeID)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM medical_files`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM medical_files%s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		columns, where, p.SortCol, p.SortDir, len(args)+1, len(args)+2)
	args = append(args, p.Limit, p.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []models.MedicalFile
	for rows.Next() {
		mf, err := scanFile(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *mf)
	}
	return list, total, rows.Err()
}

func (r *Repository) Update(ctx context.Context, mf *models.MedicalFile) error {
	query := `
		UPDATE medical_files
		SET patient_name = $2, patient_id = $3, file_type = $4, department = $5,
			location = $6, assignee_id = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		mf.ID, mf.PatientName, mf.PatientID, mf.FileType, mf.Department, mf.Location, mf.AssigneeID,
	).Scan(&mf.UpdatedAt)
}

// SetStatus moves a file to the given state and stamps the matching transition
// timestamp once; re-running a transition keeps the original stamp.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, status string) (*models.MedicalFile, error) {
	query := `
		UPDATE medical_files
		SET status = $2,
			scanned_at  = CASE WHEN $2 = 'scanned'  THEN COALESCE(scanned_at, NOW())  ELSE scanned_at END,
			indexed_at  = CASE WHEN $2 = 'indexed'  THEN COALESCE(indexed_at, NOW())  ELSE indexed_at END,
			archived_at = CASE WHEN $2 = 'archived' THEN COALESCE(archived_at, NOW()) ELSE archived_at END,
			updated_at  = NOW()
		WHERE id = $1
		RETURNING ` + columns
	return scanFile(r.pool.QueryRow(ctx, query, id, status))
}

// Delete removes the row permanently.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM medical_files WHERE id = $1`, id)
	return err
}
