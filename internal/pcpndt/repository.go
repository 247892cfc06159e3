package pcpndt

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medigrid-hms/backend/internal/models"
	"github.com/medigrid-hms/backend/internal/scope"
)

// Repository handles PCPNDT form database operations.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const columns = `id, organization_id, form_number, patient_name, patient_age,
	husband_name, address, referring_doctor, indication, procedure_type,
	procedure_date, performing_doctor_id, declaration_signed, signed_at,
	signed_by_id, created_at, updated_at`

func scanForm(row interface{ Scan(...interface{}) error }) (*models.PCPNDTForm, error) {
	var f models.PCPNDTForm
	err := row.Scan(
		&f.ID, &f.OrganizationID, &f.FormNumber, &f.PatientName, &f.PatientAge,
		&f.HusbandName, &f.Address, &f.ReferringDoctor, &f.Indication,
		&f.ProcedureType, &f.ProcedureDate, &f.PerformingDoctorID,
		&f.DeclarationSigned, &f.SignedAt, &f.SignedByID, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *Repository) Create(ctx context.Context, f *models.PCPNDTForm) error {
	query := `
		INSERT INTO pcpndt_forms (organization_id, form_number, patient_name,
			patient_age, husband_name, address, referring_doctor, indication,
			procedure_type, procedure_date, performing_doctor_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		f.OrganizationID, f.FormNumber, f.PatientName, f.PatientAge, f.HusbandName,
		f.Address, f.ReferringDoctor, f.Indication, f.ProcedureType, f.ProcedureDate,
		f.PerformingDoctorID,
	).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID, sc scope.Scope) (*models.PCPNDTForm, error) {
	query := `SELECT ` + columns + ` FROM pcpndt_forms WHERE id = $1`
	args := []interface{}{id}
	if !sc.Unscoped() {
		query += ` AND organization_id = $2`
		args = append(args, *sc.OrganizationID)
	}
	return scanForm(r.pool.QueryRow(ctx, query, args...))
}

// ListFilter narrows PCPNDT form listings.
type ListFilter struct {
	Signed        *bool
	ProcedureType string
}

func (r *Repository) List(ctx context.Context, sc scope.Scope, f ListFilter, p scope.ListParams) ([]models.PCPNDTForm, int, error) {
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
	if f.Signed != nil {
		add("declaration_signed = $%d", *f.Signed)
	}
	if f.ProcedureType != "" {
		add("procedure_type = $%d", f.ProcedureType)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM pcpndt_forms`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM pcpndt_forms%s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		columns, where, p.SortCol, p.SortDir, len(args)+1, len(args)+2)
	args = append(args, p.Limit, p.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []models.PCPNDTForm
	for rows.Next() {
		f, err := scanForm(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *f)
	}
	return list, total, rows.Err()
}

func (r *Repository) Update(ctx context.Context, f *models.PCPNDTForm) error {
	query := `
		UPDATE pcpndt_forms
		SET patient_name = $2, patient_age = $3, husband_name = $4, address = $5,
			referring_doctor = $6, indication = $7, procedure_type = $8,
			procedure_date = $9, performing_doctor_id = $10, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		f.ID, f.PatientName, f.PatientAge, f.HusbandName, f.Address, f.ReferringDoctor,
		f.Indication, f.ProcedureType, f.ProcedureDate, f.PerformingDoctorID,
	).Scan(&f.UpdatedAt)
}

// Sign marks the declaration as signed. signed_at and signed_by_id keep their
// first values on repeat calls.
func (r *Repository) Sign(ctx context.Context, id uuid.UUID, signedBy uuid.UUID) (*models.PCPNDTForm, error) {
	query := `
		UPDATE pcpndt_forms
		SET declaration_signed = TRUE,
			signed_at    = COALESCE(signed_at, NOW()),
			signed_by_id = COALESCE(signed_by_id, $2),
			updated_at   = NOW()
		WHERE id = $1
		RETURNING ` + columns
	return scanForm(r.pool.QueryRow(ctx, query, id, signedBy))
}
