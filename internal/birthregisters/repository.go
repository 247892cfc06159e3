package birthregisters

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medigrid-hms/backend/internal/models"
	"github.com/medigrid-hms/backend/internal/scope"
)

// Repository handles birth register persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a birth register repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const columns = `id, organization_id, registration_number, status, child_name, gender, date_of_birth,
	place_of_birth, weight_grams, delivery_type, mother_name, father_name, address,
	attending_doctor_id, reported_by_id, bcg_given, opv_given, hep_b_given,
	vaccination_noted_at, certified_at, registered_at, issued_at, created_at, updated_at`

func scanEntry(row interface{ Scan(...any) error }) (*models.BirthRegister, error) {
	var b models.BirthRegister
	err := row.Scan(&b.ID, &b.OrganizationID, &b.RegistrationNumber, &b.Status, &b.ChildName, &b.Gender,
		&b.DateOfBirth, &b.PlaceOfBirth, &b.WeightGrams, &b.DeliveryType, &b.MotherName, &b.FatherName,
		&b.Address, &b.AttendingDoctorID, &b.ReportedByID, &b.BCGGiven, &b.OPVGiven, &b.HepBGiven,
		&b.VaccinationNotedAt, &b.CertifiedAt, &b.RegisteredAt, &b.IssuedAt, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Create inserts a new birth register entry.
func (r *Repository) Create(ctx context.Context, b *models.BirthRegister) error {
	const q = `INSERT INTO birth_registers (id, organization_id, registration_number, status, child_name,
			gender, date_of_birth, place_of_birth, weight_grams, delivery_type, mother_name, father_name,
			address, attending_doctor_id, reported_by_id)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, b.OrganizationID, b.RegistrationNumber, b.Status, b.ChildName,
		b.Gender, b.DateOfBirth, b.PlaceOfBirth, b.WeightGrams, b.DeliveryType, b.MotherName,
		b.FatherName, b.Address, b.AttendingDoctorID, b.ReportedByID).
		Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
}

// GetByID returns an entry by ID, re-checking tenant scope. An entry outside
// the caller's scope reads the same as a missing one.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID, sc scope.Scope) (*models.BirthRegister, error) {
	q := `SELECT ` + columns + ` FROM birth_registers WHERE id = $1`
	args := []interface{}{id}
	if !sc.Unscoped() {
		q += ` AND organization_id = $2`
		args = append(args, *sc.OrganizationID)
	}
	return scanEntry(r.pool.QueryRow(ctx, q, args...))
}

// ListFilter holds the whitelisted query filters for listing entries.
type ListFilter struct {
	Status    string
	DoctorID  *uuid.UUID
	StartDate *time.Time // date_of_birth range
	EndDate   *time.Time
}

// List returns entries in scope matching the filter, with total count.
func (r *Repository) List(ctx context.Context, sc scope.Scope, f ListFilter, p scope.ListParams) ([]models.BirthRegister, int, error) {
	where, args := buildWhere(sc, f)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM birth_registers`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := fmt.Sprintf(`SELECT %s FROM birth_registers%s ORDER BY %s %s LIMIT %d OFFSET %d`,
		columns, where, p.SortCol, p.SortDir, p.Limit, p.Offset())
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []models.BirthRegister
	for rows.Next() {
		b, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *b)
	}
	return list, total, rows.Err()
}

func buildWhere(sc scope.Scope, f ListFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}
	add := func(cond string, val interface{}) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if !sc.Unscoped() {
		add("organization_id = $%d", *sc.OrganizationID)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.DoctorID != nil {
		add("attending_doctor_id = $%d", *f.DoctorID)
	}
	if f.StartDate != nil {
		add("date_of_birth >= $%d", *f.StartDate)
	}
	if f.EndDate != nil {
		add("date_of_birth <= $%d", *f.EndDate)
	}
	if len(conds) == 0 {
		return "", nil
	}
	where := " WHERE " + conds[0]
	for _, c := range conds[1:] {
		where += " AND " + c
	}
	return where, args
}

// Update writes the general editable fields of an entry.
func (r *Repository) Update(ctx context.Context, b *models.BirthRegister) error {
	const q = `UPDATE birth_registers SET child_name = $1, gender = $2, date_of_birth = $3,
			place_of_birth = $4, weight_grams = $5, delivery_type = $6, mother_name = $7,
			father_name = $8, address = $9, attending_doctor_id = $10, updated_at = NOW()
		WHERE id = $11
		RETURNING updated_at`
	return r.pool.QueryRow(ctx, q, b.ChildName, b.Gender, b.DateOfBirth, b.PlaceOfBirth,
		b.WeightGrams, b.DeliveryType, b.MotherName, b.FatherName, b.Address,
		b.AttendingDoctorID, b.ID).Scan(&b.UpdatedAt)
}

// RecordVaccination updates the allowlisted vaccination fields. Permitted even
// on registered/issued entries. The noted-at timestamp is first-write-wins.
func (r *Repository) RecordVaccination(ctx context.Context, id uuid.UUID, bcg, opv, hepB *bool) (*models.BirthRegister, error) {
	const q = `UPDATE birth_registers SET
			bcg_given = COALESCE($1, bcg_given),
			opv_given = COALESCE($2, opv_given),
			hep_b_given = COALESCE($3, hep_b_given),
			vaccination_noted_at = COALESCE(vaccination_noted_at, NOW()),
			updated_at = NOW()
		WHERE id = $4
		RETURNING ` + columns
	return scanEntry(r.pool.QueryRow(ctx, q, bcg, opv, hepB, id))
}

// Certify moves an entry to certified. The timestamp is first-write-wins.
func (r *Repository) Certify(ctx context.Context, id uuid.UUID) (*models.BirthRegister, error) {
	const q = `UPDATE birth_registers SET status = 'certified',
			certified_at = COALESCE(certified_at, NOW()), updated_at = NOW()
		WHERE id = $1 RETURNING ` + columns
	return scanEntry(r.pool.QueryRow(ctx, q, id))
}

// Register moves an entry to registered.
func (r *Repository) Register(ctx context.Context, id uuid.UUID) (*models.BirthRegister, error) {
	const q = `UPDATE birth_registers SET status = 'registered',
			registered_at = COALESCE(registered_at, NOW()), updated_at = NOW()
		WHERE id = $1 RETURNING ` + columns
	return scanEntry(r.pool.QueryRow(ctx, q, id))
}

// Issue moves an entry to issued (certificate handed out).
func (r *Repository) Issue(ctx context.Context, id uuid.UUID) (*models.BirthRegister, error) {
	const q = `UPDATE birth_registers SET status = 'issued',
			issued_at = COALESCE(issued_at, NOW()), updated_at = NOW()
		WHERE id = $1 RETURNING ` + columns
	return scanEntry(r.pool.QueryRow(ctx, q, id))
}
