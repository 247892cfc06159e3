package infection

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medigrid-hms/backend/internal/models"
	"github.com/medigrid-hms/backend/internal/scope"
)

// Repository handles infection case and hand-hygiene audit persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an infection repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const caseColumns = `id, organization_id, reference_number, status, patient_name, patient_id, ward,
	infection_type, organism, onset_date, notes, reported_by_id, confirmed_at, resolved_at,
	created_at, updated_at`

func scanCase(row interface{ Scan(...any) error }) (*models.InfectionCase, error) {
	var ic models.InfectionCase
	err := row.Scan(&ic.ID, &ic.OrganizationID, &ic.ReferenceNumber, &ic.Status, &ic.PatientName,
		&ic.PatientID, &ic.Ward, &ic.InfectionType, &ic.Organism, &ic.OnsetDate, &ic.Notes,
		&ic.ReportedByID, &ic.ConfirmedAt, &ic.ResolvedAt, &ic.CreatedAt, &ic.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &ic, nil
}

// CreateCase inserts a new infection case.
func (r *Repository) CreateCase(ctx context.Context, ic *models.InfectionCase) error {
	const q = `INSERT INTO infection_cases (id, organization_id, reference_number, status, patient_name,
			patient_id, ward, infection_type, organism, onset_date, notes, reported_by_id)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, ic.OrganizationID, ic.ReferenceNumber, ic.Status, ic.PatientName,
		ic.PatientID, ic.Ward, ic.InfectionType, ic.Organism, ic.OnsetDate, ic.Notes, ic.ReportedByID).
		Scan(&ic.ID, &ic.CreatedAt, &ic.UpdatedAt)
}

// GetCaseByID returns a case by ID within scope.
func (r *Repository) GetCaseByID(ctx context.Context, id uuid.UUID, sc scope.Scope) (*models.InfectionCase, error) {
	q := `SELECT ` + caseColumns + ` FROM infection_cases WHERE id = $1`
	args := []interface{}{id}
	if !sc.Unscoped() {
		q += ` AND organization_id = $2`
		args = append(args, *sc.OrganizationID)
	}
	return scanCase(r.pool.QueryRow(ctx, q, args...))
}

// CaseFilter holds the whitelisted query filters for listing cases.
type CaseFilter struct {
	Status    string
	Ward      string
	StartDate *time.Time // onset_date range
	EndDate   *time.Time
}

// ListCases returns cases in scope matching the filter, with total count.
func (r *Repository) ListCases(ctx context.Context, sc scope.Scope, f CaseFilter, p scope.ListParams) ([]models.InfectionCase, int, error) {
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
	if f.Ward != "" {
		add("ward = $%d", f.Ward)
	}
	if f.StartDate != nil {
		add("onset_date >= $%d", *f.StartDate)
	}
	if f.EndDate != nil {
		add("onset_date <= $%d", *f.EndDate)
	}
	where := ""
	for i, c := range conds {
		if i == 0 {
			where = " WHERE " + c
		} else {
			where += " AND " + c
		}
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM infection_cases`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := fmt.Sprintf(`SELECT %s FROM infection_cases%s ORDER BY %s %s LIMIT %d OFFSET %d`,
		caseColumns, where, p.SortCol, p.SortDir, p.Limit, p.Offset())
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []models.InfectionCase
	for rows.Next() {
		ic, err := scanCase(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *ic)
	}
	return list, total, rows.Err()
}

// UpdateCase writes the general editable fields of a case.
func (r *Repository) UpdateCase(ctx context.Context, ic *models.InfectionCase) error {
	const q = `UPDATE infection_cases SET patient_name = $1, patient_id = $2, ward = $3,
			infection_type = $4, organism = $5, onset_date = $6, notes = $7, updated_at = NOW()
		WHERE id = $8
		RETURNING updated_at`
	return r.pool.QueryRow(ctx, q, ic.PatientName, ic.PatientID, ic.Ward, ic.InfectionType,
		ic.Organism, ic.OnsetDate, ic.Notes, ic.ID).Scan(&ic.UpdatedAt)
}

// SetCaseStatus applies a status transition. Confirmed and resolved timestamps
// are first-write-wins.
func (r *Repository) SetCaseStatus(ctx context.Context, id uuid.UUID, status string) (*models.InfectionCase, error) {
	const q = `UPDATE infection_cases SET status = $1,
			confirmed_at = CASE WHEN $1 = 'confirmed' THEN COALESCE(confirmed_at, NOW()) ELSE confirmed_at END,
			resolved_at = CASE WHEN $1 = 'resolved' THEN COALESCE(resolved_at, NOW()) ELSE resolved_at END,
			updated_at = NOW()
		WHERE id = $2 RETURNING ` + caseColumns
	return scanCase(r.pool.QueryRow(ctx, q, status, id))
}

const auditColumns = `id, organization_id, ward, auditor_id, audit_date, opportunities_observed,
	compliant_actions, compliance_rate, notes, created_at, updated_at`

func scanAudit(row interface{ Scan(...any) error }) (*models.HandHygieneAudit, error) {
	var a models.HandHygieneAudit
	err := row.Scan(&a.ID, &a.OrganizationID, &a.Ward, &a.AuditorID, &a.AuditDate,
		&a.OpportunitiesObserved, &a.CompliantActions, &a.ComplianceRate, &a.Notes,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateAudit inserts a hand-hygiene audit with its derived compliance rate.
func (r *Repository) CreateAudit(ctx context.Context, a *models.HandHygieneAudit) error {
	const q = `INSERT INTO hand_hygiene_audits (id, organization_id, ward, auditor_id, audit_date,
			opportunities_observed, compliant_actions, compliance_rate, notes)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, a.OrganizationID, a.Ward, a.AuditorID, a.AuditDate,
		a.OpportunitiesObserved, a.CompliantActions, a.ComplianceRate, a.Notes).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

// ListAudits returns audits in scope, newest audit date first, with total count.
func (r *Repository) ListAudits(ctx context.Context, sc scope.Scope, ward string, p scope.ListParams) ([]models.HandHygieneAudit, int, error) {
	var conds []string
	var args []interface{}
	if !sc.Unscoped() {
		args = append(args, *sc.OrganizationID)
		conds = append(conds, fmt.Sprintf("organization_id = $%d", len(args)))
	}
	if ward != "" {
		args = append(args, ward)
		conds = append(conds, fmt.Sprintf("ward = $%d", len(args)))
	}
	where := ""
	for i, c := range conds {
		if i == 0 {
			where = " WHERE " + c
		} else {
			where += " AND " + c
		}
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM hand_hygiene_audits`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := fmt.Sprintf(`SELECT %s FROM hand_hygiene_audits%s ORDER BY audit_date DESC LIMIT %d OFFSET %d`,
		auditColumns, where, p.Limit, p.Offset())
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []models.HandHygieneAudit
	for rows.Next() {
		a, err := scanAudit(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *a)
	}
	return list, total, rows.Err()
}
