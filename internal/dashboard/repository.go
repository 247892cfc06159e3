package dashboard

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medigrid-hms/backend/internal/scope"
)

// Repository computes dashboard aggregates. Nothing is cached; every call
// hits the database so the numbers reflect the current state.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Summary is the dashboard payload.
type Summary struct {
	BirthRegisters   map[string]int `json:"birth_registers"`
	InfectionCases   map[string]int `json:"infection_cases"`
	MedicalFiles     map[string]int `json:"medical_files"`
	MedicalFileTypes map[string]int `json:"medical_file_types"`
	PCPNDTForms      PCPNDTSummary  `json:"pcpndt_forms"`
	Inquiries        map[string]int `json:"inquiries"`
	HandHygiene      HygieneSummary `json:"hand_hygiene"`
}

// PCPNDTSummary splits forms by declaration state.
type PCPNDTSummary struct {
	Signed   int `json:"signed"`
	Unsigned int `json:"unsigned"`
}

// HygieneSummary aggregates hand hygiene audits.
type HygieneSummary struct {
	Audits                int     `json:"audits"`
	AverageComplianceRate float64 `json:"average_compliance_rate"`
}

func (r *Repository) countByColumn(ctx context.Context, table, column string, sc scope.Scope) (map[string]int, error) {
	query := fmt.Sprintf(`SELECT %s, COUNT(*) FROM %s`, column, table)
	var args []interface{}
	if !sc.Unscoped() {
		query += ` WHERE organization_id = $1`
		args = append(args, *sc.OrganizationID)
	}
	query += fmt.Sprintf(` GROUP BY %s`, column)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		out[key] = n
	}
	return out, rows.Err()
}

// Build assembles the full summary for the given scope.
func (r *Repository) Build(ctx context.Context, sc scope.Scope) (*Summary, error) {
	s := &Summary{}
	var err error

	if s.BirthRegisters, err = r.countByColumn(ctx, "birth_registers", "status", sc); err != nil {
		return nil, fmt.Errorf("birth registers: %w", err)
	}
	if s.InfectionCases, err = r.countByColumn(ctx, "infection_cases", "status", sc); err != nil {
		return nil, fmt.Errorf("infection cases: %w", err)
	}
	if s.MedicalFiles, err = r.countByColumn(ctx, "medical_files", "status", sc); err != nil {
		return nil, fmt.Errorf("medical files: %w", err)
	}
	if s.MedicalFileTypes, err = r.countByColumn(ctx, "medical_files", "file_type", sc); err != nil {
		return nil, fmt.Errorf("medical file types: %w", err)
	}
	if s.Inquiries, err = r.countByColumn(ctx, "inquiries", "status", sc); err != nil {
		return nil, fmt.Errorf("inquiries: %w", err)
	}

	query := `
		SELECT COUNT(*) FILTER (WHERE declaration_signed),
		       COUNT(*) FILTER (WHERE NOT declaration_signed)
		FROM pcpndt_forms`
	var args []interface{}
	if !sc.Unscoped() {
		query += ` WHERE organization_id = $1`
		args = append(args, *sc.OrganizationID)
	}
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&s.PCPNDTForms.Signed, &s.PCPNDTForms.Unsigned); err != nil {
		return nil, fmt.Errorf("pcpndt forms: %w", err)
	}

	query = `SELECT COUNT(*), COALESCE(AVG(compliance_rate), 0) FROM hand_hygiene_audits`
	args = args[:0]
	if !sc.Unscoped() {
		query += ` WHERE organization_id = $1`
		args = append(args, *sc.OrganizationID)
	}
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&s.HandHygiene.Audits, &s.HandHygiene.AverageComplianceRate); err != nil {
		return nil, fmt.Errorf("hand hygiene audits: %w", err)
	}

	return s, nil
}
