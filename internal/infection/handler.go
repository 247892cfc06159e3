package infection

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medigrid-hms/backend/internal/lifecycle"
	"github.com/medigrid-hms/backend/internal/middleware"
	"github.com/medigrid-hms/backend/internal/models"
	"github.com/medigrid-hms/backend/internal/refnum"
	"github.com/medigrid-hms/backend/internal/scope"
	"github.com/medigrid-hms/backend/pkg/database"
	"github.com/medigrid-hms/backend/pkg/response"
)

// Prefix for infection case reference numbers.
const Prefix = "IC"

// Table is the infection case lifecycle. Resolved cases are locked.
var Table = lifecycle.Table{
	Initial: models.InfectionStatusSuspected,
	Transitions: map[lifecycle.State][]lifecycle.State{
		models.InfectionStatusSuspected:  {models.InfectionStatusConfirmed},
		models.InfectionStatusConfirmed:  {models.InfectionStatusMonitoring, models.InfectionStatusResolved},
		models.InfectionStatusMonitoring: {models.InfectionStatusResolved},
	},
	Locked: map[lifecycle.State]bool{
		models.InfectionStatusResolved: true,
	},
}

var caseSortable = map[string]string{
	"createdAt": "created_at",
	"onsetDate": "onset_date",
	"ward":      "ward",
	"status":    "status",
}

// Store is the persistence contract consumed by the handler.
type Store interface {
	CreateCase(ctx context.Context, ic *models.InfectionCase) error
	GetCaseByID(ctx context.Context, id uuid.UUID, sc scope.Scope) (*models.InfectionCase, error)
	ListCases(ctx context.Context, sc scope.Scope, f CaseFilter, p scope.ListParams) ([]models.InfectionCase, int, error)
	UpdateCase(ctx context.Context, ic *models.InfectionCase) error
	SetCaseStatus(ctx context.Context, id uuid.UUID, status string) (*models.InfectionCase, error)
	CreateAudit(ctx context.Context, a *models.HandHygieneAudit) error
	ListAudits(ctx context.Context, sc scope.Scope, ward string, p scope.ListParams) ([]models.HandHygieneAudit, int, error)
}

var _ Store = (*Repository)(nil)

// Handler handles infection surveillance HTTP endpoints.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates an infection handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

// CreateCaseRequest is the body for POST /infection/cases.
type CreateCaseRequest struct {
	PatientName   string  `json:"patient_name" binding:"required"`
	PatientID     *string `json:"patient_id"`
	Ward          string  `json:"ward" binding:"required"`
	InfectionType string  `json:"infection_type" binding:"required"`
	Organism      string  `json:"organism"`
	OnsetDate     string  `json:"onset_date" binding:"required"`
	Notes         string  `json:"notes"`
}

// UpdateCaseRequest is the body for PATCH /infection/cases/:id.
type UpdateCaseRequest struct {
	PatientName   *string `json:"patient_name"`
	Ward          *string `json:"ward"`
	InfectionType *string `json:"infection_type"`
	Organism      *string `json:"organism"`
	OnsetDate     *string `json:"onset_date"`
	Notes         *string `json:"notes"`
}

// CreateAuditRequest is the body for POST /infection/audits.
type CreateAuditRequest struct {
	Ward                  string `json:"ward" binding:"required"`
	AuditDate             string `json:"audit_date" binding:"required"`
	OpportunitiesObserved int    `json:"opportunities_observed" binding:"min=0"`
	CompliantActions      int    `json:"compliant_actions" binding:"min=0"`
	Notes                 string `json:"notes"`
}

// CreateCase handles POST /infection/cases.
func (h *Handler) CreateCase(c *gin.Context) {
	sc := middleware.MustScope(c)
	if sc.Unscoped() {
		response.BadRequest(c, "organization context required to report a case")
		return
	}
	var req CreateCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	onset, err := time.Parse(time.RFC3339, req.OnsetDate)
	if err != nil {
		response.BadRequest(c, "invalid onset_date")
		return
	}
	var patientID *uuid.UUID
	if req.PatientID != nil && *req.PatientID != "" {
		id, err := uuid.Parse(*req.PatientID)
		if err != nil {
			response.BadRequest(c, "invalid patient_id")
			return
		}
		patientID = &id
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	ic := &models.InfectionCase{
		OrganizationID: *sc.OrganizationID,
		Status:         string(Table.Initial),
		PatientName:    req.PatientName,
		PatientID:      patientID,
		Ward:           req.Ward,
		InfectionType:  req.InfectionType,
		Organism:       req.Organism,
		OnsetDate:      onset,
		Notes:          req.Notes,
		ReportedByID:   userID,
	}

	// randomized reference: retry with a fresh suffix on duplicate
	for attempt := 0; attempt < 3; attempt++ {
		ref, err := refnum.Random(Prefix, time.Now())
		if err != nil {
			response.Internal(c, "failed to allocate reference number")
			return
		}
		ic.ReferenceNumber = ref
		err = h.store.CreateCase(c.Request.Context(), ic)
		if err == nil {
			response.Created(c, ic)
			return
		}
		if !database.IsUniqueViolation(err) {
			h.logger.Error("create infection case failed", zap.Error(err))
			response.Internal(c, "failed to create case")
			return
		}
	}
	response.Conflict(c, "reference number collision, please retry")
}

// ListCases handles GET /infection/cases.
func (h *Handler) ListCases(c *gin.Context) {
	sc := middleware.MustScope(c)
	p := scope.ParseList(c.Query("page"), c.Query("limit"), scope.DefaultLimit)
	p, err := p.WithSort(c.Query("sortBy"), c.Query("sortDir"), caseSortable)
	if err != nil {
		response.BadRequest(c, "unsupported sort field")
		return
	}

	f := CaseFilter{Status: c.Query("status"), Ward: c.Query("ward")}
	if v := c.Query("startDate"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.BadRequest(c, "invalid startDate")
			return
		}
		f.StartDate = &t
	}
	if v := c.Query("endDate"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.BadRequest(c, "invalid endDate")
			return
		}
		f.EndDate = &t
	}

	list, total, err := h.store.ListCases(c.Request.Context(), sc, f, p)
	if err != nil {
		h.logger.Error("list infection cases failed", zap.Error(err))
		response.Internal(c, "failed to list cases")
		return
	}
	if list == nil {
		list = []models.InfectionCase{}
	}
	response.Paged(c, list, response.Meta{
		Total: total, Page: p.Page, Limit: p.Limit, TotalPages: scope.PageMeta(total, p),
	})
}

// fetch loads a case by id, answering 404 for missing or out-of-scope ids
// and 500 for storage failures.
func (h *Handler) fetch(c *gin.Context, id uuid.UUID) (*models.InfectionCase, bool) {
	ic, err := h.store.GetCaseByID(c.Request.Context(), id, middleware.MustScope(c))
	if err != nil {
		if database.IsNotFound(err) {
			response.NotFound(c, "infection case not found")
		} else {
			h.logger.Error("load infection case failed", zap.Error(err))
			response.Internal(c, "failed to load case")
		}
		return nil, false
	}
	return ic, true
}

// GetCase handles GET /infection/cases/:id.
func (h *Handler) GetCase(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid case id")
		return
	}
	ic, ok := h.fetch(c, id)
	if !ok {
		return
	}
	response.OK(c, ic)
}

// UpdateCase handles PATCH /infection/cases/:id. Rejected once the case is
// resolved.
func (h *Handler) UpdateCase(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid case id")
		return
	}
	ic, ok := h.fetch(c, id)
	if !ok {
		return
	}
	if err := Table.GuardUpdate(lifecycle.State(ic.Status)); err != nil {
		response.BadRequest(c, "a resolved case cannot be edited")
		return
	}

	var req UpdateCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.PatientName != nil {
		ic.PatientName = *req.PatientName
	}
	if req.Ward != nil {
		ic.Ward = *req.Ward
	}
	if req.InfectionType != nil {
		ic.InfectionType = *req.InfectionType
	}
	if req.Organism != nil {
		ic.Organism = *req.Organism
	}
	if req.OnsetDate != nil {
		t, err := time.Parse(time.RFC3339, *req.OnsetDate)
		if err != nil {
			response.BadRequest(c, "invalid onset_date")
			return
		}
		ic.OnsetDate = t
	}
	if req.Notes != nil {
		ic.Notes = *req.Notes
	}

	if err := h.store.UpdateCase(c.Request.Context(), ic); err != nil {
		h.logger.Error("update infection case failed", zap.Error(err))
		response.Internal(c, "failed to update case")
		return
	}
	response.OK(c, ic)
}

// Confirm handles POST /infection/cases/:id/confirm.
func (h *Handler) Confirm(c *gin.Context) {
	h.transition(c, models.InfectionStatusConfirmed)
}

// Monitor handles POST /infection/cases/:id/monitor.
func (h *Handler) Monitor(c *gin.Context) {
	h.transition(c, models.InfectionStatusMonitoring)
}

// Resolve handles POST /infection/cases/:id/resolve.
func (h *Handler) Resolve(c *gin.Context) {
	h.transition(c, models.InfectionStatusResolved)
}

func (h *Handler) transition(c *gin.Context, target string) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid case id")
		return
	}
	ic, ok := h.fetch(c, id)
	if !ok {
		return
	}
	if err := Table.GuardTransition(lifecycle.State(ic.Status), lifecycle.State(target)); err != nil {
		response.BadRequest(c, "cannot move case from "+ic.Status+" to "+target)
		return
	}
	updated, err := h.store.SetCaseStatus(c.Request.Context(), id, target)
	if err != nil {
		h.logger.Error("infection case transition failed", zap.Error(err), zap.String("target", target))
		response.Internal(c, "failed to update case status")
		return
	}
	response.OK(c, updated)
}

// CreateAudit handles POST /infection/audits. The compliance rate is derived
// from the submitted counts before persisting.
func (h *Handler) CreateAudit(c *gin.Context) {
	sc := middleware.MustScope(c)
	if sc.Unscoped() {
		response.BadRequest(c, "organization context required to record an audit")
		return
	}
	var req CreateAuditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.CompliantActions > req.OpportunitiesObserved {
		response.BadRequest(c, "compliant_actions cannot exceed opportunities_observed")
		return
	}
	auditDate, err := time.Parse(time.RFC3339, req.AuditDate)
	if err != nil {
		response.BadRequest(c, "invalid audit_date")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	a := &models.HandHygieneAudit{
		OrganizationID:        *sc.OrganizationID,
		Ward:                  req.Ward,
		AuditorID:             userID,
		AuditDate:             auditDate,
		OpportunitiesObserved: req.OpportunitiesObserved,
		CompliantActions:      req.CompliantActions,
		ComplianceRate:        ComplianceRate(req.CompliantActions, req.OpportunitiesObserved),
		Notes:                 req.Notes,
	}
	if err := h.store.CreateAudit(c.Request.Context(), a); err != nil {
		h.logger.Error("create hand hygiene audit failed", zap.Error(err))
		response.Internal(c, "failed to record audit")
		return
	}
	response.Created(c, a)
}

// ListAudits handles GET /infection/audits.
func (h *Handler) ListAudits(c *gin.Context) {
	sc := middleware.MustScope(c)
	p := scope.ParseList(c.Query("page"), c.Query("limit"), scope.DefaultLimit)

	list, total, err := h.store.ListAudits(c.Request.Context(), sc, c.Query("ward"), p)
	if err != nil {
		h.logger.Error("list hand hygiene audits failed", zap.Error(err))
		response.Internal(c, "failed to list audits")
		return
	}
	if list == nil {
		list = []models.HandHygieneAudit{}
	}
	response.Paged(c, list, response.Meta{
		Total: total, Page: p.Page, Limit: p.Limit, TotalPages: scope.PageMeta(total, p),
	})
}
