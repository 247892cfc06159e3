package pcpndt

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medigrid-hms/backend/internal/middleware"
	"github.com/medigrid-hms/backend/internal/models"
	"github.com/medigrid-hms/backend/internal/refnum"
	"github.com/medigrid-hms/backend/internal/scope"
	"github.com/medigrid-hms/backend/pkg/database"
	"github.com/medigrid-hms/backend/pkg/response"
)

// Prefix for Form F numbers.
const Prefix = "FF"

var sortable = map[string]string{
	"createdAt":     "created_at",
	"procedureDate": "procedure_date",
	"patientName":   "patient_name",
}

// Store is the persistence contract consumed by the handler.
type Store interface {
	Create(ctx context.Context, f *models.PCPNDTForm) error
	GetByID(ctx context.Context, id uuid.UUID, sc scope.Scope) (*models.PCPNDTForm, error)
	List(ctx context.Context, sc scope.Scope, f ListFilter, p scope.ListParams) ([]models.PCPNDTForm, int, error)
	Update(ctx context.Context, f *models.PCPNDTForm) error
	Sign(ctx context.Context, id uuid.UUID, signedBy uuid.UUID) (*models.PCPNDTForm, error)
}

var _ Store = (*Repository)(nil)

// Handler handles PCPNDT Form F HTTP endpoints.
type Handler struct {
	store  Store
	logger *zap.Logger
}

func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

// CreateRequest is the body for POST /pcpndt/forms.
type CreateRequest struct {
	PatientName        string  `json:"patient_name" binding:"required"`
	PatientAge         int     `json:"patient_age" binding:"required,min=1"`
	HusbandName        string  `json:"husband_name"`
	Address            string  `json:"address" binding:"required"`
	ReferringDoctor    string  `json:"referring_doctor"`
	Indication         string  `json:"indication" binding:"required"`
	ProcedureType      string  `json:"procedure_type" binding:"required"`
	ProcedureDate      string  `json:"procedure_date" binding:"required"`
	PerformingDoctorID *string `json:"performing_doctor_id"`
}

// UpdateRequest is the body for PATCH /pcpndt/forms/:id.
type UpdateRequest struct {
	PatientName        *string `json:"patient_name"`
	PatientAge         *int    `json:"patient_age"`
	HusbandName        *string `json:"husband_name"`
	Address            *string `json:"address"`
	ReferringDoctor    *string `json:"referring_doctor"`
	Indication         *string `json:"indication"`
	ProcedureType      *string `json:"procedure_type"`
	ProcedureDate      *string `json:"procedure_date"`
	PerformingDoctorID *string `json:"performing_doctor_id"`
}

// Create handles POST /pcpndt/forms.
func (h *Handler) Create(c *gin.Context) {
	sc := middleware.MustScope(c)
	if sc.Unscoped() {
		response.BadRequest(c, "organization context required to file a form")
		return
	}
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	procDate, err := time.Parse(time.RFC3339, req.ProcedureDate)
	if err != nil {
		response.BadRequest(c, "invalid procedure_date")
		return
	}
	doctorID, err := parseOptionalUUID(req.PerformingDoctorID)
	if err != nil {
		response.BadRequest(c, "invalid performing_doctor_id")
		return
	}

	f := &models.PCPNDTForm{
		OrganizationID:     *sc.OrganizationID,
		PatientName:        req.PatientName,
		PatientAge:         req.PatientAge,
		HusbandName:        req.HusbandName,
		Address:            req.Address,
		ReferringDoctor:    req.ReferringDoctor,
		Indication:         req.Indication,
		ProcedureType:      req.ProcedureType,
		ProcedureDate:      procDate,
		PerformingDoctorID: doctorID,
	}

	for attempt := 0; attempt < 3; attempt++ {
		num, err := refnum.Random(Prefix, time.Now())
		if err != nil {
			response.Internal(c, "failed to allocate form number")
			return
		}
		f.FormNumber = num
		err = h.store.Create(c.Request.Context(), f)
		if err == nil {
			response.Created(c, f)
			return
		}
		if !database.IsUniqueViolation(err) {
			h.logger.Error("create pcpndt form failed", zap.Error(err))
			response.Internal(c, "failed to create form")
			return
		}
	}
	response.Conflict(c, "form number collision, please retry")
}

// List handles GET /pcpndt/forms.
func (h *Handler) List(c *gin.Context) {
	sc := middleware.MustScope(c)
	p := scope.ParseList(c.Query("page"), c.Query("limit"), scope.DefaultLimit)
	p, err := p.WithSort(c.Query("sortBy"), c.Query("sortDir"), sortable)
	if err != nil {
		response.BadRequest(c, "unsupported sort field")
		return
	}

	f := ListFilter{ProcedureType: c.Query("procedureType")}
	switch c.Query("signed") {
	case "true":
		v := true
		f.Signed = &v
	case "false":
		v := false
		f.Signed = &v
	}

	list, total, err := h.store.List(c.Request.Context(), sc, f, p)
	if err != nil {
		h.logger.Error("list pcpndt forms failed", zap.Error(err))
		response.Internal(c, "failed to list forms")
		return
	}
	if list == nil {
		list = []models.PCPNDTForm{}
	}
	response.Paged(c, list, response.Meta{
		Total: total, Page: p.Page, Limit: p.Limit, TotalPages: scope.PageMeta(total, p),
	})
}

// fetch loads a form by id, answering 404 for missing or out-of-scope ids
// and 500 for storage failures.
func (h *Handler) fetch(c *gin.Context, id uuid.UUID) (*models.PCPNDTForm, bool) {
	f, err := h.store.GetByID(c.Request.Context(), id, middleware.MustScope(c))
	if err != nil {
		if database.IsNotFound(err) {
			response.NotFound(c, "form not found")
		} else {
			h.logger.Error("load pcpndt form failed", zap.Error(err))
			response.Internal(c, "failed to load form")
		}
		return nil, false
	}
	return f, true
}

// GetByID handles GET /pcpndt/forms/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid form id")
		return
	}
	f, ok := h.fetch(c, id)
	if !ok {
		return
	}
	response.OK(c, f)
}

// Update handles PATCH /pcpndt/forms/:id. Signed forms are locked.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid form id")
		return
	}
	f, ok := h.fetch(c, id)
	if !ok {
		return
	}
	if f.DeclarationSigned {
		response.BadRequest(c, "a signed form cannot be edited")
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.PatientName != nil {
		f.PatientName = *req.PatientName
	}
	if req.PatientAge != nil {
		f.PatientAge = *req.PatientAge
	}
	if req.HusbandName != nil {
		f.HusbandName = *req.HusbandName
	}
	if req.Address != nil {
		f.Address = *req.Address
	}
	if req.ReferringDoctor != nil {
		f.ReferringDoctor = *req.ReferringDoctor
	}
	if req.Indication != nil {
		f.Indication = *req.Indication
	}
	if req.ProcedureType != nil {
		f.ProcedureType = *req.ProcedureType
	}
	if req.ProcedureDate != nil {
		t, err := time.Parse(time.RFC3339, *req.ProcedureDate)
		if err != nil {
			response.BadRequest(c, "invalid procedure_date")
			return
		}
		f.ProcedureDate = t
	}
	if req.PerformingDoctorID != nil {
		doctorID, err := parseOptionalUUID(req.PerformingDoctorID)
		if err != nil {
			response.BadRequest(c, "invalid performing_doctor_id")
			return
		}
		f.PerformingDoctorID = doctorID
	}

	if err := h.store.Update(c.Request.Context(), f); err != nil {
		h.logger.Error("update pcpndt form failed", zap.Error(err))
		response.Internal(c, "failed to update form")
		return
	}
	response.OK(c, f)
}

// Sign handles POST /pcpndt/forms/:id/sign. Idempotent: signing an already
// signed form succeeds and keeps the original signed_at and signer.
func (h *Handler) Sign(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid form id")
		return
	}
	if _, ok := h.fetch(c, id); !ok {
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	f, err := h.store.Sign(c.Request.Context(), id, userID)
	if err != nil {
		h.logger.Error("sign pcpndt form failed", zap.Error(err))
		response.Internal(c, "failed to sign form")
		return
	}
	response.OK(c, f)
}

func parseOptionalUUID(s *string) (*uuid.UUID, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
