package birthregisters

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

// Prefix for birth register registration numbers.
const Prefix = "BR"

// Table is the birth register lifecycle. Registered and issued entries are
// locked; the vaccination endpoint stays permitted.
var Table = lifecycle.Table{
	Initial: models.BirthStatusDraft,
	Transitions: map[lifecycle.State][]lifecycle.State{
		models.BirthStatusDraft:      {models.BirthStatusCertified},
		models.BirthStatusCertified:  {models.BirthStatusRegistered},
		models.BirthStatusRegistered: {models.BirthStatusIssued},
	},
	Locked: map[lifecycle.State]bool{
		models.BirthStatusRegistered: true,
		models.BirthStatusIssued:     true,
	},
}

var sortable = map[string]string{
	"createdAt":   "created_at",
	"dateOfBirth": "date_of_birth",
	"childName":   "child_name",
	"status":      "status",
}

// Store is the persistence contract consumed by the handler.
type Store interface {
	Create(ctx context.Context, b *models.BirthRegister) error
	GetByID(ctx context.Context, id uuid.UUID, sc scope.Scope) (*models.BirthRegister, error)
	List(ctx context.Context, sc scope.Scope, f ListFilter, p scope.ListParams) ([]models.BirthRegister, int, error)
	Update(ctx context.Context, b *models.BirthRegister) error
	RecordVaccination(ctx context.Context, id uuid.UUID, bcg, opv, hepB *bool) (*models.BirthRegister, error)
	Certify(ctx context.Context, id uuid.UUID) (*models.BirthRegister, error)
	Register(ctx context.Context, id uuid.UUID) (*models.BirthRegister, error)
	Issue(ctx context.Context, id uuid.UUID) (*models.BirthRegister, error)
}

// Sequencer hands out the per-tenant sequence for registration numbers.
type Sequencer interface {
	Next(ctx context.Context, orgID uuid.UUID, prefix string, year int) (int, error)
}

var _ Store = (*Repository)(nil)

// Handler handles birth register HTTP endpoints.
type Handler struct {
	store  Store
	seq    Sequencer
	logger *zap.Logger
}

// NewHandler creates a birth register handler.
func NewHandler(store Store, seq Sequencer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, seq: seq, logger: logger}
}

// CreateRequest is the body for POST /birth-registers.
type CreateRequest struct {
	ChildName         string  `json:"child_name" binding:"required"`
	Gender            string  `json:"gender" binding:"required,oneof=male female other"`
	DateOfBirth       string  `json:"date_of_birth" binding:"required"`
	PlaceOfBirth      string  `json:"place_of_birth"`
	WeightGrams       *int    `json:"weight_grams"`
	DeliveryType      string  `json:"delivery_type"`
	MotherName        string  `json:"mother_name" binding:"required"`
	FatherName        string  `json:"father_name"`
	Address           string  `json:"address"`
	AttendingDoctorID *string `json:"attending_doctor_id"`
}

// UpdateRequest is the body for PATCH /birth-registers/:id. Absent fields are
// left unchanged; unknown fields are never merged.
type UpdateRequest struct {
	ChildName         *string `json:"child_name"`
	Gender            *string `json:"gender"`
	DateOfBirth       *string `json:"date_of_birth"`
	PlaceOfBirth      *string `json:"place_of_birth"`
	WeightGrams       *int    `json:"weight_grams"`
	DeliveryType      *string `json:"delivery_type"`
	MotherName        *string `json:"mother_name"`
	FatherName        *string `json:"father_name"`
	Address           *string `json:"address"`
	AttendingDoctorID *string `json:"attending_doctor_id"`
}

// VaccinationRequest is the body for PATCH /birth-registers/:id/vaccination.
type VaccinationRequest struct {
	BCGGiven  *bool `json:"bcg_given"`
	OPVGiven  *bool `json:"opv_given"`
	HepBGiven *bool `json:"hep_b_given"`
}

// Create handles POST /birth-registers.
func (h *Handler) Create(c *gin.Context) {
	sc := middleware.MustScope(c)
	if sc.Unscoped() {
		response.BadRequest(c, "organization context required to create an entry")
		return
	}
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	dob, err := time.Parse(time.RFC3339, req.DateOfBirth)
	if err != nil {
		response.BadRequest(c, "invalid date_of_birth")
		return
	}
	doctorID, ok := parseOptionalUUID(req.AttendingDoctorID)
	if !ok {
		response.BadRequest(c, "invalid attending_doctor_id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	year := time.Now().Year()
	seq, err := h.seq.Next(c.Request.Context(), *sc.OrganizationID, Prefix, year)
	if err != nil {
		h.logger.Error("registration number sequence failed", zap.Error(err))
		response.Internal(c, "failed to allocate registration number")
		return
	}

	b := &models.BirthRegister{
		OrganizationID:     *sc.OrganizationID,
		RegistrationNumber: refnum.Sequential(Prefix, year, seq),
		Status:             string(Table.Initial),
		ChildName:          req.ChildName,
		Gender:             req.Gender,
		DateOfBirth:        dob,
		PlaceOfBirth:       req.PlaceOfBirth,
		WeightGrams:        req.WeightGrams,
		DeliveryType:       req.DeliveryType,
		MotherName:         req.MotherName,
		FatherName:         req.FatherName,
		Address:            req.Address,
		AttendingDoctorID:  doctorID,
		ReportedByID:       userID,
	}
	if err := h.store.Create(c.Request.Context(), b); err != nil {
		if database.IsUniqueViolation(err) {
			response.Conflict(c, "registration number already exists")
			return
		}
		h.logger.Error("create birth register entry failed", zap.Error(err))
		response.Internal(c, "failed to create entry")
		return
	}
	response.Created(c, b)
}

// List handles GET /birth-registers.
func (h *Handler) List(c *gin.Context) {
	sc := middleware.MustScope(c)

	p := scope.ParseList(c.Query("page"), c.Query("limit"), scope.DefaultLimit)
	p, err := p.WithSort(c.Query("sortBy"), c.Query("sortDir"), sortable)
	if err != nil {
		response.BadRequest(c, "unsupported sort field")
		return
	}

	f := ListFilter{Status: c.Query("status")}
	if v := c.Query("doctorId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			response.BadRequest(c, "invalid doctorId")
			return
		}
		f.DoctorID = &id
	}
	f.StartDate, f.EndDate, err = parseDateRange(c.Query("startDate"), c.Query("endDate"))
	if err != nil {
		response.BadRequest(c, "invalid date range")
		return
	}

	list, total, err := h.store.List(c.Request.Context(), sc, f, p)
	if err != nil {
		h.logger.Error("list birth registers failed", zap.Error(err))
		response.Internal(c, "failed to list entries")
		return
	}
	if list == nil {
		list = []models.BirthRegister{}
	}
	response.Paged(c, list, response.Meta{
		Total: total, Page: p.Page, Limit: p.Limit, TotalPages: scope.PageMeta(total, p),
	})
}

// fetch loads an entry by id, answering 404 for missing or out-of-scope ids
// and 500 for storage failures.
func (h *Handler) fetch(c *gin.Context, id uuid.UUID) (*models.BirthRegister, bool) {
	b, err := h.store.GetByID(c.Request.Context(), id, middleware.MustScope(c))
	if err != nil {
		if database.IsNotFound(err) {
			response.NotFound(c, "birth register entry not found")
		} else {
			h.logger.Error("load birth register entry failed", zap.Error(err))
			response.Internal(c, "failed to load entry")
		}
		return nil, false
	}
	return b, true
}

// GetByID handles GET /birth-registers/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid entry id")
		return
	}
	b, ok := h.fetch(c, id)
	if !ok {
		return
	}
	response.OK(c, b)
}

// Update handles PATCH /birth-registers/:id. Rejected once the entry is
// registered or issued.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid entry id")
		return
	}
	b, ok := h.fetch(c, id)
	if !ok {
		return
	}
	if err := Table.GuardUpdate(lifecycle.State(b.Status)); err != nil {
		response.BadRequest(c, "a registered or issued entry cannot be edited")
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.ChildName != nil {
		b.ChildName = *req.ChildName
	}
	if req.Gender != nil {
		b.Gender = *req.Gender
	}
	if req.DateOfBirth != nil {
		dob, err := time.Parse(time.RFC3339, *req.DateOfBirth)
		if err != nil {
			response.BadRequest(c, "invalid date_of_birth")
			return
		}
		b.DateOfBirth = dob
	}
	if req.PlaceOfBirth != nil {
		b.PlaceOfBirth = *req.PlaceOfBirth
	}
	if req.WeightGrams != nil {
		b.WeightGrams = req.WeightGrams
	}
	if req.DeliveryType != nil {
		b.DeliveryType = *req.DeliveryType
	}
	if req.MotherName != nil {
		b.MotherName = *req.MotherName
	}
	if req.FatherName != nil {
		b.FatherName = *req.FatherName
	}
	if req.Address != nil {
		b.Address = *req.Address
	}
	if req.AttendingDoctorID != nil {
		doctorID, ok := parseOptionalUUID(req.AttendingDoctorID)
		if !ok {
			response.BadRequest(c, "invalid attending_doctor_id")
			return
		}
		b.AttendingDoctorID = doctorID
	}

	if err := h.store.Update(c.Request.Context(), b); err != nil {
		h.logger.Error("update birth register entry failed", zap.Error(err))
		response.Internal(c, "failed to update entry")
		return
	}
	response.OK(c, b)
}

// Vaccination handles PATCH /birth-registers/:id/vaccination. Operates on an
// allowlisted field set, so it stays permitted on locked entries.
func (h *Handler) Vaccination(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid entry id")
		return
	}
	if _, ok := h.fetch(c, id); !ok {
		return
	}
	var req VaccinationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	b, err := h.store.RecordVaccination(c.Request.Context(), id, req.BCGGiven, req.OPVGiven, req.HepBGiven)
	if err != nil {
		h.logger.Error("record vaccination failed", zap.Error(err))
		response.Internal(c, "failed to record vaccination")
		return
	}
	response.OK(c, b)
}

// Certify handles POST /birth-registers/:id/certify.
func (h *Handler) Certify(c *gin.Context) {
	h.transition(c, models.BirthStatusCertified, h.store.Certify)
}

// Register handles POST /birth-registers/:id/register.
func (h *Handler) Register(c *gin.Context) {
	h.transition(c, models.BirthStatusRegistered, h.store.Register)
}

// Issue handles POST /birth-registers/:id/issue.
func (h *Handler) Issue(c *gin.Context) {
	h.transition(c, models.BirthStatusIssued, h.store.Issue)
}

func (h *Handler) transition(c *gin.Context, target string, apply func(context.Context, uuid.UUID) (*models.BirthRegister, error)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid entry id")
		return
	}
	b, ok := h.fetch(c, id)
	if !ok {
		return
	}
	if err := Table.GuardTransition(lifecycle.State(b.Status), lifecycle.State(target)); err != nil {
		response.BadRequest(c, "cannot move entry from "+b.Status+" to "+target)
		return
	}
	updated, err := apply(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("birth register transition failed", zap.Error(err), zap.String("target", target))
		response.Internal(c, "failed to update entry status")
		return
	}
	response.OK(c, updated)
}

func parseOptionalUUID(s *string) (*uuid.UUID, bool) {
	if s == nil || *s == "" {
		return nil, true
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, false
	}
	return &id, true
}

func parseDateRange(start, end string) (*time.Time, *time.Time, error) {
	var startT, endT *time.Time
	if start != "" {
		t, err := time.Parse(time.RFC3339, start)
		if err != nil {
			return nil, nil, err
		}
		startT = &t
	}
	if end != "" {
		t, err := time.Parse(time.RFC3339, end)
		if err != nil {
			return nil, nil, err
		}
		endT = &t
	}
	return startT, endT, nil
}
