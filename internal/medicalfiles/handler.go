package medicalfiles

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

// Prefix for medical record file numbers.
const Prefix = "MRF"

// Table is the medical file lifecycle. Archived files reject general updates
// but can still be deleted.
var Table = lifecycle.Table{
	Initial: models.FileStatusPending,
	Transitions: map[lifecycle.State][]lifecycle.State{
		models.FileStatusPending: {models.FileStatusScanned},
		models.FileStatusScanned: {models.FileStatusIndexed},
		models.FileStatusIndexed: {models.FileStatusArchived},
	},
	Locked: map[lifecycle.State]bool{
		models.FileStatusArchived: true,
	},
}

var validFileTypes = map[string]bool{
	models.FileTypeOPD:       true,
	models.FileTypeIPD:       true,
	models.FileTypeEmergency: true,
	models.FileTypeLab:       true,
}

var sortable = map[string]string{
	"createdAt":   "created_at",
	"patientName": "patient_name",
	"status":      "status",
	"fileType":    "file_type",
}

// Store is the persistence contract consumed by the handler.
type Store interface {
	Create(ctx context.Context, mf *models.MedicalFile) error
	GetByID(ctx context.Context, id uuid.UUID, sc scope.Scope) (*models.MedicalFile, error)
	List(ctx context.Context, sc scope.Scope, f ListFilter, p scope.ListParams) ([]models.MedicalFile, int, error)
	Update(ctx context.Context, mf *models.MedicalFile) error
	SetStatus(ctx context.Context, id uuid.UUID, status string) (*models.MedicalFile, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

var _ Store = (*Repository)(nil)

// Handler handles medical record file HTTP endpoints.
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

// CreateRequest is the body for POST /medical-files.
type CreateRequest struct {
	PatientName string  `json:"patient_name" binding:"required"`
	PatientID   *string `json:"patient_id"`
	FileType    string  `json:"file_type" binding:"required"`
	Department  string  `json:"department"`
	Location    string  `json:"location"`
	AssigneeID  *string `json:"assignee_id"`
}

// UpdateRequest is the body for PATCH /medical-files/:id.
type UpdateRequest struct {
	PatientName *string `json:"patient_name"`
	FileType    *string `json:"file_type"`
	Department  *string `json:"department"`
	Location    *string `json:"location"`
	AssigneeID  *string `json:"assignee_id"`
}

// Create handles POST /medical-files.
func (h *Handler) Create(c *gin.Context) {
	sc := middleware.MustScope(c)
	if sc.Unscoped() {
		response.BadRequest(c, "organization context required to open a file")
		return
	}
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !validFileTypes[req.FileType] {
		response.BadRequest(c, "invalid file_type")
		return
	}
	patientID, err := parseOptionalUUID(req.PatientID)
	if err != nil {
		response.BadRequest(c, "invalid patient_id")
		return
	}
	assigneeID, err := parseOptionalUUID(req.AssigneeID)
	if err != nil {
		response.BadRequest(c, "invalid assignee_id")
		return
	}

	mf := &models.MedicalFile{
		OrganizationID: *sc.OrganizationID,
		Status:         string(Table.Initial),
		PatientName:    req.PatientName,
		PatientID:      patientID,
		FileType:       req.FileType,
		Department:     req.Department,
		Location:       req.Location,
		AssigneeID:     assigneeID,
	}

	for attempt := 0; attempt < 3; attempt++ {
		num, err := refnum.Random(Prefix, time.Now())
		if err != nil {
			response.Internal(c, "failed to allocate file number")
			return
		}
		mf.FileNumber = num
		err = h.store.Create(c.Request.Context(), mf)
		if err == nil {
			response.Created(c, mf)
			return
		}
		if !database.IsUniqueViolation(err) {
			h.logger.Error("create medical file failed", zap.Error(err))
			response.Internal(c, "failed to create file")
			return
		}
	}
	response.Conflict(c, "file number collision, please retry")
}

// List handles GET /medical-files.
func (h *Handler) List(c *gin.Context) {
	sc := middleware.MustScope(c)
	p := scope.ParseList(c.Query("page"), c.Query("limit"), scope.DefaultLimit)
	p, err := p.WithSort(c.Query("sortBy"), c.Query("sortDir"), sortable)
	if err != nil {
		response.BadRequest(c, "unsupported sort field")
		return
	}

	f := ListFilter{
		Status:     c.Query("status"),
		FileType:   c.Query("fileType"),
		Department: c.Query("department"),
	}
	if v := c.Query("assigneeId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			response.BadRequest(c, "invalid assigneeId")
			return
		}
		f.AssigneeID = &id
	}

	list, total, err := h.store.List(c.Request.Context(), sc, f, p)
	if err != nil {
		h.logger.Error("list medical files failed", zap.Error(err))
		response.Internal(c, "failed to list files")
		return
	}
	if list == nil {
		list = []models.MedicalFile{}
	}
	response.Paged(c, list, response.Meta{
		Total: total, Page: p.Page, Limit: p.Limit, TotalPages: scope.PageMeta(total, p),
	})
}

// fetch loads a file by id, answering 404 for missing or out-of-scope ids
// and 500 for storage failures.
func (h *Handler) fetch(c *gin.Context, id uuid.UUID) (*models.MedicalFile, bool) {
	mf, err := h.store.GetByID(c.Request.Context(), id, middleware.MustScope(c))
	if err != nil {
		if database.IsNotFound(err) {
			response.NotFound(c, "medical file not found")
		} else {
			h.logger.Error("load medical file failed", zap.Error(err))
			response.Internal(c, "failed to load file")
		}
		return nil, false
	}
	return mf, true
}

// GetByID handles GET /medical-files/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid file id")
		return
	}
	mf, ok := h.fetch(c, id)
	if !ok {
		return
	}
	response.OK(c, mf)
}

// Update handles PATCH /medical-files/:id. Archived files are locked.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid file id")
		return
	}
	mf, ok := h.fetch(c, id)
	if !ok {
		return
	}
	if err := Table.GuardUpdate(lifecycle.State(mf.Status)); err != nil {
		response.BadRequest(c, "an archived file cannot be edited")
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.PatientName != nil {
		mf.PatientName = *req.PatientName
	}
	if req.FileType != nil {
		if !validFileTypes[*req.FileType] {
			response.BadRequest(c, "invalid file_type")
			return
		}
		mf.FileType = *req.FileType
	}
	if req.Department != nil {
		mf.Department = *req.Department
	}
	if req.Location != nil {
		mf.Location = *req.Location
	}
	if req.AssigneeID != nil {
		assigneeID, err := parseOptionalUUID(req.AssigneeID)
		if err != nil {
			response.BadRequest(c, "invalid assignee_id")
			return
		}
		mf.AssigneeID = assigneeID
	}

	if err := h.store.Update(c.Request.Context(), mf); err != nil {
		h.logger.Error("update medical file failed", zap.Error(err))
		response.Internal(c, "failed to update file")
		return
	}
	response.OK(c, mf)
}

// Scanned handles POST /medical-files/:id/scanned.
func (h *Handler) Scanned(c *gin.Context) {
	h.transition(c, models.FileStatusScanned)
}

// Indexed handles POST /medical-files/:id/indexed.
func (h *Handler) Indexed(c *gin.Context) {
	h.transition(c, models.FileStatusIndexed)
}

// Archive handles POST /medical-files/:id/archive.
func (h *Handler) Archive(c *gin.Context) {
	h.transition(c, models.FileStatusArchived)
}

func (h *Handler) transition(c *gin.Context, target string) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid file id")
		return
	}
	mf, ok := h.fetch(c, id)
	if !ok {
		return
	}
	if err := Table.GuardTransition(lifecycle.State(mf.Status), lifecycle.State(target)); err != nil {
		response.BadRequest(c, "cannot move file from "+mf.Status+" to "+target)
		return
	}
	updated, err := h.store.SetStatus(c.Request.Context(), id, target)
	if err != nil {
		h.logger.Error("medical file transition failed", zap.Error(err), zap.String("target", target))
		response.Internal(c, "failed to update file status")
		return
	}
	response.OK(c, updated)
}

// Delete handles DELETE /medical-files/:id. Removal is permanent and allowed
// in any state, archived included.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid file id")
		return
	}
	// scope check first so out-of-scope deletes read as missing
	if _, ok := h.fetch(c, id); !ok {
		return
	}
	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		h.logger.Error("delete medical file failed", zap.Error(err))
		response.Internal(c, "failed to delete file")
		return
	}
	response.NoContent(c)
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
