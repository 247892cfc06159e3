package inquiries

import (
	"context"
	"fmt"
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
	"github.com/medigrid-hms/backend/pkg/queue"
	"github.com/medigrid-hms/backend/pkg/response"
)

// Prefix for inquiry reference numbers.
const Prefix = "INQ"

// Table is the sales pipeline. Won and lost inquiries are locked.
var Table = lifecycle.Table{
	Initial: models.InquiryStatusNew,
	Transitions: map[lifecycle.State][]lifecycle.State{
		models.InquiryStatusNew:          {models.InquiryStatusContacted},
		models.InquiryStatusContacted:    {models.InquiryStatusQualified},
		models.InquiryStatusQualified:    {models.InquiryStatusProposalSent},
		models.InquiryStatusProposalSent: {models.InquiryStatusWon, models.InquiryStatusLost},
	},
	Locked: map[lifecycle.State]bool{
		models.InquiryStatusWon:  true,
		models.InquiryStatusLost: true,
	},
}

var sortable = map[string]string{
	"createdAt":    "created_at",
	"hospitalName": "hospital_name",
	"status":       "status",
}

// Store is the persistence contract consumed by the handler.
type Store interface {
	Create(ctx context.Context, q *models.Inquiry) error
	GetByID(ctx context.Context, id uuid.UUID, sc scope.Scope) (*models.Inquiry, error)
	List(ctx context.Context, sc scope.Scope, f ListFilter, p scope.ListParams) ([]models.Inquiry, int, error)
	Update(ctx context.Context, q *models.Inquiry) error
	SetStatus(ctx context.Context, id uuid.UUID, status, lostReason string) (*models.Inquiry, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

var _ Store = (*Repository)(nil)

// Sequencer allocates the next sequence number for a tenant-year-prefix.
type Sequencer interface {
	Next(ctx context.Context, orgID uuid.UUID, prefix string, year int) (int, error)
}

var _ Sequencer = (*refnum.Counter)(nil)

// Notifier enqueues notification email jobs.
type Notifier interface {
	EnqueueEmail(ctx context.Context, payload queue.EmailPayload) error
}

var _ Notifier = (*queue.Queue)(nil)

// Handler handles sales inquiry HTTP endpoints.
type Handler struct {
	store    Store
	seq      Sequencer
	notify   Notifier // nil when the worker stack is disabled
	notifyTo string
	logger   *zap.Logger
}

// NewHandler creates an inquiry handler. notify may be nil, in which case no
// notification email is enqueued.
func NewHandler(store Store, seq Sequencer, notify Notifier, notifyTo string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, seq: seq, notify: notify, notifyTo: notifyTo, logger: logger}
}

// CreateRequest is the body for POST /inquiries.
type CreateRequest struct {
	HospitalName string  `json:"hospital_name" binding:"required"`
	ContactName  string  `json:"contact_name" binding:"required"`
	Email        string  `json:"email" binding:"required,email"`
	Phone        string  `json:"phone"`
	Source       string  `json:"source"`
	Message      string  `json:"message"`
	AssignedToID *string `json:"assigned_to_id"`
}

// UpdateRequest is the body for PATCH /inquiries/:id.
type UpdateRequest struct {
	HospitalName *string `json:"hospital_name"`
	ContactName  *string `json:"contact_name"`
	Email        *string `json:"email"`
	Phone        *string `json:"phone"`
	Source       *string `json:"source"`
	Message      *string `json:"message"`
	AssignedToID *string `json:"assigned_to_id"`
}

// LostRequest is the body for POST /inquiries/:id/lost.
type LostRequest struct {
	Reason string `json:"reason"`
}

// Create handles POST /inquiries. A notification email job is enqueued on
// success; enqueue failure is logged and never fails the create.
func (h *Handler) Create(c *gin.Context) {
	sc := middleware.MustScope(c)
	if sc.Unscoped() {
		response.BadRequest(c, "organization context required to record an inquiry")
		return
	}
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	assignedTo, err := parseOptionalUUID(req.AssignedToID)
	if err != nil {
		response.BadRequest(c, "invalid assigned_to_id")
		return
	}

	year := time.Now().Year()
	seq, err := h.seq.Next(c.Request.Context(), *sc.OrganizationID, Prefix, year)
	if err != nil {
		h.logger.Error("inquiry sequence allocation failed", zap.Error(err))
		response.Internal(c, "failed to allocate reference number")
		return
	}

	q := &models.Inquiry{
		OrganizationID:  *sc.OrganizationID,
		ReferenceNumber: refnum.Sequential(Prefix, year, seq),
		Status:          string(Table.Initial),
		HospitalName:    req.HospitalName,
		ContactName:     req.ContactName,
		Email:           req.Email,
		Phone:           req.Phone,
		Source:          req.Source,
		Message:         req.Message,
		AssignedToID:    assignedTo,
	}
	if err := h.store.Create(c.Request.Context(), q); err != nil {
		if database.IsUniqueViolation(err) {
			response.Conflict(c, "duplicate reference number")
			return
		}
		h.logger.Error("create inquiry failed", zap.Error(err))
		response.Internal(c, "failed to create inquiry")
		return
	}

	if h.notify != nil && h.notifyTo != "" {
		payload := queue.EmailPayload{
			EmailType:      "new_inquiry",
			RecipientEmail: h.notifyTo,
			Subject:        fmt.Sprintf("New sales inquiry %s from %s", q.ReferenceNumber, q.HospitalName),
			BodyHTML: fmt.Sprintf(
				"<p>%s (%s) asked about MediGrid for <b>%s</b>.</p><p>%s</p>",
				q.ContactName, q.Email, q.HospitalName, q.Message),
		}
		if err := h.notify.EnqueueEmail(c.Request.Context(), payload); err != nil {
			h.logger.Warn("inquiry notification enqueue failed", zap.Error(err),
				zap.String("reference", q.ReferenceNumber))
		}
	}
	response.Created(c, q)
}

// List handles GET /inquiries.
func (h *Handler) List(c *gin.Context) {
	sc := middleware.MustScope(c)
	p := scope.ParseList(c.Query("page"), c.Query("limit"), scope.DefaultLimit)
	p, err := p.WithSort(c.Query("sortBy"), c.Query("sortDir"), sortable)
	if err != nil {
		response.BadRequest(c, "unsupported sort field")
		return
	}

	f := ListFilter{Status: c.Query("status"), Source: c.Query("source")}
	if v := c.Query("assignedTo"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			response.BadRequest(c, "invalid assignedTo")
			return
		}
		f.AssignedTo = &id
	}

	list, total, err := h.store.List(c.Request.Context(), sc, f, p)
	if err != nil {
		h.logger.Error("list inquiries failed", zap.Error(err))
		response.Internal(c, "failed to list inquiries")
		return
	}
	if list == nil {
		list = []models.Inquiry{}
	}
	response.Paged(c, list, response.Meta{
		Total: total, Page: p.Page, Limit: p.Limit, TotalPages: scope.PageMeta(total, p),
	})
}

// fetch loads an inquiry by id, answering 404 for missing or out-of-scope ids
// and 500 for storage failures.
func (h *Handler) fetch(c *gin.Context, id uuid.UUID) (*models.Inquiry, bool) {
	q, err := h.store.GetByID(c.Request.Context(), id, middleware.MustScope(c))
	if err != nil {
		if database.IsNotFound(err) {
			response.NotFound(c, "inquiry not found")
		} else {
			h.logger.Error("load inquiry failed", zap.Error(err))
			response.Internal(c, "failed to load inquiry")
		}
		return nil, false
	}
	return q, true
}

// GetByID handles GET /inquiries/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid inquiry id")
		return
	}
	q, ok := h.fetch(c, id)
	if !ok {
		return
	}
	response.OK(c, q)
}

// Update handles PATCH /inquiries/:id. Won and lost inquiries are locked.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid inquiry id")
		return
	}
	q, ok := h.fetch(c, id)
	if !ok {
		return
	}
	if err := Table.GuardUpdate(lifecycle.State(q.Status)); err != nil {
		response.BadRequest(c, "a closed inquiry cannot be edited")
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.HospitalName != nil {
		q.HospitalName = *req.HospitalName
	}
	if req.ContactName != nil {
		q.ContactName = *req.ContactName
	}
	if req.Email != nil {
		q.Email = *req.Email
	}
	if req.Phone != nil {
		q.Phone = *req.Phone
	}
	if req.Source != nil {
		q.Source = *req.Source
	}
	if req.Message != nil {
		q.Message = *req.Message
	}
	if req.AssignedToID != nil {
		assignedTo, err := parseOptionalUUID(req.AssignedToID)
		if err != nil {
			response.BadRequest(c, "invalid assigned_to_id")
			return
		}
		q.AssignedToID = assignedTo
	}

	if err := h.store.Update(c.Request.Context(), q); err != nil {
		h.logger.Error("update inquiry failed", zap.Error(err))
		response.Internal(c, "failed to update inquiry")
		return
	}
	response.OK(c, q)
}

// Contact handles POST /inquiries/:id/contact.
func (h *Handler) Contact(c *gin.Context) {
	h.transition(c, models.InquiryStatusContacted, "")
}

// Qualify handles POST /inquiries/:id/qualify.
func (h *Handler) Qualify(c *gin.Context) {
	h.transition(c, models.InquiryStatusQualified, "")
}

// Proposal handles POST /inquiries/:id/proposal.
func (h *Handler) Proposal(c *gin.Context) {
	h.transition(c, models.InquiryStatusProposalSent, "")
}

// Won handles POST /inquiries/:id/won.
func (h *Handler) Won(c *gin.Context) {
	h.transition(c, models.InquiryStatusWon, "")
}

// Lost handles POST /inquiries/:id/lost.
func (h *Handler) Lost(c *gin.Context) {
	var req LostRequest
	_ = c.ShouldBindJSON(&req) // reason is optional, body may be empty
	h.transition(c, models.InquiryStatusLost, req.Reason)
}

// transition moves an inquiry to target. Re-entering the current state is a
// no-op success; the stored first-write-wins timestamps stay untouched.
func (h *Handler) transition(c *gin.Context, target, lostReason string) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid inquiry id")
		return
	}
	q, ok := h.fetch(c, id)
	if !ok {
		return
	}
	if q.Status != target {
		if err := Table.GuardTransition(lifecycle.State(q.Status), lifecycle.State(target)); err != nil {
			response.BadRequest(c, "cannot move inquiry from "+q.Status+" to "+target)
			return
		}
	}
	updated, err := h.store.SetStatus(c.Request.Context(), id, target, lostReason)
	if err != nil {
		h.logger.Error("inquiry transition failed", zap.Error(err), zap.String("target", target))
		response.Internal(c, "failed to update inquiry status")
		return
	}
	response.OK(c, updated)
}

// Delete handles DELETE /inquiries/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid inquiry id")
		return
	}
	if _, ok := h.fetch(c, id); !ok {
		return
	}
	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		h.logger.Error("delete inquiry failed", zap.Error(err))
		response.Internal(c, "failed to delete inquiry")
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
