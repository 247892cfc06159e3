package phoneauth

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/medigrid-hms/backend/internal/auth"
	"github.com/medigrid-hms/backend/internal/models"
	"github.com/medigrid-hms/backend/pkg/database"
	"github.com/medigrid-hms/backend/pkg/response"
)

// Users is the slice of the user repository phone auth needs.
type Users interface {
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	CreateWithPhone(ctx context.Context, phone string) (*models.User, error)
}

var _ Users = (*auth.Repository)(nil)

// Codes stores pending OTP codes.
type Codes interface {
	Put(ctx context.Context, phone, code string) error
	Consume(ctx context.Context, phone string) (string, error)
}

var _ Codes = (*CodeStore)(nil)

// Handler handles phone OTP sign-in.
type Handler struct {
	users  Users
	codes  Codes
	sms    SMSSender
	jwt    *auth.JWTService
	logger *zap.Logger
}

func NewHandler(users Users, codes Codes, sms SMSSender, jwt *auth.JWTService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{users: users, codes: codes, sms: sms, jwt: jwt, logger: logger}
}

// RequestRequest is the body for POST /auth/phone/request.
type RequestRequest struct {
	Phone string `json:"phone" binding:"required,e164"`
}

// VerifyRequest is the body for POST /auth/phone/verify.
type VerifyRequest struct {
	Phone string `json:"phone" binding:"required,e164"`
	Code  string `json:"code" binding:"required,len=6"`
}

// Request handles POST /auth/phone/request. Returns 503 until an SMS gateway
// is configured.
func (h *Handler) Request(c *gin.Context) {
	if h.sms == nil || !h.sms.Configured() {
		response.ServiceUnavailable(c, "phone sign-in is not available")
		return
	}
	var req RequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	code, err := GenerateCode()
	if err != nil {
		response.Internal(c, "failed to issue code")
		return
	}
	if err := h.codes.Put(c.Request.Context(), req.Phone, code); err != nil {
		h.logger.Error("otp store failed", zap.Error(err))
		response.Internal(c, "failed to issue code")
		return
	}
	msg := fmt.Sprintf("Your MediGrid verification code is %s. It expires in 5 minutes.", code)
	if err := h.sms.Send(c.Request.Context(), req.Phone, msg); err != nil {
		h.logger.Error("otp sms send failed", zap.Error(err))
		response.ServiceUnavailable(c, "could not deliver the code, try again later")
		return
	}
	response.OK(c, gin.H{"message": "code sent"})
}

// Verify handles POST /auth/phone/verify. The code is consumed on the first
// attempt, right or wrong.
func (h *Handler) Verify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	stored, err := h.codes.Consume(c.Request.Context(), req.Phone)
	if err != nil {
		h.logger.Error("otp lookup failed", zap.Error(err))
		response.Internal(c, "verification failed")
		return
	}
	if stored == "" || stored != req.Code {
		response.Unauthorized(c, "invalid or expired code")
		return
	}

	user, err := h.users.GetByPhone(c.Request.Context(), req.Phone)
	if err != nil {
		if !database.IsNotFound(err) {
			h.logger.Error("user lookup failed", zap.Error(err))
			response.Internal(c, "verification failed")
			return
		}
		user, err = h.users.CreateWithPhone(c.Request.Context(), req.Phone)
		if err != nil {
			if database.IsUniqueViolation(err) {
				response.Conflict(c, "phone already linked to an account")
				return
			}
			h.logger.Error("user create failed", zap.Error(err))
			response.Internal(c, "verification failed")
			return
		}
	}

	token, err := h.jwt.Generate(user.ID, user.Email, string(user.Role), user.OrganizationID)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	response.OK(c, auth.TokenResponse{Token: token, User: user.ToPublic()})
}
