package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Meekdavid/django-jwt-auth-service/internal/usecase"
)

const forgotPasswordAck = "if the email is registered, reset instructions have been sent"

// PasswordHandler exposes the password-reset endpoints.
type PasswordHandler struct {
	reset *usecase.PasswordResetService
	isDev bool
}

// NewPasswordHandler constructs PasswordHandler. In development mode the raw
// reset token is echoed in the forgot-password response so the flow can be
// exercised without a mail channel.
func NewPasswordHandler(reset *usecase.PasswordResetService, isDev bool) *PasswordHandler {
	return &PasswordHandler{
		reset: reset,
		isDev: isDev,
	}
}

// RegisterRoutes binds password-reset routes with their throttles.
func (h *PasswordHandler) RegisterRoutes(r *gin.RouterGroup, forgotMiddlewares, resetMiddlewares []gin.HandlerFunc) {
	r.POST("/forgot-password", append(append([]gin.HandlerFunc{}, forgotMiddlewares...), h.forgotPassword)...)
	r.POST("/reset-password", append(append([]gin.HandlerFunc{}, resetMiddlewares...), h.resetPassword)...)
}

func (h *PasswordHandler) forgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	request, err := h.reset.Request(c.Request.Context(), req.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "password reset request failed"))
		return
	}

	// Unknown and known emails answer identically so the endpoint cannot be
	// used to enumerate accounts.
	resp := ForgotPasswordResponse{Message: forgotPasswordAck}
	if h.isDev && request != nil {
		resp.DevToken = request.Token
	}

	c.JSON(http.StatusOK, resp)
}

func (h *PasswordHandler) resetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	confirm := req.NewPassword2
	if confirm == "" {
		confirm = req.NewPassword
	}

	err := h.reset.Confirm(c.Request.Context(), usecase.ConfirmResetInput{
		Token:           req.Token,
		Password:        req.NewPassword,
		PasswordConfirm: confirm,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrResetTokenInvalid, Status: http.StatusBadRequest, Message: "reset token is invalid or expired"},
			{Err: usecase.ErrPasswordMismatch, Status: http.StatusBadRequest, Message: "passwords do not match"},
			{Err: usecase.ErrWeakPassword, Status: http.StatusBadRequest, Message: "password does not meet requirements"},
		}, http.StatusInternalServerError, "password reset failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password updated"})
}
