package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/koulio-auth/internal/buildinfo"
	"github.com/dmitrijs2005/koulio-auth/internal/common"
	"github.com/dmitrijs2005/koulio-auth/internal/logging"
	"github.com/dmitrijs2005/koulio-auth/internal/server/auth"
	"github.com/dmitrijs2005/koulio-auth/internal/server/models"
	"github.com/dmitrijs2005/koulio-auth/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// AccountService is implemented by services.UserService.
type AccountService interface {
	Register(ctx context.Context, email, password, fullName string) (*services.AuthResult, error)
	Login(ctx context.Context, email, password string) (*services.AuthResult, error)
	RefreshTokens(ctx context.Context, refreshToken string) (*auth.TokenPair, error)
	GetProfile(ctx context.Context, userID string) (*models.UserView, error)
	UpdateProfile(ctx context.Context, userID, fullName, email string) error
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	DeleteAccount(ctx context.Context, userID, password string) error
	Logout(ctx context.Context, userID, email string)
}

// Request bodies use pointers so an absent key can be told apart from an
// empty value.
type registerRequest struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
	FullName *string `json:"full_name"`
}

type loginRequest struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

type refreshRequest struct {
	RefreshToken *string `json:"refresh_token"`
}

type updateProfileRequest struct {
	FullName *string `json:"full_name"`
	Email    *string `json:"email"`
}

type changePasswordRequest struct {
	CurrentPassword *string `json:"current_password"`
	NewPassword     *string `json:"new_password"`
}

type deleteAccountRequest struct {
	Password *string `json:"password"`
}

type authResponse struct {
	Message      string          `json:"message"`
	User         models.UserView `json:"user"`
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
}

type tokensResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type Handler struct {
	users  AccountService
	logger logging.Logger
	now    func() time.Time
}

func NewHandler(users AccountService, logger logging.Logger) *Handler {
	return &Handler{
		users:  users,
		logger: logger.With("module", "rest_handler"),
		now:    time.Now,
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": h.now().UTC().Format(time.RFC3339Nano),
		"version":   buildinfo.Version,
	})
}

func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == nil || req.Password == nil || req.FullName == nil {
		abortWithError(c, http.StatusBadRequest, "Missing required fields")
		return
	}

	res, err := h.users.Register(c.Request.Context(), *req.Email, *req.Password, *req.FullName)
	if err != nil {
		h.fail(c, "register", err)
		return
	}

	c.JSON(http.StatusCreated, authResponse{
		Message:      "User registered successfully",
		User:         res.User,
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
	})
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == nil || req.Password == nil {
		abortWithError(c, http.StatusBadRequest, "Email and password are required")
		return
	}

	res, err := h.users.Login(c.Request.Context(), *req.Email, *req.Password)
	if err != nil {
		h.fail(c, "login", err)
		return
	}

	c.JSON(http.StatusOK, authResponse{
		Message:      "Login successful",
		User:         res.User,
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
	})
}

func (h *Handler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == nil {
		abortWithError(c, http.StatusBadRequest, "Refresh token is required")
		return
	}

	pair, err := h.users.RefreshTokens(c.Request.Context(), *req.RefreshToken)
	if err != nil {
		h.fail(c, "refresh", err,
			errMsg{common.ErrTokenExpired, "Refresh token has expired"},
			errMsg{common.ErrTokenInvalid, "Invalid refresh token"},
			errMsg{common.ErrorInvalidCredentials, "User not found"},
		)
		return
	}

	c.JSON(http.StatusOK, tokensResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (h *Handler) GetProfile(c *gin.Context) {
	id, _ := identityFrom(c)

	user, err := h.users.GetProfile(c.Request.Context(), id.UserID)
	if err != nil {
		h.fail(c, "get profile", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	id, _ := identityFrom(c)

	// An empty object counts as no data; unknown keys only make the update
	// empty, which the service reports itself.
	var raw map[string]any
	if err := c.ShouldBindBodyWith(&raw, binding.JSON); err != nil || len(raw) == 0 {
		abortWithError(c, http.StatusBadRequest, "No data provided")
		return
	}
	var req updateProfileRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		abortWithError(c, http.StatusBadRequest, "No data provided")
		return
	}

	err := h.users.UpdateProfile(c.Request.Context(), id.UserID, deref(req.FullName), deref(req.Email))
	if err != nil {
		h.fail(c, "update profile", err,
			errMsg{common.ErrorAlreadyExists, "Email is already in use"},
		)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully"})
}

func (h *Handler) ChangePassword(c *gin.Context) {
	id, _ := identityFrom(c)

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.CurrentPassword == nil || req.NewPassword == nil {
		abortWithError(c, http.StatusBadRequest, "Current password and new password are required")
		return
	}

	err := h.users.ChangePassword(c.Request.Context(), id.UserID, *req.CurrentPassword, *req.NewPassword)
	if err != nil {
		h.fail(c, "change password", err,
			errMsg{common.ErrorPasswordTooShort, "New password must be at least 6 characters long"},
			errMsg{common.ErrorUnauthorized, "Current password is incorrect"},
		)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}

func (h *Handler) DeleteAccount(c *gin.Context) {
	id, _ := identityFrom(c)

	var req deleteAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Password == nil {
		abortWithError(c, http.StatusBadRequest, "Password confirmation is required")
		return
	}

	if err := h.users.DeleteAccount(c.Request.Context(), id.UserID, *req.Password); err != nil {
		h.fail(c, "delete account", err,
			errMsg{common.ErrorUnauthorized, "Password is incorrect"},
		)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Account deleted successfully"})
}

func (h *Handler) Logout(c *gin.Context) {
	id, _ := identityFrom(c)

	h.users.Logout(c.Request.Context(), id.UserID, id.Email)

	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (h *Handler) NotFound(c *gin.Context) {
	abortWithError(c, http.StatusNotFound, "Endpoint not found")
}

func (h *Handler) MethodNotAllowed(c *gin.Context) {
	abortWithError(c, http.StatusMethodNotAllowed, "Method not allowed")
}

// fail writes the error response for err. Internal errors are logged here
// and never echoed to the client.
func (h *Handler) fail(c *gin.Context, op string, err error, overrides ...errMsg) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(c.Request.Context(), "request failed", "op", op, "error", err)
		abortWithError(c, status, msgInternal)
		return
	}
	abortWithError(c, status, messageFor(err, overrides))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
