package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"jobfit-backend/internal/shared/auth"
	"jobfit-backend/internal/shared/server/middleware"
	"jobfit-backend/internal/shared/server/respond"
)

type Handler struct {
	Svc    *Service
	Signer *auth.Signer
}

func NewHandler(svc *Service, signer *auth.Signer) *Handler {
	return &Handler{Svc: svc, Signer: signer}
}

// RegisterAuthRoutes attaches signup, login and logout under /auth.
func (h *Handler) RegisterAuthRoutes(rg *gin.RouterGroup) {
	rg.POST("/signup", h.signup)
	rg.POST("/login", h.login)
	rg.POST("/logout", h.logout)
}

// RegisterProfileRoutes attaches profile edits; rg must require a user.
func (h *Handler) RegisterProfileRoutes(rg *gin.RouterGroup) {
	rg.POST("/update-profile", h.updateProfile)
	rg.POST("/upload-photo", h.uploadPhoto)
}

func (h *Handler) signup(c *gin.Context) {
	var in SignupInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "All fields are required", nil)
		return
	}
	user, err := h.Svc.Signup(c.Request.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingFields):
			respond.Error(c, http.StatusBadRequest, "invalid_request", "All fields are required", nil)
		case errors.Is(err, ErrEmailTaken):
			respond.Error(c, http.StatusBadRequest, "user_exists", "User already exists", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "Signup failed", nil)
		}
		return
	}
	respond.JSON(c, http.StatusCreated, gin.H{"success": true, "user": user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "Email and password are required", nil)
		return
	}
	user, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			respond.Error(c, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password", nil)
		case errors.Is(err, ErrRejected):
			respond.Error(c, http.StatusForbidden, "account_rejected", "Your account has been rejected", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "Login failed", nil)
		}
		return
	}
	token, err := h.Signer.Sign(user.ID, auth.RoleUser, user.Email, user.Name)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Login failed", nil)
		return
	}
	middleware.SetCookie(c, middleware.SessionCookie, token, h.Signer.TTL())
	respond.OK(c, gin.H{"success": true, "user": user, "token": token})
}

func (h *Handler) logout(c *gin.Context) {
	middleware.ClearCookie(c, middleware.SessionCookie)
	respond.OK(c, gin.H{"success": true})
}

type profileRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func (h *Handler) updateProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "Name and email are required", nil)
		return
	}
	user, err := h.Svc.UpdateProfile(c.Request.Context(), middleware.UserIDFromContext(c), req.Name, req.Email, req.Phone)
	if err != nil {
		h.writeMutationError(c, err)
		return
	}
	respond.OK(c, gin.H{"success": true, "user": user})
}

type photoRequest struct {
	ProfileImage string `json:"profileImage"`
}

func (h *Handler) uploadPhoto(c *gin.Context) {
	var req photoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "No image provided", nil)
		return
	}
	if err := h.Svc.UpdatePhoto(c.Request.Context(), middleware.UserIDFromContext(c), req.ProfileImage); err != nil {
		h.writeMutationError(c, err)
		return
	}
	respond.OK(c, gin.H{"success": true, "profileImage": req.ProfileImage})
}

func (h *Handler) writeMutationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrMissingFields):
		respond.Error(c, http.StatusBadRequest, "invalid_request", "Required fields are missing", nil)
	case errors.Is(err, ErrEmailTaken):
		respond.Error(c, http.StatusBadRequest, "email_taken", "Email is already in use", nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "user not found", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Update failed", nil)
	}
}
