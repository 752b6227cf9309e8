package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "github.com/adiwijaya/identity-service/internal/application"
	"github.com/adiwijaya/identity-service/internal/domain/entity"
	"github.com/adiwijaya/identity-service/pkg/response"
	"github.com/adiwijaya/identity-service/pkg/validation"
)

type UserHandler struct {
	Svc    *userapp.Service
	Logger *logrus.Logger
}

func NewUserHandler(svc *userapp.Service, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger}
}

// Email syntax and password strength are the model's concern; binding only
// checks presence so missing-field errors keep their own shape.
type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register handles POST /api/register
func (h *UserHandler) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "email and password are required", validation.ToDetails(err))
		return
	}

	creds, err := h.Svc.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		var verr *entity.ValidationError
		switch {
		case errors.Is(err, userapp.ErrMissingField):
			response.Error[any](c, http.StatusBadRequest, "email and password are required", nil)
		case errors.Is(err, userapp.ErrEmailTaken):
			response.Error[any](c, http.StatusConflict, "email already registered", nil)
		case errors.As(err, &verr):
			response.Error[any](c, http.StatusBadRequest, "invalid "+verr.Field, map[string]string{verr.Field: verr.Reason})
		default:
			h.Logger.WithError(err).Error("register failed")
			response.Error[any](c, http.StatusInternalServerError, "internal server error", nil)
		}
		return
	}

	response.Success(c, http.StatusCreated, creds, "user registered", nil)
}

// Login handles POST /api/login
func (h *UserHandler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "email and password are required", validation.ToDetails(err))
		return
	}

	creds, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, userapp.ErrMissingField):
			response.Error[any](c, http.StatusBadRequest, "email and password are required", nil)
		case errors.Is(err, userapp.ErrInvalidCredentials):
			// Unknown email and wrong password share this path on purpose.
			response.Error[any](c, http.StatusUnauthorized, "invalid credentials", nil)
		default:
			h.Logger.WithError(err).Error("login failed")
			response.Error[any](c, http.StatusInternalServerError, "internal server error", nil)
		}
		return
	}

	response.Success(c, http.StatusOK, creds, "login successful", nil)
}

// GetProfile handles GET /api/profile/:id
func (h *UserHandler) GetProfile(c *gin.Context) {
	profile, err := h.Svc.GetProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error[any](c, http.StatusNotFound, "user not found", nil)
		return
	}
	response.Success(c, http.StatusOK, profile, "profile", nil)
}

// UpdateProfile handles PUT /api/profile/:id
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var updates map[string]any
	if err := c.ShouldBindJSON(&updates); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	profile, err := h.Svc.UpdateProfile(c.Request.Context(), c.Param("id"), updates)
	if err != nil {
		response.Error[any](c, http.StatusNotFound, "user not found", nil)
		return
	}
	response.Success(c, http.StatusOK, profile, "profile updated", nil)
}

// Search handles GET /api/users/search
func (h *UserHandler) Search(c *gin.Context) {
	q := c.Query("q")
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))

	hits, err := h.Svc.SearchUsers(c.Request.Context(), q, size)
	if err != nil {
		h.Logger.WithError(err).Error("user search failed")
		response.Error[any](c, http.StatusInternalServerError, "search unavailable", nil)
		return
	}
	response.Success(c, http.StatusOK, hits, "search results", map[string]any{"count": len(hits)})
}
