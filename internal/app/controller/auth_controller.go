package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/pos-backend/internal/app/model"
	"github.com/ikkim/pos-backend/internal/app/service"
	apperrors "github.com/ikkim/pos-backend/internal/errors"
	"github.com/ikkim/pos-backend/internal/middleware"
	"github.com/ikkim/pos-backend/pkg/util"
)

type AuthController struct {
	authService service.AuthService
}

func NewAuthController(authService service.AuthService) *AuthController {
	return &AuthController{
		authService: authService,
	}
}

type RegisterRequest struct {
	Name     string  `json:"name" binding:"required"`
	Mobile   string  `json:"mobile" binding:"required"`
	Username *string `json:"username"`
	Password string  `json:"password" binding:"required"`
}

type LoginRequest struct {
	Mobile   string `json:"mobile" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse carries the user and a token pair. Token duplicates the
// access token for terminals that only store one.
type AuthResponse struct {
	User   *model.User     `json:"user"`
	Token  string          `json:"token"`
	Tokens *util.TokenPair `json:"tokens"`
}

// Register handles cashier registration
// POST /api/auth/register
func (ctrl *AuthController) Register(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid registration request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.RespondWithValidationError(c, "Name, mobile and password are required", err)
		return
	}

	user, tokens, err := ctrl.authService.Register(service.RegisterInput{
		Name:     req.Name,
		Mobile:   req.Mobile,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRegistration):
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, err.Error())
		case errors.Is(err, service.ErrMobileAlreadyExists):
			apperrors.Conflict(c, apperrors.AuthMobileExists, "Mobile number already registered")
		case errors.Is(err, service.ErrUsernameTaken):
			apperrors.Conflict(c, apperrors.AuthUsernameExists, "Username already taken")
		default:
			log.Error("Registration failed", err, map[string]interface{}{
				"mobile": req.Mobile,
			})
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "register user")
		}
		return
	}

	respond(c, http.StatusCreated, AuthResponse{User: user, Token: tokens.AccessToken, Tokens: tokens}, "User registered successfully")
}

// Login authenticates by mobile number and password
// POST /api/auth/login
func (ctrl *AuthController) Login(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid login request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.RespondWithValidationError(c, "Mobile and password are required", err)
		return
	}

	user, tokens, err := ctrl.authService.Login(req.Mobile, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			apperrors.NotFound(c, apperrors.AuthUserNotFound, "User not found")
		case errors.Is(err, service.ErrInvalidCredentials):
			apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthInvalidCredentials, "Invalid credentials")
		default:
			log.Error("Login failed", err)
			apperrors.InternalError(c, "")
		}
		return
	}

	respond(c, http.StatusOK, AuthResponse{User: user, Token: tokens.AccessToken, Tokens: tokens}, "Login successful")
}

// Logout revokes the presented token
// POST /api/auth/logout
func (ctrl *AuthController) Logout(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	token, ok := middleware.GetToken(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}
	expiresAt, _ := middleware.GetTokenExpiry(c)

	if err := ctrl.authService.Logout(c.Request.Context(), token, expiresAt); err != nil {
		log.Error("Logout failed", err)
		apperrors.InternalError(c, "Failed to log out, please try again")
		return
	}

	respond(c, http.StatusOK, nil, "Logged out")
}

// Me returns the authenticated user
// GET /api/auth/me
func (ctrl *AuthController) Me(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	user, err := ctrl.authService.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			apperrors.NotFound(c, apperrors.AuthUserNotFound, "User not found")
			return
		}
		log.Error("Failed to fetch current user", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.InternalError(c, "")
		return
	}

	respond(c, http.StatusOK, user, "")
}
