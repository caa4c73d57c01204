package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/wedding-gift-registry/internal/config"
	"github.com/iliyamo/wedding-gift-registry/internal/repository"
	"github.com/iliyamo/wedding-gift-registry/internal/utils"
)

// AuthHandler implements admin account endpoints: register, login, token
// refresh and logout.  Only the couple and whoever they trust with the
// setup code ever hold accounts; guests stay anonymous.
type AuthHandler struct {
	cfg    config.Config
	admins *repository.AdminRepo
	tokens *repository.TokenRepo
	log    *logrus.Logger
}

// NewAuthHandler wires the auth endpoints with their dependencies.
func NewAuthHandler(cfg config.Config, admins *repository.AdminRepo, tokens *repository.TokenRepo, log *logrus.Logger) *AuthHandler {
	return &AuthHandler{cfg: cfg, admins: admins, tokens: tokens, log: log}
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	SetupCode string `json:"setup_code"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Register creates an admin account.  The very first account can be
// created freely (there is nobody to approve it yet); once any admin
// exists, further registrations require the configured setup code.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "valid email is required"})
	}
	if len(req.Password) < 8 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 8 characters"})
	}

	ctx := c.Request().Context()
	count, err := h.admins.Count(ctx)
	if err != nil {
		h.log.WithError(err).Error("failed to count admins")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	if count > 0 {
		if h.cfg.AdminSetupCode == "" || req.SetupCode != h.cfg.AdminSetupCode {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "registration requires a valid setup code"})
		}
	}

	id, err := h.admins.Create(ctx, req.Email, req.Password, h.cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
		}
		h.log.WithError(err).Error("failed to create admin")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id, "email": req.Email})
}

// Login verifies credentials and issues an access/refresh token pair.  The
// refresh token is stored hashed so a database leak cannot be replayed.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	ctx := c.Request().Context()
	admin, err := h.admins.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		h.log.WithError(err).Error("failed to load admin")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	if !admin.IsActive || !utils.VerifyPassword(admin.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	access, err := utils.NewAccessToken(h.cfg.JWTSecret, admin.ID, "ADMIN", h.cfg.AccessTTLMin)
	if err != nil {
		h.log.WithError(err).Error("failed to sign access token")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	refresh, err := utils.NewRefreshToken(h.cfg.RefreshTTLDays)
	if err != nil {
		h.log.WithError(err).Error("failed to create refresh token")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	if err := h.tokens.StoreRefresh(ctx, admin.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		h.log.WithError(err).Error("failed to store refresh token")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"access_token":  access.Token,
		"expires_at":    access.Exp,
		"refresh_token": refresh.Raw,
	})
}

// Refresh exchanges a valid refresh token for a new token pair.  The old
// refresh token is revoked so each one is single-use.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token is required"})
	}

	ctx := c.Request().Context()
	hash := utils.HashRefreshRaw(req.RefreshToken)
	adminID, err := h.tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
	}

	admin, err := h.admins.GetByID(ctx, adminID)
	if err != nil || !admin.IsActive {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
	}

	if err := h.tokens.RevokeByHash(ctx, hash); err != nil {
		h.log.WithError(err).Error("failed to revoke refresh token")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	access, err := utils.NewAccessToken(h.cfg.JWTSecret, admin.ID, "ADMIN", h.cfg.AccessTTLMin)
	if err != nil {
		h.log.WithError(err).Error("failed to sign access token")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	refresh, err := utils.NewRefreshToken(h.cfg.RefreshTTLDays)
	if err != nil {
		h.log.WithError(err).Error("failed to create refresh token")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	if err := h.tokens.StoreRefresh(ctx, admin.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		h.log.WithError(err).Error("failed to store refresh token")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"access_token":  access.Token,
		"expires_at":    access.Exp,
		"refresh_token": refresh.Raw,
	})
}

// Logout revokes every active refresh token of the authenticated admin.
func (h *AuthHandler) Logout(c echo.Context) error {
	adminID, err := getAdminID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if err := h.tokens.RevokeAllForAdmin(c.Request().Context(), adminID); err != nil {
		h.log.WithError(err).Error("failed to revoke tokens")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// Me returns the authenticated admin's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	adminID, err := getAdminID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	admin, err := h.admins.GetByID(c.Request().Context(), adminID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "admin not found"})
		}
		h.log.WithError(err).Error("failed to load admin")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":         admin.ID,
		"email":      admin.Email,
		"created_at": admin.CreatedAt,
	})
}
