package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/glampingbrillodeluna/reserva-bot/internal/config"
	"github.com/glampingbrillodeluna/reserva-bot/internal/service"
	"github.com/glampingbrillodeluna/reserva-bot/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg config.Config
	Svc *service.DatabaseService
}

func NewAuthHandler(cfg config.Config, svc *service.DatabaseService) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Svc: svc}
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordReq struct {
	Current string `json:"current_password"`
	Next    string `json:"new_password"`
}

type usuarioPart struct {
	ID     int64  `json:"id"`
	Nombre string `json:"nombre"`
	Email  string `json:"email"`
	Rol    string `json:"rol"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

// Login verifies operator credentials and issues an access token. The
// response never distinguishes why a login failed.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Svc.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Rol, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user":   usuarioPart{ID: u.ID, Nombre: u.Nombre, Email: u.Email, Rol: u.Rol},
		"access": tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// ChangePassword rotates the calling operator's own password.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	uid, ok := subjectID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Svc.ChangePassword(ctx, uid, req.Current, req.Next); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		default:
			var verr *service.ValidationError
			if errors.As(err, &verr) {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": verr.Error()})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "change password failed"})
		}
	}
	return c.NoContent(http.StatusNoContent)
}

// Me is a simple protected endpoint.
func (h *AuthHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"user_id": c.Get("user_id"),
		"role":    c.Get("role"),
	})
}

// subjectID extracts the numeric sub claim set by the JWT middleware.
// JWT numbers decode as float64.
func subjectID(c echo.Context) (int64, bool) {
	switch v := c.Get("user_id").(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	}
	return 0, false
}
