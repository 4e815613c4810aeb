package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/glampingbrillodeluna/reserva-bot/internal/model"
	"github.com/glampingbrillodeluna/reserva-bot/internal/repository"
	"github.com/glampingbrillodeluna/reserva-bot/internal/service"
)

// UsuarioHandler manages operator accounts. Only "completo" operators
// reach these endpoints; the router enforces the role gate.
type UsuarioHandler struct {
	Svc *service.DatabaseService
}

func NewUsuarioHandler(svc *service.DatabaseService) *UsuarioHandler {
	return &UsuarioHandler{Svc: svc}
}

// usuarioResp never carries the password hash or the temp password; the
// plaintext temp password is returned once, by Create and
// RegeneratePassword only.
type usuarioResp struct {
	ID            int64   `json:"id"`
	Nombre        string  `json:"nombre"`
	Email         string  `json:"email"`
	Rol           string  `json:"rol"`
	Activo        bool    `json:"activo"`
	CreadoPor     string  `json:"creado_por"`
	FechaCreacion string  `json:"fecha_creacion"`
	UltimoAcceso  *string `json:"ultimo_acceso,omitempty"`
}

func toUsuarioResp(u *model.Usuario) usuarioResp {
	out := usuarioResp{
		ID:            u.ID,
		Nombre:        u.Nombre,
		Email:         u.Email,
		Rol:           u.Rol,
		Activo:        u.Activo,
		CreadoPor:     u.CreadoPor,
		FechaCreacion: u.FechaCreacion.UTC().Format(time.RFC3339),
	}
	if u.UltimoAcceso != nil {
		s := u.UltimoAcceso.UTC().Format(time.RFC3339)
		out.UltimoAcceso = &s
	}
	return out
}

// List returns every operator account.
func (h *UsuarioHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	us, err := h.Svc.ListUsuarios(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list failed"})
	}
	out := make([]usuarioResp, 0, len(us))
	for _, u := range us {
		out = append(out, toUsuarioResp(u))
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns one operator account.
func (h *UsuarioHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Svc.GetUsuario(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "usuario not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toUsuarioResp(u))
}

type createUsuarioReq struct {
	Nombre string `json:"nombre"`
	Email  string `json:"email"`
	Rol    string `json:"rol"`
}

// Create registers an operator account and returns its auto-generated
// temporary password for out-of-band delivery.
func (h *UsuarioHandler) Create(c echo.Context) error {
	var req createUsuarioReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	creadoPor := "sistema"
	if uid, ok := subjectID(c); ok {
		creadoPor = "usuario:" + strconv.FormatInt(uid, 10)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, temp, err := h.Svc.CreateUsuario(ctx, req.Nombre, req.Email, req.Rol, creadoPor)
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		case errors.As(err, &verr):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": verr.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
		}
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"usuario":       toUsuarioResp(u),
		"temp_password": temp,
	})
}

type updateUsuarioReq struct {
	Nombre string `json:"nombre"`
	Email  string `json:"email"`
	Rol    string `json:"rol"`
	Activo bool   `json:"activo"`
}

// Update rewrites an operator's profile.
func (h *UsuarioHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req updateUsuarioReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Svc.UpdateUsuario(ctx, &model.Usuario{
		ID:     id,
		Nombre: req.Nombre,
		Email:  req.Email,
		Rol:    req.Rol,
		Activo: req.Activo,
	})
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "usuario not found"})
		case errors.Is(err, repository.ErrEmailExists):
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		case errors.As(err, &verr):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": verr.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
		}
	}
	return c.JSON(http.StatusOK, toUsuarioResp(u))
}

// Delete removes an operator account.
func (h *UsuarioHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Svc.DeleteUsuario(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "usuario not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// RegeneratePassword installs a fresh temporary password on an account
// and returns the plaintext for out-of-band delivery.
func (h *UsuarioHandler) RegeneratePassword(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	temp, err := h.Svc.RegeneratePassword(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "usuario not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "regenerate failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"temp_password": temp})
}
