package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/glampingbrillodeluna/reserva-bot/internal/model"
	"github.com/glampingbrillodeluna/reserva-bot/internal/repository"
	"github.com/glampingbrillodeluna/reserva-bot/internal/service"
)

// ReservaHandler exposes reservation CRUD to the admin dashboard. All
// writes go through the database service so cache invalidation and event
// publishing happen in one place.
type ReservaHandler struct {
	Svc *service.DatabaseService
}

func NewReservaHandler(svc *service.DatabaseService) *ReservaHandler {
	return &ReservaHandler{Svc: svc}
}

const dateLayout = "2006-01-02"

type reservaResp struct {
	ID                    int64  `json:"id"`
	NumeroWhatsapp        string `json:"numero_whatsapp"`
	NombresHuespedes      string `json:"nombres_huespedes"`
	CantidadHuespedes     int    `json:"cantidad_huespedes"`
	Domo                  string `json:"domo"`
	FechaEntrada          string `json:"fecha_entrada"`
	FechaSalida           string `json:"fecha_salida"`
	ServicioElegido       string `json:"servicio_elegido,omitempty"`
	Adicciones            string `json:"adicciones,omitempty"`
	NumeroContacto        string `json:"numero_contacto"`
	EmailContacto         string `json:"email_contacto"`
	MetodoPago            string `json:"metodo_pago"`
	MontoTotal            int64  `json:"monto_total"`
	ComentariosEspeciales string `json:"comentarios_especiales,omitempty"`
	FechaCreacion         string `json:"fecha_creacion"`
}

func toReservaResp(r *model.Reserva) reservaResp {
	return reservaResp{
		ID:                    r.ID,
		NumeroWhatsapp:        r.NumeroWhatsapp,
		NombresHuespedes:      r.NombresHuespedes,
		CantidadHuespedes:     r.CantidadHuespedes,
		Domo:                  r.Domo,
		FechaEntrada:          r.FechaEntrada.Format(dateLayout),
		FechaSalida:           r.FechaSalida.Format(dateLayout),
		ServicioElegido:       r.ServicioElegido,
		Adicciones:            r.Adicciones,
		NumeroContacto:        r.NumeroContacto,
		EmailContacto:         r.EmailContacto,
		MetodoPago:            r.MetodoPago,
		MontoTotal:            r.MontoTotal,
		ComentariosEspeciales: r.ComentariosEspeciales,
		FechaCreacion:         r.FechaCreacion.UTC().Format(time.RFC3339),
	}
}

type createReservaReq struct {
	NumeroWhatsapp        string `json:"numero_whatsapp"`
	NombresHuespedes      string `json:"nombres_huespedes"`
	CantidadHuespedes     int    `json:"cantidad_huespedes"`
	Domo                  string `json:"domo"`
	FechaEntrada          string `json:"fecha_entrada"`
	FechaSalida           string `json:"fecha_salida"`
	ServicioElegido       string `json:"servicio_elegido"`
	Adicciones            string `json:"adicciones"`
	NumeroContacto        string `json:"numero_contacto"`
	EmailContacto         string `json:"email_contacto"`
	MetodoPago            string `json:"metodo_pago"`
	MontoTotal            int64  `json:"monto_total"`
	ComentariosEspeciales string `json:"comentarios_especiales"`
}

// List returns every reservation, newest first.
func (h *ReservaHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	var (
		rs  []*model.Reserva
		err error
	)
	if phone := c.QueryParam("numero_whatsapp"); phone != "" {
		rs, err = h.Svc.ListReservasByPhone(ctx, phone)
	} else {
		rs, err = h.Svc.ListReservas(ctx)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list failed"})
	}
	out := make([]reservaResp, 0, len(rs))
	for _, r := range rs {
		out = append(out, toReservaResp(r))
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns one reservation by id.
func (h *ReservaHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	r, err := h.Svc.GetReserva(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reserva not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toReservaResp(r))
}

// Create registers a reservation entered manually by an operator.
func (h *ReservaHandler) Create(c echo.Context) error {
	var req createReservaReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	entrada, err := time.Parse(dateLayout, req.FechaEntrada)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "fecha_entrada must be YYYY-MM-DD"})
	}
	salida, err := time.Parse(dateLayout, req.FechaSalida)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "fecha_salida must be YYYY-MM-DD"})
	}

	r := &model.Reserva{
		NumeroWhatsapp:        req.NumeroWhatsapp,
		NombresHuespedes:      req.NombresHuespedes,
		CantidadHuespedes:     req.CantidadHuespedes,
		Domo:                  req.Domo,
		FechaEntrada:          entrada,
		FechaSalida:           salida,
		ServicioElegido:       req.ServicioElegido,
		Adicciones:            req.Adicciones,
		NumeroContacto:        req.NumeroContacto,
		EmailContacto:         req.EmailContacto,
		MetodoPago:            req.MetodoPago,
		MontoTotal:            req.MontoTotal,
		ComentariosEspeciales: req.ComentariosEspeciales,
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	id, err := h.Svc.CreateReserva(ctx, r)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": verr.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	r.ID = id
	return c.JSON(http.StatusCreated, toReservaResp(r))
}

type updateReservaReq struct {
	NumeroWhatsapp        *string `json:"numero_whatsapp"`
	NombresHuespedes      *string `json:"nombres_huespedes"`
	CantidadHuespedes     *int    `json:"cantidad_huespedes"`
	Domo                  *string `json:"domo"`
	FechaEntrada          *string `json:"fecha_entrada"`
	FechaSalida           *string `json:"fecha_salida"`
	ServicioElegido       *string `json:"servicio_elegido"`
	Adicciones            *string `json:"adicciones"`
	NumeroContacto        *string `json:"numero_contacto"`
	EmailContacto         *string `json:"email_contacto"`
	MetodoPago            *string `json:"metodo_pago"`
	MontoTotal            *int64  `json:"monto_total"`
	ComentariosEspeciales *string `json:"comentarios_especiales"`
}

// Update applies a partial update; absent JSON fields stay untouched.
func (h *ReservaHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req updateReservaReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	patch := &model.ReservaPatch{
		NumeroWhatsapp:        req.NumeroWhatsapp,
		NombresHuespedes:      req.NombresHuespedes,
		CantidadHuespedes:     req.CantidadHuespedes,
		Domo:                  req.Domo,
		ServicioElegido:       req.ServicioElegido,
		Adicciones:            req.Adicciones,
		NumeroContacto:        req.NumeroContacto,
		EmailContacto:         req.EmailContacto,
		MetodoPago:            req.MetodoPago,
		MontoTotal:            req.MontoTotal,
		ComentariosEspeciales: req.ComentariosEspeciales,
	}
	if req.FechaEntrada != nil {
		t, err := time.Parse(dateLayout, *req.FechaEntrada)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "fecha_entrada must be YYYY-MM-DD"})
		}
		patch.FechaEntrada = &t
	}
	if req.FechaSalida != nil {
		t, err := time.Parse(dateLayout, *req.FechaSalida)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "fecha_salida must be YYYY-MM-DD"})
		}
		patch.FechaSalida = &t
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	after, err := h.Svc.UpdateReserva(ctx, id, patch)
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reserva not found"})
		case errors.As(err, &verr):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": verr.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
		}
	}
	return c.JSON(http.StatusOK, toReservaResp(after))
}

// Delete removes one reservation.
func (h *ReservaHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Svc.DeleteReserva(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reserva not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Stats returns aggregate reservation counts for the dashboard.
func (h *ReservaHandler) Stats(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	stats, err := h.Svc.ReservaStats(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "stats failed"})
	}
	return c.JSON(http.StatusOK, stats)
}

func pathID(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}
