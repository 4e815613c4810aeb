package model

import "time"

// Reserva is the system of record for a confirmed booking, mirroring the
// `reservas` table. Guest names are denormalized into a single string and
// chosen services are stored as a comma-joined list, matching how the
// conversation flow accumulates them.
//
// NumeroWhatsapp doubles as the correlation key into the conversation-state
// cache: writes to a reserva must invalidate the cached state of the matching
// WhatsApp user.
type Reserva struct {
	ID                    int64     // reservas.id
	NumeroWhatsapp        string    // reservas.numero_whatsapp
	NombresHuespedes      string    // reservas.nombres_huespedes
	CantidadHuespedes     int       // reservas.cantidad_huespedes (1-20)
	Domo                  string    // reservas.domo
	FechaEntrada          time.Time // reservas.fecha_entrada (date only)
	FechaSalida           time.Time // reservas.fecha_salida (date only)
	ServicioElegido       string    // reservas.servicio_elegido (comma-joined)
	Adicciones            string    // reservas.adicciones
	NumeroContacto        string    // reservas.numero_contacto
	EmailContacto         string    // reservas.email_contacto
	MetodoPago            string    // reservas.metodo_pago
	MontoTotal            int64     // reservas.monto_total (COP)
	ComentariosEspeciales string    // reservas.comentarios_especiales
	FechaCreacion         time.Time // reservas.fecha_creacion (server-assigned)
}

// ReservaPatch carries a field-level update to a reserva. Nil fields are left
// untouched so callers can distinguish "not provided" from "set to zero".
type ReservaPatch struct {
	NumeroWhatsapp        *string
	NombresHuespedes      *string
	CantidadHuespedes     *int
	Domo                  *string
	FechaEntrada          *time.Time
	FechaSalida           *time.Time
	ServicioElegido       *string
	Adicciones            *string
	NumeroContacto        *string
	EmailContacto         *string
	MetodoPago            *string
	MontoTotal            *int64
	ComentariosEspeciales *string
}
