// Package flow implements the reservation collection state machine. The
// engine advances a user's draft booking one message at a time, delegating
// field interpretation to the validate package and persistence to the
// database service. It never throws past its boundary: every outcome is a
// reply string plus a mutation of the caller-owned state.
package flow

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/glampingbrillodeluna/reserva-bot/internal/model"
	"github.com/glampingbrillodeluna/reserva-bot/internal/state"
	"github.com/glampingbrillodeluna/reserva-bot/internal/validate"
)

// Persister commits a completed draft. Implemented by the database service.
type Persister interface {
	CreateReserva(ctx context.Context, r *model.Reserva) (int64, error)
}

// AvailabilityChecker answers whether any dome is free for a date range.
// ErrAvailabilityPending signals that the answer will arrive later; the
// engine then parks the conversation until ResolveAvailability is called.
type AvailabilityChecker interface {
	Check(ctx context.Context, entrada, salida time.Time) (bool, error)
}

// ErrAvailabilityPending is returned by an AvailabilityChecker whose answer
// is produced asynchronously.
var ErrAvailabilityPending = errors.New("availability check pending")

// Engine drives the reservation flow. Now is injectable so date-window
// validation is testable; it defaults to time.Now.
type Engine struct {
	DB    Persister
	Avail AvailabilityChecker // optional
	Now   func() time.Time
}

// NewEngine builds an engine bound to a persister.
func NewEngine(db Persister) *Engine {
	return &Engine{DB: db, Now: time.Now}
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Start puts the user into the reservation flow and returns the opening
// prompt. Any previous draft is discarded.
func (e *Engine) Start(s *state.State) string {
	s.Reset()
	s.CurrentFlow = state.FlowReservation
	s.Step = state.StepGuestNames
	return promptGuests
}

var cancelKeywords = []string{
	"cancelar", "cancela", "salir", "no quiero", "ya no quiero",
	"olvidalo", "olvídalo", "dejalo", "déjalo", "mejor no", "no gracias",
	"menu", "menú", "volver", "empezar de nuevo",
}

func isCancellation(lower string) bool {
	for _, kw := range cancelKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

var affirmatives = map[string]bool{
	"si": true, "sí": true, "yes": true, "confirmo": true, "confirmar": true,
	"conforme": true, "ok": true, "vale": true, "correcto": true, "dale": true,
}

var negatives = map[string]bool{
	"no": true, "nop": true, "nope": true, "incorrecto": true, "mal": true,
	"cambiar": true, "corregir": true, "modificar": true,
}

// editTargets maps field keywords a guest may use at CONFIRM to the step
// that owns the field. The slice is walked in order so multi-keyword input
// resolves deterministically.
var editTargets = []struct {
	keyword string
	step    state.Step
}{
	{"nombre", state.StepGuestNames},
	{"huesped", state.StepGuestNames},
	{"huésped", state.StepGuestNames},
	{"fecha", state.StepEntryDate},
	{"entrada", state.StepEntryDate},
	{"salida", state.StepEntryDate},
	{"domo", state.StepDome},
	{"telefono", state.StepContactPhone},
	{"teléfono", state.StepContactPhone},
	{"celular", state.StepContactPhone},
	{"correo", state.StepContactEmail},
	{"email", state.StepContactEmail},
	{"pago", state.StepPayment},
	{"metodo", state.StepPayment},
	{"método", state.StepPayment},
	{"servicio", state.StepExtras},
	{"adicional", state.StepExtras},
	{"comentario", state.StepExtras},
}

func stepPrompt(step state.Step) string {
	switch step {
	case state.StepGuestNames:
		return promptGuests
	case state.StepEntryDate:
		return promptEntryDate
	case state.StepExitDate:
		return promptExitDate
	case state.StepDome:
		return promptDome
	case state.StepContactPhone:
		return promptPhone
	case state.StepContactEmail:
		return promptEmail
	case state.StepPayment:
		return promptPayment
	default:
		return promptGuests
	}
}

// Advance consumes one message from a user inside the reservation flow.
// Validation failure leaves the step unchanged and re-prompts; a
// cancellation keyword abandons the draft from any step.
func (e *Engine) Advance(ctx context.Context, s *state.State, input string) string {
	input = strings.TrimSpace(input)
	lower := strings.ToLower(input)

	if isCancellation(lower) {
		s.Reset()
		return promptCancelled
	}

	if s.WaitingForAvailability {
		return promptAvailabilityHold
	}

	switch s.Step {
	case state.StepGuestNames:
		names, msg, ok := validate.GuestNames(input)
		if !ok {
			return retryMessage(msg)
		}
		s.Draft.NombresHuespedes = names
		s.Draft.CantidadHuespedes = len(names)
		s.Step = state.StepEntryDate
		return promptEntryDate

	case state.StepEntryDate:
		d, msg, ok := validate.ParseDate(input, e.now())
		if !ok {
			return retryMessage(msg)
		}
		s.Draft.FechaEntrada = &d
		s.Step = state.StepExitDate
		return promptExitDate

	case state.StepExitDate:
		d, msg, ok := validate.ParseDate(input, e.now())
		if !ok {
			return retryMessage(msg)
		}
		if msg, ok := validate.DateRange(*s.Draft.FechaEntrada, d); !ok {
			return retryMessage(msg)
		}
		s.Draft.FechaSalida = &d
		return e.checkAvailability(ctx, s)

	case state.StepDome:
		domo, msg, ok := validate.Domo(input)
		if !ok {
			return retryMessage(msg)
		}
		s.Draft.Domo = domo
		s.Step = state.StepContactPhone
		return promptPhone

	case state.StepContactPhone:
		phone, msg, ok := validate.Phone(input)
		if !ok {
			return retryMessage(msg)
		}
		s.Draft.NumeroContacto = phone
		s.Step = state.StepContactEmail
		return promptEmail

	case state.StepContactEmail:
		// Phone and email are validated together here so any lingering
		// contact problem is reported in one message, not two turns.
		phone, email, errs := validate.ContactInfo(s.Draft.NumeroContacto, input)
		if len(errs) > 0 {
			return retryMessage(strings.Join(errs, "\n"))
		}
		s.Draft.NumeroContacto = phone
		s.Draft.EmailContacto = email
		s.Step = state.StepPayment
		return promptPayment

	case state.StepPayment:
		metodo, msg, ok := validate.PaymentMethod(input)
		if !ok {
			return retryMessage(msg)
		}
		s.Draft.MetodoPago = metodo
		e.reprice(s)
		s.Step = state.StepExtras
		return promptExtras(&s.Draft)

	case state.StepExtras:
		return e.advanceExtras(ctx, s, input, lower)

	case state.StepConfirm:
		return e.advanceConfirm(ctx, s, lower)
	}

	// A reservation flow with no recognizable step is corrupt; start over.
	log.Warn().Str("component", "flow_engine").Str("user_id", s.UserID).
		Int("step", int(s.Step)).Msg("unknown step, resetting flow")
	s.Reset()
	return promptCancelled
}

// advanceExtras handles the extras step. The prompt already shows the full
// summary, so a direct affirmative here is the explicit confirmation and
// persists immediately; a skip keyword moves to the confirmation question;
// anything else is stored as extras.
func (e *Engine) advanceExtras(ctx context.Context, s *state.State, input, lower string) string {
	if affirmatives[lower] {
		return e.persist(ctx, s)
	}
	if lower == "no" || lower == "ninguno" || lower == "ninguna" || lower == "nada" {
		s.Step = state.StepConfirm
		return promptConfirm(&s.Draft)
	}
	extras, _, _ := validate.AdditionalServices(input)
	s.Draft.Adicciones = extras
	if servicio, _, ok := validate.Service(input); ok {
		s.Draft.ServicioElegido = servicio
	}
	comentarios, _, _ := validate.SpecialComments(input)
	s.Draft.ComentariosEspeciales = comentarios
	e.reprice(s)
	s.Step = state.StepConfirm
	return promptConfirm(&s.Draft)
}

func (e *Engine) advanceConfirm(ctx context.Context, s *state.State, lower string) string {
	if affirmatives[lower] {
		return e.persist(ctx, s)
	}
	// Field keywords win over generic negatives so "cambiar fechas" jumps
	// to the date step instead of restarting everything.
	for _, t := range editTargets {
		if strings.Contains(lower, t.keyword) {
			s.Step = t.step
			return stepPrompt(t.step)
		}
	}
	if negatives[lower] {
		s.Step = state.StepGuestNames
		return promptRestart
	}
	return promptConfirmRetry
}

// checkAvailability gates advancement past the date range. Without a
// checker the flow continues directly to dome selection.
func (e *Engine) checkAvailability(ctx context.Context, s *state.State) string {
	if e.Avail == nil {
		s.Step = state.StepDome
		return promptDome
	}
	available, err := e.Avail.Check(ctx, *s.Draft.FechaEntrada, *s.Draft.FechaSalida)
	if errors.Is(err, ErrAvailabilityPending) {
		s.WaitingForAvailability = true
		return promptAvailabilityHold
	}
	if err != nil {
		// Availability is advisory; on checker failure the flow continues
		// and the team confirms manually.
		log.Warn().Err(err).Str("component", "flow_engine").Str("user_id", s.UserID).
			Msg("availability check failed")
		available = true
	}
	return e.applyAvailability(s, available)
}

// ResolveAvailability delivers the result of a pending availability check
// and returns the message to push to the user. It is a no-op unless the
// conversation is actually parked on the gate.
func (e *Engine) ResolveAvailability(s *state.State, available bool) string {
	if !s.WaitingForAvailability {
		return ""
	}
	s.WaitingForAvailability = false
	return e.applyAvailability(s, available)
}

func (e *Engine) applyAvailability(s *state.State, available bool) string {
	s.WaitingForAvailability = false
	if !available {
		s.Draft.FechaEntrada = nil
		s.Draft.FechaSalida = nil
		s.Step = state.StepEntryDate
		return promptUnavailable
	}
	s.Step = state.StepDome
	return promptDome
}

func (e *Engine) reprice(s *state.State) {
	d := &s.Draft
	if d.FechaEntrada == nil || d.FechaSalida == nil || d.Domo == "" {
		return
	}
	d.MontoTotal = Quote(d.Domo, d.CantidadHuespedes, *d.FechaEntrada, *d.FechaSalida, d.Adicciones)
}

// persist commits the draft. On success the flow resets to none; on failure
// the step is left untouched so the user can retry with another
// affirmative.
func (e *Engine) persist(ctx context.Context, s *state.State) string {
	d := &s.Draft
	if d.FechaEntrada == nil || d.FechaSalida == nil {
		s.Reset()
		return promptCancelled
	}
	r := &model.Reserva{
		NumeroWhatsapp:        s.UserID,
		NombresHuespedes:      strings.Join(d.NombresHuespedes, ", "),
		CantidadHuespedes:     d.CantidadHuespedes,
		Domo:                  d.Domo,
		FechaEntrada:          *d.FechaEntrada,
		FechaSalida:           *d.FechaSalida,
		ServicioElegido:       d.ServicioElegido,
		Adicciones:            d.Adicciones,
		NumeroContacto:        d.NumeroContacto,
		EmailContacto:         d.EmailContacto,
		MetodoPago:            d.MetodoPago,
		MontoTotal:            d.MontoTotal,
		ComentariosEspeciales: d.ComentariosEspeciales,
	}
	id, err := e.DB.CreateReserva(ctx, r)
	if err != nil {
		log.Error().Err(err).Str("component", "flow_engine").Str("user_id", s.UserID).
			Msg("reservation persist failed")
		return promptPersistError
	}
	draft := s.Draft
	s.Reset()
	return confirmationMessage(id, &draft)
}
