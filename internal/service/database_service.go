// Package service holds the business layer: transactional persistence
// with cache invalidation, and the conversational front door that feeds
// it.
package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/glampingbrillodeluna/reserva-bot/internal/model"
	"github.com/glampingbrillodeluna/reserva-bot/internal/queue"
	"github.com/glampingbrillodeluna/reserva-bot/internal/repository"
)

// ErrInvalidCredentials is returned for every authentication failure,
// whether the account is unknown, inactive, or the password is wrong.
// Callers must not be able to tell these apart.
var ErrInvalidCredentials = errors.New("credenciales inválidas")

// ValidationError reports input problems found before any transaction is
// opened. The messages are user-facing Spanish.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string { return strings.Join(e.Problems, "; ") }

// CacheInvalidator evicts conversation state after a committed write.
// Implemented by state.Store.
type CacheInvalidator interface {
	Invalidate(userID string)
	InvalidateAll()
}

// EventPublisher emits domain events after a committed write. Implemented
// by queue.Publisher.
type EventPublisher interface {
	PublishReservaConfirmed(ctx context.Context, ev queue.ReservaConfirmedEvent) error
}

// DatabaseService wraps all writes to reservas and usuarios in explicit
// transactions and keeps the conversation-state cache coherent: cache
// invalidation happens strictly after commit, never inside the
// transaction, so a rollback leaves the cache untouched.
type DatabaseService struct {
	db       *sql.DB
	reservas *repository.ReservaRepo
	usuarios *repository.UsuarioRepo

	cache  CacheInvalidator // optional
	events EventPublisher   // optional

	bcryptCost int
	now        func() time.Time
}

// NewDatabaseService wires the service. cache and events may be nil.
func NewDatabaseService(db *sql.DB, reservas *repository.ReservaRepo, usuarios *repository.UsuarioRepo,
	cache CacheInvalidator, events EventPublisher, bcryptCost int) *DatabaseService {
	return &DatabaseService{
		db:         db,
		reservas:   reservas,
		usuarios:   usuarios,
		cache:      cache,
		events:     events,
		bcryptCost: bcryptCost,
		now:        time.Now,
	}
}

func (s *DatabaseService) invalidate(userID string) {
	if s.cache != nil && userID != "" {
		s.cache.Invalidate(userID)
	}
}

func validateReserva(r *model.Reserva) error {
	var problems []string
	if strings.TrimSpace(r.NumeroWhatsapp) == "" {
		problems = append(problems, "el número de WhatsApp es obligatorio")
	}
	if strings.TrimSpace(r.NombresHuespedes) == "" {
		problems = append(problems, "los nombres de los huéspedes son obligatorios")
	}
	if r.CantidadHuespedes < 1 || r.CantidadHuespedes > 20 {
		problems = append(problems, "la cantidad de huéspedes debe estar entre 1 y 20")
	}
	if strings.TrimSpace(r.Domo) == "" {
		problems = append(problems, "el domo es obligatorio")
	}
	if r.FechaEntrada.IsZero() || r.FechaSalida.IsZero() {
		problems = append(problems, "las fechas de entrada y salida son obligatorias")
	} else if !r.FechaSalida.After(r.FechaEntrada) {
		problems = append(problems, "la fecha de salida debe ser posterior a la de entrada")
	}
	if strings.TrimSpace(r.NumeroContacto) == "" {
		problems = append(problems, "el número de contacto es obligatorio")
	}
	if strings.TrimSpace(r.EmailContacto) == "" {
		problems = append(problems, "el email de contacto es obligatorio")
	} else if !emailRe.MatchString(strings.ToLower(strings.TrimSpace(r.EmailContacto))) {
		problems = append(problems, "el email de contacto no es válido")
	}
	if strings.TrimSpace(r.MetodoPago) == "" {
		problems = append(problems, "el método de pago es obligatorio")
	}
	if r.MontoTotal < 0 {
		problems = append(problems, "el monto total no puede ser negativo")
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// CreateReserva validates and persists a reservation. Validation happens
// before the transaction is opened so invalid input never touches the
// database. After commit the conversation state of the booking WhatsApp
// number is invalidated and a reserva.confirmed event is published best
// effort.
func (s *DatabaseService) CreateReserva(ctx context.Context, r *model.Reserva) (int64, error) {
	if err := validateReserva(r); err != nil {
		return 0, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	if err := s.reservas.CreateTx(ctx, tx, r); err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}

	s.invalidate(r.NumeroWhatsapp)
	s.publishConfirmed(ctx, r)

	log.Info().Str("component", "database_service").Int64("reserva_id", r.ID).
		Str("domo", r.Domo).Int64("monto_total", r.MontoTotal).Msg("reserva created")
	return r.ID, nil
}

func (s *DatabaseService) publishConfirmed(ctx context.Context, r *model.Reserva) {
	if s.events == nil {
		return
	}
	ev := queue.ReservaConfirmedEvent{
		ReservaID:         r.ID,
		NumeroWhatsapp:    r.NumeroWhatsapp,
		NombresHuespedes:  r.NombresHuespedes,
		CantidadHuespedes: r.CantidadHuespedes,
		Domo:              r.Domo,
		FechaEntrada:      r.FechaEntrada.Format("2006-01-02"),
		FechaSalida:       r.FechaSalida.Format("2006-01-02"),
		MontoTotal:        r.MontoTotal,
		ConfirmedAt:       s.now().UTC().Format(time.RFC3339),
	}
	if err := s.events.PublishReservaConfirmed(ctx, ev); err != nil {
		log.Warn().Err(err).Str("component", "database_service").
			Int64("reserva_id", r.ID).Msg("event publish failed, booking unaffected")
	}
}

// GetReserva fetches one reservation.
func (s *DatabaseService) GetReserva(ctx context.Context, id int64) (*model.Reserva, error) {
	return s.reservas.GetByID(ctx, id)
}

// ListReservas returns all reservations, newest first.
func (s *DatabaseService) ListReservas(ctx context.Context) ([]*model.Reserva, error) {
	return s.reservas.ListAll(ctx)
}

// ListReservasByPhone returns the reservations of one WhatsApp number.
func (s *DatabaseService) ListReservasByPhone(ctx context.Context, numeroWhatsapp string) ([]*model.Reserva, error) {
	return s.reservas.ListByPhone(ctx, numeroWhatsapp)
}

// UpdateReserva applies a field-level patch and returns the updated row.
// When the patch moves the reservation to a different WhatsApp number,
// the conversation state of both the old and the new number is
// invalidated after commit.
func (s *DatabaseService) UpdateReserva(ctx context.Context, id int64, patch *model.ReservaPatch) (*model.Reserva, error) {
	if err := validateReservaPatch(patch); err != nil {
		return nil, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	before, err := s.reservas.GetByIDTx(ctx, tx, id)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := s.reservas.UpdateTx(ctx, tx, id, patch); err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	after, err := s.reservas.GetByIDTx(ctx, tx, id)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.invalidate(before.NumeroWhatsapp)
	if after.NumeroWhatsapp != before.NumeroWhatsapp {
		s.invalidate(after.NumeroWhatsapp)
	}
	log.Info().Str("component", "database_service").Int64("reserva_id", id).Msg("reserva updated")
	return after, nil
}

func validateReservaPatch(patch *model.ReservaPatch) error {
	var problems []string
	if patch.NumeroWhatsapp != nil && strings.TrimSpace(*patch.NumeroWhatsapp) == "" {
		problems = append(problems, "el número de WhatsApp es obligatorio")
	}
	if patch.CantidadHuespedes != nil && (*patch.CantidadHuespedes < 1 || *patch.CantidadHuespedes > 20) {
		problems = append(problems, "la cantidad de huéspedes debe estar entre 1 y 20")
	}
	if patch.FechaEntrada != nil && patch.FechaSalida != nil && !patch.FechaSalida.After(*patch.FechaEntrada) {
		problems = append(problems, "la fecha de salida debe ser posterior a la de entrada")
	}
	if patch.EmailContacto != nil && !emailRe.MatchString(strings.ToLower(strings.TrimSpace(*patch.EmailContacto))) {
		problems = append(problems, "el email de contacto no es válido")
	}
	if patch.MetodoPago != nil && strings.TrimSpace(*patch.MetodoPago) == "" {
		problems = append(problems, "el método de pago es obligatorio")
	}
	if patch.MontoTotal != nil && *patch.MontoTotal < 0 {
		problems = append(problems, "el monto total no puede ser negativo")
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// DeleteReserva removes a reservation and invalidates the conversation
// state of its WhatsApp number after commit.
func (s *DatabaseService) DeleteReserva(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	before, err := s.reservas.GetByIDTx(ctx, tx, id)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := s.reservas.DeleteTx(ctx, tx, id); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.invalidate(before.NumeroWhatsapp)
	log.Info().Str("component", "database_service").Int64("reserva_id", id).Msg("reserva deleted")
	return nil
}

// Stats summarizes reservation volume for the dashboard.
type Stats struct {
	Total     int64            `json:"total"`
	ThisMonth int64            `json:"this_month"`
	PorDomo   map[string]int64 `json:"por_domo"`
}

// ReservaStats computes aggregate counts.
func (s *DatabaseService) ReservaStats(ctx context.Context) (*Stats, error) {
	total, err := s.reservas.Count(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	month, err := s.reservas.CountMonth(ctx, now.Year(), int(now.Month()))
	if err != nil {
		return nil, err
	}
	porDomo, err := s.reservas.CountByDomo(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{Total: total, ThisMonth: month, PorDomo: porDomo}, nil
}

// domeCount is how many domes exist on site; a date range with that many
// overlapping stays is fully booked.
const domeCount = 4

// Check reports whether any dome is free for the date range. It
// satisfies the flow engine's availability gate.
func (s *DatabaseService) Check(ctx context.Context, entrada, salida time.Time) (bool, error) {
	n, err := s.reservas.CountOverlapping(ctx, entrada, salida)
	if err != nil {
		return false, err
	}
	return n < domeCount, nil
}

// Health reports the state of the service's dependencies. It never
// returns an error; a degraded dependency is reported as such so the
// endpoint stays useful exactly when things are broken.
func (s *DatabaseService) Health(ctx context.Context) map[string]string {
	out := map[string]string{"database": "ok"}
	if err := s.db.PingContext(ctx); err != nil {
		out["database"] = "degraded: " + err.Error()
	}
	return out
}
