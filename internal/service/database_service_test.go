package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/glampingbrillodeluna/reserva-bot/internal/model"
	"github.com/glampingbrillodeluna/reserva-bot/internal/queue"
	"github.com/glampingbrillodeluna/reserva-bot/internal/repository"
	"github.com/glampingbrillodeluna/reserva-bot/internal/utils"
)

type fakeCache struct {
	invalidated []string
	flushedAll  int
}

func (f *fakeCache) Invalidate(userID string) { f.invalidated = append(f.invalidated, userID) }
func (f *fakeCache) InvalidateAll()           { f.flushedAll++ }

type fakeEvents struct {
	published []queue.ReservaConfirmedEvent
	err       error
}

func (f *fakeEvents) PublishReservaConfirmed(_ context.Context, ev queue.ReservaConfirmedEvent) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, ev)
	return nil
}

func newService(t *testing.T, cache *fakeCache, events *fakeEvents) (*DatabaseService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	svc := NewDatabaseService(db, repository.NewReservaRepo(db), repository.NewUsuarioRepo(db),
		cache, events, bcrypt.MinCost)
	svc.now = func() time.Time { return time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC) }
	return svc, mock
}

func validReserva() *model.Reserva {
	return &model.Reserva{
		NumeroWhatsapp:    "whatsapp:+573001234567",
		NombresHuespedes:  "Juan Pérez, María González",
		CantidadHuespedes: 2,
		Domo:              "Antares",
		FechaEntrada:      time.Date(2026, 12, 22, 0, 0, 0, 0, time.UTC),
		FechaSalida:       time.Date(2026, 12, 24, 0, 0, 0, 0, time.UTC),
		NumeroContacto:    "+573001234567",
		EmailContacto:     "juan@example.com",
		MetodoPago:        "Transferencia bancaria",
		MontoTotal:        1300000,
	}
}

var reservaCols = []string{
	"id", "numero_whatsapp", "nombres_huespedes", "cantidad_huespedes", "domo",
	"fecha_entrada", "fecha_salida", "servicio_elegido", "adicciones", "numero_contacto",
	"email_contacto", "metodo_pago", "monto_total", "comentarios_especiales", "fecha_creacion",
}

func reservaRow(id int64, phone string) *sqlmock.Rows {
	return sqlmock.NewRows(reservaCols).AddRow(
		id, phone, "Juan Pérez", 1, "Antares",
		time.Date(2026, 12, 22, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 12, 24, 0, 0, 0, 0, time.UTC),
		nil, nil, "+573001234567",
		"juan@example.com", "Efectivo", 1300000, nil,
		time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
	)
}

func TestCreateReservaCommitsThenInvalidatesAndPublishes(t *testing.T) {
	cache := &fakeCache{}
	events := &fakeEvents{}
	svc, mock := newService(t, cache, events)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO reservas").WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectCommit()

	id, err := svc.CreateReserva(context.Background(), validReserva())
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.Equal(t, []string{"whatsapp:+573001234567"}, cache.invalidated)
	require.Len(t, events.published, 1)
	assert.Equal(t, int64(7), events.published[0].ReservaID)
	assert.Equal(t, "2026-12-22", events.published[0].FechaEntrada)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReservaInvalidInputNeverOpensTransaction(t *testing.T) {
	cache := &fakeCache{}
	svc, mock := newService(t, cache, nil)

	r := validReserva()
	r.CantidadHuespedes = 0
	r.FechaSalida = r.FechaEntrada

	_, err := svc.CreateReserva(context.Background(), r)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Problems, 2)
	assert.Empty(t, cache.invalidated)
	// No Begin was expected; any database traffic fails the test here.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReservaRequiresContactAndPaymentFields(t *testing.T) {
	cache := &fakeCache{}
	svc, mock := newService(t, cache, nil)

	r := validReserva()
	r.EmailContacto = ""
	r.MetodoPago = ""

	_, err := svc.CreateReserva(context.Background(), r)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Problems, "el email de contacto es obligatorio")
	assert.Contains(t, verr.Problems, "el método de pago es obligatorio")
	assert.Empty(t, cache.invalidated)
	assert.NoError(t, mock.ExpectationsWereMet())

	r = validReserva()
	r.NumeroWhatsapp = ""
	r.EmailContacto = "sin-arroba"
	_, err = svc.CreateReserva(context.Background(), r)
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Problems, "el número de WhatsApp es obligatorio")
	assert.Contains(t, verr.Problems, "el email de contacto no es válido")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateReservaRejectsInvalidPatchFields(t *testing.T) {
	svc, mock := newService(t, nil, nil)

	badEmail := "sin-arroba"
	empty := ""
	_, err := svc.UpdateReserva(context.Background(), 3, &model.ReservaPatch{
		EmailContacto: &badEmail,
		MetodoPago:    &empty,
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Problems, 2)
	// No Begin was expected; the patch must be rejected before any traffic.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReservaRollsBackAndSkipsInvalidation(t *testing.T) {
	cache := &fakeCache{}
	events := &fakeEvents{}
	svc, mock := newService(t, cache, events)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO reservas").WillReturnError(errors.New("deadlock"))
	mock.ExpectRollback()

	_, err := svc.CreateReserva(context.Background(), validReserva())
	require.Error(t, err)
	assert.Empty(t, cache.invalidated)
	assert.Empty(t, events.published)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReservaPublishFailureDoesNotFailBooking(t *testing.T) {
	cache := &fakeCache{}
	events := &fakeEvents{err: errors.New("broker down")}
	svc, mock := newService(t, cache, events)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO reservas").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	_, err := svc.CreateReserva(context.Background(), validReserva())
	require.NoError(t, err)
	assert.Equal(t, []string{"whatsapp:+573001234567"}, cache.invalidated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateReservaInvalidatesOldAndNewPhone(t *testing.T) {
	cache := &fakeCache{}
	svc, mock := newService(t, cache, nil)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM reservas WHERE id").
		WillReturnRows(reservaRow(3, "whatsapp:+573001111111"))
	mock.ExpectExec("UPDATE reservas SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT (.+) FROM reservas WHERE id").
		WillReturnRows(reservaRow(3, "whatsapp:+573002222222"))
	mock.ExpectCommit()

	phone := "whatsapp:+573002222222"
	after, err := svc.UpdateReserva(context.Background(), 3, &model.ReservaPatch{NumeroWhatsapp: &phone})
	require.NoError(t, err)
	assert.Equal(t, phone, after.NumeroWhatsapp)
	assert.Equal(t, []string{"whatsapp:+573001111111", "whatsapp:+573002222222"}, cache.invalidated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateReservaNotFoundRollsBack(t *testing.T) {
	cache := &fakeCache{}
	svc, mock := newService(t, cache, nil)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM reservas WHERE id").
		WillReturnRows(sqlmock.NewRows(reservaCols))
	mock.ExpectRollback()

	domo := "Sirius"
	_, err := svc.UpdateReserva(context.Background(), 99, &model.ReservaPatch{Domo: &domo})
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Empty(t, cache.invalidated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteReservaInvalidatesPhoneAfterCommit(t *testing.T) {
	cache := &fakeCache{}
	svc, mock := newService(t, cache, nil)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM reservas WHERE id").
		WillReturnRows(reservaRow(5, "whatsapp:+573001234567"))
	mock.ExpectExec("DELETE FROM reservas WHERE id").
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, svc.DeleteReserva(context.Background(), 5))
	assert.Equal(t, []string{"whatsapp:+573001234567"}, cache.invalidated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var usuarioCols = []string{
	"id", "nombre", "email", "password_hash", "rol", "fecha_creacion",
	"creado_por", "activo", "ultimo_acceso", "temp_password", "password_changed",
}

func usuarioRow(t *testing.T, password string, activo, passwordChanged bool, tempPassword string) *sqlmock.Rows {
	t.Helper()
	hash, err := utils.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	return sqlmock.NewRows(usuarioCols).AddRow(
		1, "Laura", "laura@glamping.co", hash, model.RolCompleto,
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		"sistema", activo, nil, tempPassword, passwordChanged,
	)
}

func TestAuthenticateSuccessTouchesLastAccess(t *testing.T) {
	svc, mock := newService(t, nil, nil)

	mock.ExpectQuery("SELECT (.+) FROM usuarios WHERE email").
		WillReturnRows(usuarioRow(t, "secreta123", true, true, ""))
	mock.ExpectExec("UPDATE usuarios SET ultimo_acceso").
		WillReturnResult(sqlmock.NewResult(0, 1))

	u, err := svc.Authenticate(context.Background(), "laura@glamping.co", "secreta123")
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthenticateTempPasswordFallback(t *testing.T) {
	svc, mock := newService(t, nil, nil)

	// Hash belongs to a different password; only the temp plaintext matches.
	mock.ExpectQuery("SELECT (.+) FROM usuarios WHERE email").
		WillReturnRows(usuarioRow(t, "otra-clave", true, false, "temp1234"))
	mock.ExpectExec("UPDATE usuarios SET ultimo_acceso").
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := svc.Authenticate(context.Background(), "laura@glamping.co", "temp1234")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthenticateFailuresAreUniform(t *testing.T) {
	names := []string{"unknown email", "wrong password", "inactive account", "rotated temp password"}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			svc, mock := newService(t, nil, nil)
			q := mock.ExpectQuery("SELECT (.+) FROM usuarios WHERE email")
			switch name {
			case "unknown email":
				q.WillReturnRows(sqlmock.NewRows(usuarioCols))
			case "wrong password":
				q.WillReturnRows(usuarioRow(t, "secreta123", true, true, ""))
			case "inactive account":
				q.WillReturnRows(usuarioRow(t, "secreta123", false, true, ""))
			case "rotated temp password":
				// password_changed is set, so the old temp plaintext is dead.
				q.WillReturnRows(usuarioRow(t, "secreta123", true, true, "temp1234"))
			}
			_, err := svc.Authenticate(context.Background(), "laura@glamping.co", "temp1234")
			assert.ErrorIs(t, err, ErrInvalidCredentials)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCreateUsuarioReturnsTempPasswordAndFlushesCache(t *testing.T) {
	cache := &fakeCache{}
	svc, mock := newService(t, cache, nil)

	mock.ExpectQuery("SELECT COUNT(.+) FROM usuarios WHERE email").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO usuarios").WillReturnResult(sqlmock.NewResult(4, 1))
	mock.ExpectCommit()

	u, temp, err := svc.CreateUsuario(context.Background(), "Laura", "laura@glamping.co", model.RolLimitado, "admin@glamping.co")
	require.NoError(t, err)
	assert.Equal(t, int64(4), u.ID)
	assert.Len(t, temp, 8)
	assert.True(t, utils.VerifyPassword(u.PasswordHash, temp))
	assert.Equal(t, 1, cache.flushedAll)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUsuarioDuplicateEmailNeverOpensTransaction(t *testing.T) {
	svc, mock := newService(t, nil, nil)

	mock.ExpectQuery("SELECT COUNT(.+) FROM usuarios WHERE email").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))

	_, _, err := svc.CreateUsuario(context.Background(), "Laura", "laura@glamping.co", model.RolLimitado, "admin")
	assert.ErrorIs(t, err, repository.ErrEmailExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateUsuarioEmailTakenByAnotherAccount(t *testing.T) {
	svc, mock := newService(t, nil, nil)

	mock.ExpectQuery("SELECT COUNT(.+) FROM usuarios WHERE email").
		WithArgs("laura@glamping.co", int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))

	u := &model.Usuario{ID: 2, Nombre: "Laura", Email: "laura@glamping.co", Rol: model.RolLimitado}
	_, err := svc.UpdateUsuario(context.Background(), u)
	assert.ErrorIs(t, err, repository.ErrEmailExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUsuarioRejectsBadRole(t *testing.T) {
	svc, mock := newService(t, nil, nil)
	_, _, err := svc.CreateUsuario(context.Background(), "Laura", "laura@glamping.co", "superadmin", "admin")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthReportsDegradedDatabase(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	svc := NewDatabaseService(db, repository.NewReservaRepo(db), repository.NewUsuarioRepo(db),
		nil, nil, bcrypt.MinCost)

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	out := svc.Health(context.Background())
	assert.Contains(t, out["database"], "degraded")

	mock.ExpectPing()
	out = svc.Health(context.Background())
	assert.Equal(t, "ok", out["database"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckAvailability(t *testing.T) {
	svc, mock := newService(t, nil, nil)
	entrada := time.Date(2026, 12, 22, 0, 0, 0, 0, time.UTC)
	salida := time.Date(2026, 12, 24, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT COUNT(.+) FROM reservas WHERE fecha_entrada").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(3))
	ok, err := svc.Check(context.Background(), entrada, salida)
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectQuery("SELECT COUNT(.+) FROM reservas WHERE fecha_entrada").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(4))
	ok, err = svc.Check(context.Background(), entrada, salida)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
