package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/glampingbrillodeluna/reserva-bot/internal/model"
)

// ReservaRepo provides CRUD operations for the reservas table. Write
// operations take an explicit *sql.Tx so the service layer can group a
// write and its bookkeeping under one transaction; the caller commits or
// rolls back. Dates are stored as DATE columns and read back in UTC.
type ReservaRepo struct {
	db *sql.DB
}

// NewReservaRepo returns a ReservaRepo bound to the given database.
func NewReservaRepo(db *sql.DB) *ReservaRepo { return &ReservaRepo{db: db} }

const reservaColumns = `id, numero_whatsapp, nombres_huespedes, cantidad_huespedes, domo,
	fecha_entrada, fecha_salida, servicio_elegido, adicciones, numero_contacto,
	email_contacto, metodo_pago, monto_total, comentarios_especiales, fecha_creacion`

func scanReserva(row interface{ Scan(...any) error }) (*model.Reserva, error) {
	var r model.Reserva
	var servicio, adicciones, comentarios sql.NullString
	err := row.Scan(
		&r.ID, &r.NumeroWhatsapp, &r.NombresHuespedes, &r.CantidadHuespedes, &r.Domo,
		&r.FechaEntrada, &r.FechaSalida, &servicio, &adicciones, &r.NumeroContacto,
		&r.EmailContacto, &r.MetodoPago, &r.MontoTotal, &comentarios, &r.FechaCreacion,
	)
	if err != nil {
		return nil, err
	}
	r.ServicioElegido = servicio.String
	r.Adicciones = adicciones.String
	r.ComentariosEspeciales = comentarios.String
	return &r, nil
}

// CreateTx inserts a reserva within the scope of an existing transaction
// and populates the generated ID on the record. fecha_creacion is
// assigned by the database.
func (r *ReservaRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reserva) error {
	const q = `INSERT INTO reservas (numero_whatsapp, nombres_huespedes, cantidad_huespedes, domo,
		fecha_entrada, fecha_salida, servicio_elegido, adicciones, numero_contacto,
		email_contacto, metodo_pago, monto_total, comentarios_especiales)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`
	result, err := tx.ExecContext(ctx, q,
		res.NumeroWhatsapp, res.NombresHuespedes, res.CantidadHuespedes, res.Domo,
		res.FechaEntrada, res.FechaSalida, res.ServicioElegido, res.Adicciones,
		res.NumeroContacto, res.EmailContacto, res.MetodoPago, res.MontoTotal,
		res.ComentariosEspeciales)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = id
	return nil
}

// GetByID fetches one reserva. Returns ErrNotFound when no row matches.
func (r *ReservaRepo) GetByID(ctx context.Context, id int64) (*model.Reserva, error) {
	const q = `SELECT ` + reservaColumns + ` FROM reservas WHERE id = ?`
	res, err := scanReserva(r.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return res, err
}

// GetByIDTx is GetByID inside an open transaction, used to snapshot a row
// before updating or deleting it.
func (r *ReservaRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*model.Reserva, error) {
	const q = `SELECT ` + reservaColumns + ` FROM reservas WHERE id = ?`
	res, err := scanReserva(tx.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return res, err
}

// ListAll returns every reserva, newest first.
func (r *ReservaRepo) ListAll(ctx context.Context) ([]*model.Reserva, error) {
	const q = `SELECT ` + reservaColumns + ` FROM reservas ORDER BY fecha_creacion DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*model.Reserva, 0)
	for rows.Next() {
		res, err := scanReserva(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// ListByPhone returns the reservas correlated with one WhatsApp number,
// newest first.
func (r *ReservaRepo) ListByPhone(ctx context.Context, numeroWhatsapp string) ([]*model.Reserva, error) {
	const q = `SELECT ` + reservaColumns + ` FROM reservas WHERE numero_whatsapp = ? ORDER BY fecha_creacion DESC`
	rows, err := r.db.QueryContext(ctx, q, numeroWhatsapp)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*model.Reserva, 0)
	for rows.Next() {
		res, err := scanReserva(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// UpdateTx applies the non-nil fields of patch to one reserva inside an
// open transaction. Returns ErrNotFound when the row does not exist and
// nil without touching the database when the patch is empty.
func (r *ReservaRepo) UpdateTx(ctx context.Context, tx *sql.Tx, id int64, patch *model.ReservaPatch) error {
	sets := make([]string, 0, 13)
	args := make([]any, 0, 14)
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if patch.NumeroWhatsapp != nil {
		add("numero_whatsapp", *patch.NumeroWhatsapp)
	}
	if patch.NombresHuespedes != nil {
		add("nombres_huespedes", *patch.NombresHuespedes)
	}
	if patch.CantidadHuespedes != nil {
		add("cantidad_huespedes", *patch.CantidadHuespedes)
	}
	if patch.Domo != nil {
		add("domo", *patch.Domo)
	}
	if patch.FechaEntrada != nil {
		add("fecha_entrada", *patch.FechaEntrada)
	}
	if patch.FechaSalida != nil {
		add("fecha_salida", *patch.FechaSalida)
	}
	if patch.ServicioElegido != nil {
		add("servicio_elegido", *patch.ServicioElegido)
	}
	if patch.Adicciones != nil {
		add("adicciones", *patch.Adicciones)
	}
	if patch.NumeroContacto != nil {
		add("numero_contacto", *patch.NumeroContacto)
	}
	if patch.EmailContacto != nil {
		add("email_contacto", *patch.EmailContacto)
	}
	if patch.MetodoPago != nil {
		add("metodo_pago", *patch.MetodoPago)
	}
	if patch.MontoTotal != nil {
		add("monto_total", *patch.MontoTotal)
	}
	if patch.ComentariosEspeciales != nil {
		add("comentarios_especiales", *patch.ComentariosEspeciales)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	q := "UPDATE reservas SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	result, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTx removes one reserva inside an open transaction. Returns
// ErrNotFound when the row does not exist.
func (r *ReservaRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id int64) error {
	result, err := tx.ExecContext(ctx, `DELETE FROM reservas WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the total number of reservas.
func (r *ReservaRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reservas`).Scan(&n)
	return n, err
}

// CountMonth returns the number of reservas created in a given month.
func (r *ReservaRepo) CountMonth(ctx context.Context, year int, month int) (int64, error) {
	const q = `SELECT COUNT(*) FROM reservas WHERE YEAR(fecha_creacion) = ? AND MONTH(fecha_creacion) = ?`
	var n int64
	err := r.db.QueryRowContext(ctx, q, year, month).Scan(&n)
	return n, err
}

// CountByDomo returns reservation counts grouped per dome, highest first.
func (r *ReservaRepo) CountByDomo(ctx context.Context) (map[string]int64, error) {
	const q = `SELECT domo, COUNT(*) FROM reservas GROUP BY domo ORDER BY COUNT(*) DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]int64)
	for rows.Next() {
		var domo string
		var n int64
		if err := rows.Scan(&domo, &n); err != nil {
			return nil, err
		}
		out[domo] = n
	}
	return out, rows.Err()
}

// CountOverlapping returns how many reservas intersect the given date
// range. A stay intersects when it starts before the range ends and ends
// after the range starts.
func (r *ReservaRepo) CountOverlapping(ctx context.Context, entrada, salida time.Time) (int64, error) {
	const q = `SELECT COUNT(*) FROM reservas WHERE fecha_entrada < ? AND fecha_salida > ?`
	var n int64
	err := r.db.QueryRowContext(ctx, q, salida, entrada).Scan(&n)
	return n, err
}
