package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/glampingbrillodeluna/reserva-bot/internal/model"
)

// UsuarioRepo provides CRUD operations for the usuarios table. Like
// ReservaRepo, write operations run inside a caller-owned transaction.
type UsuarioRepo struct {
	db *sql.DB
}

// NewUsuarioRepo returns a UsuarioRepo bound to the given database.
func NewUsuarioRepo(db *sql.DB) *UsuarioRepo { return &UsuarioRepo{db: db} }

const usuarioColumns = `id, nombre, email, password_hash, rol, fecha_creacion,
	creado_por, activo, ultimo_acceso, temp_password, password_changed`

func scanUsuario(row interface{ Scan(...any) error }) (*model.Usuario, error) {
	var u model.Usuario
	var ultimoAcceso sql.NullTime
	var tempPassword sql.NullString
	err := row.Scan(
		&u.ID, &u.Nombre, &u.Email, &u.PasswordHash, &u.Rol, &u.FechaCreacion,
		&u.CreadoPor, &u.Activo, &ultimoAcceso, &tempPassword, &u.PasswordChanged,
	)
	if err != nil {
		return nil, err
	}
	if ultimoAcceso.Valid {
		t := ultimoAcceso.Time
		u.UltimoAcceso = &t
	}
	u.TempPassword = tempPassword.String
	return &u, nil
}

func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}

// CreateTx inserts a usuario within an open transaction, populating the
// generated ID. Email is normalized to lowercase. Returns ErrEmailExists
// on a unique-index collision.
func (r *UsuarioRepo) CreateTx(ctx context.Context, tx *sql.Tx, u *model.Usuario) error {
	const q = `INSERT INTO usuarios (nombre, email, password_hash, rol, creado_por,
		activo, temp_password, password_changed) VALUES (?,?,?,?,?,?,?,?)`
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	result, err := tx.ExecContext(ctx, q,
		u.Nombre, u.Email, u.PasswordHash, u.Rol, u.CreadoPor,
		u.Activo, u.TempPassword, u.PasswordChanged)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrEmailExists
		}
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = id
	return nil
}

// GetByEmail fetches a usuario by normalized email. Returns ErrNotFound
// when no row matches.
func (r *UsuarioRepo) GetByEmail(ctx context.Context, email string) (*model.Usuario, error) {
	const q = `SELECT ` + usuarioColumns + ` FROM usuarios WHERE email = ? LIMIT 1`
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanUsuario(r.db.QueryRowContext(ctx, q, email))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return u, err
}

// GetByID fetches a usuario by id. Returns ErrNotFound when no row
// matches.
func (r *UsuarioRepo) GetByID(ctx context.Context, id int64) (*model.Usuario, error) {
	const q = `SELECT ` + usuarioColumns + ` FROM usuarios WHERE id = ? LIMIT 1`
	u, err := scanUsuario(r.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return u, err
}

// EmailTaken reports whether another usuario already owns the email.
// excludeID skips one row so updates can keep their own address.
func (r *UsuarioRepo) EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error) {
	const q = `SELECT COUNT(*) FROM usuarios WHERE email = ? AND id <> ?`
	email = strings.ToLower(strings.TrimSpace(email))
	var n int64
	err := r.db.QueryRowContext(ctx, q, email, excludeID).Scan(&n)
	return n > 0, err
}

// ListAll returns every usuario, newest first. Password hashes and temp
// passwords are included; handlers are responsible for redacting them.
func (r *UsuarioRepo) ListAll(ctx context.Context) ([]*model.Usuario, error) {
	const q = `SELECT ` + usuarioColumns + ` FROM usuarios ORDER BY fecha_creacion DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*model.Usuario, 0)
	for rows.Next() {
		u, err := scanUsuario(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UpdateTx rewrites the mutable profile fields of one usuario inside an
// open transaction. Returns ErrEmailExists on a unique-index collision
// and ErrNotFound when the row does not exist.
func (r *UsuarioRepo) UpdateTx(ctx context.Context, tx *sql.Tx, u *model.Usuario) error {
	const q = `UPDATE usuarios SET nombre = ?, email = ?, rol = ?, activo = ? WHERE id = ?`
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	result, err := tx.ExecContext(ctx, q, u.Nombre, u.Email, u.Rol, u.Activo, u.ID)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrEmailExists
		}
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

// UpdatePasswordTx stores a new password hash and clears the temporary
// password so the plaintext fallback stops working.
func (r *UsuarioRepo) UpdatePasswordTx(ctx context.Context, tx *sql.Tx, id int64, hash string) error {
	const q = `UPDATE usuarios SET password_hash = ?, temp_password = '', password_changed = 1 WHERE id = ?`
	result, err := tx.ExecContext(ctx, q, hash, id)
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

// ResetPasswordTx installs a fresh temporary password alongside its hash,
// re-arming the plaintext fallback until the operator rotates it.
func (r *UsuarioRepo) ResetPasswordTx(ctx context.Context, tx *sql.Tx, id int64, hash, tempPassword string) error {
	const q = `UPDATE usuarios SET password_hash = ?, temp_password = ?, password_changed = 0 WHERE id = ?`
	result, err := tx.ExecContext(ctx, q, hash, tempPassword, id)
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

// DeleteTx removes one usuario inside an open transaction. Returns
// ErrNotFound when the row does not exist.
func (r *UsuarioRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id int64) error {
	result, err := tx.ExecContext(ctx, `DELETE FROM usuarios WHERE id = ?`, id)
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

// TouchAccess records a successful login. Best effort, outside any
// transaction.
func (r *UsuarioRepo) TouchAccess(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE usuarios SET ultimo_acceso = ? WHERE id = ?`, at, id)
	return err
}

// Count returns the total number of usuarios.
func (r *UsuarioRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM usuarios`).Scan(&n)
	return n, err
}
