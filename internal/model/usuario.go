package model

import "time"

// Operator roles. "completo" may manage users and delete records; "limitado"
// is read-mostly.
const (
	RolCompleto = "completo"
	RolLimitado = "limitado"
)

// Usuario is an operator/admin account as stored in the `usuarios` table.
// TempPassword holds the auto-generated plaintext password handed to a new
// operator; it stays valid as a login fallback until the operator changes it
// (PasswordChanged reports whether that happened).
type Usuario struct {
	ID              int64      // usuarios.id
	Nombre          string     // usuarios.nombre
	Email           string     // usuarios.email (unique)
	PasswordHash    string     // usuarios.password_hash
	Rol             string     // usuarios.rol
	FechaCreacion   time.Time  // usuarios.fecha_creacion
	CreadoPor       string     // usuarios.creado_por
	Activo          bool       // usuarios.activo
	UltimoAcceso    *time.Time // usuarios.ultimo_acceso (nullable)
	TempPassword    string     // usuarios.temp_password (empty once rotated)
	PasswordChanged bool       // usuarios.password_changed
}
