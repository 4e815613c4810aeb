package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/glampingbrillodeluna/reserva-bot/internal/model"
	"github.com/glampingbrillodeluna/reserva-bot/internal/repository"
	"github.com/glampingbrillodeluna/reserva-bot/internal/utils"
)

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func validateUsuario(nombre, email, rol string) error {
	var problems []string
	if strings.TrimSpace(nombre) == "" {
		problems = append(problems, "el nombre es obligatorio")
	}
	if !emailRe.MatchString(strings.ToLower(strings.TrimSpace(email))) {
		problems = append(problems, "el email no es válido")
	}
	if rol != model.RolCompleto && rol != model.RolLimitado {
		problems = append(problems, "el rol debe ser 'completo' o 'limitado'")
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// CreateUsuario creates an operator account with an auto-generated
// temporary password and returns both. The plaintext temp password is
// only ever surfaced here and on RegeneratePassword; it stays valid as a
// login fallback until the operator changes it. User writes flush the
// whole conversation cache since operators act on guests' behalf.
func (s *DatabaseService) CreateUsuario(ctx context.Context, nombre, email, rol, creadoPor string) (*model.Usuario, string, error) {
	if err := validateUsuario(nombre, email, rol); err != nil {
		return nil, "", err
	}
	// The unique index still backstops a racing insert.
	taken, err := s.usuarios.EmailTaken(ctx, email, 0)
	if err != nil {
		return nil, "", err
	}
	if taken {
		return nil, "", repository.ErrEmailExists
	}
	temp, err := utils.GenerateTempPassword()
	if err != nil {
		return nil, "", err
	}
	hash, err := utils.HashPassword(temp, s.bcryptCost)
	if err != nil {
		return nil, "", err
	}
	u := &model.Usuario{
		Nombre:       strings.TrimSpace(nombre),
		Email:        email,
		PasswordHash: hash,
		Rol:          rol,
		CreadoPor:    creadoPor,
		Activo:       true,
		TempPassword: temp,
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, "", err
	}
	if err := s.usuarios.CreateTx(ctx, tx, u); err != nil {
		_ = tx.Rollback()
		return nil, "", err
	}
	if err := tx.Commit(); err != nil {
		return nil, "", err
	}

	if s.cache != nil {
		s.cache.InvalidateAll()
	}
	log.Info().Str("component", "database_service").Int64("usuario_id", u.ID).
		Str("rol", u.Rol).Msg("usuario created")
	return u, temp, nil
}

// GetUsuario fetches one operator account.
func (s *DatabaseService) GetUsuario(ctx context.Context, id int64) (*model.Usuario, error) {
	return s.usuarios.GetByID(ctx, id)
}

// ListUsuarios returns every operator account, newest first.
func (s *DatabaseService) ListUsuarios(ctx context.Context) ([]*model.Usuario, error) {
	return s.usuarios.ListAll(ctx)
}

// UpdateUsuario rewrites an operator's profile fields.
func (s *DatabaseService) UpdateUsuario(ctx context.Context, u *model.Usuario) (*model.Usuario, error) {
	if err := validateUsuario(u.Nombre, u.Email, u.Rol); err != nil {
		return nil, err
	}
	taken, err := s.usuarios.EmailTaken(ctx, u.Email, u.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, repository.ErrEmailExists
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	if err := s.usuarios.UpdateTx(ctx, tx, u); err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.InvalidateAll()
	}
	return s.usuarios.GetByID(ctx, u.ID)
}

// DeleteUsuario removes an operator account.
func (s *DatabaseService) DeleteUsuario(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := s.usuarios.DeleteTx(ctx, tx, id); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	if s.cache != nil {
		s.cache.InvalidateAll()
	}
	log.Info().Str("component", "database_service").Int64("usuario_id", id).Msg("usuario deleted")
	return nil
}

// Authenticate verifies an operator's credentials. Every failure mode
// collapses into ErrInvalidCredentials: unknown email, inactive account,
// and wrong password are indistinguishable to the caller. A password
// matches either against the bcrypt hash or, while the account still
// carries its temporary password, against that plaintext.
func (s *DatabaseService) Authenticate(ctx context.Context, email, password string) (*model.Usuario, error) {
	u, err := s.usuarios.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !u.Activo {
		return nil, ErrInvalidCredentials
	}
	ok := utils.VerifyPassword(u.PasswordHash, password)
	if !ok && !u.PasswordChanged && u.TempPassword != "" && u.TempPassword == password {
		ok = true
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	// Best effort; a failed touch must not block the login.
	if err := s.usuarios.TouchAccess(ctx, u.ID, s.now().UTC()); err != nil {
		log.Warn().Err(err).Str("component", "database_service").
			Int64("usuario_id", u.ID).Msg("touch ultimo_acceso failed")
	}
	return u, nil
}

// ChangePassword rotates an operator's own password and disables the
// temporary-password fallback.
func (s *DatabaseService) ChangePassword(ctx context.Context, id int64, current, next string) error {
	u, err := s.usuarios.GetByID(ctx, id)
	if err != nil {
		return err
	}
	ok := utils.VerifyPassword(u.PasswordHash, current)
	if !ok && !u.PasswordChanged && u.TempPassword != "" && u.TempPassword == current {
		ok = true
	}
	if !ok {
		return ErrInvalidCredentials
	}
	if len(next) < 8 {
		return &ValidationError{Problems: []string{"la nueva contraseña debe tener al menos 8 caracteres"}}
	}
	hash, err := utils.HashPassword(next, s.bcryptCost)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := s.usuarios.UpdatePasswordTx(ctx, tx, id, hash); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// RegeneratePassword installs a fresh temporary password on an account,
// typically after an operator locked themselves out, and returns the new
// plaintext for out-of-band delivery.
func (s *DatabaseService) RegeneratePassword(ctx context.Context, id int64) (string, error) {
	temp, err := utils.GenerateTempPassword()
	if err != nil {
		return "", err
	}
	hash, err := utils.HashPassword(temp, s.bcryptCost)
	if err != nil {
		return "", err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	if err := s.usuarios.ResetPasswordTx(ctx, tx, id, hash, temp); err != nil {
		_ = tx.Rollback()
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	log.Info().Str("component", "database_service").Int64("usuario_id", id).Msg("temporary password regenerated")
	return temp, nil
}
