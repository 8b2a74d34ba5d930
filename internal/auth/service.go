package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/erickdv/guardia/internal/apperror"
)

// User-facing messages. The portal's audience is Spanish-speaking.
const (
	msgUserNotFound     = "Usuario no encontrado."
	msgAccountLocked    = "La cuenta está bloqueada debido a múltiples intentos fallidos. Contacta al administrador."
	msgAccountLockedNow = "Cuenta bloqueada por múltiples intentos fallidos."
	msgWrongPassword    = "Contraseña incorrecta. Intento %d de %d."
	msgLoginSuccess     = "Inicio de sesión exitoso."
	msgWeakPassword     = "La contraseña no cumple con los requisitos de seguridad."
	msgUserExists       = "El usuario ya existe."
	msgUserCreated      = "Usuario creado exitosamente."
)

// AuthService defines the business logic contract for authentication.
// Handlers call these methods -- they never touch the repository directly.
type AuthService interface {
	// Authenticate decides the outcome of one login attempt and mutates
	// the account's lockout state accordingly. A non-nil error is an
	// infrastructure failure; the attempt counter is never incremented
	// on that path.
	Authenticate(ctx context.Context, username, password string) (*LoginResult, error)

	// Register creates an account under the password policy. Existing
	// usernames are refused, never overwritten.
	Register(ctx context.Context, username, password string) (*RegisterResult, error)

	// UpdatePassword re-hashes and overwrites the credential of an
	// already-authenticated account. Lock state and counter are untouched.
	UpdatePassword(ctx context.Context, username, newPassword string) error

	// Unlock is the administrative reset: counter to zero, lock cleared.
	// The governor never calls this on its own.
	Unlock(ctx context.Context, username string) error

	// GetAccount returns the account record for profile views.
	GetAccount(ctx context.Context, username string) (*Account, error)
}

// authService implements AuthService. maxAttempts is injected so tests can
// exercise the lockout with small thresholds.
type authService struct {
	repo        AccountRepository
	hasher      PasswordHasher
	maxAttempts int
}

// NewService creates the attempt governor with the given dependencies.
func NewService(repo AccountRepository, hasher PasswordHasher, maxAttempts int) AuthService {
	return &authService{
		repo:        repo,
		hasher:      hasher,
		maxAttempts: maxAttempts,
	}
}

// Authenticate runs the governor's state machine for one attempt:
//
//  1. unknown username       -> NotFound, nothing touched
//  2. locked account         -> Locked, credential never checked
//  3. hash verify
//  4. match                  -> counter reset to 0, Success
//  5. mismatch               -> counter +1; at the threshold the account
//     locks (LockedNow), below it the attempt is Rejected with the
//     remaining-attempts message
//
// The counter update is read-then-write; concurrent failures on the same
// account may under-count, which the lockout policy tolerates.
func (s *authService) Authenticate(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperror.NewBadRequest("El nombre de usuario es obligatorio.")
	}

	account, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if apperror.IsNotFound(err) {
			return &LoginResult{Outcome: OutcomeNotFound, Message: msgUserNotFound}, nil
		}
		return nil, apperror.NewInternal(fmt.Errorf("finding account: %w", err))
	}

	// Locked accounts never get their credential checked: no hashing work
	// for an account that cannot log in, and the caller sees the distinct
	// lock state.
	if account.IsLocked {
		return &LoginResult{Outcome: OutcomeLocked, Message: msgAccountLocked}, nil
	}

	match, err := s.hasher.Verify(password, account.PasswordHash)
	if err != nil {
		// Hasher failure is not a wrong password. Surfacing it without
		// incrementing the counter keeps infrastructure trouble from
		// locking users out.
		return nil, apperror.NewInternal(fmt.Errorf("verifying password: %w", err))
	}

	if match {
		// Reset the counter; clearing the lock flag is idempotent here,
		// the account cannot be locked on this path.
		if err := s.repo.SaveAttemptState(ctx, username, 0, false); err != nil {
			return nil, apperror.NewInternal(fmt.Errorf("resetting attempts: %w", err))
		}

		account.LoginAttempts = 0
		account.IsLocked = false

		slog.Info("user logged in", slog.String("username", username))
		return &LoginResult{Outcome: OutcomeSuccess, Message: msgLoginSuccess, Account: account}, nil
	}

	attempts := account.LoginAttempts + 1

	if attempts >= s.maxAttempts {
		if err := s.repo.SaveAttemptState(ctx, username, attempts, true); err != nil {
			return nil, apperror.NewInternal(fmt.Errorf("locking account: %w", err))
		}

		slog.Warn("account locked after repeated failures",
			slog.String("username", username),
			slog.Int("attempts", attempts),
		)
		return &LoginResult{Outcome: OutcomeLockedNow, Message: msgAccountLockedNow}, nil
	}

	if err := s.repo.SaveAttemptState(ctx, username, attempts, false); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("recording failed attempt: %w", err))
	}

	return &LoginResult{
		Outcome: OutcomeRejected,
		Message: fmt.Sprintf(msgWrongPassword, attempts, s.maxAttempts),
	}, nil
}

// Register creates a new account: policy check, explicit duplicate check
// (no create-or-replace), then hash and persist with a zeroed counter.
func (s *authService) Register(ctx context.Context, username, password string) (*RegisterResult, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperror.NewBadRequest("El nombre de usuario es obligatorio.")
	}

	if !ValidPassword(password) {
		return &RegisterResult{Outcome: OutcomeWeakPassword, Message: msgWeakPassword}, nil
	}

	// Check for duplicates before doing expensive hashing.
	exists, err := s.repo.UsernameExists(ctx, username)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("checking username: %w", err))
	}
	if exists {
		return &RegisterResult{Outcome: OutcomeAlreadyExists, Message: msgUserExists}, nil
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	account := &Account{
		Username:      username,
		PasswordHash:  hash,
		LoginAttempts: 0,
		IsLocked:      false,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, account); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("creating account: %w", err))
	}

	slog.Info("user registered", slog.String("username", username))

	return &RegisterResult{Outcome: OutcomeCreated, Message: msgUserCreated}, nil
}

// UpdatePassword re-hashes and overwrites the stored digest. The same policy
// that guards registration applies here.
func (s *authService) UpdatePassword(ctx context.Context, username, newPassword string) error {
	if !ValidPassword(newPassword) {
		return apperror.NewValidation(msgWeakPassword)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	if err := s.repo.UpdatePasswordHash(ctx, username, hash); err != nil {
		return apperror.NewInternal(fmt.Errorf("updating password: %w", err))
	}

	slog.Info("password updated", slog.String("username", username))
	return nil
}

// Unlock resets the counter and clears the lock flag. Only this external
// action releases a locked account.
func (s *authService) Unlock(ctx context.Context, username string) error {
	if err := s.repo.SaveAttemptState(ctx, username, 0, false); err != nil {
		if apperror.IsNotFound(err) {
			return err
		}
		return apperror.NewInternal(fmt.Errorf("unlocking account: %w", err))
	}

	slog.Info("account unlocked", slog.String("username", username))
	return nil
}

// GetAccount returns the stored account record.
func (s *authService) GetAccount(ctx context.Context, username string) (*Account, error) {
	account, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, err
		}
		return nil, apperror.NewInternal(fmt.Errorf("finding account: %w", err))
	}
	return account, nil
}
