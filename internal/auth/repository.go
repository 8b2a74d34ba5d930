package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/erickdv/guardia/internal/apperror"
)

// AccountRepository defines the data access contract for account records.
// All SQL lives in the concrete implementation -- no SQL leaks out.
//
// The store offers no atomic counters: attempt-state writes are full-field
// read-then-write operations, and concurrent failed attempts on one account
// may under-count. The lockout is a throttle, not a precise counter.
type AccountRepository interface {
	Create(ctx context.Context, account *Account) error
	FindByUsername(ctx context.Context, username string) (*Account, error)
	UsernameExists(ctx context.Context, username string) (bool, error)

	// SaveAttemptState persists the counter and lock flag as a unit.
	// The governor computes the new values in memory first.
	SaveAttemptState(ctx context.Context, username string, attempts int, locked bool) error

	UpdatePasswordHash(ctx context.Context, username, passwordHash string) error
}

// accountRepository implements AccountRepository with hand-written MariaDB queries.
type accountRepository struct {
	db *sql.DB
}

// NewAccountRepository creates a new account repository backed by the given DB pool.
func NewAccountRepository(db *sql.DB) AccountRepository {
	return &accountRepository{db: db}
}

// Create inserts a new account row into the users table.
func (r *accountRepository) Create(ctx context.Context, account *Account) error {
	query := `INSERT INTO users (username, password_hash, login_attempts, is_locked, created_at)
	          VALUES (?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		account.Username,
		account.PasswordHash,
		account.LoginAttempts,
		account.IsLocked,
		account.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting account: %w", err)
	}

	return nil
}

// FindByUsername retrieves an account by its username key.
// Returns apperror.NotFound if no account exists with this username.
func (r *accountRepository) FindByUsername(ctx context.Context, username string) (*Account, error) {
	query := `SELECT username, password_hash, login_attempts, is_locked, created_at
	          FROM users WHERE username = ?`

	account := &Account{}
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&account.Username,
		&account.PasswordHash,
		&account.LoginAttempts,
		&account.IsLocked,
		&account.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("Usuario no encontrado.")
	}
	if err != nil {
		return nil, fmt.Errorf("querying account by username: %w", err)
	}

	return account, nil
}

// UsernameExists returns true if an account with the given username already
// exists. Used during registration to refuse overwrites before hashing.
func (r *accountRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE username = ?)`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking username existence: %w", err)
	}

	return exists, nil
}

// SaveAttemptState writes the attempt counter and lock flag for an account.
// Values are written as supplied, never computed in SQL.
func (r *accountRepository) SaveAttemptState(ctx context.Context, username string, attempts int, locked bool) error {
	query := `UPDATE users SET login_attempts = ?, is_locked = ? WHERE username = ?`

	result, err := r.db.ExecContext(ctx, query, attempts, locked, username)
	if err != nil {
		return fmt.Errorf("updating attempt state: %w", err)
	}

	n, _ := result.RowsAffected()
	if n == 0 {
		// RowsAffected is 0 both for a missing row and for a no-op write
		// of identical values, so double-check existence before reporting
		// not-found.
		exists, existsErr := r.UsernameExists(ctx, username)
		if existsErr != nil {
			return existsErr
		}
		if !exists {
			return apperror.NewNotFound("Usuario no encontrado.")
		}
	}

	return nil
}

// UpdatePasswordHash overwrites the stored digest only; attempt counter and
// lock flag are untouched.
func (r *accountRepository) UpdatePasswordHash(ctx context.Context, username, passwordHash string) error {
	query := `UPDATE users SET password_hash = ? WHERE username = ?`

	_, err := r.db.ExecContext(ctx, query, passwordHash, username)
	if err != nil {
		return fmt.Errorf("updating password hash: %w", err)
	}

	return nil
}
