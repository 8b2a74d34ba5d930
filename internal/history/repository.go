// Package history implements the login-history recorder: one RFC 3339
// timestamp appended per successful authentication, stored as an append-only
// JSON sequence on the account record. Recording is best-effort -- a failed
// append is logged and swallowed, never failing the login that triggered it.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/erickdv/guardia/internal/apperror"
)

// Repository reads and writes the per-account history sequence. The write is
// a full-sequence replace: the recorder reads the current entries, appends,
// and writes the whole list back.
type Repository interface {
	GetHistory(ctx context.Context, username string) ([]string, error)
	SaveHistory(ctx context.Context, username string, entries []string) error
}

// historyRepository implements Repository against the users table.
type historyRepository struct {
	db *sql.DB
}

// NewRepository creates a history repository backed by the given DB pool.
func NewRepository(db *sql.DB) Repository {
	return &historyRepository{db: db}
}

// GetHistory returns the account's login timestamps in insertion order.
// Returns apperror.NotFound if the account does not exist.
func (r *historyRepository) GetHistory(ctx context.Context, username string) ([]string, error) {
	query := `SELECT login_history FROM users WHERE username = ?`

	var raw sql.NullString
	err := r.db.QueryRowContext(ctx, query, username).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("Usuario no encontrado.")
	}
	if err != nil {
		return nil, fmt.Errorf("querying login history: %w", err)
	}

	if !raw.Valid || raw.String == "" {
		return []string{}, nil
	}

	var entries []string
	if err := json.Unmarshal([]byte(raw.String), &entries); err != nil {
		return nil, fmt.Errorf("decoding login history: %w", err)
	}

	return entries, nil
}

// SaveHistory replaces the stored sequence with the given entries.
func (r *historyRepository) SaveHistory(ctx context.Context, username string, entries []string) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encoding login history: %w", err)
	}

	query := `UPDATE users SET login_history = ? WHERE username = ?`
	if _, err := r.db.ExecContext(ctx, query, string(data), username); err != nil {
		return fmt.Errorf("updating login history: %w", err)
	}

	return nil
}
