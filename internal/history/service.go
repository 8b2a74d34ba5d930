package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/erickdv/guardia/internal/apperror"
)

// HistoryService records and lists login timestamps for an account.
type HistoryService interface {
	// Record appends the current UTC timestamp to the account's history.
	// Each call appends exactly one entry; the login handler invokes it
	// once per successful authentication. Failures are logged and
	// swallowed -- history is best-effort and never blocks a login.
	Record(ctx context.Context, username string)

	// List returns the account's login timestamps, oldest first.
	List(ctx context.Context, username string) ([]string, error)
}

// historyService implements HistoryService.
type historyService struct {
	repo Repository

	// now is swappable in tests to pin the recorded timestamps.
	now func() time.Time
}

// NewService creates a history service backed by the given repository.
func NewService(repo Repository) HistoryService {
	return &historyService{
		repo: repo,
		now:  time.Now,
	}
}

// Record reads the current sequence, appends one RFC 3339 UTC timestamp, and
// writes the whole sequence back. Entries are only appended, never reordered
// or dropped.
func (s *historyService) Record(ctx context.Context, username string) {
	entries, err := s.repo.GetHistory(ctx, username)
	if err != nil {
		if apperror.IsNotFound(err) {
			// Account vanished between login and recording; nothing to do.
			return
		}
		slog.Error("failed to read login history",
			slog.String("username", username),
			slog.Any("error", err),
		)
		return
	}

	entries = append(entries, s.now().UTC().Format(time.RFC3339))

	if err := s.repo.SaveHistory(ctx, username, entries); err != nil {
		slog.Error("failed to record login history",
			slog.String("username", username),
			slog.Any("error", err),
		)
	}
}

// List returns the recorded timestamps in insertion (chronological) order.
func (s *historyService) List(ctx context.Context, username string) ([]string, error) {
	entries, err := s.repo.GetHistory(ctx, username)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, err
		}
		return nil, apperror.NewInternal(fmt.Errorf("listing login history: %w", err))
	}
	return entries, nil
}
