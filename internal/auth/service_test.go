package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/erickdv/guardia/internal/apperror"
)

// --- Mock Repository ---

// mockAccountRepo implements AccountRepository for testing.
type mockAccountRepo struct {
	createFn      func(ctx context.Context, account *Account) error
	findFn        func(ctx context.Context, username string) (*Account, error)
	existsFn      func(ctx context.Context, username string) (bool, error)
	saveAttemptFn func(ctx context.Context, username string, attempts int, locked bool) error
	updateHashFn  func(ctx context.Context, username, hash string) error
}

func (m *mockAccountRepo) Create(ctx context.Context, account *Account) error {
	if m.createFn != nil {
		return m.createFn(ctx, account)
	}
	return nil
}

func (m *mockAccountRepo) FindByUsername(ctx context.Context, username string) (*Account, error) {
	if m.findFn != nil {
		return m.findFn(ctx, username)
	}
	return nil, apperror.NewNotFound("Usuario no encontrado.")
}

func (m *mockAccountRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, username)
	}
	return false, nil
}

func (m *mockAccountRepo) SaveAttemptState(ctx context.Context, username string, attempts int, locked bool) error {
	if m.saveAttemptFn != nil {
		return m.saveAttemptFn(ctx, username, attempts, locked)
	}
	return nil
}

func (m *mockAccountRepo) UpdatePasswordHash(ctx context.Context, username, hash string) error {
	if m.updateHashFn != nil {
		return m.updateHashFn(ctx, username, hash)
	}
	return nil
}

// --- Mock Hasher ---

// mockHasher implements PasswordHasher with a reversible fake digest so
// tests don't pay bcrypt cost.
type mockHasher struct {
	hashFn   func(password string) (string, error)
	verifyFn func(password, digest string) (bool, error)
}

func (m *mockHasher) Hash(password string) (string, error) {
	if m.hashFn != nil {
		return m.hashFn(password)
	}
	return "hashed:" + password, nil
}

func (m *mockHasher) Verify(password, digest string) (bool, error) {
	if m.verifyFn != nil {
		return m.verifyFn(password, digest)
	}
	return digest == "hashed:"+password, nil
}

// --- Test Helpers ---

const testMaxAttempts = 5

func newTestService(repo AccountRepository, hasher PasswordHasher) AuthService {
	return NewService(repo, hasher, testMaxAttempts)
}

// assertOutcome checks the login result outcome and fails with the message
// for context.
func assertOutcome(t *testing.T, result *LoginResult, want string) {
	t.Helper()
	if result == nil {
		t.Fatalf("expected outcome %q, got nil result", want)
	}
	if result.Outcome != want {
		t.Fatalf("expected outcome %q, got %q (message: %s)", want, result.Outcome, result.Message)
	}
}

// assertTransient checks that err is an infrastructure failure.
func assertTransient(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected transient error, got nil")
	}
	if !apperror.IsTransient(err) {
		t.Fatalf("expected transient error, got %T: %v", err, err)
	}
}

func testAccount(attempts int, locked bool) *Account {
	return &Account{
		Username:      "alice",
		PasswordHash:  "hashed:Abcdefg1!",
		LoginAttempts: attempts,
		IsLocked:      locked,
		CreatedAt:     time.Now().UTC(),
	}
}

// --- Authenticate Tests ---

func TestAuthenticate_UnknownUser(t *testing.T) {
	var saved bool
	repo := &mockAccountRepo{
		saveAttemptFn: func(ctx context.Context, username string, attempts int, locked bool) error {
			saved = true
			return nil
		},
	}

	svc := newTestService(repo, &mockHasher{})
	result, err := svc.Authenticate(context.Background(), "nobody", "whatever")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertOutcome(t, result, OutcomeNotFound)
	if result.Message != "Usuario no encontrado." {
		t.Errorf("unexpected message: %s", result.Message)
	}
	if saved {
		t.Error("expected no state mutation for unknown user")
	}
}

func TestAuthenticate_EmptyUsername(t *testing.T) {
	svc := newTestService(&mockAccountRepo{}, &mockHasher{})
	_, err := svc.Authenticate(context.Background(), "  ", "whatever")
	if err == nil {
		t.Fatal("expected error for empty username")
	}
	if apperror.SafeCode(err) != 400 {
		t.Errorf("expected 400, got %d", apperror.SafeCode(err))
	}
}

func TestAuthenticate_LockedAccount(t *testing.T) {
	var verified, saved bool
	repo := &mockAccountRepo{
		findFn: func(ctx context.Context, username string) (*Account, error) {
			return testAccount(5, true), nil
		},
		saveAttemptFn: func(ctx context.Context, username string, attempts int, locked bool) error {
			saved = true
			return nil
		},
	}
	hasher := &mockHasher{
		verifyFn: func(password, digest string) (bool, error) {
			verified = true
			return true, nil
		},
	}

	svc := newTestService(repo, hasher)

	// Correct or incorrect credential makes no difference on a locked account.
	for _, password := range []string{"Abcdefg1!", "wrong"} {
		result, err := svc.Authenticate(context.Background(), "alice", password)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		assertOutcome(t, result, OutcomeLocked)
	}

	if verified {
		t.Error("locked accounts must not get their credential checked")
	}
	if saved {
		t.Error("locked accounts must not be mutated")
	}
}

func TestAuthenticate_Success_ResetsCounter(t *testing.T) {
	var savedAttempts int
	var savedLocked bool
	var saveCalls int
	repo := &mockAccountRepo{
		findFn: func(ctx context.Context, username string) (*Account, error) {
			return testAccount(3, false), nil
		},
		saveAttemptFn: func(ctx context.Context, username string, attempts int, locked bool) error {
			saveCalls++
			savedAttempts = attempts
			savedLocked = locked
			return nil
		},
	}

	svc := newTestService(repo, &mockHasher{})
	result, err := svc.Authenticate(context.Background(), "alice", "Abcdefg1!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertOutcome(t, result, OutcomeSuccess)

	if saveCalls != 1 {
		t.Errorf("expected exactly one write, got %d", saveCalls)
	}
	if savedAttempts != 0 || savedLocked {
		t.Errorf("expected reset to (0, unlocked), got (%d, %v)", savedAttempts, savedLocked)
	}
	if result.Account == nil {
		t.Fatal("expected account on success")
	}
	if result.Account.LoginAttempts != 0 || result.Account.IsLocked {
		t.Error("expected returned account to reflect the reset")
	}
}

func TestAuthenticate_WrongPassword_IncrementsCounter(t *testing.T) {
	var savedAttempts int
	var savedLocked bool
	repo := &mockAccountRepo{
		findFn: func(ctx context.Context, username string) (*Account, error) {
			return testAccount(1, false), nil
		},
		saveAttemptFn: func(ctx context.Context, username string, attempts int, locked bool) error {
			savedAttempts = attempts
			savedLocked = locked
			return nil
		},
	}

	svc := newTestService(repo, &mockHasher{})
	result, err := svc.Authenticate(context.Background(), "alice", "wrong")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertOutcome(t, result, OutcomeRejected)

	if savedAttempts != 2 || savedLocked {
		t.Errorf("expected (2, unlocked), got (%d, %v)", savedAttempts, savedLocked)
	}
	if want := fmt.Sprintf("Contraseña incorrecta. Intento %d de %d.", 2, testMaxAttempts); result.Message != want {
		t.Errorf("expected %q, got %q", want, result.Message)
	}
}

func TestAuthenticate_ThresholdLocksAccount(t *testing.T) {
	var savedAttempts int
	var savedLocked bool
	repo := &mockAccountRepo{
		findFn: func(ctx context.Context, username string) (*Account, error) {
			return testAccount(testMaxAttempts-1, false), nil
		},
		saveAttemptFn: func(ctx context.Context, username string, attempts int, locked bool) error {
			savedAttempts = attempts
			savedLocked = locked
			return nil
		},
	}

	svc := newTestService(repo, &mockHasher{})
	result, err := svc.Authenticate(context.Background(), "alice", "wrong")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertOutcome(t, result, OutcomeLockedNow)

	if savedAttempts != testMaxAttempts || !savedLocked {
		t.Errorf("expected (%d, locked), got (%d, %v)", testMaxAttempts, savedAttempts, savedLocked)
	}
}

func TestAuthenticate_FindError_IsTransient(t *testing.T) {
	repo := &mockAccountRepo{
		findFn: func(ctx context.Context, username string) (*Account, error) {
			return nil, errors.New("db connection lost")
		},
	}

	svc := newTestService(repo, &mockHasher{})
	_, err := svc.Authenticate(context.Background(), "alice", "Abcdefg1!")
	assertTransient(t, err)
}

func TestAuthenticate_HasherError_DoesNotIncrement(t *testing.T) {
	var saved bool
	repo := &mockAccountRepo{
		findFn: func(ctx context.Context, username string) (*Account, error) {
			return testAccount(2, false), nil
		},
		saveAttemptFn: func(ctx context.Context, username string, attempts int, locked bool) error {
			saved = true
			return nil
		},
	}
	hasher := &mockHasher{
		verifyFn: func(password, digest string) (bool, error) {
			return false, errors.New("corrupted digest")
		},
	}

	svc := newTestService(repo, hasher)
	_, err := svc.Authenticate(context.Background(), "alice", "Abcdefg1!")
	assertTransient(t, err)
	if saved {
		t.Error("hasher failure must not count as a failed attempt")
	}
}

func TestAuthenticate_SaveError_IsTransient(t *testing.T) {
	repo := &mockAccountRepo{
		findFn: func(ctx context.Context, username string) (*Account, error) {
			return testAccount(1, false), nil
		},
		saveAttemptFn: func(ctx context.Context, username string, attempts int, locked bool) error {
			return errors.New("db write error")
		},
	}

	svc := newTestService(repo, &mockHasher{})
	_, err := svc.Authenticate(context.Background(), "alice", "wrong")
	assertTransient(t, err)
}

// --- Register Tests ---

func TestRegister_Success(t *testing.T) {
	var created *Account
	repo := &mockAccountRepo{
		createFn: func(ctx context.Context, account *Account) error {
			created = account
			return nil
		},
	}

	svc := newTestService(repo, &mockHasher{})
	result, err := svc.Register(context.Background(), "bob", "Abcdefg1!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != OutcomeCreated {
		t.Fatalf("expected created, got %q", result.Outcome)
	}

	if created == nil {
		t.Fatal("expected account to be persisted")
	}
	if created.PasswordHash != "hashed:Abcdefg1!" {
		t.Errorf("expected hashed credential, got %q", created.PasswordHash)
	}
	if created.LoginAttempts != 0 || created.IsLocked {
		t.Error("expected fresh account with zeroed counter and cleared lock")
	}
}

func TestRegister_WeakPassword(t *testing.T) {
	var touched bool
	repo := &mockAccountRepo{
		existsFn: func(ctx context.Context, username string) (bool, error) {
			touched = true
			return false, nil
		},
	}

	svc := newTestService(repo, &mockHasher{})
	result, err := svc.Register(context.Background(), "bob", "abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != OutcomeWeakPassword {
		t.Fatalf("expected weak_password, got %q", result.Outcome)
	}
	if touched {
		t.Error("weak passwords must be rejected before any store access")
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	var created bool
	repo := &mockAccountRepo{
		existsFn: func(ctx context.Context, username string) (bool, error) {
			return true, nil
		},
		createFn: func(ctx context.Context, account *Account) error {
			created = true
			return nil
		},
	}

	svc := newTestService(repo, &mockHasher{})
	result, err := svc.Register(context.Background(), "bob", "Abcdefg1!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != OutcomeAlreadyExists {
		t.Fatalf("expected already_exists, got %q", result.Outcome)
	}
	if created {
		t.Error("existing accounts must never be overwritten")
	}
}

func TestRegister_CreateError_IsTransient(t *testing.T) {
	repo := &mockAccountRepo{
		createFn: func(ctx context.Context, account *Account) error {
			return errors.New("db write error")
		},
	}

	svc := newTestService(repo, &mockHasher{})
	_, err := svc.Register(context.Background(), "bob", "Abcdefg1!")
	assertTransient(t, err)
}

// --- UpdatePassword Tests ---

func TestUpdatePassword_Success(t *testing.T) {
	var updatedHash string
	var attemptStateTouched bool
	repo := &mockAccountRepo{
		updateHashFn: func(ctx context.Context, username, hash string) error {
			updatedHash = hash
			return nil
		},
		saveAttemptFn: func(ctx context.Context, username string, attempts int, locked bool) error {
			attemptStateTouched = true
			return nil
		},
	}

	svc := newTestService(repo, &mockHasher{})
	if err := svc.UpdatePassword(context.Background(), "alice", "Nuevopass2#"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updatedHash != "hashed:Nuevopass2#" {
		t.Errorf("expected re-hashed credential, got %q", updatedHash)
	}
	if attemptStateTouched {
		t.Error("updating the credential must not touch lock state or counter")
	}
}

func TestUpdatePassword_WeakPassword(t *testing.T) {
	svc := newTestService(&mockAccountRepo{}, &mockHasher{})
	err := svc.UpdatePassword(context.Background(), "alice", "short")
	if err == nil {
		t.Fatal("expected validation error")
	}
	if apperror.SafeCode(err) != 422 {
		t.Errorf("expected 422, got %d", apperror.SafeCode(err))
	}
}

// --- Unlock Tests ---

func TestUnlock_ResetsState(t *testing.T) {
	var savedAttempts int
	var savedLocked bool
	repo := &mockAccountRepo{
		saveAttemptFn: func(ctx context.Context, username string, attempts int, locked bool) error {
			savedAttempts = attempts
			savedLocked = locked
			return nil
		},
	}

	svc := newTestService(repo, &mockHasher{})
	if err := svc.Unlock(context.Background(), "alice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if savedAttempts != 0 || savedLocked {
		t.Errorf("expected (0, unlocked), got (%d, %v)", savedAttempts, savedLocked)
	}
}

func TestUnlock_UnknownUser(t *testing.T) {
	repo := &mockAccountRepo{
		saveAttemptFn: func(ctx context.Context, username string, attempts int, locked bool) error {
			return apperror.NewNotFound("Usuario no encontrado.")
		},
	}

	svc := newTestService(repo, &mockHasher{})
	err := svc.Unlock(context.Background(), "nobody")
	if !apperror.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

// --- End-to-End Lockout Scenario ---

// memAccountRepo is an in-memory store for the full lockout walk-through.
// It copies accounts on read so the service sees a snapshot, like a real
// store read would.
type memAccountRepo struct {
	accounts map[string]*Account
}

func (m *memAccountRepo) Create(ctx context.Context, account *Account) error {
	cp := *account
	m.accounts[account.Username] = &cp
	return nil
}

func (m *memAccountRepo) FindByUsername(ctx context.Context, username string) (*Account, error) {
	account, ok := m.accounts[username]
	if !ok {
		return nil, apperror.NewNotFound("Usuario no encontrado.")
	}
	cp := *account
	return &cp, nil
}

func (m *memAccountRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	_, ok := m.accounts[username]
	return ok, nil
}

func (m *memAccountRepo) SaveAttemptState(ctx context.Context, username string, attempts int, locked bool) error {
	account, ok := m.accounts[username]
	if !ok {
		return apperror.NewNotFound("Usuario no encontrado.")
	}
	account.LoginAttempts = attempts
	account.IsLocked = locked
	return nil
}

func (m *memAccountRepo) UpdatePasswordHash(ctx context.Context, username, hash string) error {
	account, ok := m.accounts[username]
	if !ok {
		return apperror.NewNotFound("Usuario no encontrado.")
	}
	account.PasswordHash = hash
	return nil
}

func TestLockout_EndToEnd(t *testing.T) {
	ctx := context.Background()
	repo := &memAccountRepo{accounts: make(map[string]*Account)}
	svc := newTestService(repo, &mockHasher{})

	if _, err := svc.Register(ctx, "alice", "Abcdefg1!"); err != nil {
		t.Fatalf("registering: %v", err)
	}

	// Five consecutive wrong attempts: four rejections, then the lock.
	wantOutcomes := []string{
		OutcomeRejected, OutcomeRejected, OutcomeRejected, OutcomeRejected,
		OutcomeLockedNow,
	}
	for i, want := range wantOutcomes {
		result, err := svc.Authenticate(ctx, "alice", "wrong-password")
		if err != nil {
			t.Fatalf("attempt %d: unexpected error: %v", i+1, err)
		}
		assertOutcome(t, result, want)

		if want == OutcomeRejected {
			wantMsg := fmt.Sprintf("Contraseña incorrecta. Intento %d de %d.", i+1, testMaxAttempts)
			if result.Message != wantMsg {
				t.Errorf("attempt %d: expected %q, got %q", i+1, wantMsg, result.Message)
			}
		}
	}

	// A sixth attempt with the CORRECT credential still bounces off the lock.
	result, err := svc.Authenticate(ctx, "alice", "Abcdefg1!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertOutcome(t, result, OutcomeLocked)

	if got := repo.accounts["alice"]; got.LoginAttempts != testMaxAttempts || !got.IsLocked {
		t.Errorf("expected persisted (%d, locked), got (%d, %v)", testMaxAttempts, got.LoginAttempts, got.IsLocked)
	}

	// Only the administrative unlock reopens the account.
	if err := svc.Unlock(ctx, "alice"); err != nil {
		t.Fatalf("unlocking: %v", err)
	}

	result, err = svc.Authenticate(ctx, "alice", "Abcdefg1!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertOutcome(t, result, OutcomeSuccess)
}
