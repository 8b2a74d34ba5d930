// Package auth implements the credential-attempt governor for guardia:
// login with a persistent failed-attempt lockout, account registration under
// a password policy, credential updates, and administrative unlock. Handlers
// expose the JSON API; the service owns the lockout state machine.
//
// Policy outcomes (wrong password, locked account, weak password) are values,
// not errors. The error return of the service methods carries infrastructure
// failures only, and those must never count as a failed attempt.
package auth

import (
	"time"
)

// Account is the persisted record for one user, keyed by username. The
// username doubles as the storage key; accounts are never deleted here.
type Account struct {
	Username      string    `json:"username"`
	PasswordHash  string    `json:"-"` // Never expose in JSON responses.
	LoginAttempts int       `json:"login_attempts"`
	IsLocked      bool      `json:"is_locked"`
	CreatedAt     time.Time `json:"created_at"`
}

// Authentication outcomes. Exactly one is set on every LoginResult; only
// OutcomeSuccess carries an account. Infrastructure failures are not
// outcomes -- they surface as errors.
const (
	OutcomeSuccess   = "success"
	OutcomeRejected  = "rejected"   // wrong password, counter incremented
	OutcomeLockedNow = "locked_now" // this attempt crossed the threshold
	OutcomeLocked    = "locked"     // account was already locked
	OutcomeNotFound  = "not_found"  // unknown username, nothing mutated
)

// Registration outcomes.
const (
	OutcomeCreated       = "created"
	OutcomeWeakPassword  = "weak_password"
	OutcomeAlreadyExists = "already_exists"
)

// LoginResult is the governor's verdict on one authentication attempt.
type LoginResult struct {
	// Outcome is one of the authentication outcome constants.
	Outcome string `json:"outcome"`

	// Message is the user-facing text for this outcome, e.g. the
	// remaining-attempts notice.
	Message string `json:"message"`

	// Account is set only when Outcome is OutcomeSuccess.
	Account *Account `json:"account,omitempty"`
}

// RegisterResult is the verdict on an account-creation request.
type RegisterResult struct {
	Outcome string `json:"outcome"`
	Message string `json:"message"`
}

// --- Request DTOs (bound from HTTP requests) ---

// LoginRequest holds the data submitted to POST /auth/login.
type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// RegisterRequest holds the data submitted to POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// UpdatePasswordRequest holds the data submitted to POST /auth/update-password.
// The target account is the authenticated caller, never a request field.
type UpdatePasswordRequest struct {
	Password string `json:"password" form:"password"`
}

// UnlockRequest holds the data submitted to POST /auth/unlock.
type UnlockRequest struct {
	Username string `json:"username" form:"username"`
}
