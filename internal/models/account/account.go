package account

import (
	"time"

	"github.com/google/uuid"
)

type Account struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	DisplayName  string     `json:"display_name" db:"display_name"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Verified     bool       `json:"verified" db:"verified"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	VerifiedAt   *time.Time `json:"verified_at,omitempty" db:"verified_at"`
}

// TokenPurpose distinguishes the one-time token flows. A sign-in link token
// establishes a session when redeemed; a recovery token only permits a
// password change; a verification token marks the account verified.
type TokenPurpose string

const PurposeSignIn TokenPurpose = "signin"
const PurposeRecovery TokenPurpose = "recovery"
const PurposeVerify TokenPurpose = "verify"

type OneTimeToken struct {
	Token     string       `db:"token"`
	AccountID uuid.UUID    `db:"account_id"`
	Purpose   TokenPurpose `db:"purpose"`
	ExpiresAt time.Time    `db:"expires_at"`
	CreatedAt time.Time    `db:"created_at"`
}

func (t *OneTimeToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
