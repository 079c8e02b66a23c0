package session

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"dayplanner/internal/auth"
	"dayplanner/internal/logger"
	"dayplanner/internal/mailer"
	"dayplanner/internal/models/account"
	repo "dayplanner/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Password flows require 8 characters; the reset flow historically allows 6.
const minPasswordLen = 8
const minResetLen = 6

type AccountStore interface {
	Create(ctx context.Context, a *account.Account) (*account.Account, error)
	GetByEmail(ctx context.Context, email string) (*account.Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	MarkVerified(ctx context.Context, id uuid.UUID) error
	SaveToken(ctx context.Context, t *account.OneTimeToken) error
	ConsumeToken(ctx context.Context, token string, purpose account.TokenPurpose) (*account.OneTimeToken, error)
}

// Session is what a successful sign-in hands back: the owner identity plus
// the bearer token the client presents on task operations.
type Session struct {
	OwnerID     uuid.UUID `json:"owner_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	AccessToken string    `json:"access_token"`
	Recovery    bool      `json:"recovery,omitempty"`
}

type Config struct {
	LinkBaseURL string
	LinkTTL     time.Duration
}

// Manager establishes and tracks identity. Per principal it runs the state
// machine Anonymous -> Authenticating -> Authenticated | Errored, with
// Errored never terminal, and publishes every transition to subscribers.
type Manager struct {
	accounts AccountStore
	hasher   *auth.PasswordHasher
	tokens   *auth.JWTManager
	mail     mailer.Mailer
	config   Config

	hub *hub
}

func NewManager(accounts AccountStore, hasher *auth.PasswordHasher, tokens *auth.JWTManager, m mailer.Mailer, config Config) *Manager {
	if config.LinkTTL <= 0 {
		config.LinkTTL = 15 * time.Minute
	}
	return &Manager{
		accounts: accounts,
		hasher:   hasher,
		tokens:   tokens,
		mail:     m,
		config:   config,
		hub:      newHub(),
	}
}

// Subscribe returns a stream of session transitions. The channel is closed
// by Close.
func (m *Manager) Subscribe() <-chan Change {
	return m.hub.subscribe()
}

func (m *Manager) Close() {
	m.hub.close()
}

// StateOf reports the current state of the principal's session machine.
func (m *Manager) StateOf(email string) State {
	return m.hub.stateOf(normalizeEmail(email))
}

func (m *Manager) SignInWithPassword(ctx context.Context, email, secret string) (*Session, error) {
	email, err := validEmail(email)
	if err != nil {
		return nil, err
	}
	if len(secret) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLen)
	}

	m.hub.transition(email, uuid.Nil, StateAuthenticating)

	acc, err := m.accounts.GetByEmail(ctx, email)
	if err != nil {
		m.hub.transition(email, uuid.Nil, StateErrored)
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !m.hasher.Verify(secret, acc.PasswordHash) {
		logger.Warn("Session: password rejected", zap.String("email", email))
		m.hub.transition(email, uuid.Nil, StateErrored)
		return nil, ErrInvalidCredentials
	}

	return m.establish(email, acc)
}

// SignUp creates the account but does not sign it in; the caller still has
// to verify and authenticate. A failed verification mail is logged, not
// fatal - the account already exists.
func (m *Manager) SignUp(ctx context.Context, displayName, email, secret string) (*account.Account, error) {
	email, err := validEmail(email)
	if err != nil {
		return nil, err
	}
	if len(secret) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLen)
	}

	hash, err := m.hasher.Hash(secret)
	if err != nil {
		return nil, fmt.Errorf("%w: hashing password: %v", ErrPersistence, err)
	}

	created, err := m.accounts.Create(ctx, &account.Account{
		Email:        email,
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrAlreadyRegistered
		}
		return nil, fmt.Errorf("%w: creating account: %v", ErrPersistence, err)
	}
	logger.Info("Session: account created", zap.String("email", email))

	if link, err := m.issueLink(ctx, created.ID, account.PurposeVerify, "/auth/verify"); err != nil {
		logger.Warn("Session: failed to issue verification link", zap.Error(err))
	} else if err := m.mail.SendVerification(ctx, email, link); err != nil {
		logger.Warn("Session: verification mail not delivered", zap.String("email", email), zap.Error(err))
	}

	return created, nil
}

// SendSignInLink mails a one-time sign-in link. No session is established
// here; the session appears when the link is redeemed. An unknown address
// is reported as sent so the endpoint does not leak which emails exist.
func (m *Manager) SendSignInLink(ctx context.Context, email string) error {
	email, err := validEmail(email)
	if err != nil {
		return err
	}

	m.hub.transition(email, uuid.Nil, StateAuthenticating)

	acc, err := m.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			logger.Info("Session: sign-in link requested for unknown email", zap.String("email", email))
			return nil
		}
		m.hub.transition(email, uuid.Nil, StateErrored)
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	link, err := m.issueLink(ctx, acc.ID, account.PurposeSignIn, "/auth/signin-link/redeem")
	if err != nil {
		m.hub.transition(email, uuid.Nil, StateErrored)
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if err := m.mail.SendSignInLink(ctx, email, link); err != nil {
		m.hub.transition(email, uuid.Nil, StateErrored)
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	return nil
}

// RedeemSignInLink consumes the mailed token and establishes the session,
// notifying subscribers the same way a remote session change would.
func (m *Manager) RedeemSignInLink(ctx context.Context, token string) (*Session, error) {
	acc, err := m.consume(ctx, token, account.PurposeSignIn)
	if err != nil {
		return nil, err
	}
	return m.establish(acc.Email, acc)
}

// VerifyAccount consumes a verification token and marks the account
// verified.
func (m *Manager) VerifyAccount(ctx context.Context, token string) error {
	acc, err := m.consume(ctx, token, account.PurposeVerify)
	if err != nil {
		return err
	}
	if err := m.accounts.MarkVerified(ctx, acc.ID); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	logger.Info("Session: account verified", zap.String("email", acc.Email))
	return nil
}

// RequestPasswordReset mails a recovery link; same contract as
// SendSignInLink.
func (m *Manager) RequestPasswordReset(ctx context.Context, email string) error {
	email, err := validEmail(email)
	if err != nil {
		return err
	}

	acc, err := m.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			logger.Info("Session: password reset requested for unknown email", zap.String("email", email))
			return nil
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	link, err := m.issueLink(ctx, acc.ID, account.PurposeRecovery, "/auth/password-reset/redeem")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if err := m.mail.SendPasswordReset(ctx, acc.Email, link); err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	return nil
}

// RedeemPasswordReset turns the mailed recovery token into a short-lived
// recovery session, good only for CompletePasswordReset.
func (m *Manager) RedeemPasswordReset(ctx context.Context, token string) (*Session, error) {
	acc, err := m.consume(ctx, token, account.PurposeRecovery)
	if err != nil {
		return nil, err
	}

	recovery, err := m.tokens.GenerateRecoveryToken(acc.ID.String(), acc.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: issuing recovery token: %v", ErrPersistence, err)
	}
	return &Session{
		OwnerID:     acc.ID,
		Email:       acc.Email,
		DisplayName: acc.DisplayName,
		AccessToken: recovery,
		Recovery:    true,
	}, nil
}

// CompletePasswordReset is valid only under an active recovery session.
func (m *Manager) CompletePasswordReset(ctx context.Context, recoveryToken, newSecret, confirm string) error {
	claims, err := m.tokens.ValidateRecovery(recoveryToken)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if len(newSecret) < minResetLen {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minResetLen)
	}
	if newSecret != confirm {
		return fmt.Errorf("%w: password confirmation does not match", ErrValidation)
	}

	ownerID, err := uuid.Parse(claims.OwnerID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	hash, err := m.hasher.Hash(newSecret)
	if err != nil {
		return fmt.Errorf("%w: hashing password: %v", ErrPersistence, err)
	}
	if err := m.accounts.UpdatePassword(ctx, ownerID, hash); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrInvalidSession
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	logger.Info("Session: password reset completed", zap.String("email", claims.Email))
	return nil
}

// SignOut clears the principal's session unconditionally; calling it for a
// session that does not exist is a no-op.
func (m *Manager) SignOut(ownerID uuid.UUID, email string) {
	m.hub.transition(normalizeEmail(email), ownerID, StateAnonymous)
	logger.Info("Session: signed out", zap.String("email", email))
}

// GetCurrentUser resolves a bearer token to its account.
func (m *Manager) GetCurrentUser(ctx context.Context, accessToken string) (*account.Account, error) {
	claims, err := m.tokens.ValidateAccess(accessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	id, err := uuid.Parse(claims.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	acc, err := m.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return acc, nil
}

func (m *Manager) establish(email string, acc *account.Account) (*Session, error) {
	access, err := m.tokens.GenerateAccessToken(acc.ID.String(), acc.Email)
	if err != nil {
		m.hub.transition(email, uuid.Nil, StateErrored)
		return nil, fmt.Errorf("%w: issuing access token: %v", ErrPersistence, err)
	}

	m.hub.transition(email, acc.ID, StateAuthenticated)
	logger.Info("Session: authenticated", zap.String("email", email))
	return &Session{
		OwnerID:     acc.ID,
		Email:       acc.Email,
		DisplayName: acc.DisplayName,
		AccessToken: access,
	}, nil
}

func (m *Manager) issueLink(ctx context.Context, accountID uuid.UUID, purpose account.TokenPurpose, path string) (string, error) {
	token := uuid.NewString()
	err := m.accounts.SaveToken(ctx, &account.OneTimeToken{
		Token:     token,
		AccountID: accountID,
		Purpose:   purpose,
		ExpiresAt: time.Now().Add(m.config.LinkTTL),
	})
	if err != nil {
		return "", err
	}
	return m.config.LinkBaseURL + path + "?token=" + token, nil
}

func (m *Manager) consume(ctx context.Context, token string, purpose account.TokenPurpose) (*account.Account, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: token is required", ErrValidation)
	}

	ott, err := m.accounts.ConsumeToken(ctx, token, purpose)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if ott.Expired(time.Now()) {
		return nil, ErrInvalidSession
	}

	acc, err := m.accounts.GetByID(ctx, ott.AccountID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return acc, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) (string, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("%w: malformed email address", ErrValidation)
	}
	return email, nil
}
