package session_test

import (
	"context"
	"os"
	"testing"
	"time"

	"dayplanner/internal/auth"
	"dayplanner/internal/logger"
	"dayplanner/internal/models/account"
	repo "dayplanner/internal/repository"
	"dayplanner/internal/session"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init(true)
	defer logger.Sync()
	os.Exit(m.Run())
}

type MockAccountStore struct {
	mock.Mock
}

func (m *MockAccountStore) Create(ctx context.Context, a *account.Account) (*account.Account, error) {
	args := m.Called(ctx, a)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountStore) GetByEmail(ctx context.Context, email string) (*account.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountStore) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountStore) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func (m *MockAccountStore) MarkVerified(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAccountStore) SaveToken(ctx context.Context, t *account.OneTimeToken) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockAccountStore) ConsumeToken(ctx context.Context, token string, purpose account.TokenPurpose) (*account.OneTimeToken, error) {
	args := m.Called(ctx, token, purpose)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.OneTimeToken), args.Error(1)
}

var _ session.AccountStore = (*MockAccountStore)(nil)

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendSignInLink(ctx context.Context, email, link string) error {
	args := m.Called(ctx, email, link)
	return args.Error(0)
}

func (m *MockMailer) SendPasswordReset(ctx context.Context, email, link string) error {
	args := m.Called(ctx, email, link)
	return args.Error(0)
}

func (m *MockMailer) SendVerification(ctx context.Context, email, link string) error {
	args := m.Called(ctx, email, link)
	return args.Error(0)
}

var hasher = auth.NewPasswordHasher(4)

func tokenManager() *auth.JWTManager {
	return auth.NewJWTManager(auth.JWTConfig{
		SecretKey:        "test-secret",
		AccessDuration:   15 * time.Minute,
		RecoveryDuration: 30 * time.Minute,
		Issuer:           "dayplanner-test",
	})
}

func newManager(store *MockAccountStore, mail *MockMailer) *session.Manager {
	return session.NewManager(store, hasher, tokenManager(), mail, session.Config{
		LinkBaseURL: "http://localhost:8080",
		LinkTTL:     15 * time.Minute,
	})
}

func testAccount(t *testing.T, email, password string) *account.Account {
	t.Helper()
	hash, err := hasher.Hash(password)
	require.NoError(t, err)
	return &account.Account{
		ID:           uuid.New(),
		Email:        email,
		DisplayName:  "Test User",
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
}

func TestSignInWithPassword(t *testing.T) {
	ctx := context.Background()

	t.Run("malformed email - validation error, store untouched", func(t *testing.T) {
		store := new(MockAccountStore)
		m := newManager(store, new(MockMailer))

		_, err := m.SignInWithPassword(ctx, "not-an-email", "password123")
		assert.ErrorIs(t, err, session.ErrValidation)
		store.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
	})

	t.Run("password below 8 characters - validation error", func(t *testing.T) {
		store := new(MockAccountStore)
		m := newManager(store, new(MockMailer))

		_, err := m.SignInWithPassword(ctx, "user@example.com", "short")
		assert.ErrorIs(t, err, session.ErrValidation)
		store.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
	})

	t.Run("unknown email - invalid credentials, machine errored", func(t *testing.T) {
		store := new(MockAccountStore)
		store.On("GetByEmail", mock.Anything, "user@example.com").
			Return(nil, repo.ErrNotFound).Once()
		m := newManager(store, new(MockMailer))

		_, err := m.SignInWithPassword(ctx, "user@example.com", "password123")
		assert.ErrorIs(t, err, session.ErrInvalidCredentials)
		assert.Equal(t, session.StateErrored, m.StateOf("user@example.com"))
	})

	t.Run("wrong password - invalid credentials", func(t *testing.T) {
		store := new(MockAccountStore)
		acc := testAccount(t, "user@example.com", "password123")
		store.On("GetByEmail", mock.Anything, "user@example.com").Return(acc, nil).Once()
		m := newManager(store, new(MockMailer))

		_, err := m.SignInWithPassword(ctx, "user@example.com", "wrongpassword")
		assert.ErrorIs(t, err, session.ErrInvalidCredentials)
	})

	t.Run("success - session issued, transitions published", func(t *testing.T) {
		store := new(MockAccountStore)
		acc := testAccount(t, "user@example.com", "password123")
		store.On("GetByEmail", mock.Anything, "user@example.com").Return(acc, nil).Once()
		m := newManager(store, new(MockMailer))

		changes := m.Subscribe()

		// Email is normalized before it reaches the store.
		sess, err := m.SignInWithPassword(ctx, "  User@Example.COM ", "password123")
		require.NoError(t, err)
		assert.Equal(t, acc.ID, sess.OwnerID)
		assert.NotEmpty(t, sess.AccessToken)
		assert.False(t, sess.Recovery)
		assert.Equal(t, session.StateAuthenticated, m.StateOf("user@example.com"))

		first := <-changes
		assert.Equal(t, session.StateAuthenticating, first.State)
		second := <-changes
		assert.Equal(t, session.StateAuthenticated, second.State)
		assert.Equal(t, acc.ID, second.OwnerID)
	})

	t.Run("error state is not terminal", func(t *testing.T) {
		store := new(MockAccountStore)
		acc := testAccount(t, "user@example.com", "password123")
		store.On("GetByEmail", mock.Anything, "user@example.com").
			Return(nil, repo.ErrNotFound).Once()
		store.On("GetByEmail", mock.Anything, "user@example.com").Return(acc, nil).Once()
		m := newManager(store, new(MockMailer))

		_, err := m.SignInWithPassword(ctx, "user@example.com", "password123")
		require.ErrorIs(t, err, session.ErrInvalidCredentials)

		sess, err := m.SignInWithPassword(ctx, "user@example.com", "password123")
		require.NoError(t, err)
		assert.NotEmpty(t, sess.AccessToken)
	})
}

func TestSignUp(t *testing.T) {
	ctx := context.Background()

	t.Run("success - account exists but not authenticated", func(t *testing.T) {
		store := new(MockAccountStore)
		mail := new(MockMailer)
		m := newManager(store, mail)

		created := testAccount(t, "new@example.com", "password123")
		store.On("Create", mock.Anything, mock.MatchedBy(func(a *account.Account) bool {
			return a.Email == "new@example.com" && a.DisplayName == "New User" && a.PasswordHash != ""
		})).Return(created, nil).Once()
		store.On("SaveToken", mock.Anything, mock.MatchedBy(func(tok *account.OneTimeToken) bool {
			return tok.Purpose == account.PurposeVerify && tok.AccountID == created.ID
		})).Return(nil).Once()
		mail.On("SendVerification", mock.Anything, "new@example.com", mock.Anything).Return(nil).Once()

		acc, err := m.SignUp(ctx, " New User ", "new@example.com", "password123")
		require.NoError(t, err)
		assert.Equal(t, created.ID, acc.ID)
		assert.Equal(t, session.StateAnonymous, m.StateOf("new@example.com"))
		store.AssertExpectations(t)
		mail.AssertExpectations(t)
	})

	t.Run("duplicate email", func(t *testing.T) {
		store := new(MockAccountStore)
		store.On("Create", mock.Anything, mock.Anything).Return(nil, repo.ErrDuplicate).Once()
		m := newManager(store, new(MockMailer))

		_, err := m.SignUp(ctx, "User", "dup@example.com", "password123")
		assert.ErrorIs(t, err, session.ErrAlreadyRegistered)
	})

	t.Run("short password", func(t *testing.T) {
		m := newManager(new(MockAccountStore), new(MockMailer))
		_, err := m.SignUp(ctx, "User", "new@example.com", "1234567")
		assert.ErrorIs(t, err, session.ErrValidation)
	})
}

func TestSendSignInLink(t *testing.T) {
	ctx := context.Background()

	t.Run("success - token saved and mailed, no session yet", func(t *testing.T) {
		store := new(MockAccountStore)
		mail := new(MockMailer)
		acc := testAccount(t, "user@example.com", "password123")
		store.On("GetByEmail", mock.Anything, "user@example.com").Return(acc, nil).Once()

		var savedToken string
		store.On("SaveToken", mock.Anything, mock.MatchedBy(func(tok *account.OneTimeToken) bool {
			savedToken = tok.Token
			return tok.Purpose == account.PurposeSignIn
		})).Return(nil).Once()
		mail.On("SendSignInLink", mock.Anything, "user@example.com",
			mock.MatchedBy(func(link string) bool {
				return savedToken != "" && link == "http://localhost:8080/auth/signin-link/redeem?token="+savedToken
			})).Return(nil).Once()

		m := newManager(store, mail)
		require.NoError(t, m.SendSignInLink(ctx, "user@example.com"))
		assert.NotEqual(t, session.StateAuthenticated, m.StateOf("user@example.com"))
		mail.AssertExpectations(t)
	})

	t.Run("mail rejected - delivery error", func(t *testing.T) {
		store := new(MockAccountStore)
		mail := new(MockMailer)
		acc := testAccount(t, "user@example.com", "password123")
		store.On("GetByEmail", mock.Anything, "user@example.com").Return(acc, nil).Once()
		store.On("SaveToken", mock.Anything, mock.Anything).Return(nil).Once()
		mail.On("SendSignInLink", mock.Anything, mock.Anything, mock.Anything).
			Return(assert.AnError).Once()

		m := newManager(store, mail)
		err := m.SendSignInLink(ctx, "user@example.com")
		assert.ErrorIs(t, err, session.ErrDelivery)
	})

	t.Run("unknown email - reported as sent", func(t *testing.T) {
		store := new(MockAccountStore)
		mail := new(MockMailer)
		store.On("GetByEmail", mock.Anything, "ghost@example.com").
			Return(nil, repo.ErrNotFound).Once()

		m := newManager(store, mail)
		assert.NoError(t, m.SendSignInLink(ctx, "ghost@example.com"))
		mail.AssertNotCalled(t, "SendSignInLink", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestRedeemSignInLink(t *testing.T) {
	ctx := context.Background()

	t.Run("valid token establishes the session", func(t *testing.T) {
		store := new(MockAccountStore)
		acc := testAccount(t, "user@example.com", "password123")
		store.On("ConsumeToken", mock.Anything, "tok-1", account.PurposeSignIn).
			Return(&account.OneTimeToken{
				Token:     "tok-1",
				AccountID: acc.ID,
				Purpose:   account.PurposeSignIn,
				ExpiresAt: time.Now().Add(time.Minute),
			}, nil).Once()
		store.On("GetByID", mock.Anything, acc.ID).Return(acc, nil).Once()

		m := newManager(store, new(MockMailer))
		changes := m.Subscribe()

		sess, err := m.RedeemSignInLink(ctx, "tok-1")
		require.NoError(t, err)
		assert.Equal(t, acc.ID, sess.OwnerID)
		assert.Equal(t, session.StateAuthenticated, m.StateOf("user@example.com"))

		change := <-changes
		assert.Equal(t, session.StateAuthenticated, change.State)
	})

	t.Run("expired token", func(t *testing.T) {
		store := new(MockAccountStore)
		store.On("ConsumeToken", mock.Anything, "tok-2", account.PurposeSignIn).
			Return(&account.OneTimeToken{
				Token:     "tok-2",
				AccountID: uuid.New(),
				Purpose:   account.PurposeSignIn,
				ExpiresAt: time.Now().Add(-time.Minute),
			}, nil).Once()

		m := newManager(store, new(MockMailer))
		_, err := m.RedeemSignInLink(ctx, "tok-2")
		assert.ErrorIs(t, err, session.ErrInvalidSession)
	})

	t.Run("unknown token", func(t *testing.T) {
		store := new(MockAccountStore)
		store.On("ConsumeToken", mock.Anything, "tok-3", account.PurposeSignIn).
			Return(nil, repo.ErrNotFound).Once()

		m := newManager(store, new(MockMailer))
		_, err := m.RedeemSignInLink(ctx, "tok-3")
		assert.ErrorIs(t, err, session.ErrInvalidSession)
	})
}

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()

	t.Run("full flow", func(t *testing.T) {
		store := new(MockAccountStore)
		mail := new(MockMailer)
		acc := testAccount(t, "user@example.com", "oldpassword1")

		store.On("GetByEmail", mock.Anything, "user@example.com").Return(acc, nil).Once()
		store.On("SaveToken", mock.Anything, mock.MatchedBy(func(tok *account.OneTimeToken) bool {
			return tok.Purpose == account.PurposeRecovery
		})).Return(nil).Once()
		mail.On("SendPasswordReset", mock.Anything, "user@example.com", mock.Anything).Return(nil).Once()

		m := newManager(store, mail)
		require.NoError(t, m.RequestPasswordReset(ctx, "user@example.com"))

		store.On("ConsumeToken", mock.Anything, "recovery-tok", account.PurposeRecovery).
			Return(&account.OneTimeToken{
				Token:     "recovery-tok",
				AccountID: acc.ID,
				Purpose:   account.PurposeRecovery,
				ExpiresAt: time.Now().Add(time.Minute),
			}, nil).Once()
		store.On("GetByID", mock.Anything, acc.ID).Return(acc, nil).Once()

		sess, err := m.RedeemPasswordReset(ctx, "recovery-tok")
		require.NoError(t, err)
		assert.True(t, sess.Recovery)

		store.On("UpdatePassword", mock.Anything, acc.ID, mock.MatchedBy(func(hash string) bool {
			return hasher.Verify("newpass", hash)
		})).Return(nil).Once()

		require.NoError(t, m.CompletePasswordReset(ctx, sess.AccessToken, "newpass", "newpass"))
		store.AssertExpectations(t)
	})

	t.Run("no recovery session", func(t *testing.T) {
		m := newManager(new(MockAccountStore), new(MockMailer))
		err := m.CompletePasswordReset(ctx, "garbage-token", "newpass", "newpass")
		assert.ErrorIs(t, err, session.ErrInvalidSession)
	})

	t.Run("access token is not a recovery session", func(t *testing.T) {
		store := new(MockAccountStore)
		acc := testAccount(t, "user@example.com", "password123")
		store.On("GetByEmail", mock.Anything, "user@example.com").Return(acc, nil).Once()

		m := newManager(store, new(MockMailer))
		sess, err := m.SignInWithPassword(ctx, "user@example.com", "password123")
		require.NoError(t, err)

		err = m.CompletePasswordReset(ctx, sess.AccessToken, "newpass", "newpass")
		assert.ErrorIs(t, err, session.ErrInvalidSession)
	})

	t.Run("secret below 6 characters", func(t *testing.T) {
		m := newManager(new(MockAccountStore), new(MockMailer))
		recovery, err := tokenManager().GenerateRecoveryToken(uuid.NewString(), "user@example.com")
		require.NoError(t, err)

		err = m.CompletePasswordReset(ctx, recovery, "12345", "12345")
		assert.ErrorIs(t, err, session.ErrValidation)
	})

	t.Run("confirmation mismatch", func(t *testing.T) {
		m := newManager(new(MockAccountStore), new(MockMailer))
		recovery, err := tokenManager().GenerateRecoveryToken(uuid.NewString(), "user@example.com")
		require.NoError(t, err)

		err = m.CompletePasswordReset(ctx, recovery, "newpass", "different")
		assert.ErrorIs(t, err, session.ErrValidation)
	})
}

func TestSignOut(t *testing.T) {
	ctx := context.Background()
	store := new(MockAccountStore)
	acc := testAccount(t, "user@example.com", "password123")
	store.On("GetByEmail", mock.Anything, "user@example.com").Return(acc, nil).Once()

	m := newManager(store, new(MockMailer))
	sess, err := m.SignInWithPassword(ctx, "user@example.com", "password123")
	require.NoError(t, err)
	require.Equal(t, session.StateAuthenticated, m.StateOf("user@example.com"))

	changes := m.Subscribe()

	m.SignOut(sess.OwnerID, sess.Email)
	assert.Equal(t, session.StateAnonymous, m.StateOf("user@example.com"))

	change := <-changes
	assert.Equal(t, session.StateAnonymous, change.State)

	// Idempotent.
	m.SignOut(sess.OwnerID, sess.Email)
	assert.Equal(t, session.StateAnonymous, m.StateOf("user@example.com"))
}

func TestGetCurrentUser(t *testing.T) {
	ctx := context.Background()
	store := new(MockAccountStore)
	acc := testAccount(t, "user@example.com", "password123")
	store.On("GetByEmail", mock.Anything, "user@example.com").Return(acc, nil).Once()
	store.On("GetByID", mock.Anything, acc.ID).Return(acc, nil).Once()

	m := newManager(store, new(MockMailer))
	sess, err := m.SignInWithPassword(ctx, "user@example.com", "password123")
	require.NoError(t, err)

	got, err := m.GetCurrentUser(ctx, sess.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, acc.ID, got.ID)

	_, err = m.GetCurrentUser(ctx, "not-a-token")
	assert.ErrorIs(t, err, session.ErrInvalidSession)
}
