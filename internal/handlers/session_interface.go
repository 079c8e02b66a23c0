package handlers

import (
	"context"

	"dayplanner/internal/models/account"
	"dayplanner/internal/session"

	"github.com/google/uuid"
)

type SessionService interface {
	SignUp(ctx context.Context, displayName, email, secret string) (*account.Account, error)
	SignInWithPassword(ctx context.Context, email, secret string) (*session.Session, error)
	SendSignInLink(ctx context.Context, email string) error
	RedeemSignInLink(ctx context.Context, token string) (*session.Session, error)
	VerifyAccount(ctx context.Context, token string) error
	RequestPasswordReset(ctx context.Context, email string) error
	RedeemPasswordReset(ctx context.Context, token string) (*session.Session, error)
	CompletePasswordReset(ctx context.Context, recoveryToken, newSecret, confirm string) error
	SignOut(ownerID uuid.UUID, email string)
	GetCurrentUser(ctx context.Context, accessToken string) (*account.Account, error)
}
