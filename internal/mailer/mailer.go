package mailer

import "context"

// Mailer delivers the authentication emails. Delivery failures surface to
// the session manager as ErrDelivery; nothing here retries.
type Mailer interface {
	SendSignInLink(ctx context.Context, email, link string) error
	SendPasswordReset(ctx context.Context, email, link string) error
	SendVerification(ctx context.Context, email, link string) error
}
