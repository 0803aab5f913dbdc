package service

import "context"

// MailService delivers notification mail. Senders are fire-and-forget from the
// business logic's perspective: an error means dispatch failed, not that
// delivery is guaranteed on success.
type MailService interface {
	SendOTPEmail(ctx context.Context, recipient, fullName, otpCode string) error
}
