package mail

import (
	"context"

	"go.uber.org/zap"

	"github.com/ems-platform/auth-service/internal/domain/service"
)

// logMailer stands in when mail delivery is disabled. The code is logged so
// local development can complete the change-password flow without a mailbox.
type logMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) service.MailService {
	return &logMailer{logger: logger}
}

func (m *logMailer) SendOTPEmail(ctx context.Context, recipient, fullName, otpCode string) error {
	m.logger.Info("mail delivery disabled, otp not sent",
		zap.String("recipient", recipient),
		zap.String("code", otpCode))
	return nil
}

var _ service.MailService = (*logMailer)(nil)
