package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Meekdavid/django-jwt-auth-service/internal/core/port"
	"github.com/Meekdavid/django-jwt-auth-service/internal/infra/logger"
)

// LogNotifier records reset dispatches in the application log instead of
// sending mail. It stands in for a real delivery channel in development and
// keeps the raw token out of log output.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier constructs a LogNotifier.
func NewLogNotifier(log *zap.Logger) *LogNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogNotifier{logger: log}
}

// SendPasswordReset logs that a reset notification would have been delivered.
func (n *LogNotifier) SendPasswordReset(_ context.Context, email, _ string, expiresAt time.Time) error {
	n.logger.Info("password reset notification dispatched",
		zap.String("email", logger.MaskEmail(email)),
		zap.Time("expires_at", expiresAt),
	)
	return nil
}

var _ port.ResetNotifier = (*LogNotifier)(nil)
