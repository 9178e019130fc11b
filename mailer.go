package auth

import (
	"context"
	"fmt"
)

// LogMailer writes outbound notifications to the logger instead of a real
// transport. Hosts plug their own Mailer; email is best effort notification,
// never a consistency dependency, so send failures are logged and do not
// fail the triggering operation.
type LogMailer struct {
	logger Logger
}

var _ Mailer = (*LogMailer)(nil)

func NewLogMailer(logger Logger) *LogMailer {
	if logger == nil {
		logger = defLogger{}
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, to, subject, body, link string) error {
	m.logger.Info("outbound email to=%s subject=%q body=%q link=%s", to, subject, body, link)
	return nil
}

// ConfirmationLink builds the token bearing URL embedded in outbound email.
func ConfirmationLink(base, token string) string {
	return fmt.Sprintf("%s?token=%s", base, token)
}
