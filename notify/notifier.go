package notify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/warp/hr-engine/leave"
)

// MailNotifier sends notifications through a Mailer.
type MailNotifier struct {
	mailer Mailer
	from   string
}

func NewMailNotifier(mailer Mailer, from string) *MailNotifier {
	return &MailNotifier{mailer: mailer, from: from}
}

// Notify skips recipients without an address.
func (m *MailNotifier) Notify(ctx context.Context, n leave.Notification) error {
	if n.Recipient.Email == "" {
		return nil
	}
	body := n.Body
	if n.Recipient.Name != "" {
		body = fmt.Sprintf("Hello %s,\r\n\r\n%s", n.Recipient.Name, n.Body)
	}
	if err := m.mailer.Send(ctx, m.from, n.Recipient.Email, n.Subject, body); err != nil {
		return fmt.Errorf("mail %s about %s %s: %w", n.Recipient.Email, n.Related.Kind, n.Related.ID, err)
	}
	return nil
}

// LogNotifier writes every notification to the log.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (l *LogNotifier) Notify(_ context.Context, n leave.Notification) error {
	l.log.Info("notification",
		zap.String("recipient", n.Recipient.Email),
		zap.String("staff_id", string(n.Recipient.StaffID)),
		zap.String("subject", n.Subject),
		zap.String("kind", n.Related.Kind),
		zap.String("request_id", n.Related.ID),
		zap.String("status", string(n.Related.Status)))
	return nil
}

// Multi fans a notification out to every notifier and joins their errors.
type Multi []leave.Notifier

func (m Multi) Notify(ctx context.Context, n leave.Notification) error {
	var errs []error
	for _, notifier := range m {
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ leave.Notifier = (*MailNotifier)(nil)
	_ leave.Notifier = (*LogNotifier)(nil)
	_ leave.Notifier = Multi(nil)
)
