// Package notify delivers notification events to people: push and SMS via
// the push gateway webhook, email via SMTP. Delivery is best-effort; failures
// are logged and reported to the caller but never retried here.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pkordes/showing-tours/internal/domain"
)

// ContactSource resolves a user to the addresses they can be reached at.
// repo.UserRepo satisfies this interface.
type ContactSource interface {
	GetContact(ctx context.Context, userID uuid.UUID) (domain.Contact, error)
}

// Pusher sends one push or SMS message.
type Pusher interface {
	Send(ctx context.Context, msg PushMessage) error
}

// Mailer sends one plain-text email.
type Mailer interface {
	SendMail(to string, email domain.Email) error
}

// Dispatcher fans a Notification out to every channel the recipient has.
type Dispatcher struct {
	contacts ContactSource
	push     Pusher
	mail     Mailer
	log      *slog.Logger
}

// NewDispatcher creates a Dispatcher. push and mail may be nil, which
// disables that channel.
func NewDispatcher(contacts ContactSource, push Pusher, mail Mailer, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{contacts: contacts, push: push, mail: mail, log: log}
}

// Deliver sends n on every available channel. Every channel is attempted; the
// returned error joins all channel failures.
func (d *Dispatcher) Deliver(ctx context.Context, n domain.Notification) error {
	contact, err := d.contacts.GetContact(ctx, n.UserID)
	if err != nil {
		return fmt.Errorf("notify.Dispatcher.Deliver: contact: %w", err)
	}

	var errs []error
	if d.push != nil && n.PushMessage != "" {
		for _, token := range contact.PushTokens {
			err := d.push.Send(ctx, PushMessage{
				Channel: ChannelPush,
				To:      token,
				Body:    n.PushMessage,
				Routing: n.Routing,
			})
			if err != nil {
				errs = append(errs, fmt.Errorf("push: %w", err))
			}
		}
	}
	if d.push != nil && n.SMSMessage != "" && contact.Phone != "" {
		if err := d.push.Send(ctx, PushMessage{Channel: ChannelSMS, To: contact.Phone, Body: n.SMSMessage}); err != nil {
			errs = append(errs, fmt.Errorf("sms: %w", err))
		}
	}
	if d.mail != nil && n.Email != nil && contact.Email != "" {
		if err := d.mail.SendMail(contact.Email, *n.Email); err != nil {
			errs = append(errs, fmt.Errorf("email: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		d.log.WarnContext(ctx, "notification partially delivered",
			slog.String("user_id", n.UserID.String()),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("notify.Dispatcher.Deliver: %w", err)
	}
	return nil
}
