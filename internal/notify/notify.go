package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dealerops/compliance-tracker/internal/domain"
	"github.com/resend/resend-go/v2"
)

type Message struct {
	Recipient string
	Subject   string
	Body      string
}

// Sender delivers a message over one channel. Implementations own their
// retries and timeouts; the dispatcher only records the outcome.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes the message to the log instead of delivering it. Used
// for every channel in ENV=local, and for channels without a real backend yet.
type LogSender struct {
	logger  *slog.Logger
	channel domain.Channel
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("reminder delivery (log channel)",
		"channel", s.channel, "to", msg.Recipient, "subject", msg.Subject)
	return nil
}

// ResendSender sends email via the Resend API. Used in staging/production.
type ResendSender struct {
	client *resend.Client
	from   string
}

func (s *ResendSender) Send(ctx context.Context, msg Message) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.Recipient},
		Subject: msg.Subject,
		Html:    msg.Body,
	}
	_, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

// Registry maps each delivery channel to its sender.
type Registry map[domain.Channel]Sender

func (r Registry) For(channel domain.Channel) (Sender, bool) {
	s, ok := r[channel]
	return s, ok
}

// NewRegistry wires every channel. Email goes through Resend outside of
// local; sms, push and in-app are log-backed until their providers land.
func NewRegistry(env, resendAPIKey, resendFrom string, logger *slog.Logger) Registry {
	reg := Registry{
		domain.ChannelSMS:   &LogSender{logger: logger, channel: domain.ChannelSMS},
		domain.ChannelPush:  &LogSender{logger: logger, channel: domain.ChannelPush},
		domain.ChannelInApp: &LogSender{logger: logger, channel: domain.ChannelInApp},
	}
	if env == "local" {
		reg[domain.ChannelEmail] = &LogSender{logger: logger, channel: domain.ChannelEmail}
	} else {
		reg[domain.ChannelEmail] = &ResendSender{
			client: resend.NewClient(resendAPIKey),
			from:   resendFrom,
		}
	}
	return reg
}
