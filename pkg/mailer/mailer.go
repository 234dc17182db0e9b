// Package mailer delivers aggregated messages over SMTP.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tell-all/pkg/config"

	"github.com/wneessen/go-mail"
)

var (
	ErrNoRecipients   = errors.New("mail has no recipients")
	ErrInvalidAddress = errors.New("invalid mail address")
)

type Message struct {
	To      []string
	Subject string
	Body    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func NewSMTPSender(cfg *config.Config) *SMTPSender {
	return &SMTPSender{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     cfg.SMTPFrom,
	}
}

// Send delivers one message to every recipient with the body attached as
// plain text and as an HTML alternative.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m, err := BuildMessage(s.from, msg)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(s.port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if s.username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.username),
			mail.WithPassword(s.password),
		)
	}

	client, err := mail.NewClient(s.host, opts...)
	if err != nil {
		return fmt.Errorf("failed to create smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}

// BuildMessage drops blank addresses and fails when none remain.
func BuildMessage(from string, msg Message) (*mail.Msg, error) {
	recipients := CleanRecipients(msg.To)
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}

	m := mail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("%w: sender %q: %v", ErrInvalidAddress, from, err)
	}
	if err := m.To(recipients...); err != nil {
		return nil, fmt.Errorf("%w: recipient: %v", ErrInvalidAddress, err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)
	m.AddAlternativeString(mail.TypeTextHTML, msg.Body)
	return m, nil
}

// IsPermanent reports whether retrying a failed Send can never succeed:
// bad addresses, and SMTP rejections the server marked as permanent (5xx).
// Connection failures carry no server code and stay retryable.
func IsPermanent(err error) bool {
	if errors.Is(err, ErrNoRecipients) || errors.Is(err, ErrInvalidAddress) {
		return true
	}
	var sendErr *mail.SendError
	if !errors.As(err, &sendErr) || sendErr.IsTemp() {
		return false
	}
	switch sendErr.Reason {
	case mail.ErrGetSender, mail.ErrGetRcpts, mail.ErrNoUnencoded:
		return true
	}
	return sendErr.ErrorCode() >= 500
}

func CleanRecipients(addrs []string) []string {
	seen := make(map[string]struct{}, len(addrs))
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}
