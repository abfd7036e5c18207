package events

import (
	"context"
	"crypto/tls"
	"fmt"
	"html"

	"techatlas/internal/models"

	"gopkg.in/gomail.v2"
)

// SMTPConfig holds the outgoing mail server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// EmailLookup resolves a user id to an address. An empty address skips the mail.
type EmailLookup func(ctx context.Context, userID uint) (string, error)

type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// MailSink emails reviewers about new submissions and submitters about
// moderation decisions.
type MailSink struct {
	dialer mailDialer
	from   string
	admins []string
	lookup EmailLookup
}

// NewMailSink returns a sink sending through cfg.
func NewMailSink(cfg SMTPConfig, admins []string, lookup EmailLookup) *MailSink {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return &MailSink{dialer: d, from: from, admins: admins, lookup: lookup}
}

func (s *MailSink) Name() string { return "email" }

func (s *MailSink) Deliver(ctx context.Context, ev ContentEvent) error {
	var to []string
	var subject, body string

	switch ev.Type {
	case Submitted:
		if len(s.admins) == 0 {
			return nil
		}
		to = s.admins
		subject = fmt.Sprintf("[Tech Atlas] New %s submission: %s", singular(ev), ev.Title)
		body = fmt.Sprintf("<p>A new %s <b>%s</b> is waiting for review.</p>", singular(ev), html.EscapeString(ev.Title))
	case Approved, Rejected:
		if ev.CreatedBy == 0 || s.lookup == nil {
			return nil
		}
		addr, err := s.lookup(ctx, ev.CreatedBy)
		if err != nil {
			return fmt.Errorf("lookup submitter: %w", err)
		}
		if addr == "" {
			return nil
		}
		to = []string{addr}
		subject = fmt.Sprintf("[Tech Atlas] Your submission was %s", ev.Type)
		body = fmt.Sprintf("<p>Your submission <b>%s</b> was %s by a moderator.</p>", html.EscapeString(ev.Title), ev.Type)
	default:
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)
	return s.dialer.DialAndSend(m)
}

func singular(ev ContentEvent) string {
	if info, ok := models.LookupKind(string(ev.Kind)); ok {
		return info.Singular
	}
	return string(ev.Kind)
}
