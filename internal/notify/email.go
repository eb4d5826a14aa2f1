package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"html"
	"net"
	"net/smtp"
	"strings"

	"github.com/onnwee/reddit-pulse/internal/alert"
	"github.com/onnwee/reddit-pulse/internal/config"
)

// Email delivers alerts over SMTP as multipart/alternative messages. With
// SMTP_USE_TLS the connection must upgrade via STARTTLS or the send fails;
// without it smtp.SendMail negotiates TLS opportunistically.
type Email struct {
	host     string
	port     int
	user     string
	password string
	from     string
	to       []string

	// send is swapped out in tests.
	send func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmail() *Email {
	cfg := config.Load()
	send := smtp.SendMail
	if cfg.SMTPUseTLS {
		send = sendMailStartTLS
	}
	return &Email{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     cfg.SMTPFrom,
		to:       []string{cfg.SMTPFrom},
		send:     send,
	}
}

// sendMailStartTLS mirrors smtp.SendMail but refuses to continue on a
// connection the server will not upgrade to TLS.
func sendMailStartTLS(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	c, err := smtp.Dial(addr)
	if err != nil {
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); !ok {
		return fmt.Errorf("smtp server %s does not support STARTTLS", host)
	}
	if err := c.StartTLS(&tls.Config{ServerName: host}); err != nil {
		return err
	}
	if auth != nil {
		if err := c.Auth(auth); err != nil {
			return err
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

// SetRecipients overrides the delivery list (defaults to the from address).
func (e *Email) SetRecipients(to []string) { e.to = to }

func (e *Email) Name() string { return "email" }

func (e *Email) Send(ctx context.Context, a alert.Alert) error {
	if len(e.to) == 0 {
		return fmt.Errorf("no recipients configured")
	}
	var auth smtp.Auth
	if e.user != "" {
		auth = smtp.PlainAuth("", e.user, e.password, e.host)
	}
	addr := fmt.Sprintf("%s:%d", e.host, e.port)
	msg := buildEmailMessage(e.from, e.to, a)
	if err := e.send(addr, auth, e.from, e.to, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

const emailBoundary = "reddit-pulse-alert"

// buildEmailMessage renders a multipart/alternative message with plain-text
// and HTML bodies.
func buildEmailMessage(from string, to []string, a alert.Alert) []byte {
	subject := fmt.Sprintf("[reddit-pulse] %s in r/%s", a.Type, a.Subreddit)

	plain := fmt.Sprintf("%s\r\nrule: %s\r\ntime: %s\r\n",
		a.Message, a.RuleName, a.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	htmlBody := fmt.Sprintf(
		"<html><body><h3>%s</h3><p>rule: <b>%s</b><br>time: %s</p></body></html>",
		html.EscapeString(a.Message), html.EscapeString(a.RuleName),
		a.CreatedAt.Format("2006-01-02 15:04:05 MST"))

	var sb strings.Builder
	fmt.Fprintf(&sb, "From: %s\r\n", from)
	fmt.Fprintf(&sb, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&sb, "Subject: %s\r\n", subject)
	sb.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&sb, "Content-Type: multipart/alternative; boundary=%q\r\n", emailBoundary)
	sb.WriteString("\r\n")

	fmt.Fprintf(&sb, "--%s\r\n", emailBoundary)
	sb.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	sb.WriteString(plain)
	sb.WriteString("\r\n")

	fmt.Fprintf(&sb, "--%s\r\n", emailBoundary)
	sb.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	sb.WriteString(htmlBody)
	sb.WriteString("\r\n")

	fmt.Fprintf(&sb, "--%s--\r\n", emailBoundary)
	return []byte(sb.String())
}
