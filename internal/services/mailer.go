package services

import (
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// Mailer delivers password reset links.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, name, resetURL string) error
}

var resetTemplate = template.Must(template.New("reset").Parse(`<p>Hi {{.Name}},</p>
<p>Forgot your password? Use the link below to choose a new one. The link expires shortly.</p>
<p><a href="{{.URL}}">{{.URL}}</a></p>
<p>If you didn't ask for this, you can ignore this email.</p>`))

// SMTPMailer sends mail through an SMTP relay.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(host string, port int, user, password, from string) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, user, password),
		from:   from,
	}
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, name, resetURL string) error {
	var body strings.Builder
	if err := resetTemplate.Execute(&body, struct{ Name, URL string }{name, resetURL}); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Your password reset token (valid for a short time)")
	msg.SetBody("text/plain", fmt.Sprintf("Forgot your password? Reset it here: %s\nIf you didn't forget your password, please ignore this email.", resetURL))
	msg.AddAlternative("text/html", body.String())

	if err := ctx.Err(); err != nil {
		return err
	}
	return m.dialer.DialAndSend(msg)
}

// LogMailer writes reset links to the log. Used in development when SMTP is not configured.
type LogMailer struct {
	Log logrus.FieldLogger
}

func (m LogMailer) SendPasswordReset(_ context.Context, to, _ string, resetURL string) error {
	m.Log.WithFields(logrus.Fields{"to": to, "url": resetURL}).Info("password reset email (not sent, SMTP disabled)")
	return nil
}
