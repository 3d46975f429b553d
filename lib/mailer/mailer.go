package mailer

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("radarbot.lib.mailer")

type SmtpConfig struct {
	Server       string `json:"server"`
	Port         int    `json:"port"`
	EmailAddress string `json:"email_address"`
	Password     string `json:"password"`
	// FromName is shown in front of the sender address, "Radar Bot" when empty.
	FromName string `json:"from_name"`
}

func (c SmtpConfig) Configured() bool {
	return c.Server != "" && c.EmailAddress != ""
}

type Attachment struct {
	FileName    string
	ContentType string
	Content     []byte
}

type Mail struct {
	To          []string
	Subject     string
	Text        string
	Attachments []Attachment
}

type Mailer struct {
	config SmtpConfig
}

func New(config SmtpConfig) (Mailer, error) {
	if !config.Configured() {
		return Mailer{}, fmt.Errorf("mailer: smtp server and sender address are required")
	}
	if config.Port == 0 {
		config.Port = 587
	}
	if config.FromName == "" {
		config.FromName = "Radar Bot"
	}
	return Mailer{config: config}, nil
}

func (m Mailer) addr() string {
	return fmt.Sprintf("%s:%d", m.config.Server, m.config.Port)
}

func (m Mailer) Send(ctx context.Context, mail Mail) error {
	_, span := tracer.Start(ctx, "Send", trace.WithAttributes(
		attribute.Int("recipients", len(mail.To)),
		attribute.Int("attachments", len(mail.Attachments)),
	))
	defer span.End()

	if len(mail.To) == 0 {
		return fmt.Errorf("mailer: no recipients")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e := email.NewEmail()
	e.From = fmt.Sprintf("%s <%s>", m.config.FromName, m.config.EmailAddress)
	e.To = mail.To
	e.Subject = mail.Subject
	e.Text = []byte(mail.Text)
	for _, a := range mail.Attachments {
		contentType := a.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		_, err := e.Attach(bytes.NewReader(a.Content), a.FileName, contentType)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to attach file")
			return fmt.Errorf("mailer: attach %s: %w", a.FileName, err)
		}
	}

	var auth smtp.Auth
	if m.config.Password != "" {
		auth = smtp.PlainAuth("", m.config.EmailAddress, m.config.Password, m.config.Server)
	}
	err := e.Send(m.addr(), auth)
	if err != nil && auth != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = e.Send(m.addr(), nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return fmt.Errorf("mailer: send: %w", err)
	}
	return nil
}
