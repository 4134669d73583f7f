// Package email delivers transactional mail through the Resend API.
// When the email section of the config is disabled the service logs the
// message instead of sending, which keeps local development keyless.
package email

import (
	"bytes"
	"fmt"
	"html/template"
	"net/mail"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"

	"github.com/nariz-encantado/server/internal/config"
	"github.com/nariz-encantado/server/internal/validation"
)

type Service struct {
	config       config.EmailConfig
	resendClient *resend.Client
	templates    *template.Template
	logger       zerolog.Logger
}

// PasswordResetData holds data for rendering the password-reset template.
type PasswordResetData struct {
	ResetLink   string
	CurrentYear int
}

func NewService(cfg config.EmailConfig, logger zerolog.Logger) (*Service, error) {
	if cfg.Enabled {
		if err := validateEmailAddress(cfg.From); err != nil {
			return nil, fmt.Errorf("invalid sender email in config: %w", err)
		}
	}

	templates, err := template.New("email").Parse(passwordResetTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}

	svc := &Service{
		config:    cfg,
		templates: templates,
		logger:    logger.With().Str("component", "email").Logger(),
	}
	if cfg.Enabled {
		svc.resendClient = resend.NewClient(cfg.APIKey)
	}
	return svc, nil
}

// SendPasswordReset mails a reset link to a volunteer.
func (s *Service) SendPasswordReset(to, resetLink string) error {
	if err := validateEmailAddress(to); err != nil {
		return fmt.Errorf("invalid recipient email: %w", err)
	}
	// Non-HTTP schemes (javascript:, data:) would turn a poisoned base URL
	// into an XSS vector inside the email.
	if err := validation.HTTPURL(resetLink, "reset_link"); err != nil {
		return fmt.Errorf("invalid reset link: %w", err)
	}

	if !s.config.Enabled {
		s.logger.Info().
			Str("to", to).
			Str("link", resetLink).
			Msg("email service disabled, skipping password reset email")
		return nil
	}

	data := PasswordResetData{
		ResetLink:   resetLink,
		CurrentYear: time.Now().Year(),
	}
	var body bytes.Buffer
	if err := s.templates.ExecuteTemplate(&body, "password_reset", data); err != nil {
		return fmt.Errorf("render password reset template: %w", err)
	}

	if err := s.send(to, "Nariz Encantado - Redefinição de Senha", body.String()); err != nil {
		return fmt.Errorf("send password reset email: %w", err)
	}

	s.logger.Info().Str("to", to).Msg("password reset email sent")
	return nil
}

func (s *Service) send(to, subject, htmlBody string) error {
	if s.resendClient == nil {
		return fmt.Errorf("resend client not initialized")
	}

	params := &resend.SendEmailRequest{
		From:    s.config.From,
		To:      []string{to},
		Subject: subject,
		Html:    htmlBody,
	}

	sent, err := s.resendClient.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("resend API error: %w", err)
	}

	s.logger.Debug().Str("email_id", sent.Id).Str("to", to).Msg("email sent via Resend")
	return nil
}

// validateEmailAddress checks format and header injection attempts.
func validateEmailAddress(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return fmt.Errorf("invalid email format: %w", err)
	}
	if strings.ContainsAny(addr.Address, "\r\n") {
		return fmt.Errorf("invalid email address: contains newline characters")
	}
	return nil
}

const passwordResetTemplate = `{{define "password_reset"}}<!DOCTYPE html>
<html lang="pt-BR">
<body style="font-family: sans-serif; color: #333;">
  <h2>Redefinição de senha</h2>
  <p>Recebemos um pedido para redefinir a sua senha. Clique no link abaixo para escolher uma nova:</p>
  <p><a href="{{.ResetLink}}">Redefinir minha senha</a></p>
  <p>Se você não pediu a redefinição, ignore este email.</p>
  <p style="color: #888; font-size: 12px;">&copy; {{.CurrentYear}} Nariz Encantado</p>
</body>
</html>{{end}}`
