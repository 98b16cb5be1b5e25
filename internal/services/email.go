package services

import (
	"context"
	"fmt"
	"log/slog"

	"eventsphere/internal/domain"
)

type emailService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
	logger   *slog.Logger
}

// NewEmailService returns an EmailService that uses the given Mailer and template renderer.
func NewEmailService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer, logger *slog.Logger) domain.EmailService {
	return &emailService{mailer: mailer, renderer: renderer, logger: logger}
}

// send renders the named template with data and mails it to the given address.
func (s *emailService) send(ctx context.Context, template, to string, data any) error {
	if to == "" {
		return fmt.Errorf("%s email: missing recipient address", template)
	}
	subject, htmlBody, textBody, err := s.renderer.Render(template, data)
	if err != nil {
		return fmt.Errorf("failed to render %s template: %w", template, err)
	}
	if err := s.mailer.Send(to, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send %s email: %w", template, err)
	}
	s.logger.InfoContext(ctx, "email sent", "template", template, "to", to)
	return nil
}

// SendRegistrationReceived tells the organizer that a participant registered.
func (s *emailService) SendRegistrationReceived(ctx context.Context, data *domain.RegistrationEmailData) error {
	if data == nil {
		return fmt.Errorf("registration email data is nil")
	}
	return s.send(ctx, "registration_received", data.Email, data)
}

// SendRegistrationApproved tells the participant their seat is confirmed.
func (s *emailService) SendRegistrationApproved(ctx context.Context, data *domain.RegistrationEmailData) error {
	if data == nil {
		return fmt.Errorf("registration email data is nil")
	}
	return s.send(ctx, "registration_approved", data.Email, data)
}

func (s *emailService) SendRegistrationRejected(ctx context.Context, data *domain.RegistrationEmailData) error {
	if data == nil {
		return fmt.Errorf("registration email data is nil")
	}
	return s.send(ctx, "registration_rejected", data.Email, data)
}

// SendEventCreated confirms to the organizer that the event awaits review.
func (s *emailService) SendEventCreated(ctx context.Context, data *domain.EventEmailData) error {
	if data == nil {
		return fmt.Errorf("event email data is nil")
	}
	return s.send(ctx, "event_created", data.Email, data)
}

func (s *emailService) SendEventReviewed(ctx context.Context, data *domain.EventEmailData) error {
	if data == nil {
		return fmt.Errorf("event email data is nil")
	}
	return s.send(ctx, "event_reviewed", data.Email, data)
}

// SendEventUpdated tells an approved participant that the event details changed.
func (s *emailService) SendEventUpdated(ctx context.Context, data *domain.RegistrationEmailData) error {
	if data == nil {
		return fmt.Errorf("registration email data is nil")
	}
	return s.send(ctx, "event_updated", data.Email, data)
}
