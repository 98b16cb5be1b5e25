package domain

import "context"

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// RegistrationEmailData holds data for registration lifecycle emails.
type RegistrationEmailData struct {
	Email           string
	RecipientName   string
	ParticipantName string
	EventTitle      string
	EventDate       string
	StartTime       string
	Venue           string
	EventURL        string
}

// EventEmailData holds data for emails about an event's review state.
type EventEmailData struct {
	Email      string
	Organizer  string
	EventTitle string
	EventDate  string
	Status     string
	EventURL   string
}

// EmailService defines the contract for sending domain-level emails.
type EmailService interface {
	SendRegistrationReceived(ctx context.Context, data *RegistrationEmailData) error
	SendRegistrationApproved(ctx context.Context, data *RegistrationEmailData) error
	SendRegistrationRejected(ctx context.Context, data *RegistrationEmailData) error
	SendEventCreated(ctx context.Context, data *EventEmailData) error
	SendEventReviewed(ctx context.Context, data *EventEmailData) error
	SendEventUpdated(ctx context.Context, data *RegistrationEmailData) error
}
