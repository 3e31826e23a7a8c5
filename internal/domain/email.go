package domain

import "context"

// EmailAttachment is a file carried by an EmailMessage. A non-empty ContentID makes the
// attachment inline so the HTML body can reference it as cid:<ContentID>.
type EmailAttachment struct {
	Filename    string
	ContentType string
	ContentID   string
	Data        []byte
}

// EmailMessage is a rendered email ready to hand to a Mailer.
type EmailMessage struct {
	To          string
	Subject     string
	HTML        string
	Text        string
	Attachments []EmailAttachment
}

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(ctx context.Context, msg *EmailMessage) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// InvitationEmailData holds data for the guest invitation email.
type InvitationEmailData struct {
	Email         string
	GuestName     string
	EventName     string
	EventDate     string
	EventLocation string
	InviteCode    string
	// QRImageURL is the hosted invitation image. When empty the PNG is attached inline.
	QRImageURL string
	QRPNG      []byte
}

// EmailService defines the contract for sending domain-level emails.
type EmailService interface {
	SendInvitation(ctx context.Context, data *InvitationEmailData) error
}
