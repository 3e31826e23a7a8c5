package services

import (
	"context"
	"fmt"
	"log/slog"

	"guestcheckin/internal/domain"
)

// invitationImageCID is the content id of the inline QR image in invitation mails.
const invitationImageCID = "invitation-qr"

type emailService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
	logger   *slog.Logger
}

// NewEmailService returns an EmailService that uses the given Mailer and template renderer.
func NewEmailService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer, logger *slog.Logger) domain.EmailService {
	return &emailService{mailer: mailer, renderer: renderer, logger: logger}
}

type invitationTemplateData struct {
	*domain.InvitationEmailData
	QRImageSrc string
}

// SendInvitation sends the guest invitation using the "invitation" template. Without a hosted
// image URL the QR code is attached inline.
func (s *emailService) SendInvitation(ctx context.Context, data *domain.InvitationEmailData) error {
	if data == nil {
		return fmt.Errorf("invitation data is nil")
	}
	tmplData := invitationTemplateData{InvitationEmailData: data, QRImageSrc: data.QRImageURL}
	msg := &domain.EmailMessage{To: data.Email}
	if data.QRImageURL == "" && len(data.QRPNG) > 0 {
		tmplData.QRImageSrc = "cid:" + invitationImageCID
		msg.Attachments = []domain.EmailAttachment{{
			Filename:    "invitation.png",
			ContentType: "image/png",
			ContentID:   invitationImageCID,
			Data:        data.QRPNG,
		}}
	}

	var err error
	msg.Subject, msg.HTML, msg.Text, err = s.renderer.Render("invitation", tmplData)
	if err != nil {
		return fmt.Errorf("failed to render invitation template: %w", err)
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send invitation email: %w", err)
	}
	s.logger.InfoContext(ctx, "invitation email sent", "email", data.Email)
	return nil
}
