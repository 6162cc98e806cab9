package service

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"gatepass-backend/internal/domain"
)

type emailService struct {
	apiKey    string
	fromEmail string
	fromName  string
}

func NewEmailService(apiKey, fromEmail, fromName string) EmailService {
	return &emailService{
		apiKey:    apiKey,
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

func (s *emailService) SendPassIssued(ctx context.Context, to string, visit *domain.VisitPass, qrPNG []byte) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	recipient := mail.NewEmail(visit.VisitorName, to)

	subject := fmt.Sprintf("Visitor pass for %s", visit.VisitDate)
	plainText := fmt.Sprintf(
		"Hello %s,\n\nYour visitor pass for %s at %s is attached. Present the QR code at the security gate.\n\nVisiting: %s\nPurpose: %s\n",
		visit.VisitorName, visit.VisitDate, visit.VisitTime, visit.ResidentName, visit.Purpose,
	)
	htmlContent := fmt.Sprintf(
		"<p>Hello %s,</p><p>Your visitor pass for <strong>%s</strong> at %s is attached. Present the QR code at the security gate.</p><p>Visiting: %s<br>Purpose: %s</p>",
		visit.VisitorName, visit.VisitDate, visit.VisitTime, visit.ResidentName, visit.Purpose,
	)

	message := mail.NewSingleEmail(from, subject, recipient, plainText, htmlContent)

	attachment := mail.NewAttachment()
	attachment.SetContent(base64.StdEncoding.EncodeToString(qrPNG))
	attachment.SetType("image/png")
	attachment.SetFilename(fmt.Sprintf("visitor-qr-%s.png", visit.ID))
	attachment.SetDisposition("attachment")
	message.AddAttachment(attachment)

	client := sendgrid.NewSendClient(s.apiKey)
	response, err := client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send pass email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	return nil
}
