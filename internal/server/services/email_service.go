package services

import (
	"fmt"
	"html"
	"os"
	"strings"

	"github.com/resendlabs/resend-go"

	"github.com/KyooRuss/Parking-Management/pkg/models"
)

// Alerter notifies operators about inconsistencies between slot state and
// the log.
type Alerter interface {
	SendLogGapAlert(slotID string, status models.LogStatus, cause error) error
	SendReconcileReport(discrepancies []models.Discrepancy) error
}

type EmailService struct {
	client     *resend.Client
	fromEmail  string
	recipients []string
}

func NewEmailService(apiKey, fromEmail string, recipients []string) (*EmailService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("RESEND_API_KEY environment variable not set")
	}
	if len(recipients) == 0 {
		return nil, fmt.Errorf("ALERT_EMAILS environment variable not set")
	}
	if fromEmail == "" {
		fromEmail = "noreply@parking.local"
	}

	return &EmailService{
		client:     resend.NewClient(apiKey),
		fromEmail:  fromEmail,
		recipients: recipients,
	}, nil
}

func (s *EmailService) SendLogGapAlert(slotID string, status models.LogStatus, cause error) error {
	subject := fmt.Sprintf("Parking log missing %s entry for slot %s", status, slotID)
	body := fmt.Sprintf(`
			<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
				<h2 style="color: #333;">Slot %s changed without a log entry</h2>
				<p>The slot transition was committed but the %s record could not be written.</p>
				<p style="color: #666;">Error: <code>%s</code></p>
				<p style="color: #666;">Run <code>parking-server admin reconcile</code> to review open gaps.</p>
			</div>
		`, html.EscapeString(slotID), status, html.EscapeString(cause.Error()))
	return s.send(subject, body)
}

func (s *EmailService) SendReconcileReport(discrepancies []models.Discrepancy) error {
	var rows strings.Builder
	for _, d := range discrepancies {
		fmt.Fprintf(&rows, "<tr><td>%s</td><td>%s</td><td>%s</td></tr>",
			html.EscapeString(d.SlotID), html.EscapeString(d.VehicleID), html.EscapeString(d.Reason))
	}

	subject := fmt.Sprintf("Parking reconciliation: %d slot(s) need attention", len(discrepancies))
	body := fmt.Sprintf(`
			<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
				<h2 style="color: #333;">Reconciliation report</h2>
				<table style="border-collapse: collapse; width: 100%%;">
					<tr><th align="left">Slot</th><th align="left">Vehicle</th><th align="left">Problem</th></tr>
					%s
				</table>
			</div>
		`, rows.String())
	return s.send(subject, body)
}

func (s *EmailService) send(subject, body string) error {
	// Skip email sending in test mode
	if os.Getenv("SKIP_EMAIL_SEND") == "true" {
		return nil
	}

	params := &resend.SendEmailRequest{
		From:    s.fromEmail,
		To:      s.recipients,
		Subject: subject,
		Html:    body,
	}

	_, err := s.client.Emails.Send(params)
	return err
}
