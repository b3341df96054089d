package email

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
)

// EmailConfig holds SMTP configuration
type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromName     string
	FromEmail    string
	FrontendURL  string
}

// EmailService handles email sending
type EmailService struct {
	config EmailConfig
}

// NewEmailService creates a new email service
func NewEmailService(config EmailConfig) *EmailService {
	return &EmailService{config: config}
}

// IsConfigured reports whether SMTP credentials are present
func (s *EmailService) IsConfigured() bool {
	return s.config.SMTPHost != "" && s.config.FromEmail != ""
}

// InvoiceIssuedData holds the fields rendered into the invoice notification
type InvoiceIssuedData struct {
	CustomerName string
	InvoiceNo    string
	InvoiceDate  string
	Total        string
	BusinessName string
}

var invoiceIssuedTmpl = template.Must(template.New("invoice_issued").Parse(`
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
	<h2>Invoice {{.InvoiceNo}}</h2>
	<p>Hello {{.CustomerName}},</p>
	<p>{{.BusinessName}} has issued invoice <strong>{{.InvoiceNo}}</strong>
	dated {{.InvoiceDate}} for a total of <strong>{{.Total}}</strong>.</p>
	<p>Please get in touch if anything on the invoice looks wrong.</p>
</body>
</html>
`))

// SendInvoiceIssued sends an invoice-issued notification to a customer
func (s *EmailService) SendInvoiceIssued(toEmail string, data InvoiceIssuedData) error {
	var body bytes.Buffer
	if err := invoiceIssuedTmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	subject := fmt.Sprintf("Invoice %s from %s", data.InvoiceNo, data.BusinessName)
	message := s.buildHTMLEmail(toEmail, subject, body.String())

	return s.sendEmail(toEmail, message)
}

// sendEmail sends an email using SMTP
func (s *EmailService) sendEmail(to string, message []byte) error {
	addr := fmt.Sprintf("%s:%d", s.config.SMTPHost, s.config.SMTPPort)
	auth := smtp.PlainAuth("", s.config.SMTPUsername, s.config.SMTPPassword, s.config.SMTPHost)

	if err := smtp.SendMail(addr, auth, s.config.FromEmail, []string{to}, message); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// buildHTMLEmail builds an HTML email message
func (s *EmailService) buildHTMLEmail(to, subject, htmlBody string) []byte {
	headers := fmt.Sprintf(
		"From: %s <%s>\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=\"UTF-8\"\r\n"+
			"\r\n",
		s.config.FromName,
		s.config.FromEmail,
		to,
		subject,
	)
	return []byte(headers + htmlBody)
}
