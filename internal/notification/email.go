package notification

import (
	"context"
	"fmt"
	"html"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SMTPConfig configures the SMTP email sender.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
}

// SMTPSender sends email through an SMTP relay.
type SMTPSender struct {
	config   SMTPConfig
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender creates an SMTP sender.
func NewSMTPSender(config SMTPConfig) *SMTPSender {
	return &SMTPSender{config: config, sendMail: smtp.SendMail}
}

func (s *SMTPSender) Name() string { return "smtp" }

// Send writes a multipart text/html message to the relay.
func (s *SMTPSender) Send(_ context.Context, msg Message) (*Delivery, error) {
	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	htmlBody := msg.HTML
	if htmlBody == "" {
		htmlBody = TextToHTML(msg.Text)
	}

	messageID := uuid.NewString()
	boundary := "cb-" + strings.ReplaceAll(messageID, "-", "")

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\nTo: %s\r\nSubject: %s\r\n", from, msg.To, msg.Subject)
	fmt.Fprintf(&b, "Message-ID: <%s@cloudboost>\r\n", messageID)
	if msg.ReplyTo != "" {
		fmt.Fprintf(&b, "Reply-To: %s\r\n", msg.ReplyTo)
	}
	fmt.Fprintf(&b, "MIME-Version: 1.0\r\nContent-Type: multipart/alternative; boundary=%s\r\n\r\n", boundary)
	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s\r\n", boundary, msg.Text)
	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s\r\n", boundary, htmlBody)
	fmt.Fprintf(&b, "--%s--\r\n", boundary)

	var auth smtp.Auth
	if s.config.User != "" {
		auth = smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)
	}
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	if err := s.sendMail(addr, auth, s.config.From, []string{msg.To}, []byte(b.String())); err != nil {
		return nil, fmt.Errorf("smtp send: %w", err)
	}

	return &Delivery{
		Provider:   s.Name(),
		ExternalID: messageID,
		Status:     StatusSent,
		SentAt:     time.Now().UTC(),
	}, nil
}

// TextToHTML wraps plain text paragraphs in a minimal HTML document.
func TextToHTML(text string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(html.EscapeString(para), "\n", "<br>"))
		b.WriteString("</p>")
	}
	b.WriteString("</body></html>")
	return b.String()
}
