package email

import (
	"context"
	"fmt"
	"net/smtp"
	"sort"
	"strings"
)

// SMTPSender delivers plain-text notifications over a relay. Template
// refs select a subject/body skeleton; data fills the detail lines.
type SMTPSender struct {
	Addr     string
	From     string
	Username string
	Password string
}

func NewSMTPSender(addr, from, username, password string) (*SMTPSender, error) {
	if addr == "" {
		return nil, fmt.Errorf("smtp addr is required")
	}
	if from == "" {
		return nil, fmt.Errorf("smtp from is required")
	}
	return &SMTPSender{Addr: addr, From: from, Username: username, Password: password}, nil
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, templateRef string, data map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body := renderBody(templateRef, data)
	msg := strings.Join([]string{
		"From: " + s.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	var auth smtp.Auth
	if s.Username != "" {
		host := s.Addr
		if i := strings.LastIndex(host, ":"); i >= 0 {
			host = host[:i]
		}
		auth = smtp.PlainAuth("", s.Username, s.Password, host)
	}
	if err := smtp.SendMail(s.Addr, auth, s.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

func renderBody(templateRef string, data map[string]any) string {
	var b strings.Builder
	switch templateRef {
	case "signature_request":
		fmt.Fprintf(&b, "Hello %v,\n\nYou have been asked to sign %q.\n", data["recipient_name"], data["document_title"])
		if url, ok := data["signing_url"]; ok {
			fmt.Fprintf(&b, "\nOpen your signing link:\n%v\n", url)
		}
	case "signature_reminder":
		fmt.Fprintf(&b, "Hello %v,\n\nThis is a reminder that %q is waiting for your signature.\n", data["recipient_name"], data["document_title"])
		if url, ok := data["signing_url"]; ok {
			fmt.Fprintf(&b, "\nOpen your signing link:\n%v\n", url)
		}
	case "document_completed":
		fmt.Fprintf(&b, "The document %q has been signed by all parties.\n", data["document_title"])
	default:
		fmt.Fprintf(&b, "Notification for %q.\n", data["document_title"])
		keys := make([]string, 0, len(data))
		for k := range data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "%s: %v\n", k, data[k])
		}
	}
	return b.String()
}
