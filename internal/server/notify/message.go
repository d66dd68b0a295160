// Package notify sends the confirmation e-mail that follows a registration.
// Delivery is best effort: callers log a failure and move on.
package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"mime"
	"mime/quotedprintable"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"github.com/dmitrijs2005/eventsignup/internal/server/models"
)

const Subject = "Registration confirmed"

//go:embed templates/confirmation.html
var templatesFS embed.FS

var confirmationTmpl = template.Must(template.ParseFS(templatesFS, "templates/confirmation.html"))

type Notifier interface {
	Name() string
	SendConfirmation(ctx context.Context, p models.Participant) error
}

// Sender is the identity confirmation messages are sent as.
type Sender struct {
	From     string
	FromName string
	ReplyTo  string
}

type Message struct {
	From string
	To   string
	// Raw is the full RFC 5322 message, CRLF line endings.
	Raw []byte
}

// BuildMessage renders the confirmation for p.
func BuildMessage(s Sender, p models.Participant, now time.Time) (Message, error) {
	var html bytes.Buffer
	err := confirmationTmpl.Execute(&html, struct {
		Subject string
		From    string
		P       models.Participant
	}{Subject, s.From, p})
	if err != nil {
		return Message{}, fmt.Errorf("render confirmation: %w", err)
	}

	var raw bytes.Buffer
	header := func(k, v string) {
		raw.WriteString(k + ": " + v + "\r\n")
	}
	header("MIME-Version", "1.0")
	header("Date", now.Format(time.RFC1123Z))
	header("From", formatAddress(s.FromName, s.From))
	header("To", p.Email)
	if s.ReplyTo != "" {
		header("Reply-To", s.ReplyTo)
	}
	header("Subject", mime.BEncoding.Encode("UTF-8", Subject))
	header("Content-Type", "text/html; charset=UTF-8")
	header("Content-Transfer-Encoding", "quoted-printable")
	raw.WriteString("\r\n")

	qp := quotedprintable.NewWriter(&raw)
	body := strings.ReplaceAll(html.String(), "\r\n", "\n")
	if _, err := qp.Write([]byte(strings.ReplaceAll(body, "\n", "\r\n"))); err != nil {
		return Message{}, err
	}
	if err := qp.Close(); err != nil {
		return Message{}, err
	}

	return Message{From: s.From, To: p.Email, Raw: raw.Bytes()}, nil
}

func formatAddress(name, addr string) string {
	if name == "" {
		return addr
	}
	if isASCII(name) {
		return (&mail.Address{Name: name, Address: addr}).String()
	}
	return mime.BEncoding.Encode("UTF-8", name) + " <" + addr + ">"
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}
