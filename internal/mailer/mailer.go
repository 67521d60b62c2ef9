package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
	"time"

	"cynews/internal/news"
)

//go:embed templates
var templateFS embed.FS

// Mailer sends the notification email over SMTP with a multipart
// plain-text + HTML body.
type Mailer struct {
	host     string
	port     string
	from     string
	password string
	send     func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func New(host, port, from, password string) *Mailer {
	return &Mailer{
		host:     host,
		port:     port,
		from:     from,
		password: password,
		send:     smtp.SendMail,
	}
}

type digestData struct {
	Date      string
	ItemCount int
	SiteURL   string
	Items     []news.Item
}

// SendDigest notifies recipient about the freshly published items.
func (m *Mailer) SendDigest(recipient, siteDomain string, items []news.Item, now time.Time) error {
	tmpl, err := template.ParseFS(templateFS, "templates/digest.tmpl")
	if err != nil {
		return fmt.Errorf("parse email template: %w", err)
	}

	data := digestData{
		Date:      now.Format("2 January 2006"),
		ItemCount: len(items),
		SiteURL:   "https://" + siteDomain,
		Items:     items,
	}

	subject := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(subject, "subject", data); err != nil {
		return fmt.Errorf("render subject: %w", err)
	}
	plainBody := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(plainBody, "plainBody", data); err != nil {
		return fmt.Errorf("render plain body: %w", err)
	}
	htmlBody := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(htmlBody, "htmlBody", data); err != nil {
		return fmt.Errorf("render html body: %w", err)
	}

	msg := m.buildMessage(recipient, strings.TrimSpace(subject.String()), plainBody.String(), htmlBody.String())

	auth := smtp.PlainAuth("", m.from, m.password, m.host)
	addr := m.host + ":" + m.port
	if err := m.send(addr, auth, m.from, []string{recipient}, msg); err != nil {
		return fmt.Errorf("send mail via %s: %w", addr, err)
	}
	return nil
}

// buildMessage assembles a multipart/alternative MIME message.
func (m *Mailer) buildMessage(to, subject, plainBody, htmlBody string) []byte {
	const boundary = "cynews-digest-boundary"
	var b strings.Builder

	header := func(k, v string) { b.WriteString(k + ": " + v + "\r\n") }
	header("From", m.from)
	header("To", to)
	header("Subject", subject)
	header("MIME-Version", "1.0")
	header("Content-Type", `multipart/alternative; boundary="`+boundary+`"`)
	b.WriteString("\r\n")

	part := func(contentType, body string) {
		b.WriteString("--" + boundary + "\r\n")
		b.WriteString("Content-Type: " + contentType + "; charset=\"utf-8\"\r\n\r\n")
		b.WriteString(body + "\r\n")
	}
	part("text/plain", plainBody)
	part("text/html", htmlBody)
	b.WriteString("--" + boundary + "--\r\n")

	return []byte(b.String())
}
