package deliver

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/TobiSchelling/AIDigest/internal/config"
)

// Mailer sends HTML mail over implicit TLS SMTP.
type Mailer struct {
	host      string
	port      int
	sender    string
	recipient string
	password  string
}

// NewMailer reads credentials from the environment variables named in cfg.
func NewMailer(cfg config.Email) *Mailer {
	port := cfg.SMTPPort
	if port == 0 {
		port = 465
	}
	return &Mailer{
		host:      cfg.SMTPHost,
		port:      port,
		sender:    os.Getenv(cfg.SenderEnv),
		recipient: os.Getenv(cfg.RecipientEnv),
		password:  os.Getenv(cfg.PasswordEnv),
	}
}

// IsConfigured reports whether host and all credentials are present.
func (m *Mailer) IsConfigured() bool {
	return m.host != "" && m.sender != "" && m.recipient != "" && m.password != ""
}

// Send delivers one HTML message.
func (m *Mailer) Send(ctx context.Context, subject, html string) error {
	if !m.IsConfigured() {
		return fmt.Errorf("email credentials not configured")
	}

	addr := net.JoinHostPort(m.host, strconv.Itoa(m.port))
	dialer := &tls.Dialer{Config: &tls.Config{ServerName: m.host, MinVersion: tls.VersionTLS12}}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, m.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if err := c.Auth(smtp.PlainAuth("", m.sender, m.password, m.host)); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	if err := c.Mail(m.sender); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := c.Rcpt(m.recipient); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(BuildMessage(m.sender, m.recipient, subject, html, time.Now())); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing message: %w", err)
	}
	if err := c.Quit(); err != nil {
		log.Debug().Err(err).Msg("smtp quit")
	}

	log.Info().Str("recipient", m.recipient).Msg("email sent")
	return nil
}

// BuildMessage assembles an RFC 5322 message with a single HTML part.
func BuildMessage(from, to, subject, html string, date time.Time) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&b, "Date: %s\r\n", date.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("\r\n")
	b.WriteString(html)
	return b.Bytes()
}
