package invite

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// SMTPConfig is the mailer's connection settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends invitations through an SMTP relay.
type SMTPMailer struct {
	cfg  SMTPConfig
	send sendFunc
	now  func() time.Time
}

// NewSMTPMailer creates a mailer for the given relay.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail, now: time.Now}
}

// Send implements Mailer. net/smtp has no context support, so ctx is only
// checked before dialing.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "smtp: send")
	}
	raw, err := m.build(msg)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	addr := m.cfg.Host + ":" + strconv.Itoa(m.cfg.Port)
	rcpts := append(append([]string(nil), msg.To...), msg.CC...)

	if err := m.send(addr, auth, m.cfg.From, rcpts, raw); err != nil {
		return eris.Wrapf(err, "smtp: send to %s", addr)
	}
	zap.L().Debug("smtp: message sent", zap.Int("recipients", len(rcpts)), zap.String("subject", msg.Subject))
	return nil
}

// build assembles a multipart/mixed message: a plain-text body followed by
// the PDF as a base64 attachment.
func (m *SMTPMailer) build(msg Message) ([]byte, error) {
	pdf, err := os.ReadFile(msg.PDFPath)
	if err != nil {
		return nil, eris.Wrap(err, "smtp: read attachment")
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	from := (&mail.Address{Name: msg.SenderName, Address: m.cfg.From}).String()
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(msg.To, ", "))
	if len(msg.CC) > 0 {
		fmt.Fprintf(&buf, "Cc: %s\r\n", strings.Join(msg.CC, ", "))
	}
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", m.now().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", w.Boundary())

	body, err := w.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/plain; charset=utf-8"},
		"Content-Transfer-Encoding": {"8bit"},
	})
	if err != nil {
		return nil, eris.Wrap(err, "smtp: body part")
	}
	if _, err := body.Write([]byte(msg.Body + "\r\n")); err != nil {
		return nil, eris.Wrap(err, "smtp: write body")
	}

	name := filepath.Base(msg.PDFPath)
	att, err := w.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {mime.FormatMediaType("application/pdf", map[string]string{"name": name})},
		"Content-Transfer-Encoding": {"base64"},
		"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": name})},
	})
	if err != nil {
		return nil, eris.Wrap(err, "smtp: attachment part")
	}
	encoded := base64.StdEncoding.EncodeToString(pdf)
	for len(encoded) > 76 {
		att.Write([]byte(encoded[:76] + "\r\n")) //nolint:errcheck
		encoded = encoded[76:]
	}
	att.Write([]byte(encoded + "\r\n")) //nolint:errcheck

	if err := w.Close(); err != nil {
		return nil, eris.Wrap(err, "smtp: close multipart")
	}
	return buf.Bytes(), nil
}
