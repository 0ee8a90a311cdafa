package invite

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	addr string
	auth smtp.Auth
	from string
	to   []string
	msg  []byte
}

func testMailer(t *testing.T, sendErr error) (*SMTPMailer, *captured) {
	t.Helper()
	c := &captured{}
	m := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Username: "u", Password: "p", From: "planner@example.com"})
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		c.addr, c.auth, c.from, c.to, c.msg = addr, a, from, to, msg
		return sendErr
	}
	m.now = func() time.Time { return time.Date(2026, 11, 1, 9, 0, 0, 0, time.UTC) }
	return m, c
}

func writePDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "invitation-ev-1.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 fake"), 0o644))
	return path
}

func TestSMTPMailerSend(t *testing.T) {
	m, c := testMailer(t, nil)
	pdf := writePDF(t)

	err := m.Send(context.Background(), Message{
		PDFPath:    pdf,
		Subject:    "You're invited: Asha turns 30",
		To:         []string{"a@example.com"},
		CC:         []string{"b@example.com"},
		SenderName: "Ravi",
		Body:       "Join us!",
	})
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", c.addr)
	assert.NotNil(t, c.auth)
	assert.Equal(t, "planner@example.com", c.from)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, c.to)

	msg, err := mail.ReadMessage(strings.NewReader(string(c.msg)))
	require.NoError(t, err)
	assert.Equal(t, "b@example.com", msg.Header.Get("Cc"))
	from, err := mail.ParseAddress(msg.Header.Get("From"))
	require.NoError(t, err)
	assert.Equal(t, "Ravi", from.Name)

	subject, err := new(mime.WordDecoder).DecodeHeader(msg.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "You're invited: Asha turns 30", subject)

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/mixed", mediaType)

	r := multipart.NewReader(msg.Body, params["boundary"])
	body, err := r.NextPart()
	require.NoError(t, err)
	text, _ := io.ReadAll(body)
	assert.Equal(t, "Join us!\r\n", string(text))

	att, err := r.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "invitation-ev-1.pdf", att.FileName())
	encoded, _ := io.ReadAll(att)
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(string(encoded), "\r\n", ""))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 fake", string(decoded))
}

func TestSMTPMailerNoAuth(t *testing.T) {
	m, c := testMailer(t, nil)
	m.cfg.Username = ""

	require.NoError(t, m.Send(context.Background(), Message{PDFPath: writePDF(t), To: []string{"a@example.com"}}))
	assert.Nil(t, c.auth)
}

func TestSMTPMailerErrors(t *testing.T) {
	m, _ := testMailer(t, errors.New("550 rejected"))

	err := m.Send(context.Background(), Message{PDFPath: writePDF(t), To: []string{"a@example.com"}})
	assert.ErrorContains(t, err, "smtp: send")

	err = m.Send(context.Background(), Message{PDFPath: "/nonexistent.pdf", To: []string{"a@example.com"}})
	assert.ErrorContains(t, err, "read attachment")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = m.Send(ctx, Message{PDFPath: writePDF(t), To: []string{"a@example.com"}})
	assert.ErrorIs(t, err, context.Canceled)
}
