package mail

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// SMTPConfig addresses a submission server such as smtp.gmail.com:587.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// SMTPSender delivers through an authenticated SMTP relay.
type SMTPSender struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender builds an SMTP sender.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPSender{cfg: cfg, send: smtp.SendMail}
}

func (s *SMTPSender) Name() string { return "smtp" }

func (s *SMTPSender) Send(ctx context.Context, msg Message) (Result, error) {
	if s.cfg.Host == "" || s.cfg.From == "" {
		return Result{}, fmt.Errorf("smtp sender not configured")
	}

	rendered, err := Render(msg)
	if err != nil {
		return Result{}, err
	}
	raw, messageID := s.build(msg.To, rendered)

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	// net/smtp has no context support; the goroutine is abandoned on timeout
	// and finishes on its own.
	done := make(chan error, 1)
	go func() {
		done <- s.send(addr, auth, s.cfg.From, []string{msg.To}, raw)
	}()

	select {
	case <-ctx.Done():
		return failed(fmt.Sprintf("smtp send: %v", ctx.Err())), nil
	case err := <-done:
		if err != nil {
			return failed(fmt.Sprintf("smtp send: %v", err)), nil
		}
	}

	return Result{Success: true, ProviderID: messageID}, nil
}

func (s *SMTPSender) build(to string, r Rendered) ([]byte, string) {
	boundary := randomHex(12)
	domain := s.cfg.Host
	if at := strings.LastIndex(s.cfg.From, "@"); at >= 0 {
		domain = s.cfg.From[at+1:]
	}
	messageID := fmt.Sprintf("<%s@%s>", randomHex(16), domain)

	var b strings.Builder
	b.WriteString("From: " + mimeAddress(s.cfg.FromName, s.cfg.From) + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", r.Subject) + "\r\n")
	b.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("Message-ID: " + messageID + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: multipart/alternative; boundary=" + boundary + "\r\n\r\n")
	b.WriteString("--" + boundary + "\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n" + r.Text + "\r\n")
	b.WriteString("--" + boundary + "\r\nContent-Type: text/html; charset=utf-8\r\n\r\n" + r.HTML + "\r\n")
	b.WriteString("--" + boundary + "--\r\n")
	return []byte(b.String()), messageID
}

func mimeAddress(name, address string) string {
	if name == "" {
		return address
	}
	return mime.QEncoding.Encode("utf-8", name) + " <" + address + ">"
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 16)
	}
	return hex.EncodeToString(buf)
}
