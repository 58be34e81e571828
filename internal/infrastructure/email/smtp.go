package email

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"go.uber.org/zap"

	"crmgateway/internal/config"
)

// Dialer abstracts net.Dialer to simplify testing.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// SMTPSender relays plain text mail through an SMTP server, typically a
// local capture server such as Mailpit during development.
type SMTPSender struct {
	host     string
	port     int
	from     string
	fromAddr string
	auth     smtp.Auth
	dialer   Dialer
	now      func() time.Time
	logger   *zap.Logger
}

func NewSMTPSender(cfg config.EmailConfig, logger *zap.Logger) *SMTPSender {
	s := &SMTPSender{
		host:     cfg.SMTP.Host,
		port:     cfg.SMTP.Port,
		from:     formatFrom(mime.QEncoding.Encode("utf-8", cfg.FromName), cfg.FromEmail),
		fromAddr: cfg.FromEmail,
		dialer:   &net.Dialer{Timeout: timeoutOrDefault(cfg.Timeout)},
		now:      time.Now,
		logger:   logger,
	}
	if cfg.SMTP.Username != "" {
		s.auth = smtp.PlainAuth("", cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.Host)
	}
	return s
}

func (s *SMTPSender) Send(ctx context.Context, email Email) Result {
	if s.host == "" || s.port <= 0 {
		return failed("smtp is not configured: host and port are required")
	}
	if email.To == "" {
		return failed("recipient address is empty")
	}

	if err := s.deliver(ctx, email.To, s.buildMessage(email)); err != nil {
		return failed("smtp delivery failed: %v", err)
	}

	s.logger.Debug("email relayed over smtp", zap.String("to", email.To))
	return ok("email sent")
}

func (s *SMTPSender) buildMessage(email Email) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", s.from)
	fmt.Fprintf(&buf, "To: %s\r\n", email.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", email.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", s.now().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	buf.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(email.Body)
	buf.WriteString("\r\n")
	return buf.Bytes()
}

func (s *SMTPSender) deliver(ctx context.Context, to string, message []byte) error {
	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	conn, err := s.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("new client: %w", err)
	}
	defer client.Close()

	if err := client.Hello("localhost"); err != nil {
		return fmt.Errorf("hello: %w", err)
	}
	if s.auth != nil {
		if supported, _ := client.Extension("AUTH"); supported {
			if err := client.Auth(s.auth); err != nil {
				return fmt.Errorf("auth: %w", err)
			}
		}
	}
	if err := client.Mail(s.fromAddr); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("rcpt to: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(message); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close body: %w", err)
	}

	return client.Quit()
}
