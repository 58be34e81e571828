package email

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"crmgateway/internal/config"
)

// fakeSMTPServer accepts one session and records the DATA payload.
type fakeSMTPServer struct {
	listener net.Listener
	mu       sync.Mutex
	rcpt     string
	data     string
	done     chan struct{}
}

func startFakeSMTP(t *testing.T) *fakeSMTPServer {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &fakeSMTPServer{listener: ln, done: make(chan struct{})}
	go s.serve()
	t.Cleanup(func() { ln.Close() })
	return s
}

func (s *fakeSMTPServer) port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

func (s *fakeSMTPServer) serve() {
	defer close(s.done)

	conn, err := s.listener.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	r := bufio.NewReader(conn)
	reply := func(line string) { _, _ = conn.Write([]byte(line + "\r\n")) }

	reply("220 fake ESMTP")
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.ToUpper(strings.TrimSpace(line))
		switch {
		case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
			reply("250 fake")
		case strings.HasPrefix(cmd, "MAIL FROM"):
			reply("250 OK")
		case strings.HasPrefix(cmd, "RCPT TO"):
			s.mu.Lock()
			s.rcpt = strings.TrimSpace(line)
			s.mu.Unlock()
			reply("250 OK")
		case cmd == "DATA":
			reply("354 end with .")
			var body strings.Builder
			for {
				l, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if l == ".\r\n" {
					break
				}
				body.WriteString(l)
			}
			s.mu.Lock()
			s.data = body.String()
			s.mu.Unlock()
			reply("250 queued")
		case cmd == "QUIT":
			reply("221 bye")
			return
		default:
			reply("502 not implemented")
		}
	}
}

func TestSMTPSender_Send(t *testing.T) {
	srv := startFakeSMTP(t)

	sender := NewSMTPSender(config.EmailConfig{
		FromName:  "Store",
		FromEmail: "orders@store.test",
		SMTP:      config.SMTPConfig{Host: "127.0.0.1", Port: srv.port()},
	}, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result := sender.Send(ctx, Email{To: "asha@example.com", Subject: "Order delivered", Body: "Enjoy!"})
	require.True(t, result.Success, result.Message)

	<-srv.done
	srv.mu.Lock()
	defer srv.mu.Unlock()
	assert.Contains(t, srv.rcpt, "asha@example.com")
	assert.Contains(t, srv.data, "Subject: Order delivered")
	assert.Contains(t, srv.data, "From: Store <orders@store.test>")
	assert.Contains(t, srv.data, "Enjoy!")
}

func TestSMTPSender_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	sender := NewSMTPSender(config.EmailConfig{
		FromEmail: "orders@store.test",
		SMTP:      config.SMTPConfig{Host: "127.0.0.1", Port: port},
	}, zap.NewNop())

	result := sender.Send(context.Background(), Email{To: "asha@example.com"})

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "dial")
}

func TestSMTPSender_NotConfigured(t *testing.T) {
	sender := NewSMTPSender(config.EmailConfig{}, zap.NewNop())

	result := sender.Send(context.Background(), Email{To: "asha@example.com"})

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "not configured")
}

func TestSMTPSender_BuildMessage(t *testing.T) {
	sender := NewSMTPSender(config.EmailConfig{
		FromEmail: "orders@store.test",
		SMTP:      config.SMTPConfig{Host: "localhost", Port: 1025},
	}, zap.NewNop())
	sender.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }

	msg := string(sender.buildMessage(Email{To: "a@b.c", Subject: "Paiement reçu", Body: "hi"}))

	assert.Contains(t, msg, "From: orders@store.test\r\n")
	assert.Contains(t, msg, "Subject: =?utf-8?q?Paiement_re=C3=A7u?=\r\n")
	assert.Contains(t, msg, "Date: Sun, 01 Mar 2026 09:00:00 +0000\r\n")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\nhi\r\n"), strconv.Quote(msg))
}
