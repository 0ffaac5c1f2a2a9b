// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package mailer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/snapbooth/internal/config"
	"github.com/tomtom215/snapbooth/internal/models"
)

// fakeSMTP accepts one plaintext session per connection and records DATA.
type fakeSMTP struct {
	ln       net.Listener
	mu       sync.Mutex
	messages [][]byte
	rcpts    []string
	authed   bool
}

func startFakeSMTP(t *testing.T) *fakeSMTP {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &fakeSMTP{ln: ln}
	t.Cleanup(func() { _ = ln.Close() })
	go s.serve()
	return s
}

func (s *fakeSMTP) port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

func (s *fakeSMTP) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *fakeSMTP) handle(conn net.Conn) {
	defer func() { _ = conn.Close() }()
	r := bufio.NewReader(conn)
	reply := func(line string) { _, _ = io.WriteString(conn, line+"\r\n") }

	reply("220 fake ESMTP")
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.ToUpper(strings.TrimSpace(line))
		switch {
		case strings.HasPrefix(cmd, "EHLO"):
			reply("250-fake")
			reply("250 AUTH PLAIN")
		case strings.HasPrefix(cmd, "AUTH"):
			s.mu.Lock()
			s.authed = true
			s.mu.Unlock()
			reply("235 2.7.0 Authentication successful")
		case strings.HasPrefix(cmd, "MAIL"):
			reply("250 OK")
		case strings.HasPrefix(cmd, "RCPT"):
			s.mu.Lock()
			s.rcpts = append(s.rcpts, strings.TrimSpace(line))
			s.mu.Unlock()
			reply("250 OK")
		case cmd == "DATA":
			reply("354 End data with <CR><LF>.<CR><LF>")
			var data bytes.Buffer
			for {
				l, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if l == ".\r\n" {
					break
				}
				data.WriteString(strings.TrimPrefix(l, "."))
			}
			s.mu.Lock()
			s.messages = append(s.messages, data.Bytes())
			s.mu.Unlock()
			reply("250 OK queued")
		case cmd == "QUIT":
			reply("221 Bye")
			return
		default:
			reply("500 unrecognised")
		}
	}
}

func testSMTPConfig(port int) config.SMTPConfig {
	return config.SMTPConfig{
		Host:       "127.0.0.1",
		Port:       port,
		Username:   "booth",
		Password:   "secret",
		From:       "noreply@snapbooth.test",
		FromName:   "Snapbooth",
		Timeout:    5 * time.Second,
		Subject:    "Your Snapbooth Photo",
		SendPerMin: 6000,
	}
}

func TestNew_SelectsTransport(t *testing.T) {
	if got := New(testSMTPConfig(25)).Transport(); got != "smtp" {
		t.Errorf("configured transport = %q, want smtp", got)
	}
	cfg := testSMTPConfig(25)
	cfg.Password = ""
	if got := New(cfg).Transport(); got != "log" {
		t.Errorf("unconfigured transport = %q, want log", got)
	}
}

func TestSMTP_SendDeliversAttachment(t *testing.T) {
	server := startFakeSMTP(t)
	m := NewSMTP(testSMTPConfig(server.port()))

	image := bytes.Repeat([]byte{0x89, 'P', 'N', 'G', 0x00, 0xff}, 50)
	err := m.Send(context.Background(), models.PhotoEmail{
		To:       "guest@example.com",
		ImageKey: "final-photos/abc.png",
		Image:    image,
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	server.mu.Lock()
	defer server.mu.Unlock()
	if !server.authed {
		t.Error("expected AUTH to be issued")
	}
	if len(server.rcpts) != 1 || !strings.Contains(server.rcpts[0], "guest@example.com") {
		t.Errorf("recipients = %v", server.rcpts)
	}
	if len(server.messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(server.messages))
	}
	checkMessage(t, server.messages[0], image)
}

func checkMessage(t *testing.T, raw, wantImage []byte) {
	t.Helper()
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("parse message: %v", err)
	}
	if got := msg.Header.Get("To"); got != "guest@example.com" {
		t.Errorf("To = %q", got)
	}
	subject, err := new(mime.WordDecoder).DecodeHeader(msg.Header.Get("Subject"))
	if err != nil || subject != "Your Snapbooth Photo" {
		t.Errorf("Subject = %q, %v", subject, err)
	}

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/mixed" {
		t.Fatalf("content type = %q, %v", mediaType, err)
	}

	mr := multipart.NewReader(msg.Body, params["boundary"])
	var parts []string
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("next part: %v", err)
		}
		body, err := io.ReadAll(base64.NewDecoder(base64.StdEncoding, part))
		if err != nil {
			t.Fatalf("decode part: %v", err)
		}
		ct := part.Header.Get("Content-Type")
		parts = append(parts, ct)
		switch {
		case strings.HasPrefix(ct, "text/html"):
			if !strings.Contains(string(body), "Your Snapbooth Photo") {
				t.Errorf("html body = %q", body)
			}
		case strings.HasPrefix(ct, "image/png"):
			if part.FileName() != AttachmentName {
				t.Errorf("attachment name = %q", part.FileName())
			}
			if !bytes.Equal(body, wantImage) {
				t.Error("attachment bytes differ")
			}
		}
	}
	if len(parts) != 2 {
		t.Errorf("parts = %v, want html and png", parts)
	}
}

func TestSMTP_RejectsBadRecipient(t *testing.T) {
	m := NewSMTP(testSMTPConfig(1))
	if err := m.Send(context.Background(), models.PhotoEmail{To: "not-an-address"}); err == nil {
		t.Error("expected error for invalid recipient")
	}
}

func TestSMTP_BreakerOpensAfterFailures(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()

	m := NewSMTP(testSMTPConfig(port))
	msg := models.PhotoEmail{To: "guest@example.com", ImageKey: "final-photos/x.png", Image: []byte("x")}

	for i := 0; i < 5; i++ {
		err := m.Send(context.Background(), msg)
		if err == nil || errors.Is(err, ErrUnavailable) {
			t.Fatalf("attempt %d: err = %v, want connection failure", i+1, err)
		}
	}
	if err := m.Send(context.Background(), msg); !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable once the breaker is open", err)
	}
}

func TestSMTP_SenderFallsBackToUsername(t *testing.T) {
	cfg := testSMTPConfig(25)
	cfg.From = ""
	cfg.Username = "booth@example.com"
	if got := NewSMTP(cfg).sender(); got != "booth@example.com" {
		t.Errorf("sender = %q", got)
	}
}

func TestWriteBase64Lines(t *testing.T) {
	var b bytes.Buffer
	data := bytes.Repeat([]byte("a"), 200)
	writeBase64Lines(&b, data)

	lines := strings.Split(strings.TrimSuffix(b.String(), "\r\n"), "\r\n")
	for i, line := range lines {
		if len(line) > 76 {
			t.Errorf("line %d has %d chars", i, len(line))
		}
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.Join(lines, ""))
	if err != nil || !bytes.Equal(decoded, data) {
		t.Errorf("round trip failed: %v", err)
	}
}

func TestLog_AppendsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "email-log.txt")
	l := NewLog(path)
	l.now = func() time.Time { return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC) }

	for i := 0; i < 2; i++ {
		err := l.Send(context.Background(), models.PhotoEmail{
			To:       "guest@example.com",
			ImageKey: "screenshots/" + strconv.Itoa(i) + ".png",
		})
		if err != nil {
			t.Fatalf("Send: %v", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	want := "[2026-03-14T10:00:00Z] Email to: guest@example.com, Image: screenshots/0.png\n" +
		"[2026-03-14T10:00:00Z] Email to: guest@example.com, Image: screenshots/1.png\n"
	if string(data) != want {
		t.Errorf("log = %q, want %q", data, want)
	}
}

func TestLog_WriteFailureStillSucceeds(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	l := NewLog(filepath.Join(blocker, "email-log.txt"))
	if err := l.Send(context.Background(), models.PhotoEmail{To: "guest@example.com"}); err != nil {
		t.Errorf("Send = %v, want nil", err)
	}
}
