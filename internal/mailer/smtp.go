// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/snapbooth/internal/config"
	"github.com/tomtom215/snapbooth/internal/logging"
	"github.com/tomtom215/snapbooth/internal/metrics"
	"github.com/tomtom215/snapbooth/internal/models"
)

const breakerName = "smtp"

// ErrUnavailable is returned while the circuit breaker rejects sends.
var ErrUnavailable = errors.New("mailer: smtp transport unavailable")

// SMTP sends photo emails through an SMTP relay.
//
// The breaker uses real time for its interval and timeout; tests exercise
// the transport directly rather than waiting on recovery.
type SMTP struct {
	cfg     config.SMTPConfig
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[struct{}]
	now     func() time.Time
}

// NewSMTP creates the SMTP transport.
// Circuit breaker configuration:
//   - 1 trial request in half-open state
//   - opens after 5 consecutive failures
//   - 1 minute before attempting recovery
func NewSMTP(cfg config.SMTPConfig) *SMTP {
	perMin := cfg.SendPerMin
	if perMin < 1 {
		perMin = 30
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("[CIRCUIT BREAKER] State transition")
			metrics.RecordCircuitBreakerTransition(name, from.String(), to.String())
		},
	})

	return &SMTP{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), min(perMin, 5)),
		cb:      cb,
		now:     time.Now,
	}
}

// Transport returns the metrics label for this transport.
func (m *SMTP) Transport() string { return "smtp" }

// Send waits for a rate limiter slot, then delivers msg.
func (m *SMTP) Send(ctx context.Context, msg models.PhotoEmail) error {
	if _, err := mail.ParseAddress(msg.To); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	if err := m.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("send throttled: %w", err)
	}

	body, err := m.buildMessage(msg)
	if err != nil {
		return err
	}

	_, err = m.cb.Execute(func() (struct{}, error) {
		return struct{}{}, m.sendSMTP(ctx, msg.To, body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = errors.Join(ErrUnavailable, err)
	}
	metrics.RecordEmail(m.Transport(), err)
	return err
}

func (m *SMTP) sender() string {
	if m.cfg.From != "" {
		return m.cfg.From
	}
	return m.cfg.Username
}

// buildMessage constructs a multipart/mixed message: an HTML part followed
// by the base64 PNG attachment.
func (m *SMTP) buildMessage(msg models.PhotoEmail) ([]byte, error) {
	var b bytes.Buffer
	boundary := "snapbooth_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	from := (&mail.Address{Name: m.cfg.FromName, Address: m.sender()}).String()
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", m.cfg.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", m.now().Format(time.RFC1123Z))
	fmt.Fprintf(&b, "Message-ID: <%s@snapbooth>\r\n", uuid.NewString())
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/mixed; boundary=%q\r\n", boundary)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("Content-Transfer-Encoding: base64\r\n")
	b.WriteString("\r\n")
	writeBase64Lines(&b, []byte(htmlBody(m.cfg.FromName, m.now().Year())))

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	fmt.Fprintf(&b, "Content-Type: image/png; name=%q\r\n", AttachmentName)
	b.WriteString("Content-Transfer-Encoding: base64\r\n")
	fmt.Fprintf(&b, "Content-Disposition: attachment; filename=%q\r\n", AttachmentName)
	b.WriteString("\r\n")
	writeBase64Lines(&b, msg.Image)

	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return b.Bytes(), nil
}

// writeBase64Lines writes data as base64 wrapped at 76 columns.
func writeBase64Lines(b *bytes.Buffer, data []byte) {
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 76 {
		b.WriteString(encoded[:76])
		b.WriteString("\r\n")
		encoded = encoded[76:]
	}
	if encoded != "" {
		b.WriteString(encoded)
		b.WriteString("\r\n")
	}
}

func htmlBody(brand string, year int) string {
	if brand == "" {
		brand = "Snapbooth"
	}
	return fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h1 style="text-align: center;">Your %[1]s Photo</h1>
  <p style="text-align: center;">Thank you for capturing your moments with us!</p>
  <p style="text-align: center;">Your photo is attached to this email.</p>
  <div style="text-align: center; margin-top: 30px; color: #888; font-size: 12px;">&copy; %[2]d %[1]s</div>
</div>`, brand, year)
}

// sendSMTP sends the message via SMTP.
func (m *SMTP) sendSMTP(ctx context.Context, to string, msg []byte) error {
	addr := net.JoinHostPort(m.cfg.Host, fmt.Sprintf("%d", m.cfg.Port))

	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	dialer := &net.Dialer{Timeout: m.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer func() { _ = conn.Close() }() //nolint:errcheck // Best effort cleanup
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return fmt.Errorf("failed to set SMTP deadline: %w", err)
		}
	}

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer func() { _ = client.Close() }() //nolint:errcheck // Best effort cleanup

	if m.cfg.UseTLS {
		tlsConfig := &tls.Config{
			ServerName: m.cfg.Host,
			MinVersion: tls.VersionTLS12,
		}
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	if m.cfg.Username != "" && m.cfg.Password != "" {
		auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(m.sender()); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to start message: %w", err)
	}
	if _, err := writer.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close message: %w", err)
	}

	if err := client.Quit(); err != nil {
		logging.Debug().Err(err).Msg("SMTP quit failed after delivery")
	}
	return nil
}
