// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package booth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/snapbooth/internal/database"
	"github.com/tomtom215/snapbooth/internal/logging"
	"github.com/tomtom215/snapbooth/internal/metrics"
	"github.com/tomtom215/snapbooth/internal/models"
	"github.com/tomtom215/snapbooth/internal/validation"
)

// maxInsertAttempts bounds retries when a freshly generated code loses an
// insert race to an identical one.
const maxInsertAttempts = 5

// NormalizeCode trims surrounding whitespace and upper-cases a code as typed
// by a customer.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func checkCodeShape(code string) error {
	if code == "" {
		return validationf("session code is required")
	}
	if !validation.IsSessionCode(code) {
		return validationf("session code must be 6 to 8 uppercase letters or digits")
	}
	return nil
}

// GenerateCode creates and stores a new ACTIVE code. Codes expire CodeTTL
// after creation; a zero TTL creates a code that never expires.
func (s *Service) GenerateCode(ctx context.Context) (*models.SessionCode, error) {
	c, err := s.insertFreshCode(ctx, s.cfg.CodeTTL)
	if err != nil {
		return nil, err
	}
	metrics.CodesGenerated.WithLabelValues("operator").Inc()
	logging.Ctx(ctx).Info().Str("code", c.Code).Msg("Session code generated")
	s.publish(ctx, EventCodeGenerated, c)
	return c, nil
}

func (s *Service) insertFreshCode(ctx context.Context, ttl time.Duration) (*models.SessionCode, error) {
	for attempt := 1; ; attempt++ {
		code, err := s.generator.Generate(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to generate session code: %w", err)
		}

		now := s.now().UTC()
		c := &models.SessionCode{Code: code, Status: models.CodeActive, CreatedAt: now}
		if ttl > 0 {
			exp := now.Add(ttl)
			c.ExpiredAt = &exp
		}

		err = s.store.InsertCode(ctx, c)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, database.ErrDuplicate) || attempt >= maxInsertAttempts {
			return nil, fmt.Errorf("failed to store session code: %w", err)
		}
	}
}

// Verify checks that code can be claimed without changing any state.
func (s *Service) Verify(ctx context.Context, code string) (*models.VerifyResult, error) {
	code = NormalizeCode(code)
	if err := checkCodeShape(code); err != nil {
		metrics.CodeVerifications.WithLabelValues("invalid").Inc()
		return nil, err
	}

	c, err := s.store.GetCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to look up session code: %w", err)
	}
	if err := classifyCode(c, s.now()); err != nil {
		metrics.CodeVerifications.WithLabelValues(outcomeLabel(err)).Inc()
		return nil, err
	}

	metrics.CodeVerifications.WithLabelValues("valid").Inc()
	return &models.VerifyResult{Valid: true, Code: c.Code, ExpiredAt: c.ExpiredAt}, nil
}

// classifyCode returns nil when c may still be claimed at now.
func classifyCode(c *models.SessionCode, now time.Time) error {
	switch {
	case c == nil:
		return ErrCodeNotFound
	case c.Status == models.CodeUsed:
		return ErrCodeAlreadyUsed
	case c.IsExpired(now):
		return ErrCodeExpired
	case c.Status != models.CodeActive:
		return ErrCodeAlreadyUsed
	default:
		return nil
	}
}

// Claim exchanges a code for its session. A code that already has a
// session resumes it; otherwise the code is marked USED and a new session
// with a running timer is created in one step. Of several concurrent claims
// of a fresh code exactly one creates the session; the others either resume
// it or fail with ErrCodeAlreadyUsed.
func (s *Service) Claim(ctx context.Context, code string) (*models.ClaimResult, error) {
	code = NormalizeCode(code)
	if err := checkCodeShape(code); err != nil {
		metrics.CodeClaims.WithLabelValues("invalid").Inc()
		return nil, err
	}

	existing, err := s.store.GetSessionByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}
	if existing != nil {
		return s.resume(ctx, existing)
	}

	c, err := s.store.GetCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to look up session code: %w", err)
	}
	if err := classifyCode(c, s.now()); err != nil {
		metrics.CodeClaims.WithLabelValues(outcomeLabel(err)).Inc()
		return nil, err
	}

	now := s.now().UTC()
	timer := now.Add(s.cfg.SessionDuration)
	session := &models.Session{
		ID:             newID(),
		Code:           code,
		Status:         models.SessionActive,
		CreatedAt:      now,
		UsedAt:         &now,
		TimerExpiresAt: &timer,
	}

	claimed, err := s.store.ClaimCodeWithSession(ctx, session, now)
	if err != nil && !errors.Is(err, database.ErrDuplicate) {
		return nil, fmt.Errorf("failed to claim session code: %w", err)
	}
	if !claimed {
		// Lost a race, either to a concurrent claim or to an operator
		// creating the session. Whoever won decides the outcome.
		return s.afterLostClaim(ctx, code)
	}

	metrics.CodeClaims.WithLabelValues("claimed").Inc()
	logging.Ctx(ctx).Info().Str("code", code).Str("session_id", session.ID).Msg("Session code claimed")
	s.publish(ctx, EventSessionClaimed, session)
	return &models.ClaimResult{Session: session}, nil
}

func (s *Service) afterLostClaim(ctx context.Context, code string) (*models.ClaimResult, error) {
	existing, err := s.store.GetSessionByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}
	if existing != nil {
		return s.resume(ctx, existing)
	}

	c, err := s.store.GetCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to look up session code: %w", err)
	}
	claimErr := classifyCode(c, s.now())
	if claimErr == nil {
		// Still claimable after a lost write: the winner rolled back.
		claimErr = ErrCodeAlreadyUsed
	}
	metrics.CodeClaims.WithLabelValues(outcomeLabel(claimErr)).Inc()
	return nil, claimErr
}

// resume returns an existing session. A session created ahead of time by an
// operator has its code marked USED and its timer started by the first
// claim; later claims change nothing.
func (s *Service) resume(ctx context.Context, session *models.Session) (*models.ClaimResult, error) {
	if session.TimerExpiresAt == nil {
		now := s.now().UTC()
		claimed, err := s.store.ClaimCode(ctx, session.Code, now)
		if err != nil {
			return nil, fmt.Errorf("failed to claim session code: %w", err)
		}
		if !claimed {
			// A concurrent resume may have won; an expired or missing code
			// still blocks the session from starting.
			c, err := s.store.GetCode(ctx, session.Code)
			if err != nil {
				return nil, fmt.Errorf("failed to look up session code: %w", err)
			}
			if cerr := classifyCode(c, now); cerr != nil && !errors.Is(cerr, ErrCodeAlreadyUsed) {
				metrics.CodeClaims.WithLabelValues(outcomeLabel(cerr)).Inc()
				return nil, cerr
			}
		}
		started, err := s.store.StartSessionTimer(ctx, session.ID, now, now.Add(s.cfg.SessionDuration))
		if err != nil {
			return nil, fmt.Errorf("failed to start session timer: %w", err)
		}
		if started {
			refreshed, err := s.store.GetSession(ctx, session.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to reload session: %w", err)
			}
			if refreshed != nil {
				session = refreshed
			}
		}
	}

	metrics.CodeClaims.WithLabelValues("resumed").Inc()
	logging.Ctx(ctx).Info().Str("code", session.Code).Str("session_id", session.ID).Msg("Session resumed")
	s.publish(ctx, EventSessionResumed, session)
	return &models.ClaimResult{Session: session, Resumed: true}, nil
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, ErrCodeNotFound):
		return "not_found"
	case errors.Is(err, ErrCodeAlreadyUsed):
		return "used"
	case errors.Is(err, ErrCodeExpired):
		return "expired"
	case errors.Is(err, ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}
