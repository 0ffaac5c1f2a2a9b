// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/snapbooth/internal/auth"
	"github.com/tomtom215/snapbooth/internal/authz"
	"github.com/tomtom215/snapbooth/internal/backup"
	"github.com/tomtom215/snapbooth/internal/booth"
	"github.com/tomtom215/snapbooth/internal/logging"
	"github.com/tomtom215/snapbooth/internal/validation"
)

// RespondError maps err onto the error taxonomy and writes it. Internal
// errors are logged with the request id and never echoed to the client.
func RespondError(w http.ResponseWriter, r *http.Request, err error) {
	rw := NewResponseWriter(w, r)

	var verr *validation.RequestValidationError
	if errors.As(err, &verr) {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		rw.Unauthorized(auth.ErrInvalidCredentials.Error())
		return
	case errors.Is(err, auth.ErrTokenRevoked), errors.Is(err, auth.ErrUnauthenticated):
		rw.Unauthorized("authentication required")
		return
	case errors.Is(err, authz.ErrForbidden):
		rw.Forbidden(authz.ErrForbidden.Error())
		return
	case errors.Is(err, auth.ErrUsernameTaken):
		rw.Error(http.StatusConflict, ErrCodeConflict, auth.ErrUsernameTaken.Error())
		return
	case errors.Is(err, backup.ErrNotFound):
		rw.NotFound(backup.ErrNotFound.Error())
		return
	case errors.Is(err, backup.ErrInvalidType):
		rw.ValidationError(err.Error(), nil)
		return
	case errors.Is(err, backup.ErrDisabled):
		rw.ServiceUnavailable(backup.ErrDisabled.Error())
		return
	}

	message := booth.Message(err)
	switch booth.KindOf(err) {
	case booth.ErrValidation:
		rw.ValidationError(message, nil)
	case booth.ErrNotFound:
		rw.NotFound(message)
	case booth.ErrConflict:
		rw.Error(http.StatusConflict, ErrCodeConflict, message)
	case booth.ErrExpired:
		rw.Error(http.StatusGone, ErrCodeExpired, message)
	case booth.ErrUpstream:
		logging.Ctx(r.Context()).Error().Err(err).Msg("Upstream failure")
		rw.Error(http.StatusBadGateway, ErrCodeExternalServiceFail, message)
	default:
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Internal error")
		rw.InternalError("an internal error occurred")
	}
}

// denyRequest is the rejection writer handed to the auth and authz
// middleware.
func denyRequest(w http.ResponseWriter, r *http.Request, err error) {
	RespondError(w, r, err)
}
