// Package handler implements the storefront and back-office HTTP surface.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"vapestore/internal/model"
	"vapestore/internal/session"

	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes an error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string, logger zerolog.Logger) {
	logger.Error().Str("error", message).Int("status", status).Msg("handler error")
	writeJSON(w, status, model.ErrorResponse{Error: message})
}

// writeServiceError translates a service error into a response. Full detail
// is logged; the client only sees the safe message.
func writeServiceError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	var (
		domainErr   *model.DomainError
		upstreamErr *model.UpstreamError
	)
	switch {
	case errors.As(err, &domainErr):
		status := statusForCode(domainErr.Code)
		logger.Warn().Str("code", domainErr.Code).Int("status", status).Msg(domainErr.Message)
		writeJSON(w, status, model.ErrorResponse{Error: domainErr.Message, Code: domainErr.Code})
	case errors.As(err, &upstreamErr):
		logger.Error().Err(err).Str("op", upstreamErr.Op).Msg("upstream failure")
		writeJSON(w, http.StatusBadGateway, model.ErrorResponse{Error: upstreamErr.Message})
	default:
		logger.Error().Err(err).Msg("unexpected error")
		writeJSON(w, http.StatusInternalServerError, model.ErrorResponse{Error: "internal server error"})
	}
}

func statusForCode(code string) int {
	switch code {
	case model.ErrCodeUnauthenticated:
		return http.StatusUnauthorized
	case model.ErrCodeInvalidSignature:
		return http.StatusForbidden
	case model.ErrCodeProductNotFound, model.ErrCodeOrderNotFound:
		return http.StatusNotFound
	case model.ErrCodeOrderNotPending:
		return http.StatusConflict
	case model.ErrCodeMissingInitPoint:
		return http.StatusBadGateway
	case model.ErrCodeAdvisorUnavailable, model.ErrCodeImageStoreDisabled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return model.InvalidRequest("invalid request body")
	}
	return nil
}

func pathInt(r *http.Request, name string) (int, error) {
	id, err := strconv.Atoi(r.PathValue(name))
	if err != nil || id <= 0 {
		return 0, model.InvalidRequest(fmt.Sprintf("invalid %s", name))
	}
	return id, nil
}

// withState runs fn against the request's session state.
func withState(r *http.Request, fn func(st *session.State) error) error {
	sess := session.FromContext(r.Context())
	if sess == nil {
		return errors.New("no session bound to request")
	}
	return sess.Do(fn)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
