package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"backoffice/internal/middleware"
	"backoffice/internal/services"
	"backoffice/internal/validator"
)

var errInvalidPayload = errors.New("invalid payload")

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps a service error onto a status code. Unexpected
// errors are logged and hidden behind a generic message.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var fieldErr *validator.FieldError
	if errors.As(err, &fieldErr) || errors.Is(err, validator.ErrValidation) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	switch services.KindOf(err) {
	case services.KindValidation:
		respondError(w, http.StatusBadRequest, err.Error())
	case services.KindNotFound:
		respondError(w, http.StatusNotFound, err.Error())
	case services.KindConflict:
		if errors.Is(err, services.ErrBillerExists) || errors.Is(err, services.ErrEmailTaken) {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
	case services.KindAuth:
		respondError(w, http.StatusUnauthorized, err.Error())
	case services.KindForbidden:
		respondError(w, http.StatusForbidden, err.Error())
	default:
		userID, _ := middleware.UserIDFromContext(r.Context())
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("user_id", userID),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decode reads a JSON body into dst and runs its validate tags.
func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errInvalidPayload
	}
	return validator.Struct(dst)
}

func (h *Handler) decodeOrRespond(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := decode(r, dst)
	if err == nil {
		return true
	}
	if errors.Is(err, errInvalidPayload) {
		respondError(w, http.StatusBadRequest, err.Error())
		return false
	}
	h.respondServiceError(w, r, err)
	return false
}

func currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
	}
	return userID, ok
}

func parseInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
