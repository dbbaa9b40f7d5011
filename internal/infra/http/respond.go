package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"ai-diary/internal/domain"
)

// UpstreamMessage показывается пользователю при сбое модели или поиска видео.
const UpstreamMessage = "Failed to get analysis from AI. Please try again."

// ErrorResponse описывает ошибку.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RequestID возвращает request ID из контекста chi.
func RequestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}

// WriteJSON отправляет значение в JSON с указанным статусом.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteRawJSON отправляет уже сериализованный JSON.
func WriteRawJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// WriteError переводит ошибку в HTTP-статус и сообщение для пользователя.
func WriteError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	status, msg := Classify(err)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("request_id", RequestID(r)).Str("path", r.URL.Path).Msg("ошибка обработки запроса")
	}
	WriteJSON(w, status, ErrorResponse{Error: msg})
}

// Classify возвращает статус и сообщение для ошибки.
func Classify(err error) (int, string) {
	userMsg, hasMsg := domain.UserMessage(err)
	pick := func(fallback string) string {
		if hasMsg {
			return userMsg
		}
		return fallback
	}
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, pick("Invalid request.")
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, pick("Authentication required.")
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, pick("Not found.")
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, pick("Already exists.")
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, pick("Too many requests. Please slow down.")
	case errors.Is(err, domain.ErrUpstream):
		return http.StatusBadGateway, UpstreamMessage
	default:
		return http.StatusInternalServerError, "An internal error occurred."
	}
}
