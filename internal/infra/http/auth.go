package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

type ctxKey int

const (
	userIDKey ctxKey = iota
	tokenKey
)

// Authenticator сопоставляет токен сессии пользователю.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

// BearerAuth пропускает только запросы с действующим токеном в заголовке Authorization.
func BearerAuth(auth Authenticator, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				WriteJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "Authentication required."})
				return
			}
			userID, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				WriteError(w, r, logger, err)
				return
			}
			ctx := context.WithValue(r.Context(), userIDKey, userID)
			ctx = context.WithValue(ctx, tokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken извлекает токен из заголовка Authorization.
func BearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// UserID возвращает пользователя, прошедшего BearerAuth.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// SessionToken возвращает токен текущей сессии.
func SessionToken(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}

// WithUserID кладёт пользователя в контекст.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}
