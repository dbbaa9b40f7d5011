// Package auth регистрирует пользователей и управляет их сессиями.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"ai-diary/internal/domain"
)

// MinPasswordLength задаёт минимальную длину пароля в символах.
const MinPasswordLength = 8

const invalidCredentials = "Invalid email or password."

// Session связывает пользователя с выданным ему токеном.
type Session struct {
	User  domain.User `json:"user"`
	Token string      `json:"token"`
}

// Service реализует регистрацию, вход и выход.
type Service struct {
	users    domain.UserRepo
	sessions domain.SessionStore
	log      zerolog.Logger
	verify   func(password, encoded string) (bool, error)
}

// NewService создаёт сервис авторизации.
func NewService(users domain.UserRepo, sessions domain.SessionStore, logger zerolog.Logger) *Service {
	return &Service{users: users, sessions: sessions, log: logger, verify: VerifyPassword}
}

var (
	decoyOnce sync.Once
	decoyHash string
)

// decoy возвращает хеш, с которым сверяется пароль неизвестного пользователя,
// чтобы время ответа не выдавало зарегистрированные адреса.
func decoy() string {
	decoyOnce.Do(func() {
		decoyHash, _ = HashPassword("decoy password")
	})
	return decoyHash
}

// SignUp создаёт учётную запись и сразу открывает сессию.
func (s *Service) SignUp(ctx context.Context, email, password, displayName string) (Session, error) {
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return Session{}, domain.Invalid("Please enter a valid email address.")
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return Session{}, domain.Invalid(fmt.Sprintf("Password must be at least %d characters.", MinPasswordLength))
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName, _, _ = strings.Cut(email, "@")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return Session{}, err
	}
	user, err := s.users.CreateUser(ctx, domain.User{Email: email, DisplayName: displayName, PasswordHash: hash})
	if err != nil {
		return Session{}, fmt.Errorf("создание пользователя: %w", err)
	}
	s.log.Info().Str("user", user.ID).Msg("пользователь зарегистрирован")
	return s.open(ctx, user)
}

// SignIn проверяет пароль и открывает сессию.
func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return Session{}, domain.Invalid("Email and password are required.")
	}
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		_, _ = s.verify(password, decoy())
		return Session{}, domain.Unauthorized(invalidCredentials)
	}
	if err != nil {
		return Session{}, fmt.Errorf("поиск пользователя: %w", err)
	}
	ok, err := s.verify(password, user.PasswordHash)
	if err != nil {
		s.log.Error().Err(err).Str("user", user.ID).Msg("повреждённый хеш пароля")
		return Session{}, domain.Unauthorized(invalidCredentials)
	}
	if !ok {
		return Session{}, domain.Unauthorized(invalidCredentials)
	}
	return s.open(ctx, user)
}

// SignOut отзывает токен.
func (s *Service) SignOut(ctx context.Context, token string) error {
	if err := s.sessions.Revoke(ctx, token); err != nil {
		return fmt.Errorf("отзыв сессии: %w", err)
	}
	return nil
}

// Authenticate возвращает пользователя, которому принадлежит токен.
func (s *Service) Authenticate(ctx context.Context, token string) (string, error) {
	userID, err := s.sessions.Resolve(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			return "", domain.Unauthorized("Authentication required.")
		}
		return "", fmt.Errorf("проверка сессии: %w", err)
	}
	return userID, nil
}

// Me возвращает профиль пользователя.
func (s *Service) Me(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, domain.Unauthorized("Authentication required.")
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("получение пользователя: %w", err)
	}
	return user, nil
}

func (s *Service) open(ctx context.Context, user domain.User) (Session, error) {
	token, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return Session{}, fmt.Errorf("создание сессии: %w", err)
	}
	return Session{User: user, Token: token}, nil
}
