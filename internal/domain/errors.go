package domain

import "errors"

var (
	// ErrInvalidInput означает, что запрос не прошёл проверку.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnauthorized означает, что действующей сессии нет.
	ErrUnauthorized = errors.New("authentication required")
	// ErrNotFound означает, что сущность отсутствует или принадлежит другому пользователю.
	ErrNotFound = errors.New("not found")
	// ErrConflict означает, что сущность уже существует.
	ErrConflict = errors.New("already exists")
	// ErrUpstream означает, что внешний сервис (модель, поиск видео) не ответил.
	ErrUpstream = errors.New("upstream failure")
	// ErrRateLimited означает превышение лимита запросов.
	ErrRateLimited = errors.New("rate limited")
)

// UserError несёт сообщение для пользователя и относится к одной из категорий выше.
type UserError struct {
	Kind    error
	Message string
}

func (e *UserError) Error() string { return e.Message }

func (e *UserError) Unwrap() error { return e.Kind }

// Invalid возвращает ошибку валидации с пользовательским сообщением.
func Invalid(msg string) error { return &UserError{Kind: ErrInvalidInput, Message: msg} }

// NotFound возвращает ошибку отсутствия с пользовательским сообщением.
func NotFound(msg string) error { return &UserError{Kind: ErrNotFound, Message: msg} }

// Unauthorized возвращает ошибку авторизации с пользовательским сообщением.
func Unauthorized(msg string) error { return &UserError{Kind: ErrUnauthorized, Message: msg} }

// Conflict возвращает ошибку конфликта с пользовательским сообщением.
func Conflict(msg string) error { return &UserError{Kind: ErrConflict, Message: msg} }

// UserMessage извлекает пользовательское сообщение из цепочки ошибок.
func UserMessage(err error) (string, bool) {
	var ue *UserError
	if errors.As(err, &ue) {
		return ue.Message, true
	}
	return "", false
}
