package domain

import (
	"context"
	"encoding/json"
	"time"
)

// Analyzer отправляет запись модели и разбирает ответ.
type Analyzer interface {
	Analyze(ctx context.Context, userText, personaID string) (Analysis, error)
}

// VideoSearcher ищет видео по ключевым словам.
type VideoSearcher interface {
	SearchVideos(ctx context.Context, query string, maxResults int) ([]VideoSummary, error)
	SearchRaw(ctx context.Context, query string, maxResults int) (json.RawMessage, error)
}

// PersonaCatalog хранит неизменяемый набор персонажей.
type PersonaCatalog interface {
	Get(id string) (Persona, bool)
	List() []Persona
}

// ReportNarrator формулирует тему периода и напутствие.
type ReportNarrator interface {
	Narrate(ctx context.Context, digest ReportDigest) (ReportNarrative, error)
}

// Sanitizer очищает текст от HTML.
type Sanitizer interface {
	Text(s string) string
}

// DiaryRepo управляет записями дневника. Все операции ограничены владельцем.
type DiaryRepo interface {
	CreateEntry(ctx context.Context, entry DiaryEntry) (DiaryEntry, error)
	GetEntry(ctx context.Context, userID, id string) (DiaryEntry, error)
	ListEntries(ctx context.Context, userID, cursor string, limit int) ([]DiaryEntry, error)
	ListEntriesBetween(ctx context.Context, userID string, from, to time.Time) ([]DiaryEntry, error)
	UpdateEntry(ctx context.Context, userID, id string, patch DiaryPatch) (DiaryEntry, error)
	DeleteEntry(ctx context.Context, userID, id string) error
	ListActiveUsers(ctx context.Context, since time.Time) ([]string, error)
}

// UserRepo управляет учётными записями.
type UserRepo interface {
	CreateUser(ctx context.Context, user User) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, id string) (User, error)
}

// SessionStore выдаёт и проверяет токены сессий.
type SessionStore interface {
	Create(ctx context.Context, userID string) (string, error)
	Resolve(ctx context.Context, token string) (string, error)
	Revoke(ctx context.Context, token string) error
}

// Cache используется для простых TTL-хранилищ.
type Cache interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, keys ...string) error
}

// ReportService строит эмоциональные отчёты.
type ReportService interface {
	Generate(ctx context.Context, userID string, period ReportPeriod) (Report, error)
	Invalidate(ctx context.Context, userID string) error
}
