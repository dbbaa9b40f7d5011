package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"ai-diary/internal/domain"
	"ai-diary/internal/infra/metrics"
)

const uniqueViolation = "23505"

// Postgres хранит учётные записи пользователей в pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ domain.UserRepo = (*Postgres)(nil)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

// CreateUser сохраняет нового пользователя. Занятый email даёт ErrConflict.
func (p *Postgres) CreateUser(ctx context.Context, user domain.User) (domain.User, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = NormalizeEmail(user.Email)

	start := time.Now()
	err := p.pool.QueryRow(ctx, `
INSERT INTO users (id, email, display_name, password_hash)
VALUES ($1, $2, $3, $4)
RETURNING created_at
`, user.ID, user.Email, user.DisplayName, user.PasswordHash).Scan(&user.CreatedAt)
	metrics.ObserveNetworkRequest("postgres", "users_create", "users", start, err)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.User{}, domain.Conflict("An account with this email already exists.")
		}
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// GetByEmail ищет пользователя по email без учёта регистра.
func (p *Postgres) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return p.getOne(ctx, "users_get_by_email", `
SELECT id, email, display_name, password_hash, created_at
FROM users WHERE lower(email)=$1
`, NormalizeEmail(email))
}

// GetByID ищет пользователя по идентификатору.
func (p *Postgres) GetByID(ctx context.Context, id string) (domain.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.User{}, domain.ErrNotFound
	}
	return p.getOne(ctx, "users_get_by_id", `
SELECT id, email, display_name, password_hash, created_at
FROM users WHERE id=$1
`, id)
}

func (p *Postgres) getOne(ctx context.Context, operation, query string, arg any) (domain.User, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var (
		user domain.User
		id   uuid.UUID
	)
	start := time.Now()
	err := p.pool.QueryRow(ctx, query, arg).Scan(&id, &user.Email, &user.DisplayName, &user.PasswordHash, &user.CreatedAt)
	metrics.ObserveNetworkRequest("postgres", operation, "users", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("select user: %w", err)
	}
	user.ID = id.String()
	return user, nil
}

// NormalizeEmail приводит email к виду, в котором он хранится.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
