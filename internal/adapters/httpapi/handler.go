// Package httpapi описывает JSON API дневника поверх chi.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	chi "github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"ai-diary/internal/adapters/youtube"
	"ai-diary/internal/domain"
	httpinfra "ai-diary/internal/infra/http"
	"ai-diary/internal/usecase/auth"
)

const maxBodyBytes = 1 << 20

// AuthService отвечает за регистрацию и сессии.
type AuthService interface {
	httpinfra.Authenticator
	SignUp(ctx context.Context, email, password, displayName string) (auth.Session, error)
	SignIn(ctx context.Context, email, password string) (auth.Session, error)
	SignOut(ctx context.Context, token string) error
	Me(ctx context.Context, userID string) (domain.User, error)
}

// DiaryService выполняет операции над записями.
type DiaryService interface {
	Analyze(ctx context.Context, userID, text, personaID string) (domain.DiaryEntry, error)
	List(ctx context.Context, userID, cursor string, limit int) (domain.DiaryPage, error)
	Get(ctx context.Context, userID, id string) (domain.DiaryEntry, error)
	Preview(ctx context.Context, userID, id, text, personaID string) (domain.Analysis, error)
	Update(ctx context.Context, userID, id string, patch domain.DiaryPatch) (domain.DiaryEntry, error)
	Delete(ctx context.Context, userID, id string) error
}

// ReportGenerator строит отчёты.
type ReportGenerator interface {
	Generate(ctx context.Context, userID string, period domain.ReportPeriod) (domain.Report, error)
}

// ChatProxy возвращает ответ модели без обработки.
type ChatProxy interface {
	Raw(ctx context.Context, userText, personaID string) (json.RawMessage, error)
}

// Deps собирает зависимости обработчиков.
type Deps struct {
	Auth      AuthService
	Diaries   DiaryService
	Reports   ReportGenerator
	Chat      ChatProxy
	Videos    domain.VideoSearcher
	Personas  domain.PersonaCatalog
	Limiter   *httpinfra.RateLimiter
	MaxVideos int
}

// Handler обслуживает /api/v1.
type Handler struct {
	deps Deps
	log  zerolog.Logger
}

// New создаёт обработчики.
func New(deps Deps, logger zerolog.Logger) *Handler {
	return &Handler{deps: deps, log: logger}
}

// Mount регистрирует маршруты в роутере.
func (h *Handler) Mount(r chi.Router) {
	limit := func(route string) func(http.Handler) http.Handler {
		if h.deps.Limiter == nil {
			return func(next http.Handler) http.Handler { return next }
		}
		return h.deps.Limiter.Middleware(route)
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.With(limit("analyze_proxy")).Post("/analyze", h.analyzeProxy)
		api.Post("/youtube/search", h.youtubeProxy)
		api.Get("/personas", h.personas)

		api.Post("/auth/signup", h.signUp)
		api.Post("/auth/signin", h.signIn)

		api.Group(func(protected chi.Router) {
			protected.Use(httpinfra.BearerAuth(h.deps.Auth, h.log))

			protected.Post("/auth/signout", h.signOut)
			protected.Get("/auth/me", h.me)

			protected.With(limit("diaries_create")).Post("/diaries", h.createDiary)
			protected.Get("/diaries", h.listDiaries)
			protected.Get("/diaries/{id}", h.getDiary)
			protected.With(limit("diaries_reanalyze")).Post("/diaries/{id}/reanalyze", h.reanalyze)
			protected.Patch("/diaries/{id}", h.updateDiary)
			protected.Delete("/diaries/{id}", h.deleteDiary)

			protected.Post("/reports", h.report)
		})
	})
}

type analyzeRequest struct {
	UserText  string `json:"userText"`
	PersonaID string `json:"personaId"`
}

func (h *Handler) analyzeProxy(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !h.decode(w, r, &req) {
		return
	}
	raw, err := h.deps.Chat.Raw(r.Context(), req.UserText, req.PersonaID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpinfra.WriteRawJSON(w, http.StatusOK, raw)
}

type searchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"maxResults"`
}

func (h *Handler) youtubeProxy(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !h.decode(w, r, &req) {
		return
	}
	n := req.MaxResults
	if n == 0 {
		n = h.deps.MaxVideos
	}
	raw, err := h.deps.Videos.SearchRaw(r.Context(), req.Query, youtube.ClampMaxResults(n))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpinfra.WriteRawJSON(w, http.StatusOK, raw)
}

func (h *Handler) personas(w http.ResponseWriter, r *http.Request) {
	httpinfra.WriteJSON(w, http.StatusOK, h.deps.Personas.List())
}

type signUpRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

func (h *Handler) signUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !h.decode(w, r, &req) {
		return
	}
	session, err := h.deps.Auth.SignUp(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusCreated, session)
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !h.decode(w, r, &req) {
		return
	}
	session, err := h.deps.Auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, session)
}

func (h *Handler) signOut(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Auth.SignOut(r.Context(), httpinfra.SessionToken(r.Context())); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	user, err := h.deps.Auth.Me(r.Context(), httpinfra.UserID(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) createDiary(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !h.decode(w, r, &req) {
		return
	}
	entry, err := h.deps.Diaries.Analyze(r.Context(), httpinfra.UserID(r.Context()), req.UserText, req.PersonaID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusCreated, entry)
}

func (h *Handler) listDiaries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.fail(w, r, domain.Invalid("limit must be a number."))
			return
		}
		limit = n
	}
	page, err := h.deps.Diaries.List(r.Context(), httpinfra.UserID(r.Context()), q.Get("cursor"), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) getDiary(w http.ResponseWriter, r *http.Request) {
	entry, err := h.deps.Diaries.Get(r.Context(), httpinfra.UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, entry)
}

func (h *Handler) reanalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !h.decode(w, r, &req) {
		return
	}
	analysis, err := h.deps.Diaries.Preview(r.Context(), httpinfra.UserID(r.Context()), chi.URLParam(r, "id"), req.UserText, req.PersonaID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, analysis)
}

func (h *Handler) updateDiary(w http.ResponseWriter, r *http.Request) {
	var req patchRequest
	if !h.decode(w, r, &req) {
		return
	}
	entry, err := h.deps.Diaries.Update(r.Context(), httpinfra.UserID(r.Context()), chi.URLParam(r, "id"), req.toPatch())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, entry)
}

func (h *Handler) deleteDiary(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Diaries.Delete(r.Context(), httpinfra.UserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reportRequest struct {
	Period string `json:"period"`
}

func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if !h.decode(w, r, &req) {
		return
	}
	period, err := domain.ParsePeriod(req.Period)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	report, err := h.deps.Reports.Generate(r.Context(), httpinfra.UserID(r.Context()), period)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		h.fail(w, r, domain.Invalid("Invalid request body."))
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	httpinfra.WriteError(w, r, h.log, err)
}
