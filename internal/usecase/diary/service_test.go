package diary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"ai-diary/internal/adapters/personas"
	"ai-diary/internal/adapters/sanitize"
	"ai-diary/internal/domain"
)

type memRepo struct {
	entries []domain.DiaryEntry
	seq     int
}

func (m *memRepo) CreateEntry(_ context.Context, e domain.DiaryEntry) (domain.DiaryEntry, error) {
	m.seq++
	e.ID = fmt.Sprintf("e%02d", m.seq)
	m.entries = append(m.entries, e)
	return e, nil
}

func (m *memRepo) GetEntry(_ context.Context, userID, id string) (domain.DiaryEntry, error) {
	for _, e := range m.entries {
		if e.ID == id && e.UserID == userID {
			return e, nil
		}
	}
	return domain.DiaryEntry{}, domain.ErrNotFound
}

func (m *memRepo) ListEntries(ctx context.Context, userID, cursor string, limit int) ([]domain.DiaryEntry, error) {
	var own []domain.DiaryEntry
	for _, e := range m.entries {
		if e.UserID == userID {
			own = append(own, e)
		}
	}
	sort.Slice(own, func(i, j int) bool { return own[i].ID > own[j].ID })
	if cursor != "" {
		if _, err := m.GetEntry(ctx, userID, cursor); err != nil {
			return nil, err
		}
		for i, e := range own {
			if e.ID == cursor {
				own = own[i+1:]
				break
			}
		}
	}
	if len(own) > limit {
		own = own[:limit]
	}
	return own, nil
}

func (m *memRepo) ListEntriesBetween(context.Context, string, time.Time, time.Time) ([]domain.DiaryEntry, error) {
	return nil, nil
}

func (m *memRepo) UpdateEntry(_ context.Context, userID, id string, p domain.DiaryPatch) (domain.DiaryEntry, error) {
	for i, e := range m.entries {
		if e.ID != id || e.UserID != userID {
			continue
		}
		if p.UserText != nil {
			e.UserText = *p.UserText
		}
		if p.AnalysisResult != nil {
			e.AnalysisResult = *p.AnalysisResult
		}
		if p.MoodScore != nil {
			e.MoodScore = p.MoodScore
		}
		if p.Keywords != nil {
			e.Keywords = p.Keywords
		}
		if p.PersonaID != nil {
			e.PersonaID = *p.PersonaID
		}
		at := p.UpdatedAt
		e.UpdatedAt = &at
		m.entries[i] = e
		return e, nil
	}
	return domain.DiaryEntry{}, domain.ErrNotFound
}

func (m *memRepo) DeleteEntry(_ context.Context, userID, id string) error {
	for i, e := range m.entries {
		if e.ID == id && e.UserID == userID {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memRepo) ListActiveUsers(context.Context, time.Time) ([]string, error) { return nil, nil }

type fakeAnalyzer struct {
	result domain.Analysis
	err    error
	calls  int
}

func (f *fakeAnalyzer) Analyze(context.Context, string, string) (domain.Analysis, error) {
	f.calls++
	return f.result, f.err
}

type fakeVideos struct {
	err   error
	query string
}

func (f *fakeVideos) SearchVideos(_ context.Context, query string, _ int) ([]domain.VideoSummary, error) {
	f.query = query
	if f.err != nil {
		return nil, f.err
	}
	return []domain.VideoSummary{{ID: "v1", Title: "Song"}}, nil
}

func (f *fakeVideos) SearchRaw(context.Context, string, int) (json.RawMessage, error) {
	return nil, nil
}

type countingInvalidator struct{ n int }

func (c *countingInvalidator) Invalidate(context.Context, string) error {
	c.n++
	return nil
}

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, repo *memRepo, an *fakeAnalyzer, videos *fakeVideos, inv *countingInvalidator) *Service {
	t.Helper()
	catalog, err := personas.Load(false)
	if err != nil {
		t.Fatalf("каталог: %v", err)
	}
	return NewService(repo, an, videos, catalog, sanitize.NewPlain(), zerolog.Nop(),
		WithInvalidator(inv), WithMaxVideos(3), WithClock(func() time.Time { return fixedNow }))
}

func intPtr(v int) *int { return &v }

func TestAnalyzeStoresEntry(t *testing.T) {
	repo := &memRepo{}
	an := &fakeAnalyzer{result: domain.Analysis{
		AnalysisText:          "<b>Great</b> reflection.",
		MoodScore:             intPtr(85),
		Keywords:              []string{"joy", " ", "gratitude"},
		RecommendedCategory:   "Uplifting Music",
		YoutubeSearchKeywords: []string{"happy", "songs"},
	}}
	videos := &fakeVideos{}
	inv := &countingInvalidator{}
	s := newTestService(t, repo, an, videos, inv)

	got, err := s.Analyze(context.Background(), "u1", "  Today was good.  ", "luna")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	want := domain.DiaryEntry{
		ID:                     "e01",
		UserID:                 "u1",
		UserText:               "Today was good.",
		AnalysisResult:         "Great reflection.",
		MoodScore:              intPtr(85),
		Keywords:               []string{"joy", "gratitude"},
		PersonaID:              "luna",
		RecommendedCategory:    "Uplifting Music",
		YoutubeRecommendations: []domain.VideoSummary{{ID: "v1", Title: "Song"}},
		CreatedAt:              fixedNow,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("неверная запись (-want +got):\n%s", diff)
	}
	if videos.query != "happy songs" {
		t.Fatalf("неверный запрос видео: %q", videos.query)
	}
	if inv.n != 1 {
		t.Fatalf("ожидали сброс кэша отчётов")
	}
}

func TestAnalyzeSurvivesVideoFailure(t *testing.T) {
	an := &fakeAnalyzer{result: domain.Analysis{AnalysisText: "ok", YoutubeSearchKeywords: []string{"calm"}}}
	s := newTestService(t, &memRepo{}, an, &fakeVideos{err: domain.ErrUpstream}, &countingInvalidator{})

	got, err := s.Analyze(context.Background(), "u1", "text", "drjun")
	if err != nil {
		t.Fatalf("ошибка поиска видео не должна прерывать анализ: %v", err)
	}
	if got.YoutubeRecommendations == nil || len(got.YoutubeRecommendations) != 0 {
		t.Fatalf("ожидали пустые рекомендации: %v", got.YoutubeRecommendations)
	}
}

func TestAnalyzeValidation(t *testing.T) {
	cases := []struct {
		name    string
		text    string
		persona string
		msg     string
	}{
		{name: "empty text", text: "   ", persona: "luna", msg: "Diary content cannot be empty."},
		{name: "no persona", text: "hi", persona: "", msg: "Please choose an AI Persona."},
		{name: "unknown persona", text: "hi", persona: "ghost", msg: "Invalid persona selected: ghost"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			an := &fakeAnalyzer{}
			s := newTestService(t, &memRepo{}, an, &fakeVideos{}, &countingInvalidator{})
			_, err := s.Analyze(context.Background(), "u1", tc.text, tc.persona)
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("ожидали ErrInvalidInput, получили %v", err)
			}
			if msg, _ := domain.UserMessage(err); msg != tc.msg {
				t.Fatalf("ожидали %q, получили %q", tc.msg, msg)
			}
			if an.calls != 0 {
				t.Fatalf("модель не должна вызываться при ошибке валидации")
			}
		})
	}
}

func TestAnalyzeUpstreamError(t *testing.T) {
	an := &fakeAnalyzer{err: fmt.Errorf("wrap: %w", domain.ErrUpstream)}
	repo := &memRepo{}
	s := newTestService(t, repo, an, &fakeVideos{}, &countingInvalidator{})
	if _, err := s.Analyze(context.Background(), "u1", "text", "luna"); !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("ожидали ErrUpstream, получили %v", err)
	}
	if len(repo.entries) != 0 {
		t.Fatalf("запись не должна сохраняться")
	}
}

func TestListPaginates(t *testing.T) {
	repo := &memRepo{}
	for i := 0; i < 5; i++ {
		_, _ = repo.CreateEntry(context.Background(), domain.DiaryEntry{UserID: "u1"})
	}
	_, _ = repo.CreateEntry(context.Background(), domain.DiaryEntry{UserID: "u2"})
	s := newTestService(t, repo, &fakeAnalyzer{}, &fakeVideos{}, &countingInvalidator{})

	first, err := s.List(context.Background(), "u1", "", 2)
	if err != nil {
		t.Fatalf("первая страница: %v", err)
	}
	if len(first.Diaries) != 2 || first.Diaries[0].ID != "e05" || first.NextCursor != "e04" {
		t.Fatalf("неверная первая страница: %+v", first)
	}
	second, _ := s.List(context.Background(), "u1", first.NextCursor, 2)
	third, _ := s.List(context.Background(), "u1", second.NextCursor, 2)
	if len(third.Diaries) != 1 || third.Diaries[0].ID != "e01" || third.NextCursor != "" {
		t.Fatalf("неверная последняя страница: %+v", third)
	}

	if _, err := s.List(context.Background(), "u1", "e06", 2); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("чужой курсор должен отклоняться, получили %v", err)
	}
}

func TestClampLimit(t *testing.T) {
	for in, want := range map[int]int{0: 10, -1: 10, 1: 1, 50: 50, 51: 50} {
		if got := ClampLimit(in); got != want {
			t.Fatalf("ClampLimit(%d) = %d, ожидали %d", in, got, want)
		}
	}
}

func TestGetAndDeleteAreScopedByOwner(t *testing.T) {
	repo := &memRepo{}
	entry, _ := repo.CreateEntry(context.Background(), domain.DiaryEntry{UserID: "u1"})
	inv := &countingInvalidator{}
	s := newTestService(t, repo, &fakeAnalyzer{}, &fakeVideos{}, inv)

	if _, err := s.Get(context.Background(), "u2", entry.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("ожидали ErrNotFound для чужой записи, получили %v", err)
	}
	if err := s.Delete(context.Background(), "u2", entry.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("ожидали ErrNotFound при удалении чужой записи, получили %v", err)
	}
	if err := s.Delete(context.Background(), "u1", entry.ID); err != nil {
		t.Fatalf("удаление: %v", err)
	}
	if inv.n != 1 {
		t.Fatalf("ожидали один сброс кэша, получили %d", inv.n)
	}
}

func TestPreview(t *testing.T) {
	repo := &memRepo{}
	entry, _ := repo.CreateEntry(context.Background(), domain.DiaryEntry{UserID: "u1", UserText: "old text"})
	an := &fakeAnalyzer{result: domain.Analysis{AnalysisText: "new take", MoodScore: intPtr(50)}}
	s := newTestService(t, repo, an, &fakeVideos{}, &countingInvalidator{})

	cases := []struct {
		name    string
		id      string
		text    string
		persona string
		msg     string
	}{
		{name: "no id", id: "", text: "x", persona: "luna", msg: "Please select a diary to update."},
		{name: "empty", id: entry.ID, text: " ", persona: "luna", msg: "Diary content cannot be empty."},
		{name: "unchanged", id: entry.ID, text: " old text ", persona: "luna", msg: "Content has not been changed."},
		{name: "no persona", id: entry.ID, text: "new text", persona: "", msg: "Please choose an AI Persona for re-analysis."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Preview(context.Background(), "u1", tc.id, tc.text, tc.persona)
			if msg, _ := domain.UserMessage(err); msg != tc.msg {
				t.Fatalf("ожидали %q, получили %v", tc.msg, err)
			}
		})
	}

	got, err := s.Preview(context.Background(), "u1", entry.ID, "new text", "karma")
	if err != nil {
		t.Fatalf("предпросмотр: %v", err)
	}
	if got.AnalysisText != "new take" {
		t.Fatalf("неверный анализ: %+v", got)
	}
	stored, _ := repo.GetEntry(context.Background(), "u1", entry.ID)
	if stored.UserText != "old text" {
		t.Fatalf("предпросмотр не должен менять запись")
	}
}

func TestUpdate(t *testing.T) {
	repo := &memRepo{}
	entry, _ := repo.CreateEntry(context.Background(), domain.DiaryEntry{UserID: "u1", UserText: "old"})
	inv := &countingInvalidator{}
	s := newTestService(t, repo, &fakeAnalyzer{}, &fakeVideos{}, inv)

	text := "fresh"
	analysis := "<i>Kind</i> words"
	persona := "drjun"
	got, err := s.Update(context.Background(), "u1", entry.ID, domain.DiaryPatch{
		UserText:       &text,
		AnalysisResult: &analysis,
		MoodScore:      intPtr(64),
		Keywords:       []string{" a ", ""},
		PersonaID:      &persona,
	})
	if err != nil {
		t.Fatalf("обновление: %v", err)
	}
	if got.UserText != "fresh" || got.AnalysisResult != "Kind words" || *got.MoodScore != 64 || got.PersonaID != "drjun" {
		t.Fatalf("неверная запись: %+v", got)
	}
	if diff := cmp.Diff([]string{"a"}, got.Keywords); diff != "" {
		t.Fatalf("неверные ключевые слова: %s", diff)
	}
	if got.UpdatedAt == nil || !got.UpdatedAt.Equal(fixedNow) {
		t.Fatalf("updatedAt должен выставляться сервером: %v", got.UpdatedAt)
	}
	if inv.n != 1 {
		t.Fatalf("ожидали сброс кэша")
	}

	bad := []struct {
		name  string
		id    string
		patch domain.DiaryPatch
		want  error
	}{
		{name: "no id", id: "", patch: domain.DiaryPatch{MoodScore: intPtr(1)}, want: domain.ErrInvalidInput},
		{name: "empty patch", id: entry.ID, patch: domain.DiaryPatch{}, want: domain.ErrInvalidInput},
		{name: "mood range", id: entry.ID, patch: domain.DiaryPatch{MoodScore: intPtr(101)}, want: domain.ErrInvalidInput},
		{name: "foreign", id: "e99", patch: domain.DiaryPatch{MoodScore: intPtr(1)}, want: domain.ErrNotFound},
	}
	for _, tc := range bad {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.Update(context.Background(), "u1", tc.id, tc.patch); !errors.Is(err, tc.want) {
				t.Fatalf("ожидали %v, получили %v", tc.want, err)
			}
		})
	}
}
