package report

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"ai-diary/internal/adapters/personas"
	"ai-diary/internal/domain"
	"ai-diary/internal/infra/cache"
)

type stubDiaries struct {
	domain.DiaryRepo
	entries []domain.DiaryEntry
	calls   atomic.Int32
	from    time.Time
	to      time.Time
}

func (s *stubDiaries) ListEntriesBetween(_ context.Context, _ string, from, to time.Time) ([]domain.DiaryEntry, error) {
	s.calls.Add(1)
	s.from, s.to = from, to
	return s.entries, nil
}

type stubNarrator struct {
	narrative domain.ReportNarrative
	err       error
	got       domain.ReportDigest
}

func (s *stubNarrator) Narrate(_ context.Context, d domain.ReportDigest) (domain.ReportNarrative, error) {
	s.got = d
	return s.narrative, s.err
}

func score(v int) *int { return &v }

func entry(id string, mood *int, persona string, keywords ...string) domain.DiaryEntry {
	return domain.DiaryEntry{ID: id, UserID: "u1", UserText: "text " + id, MoodScore: mood, PersonaID: persona, Keywords: keywords}
}

var now = time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)

func newService(t *testing.T, diaries *stubDiaries, narrator domain.ReportNarrator, c domain.Cache) *Service {
	t.Helper()
	catalog, err := personas.Load(false)
	if err != nil {
		t.Fatalf("каталог: %v", err)
	}
	s := NewService(diaries, catalog, narrator, c, time.Hour, zerolog.Nop())
	s.now = func() time.Time { return now }
	return s
}

func TestAggregate(t *testing.T) {
	catalog, _ := personas.Load(false)
	entries := []domain.DiaryEntry{
		entry("a", score(40), "luna", "work", "rain"),
		entry("b", nil, "drjun", "rain"),
		entry("c", score(90), "drjun", " work ", "sun"),
		entry("d", score(90), "luna", "rain"),
		entry("e", score(40), "karma"),
	}
	entries[2].YoutubeRecommendations = []domain.VideoSummary{{ID: "v"}}

	report, digest, err := Aggregate(entries, catalog, domain.PeriodWeekly, now.AddDate(0, 0, -7), now)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if report.TotalEntries != 5 || len(report.EmotionGalaxy) != 5 {
		t.Fatalf("неверные итоги: %+v", report)
	}
	if report.BrightestMoment.ID != "c" || report.PonderedMoment.ID != "a" {
		t.Fatalf("при равенстве должна побеждать первая запись: %s / %s", report.BrightestMoment.ID, report.PonderedMoment.ID)
	}
	wantCloud := []domain.KeywordCount{{Value: "rain", Count: 3}, {Value: "work", Count: 2}, {Value: "sun", Count: 1}}
	if diff := cmp.Diff(wantCloud, report.KeywordCloud); diff != "" {
		t.Fatalf("неверное облако (-want +got):\n%s", diff)
	}
	// luna и drjun встречаются по два раза, побеждает появившийся позже
	if report.MainPersona == nil || report.MainPersona.ID != "drjun" {
		t.Fatalf("неверный главный персонаж: %+v", report.MainPersona)
	}
	if !report.EmotionGalaxy[2].HasRecommendation || report.EmotionGalaxy[1].MoodScore != nil {
		t.Fatalf("неверные точки галактики: %+v", report.EmotionGalaxy)
	}
	if digest == nil || digest.BrightestScore != 90 || digest.PonderedScore != 40 || len(digest.TopKeywords) != 3 {
		t.Fatalf("неверная сводка: %+v", digest)
	}
}

func TestAggregateNotFound(t *testing.T) {
	catalog, _ := personas.Load(false)
	_, _, err := Aggregate(nil, catalog, domain.PeriodWeekly, now, now)
	if msg, _ := domain.UserMessage(err); !errors.Is(err, domain.ErrNotFound) || msg != msgNoEntries {
		t.Fatalf("ожидали %q, получили %v", msgNoEntries, err)
	}
	_, _, err = Aggregate([]domain.DiaryEntry{entry("a", nil, "luna")}, catalog, domain.PeriodWeekly, now, now)
	if msg, _ := domain.UserMessage(err); !errors.Is(err, domain.ErrNotFound) || msg != msgNoScores {
		t.Fatalf("ожидали %q, получили %v", msgNoScores, err)
	}
}

func TestAggregateDefaultsWithoutKeywords(t *testing.T) {
	catalog, _ := personas.Load(false)
	report, digest, err := Aggregate([]domain.DiaryEntry{entry("a", score(10), "luna")}, catalog, domain.PeriodMonthly, now, now)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if digest != nil || report.JourneyTheme != DefaultJourneyTheme || report.LighthouseMessage != DefaultLighthouseMessage {
		t.Fatalf("ожидали тексты по умолчанию: %+v", report)
	}
}

func TestExcerptCountsRunes(t *testing.T) {
	long := strings.Repeat("한", 200)
	if got := []rune(excerpt(long)); len(got) != ExcerptRunes {
		t.Fatalf("ожидали %d символов, получили %d", ExcerptRunes, len(got))
	}
	if excerpt("short") != "short" {
		t.Fatalf("короткий текст не должен меняться")
	}
}

func TestGenerateUsesNarratorAndCache(t *testing.T) {
	diaries := &stubDiaries{entries: []domain.DiaryEntry{entry("a", score(70), "karma", "hope")}}
	narrator := &stubNarrator{narrative: domain.ReportNarrative{JourneyTheme: "theme", LighthouseMessage: "light"}}
	s := newService(t, diaries, narrator, cache.NewMemory())

	report, err := s.Generate(context.Background(), "u1", "Weekly")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if report.JourneyTheme != "theme" || report.LighthouseMessage != "light" || !report.GeneratedAt.Equal(now) {
		t.Fatalf("неверный отчёт: %+v", report)
	}
	if narrator.got.Persona.ID != "karma" || narrator.got.TopKeywords[0] != "hope" {
		t.Fatalf("неверная сводка для модели: %+v", narrator.got)
	}
	if !diaries.from.Equal(now.AddDate(0, 0, -7)) || !diaries.to.Equal(now) {
		t.Fatalf("неверное окно: %v..%v", diaries.from, diaries.to)
	}

	if _, err := s.Generate(context.Background(), "u1", domain.PeriodWeekly); err != nil {
		t.Fatalf("повторный вызов: %v", err)
	}
	if diaries.calls.Load() != 1 {
		t.Fatalf("второй вызов должен обслуживаться из кэша, запросов: %d", diaries.calls.Load())
	}

	if err := s.Invalidate(context.Background(), "u1"); err != nil {
		t.Fatalf("сброс: %v", err)
	}
	if _, err := s.Generate(context.Background(), "u1", domain.PeriodWeekly); err != nil {
		t.Fatalf("после сброса: %v", err)
	}
	if diaries.calls.Load() != 2 {
		t.Fatalf("после сброса отчёт должен строиться заново")
	}
}

func TestGenerateNarratorFailure(t *testing.T) {
	diaries := &stubDiaries{entries: []domain.DiaryEntry{entry("a", score(70), "luna", "hope")}}
	s := newService(t, diaries, &stubNarrator{err: errors.New("boom")}, nil)

	report, err := s.Generate(context.Background(), "u1", domain.PeriodMonthly)
	if err != nil {
		t.Fatalf("сбой модели не должен ломать отчёт: %v", err)
	}
	if report.JourneyTheme != FailedJourneyTheme || report.LighthouseMessage != FailedLighthouseMessage {
		t.Fatalf("ожидали запасные тексты: %+v", report)
	}
	if !diaries.from.Equal(now.AddDate(0, -1, 0)) {
		t.Fatalf("неверное начало месячного окна: %v", diaries.from)
	}
}

func TestGenerateInvalidPeriod(t *testing.T) {
	s := newService(t, &stubDiaries{}, nil, nil)
	if _, err := s.Generate(context.Background(), "u1", "daily"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("ожидали ErrInvalidInput, получили %v", err)
	}
}

type gatedNarrator struct {
	entered chan struct{}
	release chan struct{}
}

func (g *gatedNarrator) Narrate(ctx context.Context, _ domain.ReportDigest) (domain.ReportNarrative, error) {
	select {
	case g.entered <- struct{}{}:
	default:
	}
	<-g.release
	return domain.ReportNarrative{JourneyTheme: "theme", LighthouseMessage: "light"}, nil
}

func TestInvalidateDuringBuildDropsStaleReport(t *testing.T) {
	diaries := &stubDiaries{entries: []domain.DiaryEntry{entry("a", score(70), "karma", "hope")}}
	narrator := &gatedNarrator{entered: make(chan struct{}, 1), release: make(chan struct{})}
	s := newService(t, diaries, narrator, cache.NewMemory())

	done := make(chan domain.Report, 1)
	go func() {
		report, err := s.Generate(context.Background(), "u1", domain.PeriodWeekly)
		if err != nil {
			t.Errorf("первое построение: %v", err)
		}
		done <- report
	}()

	<-narrator.entered
	diaries.entries = append(diaries.entries, entry("b", score(30), "karma", "rain"))
	if err := s.Invalidate(context.Background(), "u1"); err != nil {
		t.Fatalf("сброс: %v", err)
	}
	close(narrator.release)
	if stale := <-done; stale.TotalEntries != 1 {
		t.Fatalf("первое построение видело %d записей", stale.TotalEntries)
	}

	fresh, err := s.Generate(context.Background(), "u1", domain.PeriodWeekly)
	if err != nil {
		t.Fatalf("после сброса: %v", err)
	}
	if fresh.TotalEntries != 2 || diaries.calls.Load() != 2 {
		t.Fatalf("после сброса ожидали новый отчёт на 2 записи, получили %d (запросов %d)", fresh.TotalEntries, diaries.calls.Load())
	}
}

func TestInvalidateWithoutCache(t *testing.T) {
	s := newService(t, &stubDiaries{}, nil, nil)
	if err := s.Invalidate(context.Background(), "u1"); err != nil {
		t.Fatalf("без кэша сброс не должен падать: %v", err)
	}
}
