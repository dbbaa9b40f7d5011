package report

import (
	"sort"
	"strings"
	"time"

	"ai-diary/internal/domain"
)

const (
	// TopKeywords ограничивает число ключевых слов, передаваемых модели.
	TopKeywords = 5
	// ExcerptRunes задаёт длину цитаты из записи в символах.
	ExcerptRunes = 150

	DefaultJourneyTheme      = "Could not generate AI summary."
	DefaultLighthouseMessage = "Keep shining your light."
	FailedJourneyTheme       = "An error occurred while generating the theme summary."
	FailedLighthouseMessage  = "Even if the summary isn't here, know that every step of your journey matters."

	msgNoEntries = "No diary entries found for the selected period."
	msgNoScores  = "No entries with a mood score were found."
)

// Aggregate строит отчёт без текстовой части. Записи ожидаются в порядке создания.
// Второе значение непусто, если для отчёта можно запросить тему у модели.
func Aggregate(entries []domain.DiaryEntry, catalog domain.PersonaCatalog, period domain.ReportPeriod, start, end time.Time) (domain.Report, *domain.ReportDigest, error) {
	if len(entries) == 0 {
		return domain.Report{}, nil, domain.NotFound(msgNoEntries)
	}
	brightest, pondered, ok := moments(entries)
	if !ok {
		return domain.Report{}, nil, domain.NotFound(msgNoScores)
	}

	report := domain.Report{
		Period:            period,
		StartDate:         start,
		EndDate:           end,
		TotalEntries:      len(entries),
		EmotionGalaxy:     galaxy(entries),
		BrightestMoment:   &brightest,
		PonderedMoment:    &pondered,
		KeywordCloud:      keywordCloud(entries),
		JourneyTheme:      DefaultJourneyTheme,
		LighthouseMessage: DefaultLighthouseMessage,
	}

	persona, found := catalog.Get(mainPersonaID(entries))
	if found {
		report.MainPersona = &domain.PersonaRef{ID: persona.ID, Name: persona.Name}
	}
	if !found || len(report.KeywordCloud) == 0 {
		return report, nil, nil
	}

	top := make([]string, 0, TopKeywords)
	for _, kw := range report.KeywordCloud {
		if len(top) == TopKeywords {
			break
		}
		top = append(top, kw.Value)
	}
	digest := &domain.ReportDigest{
		Period:           period,
		Persona:          persona,
		TotalEntries:     len(entries),
		TopKeywords:      top,
		BrightestExcerpt: excerpt(brightest.UserText),
		BrightestScore:   *brightest.MoodScore,
		PonderedExcerpt:  excerpt(pondered.UserText),
		PonderedScore:    *pondered.MoodScore,
	}
	return report, digest, nil
}

// moments выбирает записи с наибольшей и наименьшей оценкой; при равенстве побеждает более ранняя.
func moments(entries []domain.DiaryEntry) (domain.DiaryEntry, domain.DiaryEntry, bool) {
	var brightest, pondered *domain.DiaryEntry
	for i := range entries {
		e := &entries[i]
		if e.MoodScore == nil {
			continue
		}
		if brightest == nil || *e.MoodScore > *brightest.MoodScore {
			brightest = e
		}
		if pondered == nil || *e.MoodScore < *pondered.MoodScore {
			pondered = e
		}
	}
	if brightest == nil {
		return domain.DiaryEntry{}, domain.DiaryEntry{}, false
	}
	return *brightest, *pondered, true
}

// keywordCloud считает частоты ключевых слов. Порядок: по убыванию частоты, затем по первому появлению.
func keywordCloud(entries []domain.DiaryEntry) []domain.KeywordCount {
	index := make(map[string]int)
	out := make([]domain.KeywordCount, 0)
	for _, e := range entries {
		for _, kw := range e.Keywords {
			kw = strings.TrimSpace(kw)
			if kw == "" {
				continue
			}
			if i, ok := index[kw]; ok {
				out[i].Count++
				continue
			}
			index[kw] = len(out)
			out = append(out, domain.KeywordCount{Value: kw, Count: 1})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// mainPersonaID возвращает самого частого персонажа. При равенстве побеждает тот, кто появился позже.
func mainPersonaID(entries []domain.DiaryEntry) string {
	counts := make(map[string]int)
	var order []string
	for _, e := range entries {
		if e.PersonaID == "" {
			continue
		}
		if _, ok := counts[e.PersonaID]; !ok {
			order = append(order, e.PersonaID)
		}
		counts[e.PersonaID]++
	}
	best := ""
	for _, id := range order {
		if best == "" || counts[best] <= counts[id] {
			best = id
		}
	}
	return best
}

func galaxy(entries []domain.DiaryEntry) []domain.GalaxyPoint {
	points := make([]domain.GalaxyPoint, 0, len(entries))
	for _, e := range entries {
		points = append(points, domain.GalaxyPoint{
			ID:                e.ID,
			CreatedAt:         e.CreatedAt,
			MoodScore:         e.MoodScore,
			PersonaID:         e.PersonaID,
			HasRecommendation: e.HasRecommendation(),
		})
	}
	return points
}

func excerpt(text string) string {
	runes := []rune(text)
	if len(runes) <= ExcerptRunes {
		return text
	}
	return string(runes[:ExcerptRunes])
}
