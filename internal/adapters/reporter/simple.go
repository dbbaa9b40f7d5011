package reporter

import (
	"context"
	"fmt"
	"strings"

	"ai-diary/internal/domain"
)

// Simple собирает тему периода из шаблона, без обращения к модели.
type Simple struct{}

var _ domain.ReportNarrator = Simple{}

// NewSimple создаёт шаблонного рассказчика.
func NewSimple() Simple { return Simple{} }

// Narrate формирует текст по ключевым словам и оценкам.
func (Simple) Narrate(_ context.Context, d domain.ReportDigest) (domain.ReportNarrative, error) {
	span := "week"
	if d.Period == domain.PeriodMonthly {
		span = "month"
	}
	theme := fmt.Sprintf("Across %d entries this %s, your thoughts kept returning to %s. Your brightest moment reached %d, and your quietest dipped to %d.",
		d.TotalEntries, span, joinKeywords(d.TopKeywords), d.BrightestScore, d.PonderedScore)
	message := fmt.Sprintf("%s is cheering you on for the next %s.", d.Persona.Name, span)
	return domain.ReportNarrative{JourneyTheme: theme, LighthouseMessage: message}, nil
}

func joinKeywords(keywords []string) string {
	switch len(keywords) {
	case 0:
		return "many things"
	case 1:
		return keywords[0]
	default:
		return strings.Join(keywords[:len(keywords)-1], ", ") + " and " + keywords[len(keywords)-1]
	}
}
