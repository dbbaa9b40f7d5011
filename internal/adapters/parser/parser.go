// Package parser извлекает структурированные поля из свободного ответа модели.
//
// Модель отвечает прозой, за которой идут помеченные поля в фиксированном
// порядке: Recommended Content Category, YouTube Search Keywords, Keywords,
// Mood Score. Поля снимаются с хвоста по одному, начиная с Mood Score; то, что
// осталось, считается текстом анализа. Разбор никогда не возвращает ошибку:
// отсутствующее поле даёт пустое значение и предупреждение в лог.
package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"ai-diary/internal/domain"
	"ai-diary/internal/infra/metrics"
)

const (
	FieldMoodScore = "mood_score"
	FieldKeywords  = "keywords"
	FieldYouTube   = "youtube_search_keywords"
	FieldCategory  = "recommended_category"
)

var (
	moodLabel     = labelPattern("Mood", "Score")
	keywordsLabel = labelPattern("Keywords")
	youtubeLabel  = labelPattern("YouTube", "Search", "Keywords")
	categoryLabel = labelPattern("Recommended", "Content", "Category")

	scoreValue   = regexp.MustCompile(`^(\d+)(?:\s*/\s*100)?\.?$`)
	bareScore    = regexp.MustCompile(`^\d{1,3}$`)
	headingLine  = regexp.MustCompile(`(?i)^\s*\*{0,2}(?:analysis\s+results?|분석\s*결과)\s*\*{0,2}\s*:\s*\*{0,2}[ \t]*\n`)
	leadingRule  = regexp.MustCompile(`^\s*-{3,}\s*`)
	trailingRule = regexp.MustCompile(`(?:^|\n)[ \t]*-{3,}[^\n]*$`)
	blankLines   = regexp.MustCompile(`\n\s*\n`)
)

// labelPattern собирает регулярное выражение метки: «**Label:**», «**Label**:»,
// «Label:» и «Label :» в любом регистре, с необязательным маркером списка.
func labelPattern(words ...string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:[-•][ \t]+)?\*{0,2}[ \t]*` +
		strings.Join(words, `[ \t]+`) +
		`[ \t]*\*{0,2}[ \t]*:[ \t]*\*{0,2}[ \t]*`)
}

// Parser разбирает ответы модели.
type Parser struct {
	log zerolog.Logger
}

// New создаёт парсер с логгером для предупреждений.
func New(logger zerolog.Logger) *Parser {
	return &Parser{log: logger.With().Str("component", "parser").Logger()}
}

// Parse возвращает анализ из ответа модели. Сначала пробуется JSON-форма,
// затем разбор по меткам.
func (p *Parser) Parse(reply string) domain.Analysis {
	text := strings.TrimSpace(reply)
	if a, ok := parseStructured(text); ok {
		return a
	}
	return p.parseLabeled(text)
}

func (p *Parser) parseLabeled(text string) domain.Analysis {
	out := domain.Analysis{Keywords: []string{}, YoutubeSearchKeywords: []string{}}

	if start, end, value, ok := lastField(text, moodLabel, nil, nil); ok {
		out.MoodScore = p.moodScore(value)
		text = cut(text, start, end)
	} else if score, rest, ok := trailingBareScore(text); ok {
		out.MoodScore = score
		text = rest
	} else {
		p.missing(FieldMoodScore)
	}

	if start, end, value, ok := lastField(text, keywordsLabel, moodLabel, precededBySearch); ok {
		out.Keywords = splitList(value)
		text = cut(text, start, end)
	} else {
		p.missing(FieldKeywords)
	}

	if start, end, value, ok := lastField(text, youtubeLabel, keywordsLabel, nil); ok {
		out.YoutubeSearchKeywords = splitList(value)
		text = cut(text, start, end)
	} else {
		p.missing(FieldYouTube)
	}

	if start, end, value, ok := lastField(text, categoryLabel, youtubeLabel, nil); ok {
		out.RecommendedCategory = cleanValue(value)
		text = cut(text, start, end)
	} else {
		p.missing(FieldCategory)
	}

	out.AnalysisText = cleanProse(text)
	return out
}

func (p *Parser) moodScore(value string) *int {
	m := scoreValue.FindStringSubmatch(cleanValue(value))
	if m == nil {
		p.log.Warn().Str("value", value).Msg("mood score is not a number")
		metrics.IncParseDegradation(FieldMoodScore)
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 0 || n > 100 {
		p.log.Warn().Str("value", value).Msg("mood score out of range")
		metrics.IncParseDegradation(FieldMoodScore)
		return nil
	}
	return &n
}

func (p *Parser) missing(field string) {
	p.log.Warn().Str("field", field).Msg("label not found in analysis")
	metrics.IncParseDegradation(field)
}

// lastField ищет последнее вхождение метки и возвращает границы поля и его
// значение. Метка засчитывается в начале строки или выделенная жирным.
// Значение продолжается до конца строки или до граничной метки, если она
// стоит на той же строке.
func lastField(text string, label, boundary *regexp.Regexp, skip func(prefix string) bool) (int, int, string, bool) {
	matches := label.FindAllStringIndex(text, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		if !anchored(text, m[0], m[1]) {
			continue
		}
		if skip != nil && skip(text[:m[0]]) {
			continue
		}
		end := len(text)
		if nl := strings.IndexByte(text[m[1]:], '\n'); nl >= 0 {
			end = m[1] + nl
		}
		value := text[m[1]:end]
		if boundary != nil {
			if loc := boundary.FindStringIndex(value); loc != nil {
				end = m[1] + loc[0]
				value = value[:loc[0]]
			}
		}
		return m[0], end, value, true
	}
	return 0, 0, "", false
}

// anchored отличает метку поля от того же слова внутри прозы.
func anchored(text string, start, end int) bool {
	if strings.HasPrefix(strings.TrimLeft(text[start:end], "-• \t"), "*") {
		return true
	}
	lineStart := strings.LastIndexByte(text[:start], '\n') + 1
	return strings.TrimSpace(text[lineStart:start]) == ""
}

// precededBySearch отсекает «Keywords:» внутри «YouTube Search Keywords:».
func precededBySearch(prefix string) bool {
	p := strings.TrimRight(prefix, " \t*")
	return strings.HasSuffix(strings.ToLower(p), "search")
}

// trailingBareScore принимает число 0..100 на последней строке ответа без меток
// за оценку настроения. Другие числа остаются частью текста.
func trailingBareScore(text string) (*int, string, bool) {
	nl := strings.LastIndexByte(text, '\n')
	if nl < 0 {
		return nil, text, false
	}
	line := strings.TrimSpace(text[nl+1:])
	if !bareScore.MatchString(line) {
		return nil, text, false
	}
	n, err := strconv.Atoi(line)
	if err != nil || n > 100 {
		return nil, text, false
	}
	return &n, strings.TrimSpace(text[:nl]), true
}

func cut(text string, start, end int) string {
	return strings.TrimSpace(text[:start] + text[end:])
}

func cleanValue(v string) string {
	v = strings.Trim(strings.TrimSpace(v), "*")
	v = strings.TrimSpace(v)
	if len(v) >= 2 {
		first, last := v[0], v[len(v)-1]
		if (first == '"' && last == '"') || (first == '[' && last == ']') || (first == '\'' && last == '\'') {
			v = strings.TrimSpace(v[1 : len(v)-1])
		}
	}
	return v
}

func splitList(value string) []string {
	parts := strings.Split(cleanValue(value), ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.Trim(strings.TrimSpace(part), `"'`)
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func cleanProse(text string) string {
	text = strings.TrimSpace(text)
	text = headingLine.ReplaceAllString(text, "")
	text = leadingRule.ReplaceAllString(text, "")
	for {
		stripped := strings.TrimSpace(trailingRule.ReplaceAllString(text, ""))
		if stripped == text {
			break
		}
		text = stripped
	}
	text = blankLines.ReplaceAllString(text, "\n")
	return strings.TrimSpace(text)
}
