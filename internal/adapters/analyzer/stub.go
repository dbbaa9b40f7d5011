package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"unicode"

	"ai-diary/internal/adapters/parser"
	"ai-diary/internal/domain"
	openai "ai-diary/internal/infra/openai"
)

var (
	brightWords = []string{"happy", "joy", "grateful", "gratitude", "love", "great", "calm", "proud", "excited", "fun"}
	heavyWords  = []string{"sad", "tired", "angry", "anxious", "lonely", "stress", "worried", "afraid", "hurt", "cry"}
)

// Stub имитирует модель без сетевых вызовов. Ответ проходит через тот же парсер.
type Stub struct {
	personas domain.PersonaCatalog
	parser   *parser.Parser
}

var _ domain.Analyzer = (*Stub)(nil)

// NewStub создаёт заглушку.
func NewStub(personas domain.PersonaCatalog, p *parser.Parser) *Stub {
	return &Stub{personas: personas, parser: p}
}

// Analyze возвращает детерминированный анализ записи.
func (s *Stub) Analyze(_ context.Context, userText, personaID string) (domain.Analysis, error) {
	persona, err := resolve(s.personas, userText, personaID)
	if err != nil {
		return domain.Analysis{}, err
	}
	return s.parser.Parse(s.reply(persona, userText)), nil
}

// Raw возвращает ответ в форме chat completion.
func (s *Stub) Raw(_ context.Context, userText, personaID string) (json.RawMessage, error) {
	persona, err := resolve(s.personas, userText, personaID)
	if err != nil {
		return nil, err
	}
	resp := openai.ChatCompletionResponse{
		ID:    "stub",
		Model: "stub",
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatMessage{Role: "assistant", Content: s.reply(persona, userText)},
		}},
	}
	return json.Marshal(resp)
}

func (s *Stub) reply(persona domain.Persona, userText string) string {
	words := tokenize(userText)
	score := 50
	for _, w := range words {
		if slices.Contains(brightWords, w) {
			score += 10
		}
		if slices.Contains(heavyWords, w) {
			score -= 10
		}
	}
	score = max(0, min(100, score))

	category := "Calming Music"
	search := "calm piano"
	if score >= 60 {
		category, search = "Uplifting Music", "happy songs"
	}

	keywords := make([]string, 0, 3)
	for _, w := range words {
		if len([]rune(w)) < 4 || slices.Contains(keywords, w) {
			continue
		}
		keywords = append(keywords, w)
		if len(keywords) == 3 {
			break
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s has read your entry and stays with you.\n\n", persona.Name)
	b.WriteString("--- End of Persona Analysis ---\n\n")
	fmt.Fprintf(&b, "**Recommended Content Category:** %s\n", category)
	fmt.Fprintf(&b, "**YouTube Search Keywords:** %s\n", search)
	fmt.Fprintf(&b, "**Keywords:** %s\n", strings.Join(keywords, ", "))
	fmt.Fprintf(&b, "**Mood Score:** %d", score)
	return b.String()
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
