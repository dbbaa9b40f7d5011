package reporter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ai-diary/internal/domain"
	openai "ai-diary/internal/infra/openai"
)

type chatCompletionClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// LLMNarrator просит модель сформулировать тему периода от лица главного персонажа.
type LLMNarrator struct {
	client  chatCompletionClient
	model   string
	timeout time.Duration
}

var _ domain.ReportNarrator = (*LLMNarrator)(nil)

// NewLLM создаёт рассказчика на базе Chat Completions.
func NewLLM(client chatCompletionClient, model string, timeout time.Duration) *LLMNarrator {
	if model == "" {
		model = openai.DefaultModel
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &LLMNarrator{client: client, model: model, timeout: timeout}
}

// Narrate возвращает тему периода и напутствие.
func (n *LLMNarrator) Narrate(ctx context.Context, digest domain.ReportDigest) (domain.ReportNarrative, error) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: n.model,
		Messages: []openai.ChatMessage{
			{Role: openai.RoleSystem, Content: systemPrompt(digest.Persona.Name)},
			{Role: openai.RoleUser, Content: userMessage(digest)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ResponseFormatTypeJSONObject},
	}

	resp, err := n.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return domain.ReportNarrative{}, fmt.Errorf("openai completion: %w", err)
	}
	content := resp.Content()
	if content == "" {
		return domain.ReportNarrative{}, fmt.Errorf("openai completion: пустой ответ")
	}
	var parsed domain.ReportNarrative
	if err := json.Unmarshal([]byte(stripFence(content)), &parsed); err != nil {
		return domain.ReportNarrative{}, fmt.Errorf("распаковка ответа LLM: %w", err)
	}
	return domain.ReportNarrative{
		JourneyTheme:      strings.TrimSpace(parsed.JourneyTheme),
		LighthouseMessage: strings.TrimSpace(parsed.LighthouseMessage),
	}, nil
}

func systemPrompt(personaName string) string {
	return fmt.Sprintf(`You are acting as the user's chosen AI persona, '%s'.
Your task is to analyze the following summary of a user's diary entries over a period and provide two things in a warm, encouraging, and in-character tone:
1. **Journey Theme:** A 1-2 paragraph summary that captures the overall emotional theme of the user's journey.
2. **Lighthouse Message:** A short, forward-looking, and inspiring message for the user's next journey.
You MUST provide the response in a structured JSON format:
{
  "journeyTheme": "Your generated theme summary here.",
  "lighthouseMessage": "Your generated lighthouse message here."
}
Do not include any other text or markdown formatting outside of this JSON structure.`, personaName)
}

func userMessage(d domain.ReportDigest) string {
	return fmt.Sprintf(`Here is the summary of my journey:
- Period: %s
- Total Entries: %d
- My Brightest Moment (Mood: %d): "%s..."
- A Moment I Pondered (Mood: %d): "%s..."
- My Core Keywords: %s`,
		d.Period, d.TotalEntries,
		d.BrightestScore, d.BrightestExcerpt,
		d.PonderedScore, d.PonderedExcerpt,
		strings.Join(d.TopKeywords, ", "))
}

func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	body := strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(body), "```"))
}
