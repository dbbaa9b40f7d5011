package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai-diary/internal/adapters/parser"
	"ai-diary/internal/domain"
	"ai-diary/internal/infra/metrics"
	openai "ai-diary/internal/infra/openai"
)

// ErrEmptyResponse возвращается, если модель ответила без текста.
var ErrEmptyResponse = errors.New("analyzer: empty response")

type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	CreateChatCompletionRaw(ctx context.Context, req openai.ChatCompletionRequest) (json.RawMessage, error)
}

// OpenAI анализирует записи через OpenAI-совместимый Chat Completions.
type OpenAI struct {
	client     chatClient
	personas   domain.PersonaCatalog
	parser     *parser.Parser
	model      string
	timeout    time.Duration
	structured bool
}

var _ domain.Analyzer = (*OpenAI)(nil)

// NewOpenAI создаёт анализатор. structured включает response_format=json_object.
func NewOpenAI(client chatClient, personas domain.PersonaCatalog, p *parser.Parser, model string, timeout time.Duration, structured bool) *OpenAI {
	if model == "" {
		model = openai.DefaultModel
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OpenAI{client: client, personas: personas, parser: p, model: model, timeout: timeout, structured: structured}
}

// Analyze отправляет запись выбранному персонажу и разбирает ответ.
func (a *OpenAI) Analyze(ctx context.Context, userText, personaID string) (domain.Analysis, error) {
	req, err := a.request(userText, personaID)
	if err != nil {
		return domain.Analysis{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		metrics.ObserveAnalysis(personaID, err)
		return domain.Analysis{}, fmt.Errorf("openai completion: %w: %w", domain.ErrUpstream, err)
	}
	content := resp.Content()
	if content == "" {
		metrics.ObserveAnalysis(personaID, ErrEmptyResponse)
		return domain.Analysis{}, fmt.Errorf("openai completion: %w: %w", domain.ErrUpstream, ErrEmptyResponse)
	}
	metrics.ObserveAnalysis(personaID, nil)
	return a.parser.Parse(content), nil
}

// Raw возвращает необработанный ответ модели для прокси-эндпоинта.
func (a *OpenAI) Raw(ctx context.Context, userText, personaID string) (json.RawMessage, error) {
	req, err := a.request(userText, personaID)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	raw, err := a.client.CreateChatCompletionRaw(ctx, req)
	metrics.ObserveAnalysis(personaID, err)
	if err != nil {
		return nil, fmt.Errorf("openai completion: %w: %w", domain.ErrUpstream, err)
	}
	return raw, nil
}

func (a *OpenAI) request(userText, personaID string) (openai.ChatCompletionRequest, error) {
	persona, err := resolve(a.personas, userText, personaID)
	if err != nil {
		return openai.ChatCompletionRequest{}, err
	}
	req := openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatMessage{
			{Role: openai.RoleSystem, Content: persona.SystemPrompt},
			{Role: openai.RoleUser, Content: userText},
		},
	}
	if a.structured {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ResponseFormatTypeJSONObject}
	}
	return req, nil
}

func resolve(personas domain.PersonaCatalog, userText, personaID string) (domain.Persona, error) {
	if strings.TrimSpace(userText) == "" || strings.TrimSpace(personaID) == "" {
		return domain.Persona{}, domain.Invalid("userText and personaId are required.")
	}
	persona, ok := personas.Get(personaID)
	if !ok {
		return domain.Persona{}, domain.Invalid(fmt.Sprintf("Invalid persona selected: %s", personaID))
	}
	return persona, nil
}
