package parser

import (
	"encoding/json"
	"math"
	"strings"

	"ai-diary/internal/domain"
)

// structuredReply повторяет JSON-ответ модели в режиме json_object.
type structuredReply struct {
	Analysis              string      `json:"analysis"`
	AnalysisText          string      `json:"analysisText"`
	MoodScore             json.Number `json:"moodScore"`
	Keywords              []string    `json:"keywords"`
	RecommendedCategory   string      `json:"recommendedCategory"`
	YoutubeSearchKeywords []string    `json:"youtubeSearchKeywords"`
}

// parseStructured пробует разобрать ответ как JSON-объект. Ответ без полей
// анализа считается не-JSON и уходит в разбор по меткам.
func parseStructured(text string) (domain.Analysis, bool) {
	body := stripFence(text)
	if !strings.HasPrefix(body, "{") {
		return domain.Analysis{}, false
	}
	var reply structuredReply
	if err := json.Unmarshal([]byte(body), &reply); err != nil {
		return domain.Analysis{}, false
	}
	analysis := reply.Analysis
	if analysis == "" {
		analysis = reply.AnalysisText
	}
	if analysis == "" && reply.MoodScore == "" && len(reply.Keywords) == 0 {
		return domain.Analysis{}, false
	}

	out := domain.Analysis{
		AnalysisText:          cleanProse(analysis),
		MoodScore:             structuredScore(reply.MoodScore),
		Keywords:              trimList(reply.Keywords),
		RecommendedCategory:   strings.TrimSpace(reply.RecommendedCategory),
		YoutubeSearchKeywords: trimList(reply.YoutubeSearchKeywords),
	}
	return out, true
}

func structuredScore(n json.Number) *int {
	if n == "" {
		return nil
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || f < 0 || f > 100 {
		return nil
	}
	v := int(f)
	return &v
}

func trimList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// stripFence снимает markdown-ограждение ```json ... ```.
func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	body := strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	}
	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, "```")
	return strings.TrimSpace(body)
}
