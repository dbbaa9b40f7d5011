package httpapi

import (
	"bytes"
	"encoding/json"

	"ai-diary/internal/domain"
)

// optionalInt различает отсутствующее поле и явный null.
type optionalInt struct {
	set   bool
	value *int
}

func (o *optionalInt) UnmarshalJSON(data []byte) error {
	o.set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.value = nil
		return nil
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.value = &v
	return nil
}

type patchRequest struct {
	UserText            *string     `json:"userText"`
	AnalysisResult      *string     `json:"analysisResult"`
	MoodScore           optionalInt `json:"moodScore"`
	Keywords            []string    `json:"keywords"`
	PersonaID           *string     `json:"personaId"`
	RecommendedCategory *string     `json:"recommendedCategory"`
}

func (p patchRequest) toPatch() domain.DiaryPatch {
	patch := domain.DiaryPatch{
		UserText:            p.UserText,
		AnalysisResult:      p.AnalysisResult,
		Keywords:            p.Keywords,
		PersonaID:           p.PersonaID,
		RecommendedCategory: p.RecommendedCategory,
	}
	if p.MoodScore.set {
		if p.MoodScore.value == nil {
			patch.ClearMoodScore = true
		} else {
			patch.MoodScore = p.MoodScore.value
		}
	}
	return patch
}
