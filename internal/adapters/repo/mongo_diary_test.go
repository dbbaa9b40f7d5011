package repo

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"ai-diary/internal/domain"
)

func TestDocumentRoundTrip(t *testing.T) {
	score := 72
	updated := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
	entry := domain.DiaryEntry{
		ID:                  primitive.NewObjectID().Hex(),
		UserID:              "u1",
		UserText:            "text",
		AnalysisResult:      "analysis",
		MoodScore:           &score,
		Keywords:            []string{"a", "b"},
		PersonaID:           "luna",
		RecommendedCategory: "Calm Music",
		YoutubeRecommendations: []domain.VideoSummary{
			{ID: "v1", Title: "t"},
		},
		CreatedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		UpdatedAt: &updated,
	}
	if diff := cmp.Diff(entry, fromDocument(toDocument(entry))); diff != "" {
		t.Fatalf("запись изменилась (-want +got):\n%s", diff)
	}
}

func TestFromDocumentFillsEmptyLists(t *testing.T) {
	got := fromDocument(diaryDocument{ID: primitive.NewObjectID(), UserID: "u1"})
	if got.Keywords == nil || got.YoutubeRecommendations == nil {
		t.Fatalf("ожидали пустые списки вместо nil: %+v", got)
	}
	if got.MoodScore != nil {
		t.Fatalf("оценка должна остаться пустой")
	}
}

func TestPatchUpdate(t *testing.T) {
	text := "new"
	persona := "drjun"
	score := 40
	at := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)

	got := patchUpdate(domain.DiaryPatch{UserText: &text, PersonaID: &persona, MoodScore: &score, Keywords: []string{"k"}, UpdatedAt: at})
	want := bson.M{"$set": bson.M{
		"updated_at": at,
		"user_text":  "new",
		"persona_id": "drjun",
		"mood_score": 40,
		"keywords":   []string{"k"},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("неверное обновление (-want +got):\n%s", diff)
	}

	cleared := patchUpdate(domain.DiaryPatch{ClearMoodScore: true, UpdatedAt: at})
	set := cleared["$set"].(bson.M)
	if v, ok := set["mood_score"]; !ok || v != nil {
		t.Fatalf("ожидали сброс оценки, получили %v", set)
	}
}

func TestPageFilter(t *testing.T) {
	id := primitive.NewObjectID()
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	f := pageFilter("u1", at, id)
	if f["user_id"] != "u1" {
		t.Fatalf("фильтр должен ограничивать владельца: %v", f)
	}
	or, ok := f["$or"].(bson.A)
	if !ok || len(or) != 2 {
		t.Fatalf("ожидали два условия $or: %v", f)
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Ann@Example.COM "); got != "ann@example.com" {
		t.Fatalf("неверная нормализация: %q", got)
	}
}
