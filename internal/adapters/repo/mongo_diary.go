package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ai-diary/internal/domain"
	"ai-diary/internal/infra/metrics"
)

const diariesCollection = "diaries"

// diaryDocument представляет запись в MongoDB.
type diaryDocument struct {
	ID                     primitive.ObjectID    `bson:"_id,omitempty"`
	UserID                 string                `bson:"user_id"`
	UserText               string                `bson:"user_text"`
	AnalysisResult         string                `bson:"analysis_result"`
	MoodScore              *int                  `bson:"mood_score"`
	Keywords               []string              `bson:"keywords"`
	PersonaID              string                `bson:"persona_id"`
	RecommendedCategory    string                `bson:"recommended_category"`
	YoutubeRecommendations []domain.VideoSummary `bson:"youtube_recommendations"`
	CreatedAt              time.Time             `bson:"created_at"`
	UpdatedAt              *time.Time            `bson:"updated_at,omitempty"`
}

// MongoDiaries хранит записи дневника в коллекции diaries.
type MongoDiaries struct {
	coll *mongo.Collection
}

var _ domain.DiaryRepo = (*MongoDiaries)(nil)

// NewMongoDiaries создаёт репозиторий.
func NewMongoDiaries(db *mongo.Database) *MongoDiaries {
	return &MongoDiaries{coll: db.Collection(diariesCollection)}
}

// EnsureIndexes создаёт индекс для выборки записей пользователя по дате.
func (r *MongoDiaries) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create diary index: %w", err)
	}
	return nil
}

// CreateEntry вставляет запись и возвращает её с идентификатором.
func (r *MongoDiaries) CreateEntry(ctx context.Context, entry domain.DiaryEntry) (domain.DiaryEntry, error) {
	doc := toDocument(entry)
	doc.ID = primitive.NewObjectID()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	start := time.Now()
	_, err := r.coll.InsertOne(ctx, doc)
	metrics.ObserveNetworkRequest("mongo", "diaries_insert", diariesCollection, start, err)
	if err != nil {
		return domain.DiaryEntry{}, fmt.Errorf("insert diary: %w", err)
	}
	return fromDocument(doc), nil
}

// GetEntry возвращает запись владельца.
func (r *MongoDiaries) GetEntry(ctx context.Context, userID, id string) (domain.DiaryEntry, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.DiaryEntry{}, domain.ErrNotFound
	}
	var doc diaryDocument
	start := time.Now()
	err = r.coll.FindOne(ctx, bson.M{"_id": oid, "user_id": userID}).Decode(&doc)
	metrics.ObserveNetworkRequest("mongo", "diaries_get", diariesCollection, start, ignoreNoDocuments(err))
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.DiaryEntry{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.DiaryEntry{}, fmt.Errorf("find diary: %w", err)
	}
	return fromDocument(doc), nil
}

// ListEntries возвращает страницу записей, начиная после записи cursor.
func (r *MongoDiaries) ListEntries(ctx context.Context, userID, cursor string, limit int) ([]domain.DiaryEntry, error) {
	filter := bson.M{"user_id": userID}
	if cursor != "" {
		after, err := r.GetEntry(ctx, userID, cursor)
		if err != nil {
			return nil, err
		}
		afterID, _ := primitive.ObjectIDFromHex(after.ID)
		filter = pageFilter(userID, after.CreatedAt, afterID)
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
	return r.find(ctx, "diaries_list", filter, opts)
}

// ListEntriesBetween возвращает записи владельца в интервале [from, to].
func (r *MongoDiaries) ListEntriesBetween(ctx context.Context, userID string, from, to time.Time) ([]domain.DiaryEntry, error) {
	filter := bson.M{
		"user_id":    userID,
		"created_at": bson.M{"$gte": from, "$lte": to},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	return r.find(ctx, "diaries_between", filter, opts)
}

// UpdateEntry применяет патч и возвращает обновлённую запись.
func (r *MongoDiaries) UpdateEntry(ctx context.Context, userID, id string, patch domain.DiaryPatch) (domain.DiaryEntry, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.DiaryEntry{}, domain.ErrNotFound
	}
	update := patchUpdate(patch)
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc diaryDocument
	start := time.Now()
	err = r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid, "user_id": userID}, update, opts).Decode(&doc)
	metrics.ObserveNetworkRequest("mongo", "diaries_update", diariesCollection, start, ignoreNoDocuments(err))
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.DiaryEntry{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.DiaryEntry{}, fmt.Errorf("update diary: %w", err)
	}
	return fromDocument(doc), nil
}

// DeleteEntry удаляет запись владельца.
func (r *MongoDiaries) DeleteEntry(ctx context.Context, userID, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrNotFound
	}
	start := time.Now()
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid, "user_id": userID})
	metrics.ObserveNetworkRequest("mongo", "diaries_delete", diariesCollection, start, err)
	if err != nil {
		return fmt.Errorf("delete diary: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListActiveUsers возвращает пользователей, писавших после since.
func (r *MongoDiaries) ListActiveUsers(ctx context.Context, since time.Time) ([]string, error) {
	start := time.Now()
	values, err := r.coll.Distinct(ctx, "user_id", bson.M{"created_at": bson.M{"$gte": since}})
	metrics.ObserveNetworkRequest("mongo", "diaries_active_users", diariesCollection, start, err)
	if err != nil {
		return nil, fmt.Errorf("distinct users: %w", err)
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *MongoDiaries) find(ctx context.Context, operation string, filter bson.M, opts *options.FindOptions) ([]domain.DiaryEntry, error) {
	start := time.Now()
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		metrics.ObserveNetworkRequest("mongo", operation, diariesCollection, start, err)
		return nil, fmt.Errorf("find diaries: %w", err)
	}
	defer cur.Close(ctx)

	var docs []diaryDocument
	err = cur.All(ctx, &docs)
	metrics.ObserveNetworkRequest("mongo", operation, diariesCollection, start, err)
	if err != nil {
		return nil, fmt.Errorf("decode diaries: %w", err)
	}
	out := make([]domain.DiaryEntry, 0, len(docs))
	for _, d := range docs {
		out = append(out, fromDocument(d))
	}
	return out, nil
}

// pageFilter выбирает записи строго старше курсора в порядке (created_at, _id) по убыванию.
func pageFilter(userID string, createdAt time.Time, id primitive.ObjectID) bson.M {
	return bson.M{
		"user_id": userID,
		"$or": bson.A{
			bson.M{"created_at": bson.M{"$lt": createdAt}},
			bson.M{"created_at": createdAt, "_id": bson.M{"$lt": id}},
		},
	}
}

func patchUpdate(p domain.DiaryPatch) bson.M {
	set := bson.M{"updated_at": p.UpdatedAt}
	if p.UserText != nil {
		set["user_text"] = *p.UserText
	}
	if p.AnalysisResult != nil {
		set["analysis_result"] = *p.AnalysisResult
	}
	if p.MoodScore != nil {
		set["mood_score"] = *p.MoodScore
	} else if p.ClearMoodScore {
		set["mood_score"] = nil
	}
	if p.Keywords != nil {
		set["keywords"] = p.Keywords
	}
	if p.PersonaID != nil {
		set["persona_id"] = *p.PersonaID
	}
	if p.RecommendedCategory != nil {
		set["recommended_category"] = *p.RecommendedCategory
	}
	return bson.M{"$set": set}
}

func toDocument(e domain.DiaryEntry) diaryDocument {
	doc := diaryDocument{
		UserID:                 e.UserID,
		UserText:               e.UserText,
		AnalysisResult:         e.AnalysisResult,
		MoodScore:              e.MoodScore,
		Keywords:               e.Keywords,
		PersonaID:              e.PersonaID,
		RecommendedCategory:    e.RecommendedCategory,
		YoutubeRecommendations: e.YoutubeRecommendations,
		CreatedAt:              e.CreatedAt,
		UpdatedAt:              e.UpdatedAt,
	}
	if oid, err := primitive.ObjectIDFromHex(e.ID); err == nil {
		doc.ID = oid
	}
	if doc.Keywords == nil {
		doc.Keywords = []string{}
	}
	if doc.YoutubeRecommendations == nil {
		doc.YoutubeRecommendations = []domain.VideoSummary{}
	}
	return doc
}

func fromDocument(d diaryDocument) domain.DiaryEntry {
	e := domain.DiaryEntry{
		ID:                     d.ID.Hex(),
		UserID:                 d.UserID,
		UserText:               d.UserText,
		AnalysisResult:         d.AnalysisResult,
		MoodScore:              d.MoodScore,
		Keywords:               d.Keywords,
		PersonaID:              d.PersonaID,
		RecommendedCategory:    d.RecommendedCategory,
		YoutubeRecommendations: d.YoutubeRecommendations,
		CreatedAt:              d.CreatedAt.UTC(),
		UpdatedAt:              d.UpdatedAt,
	}
	if e.Keywords == nil {
		e.Keywords = []string{}
	}
	if e.YoutubeRecommendations == nil {
		e.YoutubeRecommendations = []domain.VideoSummary{}
	}
	return e
}

func ignoreNoDocuments(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	return err
}
