package domain

import "time"

// User описывает зарегистрированного автора дневника.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"displayName"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// VideoSummary описывает найденное видео для рекомендации.
type VideoSummary struct {
	ID           string `json:"id" bson:"id"`
	Title        string `json:"title" bson:"title"`
	ThumbnailURL string `json:"thumbnailUrl" bson:"thumbnail_url"`
	ChannelTitle string `json:"channelTitle" bson:"channel_title"`
	Description  string `json:"description" bson:"description"`
}

// DiaryEntry хранит запись дневника вместе с результатом анализа.
type DiaryEntry struct {
	ID                     string         `json:"id"`
	UserID                 string         `json:"userId"`
	UserText               string         `json:"userText"`
	AnalysisResult         string         `json:"analysisResult"`
	MoodScore              *int           `json:"moodScore"`
	Keywords               []string       `json:"keywords"`
	PersonaID              string         `json:"personaId"`
	RecommendedCategory    string         `json:"recommendedCategory"`
	YoutubeRecommendations []VideoSummary `json:"youtubeRecommendations"`
	CreatedAt              time.Time      `json:"createdAt"`
	UpdatedAt              *time.Time     `json:"updatedAt,omitempty"`
}

// HasRecommendation сообщает, есть ли у записи видеорекомендации.
func (e DiaryEntry) HasRecommendation() bool {
	return len(e.YoutubeRecommendations) > 0
}

// DiaryPatch содержит изменяемые поля записи. nil означает «не менять».
type DiaryPatch struct {
	UserText            *string
	AnalysisResult      *string
	MoodScore           *int
	ClearMoodScore      bool
	Keywords            []string
	PersonaID           *string
	RecommendedCategory *string
	UpdatedAt           time.Time
}

// Empty сообщает, что патч ничего не меняет.
func (p DiaryPatch) Empty() bool {
	return p.UserText == nil && p.AnalysisResult == nil && p.MoodScore == nil && !p.ClearMoodScore &&
		p.Keywords == nil && p.PersonaID == nil && p.RecommendedCategory == nil
}

// DiaryPage содержит страницу записей и курсор следующей страницы.
type DiaryPage struct {
	Diaries    []DiaryEntry `json:"diaries"`
	NextCursor string       `json:"nextCursor"`
}

// Analysis содержит разобранный ответ модели.
type Analysis struct {
	AnalysisText          string   `json:"analysisText"`
	MoodScore             *int     `json:"moodScore"`
	Keywords              []string `json:"keywords"`
	RecommendedCategory   string   `json:"recommendedCategory"`
	YoutubeSearchKeywords []string `json:"youtubeSearchKeywords"`
}

// VideoQuery склеивает ключевые слова поиска видео в один запрос.
func (a Analysis) VideoQuery() string {
	out := ""
	for _, kw := range a.YoutubeSearchKeywords {
		if kw == "" {
			continue
		}
		if out != "" {
			out += " "
		}
		out += kw
	}
	return out
}

// Persona описывает персонажа, от лица которого модель анализирует запись.
type Persona struct {
	ID           string `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	Description  string `json:"description" yaml:"description"`
	SystemPrompt string `json:"-" yaml:"prompt"`
	Color        string `json:"color" yaml:"color"`
	BgColor      string `json:"bgColor" yaml:"bg_color"`
	Icon         string `json:"icon" yaml:"icon"`
}

// PersonaRef ссылается на персонажа в отчёте.
type PersonaRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// GalaxyPoint описывает точку «галактики эмоций» для одной записи.
type GalaxyPoint struct {
	ID                string    `json:"id"`
	CreatedAt         time.Time `json:"createdAt"`
	MoodScore         *int      `json:"moodScore"`
	PersonaID         string    `json:"personaId"`
	HasRecommendation bool      `json:"hasRecommendation"`
}

// KeywordCount хранит частоту ключевого слова за период.
type KeywordCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Report содержит агрегированный эмоциональный отчёт за период.
type Report struct {
	Period            ReportPeriod   `json:"period"`
	StartDate         time.Time      `json:"startDate"`
	EndDate           time.Time      `json:"endDate"`
	TotalEntries      int            `json:"totalEntries"`
	MainPersona       *PersonaRef    `json:"mainPersona"`
	EmotionGalaxy     []GalaxyPoint  `json:"emotionGalaxy"`
	BrightestMoment   *DiaryEntry    `json:"brightestMoment"`
	PonderedMoment    *DiaryEntry    `json:"ponderedMoment"`
	KeywordCloud      []KeywordCount `json:"keywordCloud"`
	JourneyTheme      string         `json:"journeyTheme"`
	LighthouseMessage string         `json:"lighthouseMessage"`
	GeneratedAt       time.Time      `json:"generatedAt"`
}

// ReportDigest сжато описывает период для модели.
type ReportDigest struct {
	Period           ReportPeriod
	Persona          Persona
	TotalEntries     int
	TopKeywords      []string
	BrightestExcerpt string
	BrightestScore   int
	PonderedExcerpt  string
	PonderedScore    int
}

// ReportNarrative содержит текстовую часть отчёта, сгенерированную моделью.
type ReportNarrative struct {
	JourneyTheme      string `json:"journeyTheme"`
	LighthouseMessage string `json:"lighthouseMessage"`
}
