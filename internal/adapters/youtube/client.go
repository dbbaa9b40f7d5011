// Package youtube ищет видео через YouTube Data API v3.
package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ai-diary/internal/domain"
	"ai-diary/internal/infra/metrics"
)

const (
	// DefaultBaseURL указывает адрес YouTube Data API.
	DefaultBaseURL = "https://www.googleapis.com/youtube/v3"
	// DefaultMaxResults задаёт количество рекомендаций по умолчанию.
	DefaultMaxResults = 3
	maxResultsLimit   = 25
)

// ErrEmptyAPIKey возвращается, если ключ не настроен.
var ErrEmptyAPIKey = errors.New("youtube: api key is empty")

// Client выполняет поисковые запросы.
type Client struct {
	http      *http.Client
	baseURL   string
	apiKey    string
	sanitizer domain.Sanitizer
}

var _ domain.VideoSearcher = (*Client)(nil)

// NewClient создаёт клиента. sanitizer очищает заголовки и описания от HTML и может быть nil.
func NewClient(apiKey, baseURL string, timeout time.Duration, sanitizer domain.Sanitizer) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		http:      &http.Client{Timeout: timeout},
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    strings.TrimSpace(apiKey),
		sanitizer: sanitizer,
	}
}

// ClampMaxResults приводит количество результатов к диапазону [1, 25]; 0 означает значение по умолчанию.
func ClampMaxResults(n int) int {
	switch {
	case n == 0:
		return DefaultMaxResults
	case n < 1:
		return 1
	case n > maxResultsLimit:
		return maxResultsLimit
	default:
		return n
	}
}

type searchResponse struct {
	Items []searchItem `json:"items"`
}

type searchItem struct {
	ID struct {
		VideoID string `json:"videoId"`
	} `json:"id"`
	Snippet struct {
		Title        string `json:"title"`
		Description  string `json:"description"`
		ChannelTitle string `json:"channelTitle"`
		Thumbnails   struct {
			Default struct {
				URL string `json:"url"`
			} `json:"default"`
		} `json:"thumbnails"`
	} `json:"snippet"`
}

// SearchVideos возвращает краткие описания найденных видео.
func (c *Client) SearchVideos(ctx context.Context, query string, maxResults int) ([]domain.VideoSummary, error) {
	body, err := c.search(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}
	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("youtube: decode response: %w", err)
	}
	out := make([]domain.VideoSummary, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.ID.VideoID == "" {
			continue
		}
		out = append(out, domain.VideoSummary{
			ID:           item.ID.VideoID,
			Title:        c.clean(item.Snippet.Title),
			ThumbnailURL: item.Snippet.Thumbnails.Default.URL,
			ChannelTitle: c.clean(item.Snippet.ChannelTitle),
			Description:  c.clean(item.Snippet.Description),
		})
	}
	return out, nil
}

// SearchRaw возвращает ответ API без изменений.
func (c *Client) SearchRaw(ctx context.Context, query string, maxResults int) (json.RawMessage, error) {
	body, err := c.search(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

func (c *Client) search(ctx context.Context, query string, maxResults int) ([]byte, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.Invalid("query is required.")
	}
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstream, ErrEmptyAPIKey)
	}
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", query)
	params.Set("key", c.apiKey)
	params.Set("type", "video")
	params.Set("maxResults", strconv.Itoa(ClampMaxResults(maxResults)))
	params.Set("videoEmbeddable", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("youtube: build request: %w", err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveNetworkRequest("youtube", "search", "googleapis", start, err)
		return nil, fmt.Errorf("youtube: do request: %w: %w", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err == nil && resp.StatusCode >= 400 {
		err = apiError(resp.StatusCode, body)
	}
	metrics.ObserveNetworkRequest("youtube", "search", "googleapis", start, err)
	if err != nil {
		return nil, fmt.Errorf("youtube: %w: %w", domain.ErrUpstream, err)
	}
	return body, nil
}

func (c *Client) clean(s string) string {
	if c.sanitizer == nil {
		return s
	}
	return c.sanitizer.Text(s)
}

func apiError(status int, body []byte) error {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		return fmt.Errorf("status %d: %s", status, payload.Error.Message)
	}
	return fmt.Errorf("unexpected status %d", status)
}
