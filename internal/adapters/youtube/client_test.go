package youtube

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"ai-diary/internal/adapters/sanitize"
	"ai-diary/internal/domain"
)

const searchBody = `{
  "items": [
    {"id": {"videoId": "abc"}, "snippet": {"title": "Happy &amp; <b>Bright</b>", "description": "desc", "channelTitle": "Chan",
      "thumbnails": {"default": {"url": "https://i.ytimg.com/vi/abc/default.jpg"}}}},
    {"id": {"channelId": "skip"}, "snippet": {"title": "channel"}}
  ]
}`

func TestSearchVideosMapsItems(t *testing.T) {
	var query map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Fatalf("неожиданный путь %s", r.URL.Path)
		}
		q := r.URL.Query()
		query = map[string]string{
			"part": q.Get("part"), "q": q.Get("q"), "key": q.Get("key"), "type": q.Get("type"),
			"maxResults": q.Get("maxResults"), "videoEmbeddable": q.Get("videoEmbeddable"),
		}
		_, _ = w.Write([]byte(searchBody))
	}))
	defer srv.Close()

	client := NewClient(" secret ", srv.URL, time.Second, sanitize.NewPlain())
	got, err := client.SearchVideos(context.Background(), "happy songs", 0)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	want := []domain.VideoSummary{{
		ID:           "abc",
		Title:        "Happy & Bright",
		ThumbnailURL: "https://i.ytimg.com/vi/abc/default.jpg",
		ChannelTitle: "Chan",
		Description:  "desc",
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("неверные видео (-want +got):\n%s", diff)
	}
	wantQuery := map[string]string{
		"part": "snippet", "q": "happy songs", "key": "secret", "type": "video",
		"maxResults": "3", "videoEmbeddable": "true",
	}
	if diff := cmp.Diff(wantQuery, query); diff != "" {
		t.Fatalf("неверные параметры (-want +got):\n%s", diff)
	}
}

func TestSearchVideosEmptyItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items": []}`))
	}))
	defer srv.Close()

	got, err := NewClient("k", srv.URL, time.Second, nil).SearchVideos(context.Background(), "q", 5)
	if err != nil || len(got) != 0 || got == nil {
		t.Fatalf("ожидали пустой список без ошибки, получили %v, %v", got, err)
	}
}

func TestSearchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": {"message": "quota exceeded"}}`))
	}))
	defer srv.Close()

	if _, err := NewClient("k", srv.URL, time.Second, nil).SearchRaw(context.Background(), "q", 3); !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("ожидали ErrUpstream, получили %v", err)
	}
	if _, err := NewClient("k", srv.URL, time.Second, nil).SearchRaw(context.Background(), "  ", 3); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("ожидали ErrInvalidInput, получили %v", err)
	}
	if _, err := NewClient("", srv.URL, time.Second, nil).SearchRaw(context.Background(), "q", 3); !errors.Is(err, ErrEmptyAPIKey) {
		t.Fatalf("ожидали ErrEmptyAPIKey, получили %v", err)
	}
}

func TestClampMaxResults(t *testing.T) {
	cases := map[int]int{0: 3, -4: 1, 1: 1, 10: 10, 25: 25, 100: 25}
	for in, want := range cases {
		if got := ClampMaxResults(in); got != want {
			t.Fatalf("ClampMaxResults(%d) = %d, ожидали %d", in, got, want)
		}
	}
}
