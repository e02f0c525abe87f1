package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/set-night/starsbot/internal/domain"
)

type fakeKeyStore struct {
	keys map[string]struct{}
}

func (f *fakeKeyStore) UserTaskKeys(_ context.Context, _ int64, prefix string) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	for k := range f.keys {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			out[k] = struct{}{}
		}
	}
	return out, nil
}

func newTestSubgram(url string, claimed ...string) *SubgramService {
	keys := make(map[string]struct{})
	for _, k := range claimed {
		keys[k] = struct{}{}
	}
	s := NewSubgramService("test-key", url, &fakeKeyStore{keys: keys})
	s.sleep = func(time.Duration) {}
	return s
}

func subgramHandler(links []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"links": links})
	}
}

func TestSubgramListFiltersLinks(t *testing.T) {
	srv := httptest.NewServer(subgramHandler([]string{
		"https://t.me/good",
		"https://example.com/spam",
		"https://t.me/proxy?bot=other",
		"https://api.subgram.org/self",
		"tg://resolve?domain=deep",
		"",
	}))
	defer srv.Close()

	s := newTestSubgram(srv.URL)
	tasks, err := s.ListAvailable(context.Background(), testViewer())
	if err != nil {
		t.Fatalf("ListAvailable() error = %v", err)
	}

	want := map[string]bool{
		"https://t.me/good":        true,
		"tg://resolve?domain=deep": true,
	}
	if len(tasks) != len(want) {
		t.Fatalf("tasks = %d, want %d: %+v", len(tasks), len(want), tasks)
	}
	for _, task := range tasks {
		if !want[task.Link] {
			t.Errorf("unexpected link survived filtering: %s", task.Link)
		}
		if task.Source != domain.SourceSubgram || task.ChatID != 10 {
			t.Errorf("descriptor = %+v, want subgram source with chat 10", task)
		}
	}
}

func TestSubgramRequestCarriesProfile(t *testing.T) {
	var got subgramRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(map[string]any{"links": []string{"https://t.me/a"}})
	}))
	defer srv.Close()

	s := newTestSubgram(srv.URL)
	v := Viewer{ID: 42, ChatID: 77, FirstName: "Алиса", LanguageCode: "en", Premium: true}
	if _, err := s.ListAvailable(context.Background(), v); err != nil {
		t.Fatalf("ListAvailable() error = %v", err)
	}

	if got.UserID != "42" || got.ChatID != "77" {
		t.Errorf("request ids = %s/%s, want 42/77", got.UserID, got.ChatID)
	}
	if got.FirstName != "Алиса" || !got.Premium {
		t.Errorf("request profile = %q premium=%v, want Алиса premium=true", got.FirstName, got.Premium)
	}
	if got.LanguageCode != "en" {
		t.Errorf("language = %s, want en", got.LanguageCode)
	}

	// An unset language falls back to ru.
	s2 := newTestSubgram(srv.URL)
	s2.ListAvailable(context.Background(), Viewer{ID: 43, ChatID: 77})
	if got.LanguageCode != "ru" {
		t.Errorf("fallback language = %s, want ru", got.LanguageCode)
	}
}

func TestSubgramListHidesClaimed(t *testing.T) {
	srv := httptest.NewServer(subgramHandler([]string{"https://t.me/a", "https://t.me/b"}))
	defer srv.Close()

	s := newTestSubgram(srv.URL, "subgram:https://t.me/a")
	tasks, err := s.ListAvailable(context.Background(), testViewer())
	if err != nil {
		t.Fatalf("ListAvailable() error = %v", err)
	}
	if len(tasks) != 1 || tasks[0].Link != "https://t.me/b" {
		t.Fatalf("tasks = %+v, want only t.me/b", tasks)
	}
}

func TestSubgramVerifyAbsentLinkMeansComplete(t *testing.T) {
	srv := httptest.NewServer(subgramHandler([]string{"https://t.me/still-pending"}))
	defer srv.Close()

	s := newTestSubgram(srv.URL)
	d := domain.TaskDescriptor{Source: domain.SourceSubgram, Link: "https://t.me/done", ChatID: 10}

	result, err := s.Verify(context.Background(), testViewer(), d)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if result != domain.VerificationCompleted {
		t.Errorf("Verify() = %s, want completed", result)
	}

	d.Link = "https://t.me/still-pending"
	result, err = s.Verify(context.Background(), testViewer(), d)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if result != domain.VerificationNotCompleted {
		t.Errorf("Verify() = %s, want not_completed", result)
	}
}

func TestSubgramVerifyBypassesCache(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(map[string]any{"links": []string{"https://t.me/a"}})
	}))
	defer srv.Close()

	s := newTestSubgram(srv.URL)

	// Two list calls: the second is served from cache.
	s.ListAvailable(context.Background(), testViewer())
	s.ListAvailable(context.Background(), testViewer())
	if calls != 1 {
		t.Fatalf("requests after two lists = %d, want 1 (cached)", calls)
	}

	// Verify must always hit the provider.
	s.Verify(context.Background(), testViewer(), domain.TaskDescriptor{Source: domain.SourceSubgram, Link: "https://t.me/a", ChatID: 10})
	if calls != 2 {
		t.Errorf("requests after verify = %d, want 2 (cache bypassed)", calls)
	}
}

func TestSubgramRetriesRateLimitOnce(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"links": []string{"https://t.me/a"}})
	}))
	defer srv.Close()

	s := newTestSubgram(srv.URL)
	links, err := s.fetchLinks(context.Background(), testViewer(), false)
	if err != nil {
		t.Fatalf("fetchLinks() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("requests = %d, want 2 (one retry)", calls)
	}
	if len(links) != 1 {
		t.Errorf("links = %v, want one", links)
	}
}

func TestSubgramRateLimitGivesUpAfterRetry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := newTestSubgram(srv.URL)
	_, err := s.fetchLinks(context.Background(), testViewer(), false)
	if !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Errorf("fetchLinks() error = %v, want ErrServiceUnavailable", err)
	}
}

func TestSubgramHighRisk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]any{
			"message": "Отказ: высокий риск фейкового аккаунта",
		})
	}))
	defer srv.Close()

	s := newTestSubgram(srv.URL)

	// Listing degrades to an empty queue, no error surfaced.
	tasks, err := s.ListAvailable(context.Background(), testViewer())
	if err != nil || len(tasks) != 0 {
		t.Errorf("ListAvailable() = %v, %v; want empty, nil", tasks, err)
	}

	// Verification surfaces the block so the UI can explain it.
	result, err := s.Verify(context.Background(), testViewer(), domain.TaskDescriptor{Source: domain.SourceSubgram, Link: "https://t.me/a", ChatID: 10})
	if result != domain.VerificationUnavailable {
		t.Errorf("Verify() result = %s, want unavailable", result)
	}
	if !errors.Is(err, domain.ErrProviderHighRisk) {
		t.Errorf("Verify() error = %v, want ErrProviderHighRisk", err)
	}
}

func TestSubgramNoKeyDisablesSource(t *testing.T) {
	s := NewSubgramService("", "http://unused", &fakeKeyStore{})
	tasks, err := s.ListAvailable(context.Background(), testViewer())
	if err != nil || tasks != nil {
		t.Errorf("ListAvailable() without key = %v, %v; want nil, nil", tasks, err)
	}
}
