package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/set-night/starsbot/internal/config"
	"github.com/set-night/starsbot/internal/domain"
)

// highRiskMarker is the substring SubGram puts into its error message when it
// refuses to serve a suspected fake account.
const highRiskMarker = "высокий риск фейкового аккаунта"

// SubgramService is the adapter for the SubGram subscription-link network.
// The provider signals completion by removing a link from the user's pending
// list, so Verify compares against a fresh fetch.
type SubgramService struct {
	apiKey  string
	baseURL string
	client  *http.Client
	cache   *LinkCache
	rewards rewardKeyStore

	sleep func(time.Duration)
}

func NewSubgramService(apiKey, baseURL string, rewards rewardKeyStore) *SubgramService {
	return &SubgramService{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: baseURL,
		client:  &http.Client{Timeout: config.ProviderTimeout},
		cache:   NewLinkCache(config.SubgramCacheMax, config.SubgramCacheTTL),
		rewards: rewards,
		sleep:   time.Sleep,
	}
}

func (s *SubgramService) Name() string { return domain.SourceSubgram }

type subgramRequest struct {
	UserID       string `json:"UserId"`
	ChatID       string `json:"ChatId"`
	FirstName    string `json:"first_name"`
	LanguageCode string `json:"language_code"`
	Premium      bool   `json:"Premium"`
}

type subgramResponse struct {
	Links   []string `json:"links"`
	Message string   `json:"message"`
}

// fetchLinks requests the user's pending subscription links. One bounded
// retry on rate limit or timeout, then the caller sees ErrServiceUnavailable.
func (s *SubgramService) fetchLinks(ctx context.Context, v Viewer, useCache bool) ([]string, error) {
	if s.apiKey == "" {
		return nil, domain.ErrServiceUnavailable
	}

	if useCache {
		if links, ok := s.cache.Get(v.ID, v.ChatID); ok {
			return links, nil
		}
	}

	lang := v.LanguageCode
	if lang == "" {
		lang = "ru"
	}
	payload, err := json.Marshal(subgramRequest{
		UserID:       strconv.FormatInt(v.ID, 10),
		ChatID:       strconv.FormatInt(v.ChatID, 10),
		FirstName:    v.FirstName,
		LanguageCode: lang,
		Premium:      v.Premium,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal subgram request: %w", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		links, retryable, err := s.doRequest(ctx, payload)
		if err == nil {
			s.cache.Put(v.ID, v.ChatID, links)
			return links, nil
		}
		if !retryable || attempt > 0 {
			return nil, err
		}
		slog.Warn("subgram request failed, retrying", "user_id", v.ID, "error", err)
	}
	return nil, domain.ErrServiceUnavailable
}

// doRequest performs one round trip. The second return value reports whether
// the failure is worth a single retry.
func (s *SubgramService) doRequest(ctx context.Context, payload []byte) ([]string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, false, fmt.Errorf("create subgram request: %w", err)
	}
	req.Header.Set("Auth", s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, domain.ErrServiceUnavailable
		}
		s.sleep(config.TimeoutRetryDelay)
		return nil, true, domain.ErrServiceUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		s.sleep(config.RateLimitBackoff)
		return nil, true, domain.ErrServiceUnavailable
	}

	var body subgramResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decodeErr == nil && strings.Contains(strings.ToLower(body.Message), highRiskMarker) {
			return nil, false, domain.ErrProviderHighRisk
		}
		return nil, false, fmt.Errorf("subgram http %d: %w", resp.StatusCode, domain.ErrServiceUnavailable)
	}
	if decodeErr != nil {
		return nil, false, fmt.Errorf("decode subgram response: %w", domain.ErrServiceUnavailable)
	}

	links := make([]string, 0, len(body.Links))
	for _, l := range body.Links {
		if l = strings.TrimSpace(l); l != "" {
			links = append(links, l)
		}
	}
	return links, false, nil
}

// validLink accepts only Telegram deep links that do not point back at the
// provider itself.
func validLink(link string) bool {
	link = strings.TrimSpace(link)
	if !strings.HasPrefix(link, "https://t.me/") &&
		!strings.HasPrefix(link, "http://t.me/") &&
		!strings.HasPrefix(link, "tg://") {
		return false
	}
	lower := strings.ToLower(link)
	return !strings.Contains(lower, "api.subgram") && !strings.Contains(lower, "bot=")
}

func channelLabel(link string) string {
	if i := strings.LastIndex(link, "/"); i >= 0 && i+1 < len(link) {
		return link[i+1:]
	}
	return "канал"
}

func (s *SubgramService) ListAvailable(ctx context.Context, v Viewer) ([]domain.TaskDescriptor, error) {
	if s.apiKey == "" {
		return nil, nil
	}

	links, err := s.fetchLinks(ctx, v, true)
	if err != nil {
		if errors.Is(err, domain.ErrProviderHighRisk) {
			// The user is not penalized, they just don't see this provider.
			slog.Warn("subgram flagged high-risk account", "user_id", v.ID)
			return nil, nil
		}
		slog.Warn("subgram list unavailable", "user_id", v.ID, "error", err)
		return nil, nil
	}

	claimed, err := s.rewards.UserTaskKeys(ctx, v.ID, "subgram:")
	if err != nil {
		return nil, fmt.Errorf("load claimed subgram keys: %w", err)
	}

	var tasks []domain.TaskDescriptor
	for _, link := range links {
		if !validLink(link) {
			continue
		}
		if _, done := claimed["subgram:"+link]; done {
			continue
		}
		tasks = append(tasks, domain.TaskDescriptor{
			Source:  domain.SourceSubgram,
			Link:    link,
			Reward:  config.SubgramReward,
			Channel: channelLabel(link),
			ChatID:  v.ChatID,
		})
	}
	return tasks, nil
}

// Verify re-fetches the pending list bypassing the cache; the advisory cache
// must never decide a reward. An absent link means the provider saw the
// subscription.
func (s *SubgramService) Verify(ctx context.Context, v Viewer, d domain.TaskDescriptor) (domain.VerificationResult, error) {
	fresh, err := s.fetchLinks(ctx, v, false)
	if err != nil {
		if errors.Is(err, domain.ErrProviderHighRisk) {
			return domain.VerificationUnavailable, domain.ErrProviderHighRisk
		}
		return domain.VerificationUnavailable, nil
	}

	for _, link := range fresh {
		if link == d.Link {
			return domain.VerificationNotCompleted, nil
		}
	}
	return domain.VerificationCompleted, nil
}
