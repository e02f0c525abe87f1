package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/set-night/starsbot/internal/config"
	"github.com/set-night/starsbot/internal/domain"
)

// flyerListMethods are the endpoint names tried in order; the provider has
// renamed the task-list method across API revisions.
var flyerListMethods = []string{"get_tasks", "tasks", "get_tasks_list", "get_offers"}

// FlyerService is the adapter for the Flyer offer-wall network.
type FlyerService struct {
	key     string
	baseURL string
	client  *http.Client
	rewards rewardKeyStore
}

func NewFlyerService(key, baseURL string, rewards rewardKeyStore) *FlyerService {
	return &FlyerService{
		key:     strings.TrimSpace(key),
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: config.ProviderTimeout},
		rewards: rewards,
	}
}

func (s *FlyerService) Name() string { return domain.SourceFlyer }

// flexString tolerates the provider serializing ids as either JSON strings
// or numbers.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*f = flexString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("flyer id is neither string nor number: %s", data)
	}
	*f = flexString(num.String())
	return nil
}

type flyerTask struct {
	ResourceID flexString `json:"resource_id"`
	Status     string     `json:"status"`
	Price      float64    `json:"price"`
	Link       string     `json:"link"`
	Links      []string   `json:"links"`
	Name       string     `json:"name"`
	Signature  string     `json:"signature"`
}

func (t flyerTask) link() string {
	if t.Link != "" {
		return t.Link
	}
	if len(t.Links) > 0 {
		return t.Links[0]
	}
	return ""
}

func (s *FlyerService) post(ctx context.Context, method string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal flyer request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/"+method, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create flyer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, domain.ErrServiceUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("flyer http %d: %w", resp.StatusCode, domain.ErrServiceUnavailable)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("read flyer response: %w", domain.ErrServiceUnavailable)
	}
	return buf.Bytes(), nil
}

// decodeTaskList accepts either a bare array or an object wrapping the array
// under result/tasks/response.
func decodeTaskList(raw []byte) ([]flyerTask, bool) {
	var direct []flyerTask
	if err := json.Unmarshal(raw, &direct); err == nil {
		return direct, true
	}

	var wrapped struct {
		Result   []flyerTask `json:"result"`
		Tasks    []flyerTask `json:"tasks"`
		Response []flyerTask `json:"response"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, false
	}
	switch {
	case wrapped.Result != nil:
		return wrapped.Result, true
	case wrapped.Tasks != nil:
		return wrapped.Tasks, true
	case wrapped.Response != nil:
		return wrapped.Response, true
	}
	return nil, false
}

func (s *FlyerService) fetchTasks(ctx context.Context, v Viewer) []flyerTask {
	lang := v.LanguageCode
	if lang == "" {
		lang = "ru"
	}
	body := map[string]any{
		"key":           s.key,
		"user_id":       v.ID,
		"language_code": lang,
		"limit":         config.FlyerTaskListLimit,
	}

	for _, method := range flyerListMethods {
		raw, err := s.post(ctx, method, body)
		if err != nil {
			slog.Debug("flyer method failed", "method", method, "error", err)
			continue
		}
		if tasks, ok := decodeTaskList(raw); ok {
			return tasks
		}
		slog.Debug("flyer method returned unexpected shape", "method", method)
	}

	slog.Warn("flyer: no compatible task method responded", "user_id", v.ID)
	return nil
}

func (s *FlyerService) ListAvailable(ctx context.Context, v Viewer) ([]domain.TaskDescriptor, error) {
	if s.key == "" {
		return nil, nil
	}

	raw := s.fetchTasks(ctx, v)
	if len(raw) == 0 {
		return nil, nil
	}

	claimed, err := s.rewards.UserTaskKeys(ctx, v.ID, "flyer:")
	if err != nil {
		return nil, fmt.Errorf("load claimed flyer keys: %w", err)
	}

	var tasks []domain.TaskDescriptor
	for _, t := range raw {
		if t.Status != "incomplete" && t.Status != "abort" {
			continue
		}
		if t.Price < 1 || t.ResourceID == "" || t.link() == "" {
			continue
		}
		if _, done := claimed["flyer:"+string(t.ResourceID)]; done {
			continue
		}

		name := t.Name
		if name == "" {
			name = "Канал"
		}
		tasks = append(tasks, domain.TaskDescriptor{
			Source:     domain.SourceFlyer,
			Link:       t.link(),
			Reward:     int64(t.Price),
			Channel:    name,
			ResourceID: string(t.ResourceID),
			Signature:  t.Signature,
		})
	}
	return tasks, nil
}

// Verify submits the provider's signature token for server-side validation.
func (s *FlyerService) Verify(ctx context.Context, v Viewer, d domain.TaskDescriptor) (domain.VerificationResult, error) {
	if d.Signature == "" || d.ResourceID == "" {
		return domain.VerificationNotCompleted, nil
	}

	raw, err := s.post(ctx, "check_task", map[string]any{
		"key":       s.key,
		"user_id":   v.ID,
		"signature": d.Signature,
	})
	if err != nil {
		return domain.VerificationUnavailable, nil
	}

	status := decodeCheckStatus(raw)
	switch status {
	case "complete":
		return domain.VerificationCompleted, nil
	case "waiting", "checking":
		return domain.VerificationPending, nil
	}
	return domain.VerificationNotCompleted, nil
}

// decodeCheckStatus tolerates a bare string or an object with result/status.
func decodeCheckStatus(raw []byte) string {
	var direct string
	if err := json.Unmarshal(raw, &direct); err == nil {
		return direct
	}

	var wrapped struct {
		Result string `json:"result"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return ""
	}
	if wrapped.Result != "" {
		return wrapped.Result
	}
	return wrapped.Status
}
