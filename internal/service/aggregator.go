package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/set-night/starsbot/internal/domain"
)

// SessionState classifies where a browsing session stands. An empty queue
// and an exhausted one are both terminal but produce different screens.
type SessionState int

const (
	StateBrowsing SessionState = iota
	StateQueueEmpty
	StateAllCompleted
)

// BrowseSession is the ephemeral per-user task browsing state: the merged
// queue, the cursor, and the set of explicitly skipped task keys. It is
// rebuilt on every queue load and simply discarded when abandoned. The bot
// framework runs every update in its own goroutine, so each accessor takes
// the session mutex.
type BrowseSession struct {
	ID        uuid.UUID
	UserID    int64
	ChatID    int64
	CreatedAt time.Time

	mu      sync.Mutex
	Queue   []domain.TaskDescriptor
	Cursor  int
	Skipped map[string]struct{}
}

func (s *BrowseSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Queue) == 0 {
		return StateQueueEmpty
	}
	if s.Cursor >= len(s.Queue) {
		return StateAllCompleted
	}
	return StateBrowsing
}

func (s *BrowseSession) Current() (domain.TaskDescriptor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current()
}

func (s *BrowseSession) current() (domain.TaskDescriptor, bool) {
	if s.Cursor < 0 || s.Cursor >= len(s.Queue) {
		return domain.TaskDescriptor{}, false
	}
	return s.Queue[s.Cursor], true
}

// Next moves the cursor forward; moving past the last task is allowed and
// puts the session into StateAllCompleted.
func (s *BrowseSession) Next() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next()
}

func (s *BrowseSession) next() bool {
	if s.Cursor >= len(s.Queue) {
		return false
	}
	s.Cursor++
	return true
}

func (s *BrowseSession) Previous() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Cursor == 0 {
		return false
	}
	s.Cursor--
	return true
}

// Skip records the current task as explicitly skipped and advances. Skipped
// keys are kept out of the queue on the next Refresh.
func (s *BrowseSession) Skip() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.current(); ok {
		s.Skipped[d.Key()] = struct{}{}
	}
	s.next()
}

// Advance moves past the current task after a verified completion.
func (s *BrowseSession) Advance() {
	s.Next()
}

func (s *BrowseSession) Position() (idx, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Cursor, len(s.Queue)
}

func (s *BrowseSession) skippedKeys() map[string]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make(map[string]struct{}, len(s.Skipped))
	for k := range s.Skipped {
		keys[k] = struct{}{}
	}
	return keys
}

// pruneSkipped removes previously skipped tasks from the queue and carries
// the skip-set into this session.
func (s *BrowseSession) pruneSkipped(skipped map[string]struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.Queue[:0]
	for _, d := range s.Queue {
		if _, ok := skipped[d.Key()]; ok {
			continue
		}
		kept = append(kept, d)
	}
	s.Queue = kept
	s.Skipped = skipped
}

// Aggregator merges the task sources into one ordered queue per user and
// owns the in-process registry of browsing sessions. Source order is fixed:
// externally monetized providers come before internally funded tasks.
type Aggregator struct {
	sources []Source

	mu       sync.Mutex
	sessions map[int64]*BrowseSession
}

func NewAggregator(sources ...Source) *Aggregator {
	return &Aggregator{
		sources:  sources,
		sessions: make(map[int64]*BrowseSession),
	}
}

// LoadQueue builds a fresh session for the user, replacing any previous one.
// A failing source contributes nothing; the queue is still served.
func (a *Aggregator) LoadQueue(ctx context.Context, v Viewer) *BrowseSession {
	var queue []domain.TaskDescriptor
	for _, src := range a.sources {
		tasks, err := src.ListAvailable(ctx, v)
		if err != nil {
			slog.Warn("task source failed", "source", src.Name(), "user_id", v.ID, "error", err)
			continue
		}
		slog.Info("task source loaded", "source", src.Name(), "user_id", v.ID, "count", len(tasks))
		queue = append(queue, tasks...)
	}

	session := &BrowseSession{
		ID:        uuid.New(),
		UserID:    v.ID,
		ChatID:    v.ChatID,
		Queue:     queue,
		Skipped:   make(map[string]struct{}),
		CreatedAt: time.Now(),
	}

	a.mu.Lock()
	a.sessions[v.ID] = session
	a.mu.Unlock()

	return session
}

// Session returns the user's current browsing session, if any.
func (a *Aggregator) Session(userID int64) (*BrowseSession, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.sessions[userID]
	return s, ok
}

// Drop discards the user's session; abandoning a session needs no other
// cancellation signal.
func (a *Aggregator) Drop(userID int64) {
	a.mu.Lock()
	delete(a.sessions, userID)
	a.mu.Unlock()
}

// Refresh reruns the queue load and resets the cursor. Tasks the user
// explicitly skipped in the previous session stay hidden.
func (a *Aggregator) Refresh(ctx context.Context, v Viewer) *BrowseSession {
	var skipped map[string]struct{}
	if prev, ok := a.Session(v.ID); ok {
		skipped = prev.skippedKeys()
	}
	session := a.LoadQueue(ctx, v)
	if len(skipped) > 0 {
		session.pruneSkipped(skipped)
	}
	return session
}

// VerifierFor returns the source owning the descriptor.
func (a *Aggregator) VerifierFor(d domain.TaskDescriptor) (Source, bool) {
	for _, src := range a.sources {
		if src.Name() == d.Source {
			return src, true
		}
	}
	return nil, false
}
