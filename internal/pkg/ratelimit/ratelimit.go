package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Action is a class of rate-limited operation.
type Action string

const (
	// ActionReport throttles report submissions per reporter.
	ActionReport Action = "report"
	// ActionComment throttles comment additions per author.
	ActionComment Action = "comment"
	// ActionWebhook throttles outbound webhook sends. This one is
	// process-global: every caller shares the same key.
	ActionWebhook Action = "webhook"
)

// Cooldown windows per action class.
const (
	ReportCooldown  = 2 * time.Minute
	CommentCooldown = 30 * time.Second
	WebhookCooldown = 5 * time.Second
)

// globalKey replaces the actor id for process-global actions.
const globalKey = "*"

func cooldownFor(action Action) time.Duration {
	switch action {
	case ActionReport:
		return ReportCooldown
	case ActionComment:
		return CommentCooldown
	case ActionWebhook:
		return WebhookCooldown
	default:
		return ReportCooldown
	}
}

type entryKey struct {
	actor  string
	action Action
}

// Limiter is an in-memory sliding-cooldown tracker keyed by actor and
// action class. State is process-lifetime only and never persisted.
type Limiter struct {
	mu      sync.Mutex
	entries map[entryKey]time.Time

	now func() time.Time
}

// New creates an empty limiter.
func New() *Limiter {
	return &Limiter{
		entries: make(map[entryKey]time.Time),
		now:     time.Now,
	}
}

func (l *Limiter) key(actorID string, action Action) entryKey {
	if action == ActionWebhook {
		actorID = globalKey
	}
	return entryKey{actor: actorID, action: action}
}

// CanAct reports whether the actor is outside the cooldown window for the
// action. Prefer Allow on write paths: CanAct followed by Record is not
// atomic.
func (l *Limiter) CanAct(actorID string, action Action) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.allowed(actorID, action)
}

// Record stores the current time for the key, overwriting any prior value.
func (l *Limiter) Record(actorID string, action Action) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[l.key(actorID, action)] = l.now()
}

// Allow performs an atomic check-then-record: it returns true and records
// the action if the actor is allowed, or returns false leaving state
// untouched. Two concurrent callers can never both observe "allowed".
func (l *Limiter) Allow(actorID string, action Action) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.allowed(actorID, action) {
		return false
	}
	l.entries[l.key(actorID, action)] = l.now()
	return true
}

func (l *Limiter) allowed(actorID string, action Action) bool {
	last, ok := l.entries[l.key(actorID, action)]
	if !ok {
		return true
	}
	return l.now().Sub(last) >= cooldownFor(action)
}

// Remaining returns how long until the actor may act again, or zero if
// allowed now.
func (l *Limiter) Remaining(actorID string, action Action) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	last, ok := l.entries[l.key(actorID, action)]
	if !ok {
		return 0
	}
	remaining := cooldownFor(action) - l.now().Sub(last)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Cleanup removes entries older than twice their class cooldown to bound
// memory. Entries inside the window are kept.
func (l *Limiter) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for k, last := range l.entries {
		if now.Sub(last) > 2*cooldownFor(k.action) {
			delete(l.entries, k)
			removed++
		}
	}
	return removed
}

// StartCleanup runs Cleanup on the given interval until ctx is cancelled.
func (l *Limiter) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Rate limiter cleanup stopped")
			return
		case <-ticker.C:
			if removed := l.Cleanup(); removed > 0 {
				log.Debug().Int("removed", removed).Msg("Rate limiter entries pruned")
			}
		}
	}
}
