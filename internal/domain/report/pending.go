package report

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DeleteConfirmWindow is how long a delete request stays confirmable.
const DeleteConfirmWindow = 30 * time.Second

type pendingEntry struct {
	reportID int64
	deadline time.Time
}

// pendingDeletions tracks unconfirmed delete requests per actor. Entries
// expire after DeleteConfirmWindow, checked lazily on access and by a
// background sweep. State is process-lifetime only.
type pendingDeletions struct {
	mu      sync.Mutex
	entries map[string]pendingEntry
	ttl     time.Duration

	now func() time.Time
}

func newPendingDeletions(ttl time.Duration) *pendingDeletions {
	return &pendingDeletions{
		entries: make(map[string]pendingEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// confirm implements the two-phase check-and-set: if the actor already
// has a live pending entry for reportID it is cleared and confirm
// returns true. Otherwise the entry is recorded (or repointed at the new
// id) with a fresh deadline and confirm returns false.
func (p *pendingDeletions) confirm(actorID string, reportID int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.entries[actorID]
	if ok && p.now().Before(entry.deadline) && entry.reportID == reportID {
		delete(p.entries, actorID)
		return true
	}

	p.entries[actorID] = pendingEntry{
		reportID: reportID,
		deadline: p.now().Add(p.ttl),
	}
	return false
}

// remaining returns the unexpired window left for the actor's pending
// entry, or zero if none exists.
func (p *pendingDeletions) remaining(actorID string) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.entries[actorID]
	if !ok {
		return 0
	}
	left := entry.deadline.Sub(p.now())
	if left <= 0 {
		delete(p.entries, actorID)
		return 0
	}
	return left
}

// sweep drops expired entries.
func (p *pendingDeletions) sweep() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	removed := 0
	for actor, entry := range p.entries {
		if !now.Before(entry.deadline) {
			delete(p.entries, actor)
			removed++
		}
	}
	return removed
}

// StartPendingSweep expires unconfirmed delete requests until ctx is
// cancelled.
func (s *Service) StartPendingSweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Pending deletion sweep stopped")
			return
		case <-ticker.C:
			if removed := s.pending.sweep(); removed > 0 {
				log.Debug().Int("expired", removed).Msg("Pending deletions expired")
			}
		}
	}
}
