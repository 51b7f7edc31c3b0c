package service

import (
	"sort"
	"time"

	"github.com/Niro-Programe/Fergando-MD/internal/core/domain"
	"github.com/Niro-Programe/Fergando-MD/pkg/cmap"
)

// Defaults for the recent message window.
const (
	DefaultDedupWindow  = 10 * time.Minute
	DefaultDedupMaxSize = 4096
)

type messageKey struct {
	chat   string
	id     string
	fromMe bool
}

// recentMessages remembers message ids seen within a time window.
type recentMessages struct {
	seen    *cmap.Map[messageKey, time.Time]
	window  time.Duration
	maxSize int
	now     func() time.Time
}

func newRecentMessages(window time.Duration, maxSize int) *recentMessages {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	if maxSize <= 0 {
		maxSize = DefaultDedupMaxSize
	}
	return &recentMessages{
		seen:    cmap.New[messageKey, time.Time](),
		window:  window,
		maxSize: maxSize,
		now:     time.Now,
	}
}

// firstSeen records msg and reports whether it was not seen within the window.
// Messages without an id are never treated as duplicates.
func (r *recentMessages) firstSeen(msg domain.Message) bool {
	if msg.ID == "" {
		return true
	}
	now := r.now()
	key := messageKey{chat: msg.Chat, id: msg.ID, fromMe: msg.FromMe}

	fresh := false
	r.seen.Upsert(key, now, func(prev time.Time, exists bool) time.Time {
		if exists && now.Sub(prev) < r.window {
			return prev
		}
		fresh = true
		return now
	})

	if fresh && r.seen.Count() > r.maxSize {
		r.prune(now)
	}
	return fresh
}

func (r *recentMessages) prune(now time.Time) {
	cutoff := now.Add(-r.window)
	r.seen.DeleteFunc(func(_ messageKey, at time.Time) bool {
		return at.Before(cutoff)
	})
	if r.seen.Count() <= r.maxSize {
		return
	}

	// A burst filled the window: keep only the newest half.
	times := make([]time.Time, 0, r.seen.Count())
	r.seen.Range(func(_ messageKey, at time.Time) bool {
		times = append(times, at)
		return true
	})
	keep := r.maxSize / 2
	if keep == 0 || len(times) <= keep {
		return
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	oldestKept := times[len(times)-keep]
	r.seen.DeleteFunc(func(_ messageKey, at time.Time) bool {
		return at.Before(oldestKept)
	})
}

func (r *recentMessages) size() int {
	return r.seen.Count()
}
