package http

import (
	"context"
	"errors"
	"time"

	"github.com/aretw0/epa/pkg/domain"
	"github.com/aretw0/epa/pkg/ports"
)

// Follow polls reader every interval and streams the transitions recorded
// since the previous poll. It lets /events report traces written by a
// monitor in another process. What the store holds when Follow is called
// is read before it returns and never streamed. The polling stops when
// ctx is done; the returned channel is closed then.
func (sm *StreamManager) Follow(ctx context.Context, reader ports.TraceReader, interval time.Duration) <-chan struct{} {
	seen := make(map[domain.SubjectID]int)
	sm.poll(ctx, reader, seen, false)

	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sm.poll(ctx, reader, seen, true)
			}
		}
	}()
	return done
}

// poll advances seen to the current length of every trace, broadcasting
// the new transitions if asked to.
func (sm *StreamManager) poll(ctx context.Context, reader ports.TraceReader, seen map[domain.SubjectID]int, broadcast bool) {
	subjects, err := reader.Subjects(ctx)
	if err != nil {
		sm.logger.Warn("SSE: failed to list subjects", "error", err)
		return
	}

	hooks := sm.Hooks()
	for _, s := range subjects {
		ts, err := reader.Transitions(ctx, s.ID)
		if errors.Is(err, domain.ErrSubjectNotFound) {
			continue
		}
		if err != nil {
			sm.logger.Warn("SSE: failed to read transitions", "subject", s.ID, "error", err)
			continue
		}
		// A cleared and refilled store starts over.
		from := min(seen[s.ID], len(ts))
		if broadcast {
			for _, t := range ts[from:] {
				hooks.FireTransition(s, t)
			}
		}
		seen[s.ID] = len(ts)
	}
}
