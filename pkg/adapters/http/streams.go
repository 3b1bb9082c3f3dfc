package http

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"

	"github.com/aretw0/epa/pkg/domain"
)

// allSubjects is the subscription key of clients that watch every subject.
const allSubjects = "*"

// TransitionEvent is the payload of one server-sent event.
type TransitionEvent struct {
	Subject    domain.Subject    `json:"subject"`
	Transition domain.Transition `json:"transition"`
}

// StreamManager handles active SSE connections.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // subject id or "*" -> set of channels
	logger      *slog.Logger
}

func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a client. The returned function unsubscribes it and
// closes the channel.
func (sm *StreamManager) Subscribe(key string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[key]; !ok {
		sm.subscribers[key] = make(map[chan<- string]struct{})
	}
	sm.subscribers[key][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[key]; ok {
			if _, ok := subs[ch]; !ok {
				return
			}
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, key)
			}
		}
	}
}

// Broadcast sends msg to the subscribers of key and to those watching
// every subject. It never blocks: slow clients lose messages.
func (sm *StreamManager) Broadcast(key string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for _, k := range []string{key, allSubjects} {
		for ch := range sm.subscribers[k] {
			select {
			case ch <- msg:
			default:
				sm.logger.Warn("SSE: Client buffer full, dropping message", "subject", key)
			}
		}
	}
}

// Hooks returns monitor hooks that stream every recorded transition.
// The monitor calls them synchronously, so Broadcast must stay non-blocking.
func (sm *StreamManager) Hooks() domain.MonitorHooks {
	return domain.MonitorHooks{
		OnTransition: func(s domain.Subject, t domain.Transition) {
			payload, err := json.Marshal(TransitionEvent{Subject: s, Transition: t})
			if err != nil {
				sm.logger.Error("SSE: failed to encode transition", "error", err)
				return
			}
			sm.Broadcast(strconv.FormatUint(uint64(s.ID), 10), string(payload))
		},
	}
}
