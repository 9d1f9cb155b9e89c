// Package events collects the progress event stream emitted while a search
// or campaign runs.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/toolscout/prospector/internal/model"
)

// Recorder accumulates search events in order and fans them out to
// subscribers. Safe for concurrent use.
type Recorder struct {
	mu        sync.Mutex
	events    []model.SearchEvent
	retention int
	subs      map[int]chan model.SearchEvent
	nextSub   int
	closed    bool

	nowFunc func() time.Time
}

// subBuffer is the per-subscriber channel capacity. A subscriber that falls
// further behind than this loses events rather than stalling the recorder.
const subBuffer = 64

// NewRecorder creates a recorder that keeps at most retention events.
// retention <= 0 means unbounded.
func NewRecorder(retention int) *Recorder {
	return &Recorder{
		retention: retention,
		subs:      make(map[int]chan model.SearchEvent),
		nowFunc:   time.Now,
	}
}

// Append records an event of the given kind and delivers it to subscribers.
// Returns the stored event.
func (r *Recorder) Append(kind model.EventKind, message string) model.SearchEvent {
	ev := model.SearchEvent{
		ID:        uuid.NewString(),
		Kind:      kind,
		Message:   message,
		Timestamp: r.nowFunc(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ev
	}

	r.events = append(r.events, ev)
	if r.retention > 0 && len(r.events) > r.retention {
		r.events = r.events[len(r.events)-r.retention:]
	}

	for id, ch := range r.subs {
		select {
		case ch <- ev:
		default:
			zap.L().Debug("dropping event for slow subscriber", zap.Int("subscriber", id))
		}
	}
	return ev
}

// Events returns a copy of the recorded events in append order.
func (r *Recorder) Events() []model.SearchEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.SearchEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Subscribe returns a channel receiving events appended after this call,
// plus a cancel function that must be called when done. A closed recorder
// returns a closed channel.
func (r *Recorder) Subscribe() (<-chan model.SearchEvent, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := make(chan model.SearchEvent, subBuffer)
	if r.closed {
		close(ch)
		return ch, func() {}
	}

	id := r.nextSub
	r.nextSub++
	r.subs[id] = ch

	cancel := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if sub, ok := r.subs[id]; ok {
			delete(r.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Close stops delivery and closes all subscriber channels. Recorded events
// remain readable via Events.
func (r *Recorder) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	for id, ch := range r.subs {
		delete(r.subs, id)
		close(ch)
	}
}
