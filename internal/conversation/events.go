package conversation

import (
	"sync"
	"time"

	"github.com/ent0n29/duet/internal/speech"
	"github.com/ent0n29/duet/internal/transcript"
)

type EventKind string

const (
	// EventTurn carries a newly appended transcript entry and its audio.
	EventTurn EventKind = "turn"
	// EventState reports a state transition of the loop.
	EventState EventKind = "state"
	// EventError reports a fatal run error. An error turn is also emitted.
	EventError EventKind = "error"
)

// Event is delivered to presentation observers. Audio is nil for text-only
// turns.
type Event struct {
	Kind  EventKind
	RunID string
	State State
	Turn  transcript.Turn
	Audio *speech.Artifact
	Wait  time.Duration
	Err   string
}

// hub fans events out to subscribers without ever blocking the loop. A slow
// subscriber loses events rather than stalling the conversation.
type hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
}

func newHub() *hub {
	return &hub{subs: make(map[int]chan Event)}
}

func (h *hub) subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 32
	}
	ch := make(chan Event, buffer)
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// publish returns the number of subscribers that missed the event.
func (h *hub) publish(ev Event) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	dropped := 0
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			dropped++
		}
	}
	return dropped
}
