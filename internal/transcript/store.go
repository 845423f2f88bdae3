package transcript

import (
	"sync"
	"time"
)

// Kind distinguishes spoken turns from inline diagnostics.
type Kind string

const (
	KindUtterance Kind = "utterance"
	KindError     Kind = "error"
)

// SystemSpeakerID marks turns produced by the orchestrator itself.
const SystemSpeakerID = "system"

// Turn is one immutable transcript entry.
type Turn struct {
	Ordinal     int       `json:"ordinal"`
	SpeakerID   string    `json:"speaker_id"`
	SpeakerName string    `json:"speaker_name"`
	Text        string    `json:"text"`
	Kind        Kind      `json:"kind"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store is the ordered, append-only record of the current run. Only the turn
// loop appends; presentation readers take snapshots.
type Store struct {
	mu    sync.RWMutex
	turns []Turn
}

func NewStore() *Store {
	return &Store{}
}

// Reset clears the transcript. Called once per run start.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = nil
}

// Append adds t at the end and returns it with its ordinal assigned.
func (s *Store) Append(t Turn) Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.Ordinal = len(s.turns)
	if t.Kind == "" {
		t.Kind = KindUtterance
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	s.turns = append(s.turns, t)
	return t
}

// Snapshot returns a copy of the full ordered sequence.
func (s *Store) Snapshot() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// At returns the turn with the given ordinal.
func (s *Store) At(ordinal int) (Turn, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ordinal < 0 || ordinal >= len(s.turns) {
		return Turn{}, false
	}
	return s.turns[ordinal], true
}
