package transcript

import "testing"

func TestStoreAppendAssignsOrdinals(t *testing.T) {
	s := NewStore()
	a := s.Append(Turn{SpeakerID: "a", Text: "one"})
	b := s.Append(Turn{SpeakerID: "b", Text: "two", Ordinal: 42})

	if a.Ordinal != 0 || b.Ordinal != 1 {
		t.Fatalf("ordinals = %d,%d, want 0,1", a.Ordinal, b.Ordinal)
	}
	if a.Kind != KindUtterance {
		t.Fatalf("Kind = %q, want %q", a.Kind, KindUtterance)
	}
	if a.CreatedAt.IsZero() {
		t.Fatalf("CreatedAt should be set")
	}
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
}

func TestStoreSnapshotIsCopy(t *testing.T) {
	s := NewStore()
	s.Append(Turn{SpeakerID: "a", Text: "one"})

	snap := s.Snapshot()
	snap[0].Text = "mutated"

	got, ok := s.At(0)
	if !ok {
		t.Fatalf("At(0) ok = false")
	}
	if got.Text != "one" {
		t.Fatalf("stored text = %q, want %q", got.Text, "one")
	}
}

func TestStoreResetAndAt(t *testing.T) {
	s := NewStore()
	s.Append(Turn{SpeakerID: "a", Text: "one"})
	s.Reset()
	if s.Len() != 0 {
		t.Fatalf("Len() after Reset = %d, want 0", s.Len())
	}
	if _, ok := s.At(0); ok {
		t.Fatalf("At(0) after Reset ok = true")
	}
	if _, ok := s.At(-1); ok {
		t.Fatalf("At(-1) ok = true")
	}
	if got := s.Append(Turn{SpeakerID: "b"}); got.Ordinal != 0 {
		t.Fatalf("ordinal after Reset = %d, want 0", got.Ordinal)
	}
}
