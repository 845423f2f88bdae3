package protocol

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParseClientMessageControl(t *testing.T) {
	msg, err := ParseClientMessage([]byte(`{"type":"client_control","action":" Start "}`))
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}
	control, ok := msg.(ClientControl)
	if !ok {
		t.Fatalf("message type = %T, want ClientControl", msg)
	}
	if control.Action != ActionStart {
		t.Fatalf("Action = %q, want %q", control.Action, ActionStart)
	}
}

func TestParseClientMessageRejectsUnknownAction(t *testing.T) {
	if _, err := ParseClientMessage([]byte(`{"type":"client_control","action":"pause"}`)); err == nil {
		t.Fatalf("ParseClientMessage() error = nil, want error")
	}
}

func TestParseClientMessageRejectsUnknownType(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"wat"}`))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("error = %v, want ErrUnsupportedType", err)
	}
}

func TestParseClientMessageRejectsGarbage(t *testing.T) {
	if _, err := ParseClientMessage([]byte(`{not json`)); err == nil {
		t.Fatalf("ParseClientMessage() error = nil, want error")
	}
}

func TestTurnAppendedOmitsAudioWhenTextOnly(t *testing.T) {
	raw, err := json.Marshal(TurnAppended{
		Type:    TypeTurnAppended,
		RunID:   "r1",
		Ordinal: 1,
		Text:    "Haan ji.",
		Kind:    "utterance",
		WaitMS:  1500,
	})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if strings.Contains(string(raw), "audio_base64") {
		t.Fatalf("payload %s contains audio_base64 for a text-only turn", raw)
	}
	if !strings.Contains(string(raw), `"wait_ms":1500`) {
		t.Fatalf("payload %s missing wait_ms", raw)
	}
}
