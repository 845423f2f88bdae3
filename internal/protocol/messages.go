package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeClientControl MessageType = "client_control"
	TypeTurnAppended  MessageType = "turn_appended"
	TypeRunState      MessageType = "run_state"
	TypeErrorEvent    MessageType = "error_event"
)

// Client control actions.
const (
	ActionStart = "start"
	ActionStop  = "stop"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

type ClientControl struct {
	Type   MessageType `json:"type"`
	Action string      `json:"action"`
}

// TurnAppended carries one transcript entry and, when synthesis succeeded,
// its audio. WaitMS is how long the orchestrator paces before the next turn.
type TurnAppended struct {
	Type        MessageType `json:"type"`
	RunID       string      `json:"run_id"`
	Ordinal     int         `json:"ordinal"`
	SpeakerID   string      `json:"speaker_id"`
	SpeakerName string      `json:"speaker_name"`
	Text        string      `json:"text"`
	Kind        string      `json:"kind"`
	AudioFormat string      `json:"audio_format,omitempty"`
	AudioMime   string      `json:"audio_mime,omitempty"`
	AudioBase64 string      `json:"audio_base64,omitempty"`
	WaitMS      int64       `json:"wait_ms"`
}

type RunState struct {
	Type   MessageType `json:"type"`
	RunID  string      `json:"run_id,omitempty"`
	State  string      `json:"state"`
	Active bool        `json:"active"`
	Turns  int         `json:"turns"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	RunID     string      `json:"run_id,omitempty"`
	Code      string      `json:"code"`
	Source    string      `json:"source"`
	Retryable bool        `json:"retryable"`
	Detail    string      `json:"detail"`
}

func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeClientControl:
		var msg ClientControl
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		msg.Action = strings.ToLower(strings.TrimSpace(msg.Action))
		switch msg.Action {
		case ActionStart, ActionStop:
			return msg, nil
		default:
			return nil, fmt.Errorf("invalid client_control action %q", msg.Action)
		}
	default:
		return nil, ErrUnsupportedType
	}
}
