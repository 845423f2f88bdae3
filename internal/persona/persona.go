package persona

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidPersona wraps every validation failure of a persona pair.
var ErrInvalidPersona = errors.New("invalid persona")

// Persona is one configured conversational identity.
type Persona struct {
	ID             string `json:"id" yaml:"id"`
	Name           string `json:"name" yaml:"name"`
	SystemPrompt   string `json:"system_prompt" yaml:"system_prompt"`
	OpeningMessage string `json:"opening_message,omitempty" yaml:"opening_message"`
	VoiceID        string `json:"voice_id" yaml:"voice_id"`
}

// Pair holds the two personas of a session. The initiator speaks first with
// its opening message; the responder's opening message is ignored.
type Pair struct {
	Initiator Persona `json:"initiator" yaml:"initiator"`
	Responder Persona `json:"responder" yaml:"responder"`
}

// Validate rejects pairs the turn loop cannot run.
func (p Pair) Validate() error {
	for _, item := range []struct {
		role string
		p    Persona
	}{{"initiator", p.Initiator}, {"responder", p.Responder}} {
		if strings.TrimSpace(item.p.ID) == "" {
			return fmt.Errorf("%w: %s id is required", ErrInvalidPersona, item.role)
		}
		if strings.TrimSpace(item.p.Name) == "" {
			return fmt.Errorf("%w: %s name is required", ErrInvalidPersona, item.role)
		}
	}
	if strings.EqualFold(strings.TrimSpace(p.Initiator.ID), strings.TrimSpace(p.Responder.ID)) {
		return fmt.Errorf("%w: initiator and responder share id %q", ErrInvalidPersona, p.Initiator.ID)
	}
	if strings.TrimSpace(p.Initiator.OpeningMessage) == "" {
		return fmt.Errorf("%w: initiator opening message is required", ErrInvalidPersona)
	}
	return nil
}

// Speaker returns the persona with the given identity.
func (p Pair) Speaker(id string) (Persona, bool) {
	switch id {
	case p.Initiator.ID:
		return p.Initiator, true
	case p.Responder.ID:
		return p.Responder, true
	default:
		return Persona{}, false
	}
}

// Normalize trims whitespace around identity fields.
func (p Pair) Normalize() Pair {
	p.Initiator = p.Initiator.normalize()
	p.Responder = p.Responder.normalize()
	return p
}

func (p Persona) normalize() Persona {
	p.ID = strings.TrimSpace(p.ID)
	p.Name = strings.TrimSpace(p.Name)
	p.VoiceID = strings.TrimSpace(p.VoiceID)
	p.OpeningMessage = strings.TrimSpace(p.OpeningMessage)
	return p
}

// LoadFile reads a YAML persona pair. ${VAR} references are expanded from the
// environment before parsing. Missing voice ids are left empty so the caller
// can fill in configured defaults.
func LoadFile(path string) (Pair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Pair{}, fmt.Errorf("read persona file %s: %w", path, err)
	}
	expanded := os.Expand(string(data), os.Getenv)

	var pair Pair
	if err := yaml.Unmarshal([]byte(expanded), &pair); err != nil {
		return Pair{}, fmt.Errorf("parse persona file %s: %w", path, err)
	}
	pair = pair.Normalize()
	if err := pair.Validate(); err != nil {
		return Pair{}, fmt.Errorf("persona file %s: %w", path, err)
	}
	return pair, nil
}

// WithDefaultVoices fills empty voice ids.
func (p Pair) WithDefaultVoices(primary, secondary string) Pair {
	if p.Initiator.VoiceID == "" {
		p.Initiator.VoiceID = strings.TrimSpace(primary)
	}
	if p.Responder.VoiceID == "" {
		p.Responder.VoiceID = strings.TrimSpace(secondary)
	}
	return p
}
