// Package textgen produces the next utterance of a persona from the
// conversation so far.
package textgen

import (
	"context"
	"errors"
	"strings"
)

// ErrEmptyResponse is returned when a provider answers with no text.
var ErrEmptyResponse = errors.New("empty generation response")

// Line is one prior utterance as the model sees it.
type Line struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// Request carries everything a generator needs for one turn.
type Request struct {
	SystemPrompt string
	Context      []Line
	Speaker      string
}

// Generator produces a single reply. Implementations do not retry.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Named is implemented by generators that report a provider label.
type Named interface {
	Name() string
}

// ProviderName returns the label used in logs and metrics.
func ProviderName(g Generator) string {
	if n, ok := g.(Named); ok {
		return n.Name()
	}
	return "unknown"
}

// BuildPrompt renders the single-shot prompt sent to completion models.
func BuildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("System: ")
	b.WriteString(req.SystemPrompt)
	b.WriteString("\n\nConversation so far:\n")
	for _, line := range req.Context {
		b.WriteString(line.Speaker)
		b.WriteString(": ")
		b.WriteString(line.Text)
		b.WriteByte('\n')
	}
	b.WriteString("\nYou are ")
	b.WriteString(req.Speaker)
	b.WriteString(". Respond to the last message naturally. Keep your response short (2-3 sentences max).")
	return b.String()
}

func cleanReply(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmptyResponse
	}
	return s, nil
}
