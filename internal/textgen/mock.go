package textgen

import (
	"context"
	"fmt"
	"strings"
)

// MockGenerator returns canned replies for local development and tests.
type MockGenerator struct{}

func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

func (g *MockGenerator) Name() string { return "mock" }

func (g *MockGenerator) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	last := "nothing yet"
	if n := len(req.Context); n > 0 {
		last = strings.TrimSpace(req.Context[n-1].Text)
	}
	words := strings.Fields(last)
	if len(words) > 6 {
		words = words[:6]
	}
	return fmt.Sprintf("%s here. You said %q, so let me answer that.", req.Speaker, strings.Join(words, " ")), nil
}
