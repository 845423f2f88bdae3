package textgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ent0n29/duet/internal/reliability"
)

func TestBuildPrompt(t *testing.T) {
	got := BuildPrompt(Request{
		SystemPrompt: "Be brief.",
		Context: []Line{
			{Speaker: "Priya Sharma", Text: "Hello, is this Mr. Kumar?"},
			{Speaker: "Rajesh Kumar", Text: "Haan ji, speaking."},
		},
		Speaker: "Priya Sharma",
	})
	want := "System: Be brief.\n\nConversation so far:\n" +
		"Priya Sharma: Hello, is this Mr. Kumar?\n" +
		"Rajesh Kumar: Haan ji, speaking.\n" +
		"\nYou are Priya Sharma. Respond to the last message naturally. Keep your response short (2-3 sentences max)."
	if got != want {
		t.Fatalf("BuildPrompt() = %q, want %q", got, want)
	}
}

func TestGeminiGenerate(t *testing.T) {
	var gotPath, gotKey, gotQuery, gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		gotQuery = r.URL.RawQuery
		var body geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(body.Contents) == 1 && len(body.Contents[0].Parts) == 1 {
			gotPrompt = body.Contents[0].Parts[0].Text
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"  Haan ji, "},{"text":"bol raha hoon.  "}]}}]}`)
	}))
	defer srv.Close()

	g := NewGeminiGenerator(srv.URL, "secret", "")
	text, err := g.Generate(context.Background(), Request{SystemPrompt: "p", Speaker: "Rajesh Kumar"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if text != "Haan ji, bol raha hoon." {
		t.Fatalf("Generate() = %q", text)
	}
	if gotPath != "/v1beta/models/"+DefaultGeminiModel+":generateContent" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotKey != "secret" {
		t.Fatalf("x-goog-api-key = %q, want %q", gotKey, "secret")
	}
	if gotQuery != "" {
		t.Fatalf("query = %q, want empty", gotQuery)
	}
	if !strings.Contains(gotPrompt, "You are Rajesh Kumar.") {
		t.Fatalf("prompt missing speaker instruction: %q", gotPrompt)
	}
}

func TestGeminiGenerateHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewGeminiGenerator(srv.URL, "k", "m").Generate(context.Background(), Request{})
	var pe *reliability.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("Generate() error = %v, want ProviderError", err)
	}
	if pe.StatusCode != http.StatusTooManyRequests || !pe.Retryable {
		t.Fatalf("ProviderError = %+v", pe)
	}
}

func TestGeminiTransportErrorOmitsKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	_, err := NewGeminiGenerator(base, "SECRET-GEMINI-KEY", "").Generate(context.Background(), Request{Speaker: "Priya"})
	if err == nil {
		t.Fatalf("Generate() error = nil, want transport error")
	}
	if reliability.ErrorCode(err) != "transport" {
		t.Fatalf("ErrorCode() = %q, want %q", reliability.ErrorCode(err), "transport")
	}
	if strings.Contains(err.Error(), "SECRET-GEMINI-KEY") {
		t.Fatalf("error text leaks the api key: %v", err)
	}
}

func TestGeminiGenerateEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"   "}]}}]}`)
	}))
	defer srv.Close()

	_, err := NewGeminiGenerator(srv.URL, "k", "m").Generate(context.Background(), Request{})
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("Generate() error = %v, want ErrEmptyResponse", err)
	}
}

func TestOpenAIGenerateStream(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Namaste \"}}]}\n\n")
		fmt.Fprint(w, ": keep-alive\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"sir.\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	text, err := NewOpenAIGenerator(srv.URL, "tok", "").Generate(context.Background(), Request{Speaker: "Priya"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if text != "Namaste sir." {
		t.Fatalf("Generate() = %q, want %q", text, "Namaste sir.")
	}
	if auth != "Bearer tok" {
		t.Fatalf("Authorization = %q", auth)
	}
}

type stubGenerator struct {
	text  string
	err   error
	calls int
}

func (s *stubGenerator) Generate(context.Context, Request) (string, error) {
	s.calls++
	return s.text, s.err
}

func TestFallbackGenerator(t *testing.T) {
	primary := &stubGenerator{err: errors.New("down")}
	fallback := &stubGenerator{text: "from fallback"}
	text, err := NewFallbackGenerator(primary, fallback).Generate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if text != "from fallback" {
		t.Fatalf("Generate() = %q", text)
	}
}

func TestFallbackGeneratorKeepsCancellation(t *testing.T) {
	primary := &stubGenerator{err: context.Canceled}
	fallback := &stubGenerator{text: "unused"}
	_, err := NewFallbackGenerator(primary, fallback).Generate(context.Background(), Request{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Generate() error = %v, want context.Canceled", err)
	}
	if fallback.calls != 0 {
		t.Fatalf("fallback calls = %d, want 0", fallback.calls)
	}
}

func TestMockGeneratorQuotesLastLine(t *testing.T) {
	text, err := NewMockGenerator().Generate(context.Background(), Request{
		Speaker: "Rajesh Kumar",
		Context: []Line{{Speaker: "Priya Sharma", Text: "Hello, is this Mr. Kumar?"}},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !strings.HasPrefix(text, "Rajesh Kumar here.") || !strings.Contains(text, "Mr. Kumar?") {
		t.Fatalf("Generate() = %q", text)
	}
}
