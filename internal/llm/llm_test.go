package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/openai/openai-go/option"
)

func TestOpenAIGenerator_Generate(t *testing.T) {
	var body map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "  Happy to help!  "}}]
		}`))
	}))
	defer srv.Close()

	g := NewOpenAIGenerator("test-key", srv.URL+"/", "gpt-4o-mini", option.WithMaxRetries(0))
	text, err := g.Generate(context.Background(), Prompt{System: "be kind", User: "hello", Temperature: 0.3})
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}
	if text != "Happy to help!" {
		t.Errorf("Expected trimmed reply but got %q", text)
	}
	if body["model"] != "gpt-4o-mini" {
		t.Errorf("Expected default model in request, got %v", body["model"])
	}
	if msgs, _ := body["messages"].([]interface{}); len(msgs) != 2 {
		t.Errorf("Expected system and user messages, got %v", body["messages"])
	}
}

func TestOpenAIGenerator_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`))
	}))
	defer srv.Close()

	g := NewOpenAIGenerator("test-key", srv.URL+"/", "m", option.WithMaxRetries(0))
	_, err := g.Generate(context.Background(), Prompt{User: "hello"})
	if !errors.Is(err, ErrEmptyCompletion) {
		t.Errorf("Expected ErrEmptyCompletion but got %v", err)
	}
}

func TestOpenAIGenerator_DoesNotRetryOnItsOwn(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	}))
	defer srv.Close()

	g := NewOpenAIGenerator("test-key", srv.URL+"/", "m")
	if _, err := g.Generate(context.Background(), Prompt{User: "hello"}); err == nil {
		t.Fatal("Expected an error for a 503 response")
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("Expected exactly 1 request but got %d", n)
	}
}

func TestStaticGenerator(t *testing.T) {
	text, err := StaticGenerator{Reply: "Thanks!"}.Generate(context.Background(), Prompt{})
	if err != nil || text != "Thanks!" {
		t.Errorf("Unexpected result %q %v", text, err)
	}

	if _, err := (StaticGenerator{}).Generate(context.Background(), Prompt{}); !errors.Is(err, ErrEmptyCompletion) {
		t.Errorf("Expected ErrEmptyCompletion but got %v", err)
	}
}
