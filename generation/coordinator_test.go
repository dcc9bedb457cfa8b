package generation

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hazyhaar/feedloop/transport"
)

type stubCompleter struct {
	calls   int
	content string
	err     error
}

func (s *stubCompleter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.calls++
	if s.err != nil {
		return openai.ChatCompletionResponse{}, s.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: s.content}},
		},
	}, nil
}

func isFallback(s string) bool {
	for _, p := range fallbackPhrases {
		if s == p {
			return true
		}
	}
	return false
}

func TestGenerateSanitizesAndCaches(t *testing.T) {
	stub := &stubCompleter{content: "\"Nice   post!\"\n"}
	c := New(Config{APIKey: "test-key"}, transport.New(), nil, nil)
	c.client = stub

	got, fallback := c.Generate(context.Background(), "Some post text")
	if fallback {
		t.Fatal("got fallback, want generated reply")
	}
	if got != "Nice post!" {
		t.Fatalf("got %q, want %q", got, "Nice post!")
	}

	// Same source text hits the cache, not the API.
	again, _ := c.Generate(context.Background(), "some  POST   text")
	if again != got {
		t.Fatalf("got %q from cache, want %q", again, got)
	}
	if stub.calls != 1 {
		t.Fatalf("got %d API calls, want 1", stub.calls)
	}
}

func TestGenerateFallsBackWithoutKey(t *testing.T) {
	c := New(Config{}, transport.New(), nil, nil)
	got, fallback := c.Generate(context.Background(), "anything")
	if !fallback || !isFallback(got) {
		t.Fatalf("got %q/%v, want a fallback phrase", got, fallback)
	}
}

func TestGenerateFallsBackOnError(t *testing.T) {
	c := New(Config{APIKey: "test-key"}, transport.New(), nil, nil)
	c.client = &stubCompleter{err: errors.New("rate limited")}

	got, fallback := c.Generate(context.Background(), "a post")
	if !fallback || !isFallback(got) {
		t.Fatalf("got %q/%v, want a fallback phrase", got, fallback)
	}
	// Fallbacks are never cached.
	if c.cache.Len() != 0 {
		t.Fatalf("got %d cached entries, want 0", c.cache.Len())
	}
}

func TestGenerateTruncates(t *testing.T) {
	stub := &stubCompleter{content: strings.Repeat("really long reply ", 40)}
	c := New(Config{APIKey: "test-key", MaxReplyLen: 150}, transport.New(), nil, nil)
	c.client = stub

	got, _ := c.Generate(context.Background(), "a post")
	if len(got) > 150 {
		t.Fatalf("got %d bytes, want <= 150", len(got))
	}
}

func TestRegisterRoundTrip(t *testing.T) {
	bus := transport.New()
	c := New(Config{APIKey: "test-key"}, bus, nil, nil)
	c.client = &stubCompleter{content: "Generated reply."}

	replies := make(chan transport.GenerationReply, 1)
	bus.RegisterLocal(transport.MsgGenerationReply, func(ctx context.Context, payload []byte) ([]byte, error) {
		var r transport.GenerationReply
		if err := json.Unmarshal(payload, &r); err != nil {
			t.Errorf("reply payload: %v", err)
		}
		replies <- r
		return nil, nil
	})
	c.Register(context.Background(), bus)

	req, _ := json.Marshal(transport.GenerationRequest{ItemID: "item-1", Prompt: "post text"})
	if _, err := bus.Call(context.Background(), transport.MsgGenerationRequest, req); err != nil {
		t.Fatalf("request: %v", err)
	}

	select {
	case r := <-replies:
		if r.ItemID != "item-1" {
			t.Fatalf("got item id %q, want item-1", r.ItemID)
		}
		if r.Text != "Generated reply." || r.Fallback {
			t.Fatalf("got %q/%v, want generated reply", r.Text, r.Fallback)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no reply delivered")
	}
}

func TestApplySettingsClearsClient(t *testing.T) {
	c := New(Config{APIKey: "test-key"}, transport.New(), nil, nil)
	c.ApplySettings("", "")

	got, fallback := c.Generate(context.Background(), "a post")
	if !fallback || !isFallback(got) {
		t.Fatalf("got %q/%v, want fallback after key removed", got, fallback)
	}
}
