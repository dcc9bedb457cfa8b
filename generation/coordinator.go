// Package generation is the background coordinator: it turns extracted
// post text into short reply text through an LLM, masking every failure
// behind a fixed set of fallback phrases so the automation core only
// ever sees a reply.
package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hazyhaar/feedloop/observability"
	"github.com/hazyhaar/feedloop/transport"
)

const systemPrompt = "You write one short, friendly reply to a social media post. " +
	"Plain language, no hashtags, no emojis, no quotes around the reply."

// Config tunes the Coordinator.
type Config struct {
	// APIKey authorizes the LLM calls. Empty routes every request to a
	// fallback phrase.
	APIKey string `yaml:"api_key"`
	// Model is the chat model id. Default: gpt-4o-mini.
	Model string `yaml:"model"`
	// MaxTokens bounds the completion length. Default: 80.
	MaxTokens int `yaml:"max_tokens"`
	// Temperature is the sampling temperature. Default: 0.8.
	Temperature float32 `yaml:"temperature"`
	// Timeout bounds one generation request. Default: 5s.
	Timeout time.Duration `yaml:"timeout"`
	// MaxReplyLen hard-truncates sanitized replies. Default: 180.
	MaxReplyLen int `yaml:"max_reply_len"`
	// CacheSize bounds the reply cache. Default: 64.
	CacheSize int `yaml:"cache_size"`
	// RemoteEndpoint routes generation requests to an external HTTP
	// service instead of the in-process coordinator. Optional.
	RemoteEndpoint string `yaml:"remote_endpoint"`
}

func (c *Config) defaults() {
	if c.Model == "" {
		c.Model = openai.GPT4oMini
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 80
	}
	if c.Temperature <= 0 {
		c.Temperature = 0.8
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.MaxReplyLen <= 0 {
		c.MaxReplyLen = 180
	}
	if c.CacheSize <= 0 {
		c.CacheSize = 64
	}
}

// completer is the slice of the OpenAI client the coordinator uses;
// tests substitute a stub.
type completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Coordinator serves generation_request messages and relays replies
// back over the bus, fire-and-forget in both directions.
type Coordinator struct {
	bus     *transport.Bus
	cache   *ReplyCache
	logger  *slog.Logger
	metrics *observability.Metrics

	mu     sync.Mutex
	cfg    Config
	client completer
}

// New creates a Coordinator. bus is used to deliver replies back to the
// core.
func New(cfg Config, bus *transport.Bus, logger *slog.Logger, metrics *observability.Metrics) *Coordinator {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	c := &Coordinator{
		bus:     bus,
		cache:   NewReplyCache(cfg.CacheSize),
		logger:  logger,
		metrics: metrics,
		cfg:     cfg,
	}
	if cfg.APIKey != "" {
		c.client = openai.NewClient(cfg.APIKey)
	}
	return c
}

// Register wires the coordinator's request handler into the bus.
func (c *Coordinator) Register(appCtx context.Context, bus *transport.Bus) {
	bus.RegisterLocal(transport.MsgGenerationRequest, func(ctx context.Context, payload []byte) ([]byte, error) {
		var req transport.GenerationRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("generation: request payload: %w", err)
		}
		// The reply is delivered asynchronously; the request returns as
		// soon as it is accepted.
		go c.process(appCtx, req)
		return json.Marshal(map[string]string{"status": "accepted"})
	})
}

// ApplySettings swaps the API key and model at runtime.
func (c *Coordinator) ApplySettings(apiKey, model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if model != "" {
		c.cfg.Model = model
	}
	if apiKey != c.cfg.APIKey {
		c.cfg.APIKey = apiKey
		if apiKey == "" {
			c.client = nil
		} else {
			c.client = openai.NewClient(apiKey)
		}
	}
}

func (c *Coordinator) process(ctx context.Context, req transport.GenerationRequest) {
	start := time.Now()

	text, fallback := c.Generate(ctx, req.Prompt)

	c.metrics.ObserveGenLatency(time.Since(start).Seconds())
	if fallback {
		c.metrics.IncGenFallbacks()
	}

	c.bus.Notify(ctx, transport.MsgGenerationReply, transport.GenerationReply{
		ItemID:   req.ItemID,
		Text:     text,
		Fallback: fallback,
	})
}

// Generate produces sanitized reply text for the given source text.
// Never fails: a missing key, an API error, or a timeout yields a
// fallback phrase. The bool reports whether a fallback was used.
func (c *Coordinator) Generate(ctx context.Context, source string) (string, bool) {
	c.mu.Lock()
	cfg := c.cfg
	client := c.client
	c.mu.Unlock()

	key := Fingerprint(source)
	if cached, ok := c.cache.Get(key); ok {
		c.logger.Debug("generation: cache hit")
		return cached, false
	}

	if client == nil {
		c.logger.Debug("generation: no api key, using fallback")
		return FallbackPhrase(nil), true
	}

	reqCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	resp, err := client.CreateChatCompletion(reqCtx, openai.ChatCompletionRequest{
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "Reply to this post:\n\n" + source},
		},
	})
	if err != nil {
		c.logger.Warn("generation: completion failed, using fallback", "error", err)
		return FallbackPhrase(nil), true
	}
	if len(resp.Choices) == 0 {
		c.logger.Warn("generation: empty completion, using fallback")
		return FallbackPhrase(nil), true
	}

	reply := Sanitize(resp.Choices[0].Message.Content, cfg.MaxReplyLen)
	if reply == "" {
		return FallbackPhrase(nil), true
	}

	c.cache.Put(key, reply)
	return reply, false
}
