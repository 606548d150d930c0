package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/franklinsmiles/webchat/pkg/logging"
)

// fakeLLM records every request and answers via fn (or a canned reply).
type fakeLLM struct {
	mu       sync.Mutex
	requests []LLMRequest
	fn       func(req LLMRequest) (LLMResponse, error)
}

func (f *fakeLLM) Complete(_ context.Context, req LLMRequest) (LLMResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.fn == nil {
		return LLMResponse{Text: "ok"}, nil
	}
	return f.fn(req)
}

func (f *fakeLLM) recorded() []LLMRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]LLMRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

func newTestAssistant(fn func(req LLMRequest) (LLMResponse, error)) (*Assistant, *fakeLLM) {
	llm := &fakeLLM{fn: fn}
	return NewAssistant(llm, logging.New("error"), nil), llm
}

func TestGreetingPassesThroughText(t *testing.T) {
	a, llm := newTestAssistant(func(LLMRequest) (LLMResponse, error) {
		return LLMResponse{Text: "Hello Sarah, welcome back!"}, nil
	})

	got := a.Greeting(context.Background(), "Hi", "user: Hi\nbot: Hello!", "Sarah")
	assert.Equal(t, "Hello Sarah, welcome back!", got)

	reqs := llm.recorded()
	require.Len(t, reqs, 1)
	require.Len(t, reqs[0].System, 1)
	assert.Contains(t, reqs[0].System[0], "Franklin Bright Smiles")
	assert.Contains(t, reqs[0].System[0], "User's Name: Sarah")
	assert.Contains(t, reqs[0].System[0], "user: Hi")
}

func TestGreetingFallbacks(t *testing.T) {
	a, _ := newTestAssistant(func(LLMRequest) (LLMResponse, error) {
		return LLMResponse{}, errors.New("network down")
	})
	assert.Equal(t, fallbackGreetingError, a.Greeting(context.Background(), "Hi", "", ""))

	a, _ = newTestAssistant(func(LLMRequest) (LLMResponse, error) {
		return LLMResponse{Text: ""}, nil
	})
	assert.Equal(t, fallbackGreetingEmpty, a.Greeting(context.Background(), "Hi", "", ""))
}

func TestGreetingPromptForNewSession(t *testing.T) {
	a, llm := newTestAssistant(nil)
	a.Greeting(context.Background(), "Hello", "", "")

	reqs := llm.recorded()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].System[0], "User's Name: Unknown")
	assert.Contains(t, reqs[0].System[0], "start of a new session")
}

func TestSympatheticReplyFallbacks(t *testing.T) {
	a, _ := newTestAssistant(func(LLMRequest) (LLMResponse, error) {
		return LLMResponse{}, errors.New("timeout")
	})
	assert.Equal(t, fallbackSympathyError, a.SympatheticReply(context.Background(), "my tooth hurts", ""))

	a, _ = newTestAssistant(func(LLMRequest) (LLMResponse, error) {
		return LLMResponse{Text: "  "}, nil
	})
	// Whitespace-only responses are not trimmed here; the Gemini client
	// already trims, so a blank means the provider sent nothing usable.
	got := a.SympatheticReply(context.Background(), "my tooth hurts", "")
	assert.NotEmpty(t, got)
}

func TestSympatheticReplyIncludesConcern(t *testing.T) {
	a, llm := newTestAssistant(func(LLMRequest) (LLMResponse, error) {
		return LLMResponse{Text: "That sounds painful."}, nil
	})
	got := a.SympatheticReply(context.Background(), "chipped molar", "Sarah")
	assert.Equal(t, "That sounds painful.", got)

	reqs := llm.recorded()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].System[0], "chipped molar")
	assert.Contains(t, reqs[0].System[0], "Sarah")
}

func TestExtractName(t *testing.T) {
	tests := []struct {
		name   string
		reply  string
		err    error
		want   string
		wantOK bool
	}{
		{"plain name", "Sarah", nil, "Sarah", true},
		{"trailing period stripped", "Sarah.", nil, "Sarah", true},
		{"padded", "  Sarah  ", nil, "Sarah", true},
		{"none token", "NONE", nil, "", false},
		{"none lowercase", "none", nil, "", false},
		{"too short", "S", nil, "", false},
		{"too long", strings.Repeat("a", 51), nil, "", false},
		{"transport error", "", errors.New("boom"), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, llm := newTestAssistant(func(LLMRequest) (LLMResponse, error) {
				return LLMResponse{Text: tt.reply}, tt.err
			})
			got, ok := a.ExtractName(context.Background(), "Hi, I'm Sarah")
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)

			reqs := llm.recorded()
			require.Len(t, reqs, 1)
			assert.InDelta(t, 0.1, float64(reqs[0].Temperature), 1e-6)
			assert.Empty(t, reqs[0].System)
		})
	}
}

func TestExtractNameNoIntroduction(t *testing.T) {
	// The service answers NONE for utterances without a self-introduction.
	a, _ := newTestAssistant(func(LLMRequest) (LLMResponse, error) {
		return LLMResponse{Text: "NONE"}, nil
	})
	_, ok := a.ExtractName(context.Background(), "I have a toothache")
	assert.False(t, ok)
}
