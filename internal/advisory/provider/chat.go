package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quorum/internal/advisory"
	"quorum/internal/logger"
	"quorum/internal/market"
)

// Completer is the part of ChatClient the advisors need.
type Completer interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

// ChatAdvisor asks a chat model for a directional advisory.
type ChatAdvisor struct {
	name   string
	client Completer
}

func NewChatAdvisor(name string, client Completer) *ChatAdvisor {
	return &ChatAdvisor{name: name, client: client}
}

func (a *ChatAdvisor) Name() string { return a.name }

func (a *ChatAdvisor) Advise(ctx context.Context, snap market.Snapshot) (advisory.AdvisorySet, error) {
	user := buildAdvisorPrompt(snap)
	raw, err := complete(ctx, a.client, a.name, snap.Symbol, advisorSystemPrompt, user)
	if err != nil {
		return advisory.AdvisorySet{}, err
	}
	set, err := advisory.ParseAdvisory(raw)
	if err != nil {
		return advisory.AdvisorySet{}, fmt.Errorf("%s: %w", a.name, err)
	}
	return set, nil
}

// ChatSentiment asks a chat model (typically a search-backed one) for the
// news sentiment of a symbol.
type ChatSentiment struct {
	name   string
	client Completer
}

func NewChatSentiment(name string, client Completer) *ChatSentiment {
	return &ChatSentiment{name: name, client: client}
}

func (s *ChatSentiment) Name() string { return s.name }

func (s *ChatSentiment) Advise(ctx context.Context, symbol string, price float64) (advisory.SentimentAdvisory, error) {
	raw, err := complete(ctx, s.client, s.name, symbol, sentimentSystemPrompt, buildSentimentPrompt(symbol, price))
	if err != nil {
		return advisory.SentimentAdvisory{}, err
	}
	out, err := advisory.ParseSentimentAdvisory(raw)
	if err != nil {
		return advisory.SentimentAdvisory{}, fmt.Errorf("%s: %w", s.name, err)
	}
	return out, nil
}

func complete(ctx context.Context, client Completer, name, symbol, system, user string) (string, error) {
	logger.LogAdvisoryRequest(name, symbol, system, user, "")
	start := time.Now()
	raw, err := client.Complete(ctx, ChatRequest{System: system, User: user, ExpectJSON: true})
	latency := time.Since(start)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%s: %w after %s", name, advisory.ErrTimeout, latency.Round(time.Millisecond))
		}
		return "", fmt.Errorf("%s: %w: %v", name, advisory.ErrUnavailable, err)
	}
	logger.LogAdvisoryResponse(name, symbol, raw, latency)
	return raw, nil
}
