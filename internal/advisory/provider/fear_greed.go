package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"quorum/internal/advisory"
	"quorum/internal/logger"

	"github.com/go-resty/resty/v2"
)

const (
	fearGreedEndpoint       = "https://api.alternative.me/fng/?limit=5"
	fearGreedErrorBackoff   = 2 * time.Minute
	fearGreedFallbackUpdate = 12 * time.Hour
)

type FearGreedPoint struct {
	Value          int
	Classification string
	Timestamp      time.Time
}

type FearGreedData struct {
	Value          int
	Classification string
	Timestamp      time.Time
	History        []FearGreedPoint
	LastUpdate     time.Time
}

// FearGreed turns the crypto fear and greed index into a sentiment advisory.
// The index is market wide, so every symbol gets the same reading. Readings
// are cached until the API reports the next update.
type FearGreed struct {
	endpoint string
	client   *resty.Client
	now      func() time.Time

	mu         sync.RWMutex
	data       FearGreedData
	nextUpdate time.Time
	lastErr    error
	refreshMu  sync.Mutex
}

func NewFearGreed(endpoint string, timeout time.Duration) *FearGreed {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = fearGreedEndpoint
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &FearGreed{
		endpoint: endpoint,
		client:   resty.New().SetTimeout(timeout).SetHeader("Accept", "application/json"),
		now:      time.Now,
	}
}

func (f *FearGreed) Name() string { return "fear_greed" }

func (f *FearGreed) Advise(ctx context.Context, symbol string, price float64) (advisory.SentimentAdvisory, error) {
	f.refreshIfStale(ctx)
	data, ok := f.Get()
	if !ok {
		f.mu.RLock()
		err := f.lastErr
		f.mu.RUnlock()
		if errors.Is(err, context.DeadlineExceeded) {
			return advisory.SentimentAdvisory{}, fmt.Errorf("fear_greed: %w", advisory.ErrTimeout)
		}
		return advisory.SentimentAdvisory{}, fmt.Errorf("fear_greed: %w: %v", advisory.ErrUnavailable, err)
	}
	return sentimentFromIndex(data), nil
}

// Get returns the cached reading.
func (f *FearGreed) Get() (FearGreedData, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.data, !f.data.LastUpdate.IsZero()
}

// sentimentFromIndex reads 55 and above as positive and 45 and below as
// negative. Distance from 50 drives both confidence and impact.
func sentimentFromIndex(d FearGreedData) advisory.SentimentAdvisory {
	dist := math.Abs(float64(d.Value) - 50)
	confidence := 0.5 + dist/100
	sentiment := "NEUTRAL"
	switch {
	case d.Value >= 55:
		sentiment = "POSITIVE"
	case d.Value <= 45:
		sentiment = "NEGATIVE"
	}
	impact := "LOW"
	switch {
	case dist >= 30:
		impact = "HIGH"
	case dist >= 15:
		impact = "MEDIUM"
	}
	summary := fmt.Sprintf("Fear & Greed index %d (%s)", d.Value, d.Classification)
	if len(d.History) > 1 {
		summary += fmt.Sprintf(", previous %d", d.History[1].Value)
	}
	return advisory.NormalizeSentiment(advisory.RawSentiment{
		Sentiment:  sentiment,
		Confidence: &confidence,
		Impact:     impact,
		Summary:    summary,
	})
}

func (f *FearGreed) refreshIfStale(ctx context.Context) {
	if !f.stale() {
		return
	}
	f.refreshMu.Lock()
	defer f.refreshMu.Unlock()
	if !f.stale() {
		return
	}
	if err := f.refresh(ctx); err != nil {
		logger.Warnf("fear & greed refresh failed: %v", err)
		f.mu.Lock()
		f.lastErr = err
		f.nextUpdate = f.now().Add(fearGreedErrorBackoff)
		f.mu.Unlock()
	}
}

func (f *FearGreed) stale() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.nextUpdate.IsZero() || !f.now().Before(f.nextUpdate)
}

type fearGreedResponse struct {
	Data []struct {
		Value               string `json:"value"`
		ValueClassification string `json:"value_classification"`
		Timestamp           string `json:"timestamp"`
		TimeUntilUpdate     string `json:"time_until_update"`
	} `json:"data"`
	Metadata struct {
		Error any `json:"error"`
	} `json:"metadata"`
}

func (f *FearGreed) refresh(ctx context.Context) error {
	resp, err := f.client.R().SetContext(ctx).Get(f.endpoint)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("unexpected status %s", resp.Status())
	}
	var payload fearGreedResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return err
	}
	if payload.Metadata.Error != nil {
		return fmt.Errorf("api error: %v", payload.Metadata.Error)
	}
	points := make([]FearGreedPoint, 0, len(payload.Data))
	for _, item := range payload.Data {
		value, err := strconv.Atoi(strings.TrimSpace(item.Value))
		if err != nil {
			continue
		}
		var ts time.Time
		if sec, err := strconv.ParseInt(strings.TrimSpace(item.Timestamp), 10, 64); err == nil {
			ts = time.Unix(sec, 0).UTC()
		}
		points = append(points, FearGreedPoint{
			Value:          value,
			Classification: strings.TrimSpace(item.ValueClassification),
			Timestamp:      ts,
		})
	}
	if len(points) == 0 {
		return fmt.Errorf("api data empty")
	}

	now := f.now()
	next := now.Add(fearGreedFallbackUpdate)
	if secs, err := strconv.ParseInt(strings.TrimSpace(payload.Data[0].TimeUntilUpdate), 10, 64); err == nil && secs > 0 {
		next = now.Add(time.Duration(secs) * time.Second)
	}
	latest := points[0]
	f.mu.Lock()
	f.data = FearGreedData{
		Value:          latest.Value,
		Classification: latest.Classification,
		Timestamp:      latest.Timestamp,
		History:        points,
		LastUpdate:     now,
	}
	f.nextUpdate = next
	f.lastErr = nil
	f.mu.Unlock()
	return nil
}
