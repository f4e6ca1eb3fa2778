package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const elevenLabsEndpoint = "https://api.elevenlabs.io/v1/music"

// ElevenLabs is the higher-quality, per-millisecond priced provider.
// Hero slots (intro, peak, outro) route here.
type ElevenLabs struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewElevenLabs(apiKey string) *ElevenLabs {
	return &ElevenLabs{
		apiKey:  apiKey,
		baseURL: elevenLabsEndpoint,
		client:  &http.Client{Timeout: 5 * time.Minute},
	}
}

func (p *ElevenLabs) Capabilities() Capabilities {
	return Capabilities{
		Name:          "elevenlabs",
		MinDurationMs: 10000,
		MaxDurationMs: 300000,
		CostPerMs:     0.000005,
	}
}

func (p *ElevenLabs) Generate(ctx context.Context, req Request) (*Result, error) {
	durationMs := p.Capabilities().ClampDuration(req.DurationMs)

	body, err := json.Marshal(map[string]any{
		"prompt":          req.Prompt,
		"music_length_ms": durationMs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", p.apiKey)

	slog.Debug("requesting track generation", "provider", "elevenlabs", "duration_ms", durationMs)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusPaymentRequired {
		return nil, fmt.Errorf("%w: elevenlabs returned %d", ErrQuota, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("elevenlabs returned %d: %s", resp.StatusCode, msg)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio response: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("elevenlabs returned empty audio")
	}

	return &Result{
		Audio:      audio,
		DurationMs: durationMs,
		Provider:   "elevenlabs",
	}, nil
}
