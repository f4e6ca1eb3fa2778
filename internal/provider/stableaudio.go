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

const stableAudioEndpoint = "https://api.stability.ai/v2beta/audio/stable-audio-2/text-to-audio"

// StableAudio is the flat-rate provider used for most sustain material.
// Tracks cap near three minutes.
type StableAudio struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewStableAudio(apiKey string) *StableAudio {
	return &StableAudio{
		apiKey:  apiKey,
		baseURL: stableAudioEndpoint,
		client:  &http.Client{Timeout: 5 * time.Minute},
	}
}

func (p *StableAudio) Capabilities() Capabilities {
	return Capabilities{
		Name:          "stable_audio",
		MinDurationMs: 120000,
		MaxDurationMs: 190000,
		CostPerTrack:  0.20,
	}
}

func (p *StableAudio) Generate(ctx context.Context, req Request) (*Result, error) {
	durationMs := p.Capabilities().ClampDuration(req.DurationMs)

	body, err := json.Marshal(map[string]any{
		"prompt":        req.Prompt,
		"duration":      durationMs / 1000,
		"output_format": "mp3",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "audio/*")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	slog.Debug("requesting track generation", "provider", "stable_audio", "duration_ms", durationMs)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("stable audio request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusPaymentRequired {
		return nil, fmt.Errorf("%w: stable audio returned %d", ErrQuota, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("stable audio returned %d: %s", resp.StatusCode, msg)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio response: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("stable audio returned empty audio")
	}

	return &Result{
		Audio:      audio,
		DurationMs: durationMs,
		Provider:   "stable_audio",
	}, nil
}
