// Package stt transcribes flushed caller utterances via the Deepgram
// batch REST API.
package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tkc-cmd/rxvoice/internal/domain"
	"github.com/tkc-cmd/rxvoice/internal/observability"
)

const deepgramURL = "https://api.deepgram.com/v1/listen?model=nova-2&smart_format=true&language=en"

type DeepgramClient struct {
	apiKey string
	client *http.Client
}

func NewDeepgramClient(apiKey string) *DeepgramClient {
	return &DeepgramClient{
		apiKey: apiKey,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// response shape, trimmed to the fields we read
type deepgramResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Transcribe implements domain.Transcriber. A transient failure is retried
// once; callers never retry on top of this.
func (d *DeepgramClient) Transcribe(ctx context.Context, audio []byte) (domain.Transcript, error) {
	tr, err := d.transcribeOnce(ctx, audio)
	if err == nil || ctx.Err() != nil {
		return tr, err
	}

	observability.LoggerFromContext(ctx).Warn("retrying transcription", "error", err)
	return d.transcribeOnce(ctx, audio)
}

func (d *DeepgramClient) transcribeOnce(ctx context.Context, audio []byte) (domain.Transcript, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, deepgramURL, bytes.NewReader(audio))
	if err != nil {
		return domain.Transcript{}, fmt.Errorf("building deepgram request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+d.apiKey)
	req.Header.Set("Content-Type", "audio/wav")

	res, err := d.client.Do(req)
	if err != nil {
		return domain.Transcript{}, fmt.Errorf("calling deepgram: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return domain.Transcript{}, fmt.Errorf("deepgram returned %d: %s", res.StatusCode, body)
	}

	var out deepgramResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return domain.Transcript{}, fmt.Errorf("decoding deepgram response: %w", err)
	}

	if len(out.Results.Channels) == 0 || len(out.Results.Channels[0].Alternatives) == 0 {
		return domain.Transcript{}, fmt.Errorf("deepgram returned no transcript")
	}

	alt := out.Results.Channels[0].Alternatives[0]
	return domain.Transcript{Text: alt.Transcript, Confidence: alt.Confidence}, nil
}

var _ domain.Transcriber = (*DeepgramClient)(nil)
