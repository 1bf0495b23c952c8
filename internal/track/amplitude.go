// Package track emits product analytics events. Delivery is fire-and-forget:
// a lost event must never affect the chat flow.
package track

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const defaultEndpoint = "https://api.amplitude.com/2/httpapi"

// Amplitude posts events to the Amplitude HTTP API. With an empty API key
// every call is a no-op, so local setups need no stub.
type Amplitude struct {
	apiKey   string
	endpoint string
	http     *http.Client
	log      zerolog.Logger
}

// NewAmplitude creates a tracker.
func NewAmplitude(apiKey string, log zerolog.Logger) *Amplitude {
	return &Amplitude{
		apiKey:   apiKey,
		endpoint: defaultEndpoint,
		http:     &http.Client{Timeout: 10 * time.Second},
		log:      log.With().Str("component", "track").Logger(),
	}
}

// Track sends one event. Errors are logged and swallowed.
func (a *Amplitude) Track(ctx context.Context, chatID int64, event string, userProps map[string]interface{}) {
	if a.apiKey == "" {
		return
	}

	payload := map[string]interface{}{
		"api_key": a.apiKey,
		"events": []map[string]interface{}{
			{
				"user_id":    chatID,
				"event_type": event,
				"platform":   "Telegram",
			},
		},
	}
	if userProps != nil {
		payload["events"].([]map[string]interface{})[0]["user_properties"] = userProps
	}

	body, err := json.Marshal(payload)
	if err != nil {
		a.log.Error().Err(err).Str("event", event).Msg("failed to marshal event")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		a.log.Error().Err(err).Str("event", event).Msg("failed to build request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		a.log.Error().Err(err).Str("event", event).Msg("failed to send event")
		return
	}
	resp.Body.Close()
}
