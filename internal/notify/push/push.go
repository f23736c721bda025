// Package push implements notify.ChannelAdapter against a
// OneSignal-shaped REST push notification endpoint, per spec.md §4.4 and
// §6. The HTTP client is built the same way as the teacher's
// health.HTTPChecker: pooled, explicit timeout, no internal retries.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/cyprienbrisset/ffemonitor/internal/domain"
	"github.com/cyprienbrisset/ffemonitor/internal/log"
)

const defaultEndpoint = "https://onesignal.com/api/v1/notifications"

// Adapter sends push notifications via the configured provider.
type Adapter struct {
	appID      string
	apiKey     string
	endpoint   string
	client     *http.Client
	log        zerolog.Logger
	configured bool
}

// Config holds the provider credentials spec.md §6 names APP_ID/API_KEY.
type Config struct {
	AppID    string
	APIKey   string
	Endpoint string // overridable for tests
	Timeout  time.Duration
}

// New constructs an Adapter from cfg, defaulting Endpoint and Timeout.
func New(cfg Config) *Adapter {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	logger := log.WithComponent("notify.push")
	configured := cfg.AppID != "" && cfg.APIKey != ""
	if !configured {
		logger.Warn().Msg("push adapter has no app id / api key configured, disabling channel")
	}
	return &Adapter{
		appID:      cfg.AppID,
		apiKey:     cfg.APIKey,
		endpoint:   endpoint,
		client:     &http.Client{Timeout: timeout},
		log:        logger,
		configured: configured,
	}
}

func (a *Adapter) Channel() domain.Channel { return domain.ChannelPush }

type notificationRequest struct {
	AppID                string            `json:"app_id"`
	IncludeSubscriptionIDs []string         `json:"include_subscription_ids"`
	Headings             map[string]string `json:"headings"`
	Contents             map[string]string `json:"contents"`
	URL                  string            `json:"url,omitempty"`
	Data                 map[string]interface{} `json:"data,omitempty"`
}

type notificationResponse struct {
	ID                  string   `json:"id"`
	Recipients          int      `json:"recipients"`
	Errors              interface{} `json:"errors"`
	InvalidSubscriptionIDs []string `json:"invalid_subscription_ids,omitempty"`
}

func (a *Adapter) SendOpening(ctx context.Context, user domain.UserProfile, event domain.Event) (bool, string, error) {
	if !a.configured {
		return false, "push channel not configured", nil
	}
	if user.PushToken == "" {
		return false, "no push token on file", nil
	}

	body := notificationRequest{
		AppID:                  a.appID,
		IncludeSubscriptionIDs: []string{user.PushToken},
		Headings:               map[string]string{"en": event.Name, "fr": event.Name},
		Contents: map[string]string{
			"en": fmt.Sprintf("%s is now open for enrollment", event.Name),
			"fr": fmt.Sprintf("%s est maintenant ouvert aux engagements", event.Name),
		},
		URL: event.URL,
		Data: map[string]interface{}{
			"event_numero": event.Numero,
			"status":       string(event.Status),
		},
	}
	return a.send(ctx, body)
}

func (a *Adapter) SendTest(ctx context.Context, user domain.UserProfile) (bool, string, error) {
	if !a.configured {
		return false, "push channel not configured", nil
	}
	if user.PushToken == "" {
		return false, "no push token on file", nil
	}
	body := notificationRequest{
		AppID:                  a.appID,
		IncludeSubscriptionIDs: []string{user.PushToken},
		Headings:               map[string]string{"en": "FFEMonitor test"},
		Contents:               map[string]string{"en": "This is a test push notification."},
	}
	return a.send(ctx, body)
}

func (a *Adapter) send(ctx context.Context, body notificationRequest) (bool, string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return false, "", fmt.Errorf("push: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(payload))
	if err != nil {
		return false, "", fmt.Errorf("push: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Key "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return false, "", fmt.Errorf("push: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		a.log.Warn().Int("status", resp.StatusCode).Msg("push adapter received non-2xx response")
		return false, fmt.Sprintf("provider returned HTTP %d", resp.StatusCode), nil
	}

	var parsed notificationResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return false, "", fmt.Errorf("push: decode response: %w", err)
	}

	if parsed.Recipients > 0 {
		return true, "", nil
	}
	if len(parsed.InvalidSubscriptionIDs) > 0 {
		return false, "token no longer valid", nil
	}
	return false, "provider reported zero recipients", nil
}
