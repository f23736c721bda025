// Package email implements notify.ChannelAdapter against a
// Resend-shaped REST email-sending endpoint, per spec.md §4.4 and §6.
package email

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

const defaultEndpoint = "https://api.resend.com/emails"

// Adapter sends transactional emails via the configured provider.
type Adapter struct {
	apiKey      string
	fromAddress string
	endpoint    string
	client      *http.Client
	log         zerolog.Logger
	configured  bool
}

// Config holds the provider credentials spec.md §6 names
// API_KEY/FROM_ADDRESS for the email channel.
type Config struct {
	APIKey      string
	FromAddress string
	Endpoint    string // overridable for tests
	Timeout     time.Duration
}

// New constructs an Adapter from cfg, defaulting Endpoint and Timeout.
func New(cfg Config) *Adapter {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 12 * time.Second
	}
	logger := log.WithComponent("notify.email")
	configured := cfg.APIKey != ""
	if !configured {
		logger.Warn().Msg("email adapter has no api key configured, disabling channel")
	}
	return &Adapter{
		apiKey:      cfg.APIKey,
		fromAddress: cfg.FromAddress,
		endpoint:    endpoint,
		client:      &http.Client{Timeout: timeout},
		log:         logger,
		configured:  configured,
	}
}

func (a *Adapter) Channel() domain.Channel { return domain.ChannelEmail }

type sendRequest struct {
	From string   `json:"from"`
	To   []string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text,omitempty"`
}

type sendResponse struct {
	ID string `json:"id"`
}

func (a *Adapter) SendOpening(ctx context.Context, user domain.UserProfile, event domain.Event) (bool, string, error) {
	if !a.configured {
		return false, "email channel not configured", nil
	}
	if user.Email == "" {
		return false, "no email on file", nil
	}

	dateRange := event.StartDate
	if event.EndDate != "" && event.EndDate != event.StartDate {
		dateRange = fmt.Sprintf("%s - %s", event.StartDate, event.EndDate)
	}

	subject := fmt.Sprintf("%s is now open for enrollment", event.Name)
	html := fmt.Sprintf(
		`<p><strong>%s</strong> (%s, %s) is now open for enrollment.</p><p><a href="%s">View the event</a></p>`,
		event.Name, event.Venue, dateRange, event.URL,
	)
	text := fmt.Sprintf("%s (%s, %s) is now open for enrollment.\n%s", event.Name, event.Venue, dateRange, event.URL)

	return a.send(ctx, sendRequest{
		From:    a.fromAddress,
		To:      []string{user.Email},
		Subject: subject,
		HTML:    html,
		Text:    text,
	})
}

func (a *Adapter) SendTest(ctx context.Context, user domain.UserProfile) (bool, string, error) {
	if !a.configured {
		return false, "email channel not configured", nil
	}
	if user.Email == "" {
		return false, "no email on file", nil
	}
	return a.send(ctx, sendRequest{
		From:    a.fromAddress,
		To:      []string{user.Email},
		Subject: "FFEMonitor test email",
		HTML:    "<p>This is a test email notification.</p>",
		Text:    "This is a test email notification.",
	})
}

func (a *Adapter) send(ctx context.Context, body sendRequest) (bool, string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return false, "", fmt.Errorf("email: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(payload))
	if err != nil {
		return false, "", fmt.Errorf("email: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return false, "", fmt.Errorf("email: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		a.log.Warn().Int("status", resp.StatusCode).Msg("email adapter received non-2xx response")
		return false, fmt.Sprintf("provider returned HTTP %d", resp.StatusCode), nil
	}

	var parsed sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return false, "", fmt.Errorf("email: decode response: %w", err)
	}
	if parsed.ID == "" {
		return false, "provider returned no message id", nil
	}
	return true, "", nil
}
