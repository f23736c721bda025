package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyprienbrisset/ffemonitor/internal/domain"
)

func TestSendOpeningSucceedsWithMessageID(t *testing.T) {
	var captured sendRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(sendResponse{ID: "msg-1"})
	}))
	defer server.Close()

	a := New(Config{APIKey: "test-key", FromAddress: "alerts@ffemonitor.example", Endpoint: server.URL})
	ok, detail, err := a.SendOpening(context.Background(), domain.UserProfile{Email: "rider@example.com"}, domain.Event{
		Name: "Concours X", Venue: "Chantilly", StartDate: "2026-08-01", URL: "https://ffe.example/concours/42",
	})

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, detail)
	assert.Equal(t, []string{"rider@example.com"}, captured.To)
	assert.Contains(t, captured.HTML, "Concours X")
}

func TestSendOpeningReturnsFalseWithNoEmail(t *testing.T) {
	a := New(Config{APIKey: "test-key", FromAddress: "alerts@ffemonitor.example"})
	ok, detail, err := a.SendOpening(context.Background(), domain.UserProfile{}, domain.Event{})

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, detail, "no email")
}

func TestSendOpeningMissingMessageID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(sendResponse{})
	}))
	defer server.Close()

	a := New(Config{APIKey: "test-key", FromAddress: "alerts@ffemonitor.example", Endpoint: server.URL})
	ok, _, err := a.SendOpening(context.Background(), domain.UserProfile{Email: "rider@example.com"}, domain.Event{})

	require.NoError(t, err)
	assert.False(t, ok)
}
