package push

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

func TestSendOpeningSucceedsWithRecipients(t *testing.T) {
	var captured notificationRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Key test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(notificationResponse{Recipients: 1})
	}))
	defer server.Close()

	a := New(Config{AppID: "app-1", APIKey: "test-key", Endpoint: server.URL})
	ok, detail, err := a.SendOpening(context.Background(), domain.UserProfile{PushToken: "token-1"}, domain.Event{Numero: 42, Name: "Concours X"})

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, detail)
	assert.Equal(t, []string{"token-1"}, captured.IncludeSubscriptionIDs)
}

func TestSendOpeningReturnsFalseWithNoPushToken(t *testing.T) {
	a := New(Config{AppID: "app-1", APIKey: "test-key"})
	ok, detail, err := a.SendOpening(context.Background(), domain.UserProfile{}, domain.Event{})

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, detail, "no push token")
}

func TestSendOpeningInvalidSubscriptionReportsTokenDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(notificationResponse{
			Recipients:             0,
			InvalidSubscriptionIDs: []string{"token-1"},
		})
	}))
	defer server.Close()

	a := New(Config{AppID: "app-1", APIKey: "test-key", Endpoint: server.URL})
	ok, detail, err := a.SendOpening(context.Background(), domain.UserProfile{PushToken: "token-1"}, domain.Event{})

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "token no longer valid", detail)
}

func TestSendOpeningNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	a := New(Config{AppID: "app-1", APIKey: "test-key", Endpoint: server.URL})
	ok, detail, err := a.SendOpening(context.Background(), domain.UserProfile{PushToken: "token-1"}, domain.Event{})

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, detail, "500")
}
