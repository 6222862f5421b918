package reasoning

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:            baseURL,
		Model:              "test-model",
		APIKey:             "test-key",
		TimeoutMs:          2000,
		RateLimitPerMinute: 6000,
		MaxRetries:         2,
		BackoffBaseMs:      1,
		BreakerMaxFailures: 100,
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "http://localhost", Model: "m"})
	require.Error(t, err)
	assert.Equal(t, KindConfig, KindOf(err))
}

func TestClientGenerate(t *testing.T) {
	var gotPath, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"candidates": [{"content": {"parts": [{"text": "ok"}]}}]}`))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	text, err := client.Generate(context.Background(), "summarize")
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, "/v1/models/test-model:generate", gotPath)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.True(t, client.Healthy())
}

func TestClientRetriesTransportErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"text": "recovered"}`))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	text, err := client.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "recovered", text)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClientDoesNotRetryCredentialErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), "prompt")
	require.Error(t, err)
	assert.Equal(t, KindConfig, KindOf(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClientBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.MaxRetries = 1
	cfg.BreakerMaxFailures = 2
	client, err := NewClient(cfg)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = client.Generate(context.Background(), "prompt")
		require.Error(t, err)
	}
	before := atomic.LoadInt32(&calls)

	_, err = client.Generate(context.Background(), "prompt")
	require.Error(t, err)
	assert.Equal(t, KindTransport, KindOf(err))
	assert.Equal(t, before, atomic.LoadInt32(&calls), "open breaker should not reach the server")
	assert.False(t, client.Healthy())
}
