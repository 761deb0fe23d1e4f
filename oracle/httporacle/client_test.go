package httporacle_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/licensing/oracle"
	"github.com/xraph/licensing/oracle/httporacle"
)

func newClient(t *testing.T, h http.Handler) *httporacle.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := httporacle.New(srv.URL,
		httporacle.WithRateLimit(1000, 10),
		httporacle.WithRetryWindow(2*time.Second),
	)
	require.NoError(t, err)
	return c
}

func TestQuote(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quote", r.URL.Path)
		assert.Equal(t, "250", r.URL.Query().Get("fiat"))
		_ = json.NewEncoder(w).Encode(map[string]uint64{"native": 2500, "minimum": 100})
	}))

	q, err := c.Quote(context.Background(), 250)
	require.NoError(t, err)
	assert.Equal(t, oracle.Quote{Native: 2500, Minimum: 100}, q)
}

func TestQuoteRetriesOnTooManyRequests(t *testing.T) {
	var hits atomic.Int32
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]uint64{"native": 7})
	}))

	q, err := c.Quote(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), q.Native)
	assert.Equal(t, int32(2), hits.Load())
}

func TestQuoteDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		http.Error(w, "bad fiat", http.StatusBadRequest)
	}))

	_, err := c.Quote(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestConvert(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/convert", r.URL.Path)

		var body struct {
			Fiat    uint64 `json:"fiat"`
			Payment uint64 `json:"payment"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) {
			return
		}
		if body.Payment < 100 {
			http.Error(w, "minimum is 100", http.StatusPaymentRequired)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]uint64{"native": body.Payment})
	}))

	native, err := c.Convert(context.Background(), 10, 150)
	require.NoError(t, err)
	assert.Equal(t, uint64(150), native)

	_, err = c.Convert(context.Background(), 10, 50)
	assert.ErrorIs(t, err, oracle.ErrBelowMinimum)
}

func TestMalformedResponseIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("{not json"))
	}))

	_, err := c.Quote(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
	assert.Equal(t, int32(1), hits.Load())

	_, err = c.Convert(context.Background(), 1, 1)
	require.Error(t, err)
	var permanent *backoff.PermanentError
	assert.False(t, errors.As(err, &permanent), "convert must not leak retry wrappers")
	var syntaxErr *json.SyntaxError
	assert.ErrorAs(t, err, &syntaxErr)
}

func TestNewRejectsRelativeURL(t *testing.T) {
	_, err := httporacle.New("/quote")
	assert.Error(t, err)
}
