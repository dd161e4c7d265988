package prices

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/backtester/internal/domain"
)

func newTestClient(url string) *HTTPClient {
	c := NewHTTPClient(url, 1000)
	c.retryWait = time.Millisecond
	return c
}

func TestHTTPClient_FetchClosings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/closings/BTC", r.URL.Path)
		w.Write([]byte(`{"symbol":"BTC","closings":[1.5,2.5,3.5]}`))
	}))
	defer srv.Close()

	closings, err := newTestClient(srv.URL+"/").FetchClosings(context.Background(), "btc")
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 2.5, 3.5}, closings)
}

func TestHTTPClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"symbol":"ETH","closings":[10,11]}`))
	}))
	defer srv.Close()

	closings, err := newTestClient(srv.URL).FetchClosings(context.Background(), "ETH")
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 11}, closings)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPClient_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchClosings(context.Background(), "ETH")
	assert.ErrorContains(t, err, "after 3 retries")
	assert.Equal(t, int32(maxRetries+1), calls.Load())
}

func TestHTTPClient_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "unknown symbol", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchClosings(context.Background(), "ZZZ")
	assert.ErrorContains(t, err, "client error 404: unknown symbol")
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPClient_EmptyClosings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol":"X","closings":[]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchClosings(context.Background(), "X")
	assert.ErrorIs(t, err, domain.ErrInsufficientData)
}

func TestHTTPClient_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchClosings(context.Background(), "X")
	assert.ErrorContains(t, err, "decode response")
}
