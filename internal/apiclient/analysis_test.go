package apiclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// deadlineRecorder captures the time remaining on each request's context.
type deadlineRecorder struct {
	mu        sync.Mutex
	remaining []time.Duration
}

func (d *deadlineRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	if deadline, ok := req.Context().Deadline(); ok {
		d.mu.Lock()
		d.remaining = append(d.remaining, time.Until(deadline))
		d.mu.Unlock()
	}
	return http.DefaultTransport.RoundTrip(req)
}

func newTestClient(t *testing.T, srv *httptest.Server, rt http.RoundTripper) (*Client, *[]time.Duration) {
	t.Helper()
	opts := Options{BaseURL: srv.URL}
	if rt != nil {
		opts.HTTPClient = &http.Client{Transport: rt}
	}
	c := New(opts, nil, nil)
	var waits []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return c, &waits
}

func TestAnalysisPolicy_TimeoutsAndWaits(t *testing.T) {
	p := DefaultAnalysisPolicy()

	tests := []struct {
		attempt     int
		wantTimeout time.Duration
		wantWait    time.Duration
	}{
		{1, 180 * time.Second, 1 * time.Second},
		{2, 360 * time.Second, 2 * time.Second},
		{3, 540 * time.Second, 3 * time.Second},
		{6, 1080 * time.Second, 5 * time.Second},
		{9, 1620 * time.Second, 5 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.wantTimeout, p.Timeout(tt.attempt), "timeout for attempt %d", tt.attempt)
		assert.Equal(t, tt.wantWait, p.Wait(tt.attempt), "wait for attempt %d", tt.attempt)
	}
}

func TestAnalysisPolicy_ShouldRetry(t *testing.T) {
	narrow := DefaultAnalysisPolicy()
	legacy := DefaultAnalysisPolicy()
	legacy.RetryAll = true

	tests := []struct {
		name   string
		err    error
		narrow bool
		legacy bool
	}{
		{"server 500", &ServerError{Status: 500}, true, true},
		{"bad gateway", &ServerError{Status: 502}, true, true},
		{"request timeout", &ServerError{Status: 408}, true, true},
		{"rate limited", &ServerError{Status: 429}, true, true},
		{"not found", &ServerError{Status: 404}, false, true},
		{"bad request", &ServerError{Status: 400}, false, true},
		{"network", &NetworkError{Op: "x", Err: assert.AnError}, true, true},
		{"timeout", &TimeoutError{Op: "x", Err: context.DeadlineExceeded}, true, true},
		{"canceled", context.Canceled, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.narrow, narrow.ShouldRetry(tt.err))
			assert.Equal(t, tt.legacy, legacy.ShouldRetry(tt.err))
		})
	}
}

func TestAnalyzeDocument_SucceedsOnThirdAttempt(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/pdfs/7/analyze", r.URL.Path)
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"analysis":"大問1は計算問題","pdf_file_size":2048,"pages_converted":4}`))
	}))
	defer srv.Close()

	rec := &deadlineRecorder{}
	c, waits := newTestClient(t, srv, rec)

	result, err := c.AnalyzeDocument(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "大問1は計算問題", result.Analysis)
	assert.Equal(t, 4, result.PagesConverted)

	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []time.Duration{1000 * time.Millisecond, 2000 * time.Millisecond}, *waits)

	require.Len(t, rec.remaining, 3)
	want := []time.Duration{180000 * time.Millisecond, 360000 * time.Millisecond, 540000 * time.Millisecond}
	for i, got := range rec.remaining {
		assert.InDelta(t, float64(want[i]), float64(got), float64(2*time.Second), "timeout of attempt %d", i+1)
		if i > 0 {
			assert.Greater(t, got, rec.remaining[i-1])
		}
	}
}

func TestAnalyzeDocument_ExhaustedServerErrorCarriesBackendMessage(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"boom"}`))
	}))
	defer srv.Close()

	c, waits := newTestClient(t, srv, nil)

	result, err := c.AnalyzeDocument(context.Background(), 1)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, int32(3), calls.Load())
	assert.Len(t, *waits, 2)
	assert.Contains(t, err.Error(), "boom")

	var ae *AnalysisError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, AnalysisServer, ae.Kind)
	assert.Equal(t, 500, ae.Status)
	assert.Equal(t, 3, ae.Attempts)
}

func TestAnalyzeDocument_NotFoundFailsFast(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"PDFが見つかりません"}`))
	}))
	defer srv.Close()

	c, waits := newTestClient(t, srv, nil)

	_, err := c.AnalyzeDocument(context.Background(), 99)
	var ae *AnalysisError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, AnalysisNotFound, ae.Kind)
	assert.Equal(t, 1, ae.Attempts)
	assert.Equal(t, int32(1), calls.Load())
	assert.Empty(t, *waits)
}

func TestAnalyzeDocument_RetryAllRetriesNotFound(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := DefaultAnalysisPolicy()
	p.RetryAll = true
	c := New(Options{BaseURL: srv.URL, Analysis: p}, nil, nil)
	c.sleep = func(context.Context, time.Duration) error { return nil }

	_, err := c.AnalyzeDocument(context.Background(), 99)
	var ae *AnalysisError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, AnalysisNotFound, ae.Kind)
	assert.Equal(t, int32(3), calls.Load())
}

func TestAnalyzeDocument_LocalTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	p := DefaultAnalysisPolicy()
	p.MaxAttempts = 2
	p.BaseTimeout = 20 * time.Millisecond
	c := New(Options{BaseURL: srv.URL, Analysis: p}, nil, nil)
	c.sleep = func(context.Context, time.Duration) error { return nil }

	_, err := c.AnalyzeDocument(context.Background(), 3)
	var ae *AnalysisError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, AnalysisTimeout, ae.Kind)
	assert.Equal(t, 2, ae.Attempts)
}

func TestAnalyzeDocument_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(Options{BaseURL: url}, nil, nil)
	c.sleep = func(context.Context, time.Duration) error { return nil }

	_, err := c.AnalyzeDocument(context.Background(), 3)
	var ae *AnalysisError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, AnalysisNetwork, ae.Kind)
	assert.Equal(t, 3, ae.Attempts)
}

func TestAnalyzeDocument_CanceledStopsRetrying(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := New(Options{BaseURL: srv.URL}, nil, nil)
	c.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := c.AnalyzeDocument(ctx, 5)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), calls.Load())
}

func TestAnalyzeDocument_UnsuccessfulResultIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"error":"PDFファイルの画像変換に失敗しました。"}`))
	}))
	defer srv.Close()

	c, waits := newTestClient(t, srv, nil)

	result, err := c.AnalyzeDocument(context.Background(), 2)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "PDFファイルの画像変換に失敗しました。", result.Error)
	assert.Empty(t, *waits)
}
