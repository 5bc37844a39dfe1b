package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stayline/bookingsync/internal/auth"
	"github.com/stayline/bookingsync/internal/model"
)

func tokenStore(token string) *auth.MemoryStore {
	s := auth.NewMemoryStore()
	if token != "" {
		s.Set(auth.AccessTokenKey, token)
	}
	return s
}

func testRequest() model.BookingRequest {
	in := time.Date(2026, 7, 1, 15, 0, 0, 0, time.UTC)
	return model.BookingRequest{
		PropertyID: "P-1",
		RoomID:     "R-12",
		CheckIn:    in,
		CheckOut:   in.Add(72 * time.Hour),
		Guests:     2,
	}
}

// TestNewClient tests client construction with various options.
func TestNewClient(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		c := NewClient("https://api.example.com", nil)

		if c.baseURL != "https://api.example.com" {
			t.Errorf("baseURL = %q, want %q", c.baseURL, "https://api.example.com")
		}
		if c.httpClient.Timeout != 30*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 30*time.Second)
		}
		if c.maxRetries != 3 {
			t.Errorf("maxRetries = %d, want %d", c.maxRetries, 3)
		}
		if c.retryBackoff != time.Second {
			t.Errorf("retryBackoff = %v, want %v", c.retryBackoff, time.Second)
		}
		if c.limiter != nil {
			t.Error("limiter should be nil by default")
		}
		if c.logger == nil {
			t.Error("logger should not be nil")
		}
	})

	t.Run("with options", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		hc := &http.Client{Timeout: 10 * time.Second}
		c := NewClient("https://api.example.com", nil,
			WithHTTPClient(hc),
			WithTimeout(15*time.Second),
			WithRetries(10, 500*time.Millisecond),
			WithRateLimit(5, 2),
			WithLogger(logger),
		)
		if c.httpClient != hc {
			t.Error("custom HTTP client not set")
		}
		if c.httpClient.Timeout != 15*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 15*time.Second)
		}
		if c.maxRetries != 10 || c.retryBackoff != 500*time.Millisecond {
			t.Errorf("retries = %d/%v, want 10/500ms", c.maxRetries, c.retryBackoff)
		}
		if c.limiter == nil || c.limiter.Burst() != 2 {
			t.Error("rate limiter not configured")
		}
		if c.logger != logger {
			t.Error("logger not set correctly")
		}
	})

	t.Run("zero rate disables limiter", func(t *testing.T) {
		c := NewClient("https://api.example.com", nil, WithRateLimit(5, 1), WithRateLimit(0, 0))
		if c.limiter != nil {
			t.Error("limiter should be nil")
		}
	})
}

// TestAPIError tests the APIError type.
func TestAPIError(t *testing.T) {
	err := &APIError{StatusCode: 404, Message: "Not Found"}
	if err.Error() != "booking api error 404: Not Found" {
		t.Errorf("Error() = %q", err.Error())
	}

	tests := []struct {
		code      int
		retryable bool
		conflict  bool
	}{
		{500, true, false},
		{503, true, false},
		{429, true, false},
		{409, false, true},
		{400, false, false},
		{401, false, false},
		{404, false, false},
	}
	for _, tt := range tests {
		e := &APIError{StatusCode: tt.code}
		if got := e.IsRetryable(); got != tt.retryable {
			t.Errorf("IsRetryable() for %d = %v, want %v", tt.code, got, tt.retryable)
		}
		if got := e.IsConflict(); got != tt.conflict {
			t.Errorf("IsConflict() for %d = %v, want %v", tt.code, got, tt.conflict)
		}
	}

	wrapped := fmt.Errorf("create booking: %w", &APIError{StatusCode: 409})
	if !IsConflict(wrapped) {
		t.Error("IsConflict(wrapped 409) = false, want true")
	}
	if IsConflict(errors.New("boom")) {
		t.Error("IsConflict(plain error) = true, want false")
	}
	if IsConflict(nil) {
		t.Error("IsConflict(nil) = true, want false")
	}
}

func TestCreateBooking(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/bookings" {
				t.Errorf("request = %s %s, want POST /bookings", r.Method, r.URL.Path)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
				t.Errorf("Authorization = %q, want %q", got, "Bearer tok-1")
			}
			if got := r.Header.Get("Idempotency-Key"); got != "idem-1" {
				t.Errorf("Idempotency-Key = %q, want idem-1", got)
			}
			if got := r.Header.Get("Content-Type"); got != "application/json" {
				t.Errorf("Content-Type = %q", got)
			}

			var req model.BookingRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode body: %v", err)
			}
			if req.RoomID != "R-12" || req.Guests != 2 {
				t.Errorf("unexpected body: %+v", req)
			}

			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id":"B-1","status":"pending"}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, tokenStore("tok-1"))
		res, err := c.CreateBooking(context.Background(), testRequest(), "idem-1")
		if err != nil {
			t.Fatalf("CreateBooking failed: %v", err)
		}
		if res.BookingID != "B-1" || res.Status != "pending" {
			t.Errorf("result = %+v", res)
		}
	})

	t.Run("legacy booking_id field", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"booking_id":"B-7"}`))
		}))
		defer server.Close()

		res, err := NewClient(server.URL, nil).CreateBooking(context.Background(), testRequest(), "")
		if err != nil {
			t.Fatalf("CreateBooking failed: %v", err)
		}
		if res.BookingID != "B-7" {
			t.Errorf("BookingID = %q, want B-7", res.BookingID)
		}
	})

	t.Run("missing id", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		_, err := NewClient(server.URL, nil).CreateBooking(context.Background(), testRequest(), "")
		if !errors.Is(err, ErrMissingBookingID) {
			t.Errorf("err = %v, want ErrMissingBookingID", err)
		}
	})

	t.Run("conflict is not retried", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"message":"room no longer available"}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, nil, WithRetries(3, time.Millisecond))
		_, err := c.CreateBooking(context.Background(), testRequest(), "")
		if !IsConflict(err) {
			t.Fatalf("err = %v, want conflict", err)
		}
		if !strings.Contains(err.Error(), "room no longer available") {
			t.Errorf("error %q should carry server message", err)
		}
		if got := calls.Load(); got != 1 {
			t.Errorf("calls = %d, want 1", got)
		}
	})

	t.Run("server error is not retried", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		c := NewClient(server.URL, nil, WithRetries(3, time.Millisecond))
		_, err := c.CreateBooking(context.Background(), testRequest(), "")
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != 503 {
			t.Fatalf("err = %v, want 503 APIError", err)
		}
		if got := calls.Load(); got != 1 {
			t.Errorf("calls = %d, want 1", got)
		}
	})
}

func TestAuthorization(t *testing.T) {
	t.Run("no credential sends no header", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "" {
				t.Errorf("Authorization should be empty, got %q", got)
			}
			w.Write([]byte(`{"id":"B-1"}`))
		}))
		defer server.Close()

		_, err := NewClient(server.URL, tokenStore("")).CreateBooking(context.Background(), testRequest(), "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestCredentialKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer alt-tok" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer alt-tok")
		}
		w.Write([]byte(`{"id":"B-1"}`))
	}))
	defer server.Close()

	store := auth.NewMemoryStore()
	store.Set("session", "alt-tok")
	c := NewClient(server.URL, store, WithCredentialKey("session"))
	if _, err := c.CreateBooking(context.Background(), testRequest(), ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGetBooking(t *testing.T) {
	t.Run("wrapped", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/bookings/B-1" {
				t.Errorf("path = %q, want /bookings/B-1", r.URL.Path)
			}
			w.Write([]byte(`{"booking":{"id":"B-1","status":"confirmed","payment_id":"P-1"}}`))
		}))
		defer server.Close()

		b, err := NewClient(server.URL, nil).GetBooking(context.Background(), "B-1")
		if err != nil {
			t.Fatalf("GetBooking failed: %v", err)
		}
		if b.ID != "B-1" || b.Status != "confirmed" || b.PaymentID != "P-1" {
			t.Errorf("booking = %+v", b)
		}
	})

	t.Run("bare", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"id":"B-2","status":"pending"}`))
		}))
		defer server.Close()

		b, err := NewClient(server.URL, nil).GetBooking(context.Background(), "B-2")
		if err != nil {
			t.Fatalf("GetBooking failed: %v", err)
		}
		if b.ID != "B-2" || b.Status != "pending" {
			t.Errorf("booking = %+v", b)
		}
	})

	t.Run("retries transient errors", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.Write([]byte(`{"id":"B-3","status":"failed"}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, nil, WithRetries(3, time.Millisecond))
		b, err := c.GetBooking(context.Background(), "B-3")
		if err != nil {
			t.Fatalf("GetBooking failed: %v", err)
		}
		if b.Status != "failed" {
			t.Errorf("Status = %q, want failed", b.Status)
		}
		if got := calls.Load(); got != 3 {
			t.Errorf("calls = %d, want 3", got)
		}
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		c := NewClient(server.URL, nil, WithRetries(2, time.Millisecond))
		_, err := c.GetBooking(context.Background(), "B-4")
		if err == nil || !strings.Contains(err.Error(), "max retries exceeded") {
			t.Fatalf("err = %v, want max retries exceeded", err)
		}
		if got := calls.Load(); got != 3 {
			t.Errorf("calls = %d, want 3", got)
		}
	})

	t.Run("not found is permanent", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		c := NewClient(server.URL, nil, WithRetries(3, time.Millisecond))
		_, err := c.GetBooking(context.Background(), "B-5")
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != 404 {
			t.Fatalf("err = %v, want 404", err)
		}
		if got := calls.Load(); got != 1 {
			t.Errorf("calls = %d, want 1", got)
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(100 * time.Millisecond)
			w.Write([]byte(`{"id":"B-6"}`))
		}))
		defer server.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err := NewClient(server.URL, nil, WithRetries(0, time.Millisecond)).GetBooking(ctx, "B-6")
		if err == nil {
			t.Fatal("expected error from cancelled context")
		}
	})
}
