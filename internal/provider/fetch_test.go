package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewClient_Options(t *testing.T) {
	c := NewClient("http://localhost:9380",
		WithTimeout(5*time.Second),
		WithRetries(2, 10*time.Millisecond),
		WithPageSize(100),
	)

	if c.baseURL != "http://localhost:9380" {
		t.Errorf("baseURL = %q", c.baseURL)
	}
	if c.httpClient.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", c.httpClient.Timeout)
	}
	if c.maxRetries != 2 {
		t.Errorf("maxRetries = %d, want 2", c.maxRetries)
	}
	if c.pageSize != 100 {
		t.Errorf("pageSize = %d, want 100", c.pageSize)
	}
}

func TestFetch_SinglePage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("table"); got != "daily_raw" {
			t.Errorf("table = %q, want daily_raw", got)
		}
		if got := r.URL.Query().Get("start_date"); got != "20240315" {
			t.Errorf("start_date = %q, want 20240315", got)
		}
		json.NewEncoder(w).Encode(fetchResponse{Rows: []RawRow{
			{"ts_code": "600000.SH", "close": 10.5},
			{"ts_code": "000001.SZ", "close": 9.8},
		}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithPageSize(100))
	rows, err := c.Fetch(context.Background(), "daily_raw", "20240315", "20240315", nil)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if rows[0]["ts_code"] != "600000.SH" {
		t.Errorf("rows[0].ts_code = %v", rows[0]["ts_code"])
	}
}

func TestFetch_Pages(t *testing.T) {
	const pageSize = 3
	total := 7

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit != pageSize {
			t.Errorf("limit = %d, want %d", limit, pageSize)
		}
		var rows []RawRow
		for i := offset; i < total && i < offset+limit; i++ {
			rows = append(rows, RawRow{"ts_code": fmt.Sprintf("SEC%03d", i)})
		}
		json.NewEncoder(w).Encode(fetchResponse{Rows: rows})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithPageSize(pageSize))
	rows, err := c.Fetch(context.Background(), "share_float", "20240101", "20240315", nil)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(rows) != total {
		t.Errorf("len(rows) = %d, want %d", len(rows), total)
	}
}

func TestFetch_RetriesTransientErrors(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(fetchResponse{Rows: []RawRow{{"trade_date": "20240315"}}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithRetries(3, time.Millisecond), WithPageSize(100))
	rows, err := c.Fetch(context.Background(), "moneyflow_hsgt", "20240315", "20240315", nil)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("len(rows) = %d, want 1", len(rows))
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server calls = %d, want 3", got)
	}
}

func TestFetch_PermanentErrorNotRetried(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithRetries(3, time.Millisecond))
	_, err := c.Fetch(context.Background(), "no_such_table", "", "", nil)
	if err == nil {
		t.Fatal("Fetch() expected error")
	}
	if !IsPermanent(err) {
		t.Errorf("IsPermanent(%v) = false, want true", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server calls = %d, want 1 (no retries on 4xx)", got)
	}
}

func TestFetch_ExhaustedRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithRetries(2, time.Millisecond))
	_, err := c.Fetch(context.Background(), "daily_raw", "", "", nil)
	if err == nil {
		t.Fatal("Fetch() expected error")
	}
	var pe *Error
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want wrapped *Error", err)
	}
	if !pe.IsRetryable() {
		t.Error("429 should be retryable")
	}
}
