package price

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestNativeUsdCachesWithinTTL(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"solana":{"usd":150.25}}`))
	}))
	defer srv.Close()

	o := NewOracle(time.Minute, nil, WithBaseURL(srv.URL))

	v1, ok := o.NativeUsd(context.Background())
	if !ok {
		t.Fatal("first fetch should succeed")
	}
	if v1.String() != "150.25" {
		t.Errorf("price = %s, want 150.25", v1)
	}

	v2, ok := o.NativeUsd(context.Background())
	if !ok || !v2.Equal(v1) {
		t.Errorf("cached read = (%s, %v), want (%s, true)", v2, ok, v1)
	}
	if hits.Load() != 1 {
		t.Errorf("upstream hit %d times, want 1", hits.Load())
	}
}

func TestNativeUsdExpiredEntryRefetches(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"solana":{"usd":160}}`))
	}))
	defer srv.Close()

	o := NewOracle(time.Nanosecond, nil, WithBaseURL(srv.URL))
	o.NativeUsd(context.Background())
	time.Sleep(time.Millisecond)
	o.NativeUsd(context.Background())

	if hits.Load() != 2 {
		t.Errorf("upstream hit %d times, want 2 after expiry", hits.Load())
	}
}

func TestNativeUsdUnavailable(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"upstream 500", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"missing field", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		}},
		{"garbage body", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`not json`))
		}},
		{"non-positive price", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"solana":{"usd":0}}`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			o := NewOracle(time.Minute, nil, WithBaseURL(srv.URL))
			if _, ok := o.NativeUsd(context.Background()); ok {
				t.Error("want ok=false when price is unavailable")
			}
		})
	}
}
