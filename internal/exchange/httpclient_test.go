package exchange

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestSignHMACSHA512IsDeterministic(t *testing.T) {
	h := &HTTPClient{SecretKey: "shh"}
	a := h.SignHMACSHA512("payload")
	b := h.SignHMACSHA512("payload")
	if a != b {
		t.Errorf("SignHMACSHA512 is not deterministic: %q != %q", a, b)
	}
	if a == h.SignHMACSHA512("different payload") {
		t.Errorf("SignHMACSHA512 produced the same digest for different payloads")
	}
}

func TestSignHMACSHA256IsDeterministic(t *testing.T) {
	h := &HTTPClient{SecretKey: "shh"}
	a := h.SignHMACSHA256("payload")
	b := h.SignHMACSHA256("payload")
	if a != b {
		t.Errorf("SignHMACSHA256 is not deterministic: %q != %q", a, b)
	}
}

func TestSignHMACDiffersByAlgorithm(t *testing.T) {
	h := &HTTPClient{SecretKey: "shh"}
	if h.SignHMACSHA512("payload") == h.SignHMACSHA256("payload") {
		t.Errorf("SHA512 and SHA256 signatures should not collide")
	}
}

func TestServerTimeOrLocalPrefersServerTime(t *testing.T) {
	server := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	got := ServerTimeOrLocal(server)
	if !got.Equal(server) {
		t.Errorf("ServerTimeOrLocal(%v) = %v, want the server time unchanged", server, got)
	}
}

func TestServerTimeOrLocalFallsBackWhenZero(t *testing.T) {
	before := time.Now().UTC()
	got := ServerTimeOrLocal(time.Time{})
	after := time.Now().UTC()

	if got.Before(before) || got.After(after) {
		t.Errorf("ServerTimeOrLocal(zero) = %v, want a time between %v and %v", got, before, after)
	}
}

func TestDoSurfacesRedirectWithLocation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "/elsewhere")
		w.WriteHeader(http.StatusFound)
	}))
	defer srv.Close()

	h := NewHTTPClient(srv.URL)
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/original", nil)

	_, err := h.Do(context.Background(), req)
	kind, ok := KindOf(err)
	if !ok || kind != KindRedirect {
		t.Fatalf("Do kind = (%v, %v), want KindRedirect", kind, ok)
	}
	var exErr *Error
	if !errors.As(err, &exErr) || exErr.Location != "/elsewhere" {
		t.Errorf("Location = %q, want /elsewhere", exErr.Location)
	}
}

func TestRetryFollowsLocationAndSucceeds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/new" {
			w.Write([]byte("ok"))
			return
		}
		w.Header().Set("Location", "/new")
		w.WriteHeader(http.StatusMovedPermanently)
	}))
	defer srv.Close()

	h := NewHTTPClient(srv.URL)
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/old", nil)

	body, err := h.Retry(context.Background(), req, "/new")
	if err != nil {
		t.Fatalf("Retry returned error: %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("body = %q, want ok", body)
	}
}

func TestRetryEscalatesOnSecondRedirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "/somewhere-else")
		w.WriteHeader(http.StatusFound)
	}))
	defer srv.Close()

	h := NewHTTPClient(srv.URL)
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/old", nil)

	_, err := h.Retry(context.Background(), req, "/new")
	kind, ok := KindOf(err)
	if !ok || kind != KindRedirect {
		t.Errorf("Retry kind on a second redirect = (%v, %v), want KindRedirect (not followed again)", kind, ok)
	}
}

func TestDoFollowingRedirectSucceedsAfterOneRedirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/final" {
			w.Write([]byte("done"))
			return
		}
		w.Header().Set("Location", "/final")
		w.WriteHeader(http.StatusTemporaryRedirect)
	}))
	defer srv.Close()

	h := NewHTTPClient(srv.URL)
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/start", nil)

	body, err := h.DoFollowingRedirect(context.Background(), req)
	if err != nil {
		t.Fatalf("DoFollowingRedirect returned error: %v", err)
	}
	if string(body) != "done" {
		t.Errorf("body = %q, want done", body)
	}
}

func TestDoFollowingRedirectEscalatesAndStopsAfterTwoRequests(t *testing.T) {
	var requests int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&requests, 1)
		w.Header().Set("Location", "/loop")
		w.WriteHeader(http.StatusFound)
	}))
	defer srv.Close()

	h := NewHTTPClient(srv.URL)
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/loop", nil)

	_, err := h.DoFollowingRedirect(context.Background(), req)
	kind, ok := KindOf(err)
	if !ok || kind != KindRedirect {
		t.Errorf("kind = (%v, %v), want KindRedirect after the one permitted retry also redirects", kind, ok)
	}
	if got := atomic.LoadInt64(&requests); got != 2 {
		t.Errorf("server received %d requests, want exactly 2 (the original attempt plus one retry)", got)
	}
}
