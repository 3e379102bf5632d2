package gate

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func robotsServer(t *testing.T, body string, status int) (host string, fetches *int) {
	t.Helper()
	count := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			t.Errorf("unexpected request path %q", r.URL.Path)
		}
		count++
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parsing server URL: %v", err)
	}
	return u.Host, &count
}

func TestAllowedHonorsDisallow(t *testing.T) {
	host, _ := robotsServer(t, "User-agent: *\nDisallow: /private/\n", http.StatusOK)

	g := New(0, time.Second, "city-events-bot")
	g.scheme = "http"

	if !g.Allowed(host, "/events") {
		t.Error("expected /events to be allowed")
	}
	if g.Allowed(host, "/private/area") {
		t.Error("expected /private/area to be disallowed")
	}
}

func TestAllowedCachesPolicyPerCycle(t *testing.T) {
	host, fetches := robotsServer(t, "User-agent: *\nDisallow:\n", http.StatusOK)

	g := New(0, time.Second, "city-events-bot")
	g.scheme = "http"

	g.Allowed(host, "/a")
	g.Allowed(host, "/b")
	g.Allowed(host, "/c")
	if *fetches != 1 {
		t.Fatalf("expected one policy fetch per cycle, got %d", *fetches)
	}

	g.ResetCycle()
	g.Allowed(host, "/a")
	if *fetches != 2 {
		t.Fatalf("expected a fresh policy fetch after cycle reset, got %d", *fetches)
	}
}

func TestAllowedPermissiveOnMissingPolicy(t *testing.T) {
	host, _ := robotsServer(t, "not found", http.StatusNotFound)

	g := New(0, time.Second, "city-events-bot")
	g.scheme = "http"

	if !g.Allowed(host, "/anything") {
		t.Error("expected missing policy to be permissive")
	}
}

func TestAllowedPermissiveOnFetchFailure(t *testing.T) {
	g := New(0, 100*time.Millisecond, "city-events-bot")
	g.scheme = "http"

	// Nothing listens here; the fetch fails and the gate stays open.
	if !g.Allowed("127.0.0.1:1", "/events") {
		t.Error("expected unreachable policy to be permissive")
	}
}

func TestWaitEnforcesPerHostDelay(t *testing.T) {
	delay := 50 * time.Millisecond
	g := New(delay, time.Second, "city-events-bot")

	start := time.Now()
	g.Wait(context.Background(), "a.example")
	g.Wait(context.Background(), "a.example")
	elapsed := time.Since(start)

	if elapsed < delay {
		t.Errorf("second request waited %v, expected at least %v", elapsed, delay)
	}
}

func TestWaitIsPerHost(t *testing.T) {
	g := New(time.Second, time.Second, "city-events-bot")

	g.Wait(context.Background(), "a.example")

	start := time.Now()
	g.Wait(context.Background(), "b.example")
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("different host waited %v, expected no delay", elapsed)
	}
}

func TestWaitReturnsOnCancel(t *testing.T) {
	g := New(time.Minute, time.Second, "city-events-bot")

	g.Wait(context.Background(), "a.example")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	g.Wait(ctx, "a.example")
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("cancelled wait took %v", elapsed)
	}
}
