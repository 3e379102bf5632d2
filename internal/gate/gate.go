package gate

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/temoto/robotstxt"

	"github.com/citypulse/city-events/internal/logger"
)

// Gate applies per-host crawl policy and rate limiting. A nil robots entry
// in the cache means the policy could not be fetched and the host is
// treated as permissive for the rest of the cycle.
type Gate struct {
	mu        sync.Mutex
	delay     time.Duration
	userAgent string
	scheme    string
	client    *http.Client
	robots    map[string]*robotstxt.RobotsData
	nextSlot  map[string]time.Time
}

// New creates a Gate enforcing the given minimum inter-request delay per
// host. The timeout bounds robots.txt policy fetches.
func New(delay, timeout time.Duration, userAgent string) *Gate {
	return &Gate{
		delay:     delay,
		userAgent: userAgent,
		scheme:    "https",
		client:    &http.Client{Timeout: timeout},
		robots:    make(map[string]*robotstxt.RobotsData),
		nextSlot:  make(map[string]time.Time),
	}
}

// ResetCycle drops the cached robots policies so the next request per host
// fetches a fresh one. Called at the start of every ingestion cycle; the
// per-host delay clock is not reset.
func (g *Gate) ResetCycle() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.robots = make(map[string]*robotstxt.RobotsData)
}

// Allowed reports whether the host's crawling policy permits fetching the
// given path. The policy is fetched at most once per host per cycle; if the
// fetch itself fails the gate defaults to permissive and logs a warning.
func (g *Gate) Allowed(host, path string) bool {
	data, cached := g.cachedRobots(host)
	if !cached {
		data = g.fetchRobots(host)
		g.mu.Lock()
		g.robots[host] = data
		g.mu.Unlock()
	}
	if data == nil {
		return true
	}
	return data.FindGroup(g.userAgent).Test(path)
}

func (g *Gate) cachedRobots(host string) (*robotstxt.RobotsData, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	data, ok := g.robots[host]
	return data, ok
}

// fetchRobots retrieves and parses https://host/robots.txt. Any failure
// (network, parse) yields nil, i.e. permissive. A 404 is the normal
// "no policy" case and is not warned about; robotstxt treats it as
// allow-all.
func (g *Gate) fetchRobots(host string) *robotstxt.RobotsData {
	url := fmt.Sprintf("%s://%s/robots.txt", g.scheme, host)
	resp, err := g.client.Get(url)
	if err != nil {
		logger.Warn("robots.txt fetch failed, proceeding permissively", logger.Fields{
			"host": host,
		})
		return nil
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		logger.Warn("robots.txt parse failed, proceeding permissively", logger.Fields{
			"host":   host,
			"status": resp.StatusCode,
		})
		return nil
	}
	return data
}

// Wait blocks until the minimum inter-request delay for the host has
// elapsed since the previous request, then claims the next slot. Slots are
// reserved under the lock, so concurrent callers hitting the same host are
// serialized delay-apart in claim order. Returns early if ctx is cancelled.
func (g *Gate) Wait(ctx context.Context, host string) {
	now := time.Now()

	g.mu.Lock()
	slot := g.nextSlot[host]
	if slot.Before(now) {
		slot = now
	}
	g.nextSlot[host] = slot.Add(g.delay)
	g.mu.Unlock()

	wait := time.Until(slot)
	if wait <= 0 {
		return
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
