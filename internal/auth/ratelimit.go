package auth

import (
	"sync"
	"time"
)

const (
	rateLimitWindow = time.Minute
	idleClientTTL   = 5 * time.Minute
)

// clientWindow holds the request timestamps for one client inside the
// sliding window
type clientWindow struct {
	mu       sync.Mutex
	requests []time.Time
	lastSeen time.Time
}

// RateLimiter enforces a per-client sliding one-minute window. It lives on
// the AuthManager; there is no package-level instance.
type RateLimiter struct {
	mu      sync.RWMutex
	clients map[string]*clientWindow
}

// NewRateLimiter creates a rate limiter and starts its idle-client sweeper
func NewRateLimiter() *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*clientWindow),
	}
	go rl.sweepLoop()
	return rl
}

// Allow records one request for the client and reports whether it stays
// within limitPerMinute
func (rl *RateLimiter) Allow(clientID string, limitPerMinute int) bool {
	rl.mu.Lock()
	window, ok := rl.clients[clientID]
	if !ok {
		window = &clientWindow{lastSeen: time.Now()}
		rl.clients[clientID] = window
	}
	rl.mu.Unlock()

	return window.admit(limitPerMinute)
}

func (cw *clientWindow) admit(limitPerMinute int) bool {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-rateLimitWindow)

	// Drop timestamps that fell out of the window, in place
	kept := cw.requests[:0]
	for _, ts := range cw.requests {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	cw.requests = kept

	if len(cw.requests) >= limitPerMinute {
		return false
	}

	cw.requests = append(cw.requests, now)
	cw.lastSeen = now
	return true
}

// sweepLoop periodically drops clients that have gone quiet so the map
// does not grow without bound
func (rl *RateLimiter) sweepLoop() {
	ticker := time.NewTicker(idleClientTTL)
	defer ticker.Stop()

	for range ticker.C {
		rl.sweep()
	}
}

func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-idleClientTTL)
	for clientID, window := range rl.clients {
		window.mu.Lock()
		idle := window.lastSeen.Before(cutoff)
		window.mu.Unlock()
		if idle {
			delete(rl.clients, clientID)
		}
	}
}

// GetStats returns a snapshot of per-client request counts
func (rl *RateLimiter) GetStats() map[string]interface{} {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	clientStats := make([]map[string]interface{}, 0, len(rl.clients))
	for clientID, window := range rl.clients {
		window.mu.Lock()
		clientStats = append(clientStats, map[string]interface{}{
			"client_id":     clientID,
			"request_count": len(window.requests),
			"last_request":  window.lastSeen,
		})
		window.mu.Unlock()
	}

	return map[string]interface{}{
		"total_clients": len(rl.clients),
		"clients":       clientStats,
	}
}
