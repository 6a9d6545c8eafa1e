package httpfetch

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const minHostIdle = 5 * time.Minute

type hostEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// HostLimiter spaces requests to the same host by a fixed interval.
// Hosts unseen for longer than the idle window are forgotten.
type HostLimiter struct {
	mu        sync.Mutex
	hosts     map[string]*hostEntry
	interval  time.Duration
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewHostLimiter allows one request per interval and host.
func NewHostLimiter(interval time.Duration) *HostLimiter {
	idle := minHostIdle
	if 2*interval > idle {
		idle = 2 * interval
	}
	return &HostLimiter{
		hosts:     make(map[string]*hostEntry),
		interval:  interval,
		idle:      idle,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// Wait blocks until host may be contacted again or ctx ends.
func (h *HostLimiter) Wait(ctx context.Context, host string) error {
	return h.limiterFor(host).Wait(ctx)
}

// Len reports how many hosts are tracked.
func (h *HostLimiter) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.hosts)
}

func (h *HostLimiter) limiterFor(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	if now.Sub(h.lastSweep) > h.idle {
		for key, e := range h.hosts {
			if now.Sub(e.lastSeen) > h.idle {
				delete(h.hosts, key)
			}
		}
		h.lastSweep = now
	}

	if e, ok := h.hosts[host]; ok {
		e.lastSeen = now
		return e.limiter
	}

	limiter := rate.NewLimiter(rate.Every(h.interval), 1)
	h.hosts[host] = &hostEntry{limiter: limiter, lastSeen: now}
	return limiter
}
