package healthchecker

import (
	"context"
	"time"

	"github.com/windowgate/slidinglimit/backends"
)

// Checker monitors backend health and reports transitions to the caller,
// which rpc.Server uses to flip the readiness flag Health() reports.
type Checker struct {
	backend     backends.Backend
	config      Config
	stopChan    chan bool
	onHealthy   func() // Callback when a probe succeeds
	onUnhealthy func() // Callback when a probe fails
}

// New creates a new health checker with the given backend and configuration.
// Either callback may be nil.
func New(backend backends.Backend, config Config, onHealthy, onUnhealthy func()) *Checker {
	return &Checker{
		backend:     backend,
		config:      config,
		stopChan:    make(chan bool, 1),
		onHealthy:   onHealthy,
		onUnhealthy: onUnhealthy,
	}
}

// Start begins background health monitoring
func (h *Checker) Start() {
	if h.config.Interval <= 0 {
		// Health checking disabled
		return
	}

	go func() {
		ticker := time.NewTicker(h.config.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				h.checkHealth()
			case <-h.stopChan:
				return
			}
		}
	}()
}

// Stop stops health monitoring
func (h *Checker) Stop() {
	select {
	case h.stopChan <- true:
	default:
		// A stop request is already pending
	}
}

// checkHealth tests backend connectivity
func (h *Checker) checkHealth() {
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	testKey := h.config.TestKey
	if testKey == "" {
		testKey = "health-check-key"
	}

	// Probe with a throwaway admission against a limit of 1, then clean it
	// up immediately; this exercises the same atomic path production
	// traffic uses instead of a side-channel ping.
	_, err := h.backend.EvalSlidingWindow(ctx, testKey, "healthcheck", 1, int64(h.config.Timeout.Milliseconds()), 0)
	if err != nil {
		if h.onUnhealthy != nil {
			h.onUnhealthy()
		}
		return
	}
	_ = h.backend.Delete(ctx, testKey)

	if h.onHealthy != nil {
		h.onHealthy()
	}
}
