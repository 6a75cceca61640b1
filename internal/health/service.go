package health

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"

	"mediadl/internal/logger"
)

// Pinger is any dependency that can report its own health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check requests
type HealthHandler struct {
	log        *logger.Logger
	components map[string]Pinger
	startTime  time.Time
	isReady    atomic.Bool
}

// NewHealthHandler creates a new instance of HealthHandler
func NewHealthHandler(components map[string]Pinger) *HealthHandler {
	return &HealthHandler{
		log:        logger.New("HealthCheck"),
		components: components,
		startTime:  time.Now(),
	}
}

// SetReady marks the application as ready to receive traffic
func (h *HealthHandler) SetReady() {
	h.isReady.Store(true)
	h.log.LogSuccessf("Application marked as ready for traffic after %v", time.Since(h.startTime))
}

// ComponentStatus holds the status of a dependent component
type ComponentStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type Response struct {
	Status        string                     `json:"status"`
	Message       string                     `json:"message"`
	Timestamp     string                     `json:"timestamp"`
	Ready         bool                       `json:"ready"`
	UptimeSeconds int64                      `json:"uptime_seconds"`
	Components    map[string]ComponentStatus `json:"components"`
}

// HandleHealth is the liveness check. It answers healthy while the process is
// serving; dependency failures are reported per component without failing the
// check.
func (h *HealthHandler) HandleHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	statuses := make(map[string]ComponentStatus, len(h.components))
	var wg sync.WaitGroup
	var mu sync.Mutex

	for name, p := range h.components {
		wg.Add(1)
		go func(name string, p Pinger) {
			defer wg.Done()
			st := ComponentStatus{Status: "ok"}
			if err := p.Ping(ctx); err != nil {
				st = ComponentStatus{Status: "error", Error: err.Error()}
				h.log.LogWarnf("Health check failed for %s: %v", name, err)
			}
			mu.Lock()
			defer mu.Unlock()
			statuses[name] = st
		}(name, p)
	}
	wg.Wait()

	return c.Status(http.StatusOK).JSON(Response{
		Status:        "healthy",
		Message:       "Server is running",
		Timestamp:     time.Now().UTC().Format(time.RFC3339Nano),
		Ready:         h.isReady.Load(),
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Components:    statuses,
	})
}
