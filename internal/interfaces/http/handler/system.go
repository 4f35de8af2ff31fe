package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/erp/purchasing/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// readinessTimeout bounds all dependency checks of one readiness probe
const readinessTimeout = 3 * time.Second

// DependencyCheck probes one backing service
type DependencyCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// OutboxCounter reports the outbox backlog
type OutboxCounter interface {
	CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error)
}

// SessionCounter reports the number of live vendor sessions
type SessionCounter interface {
	ActiveSessions() int
}

// SystemHandler serves liveness, readiness and build information
type SystemHandler struct {
	BaseHandler
	name      string
	version   string
	startTime time.Time
	checks    []DependencyCheck
	outbox    OutboxCounter
	sessions  SessionCounter
}

// SystemOption configures a SystemHandler
type SystemOption func(*SystemHandler)

// WithDependencyCheck adds a readiness check
func WithDependencyCheck(name string, check func(ctx context.Context) error) SystemOption {
	return func(h *SystemHandler) {
		h.checks = append(h.checks, DependencyCheck{Name: name, Check: check})
	}
}

// WithOutboxCounter reports the outbox backlog in readiness
func WithOutboxCounter(outbox OutboxCounter) SystemOption {
	return func(h *SystemHandler) {
		h.outbox = outbox
	}
}

// WithSessionCounter reports open vendor sessions in readiness
func WithSessionCounter(sessions SessionCounter) SystemOption {
	return func(h *SystemHandler) {
		h.sessions = sessions
	}
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(name, version string, opts ...SystemOption) *SystemHandler {
	h := &SystemHandler{
		name:      name,
		version:   version,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

// ReadinessResponse lists the state of every dependency
type ReadinessResponse struct {
	Status         string            `json:"status"`
	Checks         map[string]string `json:"checks"`
	Outbox         map[string]int64  `json:"outbox,omitempty"`
	ActiveSessions *int              `json:"active_sessions,omitempty"`
}

// GetSystemInfo returns name, version and uptime
// GET /system/info
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	h.Success(c, SystemInfoResponse{
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}

// Live answers as long as the process serves HTTP
// GET /health/live
func (h *SystemHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC().Format(time.RFC3339)})
}

// Ready runs every dependency check and fails with 503 when one is down
// GET /health/ready
func (h *SystemHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	resp := ReadinessResponse{Status: "ok", Checks: make(map[string]string, len(h.checks))}
	for _, check := range h.checks {
		if err := check.Check(ctx); err != nil {
			resp.Status = "unavailable"
			resp.Checks[check.Name] = err.Error()
			continue
		}
		resp.Checks[check.Name] = "ok"
	}

	if h.outbox != nil {
		counts, err := h.outbox.CountByStatus(ctx)
		if err != nil {
			resp.Checks["outbox"] = err.Error()
		} else {
			resp.Outbox = make(map[string]int64, len(counts))
			for status, n := range counts {
				resp.Outbox[string(status)] = n
			}
		}
	}
	if h.sessions != nil {
		n := h.sessions.ActiveSessions()
		resp.ActiveSessions = &n
	}

	if resp.Status != "ok" {
		c.JSON(http.StatusServiceUnavailable, dto.Response{
			Success: false,
			Data:    resp,
			Error: &dto.ErrorInfo{
				Code:      dto.ErrCodeUnavailable,
				Message:   "One or more dependencies are unavailable",
				RequestID: getRequestID(c),
			},
		})
		return
	}
	h.Success(c, resp)
}
