// Package stream implements Server-Sent Events (SSE) streaming of
// render frames. Clients connect via GET /api/v1/stream/frames and
// receive the composed star state (visibility, screen position,
// brightness) at a fixed step until they disconnect.
//
// SSE message format:
//
//	data: {"type":"frame","t":"2026-08-31T04:00:00Z","visible":true,"x":187.2,"y":402.9,"brightness":0.91,...}\n\n
//
// First message is always metadata:
//
//	data: {"type":"metadata","target":"Polaris","policy":"equatorial","lock_mode":"continuous"}\n\n
//
// Keep-alive comments (:\n\n) are sent every KeepaliveInterval to
// prevent proxy timeouts. Reconnecting clients receive a fresh metadata
// message on each connection.
package stream

import (
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/star/northstar/internal/httputil"
	"github.com/star/northstar/internal/metrics"
	"github.com/star/northstar/internal/render"
)

// Config holds streaming configuration loaded from environment variables.
type Config struct {
	MaxConcurrentPerIP int           // Max concurrent streams per IP (default: 10).
	KeepaliveInterval  time.Duration // Keep-alive ping interval (default: 30s).
	DefaultStep        time.Duration // Frame interval when the client sends none (default: 100ms).
	TrustProxy         bool          // Trust X-Forwarded-For for rate limiting.
}

// Handler manages SSE frame stream connections.
type Handler struct {
	composer *render.Composer
	config   Config
	limiter  *streamLimiter
	logger   *slog.Logger

	// Metadata reported in the first message of every connection.
	TargetName string
	PolicyName string
	LockMode   string
}

// NewHandler creates a new streaming handler.
func NewHandler(composer *render.Composer, config Config, logger *slog.Logger) *Handler {
	if config.DefaultStep <= 0 {
		config.DefaultStep = 100 * time.Millisecond
	}
	return &Handler{
		composer: composer,
		config:   config,
		limiter:  newStreamLimiter(config.MaxConcurrentPerIP),
		logger:   logger,
	}
}

// HandleFrames serves the SSE frame stream.
// GET /api/v1/stream/frames?step_ms=100
func (h *Handler) HandleFrames(w http.ResponseWriter, r *http.Request) {
	step := h.config.DefaultStep
	if v := r.URL.Query().Get("step_ms"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 16 || n > 5000 {
			httputil.WriteError(w, http.StatusBadRequest, "invalid step_ms parameter, must be 16-5000")
			return
		}
		step = time.Duration(n) * time.Millisecond
	}

	// Rate limiting: enforce concurrent stream limit per IP.
	ip := httputil.ClientIP(r, h.config.TrustProxy)
	if !h.limiter.acquire(ip) {
		metrics.IncStreamErrors("rate_limit")
		h.logger.Warn("stream rate limit exceeded",
			"remote_ip", ip,
			"current_count", h.limiter.count(ip),
		)
		w.Header().Set("Retry-After", "30")
		httputil.WriteError(w, http.StatusTooManyRequests, "too many concurrent streams")
		return
	}

	metrics.IncStreamConnections("connect")
	metrics.IncStreamsActive()

	startTime := time.Now()
	h.logger.Info("stream connected",
		"remote_ip", ip,
		"user_agent", r.Header.Get("User-Agent"),
		"step_ms", step.Milliseconds(),
	)

	defer func() {
		h.limiter.release(ip)
		metrics.IncStreamConnections("disconnect")
		metrics.DecStreamsActive()
		h.logger.Info("stream disconnected",
			"remote_ip", ip,
			"duration_seconds", int(time.Since(startTime).Seconds()),
		)
	}()

	// ResponseController reaches Flush and write deadlines through the
	// middleware wrappers, which implement Unwrap.
	rc := http.NewResponseController(w)

	// Set SSE response headers.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering.
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		metrics.IncStreamErrors("flush_unsupported")
		h.logger.Warn("streaming not supported by connection", "remote_ip", ip, "error", err)
		return
	}

	// Clear the server's default WriteTimeout for this connection.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("could not clear write deadline", "error", err)
	}

	c := &client{
		w:      w,
		rc:     rc,
		ip:     ip,
		logger: h.logger,
	}

	// Send jittered retry interval (3-7s) to prevent thundering-herd
	// reconnection storms when the server restarts.
	c.sendRetry(3000 + rand.Intn(4000))

	meta := metadataMessage{
		Type:     "metadata",
		Target:   h.TargetName,
		Policy:   h.PolicyName,
		LockMode: h.LockMode,
	}
	if err := c.sendJSON(meta); err != nil {
		metrics.IncStreamErrors("send_error")
		h.logger.Warn("stream send error (metadata)", "remote_ip", ip, "error", err)
		return
	}

	ticker := time.NewTicker(step)
	defer ticker.Stop()

	keepaliveTicker := time.NewTicker(h.config.KeepaliveInterval)
	defer keepaliveTicker.Stop()

	ctx := r.Context()

	for {
		select {
		case <-ctx.Done():
			return

		case t := <-ticker.C:
			msg := frameMessage{
				Type:  "frame",
				T:     t.UTC().Format(time.RFC3339Nano),
				Frame: h.composer.Frame(t),
			}
			if err := c.sendJSON(msg); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream send error", "remote_ip", ip, "error", err)
				return
			}

			// Reset keepalive since we just sent data.
			keepaliveTicker.Reset(h.config.KeepaliveInterval)

		case <-keepaliveTicker.C:
			if err := c.sendKeepalive(); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream keepalive error", "remote_ip", ip, "error", err)
				return
			}
		}
	}
}

// SSE message payload types.

type metadataMessage struct {
	Type     string `json:"type"`
	Target   string `json:"target"`
	Policy   string `json:"policy"`
	LockMode string `json:"lock_mode"`
}

type frameMessage struct {
	Type string `json:"type"`
	T    string `json:"t"`
	render.Frame
}
