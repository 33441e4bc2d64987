// Package api assembles the HTTP surface: REST endpoints for the
// observer session, orientation ingest, the signal sequencer, and
// static frontend serving, plus the SSE frame stream.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/star/northstar/internal/astro"
	"github.com/star/northstar/internal/auth"
	"github.com/star/northstar/internal/health"
	"github.com/star/northstar/internal/httputil"
	"github.com/star/northstar/internal/metrics"
	"github.com/star/northstar/internal/orient"
	"github.com/star/northstar/internal/project"
	"github.com/star/northstar/internal/render"
	"github.com/star/northstar/internal/sequencer"
	"github.com/star/northstar/internal/session"
	"github.com/star/northstar/internal/stream"
	"github.com/star/northstar/web"
)

// maxPlayTextLen bounds the text accepted by the play endpoint. The
// timeline grows linearly with input, so an unbounded string would let
// one request schedule hours of timer work.
const maxPlayTextLen = 256

// Deps carries the wired application components the handlers act on.
type Deps struct {
	Composer *render.Composer
	Session  *session.Store
	FixCache *session.FixCache // optional, persists observer fixes
	Orient   *orient.Store
	Player   *sequencer.Player
	Timings  sequencer.Timings
	Lock     *project.Lock
	Stream   *stream.Handler
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	deps       Deps

	certFile string
	keyFile  string
}

// NewServer creates a configured HTTP server. When certFile and keyFile
// are both non-empty, ListenAndServe serves TLS.
func NewServer(addr string, deps Deps, logger *slog.Logger, authCfg auth.Config, certFile, keyFile string) *Server {
	s := &Server{
		logger:   logger,
		deps:     deps,
		certFile: certFile,
		keyFile:  keyFile,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/v1/position", s.handlePosition)
	mux.HandleFunc("GET /api/v1/observer", s.handleGetObserver)
	mux.HandleFunc("PUT /api/v1/observer", s.handlePutObserver)
	mux.HandleFunc("POST /api/v1/orientation", s.handleOrientation)
	mux.HandleFunc("POST /api/v1/signal/play", s.handleSignalPlay)
	mux.HandleFunc("POST /api/v1/signal/stop", s.handleSignalStop)
	mux.HandleFunc("GET /api/v1/signal/status", s.handleSignalStatus)
	mux.HandleFunc("POST /api/v1/recalibrate", s.handleRecalibrate)

	if deps.Stream != nil {
		mux.HandleFunc("GET /api/v1/stream/frames", deps.Stream.HandleFrames)
	}

	// Embedded frontend: index.html at /, plus app.js and styles.css.
	mux.Handle("GET /", http.FileServerFS(web.Content))

	// Build middleware chain: metrics -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(authCfg)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = metrics.Middleware(handler)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the server, with TLS when certificates were configured.
func (s *Server) ListenAndServe() error {
	if s.certFile != "" && s.keyFile != "" {
		return s.httpServer.ListenAndServeTLS(s.certFile, s.keyFile)
	}
	return s.httpServer.ListenAndServe()
}

// positionResponse is the one-shot resolution payload. The projection
// fields are present only when the request carried heading and pitch.
type positionResponse struct {
	Target    string  `json:"target"`
	AltDeg    float64 `json:"alt"`
	AzDeg     float64 `json:"az"`
	LSTHours  float64 `json:"lst_hours"`
	Defaulted bool    `json:"observer_defaulted,omitempty"`

	Visible *bool   `json:"visible,omitempty"`
	X       float64 `json:"x,omitempty"`
	Y       float64 `json:"y,omitempty"`
}

// handlePosition resolves the target direction for the session observer,
// or for lat/lon query overrides, at the given instant. When heading and
// pitch are both supplied the response includes the screen projection.
// GET /api/v1/position?lat=51.5&lon=-0.1&at=2026-08-31T02:00:00Z&heading=0&pitch=40
func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	obs, defaulted := s.deps.Session.Get()
	q := r.URL.Query()

	if v := q.Get("lat"); v != "" {
		lat, err := strconv.ParseFloat(v, 64)
		if err != nil || lat < -90 || lat > 90 {
			httputil.WriteError(w, http.StatusBadRequest, "invalid lat, must be -90..90")
			return
		}
		obs.LatDeg = lat
		defaulted = false
	}
	if v := q.Get("lon"); v != "" {
		lon, err := strconv.ParseFloat(v, 64)
		if err != nil || lon < -180 || lon > 180 {
			httputil.WriteError(w, http.StatusBadRequest, "invalid lon, must be -180..180")
			return
		}
		obs.LonDeg = lon
		defaulted = false
	}

	at := time.Now()
	if v := q.Get("at"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "invalid at, must be RFC 3339")
			return
		}
		at = t
	}

	var heading, pitch *float64
	if v := q.Get("heading"); v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil || n < 0 || n >= 360 {
			httputil.WriteError(w, http.StatusBadRequest, "invalid heading, must be 0..360")
			return
		}
		heading = &n
	}
	if v := q.Get("pitch"); v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "invalid pitch")
			return
		}
		pitch = &n
	}

	tgt := s.deps.Composer.Target
	var h astro.Horizontal
	switch s.deps.Composer.Policy {
	case astro.PolicyHeuristic:
		hd := 0.0
		if heading != nil {
			hd = *heading
		} else if o, ok := s.deps.Orient.Current(); ok {
			hd = o.HeadingDeg
		}
		h = astro.ResolveHeuristic(obs.LatDeg, hd)
		metrics.IncPositionsResolved("heuristic")
	default:
		h = astro.ResolveEquatorial(tgt, obs.LatDeg, obs.LonDeg, at)
		metrics.IncPositionsResolved("equatorial")
	}

	resp := positionResponse{
		Target:    tgt.Name,
		AltDeg:    h.AltDeg,
		AzDeg:     h.AzDeg,
		LSTHours:  astro.LocalSiderealTime(at, obs.LonDeg),
		Defaulted: defaulted,
	}
	if heading != nil && pitch != nil {
		pt, visible := s.deps.Composer.Screen.Project(h, *heading, *pitch)
		resp.Visible = &visible
		if visible {
			resp.X = pt.X
			resp.Y = pt.Y
		}
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

type observerResponse struct {
	session.Observer
	Defaulted bool `json:"defaulted"`
}

// handleGetObserver returns the current fix, flagged when it is the fallback.
func (s *Server) handleGetObserver(w http.ResponseWriter, r *http.Request) {
	obs, defaulted := s.deps.Session.Get()
	httputil.WriteJSON(w, http.StatusOK, observerResponse{Observer: obs, Defaulted: defaulted})
}

// handlePutObserver replaces the session fix wholesale.
// PUT /api/v1/observer  {"lat":51.5,"lon":-0.1,"accuracy_m":12}
func (s *Server) handlePutObserver(w http.ResponseWriter, r *http.Request) {
	var obs session.Observer
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&obs); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if obs.LatDeg < -90 || obs.LatDeg > 90 {
		httputil.WriteError(w, http.StatusBadRequest, "invalid lat, must be -90..90")
		return
	}
	if obs.LonDeg < -180 || obs.LonDeg > 180 {
		httputil.WriteError(w, http.StatusBadRequest, "invalid lon, must be -180..180")
		return
	}

	obs.AcquiredAt = time.Now().UTC()
	s.deps.Session.Set(obs)
	metrics.SetObserverDefaulted(false)

	if s.deps.FixCache != nil {
		if err := s.deps.FixCache.Write(obs); err != nil {
			s.logger.Warn("could not persist observer fix", "error", err)
		}
	}

	s.logger.Info("observer fix updated",
		"lat", obs.LatDeg,
		"lon", obs.LonDeg,
		"accuracy_m", obs.AccuracyM,
	)
	httputil.WriteJSON(w, http.StatusOK, observerResponse{Observer: obs})
}

// orientationPayload mirrors orient.Reading for the wire. Pointer
// fields keep absent axes distinguishable from zero angles.
type orientationPayload struct {
	HeadingDeg         *float64 `json:"heading"`
	PitchDeg           *float64 `json:"pitch"`
	RollDeg            *float64 `json:"roll"`
	CompassAccuracyDeg *float64 `json:"compass_accuracy,omitempty"`
}

// handleOrientation ingests one raw sensor reading.
// POST /api/v1/orientation  {"heading":123.4,"pitch":45.0,"roll":-2.1}
func (s *Server) handleOrientation(w http.ResponseWriter, r *http.Request) {
	var p orientationPayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&p); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if p.HeadingDeg == nil && p.PitchDeg == nil && p.RollDeg == nil {
		httputil.WriteError(w, http.StatusBadRequest, "reading carries no axes")
		return
	}
	if p.HeadingDeg != nil && (*p.HeadingDeg < 0 || *p.HeadingDeg >= 360) {
		httputil.WriteError(w, http.StatusBadRequest, "invalid heading, must be 0..360")
		return
	}

	s.deps.Orient.Apply(orient.Reading{
		HeadingDeg:         p.HeadingDeg,
		PitchDeg:           p.PitchDeg,
		RollDeg:            p.RollDeg,
		CompassAccuracyDeg: p.CompassAccuracyDeg,
		At:                 time.Now(),
	})
	w.WriteHeader(http.StatusNoContent)
}

type playRequest struct {
	Text string `json:"text"`
}

type signalStatusResponse struct {
	Playing    bool  `json:"playing"`
	DurationMS int64 `json:"duration_ms,omitempty"`
}

// handleSignalPlay starts a Morse timeline for the given text,
// replacing any play already in progress.
// POST /api/v1/signal/play  {"text":"SOS"}
func (s *Server) handleSignalPlay(w http.ResponseWriter, r *http.Request) {
	var req playRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Text == "" {
		httputil.WriteError(w, http.StatusBadRequest, "text must not be empty")
		return
	}
	if len(req.Text) > maxPlayTextLen {
		httputil.WriteError(w, http.StatusBadRequest, "text too long, max 256 characters")
		return
	}

	tl := sequencer.Encode(req.Text, s.deps.Timings)
	s.deps.Player.Play(req.Text)
	metrics.IncSequencerPlays()
	metrics.SetSequencerActive(true)

	s.logger.Info("signal play started",
		"text_len", len(req.Text),
		"pulses", len(tl),
		"duration_ms", tl.Total().Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusAccepted, signalStatusResponse{
		Playing:    true,
		DurationMS: tl.Total().Milliseconds(),
	})
}

// handleSignalStop aborts the current play, if any. Idempotent.
func (s *Server) handleSignalStop(w http.ResponseWriter, r *http.Request) {
	s.deps.Player.Stop()
	metrics.SetSequencerActive(false)
	httputil.WriteJSON(w, http.StatusOK, signalStatusResponse{Playing: false})
}

func (s *Server) handleSignalStatus(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, signalStatusResponse{Playing: s.deps.Player.Playing()})
}

// handleRecalibrate drops the held lock position so the next frame
// captures a fresh one. No-op in continuous mode.
func (s *Server) handleRecalibrate(w http.ResponseWriter, r *http.Request) {
	s.deps.Lock.Recalibrate()
	s.logger.Info("lock recalibrated")
	w.WriteHeader(http.StatusNoContent)
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the wrapped writer, which
// the SSE stream needs for Flush and write deadlines.
func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", r.RemoteAddr,
			)
		})
	}
}
