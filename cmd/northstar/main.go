package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/star/northstar/internal/api"
	"github.com/star/northstar/internal/astro"
	"github.com/star/northstar/internal/auth"
	"github.com/star/northstar/internal/metrics"
	"github.com/star/northstar/internal/orient"
	"github.com/star/northstar/internal/project"
	"github.com/star/northstar/internal/render"
	"github.com/star/northstar/internal/sequencer"
	"github.com/star/northstar/internal/session"
	"github.com/star/northstar/internal/stream"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	addr := os.Getenv("NORTHSTAR_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	authCfg, err := loadAuthConfig(logger)
	if err != nil {
		logger.Error("invalid auth configuration", "error", err)
		os.Exit(1)
	}

	certFile, keyFile := loadTLSConfig(logger)

	sessCfg := loadSessionConfig(logger)
	sess := session.NewStore()
	fixCache := session.NewFixCache(sessCfg.CacheDir, sessCfg.MaxFiles)

	// Attempt to restore the last observer fix on startup.
	if obs, err := fixCache.LoadLatest(); err != nil {
		logger.Info("no cached observer fix, starting on the default observer", "error", err)
		metrics.SetObserverDefaulted(true)
	} else {
		sess.Set(obs)
		metrics.SetObserverDefaulted(false)
		logger.Info("restored observer fix from cache",
			"lat", obs.LatDeg,
			"lon", obs.LonDeg,
			"acquired_at", obs.AcquiredAt.Format(time.RFC3339),
		)
	}

	viewCfg := loadViewConfig(logger)
	orientStore := orient.NewStore(orient.NewFilter(viewCfg.Alpha))
	lock := project.NewLock(viewCfg.LockMode)

	timings := loadTimings(logger)
	bright := render.NewBrightness()
	player := sequencer.NewPlayer(sequencer.RealClock(), timings,
		func(on bool) {
			if on {
				bright.Set(render.SignalOn)
			} else {
				bright.Set(render.SignalOff)
			}
		},
		func() {
			bright.Set(render.IdleLevel)
			metrics.SetSequencerActive(false)
			logger.Info("signal play finished")
		},
	)

	composer := &render.Composer{
		Target:      astro.Polaris,
		Policy:      viewCfg.Policy,
		Session:     sess,
		Orient:      orientStore,
		Lock:        lock,
		Screen:      viewCfg.Screen,
		Twinkle:     render.NewTwinkle(time.Now().UnixNano()),
		Player:      player,
		Signal:      bright,
		Declination: viewCfg.Declination,
	}

	streamCfg := loadStreamConfig(logger)
	streamHandler := stream.NewHandler(composer, streamCfg, logger)
	streamHandler.TargetName = astro.Polaris.Name
	streamHandler.PolicyName = policyName(viewCfg.Policy)
	streamHandler.LockMode = lockModeName(viewCfg.LockMode)

	srv := api.NewServer(addr, api.Deps{
		Composer: composer,
		Session:  sess,
		FixCache: fixCache,
		Orient:   orientStore,
		Player:   player,
		Timings:  timings,
		Lock:     lock,
		Stream:   streamHandler,
	}, logger, authCfg, certFile, keyFile)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting server",
			"addr", addr,
			"tls", certFile != "",
			"auth_enabled", authCfg.Enabled,
			"policy", policyName(viewCfg.Policy),
			"lock_mode", lockModeName(viewCfg.LockMode),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	player.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func policyName(p astro.Policy) string {
	if p == astro.PolicyHeuristic {
		return "heuristic"
	}
	return "equatorial"
}

func lockModeName(m project.LockMode) string {
	if m == project.LockOnFirstFix {
		return "locked"
	}
	return "continuous"
}

func loadAuthConfig(logger *slog.Logger) (auth.Config, error) {
	cfg := auth.Config{}

	enabledStr := os.Getenv("NORTHSTAR_AUTH_ENABLED")
	if enabledStr != "" {
		enabled, err := strconv.ParseBool(enabledStr)
		if err != nil {
			return cfg, errors.New("NORTHSTAR_AUTH_ENABLED must be a boolean value (true/false/1/0)")
		}
		cfg.Enabled = enabled
	}

	if cfg.Enabled {
		cfg.Token = os.Getenv("NORTHSTAR_AUTH_TOKEN")
		if cfg.Token == "" {
			return cfg, errors.New("NORTHSTAR_AUTH_TOKEN is required when auth is enabled")
		}
		logger.Info("auth enabled")
	}

	return cfg, nil
}

// loadTLSConfig returns the certificate pair, or empty strings for
// plain HTTP. Device orientation events require a secure context, so
// production deployments terminate TLS here or at a proxy.
func loadTLSConfig(logger *slog.Logger) (certFile, keyFile string) {
	certFile = os.Getenv("NORTHSTAR_TLS_CERT")
	keyFile = os.Getenv("NORTHSTAR_TLS_KEY")

	if (certFile == "") != (keyFile == "") {
		logger.Warn("NORTHSTAR_TLS_CERT and NORTHSTAR_TLS_KEY must both be set, serving plain HTTP")
		return "", ""
	}
	if certFile != "" {
		logger.Info("TLS enabled", "cert", certFile)
	}
	return certFile, keyFile
}

type sessionConfig struct {
	CacheDir string
	MaxFiles int
}

func loadSessionConfig(logger *slog.Logger) sessionConfig {
	cfg := sessionConfig{
		CacheDir: "/tmp/northstar/fixes",
		MaxFiles: 5,
	}

	if v := os.Getenv("NORTHSTAR_FIX_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}

	if v := os.Getenv("NORTHSTAR_FIX_CACHE_MAX_FILES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid NORTHSTAR_FIX_CACHE_MAX_FILES value, using default", "value", v, "default", 5)
		} else {
			cfg.MaxFiles = n
		}
	}

	logger.Info("session config", "cache_dir", cfg.CacheDir, "max_files", cfg.MaxFiles)
	return cfg
}

type viewConfig struct {
	Screen      project.Screen
	Alpha       float64
	Policy      astro.Policy
	LockMode    project.LockMode
	Declination bool
}

func loadViewConfig(logger *slog.Logger) viewConfig {
	cfg := viewConfig{
		Screen: project.Screen{
			WidthPx:  400,
			HeightPx: 800,
			FOVHDeg:  60,
			FOVVDeg:  40,
		},
		Alpha:       orient.DefaultAlpha,
		Policy:      astro.PolicyEquatorial,
		LockMode:    project.LockContinuous,
		Declination: true,
	}

	if v := os.Getenv("NORTHSTAR_SCREEN_WIDTH"); v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil || n <= 0 {
			logger.Warn("invalid NORTHSTAR_SCREEN_WIDTH value, using default", "value", v, "default", 400)
		} else {
			cfg.Screen.WidthPx = n
		}
	}

	if v := os.Getenv("NORTHSTAR_SCREEN_HEIGHT"); v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil || n <= 0 {
			logger.Warn("invalid NORTHSTAR_SCREEN_HEIGHT value, using default", "value", v, "default", 800)
		} else {
			cfg.Screen.HeightPx = n
		}
	}

	if v := os.Getenv("NORTHSTAR_FOV_H"); v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil || n <= 0 || n > 180 {
			logger.Warn("invalid NORTHSTAR_FOV_H value, using default", "value", v, "default", 60)
		} else {
			cfg.Screen.FOVHDeg = n
		}
	}

	if v := os.Getenv("NORTHSTAR_FOV_V"); v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil || n <= 0 || n > 180 {
			logger.Warn("invalid NORTHSTAR_FOV_V value, using default", "value", v, "default", 40)
		} else {
			cfg.Screen.FOVVDeg = n
		}
	}

	if v := os.Getenv("NORTHSTAR_SMOOTHING_ALPHA"); v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil || n <= 0 || n > 1 {
			logger.Warn("invalid NORTHSTAR_SMOOTHING_ALPHA value, using default", "value", v, "default", orient.DefaultAlpha)
		} else {
			cfg.Alpha = n
		}
	}

	if v := os.Getenv("NORTHSTAR_RESOLVER_POLICY"); v != "" {
		switch v {
		case "equatorial":
			cfg.Policy = astro.PolicyEquatorial
		case "heuristic":
			cfg.Policy = astro.PolicyHeuristic
		default:
			logger.Warn("invalid NORTHSTAR_RESOLVER_POLICY value, using equatorial", "value", v)
		}
	}

	if v := os.Getenv("NORTHSTAR_LOCK_MODE"); v != "" {
		mode, ok := project.ParseLockMode(v)
		if !ok {
			logger.Warn("invalid NORTHSTAR_LOCK_MODE value, using continuous", "value", v)
		}
		cfg.LockMode = mode
	}

	if v := os.Getenv("NORTHSTAR_DECLINATION_CORRECTION"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid NORTHSTAR_DECLINATION_CORRECTION value, keeping enabled", "value", v)
		} else {
			cfg.Declination = enabled
		}
	}

	logger.Info("view config",
		"screen_width", cfg.Screen.WidthPx,
		"screen_height", cfg.Screen.HeightPx,
		"fov_h", cfg.Screen.FOVHDeg,
		"fov_v", cfg.Screen.FOVVDeg,
		"alpha", cfg.Alpha,
		"policy", policyName(cfg.Policy),
		"lock_mode", lockModeName(cfg.LockMode),
		"declination", cfg.Declination,
	)

	return cfg
}

func loadTimings(logger *slog.Logger) sequencer.Timings {
	cfg := sequencer.DefaultTimings()

	if v := os.Getenv("NORTHSTAR_DOT_MS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 10 || n > 5000 {
			logger.Warn("invalid NORTHSTAR_DOT_MS value, using default", "value", v, "default", 200)
		} else {
			// Derive the gaps from the dot per ITU ratios.
			cfg = sequencer.Timings{Dot: time.Duration(n) * time.Millisecond}.Normalize()
		}
	}

	logger.Info("sequencer config", "dot_ms", cfg.Dot.Milliseconds())
	return cfg
}

func loadStreamConfig(logger *slog.Logger) stream.Config {
	cfg := stream.Config{
		MaxConcurrentPerIP: 10,
		KeepaliveInterval:  30 * time.Second,
		DefaultStep:        100 * time.Millisecond,
	}

	if v := os.Getenv("NORTHSTAR_STREAM_MAX_CONCURRENT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid NORTHSTAR_STREAM_MAX_CONCURRENT value, using default", "value", v, "default", 10)
		} else {
			cfg.MaxConcurrentPerIP = n
		}
	}

	if v := os.Getenv("NORTHSTAR_STREAM_KEEPALIVE_INTERVAL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid NORTHSTAR_STREAM_KEEPALIVE_INTERVAL value, using default", "value", v, "default", 30)
		} else {
			cfg.KeepaliveInterval = time.Duration(n) * time.Second
		}
	}

	if v := os.Getenv("NORTHSTAR_STREAM_STEP_MS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 16 || n > 5000 {
			logger.Warn("invalid NORTHSTAR_STREAM_STEP_MS value, using default", "value", v, "default", 100)
		} else {
			cfg.DefaultStep = time.Duration(n) * time.Millisecond
		}
	}

	if v := os.Getenv("NORTHSTAR_TRUST_PROXY"); v != "" {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid NORTHSTAR_TRUST_PROXY value, defaulting to false", "value", v)
		} else {
			cfg.TrustProxy = trust
		}
	}

	logger.Info("stream config",
		"max_concurrent_per_ip", cfg.MaxConcurrentPerIP,
		"keepalive_interval_seconds", cfg.KeepaliveInterval.Seconds(),
		"default_step_ms", cfg.DefaultStep.Milliseconds(),
		"trust_proxy", cfg.TrustProxy,
	)

	return cfg
}
