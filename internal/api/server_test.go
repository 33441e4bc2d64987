package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/star/northstar/internal/astro"
	"github.com/star/northstar/internal/auth"
	"github.com/star/northstar/internal/orient"
	"github.com/star/northstar/internal/project"
	"github.com/star/northstar/internal/render"
	"github.com/star/northstar/internal/sequencer"
	"github.com/star/northstar/internal/session"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// noopClock never fires, so plays stay active until stopped.
type noopClock struct{}

type noopTimer struct{}

func (noopClock) AfterFunc(d time.Duration, f func()) sequencer.Timer { return noopTimer{} }
func (noopTimer) Stop() bool                                          { return true }

func testDeps() Deps {
	sess := session.NewStore()
	orientStore := orient.NewStore(orient.NewFilter(1.0))
	bright := render.NewBrightness()
	player := sequencer.NewPlayer(noopClock{}, sequencer.DefaultTimings(),
		func(on bool) {}, func() {})
	lock := project.NewLock(project.LockOnFirstFix)

	return Deps{
		Composer: &render.Composer{
			Target:  astro.Polaris,
			Policy:  astro.PolicyEquatorial,
			Session: sess,
			Orient:  orientStore,
			Lock:    lock,
			Screen:  project.Screen{WidthPx: 400, HeightPx: 800, FOVHDeg: 60, FOVVDeg: 40},
			Twinkle: render.NewTwinkle(1),
			Player:  player,
			Signal:  bright,
		},
		Session: sess,
		Orient:  orientStore,
		Player:  player,
		Timings: sequencer.DefaultTimings(),
		Lock:    lock,
	}
}

func testServer(t *testing.T, authCfg auth.Config) (*Server, Deps) {
	t.Helper()
	deps := testDeps()
	srv := NewServer("127.0.0.1:0", deps, testLogger(), authCfg, "", "")
	return srv, deps
}

func doJSON(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.RemoteAddr = "127.0.0.1:12345"
	w := httptest.NewRecorder()
	srv.HTTPServer().Handler.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := testServer(t, auth.Config{})

	for _, path := range []string{"/healthz", "/readyz"} {
		w := doJSON(t, srv, "GET", path, "")
		if w.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, w.Code)
		}
	}
}

// TestPositionDefaultObserver verifies resolution falls back to the
// default observer and flags it.
func TestPositionDefaultObserver(t *testing.T) {
	srv, _ := testServer(t, auth.Config{})

	w := doJSON(t, srv, "GET", "/api/v1/position?at=2026-08-31T02:00:00Z", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", w.Code, w.Body.String())
	}

	var resp map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp["target"] != "Polaris" {
		t.Errorf("target = %v, want Polaris", resp["target"])
	}
	if resp["observer_defaulted"] != true {
		t.Error("expected observer_defaulted flag on fallback observer")
	}
	// Polaris altitude tracks observer latitude; default is 40°N.
	alt := resp["alt"].(float64)
	if alt < 39 || alt > 41 {
		t.Errorf("alt = %.2f, want ~40 at the default observer", alt)
	}
	lst := resp["lst_hours"].(float64)
	if lst < 0 || lst >= 24 {
		t.Errorf("lst_hours = %.4f, want in [0, 24)", lst)
	}
}

// TestPositionQueryOverrides verifies lat/lon query parameters override
// the session fix for one-shot lookups.
func TestPositionQueryOverrides(t *testing.T) {
	srv, _ := testServer(t, auth.Config{})

	w := doJSON(t, srv, "GET", "/api/v1/position?lat=65&lon=10&at=2026-08-31T02:00:00Z", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp map[string]any
	json.NewDecoder(w.Body).Decode(&resp)
	alt := resp["alt"].(float64)
	if alt < 64 || alt > 66 {
		t.Errorf("alt = %.2f, want ~65 at lat override 65", alt)
	}
	if resp["observer_defaulted"] == true {
		t.Error("query override should not be flagged as defaulted")
	}
}

// TestPositionProjection verifies heading+pitch params add the screen
// projection to the response.
func TestPositionProjection(t *testing.T) {
	srv, _ := testServer(t, auth.Config{})

	// Default observer 40°N, facing north, tilted 50° up: the target
	// sits near the camera axis and close to screen center.
	w := doJSON(t, srv, "GET", "/api/v1/position?heading=0&pitch=50&at=2026-08-31T02:00:00Z", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", w.Code, w.Body.String())
	}

	var resp map[string]any
	json.NewDecoder(w.Body).Decode(&resp)
	if resp["visible"] != true {
		t.Fatalf("visible = %v, want true", resp["visible"])
	}
	x := resp["x"].(float64)
	y := resp["y"].(float64)
	if x < 185 || x > 215 {
		t.Errorf("x = %.1f, want near 200", x)
	}
	if y < 380 || y > 420 {
		t.Errorf("y = %.1f, want near 400", y)
	}

	// Without both params the projection is omitted.
	w = doJSON(t, srv, "GET", "/api/v1/position?heading=0", "")
	resp = map[string]any{}
	json.NewDecoder(w.Body).Decode(&resp)
	if _, ok := resp["visible"]; ok {
		t.Error("visible should be omitted without a pitch param")
	}
}

func TestPositionBadParams(t *testing.T) {
	srv, _ := testServer(t, auth.Config{})

	tests := []struct {
		name  string
		query string
	}{
		{"lat out of range", "?lat=91"},
		{"lat non-numeric", "?lat=abc"},
		{"lon out of range", "?lon=-181"},
		{"bad timestamp", "?at=yesterday"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, srv, "GET", "/api/v1/position"+tt.query, "")
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

// TestObserverRoundTrip verifies PUT stores a fix the next GET returns.
func TestObserverRoundTrip(t *testing.T) {
	srv, deps := testServer(t, auth.Config{})

	w := doJSON(t, srv, "GET", "/api/v1/observer", "")
	var resp map[string]any
	json.NewDecoder(w.Body).Decode(&resp)
	if resp["defaulted"] != true {
		t.Error("fresh session should report the defaulted observer")
	}

	w = doJSON(t, srv, "PUT", "/api/v1/observer", `{"lat":51.5,"lon":-0.12,"accuracy_m":18}`)
	if w.Code != http.StatusOK {
		t.Fatalf("PUT status = %d, want 200, body: %s", w.Code, w.Body.String())
	}

	obs, defaulted := deps.Session.Get()
	if defaulted {
		t.Error("session should no longer be defaulted after PUT")
	}
	if obs.LatDeg != 51.5 || obs.LonDeg != -0.12 {
		t.Errorf("stored fix = (%.2f, %.2f), want (51.50, -0.12)", obs.LatDeg, obs.LonDeg)
	}
	if obs.AcquiredAt.IsZero() {
		t.Error("AcquiredAt should be stamped by the server")
	}

	w = doJSON(t, srv, "GET", "/api/v1/observer", "")
	resp = map[string]any{}
	json.NewDecoder(w.Body).Decode(&resp)
	if resp["lat"].(float64) != 51.5 {
		t.Errorf("lat = %v, want 51.5", resp["lat"])
	}
	if resp["defaulted"] != false {
		t.Error("defaulted should be false after PUT")
	}
}

func TestObserverValidation(t *testing.T) {
	srv, _ := testServer(t, auth.Config{})

	tests := []struct {
		name string
		body string
	}{
		{"lat out of range", `{"lat":95,"lon":0}`},
		{"lon out of range", `{"lat":0,"lon":200}`},
		{"not JSON", `lat=40`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, srv, "PUT", "/api/v1/observer", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

// TestOrientationIngest verifies posted readings land in the store.
func TestOrientationIngest(t *testing.T) {
	srv, deps := testServer(t, auth.Config{})

	w := doJSON(t, srv, "POST", "/api/v1/orientation", `{"heading":120,"pitch":45,"roll":-3}`)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204, body: %s", w.Code, w.Body.String())
	}

	o, ok := deps.Orient.Current()
	if !ok {
		t.Fatal("orientation store should hold a value after ingest")
	}
	// Filter alpha is 1.0 in tests, so the first reading passes through.
	if o.HeadingDeg != 120 || o.PitchDeg != 45 || o.RollDeg != -3 {
		t.Errorf("orientation = %+v, want heading 120 pitch 45 roll -3", o)
	}
}

func TestOrientationPartialReading(t *testing.T) {
	srv, deps := testServer(t, auth.Config{})

	doJSON(t, srv, "POST", "/api/v1/orientation", `{"heading":90,"pitch":10,"roll":0}`)
	w := doJSON(t, srv, "POST", "/api/v1/orientation", `{"pitch":20}`)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}

	o, _ := deps.Orient.Current()
	if o.HeadingDeg != 90 {
		t.Errorf("heading = %.1f, want 90 (axis absent from second reading)", o.HeadingDeg)
	}
	if o.PitchDeg != 20 {
		t.Errorf("pitch = %.1f, want 20", o.PitchDeg)
	}
}

func TestOrientationValidation(t *testing.T) {
	srv, _ := testServer(t, auth.Config{})

	tests := []struct {
		name string
		body string
	}{
		{"no axes", `{}`},
		{"heading out of range", `{"heading":360}`},
		{"heading negative", `{"heading":-1}`},
		{"not JSON", `heading=90`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, srv, "POST", "/api/v1/orientation", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

// TestSignalLifecycle verifies play/status/stop through the API.
func TestSignalLifecycle(t *testing.T) {
	srv, deps := testServer(t, auth.Config{})

	w := doJSON(t, srv, "POST", "/api/v1/signal/play", `{"text":"SOS"}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("play status = %d, want 202, body: %s", w.Code, w.Body.String())
	}
	var resp map[string]any
	json.NewDecoder(w.Body).Decode(&resp)
	if resp["playing"] != true {
		t.Error("play response should report playing")
	}
	// SOS at the 200ms dot: 1000 + 600 + 2200 + 600 + 1000.
	if resp["duration_ms"].(float64) != 5400 {
		t.Errorf("duration_ms = %v, want 5400", resp["duration_ms"])
	}

	w = doJSON(t, srv, "GET", "/api/v1/signal/status", "")
	resp = map[string]any{}
	json.NewDecoder(w.Body).Decode(&resp)
	if resp["playing"] != true {
		t.Error("status should report playing mid-timeline")
	}

	w = doJSON(t, srv, "POST", "/api/v1/signal/stop", "")
	if w.Code != http.StatusOK {
		t.Fatalf("stop status = %d, want 200", w.Code)
	}
	if deps.Player.Playing() {
		t.Error("player should be idle after stop")
	}

	// Stop again: idempotent.
	w = doJSON(t, srv, "POST", "/api/v1/signal/stop", "")
	if w.Code != http.StatusOK {
		t.Errorf("repeat stop status = %d, want 200", w.Code)
	}
}

func TestSignalPlayValidation(t *testing.T) {
	srv, _ := testServer(t, auth.Config{})

	tests := []struct {
		name string
		body string
	}{
		{"empty text", `{"text":""}`},
		{"missing text", `{}`},
		{"text too long", `{"text":"` + strings.Repeat("S", 300) + `"}`},
		{"not JSON", `text=SOS`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, srv, "POST", "/api/v1/signal/play", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

// TestRecalibrate verifies the lock drops its held fix.
func TestRecalibrate(t *testing.T) {
	srv, deps := testServer(t, auth.Config{})

	first := astro.Horizontal{AltDeg: 40, AzDeg: 10}
	deps.Lock.Update(first)
	held := deps.Lock.Update(astro.Horizontal{AltDeg: 50, AzDeg: 20})
	if held != first {
		t.Fatal("locked mode should hold the first fix")
	}

	w := doJSON(t, srv, "POST", "/api/v1/recalibrate", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}

	next := astro.Horizontal{AltDeg: 50, AzDeg: 20}
	if got := deps.Lock.Update(next); got != next {
		t.Errorf("after recalibrate Update = %+v, want fresh capture %+v", got, next)
	}
}

// TestAuthEnforcement verifies bearer auth on mutating routes while the
// probes and read-only position lookup stay public.
func TestAuthEnforcement(t *testing.T) {
	srv, _ := testServer(t, auth.Config{Enabled: true, Token: "secret"})

	// Exempt paths work without a token.
	for _, path := range []string{"/healthz", "/readyz", "/api/v1/position"} {
		w := doJSON(t, srv, "GET", path, "")
		if w.Code == http.StatusUnauthorized {
			t.Errorf("GET %s should be exempt from auth", path)
		}
	}

	// Mutations require the token.
	w := doJSON(t, srv, "PUT", "/api/v1/observer", `{"lat":51.5,"lon":-0.12}`)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated PUT status = %d, want 401", w.Code)
	}

	req := httptest.NewRequest("PUT", "/api/v1/observer", strings.NewReader(`{"lat":51.5,"lon":-0.12}`))
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	srv.HTTPServer().Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("authenticated PUT status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest("PUT", "/api/v1/observer", strings.NewReader(`{"lat":51.5,"lon":-0.12}`))
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	srv.HTTPServer().Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong-token PUT status = %d, want 401", rec.Code)
	}
}

// TestFrontendServed verifies the embedded index is reachable at /.
func TestFrontendServed(t *testing.T) {
	srv, _ := testServer(t, auth.Config{})

	w := doJSON(t, srv, "GET", "/", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET / status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "<canvas") {
		t.Error("index.html should contain the star canvas")
	}
}
