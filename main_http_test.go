package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	ginGzip "github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"roastblur/internal/gemini"
	"roastblur/internal/types"
)

const (
	testImageURL = "data:image/jpeg;base64,SU1BR0U="
	testMemeURL  = "data:image/jpeg;base64,TUVNRQ=="
)

// stubGenerator returns canned results. When gate is non-nil every call
// blocks until it is closed.
type stubGenerator struct {
	mu        sync.Mutex
	data      types.GameData
	dataErr   error
	meme      string
	memeErr   error
	gate      chan struct{}
	gameCalls int
	memeCalls int
}

func newStubGenerator() *stubGenerator {
	return &stubGenerator{
		data: types.GameData{
			ImageURL:  testImageURL,
			Questions: []string{"What do you bake?", "Who is your hero?", "Why bread?"},
		},
		meme: testMemeURL,
	}
}

func (s *stubGenerator) GenerateGameData(ctx context.Context, _ string) (types.GameData, error) {
	s.waitGate()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gameCalls++
	return s.data, s.dataErr
}

func (s *stubGenerator) GenerateRoastMeme(ctx context.Context, _, _ []string) (string, error) {
	s.waitGate()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memeCalls++
	return s.meme, s.memeErr
}

func (s *stubGenerator) waitGate() {
	s.mu.Lock()
	gate := s.gate
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}
}

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Port:           "8080",
		GeminiAPIKey:   "test-key",
		SessionTimeout: time.Hour,
		CookieMaxAge:   time.Hour,
		StaticCacheAge: 5 * time.Minute,
		RateLimitRPS:   100,
		RateLimitBurst: 100,
		SessionDir:     t.TempDir(),
	}
}

// setupTestRouter creates a test router with all routes
func setupTestRouter(app *App) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return setupRouter(app)
}

type client struct {
	t      *testing.T
	router *gin.Engine
	cookie *http.Cookie
	htmx   bool
}

func (c *client) do(method, path string, form url.Values) *httptest.ResponseRecorder {
	c.t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, _ := http.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if c.htmx {
		req.Header.Set("HX-Request", "true")
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		if ck.Name == SessionCookieName {
			c.cookie = ck
		}
	}
	return w
}

func (c *client) sessionID() string {
	c.t.Helper()
	if c.cookie == nil {
		c.t.Fatal("no session cookie yet")
	}
	return c.cookie.Value
}

func serverError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	trigger := w.Header().Get("HX-Trigger")
	if trigger == "" {
		return ""
	}
	var payload map[string]string
	if err := json.Unmarshal([]byte(trigger), &payload); err != nil {
		t.Fatalf("HX-Trigger is not JSON: %q", trigger)
	}
	return payload["server_error"]
}

// TestHomeHandler checks home page returns 200 and sets a session cookie
func TestHomeHandler(t *testing.T) {
	app := newApp(testConfig(t), newStubGenerator())
	c := &client{t: t, router: setupTestRouter(app)}

	w := c.do("GET", RouteHome, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET / returned status %d, want 200", w.Code)
	}
	if c.cookie == nil || !isValidSessionID(c.cookie.Value) {
		t.Fatalf("expected a UUID session cookie, got %v", c.cookie)
	}
	if !strings.Contains(w.Body.String(), `name="prompt"`) {
		t.Error("home page should render the prompt form")
	}
}

// TestGameStateHandler checks game state returns the fragment
func TestGameStateHandler(t *testing.T) {
	app := newApp(testConfig(t), newStubGenerator())
	c := &client{t: t, router: setupTestRouter(app)}

	w := c.do("GET", RouteGameState, nil)
	if w.Code != http.StatusOK {
		t.Errorf("GET /game-state returned status %d, want 200", w.Code)
	}
	if strings.Contains(w.Body.String(), "<html") {
		t.Error("game state should be a fragment, not a full page")
	}
}

func TestSearchHandler_EmptyPrompt(t *testing.T) {
	gen := newStubGenerator()
	app := newApp(testConfig(t), gen)
	c := &client{t: t, router: setupTestRouter(app), htmx: true}

	w := c.do("POST", RouteSearch, url.Values{"prompt": {"   "}})
	if w.Code != http.StatusOK {
		t.Fatalf("POST /search returned status %d, want 200", w.Code)
	}
	if got := serverError(t, w); got != ErrorPromptRequired {
		t.Errorf("server_error = %q, want %q", got, ErrorPromptRequired)
	}
	if !strings.Contains(w.Body.String(), ErrorPromptRequired) {
		t.Error("fragment should show the prompt error")
	}
	if gen.gameCalls != 0 {
		t.Errorf("generator called %d times for an empty prompt", gen.gameCalls)
	}
	if s := app.getController(c.sessionID()).Snapshot(); s.Error != "" {
		t.Errorf("validation errors must not be stored on the session, got %q", s.Error)
	}
}

func TestSearchHandler_PlainFormRedirects(t *testing.T) {
	app := newApp(testConfig(t), newStubGenerator())
	c := &client{t: t, router: setupTestRouter(app)}

	w := c.do("POST", RouteSearch, url.Values{"prompt": {"a raccoon running a bakery"}})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("POST /search returned status %d, want 303", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != RouteHome {
		t.Errorf("redirect Location = %q, want %q", loc, RouteHome)
	}
	app.getController(c.sessionID()).Wait()
}

func TestAnswerHandler_WrongPhase(t *testing.T) {
	app := newApp(testConfig(t), newStubGenerator())
	c := &client{t: t, router: setupTestRouter(app), htmx: true}

	w := c.do("POST", RouteAnswer, url.Values{"answer": {"bread"}})
	if got := serverError(t, w); got != ErrorActionNotAllowed {
		t.Errorf("server_error = %q, want %q", got, ErrorActionNotAllowed)
	}
}

func TestFullGameFlow(t *testing.T) {
	gen := newStubGenerator()
	app := newApp(testConfig(t), gen)
	c := &client{t: t, router: setupTestRouter(app), htmx: true}

	c.do("GET", RouteHome, nil)
	ctrl := app.getController(c.sessionID())

	w := c.do("POST", RouteSearch, url.Values{"prompt": {"a raccoon running a bakery"}})
	if w.Code != http.StatusOK {
		t.Fatalf("POST /search returned status %d, want 200", w.Code)
	}
	ctrl.Wait()

	w = c.do("GET", RouteGameState, nil)
	body := w.Body.String()
	if !strings.Contains(body, "Question 1 of 3") || !strings.Contains(body, "What do you bake?") {
		t.Fatalf("expected first question after generation, got:\n%s", body)
	}
	if !strings.Contains(body, "blur-lg") {
		t.Errorf("first question should render blur level 3 (blur-lg), got:\n%s", body)
	}
	if !strings.Contains(body, testImageURL) {
		t.Error("generated image data URL should be rendered as-is")
	}

	answers := []string{"bread bread", "my hero bakes bread", "because bread"}
	for i, answer := range answers {
		w = c.do("POST", RouteAnswer, url.Values{"answer": {answer}})
		if got := serverError(t, w); got != "" {
			t.Fatalf("answer %d rejected: %s", i+1, got)
		}
	}
	ctrl.Wait()

	w = c.do("GET", RouteGameState, nil)
	body = w.Body.String()
	if !strings.Contains(body, testMemeURL) || !strings.Contains(body, "blur-none") {
		t.Fatalf("expected meme phase with a sharp image, got:\n%s", body)
	}
	if gen.memeCalls != 1 {
		t.Errorf("roast generated %d times, want 1", gen.memeCalls)
	}

	w = c.do("GET", RouteWordCloud, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /word-cloud returned status %d, want 200", w.Code)
	}
	body = w.Body.String()
	if !strings.Contains(body, `class="word-tier-4"`) || !strings.Contains(body, ">bread<") {
		t.Errorf("word cloud should emphasize bread (4 mentions), got:\n%s", body)
	}
	if strings.Contains(body, ">my<") {
		t.Error("words shorter than three letters must be dropped")
	}

	w = c.do("POST", RoutePlayAgain, nil)
	if !strings.Contains(w.Body.String(), `name="prompt"`) {
		t.Error("play again should return to the prompt form")
	}
	if s := ctrl.Snapshot(); len(s.Answers) != 0 || s.MemeURL != "" || s.Prompt != "" {
		t.Errorf("play again should clear the session, got %+v", s)
	}
}

func TestSearchHandler_BusyRejected(t *testing.T) {
	gen := newStubGenerator()
	gen.gate = make(chan struct{})
	app := newApp(testConfig(t), gen)
	c := &client{t: t, router: setupTestRouter(app), htmx: true}

	w := c.do("POST", RouteSearch, url.Values{"prompt": {"first"}})
	if !strings.Contains(w.Body.String(), "data-poll") {
		t.Error("generating fragment should poll for updates")
	}

	w = c.do("POST", RouteSearch, url.Values{"prompt": {"second"}})
	if got := serverError(t, w); got != ErrorRequestInFlight {
		t.Errorf("server_error = %q, want %q", got, ErrorRequestInFlight)
	}
	w = c.do("POST", RoutePlayAgain, nil)
	if got := serverError(t, w); got != ErrorRequestInFlight {
		t.Errorf("reset while busy: server_error = %q, want %q", got, ErrorRequestInFlight)
	}

	close(gen.gate)
	app.getController(c.sessionID()).Wait()
	if gen.gameCalls != 1 {
		t.Errorf("generator called %d times, want 1", gen.gameCalls)
	}
}

func TestSearchHandler_GenerationFailureKeepsPrompt(t *testing.T) {
	gen := newStubGenerator()
	gen.dataErr = fmt.Errorf("failed to generate game data: %w", gemini.ErrNoImage)
	app := newApp(testConfig(t), gen)
	c := &client{t: t, router: setupTestRouter(app), htmx: true}

	c.do("POST", RouteSearch, url.Values{"prompt": {"a raccoon"}})
	app.getController(c.sessionID()).Wait()

	body := c.do("GET", RouteGameState, nil).Body.String()
	if !strings.Contains(body, "Failed to generate game data") {
		t.Errorf("collaborator error should be shown, got:\n%s", body)
	}
	if !strings.Contains(body, `value="a raccoon"`) {
		t.Errorf("prompt should be pre-filled after a failure, got:\n%s", body)
	}
}

func TestSessionRestoredFromDisk(t *testing.T) {
	cfg := testConfig(t)
	app := newApp(cfg, newStubGenerator())
	c := &client{t: t, router: setupTestRouter(app), htmx: true}

	c.do("POST", RouteSearch, url.Values{"prompt": {"a raccoon"}})
	app.getController(c.sessionID()).Wait()
	c.do("POST", RouteAnswer, url.Values{"answer": {"bread"}})

	// A fresh server with the same session directory picks the game up.
	restarted := newApp(cfg, newStubGenerator())
	c.router = setupTestRouter(restarted)
	body := c.do("GET", RouteGameState, nil).Body.String()
	if !strings.Contains(body, "Question 2 of 3") || !strings.Contains(body, "Who is your hero?") {
		t.Errorf("expected restored quiz at question 2, got:\n%s", body)
	}
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAPIGameHandler(t *testing.T) {
	gen := newStubGenerator()
	router := setupTestRouter(newApp(testConfig(t), gen))

	w := postJSON(router, RouteAPIGame, `{"prompt":"a raccoon"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("POST /api/game returned status %d, want 200: %s", w.Code, w.Body.String())
	}
	var data types.GameData
	if err := json.Unmarshal(w.Body.Bytes(), &data); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if data.ImageURL != testImageURL || len(data.Questions) != 3 {
		t.Errorf("unexpected game data: %+v", data)
	}

	for _, body := range []string{`{}`, `{"prompt":"  "}`, `not json`} {
		if w := postJSON(router, RouteAPIGame, body); w.Code != http.StatusBadRequest {
			t.Errorf("POST /api/game %s returned status %d, want 400", body, w.Code)
		}
	}
}

func TestAPIGameHandler_Errors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"missing credential", fmt.Errorf("failed to generate game data: %w", gemini.ErrMissingCredential), http.StatusServiceUnavailable},
		{"upstream failure", fmt.Errorf("failed to generate game data: %w", &gemini.StatusError{Code: 500, Body: "boom"}), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gen := newStubGenerator()
			gen.dataErr = tc.err
			router := setupTestRouter(newApp(testConfig(t), gen))

			w := postJSON(router, RouteAPIGame, `{"prompt":"a raccoon"}`)
			if w.Code != tc.status {
				t.Fatalf("status = %d, want %d", w.Code, tc.status)
			}
			var resp types.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("Failed to unmarshal error response: %v", err)
			}
			if resp.Error != tc.err.Error() {
				t.Errorf("error = %q, want %q", resp.Error, tc.err.Error())
			}
		})
	}
}

func TestAPIMemeHandler(t *testing.T) {
	router := setupTestRouter(newApp(testConfig(t), newStubGenerator()))

	w := postJSON(router, RouteAPIMeme, `{"questions":["q1"],"answers":["a1"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("POST /api/meme returned status %d, want 200", w.Code)
	}
	var resp types.MemeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if resp.MemeURL != testMemeURL {
		t.Errorf("memeUrl = %q, want %q", resp.MemeURL, testMemeURL)
	}

	for _, body := range []string{`{"questions":["q1"]}`, `{"answers":["a1"]}`, `{"questions":[],"answers":[]}`} {
		w := postJSON(router, RouteAPIMeme, body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("POST /api/meme %s returned status %d, want 400", body, w.Code)
		}
		if !strings.Contains(w.Body.String(), ErrorQuestionsAndAnswers) {
			t.Errorf("POST /api/meme %s should explain what is missing, got %s", body, w.Body.String())
		}
	}
}

func TestAPIWordCloudHandler(t *testing.T) {
	router := setupTestRouter(newApp(testConfig(t), newStubGenerator()))

	w := postJSON(router, RouteAPICloud, `{"answers":["The cat sat on the mat","A cat! A CAT?"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("POST /api/word-cloud returned status %d, want 200", w.Code)
	}
	var resp types.WordCloudResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	want := []types.WordCloudWord{
		{Text: "cat", Value: 3, Tier: 3},
		{Text: "sat", Value: 1, Tier: 1},
		{Text: "mat", Value: 1, Tier: 1},
	}
	if len(resp.Words) != len(want) {
		t.Fatalf("words = %+v, want %+v", resp.Words, want)
	}
	for i := range want {
		if resp.Words[i] != want[i] {
			t.Errorf("words[%d] = %+v, want %+v", i, resp.Words[i], want[i])
		}
	}

	w = postJSON(router, RouteAPICloud, `{"answers":[]}`)
	if !strings.Contains(w.Body.String(), `"words":[]`) {
		t.Errorf("empty answers should yield an empty list, got %s", w.Body.String())
	}
}

// TestRateLimitMiddleware checks rate limiting blocks excessive requests
func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig(t)
	cfg.RateLimitRPS = 5
	cfg.RateLimitBurst = 10
	app := newApp(cfg, newStubGenerator())

	router := gin.New()
	router.Use(app.rateLimitMiddleware())
	router.GET("/limited", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	req, _ := http.NewRequest("GET", "/limited", nil)
	req.RemoteAddr = "127.0.0.1:12345"

	// First 10 requests should succeed
	for i := 0; i < 10; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("Request %d: expected 200, got %d", i+1, w.Code)
		}
	}

	// 11th request should be rate limited
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("11th request: expected 429 Too Many Requests, got %d", w.Code)
	}
}

func TestMiddlewareHeaders(t *testing.T) {
	router := setupTestRouter(newApp(testConfig(t), newStubGenerator()))

	req, _ := http.NewRequest("GET", RouteHealthz, nil)
	req.Header.Set("X-Request-Id", "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-Id"); got != "req-123" {
		t.Errorf("X-Request-Id = %q, want the incoming ID echoed", got)
	}
	if csp := w.Header().Get("Content-Security-Policy"); !strings.Contains(csp, "img-src 'self' data:") {
		t.Errorf("CSP must allow data: images, got %q", csp)
	}
	if cc := w.Header().Get("Cache-Control"); !strings.Contains(cc, "no-store") {
		t.Errorf("dynamic responses should not be cached, got %q", cc)
	}

	req, _ = http.NewRequest("GET", RouteHealthz, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if !isValidSessionID(w.Header().Get("X-Request-Id")) {
		t.Errorf("expected a generated UUID request ID, got %q", w.Header().Get("X-Request-Id"))
	}
}

// TestHealthHandlerFields checks /healthz endpoint for required fields
func TestHealthHandlerFields(t *testing.T) {
	router := setupTestRouter(newApp(testConfig(t), newStubGenerator()))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", RouteHealthz, nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("GET /healthz returned status %d, want 200", w.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to unmarshal /healthz response: %v", err)
	}
	for _, field := range []string{"status", "timestamp", "uptime", "active_sessions", "generator_ready"} {
		if _, ok := resp[field]; !ok {
			t.Errorf("Expected '%s' field in /healthz response", field)
		}
	}
	if env, ok := resp["env"].(string); !ok || env != "development" {
		t.Errorf("healthz env field = %v, want 'development'", resp["env"])
	}
	if ready, _ := resp["generator_ready"].(bool); !ready {
		t.Error("generator_ready should be true when an API key is configured")
	}
}

func setupGzipTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.Default()
	router.Use(
		ginGzip.Gzip(ginGzip.DefaultCompression,
			ginGzip.WithExcludedExtensions([]string{".svg", ".ico", ".png", ".jpg", ".jpeg", ".gif"}),
			ginGzip.WithExcludedPaths([]string{"/static/fonts"})),
	)
	router.GET("/static/test.js", func(c *gin.Context) {
		c.Header("Content-Type", "application/javascript")
		c.String(http.StatusOK, "var x = 1;")
	})
	router.GET("/static/test.png", func(c *gin.Context) {
		c.Header("Content-Type", "image/png")
		c.String(http.StatusOK, "PNGDATA")
	})
	router.GET("/static/fonts/font.woff2", func(c *gin.Context) {
		c.Header("Content-Type", "font/woff2")
		c.String(http.StatusOK, "FONTDATA")
	})
	return router
}

func isGzipped(w *httptest.ResponseRecorder) bool {
	return w.Header().Get("Content-Encoding") == "gzip"
}

func decompressGzip(data []byte) (string, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	return string(out), err
}

func TestGzipMiddleware_CompressesJS(t *testing.T) {
	router := setupGzipTestRouter()
	req, _ := http.NewRequest("GET", "/static/test.js", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if !isGzipped(w) {
		t.Errorf("Expected gzip Content-Encoding for .js file")
	}
	body, err := decompressGzip(w.Body.Bytes())
	if err != nil || body != "var x = 1;" {
		t.Errorf("Failed to decompress gzipped JS: %v, got: %q", err, body)
	}
}

func TestGzipMiddleware_SkipsPNG(t *testing.T) {
	router := setupGzipTestRouter()
	req, _ := http.NewRequest("GET", "/static/test.png", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if isGzipped(w) {
		t.Errorf("Did not expect gzip Content-Encoding for .png file")
	}
	if w.Body.String() != "PNGDATA" {
		t.Errorf("Unexpected body for .png file: %q", w.Body.String())
	}
}

func TestGzipMiddleware_SkipsFontsPath(t *testing.T) {
	router := setupGzipTestRouter()
	req, _ := http.NewRequest("GET", "/static/fonts/font.woff2", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if isGzipped(w) {
		t.Errorf("Did not expect gzip Content-Encoding for /static/fonts path")
	}
	if w.Body.String() != "FONTDATA" {
		t.Errorf("Unexpected body for font file: %q", w.Body.String())
	}
}
