package hub

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeHub is an in-process controller serving canned collections.
type fakeHub struct {
	mu         sync.Mutex
	server     *httptest.Server
	authKey    string
	loginCount int
	loginFail  bool
	bodies     map[string]string // path (without /cws/api) -> JSON body
	statuses   map[string]int    // path -> forced status code
	requests   []recordedRequest
}

type recordedRequest struct {
	Method  string
	Path    string
	AuthKey string
	Body    string
}

func newFakeHub(t *testing.T) *fakeHub {
	t.Helper()
	f := &fakeHub{
		authKey:  "session-key-1",
		bodies:   defaultCollections(),
		statuses: make(map[string]int),
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func defaultCollections() map[string]string {
	return map[string]string{
		"/rooms":           `{"rooms":[{"id":1,"name":"Kitchen"},{"id":2,"name":"Hall"}]}`,
		"/scenes":          `{"scenes":[{"id":10,"name":"Evening","roomId":1,"type":"Lighting","status":false}]}`,
		"/devices":         `{"devices":[{"id":100,"name":"Pendant","roomId":1,"type":"Dimmer","subType":"","level":32768,"status":true},{"id":200,"name":"Stat","roomId":2,"type":"Device","subType":"thermostat","level":0,"status":false}]}`,
		"/shades":          `{"shades":[{"id":300,"position":65535}]}`,
		"/thermostats":     `{"thermostats":[{"id":200,"currentTemperature":712,"currentMode":"COOL","currentFanMode":"AUTO","currentSetPoint":[{"type":"Cool","temperature":700},{"type":"Heat","temperature":680}],"temperatureUnits":"DeciFahrenheit","availableFanModes":["AUTO","ON"]}]}`,
		"/doorlocks":       `{"doorlocks":[{"id":400,"name":"Front","roomId":2,"status":"locked","type":"Lock","connectionStatus":"online"}]}`,
		"/securitydevices": `{"securitydevices":[{"id":500,"name":"Panel","roomId":2,"currentState":"ArmStay","availableStates":["Disarmed","ArmStay","ArmAway"]}]}`,
	}
}

func (f *fakeHub) handle(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, apiPrefix)
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{
		Method:  r.Method,
		Path:    path,
		AuthKey: r.Header.Get(headerAuthKey),
		Body:    string(body),
	})

	if path == "/login" {
		f.loginCount++
		fail := f.loginFail || r.Header.Get(headerAuthToken) != "api-token"
		key := f.authKey
		f.mu.Unlock()
		if fail {
			http.Error(w, "bad token", http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"authkey": key, "version": "2.0"})
		return
	}

	status, forced := f.statuses[path]
	resp, ok := f.bodies[path]
	f.mu.Unlock()

	switch {
	case forced:
		w.WriteHeader(status)
	case r.Method == http.MethodPost:
		_, _ = io.WriteString(w, `{"status":"success"}`)
	case ok:
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, resp)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeHub) setStatus(path string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[path] = status
}

func (f *fakeHub) setBody(path, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodies[path] = body
}

func (f *fakeHub) setLoginFail(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginFail = fail
}

func (f *fakeHub) logins() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginCount
}

func (f *fakeHub) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recordedRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

func (f *fakeHub) lastRequest(t *testing.T) recordedRequest {
	t.Helper()
	reqs := f.recorded()
	if len(reqs) == 0 {
		t.Fatal("no requests recorded")
	}
	return reqs[len(reqs)-1]
}

// fakeClock is a settable clock for session expiry tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestClient(t *testing.T, f *fakeHub, clock *fakeClock) *Client {
	t.Helper()
	opts := Options{
		Host:     f.server.URL,
		APIToken: "api-token",
		Timeout:  2 * time.Second,
	}
	if clock != nil {
		opts.Now = clock.Now
	}
	c, err := NewClient(opts)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}
