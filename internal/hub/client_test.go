package hub

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantURL string
		wantErr bool
	}{
		{name: "bare host gets https", opts: Options{Host: "192.168.1.50", APIToken: "t"}, wantURL: "https://192.168.1.50/cws/api"},
		{name: "explicit scheme kept", opts: Options{Host: "http://hub.local:8080/", APIToken: "t"}, wantURL: "http://hub.local:8080/cws/api"},
		{name: "missing host", opts: Options{APIToken: "t"}, wantErr: true},
		{name: "missing token", opts: Options{Host: "hub.local"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(tt.opts)
			if tt.wantErr {
				if err == nil {
					t.Fatal("NewClient() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewClient() error = %v", err)
			}
			if c.BaseURL() != tt.wantURL {
				t.Errorf("BaseURL() = %q, want %q", c.BaseURL(), tt.wantURL)
			}
		})
	}
}

func TestNewClient_DefaultTimeout(t *testing.T) {
	c, err := NewClient(Options{Host: "hub.local", APIToken: "t"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if c.timeout != DefaultRequestTimeout {
		t.Errorf("timeout = %v, want %v", c.timeout, DefaultRequestTimeout)
	}
}

func TestStatusError_Is(t *testing.T) {
	notFound := &StatusError{Method: "GET", Path: "/doorlocks", StatusCode: http.StatusNotFound}
	unauthorized := &StatusError{Method: "GET", Path: "/rooms", StatusCode: http.StatusUnauthorized}
	serverErr := &StatusError{Method: "GET", Path: "/rooms", StatusCode: http.StatusInternalServerError}

	if !errors.Is(notFound, ErrNotFound) {
		t.Error("404 should match ErrNotFound")
	}
	if errors.Is(notFound, ErrUnauthorized) {
		t.Error("404 should not match ErrUnauthorized")
	}
	if !errors.Is(unauthorized, ErrUnauthorized) {
		t.Error("401 should match ErrUnauthorized")
	}
	if errors.Is(serverErr, ErrNotFound) {
		t.Error("500 should not match ErrNotFound")
	}
}

func TestNewStatusError_TruncatesBody(t *testing.T) {
	body := make([]byte, maxErrorBody*2)
	for i := range body {
		body[i] = 'x'
	}
	err := newStatusError("GET", "/rooms", 500, body)
	if len(err.Body) != maxErrorBody {
		t.Errorf("len(Body) = %d, want %d", len(err.Body), maxErrorBody)
	}
}

func TestClient_NonSuccessWrapsTransport(t *testing.T) {
	f := newFakeHub(t)
	f.setStatus("/rooms/1", http.StatusInternalServerError)
	c := newTestClient(t, f, nil)

	_, err := c.GetRoom(context.Background(), "1")
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("GetRoom() error = %v, want ErrTransport", err)
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("GetRoom() error = %v, want *StatusError", err)
	}
	if statusErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want 500", statusErr.StatusCode)
	}
}

func TestClient_InvalidJSONWrapsTransport(t *testing.T) {
	f := newFakeHub(t)
	f.setBody("/rooms/1", `{"rooms": [`)
	c := newTestClient(t, f, nil)

	_, err := c.GetRoom(context.Background(), "1")
	if !errors.Is(err, ErrTransport) {
		t.Errorf("GetRoom() error = %v, want ErrTransport", err)
	}
}

func TestClient_CanceledContext(t *testing.T) {
	f := newFakeHub(t)
	c := newTestClient(t, f, nil)
	if _, err := c.EnsureSession(context.Background()); err != nil {
		t.Fatalf("EnsureSession() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.GetRoom(ctx, "1")
	if !errors.Is(err, ErrTransport) {
		t.Errorf("GetRoom() error = %v, want ErrTransport", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("GetRoom() error = %v, want context.Canceled", err)
	}
}

func TestID_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		input string
		want  ID
	}{
		{input: `42`, want: "42"},
		{input: `"42"`, want: "42"},
		{input: `"lock-a"`, want: "lock-a"},
		{input: `null`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var id ID
			if err := json.Unmarshal([]byte(tt.input), &id); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if id != tt.want {
				t.Errorf("ID = %q, want %q", id, tt.want)
			}
		})
	}
}

func TestID_MarshalJSON(t *testing.T) {
	tests := []struct {
		id   ID
		want string
	}{
		{id: "42", want: `42`},
		{id: "lock-a", want: `"lock-a"`},
	}

	for _, tt := range tests {
		got, err := json.Marshal(tt.id)
		if err != nil {
			t.Fatalf("Marshal(%q) error = %v", tt.id, err)
		}
		if string(got) != tt.want {
			t.Errorf("Marshal(%q) = %s, want %s", tt.id, got, tt.want)
		}
	}
}

func TestThermostat_SetPoint(t *testing.T) {
	th := Thermostat{SetPoints: []SetPoint{{Type: SetPointCool, Temperature: 700}}}

	if sp, ok := th.SetPoint(SetPointCool); !ok || sp.Temperature != 700 {
		t.Errorf("SetPoint(Cool) = %+v, %v", sp, ok)
	}
	if _, ok := th.SetPoint(SetPointHeat); ok {
		t.Error("SetPoint(Heat) should be absent")
	}
}
