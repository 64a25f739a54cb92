package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/arcletproject/entari-console/internal/notify"
)

type staticAddr string

func (s staticAddr) BaseURL() string { return string(s) }

// mutableAuth lets tests swap the credential and address between calls,
// the way login and runtime resolution do at runtime.
type mutableAuth struct {
	mu    sync.Mutex
	token string
	base  string
}

func (m *mutableAuth) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

func (m *mutableAuth) BaseURL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.base
}

func (m *mutableAuth) set(token, base string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if token != "" {
		m.token = token
	}
	if base != "" {
		m.base = base
	}
}

func collectNotices(sub *notify.Subscription) []notify.Notice {
	var out []notify.Notice
	for {
		select {
		case n := <-sub.C():
			out = append(out, n)
		case <-time.After(50 * time.Millisecond):
			return out
		}
	}
}

func TestCredentialReadAtSendTime(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	auth := &mutableAuth{base: srv.URL}
	c := New(auth, auth, nil)

	auth.set("A", "")
	if _, err := c.ListInstances(context.Background()); err != nil {
		t.Fatalf("first call: %v", err)
	}
	auth.set("B", "")
	if _, err := c.ListInstances(context.Background()); err != nil {
		t.Fatalf("second call: %v", err)
	}

	if len(seen) != 2 || seen[0] != "A" || seen[1] != "B" {
		t.Errorf("credentials captured stale: %v", seen)
	}
}

func TestEmptyCredentialStillAttached(t *testing.T) {
	var hadHeader bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hadHeader = r.Header["Authorization"]
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	auth := &mutableAuth{base: srv.URL}
	c := New(auth, auth, nil)
	if _, err := c.ListInstances(context.Background()); err != nil {
		t.Fatalf("call: %v", err)
	}
	if !hadHeader {
		t.Error("unauthenticated call did not carry an Authorization header")
	}
}

func TestAddressReadAtSendTime(t *testing.T) {
	hit := map[string]int{}
	newSrv := func(name string) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hit[name]++
			w.Write([]byte(`[]`))
		}))
	}
	first := newSrv("first")
	defer first.Close()
	second := newSrv("second")
	defer second.Close()

	auth := &mutableAuth{base: first.URL}
	c := New(auth, auth, nil)
	if _, err := c.ListInstances(context.Background()); err != nil {
		t.Fatalf("first call: %v", err)
	}

	// Simulates runtime resolution settling after the client was built.
	auth.set("", second.URL)
	if _, err := c.ListInstances(context.Background()); err != nil {
		t.Fatalf("second call: %v", err)
	}

	if hit["first"] != 1 || hit["second"] != 1 {
		t.Errorf("address captured stale: %v", hit)
	}
}

func TestServerMessageTakesPrecedence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success": false, "message": "instance is already running"}`))
	}))
	defer srv.Close()

	bus := notify.New()
	defer bus.Shutdown()
	sub := bus.Subscribe()

	auth := &mutableAuth{base: srv.URL, token: "tok"}
	c := New(auth, auth, bus)

	err := c.StartInstance(context.Background(), 1)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Message != "instance is already running" {
		t.Errorf("message: got %q", apiErr.Message)
	}
	if apiErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("status: got %d", apiErr.StatusCode)
	}

	notices := collectNotices(sub)
	if len(notices) != 1 || notices[0].Message != "instance is already running" {
		t.Errorf("notices: %+v", notices)
	}
	if notices[0].Source != notify.SourcePipeline {
		t.Errorf("source: got %q", notices[0].Source)
	}
}

func TestStatusTextWhenNoServerMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "plain text failure", http.StatusBadGateway)
	}))
	defer srv.Close()

	auth := &mutableAuth{base: srv.URL}
	c := New(auth, auth, nil)

	err := c.StopInstance(context.Background(), 2)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Message != "502 Bad Gateway" {
		t.Errorf("message: got %q", apiErr.Message)
	}
}

func TestTransportFailurePublishesAndRejects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // force connection errors

	bus := notify.New()
	defer bus.Shutdown()
	sub := bus.Subscribe()

	auth := &mutableAuth{base: srv.URL}
	c := New(auth, auth, bus)

	if _, err := c.ListInstances(context.Background()); err == nil {
		t.Fatal("expected an error from a dead server")
	}
	notices := collectNotices(sub)
	if len(notices) != 1 || notices[0].Message == "" {
		t.Errorf("notices: %+v", notices)
	}
}

func TestLoginFailureIsNotTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The backend reports bad credentials with HTTP 200.
		w.Write([]byte(`{"success": false, "message": "wrong name or password", "token": ""}`))
	}))
	defer srv.Close()

	bus := notify.New()
	defer bus.Shutdown()
	sub := bus.Subscribe()

	auth := &mutableAuth{base: srv.URL}
	c := New(auth, auth, bus)

	result, err := c.Login(context.Background(), "Entari", "nope")
	if err != nil {
		t.Fatalf("login transport error: %v", err)
	}
	if result.Success {
		t.Error("expected Success=false")
	}
	if result.Message != "wrong name or password" {
		t.Errorf("message: got %q", result.Message)
	}
	if notices := collectNotices(sub); len(notices) != 0 {
		t.Errorf("login failure should not hit the notification bus: %+v", notices)
	}
}

func TestLoginSuccessCarriesSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/login" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{
            "success": true,
            "token": "fresh-token",
            "user": {"name": "Entari", "email": "e@example.com"},
            "instances": [{"id": 1, "name": "config", "type": "ws", "host": "127.0.0.1",
                "port": 5140, "filename": "config.yml", "state": "stopped"}]
        }`))
	}))
	defer srv.Close()

	auth := &mutableAuth{base: srv.URL}
	c := New(auth, auth, nil)

	result, err := c.Login(context.Background(), "Entari", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !result.Success || result.Token != "fresh-token" {
		t.Errorf("result: %+v", result)
	}
	if result.User.Name != "Entari" || result.User.Email != "e@example.com" {
		t.Errorf("user: %+v", result.User)
	}
	if len(result.Instances) != 1 || result.Instances[0].ID != 1 {
		t.Errorf("instances: %+v", result.Instances)
	}
}

func TestLogoutDecodesBoolean(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`true`))
	}))
	defer srv.Close()

	auth := &mutableAuth{base: srv.URL}
	c := New(auth, auth, nil)
	ok, err := c.Logout(context.Background())
	if err != nil {
		t.Fatalf("logout: %v", err)
	}
	if !ok {
		t.Error("expected true")
	}
}

func TestIsUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message": "invalid token"}`))
	}))
	defer srv.Close()

	auth := &mutableAuth{base: srv.URL}
	c := New(auth, auth, nil)
	_, err := c.ListInstances(context.Background())
	if !IsUnauthorized(err) {
		t.Errorf("expected unauthorized, got %v", err)
	}
}
