package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// recordingPlugin captures the hook calls it receives.
type recordingPlugin struct {
	mu     sync.Mutex
	name   string
	events *[]string
	resp   Response
	err    error
}

func (p *recordingPlugin) WillSend(_ context.Context, req *Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	*p.events = append(*p.events, p.name+":send:"+req.Target)
}

func (p *recordingPlugin) DidReceive(_ context.Context, req *Request, resp Response, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	*p.events = append(*p.events, p.name+":receive:"+req.Target)
	p.resp = resp
	p.err = err
}

func TestRestyTransportDispatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/v1/users" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("dry_run"); got != "true" {
			t.Errorf("query dry_run = %q", got)
		}
		if got := r.Header.Get("X-Client"); got != "tests" {
			t.Errorf("default header missing, got %q", got)
		}
		if got := r.Header.Get("X-Request"); got != "1" {
			t.Errorf("request header missing, got %q", got)
		}
		if got := r.Header.Get("User-Agent"); got != "ua/1" {
			t.Errorf("user agent = %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("content type = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"name":"A"}` {
			t.Errorf("body = %s", body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":1}`)
	}))
	defer srv.Close()

	var events []string
	first := &recordingPlugin{name: "first", events: &events}
	second := &recordingPlugin{name: "second", events: &events}

	tr := NewRestyTransport(Options{
		BaseURL:   srv.URL + "/v1",
		Timeout:   2 * time.Second,
		UserAgent: "ua/1",
		Headers:   map[string]string{"X-Client": "tests"},
	}, first, nil, second)

	resp, err := tr.Dispatch(context.Background(), &Request{
		Target:      "create_user",
		Method:      http.MethodPost,
		Path:        "/users",
		Query:       url.Values{"dry_run": []string{"true"}},
		Headers:     map[string]string{"X-Request": "1"},
		Body:        []byte(`{"name":"A"}`),
		ContentType: "application/json",
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if resp.StatusCode() != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode())
	}
	if string(resp.Body()) != `{"id":1}` {
		t.Fatalf("body = %s", resp.Body())
	}
	if resp.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("header = %v", resp.Header())
	}

	want := []string{
		"first:send:create_user",
		"second:send:create_user",
		"first:receive:create_user",
		"second:receive:create_user",
	}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Fatal(diff)
	}
	if first.resp == nil || first.err != nil {
		t.Fatalf("plugin did not observe the response: %v %v", first.resp, first.err)
	}
}

func TestRestyTransportNon2xxIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	resp, err := NewRestyTransport(Options{BaseURL: srv.URL}).Dispatch(context.Background(), &Request{
		Method: http.MethodGet,
		Path:   "/missing",
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if resp.StatusCode() != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode())
	}
}

func TestRestyTransportNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	var events []string
	plugin := &recordingPlugin{name: "p", events: &events}
	_, err := NewRestyTransport(Options{BaseURL: base, Timeout: time.Second}, plugin).Dispatch(context.Background(), &Request{
		Target: "ping",
		Method: http.MethodGet,
		Path:   "/ping",
	})
	if err == nil {
		t.Fatalf("expected transport error")
	}
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected *TransportError, got %T", err)
	}
	if terr.URL != base+"/ping" {
		t.Fatalf("URL = %q", terr.URL)
	}
	if terr.Unwrap() == nil {
		t.Fatalf("expected underlying error")
	}
	if plugin.resp != nil || plugin.err == nil {
		t.Fatalf("plugin should observe the failure, resp=%v err=%v", plugin.resp, plugin.err)
	}
}

func TestRestyTransportHonoursContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRestyTransport(Options{BaseURL: srv.URL}).Dispatch(ctx, &Request{Method: http.MethodGet, Path: "/"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRequestKey(t *testing.T) {
	a := (&Request{Method: "GET", Path: "/users", Query: url.Values{"b": {"2"}, "a": {"1"}}}).Key()
	if a != "GET /users?a=1&b=2" {
		t.Fatalf("Key = %q", a)
	}
	withBody := (&Request{Method: "POST", Path: "/users", Body: []byte("x")}).Key()
	other := (&Request{Method: "POST", Path: "/users", Body: []byte("y")}).Key()
	if withBody == other {
		t.Fatalf("body digest should distinguish keys: %q", withBody)
	}
}
