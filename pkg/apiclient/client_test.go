package apiclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/samvad-hq/endpointkit/pkg/endpoint"
	"github.com/samvad-hq/endpointkit/pkg/httpclient"
)

type user struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type testTarget endpoint.Descriptor

func (t testTarget) Descriptor() endpoint.Descriptor { return endpoint.Descriptor(t) }

var listUsers = testTarget{Name: "list_users", Method: http.MethodGet, Path: "/users"}

type fakeResponse struct {
	status int
	body   string
}

func (r fakeResponse) Body() []byte            { return []byte(r.body) }
func (r fakeResponse) StatusCode() int         { return r.status }
func (r fakeResponse) Header() http.Header     { return http.Header{} }
func (r fakeResponse) Duration() time.Duration { return time.Millisecond }

type fakeTransport struct {
	mu   sync.Mutex
	resp fakeResponse
	err  error
	reqs []*httpclient.Request
}

func (f *fakeTransport) Dispatch(_ context.Context, req *httpclient.Request) (httpclient.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func TestRequestManyWithFieldPath(t *testing.T) {
	ft := &fakeTransport{resp: fakeResponse{status: 200, body: `{"data":[{"id":1,"name":"A"},{"id":2,"name":"B"}]}`}}
	c := New[testTarget](WithTransport(ft))

	got, err := FetchMany[user](context.Background(), c, listUsers, "data")
	if err != nil {
		t.Fatalf("FetchMany: %v", err)
	}
	want := []user{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("users mismatch (-want +got):\n%s", diff)
	}
	if ft.reqs[0].Target != "list_users" || ft.reqs[0].Path != "/users" || ft.reqs[0].Method != http.MethodGet {
		t.Fatalf("unexpected request %+v", ft.reqs[0])
	}
}

func TestNon2xxIsHTTPStatusError(t *testing.T) {
	ft := &fakeTransport{resp: fakeResponse{status: 404, body: `{"error":"missing"}`}}
	c := New[testTarget](WithTransport(ft), WithBaseURL("https://api.example.test"))

	_, err := FetchOne[user](context.Background(), c, listUsers, "")
	var se *HTTPStatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected HTTPStatusError, got %v", err)
	}
	if se.StatusCode != 404 || se.URL != "https://api.example.test/users" {
		t.Fatalf("unexpected status error %+v", se)
	}
	if string(se.Body) != `{"error":"missing"}` {
		t.Fatalf("body not preserved: %s", se.Body)
	}

	_, err = FetchMany[user](context.Background(), c, listUsers, "data")
	if StatusCode(err) != 404 {
		t.Fatalf("RequestMany status = %d (%v)", StatusCode(err), err)
	}
}

func TestStatusCheckedBeforeDecoding(t *testing.T) {
	// The 500 body would decode fine into user; it must still fail.
	ft := &fakeTransport{resp: fakeResponse{status: 500, body: `{"id":1,"name":"A"}`}}
	c := New[testTarget](WithTransport(ft))

	got, err := FetchOne[user](context.Background(), c, listUsers, "")
	if !IsHTTPStatusError(err) {
		t.Fatalf("expected HTTPStatusError, got %v", err)
	}
	if got != (user{}) {
		t.Fatalf("expected zero value, got %+v", got)
	}
}

func TestDecodeMismatch(t *testing.T) {
	ft := &fakeTransport{resp: fakeResponse{status: 200, body: `{"id":"not-an-int"}`}}
	c := New[testTarget](WithTransport(ft))

	_, err := FetchOne[struct {
		ID int `json:"id"`
	}](context.Background(), c, listUsers, "")
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if de.Path != "" {
		t.Fatalf("root decode path = %q", de.Path)
	}
}

func TestFieldPathErrors(t *testing.T) {
	body := `{"data":{"items":[{"id":1}],"count":1}}`
	cases := []struct {
		name     string
		path     string
		wantPath string
		wantErr  error
	}{
		{"missing key", "data.nope", "data.nope", ErrFieldNotFound},
		{"index out of range", "data.items.3", "data.items.3", ErrIndexOutOfRange},
		{"scalar", "data.count.x", "data.count.x", ErrNotContainer},
		{"empty segment", "data..items", "data.", ErrEmptySegment},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := New[testTarget](WithTransport(&fakeTransport{resp: fakeResponse{status: 200, body: body}}))
			_, err := FetchOne[user](context.Background(), c, listUsers, tc.path)
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("expected DecodeError, got %v", err)
			}
			if de.Path != tc.wantPath {
				t.Fatalf("path = %q, want %q", de.Path, tc.wantPath)
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestNumericSegmentIndexesArray(t *testing.T) {
	body := `{"data":[{"id":1,"name":"A"},{"id":2,"name":"B"}]}`
	c := New[testTarget](WithTransport(&fakeTransport{resp: fakeResponse{status: 200, body: body}}))

	got, err := FetchOne[user](context.Background(), c, listUsers, "data.1")
	if err != nil {
		t.Fatalf("FetchOne: %v", err)
	}
	if got != (user{ID: 2, Name: "B"}) {
		t.Fatalf("got %+v", got)
	}
}

func TestEmptyArrayProducesEmptySlice(t *testing.T) {
	c := New[testTarget](WithTransport(&fakeTransport{resp: fakeResponse{status: 200, body: `{"data":[]}`}}))

	got, err := FetchMany[user](context.Background(), c, listUsers, "data")
	if err != nil {
		t.Fatalf("FetchMany: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestManyRejectsNonArray(t *testing.T) {
	for _, body := range []string{`{"data":{"id":1}}`, `{"data":null}`} {
		c := New[testTarget](WithTransport(&fakeTransport{resp: fakeResponse{status: 200, body: body}}))
		_, err := FetchMany[user](context.Background(), c, listUsers, "data")
		if !errors.Is(err, ErrNotArray) {
			t.Fatalf("%s: expected ErrNotArray, got %v", body, err)
		}
	}
}

func TestManyReportsElementPath(t *testing.T) {
	body := `[{"id":1},{"id":"two"}]`
	c := New[testTarget](WithTransport(&fakeTransport{resp: fakeResponse{status: 200, body: body}}))

	_, err := FetchMany[user](context.Background(), c, listUsers, "")
	var de *DecodeError
	if !errors.As(err, &de) || de.Path != "1" {
		t.Fatalf("expected DecodeError at element 1, got %v", err)
	}
}

func TestRootPathEqualsWholeBody(t *testing.T) {
	body := `[{"id":1,"name":"A"}]`
	c := New[testTarget](WithTransport(&fakeTransport{resp: fakeResponse{status: 200, body: body}}))

	got, err := FetchMany[user](context.Background(), c, listUsers, "")
	if err != nil {
		t.Fatalf("FetchMany: %v", err)
	}
	if diff := cmp.Diff([]user{{ID: 1, Name: "A"}}, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestStrictDecodingRejectsUnknownFields(t *testing.T) {
	body := `{"id":1,"name":"A","email":"a@example.test"}`

	lenient := New[testTarget](WithTransport(&fakeTransport{resp: fakeResponse{status: 200, body: body}}))
	if _, err := FetchOne[user](context.Background(), lenient, listUsers, ""); err != nil {
		t.Fatalf("lenient decode: %v", err)
	}

	strict := New[testTarget](WithTransport(&fakeTransport{resp: fakeResponse{status: 200, body: body}}), WithStrictDecoding(true))
	if _, err := FetchOne[user](context.Background(), strict, listUsers, ""); !IsDecodeError(err) {
		t.Fatalf("strict decode: expected DecodeError, got %v", err)
	}
}

func TestTransportErrorPassesThrough(t *testing.T) {
	terr := &TransportError{Method: http.MethodGet, URL: "/users", Err: errors.New("connection refused")}
	c := New[testTarget](WithTransport(&fakeTransport{err: terr}))

	_, err := FetchOne[user](context.Background(), c, listUsers, "")
	if err != terr {
		t.Fatalf("expected the transport error unchanged, got %v", err)
	}
}

func TestInvalidTargetFailsBeforeDispatch(t *testing.T) {
	ft := &fakeTransport{resp: fakeResponse{status: 200, body: `{}`}}
	c := New[testTarget](WithTransport(ft))

	_, err := FetchOne[user](context.Background(), c, testTarget{Name: "bad", Path: "/users/{id}"}, "")
	if err == nil {
		t.Fatalf("expected error for unresolved placeholder")
	}
	if len(ft.reqs) != 0 {
		t.Fatalf("transport should not be called, got %d requests", len(ft.reqs))
	}
}

func TestBodyEncoding(t *testing.T) {
	ft := &fakeTransport{resp: fakeResponse{status: 201, body: `{"id":3,"name":"C"}`}}
	c := New[testTarget](WithTransport(ft))

	create := testTarget{Method: http.MethodPost, Path: "/users", Body: user{Name: "C"}, Encoding: endpoint.EncodingJSON}
	if _, err := FetchOne[user](context.Background(), c, create, ""); err != nil {
		t.Fatalf("json body: %v", err)
	}
	form := testTarget{Method: http.MethodPost, Path: "/login", Body: url.Values{"user": {"a"}}, Encoding: endpoint.EncodingForm}
	if _, err := FetchOne[user](context.Background(), c, form, ""); err != nil {
		t.Fatalf("form body: %v", err)
	}

	if got := string(ft.reqs[0].Body); got != `{"id":0,"name":"C"}` || ft.reqs[0].ContentType != contentTypeJSON {
		t.Fatalf("json request = %s (%s)", got, ft.reqs[0].ContentType)
	}
	if got := string(ft.reqs[1].Body); got != "user=a" || ft.reqs[1].ContentType != contentTypeForm {
		t.Fatalf("form request = %s (%s)", got, ft.reqs[1].ContentType)
	}
}

func TestTransportBuiltOnceUnderConcurrency(t *testing.T) {
	var builds atomic.Int32
	ft := &fakeTransport{resp: fakeResponse{status: 200, body: `[]`}}
	c := New[testTarget](WithTransportFactory(func() httpclient.Transport {
		builds.Add(1)
		return ft
	}))

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := FetchMany[user](context.Background(), c, listUsers, ""); err != nil {
				t.Errorf("FetchMany: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := builds.Load(); n != 1 {
		t.Fatalf("transport built %d times", n)
	}
	if c.Transport() != c.Transport() {
		t.Fatalf("Transport should return the same handle")
	}
}

func TestEndToEndAgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users" || r.URL.Query().Get("page") != "2" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"data":[{"id":7,"name":"G"}]}`)
	}))
	defer srv.Close()

	c := New[testTarget](WithBaseURL(srv.URL), WithVerboseLogging(false))
	target := testTarget(endpoint.Descriptor(listUsers).WithQuery("page", "2"))

	got, err := FetchMany[user](context.Background(), c, target, "data")
	if err != nil {
		t.Fatalf("FetchMany: %v", err)
	}
	if diff := cmp.Diff([]user{{ID: 7, Name: "G"}}, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}

	_, err = FetchMany[user](context.Background(), c, testTarget{Method: http.MethodGet, Path: "/nope"}, "data")
	if StatusCode(err) != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestIgnoreStatusCodes(t *testing.T) {
	err := &HTTPStatusError{StatusCode: 404}
	if IgnoreStatusCodes(err, 404, 410) != nil {
		t.Fatalf("404 should be ignored")
	}
	if IgnoreStatusCodes(err, 500) == nil {
		t.Fatalf("404 should not be ignored by 500")
	}
	other := errors.New("boom")
	if IgnoreStatusCodes(other, 404) != other {
		t.Fatalf("non-status errors pass through")
	}
}

type countingLogger struct{ entries atomic.Int32 }

func (l *countingLogger) InfoObj(string, string, interface{})  { l.entries.Add(1) }
func (l *countingLogger) DebugObj(string, string, interface{}) { l.entries.Add(1) }
func (l *countingLogger) WarnObj(string, string, interface{})  { l.entries.Add(1) }
func (l *countingLogger) ErrorObj(string, string, interface{}) { l.entries.Add(1) }

func TestMalformedBodyThroughLoggingMiddleware(t *testing.T) {
	status := atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(int(status.Load()))
		_, _ = io.WriteString(w, `{not json`)
	}))
	defer srv.Close()

	log := &countingLogger{}
	c := New[testTarget](WithBaseURL(srv.URL), WithLogger(log), WithVerboseLogging(true))

	status.Store(http.StatusOK)
	if _, err := FetchOne[user](context.Background(), c, listUsers, ""); !IsDecodeError(err) {
		t.Fatalf("2xx with malformed body: expected DecodeError, got %v", err)
	}
	status.Store(http.StatusBadGateway)
	if _, err := FetchOne[user](context.Background(), c, listUsers, ""); StatusCode(err) != http.StatusBadGateway {
		t.Fatalf("5xx with malformed body: expected HTTPStatusError, got %v", err)
	}
	if log.entries.Load() == 0 {
		t.Fatalf("logging middleware was not invoked")
	}
}

func TestInjectedTransportIsLogged(t *testing.T) {
	ft := &fakeTransport{resp: fakeResponse{status: 200, body: `{"id":1}`}}
	log := &countingLogger{}
	var events []string
	seen := &seenPlugin{events: &events}

	c := New[testTarget](WithTransport(ft), WithLogger(log), WithPlugins(seen))
	if _, err := FetchOne[user](context.Background(), c, listUsers, ""); err != nil {
		t.Fatalf("FetchOne: %v", err)
	}
	if log.entries.Load() == 0 {
		t.Fatalf("injected transport bypassed request logging")
	}
	if len(events) != 1 {
		t.Fatalf("configured plugin should run around an injected transport, got %v", events)
	}

	bareLog := &countingLogger{}
	bare := New[testTarget](WithTransport(ft), WithLogger(bareLog), WithBareTransport())
	if _, err := FetchOne[user](context.Background(), bare, listUsers, ""); err != nil {
		t.Fatalf("FetchOne bare: %v", err)
	}
	if n := bareLog.entries.Load(); n != 0 {
		t.Fatalf("bare transport should not log, got %d entries", n)
	}
}

type seenPlugin struct{ events *[]string }

func (p *seenPlugin) WillSend(context.Context, *httpclient.Request) {}
func (p *seenPlugin) DidReceive(_ context.Context, req *httpclient.Request, _ httpclient.Response, _ error) {
	*p.events = append(*p.events, req.Target)
}
