package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"taskboard/internal/pages"
	"taskboard/internal/session"
	"taskboard/internal/storage/sqlite"
)

type testServer struct {
	srv   *Server
	store *sqlite.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "server.db"), logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	sessions, err := session.NewManager(session.Options{Secret: []byte("0123456789abcdef"), TTL: time.Hour})
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}

	renderer := pages.NewRenderer(pages.EmbeddedSource{}, logger)
	return &testServer{srv: New(store, sessions, renderer, logger), store: store}
}

func (ts *testServer) do(t *testing.T, method, target string, body io.Reader, contentType string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, ck := range cookies {
		if ck != nil {
			req.AddCookie(ck)
		}
	}
	rec := httptest.NewRecorder()
	ts.srv.Engine().ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) postForm(t *testing.T, target, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{"username": {username}, "password": {password}}
	return ts.do(t, http.MethodPost, target, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
}

func (ts *testServer) postJSON(t *testing.T, target string, payload any, ck *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return ts.do(t, http.MethodPost, target, bytes.NewReader(data), "application/json", ck)
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == session.CookieName {
			return ck
		}
	}
	return nil
}

// login registers username and returns its session cookie.
func (ts *testServer) login(t *testing.T, username string) *http.Cookie {
	t.Helper()
	if rec := ts.postForm(t, "/register", username, "pw-"+username); rec.Code != http.StatusFound {
		t.Fatalf("register %s: status %d body %q", username, rec.Code, rec.Body.String())
	}
	rec := ts.postForm(t, "/login", username, "pw-"+username)
	if rec.Code != http.StatusFound {
		t.Fatalf("login %s: status %d body %q", username, rec.Code, rec.Body.String())
	}
	ck := sessionCookie(rec)
	if ck == nil || ck.Value == "" {
		t.Fatalf("login %s: no session cookie", username)
	}
	return ck
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/tasks", ""},
		{http.MethodPost, "/tasks", `{"title":"x","assignee":"y"}`},
		{http.MethodGet, "/tasks/1/comments", ""},
		{http.MethodPost, "/tasks/1/comments", `{"comment":"hi"}`},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := ts.do(t, tt.method, tt.path, strings.NewReader(tt.body), "application/json")
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
			resp := decode[map[string]string](t, rec)
			if resp["error"] != "Unauthorized" {
				t.Errorf("unexpected body %v", resp)
			}
		})
	}

	tasks, err := ts.store.ListTasks(context.Background())
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	comments, err := ts.store.ListCommentsByTask(context.Background(), 1)
	if err != nil {
		t.Fatalf("list comments: %v", err)
	}
	if len(tasks) != 0 || len(comments) != 0 {
		t.Errorf("unauthorized requests reached the store: %d tasks, %d comments", len(tasks), len(comments))
	}
}

func TestForgedSessionRejected(t *testing.T) {
	ts := newTestServer(t)
	forged := &http.Cookie{Name: session.CookieName, Value: "bob"}
	if rec := ts.do(t, http.MethodGet, "/tasks", nil, "", forged); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.postForm(t, "/register", "alice", "secret")
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
		t.Fatalf("register: status %d location %q", rec.Code, rec.Header().Get("Location"))
	}
	if sessionCookie(rec) != nil {
		t.Error("register must not start a session")
	}

	rec = ts.postForm(t, "/register", "alice", "other")
	if rec.Code != http.StatusOK || rec.Body.String() != "Username already exists" {
		t.Fatalf("duplicate register: status %d body %q", rec.Code, rec.Body.String())
	}

	rec = ts.postForm(t, "/login", "alice", "secret")
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/" {
		t.Fatalf("login: status %d location %q", rec.Code, rec.Header().Get("Location"))
	}
	ck := sessionCookie(rec)
	if ck == nil {
		t.Fatal("login did not set session cookie")
	}

	index := ts.do(t, http.MethodGet, "/", nil, "", ck)
	if index.Code != http.StatusOK || !strings.Contains(index.Body.String(), "Welcome, alice") {
		t.Errorf("index: status %d body %q", index.Code, index.Body.String())
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	ts := newTestServer(t)
	ts.postForm(t, "/register", "alice", "secret")

	wrongPassword := ts.postForm(t, "/login", "alice", "nope")
	unknownUser := ts.postForm(t, "/login", "mallory", "secret")

	for name, rec := range map[string]*httptest.ResponseRecorder{"wrong password": wrongPassword, "unknown user": unknownUser} {
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", name, rec.Code)
		}
		if rec.Body.String() != "Invalid username or password" {
			t.Errorf("%s: unexpected body %q", name, rec.Body.String())
		}
		if ck := sessionCookie(rec); ck != nil {
			t.Errorf("%s: session cookie set on failure", name)
		}
	}
}

func TestLoginMissingFields(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/login", strings.NewReader("username=alice"), "application/x-www-form-urlencoded")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestIndexRedirectsWithoutSession(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/", nil, "")
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
		t.Fatalf("expected redirect to /login, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestPagesRender(t *testing.T) {
	ts := newTestServer(t)
	for _, path := range []string{"/login", "/register"} {
		rec := ts.do(t, http.MethodGet, path, nil, "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
		if !strings.Contains(rec.Header().Get("Content-Type"), "text/html") {
			t.Errorf("%s: unexpected content type %q", path, rec.Header().Get("Content-Type"))
		}
		if !strings.Contains(rec.Body.String(), "<form") {
			t.Errorf("%s: page has no form", path)
		}
	}
}

func TestCreateAndListTasks(t *testing.T) {
	ts := newTestServer(t)
	ck := ts.login(t, "alice")

	empty := ts.do(t, http.MethodGet, "/tasks", nil, "", ck)
	if empty.Code != http.StatusOK || strings.TrimSpace(empty.Body.String()) != "[]" {
		t.Fatalf("empty list: status %d body %q", empty.Code, empty.Body.String())
	}

	rec := ts.postJSON(t, "/tasks", map[string]any{"title": "Fix bug", "description": "crash on save", "assignee": "alice"}, ck)
	if rec.Code != http.StatusOK {
		t.Fatalf("create: status %d body %q", rec.Code, rec.Body.String())
	}
	if msg := decode[map[string]string](t, rec); msg["message"] != "Task created!" {
		t.Errorf("unexpected create response %v", msg)
	}

	list := ts.do(t, http.MethodGet, "/tasks", nil, "", ck)
	if list.Code != http.StatusOK {
		t.Fatalf("list: status %d", list.Code)
	}
	tasks := decode[[]map[string]any](t, list)
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	got := tasks[0]
	if got["title"] != "Fix bug" || got["assignee"] != "alice" || got["status"] != "To Do" || got["description"] != "crash on save" {
		t.Errorf("unexpected task %v", got)
	}
	if id, ok := got["id"].(float64); !ok || id < 1 {
		t.Errorf("expected numeric id, got %v", got["id"])
	}
}

func TestCreateTaskValidation(t *testing.T) {
	ts := newTestServer(t)
	ck := ts.login(t, "alice")

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"missing title", `{"assignee":"alice"}`, "title is required"},
		{"missing assignee", `{"title":"Fix bug"}`, "assignee is required"},
		{"malformed json", `{"title":`, "invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/tasks", strings.NewReader(tt.body), "application/json", ck)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if resp := decode[map[string]string](t, rec); resp["error"] != tt.wantErr {
				t.Errorf("expected %q, got %q", tt.wantErr, resp["error"])
			}
		})
	}
}

func TestCommentsUseSessionAuthor(t *testing.T) {
	ts := newTestServer(t)
	ck := ts.login(t, "bob")

	rec := ts.postJSON(t, "/tasks/1/comments", map[string]string{"comment": "looks good", "author": "mallory"}, ck)
	if rec.Code != http.StatusOK {
		t.Fatalf("add comment: status %d body %q", rec.Code, rec.Body.String())
	}
	if msg := decode[map[string]string](t, rec); msg["message"] != "Comment added!" {
		t.Errorf("unexpected response %v", msg)
	}

	list := ts.do(t, http.MethodGet, "/tasks/1/comments", nil, "", ck)
	comments := decode[[]map[string]any](t, list)
	if len(comments) != 1 {
		t.Fatalf("expected 1 comment, got %d", len(comments))
	}
	c := comments[0]
	if c["author"] != "bob" || c["task_id"] != float64(1) || c["comment"] != "looks good" {
		t.Errorf("unexpected comment %v", c)
	}

	other := ts.do(t, http.MethodGet, "/tasks/2/comments", nil, "", ck)
	if other.Code != http.StatusOK || strings.TrimSpace(other.Body.String()) != "[]" {
		t.Errorf("task 2: status %d body %q", other.Code, other.Body.String())
	}
}

func TestCommentValidation(t *testing.T) {
	ts := newTestServer(t)
	ck := ts.login(t, "bob")

	rec := ts.postJSON(t, "/tasks/1/comments", map[string]string{}, ck)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing comment: expected 400, got %d", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/tasks/abc/comments", nil, "", ck)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("non-numeric id: expected 404, got %d", rec.Code)
	}
}

func TestLogout(t *testing.T) {
	ts := newTestServer(t)
	ck := ts.login(t, "alice")

	for i := 0; i < 2; i++ {
		rec := ts.do(t, http.MethodGet, "/logout", nil, "", ck)
		if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
			t.Fatalf("logout %d: status %d location %q", i, rec.Code, rec.Header().Get("Location"))
		}
		cleared := sessionCookie(rec)
		if cleared == nil || cleared.Value != "" {
			t.Fatalf("logout %d: session not cleared", i)
		}
		ck = cleared
	}

	rec := ts.do(t, http.MethodGet, "/tasks", nil, "", ck)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("after logout: expected 401, got %d", rec.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/healthz", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health: status %d", rec.Code)
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Error("expected generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	echoed := httptest.NewRecorder()
	ts.srv.Engine().ServeHTTP(echoed, req)
	if got := echoed.Header().Get(requestIDHeader); got != "abc-123" {
		t.Errorf("expected client request id to be echoed, got %q", got)
	}
}

func TestRegisterLongPassword(t *testing.T) {
	ts := newTestServer(t)
	long := strings.Repeat("p", 80)

	rec := ts.postForm(t, "/register", "carol", long)
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
		t.Fatalf("register 80 byte password: status %d body %q", rec.Code, rec.Body.String())
	}

	rec = ts.postForm(t, "/login", "carol", long)
	if rec.Code != http.StatusFound || sessionCookie(rec) == nil {
		t.Fatalf("login 80 byte password: status %d body %q", rec.Code, rec.Body.String())
	}
}

func TestEmptyFormValuesAccepted(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.postForm(t, "/register", "dave", "")
	if rec.Code != http.StatusFound {
		t.Fatalf("register empty password: status %d body %q", rec.Code, rec.Body.String())
	}
	rec = ts.postForm(t, "/login", "dave", "")
	if rec.Code != http.StatusFound || sessionCookie(rec) == nil {
		t.Fatalf("login empty password: status %d body %q", rec.Code, rec.Body.String())
	}

	if rec := ts.postForm(t, "/register", "", "pw"); rec.Code != http.StatusFound {
		t.Fatalf("register empty username: status %d body %q", rec.Code, rec.Body.String())
	}
	rec = ts.postForm(t, "/login", "", "pw")
	ck := sessionCookie(rec)
	if rec.Code != http.StatusFound || ck == nil {
		t.Fatalf("login empty username: status %d body %q", rec.Code, rec.Body.String())
	}
	if rec := ts.postJSON(t, "/tasks/1/comments", map[string]string{"comment": "hi"}, ck); rec.Code != http.StatusOK {
		t.Fatalf("comment as empty username: status %d body %q", rec.Code, rec.Body.String())
	}
}

func TestEmptyStringsArePresent(t *testing.T) {
	ts := newTestServer(t)
	ck := ts.login(t, "bob")

	rec := ts.postJSON(t, "/tasks/1/comments", map[string]string{"comment": ""}, ck)
	if rec.Code != http.StatusOK {
		t.Fatalf("empty comment: status %d body %q", rec.Code, rec.Body.String())
	}
	if msg := decode[map[string]string](t, rec); msg["message"] != "Comment added!" {
		t.Errorf("unexpected response %v", msg)
	}

	rec = ts.postJSON(t, "/tasks", map[string]string{"title": "", "assignee": "a"}, ck)
	if rec.Code != http.StatusOK {
		t.Fatalf("empty title: status %d body %q", rec.Code, rec.Body.String())
	}

	tasks := decode[[]map[string]any](t, ts.do(t, http.MethodGet, "/tasks", nil, "", ck))
	if len(tasks) != 1 || tasks[0]["title"] != "" {
		t.Errorf("unexpected tasks %v", tasks)
	}
}

func TestTaskStatusPresence(t *testing.T) {
	ts := newTestServer(t)
	ck := ts.login(t, "alice")

	payloads := []map[string]any{
		{"title": "absent", "assignee": "a"},
		{"title": "null", "assignee": "a", "status": nil},
		{"title": "empty", "assignee": "a", "status": ""},
		{"title": "doing", "assignee": "a", "status": "Doing"},
	}
	for _, p := range payloads {
		if rec := ts.postJSON(t, "/tasks", p, ck); rec.Code != http.StatusOK {
			t.Fatalf("create %v: status %d body %q", p["title"], rec.Code, rec.Body.String())
		}
	}

	tasks := decode[[]map[string]any](t, ts.do(t, http.MethodGet, "/tasks", nil, "", ck))
	if len(tasks) != len(payloads) {
		t.Fatalf("expected %d tasks, got %d", len(payloads), len(tasks))
	}
	want := []any{"To Do", nil, "", "Doing"}
	for i, task := range tasks {
		if task["status"] != want[i] {
			t.Errorf("task %v: expected status %v, got %v", task["title"], want[i], task["status"])
		}
	}

	rec := ts.do(t, http.MethodPost, "/tasks", strings.NewReader(`{"title":"x","assignee":"a","status":5}`), "application/json", ck)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("non-string status: expected 400, got %d", rec.Code)
	}
}
