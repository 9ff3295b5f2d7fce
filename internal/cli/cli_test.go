// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/scribe-tui/internal/account"
	"github.com/jeranaias/scribe-tui/internal/api"
	"github.com/jeranaias/scribe-tui/internal/config"
	"github.com/jeranaias/scribe-tui/internal/conversation"
	"github.com/jeranaias/scribe-tui/internal/storage"
	"github.com/jeranaias/scribe-tui/internal/ui/chat"
)

// =============================================================================
// TEST BACKEND
// =============================================================================

// fakeServer is a minimal scribe backend.
type fakeServer struct {
	mu       sync.Mutex
	posts    []map[string]interface{}
	deleted  []string
	reply    string
	quota    string
	nextID   int
	prompts  []string
	loginErr int
}

func newFakeServer(t *testing.T) (*fakeServer, *httptest.Server) {
	t.Helper()
	fs := &fakeServer{reply: "Here is your tagline.", nextID: 100}
	srv := httptest.NewServer(http.HandlerFunc(fs.serve))
	t.Cleanup(srv.Close)
	return fs, srv
}

func (fs *fakeServer) addPost(id int, title string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.posts = append(fs.posts, map[string]interface{}{
		"id":         id,
		"title":      title,
		"messages":   `[{"role":"user","content":"hi"},{"role":"assistant","content":"hello"}]`,
		"created_at": "2025-03-01T10:00:00",
	})
}

func (fs *fakeServer) serve(w http.ResponseWriter, r *http.Request) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	authed := r.Header.Get("Authorization") == "Bearer tok"
	switch {
	case r.URL.Path == "/api/login":
		if fs.loginErr != 0 {
			w.WriteHeader(fs.loginErr)
			w.Write([]byte(`{"detail":"Invalid credentials"}`))
			return
		}
		w.Write([]byte(`{"access_token":"tok","email":"a@gmail.com"}`))

	case !authed && r.URL.Path != "/api/plans":
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Not authenticated"}`))

	case r.URL.Path == "/api/me":
		w.Write([]byte(`{"email":"a@gmail.com","plan":"starter","credit_remaining":42}`))

	case r.URL.Path == "/api/posts" && r.Method == http.MethodGet:
		json.NewEncoder(w).Encode(fs.posts)

	case strings.HasPrefix(r.URL.Path, "/api/posts/") && r.Method == http.MethodDelete:
		id := strings.TrimPrefix(r.URL.Path, "/api/posts/")
		fs.deleted = append(fs.deleted, id)
		kept := fs.posts[:0]
		for _, p := range fs.posts {
			if fmt.Sprint(p["id"]) != id {
				kept = append(kept, p)
			}
		}
		fs.posts = kept
		w.Write([]byte(`{}`))

	case strings.HasPrefix(r.URL.Path, "/api/posts/") && r.Method == http.MethodPut:
		id := strings.TrimPrefix(r.URL.Path, "/api/posts/")
		var body struct {
			Title *string `json:"title"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		for _, p := range fs.posts {
			if fmt.Sprint(p["id"]) == id && body.Title != nil {
				p["title"] = *body.Title
			}
		}
		w.Write([]byte(`{}`))

	case r.URL.Path == "/api/generate_stream":
		if fs.quota != "" {
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]string{"error": fs.quota})
			return
		}
		var body struct {
			Prompt string  `json:"prompt"`
			PostID *string `json:"post_id"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		fs.prompts = append(fs.prompts, body.Prompt)
		if body.PostID == nil {
			fs.nextID++
			fs.posts = append([]map[string]interface{}{{
				"id":       fs.nextID,
				"title":    body.Prompt,
				"messages": "[]",
			}}, fs.posts...)
			w.Header().Set(api.PostIDHeader, fmt.Sprint(fs.nextID))
		}
		w.Write([]byte(fs.reply))

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

type result struct {
	code int
	out  string
	err  string
}

// run executes the command tree against srv with an isolated home.
func run(t *testing.T, srv *httptest.Server, stdin string, args ...string) result {
	t.Helper()
	var out, errOut bytes.Buffer
	full := append([]string{"--backend-url", srv.URL, "--log-level", "warn"}, args...)
	code := Run(full, strings.NewReader(stdin), &out, &errOut)
	return result{code: code, out: out.String(), err: errOut.String()}
}

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv(config.DirEnv, t.TempDir())
	t.Setenv("NO_COLOR", "1")
}

func login(t *testing.T, srv *httptest.Server) {
	t.Helper()
	res := run(t, srv, "secret123\n", "login", "--email", "a@gmail.com")
	require.Equal(t, ExitSuccess, res.code, res.err)
}

// =============================================================================
// EXIT CODE TESTS
// =============================================================================

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain", errors.New("boom"), ExitGeneralError},
		{"usage", &UsageError{Message: "bad"}, ExitUsageError},
		{"validation", account.ErrCodeMismatch, ExitUsageError},
		{"empty prompt", conversation.ErrEmptyPrompt, ExitUsageError},
		{"config", &configError{err: errors.New("bad toml")}, ExitConfigError},
		{"config validation", errors.Wrap(config.ValidateErrors{{Field: "ui.theme", Message: "bad"}}, "invalid config"), ExitConfigError},
		{"not logged in", ErrNotLoggedIn, ExitAuthError},
		{"bad password offline", storage.ErrInvalidCredentials, ExitAuthError},
		{"unauthorized", errors.Wrap(api.ErrUnauthorized, "generate"), ExitAuthError},
		{"quota", errors.Wrap(api.ErrQuotaExceeded, "generate"), ExitQuotaError},
		{"connection", api.ErrConnection, ExitNetworkError},
		{"timeout", api.ErrTimeout, ExitNetworkError},
		{"server", api.ErrServer, ExitGeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestDisplayError_JSON(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, account.ErrCodeMismatch, true)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "validation_error", got["error_type"])
	assert.Equal(t, "code", got["field"])
	assert.Equal(t, float64(ExitUsageError), got["exit_code"])
	assert.Equal(t, account.ErrCodeMismatch.Message, got["error"])
}

// =============================================================================
// REPLY PRINTER TESTS
// =============================================================================

func TestReplyPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := newReplyPrinter(&buf)

	p.Update("ignored while disarmed")
	assert.Empty(t, buf.String())

	p.Arm()
	p.Update("")
	p.Update("Hel")
	p.Update("Hello")
	p.Update("Hello wörld")
	assert.Equal(t, "Hello wörld", buf.String())

	p.Update(conversation.FailureMarker)
	assert.Equal(t, "Hello wörld\n"+conversation.FailureMarker, buf.String())

	p.Disarm()
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
}

// =============================================================================
// COMMAND TESTS
// =============================================================================

func TestRun_Version(t *testing.T) {
	isolate(t)
	_, srv := newFakeServer(t)
	res := run(t, srv, "", "version")
	assert.Equal(t, ExitSuccess, res.code)
	assert.Contains(t, res.out, "scribe "+Version)
}

func TestRun_UnknownCommand(t *testing.T) {
	isolate(t)
	_, srv := newFakeServer(t)
	res := run(t, srv, "", "frobnicate")
	assert.Equal(t, ExitUsageError, res.code)
}

func TestRun_AskRequiresLogin(t *testing.T) {
	isolate(t)
	_, srv := newFakeServer(t)
	res := run(t, srv, "", "ask", "hello")
	assert.Equal(t, ExitAuthError, res.code)
	assert.Contains(t, res.err, "scribe login")
}

func TestRun_LoginRejected(t *testing.T) {
	isolate(t)
	fs, srv := newFakeServer(t)
	fs.loginErr = http.StatusUnauthorized
	res := run(t, srv, "wrongpass\n", "login", "--email", "a@gmail.com")
	assert.Equal(t, ExitAuthError, res.code)
	assert.Contains(t, res.err, "Invalid credentials")
}

func TestRun_AskStreamsReply(t *testing.T) {
	isolate(t)
	fs, srv := newFakeServer(t)
	login(t, srv)

	res := run(t, srv, "", "ask", "Write", "a", "tagline")
	require.Equal(t, ExitSuccess, res.code, res.err)
	assert.Equal(t, "Here is your tagline.\n", res.out)
	assert.Equal(t, []string{"Write a tagline"}, fs.prompts)
}

func TestRun_AskJSON(t *testing.T) {
	isolate(t)
	_, srv := newFakeServer(t)
	login(t, srv)

	res := run(t, srv, "", "--json", "ask", "Write a tagline")
	require.Equal(t, ExitSuccess, res.code, res.err)

	var got askResult
	require.NoError(t, json.Unmarshal([]byte(res.out), &got))
	assert.Equal(t, "101", got.ID)
	assert.Equal(t, "Here is your tagline.", got.Reply)
}

func TestRun_AskQuotaExceeded(t *testing.T) {
	isolate(t)
	fs, srv := newFakeServer(t)
	fs.quota = "You have used all 10 credits"
	login(t, srv)

	res := run(t, srv, "", "ask", "hello")
	assert.Equal(t, ExitQuotaError, res.code)
	assert.Contains(t, res.out, "You have used all 10 credits")
	assert.Contains(t, res.err, "scribe plans")
}

func TestRun_AskUnknownPost(t *testing.T) {
	isolate(t)
	_, srv := newFakeServer(t)
	login(t, srv)

	res := run(t, srv, "", "ask", "--post", "999", "hello")
	assert.Equal(t, ExitUsageError, res.code)
}

func TestRun_ConversationsList(t *testing.T) {
	isolate(t)
	fs, srv := newFakeServer(t)
	fs.addPost(1, "Spring launch")
	fs.addPost(2, "Weekly newsletter")
	login(t, srv)

	res := run(t, srv, "", "--json", "conversations", "list")
	require.Equal(t, ExitSuccess, res.code, res.err)

	var rows []conversationRow
	require.NoError(t, json.Unmarshal([]byte(res.out), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "1", rows[0].ID)
	assert.Equal(t, "Spring launch", rows[0].Title)
	assert.Equal(t, 2, rows[0].Messages)
}

func TestRun_ConversationsListEmpty(t *testing.T) {
	isolate(t)
	_, srv := newFakeServer(t)
	login(t, srv)

	res := run(t, srv, "", "conversations", "list")
	require.Equal(t, ExitSuccess, res.code, res.err)
	assert.Contains(t, res.out, chat.EmptyHistoryText)
}

func TestRun_ConversationsDelete(t *testing.T) {
	isolate(t)
	fs, srv := newFakeServer(t)
	fs.addPost(1, "Spring launch")
	login(t, srv)

	// No answer on stdin: nothing is deleted.
	res := run(t, srv, "", "conversations", "delete", "1")
	assert.Equal(t, ExitUsageError, res.code)
	assert.Empty(t, fs.deleted)

	res = run(t, srv, "n\n", "conversations", "delete", "1")
	assert.Equal(t, ExitSuccess, res.code, res.err)
	assert.Empty(t, fs.deleted)
	assert.Contains(t, res.err, chat.DeleteConfirmText)

	res = run(t, srv, "y\n", "conversations", "delete", "1")
	assert.Equal(t, ExitSuccess, res.code, res.err)
	assert.Equal(t, []string{"1"}, fs.deleted)
}

func TestRun_ConversationsDeleteConfirmFlag(t *testing.T) {
	isolate(t)
	fs, srv := newFakeServer(t)
	fs.addPost(7, "Old draft")
	login(t, srv)

	res := run(t, srv, "", "conversations", "delete", "7", "--confirm")
	require.Equal(t, ExitSuccess, res.code, res.err)
	assert.Equal(t, []string{"7"}, fs.deleted)
}

func TestRun_ConversationsRename(t *testing.T) {
	isolate(t)
	fs, srv := newFakeServer(t)
	fs.addPost(1, "Old")
	login(t, srv)

	res := run(t, srv, "", "conversations", "rename", "1", "Fresh", "title")
	require.Equal(t, ExitSuccess, res.code, res.err)
	assert.Equal(t, "Fresh title", fs.posts[0]["title"])

	res = run(t, srv, "", "conversations", "rename", "1", "   ")
	assert.Equal(t, ExitUsageError, res.code)
}

func TestRun_ConversationsExport(t *testing.T) {
	isolate(t)
	fs, srv := newFakeServer(t)
	fs.addPost(3, "Spring launch")
	login(t, srv)
	dir := t.TempDir()

	res := run(t, srv, "", "--json", "conversations", "export", "3", "--format", "json", "--out", dir)
	require.Equal(t, ExitSuccess, res.code, res.err)

	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(res.out), &got))
	assert.Equal(t, "3", got["id"])
	data, err := os.ReadFile(got["path"])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"title": "Spring launch"`)

	res = run(t, srv, "", "conversations", "export", "3", "--format", "pdf")
	assert.Equal(t, ExitUsageError, res.code)
}

func TestRun_Plans(t *testing.T) {
	isolate(t)
	_, srv := newFakeServer(t)
	login(t, srv)

	res := run(t, srv, "", "plans")
	require.Equal(t, ExitSuccess, res.code, res.err)
	assert.Contains(t, res.out, "starter")
	assert.Contains(t, res.out, "(current)")
	assert.Contains(t, res.out, api.Unlimited)
	assert.Contains(t, res.out, "42")
}

func TestRun_Logout(t *testing.T) {
	isolate(t)
	_, srv := newFakeServer(t)
	login(t, srv)

	res := run(t, srv, "", "logout")
	require.Equal(t, ExitSuccess, res.code, res.err)

	res = run(t, srv, "", "conversations", "list")
	assert.Equal(t, ExitAuthError, res.code)
}

func TestRun_RegisterValidatesBeforeNetwork(t *testing.T) {
	isolate(t)
	fs, srv := newFakeServer(t)
	res := run(t, srv, "", "register", "--email", "someone@yahoo.com")
	assert.Equal(t, ExitUsageError, res.code)
	assert.Contains(t, res.err, "Gmail")
	assert.Empty(t, fs.prompts)
}

func TestRun_ConfigSetGet(t *testing.T) {
	isolate(t)
	_, srv := newFakeServer(t)

	res := run(t, srv, "", "config", "set", "ui.theme", "light")
	require.Equal(t, ExitSuccess, res.code, res.err)

	res = run(t, srv, "", "config", "get", "ui.theme")
	require.Equal(t, ExitSuccess, res.code, res.err)
	assert.Equal(t, "light\n", res.out)

	res = run(t, srv, "", "config", "set", "ui.theme", "purple")
	assert.Equal(t, ExitConfigError, res.code)

	res = run(t, srv, "", "config", "get", "nope")
	assert.Equal(t, ExitUsageError, res.code)
}

func TestRun_FlagOverridesConfig(t *testing.T) {
	isolate(t)
	_, srv := newFakeServer(t)

	res := run(t, srv, "", "--theme", "dark", "config", "get", "ui.theme")
	require.Equal(t, ExitSuccess, res.code, res.err)
	assert.Equal(t, "dark\n", res.out)

	res = run(t, srv, "", "config", "get", "backend.url")
	require.Equal(t, ExitSuccess, res.code, res.err)
	assert.Equal(t, srv.URL+"\n", res.out)
}

// =============================================================================
// CHAT SESSION TESTS
// =============================================================================

// testContext returns a context that is canceled when the test finishes
// (equivalent of testing.T.Context, which needs Go 1.24).
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

func newTestChatSession(t *testing.T, srv *httptest.Server) (*chatSession, *bytes.Buffer) {
	t.Helper()
	cfg := config.Default()
	cfg.Backend.URL = srv.URL
	cfg.Log.Level = "warn"

	app, err := NewApp(cfg, appOptions{QuietLogs: true})
	require.NoError(t, err)
	t.Cleanup(app.Close)

	var out bytes.Buffer
	app.Out, app.Err = &out, &out
	_, err = app.Accounts.Login(testContext(t), "a@gmail.com", "secret123")
	require.NoError(t, err)

	s := newChatSession(app, false)
	s.confirm = func(string) (bool, error) { return true, nil }
	return s, &out
}

func TestChatSession_Commands(t *testing.T) {
	isolate(t)
	fs, srv := newFakeServer(t)
	fs.addPost(1, "Spring launch")
	s, out := newTestChatSession(t, srv)
	ctx := testContext(t)

	unsubscribe := followManager(s.mgr, s.printer, s.errOut)
	defer unsubscribe()

	require.NoError(t, s.mgr.LoadConversations(ctx))

	more, err := s.handleLine(ctx, "/list")
	require.NoError(t, err)
	assert.True(t, more)
	assert.Contains(t, out.String(), "Spring launch")

	_, err = s.handleLine(ctx, "/open 1")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "hello")

	_, err = s.handleLine(ctx, "/rename 1 Summer launch")
	require.NoError(t, err)
	assert.Equal(t, "Summer launch", fs.posts[0]["title"])

	out.Reset()
	_, err = s.handleLine(ctx, "Write a tagline")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Here is your tagline.")

	_, err = s.handleLine(ctx, "/delete 1")
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, fs.deleted)

	_, err = s.handleLine(ctx, "/bogus")
	var usage *UsageError
	assert.True(t, errors.As(err, &usage))

	more, err = s.handleLine(ctx, "/quit")
	require.NoError(t, err)
	assert.False(t, more)
}

func TestChatSession_DeleteDeclined(t *testing.T) {
	isolate(t)
	fs, srv := newFakeServer(t)
	fs.addPost(1, "Keep me")
	s, _ := newTestChatSession(t, srv)
	s.confirm = func(string) (bool, error) { return false, nil }
	ctx := testContext(t)

	require.NoError(t, s.mgr.LoadConversations(ctx))
	_, err := s.handleLine(ctx, "/delete 1")
	require.NoError(t, err)
	assert.Empty(t, fs.deleted)
	assert.Empty(t, s.mgr.PendingDelete())
}

func TestChatSession_ShareAndType(t *testing.T) {
	isolate(t)
	_, srv := newFakeServer(t)
	s, _ := newTestChatSession(t, srv)
	ctx := testContext(t)

	var opened string
	s.sharer.Open = func(u string) error { opened = u; return nil }

	_, err := s.handleLine(ctx, "/share twitter")
	assert.Error(t, err, "nothing to share before a reply")

	_, err = s.handleLine(ctx, "Write a tagline")
	require.NoError(t, err)

	_, err = s.handleLine(ctx, "/share twitter")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(opened, "https://twitter.com/intent/tweet?text=Here%20is%20your%20tagline."), opened)

	_, err = s.handleLine(ctx, "/share myspace")
	assert.Error(t, err)

	_, err = s.handleLine(ctx, "/type Email")
	require.NoError(t, err)
	assert.Equal(t, "Email", s.contentType)

	_, err = s.handleLine(ctx, "/type Poetry")
	assert.Error(t, err)
}

func TestCompleteSlash(t *testing.T) {
	assert.Equal(t, []string{"/rename"}, completeSlash("/ren"))
	assert.Nil(t, completeSlash("hello"))
}

// =============================================================================
// DOCTOR TESTS
// =============================================================================

func TestRun_Doctor(t *testing.T) {
	isolate(t)
	_, srv := newFakeServer(t)
	login(t, srv)

	res := run(t, srv, "", "--json", "doctor")
	require.Equal(t, ExitSuccess, res.code, res.err)

	var report doctorReport
	require.NoError(t, json.Unmarshal([]byte(res.out), &report))
	assert.Zero(t, report.Failed)

	status := make(map[string]string)
	for _, c := range report.Checks {
		status[c.Name] = c.Status
	}
	assert.Equal(t, "pass", status["config"])
	assert.Equal(t, "pass", status["backend"])
	assert.Equal(t, "pass", status["session"])
	assert.Equal(t, "warn", status["email"])
}

func TestRun_DoctorBackendDown(t *testing.T) {
	isolate(t)
	_, srv := newFakeServer(t)
	srv.Close()

	res := run(t, srv, "", "doctor")
	assert.Equal(t, ExitGeneralError, res.code)
	assert.Contains(t, res.out, "Backend unreachable")
}
