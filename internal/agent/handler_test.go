package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/tradedesk/internal/identity"
	"github.com/ashureev/tradedesk/internal/render"
	"github.com/ashureev/tradedesk/internal/store"
	"github.com/ashureev/tradedesk/internal/transcript"
	"github.com/ashureev/tradedesk/web"
)

type chatFixture struct {
	router  http.Handler
	service *Service
	cookie  *http.Cookie
}

func newChatFixture(t *testing.T, q Querier, limit int) *chatFixture {
	t.Helper()
	repo := store.NewMemory()
	templates, err := web.LoadTemplates()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	service := NewService(NewClient(q), transcript.NewManager(repo), nil)
	h := NewHandler(service, render.New(time.UTC), templates, NewRateLimiter(ctx, limit, time.Minute), nil)

	r := chi.NewRouter()
	r.Use(identity.Middleware(repo, true))
	h.RegisterRoutes(r)
	return &chatFixture{router: r, service: service}
}

func (f *chatFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if f.cookie != nil {
		req.AddCookie(f.cookie)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.Name == identity.SessionCookieName {
			f.cookie = c
		}
	}
	return rec
}

func decodeChat(t *testing.T, rec *httptest.ResponseRecorder) ChatResponse {
	t.Helper()
	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestChatListShowsWelcome(t *testing.T) {
	f := newChatFixture(t, querierFunc(func(context.Context, string) (string, error) { return "", nil }), 10)

	rec := f.do(t, http.MethodGet, "/chat/messages", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeChat(t, rec)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "agent-message", resp.Messages[0].Class)
	assert.Contains(t, string(resp.Messages[0].Body), "trading assistant")
	assert.False(t, resp.Loading)
}

func TestChatSubmitRoundTrip(t *testing.T) {
	f := newChatFixture(t, querierFunc(func(_ context.Context, q string) (string, error) {
		return "**Hi** there", nil
	}), 10)

	rec := f.do(t, http.MethodPost, "/chat/messages", `{"message":"<b>Hello</b>"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeChat(t, rec)
	require.NotNil(t, resp.Reply)
	assert.Equal(t, "<strong>Hi</strong> there", string(resp.Reply.Body))
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "user-message", resp.Messages[0].Class)
	assert.Equal(t, "&lt;b&gt;Hello&lt;/b&gt;", string(resp.Messages[0].Body))

	// Same browser session sees the same transcript.
	rec = f.do(t, http.MethodGet, "/chat/messages.html", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<strong>Hi</strong> there")
	assert.Contains(t, rec.Body.String(), "&lt;b&gt;Hello&lt;/b&gt;")
}

func TestChatSubmitValidation(t *testing.T) {
	f := newChatFixture(t, querierFunc(func(context.Context, string) (string, error) { return "x", nil }), 10)

	rec := f.do(t, http.MethodPost, "/chat/messages", `{"message":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/chat/messages", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	big := `{"message":"` + strings.Repeat("a", defaultMaxRequestBodySize) + `"}`
	rec = f.do(t, http.MethodPost, "/chat/messages", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestChatSubmitRateLimited(t *testing.T) {
	f := newChatFixture(t, querierFunc(func(context.Context, string) (string, error) { return "x", nil }), 1)

	rec := f.do(t, http.MethodPost, "/chat/messages", `{"message":"one"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodPost, "/chat/messages", `{"message":"two"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestChatClear(t *testing.T) {
	f := newChatFixture(t, querierFunc(func(context.Context, string) (string, error) { return "x", nil }), 10)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/chat/messages", `{"message":"one"}`).Code)

	rec := f.do(t, http.MethodDelete, "/chat/messages", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeChat(t, rec)
	require.Len(t, resp.Messages, 1)
	assert.Contains(t, string(resp.Messages[0].Body), "trading assistant")
}

func TestChatPageRendersBubbles(t *testing.T) {
	f := newChatFixture(t, querierFunc(func(context.Context, string) (string, error) { return "- a\n- b", nil }), 10)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/chat/messages", `{"message":"list"}`).Code)

	rec := f.do(t, http.MethodGet, "/chat", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `id="chat-messages"`)
	assert.Contains(t, body, "<ul><li>a</li><li>b</li></ul>")
}

func TestRateLimiterWindow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, 2, 50*time.Millisecond)
	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))

	time.Sleep(60 * time.Millisecond)
	assert.True(t, rl.Allow("a"))
}
