package agent

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ashureev/tradedesk/internal/api"
	"github.com/ashureev/tradedesk/internal/identity"
	"github.com/ashureev/tradedesk/internal/render"
	"github.com/ashureev/tradedesk/web"
)

// defaultMaxRequestBodySize is the maximum allowed chat request body (1MB).
const defaultMaxRequestBodySize = 1 << 20

// RateLimiter implements a per-session sliding window limiter.
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
}

// NewRateLimiter creates a rate limiter. Expired keys are evicted until ctx
// is done.
func NewRateLimiter(ctx context.Context, limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
	go rl.evictLoop(ctx)
	return rl
}

// Allow checks if a request is allowed for the given key.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	recent := r.fresh(r.requests[key], now.Add(-r.window))
	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}
	r.requests[key] = append(recent, now)
	return true
}

func (r *RateLimiter) fresh(times []time.Time, cutoff time.Time) []time.Time {
	var out []time.Time
	for _, t := range times {
		if t.After(cutoff) {
			out = append(out, t)
		}
	}
	return out
}

func (r *RateLimiter) evictLoop(ctx context.Context) {
	ticker := time.NewTicker(r.window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.mu.Lock()
			cutoff := time.Now().Add(-r.window)
			for key, times := range r.requests {
				if fresh := r.fresh(times, cutoff); len(fresh) == 0 {
					delete(r.requests, key)
				} else {
					r.requests[key] = fresh
				}
			}
			r.mu.Unlock()
		}
	}
}

// Handler serves the chat page and the chat message endpoints.
type Handler struct {
	service     *Service
	renderer    *render.Renderer
	templates   *web.Templates
	rateLimiter *RateLimiter
	status      func() *bool
}

// NewHandler creates a chat handler. status reports API availability for the
// page header and may be nil.
func NewHandler(service *Service, renderer *render.Renderer, templates *web.Templates, rateLimiter *RateLimiter, status func() *bool) *Handler {
	if status == nil {
		status = func() *bool { return nil }
	}
	return &Handler{
		service:     service,
		renderer:    renderer,
		templates:   templates,
		rateLimiter: rateLimiter,
		status:      status,
	}
}

// RegisterRoutes registers chat routes. They require the identity middleware.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/chat", h.HandlePage)
	r.Route("/chat/messages", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleSubmit)
		r.Delete("/", h.HandleClear)
	})
	r.Get("/chat/messages.html", h.HandleFragment)
}

// ChatPage is the data of the chat page template.
type ChatPage struct {
	Bubbles []render.Bubble
	Loading bool
}

// HandlePage renders GET /chat.
func (h *Handler) HandlePage(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	h.templates.Render(w, http.StatusOK, web.PageChat, web.Page{
		Title:        "Trading Assistant",
		Nav:          "chat",
		APIAvailable: h.status(),
		Data: ChatPage{
			Bubbles: h.renderer.RenderAll(sess.View()),
			Loading: sess.Loading(),
		},
	})
}

// HandleList handles GET /chat/messages.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	api.JSON(w, http.StatusOK, h.view(sess, nil))
}

// HandleFragment handles GET /chat/messages.html.
func (h *Handler) HandleFragment(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := render.WriteHTML(w, h.renderer.RenderAll(sess.View())); err != nil {
		slog.Warn("failed to write chat fragment", "session_id", sess.ID(), "error", err)
	}
}

// HandleSubmit handles POST /chat/messages.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	if h.rateLimiter != nil && !h.rateLimiter.Allow(sess.ID()) {
		api.Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, defaultMaxRequestBodySize)
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	slog.Info("Chat request",
		"session_id", sess.ID(),
		"message_length", len(req.Message),
		"ip", identity.IPFromRequest(r),
	)

	// The reply is recorded even if the browser goes away mid-query.
	msg, err := sess.Submit(context.WithoutCancel(r.Context()), req.Message)
	switch {
	case errors.Is(err, ErrEmptyMessage):
		api.Error(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, ErrBusy):
		api.Error(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		slog.Error("chat submission failed", "session_id", sess.ID(), "error", err)
		api.Error(w, http.StatusInternalServerError, "chat submission failed")
		return
	}

	reply := h.renderer.Render(msg)
	api.JSON(w, http.StatusOK, h.view(sess, &reply))
}

// HandleClear handles DELETE /chat/messages.
func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := sess.Clear(r.Context()); err != nil {
		if errors.Is(err, ErrBusy) {
			api.Error(w, http.StatusConflict, err.Error())
			return
		}
		slog.Error("failed to clear chat", "session_id", sess.ID(), "error", err)
		api.Error(w, http.StatusInternalServerError, "failed to clear chat")
		return
	}
	api.JSON(w, http.StatusOK, h.view(sess, nil))
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	sessionID := identity.SessionIDFromContext(r.Context())
	if sessionID == "" {
		api.Error(w, http.StatusUnauthorized, "no session")
		return nil, false
	}
	return h.service.Session(r.Context(), sessionID), true
}

func (h *Handler) view(sess *Session, reply *render.Bubble) ChatResponse {
	return ChatResponse{
		Reply:    reply,
		Messages: h.renderer.RenderAll(sess.View()),
		Loading:  sess.Loading(),
	}
}

func requestID(ctx context.Context) string {
	return chiMiddleware.GetReqID(ctx)
}
