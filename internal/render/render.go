// Package render turns chat messages into display-ready bubbles.
//
// Rendering is a pure function of a message: it never touches the
// transcript. The HTML step is kept separate so bubbles can be inspected
// without a browser.
package render

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/ashureev/tradedesk/internal/domain"
	"github.com/ashureev/tradedesk/internal/markup"
)

// DefaultTimeLayout shows hours and minutes.
const DefaultTimeLayout = "15:04"

// Bubble is the renderable description of one chat message.
type Bubble struct {
	Sender    domain.Sender `json:"sender"`
	Align     string        `json:"align"`
	Class     string        `json:"class"`
	Body      template.HTML `json:"body"`
	Time      string        `json:"time"`
	Timestamp time.Time     `json:"timestamp"`
}

// Renderer formats bubbles for a display location.
type Renderer struct {
	Location   *time.Location
	TimeLayout string
}

// New creates a renderer for loc. A nil loc means time.Local.
func New(loc *time.Location) *Renderer {
	if loc == nil {
		loc = time.Local
	}
	return &Renderer{Location: loc, TimeLayout: DefaultTimeLayout}
}

// Render maps a message to its bubble. User text is escaped; agent text goes
// through the markdown-lite formatter.
func (r *Renderer) Render(msg domain.ChatMessage) Bubble {
	b := Bubble{
		Sender:    msg.Sender,
		Time:      r.clock(msg.Timestamp),
		Timestamp: msg.Timestamp,
	}
	switch msg.Sender {
	case domain.SenderAgent:
		b.Align = "left"
		b.Class = "agent-message"
		b.Body = template.HTML(markup.Format(msg.Content)) //nolint:gosec // formatter output is trusted markup
	default:
		b.Align = "right"
		b.Class = "user-message"
		b.Body = template.HTML(markup.EscapeUser(msg.Content)) //nolint:gosec // escaped above
	}
	return b
}

// RenderAll renders every message in order.
func (r *Renderer) RenderAll(msgs []domain.ChatMessage) []Bubble {
	out := make([]Bubble, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, r.Render(m))
	}
	return out
}

func (r *Renderer) clock(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	layout := r.TimeLayout
	if layout == "" {
		layout = DefaultTimeLayout
	}
	loc := r.Location
	if loc == nil {
		loc = time.Local
	}
	return ts.In(loc).Format(layout)
}

// BubbleTemplate is the HTML fragment for a list of bubbles. It is shared with
// the page templates so server-rendered and fetched bubbles look the same.
const BubbleTemplate = `{{define "bubbles"}}{{range .}}<div class="message {{.Class}}" data-sender="{{.Sender}}">
  <div class="message-content">{{.Body}}</div>
  <div class="message-time" title="{{.Timestamp.Format "2006-01-02T15:04:05Z07:00"}}">{{.Time}}</div>
</div>
{{end}}{{end}}`

var fragment = template.Must(template.New("fragment").Parse(BubbleTemplate))

// WriteHTML writes the HTML fragment for bubbles.
func WriteHTML(w io.Writer, bubbles []Bubble) error {
	if err := fragment.ExecuteTemplate(w, "bubbles", bubbles); err != nil {
		return fmt.Errorf("render bubbles: %w", err)
	}
	return nil
}
