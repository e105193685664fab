package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/tradedesk/internal/domain"
)

var ts = time.Date(2024, 1, 1, 9, 5, 0, 0, time.UTC)

func TestRenderUserEscapesContent(t *testing.T) {
	r := New(time.UTC)
	b := r.Render(domain.ChatMessage{Sender: domain.SenderUser, Content: "<b>Hello</b> **x**", Timestamp: ts})

	assert.Equal(t, "right", b.Align)
	assert.Equal(t, "user-message", b.Class)
	assert.Equal(t, "&lt;b&gt;Hello&lt;/b&gt; **x**", string(b.Body))
	assert.Equal(t, "09:05", b.Time)
}

func TestRenderAgentFormatsContent(t *testing.T) {
	r := New(time.UTC)
	b := r.Render(domain.ChatMessage{Sender: domain.SenderAgent, Content: "**Hi** there", Timestamp: ts})

	assert.Equal(t, "left", b.Align)
	assert.Equal(t, "agent-message", b.Class)
	assert.Equal(t, "<strong>Hi</strong> there", string(b.Body))
}

func TestRenderTimeUsesLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	b := New(tokyo).Render(domain.ChatMessage{Sender: domain.SenderUser, Content: "x", Timestamp: ts})
	assert.Equal(t, "18:05", b.Time)

	r := &Renderer{}
	assert.Equal(t, "", r.clock(time.Time{}))
}

func TestRenderAllKeepsOrderAndDuplicates(t *testing.T) {
	msgs := []domain.ChatMessage{
		{Sender: domain.SenderUser, Content: "same", Timestamp: ts},
		{Sender: domain.SenderUser, Content: "same", Timestamp: ts},
		{Sender: domain.SenderAgent, Content: "reply", Timestamp: ts.Add(time.Minute)},
	}
	bubbles := New(time.UTC).RenderAll(msgs)
	require.Len(t, bubbles, 3)
	assert.Equal(t, domain.SenderAgent, bubbles[2].Sender)
	assert.Equal(t, "09:06", bubbles[2].Time)
}

func TestRenderDoesNotMutateInput(t *testing.T) {
	msgs := []domain.ChatMessage{{Sender: domain.SenderAgent, Content: "**x**", Timestamp: ts}}
	New(time.UTC).RenderAll(msgs)
	assert.Equal(t, "**x**", msgs[0].Content)
}

func TestWriteHTMLScenario(t *testing.T) {
	msgs := []domain.ChatMessage{
		{Sender: domain.SenderUser, Content: "Hello", Timestamp: ts},
		{Sender: domain.SenderAgent, Content: "**Hi** there", Timestamp: ts},
		{Sender: domain.SenderUser, Content: "<script>x</script>", Timestamp: ts},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, New(time.UTC).RenderAll(msgs)))
	out := buf.String()

	parts := strings.Split(out, `<div class="message `)
	require.Len(t, parts, 4)
	assert.True(t, strings.HasPrefix(parts[1], `user-message"`))
	assert.Contains(t, parts[1], ">Hello</div>")
	assert.True(t, strings.HasPrefix(parts[2], `agent-message"`))
	assert.Contains(t, parts[2], "<strong>Hi</strong> there")
	assert.Contains(t, parts[3], "&lt;script&gt;x&lt;/script&gt;")
	assert.NotContains(t, out, "<script>")
}
