// Package markup converts the assistant's markdown-lite replies into HTML.
//
// Only a small, non-standard subset is recognized. The rewrite passes run in
// a fixed order and each one sees the output of the previous pass, so the
// order is part of the contract: bold runs before italic, which means input
// such as "***x***" or unbalanced asterisks is rewritten exactly the way the
// two passes happen to match it.
//
// The output is trusted markup. Agent text is not escaped; user text must go
// through EscapeUser instead of Format.
package markup

import (
	"html"
	"regexp"
)

// pass is a single regexp rewrite step.
type pass struct {
	name string
	re   *regexp.Regexp
	repl string
}

// passes are applied in order by Format.
var passes = []pass{
	// **text** -> bold. Does not span lines.
	{"bold", regexp.MustCompile(`\*\*(.*?)\*\*`), "<strong>$1</strong>"},
	// *text* -> italic, on whatever bold left behind.
	{"italic", regexp.MustCompile(`\*(.*?)\*`), "<em>$1</em>"},
	// ```fenced``` -> preformatted block, may span lines.
	{"fence", regexp.MustCompile("(?s)```(.*?)```"), "<pre><code>$1</code></pre>"},
	// `inline` -> code.
	{"inline code", regexp.MustCompile("`(.*?)`"), "<code>$1</code>"},
	// Headings, most specific first so "### " is not read as "# ".
	{"h3", regexp.MustCompile(`(?m)^### (.*)$`), "<h3>$1</h3>"},
	{"h2", regexp.MustCompile(`(?m)^## (.*)$`), "<h2>$1</h2>"},
	{"h1", regexp.MustCompile(`(?m)^# (.*)$`), "<h1>$1</h1>"},
	// List items: "* ", "- " and "<digits>. ".
	{"star item", regexp.MustCompile(`(?m)^\* (.*)$`), "<li>$1</li>"},
	{"dash item", regexp.MustCompile(`(?m)^- (.*)$`), "<li>$1</li>"},
	{"numbered item", regexp.MustCompile(`(?m)^\d+\. (.*)$`), "<li>$1</li>"},
	// Every item gets its own container first ...
	{"list wrap", regexp.MustCompile(`<li>(.*?)</li>`), "<ul><li>$1</li></ul>"},
	// ... then adjacent containers are merged so consecutive items form one list.
	{"list merge", regexp.MustCompile(`</ul>\n?<ul>`), ""},
	// Remaining newlines become line breaks.
	{"breaks", regexp.MustCompile(`\n`), "<br>"},
}

// Format rewrites markdown-lite text into HTML.
func Format(text string) string {
	out := text
	for _, p := range passes {
		out = p.re.ReplaceAllString(out, p.repl)
	}
	return out
}

// EscapeUser escapes user-authored text so it renders verbatim.
func EscapeUser(text string) string {
	return html.EscapeString(text)
}
