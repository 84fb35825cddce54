package notifier

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Telegram caps a message at 4096 characters; leave room for the header.
const maxMessageRunes = 3800

// MessageSection is one titled block of bullet lines.
type MessageSection struct {
	Title string
	Lines []string
}

// StructuredMessage is the channel-neutral shape of every notification.
type StructuredMessage struct {
	Icon      string
	Title     string
	Sections  []MessageSection
	Footer    string
	Timestamp time.Time
}

func (m StructuredMessage) header() string {
	return strings.TrimSpace(m.Icon + " " + m.Title)
}

// RenderMarkdown renders Telegram markdown: the header, the sections inside
// one fenced block, then footer and timestamp.
func (m StructuredMessage) RenderMarkdown() string {
	parts := make([]string, 0, 4)
	if h := m.header(); h != "" {
		parts = append(parts, h)
	}
	var blocks []string
	for _, sec := range m.Sections {
		lines := nonEmpty(sec.Lines)
		if len(lines) == 0 {
			continue
		}
		var b strings.Builder
		if t := strings.TrimSpace(sec.Title); t != "" {
			b.WriteString(unfence(t) + "\n")
		}
		for i, line := range lines {
			if i > 0 {
				b.WriteByte('\n')
			}
			b.WriteString("- " + unfence(line))
		}
		blocks = append(blocks, b.String())
	}
	if len(blocks) > 0 {
		parts = append(parts, "```\n"+strings.Join(blocks, "\n\n")+"\n```")
	}
	var tail []string
	if f := strings.TrimSpace(m.Footer); f != "" {
		tail = append(tail, unfence(f))
	}
	if !m.Timestamp.IsZero() {
		tail = append(tail, "Time: "+m.Timestamp.UTC().Format("2006-01-02 15:04:05 MST"))
	}
	if len(tail) > 0 {
		parts = append(parts, strings.Join(tail, "\n"))
	}
	return clip(strings.Join(parts, "\n\n"), maxMessageRunes)
}

// PlainText renders the message on one line, for logs and the store.
func (m StructuredMessage) PlainText() string {
	fields := []string{m.header()}
	for _, sec := range m.Sections {
		lines := nonEmpty(sec.Lines)
		if len(lines) == 0 {
			continue
		}
		field := strings.Join(lines, "; ")
		if t := strings.TrimSpace(sec.Title); t != "" {
			field = t + ": " + field
		}
		fields = append(fields, field)
	}
	if f := strings.TrimSpace(m.Footer); f != "" {
		fields = append(fields, f)
	}
	return strings.Join(fields, " | ")
}

func nonEmpty(lines []string) []string {
	out := lines[:0:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// unfence keeps user text from closing the code block early.
func unfence(s string) string {
	return strings.ReplaceAll(s, "```", "'''")
}

func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
