package logger

import (
	"io"
	"log"
	"strings"
	"sync"
	"time"
)

var (
	advisoryMu   sync.Mutex
	advisoryLog  *log.Logger
	advisoryDump bool
)

// SetAdvisoryWriter routes advisory request/response traces to w. A nil
// writer disables tracing.
func SetAdvisoryWriter(w io.Writer) {
	advisoryMu.Lock()
	defer advisoryMu.Unlock()
	if w == nil {
		advisoryLog = nil
		return
	}
	advisoryLog = log.New(w, "", log.LstdFlags)
}

// EnableAdvisoryPayloadDump toggles raw request payloads in traces.
func EnableAdvisoryPayloadDump(enabled bool) {
	advisoryMu.Lock()
	advisoryDump = enabled
	advisoryMu.Unlock()
}

type traceSection struct {
	Title string
	Body  string
}

func writeTrace(kind, source, symbol string, sections []traceSection) {
	advisoryMu.Lock()
	l := advisoryLog
	advisoryMu.Unlock()
	if l == nil {
		return
	}
	var b strings.Builder
	b.WriteString("[ADVISORY]")
	for _, tag := range []string{kind, source, symbol} {
		if tag == "" {
			continue
		}
		b.WriteString("[")
		b.WriteString(tag)
		b.WriteString("]")
	}
	b.WriteString("\n")
	for _, sec := range sections {
		t := strings.TrimSpace(sec.Title)
		if t == "" {
			t = "CONTENT"
		}
		b.WriteString("--- ")
		b.WriteString(t)
		b.WriteString(" ---\n")
		b.WriteString(sec.Body)
		if !strings.HasSuffix(sec.Body, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString("=====\n")
	l.Print(b.String())
}

// LogAdvisoryRequest traces the prompts sent to an advisory source.
func LogAdvisoryRequest(source, symbol, systemPrompt, userPrompt, payload string) {
	sections := []traceSection{
		{Title: "SYSTEM", Body: systemPrompt},
		{Title: "USER", Body: userPrompt},
	}
	advisoryMu.Lock()
	dump := advisoryDump
	advisoryMu.Unlock()
	if dump && strings.TrimSpace(payload) != "" {
		sections = append(sections, traceSection{Title: "PAYLOAD", Body: payload})
	}
	writeTrace("request", source, symbol, sections)
}

// LogAdvisoryResponse traces the raw answer and how long it took.
func LogAdvisoryResponse(source, symbol, raw string, latency time.Duration) {
	writeTrace("response", source, symbol, []traceSection{
		{Title: "LATENCY", Body: latency.Round(time.Millisecond).String()},
		{Title: "RAW", Body: raw},
	})
}
