package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelsAndFormat(t *testing.T) {
	var buf bytes.Buffer
	t.Cleanup(func() {
		SetFormat("text", os.Stdout)
		SetLevel("info")
	})

	SetFormat("text", &buf)
	SetLevel("warning")
	Infof("hidden %d", 1)
	Warnf("shown %d%%", 2)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown 2%")

	buf.Reset()
	SetFormat("json", &buf)
	SetLevel("bogus")
	Infof("cycle %s", "done")
	assert.True(t, strings.HasPrefix(buf.String(), "{"))
	assert.Contains(t, buf.String(), `"msg":"cycle done"`)
}

func TestInfoBlockSkipsBlankLines(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stdout) })
	SetLevel("info")

	InfoBlock("\nfirst 100%\n\n  second\n")
	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "level=INFO"))
	assert.Contains(t, out, "first 100%")
}

func TestAdvisoryTrace(t *testing.T) {
	var buf bytes.Buffer
	SetAdvisoryWriter(&buf)
	t.Cleanup(func() {
		SetAdvisoryWriter(nil)
		EnableAdvisoryPayloadDump(false)
	})

	LogAdvisoryRequest("primary", "BTCUSDT", "sys", "usr", `{"model":"m"}`)
	assert.Contains(t, buf.String(), "[ADVISORY][request][primary][BTCUSDT]")
	assert.NotContains(t, buf.String(), "PAYLOAD")

	EnableAdvisoryPayloadDump(true)
	LogAdvisoryRequest("primary", "BTCUSDT", "sys", "usr", `{"model":"m"}`)
	assert.Contains(t, buf.String(), "--- PAYLOAD ---")

	SetAdvisoryWriter(nil)
	buf.Reset()
	LogAdvisoryResponse("primary", "BTCUSDT", "{}", 0)
	assert.Empty(t, buf.String())
}
