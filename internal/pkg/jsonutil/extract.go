// Package jsonutil pulls a JSON document out of free-form model output.
package jsonutil

import (
	"strings"

	"github.com/tidwall/gjson"
)

const codeFence = "```"

// ExtractObject returns the first well-formed JSON object in raw. Fenced code
// blocks are searched before the surrounding prose.
func ExtractObject(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	for _, block := range fencedBlocks(raw) {
		if obj, ok := firstObject(block); ok {
			return obj, true
		}
	}
	return firstObject(raw)
}

// fencedBlocks lists the bodies of every ``` block, minus any language tag.
func fencedBlocks(raw string) []string {
	var out []string
	for {
		open := strings.Index(raw, codeFence)
		if open < 0 {
			return out
		}
		raw = raw[open+len(codeFence):]
		end := strings.Index(raw, codeFence)
		if end < 0 {
			return out
		}
		body := raw[:end]
		raw = raw[end+len(codeFence):]
		if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], "{[") {
			body = body[nl+1:]
		}
		if body = strings.TrimSpace(body); body != "" {
			out = append(out, body)
		}
	}
}

// firstObject tries each '{' in turn and returns the first span that closes
// and parses. Braces inside string literals are ignored.
func firstObject(s string) (string, bool) {
	for from := 0; from < len(s); {
		idx := strings.IndexByte(s[from:], '{')
		if idx < 0 {
			return "", false
		}
		start := from + idx
		if end := closingBrace(s, start); end > 0 {
			if cand := s[start : end+1]; gjson.Valid(cand) {
				return cand, true
			}
		}
		from = start + 1
	}
	return "", false
}

func closingBrace(s string, start int) int {
	depth := 0
	quoted, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if quoted {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				quoted = false
			}
			continue
		}
		switch c {
		case '"':
			quoted = true
		case '{':
			depth++
		case '}':
			if depth--; depth == 0 {
				return i
			}
		}
	}
	return -1
}
