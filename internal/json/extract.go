// Package json provides JSON extraction utilities for parsing LLM responses.
//
// Models often wrap the JSON they were asked for in commentary or in markdown
// code fences. This package locates the payload so callers can decode it.
package json

import (
	"strings"
)

const fence = "```"

// FirstFence returns the content of the first fenced code block in text.
//
// The optional info string after the opening fence (```json) is discarded.
// An opening fence with no closing fence yields everything after it.
// Reports false when text contains no fence at all.
func FirstFence(text string) (string, bool) {
	start := strings.Index(text, fence)
	if start == -1 {
		return "", false
	}
	body := text[start+len(fence):]

	// Skip the info string up to the end of the fence line, unless the block
	// is written on one line (```{"a":1}```).
	if nl := strings.IndexByte(body, '\n'); nl != -1 {
		if end := strings.Index(body, fence); end == -1 || end > nl {
			info := strings.TrimSpace(body[:nl])
			if !strings.ContainsAny(info, "{[") {
				body = body[nl+1:]
			}
		}
	}

	if end := strings.Index(body, fence); end != -1 {
		body = body[:end]
	}
	return strings.TrimSpace(body), true
}

// Payload returns the text to decode: the first fenced block when one is
// present, otherwise the whole response trimmed of surrounding whitespace.
func Payload(response string) string {
	if content, ok := FirstFence(response); ok {
		return content
	}
	return strings.TrimSpace(response)
}
