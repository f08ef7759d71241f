// Package extract digs a JSON payload out of free-form model output.
package extract

import (
	"encoding/json"
	"strings"
)

// JSON returns the best-effort JSON value embedded in text. The whole trimmed
// text is tried first; otherwise the scan starts at the earliest '{' or '['
// and candidate end positions are tried from the end of the text backward,
// so the longest parseable candidate wins. If nothing parses the trimmed
// input is returned unchanged and the caller's json.Unmarshal surfaces the
// failure. Never returns an error and never repairs malformed JSON.
func JSON(text string) string {
	trimmed := strings.TrimSpace(text)
	if json.Valid([]byte(trimmed)) {
		return trimmed
	}

	start := payloadStart(trimmed)
	if start == -1 {
		return trimmed
	}

	for end := len(trimmed); end > start; end-- {
		if candidate := trimmed[start:end]; json.Valid([]byte(candidate)) {
			return candidate
		}
	}
	return trimmed
}

// payloadStart returns the earliest index of '{' or '[', or -1.
func payloadStart(s string) int {
	obj := strings.IndexByte(s, '{')
	arr := strings.IndexByte(s, '[')
	switch {
	case obj == -1:
		return arr
	case arr == -1:
		return obj
	case obj < arr:
		return obj
	default:
		return arr
	}
}
