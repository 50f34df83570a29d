package fileutils

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// DecodeModelJSON unmarshals the object in a model reply into v. It accepts a
// bare object, a ```json fenced block, or an object embedded in prose. In the
// last case the first '{' that starts a complete object wins and anything
// after that object is ignored.
func DecodeModelJSON(reply string, v any) error {
	body := stripFence(strings.TrimSpace(reply))
	if body == "" {
		return io.ErrUnexpectedEOF
	}

	firstErr := json.Unmarshal([]byte(body), v)
	if firstErr == nil {
		return nil
	}

	for off := strings.IndexByte(body, '{'); off >= 0; {
		var obj json.RawMessage
		if err := json.NewDecoder(strings.NewReader(body[off:])).Decode(&obj); err == nil {
			if err := json.Unmarshal(obj, v); err != nil {
				return fmt.Errorf("DecodeModelJSON: unmarshal embedded object (len=%d): %w", len(obj), err)
			}
			return nil
		}
		next := strings.IndexByte(body[off+1:], '{')
		if next < 0 {
			break
		}
		off += next + 1
	}
	return fmt.Errorf("DecodeModelJSON: no decodable object in reply (len=%d): %w", len(reply), firstErr)
}

// stripFence returns the contents of the first markdown code fence in s, or s
// unchanged when there is none.
func stripFence(s string) string {
	start := strings.Index(s, "```")
	if start < 0 {
		return s
	}
	rest := s[start+3:]
	// Drop the info string, e.g. "json".
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[nl+1:]
	} else {
		return s
	}
	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}
