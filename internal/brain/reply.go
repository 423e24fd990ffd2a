package brain

import (
	"encoding/json"
	"strings"
)

// Reply is a parsed model response. Action is empty or "none" when the model
// only wants to talk. Fallback marks content that did not parse as the
// structured format and is being used verbatim.
type Reply struct {
	Message  string `json:"message"`
	Action   string `json:"action"`
	Fallback bool   `json:"-"`
}

// HasAction reports whether the reply carries an executable directive.
func (r Reply) HasAction() bool {
	a := strings.ToLower(strings.TrimSpace(r.Action))
	return a != "" && a != "none"
}

// ParseReply interprets model output. It accepts a bare JSON object, a
// markdown-fenced JSON object, or falls back to treating the whole content as
// the message. Malformed output is never an error; the bot always says
// something.
func ParseReply(content string) Reply {
	content = strings.TrimSpace(content)

	var r Reply
	if err := json.Unmarshal([]byte(content), &r); err == nil && r.Message != "" {
		return r
	}
	if fenced := extractJSON(content); fenced != content {
		if err := json.Unmarshal([]byte(fenced), &r); err == nil && r.Message != "" {
			return r
		}
	}
	return Reply{Message: content, Fallback: true}
}

// extractJSON strips a markdown code fence around a JSON payload, if present.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	body := strings.TrimPrefix(content, "```json")
	body = strings.TrimPrefix(body, "```")
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}
