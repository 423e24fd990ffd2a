package brain

import "testing"

func TestParseReply(t *testing.T) {
	cases := []struct {
		name     string
		content  string
		message  string
		action   string
		fallback bool
	}{
		{
			name:    "bare json",
			content: `{"message": "hello there", "action": "none"}`,
			message: "hello there",
			action:  "none",
		},
		{
			name:    "json with action",
			content: `{"message": "say goodbye", "action": "ban luigi"}`,
			message: "say goodbye",
			action:  "ban luigi",
		},
		{
			name:    "fenced json",
			content: "```json\n{\"message\": \"fenced\", \"action\": \"none\"}\n```",
			message: "fenced",
			action:  "none",
		},
		{
			name:    "fenced without language tag",
			content: "```\n{\"message\": \"plain fence\"}\n```",
			message: "plain fence",
		},
		{
			name:     "plain text falls back",
			content:  "just talking, no structure here",
			message:  "just talking, no structure here",
			fallback: true,
		},
		{
			name:     "broken json falls back",
			content:  `{"message": "unterminated`,
			message:  `{"message": "unterminated`,
			fallback: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := ParseReply(tc.content)
			if r.Message != tc.message {
				t.Errorf("message = %q, want %q", r.Message, tc.message)
			}
			if r.Action != tc.action {
				t.Errorf("action = %q, want %q", r.Action, tc.action)
			}
			if r.Fallback != tc.fallback {
				t.Errorf("fallback = %v, want %v", r.Fallback, tc.fallback)
			}
		})
	}
}

func TestHasAction(t *testing.T) {
	cases := []struct {
		action string
		want   bool
	}{
		{"", false},
		{"none", false},
		{" None ", false},
		{"ban luigi", true},
	}
	for _, tc := range cases {
		if got := (Reply{Action: tc.action}).HasAction(); got != tc.want {
			t.Errorf("HasAction(%q) = %v, want %v", tc.action, got, tc.want)
		}
	}
}
