// Package command parses the action directives the brain embeds in its
// replies, e.g. `timeout @miscreant 10 being rude`.
package command

import (
	"strings"

	"github.com/google/shlex"
)

// Kind identifies a parsed directive.
type Kind string

const (
	KindTimeout       Kind = "timeout"
	KindBan           Kind = "ban"
	KindNickname      Kind = "nickname"
	KindDirectMessage Kind = "dm"
	KindVoiceJoin     Kind = "vcjoin"
	KindImageSearch   Kind = "image"
	KindUnknown       Kind = "unknown"
)

var verbs = map[string]Kind{
	"timeout":  KindTimeout,
	"ban":      KindBan,
	"nickname": KindNickname,
	"dm":       KindDirectMessage,
	"vcjoin":   KindVoiceJoin,
	"image":    KindImageSearch,
}

// Command is one parsed directive. Verb keeps the original first token so
// unknown verbs can be reported back verbatim.
type Command struct {
	Kind Kind
	Verb string
	Args []string
}

// Parse splits raw into a verb and arguments with shell-style quoting.
// Malformed quoting degrades to a plain whitespace split rather than failing,
// so a directive is never lost to a stray apostrophe.
func Parse(raw string) Command {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Command{Kind: KindUnknown}
	}

	parts, err := shlex.Split(raw)
	if err != nil || len(parts) == 0 {
		parts = strings.Fields(raw)
	}

	verb := parts[0]
	kind, ok := verbs[strings.ToLower(verb)]
	if !ok {
		kind = KindUnknown
	}
	return Command{Kind: kind, Verb: verb, Args: parts[1:]}
}
