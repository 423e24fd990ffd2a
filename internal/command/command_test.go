package command

import (
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want Command
	}{
		{
			name: "timeout with reason",
			raw:  "timeout luigi 10 spamming",
			want: Command{Kind: KindTimeout, Verb: "timeout", Args: []string{"luigi", "10", "spamming"}},
		},
		{
			name: "quoted argument",
			raw:  `nickname luigi "green machine"`,
			want: Command{Kind: KindNickname, Verb: "nickname", Args: []string{"luigi", "green machine"}},
		},
		{
			name: "verb case insensitive",
			raw:  "BAN luigi",
			want: Command{Kind: KindBan, Verb: "BAN", Args: []string{"luigi"}},
		},
		{
			name: "unterminated quote falls back to fields",
			raw:  `dm luigi don't do that`,
			want: Command{Kind: KindDirectMessage, Verb: "dm", Args: []string{"luigi", "don't", "do", "that"}},
		},
		{
			name: "unknown verb preserved",
			raw:  "summon luigi",
			want: Command{Kind: KindUnknown, Verb: "summon", Args: []string{"luigi"}},
		},
		{
			name: "empty input",
			raw:  "   ",
			want: Command{Kind: KindUnknown},
		},
		{
			name: "vcjoin with minutes",
			raw:  "vcjoin general 5",
			want: Command{Kind: KindVoiceJoin, Verb: "vcjoin", Args: []string{"general", "5"}},
		},
		{
			name: "image search",
			raw:  "image owl in a hat",
			want: Command{Kind: KindImageSearch, Verb: "image", Args: []string{"owl", "in", "a", "hat"}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Parse(tc.raw)
			if got.Kind != tc.want.Kind || got.Verb != tc.want.Verb {
				t.Fatalf("Parse(%q) = %+v, want %+v", tc.raw, got, tc.want)
			}
			if len(got.Args) != 0 || len(tc.want.Args) != 0 {
				if !reflect.DeepEqual(got.Args, tc.want.Args) {
					t.Fatalf("Parse(%q) args = %v, want %v", tc.raw, got.Args, tc.want.Args)
				}
			}
		})
	}
}
