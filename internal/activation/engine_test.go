package activation

import (
	"testing"
	"time"

	"github.com/nextlevelbuilder/mascot/internal/bus"
)

type staticBlocklist map[string]bool

func (b staticBlocklist) Blocked(channelID, channelName string) bool {
	return b[channelID] || b[channelName]
}

func testConfig() Config {
	return Config{
		BotName:       "barnaby",
		WakeWord:      "hey barnaby",
		Threshold:     80,
		Timeout:       5 * time.Minute,
		RandomPercent: 0,
	}
}

func newTestEngine(cfg Config, bl Blocklist) (*Engine, *manualClock) {
	e := New(cfg, bl)
	clock := &manualClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	e.SetClock(clock.Now)
	e.SetRoll(func() float64 { return 1 }) // random path never fires unless overridden
	return e, clock
}

type manualClock struct {
	t time.Time
}

func (m *manualClock) Now() time.Time          { return m.t }
func (m *manualClock) Advance(d time.Duration) { m.t = m.t.Add(d) }

func msg(channelID, content string) bus.InboundMessage {
	return bus.InboundMessage{GuildID: "g1", ChannelID: channelID, Content: content}
}

func TestWakeWordActivates(t *testing.T) {
	e, _ := newTestEngine(testConfig(), nil)

	if d := e.Observe(msg("c1", "what time is it")); d.Respond {
		t.Fatal("unaddressed message in idle channel should not respond")
	}
	d := e.Observe(msg("c1", "HEY BARNABY, you there?"))
	if !d.Respond || d.Reason != ReasonWake {
		t.Fatalf("wake word should activate, got %+v", d)
	}
	// Now in conversation: arbitrary follow-up responds.
	d = e.Observe(msg("c1", "cool, thanks"))
	if !d.Respond || d.Reason != ReasonConversation {
		t.Fatalf("active channel should respond to follow-up, got %+v", d)
	}
}

func TestFuzzyNameActivates(t *testing.T) {
	e, _ := newTestEngine(testConfig(), nil)

	// One dropped letter, well above an 80 threshold.
	if d := e.Observe(msg("c1", "barnby, tell me a joke!")); !d.Respond {
		t.Fatal("near-miss name token should activate")
	}
}

func TestFuzzyNameBelowThreshold(t *testing.T) {
	e, _ := newTestEngine(testConfig(), nil)

	if d := e.Observe(msg("c1", "the barn is on fire")); d.Respond {
		t.Fatal("distant token should not activate")
	}
}

func TestConversationExpiry(t *testing.T) {
	e, clock := newTestEngine(testConfig(), nil)

	e.Observe(msg("c1", "hey barnaby"))
	clock.Advance(5 * time.Minute)
	// Exactly at the timeout the conversation is still live.
	if d := e.Observe(msg("c1", "still here?")); !d.Respond {
		t.Fatal("conversation at exactly the timeout boundary should still be active")
	}
	clock.Advance(5*time.Minute + time.Second)
	if d := e.Observe(msg("c1", "hello?")); d.Respond {
		t.Fatal("conversation past the timeout should have expired")
	}
}

func TestConversationReArmsOnActivity(t *testing.T) {
	e, clock := newTestEngine(testConfig(), nil)

	e.Observe(msg("c1", "hey barnaby"))
	for i := 0; i < 3; i++ {
		clock.Advance(4 * time.Minute)
		if d := e.Observe(msg("c1", "more chat")); !d.Respond {
			t.Fatalf("message %d within timeout should keep conversation alive", i)
		}
	}
}

func TestChannelsAreIndependent(t *testing.T) {
	e, _ := newTestEngine(testConfig(), nil)

	e.Observe(msg("c1", "hey barnaby"))
	if d := e.Observe(msg("c2", "unrelated chatter")); d.Respond {
		t.Fatal("activation in one channel must not leak into another")
	}
}

func TestBlocklistShortCircuits(t *testing.T) {
	e, _ := newTestEngine(testConfig(), staticBlocklist{"c1": true})

	if d := e.Observe(msg("c1", "hey barnaby")); d.Respond {
		t.Fatal("blocklisted channel should never respond")
	}
	// State untouched: unblocking later starts from idle.
	e2, _ := newTestEngine(testConfig(), nil)
	e2.Observe(msg("c1", "hmm"))
	if d := e2.Observe(msg("c1", "anything")); d.Respond {
		t.Fatal("channel should still be idle")
	}
}

func TestDirectMessageBypassesBlocklist(t *testing.T) {
	e, _ := newTestEngine(testConfig(), staticBlocklist{"dm1": true})

	d := e.Observe(bus.InboundMessage{ChannelID: "dm1", Content: "hi", Direct: true})
	if !d.Respond || d.Reason != ReasonDirect {
		t.Fatalf("DM should always respond, got %+v", d)
	}
}

func TestRandomTriggerDoesNotActivate(t *testing.T) {
	cfg := testConfig()
	cfg.RandomPercent = 10
	e, _ := newTestEngine(cfg, nil)
	e.SetRoll(func() float64 { return 0.05 }) // 5 < 10, fires

	d := e.Observe(msg("c1", "nothing to do with the bot"))
	if !d.Respond || d.Reason != ReasonRandom {
		t.Fatalf("random trigger should respond, got %+v", d)
	}
	// The channel must still be idle afterwards.
	e.SetRoll(func() float64 { return 1 })
	if d := e.Observe(msg("c1", "follow-up")); d.Respond {
		t.Fatal("random trigger must not open a conversation")
	}
}

func TestEmptyTextNeverMatches(t *testing.T) {
	e, _ := newTestEngine(testConfig(), nil)
	if d := e.Observe(msg("c1", "   ")); d.Respond {
		t.Fatal("whitespace-only message should not activate")
	}
}

func TestDeactivate(t *testing.T) {
	e, _ := newTestEngine(testConfig(), nil)
	e.Observe(msg("c1", "hey barnaby"))
	e.Deactivate("c1")
	if d := e.Observe(msg("c1", "anyone?")); d.Respond {
		t.Fatal("deactivated channel should be idle again")
	}
}

func TestRatio(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"barnaby", "barnaby", 100},
		{"", "", 100},
		{"abcd", "abce", 75},
		{"abc", "", 0},
	}
	for _, tc := range cases {
		if got := ratio(tc.a, tc.b); got != tc.want {
			t.Errorf("ratio(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestBestTokenScoreStripsPunctuation(t *testing.T) {
	if got := bestTokenScore("oi, Barnaby!", "barnaby"); got != 100 {
		t.Fatalf("punctuation-wrapped exact token should score 100, got %d", got)
	}
}
