// Package activation decides, per inbound message, whether the bot should
// engage. Each channel moves between idle and active conversation states;
// activation happens on a wake word or a close-enough mention of the bot's
// name, and an active conversation stays alive as long as messages keep
// arriving within the timeout.
package activation

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/nextlevelbuilder/mascot/internal/bus"
)

// Reason explains why the engine chose to respond.
type Reason string

const (
	ReasonDirect       Reason = "direct"
	ReasonWake         Reason = "wake"
	ReasonConversation Reason = "conversation"
	ReasonRandom       Reason = "random"
)

// Decision is the outcome of observing one message.
type Decision struct {
	Respond bool
	Reason  Reason
}

// Blocklist reports whether a channel is excluded from activation.
type Blocklist interface {
	Blocked(channelID, channelName string) bool
}

// Config tunes the activation engine.
type Config struct {
	// BotName is fuzzily matched against message tokens.
	BotName string
	// WakeWord activates on a case-insensitive substring match.
	WakeWord string
	// Threshold is the minimum 0-100 token similarity score to activate.
	Threshold int
	// Timeout is how long a conversation stays active without new messages.
	Timeout time.Duration
	// RandomPercent is the chance (0-100) of replying to an arbitrary message.
	RandomPercent float64
}

type conversation struct {
	active       bool
	lastActivity time.Time
}

// Engine tracks per-channel conversation state.
type Engine struct {
	cfg       Config
	blocklist Blocklist

	mu     sync.Mutex
	convos map[string]*conversation

	now  func() time.Time
	roll func() float64
}

// New creates an activation engine. blocklist may be nil.
func New(cfg Config, blocklist Blocklist) *Engine {
	return &Engine{
		cfg:       cfg,
		blocklist: blocklist,
		convos:    make(map[string]*conversation),
		now:       time.Now,
		roll:      rand.Float64,
	}
}

// SetClock and SetRoll override the time and randomness sources. Test use only.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }
func (e *Engine) SetRoll(roll func() float64)   { e.roll = roll }

// Observe runs the state machine for one message and reports whether the bot
// should respond. DMs always respond and skip the blocklist. Expiry is lazy:
// a stale conversation is reset the next time its channel sees a message.
func (e *Engine) Observe(msg bus.InboundMessage) Decision {
	if msg.Direct {
		return Decision{Respond: true, Reason: ReasonDirect}
	}
	if e.blocklist != nil && e.blocklist.Blocked(msg.ChannelID, msg.ChannelName) {
		return Decision{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	convo := e.convos[msg.ChannelID]
	if convo == nil {
		convo = &conversation{}
		e.convos[msg.ChannelID] = convo
	}

	if convo.active && now.Sub(convo.lastActivity) > e.cfg.Timeout {
		convo.active = false
	}

	if convo.active {
		convo.lastActivity = now
		return Decision{Respond: true, Reason: ReasonConversation}
	}

	if e.addressed(msg.Content) {
		convo.active = true
		convo.lastActivity = now
		return Decision{Respond: true, Reason: ReasonWake}
	}

	// Random engagement does not open a conversation.
	if e.roll()*100 < e.cfg.RandomPercent {
		return Decision{Respond: true, Reason: ReasonRandom}
	}
	return Decision{}
}

// Deactivate forces a channel back to idle.
func (e *Engine) Deactivate(channelID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if convo, ok := e.convos[channelID]; ok {
		convo.active = false
	}
}

func (e *Engine) addressed(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	if e.cfg.WakeWord != "" &&
		strings.Contains(strings.ToLower(text), strings.ToLower(e.cfg.WakeWord)) {
		return true
	}
	if e.cfg.BotName == "" {
		return false
	}
	return bestTokenScore(text, e.cfg.BotName) >= e.cfg.Threshold
}
