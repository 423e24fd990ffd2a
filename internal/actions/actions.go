// Package actions executes parsed directives against the platform. Every
// directive passes through the same pipeline: policy gate, global quota,
// argument validation, target resolution, protection check, then the handler.
// Each stage that declines reports a user-facing message on the outbound bus.
package actions

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/nextlevelbuilder/mascot/internal/bus"
	"github.com/nextlevelbuilder/mascot/internal/command"
	"github.com/nextlevelbuilder/mascot/internal/ratelimit"
)

// Member is a guild member as the dispatcher sees it.
type Member struct {
	ID            string
	Username      string
	DisplayName   string
	Administrator bool
	ManagesGuild  bool
}

// Platform is the moderation surface the dispatcher drives.
type Platform interface {
	Members(ctx context.Context, guildID string) ([]Member, error)
	Timeout(ctx context.Context, guildID, userID string, until time.Time, reason string) error
	Ban(ctx context.Context, guildID, userID, reason string) error
	SetNickname(ctx context.Context, guildID, userID, nick string) error
	SendDirectMessage(ctx context.Context, userID, content string) error
}

// VoiceJoiner starts a voice session; failures are reported to the channel by
// the voice layer itself.
type VoiceJoiner interface {
	Join(ctx context.Context, guildID, textChannelID, query string, minutes int) error
}

// ImageSearcher returns image URLs for a query.
type ImageSearcher interface {
	Search(ctx context.Context, query string, count int) ([]string, error)
}

// Config holds the safety policy for destructive actions.
type Config struct {
	TimeoutEnabled    bool
	BanEnabled        bool
	NicknameEnabled   bool
	MaxTimeoutMinutes int
	MaxVoiceMinutes   int
	MaxImages         int
	ProtectedIDs      []string
}

// Request carries the message context an action runs in.
type Request struct {
	GuildID   string
	ChannelID string
}

// Dispatcher routes commands to platform handlers.
type Dispatcher struct {
	cfg      Config
	platform Platform
	voice    VoiceJoiner
	images   ImageSearcher
	quota    *ratelimit.Window
	bus      *bus.MessageBus
	pacer    *rate.Limiter
	log      *slog.Logger

	randN func(int) int
}

// New creates a dispatcher. quota is the shared hourly action window.
func New(cfg Config, platform Platform, voice VoiceJoiner, images ImageSearcher,
	quota *ratelimit.Window, mb *bus.MessageBus, log *slog.Logger) *Dispatcher {
	if cfg.MaxImages <= 0 {
		cfg.MaxImages = 1
	}
	return &Dispatcher{
		cfg:      cfg,
		platform: platform,
		voice:    voice,
		images:   images,
		quota:    quota,
		bus:      mb,
		pacer:    rate.NewLimiter(rate.Every(time.Second), 1),
		log:      log,
		randN:    rand.Intn,
	}
}

type gate struct {
	always  bool
	enabled func(Config) bool
}

var gates = map[command.Kind]gate{
	command.KindTimeout:       {enabled: func(c Config) bool { return c.TimeoutEnabled }},
	command.KindBan:           {enabled: func(c Config) bool { return c.BanEnabled }},
	command.KindNickname:      {enabled: func(c Config) bool { return c.NicknameEnabled }},
	command.KindDirectMessage: {always: true},
	command.KindVoiceJoin:     {always: true},
	command.KindImageSearch:   {always: true},
}

// Dispatch runs one directive through the pipeline. Handler errors are
// reported to the channel and logged, never returned: a failed action must not
// take the bot down or trigger a retry.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd command.Command, req Request) {
	if cmd.Kind == command.KindUnknown {
		if cmd.Verb != "" {
			d.say(req, fmt.Sprintf("I don't know how to %q.", cmd.Verb))
		}
		return
	}

	g := gates[cmd.Kind]
	if !g.always && !g.enabled(d.cfg) {
		d.say(req, fmt.Sprintf("Sorry, %s is switched off here.", cmd.Verb))
		return
	}

	if !d.quota.Allow() {
		d.say(req, "I've done enough damage for now. Ask me again in a bit.")
		return
	}

	switch cmd.Kind {
	case command.KindTimeout:
		d.timeout(ctx, cmd, req)
	case command.KindBan:
		d.ban(ctx, cmd, req)
	case command.KindNickname:
		d.nickname(ctx, cmd, req)
	case command.KindDirectMessage:
		d.directMessage(ctx, cmd, req)
	case command.KindVoiceJoin:
		d.voiceJoin(ctx, cmd, req)
	case command.KindImageSearch:
		d.imageSearch(ctx, cmd, req)
	}
}

func (d *Dispatcher) timeout(ctx context.Context, cmd command.Command, req Request) {
	if len(cmd.Args) < 2 {
		d.say(req, "Timeout needs a target and a number of minutes.")
		return
	}
	minutes, err := strconv.Atoi(cmd.Args[1])
	if err != nil || minutes <= 0 {
		d.say(req, fmt.Sprintf("%q is not a number of minutes I can work with.", cmd.Args[1]))
		return
	}
	member, ok := d.resolve(ctx, req, cmd.Args[0])
	if !ok {
		return
	}
	if d.protected(member) {
		d.say(req, fmt.Sprintf("Not touching %s. They're off limits.", member.display()))
		return
	}

	clamped := false
	if minutes > d.cfg.MaxTimeoutMinutes {
		minutes = d.cfg.MaxTimeoutMinutes
		clamped = true
	}
	reason := strings.Join(cmd.Args[2:], " ")
	until := time.Now().Add(time.Duration(minutes) * time.Minute)
	if err := d.platform.Timeout(ctx, req.GuildID, member.ID, until, reason); err != nil {
		d.report(req, "timeout", err)
		return
	}
	msg := fmt.Sprintf("%s is in timeout for %d minutes.", member.display(), minutes)
	if clamped {
		msg += " That's as long as I'm allowed."
	}
	d.say(req, msg)
}

func (d *Dispatcher) ban(ctx context.Context, cmd command.Command, req Request) {
	if len(cmd.Args) < 1 {
		d.say(req, "Ban who, exactly?")
		return
	}
	member, ok := d.resolve(ctx, req, cmd.Args[0])
	if !ok {
		return
	}
	if d.protected(member) {
		d.say(req, fmt.Sprintf("Not touching %s. They're off limits.", member.display()))
		return
	}
	reason := strings.Join(cmd.Args[1:], " ")
	if err := d.platform.Ban(ctx, req.GuildID, member.ID, reason); err != nil {
		d.report(req, "ban", err)
		return
	}
	d.say(req, fmt.Sprintf("%s has been banned. Farewell.", member.display()))
}

func (d *Dispatcher) nickname(ctx context.Context, cmd command.Command, req Request) {
	if len(cmd.Args) < 2 {
		d.say(req, "Nickname needs a target and the new name.")
		return
	}
	member, ok := d.resolve(ctx, req, cmd.Args[0])
	if !ok {
		return
	}
	if d.protected(member) {
		d.say(req, fmt.Sprintf("Not touching %s. They're off limits.", member.display()))
		return
	}
	nick := strings.Join(cmd.Args[1:], " ")
	if err := d.platform.SetNickname(ctx, req.GuildID, member.ID, nick); err != nil {
		d.report(req, "nickname", err)
		return
	}
	d.say(req, fmt.Sprintf("%s shall henceforth be known as %q.", member.display(), nick))
}

func (d *Dispatcher) directMessage(ctx context.Context, cmd command.Command, req Request) {
	if len(cmd.Args) < 2 {
		d.say(req, "DM needs a target and a message.")
		return
	}
	member, ok := d.resolve(ctx, req, cmd.Args[0])
	if !ok {
		return
	}
	content := strings.Join(cmd.Args[1:], " ")
	if err := d.platform.SendDirectMessage(ctx, member.ID, content); err != nil {
		d.report(req, "dm", err)
		return
	}
	d.say(req, fmt.Sprintf("Slid into %s's DMs.", member.display()))
}

func (d *Dispatcher) voiceJoin(ctx context.Context, cmd command.Command, req Request) {
	if len(cmd.Args) < 1 {
		d.say(req, "Which voice channel?")
		return
	}
	query := cmd.Args[0]
	minutes := 0
	if len(cmd.Args) >= 2 {
		if n, err := strconv.Atoi(cmd.Args[1]); err == nil && n > 0 {
			minutes = n
		}
	}
	if d.cfg.MaxVoiceMinutes > 0 && minutes > d.cfg.MaxVoiceMinutes {
		minutes = d.cfg.MaxVoiceMinutes
	}
	if err := d.voice.Join(ctx, req.GuildID, req.ChannelID, query, minutes); err != nil {
		d.report(req, "vcjoin", err)
	}
}

func (d *Dispatcher) imageSearch(ctx context.Context, cmd command.Command, req Request) {
	if len(cmd.Args) < 1 {
		d.say(req, "Image of what?")
		return
	}
	query := strings.Join(cmd.Args, " ")
	count := 1 + d.randN(d.cfg.MaxImages)
	urls, err := d.images.Search(ctx, query, count)
	if err != nil {
		d.report(req, "image", err)
		return
	}
	if len(urls) == 0 {
		d.say(req, fmt.Sprintf("Couldn't find any pictures of %q.", query))
		return
	}
	for _, url := range urls {
		if err := d.pacer.Wait(ctx); err != nil {
			return
		}
		d.say(req, url)
	}
}

// resolve finds a guild member by ID, exact name, or substring, in that order.
// A mention wrapper (<@...>) around an ID is stripped first.
func (d *Dispatcher) resolve(ctx context.Context, req Request, target string) (Member, bool) {
	members, err := d.platform.Members(ctx, req.GuildID)
	if err != nil {
		d.report(req, "member lookup", err)
		return Member{}, false
	}

	id := strings.Trim(target, "<@!>")
	if isDigits(id) {
		for _, m := range members {
			if m.ID == id {
				return m, true
			}
		}
	}

	lower := strings.ToLower(target)
	for _, m := range members {
		if strings.EqualFold(m.Username, target) || strings.EqualFold(m.DisplayName, target) {
			return m, true
		}
	}
	for _, m := range members {
		if strings.Contains(strings.ToLower(m.Username), lower) ||
			strings.Contains(strings.ToLower(m.DisplayName), lower) {
			return m, true
		}
	}

	d.say(req, fmt.Sprintf("No idea who %q is.", target))
	return Member{}, false
}

func (d *Dispatcher) protected(m Member) bool {
	if m.Administrator || m.ManagesGuild {
		return true
	}
	for _, id := range d.cfg.ProtectedIDs {
		if id == m.ID {
			return true
		}
	}
	return false
}

func (d *Dispatcher) say(req Request, text string) {
	if !d.bus.PublishOutbound(bus.OutboundMessage{ChannelID: req.ChannelID, Content: text}) {
		d.log.Warn("outbound buffer full, dropping action reply", "channel", req.ChannelID)
	}
}

func (d *Dispatcher) report(req Request, action string, err error) {
	d.log.Error("action failed", "action", action, "guild", req.GuildID, "error", err)
	d.say(req, fmt.Sprintf("Tried the %s, but it didn't take: %v", action, err))
}

func (m Member) display() string {
	if m.DisplayName != "" {
		return m.DisplayName
	}
	return m.Username
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
