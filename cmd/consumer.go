package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/mascot/internal/actions"
	"github.com/nextlevelbuilder/mascot/internal/activation"
	"github.com/nextlevelbuilder/mascot/internal/brain"
	"github.com/nextlevelbuilder/mascot/internal/bus"
	"github.com/nextlevelbuilder/mascot/internal/command"
	"github.com/nextlevelbuilder/mascot/internal/ratelimit"
	"github.com/nextlevelbuilder/mascot/internal/store"
)

// consumer is the single goroutine draining the inbound bus. Gateway handlers
// run concurrently, so every per-message decision (activation, cooldown,
// actions) happens here to keep one logical message stream.
type consumer struct {
	bus        *bus.MessageBus
	engine     *activation.Engine
	cooldown   *ratelimit.Cooldown
	brain      *brain.Client
	data       *store.Data
	dispatcher *actions.Dispatcher
	log        *slog.Logger
}

func (c *consumer) run(ctx context.Context) error {
	for {
		msg, ok := c.bus.ConsumeInbound(ctx)
		if !ok {
			return nil
		}
		c.handle(ctx, msg)
	}
}

func (c *consumer) handle(ctx context.Context, msg bus.InboundMessage) {
	decision := c.engine.Observe(msg)
	if !decision.Respond {
		return
	}
	if !c.cooldown.Allow(msg.SenderID) {
		c.log.Debug("sender on cooldown", "sender_id", msg.SenderID)
		return
	}

	runID := uuid.NewString()[:8]
	log := c.log.With("run_id", runID, "channel_id", msg.ChannelID)
	log.Info("responding", "reason", decision.Reason, "sender", msg.SenderName)

	memories, err := c.data.LoadMemories()
	if err != nil {
		log.Warn("failed to load memories", "error", err)
	}
	dossier, err := c.data.LoadDossier()
	if err != nil {
		log.Warn("failed to load dossier", "error", err)
	}

	reply, err := c.brain.Respond(ctx, msg, memories.Entries, dossier.Text)
	if err != nil {
		// A brain failure means no response; the conversation state stays as is.
		log.Error("response generation failed", "error", err)
		return
	}
	if reply.Fallback {
		log.Debug("reply did not parse as structured output, using verbatim")
	}

	if reply.Message != "" {
		if !c.bus.PublishOutbound(bus.OutboundMessage{ChannelID: msg.ChannelID, Content: reply.Message}) {
			log.Warn("outbound buffer full, reply dropped")
		}
	}

	if reply.HasAction() {
		log.Info("executing action", "directive", reply.Action)
		c.dispatcher.Dispatch(ctx, command.Parse(reply.Action),
			actions.Request{GuildID: msg.GuildID, ChannelID: msg.ChannelID})
	}

	c.updateState(ctx, log, msg, reply, memories, dossier)
}

// updateState runs the profiler and memory models after a response cycle.
// Both are best-effort; failures keep the previous state.
func (c *consumer) updateState(ctx context.Context, log *slog.Logger, msg bus.InboundMessage,
	reply brain.Reply, memories store.Memories, dossier store.Dossier) {

	if revised, err := c.brain.UpdateDossier(ctx, dossier.Text, msg.SenderName, msg.Content); err != nil {
		log.Warn("dossier update failed", "error", err)
	} else if revised != dossier.Text {
		if err := c.data.SaveDossier(store.Dossier{Text: revised}); err != nil {
			log.Warn("dossier save failed", "error", err)
		}
	}

	exchange := fmt.Sprintf("%s: %s\n%s", msg.SenderName, msg.Content, reply.Message)
	if updated, err := c.brain.UpdateMemories(ctx, memories.Entries, exchange); err != nil {
		log.Warn("memory update failed", "error", err)
	} else if err := c.data.SaveMemories(store.Memories{Entries: updated}); err != nil {
		log.Warn("memory save failed", "error", err)
	}
}
