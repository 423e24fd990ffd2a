package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/nextlevelbuilder/mascot/internal/actions"
	"github.com/nextlevelbuilder/mascot/internal/activation"
	"github.com/nextlevelbuilder/mascot/internal/brain"
	"github.com/nextlevelbuilder/mascot/internal/bus"
	"github.com/nextlevelbuilder/mascot/internal/channels/discord"
	"github.com/nextlevelbuilder/mascot/internal/config"
	"github.com/nextlevelbuilder/mascot/internal/cron"
	"github.com/nextlevelbuilder/mascot/internal/ratelimit"
	"github.com/nextlevelbuilder/mascot/internal/search"
	"github.com/nextlevelbuilder/mascot/internal/store"
	"github.com/nextlevelbuilder/mascot/internal/voice"
)

func runServe() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	setupLogging(cfg.Logging.Level)

	if cfg.Discord.Token == "" {
		slog.Error("DISCORD_BOT_TOKEN is not set")
		os.Exit(1)
	}
	if cfg.OpenAI.APIKey == "" {
		slog.Error("OPENAI_API_KEY is not set")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("bot exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	log := slog.Default()

	data, err := store.Open(cfg.Data.Dir)
	if err != nil {
		return err
	}
	blocklist, err := store.NewBlocklist(cfg.Data.BlocklistFile, log)
	if err != nil {
		return err
	}
	library := store.NewSoundLibrary(cfg.Voice.SoundsDir, cfg.Voice.Extensions)
	mb := bus.New(cfg.Discord.BusBuffer)

	prompt, err := os.ReadFile(cfg.Character.PromptFile)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("read prompt file: %w", err)
		}
		log.Warn("prompt file missing, using a bare personality", "path", cfg.Character.PromptFile)
		prompt = []byte(fmt.Sprintf("You are %s, a chaotic but good-natured Discord regular.", cfg.Character.Name))
	}

	brainClient := brain.New(cfg.OpenAI.APIKey, brain.Config{
		Model:         cfg.OpenAI.Model,
		ProfilerModel: cfg.OpenAI.ProfilerModel,
		MemoryModel:   cfg.OpenAI.MemoryModel,
		MaxTokens:     cfg.OpenAI.MaxTokens,
		Temperature:   float32(cfg.OpenAI.Temperature),
		SystemPrompt:  string(prompt),
		MaxMemories:   cfg.Cron.MaxMemories,
	}, log)

	searcher := search.New(search.Config{
		APIKey:       cfg.Images.APIKey,
		EngineID:     cfg.Images.EngineID,
		SafeSearch:   cfg.Images.SafeSearch,
		SiteRestrict: cfg.Images.SiteRestrict,
	})

	channel, err := discord.New(cfg.Discord, mb)
	if err != nil {
		return err
	}

	voiceMgr := voice.New(channel, library, voice.Config{
		StartupDelay:     time.Duration(cfg.Voice.StartupDelaySec) * time.Second,
		MinInterval:      time.Duration(cfg.Voice.MinIntervalSec) * time.Second,
		MaxInterval:      time.Duration(cfg.Voice.MaxIntervalSec) * time.Second,
		ContinueChance:   cfg.Voice.ContinueChance,
		DisconnectChance: cfg.Voice.DisconnectChance,
		GraceDelay:       time.Duration(cfg.Voice.GraceDelaySec) * time.Second,
		DefaultMinutes:   cfg.Voice.DefaultMinutes,
	}, func(channelID, text string) {
		mb.PublishOutbound(bus.OutboundMessage{ChannelID: channelID, Content: text})
	}, log)

	engine := activation.New(activation.Config{
		BotName:       cfg.Character.Name,
		WakeWord:      cfg.Character.WakeWord,
		Threshold:     cfg.Character.ActivationThreshold,
		Timeout:       time.Duration(cfg.Character.ConversationTimeoutSec) * time.Second,
		RandomPercent: cfg.Character.RandomResponsePercent,
	}, blocklist)

	dispatcher := actions.New(actions.Config{
		TimeoutEnabled:    cfg.Safety.TimeoutEnabled,
		BanEnabled:        cfg.Safety.BanEnabled,
		NicknameEnabled:   cfg.Safety.NicknameEnabled,
		MaxTimeoutMinutes: cfg.Safety.MaxTimeoutMinutes,
		MaxVoiceMinutes:   cfg.Voice.MaxMinutes,
		MaxImages:         cfg.Images.MaxPerRequest,
		ProtectedIDs:      cfg.Safety.ProtectedUserIDs,
	}, channel, voiceMgr, searcher,
		ratelimit.NewWindow(time.Hour, cfg.Safety.MaxActionsPerHour), mb, log)

	worker := &consumer{
		bus:        mb,
		engine:     engine,
		cooldown:   ratelimit.NewCooldown(time.Duration(cfg.Character.ResponseCooldownSec) * time.Second),
		brain:      brainClient,
		data:       data,
		dispatcher: dispatcher,
		log:        log,
	}

	crontab := cron.New(log)
	if cfg.Cron.MemoryCompaction != "" {
		err := crontab.Add(cron.Job{
			Name: "memory-compaction",
			Expr: cfg.Cron.MemoryCompaction,
			Run: func(context.Context) error {
				removed, err := data.CompactMemories(cfg.Cron.MaxMemories)
				if err != nil {
					return err
				}
				if removed > 0 {
					log.Info("compacted memories", "removed", removed)
				}
				return nil
			},
		})
		if err != nil {
			return err
		}
	}

	if err := channel.Start(ctx); err != nil {
		return err
	}
	defer channel.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return worker.run(gctx) })
	g.Go(func() error { return crontab.Start(gctx) })
	g.Go(func() error { return blocklist.Watch(gctx) })
	g.Go(func() error {
		for {
			msg, ok := mb.ConsumeOutbound(gctx)
			if !ok {
				return nil
			}
			if err := channel.Send(msg.ChannelID, msg.Content); err != nil {
				log.Error("outbound send failed", "channel_id", msg.ChannelID, "error", err)
			}
		}
	})

	err = g.Wait()
	voiceMgr.Shutdown()
	return err
}

func setupLogging(level string) {
	lvl := slog.LevelInfo
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}
