// Package config loads bot settings from a JSON5 file layered over defaults,
// with secrets taken from the environment.
package config

import (
	"fmt"
	"os"

	"github.com/titanous/json5"
)

// Config is the full settings tree. Secrets carry `json:"-"` so they can only
// arrive through the environment, never the settings file.
type Config struct {
	Character CharacterConfig `json:"character"`
	Discord   DiscordConfig   `json:"discord"`
	Safety    SafetyConfig    `json:"safety"`
	Voice     VoiceConfig     `json:"voice"`
	Images    ImagesConfig    `json:"images"`
	OpenAI    OpenAIConfig    `json:"openai"`
	Data      DataConfig      `json:"data"`
	Cron      CronConfig      `json:"cron"`
	Logging   LoggingConfig   `json:"logging"`
}

// CharacterConfig shapes when and how the bot engages.
type CharacterConfig struct {
	Name                   string  `json:"name"`
	WakeWord               string  `json:"wake_word"`
	PromptFile             string  `json:"prompt_file"`
	ActivationThreshold    int     `json:"activation_threshold"`
	ConversationTimeoutSec int     `json:"conversation_timeout_seconds"`
	RandomResponsePercent  float64 `json:"random_response_percent"`
	ResponseCooldownSec    int     `json:"response_cooldown_seconds"`
}

type DiscordConfig struct {
	Token          string `json:"-"` // from env DISCORD_BOT_TOKEN only
	StatusText     string `json:"status_text"`
	StatusType     string `json:"status_type"` // playing, watching, listening, competing
	MessageHistory int    `json:"message_history"`
	BusBuffer      int    `json:"bus_buffer"`
}

type SafetyConfig struct {
	TimeoutEnabled    bool     `json:"timeout_enabled"`
	BanEnabled        bool     `json:"ban_enabled"`
	NicknameEnabled   bool     `json:"nickname_enabled"`
	MaxTimeoutMinutes int      `json:"max_timeout_minutes"`
	MaxActionsPerHour int      `json:"max_actions_per_hour"`
	ProtectedUserIDs  []string `json:"protected_user_ids"`
}

type VoiceConfig struct {
	SoundsDir        string   `json:"sounds_dir"`
	Extensions       []string `json:"extensions"`
	StartupDelaySec  int      `json:"startup_delay_seconds"`
	MinIntervalSec   int      `json:"min_interval_seconds"`
	MaxIntervalSec   int      `json:"max_interval_seconds"`
	ContinueChance   float64  `json:"continue_chance"`
	DisconnectChance float64  `json:"disconnect_chance"`
	GraceDelaySec    int      `json:"grace_delay_seconds"`
	MaxMinutes       int      `json:"max_minutes"`
	DefaultMinutes   int      `json:"default_minutes"`
}

type ImagesConfig struct {
	APIKey        string `json:"-"` // from env GOOGLE_API_KEY only
	EngineID      string `json:"-"` // from env GOOGLE_SEARCH_ENGINE_ID only
	MaxPerRequest int    `json:"max_per_request"`
	SafeSearch    string `json:"safe_search"`
	SiteRestrict  string `json:"site_restrict"`
}

type OpenAIConfig struct {
	APIKey        string  `json:"-"` // from env OPENAI_API_KEY only
	Model         string  `json:"model"`
	ProfilerModel string  `json:"profiler_model"`
	MemoryModel   string  `json:"memory_model"`
	MaxTokens     int     `json:"max_tokens"`
	Temperature   float64 `json:"temperature"`
}

type DataConfig struct {
	Dir           string `json:"dir"`
	BlocklistFile string `json:"blocklist_file"`
}

type CronConfig struct {
	MemoryCompaction string `json:"memory_compaction"`
	MaxMemories      int    `json:"max_memories"`
}

type LoggingConfig struct {
	Level string `json:"level"` // debug, info, warn, error
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Character: CharacterConfig{
			Name:                   "mascot",
			WakeWord:               "hey mascot",
			PromptFile:             "prompt.txt",
			ActivationThreshold:    80,
			ConversationTimeoutSec: 300,
			RandomResponsePercent:  1,
			ResponseCooldownSec:    3,
		},
		Discord: DiscordConfig{
			StatusType:     "watching",
			StatusText:     "the chat",
			MessageHistory: 10,
			BusBuffer:      128,
		},
		Safety: SafetyConfig{
			TimeoutEnabled:    true,
			BanEnabled:        false,
			NicknameEnabled:   true,
			MaxTimeoutMinutes: 60,
			MaxActionsPerHour: 10,
		},
		Voice: VoiceConfig{
			SoundsDir:        "sounds",
			Extensions:       []string{"mp3", "wav", "ogg", "dca"},
			StartupDelaySec:  3,
			MinIntervalSec:   30,
			MaxIntervalSec:   120,
			ContinueChance:   0.7,
			DisconnectChance: 0.3,
			GraceDelaySec:    1,
			MaxMinutes:       30,
			DefaultMinutes:   5,
		},
		Images: ImagesConfig{
			MaxPerRequest: 3,
			SafeSearch:    "active",
		},
		OpenAI: OpenAIConfig{
			Model:       "gpt-4o-mini",
			MaxTokens:   400,
			Temperature: 0.9,
		},
		Data: DataConfig{
			Dir:           "data",
			BlocklistFile: "data/blocklist.txt",
		},
		Cron: CronConfig{
			MemoryCompaction: "0 4 * * *",
			MaxMemories:      200,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the config from defaults, the optional settings file, and the
// environment, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		} else if err := json5.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DISCORD_BOT_TOKEN"); v != "" {
		c.Discord.Token = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv("GOOGLE_API_KEY"); v != "" {
		c.Images.APIKey = v
	}
	if v := os.Getenv("GOOGLE_SEARCH_ENGINE_ID"); v != "" {
		c.Images.EngineID = v
	}
}

func (c *Config) validate() error {
	if c.Character.ActivationThreshold < 0 || c.Character.ActivationThreshold > 100 {
		return fmt.Errorf("character.activation_threshold must be 0-100, got %d", c.Character.ActivationThreshold)
	}
	if c.Voice.MaxIntervalSec < c.Voice.MinIntervalSec {
		return fmt.Errorf("voice.max_interval_seconds must be >= voice.min_interval_seconds")
	}
	if c.Safety.MaxActionsPerHour <= 0 {
		return fmt.Errorf("safety.max_actions_per_hour must be positive")
	}
	return nil
}
