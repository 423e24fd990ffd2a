package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json5")
	body := `{
		// tuned for the test server
		character: {
			name: "barnaby",
			activation_threshold: 75,
		},
		safety: {
			ban_enabled: true,
		},
	}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Character.Name != "barnaby" || cfg.Character.ActivationThreshold != 75 {
		t.Fatalf("file values should win: %+v", cfg.Character)
	}
	if !cfg.Safety.BanEnabled {
		t.Fatal("safety.ban_enabled should be overridden")
	}
	// Untouched sections keep defaults.
	if cfg.Voice.ContinueChance != 0.7 {
		t.Fatalf("voice defaults should survive, got %v", cfg.Voice.ContinueChance)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json5"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Character.Name != "mascot" {
		t.Fatalf("expected defaults, got %+v", cfg.Character)
	}
}

func TestEnvOverridesSecrets(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "tok-123")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Discord.Token != "tok-123" || cfg.OpenAI.APIKey != "sk-test" {
		t.Fatal("env secrets should be applied")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Character.ActivationThreshold = 150
	if err := cfg.validate(); err == nil {
		t.Fatal("threshold over 100 should fail")
	}

	cfg = Default()
	cfg.Voice.MinIntervalSec = 120
	cfg.Voice.MaxIntervalSec = 30
	if err := cfg.validate(); err == nil {
		t.Fatal("inverted voice interval should fail")
	}
}
