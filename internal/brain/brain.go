// Package brain generates the bot's replies through OpenAI chat completions
// and maintains the long-term memory and user dossier via secondary models.
package brain

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nextlevelbuilder/mascot/internal/bus"
)

// Config selects models and generation parameters.
type Config struct {
	Model         string
	ProfilerModel string
	MemoryModel   string
	MaxTokens     int
	Temperature   float32
	SystemPrompt  string
	MaxMemories   int
}

// Client wraps the OpenAI API for the three roles the bot uses it in.
type Client struct {
	api *openai.Client
	cfg Config
	log *slog.Logger
}

// New creates a brain client.
func New(apiKey string, cfg Config, log *slog.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.ProfilerModel == "" {
		cfg.ProfilerModel = cfg.Model
	}
	if cfg.MemoryModel == "" {
		cfg.MemoryModel = cfg.Model
	}
	return &Client{api: openai.NewClient(apiKey), cfg: cfg, log: log}
}

// Respond generates a reply to msg. memories and dossier are injected into the
// system prompt; msg.History provides the short-term conversational context.
func (c *Client) Respond(ctx context.Context, msg bus.InboundMessage, memories []string, dossier string) (Reply, error) {
	messages := []openai.ChatCompletionMessage{{
		Role:    openai.ChatMessageRoleSystem,
		Content: c.systemPrompt(msg, memories, dossier),
	}}
	for _, h := range msg.History {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: fmt.Sprintf("%s: %s", h.Sender, h.Body),
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: fmt.Sprintf("%s: %s", msg.SenderName, msg.Content),
	})

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return Reply{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Reply{}, fmt.Errorf("chat completion returned no choices")
	}
	c.log.Debug("chat completion",
		"model", c.cfg.Model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)
	return ParseReply(resp.Choices[0].Message.Content), nil
}

func (c *Client) systemPrompt(msg bus.InboundMessage, memories []string, dossier string) string {
	var b strings.Builder
	b.WriteString(c.cfg.SystemPrompt)
	b.WriteString("\n\nRespond with a JSON object: {\"message\": \"your reply\", \"action\": \"none\"}.")
	b.WriteString("\nTo act, set action to one of: timeout <user> <minutes> [reason], ban <user> [reason],")
	b.WriteString(" nickname <user> <name>, dm <user> <message>, vcjoin <channel> [minutes], image <query>.")
	if msg.GuildName != "" {
		fmt.Fprintf(&b, "\n\nYou are in the server %q, channel #%s.", msg.GuildName, msg.ChannelName)
	} else {
		b.WriteString("\n\nThis is a private direct-message conversation.")
	}
	if len(memories) > 0 {
		b.WriteString("\n\nThings you remember:")
		for _, m := range memories {
			b.WriteString("\n- ")
			b.WriteString(m)
		}
	}
	if dossier != "" {
		b.WriteString("\n\nWhat you know about the people here:\n")
		b.WriteString(dossier)
	}
	return b.String()
}

// UpdateDossier asks the profiler model to revise the dossier after an
// exchange. The current dossier is returned unchanged on failure.
func (c *Client) UpdateDossier(ctx context.Context, dossier, senderName, content string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.ProfilerModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: "You maintain a dossier of the people the bot talks to. Given the current " +
					"dossier and a new message, return the full revised dossier as plain text. Keep it " +
					"concise and factual. Return only the dossier.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Current dossier:\n%s\n\nNew message from %s:\n%s", dossier, senderName, content),
			},
		},
	})
	if err != nil {
		return dossier, fmt.Errorf("profiler completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return dossier, fmt.Errorf("profiler returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// UpdateMemories asks the memory model to fold an exchange into the memory
// list. The current list is returned unchanged on failure.
func (c *Client) UpdateMemories(ctx context.Context, memories []string, exchange string) ([]string, error) {
	current, err := json.Marshal(memories)
	if err != nil {
		return memories, fmt.Errorf("encode memories: %w", err)
	}
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.MemoryModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf("You maintain the bot's long-term memories. Given the current "+
					"memories and a new exchange, return the updated list as a JSON array of strings. "+
					"Merge, drop, or rewrite entries as needed. Keep at most %d. Return only the JSON array.",
					c.cfg.MaxMemories),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Current memories:\n%s\n\nNew exchange:\n%s", current, exchange),
			},
		},
	})
	if err != nil {
		return memories, fmt.Errorf("memory completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return memories, fmt.Errorf("memory model returned no choices")
	}

	var updated []string
	raw := extractJSON(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(raw), &updated); err != nil {
		return memories, fmt.Errorf("decode updated memories: %w", err)
	}
	if c.cfg.MaxMemories > 0 && len(updated) > c.cfg.MaxMemories {
		updated = updated[len(updated)-c.cfg.MaxMemories:]
	}
	return updated, nil
}
