// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port   string
	DBPath string

	// GroupMe platform bindings.
	GroupMeBaseURL string
	AccessToken    string
	GroupID        string
	BotID          string // user_id the bot posts under; its own messages are never moderated
	BotAuthID      string // bot credential for POST /bots/post
	BotName        string // display name of the bot, used to skip its own subgroup posts

	// Classifier backend.
	OllamaHost  string
	OllamaModel string

	// Moderation policy.
	WarnStrikes      int           // strikes at or below this issue warnings; above it removes
	HardBans         bool          // attempt platform-level bans on removal
	SweepDelay       time.Duration // wait before the subgroup sweep runs
	InvitePollPeriod time.Duration // pending-membership approval cadence
	MentionToken     string        // token that triggers the persona chat
	AdminUserIDs     []string      // stable identities allowed to issue commands
	AdminNames       []string      // legacy display-name admin list (lower-cased)
	SweepExemptNames []string      // identities whose subgroup posts are never swept
	SpamKeywords     []string      // fallback heuristic when the oracle is unreachable

	AdminToken string // header token guarding the training-example endpoints
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		DBPath:           getEnv("DB_PATH", "./data/anticlanker.db"),
		GroupMeBaseURL:   getEnv("GROUPME_BASE_URL", "https://api.groupme.com/v3"),
		AccessToken:      getEnv("GROUPME_ACCESS_TOKEN", ""),
		GroupID:          getEnv("GROUPME_GROUP_ID", ""),
		BotID:            getEnv("GROUPME_BOT_ID", ""),
		BotAuthID:        getEnv("GROUPME_BOT_AUTH_ID", ""),
		BotName:          getEnv("BOT_NAME", "Day of Reckoning"),
		OllamaHost:       getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:      getEnv("OLLAMA_MODEL", "deepseek-r1:14b"),
		WarnStrikes:      getEnvInt("WARN_STRIKES", 1),
		HardBans:         getEnvBool("HARD_BANS", false),
		SweepDelay:       getEnvDuration("SWEEP_DELAY", 30*time.Second),
		InvitePollPeriod: getEnvDuration("INVITE_POLL_INTERVAL", 5*time.Minute),
		MentionToken:     strings.ToLower(getEnv("MENTION_TOKEN", "@thanos")),
		AdminUserIDs:     getEnvList("ADMIN_USER_IDS"),
		AdminNames:       lowered(getEnvList("ADMIN_NAMES")),
		SweepExemptNames: lowered(getEnvList("SWEEP_EXEMPT_NAMES")),
		SpamKeywords:     lowered(getEnvList("SPAM_KEYWORDS")),
		AdminToken:       getEnv("ADMIN_TOKEN", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.GroupMeBaseURL == "" {
		return fmt.Errorf("GROUPME_BASE_URL cannot be empty")
	}
	if c.GroupID == "" {
		return fmt.Errorf("GROUPME_GROUP_ID cannot be empty")
	}
	if c.BotAuthID == "" {
		return fmt.Errorf("GROUPME_BOT_AUTH_ID cannot be empty")
	}
	if c.OllamaHost == "" {
		return fmt.Errorf("OLLAMA_HOST cannot be empty")
	}
	if c.OllamaModel == "" {
		return fmt.Errorf("OLLAMA_MODEL cannot be empty")
	}
	if c.WarnStrikes < 1 {
		return fmt.Errorf("WARN_STRIKES must be >= 1")
	}
	if c.SweepDelay < 0 {
		return fmt.Errorf("SWEEP_DELAY cannot be negative")
	}
	if c.InvitePollPeriod <= 0 {
		return fmt.Errorf("INVITE_POLL_INTERVAL must be > 0")
	}
	return nil
}

// IsAdminID reports whether the stable user ID is in the admin set.
func (c *Config) IsAdminID(userID string) bool {
	for _, id := range c.AdminUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// IsAdminName reports whether the display name matches the legacy admin
// list. Display names are attacker-controlled; prefer IsAdminID.
func (c *Config) IsAdminName(name string) bool {
	name = strings.ToLower(name)
	for _, n := range c.AdminNames {
		if n == name {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

// getEnvList splits a comma-separated env var into trimmed, non-empty items.
func getEnvList(key string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	var items []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			items = append(items, part)
		}
	}
	return items
}

func lowered(items []string) []string {
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = strings.ToLower(s)
	}
	return out
}
