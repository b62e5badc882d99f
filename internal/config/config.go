package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultUpcomingDays = 3

	configPathEnv     = "MBNOTIFIER_CONFIG"
	portalBaseURLEnv  = "MANAGEBAC_BASE_URL"
	portalEmailEnv    = "MANAGEBAC_EMAIL"
	portalPasswordEnv = "MANAGEBAC_PASSWORD"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	lineTokenEnv      = "LINE_CHANNEL_TOKEN"
	lineGroupIDEnv    = "LINE_GROUP_ID"
)

// Config holds high-level settings required across the application.
type Config struct {
	Portal        PortalConfig       `yaml:"portal"`
	Children      []ChildConfig      `yaml:"children"`
	Notifications NotificationConfig `yaml:"notifications"`
	UpcomingDays  int                `yaml:"upcomingDays"`
	IgnoreTasks   []string           `yaml:"ignoreTasks"`
	OverdueSince  string             `yaml:"overdueSince"`
	StateDir      string             `yaml:"stateDir"`
	Logging       LoggingConfig      `yaml:"logging"`

	overdueSince   *time.Time
	ignorePatterns []string
}

// PortalConfig describes the ManageBac parent portal account.
type PortalConfig struct {
	BaseURL  string `yaml:"baseUrl"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// ChildConfig carries optional per-child presentation settings; the child
// list itself is discovered from the portal, not configured.
type ChildConfig struct {
	ID    string `yaml:"id"`
	Color string `yaml:"color"`
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Line     LineConfig     `yaml:"line"`
}

// TelegramConfig wires all data required to send messages. The token can be
// given inline or via a file path.
type TelegramConfig struct {
	BotToken     string `yaml:"botToken"`
	BotTokenFile string `yaml:"botTokenFile"`
	ChatID       int64  `yaml:"chatId"`
}

// LineConfig wires the LINE Messaging API push channel.
type LineConfig struct {
	ChannelToken     string `yaml:"channelToken"`
	ChannelTokenFile string `yaml:"channelTokenFile"`
	GroupID          string `yaml:"groupId"`
}

// LoggingConfig controls slog verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads YAML configuration and applies environment overrides. The path
// argument wins over MBNOTIFIER_CONFIG, which wins over the default location.
func Load(path string) (Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path == "" {
		path = filepath.Join(defaultConfigDir(), "config.yaml")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: cannot read %s: %w", path, err)
	}
	var fileCfg Config
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		return Config{}, fmt.Errorf("config: cannot parse %s: %w", path, err)
	}
	cfg = mergeConfig(cfg, fileCfg)

	cfg.applyEnvOverrides()
	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(portalBaseURLEnv); v != "" {
		c.Portal.BaseURL = v
	}
	if v := os.Getenv(portalEmailEnv); v != "" {
		c.Portal.Email = v
	}
	if v := os.Getenv(portalPasswordEnv); v != "" {
		c.Portal.Password = v
	}
	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Notifications.Telegram.ChatID = id
		}
	}
	if v := os.Getenv(lineTokenEnv); v != "" {
		c.Notifications.Line.ChannelToken = v
	}
	if v := os.Getenv(lineGroupIDEnv); v != "" {
		c.Notifications.Line.GroupID = v
	}
}

func (c *Config) normalize() error {
	c.Portal.BaseURL = strings.TrimRight(c.Portal.BaseURL, "/")
	if c.Portal.BaseURL == "" {
		return fmt.Errorf("config: portal.baseUrl is required")
	}
	if c.Portal.Email == "" || c.Portal.Password == "" {
		return fmt.Errorf("config: portal.email and portal.password are required")
	}

	if c.UpcomingDays <= 0 {
		c.UpcomingDays = defaultUpcomingDays
	}

	c.ignorePatterns = c.ignorePatterns[:0]
	for _, pat := range c.IgnoreTasks {
		if pat != "" {
			c.ignorePatterns = append(c.ignorePatterns, strings.ToLower(pat))
		}
	}

	if c.OverdueSince != "" {
		since, err := time.Parse("2006-01-02", c.OverdueSince)
		if err != nil {
			return fmt.Errorf("config: invalid overdueSince %q: %w", c.OverdueSince, err)
		}
		c.overdueSince = &since
	}

	if c.StateDir == "" {
		c.StateDir = defaultConfigDir()
	} else {
		c.StateDir = expandHome(c.StateDir)
	}
	return nil
}

// TelegramEnabled reports whether the Telegram channel is fully configured.
func (c Config) TelegramEnabled() bool {
	tg := c.Notifications.Telegram
	return (tg.BotToken != "" || tg.BotTokenFile != "") && tg.ChatID != 0
}

// LineEnabled reports whether the LINE channel is fully configured.
func (c Config) LineEnabled() bool {
	l := c.Notifications.Line
	return (l.ChannelToken != "" || l.ChannelTokenFile != "") && l.GroupID != ""
}

// BotToken resolves the Telegram bot token, reading the token file when the
// inline value is absent.
func (c Config) BotToken() (string, error) {
	return resolveToken(c.Notifications.Telegram.BotToken, c.Notifications.Telegram.BotTokenFile)
}

// ChannelToken resolves the LINE channel token the same way.
func (c Config) ChannelToken() (string, error) {
	return resolveToken(c.Notifications.Line.ChannelToken, c.Notifications.Line.ChannelTokenFile)
}

// OverdueSinceDate is the configured cutoff before which overdue tasks are
// suppressed, nil when unset.
func (c Config) OverdueSinceDate() *time.Time {
	return c.overdueSince
}

// IgnorePatterns returns the lowercased title substrings to filter out.
func (c Config) IgnorePatterns() []string {
	return c.ignorePatterns
}

// ChildColors maps child IDs to LINE header colors.
func (c Config) ChildColors() map[string]string {
	colors := map[string]string{}
	for _, child := range c.Children {
		if child.ID != "" && child.Color != "" {
			colors[child.ID] = child.Color
		}
	}
	return colors
}

// IgnoredPath is the flat JSON ignore-list location.
func (c Config) IgnoredPath() string {
	return filepath.Join(c.StateDir, "ignored.json")
}

// SnapshotPath is the children cache shared with the bot listener.
func (c Config) SnapshotPath() string {
	return filepath.Join(c.StateDir, "children_cache.json")
}

// LogDir is where per-run log files are written.
func (c Config) LogDir() string {
	return filepath.Join(c.StateDir, "logs")
}

func resolveToken(inline, file string) (string, error) {
	if inline != "" {
		return inline, nil
	}
	if file == "" {
		return "", fmt.Errorf("config: no token configured")
	}
	raw, err := os.ReadFile(expandHome(file))
	if err != nil {
		return "", fmt.Errorf("config: cannot read token file: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

func mergeConfig(base, override Config) Config {
	if override.Portal.BaseURL != "" {
		base.Portal.BaseURL = override.Portal.BaseURL
	}
	if override.Portal.Email != "" {
		base.Portal.Email = override.Portal.Email
	}
	if override.Portal.Password != "" {
		base.Portal.Password = override.Portal.Password
	}

	if len(override.Children) > 0 {
		base.Children = override.Children
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.BotTokenFile != "" {
		base.Notifications.Telegram.BotTokenFile = override.Notifications.Telegram.BotTokenFile
	}
	if override.Notifications.Telegram.ChatID != 0 {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}
	if override.Notifications.Line.ChannelToken != "" {
		base.Notifications.Line.ChannelToken = override.Notifications.Line.ChannelToken
	}
	if override.Notifications.Line.ChannelTokenFile != "" {
		base.Notifications.Line.ChannelTokenFile = override.Notifications.Line.ChannelTokenFile
	}
	if override.Notifications.Line.GroupID != "" {
		base.Notifications.Line.GroupID = override.Notifications.Line.GroupID
	}

	if override.UpcomingDays > 0 {
		base.UpcomingDays = override.UpcomingDays
	}
	if len(override.IgnoreTasks) > 0 {
		base.IgnoreTasks = override.IgnoreTasks
	}
	if override.OverdueSince != "" {
		base.OverdueSince = override.OverdueSince
	}
	if override.StateDir != "" {
		base.StateDir = override.StateDir
	}
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	return base
}

func defaultConfig() Config {
	return Config{
		UpcomingDays: defaultUpcomingDays,
		Logging:      LoggingConfig{Level: "info"},
	}
}

func defaultConfigDir() string {
	return expandHome("~/.config/mbnotifier")
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
