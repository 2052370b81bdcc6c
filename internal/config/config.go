package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/jobchat-cli/internal/conversation"
	"github.com/bnema/jobchat-cli/internal/domain"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const (
	configName = "config"
	configType = "toml"
	configDir  = ".jobchat"
	envPrefix  = "JOBCHAT"

	KeyAgentURL       = "agent.url"
	KeyAgentSource    = "agent.source"
	KeyAgentTimeout   = "agent.timeout"
	KeyUserEmail      = "user.email"
	KeySessionDir     = "session.dir"
	KeySessionReuse   = "session.reuse"
	KeySettleDelay    = "conversation.settle_delay"
	KeySuppressErrors = "conversation.suppress_errors"
	KeyLogLevel       = "log.level"
	KeyRenderStyle    = "render.style"
)

var ErrMissingAgentURL = errors.New("agent.url is not configured (set it in the config file or JOBCHAT_AGENT_URL)")

type Config struct {
	AgentURL       string
	Source         string
	Timeout        time.Duration
	Email          string
	SessionDir     string
	ReuseSession   bool
	SettleDelay    time.Duration
	SuppressErrors []string
	LogLevel       zerolog.Level
	RenderStyle    string

	// File is the config file that was read, empty when none was found.
	File string
}

// Load resolves configuration from defaults, the config file and JOBCHAT_*
// environment variables. An explicit path must exist; the default location
// may be absent.
func Load(cfg *viper.Viper, path string) (Config, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("resolve home directory: %w", err)
	}
	setDefaults(cfg, home)

	cfg.SetEnvPrefix(envPrefix)
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.AutomaticEnv()

	if path != "" {
		cfg.SetConfigFile(path)
	} else {
		cfg.SetConfigName(configName)
		cfg.SetConfigType(configType)
		cfg.AddConfigPath(filepath.Join(home, configDir))
	}

	if err := cfg.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	return resolve(cfg, home)
}

// Defaults returns the built-in configuration with JOBCHAT_* overrides applied
// and no config file read.
func Defaults() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("resolve home directory: %w", err)
	}

	cfg := viper.New()
	setDefaults(cfg, home)
	cfg.SetEnvPrefix(envPrefix)
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.AutomaticEnv()

	return resolve(cfg, home)
}

func resolve(cfg *viper.Viper, home string) (Config, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.GetString(KeyLogLevel))))
	if err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", KeyLogLevel, err)
	}

	sessionDir, err := expandHome(cfg.GetString(KeySessionDir), home)
	if err != nil {
		return Config{}, err
	}

	out := Config{
		AgentURL:       strings.TrimSpace(cfg.GetString(KeyAgentURL)),
		Source:         strings.TrimSpace(cfg.GetString(KeyAgentSource)),
		Timeout:        cfg.GetDuration(KeyAgentTimeout),
		Email:          strings.TrimSpace(cfg.GetString(KeyUserEmail)),
		SessionDir:     sessionDir,
		ReuseSession:   cfg.GetBool(KeySessionReuse),
		SettleDelay:    cfg.GetDuration(KeySettleDelay),
		SuppressErrors: cfg.GetStringSlice(KeySuppressErrors),
		LogLevel:       level,
		RenderStyle:    strings.TrimSpace(cfg.GetString(KeyRenderStyle)),
		File:           cfg.ConfigFileUsed(),
	}
	if out.Source == "" {
		out.Source = domain.DefaultSource
	}
	if out.Timeout < 0 {
		return Config{}, fmt.Errorf("%s must not be negative", KeyAgentTimeout)
	}

	return out, nil
}

// DefaultPath is where `config init` writes and Load looks by default.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	return filepath.Join(home, configDir, configName+"."+configType), nil
}

func (c Config) RequireAgentURL() error {
	if c.AgentURL == "" {
		return ErrMissingAgentURL
	}
	return nil
}

func (c Config) ConversationOptions() conversation.Options {
	return conversation.Options{
		SettleDelay:      c.SettleDelay,
		SuppressedErrors: append([]string(nil), c.SuppressErrors...),
	}
}

func setDefaults(cfg *viper.Viper, home string) {
	cfg.SetDefault(KeyAgentURL, "")
	cfg.SetDefault(KeyAgentSource, domain.DefaultSource)
	cfg.SetDefault(KeyAgentTimeout, "0s")
	cfg.SetDefault(KeyUserEmail, "")
	cfg.SetDefault(KeySessionDir, filepath.Join(home, configDir, "session"))
	cfg.SetDefault(KeySessionReuse, false)
	cfg.SetDefault(KeySettleDelay, conversation.DefaultSettleDelay.String())
	cfg.SetDefault(KeySuppressErrors, []string{conversation.NoisyOutputError})
	cfg.SetDefault(KeyLogLevel, zerolog.WarnLevel.String())
	cfg.SetDefault(KeyRenderStyle, "auto")
}

func expandHome(path, home string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("%s is empty", KeySessionDir)
	}
	if path == "~" {
		path = home
	} else if strings.HasPrefix(path, "~/") {
		path = filepath.Join(home, path[2:])
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", KeySessionDir, err)
	}

	return filepath.Clean(abs), nil
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
