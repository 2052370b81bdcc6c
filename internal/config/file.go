package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	configFileMode  = 0o600
	configDirMode   = 0o700
	tempFilePattern = ".config-*.toml.tmp"
)

var ErrConfigExists = errors.New("config file already exists")

type fileSchema struct {
	Agent        agentSchema        `toml:"agent"`
	User         userSchema         `toml:"user"`
	Session      sessionSchema      `toml:"session"`
	Conversation conversationSchema `toml:"conversation"`
	Log          logSchema          `toml:"log"`
	Render       renderSchema       `toml:"render"`
}

type agentSchema struct {
	URL     string `toml:"url"`
	Source  string `toml:"source"`
	Timeout string `toml:"timeout"`
}

type userSchema struct {
	Email string `toml:"email"`
}

type sessionSchema struct {
	Dir   string `toml:"dir"`
	Reuse bool   `toml:"reuse"`
}

type conversationSchema struct {
	SettleDelay    string   `toml:"settle_delay"`
	SuppressErrors []string `toml:"suppress_errors"`
}

type logSchema struct {
	Level string `toml:"level"`
}

type renderSchema struct {
	Style string `toml:"style"`
}

func schemaOf(c Config) fileSchema {
	suppress := c.SuppressErrors
	if suppress == nil {
		suppress = []string{}
	}

	return fileSchema{
		Agent:        agentSchema{URL: c.AgentURL, Source: c.Source, Timeout: c.Timeout.String()},
		User:         userSchema{Email: c.Email},
		Session:      sessionSchema{Dir: c.SessionDir, Reuse: c.ReuseSession},
		Conversation: conversationSchema{SettleDelay: c.SettleDelay.String(), SuppressErrors: suppress},
		Log:          logSchema{Level: c.LogLevel.String()},
		Render:       renderSchema{Style: c.RenderStyle},
	}
}

// TOML renders the effective configuration in config file form.
func (c Config) TOML() ([]byte, error) {
	data, err := toml.Marshal(schemaOf(c))
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}

	return data, nil
}

// Write stores c at path through a temp file and rename. An existing file is
// only replaced when force is set.
func Write(path string, c Config, force bool) error {
	if !force {
		exists, err := fileExists(path)
		if err != nil {
			return fmt.Errorf("stat config file: %w", err)
		}
		if exists {
			return fmt.Errorf("%s: %w", path, ErrConfigExists)
		}
	}

	data, err := c.TOML()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), configDirMode); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp config file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp config file: %w", err)
	}
	if err := tempFile.Chmod(configFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp config file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp config file: %w", err)
	}
	if err := os.Rename(tempName, path); err != nil {
		return fmt.Errorf("replace config file: %w", err)
	}
	cleanup = false

	return nil
}
