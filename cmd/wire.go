package cmd

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bnema/jobchat-cli/internal/adapters/agentproxy"
	"github.com/bnema/jobchat-cli/internal/adapters/render/transcript"
	chainstore "github.com/bnema/jobchat-cli/internal/adapters/session/chain"
	"github.com/bnema/jobchat-cli/internal/application"
	"github.com/bnema/jobchat-cli/internal/config"
	"github.com/bnema/jobchat-cli/internal/ports"
	"github.com/bnema/jobchat-cli/internal/version"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type app struct {
	cfg       config.Config
	logger    zerolog.Logger
	sessions  *application.SessionService
	transport ports.Transport
	render    transcript.RenderOptions
}

// appLoader wires the app on first use, once flags are parsed.
type appLoader struct {
	configPath string
	logLevel   string
	reuse      bool

	app *app
}

func (l *appLoader) load(cmd *cobra.Command) (*app, error) {
	if l.app != nil {
		return l.app, nil
	}

	a, err := wireApp(l, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	l.app = a

	return a, nil
}

func wireApp(l *appLoader, logOutput io.Writer) (*app, error) {
	cfg, err := config.Load(viper.New(), l.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if l.logLevel != "" {
		level, err := zerolog.ParseLevel(l.logLevel)
		if err != nil {
			return nil, fmt.Errorf("parse --log-level: %w", err)
		}
		cfg.LogLevel = level
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: logOutput, TimeFormat: time.Kitchen}).
		Level(cfg.LogLevel).
		With().
		Timestamp().
		Logger()

	store := chainstore.NewFileWithMemoryFallback(cfg.SessionDir)
	sessions := application.NewSessionService(store, application.SessionOptions{
		ReuseStored: cfg.ReuseSession || l.reuse,
		Logger:      logger.With().Str("component", "session").Logger(),
	})

	transport := agentproxy.Client{
		URL:        cfg.AgentURL,
		HTTPClient: &http.Client{},
		Timeout:    cfg.Timeout,
		UserAgent:  "jobchat/" + version.Version,
		Logger:     logger.With().Str("component", "transport").Logger(),
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		sessions:  sessions,
		transport: transport,
		render:    transcript.RenderOptions{Style: cfg.RenderStyle},
	}, nil
}

func (a *app) newController(email string, callbacks application.Callbacks) *application.TurnController {
	if email == "" {
		email = a.cfg.Email
	}

	return application.NewTurnController(a.transport, a.sessions, application.TurnOptions{
		Source:       a.cfg.Source,
		Email:        email,
		Conversation: a.cfg.ConversationOptions(),
		Callbacks:    callbacks,
		Logger:       a.logger.With().Str("component", "turn").Logger(),
	})
}
