package main

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"cadenza/internal/audio"
	"cadenza/internal/config"
	"cadenza/internal/session"
)

// app bundles what every command needs after startup
type app struct {
	cfg     *config.Config
	logger  *logrus.Logger
	engine  *audio.Engine
	session *session.Session
	logFile io.Closer
}

// openApp loads configuration, builds the logger and opens a session.
func openApp(cmd *cobra.Command) (*app, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}

	logger, logFile, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	engine := audio.NewEngine(cfg.Player.SampleRate, logger)
	sess, err := session.New(session.Options{
		Config: cfg,
		Engine: engine,
		Logger: logger,
	})
	if err != nil {
		engine.Close()
		logFile.Close()
		return nil, fmt.Errorf("error creating session: %w", err)
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		engine:  engine,
		session: sess,
		logFile: logFile,
	}, nil
}

// Close releases the session, the audio device and the log file.
func (a *app) Close() error {
	err := a.session.Close()
	a.engine.Close()
	if cerr := a.logFile.Close(); err == nil {
		err = cerr
	}
	return err
}
