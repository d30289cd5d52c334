// Copyright (C) 2025 Dyne.org foundation
// designed, written and maintained by Denis Roio <jaromil@dyne.org>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"taskgate/internal/classifier"
	"taskgate/internal/config"
	"taskgate/internal/dispatch"
	"taskgate/internal/paths"
	"taskgate/internal/server"
	"taskgate/internal/tasks"
)

func run(logger zerolog.Logger, cfgPath, addr string) error {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if addr != "" {
		cfg.ListenAddr = addr
	}

	srv, err := build(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.ListenAndServe(ctx, cfg.ListenAddr)
}

// build wires the configured collaborators into a server.
func build(cfg *config.Config, logger zerolog.Logger) (*server.Server, error) {
	dataDir, err := cfg.ResolvedDataDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	guard, err := paths.NewGuard(dataDir)
	if err != nil {
		return nil, err
	}

	client := classifier.NewClient(cfg.APIKey, cfg.APIURL)

	env := &tasks.Env{
		Guard:    guard,
		Logger:   logger.With().Str("component", "tasks").Logger(),
		AI:       client,
		OCR:      tasks.TesseractOCR{Languages: cfg.OCRLanguages},
		Limits:   tasks.Limits{MaxFileSizeBytes: cfg.Limits.MaxFileSizeBytes},
		Defaults: cfg.Operations,
		Settings: tasks.Settings{
			FormatterCommand:   cfg.Formatter.Command,
			FormatterArgs:      cfg.Formatter.Args,
			PythonBin:          cfg.PythonBin,
			EmbeddingModel:     cfg.EmbeddingModel,
			TranscriptionModel: cfg.TranscriptionModel,
			GitAuthorName:      cfg.Git.AuthorName,
			GitAuthorEmail:     cfg.Git.AuthorEmail,
		},
	}
	registry, err := tasks.Builtin(env)
	if err != nil {
		return nil, fmt.Errorf("failed to build operation registry: %w", err)
	}

	for _, w := range cfg.Validate(registry.IDs()) {
		logger.Warn().Str("field", w.Field).Msg(w.Message)
	}

	cls, err := classifier.New(client, classifier.Options{
		Model:        cfg.Model,
		Timeout:      cfg.ClassifierTimeout(),
		OperationIDs: registry.IDs(),
		Logger:       logger.With().Str("component", "classifier").Logger(),
	})
	if err != nil {
		return nil, err
	}

	d, err := dispatch.New(registry, cls, dispatch.Options{
		Logger:           logger.With().Str("component", "dispatch").Logger(),
		OperationTimeout: cfg.OperationTimeout(),
		PerOperation:     cfg.OperationTimeoutOverrides(),
	})
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("data_dir", guard.Root()).
		Str("model", cfg.Model).
		Int("operations", len(registry.IDs())).
		Msg("configuration loaded")

	return server.New(d, server.Options{
		Logger:       logger,
		MaxBodyBytes: cfg.MaxBodyBytes,
	})
}
