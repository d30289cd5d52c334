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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"taskgate/internal/config"
)

func TestInitLogger(t *testing.T) {
	_, closer, err := initLogger(false, "")
	if err != nil {
		t.Fatalf("initLogger failed: %v", err)
	}
	if closer != nil {
		_ = closer.Close()
	}

	_, closer, err = initLogger(true, "")
	if err != nil {
		t.Fatalf("initLogger with debug failed: %v", err)
	}
	if closer != nil {
		_ = closer.Close()
	}
	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Fatalf("global level = %s, want debug", zerolog.GlobalLevel())
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func TestInitLoggerWithFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "test.log")

	logger, closer, err := initLogger(false, logFile)
	if err != nil {
		t.Fatalf("initLogger failed: %v", err)
	}
	if closer == nil {
		t.Fatal("expected a closer for file output")
	}
	logger.Info().Msg("Test message")
	_ = closer.Close()

	content, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(content), "Test message") {
		t.Errorf("log file missing message: %q", content)
	}
}

func TestInitLoggerBadPath(t *testing.T) {
	if _, _, err := initLogger(false, filepath.Join(t.TempDir(), "missing", "dir", "x.log")); err == nil {
		t.Fatal("expected error for unwritable log path")
	}
}

func TestFlagsDefined(t *testing.T) {
	if debugMode == nil || logFile == nil || configPath == nil || listenAddr == nil || version == nil {
		t.Fatal("flags should be defined")
	}
	if *configPath != "config.json" {
		t.Fatalf("config default = %q", *configPath)
	}
	if Version == "" {
		t.Error("Version variable should not be empty")
	}
}

func TestBuildServesCatalog(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DataDir = filepath.Join(t.TempDir(), "data")
	cfg.APIKey = "test-token"

	srv, err := build(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := os.Stat(cfg.DataDir); err != nil {
		t.Fatalf("data dir not created: %v", err)
	}

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/operations", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var ops []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &ops); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(ops) != 19 {
		t.Fatalf("operations = %d, want 19", len(ops))
	}

	rec = httptest.NewRecorder()
	body := strings.NewReader(`{"task":"count words please"}`)
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/run", body))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "File not found") {
		t.Fatalf("run: %d %s", rec.Code, rec.Body.String())
	}
}
