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

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	defaultModel                  = "gpt-4o-mini"
	defaultAPIURL                 = "https://api.openai.com/v1"
	defaultDataDir                = "./data"
	defaultListenAddr             = ":8000"
	defaultMaxBodyBytes     int64 = 1 << 20
	defaultClassifierTimeout      = 20
	defaultOperationTimeout       = 120
	defaultMaxFileSizeBytes int64 = 50 * 1024 * 1024
	defaultDatagenURL             = "https://raw.githubusercontent.com/sanand0/tools-in-data-science-public/tds-2025-01/project-1/datagen.py"
)

// Token environment variables, in lookup order. AIRPROXY_TOKEN is the
// misspelled name older deployments still export.
var tokenEnvVars = []string{"AIPROXY_TOKEN", "AIRPROXY_TOKEN", "OPENAI_API_KEY"}

// Config represents the service configuration
type Config struct {
	APIKey                   string                            `json:"api_key"`
	APIURL                   string                            `json:"api_url,omitempty"`
	Model                    string                            `json:"model"`
	EmbeddingModel           string                            `json:"embedding_model,omitempty"`
	TranscriptionModel       string                            `json:"transcription_model,omitempty"`
	ClassifierTimeoutSeconds int                               `json:"classifier_timeout_seconds,omitempty"`
	OperationTimeoutSeconds  int                               `json:"operation_timeout_seconds,omitempty"`
	OperationTimeouts        map[string]int                    `json:"operation_timeouts_seconds,omitempty"`
	DataDir                  string                            `json:"data_dir"`
	ListenAddr               string                            `json:"listen_addr"`
	MaxBodyBytes             int64                             `json:"max_body_bytes,omitempty"`
	Limits                   Limits                            `json:"limits,omitempty"`
	Formatter                Formatter                         `json:"formatter,omitempty"`
	PythonBin                string                            `json:"python_bin,omitempty"`
	OCRLanguages             []string                          `json:"ocr_languages,omitempty"`
	Git                      GitSettings                       `json:"git,omitempty"`
	Operations               map[string]map[string]interface{} `json:"operations,omitempty"`
}

// Limits configures size bounds for operation inputs and fetched bodies.
type Limits struct {
	MaxFileSizeBytes int64 `json:"max_file_size_bytes,omitempty"`
}

// Formatter describes the external markdown formatter command.
// The target path is appended to Args.
type Formatter struct {
	Command string   `json:"command,omitempty"`
	Args    []string `json:"args,omitempty"`
}

// GitSettings configures the commit author used by repository operations.
type GitSettings struct {
	AuthorName  string `json:"author_name,omitempty"`
	AuthorEmail string `json:"author_email,omitempty"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Model:                    defaultModel,
		APIURL:                   defaultAPIURL,
		EmbeddingModel:           "text-embedding-3-small",
		TranscriptionModel:       "whisper-1",
		ClassifierTimeoutSeconds: defaultClassifierTimeout,
		OperationTimeoutSeconds:  defaultOperationTimeout,
		DataDir:                  defaultDataDir,
		ListenAddr:               defaultListenAddr,
		MaxBodyBytes:             defaultMaxBodyBytes,
		Limits:                   Limits{MaxFileSizeBytes: defaultMaxFileSizeBytes},
		Formatter: Formatter{
			Command: "npx",
			Args:    []string{"prettier", "--write"},
		},
		PythonBin: "python3",
		Git: GitSettings{
			AuthorName:  "taskgate",
			AuthorEmail: "taskgate@localhost",
		},
		Operations: map[string]map[string]interface{}{
			"generate_data":    {"script_url": defaultDatagenURL},
			"markdown_to_html": {"md_file": "input.md", "html_file": "output.html"},
			"compress_image":   {"quality": float64(50)},
			"run_sql_query":    {"db_type": "sqlite"},
		},
	}
}

// LoadConfig loads configuration from a JSON file and applies env overrides.
// A missing file is not an error; defaults are used instead.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()
	defaults := config.Operations

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		normalized, err := normalizeConfigJSON(data)
		if err != nil {
			return nil, err
		}
		config.Operations = nil
		if err := json.Unmarshal(normalized, config); err != nil {
			return nil, err
		}
		config.Operations = mergeOperationDefaults(defaults, config.Operations)
	}

	// Env overrides (apply regardless of whether config file exists)
	for _, name := range tokenEnvVars {
		if val := os.Getenv(name); val != "" {
			config.APIKey = val
			break
		}
	}
	if val := os.Getenv("TASKGATE_API_URL"); val != "" {
		config.APIURL = val
	}
	if val := os.Getenv("TASKGATE_DATA_DIR"); val != "" {
		config.DataDir = val
	}
	if val := os.Getenv("TASKGATE_ADDR"); val != "" {
		config.ListenAddr = val
	}

	if config.Model == "" {
		config.Model = defaultModel
	}
	if config.APIURL == "" {
		config.APIURL = defaultAPIURL
	}
	if config.DataDir == "" {
		config.DataDir = defaultDataDir
	}
	if config.ListenAddr == "" {
		config.ListenAddr = defaultListenAddr
	}

	return config, nil
}

func mergeOperationDefaults(base, override map[string]map[string]interface{}) map[string]map[string]interface{} {
	merged := make(map[string]map[string]interface{}, len(base)+len(override))
	for id, args := range base {
		merged[id] = copyArgs(args)
	}
	for id, args := range override {
		entry, ok := merged[id]
		if !ok {
			entry = map[string]interface{}{}
		}
		for key, value := range args {
			entry[key] = value
		}
		merged[id] = entry
	}
	return merged
}

func copyArgs(args map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(args))
	for key, value := range args {
		out[key] = value
	}
	return out
}

// ClassifierTimeout returns the hard timeout for one classification call.
func (c *Config) ClassifierTimeout() time.Duration {
	if c.ClassifierTimeoutSeconds <= 0 {
		return defaultClassifierTimeout * time.Second
	}
	return time.Duration(c.ClassifierTimeoutSeconds) * time.Second
}

// OperationTimeout returns the upper bound for a single operation run.
func (c *Config) OperationTimeout() time.Duration {
	if c.OperationTimeoutSeconds <= 0 {
		return defaultOperationTimeout * time.Second
	}
	return time.Duration(c.OperationTimeoutSeconds) * time.Second
}

// OperationTimeoutOverrides returns the per-operation timeouts that differ
// from OperationTimeout. Non-positive entries are skipped.
func (c *Config) OperationTimeoutOverrides() map[string]time.Duration {
	overrides := make(map[string]time.Duration, len(c.OperationTimeouts))
	for id, seconds := range c.OperationTimeouts {
		if seconds > 0 {
			overrides[id] = time.Duration(seconds) * time.Second
		}
	}
	return overrides
}

// OperationDefaults returns a copy of the default arguments for an operation.
func (c *Config) OperationDefaults(id string) map[string]interface{} {
	return copyArgs(c.Operations[id])
}

// ResolvedDataDir returns the absolute data directory.
func (c *Config) ResolvedDataDir() (string, error) {
	return filepath.Abs(c.DataDir)
}

// ValidationWarning represents a non-fatal configuration issue
type ValidationWarning struct {
	Field   string
	Message string
}

// Validate checks the configuration for common issues and returns warnings.
// knownOperations, when non-nil, is used to flag defaults for unknown operations.
func (c *Config) Validate(knownOperations []string) []ValidationWarning {
	var warnings []ValidationWarning

	if c.APIKey == "" {
		warnings = append(warnings, ValidationWarning{
			Field:   "api_key",
			Message: "no API token configured (set AIPROXY_TOKEN); classifier fallback, embeddings and transcription will fail",
		})
	}

	if c.ClassifierTimeoutSeconds < 0 {
		warnings = append(warnings, ValidationWarning{
			Field:   "classifier_timeout_seconds",
			Message: fmt.Sprintf("classifier_timeout_seconds %d must be positive, using default", c.ClassifierTimeoutSeconds),
		})
	}

	if c.OperationTimeoutSeconds < 0 {
		warnings = append(warnings, ValidationWarning{
			Field:   "operation_timeout_seconds",
			Message: fmt.Sprintf("operation_timeout_seconds %d must be positive, using default", c.OperationTimeoutSeconds),
		})
	}

	if c.Limits.MaxFileSizeBytes < 0 {
		warnings = append(warnings, ValidationWarning{
			Field:   "limits.max_file_size_bytes",
			Message: fmt.Sprintf("max_file_size_bytes %d must be positive, using default", c.Limits.MaxFileSizeBytes),
		})
	}

	if c.Formatter.Command == "" {
		warnings = append(warnings, ValidationWarning{
			Field:   "formatter.command",
			Message: "no markdown formatter configured; format_markdown will fail",
		})
	}

	for id, seconds := range c.OperationTimeouts {
		if seconds <= 0 {
			warnings = append(warnings, ValidationWarning{
				Field:   "operation_timeouts_seconds." + id,
				Message: fmt.Sprintf("timeout %d for %q must be positive, using default", seconds, id),
			})
		}
	}

	if knownOperations != nil {
		known := make(map[string]bool, len(knownOperations))
		for _, id := range knownOperations {
			known[id] = true
		}
		for id := range c.Operations {
			if !known[id] {
				warnings = append(warnings, ValidationWarning{
					Field:   "operations." + id,
					Message: fmt.Sprintf("defaults given for unknown operation %q", id),
				})
			}
		}
		for id := range c.OperationTimeouts {
			if !known[id] {
				warnings = append(warnings, ValidationWarning{
					Field:   "operation_timeouts_seconds." + id,
					Message: fmt.Sprintf("timeout given for unknown operation %q", id),
				})
			}
		}
	}

	return warnings
}
