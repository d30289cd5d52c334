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
	"sort"
)

// SchemaJSON returns the JSON schema for config.json.
func SchemaJSON() string {
	return configSchemaJSON
}

// ExampleConfigJSON returns a minimal example config derived from the schema.
func ExampleConfigJSON() string {
	return exampleConfigJSON
}

func normalizeConfigJSON(data []byte) ([]byte, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if err := validateConfigMap(raw, ""); err != nil {
		return nil, err
	}
	normalized, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	return normalized, nil
}

func validateConfigMap(raw map[string]interface{}, prefix string) error {
	allowed := map[string]func(interface{}) error{
		"api_key":             func(v interface{}) error { return validateString(v, prefix+"api_key") },
		"api_url":             func(v interface{}) error { return validateString(v, prefix+"api_url") },
		"model":               func(v interface{}) error { return validateString(v, prefix+"model") },
		"embedding_model":     func(v interface{}) error { return validateString(v, prefix+"embedding_model") },
		"transcription_model": func(v interface{}) error { return validateString(v, prefix+"transcription_model") },
		"classifier_timeout_seconds": func(v interface{}) error {
			return validateNumber(v, prefix+"classifier_timeout_seconds")
		},
		"operation_timeout_seconds": func(v interface{}) error {
			return validateNumber(v, prefix+"operation_timeout_seconds")
		},
		"operation_timeouts_seconds": func(v interface{}) error {
			return validateNumberMap(v, prefix+"operation_timeouts_seconds")
		},
		"data_dir":       func(v interface{}) error { return validateString(v, prefix+"data_dir") },
		"listen_addr":    func(v interface{}) error { return validateString(v, prefix+"listen_addr") },
		"max_body_bytes": func(v interface{}) error { return validateNumber(v, prefix+"max_body_bytes") },
		"python_bin":     func(v interface{}) error { return validateString(v, prefix+"python_bin") },
		"ocr_languages":  func(v interface{}) error { return validateStringArray(v, prefix+"ocr_languages") },
		"limits": func(v interface{}) error {
			return validateLimits(v, prefix+"limits.")
		},
		"formatter": func(v interface{}) error {
			return validateFormatter(v, prefix+"formatter.")
		},
		"git": func(v interface{}) error {
			return validateGit(v, prefix+"git.")
		},
		"operations": func(v interface{}) error {
			return validateOperations(v, prefix+"operations")
		},
	}

	return validateSection(raw, allowed, prefix)
}

func validateLimits(value interface{}, prefix string) error {
	section, ok := value.(map[string]interface{})
	if !ok {
		return fmt.Errorf("%slimits must be an object", prefix)
	}
	allowed := map[string]func(interface{}) error{
		"max_file_size_bytes": func(v interface{}) error { return validateNumber(v, prefix+"max_file_size_bytes") },
	}
	return validateSection(section, allowed, prefix)
}

func validateFormatter(value interface{}, prefix string) error {
	section, ok := value.(map[string]interface{})
	if !ok {
		return fmt.Errorf("%sformatter must be an object", prefix)
	}
	allowed := map[string]func(interface{}) error{
		"command": func(v interface{}) error { return validateString(v, prefix+"command") },
		"args":    func(v interface{}) error { return validateStringArray(v, prefix+"args") },
	}
	return validateSection(section, allowed, prefix)
}

func validateGit(value interface{}, prefix string) error {
	section, ok := value.(map[string]interface{})
	if !ok {
		return fmt.Errorf("%sgit must be an object", prefix)
	}
	allowed := map[string]func(interface{}) error{
		"author_name":  func(v interface{}) error { return validateString(v, prefix+"author_name") },
		"author_email": func(v interface{}) error { return validateString(v, prefix+"author_email") },
	}
	return validateSection(section, allowed, prefix)
}

func validateOperations(value interface{}, name string) error {
	section, ok := value.(map[string]interface{})
	if !ok {
		return fmt.Errorf("%s must be an object", name)
	}
	for id, entry := range section {
		if _, ok := entry.(map[string]interface{}); !ok {
			return fmt.Errorf("%s.%s must be an object of argument defaults", name, id)
		}
	}
	return nil
}

func validateSection(section map[string]interface{}, allowed map[string]func(interface{}) error, prefix string) error {
	keys := make([]string, 0, len(section))
	for key := range section {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		validator, ok := allowed[key]
		if !ok {
			return fmt.Errorf("unknown configuration field %q", prefix+key)
		}
		if err := validator(section[key]); err != nil {
			return err
		}
	}
	return nil
}

func validateString(value interface{}, name string) error {
	if _, ok := value.(string); !ok {
		return fmt.Errorf("%s must be a string", name)
	}
	return nil
}

func validateNumber(value interface{}, name string) error {
	if _, ok := value.(float64); !ok {
		return fmt.Errorf("%s must be a number", name)
	}
	return nil
}

func validateNumberMap(value interface{}, name string) error {
	section, ok := value.(map[string]interface{})
	if !ok {
		return fmt.Errorf("%s must be an object", name)
	}
	for key, item := range section {
		if err := validateNumber(item, name+"."+key); err != nil {
			return err
		}
	}
	return nil
}

func validateStringArray(value interface{}, name string) error {
	list, ok := value.([]interface{})
	if !ok {
		return fmt.Errorf("%s must be an array of strings", name)
	}
	for _, item := range list {
		if _, ok := item.(string); !ok {
			return fmt.Errorf("%s must be an array of strings", name)
		}
	}
	return nil
}

const configSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "title": "Taskgate Config",
  "type": "object",
  "properties": {
    "api_key": { "type": "string" },
    "api_url": { "type": "string" },
    "model": { "type": "string" },
    "embedding_model": { "type": "string" },
    "transcription_model": { "type": "string" },
    "classifier_timeout_seconds": { "type": "number" },
    "operation_timeout_seconds": { "type": "number" },
    "operation_timeouts_seconds": {
      "type": "object",
      "additionalProperties": { "type": "number" }
    },
    "data_dir": { "type": "string" },
    "listen_addr": { "type": "string" },
    "max_body_bytes": { "type": "number" },
    "python_bin": { "type": "string" },
    "ocr_languages": { "type": "array", "items": { "type": "string" } },
    "limits": {
      "type": "object",
      "properties": {
        "max_file_size_bytes": { "type": "number" }
      }
    },
    "formatter": {
      "type": "object",
      "properties": {
        "command": { "type": "string" },
        "args": { "type": "array", "items": { "type": "string" } }
      }
    },
    "git": {
      "type": "object",
      "properties": {
        "author_name": { "type": "string" },
        "author_email": { "type": "string" }
      }
    },
    "operations": {
      "type": "object",
      "additionalProperties": { "type": "object" }
    }
  }
}`

const exampleConfigJSON = `{
  "api_url": "https://aiproxy.sanand.workers.dev/openai/v1",
  "model": "gpt-4o-mini",
  "data_dir": "/data",
  "listen_addr": ":8000",
  "operation_timeouts_seconds": { "generate_data": 600, "clone_and_commit_repo": 300 },
  "operations": {
    "fetch_and_save_api_data": { "url": "https://api.github.com/zen", "filename": "api-data.txt" },
    "clone_and_commit_repo": { "repo_url": "https://github.com/octocat/Hello-World.git", "commit_message": "Automated commit" },
    "run_sql_query": { "db_type": "sqlite", "db_file": "ticket-sales.db", "query": "SELECT COUNT(*) FROM tickets" },
    "scrape_website": { "url": "https://example.com" },
    "compress_image": { "input_image": "photo.png", "output_image": "photo-compressed.jpg", "quality": 50 },
    "transcribe_audio": { "audio_file": "audio.mp3" },
    "filter_csv": { "csv_file": "data.csv", "column": "status", "value": "active" }
  }
}`
