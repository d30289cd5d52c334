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

package tasks

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"taskgate/internal/paths"
)

// AIClient is the subset of the OpenAI client used by operations.
type AIClient interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
	CreateTranscription(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error)
}

var _ AIClient = (*openai.Client)(nil)

// OCREngine extracts text from an image file.
type OCREngine interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// CommandRunner runs an external program and returns its combined output.
type CommandRunner interface {
	Run(ctx context.Context, dir, name string, args ...string) (string, error)
}

// Settings are the non-secret knobs operations read.
type Settings struct {
	FormatterCommand   string
	FormatterArgs      []string
	PythonBin          string
	EmbeddingModel     string
	TranscriptionModel string
	GitAuthorName      string
	GitAuthorEmail     string
}

// Env carries the collaborators every operation runs against.
type Env struct {
	Guard      *paths.Guard
	Logger     zerolog.Logger
	HTTPClient *http.Client
	AI         AIClient
	OCR        OCREngine
	Runner     CommandRunner
	Outputs    *OutputWriter
	Limits     Limits
	Settings   Settings
	Defaults   map[string]map[string]interface{}
	Now        func() time.Time
}

func (e *Env) normalize() {
	if e.HTTPClient == nil {
		e.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	if e.Runner == nil {
		e.Runner = ExecRunner{}
	}
	if e.Outputs == nil {
		e.Outputs = NewOutputWriter()
	}
	if e.OCR == nil {
		e.OCR = TesseractOCR{}
	}
	if e.Now == nil {
		e.Now = time.Now
	}
	e.Limits = normalizeLimits(e.Limits)
	if e.Settings.PythonBin == "" {
		e.Settings.PythonBin = "python3"
	}
	if e.Settings.EmbeddingModel == "" {
		e.Settings.EmbeddingModel = string(openai.SmallEmbedding3)
	}
	if e.Settings.TranscriptionModel == "" {
		e.Settings.TranscriptionModel = openai.Whisper1
	}
	if e.Settings.GitAuthorName == "" {
		e.Settings.GitAuthorName = "taskgate"
	}
	if e.Settings.GitAuthorEmail == "" {
		e.Settings.GitAuthorEmail = "taskgate@localhost"
	}
}

func (e *Env) defaultsFor(id string) map[string]interface{} {
	return mergeArgs(e.Defaults[id], nil)
}
