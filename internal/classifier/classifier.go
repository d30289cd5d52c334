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

package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	apperrors "taskgate/internal/errors"
	systemprompt "taskgate/system_prompt"
)

const (
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 20 * time.Second
)

// Options configures a Classifier.
type Options struct {
	Model        string
	Timeout      time.Duration
	OperationIDs []string
	Logger       zerolog.Logger
}

// Classifier maps free-text task descriptions to operation identifiers with
// a single chat completion call. It holds no mutable state and is safe for
// concurrent use.
type Classifier struct {
	client       ChatClient
	model        string
	timeout      time.Duration
	systemPrompt string
	logger       zerolog.Logger
}

// New creates a classifier around client.
func New(client ChatClient, opts Options) (*Classifier, error) {
	if client == nil {
		return nil, errors.New("classifier: nil chat client")
	}
	prompt, err := systemprompt.Classifier(opts.OperationIDs)
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}
	model := opts.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Classifier{
		client:       client,
		model:        model,
		timeout:      timeout,
		systemPrompt: prompt,
		logger:       opts.Logger,
	}, nil
}

// Classify returns the operation identifier suggested for task.
// Failures, including the timeout, are returned as upstream errors.
func (c *Classifier) Classify(ctx context.Context, task string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: c.systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Task: %s. Respond with function name only.", task),
			},
		},
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", apperrors.Wrap(apperrors.CodeUpstream,
				fmt.Sprintf("classification timed out after %s", c.timeout),
				&APIError{Operation: "create_completion", Err: err})
		}
		return "", apperrors.Wrap(apperrors.CodeUpstream, "classification failed",
			&APIError{Operation: "create_completion", Err: err})
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.New(apperrors.CodeUpstream, "classification failed: completion returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	name := Normalize(raw)
	c.logger.Debug().
		Str("raw", raw).
		Str("operation", name).
		Dur("duration", time.Since(start)).
		Msg("Classifier response")
	return name, nil
}

// Normalize trims whitespace and wrapping quotes or backticks from a model reply.
func Normalize(reply string) string {
	name := strings.TrimSpace(reply)
	name = strings.Trim(name, "`\"'")
	return strings.TrimSpace(name)
}
