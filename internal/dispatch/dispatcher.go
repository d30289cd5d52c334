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

// Package dispatch routes free-text task descriptions to operations.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apperrors "taskgate/internal/errors"
	"taskgate/internal/tasks"
)

// UnrecognizedMessage is the Failure message for tasks no route could resolve.
const UnrecognizedMessage = "Task not recognized."

// DefaultOperationTimeout bounds a single operation run.
const DefaultOperationTimeout = 120 * time.Second

// Route records how a task was resolved.
type Route string

const (
	RouteTrigger    Route = "trigger"
	RouteClassifier Route = "classifier"
	RouteDirect     Route = "direct"
	RouteNone       Route = "none"
)

// Classifier maps a task description to a candidate operation identifier.
type Classifier interface {
	Classify(ctx context.Context, task string) (string, error)
}

// Outcome describes one dispatched task.
type Outcome struct {
	OperationID string
	Route       Route
	Trigger     string
	Duration    time.Duration
	Result      *tasks.Result
}

// Options configures a Dispatcher. PerOperation overrides OperationTimeout
// for individual operation ids.
type Options struct {
	Logger           zerolog.Logger
	OperationTimeout time.Duration
	PerOperation     map[string]time.Duration
}

// Dispatcher resolves tasks through the trigger table first and the
// classifier second. It keeps no per-request state.
type Dispatcher struct {
	registry   *tasks.Registry
	classifier Classifier
	logger     zerolog.Logger
	timeouts   TimeoutConfig
}

// New creates a dispatcher. classifier may be nil, in which case trigger
// misses are unrecognized.
func New(registry *tasks.Registry, classifier Classifier, opts Options) (*Dispatcher, error) {
	if registry == nil {
		return nil, errors.New("dispatch: nil registry")
	}
	timeouts := TimeoutConfig{Default: opts.OperationTimeout, PerOperation: opts.PerOperation}
	if timeouts.Default <= 0 {
		timeouts.Default = DefaultOperationTimeout
	}
	return &Dispatcher{
		registry:   registry,
		classifier: classifier,
		logger:     opts.Logger,
		timeouts:   timeouts,
	}, nil
}

// Registry returns the catalog the dispatcher routes into.
func (d *Dispatcher) Registry() *tasks.Registry {
	return d.registry
}

// Handle resolves task and runs the matching operation with its configured
// defaults.
func (d *Dispatcher) Handle(ctx context.Context, task string) (*Outcome, error) {
	start := time.Now()
	normalized := strings.ToLower(task)
	logger := d.loggerFor(ctx)

	if trigger, ok := d.registry.ResolveByTrigger(normalized); ok {
		op, _ := d.registry.ResolveByIdentifier(trigger.OperationID)
		outcome := &Outcome{OperationID: op.ID(), Route: RouteTrigger, Trigger: trigger.Phrase}
		logger.Debug().Str("trigger", trigger.Phrase).Str("operation", op.ID()).Msg("trigger matched")
		return d.run(ctx, op, nil, outcome, start)
	}

	if d.classifier == nil {
		return d.unrecognized(start), nil
	}

	name, err := d.classifier.Classify(ctx, normalized)
	if err != nil {
		logger.Warn().Err(err).Msg("classifier failed")
		if apperrors.CodeOf(err) == apperrors.CodeInternal {
			return nil, apperrors.Wrap(apperrors.CodeUpstream, "classification failed", err)
		}
		return nil, err
	}
	name = strings.TrimSpace(name)

	op, ok := d.registry.ResolveByIdentifier(name)
	if !ok {
		logger.Info().Str("classified", name).Msg("classifier returned unknown operation")
		return d.unrecognized(start), nil
	}
	logger.Debug().Str("operation", op.ID()).Msg("classifier matched")
	outcome := &Outcome{OperationID: op.ID(), Route: RouteClassifier}
	return d.run(ctx, op, nil, outcome, start)
}

// Invoke runs the operation id directly with explicit arguments merged over
// its defaults.
func (d *Dispatcher) Invoke(ctx context.Context, id string, args map[string]interface{}) (*Outcome, error) {
	start := time.Now()
	op, ok := d.registry.ResolveByIdentifier(id)
	if !ok {
		return nil, apperrors.Newf(apperrors.CodeNotFound, "unknown operation: %s", id)
	}
	return d.run(ctx, op, args, &Outcome{OperationID: id, Route: RouteDirect}, start)
}

// loggerFor prefers the request-scoped logger attached by the transport.
func (d *Dispatcher) loggerFor(ctx context.Context) *zerolog.Logger {
	if logger := zerolog.Ctx(ctx); logger.GetLevel() != zerolog.Disabled {
		return logger
	}
	return &d.logger
}

func (d *Dispatcher) unrecognized(start time.Time) *Outcome {
	return &Outcome{
		Route:    RouteNone,
		Duration: time.Since(start),
		Result:   tasks.Failure(UnrecognizedMessage),
	}
}

func (d *Dispatcher) run(ctx context.Context, op tasks.Operation, args map[string]interface{}, outcome *Outcome, start time.Time) (out *Outcome, err error) {
	timeout := d.timeouts.TimeoutFor(op.ID())
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			d.loggerFor(ctx).Error().
				Str("operation", op.ID()).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("operation panicked")
			out = nil
			err = apperrors.Newf(apperrors.CodeInternal, "operation %s panicked: %v", op.ID(), r)
		}
	}()

	result, err := op.Run(ctx, args)
	outcome.Duration = time.Since(start)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return nil, apperrors.Wrap(apperrors.CodeInternal, fmt.Sprintf("operation %s timed out after %s", op.ID(), timeout), err)
		}
		var coded *apperrors.Error
		if !errors.As(err, &coded) {
			err = apperrors.Wrap(apperrors.CodeInternal, fmt.Sprintf("operation %s failed", op.ID()), err)
		}
		return nil, err
	}
	outcome.Result = result
	return outcome, nil
}
