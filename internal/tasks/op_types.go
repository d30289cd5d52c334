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
	"errors"

	apperrors "taskgate/internal/errors"
)

// Result status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result is the structured outcome of an operation. Status is always either
// StatusSuccess or StatusError.
type Result struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Output  string      `json:"output,omitempty"`
	Columns []string    `json:"columns,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Success creates a successful result with a message.
func Success(message string) *Result {
	return &Result{Status: StatusSuccess, Message: message}
}

// Failure creates an error result with a message.
func Failure(message string) *Result {
	return &Result{Status: StatusError, Message: message}
}

// OK reports whether the result is a success.
func (r *Result) OK() bool {
	return r != nil && r.Status == StatusSuccess
}

// RunFunc is the function signature for operation implementations.
type RunFunc func(ctx context.Context, args map[string]interface{}) (*Result, error)

// Operation is a named, side-effecting task that can be dispatched.
type Operation interface {
	ID() string
	Description() string
	Parameters() map[string]interface{}
	Defaults() map[string]interface{}
	Run(ctx context.Context, args map[string]interface{}) (*Result, error)
}

// OperationDefinition provides a default implementation of Operation.
type OperationDefinition struct {
	IDValue          string
	DescriptionValue string
	ParametersValue  map[string]interface{}
	DefaultsValue    map[string]interface{}
	RunFunc          RunFunc
}

func (o *OperationDefinition) ID() string {
	return o.IDValue
}

func (o *OperationDefinition) Description() string {
	return o.DescriptionValue
}

func (o *OperationDefinition) Parameters() map[string]interface{} {
	return o.ParametersValue
}

func (o *OperationDefinition) Defaults() map[string]interface{} {
	return mergeArgs(o.DefaultsValue, nil)
}

// Run merges args over the configured defaults and invokes the implementation.
// Expected failures (missing inputs, unsupported choices, bad arguments) come
// back as a Failure result; path violations and upstream or internal faults
// stay errors.
func (o *OperationDefinition) Run(ctx context.Context, args map[string]interface{}) (*Result, error) {
	if o.RunFunc == nil {
		return nil, apperrors.Newf(apperrors.CodeInternal, "operation %s has no implementation", o.IDValue)
	}
	result, err := o.RunFunc(ctx, mergeArgs(o.DefaultsValue, args))
	if err != nil {
		if isSoftFailure(err) {
			return Failure(failureMessage(err)), nil
		}
		return nil, err
	}
	if result == nil {
		return nil, apperrors.Newf(apperrors.CodeInternal, "operation %s returned no result", o.IDValue)
	}
	return result, nil
}

func isSoftFailure(err error) bool {
	switch apperrors.CodeOf(err) {
	case apperrors.CodeNotFound, apperrors.CodeUnsupported, apperrors.CodeInvalidArgument:
		return true
	}
	return false
}

func failureMessage(err error) string {
	var coded *apperrors.Error
	if errors.As(err, &coded) {
		return coded.Error()
	}
	return err.Error()
}

func mergeArgs(defaults, args map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(defaults)+len(args))
	for key, value := range defaults {
		merged[key] = value
	}
	for key, value := range args {
		merged[key] = value
	}
	return merged
}
