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
	"fmt"

	apperrors "taskgate/internal/errors"
)

const datagenScript = "datagen.py"

func (e *Env) generateData(ctx context.Context, args map[string]interface{}) (*Result, error) {
	var in generateDataArgs
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if err := requireStrings("script_url", in.ScriptURL); err != nil {
		return nil, err
	}

	status, script, err := e.get(ctx, in.ScriptURL, "")
	if err != nil {
		if status == 0 {
			return Failure(fmt.Sprintf("Failed to download data generation script: %v", err)), nil
		}
		return nil, err
	}
	if !isSuccessStatus(status) {
		return Failure(fmt.Sprintf("Failed to download data generation script (HTTP %d)", status)), nil
	}
	if _, err := e.writeOutput(datagenScript, script); err != nil {
		return nil, err
	}

	cmdArgs := []string{datagenScript}
	if in.Email != "" {
		cmdArgs = append(cmdArgs, in.Email)
	}
	out, err := e.Runner.Run(ctx, e.Guard.Root(), e.Settings.PythonBin, cmdArgs...)
	if err != nil {
		if apperrors.Is(err, apperrors.CodeUnsupported) {
			return nil, err
		}
		return Failure(err.Error()), nil
	}
	e.Logger.Debug().Str("output", out).Msg("data generation finished")
	return Success("Data generation completed"), nil
}
