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
	"os/exec"
	"strings"

	apperrors "taskgate/internal/errors"
)

const maxCommandOutput = 4000

// ExecRunner runs programs discovered on PATH directly, without a shell.
type ExecRunner struct{}

// Run executes name with args in dir and returns combined output.
func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) (string, error) {
	bin, err := exec.LookPath(name)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeUnsupported, fmt.Sprintf("%s not found on PATH", name), err)
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	out := truncateOutput(string(output))

	if ctx.Err() == context.DeadlineExceeded {
		return out, fmt.Errorf("command %s timed out", name)
	}
	if ctx.Err() == context.Canceled {
		return out, fmt.Errorf("command %s canceled", name)
	}
	if err != nil {
		return out, fmt.Errorf("command %s failed: %v: %s", name, err, strings.TrimSpace(out))
	}
	return out, nil
}

func truncateOutput(output string) string {
	runes := []rune(output)
	if len(runes) <= maxCommandOutput {
		return output
	}
	return string(runes[:maxCommandOutput])
}
