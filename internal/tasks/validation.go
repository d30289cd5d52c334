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
	"encoding/json"
	"strings"

	apperrors "taskgate/internal/errors"
)

// decodeArgs converts a loosely typed argument map into a typed struct.
func decodeArgs(args map[string]interface{}, out interface{}) error {
	data, err := json.Marshal(args)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInvalidArgument, "invalid arguments", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperrors.Wrap(apperrors.CodeInvalidArgument, "invalid arguments", err)
	}
	return nil
}

// requireStrings ensures each named value is non-blank. Pairs are name, value.
func requireStrings(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return apperrors.Newf(apperrors.CodeInvalidArgument, "missing required argument: %s", pairs[i])
		}
	}
	return nil
}
