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

package dispatch

import "time"

// TimeoutConfig configures per-operation execution timeouts.
type TimeoutConfig struct {
	Default      time.Duration
	PerOperation map[string]time.Duration
}

// TimeoutFor returns the timeout for an operation, falling back to Default.
func (t TimeoutConfig) TimeoutFor(id string) time.Duration {
	if timeout, ok := t.PerOperation[id]; ok && timeout > 0 {
		return timeout
	}
	return t.Default
}
