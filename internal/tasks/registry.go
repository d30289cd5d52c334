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
	"fmt"
	"strings"
)

// Trigger binds a literal phrase to an operation identifier.
type Trigger struct {
	Phrase      string `json:"phrase"`
	OperationID string `json:"operation"`
}

// Registry is the ordered trigger table plus the operation catalog.
// It is built once and never mutated, so concurrent lookups need no locking.
type Registry struct {
	triggers   []Trigger
	operations map[string]Operation
	order      []string
}

// NewRegistry validates and freezes a catalog. Every trigger must name a
// registered operation and every operation must be reachable by a trigger.
func NewRegistry(ops []Operation, triggers []Trigger) (*Registry, error) {
	r := &Registry{
		operations: make(map[string]Operation, len(ops)),
		order:      make([]string, 0, len(ops)),
	}

	for _, op := range ops {
		if op == nil {
			return nil, fmt.Errorf("registry: nil operation")
		}
		id := op.ID()
		if id == "" {
			return nil, fmt.Errorf("registry: operation with empty identifier")
		}
		if _, exists := r.operations[id]; exists {
			return nil, fmt.Errorf("registry: operation %q registered twice", id)
		}
		r.operations[id] = op
		r.order = append(r.order, id)
	}

	reachable := make(map[string]bool, len(ops))
	for _, trigger := range triggers {
		if strings.TrimSpace(trigger.Phrase) == "" {
			return nil, fmt.Errorf("registry: empty trigger phrase for %q", trigger.OperationID)
		}
		if trigger.Phrase != strings.ToLower(trigger.Phrase) {
			return nil, fmt.Errorf("registry: trigger %q must be lowercase", trigger.Phrase)
		}
		if _, ok := r.operations[trigger.OperationID]; !ok {
			return nil, fmt.Errorf("registry: trigger %q references unknown operation %q", trigger.Phrase, trigger.OperationID)
		}
		reachable[trigger.OperationID] = true
		r.triggers = append(r.triggers, trigger)
	}

	for _, id := range r.order {
		if !reachable[id] {
			return nil, fmt.Errorf("registry: operation %q has no trigger", id)
		}
	}

	return r, nil
}

// ResolveByTrigger returns the operation of the first trigger, in registry
// order, whose phrase occurs in the lowercased text.
func (r *Registry) ResolveByTrigger(text string) (Trigger, bool) {
	normalized := strings.ToLower(text)
	for _, trigger := range r.triggers {
		if strings.Contains(normalized, trigger.Phrase) {
			return trigger, true
		}
	}
	return Trigger{}, false
}

// ResolveByIdentifier looks up an operation by its exact identifier.
func (r *Registry) ResolveByIdentifier(id string) (Operation, bool) {
	op, ok := r.operations[id]
	return op, ok
}

// IDs returns operation identifiers in registration order.
func (r *Registry) IDs() []string {
	return append([]string{}, r.order...)
}

// Triggers returns a copy of the trigger table in evaluation order.
func (r *Registry) Triggers() []Trigger {
	return append([]Trigger{}, r.triggers...)
}

// Operations returns operations in registration order.
func (r *Registry) Operations() []Operation {
	ops := make([]Operation, 0, len(r.order))
	for _, id := range r.order {
		ops = append(ops, r.operations[id])
	}
	return ops
}

// TriggersFor returns the phrases bound to an operation, in order.
func (r *Registry) TriggersFor(id string) []string {
	var phrases []string
	for _, trigger := range r.triggers {
		if trigger.OperationID == id {
			phrases = append(phrases, trigger.Phrase)
		}
	}
	return phrases
}
