// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package diag implements the error taxonomy: a closed set of error
// kinds, diagnostics carrying enough context to blame a cell and a
// frontend, and a session-wide accumulator.  No error aborts elaboration
// early: every component reports into an Accumulator and keeps
// going, and the session is judged a success iff that accumulator ends up
// empty.
package diag

import (
	"fmt"
	"strings"
	"sync"
)

// Kind is one of the six closed error kinds.
type Kind uint8

const (
	// NameAmbiguity: a case-insensitive name matched more than one
	// case-sensitive candidate on the peer side.
	NameAmbiguity Kind = iota
	// DuplicateProvider: more than one frontend returned a proper module
	// for the same name in round one.
	DuplicateProvider
	// InvalidParameter: a parameter was missing without a default, of the
	// wrong kind, unmatchable, or matched more than once.
	InvalidParameter
	// PortMismatch: an unmatched cell port, a duplicated match, a width
	// mismatch, or a direction incompatible per connection table.
	PortMismatch
	// UnknownModule: no frontend provided the requested name, and the
	// "error on unknown module" option is set.
	UnknownModule
	// ElaborationError: an opaque error sourced by a frontend and forwarded
	// as-is.
	ElaborationError
)

// String renders a Kind for diagnostics.
func (k Kind) String() string {
	switch k {
	case NameAmbiguity:
		return "name ambiguity"
	case DuplicateProvider:
		return "duplicate provider"
	case InvalidParameter:
		return "invalid parameter"
	case PortMismatch:
		return "port mismatch"
	case UnknownModule:
		return "unknown module"
	case ElaborationError:
		return "elaboration error"
	default:
		return "unknown error"
	}
}

// Diagnostic is one accumulated error, identifying (where applicable) the
// requesting cell and the responding frontend.
type Diagnostic struct {
	Kind     Kind
	Message  string
	Module   string // name of the module owning the offending cell, if any
	Frontend string // id of the implicated frontend, if any
}

// Error satisfies the error interface for a single diagnostic.
func (d Diagnostic) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s: %s", d.Kind, d.Message)

	if d.Module != "" {
		fmt.Fprintf(&b, " (module %s)", d.Module)
	}

	if d.Frontend != "" {
		fmt.Fprintf(&b, " [frontend %s]", d.Frontend)
	}

	return b.String()
}

// Accumulator collects diagnostics across an elaboration session without
// ever short-circuiting on the first one.  It is safe for concurrent use,
// since multiple re-entrant frontend tasks may report into the same
// session concurrently.
type Accumulator struct {
	mu    sync.Mutex
	diags []Diagnostic
}

// Report appends a diagnostic to the accumulator.
func (a *Accumulator) Report(d Diagnostic) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.diags = append(a.diags, d)
}

// Failed reports whether any diagnostic has been accumulated; the session
// result is success iff this is false.
func (a *Accumulator) Failed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return len(a.diags) > 0
}

// Diagnostics returns a snapshot of every diagnostic accumulated so far.
func (a *Accumulator) Diagnostics() []Diagnostic {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]Diagnostic, len(a.diags))
	copy(out, a.diags)

	return out
}

// Error satisfies the error interface, joining every accumulated
// diagnostic, one per line.  Returns an empty string if nothing was
// accumulated - callers should check Failed() rather than relying on this
// being nil-able, since Accumulator is used by value-free convention (a
// *Accumulator is always non-nil once constructed).
func (a *Accumulator) Error() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	lines := make([]string, len(a.diags))
	for i, d := range a.diags {
		lines[i] = d.Error()
	}

	return strings.Join(lines, "\n")
}
