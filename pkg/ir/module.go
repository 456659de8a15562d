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
package ir

// ModuleKind distinguishes the four module flavours cross-language linking
// needs to tell apart.
type ModuleKind uint8

const (
	// User is an ordinary elaborated module with a body.
	User ModuleKind = iota
	// Blackbox is an opaque module with an interface but no visible body -
	// it exists to be instantiated, never inlined.
	Blackbox
	// Whitebox is like Blackbox but its body, while opaque to this driver,
	// is available to downstream tooling (e.g. for simulation).
	Whitebox
	// PassthruImported marks a module that entered the design via the
	// Pass-through frontend rather than being elaborated locally.
	PassthruImported
)

// BakedParam is an immutable parameter annotation: a parameter consumed
// during elaboration and stored on the resulting module.  Once a module is
// inserted into a Design, its baked-in parameter values never change.
type BakedParam struct {
	Name  Name
	Value Value
}

// Module is a node of the shared IR as seen by the driver: just enough
// detail to route requests, match ports and parameters, and link cells
// across frontends.  Everything else (the module's actual logic) is opaque
// to the driver.
//
// Once inserted into a Design, a Module's Ports and BakedParams are
// immutable - this is the invariant that lets other frontends safely
// observe a module's interface while it may still be under construction
// from the perspective of its owning frontend (its Cells list is not
// immutable: the Resolver rewrites unresolved-instance cells in place after
// all elaboration has quiesced).
type Module struct {
	Name   Name
	Kind   ModuleKind
	Top    bool
	Baked  []BakedParam
	Proper []ParamDescriptor
	Ports  []PortDescriptor
	Cells  []Cell
}

// ProperParam finds the proper parameter descriptor with the given name, if
// any exists.
func (m *Module) ProperParam(name Name) (ParamDescriptor, bool) {
	for _, p := range m.Proper {
		if p.Name.Matches(name) {
			return p, true
		}
	}

	return ParamDescriptor{}, false
}

// Port finds the port descriptor with the given name, if any exists.
func (m *Module) Port(name Name) (PortDescriptor, bool) {
	for _, p := range m.Ports {
		if p.Name.Matches(name) {
			return p, true
		}
	}

	return PortDescriptor{}, false
}

// AddCell appends a cell to the module's cell list, returning its stable
// CellRef.
func (m *Module) AddCell(c Cell) CellRef {
	ref := CellRef(len(m.Cells))
	m.Cells = append(m.Cells, c)

	return ref
}

// Cell returns the cell at ref.
func (m *Module) Cell(ref CellRef) Cell {
	return m.Cells[ref]
}

// SetCell rewrites the cell at ref in place, preserving its identity.
func (m *Module) SetCell(ref CellRef, c Cell) {
	m.Cells[ref] = c
}

// UnresolvedCells returns the indices of every UnresolvedInstanceCell
// currently in the module.  The Resolver is idempotent because this is
// always empty after a first successful sweep.
func (m *Module) UnresolvedCells() []CellRef {
	var out []CellRef

	for i, c := range m.Cells {
		if _, ok := IsUnresolvedInstance(c); ok {
			out = append(out, CellRef(i))
		}
	}

	return out
}
