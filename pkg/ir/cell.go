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

import "github.com/opensynth/elabdrv/pkg/util"

// cellKind tags the variant of a Cell for switch-based dispatch, following
// the closed-set-of-variants style the driver's cell model needs (there is
// no sealed-interface idiom in Go; a kind tag plus a type switch is the
// idiomatic substitute).
type cellKind uint8

const (
	kindConst cellKind = iota
	kindBus
	kindInstanceOutput
	kindUnresolvedInstance
	kindInstance
)

// Cell is one entry of a Module's cell list.  A cell's index within that
// list (its CellRef) is stable for the cell's lifetime: "rewriting a cell in
// place" always means replacing the Cell value stored at an unchanged index.
type Cell interface {
	cellKind() cellKind
}

// ConstCell holds a constant value, typically feeding a parameter binding or
// an unconnected input's default.
type ConstCell struct {
	Value Value
}

func (ConstCell) cellKind() cellKind { return kindConst }

// BusCell is a bidirectional net which may be driven from more than one
// source.  Drivers lists the cells driving it (e.g. a default driver
// synthesised by the port connection table for an unconnected bus).
type BusCell struct {
	Width   uint
	Drivers []CellRef
}

func (BusCell) cellKind() cellKind { return kindBus }

// InstanceOutputCell represents the value produced by an instance's output
// port.  It exists as its own cell so that other cells can reference "the
// value this instance's output port currently holds" by CellRef.
type InstanceOutputCell struct {
	Width uint
}

func (InstanceOutputCell) cellKind() cellKind { return kindInstanceOutput }

// PortRef names a connected port by name, by position, or both (some
// frontends supply only a position; the resolver then matches by position).
type PortRef struct {
	Name     util.Option[Name]
	Position util.Option[uint]
}

// PortCellBinding connects one port (of a submodule instance, as seen from
// the instantiating module) to a net cell in the instantiating module.
type PortCellBinding struct {
	Port util.Option[PortRef]
	// Direction is the direction as asserted by the instantiating cell; it
	// may legally disagree with the submodule's own port direction (see the
	// connection table), which is exactly what the resolver checks.
	Direction Direction
	Width     uint
	// Value is a CellRef, within the *same* module as this cell, to the net
	// cell (ConstCell, BusCell, or InstanceOutputCell) supplying or
	// receiving this connection.
	Value CellRef
}

// ParamCellBinding binds one parameter of an (unresolved or resolved)
// instance cell, either to a constant cell or to a dynamic symbolic source
// whose kind is known (for type-checking) but whose value is not.
type ParamCellBinding struct {
	Name     util.Option[Name]
	Position util.Option[uint]
	// Const, if present, is a CellRef to a ConstCell in the same module.
	Const util.Option[CellRef]
	// DynamicKind is set when Const is empty: the kind of the symbolic
	// value source, used to type-check against the proper parameter's kind.
	DynamicKind util.Option[ParamKind]
}

// IsDynamic reports whether this binding carries "value unavailable".
func (b ParamCellBinding) IsDynamic() bool {
	return b.Const.IsEmpty()
}

// UnresolvedInstanceCell is an instantiation whose target module has not yet
// been linked.  The Resolver (pkg/resolver) walks these and either rewrites
// them into InstanceCell in place, or leaves them as-is for diagnostics.
type UnresolvedInstanceCell struct {
	ModuleName Name
	Params     []ParamCellBinding
	Ports      []PortCellBinding
}

func (UnresolvedInstanceCell) cellKind() cellKind { return kindUnresolvedInstance }

// InstanceCell is a fully linked instantiation of Module, with Params and
// Ports fully resolved.
type InstanceCell struct {
	Module ModuleHandle
	Params []NormalizedParam
	Ports  []PortCellBinding
}

func (InstanceCell) cellKind() cellKind { return kindInstance }

// IsUnresolvedInstance reports whether c is an UnresolvedInstanceCell.
func IsUnresolvedInstance(c Cell) (UnresolvedInstanceCell, bool) {
	u, ok := c.(UnresolvedInstanceCell)
	return u, ok
}
