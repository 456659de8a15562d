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
package frontend

import (
	"bytes"
	"encoding/gob"

	"github.com/opensynth/elabdrv/pkg/ir"
)

// Fragment is the serialized-IR-fragment shape a frontend submits via
// "insertIR": a set of modules addressed by fragment-local IDs rather than
// driver handles.  Everywhere an ir.Module would hold a ModuleHandle (only
// InstanceCell.Module does), a fragment instead holds a FragmentModuleID,
// since driver handles do not exist yet on the frontend's side of the
// wire.  Exported so any in-process Go frontend (built-in or the one a
// remote subprocess serves) can build one directly with EncodeFragment
// rather than reverse-engineering the gob shape.
type Fragment struct {
	Modules []FragmentModule
}

type FragmentModule struct {
	ID     uint64
	Name   ir.Name
	Kind   ir.ModuleKind
	Top    bool
	Baked  []ir.BakedParam
	Proper []ir.ParamDescriptor
	Ports  []ir.PortDescriptor
	Cells  []FragmentCell
}

// FragmentCell mirrors ir.Cell's closed variant set, except that an
// instance cell names its target module by FragmentModuleID instead of
// ir.ModuleHandle.  Exactly one of the pointer fields is non-nil.
type FragmentCell struct {
	Const              *ir.ConstCell
	Bus                *ir.BusCell
	InstanceOutput     *ir.InstanceOutputCell
	UnresolvedInstance *ir.UnresolvedInstanceCell
	Instance           *FragmentInstanceCell
}

type FragmentInstanceCell struct {
	ModuleID uint64
	Params   []ir.NormalizedParam
	Ports    []ir.PortCellBinding
}

// DecodeFragment deserializes an opaque "insertIR" payload.  The wire
// format is gob; it is opaque to every other component beyond the minimal
// shape needed for linking.
func DecodeFragment(data []byte) (*Fragment, error) {
	var f Fragment

	dec := gob.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&f); err != nil {
		return nil, err
	}

	return &f, nil
}

// EncodeFragment serializes a fragment for transmission: the frontend side
// of "insertIR", used both by in-process test doubles and by any out-of-
// process frontend implemented in Go (see cmd/examplefrontend).
func EncodeFragment(f *Fragment) ([]byte, error) {
	var buf bytes.Buffer

	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(f); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// LoadDesign decodes a gob-encoded IR fragment and materialises it into a
// fresh, standalone Design - the shape the pass-through frontend
// needs for a design loaded from disk rather than received over a live
// connection.
func LoadDesign(data []byte) (*ir.Design, error) {
	f, err := DecodeFragment(data)
	if err != nil {
		return nil, err
	}

	d := ir.NewDesign()
	insertFragment(d, f, nil)

	return d, nil
}

// insertFragment ingests f into design, allocating a driver handle for
// every module not already covered by standIns, and returns the full
// fragment-ID -> driver-handle mapping (both the newly allocated ones and
// the stand-ins, so callers can resolve every instance reference
// uniformly).  Validity rules are checked against the allocated driver
// modules, not the stand-ins: a stand-in is opaque here, carrying no
// interior detail to validate.
func insertFragment(design *ir.Design, f *Fragment, standIns map[uint64]ir.ModuleHandle) map[uint64]ir.ModuleHandle {
	mapping := make(map[uint64]ir.ModuleHandle, len(f.Modules)+len(standIns))

	for id, h := range standIns {
		mapping[id] = h
	}
	// First pass: allocate a handle for every non-stand-in module, so that
	// instance cells referencing one another (however the fragment orders
	// them) resolve correctly in the second pass below.
	pending := make([]FragmentModule, 0, len(f.Modules))

	for _, fm := range f.Modules {
		if _, isStandIn := standIns[fm.ID]; isStandIn {
			continue
		}

		pending = append(pending, fm)
	}

	allocated := make([]ir.ModuleHandle, len(pending))

	for i, fm := range pending {
		m := ir.Module{
			Name:   fm.Name,
			Kind:   fm.Kind,
			Top:    fm.Top,
			Baked:  fm.Baked,
			Proper: fm.Proper,
			Ports:  fm.Ports,
		}
		allocated[i] = design.Insert(m)
		mapping[fm.ID] = allocated[i]
	}
	// Second pass: now that every fragment ID maps to a handle, materialise
	// each module's cells with instance references rewritten.
	for i, fm := range pending {
		m := design.Module(allocated[i])
		m.Cells = make([]ir.Cell, len(fm.Cells))

		for j, fc := range fm.Cells {
			m.Cells[j] = resolveFragmentCell(fc, mapping)
		}
	}

	return mapping
}

func resolveFragmentCell(fc FragmentCell, mapping map[uint64]ir.ModuleHandle) ir.Cell {
	switch {
	case fc.Const != nil:
		return *fc.Const
	case fc.Bus != nil:
		return *fc.Bus
	case fc.InstanceOutput != nil:
		return *fc.InstanceOutput
	case fc.UnresolvedInstance != nil:
		return *fc.UnresolvedInstance
	case fc.Instance != nil:
		return ir.InstanceCell{
			Module: mapping[fc.Instance.ModuleID],
			Params: fc.Instance.Params,
			Ports:  fc.Instance.Ports,
		}
	default:
		// An empty fragment cell has no sensible rendering; treat it as an
		// empty bus rather than panicking mid-insertion.
		return ir.BusCell{}
	}
}
