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

// Package passthrough implements the Pass-through Frontend: a
// built-in frontend that serves modules out of an already-elaborated
// *ir.Design (e.g. a pre-synthesized netlist loaded from disk) instead of
// elaborating anything itself.  It is always a target-provided frontend -
// the Router routes it strictly last.  Every module it serves is copied in
// with the kind it has in the imported design, so it can satisfy round one
// with any module that is not a Blackbox.
package passthrough

import (
	"context"
	"fmt"

	"github.com/opensynth/elabdrv/pkg/frontend"
	"github.com/opensynth/elabdrv/pkg/ir"
	"github.com/opensynth/elabdrv/pkg/util"
)

// Frontend serves modules out of a pre-built design.
type Frontend struct {
	frontend.Base

	imported *ir.Design
}

// New constructs a pass-through frontend over an already-elaborated design.
// name identifies it for diagnostics and registration-order tie-breaking.
func New(name string, imported *ir.Design) *Frontend {
	return &Frontend{Base: frontend.Base{Name: name}, imported: imported}
}

// IsTargetProvided implements frontend.TargetProvided: a pass-through
// frontend is always routed after every other candidate.
func (f *Frontend) IsTargetProvided() bool {
	return true
}

// ListExported implements frontend.Frontend.
func (f *Frontend) ListExported(_ context.Context, _ frontend.Driver) ([]ir.Name, bool) {
	names := make([]ir.Name, 0, f.imported.Len())

	for _, h := range f.imported.Handles() {
		names = append(names, f.imported.Module(h).Name)
	}

	return names, true
}

// ElaborateTop implements frontend.Frontend by copying every top module of
// the imported design into the driver's design.
func (f *Frontend) ElaborateTop(ctx context.Context, drv frontend.Driver) ([]ir.ModuleHandle, error) {
	var out []ir.ModuleHandle

	for _, h := range f.imported.TopHandles() {
		mapping := map[ir.ModuleHandle]ir.ModuleHandle{}

		var copied []ir.ModuleHandle

		newH := f.copyModule(ctx, drv, h, mapping, &copied)
		drv.Design().Module(newH).Top = true

		f.queueUnresolved(drv, copied)

		out = append(out, newH)
	}

	return out, nil
}

// ElaborateSpecified implements frontend.Frontend: find every module of the
// imported design whose name matches the request and whose parameters are
// compatible with it, then copy the unique compatible match.  More than
// one compatible match is an ambiguity the importing design must resolve
// by supplying more specific parameters; it is reported as an
// invalid-parameter error rather than picked arbitrarily.
func (f *Frontend) ElaborateSpecified(ctx context.Context, drv frontend.Driver, req frontend.Request) frontend.Response {
	var compatible []ir.ModuleHandle

	for _, h := range f.imported.Handles() {
		m := f.imported.Module(h)

		if !req.Name.Matches(m.Name) {
			continue
		}

		if req.Mode == frontend.ProperModuleOnly && m.Kind == ir.Blackbox {
			continue
		}

		if !isCompatible(m, req) {
			continue
		}

		compatible = append(compatible, h)
	}

	switch len(compatible) {
	case 0:
		return frontend.Response{Status: frontend.NotProvided}
	case 1:
		m := f.imported.Module(compatible[0])

		if missing, ok := missingProperParam(m, req); !ok {
			return frontend.Response{
				Status: frontend.InvalidParameter,
				Err:    fmt.Errorf("pass-through match for %q missing required parameter %q", req.Name.Text, missing.Text),
			}
		}

		mapping := map[ir.ModuleHandle]ir.ModuleHandle{}

		var copied []ir.ModuleHandle

		newH := f.copyModule(ctx, drv, compatible[0], mapping, &copied)

		f.queueUnresolved(drv, copied)

		target := drv.Design().Module(newH)

		return frontend.Response{Status: frontend.Success, Module: newH, Normalized: normalizeParams(target, req)}
	default:
		return frontend.Response{
			Status: frontend.InvalidParameter,
			Err:    fmt.Errorf("ambiguous pass-through match for %q: %d compatible modules", req.Name.Text, len(compatible)),
		}
	}
}

// queueUnresolved marks every copied module that still carries unresolved
// instance cells for the Resolver sweep: a pass-through module may itself
// instantiate something its source design never resolved, and this
// frontend has no elaboration logic of its own to resolve it, so it
// synthesizes the same "this module needs resolving" request any built-in
// frontend would make when it finishes building a module.
func (f *Frontend) queueUnresolved(drv frontend.Driver, copied []ir.ModuleHandle) {
	for _, h := range copied {
		if len(drv.Design().Module(h).UnresolvedCells()) > 0 {
			drv.MarkForUnresolvedProcessing(h)
		}
	}
}

// copyModule copies h and everything it transitively instantiates (via
// InstanceCell.Module) from the imported design into drv's design,
// remapping handles as it goes. Unresolved-instance cells are copied
// as-is, untouched: they name their target module by ir.Name, not by
// handle, so nothing needs remapping there - resolving them is left to a
// later Resolver sweep, which will route back through the full frontend
// set including, potentially, this one again.
func (f *Frontend) copyModule(
	ctx context.Context,
	drv frontend.Driver,
	h ir.ModuleHandle,
	mapping map[ir.ModuleHandle]ir.ModuleHandle,
	copied *[]ir.ModuleHandle,
) ir.ModuleHandle {
	if newH, ok := mapping[h]; ok {
		return newH
	}

	src := f.imported.Module(h)

	newH := drv.Design().Insert(ir.Module{
		Name:   src.Name,
		Kind:   src.Kind,
		Baked:  src.Baked,
		Proper: src.Proper,
		Ports:  src.Ports,
	})
	mapping[h] = newH
	*copied = append(*copied, newH)

	dst := drv.Design().Module(newH)
	dst.Cells = make([]ir.Cell, len(src.Cells))

	for i, c := range src.Cells {
		if inst, ok := c.(ir.InstanceCell); ok {
			dst.Cells[i] = f.copyInstance(ctx, drv, inst, mapping, copied)
			continue
		}

		dst.Cells[i] = c
	}

	return newH
}

// copyInstance copies one instance cell belonging to an already-copied
// module. When the cell instantiates a Blackbox, the pass-through frontend
// first offers the rest of the driver's registered frontends a chance to
// supply a better implementation, by synthesizing an equivalent request and
// routing it exactly as any frontend's recursive elaboration request would
// be routed. On any response other than Success it falls back to copying
// the blackbox unchanged, as every other instance cell is copied; an
// invalid-parameter or elaboration-error response is not reported.
func (f *Frontend) copyInstance(
	ctx context.Context,
	drv frontend.Driver,
	inst ir.InstanceCell,
	mapping map[ir.ModuleHandle]ir.ModuleHandle,
	copied *[]ir.ModuleHandle,
) ir.Cell {
	target := f.imported.Module(inst.Module)

	if target.Kind == ir.Blackbox {
		req := frontend.Request{
			Source: f.ID(),
			Mode:   frontend.AnyModule,
			Name:   target.Name,
			Params: normalizedToBindings(target, inst.Params),
			Ports:  portCellBindingsToPortBindings(inst.Ports),
		}

		if resp := drv.Route(ctx, f.ID(), req); resp.Status == frontend.Success {
			return ir.InstanceCell{Module: resp.Module, Params: resp.Normalized, Ports: inst.Ports}
		}
	}

	return ir.InstanceCell{
		Module: f.copyModule(ctx, drv, inst.Module, mapping, copied),
		Params: inst.Params,
		Ports:  inst.Ports,
	}
}

// missingProperParam implements module-matching's completeness gate: every
// proper parameter without a default must be covered by a request binding,
// named or positional. It returns the name of the first uncovered
// parameter, and false, on a gap; (ir.Name{}, true) otherwise.
func missingProperParam(m *ir.Module, req frontend.Request) (ir.Name, bool) {
	for i, desc := range m.Proper {
		if desc.Default.HasValue() {
			continue
		}

		covered := false

		for _, b := range req.Params {
			if b.Name.HasValue() && desc.Name.Matches(b.Name.Unwrap()) {
				covered = true
				break
			}

			if b.Position.HasValue() && int(b.Position.Unwrap()) == i {
				covered = true
				break
			}
		}

		if !covered {
			return desc.Name, false
		}
	}

	return ir.Name{}, true
}

// normalizedToBindings converts a fully-resolved instance cell's normalized
// parameters back into request bindings, the form a recursive elaboration
// request carries them in. A dynamic entry (no concrete Value) carries
// forward its declared kind, looked up from target's own descriptor, so the
// request can still be kind-checked by whatever answers it.
func normalizedToBindings(target *ir.Module, params []ir.NormalizedParam) []ir.Binding {
	out := make([]ir.Binding, len(params))

	for i, p := range params {
		b := ir.Binding{Name: util.Some(p.Name), Value: p.Value}

		if p.Value.IsEmpty() {
			if desc, ok := target.ProperParam(p.Name); ok {
				b.DynamicKind = util.Some(desc.Kind)
			}
		}

		out[i] = b
	}

	return out
}

// portCellBindingsToPortBindings strips the net reference (ir.CellRef) from
// each port binding, since a CellRef is only meaningful within the
// instantiating module and must not cross a frontend boundary.
func portCellBindingsToPortBindings(ports []ir.PortCellBinding) []frontend.PortBinding {
	out := make([]frontend.PortBinding, len(ports))

	for i, p := range ports {
		out[i] = frontend.PortBinding{Port: p.Port, Direction: p.Direction, Width: p.Width}
	}

	return out
}

// isCompatible implements module-matching-by-compatibility rule: a
// baked-in parameter binding on the request must agree with the module's
// already-baked value, and a proper-parameter binding must be accepted by
// its descriptor (or type-match, if dynamic).  A binding naming neither a
// baked nor a proper parameter is ignored, matching the Resolver's "extra
// bindings are silently ignored" rule.
func isCompatible(m *ir.Module, req frontend.Request) bool {
	for _, b := range req.Params {
		if !b.Name.HasValue() {
			continue
		}

		name := b.Name.Unwrap()

		if baked, ok := bakedParam(m, name); ok {
			if b.Value.HasValue() && !valuesEqual(b.Value.Unwrap(), baked.Value) {
				return false
			}

			continue
		}

		desc, ok := m.ProperParam(name)
		if !ok {
			continue
		}

		if b.Value.HasValue() {
			if !desc.Accepts(b.Value.Unwrap()) {
				return false
			}
		} else if b.DynamicKind.HasValue() && !desc.Kind.Accepts(b.DynamicKind.Unwrap()) {
			return false
		}
	}

	return true
}

func bakedParam(m *ir.Module, name ir.Name) (ir.BakedParam, bool) {
	for _, bp := range m.Baked {
		if bp.Name.Matches(name) {
			return bp, true
		}
	}

	return ir.BakedParam{}, false
}

func valuesEqual(a, b ir.Value) bool {
	if !a.SameKind(b) {
		return false
	}

	switch a.Kind {
	case ir.KindString:
		return a.Str == b.Str
	case ir.KindInt:
		return a.Int != nil && b.Int != nil && a.Int.Cmp(b.Int) == 0
	case ir.KindReal:
		return a.Real == b.Real
	default:
		return a.String() == b.String()
	}
}

// normalizeParams builds the normalized-parameter list for a freshly copied
// module, aligned to its proper-parameter declaration order, from whatever
// the request bound each one to.
func normalizeParams(m *ir.Module, req frontend.Request) []ir.NormalizedParam {
	out := make([]ir.NormalizedParam, len(m.Proper))

	for i, desc := range m.Proper {
		for _, b := range req.Params {
			byName := b.Name.HasValue() && desc.Name.Matches(b.Name.Unwrap())
			byPosition := b.Position.HasValue() && int(b.Position.Unwrap()) == i
			if !byName && !byPosition {
				continue
			}

			if b.Value.HasValue() {
				out[i] = ir.NormalizedParam{Name: desc.Name, Value: b.Value}
			} else {
				out[i] = ir.NormalizedParam{Name: desc.Name, Value: util.None[ir.Value]()}
			}

			goto next
		}

		out[i] = ir.NormalizedParam{Name: desc.Name, Value: desc.Default}

	next:
	}

	return out
}
