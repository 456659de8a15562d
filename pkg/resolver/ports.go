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
package resolver

import (
	"fmt"

	"github.com/opensynth/elabdrv/pkg/diag"
	"github.com/opensynth/elabdrv/pkg/ir"
	"github.com/opensynth/elabdrv/pkg/util"
)

// linkPorts resolves every port of target, in declaration order: locate
// the matching cell binding by name then by position, check width and
// direction compatibility against the connection table, and default any
// unconnected port per its direction.  Any cell binding left unmatched at
// the end is a "cell port not matching any submodule port" error.
func (r *Resolver) linkPorts(m, target *ir.Module, cell ir.UnresolvedInstanceCell) ([]ir.PortCellBinding, bool) {
	used := make([]bool, len(cell.Ports))
	out := make([]ir.PortCellBinding, len(target.Ports))

	for i, desc := range target.Ports {
		binding, idx, found, err := matchPortBinding(desc, i, cell.Ports, used)
		if err != nil {
			r.reportPortMismatch(m, target, err)
			return nil, false
		}

		if !found {
			out[i] = r.defaultPort(m, desc)
			continue
		}

		used[idx] = true

		if binding.Width != desc.Width {
			r.reportPortMismatch(m, target, fmt.Errorf("port %q: width %d does not match declared width %d", desc.Name.Text, binding.Width, desc.Width))
			return nil, false
		}

		if !portCompatible(desc.Direction, binding.Direction) {
			r.reportPortMismatch(m, target, fmt.Errorf("port %q: direction %s incompatible with declared %s", desc.Name.Text, binding.Direction, desc.Direction))
			return nil, false
		}

		out[i] = connectPort(m, desc, binding)
	}

	for i, b := range cell.Ports {
		if used[i] {
			continue
		}

		name := "<positional>"
		if b.Port.HasValue() {
			if ref := b.Port.Unwrap(); ref.Name.HasValue() {
				name = ref.Name.Unwrap().Text
			}
		}

		r.reportPortMismatch(m, target, fmt.Errorf("cell port %q does not match any port of %q", name, target.Name.Text))

		return nil, false
	}

	return out, true
}

// matchPortBinding locates the binding in bindings that corresponds to
// descriptor desc at declaration position index, skipping already-used
// bindings, mirroring matchParamBinding's name-then-position rule.
func matchPortBinding(desc ir.PortDescriptor, index int, bindings []ir.PortCellBinding, used []bool) (ir.PortCellBinding, int, bool, error) {
	byName := -1

	for i, b := range bindings {
		if used[i] || !b.Port.HasValue() {
			continue
		}

		ref := b.Port.Unwrap()
		if !ref.Name.HasValue() || !desc.Name.Matches(ref.Name.Unwrap()) {
			continue
		}

		if byName != -1 {
			return ir.PortCellBinding{}, -1, false, fmt.Errorf("port %q matched by more than one binding by name", desc.Name.Text)
		}

		byName = i
	}

	if byName != -1 {
		return bindings[byName], byName, true, nil
	}

	byPosition := -1

	for i, b := range bindings {
		if used[i] || !b.Port.HasValue() {
			continue
		}

		ref := b.Port.Unwrap()
		if !ref.Position.HasValue() || int(ref.Position.Unwrap()) != index {
			continue
		}

		if byPosition != -1 {
			return ir.PortCellBinding{}, -1, false, fmt.Errorf("port %q matched by more than one binding by position", desc.Name.Text)
		}

		byPosition = i
	}

	if byPosition != -1 {
		return bindings[byPosition], byPosition, true, nil
	}

	return ir.PortCellBinding{}, -1, false, nil
}

// portCompatible implements connection table's direction rule. A bus on
// either side absorbs any direction, since it is defined to tolerate
// multiple drivers. Output tied to output is allowed - the caller reuses
// the submodule's existing instance-output cell - as is input tied to
// input. The two combinations the table forbids are input tied to output
// and output tied to input, since in both cases nothing would drive one
// side of the net.
func portCompatible(submodule, cell ir.Direction) bool {
	if submodule == ir.Bus || cell == ir.Bus {
		return true
	}

	return !((submodule == ir.Input && cell == ir.Output) || (submodule == ir.Output && cell == ir.Input))
}

// connectPort builds the binding connecting target's port desc to the
// instantiating module's net named by binding, applying whichever
// cell-graph action the connection table's direction pair requires beyond
// plain reuse of binding.Value:
//
//   - bus declared, input bound: binding.Value is an ordinary net, not a
//     bus, so a new BusCell is created with binding.Value attached as its
//     sole driver, and the port connects to that new bus.
//   - bus declared, output bound: binding.Value already names the
//     existing instance-output cell the caller built for this connection;
//     it is converted into a BusCell in place, preserving its CellRef.
//   - output declared, bus bound: the submodule needs its own
//     instance-output cell, which is created fresh and appended as a
//     driver onto the caller's existing bus (binding.Value).
//   - every other compatible pair (including output-output and
//     input-input) reuses binding.Value unchanged.
func connectPort(m *ir.Module, desc ir.PortDescriptor, binding ir.PortCellBinding) ir.PortCellBinding {
	value := binding.Value

	switch {
	case desc.Direction == ir.Bus && binding.Direction == ir.Input:
		value = m.AddCell(ir.BusCell{Width: desc.Width, Drivers: []ir.CellRef{binding.Value}})
	case desc.Direction == ir.Bus && binding.Direction == ir.Output:
		m.SetCell(binding.Value, ir.BusCell{Width: desc.Width})
	case desc.Direction == ir.Output && binding.Direction == ir.Bus:
		value = m.AddCell(ir.InstanceOutputCell{Width: desc.Width})

		if bus, ok := m.Cell(binding.Value).(ir.BusCell); ok {
			bus.Drivers = append(bus.Drivers, value)
			m.SetCell(binding.Value, bus)
		}
	}

	return ir.PortCellBinding{
		Port:      util.Some(ir.PortRef{Name: util.Some(desc.Name)}),
		Direction: desc.Direction,
		Width:     desc.Width,
		Value:     value,
	}
}

// defaultPort materialises an unconnected port's default net: an
// unconnected input reads its descriptor default if any, else all-x; an
// unconnected output gets a dummy sink cell; an unconnected bus gets a
// dummy zero-driver bus cell.
func (r *Resolver) defaultPort(m *ir.Module, desc ir.PortDescriptor) ir.PortCellBinding {
	var ref ir.CellRef

	switch desc.Direction {
	case ir.Input:
		if desc.Default.HasValue() {
			ref = m.AddCell(ir.ConstCell{Value: desc.Default.Unwrap()})
		} else {
			ref = m.AddCell(ir.ConstCell{Value: ir.AllX(desc.Width)})
		}
	case ir.Output:
		ref = m.AddCell(ir.InstanceOutputCell{Width: desc.Width})
	default:
		ref = m.AddCell(ir.BusCell{Width: desc.Width})
	}

	return ir.PortCellBinding{
		Port:      util.Some(ir.PortRef{Name: util.Some(desc.Name)}),
		Direction: desc.Direction,
		Width:     desc.Width,
		Value:     ref,
	}
}

func (r *Resolver) reportPortMismatch(m, target *ir.Module, err error) {
	r.diags.Report(diag.Diagnostic{
		Kind:    diag.PortMismatch,
		Message: fmt.Sprintf("instantiating %q: %s", target.Name.Text, err),
		Module:  m.Name.Text,
	})
}
