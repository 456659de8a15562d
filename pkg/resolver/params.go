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
	"github.com/opensynth/elabdrv/pkg/frontend"
	"github.com/opensynth/elabdrv/pkg/ir"
	"github.com/opensynth/elabdrv/pkg/util"
)

// linkParams resolves every proper parameter of target, in declaration
// order: locate the matching cell binding by name then by position,
// resolve it to a concrete or dynamic NormalizedParam, and fall back to
// the descriptor's default when unmatched. Extra cell bindings that match
// nothing are silently ignored.
func (r *Resolver) linkParams(
	m, target *ir.Module,
	cell ir.UnresolvedInstanceCell,
	resp frontend.Response,
) ([]ir.NormalizedParam, bool) {
	out := make([]ir.NormalizedParam, len(target.Proper))

	for i, desc := range target.Proper {
		binding, found, err := matchParamBinding(desc, i, cell.Params)
		if err != nil {
			r.reportInvalidParameter(m, target, err)
			return nil, false
		}

		if !found {
			if !desc.Default.HasValue() {
				r.reportInvalidParameter(m, target, fmt.Errorf("missing required parameter %q", desc.Name.Text))
				return nil, false
			}

			out[i] = ir.NormalizedParam{Name: desc.Name, Value: desc.Default}
			continue
		}

		if binding.IsDynamic() {
			if !binding.DynamicKind.HasValue() || !desc.Kind.Accepts(binding.DynamicKind.Unwrap()) {
				r.reportInvalidParameter(m, target, fmt.Errorf("parameter %q: dynamic source kind does not match", desc.Name.Text))
				return nil, false
			}

			out[i] = ir.NormalizedParam{Name: desc.Name, Value: util.None[ir.Value]()}
			continue
		}

		val, ok := findNormalized(desc.Name, resp.Normalized)
		if !ok {
			r.reportInvalidParameter(m, target, fmt.Errorf("parameter %q: frontend returned no normalized value", desc.Name.Text))
			return nil, false
		}

		if !desc.Accepts(val) {
			r.reportInvalidParameter(m, target, fmt.Errorf("parameter %q: normalized value rejected by descriptor", desc.Name.Text))
			return nil, false
		}

		out[i] = ir.NormalizedParam{Name: desc.Name, Value: util.Some(val)}
	}

	return out, true
}

// matchParamBinding locates the binding in bindings that corresponds to
// descriptor desc at declaration position index: a name match first, a
// position match if no name match exists, and an error if either stage
// finds more than one candidate.
func matchParamBinding(desc ir.ParamDescriptor, index int, bindings []ir.ParamCellBinding) (ir.ParamCellBinding, bool, error) {
	var byName []ir.ParamCellBinding

	for _, b := range bindings {
		if b.Name.HasValue() && desc.Name.Matches(b.Name.Unwrap()) {
			byName = append(byName, b)
		}
	}

	if len(byName) > 1 {
		return ir.ParamCellBinding{}, false, fmt.Errorf("parameter %q matched by more than one binding by name", desc.Name.Text)
	}

	if len(byName) == 1 {
		return byName[0], true, nil
	}

	var byPosition []ir.ParamCellBinding

	for _, b := range bindings {
		if b.Position.HasValue() && int(b.Position.Unwrap()) == index {
			byPosition = append(byPosition, b)
		}
	}

	if len(byPosition) > 1 {
		return ir.ParamCellBinding{}, false, fmt.Errorf("parameter %q matched by more than one binding by position", desc.Name.Text)
	}

	if len(byPosition) == 1 {
		return byPosition[0], true, nil
	}

	return ir.ParamCellBinding{}, false, nil
}

// findNormalized locates the normalized concrete value for name in list, if
// any; an entry carrying "dynamic" (empty Value) does not count as found
// here since a const-bound parameter must receive a concrete value.
func findNormalized(name ir.Name, list []ir.NormalizedParam) (ir.Value, bool) {
	for _, np := range list {
		if np.Name.Matches(name) && np.Value.HasValue() {
			return np.Value.Unwrap(), true
		}
	}

	return ir.Value{}, false
}

func (r *Resolver) reportInvalidParameter(m, target *ir.Module, err error) {
	r.diags.Report(diag.Diagnostic{
		Kind:    diag.InvalidParameter,
		Message: fmt.Sprintf("instantiating %q: %s", target.Name.Text, err),
		Module:  m.Name.Text,
	})
}
