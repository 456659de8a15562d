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

// Package examplefrontend is a minimal fixed gate library (and2, or2,
// not1, buf) used as a worked example of the Frontend capability set: a
// built-in, in-process instance of it lives here, and cmd/examplefrontend
// serves the very same library as an out-of-process, RPC-backed frontend
// for integration testing of the Remote transport.
package examplefrontend

import (
	"context"
	"math/big"

	"github.com/opensynth/elabdrv/pkg/frontend"
	"github.com/opensynth/elabdrv/pkg/ir"
	"github.com/opensynth/elabdrv/pkg/util"
)

// Modules returns the fixed gate library, fresh copies every call so that
// no caller can mutate a shared instance by mistake.
func Modules() []ir.Module {
	bit := func(name string, dir ir.Direction) ir.PortDescriptor {
		return ir.PortDescriptor{Name: ir.NewName(name), Direction: dir, Width: 1}
	}

	return []ir.Module{
		{
			Name: ir.NewName("and2"),
			Kind: ir.Blackbox,
			Ports: []ir.PortDescriptor{
				bit("a", ir.Input), bit("b", ir.Input), bit("y", ir.Output),
			},
		},
		{
			Name: ir.NewName("or2"),
			Kind: ir.Blackbox,
			Ports: []ir.PortDescriptor{
				bit("a", ir.Input), bit("b", ir.Input), bit("y", ir.Output),
			},
		},
		{
			Name:  ir.NewName("not1"),
			Kind:  ir.Blackbox,
			Ports: []ir.PortDescriptor{bit("a", ir.Input), bit("y", ir.Output)},
		},
		{
			Name: ir.NewName("buf"),
			Kind: ir.User,
			Proper: []ir.ParamDescriptor{
				{Name: ir.NewName("width"), Kind: ir.KindInt, Default: util.Some(ir.Value{Kind: ir.KindInt, Int: big.NewInt(8)})},
			},
			Ports: []ir.PortDescriptor{bit("in", ir.Input), bit("out", ir.Output)},
		},
	}
}

// Frontend is the built-in, in-process form of the gate library.
type Frontend struct {
	frontend.Base
}

// New constructs a built-in example frontend. name identifies it for
// diagnostics and registration-order tie-breaking.
func New(name string) *Frontend {
	return &Frontend{Base: frontend.Base{Name: name}}
}

// ListExported implements frontend.Frontend.
func (f *Frontend) ListExported(_ context.Context, _ frontend.Driver) ([]ir.Name, bool) {
	lib := Modules()
	names := make([]ir.Name, len(lib))

	for i, m := range lib {
		names[i] = m.Name
	}

	return names, true
}

// ElaborateTop implements frontend.Frontend. The gate library has no top
// modules of its own; it only ever answers ElaborateSpecified, when some
// other module instantiates one of its cells.
func (f *Frontend) ElaborateTop(_ context.Context, _ frontend.Driver) ([]ir.ModuleHandle, error) {
	return nil, nil
}

// ElaborateSpecified implements frontend.Frontend: find the unique library
// module matching req by name and by proper-parameter compatibility, then
// insert a fresh copy into the driver's design.
func (f *Frontend) ElaborateSpecified(_ context.Context, drv frontend.Driver, req frontend.Request) frontend.Response {
	match, ok := Match(req)
	if !ok {
		return frontend.Response{Status: frontend.NotProvided}
	}

	newH := drv.Design().Insert(match)

	return frontend.Response{Status: frontend.Success, Module: newH, Normalized: Normalize(match, req)}
}

// Match finds the unique library module matching req by name and by
// proper-parameter compatibility. Exported so cmd/examplefrontend can run
// the same matching rule out of process, over the wire, instead of
// duplicating it.
func Match(req frontend.Request) (ir.Module, bool) {
	for _, m := range Modules() {
		if !req.Name.Matches(m.Name) {
			continue
		}

		if req.Mode == frontend.ProperModuleOnly && m.Kind == ir.Blackbox {
			continue
		}

		if !properParamsCompatible(&m, req) {
			continue
		}

		return m, true
	}

	return ir.Module{}, false
}

func properParamsCompatible(m *ir.Module, req frontend.Request) bool {
	for _, b := range req.Params {
		if !b.Name.HasValue() {
			continue
		}

		desc, ok := m.ProperParam(b.Name.Unwrap())
		if !ok {
			continue
		}

		if b.Value.HasValue() {
			if !desc.Accepts(b.Value.Unwrap()) {
				return false
			}
		} else if b.DynamicKind.HasValue() {
			if !desc.Kind.Accepts(b.DynamicKind.Unwrap()) {
				return false
			}
		}
	}

	return true
}

// Normalize builds the normalized-parameter list for m, aligned to its
// proper-parameter declaration order, from whatever req bound each one to.
func Normalize(m ir.Module, req frontend.Request) []ir.NormalizedParam {
	out := make([]ir.NormalizedParam, len(m.Proper))

	for i, desc := range m.Proper {
		out[i] = ir.NormalizedParam{Name: desc.Name, Value: desc.Default}

		for _, b := range req.Params {
			byName := b.Name.HasValue() && desc.Name.Matches(b.Name.Unwrap())
			byPosition := b.Position.HasValue() && int(b.Position.Unwrap()) == i
			if !byName && !byPosition {
				continue
			}

			out[i] = ir.NormalizedParam{Name: desc.Name, Value: b.Value}
		}
	}

	return out
}
