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

// Package resolver implements the Unresolved-Instance Resolver: the
// deterministic per-cell build-request / route / link-parameters /
// link-ports / rewrite-in-place procedure that turns every queued module's
// unresolved-instance cells into proper instances.
//
// The shape follows a small struct wrapping whatever context the walk
// needs, an entry point that walks every declaration (here: every queued
// module's every cell), and an accumulated []SyntaxError-style diagnostic
// list rather than an early return on the first failure.
package resolver

import (
	"context"
	"fmt"

	"github.com/opensynth/elabdrv/pkg/diag"
	"github.com/opensynth/elabdrv/pkg/frontend"
	"github.com/opensynth/elabdrv/pkg/ir"
	"github.com/opensynth/elabdrv/pkg/util"
)

// Resolver walks a queue of modules and resolves every unresolved-instance
// cell found within them.
type Resolver struct {
	design               *ir.Design
	drv                  frontend.Driver
	diags                *diag.Accumulator
	errorOnUnknownModule bool
}

// New constructs a Resolver.
func New(design *ir.Design, drv frontend.Driver, diags *diag.Accumulator, errorOnUnknownModule bool) *Resolver {
	return &Resolver{design: design, drv: drv, diags: diags, errorOnUnknownModule: errorOnUnknownModule}
}

// Run sweeps every module in queue.  Running Run twice over the same queue
// is a no-op the second time: once a sweep rewrites every
// UnresolvedInstanceCell it can, Module.UnresolvedCells() returns nothing
// and there is no further work to do.
func (r *Resolver) Run(ctx context.Context, queue []ir.ModuleHandle) {
	for _, h := range queue {
		m := r.design.Module(h)

		for _, ref := range m.UnresolvedCells() {
			r.resolveCell(ctx, m, ref)
		}
	}
}

// resolveCell performs the full procedure for one cell.  Any error
// aborts rewriting of this cell only, leaving the unresolved cell in place
// for diagnostics - it never partially rewrites a cell.
func (r *Resolver) resolveCell(ctx context.Context, m *ir.Module, ref ir.CellRef) {
	cell, ok := ir.IsUnresolvedInstance(m.Cell(ref))
	if !ok {
		return
	}

	req := r.buildRequest(m, cell)

	resp := r.drv.Route(ctx, "", req)

	switch resp.Status {
	case frontend.NotProvided:
		if r.errorOnUnknownModule {
			r.diags.Report(diag.Diagnostic{
				Kind:    diag.UnknownModule,
				Message: fmt.Sprintf("unresolved instance of %q has no provider", cell.ModuleName.Text),
				Module:  m.Name.Text,
			})
		}
	case frontend.InvalidParameter:
		msg := cell.ModuleName.Text
		if resp.Err != nil {
			msg = resp.Err.Error()
		}

		r.diags.Report(diag.Diagnostic{Kind: diag.InvalidParameter, Message: msg, Module: m.Name.Text})
	case frontend.ElaborationError:
		msg := cell.ModuleName.Text
		if resp.Err != nil {
			msg = resp.Err.Error()
		}

		r.diags.Report(diag.Diagnostic{Kind: diag.ElaborationError, Message: msg, Module: m.Name.Text})
	case frontend.Success:
		r.link(m, ref, cell, resp)
	}
}

// buildRequest implements step 1: for any parameter bound directly to
// a const cell, inline its value; otherwise mark "value unavailable".
func (r *Resolver) buildRequest(m *ir.Module, cell ir.UnresolvedInstanceCell) frontend.Request {
	params := make([]ir.Binding, len(cell.Params))

	for i, p := range cell.Params {
		b := ir.Binding{Name: p.Name, Position: p.Position}

		if p.Const.HasValue() {
			if c, ok := m.Cell(p.Const.Unwrap()).(ir.ConstCell); ok {
				b.Value = util.Some(c.Value)
			}
		} else {
			b.DynamicKind = p.DynamicKind
		}

		params[i] = b
	}

	ports := make([]frontend.PortBinding, len(cell.Ports))

	for i, p := range cell.Ports {
		ports[i] = frontend.PortBinding{Port: p.Port, Direction: p.Direction, Width: p.Width}
	}

	return frontend.Request{Mode: frontend.AnyModule, Name: cell.ModuleName, Params: params, Ports: ports}
}

// link performs steps 4-7: parameter linking, port linking, and the
// in-place rewrite.  On any link error the cell is left unresolved.
func (r *Resolver) link(m *ir.Module, ref ir.CellRef, cell ir.UnresolvedInstanceCell, resp frontend.Response) {
	target := r.design.Module(resp.Module)

	params, ok := r.linkParams(m, target, cell, resp)
	if !ok {
		return
	}

	ports, ok := r.linkPorts(m, target, cell)
	if !ok {
		return
	}

	m.SetCell(ref, ir.InstanceCell{Module: resp.Module, Params: params, Ports: ports})
}
