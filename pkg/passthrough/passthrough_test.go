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
package passthrough

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensynth/elabdrv/pkg/frontend"
	"github.com/opensynth/elabdrv/pkg/ir"
	"github.com/opensynth/elabdrv/pkg/util"
)

// fakeDriver gives a pass-through Frontend somewhere to insert copied
// modules and collect unresolved-processing marks, without a real
// Coordinator or Router in the loop. respond, when set, lets a test stand
// in for the rest of the registered frontend set on Route calls; left nil,
// Route behaves as if nothing else answers.
type fakeDriver struct {
	design  *ir.Design
	queue   []ir.ModuleHandle
	respond func(frontend.Request) frontend.Response
}

func (d *fakeDriver) Design() *ir.Design { return d.design }

func (d *fakeDriver) Route(_ context.Context, _ string, req frontend.Request) frontend.Response {
	if d.respond != nil {
		return d.respond(req)
	}

	return frontend.Response{Status: frontend.NotProvided}
}

func (d *fakeDriver) MarkForUnresolvedProcessing(h ir.ModuleHandle) {
	d.queue = append(d.queue, h)
}

func TestIsTargetProvided(t *testing.T) {
	f := New("imported", ir.NewDesign())
	assert.True(t, f.IsTargetProvided())
}

func TestListExported(t *testing.T) {
	imported := ir.NewDesign()
	imported.Insert(ir.Module{Name: ir.NewName("leaf")})
	imported.Insert(ir.Module{Name: ir.NewName("top")})

	f := New("imported", imported)
	names, available := f.ListExported(context.Background(), nil)

	require.True(t, available)
	require.Len(t, names, 2)
	assert.Equal(t, "leaf", names[0].Text)
	assert.Equal(t, "top", names[1].Text)
}

func TestElaborateTopCopiesTransitively(t *testing.T) {
	imported := ir.NewDesign()

	leafH := imported.Insert(ir.Module{
		Name: ir.NewName("leaf"),
		Kind: ir.Blackbox,
	})

	top := &ir.Module{Name: ir.NewName("top"), Top: true}
	top.AddCell(ir.InstanceCell{Module: leafH})
	topH := imported.Insert(*top)
	top = imported.Module(topH)
	_ = top

	f := New("imported", imported)
	drv := &fakeDriver{design: ir.NewDesign()}

	out, err := f.ElaborateTop(context.Background(), drv)
	require.NoError(t, err)
	require.Len(t, out, 1)

	copiedTop := drv.Design().Module(out[0])
	assert.True(t, copiedTop.Top)
	assert.Equal(t, "top", copiedTop.Name.Text)
	require.Len(t, copiedTop.Cells, 1)

	inst, ok := copiedTop.Cell(0).(ir.InstanceCell)
	require.True(t, ok)

	copiedLeaf := drv.Design().Module(inst.Module)
	assert.Equal(t, "leaf", copiedLeaf.Name.Text)
	assert.NotEqual(t, leafH, inst.Module, "the copy must get a fresh handle in the new design")
}

func TestElaborateTopQueuesLeftoverUnresolvedCells(t *testing.T) {
	imported := ir.NewDesign()

	top := &ir.Module{Name: ir.NewName("top"), Top: true}
	top.AddCell(ir.UnresolvedInstanceCell{ModuleName: ir.NewName("missing")})
	imported.Insert(*top)

	f := New("imported", imported)
	drv := &fakeDriver{design: ir.NewDesign()}

	out, err := f.ElaborateTop(context.Background(), drv)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Len(t, drv.queue, 1)
	assert.Equal(t, out[0], drv.queue[0])
}

func TestElaborateSpecifiedUniqueMatch(t *testing.T) {
	imported := ir.NewDesign()
	imported.Insert(ir.Module{
		Name: ir.NewName("adder"),
		Kind: ir.User,
		Proper: []ir.ParamDescriptor{
			{Name: ir.NewName("width"), Kind: ir.KindInt, Default: util.Some(ir.Value{Kind: ir.KindInt, Int: big.NewInt(8)})},
		},
	})

	f := New("imported", imported)
	drv := &fakeDriver{design: ir.NewDesign()}

	req := frontend.Request{
		Name: ir.NewName("adder"),
		Params: []ir.Binding{
			{Name: util.Some(ir.NewName("width")), Value: util.Some(ir.Value{Kind: ir.KindInt, Int: big.NewInt(16)})},
		},
	}

	resp := f.ElaborateSpecified(context.Background(), drv, req)
	require.Equal(t, frontend.Success, resp.Status)
	require.Len(t, resp.Normalized, 1)
	assert.Equal(t, big.NewInt(16), resp.Normalized[0].Value.Unwrap().Int)

	copied := drv.Design().Module(resp.Module)
	assert.Equal(t, "adder", copied.Name.Text)
}

func TestElaborateSpecifiedNotProvided(t *testing.T) {
	imported := ir.NewDesign()
	imported.Insert(ir.Module{Name: ir.NewName("adder")})

	f := New("imported", imported)
	drv := &fakeDriver{design: ir.NewDesign()}

	resp := f.ElaborateSpecified(context.Background(), drv, frontend.Request{Name: ir.NewName("missing")})
	assert.Equal(t, frontend.NotProvided, resp.Status)
}

func TestElaborateSpecifiedProperModuleOnlySkipsBlackbox(t *testing.T) {
	imported := ir.NewDesign()
	imported.Insert(ir.Module{Name: ir.NewName("adder"), Kind: ir.Blackbox})

	f := New("imported", imported)
	drv := &fakeDriver{design: ir.NewDesign()}

	req := frontend.Request{Name: ir.NewName("adder"), Mode: frontend.ProperModuleOnly}
	resp := f.ElaborateSpecified(context.Background(), drv, req)
	assert.Equal(t, frontend.NotProvided, resp.Status)
}

func TestElaborateSpecifiedBakedMismatchExcludesCandidate(t *testing.T) {
	imported := ir.NewDesign()
	imported.Insert(ir.Module{
		Name:  ir.NewName("adder"),
		Baked: []ir.BakedParam{{Name: ir.NewName("width"), Value: ir.Value{Kind: ir.KindInt, Int: big.NewInt(8)}}},
	})

	f := New("imported", imported)
	drv := &fakeDriver{design: ir.NewDesign()}

	req := frontend.Request{
		Name: ir.NewName("adder"),
		Params: []ir.Binding{
			{Name: util.Some(ir.NewName("width")), Value: util.Some(ir.Value{Kind: ir.KindInt, Int: big.NewInt(16)})},
		},
	}

	resp := f.ElaborateSpecified(context.Background(), drv, req)
	assert.Equal(t, frontend.NotProvided, resp.Status)
}

func TestElaborateSpecifiedAmbiguousMatch(t *testing.T) {
	imported := ir.NewDesign()
	imported.Insert(ir.Module{
		Name: ir.NewName("adder"),
		Proper: []ir.ParamDescriptor{
			{Name: ir.NewName("width"), Kind: ir.KindInt},
		},
	})
	imported.Insert(ir.Module{
		Name: ir.NewName("adder"),
		Proper: []ir.ParamDescriptor{
			{Name: ir.NewName("width"), Kind: ir.KindInt},
		},
	})

	f := New("imported", imported)
	drv := &fakeDriver{design: ir.NewDesign()}

	resp := f.ElaborateSpecified(context.Background(), drv, frontend.Request{Name: ir.NewName("adder")})
	require.Equal(t, frontend.InvalidParameter, resp.Status)
	assert.Error(t, resp.Err)
}

func TestElaborateSpecifiedDynamicKindMismatchExcludesCandidate(t *testing.T) {
	imported := ir.NewDesign()
	imported.Insert(ir.Module{
		Name: ir.NewName("adder"),
		Proper: []ir.ParamDescriptor{
			{Name: ir.NewName("width"), Kind: ir.KindInt},
		},
	})

	f := New("imported", imported)
	drv := &fakeDriver{design: ir.NewDesign()}

	req := frontend.Request{
		Name: ir.NewName("adder"),
		Params: []ir.Binding{
			{Name: util.Some(ir.NewName("width")), DynamicKind: util.Some(ir.KindString)},
		},
	}

	resp := f.ElaborateSpecified(context.Background(), drv, req)
	assert.Equal(t, frontend.NotProvided, resp.Status)
}

func TestCopyModuleDeduplicatesSharedSubmodule(t *testing.T) {
	imported := ir.NewDesign()

	leafH := imported.Insert(ir.Module{Name: ir.NewName("leaf")})

	mid := &ir.Module{Name: ir.NewName("mid")}
	mid.AddCell(ir.InstanceCell{Module: leafH})
	midH := imported.Insert(*mid)

	top := &ir.Module{Name: ir.NewName("top"), Top: true}
	top.AddCell(ir.InstanceCell{Module: midH})
	top.AddCell(ir.InstanceCell{Module: leafH})
	imported.Insert(*top)

	f := New("imported", imported)
	drv := &fakeDriver{design: ir.NewDesign()}

	out, err := f.ElaborateTop(context.Background(), drv)
	require.NoError(t, err)
	require.Len(t, out, 1)

	copiedTop := drv.Design().Module(out[0])
	midInst := copiedTop.Cell(0).(ir.InstanceCell)
	leafInstViaTop := copiedTop.Cell(1).(ir.InstanceCell)

	copiedMid := drv.Design().Module(midInst.Module)
	leafInstViaMid := copiedMid.Cell(0).(ir.InstanceCell)

	assert.Equal(t, leafInstViaMid.Module, leafInstViaTop.Module, "leaf must be copied exactly once and shared by handle")
}

func TestElaborateSpecifiedUniqueMatchMissingRequiredParamIsInvalid(t *testing.T) {
	imported := ir.NewDesign()
	imported.Insert(ir.Module{
		Name: ir.NewName("adder"),
		Kind: ir.User,
		Proper: []ir.ParamDescriptor{
			{Name: ir.NewName("width"), Kind: ir.KindInt},
		},
	})

	f := New("imported", imported)
	drv := &fakeDriver{design: ir.NewDesign()}

	resp := f.ElaborateSpecified(context.Background(), drv, frontend.Request{Name: ir.NewName("adder")})
	require.Equal(t, frontend.InvalidParameter, resp.Status)
	assert.Error(t, resp.Err)
}

func TestCopyModuleReroutesBlackboxInstanceToReplacement(t *testing.T) {
	imported := ir.NewDesign()

	gateH := imported.Insert(ir.Module{Name: ir.NewName("and2"), Kind: ir.Blackbox})

	top := &ir.Module{Name: ir.NewName("top"), Top: true}
	top.AddCell(ir.InstanceCell{Module: gateH})
	imported.Insert(*top)

	f := New("imported", imported)

	replacement := ir.NewDesign().Insert(ir.Module{Name: ir.NewName("and2"), Kind: ir.User})

	drv := &fakeDriver{
		design: ir.NewDesign(),
		respond: func(req frontend.Request) frontend.Response {
			assert.Equal(t, "and2", req.Name.Text)
			assert.Equal(t, frontend.AnyModule, req.Mode)

			return frontend.Response{Status: frontend.Success, Module: replacement}
		},
	}

	out, err := f.ElaborateTop(context.Background(), drv)
	require.NoError(t, err)
	require.Len(t, out, 1)

	copiedTop := drv.Design().Module(out[0])
	require.Len(t, copiedTop.Cells, 1)

	inst, ok := copiedTop.Cell(0).(ir.InstanceCell)
	require.True(t, ok)
	assert.Equal(t, replacement, inst.Module, "the blackbox instance must be rerouted to the replacement module, not copied")
}

func TestCopyModuleFallsBackToBlackboxCopyWhenNothingReroutes(t *testing.T) {
	imported := ir.NewDesign()

	gateH := imported.Insert(ir.Module{Name: ir.NewName("and2"), Kind: ir.Blackbox})

	top := &ir.Module{Name: ir.NewName("top"), Top: true}
	top.AddCell(ir.InstanceCell{Module: gateH})
	imported.Insert(*top)

	f := New("imported", imported)
	drv := &fakeDriver{design: ir.NewDesign()}

	out, err := f.ElaborateTop(context.Background(), drv)
	require.NoError(t, err)
	require.Len(t, out, 1)

	copiedTop := drv.Design().Module(out[0])
	inst, ok := copiedTop.Cell(0).(ir.InstanceCell)
	require.True(t, ok)

	copiedGate := drv.Design().Module(inst.Module)
	assert.Equal(t, "and2", copiedGate.Name.Text)
	assert.Equal(t, ir.Blackbox, copiedGate.Kind)
}
