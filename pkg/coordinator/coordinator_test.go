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
package coordinator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensynth/elabdrv/pkg/diag"
	"github.com/opensynth/elabdrv/pkg/frontend"
	"github.com/opensynth/elabdrv/pkg/ir"
	"github.com/opensynth/elabdrv/pkg/passthrough"
)

// fakeFrontend is a built-in test double whose three elaboration hooks are
// supplied by the test; the zero value of each hook behaves like a
// frontend that simply doesn't have what was asked for.
type fakeFrontend struct {
	frontend.Base

	names              []ir.Name
	available          bool
	elaborateTop       func(context.Context, frontend.Driver) ([]ir.ModuleHandle, error)
	elaborateSpecified func(context.Context, frontend.Driver, frontend.Request) frontend.Response
}

func (f *fakeFrontend) ListExported(context.Context, frontend.Driver) ([]ir.Name, bool) {
	return f.names, f.available
}

func (f *fakeFrontend) ElaborateTop(ctx context.Context, drv frontend.Driver) ([]ir.ModuleHandle, error) {
	if f.elaborateTop == nil {
		return nil, nil
	}

	return f.elaborateTop(ctx, drv)
}

func (f *fakeFrontend) ElaborateSpecified(ctx context.Context, drv frontend.Driver, req frontend.Request) frontend.Response {
	if f.elaborateSpecified == nil {
		return frontend.Response{Status: frontend.NotProvided}
	}

	return f.elaborateSpecified(ctx, drv, req)
}

func TestCoordinatorModuleBasedSelection(t *testing.T) {
	fe1 := &fakeFrontend{
		Base: frontend.Base{Name: "fe1"},
		elaborateSpecified: func(_ context.Context, drv frontend.Driver, req frontend.Request) frontend.Response {
			if !req.Name.Matches(ir.NewName("top")) {
				return frontend.Response{Status: frontend.NotProvided}
			}

			h := drv.Design().Insert(ir.Module{Name: req.Name, Top: true})

			return frontend.Response{Status: frontend.Success, Module: h}
		},
	}

	opts := Options{Selection: ModuleBased, TopModule: ir.NewName("top")}
	coord := New(opts, fe1)

	design, err := coord.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, design.Len())
	assert.True(t, design.Module(ir.ModuleHandle(0)).Top)
}

func TestCoordinatorModuleBasedSelectionUnknownModule(t *testing.T) {
	fe1 := &fakeFrontend{Base: frontend.Base{Name: "fe1"}}

	opts := Options{Selection: ModuleBased, TopModule: ir.NewName("missing"), ErrorOnUnknownModule: true}
	coord := New(opts, fe1)

	_, err := coord.Run(context.Background())
	require.Error(t, err)
	require.Len(t, coord.Diagnostics(), 1)
	assert.Equal(t, diag.UnknownModule, coord.Diagnostics()[0].Kind)
}

func TestCoordinatorFrontendBasedSelection(t *testing.T) {
	fe1 := &fakeFrontend{
		Base: frontend.Base{Name: "fe1"},
		elaborateTop: func(_ context.Context, drv frontend.Driver) ([]ir.ModuleHandle, error) {
			h1 := drv.Design().Insert(ir.Module{Name: ir.NewName("top1"), Top: true})
			h2 := drv.Design().Insert(ir.Module{Name: ir.NewName("top2"), Top: true})

			return []ir.ModuleHandle{h1, h2}, nil
		},
	}

	opts := Options{Selection: FrontendBased, TopFrontend: "fe1"}
	coord := New(opts, fe1)

	design, err := coord.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, design.Len())
}

func TestCoordinatorAutomaticSelectionOnlyCallsAdvertisers(t *testing.T) {
	var called1, called2 bool

	fe1 := &fakeFrontend{
		Base: frontend.Base{Name: "fe1", Top: true},
		elaborateTop: func(_ context.Context, drv frontend.Driver) ([]ir.ModuleHandle, error) {
			called1 = true

			return []ir.ModuleHandle{drv.Design().Insert(ir.Module{Name: ir.NewName("top1"), Top: true})}, nil
		},
	}
	fe2 := &fakeFrontend{
		Base: frontend.Base{Name: "fe2", Top: false},
		elaborateTop: func(context.Context, frontend.Driver) ([]ir.ModuleHandle, error) {
			called2 = true
			return nil, nil
		},
	}

	coord := New(Options{Selection: Automatic}, fe1, fe2)
	design, err := coord.Run(context.Background())

	require.NoError(t, err)
	assert.True(t, called1)
	assert.False(t, called2, "a frontend that doesn't advertise top must never be asked for one")
	assert.Equal(t, 1, design.Len())
}

func TestCoordinatorResolvesUnresolvedCellAcrossFrontends(t *testing.T) {
	fe1 := &fakeFrontend{
		Base: frontend.Base{Name: "fe1", Top: true},
		elaborateTop: func(_ context.Context, drv frontend.Driver) ([]ir.ModuleHandle, error) {
			top := &ir.Module{Name: ir.NewName("top"), Top: true}
			top.AddCell(ir.UnresolvedInstanceCell{ModuleName: ir.NewName("leaf")})
			h := drv.Design().Insert(*top)
			drv.MarkForUnresolvedProcessing(h)

			return []ir.ModuleHandle{h}, nil
		},
	}
	fe2 := &fakeFrontend{
		Base:      frontend.Base{Name: "fe2"},
		available: true,
		names:     []ir.Name{ir.NewName("leaf")},
		elaborateSpecified: func(_ context.Context, drv frontend.Driver, req frontend.Request) frontend.Response {
			if !req.Name.Matches(ir.NewName("leaf")) {
				return frontend.Response{Status: frontend.NotProvided}
			}

			h := drv.Design().Insert(ir.Module{Name: req.Name})

			return frontend.Response{Status: frontend.Success, Module: h}
		},
	}

	coord := New(Options{Selection: Automatic}, fe1, fe2)
	design, err := coord.Run(context.Background())

	require.NoError(t, err)
	require.Equal(t, 2, design.Len())

	top := design.Module(ir.ModuleHandle(0))
	_, stillUnresolved := ir.IsUnresolvedInstance(top.Cell(0))
	assert.False(t, stillUnresolved)

	inst, ok := top.Cell(0).(ir.InstanceCell)
	require.True(t, ok)
	assert.Equal(t, "leaf", design.Module(inst.Module).Name.Text)
}

func TestCoordinatorDuplicateProviderDiagnostic(t *testing.T) {
	fe1 := &fakeFrontend{
		Base: frontend.Base{Name: "fe1", Top: true},
		elaborateTop: func(_ context.Context, drv frontend.Driver) ([]ir.ModuleHandle, error) {
			top := &ir.Module{Name: ir.NewName("top"), Top: true}
			top.AddCell(ir.UnresolvedInstanceCell{ModuleName: ir.NewName("dup")})
			h := drv.Design().Insert(*top)
			drv.MarkForUnresolvedProcessing(h)

			return []ir.ModuleHandle{h}, nil
		},
	}
	provide := func(name string) *fakeFrontend {
		return &fakeFrontend{
			Base:      frontend.Base{Name: name},
			available: true,
			names:     []ir.Name{ir.NewName("dup")},
			elaborateSpecified: func(_ context.Context, drv frontend.Driver, req frontend.Request) frontend.Response {
				h := drv.Design().Insert(ir.Module{Name: req.Name})
				return frontend.Response{Status: frontend.Success, Module: h}
			},
		}
	}

	coord := New(Options{Selection: Automatic}, fe1, provide("fe2"), provide("fe3"))
	_, err := coord.Run(context.Background())

	require.Error(t, err)

	var found bool

	for _, d := range coord.Diagnostics() {
		if d.Kind == diag.DuplicateProvider {
			found = true
		}
	}

	assert.True(t, found, "two frontends answering round one for the same name must be reported as a duplicate provider")
}

func TestCoordinatorNameAmbiguityDiagnostic(t *testing.T) {
	fe1 := &fakeFrontend{
		Base: frontend.Base{Name: "fe1", Top: true},
		elaborateTop: func(_ context.Context, drv frontend.Driver) ([]ir.ModuleHandle, error) {
			top := &ir.Module{Name: ir.NewName("top"), Top: true}
			top.AddCell(ir.UnresolvedInstanceCell{ModuleName: ir.NewCaseInsensitiveName("dup")})
			h := drv.Design().Insert(*top)
			drv.MarkForUnresolvedProcessing(h)

			return []ir.ModuleHandle{h}, nil
		},
	}
	fe2 := &fakeFrontend{
		Base:      frontend.Base{Name: "fe2"},
		available: true,
		names:     []ir.Name{ir.NewName("Dup"), ir.NewName("dup")},
	}

	coord := New(Options{Selection: Automatic}, fe1, fe2)
	_, err := coord.Run(context.Background())

	require.Error(t, err)
	require.NotEmpty(t, coord.Diagnostics())
	assert.Equal(t, diag.NameAmbiguity, coord.Diagnostics()[0].Kind)
}

func TestCoordinatorPassthroughFrontendRoutedLast(t *testing.T) {
	imported := ir.NewDesign()
	imported.Insert(ir.Module{Name: ir.NewName("shared")})

	fe1 := &fakeFrontend{
		Base: frontend.Base{Name: "fe1", Top: true},
		elaborateTop: func(_ context.Context, drv frontend.Driver) ([]ir.ModuleHandle, error) {
			top := &ir.Module{Name: ir.NewName("top"), Top: true}
			top.AddCell(ir.UnresolvedInstanceCell{ModuleName: ir.NewName("shared")})
			h := drv.Design().Insert(*top)
			drv.MarkForUnresolvedProcessing(h)

			return []ir.ModuleHandle{h}, nil
		},
	}
	pt := passthrough.New("imported", imported)

	coord := New(Options{Selection: Automatic}, fe1, pt)
	design, err := coord.Run(context.Background())

	require.NoError(t, err)
	require.Equal(t, 2, design.Len())

	top := design.Module(ir.ModuleHandle(0))
	inst, ok := top.Cell(0).(ir.InstanceCell)
	require.True(t, ok)
	assert.Equal(t, "shared", design.Module(inst.Module).Name.Text)
	assert.NotEqual(t, ir.ModuleHandle(0), inst.Module, "the passthrough copy gets a fresh handle in the driver's own design")
}
