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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModuleCellRefStableAcrossRewrite(t *testing.T) {
	m := &Module{Name: NewName("top")}

	ref := m.AddCell(UnresolvedInstanceCell{ModuleName: NewName("adder")})
	assert.Equal(t, CellRef(0), ref)

	m.SetCell(ref, InstanceCell{Module: ModuleHandle(3)})

	inst, ok := m.Cell(ref).(InstanceCell)
	assert.True(t, ok)
	assert.Equal(t, ModuleHandle(3), inst.Module)
}

func TestModuleUnresolvedCells(t *testing.T) {
	m := &Module{Name: NewName("top")}

	m.AddCell(ConstCell{})
	unresolved := m.AddCell(UnresolvedInstanceCell{ModuleName: NewName("adder")})
	m.AddCell(ConstCell{})

	assert.Equal(t, []CellRef{unresolved}, m.UnresolvedCells())

	m.SetCell(unresolved, InstanceCell{})
	assert.Empty(t, m.UnresolvedCells())
}

func TestModuleProperParamAndPortLookup(t *testing.T) {
	m := &Module{
		Name:   NewName("adder"),
		Proper: []ParamDescriptor{{Name: NewName("width"), Kind: KindInt}},
		Ports:  []PortDescriptor{{Name: NewName("a"), Direction: Input, Width: 8}},
	}

	_, ok := m.ProperParam(NewName("width"))
	assert.True(t, ok)

	_, ok = m.ProperParam(NewName("missing"))
	assert.False(t, ok)

	p, ok := m.Port(NewCaseInsensitiveName("A"))
	assert.True(t, ok)
	assert.Equal(t, uint(8), p.Width)
}
