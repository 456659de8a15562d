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
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensynth/elabdrv/pkg/ir"
	"github.com/opensynth/elabdrv/pkg/util"
)

func TestEncodeDecodeParamBindingsRoundTrip(t *testing.T) {
	bindings := []ir.Binding{
		{Name: util.Some(ir.NewName("width")), Value: util.Some(ir.Value{Kind: ir.KindInt, Int: big.NewInt(64)})},
		{Position: util.Some(uint(1)), Value: util.Some(ir.Value{Kind: ir.KindString, Str: "hello"})},
		{Name: util.Some(ir.NewName("init")), DynamicKind: util.Some(ir.KindBitvecFixed)},
	}

	got := decodeParamBindings(encodeParamBindings(bindings))

	require.Len(t, got, 3)
	assert.Equal(t, "width", got[0].Name.Unwrap().Text)
	assert.Equal(t, big.NewInt(64), got[0].Value.Unwrap().Int)

	assert.Equal(t, uint(1), got[1].Position.Unwrap())
	assert.Equal(t, "hello", got[1].Value.Unwrap().Str)

	assert.True(t, got[2].IsDynamic())
	assert.Equal(t, ir.KindBitvecFixed, got[2].DynamicKind.Unwrap())
}

func TestEncodeDecodePortBindingsRoundTrip(t *testing.T) {
	bindings := []PortBinding{
		{
			Port:      util.Some(ir.PortRef{Name: util.Some(ir.NewName("a"))}),
			Direction: ir.Input,
			Width:     8,
		},
		{
			Port:      util.Some(ir.PortRef{Position: util.Some(uint(2))}),
			Direction: ir.Output,
			Width:     16,
		},
	}

	got := decodePortBindings(encodePortBindings(bindings))

	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Port.Unwrap().Name.Unwrap().Text)
	assert.Equal(t, ir.Input, got[0].Direction)
	assert.Equal(t, uint(8), got[0].Width)

	assert.Equal(t, uint(2), got[1].Port.Unwrap().Position.Unwrap())
	assert.Equal(t, ir.Output, got[1].Direction)
}

func TestEncodeDecodeResponseRoundTripsNormalizedParams(t *testing.T) {
	resp := Response{
		Status: Success,
		Module: ir.ModuleHandle(3),
		Normalized: []ir.NormalizedParam{
			{Name: ir.NewName("width"), Value: util.Some(ir.Value{Kind: ir.KindInt, Int: big.NewInt(128)})},
			{Name: ir.NewName("init"), Value: util.None[ir.Value]()},
		},
	}

	got := decodeResponse(encodeResponse(resp))

	assert.Equal(t, Success, got.Status)
	assert.Equal(t, ir.ModuleHandle(3), got.Module)
	require.Len(t, got.Normalized, 2)

	assert.Equal(t, "width", got.Normalized[0].Name.Text)
	require.True(t, got.Normalized[0].Value.HasValue())
	assert.Equal(t, big.NewInt(128), got.Normalized[0].Value.Unwrap().Int)

	assert.Equal(t, "init", got.Normalized[1].Name.Text)
	assert.False(t, got.Normalized[1].Value.HasValue(), "a dynamic normalized param must stay unset across the wire")
}

func TestEncodeDecodeResponsePreservesErrMessage(t *testing.T) {
	resp := Response{Status: ElaborationError, Err: assert.AnError}

	got := decodeResponse(encodeResponse(resp))

	require.Error(t, got.Err)
	assert.Equal(t, assert.AnError.Error(), got.Err.Error())
}

func TestEncodeDecodeBitsRoundTrip(t *testing.T) {
	v := ir.AllX(4)
	zero := byte(0)
	one := byte(1)
	v.Bits[1] = &zero
	v.Bits[2] = &one

	decoded := decodeBits(encodeBits(v.Bits))

	require.Len(t, decoded, 4)
	assert.Nil(t, decoded[0])
	require.NotNil(t, decoded[1])
	assert.Equal(t, byte(0), *decoded[1])
	require.NotNil(t, decoded[2])
	assert.Equal(t, byte(1), *decoded[2])
	assert.Nil(t, decoded[3])
}
