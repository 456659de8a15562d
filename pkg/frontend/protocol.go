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

// The driver<->frontend wire protocol, as JSON-RPC 2.0 methods carried
// over go.lsp.dev/jsonrpc2.  Driver-to-frontend methods are invoked by the
// driver; frontend-to-driver methods are invoked by a remote frontend on
// the very same connection, while a driver-to-frontend call may still be
// outstanding - exactly the re-entrant calling pattern a bidirectional
// jsonrpc2.Conn gives for free.
const (
	// Driver to frontend.
	methodInitialize         = "initialize"
	methodElaborateTop       = "elaborateTop"
	methodListExported       = "listExported"
	methodElaborateSpecified = "elaborateSpecified"

	// Frontend to driver.  insertIR is remote-only; markForUnresolved is
	// builtin-only and never crosses the wire, so it has no method name here.
	methodInsertIR = "insertIR"
)

// wireName is the wire form of ir.Name.
type wireName struct {
	Text          string `json:"text"`
	CaseSensitive bool   `json:"caseSensitive"`
}

// wireInitializeParams is the payload of the "initialize" method.
type wireInitializeParams struct {
	Target               string `json:"target"`
	ErrorOnUnknownModule bool   `json:"errorOnUnknownModule"`
}

// wireListExportedResult is the result of "listExported".
type wireListExportedResult struct {
	Names     []wireName `json:"names"`
	Available bool       `json:"available"`
}

// wireElaborateTopResult is the result of "elaborateTop": the IDs of the
// resulting top modules.  The driver takes each ID as a driver module
// handle as-is, so the frontend reports the handles its earlier insertIR
// calls on the same connection were allocated.
type wireElaborateTopResult struct {
	FragmentModuleIDs []uint64 `json:"fragmentModuleIds"`
}

// wireParamBinding is the wire form of ir.Binding.
type wireParamBinding struct {
	Name        *wireName `json:"name,omitempty"`
	Position    *uint     `json:"position,omitempty"`
	Dynamic     bool      `json:"dynamic"`
	Kind        uint8     `json:"kind"`
	StringValue string    `json:"stringValue,omitempty"`
	IntValue    string    `json:"intValue,omitempty"` // decimal, arbitrary precision
	RealValue   float64   `json:"realValue,omitempty"`
	BitsValue   []int8    `json:"bitsValue,omitempty"` // -1 == x, 0, 1
}

// wirePortBinding is the wire form of PortBinding.
type wirePortBinding struct {
	Name      *wireName `json:"name,omitempty"`
	Position  *uint     `json:"position,omitempty"`
	Direction uint8     `json:"direction"`
	Width     uint      `json:"width"`
}

// wireElaborateSpecifiedParams is the payload of "elaborateSpecified" sent
// in either direction: driver to frontend (mode included) or
// frontend to driver (mode always implied any-module, since only the
// frontend's own recursive sub-elaboration requests cross back to the
// driver this way).
type wireElaborateSpecifiedParams struct {
	Mode   *uint8             `json:"mode,omitempty"`
	Name   wireName           `json:"name"`
	Params []wireParamBinding `json:"params"`
	Ports  []wirePortBinding  `json:"ports"`
}

// wireNormalizedParam is the wire form of ir.NormalizedParam. It mirrors
// wireParamBinding's structured value fields rather than a single rendered
// string, so a decimal-precision big.Int or an exact tristate bit pattern
// survives the round trip instead of going through a display format.
type wireNormalizedParam struct {
	Name        wireName `json:"name"`
	Dynamic     bool     `json:"dynamic"`
	Kind        uint8    `json:"kind,omitempty"`
	StringValue string   `json:"stringValue,omitempty"`
	IntValue    string   `json:"intValue,omitempty"`
	RealValue   float64  `json:"realValue,omitempty"`
	BitsValue   []int8   `json:"bitsValue,omitempty"`
}

// wireElaborateSpecifiedResult is the result of "elaborateSpecified".
type wireElaborateSpecifiedResult struct {
	Status     uint8                 `json:"status"`
	ModuleID   uint64                `json:"moduleId,omitempty"`
	Normalized []wireNormalizedParam `json:"normalized,omitempty"`
	ErrMessage string                `json:"errMessage,omitempty"`
}

// wireStandIn maps one fragment-local module ID, inside an insertIR
// payload, to an already-known driver handle: either a module the driver
// previously returned to this frontend, or one the frontend itself
// previously inserted.
type wireStandIn struct {
	FragmentModuleID uint64 `json:"fragmentModuleId"`
	DriverModuleID   uint64 `json:"driverModuleId"`
}

// wireInsertIRParams is the payload of "insertIR".
type wireInsertIRParams struct {
	Design   []byte        `json:"design"` // opaque serialized IR fragment
	StandIns []wireStandIn `json:"standIns"`
	AutoQueue bool         `json:"autoQueue"`
}

// wireInsertIRResult maps every non-stand-in fragment module ID in the
// submitted design to a newly allocated driver handle.
type wireInsertIRResult struct {
	Allocated []wireStandIn `json:"allocated"`
}
