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
	"github.com/opensynth/elabdrv/pkg/ir"
	"github.com/opensynth/elabdrv/pkg/util"
)

// Mode is the elaborate-specified mode.
type Mode uint8

const (
	// TopModule requests elaboration of a named top module; the frontend
	// must set the top flag on the resulting module (module-based
	// selection).
	TopModule Mode = iota
	// ProperModuleOnly is round one of the Router's search policy: only a
	// non-blackbox ("proper") module may satisfy it.
	ProperModuleOnly
	// AnyModule is round two of the Router's search policy: any module,
	// including a blackbox, may satisfy it.
	AnyModule
)

// String renders a Mode for diagnostics.
func (m Mode) String() string {
	switch m {
	case TopModule:
		return "top-module"
	case ProperModuleOnly:
		return "proper-module-only"
	case AnyModule:
		return "any-module"
	default:
		return "unknown-mode"
	}
}

// PortBinding is the connected-port half of an elaboration request
// record: a name-or-position, a direction hint, and a width.  It
// deliberately carries no net reference (ir.CellRef) - such a reference is
// only meaningful within the requesting module, never across a frontend
// boundary.
type PortBinding struct {
	Port      util.Option[ir.PortRef]
	Direction ir.Direction
	Width     uint
}

// Request is an elaboration request record.  Source identifies the
// frontend (or the empty string for the Coordinator) that originated it;
// Router re-entry means a Frontend implementation may itself be the
// recipient of a Request it, in turn, generated.
type Request struct {
	Source string
	Mode   Mode
	Name   ir.Name
	Params []ir.Binding
	Ports  []PortBinding
}

// Status is the coarse-grained outcome of an elaboration response.
type Status uint8

const (
	// NotProvided: this frontend does not provide the requested module.
	NotProvided Status = iota
	// InvalidParameter: the request's parameter bindings could not be
	// satisfied by any candidate module.
	InvalidParameter
	// ElaborationError: an opaque error occurred while elaborating.
	ElaborationError
	// Success: the module was elaborated (or already present) and is
	// ready to be linked.
	Success
)

// String renders a Status for diagnostics.
func (s Status) String() string {
	switch s {
	case NotProvided:
		return "not provided"
	case InvalidParameter:
		return "invalid parameter"
	case ElaborationError:
		return "elaboration error"
	case Success:
		return "success"
	default:
		return "unknown status"
	}
}

// Response is an elaboration response.
type Response struct {
	Status Status
	// Module and Normalized are only meaningful when Status == Success.
	Module     ir.ModuleHandle
	Normalized []ir.NormalizedParam
	// Err carries the opaque frontend-sourced error for ElaborationError,
	// or a diagnostic message for InvalidParameter.
	Err error
}
