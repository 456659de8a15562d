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

import "github.com/opensynth/elabdrv/pkg/util"

// Direction is the directionality of a port or a connected-port binding.
type Direction uint8

const (
	// Input is a port which receives a value.
	Input Direction = iota
	// Output is a port which produces a value.
	Output
	// Bus is a bidirectional, possibly multiply-driven, net.
	Bus
)

// String renders a Direction for diagnostics.
func (d Direction) String() string {
	switch d {
	case Input:
		return "input"
	case Output:
		return "output"
	case Bus:
		return "bus"
	default:
		return "unknown"
	}
}

// PortDescriptor describes one port of a module.  Once a module has been
// inserted into a Design, its port list - including every width and
// direction here - is immutable: this is what lets concurrently re-entrant
// frontends observe a stable interface for a module while other frontends
// are still building it.
type PortDescriptor struct {
	Name      Name
	Direction Direction
	Width     uint
	// Default is only meaningful for Input ports: the value an unconnected
	// input receives.  If empty, an unconnected input receives an all-x
	// value of Width bits instead.
	Default util.Option[Value]
}
