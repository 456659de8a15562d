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

import "github.com/opensynth/elabdrv/pkg/ir"

// TopSelection is the top-module selection mode.
type TopSelection uint8

const (
	// ModuleBased asks exactly one frontend to elaborate a named top
	// module in top-module mode.
	ModuleBased TopSelection = iota
	// FrontendBased sends "elaborate top modules" to one designated
	// frontend.
	FrontendBased
	// Automatic sends "elaborate top modules" to every frontend that
	// advertises top capability.
	Automatic
)

// Options configures a Coordinator run.
type Options struct {
	// Target is opaque target/device-family information forwarded to every
	// frontend's Initialize call.
	Target string
	// ErrorOnUnknownModule is the only currently defined elaboration
	// option.
	ErrorOnUnknownModule bool
	// Selection picks the top-module selection mode.
	Selection TopSelection
	// TopModule names the module to elaborate under ModuleBased selection.
	TopModule ir.Name
	// TopFrontend names the frontend to ask under FrontendBased selection.
	TopFrontend string
}
