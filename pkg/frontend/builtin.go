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

import "context"

// Base is embedded by built-in Frontend implementations to pick up the
// boilerplate parts of the capability set (ID, AdvertisesTop, a no-op
// Initialize) for free, favouring composition of a minimal struct over
// boilerplate method bodies repeated in every implementation.
//
// A built-in frontend is called directly, in-process, and is handed a
// Driver for the duration of each call; unlike a Remote frontend it never
// serializes anything, it mutates drv.Design() itself.
type Base struct {
	// Name is returned by ID.
	Name string
	// Top, if true, makes AdvertisesTop return true.
	Top bool
}

// ID returns the frontend's identifier.
func (b Base) ID() string {
	return b.Name
}

// AdvertisesTop reports whether this frontend participates in automatic
// top-module selection.
func (b Base) AdvertisesTop() bool {
	return b.Top
}

// Initialize is a no-op default; built-in frontends needing target
// information or the elaboration options should not embed Base for this
// method and should implement their own instead.
func (b Base) Initialize(_ context.Context, _ Driver, _ InitOptions) error {
	return nil
}
