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

// Package frontend defines the uniform capability set a frontend presents
// to the driver, and the two implementations of it: built-in
// (direct in-process calls with direct IR access) and remote (RPC,
// serialized IR fragments).  "Built-in vs remote" is deliberately not a
// runtime branch at every call site - it is exactly one interface with two
// concrete types, and request dispatch is the single switch inside the
// Router and Coordinator that call through it.
package frontend

import (
	"context"

	"github.com/opensynth/elabdrv/pkg/ir"
)

// InitOptions carries the information the Coordinator's "initialize
// frontend" message sends to every registered frontend.
type InitOptions struct {
	// Target is free-form target/device-family information; the core does
	// not interpret it.
	Target string
	// ErrorOnUnknownModule is the only currently defined elaboration
	// option.
	ErrorOnUnknownModule bool
}

// Driver is the narrow surface a frontend is given during a driver→frontend
// call to mutate the shared IR and request recursive elaboration.  Per the
// "cyclic ownership" design note, a frontend must borrow this only for the
// duration of the call that handed it out; it must not retain it across a
// suspension point.
type Driver interface {
	// Design returns the shared design a built-in frontend may mutate
	// directly while it holds logical ownership of the module it is
	// currently constructing.
	Design() *ir.Design
	// Route issues a recursive "elaborate specified module" request on
	// behalf of the given source frontend, running it through the Router.
	// This may re-enter any registered frontend, including the caller.
	Route(ctx context.Context, source string, req Request) Response
	// MarkForUnresolvedProcessing enqueues h for a later Resolver sweep.
	MarkForUnresolvedProcessing(h ir.ModuleHandle)
}

// Frontend is the capability set every registered frontend presents,
// regardless of transport.
type Frontend interface {
	// ID identifies this frontend for diagnostics and registration-order
	// tie-breaking.
	ID() string
	// AdvertisesTop reports whether this frontend should be asked for top
	// modules under automatic top-module selection.
	AdvertisesTop() bool
	// Initialize delivers target information and elaboration options.
	Initialize(ctx context.Context, drv Driver, opts InitOptions) error
	// ListExported returns the frontend's exported module name list, or
	// reports that the list is unavailable (in which case the frontend is
	// always included in the Router's candidate set).
	ListExported(ctx context.Context, drv Driver) (names []ir.Name, available bool)
	// ElaborateTop handles the "elaborate top modules" message, used by the
	// frontend-based and automatic selection modes.
	ElaborateTop(ctx context.Context, drv Driver) ([]ir.ModuleHandle, error)
	// ElaborateSpecified handles "elaborate specified module".
	ElaborateSpecified(ctx context.Context, drv Driver, req Request) Response
}

// TargetProvided marks a Frontend as a target-provided frontend: such
// frontends are always appended at the end of the Router's
// candidate set and are routed strictly last, regardless of registration
// order.
type TargetProvided interface {
	Frontend
	IsTargetProvided() bool
}
