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

// ModuleHandle is an opaque, stable identifier for a module within a
// Design's arena.  It is valid for the life of the elaboration session and
// is never reused, even if the module it names is later discarded (which
// never happens: modules persist until the session ends).  Internally it is
// just an arena index, which sidesteps aliasing concerns entirely: "the same
// module" always means "the same index".
type ModuleHandle uint

// InvalidModuleHandle is returned where no module handle is available, e.g.
// from a failed lookup.
const InvalidModuleHandle ModuleHandle = ^ModuleHandle(0)

// CellRef is an index of a cell within its owning module's cell list.
// Rewriting a cell in place - turning an UnresolvedInstanceCell into an
// InstanceCell - means mutating the cell at this index without changing
// the index itself, so that other cells referencing it by CellRef remain
// valid.
type CellRef uint

// InvalidCellRef is returned where no cell reference is available.
const InvalidCellRef CellRef = ^CellRef(0)
