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

import "sync"

// Design is the single shared mutable resource of an elaboration session:
// an append-only arena of modules, addressed by ModuleHandle.  Modules
// are stored behind pointers so that a ModuleHandle obtained before a later
// Insert remains valid and still points at the same Module value - the
// arena itself may grow, but the pointer it hands out never moves.
//
// Design does not serialise concurrent mutation of *different* modules;
// callers are responsible for ensuring no two tasks construct the same
// module simultaneously.  Insert itself (allocating a new handle) is
// synchronised, since built-in frontends and the insert-IR path for remote
// frontends may race to allocate handles.
type Design struct {
	mu      sync.Mutex
	modules []*Module
}

// NewDesign constructs an empty design.
func NewDesign() *Design {
	return &Design{}
}

// Insert allocates a new module handle for m and stores it in the arena.
func (d *Design) Insert(m Module) ModuleHandle {
	d.mu.Lock()
	defer d.mu.Unlock()

	h := ModuleHandle(len(d.modules))
	d.modules = append(d.modules, &m)

	return h
}

// Module returns the module named by h.  h must have been returned by a
// prior Insert on this Design.
func (d *Design) Module(h ModuleHandle) *Module {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.modules[h]
}

// Len returns the number of modules currently in the design.
func (d *Design) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.modules)
}

// Handles returns every module handle currently allocated, in insertion
// order.
func (d *Design) Handles() []ModuleHandle {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]ModuleHandle, len(d.modules))
	for i := range d.modules {
		out[i] = ModuleHandle(i)
	}

	return out
}

// TopHandles returns the handles of every module whose Top flag is set.
func (d *Design) TopHandles() []ModuleHandle {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []ModuleHandle

	for i, m := range d.modules {
		if m.Top {
			out = append(out, ModuleHandle(i))
		}
	}

	return out
}
