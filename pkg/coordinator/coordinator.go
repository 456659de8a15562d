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

// Package coordinator implements the Elaboration Coordinator: the
// top-level state machine that initializes frontends, selects top modules,
// drives elaboration to quiescence, runs the Resolver, and assembles the
// session result.  Its error-accumulation discipline - run every step,
// collect diagnostics, never stop early - mirrors a ResolveCircuit that
// runs every resolution phase over a whole circuit and concatenates
// []SyntaxError rather than returning at the first one.
package coordinator

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/opensynth/elabdrv/pkg/diag"
	"github.com/opensynth/elabdrv/pkg/frontend"
	"github.com/opensynth/elabdrv/pkg/ir"
	"github.com/opensynth/elabdrv/pkg/resolver"
	"github.com/opensynth/elabdrv/pkg/router"
	"github.com/opensynth/elabdrv/pkg/util"
)

// Coordinator is the driver's top-level state machine.  It implements
// frontend.Driver itself: it *is* the thing every frontend borrows for the
// duration of a call.
type Coordinator struct {
	design    *ir.Design
	frontends []frontend.Frontend
	router    *router.Router
	diags     *diag.Accumulator
	opts      Options

	mu    sync.Mutex
	queue []ir.ModuleHandle
}

// New constructs a Coordinator over the given frontends, in registration
// order.
func New(opts Options, frontends ...frontend.Frontend) *Coordinator {
	c := &Coordinator{
		design:    ir.NewDesign(),
		frontends: frontends,
		diags:     &diag.Accumulator{},
		opts:      opts,
	}
	c.router = router.New(frontends, c, opts.ErrorOnUnknownModule, c.diags)

	return c
}

// Design implements frontend.Driver.
func (c *Coordinator) Design() *ir.Design {
	return c.design
}

// Route implements frontend.Driver by handing the request to the Router.
func (c *Coordinator) Route(ctx context.Context, source string, req frontend.Request) frontend.Response {
	return c.router.Route(ctx, source, req)
}

// MarkForUnresolvedProcessing implements frontend.Driver.
func (c *Coordinator) MarkForUnresolvedProcessing(h ir.ModuleHandle) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.queue = append(c.queue, h)
}

// Diagnostics returns every diagnostic accumulated so far.
func (c *Coordinator) Diagnostics() []diag.Diagnostic {
	return c.diags.Diagnostics()
}

// Run drives one full elaboration session to completion: initialize every
// frontend, select and elaborate top modules, sweep the Resolver, and
// return the assembled design.  A non-nil error is returned when a
// frontend fails to initialize (the accumulator may then be empty) or when
// the session's diagnostic accumulator is non-empty; Run still returns the
// partially-built design in those cases, since diagnostics are meant to be
// inspected against it.
func (c *Coordinator) Run(ctx context.Context) (*ir.Design, error) {
	stats := util.NewPerfStats()

	if err := c.initialize(ctx); err != nil {
		return c.design, err
	}

	c.selectTop(ctx)

	resolver.New(c.design, c, c.diags, c.opts.ErrorOnUnknownModule).Run(ctx, c.drainQueue())

	stats.Log("elaboration")

	if c.diags.Failed() {
		return c.design, c.diags
	}

	return c.design, nil
}

// initialize sends "initialize" to every frontend and snapshots every
// frontend's exported-module list for the Router.
func (c *Coordinator) initialize(ctx context.Context) error {
	opts := frontend.InitOptions{Target: c.opts.Target, ErrorOnUnknownModule: c.opts.ErrorOnUnknownModule}

	for _, f := range c.frontends {
		if err := f.Initialize(ctx, c, opts); err != nil {
			return fmt.Errorf("initializing frontend %s: %w", f.ID(), err)
		}
	}

	lists := make(map[string]router.ListSnapshot, len(c.frontends))

	for _, f := range c.frontends {
		names, available := f.ListExported(ctx, c)
		lists[f.ID()] = router.ListSnapshot{Names: names, Available: available}
	}

	c.router.SetLists(lists)

	return nil
}

// selectTop runs one of the three top-module selection modes.
func (c *Coordinator) selectTop(ctx context.Context) {
	switch c.opts.Selection {
	case ModuleBased:
		c.selectModuleBasedTop(ctx)
	case FrontendBased:
		c.selectFrontendBasedTop(ctx)
	case Automatic:
		c.selectAutomaticTop(ctx)
	}
}

func (c *Coordinator) selectModuleBasedTop(ctx context.Context) {
	for _, f := range c.frontends {
		req := frontend.Request{Mode: frontend.TopModule, Name: c.opts.TopModule}

		resp := f.ElaborateSpecified(ctx, c, req)
		if resp.Status == frontend.NotProvided {
			continue
		}

		c.reportNonSuccess(f.ID(), c.opts.TopModule.Text, resp)

		if resp.Status == frontend.Success {
			m := c.design.Module(resp.Module)
			if !m.Top {
				log.Warnf("frontend %s elaborated top module %q without setting the top flag", f.ID(), c.opts.TopModule.Text)
			}
		}

		return
	}

	if c.opts.ErrorOnUnknownModule {
		c.diags.Report(diag.Diagnostic{
			Kind:    diag.UnknownModule,
			Message: fmt.Sprintf("no frontend provides top module %q", c.opts.TopModule.Text),
		})
	}
}

func (c *Coordinator) selectFrontendBasedTop(ctx context.Context) {
	for _, f := range c.frontends {
		if f.ID() != c.opts.TopFrontend {
			continue
		}

		if _, err := f.ElaborateTop(ctx, c); err != nil {
			c.diags.Report(diag.Diagnostic{Kind: diag.ElaborationError, Message: err.Error(), Frontend: f.ID()})
		}

		return
	}

	log.Warnf("frontend-based top selection: no such frontend %q", c.opts.TopFrontend)
}

func (c *Coordinator) selectAutomaticTop(ctx context.Context) {
	for _, f := range c.frontends {
		if !f.AdvertisesTop() {
			continue
		}

		if _, err := f.ElaborateTop(ctx, c); err != nil {
			c.diags.Report(diag.Diagnostic{Kind: diag.ElaborationError, Message: err.Error(), Frontend: f.ID()})
		}
	}
}

// reportNonSuccess accumulates a diagnostic for an invalid-parameter or
// elaboration-error response, leaving success responses untouched.
func (c *Coordinator) reportNonSuccess(frontendID, moduleName string, resp frontend.Response) {
	switch resp.Status {
	case frontend.InvalidParameter:
		msg := moduleName
		if resp.Err != nil {
			msg = resp.Err.Error()
		}

		c.diags.Report(diag.Diagnostic{Kind: diag.InvalidParameter, Message: msg, Module: moduleName, Frontend: frontendID})
	case frontend.ElaborationError:
		msg := moduleName
		if resp.Err != nil {
			msg = resp.Err.Error()
		}

		c.diags.Report(diag.Diagnostic{Kind: diag.ElaborationError, Message: msg, Module: moduleName, Frontend: frontendID})
	}
}

// drainQueue returns every module handle marked for unresolved processing
// and empties the queue.
func (c *Coordinator) drainQueue() []ir.ModuleHandle {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := c.queue
	c.queue = nil

	return out
}
