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

// Package router implements the Request Router: candidate-set
// computation and the two-round (proper-then-any) search policy that gives
// the driver its registration-order-deterministic routing outcome.
package router

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/opensynth/elabdrv/pkg/diag"
	"github.com/opensynth/elabdrv/pkg/frontend"
	"github.com/opensynth/elabdrv/pkg/ir"
)

// Router routes "elaborate specified module" requests across a registered
// frontend set.
type Router struct {
	// regular holds non-target-provided frontends in registration order.
	regular []frontend.Frontend
	// targetProvided holds target-provided frontends, always routed last
	// regardless of where they were registered.
	targetProvided []frontend.Frontend

	drv                  frontend.Driver
	errorOnUnknownModule bool
	diags                *diag.Accumulator

	lists map[string]ListSnapshot
}

// ListSnapshot is a frontend's exported-module list as recorded by the
// Coordinator at initialization time: either the returned list, or a mark
// that the list is unavailable, for the Router's use.  The Router never
// re-queries a frontend's list mid-session; each frontend owns its own
// memoization and is expected to report a stable export list for the life
// of the session.
type ListSnapshot struct {
	Names     []ir.Name
	Available bool
}

// New constructs a Router over the given frontend registration order.
// Frontends implementing frontend.TargetProvided with IsTargetProvided()
// true are automatically segregated to the end of the candidate set.
func New(frontends []frontend.Frontend, drv frontend.Driver, errorOnUnknownModule bool, diags *diag.Accumulator) *Router {
	r := &Router{drv: drv, errorOnUnknownModule: errorOnUnknownModule, diags: diags, lists: map[string]ListSnapshot{}}

	for _, f := range frontends {
		if tp, ok := f.(frontend.TargetProvided); ok && tp.IsTargetProvided() {
			r.targetProvided = append(r.targetProvided, f)
		} else {
			r.regular = append(r.regular, f)
		}
	}

	return r
}

// SetLists installs the exported-module-list snapshot the Coordinator
// gathered at initialization.
func (r *Router) SetLists(lists map[string]ListSnapshot) {
	r.lists = lists
}

// candidates computes the candidate set for name: every regular frontend
// whose exported list matches or is unavailable, in registration order,
// followed by every target-provided frontend unconditionally.  It also
// returns every distinct peer name (by exact
// text) that name matched across every available list, for the ambiguity
// check in Route: an ambiguous request is one whose name matches more
// than one case-sensitive candidate on the peer side, which is a property
// of the whole candidate set, not of any one frontend's list.
func (r *Router) candidates(_ context.Context, name ir.Name) ([]frontend.Frontend, []ir.Name) {
	var (
		out     []frontend.Frontend
		matched []ir.Name
		seen    = map[string]bool{}
	)

	for _, f := range r.regular {
		snap := r.lists[f.ID()]
		names, available := snap.Names, snap.Available
		if !available {
			out = append(out, f)
			continue
		}

		included := false

		for _, n := range names {
			if !name.Matches(n) {
				continue
			}

			if !included {
				out = append(out, f)
				included = true
			}

			if !seen[n.Text] {
				seen[n.Text] = true
				matched = append(matched, n)
			}
		}
	}

	out = append(out, r.targetProvided...)

	return out, matched
}

// candidateResult pairs a frontend with its response, for the uniqueness
// checks below.
type candidateResult struct {
	f    frontend.Frontend
	resp frontend.Response
}

// Route runs the two-round search policy for req and returns the outcome.
// source identifies the requesting frontend (or the empty string for the
// Coordinator); it is passed on as the Source of every per-candidate
// request.
func (r *Router) Route(ctx context.Context, source string, req frontend.Request) frontend.Response {
	cands, matched := r.candidates(ctx, req.Name)

	if len(matched) > 1 {
		names := make([]string, len(matched))
		for i, n := range matched {
			names[i] = n.Text
		}

		r.diags.Report(diag.Diagnostic{
			Kind:    diag.NameAmbiguity,
			Message: fmt.Sprintf("name %q matches multiple candidates on the peer side: %v", req.Name.Text, names),
		})

		return frontend.Response{Status: frontend.ElaborationError, Err: fmt.Errorf("ambiguous name %q", req.Name.Text)}
	}

	if resp, ok := r.roundOne(ctx, source, req, cands); ok {
		return resp
	}

	return r.roundTwo(ctx, source, req, cands)
}

// roundOne fans requests out concurrently, using a channel-based
// fan-out/collect idiom for independent per-candidate work, since every
// candidate is asked independently and none of them share mutable state by
// virtue of merely being asked. Concurrent construction of the *same*
// module is the only thing disallowed, and round one's proper-module-only
// probe cannot trigger that: a candidate either already has the module or
// does not.
func (r *Router) roundOne(
	ctx context.Context,
	source string,
	req frontend.Request,
	cands []frontend.Frontend,
) (frontend.Response, bool) {
	roundReq := req
	roundReq.Source = source
	roundReq.Mode = frontend.ProperModuleOnly

	results := make(chan candidateResult, len(cands))

	for _, f := range cands {
		go func(f frontend.Frontend) {
			results <- candidateResult{f, f.ElaborateSpecified(ctx, r.drv, roundReq)}
		}(f)
	}

	var provided []candidateResult

	for i := 0; i < len(cands); i++ {
		res := <-results
		if res.resp.Status != frontend.NotProvided {
			provided = append(provided, res)
		}
	}

	switch len(provided) {
	case 0:
		return frontend.Response{}, false
	case 1:
		return provided[0].resp, true
	default:
		names := make([]string, len(provided))
		for i, p := range provided {
			names[i] = p.f.ID()
		}

		r.diags.Report(diag.Diagnostic{
			Kind:    diag.DuplicateProvider,
			Message: fmt.Sprintf("module %q provided by %d frontends in round one: %v", req.Name.Text, len(provided), names),
		})

		return frontend.Response{Status: frontend.ElaborationError, Err: fmt.Errorf("duplicate provider for %q", req.Name.Text)}, true
	}
}

// roundTwo probes candidates in deterministic registration order, stopping
// at the first non-not-provided response.  Round two is never
// entered until every candidate has refused proper-module-only in round
// one, which Route's control flow guarantees by construction.
func (r *Router) roundTwo(ctx context.Context, source string, req frontend.Request, cands []frontend.Frontend) frontend.Response {
	roundReq := req
	roundReq.Source = source
	roundReq.Mode = frontend.AnyModule

	for _, f := range cands {
		resp := f.ElaborateSpecified(ctx, r.drv, roundReq)
		if resp.Status != frontend.NotProvided {
			return resp
		}
	}

	log.Debugf("router: no frontend provides module %q", req.Name.Text)

	if r.errorOnUnknownModule {
		r.diags.Report(diag.Diagnostic{
			Kind:    diag.UnknownModule,
			Message: fmt.Sprintf("no frontend provides module %q", req.Name.Text),
		})
	}

	return frontend.Response{Status: frontend.NotProvided}
}
