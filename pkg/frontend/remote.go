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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"sync"

	log "github.com/sirupsen/logrus"
	"go.lsp.dev/jsonrpc2"

	"github.com/opensynth/elabdrv/pkg/ir"
	"github.com/opensynth/elabdrv/pkg/util"
)

// Remote is a Frontend backed by a bidirectional JSON-RPC 2.0 channel.
// The connection is multiplexed by jsonrpc2 itself: Call correlates a
// request to its eventual response by ID, and Go starts a background
// dispatch loop which keeps delivering inbound requests - from the same
// process on the other end of the wire - while a Call issued from this
// side is still outstanding.  That re-entrancy comes for free from a
// bidirectional conn rather than anything this package has to implement
// itself.
type Remote struct {
	id         string
	targetOnly bool
	conn       jsonrpc2.Conn
	drv        Driver

	mu      sync.Mutex
	bound   bool
}

// NewRemote constructs a Remote frontend communicating over rwc.  drv is
// the Driver this connection's inbound requests (insertIR, and recursive
// elaborateSpecified calls) are serviced against; it is bound for the
// lifetime of the connection, since a long-lived RPC channel has no single
// enclosing driver→frontend call to scope a borrow to the way a built-in
// frontend does.
func NewRemote(id string, rwc io.ReadWriteCloser, drv Driver, targetProvided bool) *Remote {
	stream := jsonrpc2.NewStream(rwc)
	conn := jsonrpc2.NewConn(stream)

	r := &Remote{id: id, conn: conn, drv: drv, targetOnly: targetProvided}
	conn.Go(context.Background(), r.handle)

	return r
}

// ID implements Frontend.
func (r *Remote) ID() string { return r.id }

// AdvertisesTop implements Frontend.  Remote frontends are probed for
// tops the same way built-ins are; what they advertise is negotiated at
// Initialize time by the remote process itself returning a capability
// flag, which this adapter folds into bound.
func (r *Remote) AdvertisesTop() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.bound
}

// IsTargetProvided implements TargetProvided.
func (r *Remote) IsTargetProvided() bool { return r.targetOnly }

// Initialize implements Frontend by calling the "initialize" method.
func (r *Remote) Initialize(ctx context.Context, _ Driver, opts InitOptions) error {
	params := wireInitializeParams{Target: opts.Target, ErrorOnUnknownModule: opts.ErrorOnUnknownModule}

	var result struct {
		AdvertisesTop bool `json:"advertisesTop"`
	}

	if _, err := r.conn.Call(ctx, methodInitialize, params, &result); err != nil {
		return fmt.Errorf("remote frontend %s: initialize: %w", r.id, err)
	}

	r.mu.Lock()
	r.bound = result.AdvertisesTop
	r.mu.Unlock()

	return nil
}

// ListExported implements Frontend by calling "listExported".
func (r *Remote) ListExported(ctx context.Context, _ Driver) ([]ir.Name, bool) {
	var result wireListExportedResult

	if _, err := r.conn.Call(ctx, methodListExported, struct{}{}, &result); err != nil {
		log.WithError(err).Warnf("remote frontend %s: listExported failed, treating as unavailable", r.id)
		return nil, false
	}

	names := make([]ir.Name, len(result.Names))
	for i, n := range result.Names {
		names[i] = ir.Name{Text: n.Text, CaseSensitive: n.CaseSensitive}
	}

	return names, result.Available
}

// ElaborateTop implements Frontend by calling "elaborateTop".  While this
// call is outstanding, the remote process may call back with "insertIR" one
// or more times on the same connection; r.handle services those
// concurrently and this method only returns once the remote process's
// final response to elaborateTop arrives.
func (r *Remote) ElaborateTop(ctx context.Context, _ Driver) ([]ir.ModuleHandle, error) {
	var result wireElaborateTopResult

	if _, err := r.conn.Call(ctx, methodElaborateTop, struct{}{}, &result); err != nil {
		return nil, fmt.Errorf("remote frontend %s: elaborateTop: %w", r.id, err)
	}
	// Each returned ID is used as a driver module handle as-is, with no
	// mapping applied: the remote frontend reports the handles that its
	// insertIR calls were allocated, as it does for elaborateSpecified.
	handles := make([]ir.ModuleHandle, len(result.FragmentModuleIDs))
	for i, id := range result.FragmentModuleIDs {
		handles[i] = ir.ModuleHandle(id)
	}

	return handles, nil
}

// ElaborateSpecified implements Frontend by calling "elaborateSpecified".
func (r *Remote) ElaborateSpecified(ctx context.Context, _ Driver, req Request) Response {
	mode := uint8(req.Mode)
	params := wireElaborateSpecifiedParams{
		Mode:   &mode,
		Name:   wireName{Text: req.Name.Text, CaseSensitive: req.Name.CaseSensitive},
		Params: encodeParamBindings(req.Params),
		Ports:  encodePortBindings(req.Ports),
	}

	var result wireElaborateSpecifiedResult

	if _, err := r.conn.Call(ctx, methodElaborateSpecified, params, &result); err != nil {
		return Response{Status: ElaborationError, Err: fmt.Errorf("remote frontend %s: %w", r.id, err)}
	}

	return decodeResponse(result)
}

// handle services inbound requests from the remote frontend: insertIR
// (always), and elaborateSpecified (the frontend's own recursive
// sub-elaboration requests, routed back through the driver).
func (r *Remote) handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	switch req.Method() {
	case methodInsertIR:
		return r.handleInsertIR(ctx, reply, req)
	case methodElaborateSpecified:
		return r.handleElaborateSpecified(ctx, reply, req)
	default:
		return reply(ctx, nil, fmt.Errorf("remote frontend %s: unknown method %q", r.id, req.Method()))
	}
}

func (r *Remote) handleInsertIR(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params wireInsertIRParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, err)
	}

	frag, err := DecodeFragment(params.Design)
	if err != nil {
		return reply(ctx, nil, fmt.Errorf("remote frontend %s: insertIR: %w", r.id, err))
	}

	standIns := make(map[uint64]ir.ModuleHandle, len(params.StandIns))
	for _, s := range params.StandIns {
		standIns[s.FragmentModuleID] = ir.ModuleHandle(s.DriverModuleID)
	}

	allocated := insertFragment(r.drv.Design(), frag, standIns)

	if params.AutoQueue {
		for _, h := range allocated {
			r.drv.MarkForUnresolvedProcessing(h)
		}
	}

	result := wireInsertIRResult{Allocated: make([]wireStandIn, 0, len(allocated))}
	for fragID, h := range allocated {
		result.Allocated = append(result.Allocated, wireStandIn{FragmentModuleID: fragID, DriverModuleID: uint64(h)})
	}

	return reply(ctx, result, nil)
}

func (r *Remote) handleElaborateSpecified(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params wireElaborateSpecifiedParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, err)
	}
	// The mode field is absent on the frontend->driver variant: such
	// requests are always routed as any-module, with no top flag.
	wreq := Request{
		Source: r.id,
		Mode:   AnyModule,
		Name:   ir.Name{Text: params.Name.Text, CaseSensitive: params.Name.CaseSensitive},
		Params: decodeParamBindings(params.Params),
		Ports:  decodePortBindings(params.Ports),
	}

	resp := r.drv.Route(ctx, r.id, wreq)

	return reply(ctx, encodeResponse(resp), nil)
}

// encodeParamBindings/decodeParamBindings, encodePortBindings/decodePortBindings,
// encodeResponse/decodeResponse convert between the driver's internal
// Request/Response types and their wire forms.  big.Int values cross the
// wire as decimal strings to avoid precision loss in JSON numbers.

func encodeParamBindings(bindings []ir.Binding) []wireParamBinding {
	out := make([]wireParamBinding, len(bindings))

	for i, b := range bindings {
		w := wireParamBinding{}

		if b.Name.HasValue() {
			n := b.Name.Unwrap()
			w.Name = &wireName{Text: n.Text, CaseSensitive: n.CaseSensitive}
		}

		if b.Position.HasValue() {
			p := b.Position.Unwrap()
			w.Position = &p
		}

		if b.IsDynamic() {
			w.Dynamic = true

			if b.DynamicKind.HasValue() {
				w.Kind = uint8(b.DynamicKind.Unwrap())
			}

			out[i] = w

			continue
		}

		v := b.Value.Unwrap()
		w.Kind = uint8(v.Kind)

		switch v.Kind {
		case ir.KindString:
			w.StringValue = v.Str
		case ir.KindInt:
			if v.Int != nil {
				w.IntValue = v.Int.String()
			}
		case ir.KindReal:
			w.RealValue = v.Real
		default:
			w.BitsValue = encodeBits(v.Bits)
		}

		out[i] = w
	}

	return out
}

func decodeParamBindings(wires []wireParamBinding) []ir.Binding {
	out := make([]ir.Binding, len(wires))

	for i, w := range wires {
		b := ir.Binding{}

		if w.Name != nil {
			b.Name = util.Some(ir.Name{Text: w.Name.Text, CaseSensitive: w.Name.CaseSensitive})
		}

		if w.Position != nil {
			b.Position = util.Some(*w.Position)
		}

		if w.Dynamic {
			b.DynamicKind = util.Some(ir.ParamKind(w.Kind))
			out[i] = b

			continue
		}

		v := ir.Value{Kind: ir.ParamKind(w.Kind)}

		switch v.Kind {
		case ir.KindString:
			v.Str = w.StringValue
		case ir.KindInt:
			n := new(big.Int)
			if w.IntValue != "" {
				n.SetString(w.IntValue, 10)
			}

			v.Int = n
		case ir.KindReal:
			v.Real = w.RealValue
		default:
			v.Bits = decodeBits(w.BitsValue)
		}

		b.Value = util.Some(v)
		out[i] = b
	}

	return out
}

func encodePortBindings(bindings []PortBinding) []wirePortBinding {
	out := make([]wirePortBinding, len(bindings))

	for i, p := range bindings {
		w := wirePortBinding{Direction: uint8(p.Direction), Width: p.Width}

		if p.Port.HasValue() {
			ref := p.Port.Unwrap()

			if ref.Name.HasValue() {
				n := ref.Name.Unwrap()
				w.Name = &wireName{Text: n.Text, CaseSensitive: n.CaseSensitive}
			}

			if ref.Position.HasValue() {
				pos := ref.Position.Unwrap()
				w.Position = &pos
			}
		}

		out[i] = w
	}

	return out
}

func decodePortBindings(wires []wirePortBinding) []PortBinding {
	out := make([]PortBinding, len(wires))

	for i, w := range wires {
		ref := ir.PortRef{}

		if w.Name != nil {
			ref.Name = util.Some(ir.Name{Text: w.Name.Text, CaseSensitive: w.Name.CaseSensitive})
		}

		if w.Position != nil {
			ref.Position = util.Some(*w.Position)
		}

		out[i] = PortBinding{
			Port:      util.Some(ref),
			Direction: ir.Direction(w.Direction),
			Width:     w.Width,
		}
	}

	return out
}

func encodeResponse(resp Response) wireElaborateSpecifiedResult {
	w := wireElaborateSpecifiedResult{Status: uint8(resp.Status), ModuleID: uint64(resp.Module)}

	if resp.Err != nil {
		w.ErrMessage = resp.Err.Error()
	}

	w.Normalized = make([]wireNormalizedParam, len(resp.Normalized))
	for i, n := range resp.Normalized {
		wn := wireNormalizedParam{Name: wireName{Text: n.Name.Text, CaseSensitive: n.Name.CaseSensitive}}

		if !n.Value.HasValue() {
			wn.Dynamic = true
			w.Normalized[i] = wn

			continue
		}

		v := n.Value.Unwrap()
		wn.Kind = uint8(v.Kind)

		switch v.Kind {
		case ir.KindString:
			wn.StringValue = v.Str
		case ir.KindInt:
			if v.Int != nil {
				wn.IntValue = v.Int.String()
			}
		case ir.KindReal:
			wn.RealValue = v.Real
		default:
			wn.BitsValue = encodeBits(v.Bits)
		}

		w.Normalized[i] = wn
	}

	return w
}

func decodeResponse(w wireElaborateSpecifiedResult) Response {
	resp := Response{Status: Status(w.Status), Module: ir.ModuleHandle(w.ModuleID)}

	if w.ErrMessage != "" {
		resp.Err = fmt.Errorf("%s", w.ErrMessage)
	}

	resp.Normalized = make([]ir.NormalizedParam, len(w.Normalized))
	for i, wn := range w.Normalized {
		np := ir.NormalizedParam{Name: ir.Name{Text: wn.Name.Text, CaseSensitive: wn.Name.CaseSensitive}}

		if wn.Dynamic {
			resp.Normalized[i] = np
			continue
		}

		v := ir.Value{Kind: ir.ParamKind(wn.Kind)}

		switch v.Kind {
		case ir.KindString:
			v.Str = wn.StringValue
		case ir.KindInt:
			n := new(big.Int)
			if wn.IntValue != "" {
				n.SetString(wn.IntValue, 10)
			}

			v.Int = n
		case ir.KindReal:
			v.Real = wn.RealValue
		default:
			v.Bits = decodeBits(wn.BitsValue)
		}

		np.Value = util.Some(v)
		resp.Normalized[i] = np
	}

	return resp
}

func encodeBits(bits []*byte) []int8 {
	out := make([]int8, len(bits))

	for i, b := range bits {
		if b == nil {
			out[i] = -1
		} else {
			out[i] = int8(*b)
		}
	}

	return out
}

func decodeBits(wire []int8) []*byte {
	out := make([]*byte, len(wire))

	for i, v := range wire {
		if v < 0 {
			continue
		}

		b := byte(v)
		out[i] = &b
	}

	return out
}
