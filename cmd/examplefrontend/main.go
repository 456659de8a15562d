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

// Command examplefrontend serves the pkg/examplefrontend gate library as a
// remote, RPC-backed frontend: a separate process speaking JSON-RPC 2.0
// over its own stdin/stdout, exactly the shape cmd/elabdrv's elaborate
// command spawns for any frontend-executable argument. It exists so the
// Remote transport has a real subprocess to exercise in integration
// tests, rather than only an in-process fake.
//
// Since it runs as its own process, it cannot reach pkg/frontend's
// unexported wire structs; it defines its own, matching the documented
// JSON shape field for field, exactly as a frontend written in any other
// language would have to.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"go.lsp.dev/jsonrpc2"

	"github.com/opensynth/elabdrv/pkg/examplefrontend"
	"github.com/opensynth/elabdrv/pkg/frontend"
	"github.com/opensynth/elabdrv/pkg/ir"
	"github.com/opensynth/elabdrv/pkg/util"
)

const (
	methodInitialize         = "initialize"
	methodElaborateTop       = "elaborateTop"
	methodListExported       = "listExported"
	methodElaborateSpecified = "elaborateSpecified"
	methodInsertIR           = "insertIR"
)

type wireName struct {
	Text          string `json:"text"`
	CaseSensitive bool   `json:"caseSensitive"`
}

type wireInitializeParams struct {
	Target               string `json:"target"`
	ErrorOnUnknownModule bool   `json:"errorOnUnknownModule"`
}

type wireInitializeResult struct {
	AdvertisesTop bool `json:"advertisesTop"`
}

type wireListExportedResult struct {
	Names     []wireName `json:"names"`
	Available bool       `json:"available"`
}

type wireElaborateTopResult struct {
	FragmentModuleIDs []uint64 `json:"fragmentModuleIds"`
}

type wireParamBinding struct {
	Name        *wireName `json:"name,omitempty"`
	Position    *uint     `json:"position,omitempty"`
	Dynamic     bool      `json:"dynamic"`
	Kind        uint8     `json:"kind"`
	StringValue string    `json:"stringValue,omitempty"`
	IntValue    string    `json:"intValue,omitempty"`
	RealValue   float64   `json:"realValue,omitempty"`
	BitsValue   []int8    `json:"bitsValue,omitempty"`
}

type wireElaborateSpecifiedParams struct {
	Mode   *uint8             `json:"mode,omitempty"`
	Name   wireName           `json:"name"`
	Params []wireParamBinding `json:"params"`
}

type wireNormalizedParam struct {
	Name        wireName `json:"name"`
	Dynamic     bool     `json:"dynamic"`
	Kind        uint8    `json:"kind,omitempty"`
	StringValue string   `json:"stringValue,omitempty"`
	IntValue    string   `json:"intValue,omitempty"`
	RealValue   float64  `json:"realValue,omitempty"`
	BitsValue   []int8   `json:"bitsValue,omitempty"`
}

type wireElaborateSpecifiedResult struct {
	Status     uint8                 `json:"status"`
	ModuleID   uint64                `json:"moduleId,omitempty"`
	Normalized []wireNormalizedParam `json:"normalized,omitempty"`
	ErrMessage string                `json:"errMessage,omitempty"`
}

type wireStandIn struct {
	FragmentModuleID uint64 `json:"fragmentModuleId"`
	DriverModuleID   uint64 `json:"driverModuleId"`
}

type wireInsertIRParams struct {
	Design    []byte        `json:"design"`
	StandIns  []wireStandIn `json:"standIns"`
	AutoQueue bool          `json:"autoQueue"`
}

type wireInsertIRResult struct {
	Allocated []wireStandIn `json:"allocated"`
}

// stdioConn adapts os.Stdin/os.Stdout into the single io.ReadWriteCloser
// jsonrpc2.NewStream expects, mirroring the pipeConn cmd/elabdrv builds for
// the other end of the same connection.
type stdioConn struct{}

func (stdioConn) Read(b []byte) (int, error)  { return os.Stdin.Read(b) }
func (stdioConn) Write(b []byte) (int, error) { return os.Stdout.Write(b) }
func (stdioConn) Close() error                { return nil }

func main() {
	stream := jsonrpc2.NewStream(stdioConn{})
	conn := jsonrpc2.NewConn(stream)

	s := &server{conn: conn}

	conn.Go(context.Background(), s.handle)

	// conn.Go runs the dispatch loop in the background; block here for the
	// life of the process. cmd/elabdrv kills this subprocess directly when
	// its elaboration session ends, rather than this process noticing its
	// stdin pipe close on its own.
	select {}
}

// server answers the four driver-to-frontend methods by serving
// pkg/examplefrontend's fixed gate library, pushing each matched module
// across the wire via a frontend-to-driver "insertIR" call the first time
// it is requested, and caching the resulting driver handle by name.
type server struct {
	conn    jsonrpc2.Conn
	handles map[string]uint64
}

func (s *server) handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	switch req.Method() {
	case methodInitialize:
		return reply(ctx, wireInitializeResult{AdvertisesTop: false}, nil)
	case methodListExported:
		lib := examplefrontend.Modules()
		names := make([]wireName, len(lib))

		for i, m := range lib {
			names[i] = wireName{Text: m.Name.Text, CaseSensitive: m.Name.CaseSensitive}
		}

		return reply(ctx, wireListExportedResult{Names: names, Available: true}, nil)
	case methodElaborateTop:
		return reply(ctx, wireElaborateTopResult{}, nil)
	case methodElaborateSpecified:
		return s.handleElaborateSpecified(ctx, reply, req)
	default:
		return reply(ctx, nil, fmt.Errorf("examplefrontend: unknown method %q", req.Method()))
	}
}

func (s *server) handleElaborateSpecified(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params wireElaborateSpecifiedParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, err)
	}

	mode := frontend.AnyModule
	if params.Mode != nil {
		mode = frontend.Mode(*params.Mode)
	}

	wreq := frontend.Request{
		Mode:   mode,
		Name:   ir.Name{Text: params.Name.Text, CaseSensitive: params.Name.CaseSensitive},
		Params: decodeParamBindings(params.Params),
	}

	m, ok := examplefrontend.Match(wreq)
	if !ok {
		return reply(ctx, wireElaborateSpecifiedResult{Status: uint8(frontend.NotProvided)}, nil)
	}

	driverID, err := s.insertGate(ctx, m)
	if err != nil {
		return reply(ctx, wireElaborateSpecifiedResult{
			Status:     uint8(frontend.ElaborationError),
			ErrMessage: err.Error(),
		}, nil)
	}

	result := wireElaborateSpecifiedResult{
		Status:     uint8(frontend.Success),
		ModuleID:   driverID,
		Normalized: encodeNormalizedParams(examplefrontend.Normalize(m, wreq)),
	}

	return reply(ctx, result, nil)
}

// insertGate pushes m into the driver's design via insertIR, caching the
// resulting handle by module name: the gate library's modules carry no
// baked parameters, so every request for the same name always matches the
// same module and never needs a second insertIR round trip.
func (s *server) insertGate(ctx context.Context, m ir.Module) (uint64, error) {
	if s.handles == nil {
		s.handles = make(map[string]uint64)
	}

	if h, ok := s.handles[m.Name.Text]; ok {
		return h, nil
	}

	frag := &frontend.Fragment{
		Modules: []frontend.FragmentModule{
			{ID: 1, Name: m.Name, Kind: m.Kind, Top: m.Top, Baked: m.Baked, Proper: m.Proper, Ports: m.Ports},
		},
	}

	data, err := frontend.EncodeFragment(frag)
	if err != nil {
		return 0, err
	}

	var result wireInsertIRResult

	if _, err := s.conn.Call(ctx, methodInsertIR, wireInsertIRParams{Design: data}, &result); err != nil {
		return 0, err
	}

	for _, a := range result.Allocated {
		if a.FragmentModuleID == 1 {
			s.handles[m.Name.Text] = a.DriverModuleID
			return a.DriverModuleID, nil
		}
	}

	return 0, fmt.Errorf("examplefrontend: insertIR did not allocate module %q", m.Name.Text)
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

func encodeNormalizedParams(params []ir.NormalizedParam) []wireNormalizedParam {
	out := make([]wireNormalizedParam, len(params))

	for i, n := range params {
		w := wireNormalizedParam{Name: wireName{Text: n.Name.Text, CaseSensitive: n.Name.CaseSensitive}}

		if !n.Value.HasValue() {
			w.Dynamic = true
			out[i] = w

			continue
		}

		v := n.Value.Unwrap()
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
