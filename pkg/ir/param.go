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

import (
	"fmt"
	"math/big"

	"github.com/opensynth/elabdrv/pkg/util"
)

// ParamKind identifies the type of a parameter value.  Bitvector parameters
// come in two flavours: fixed-width (the width is part of the kind) and
// any-width (the frontend accepts whatever width the caller supplies),
// matching the distinction drawn by the netlist parameter model this
// was ported from.
type ParamKind uint8

const (
	// KindString is a text-valued parameter.
	KindString ParamKind = iota
	// KindInt is an integer-valued parameter.
	KindInt
	// KindReal is a floating point-valued parameter.
	KindReal
	// KindBitvecFixed is a bitvector parameter of a width fixed by the
	// parameter's own declaration.
	KindBitvecFixed
	// KindBitvecAny is a bitvector parameter whose width is supplied by the
	// caller at each binding.
	KindBitvecAny
)

// String renders a ParamKind for diagnostics.
func (k ParamKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindReal:
		return "real"
	case KindBitvecFixed:
		return "bitvec"
	case KindBitvecAny:
		return "bitvec[*]"
	default:
		return "unknown"
	}
}

// Value is a concrete parameter value.  Exactly one of the fields is
// meaningful, selected by Kind.
type Value struct {
	Kind ParamKind
	Str  string
	Int  *big.Int
	Real float64
	// Bits holds a bitvector value.  An all-x (undefined) bit is
	// represented by a nil entry at that position, one per bit,
	// little-endian - matching the tristate representation used by the
	// netlist value model this was ported from, rather than collapsing
	// undefined bits to zero.
	Bits []*byte
}

// AllX constructs an all-undefined bitvector value of the given width.
func AllX(width uint) Value {
	bits := make([]*byte, width)
	return Value{Kind: KindBitvecFixed, Bits: bits}
}

// SameKind reports whether two values carry the same ParamKind.  Bitvector
// kinds are considered the same regardless of fixed/any-width, since that
// distinction lives on the parameter declaration, not the value.
func (v Value) SameKind(other Value) bool {
	norm := func(k ParamKind) ParamKind {
		if k == KindBitvecAny {
			return KindBitvecFixed
		}

		return k
	}

	return norm(v.Kind) == norm(other.Kind)
}

// String renders a Value for diagnostics.
func (v Value) String() string {
	switch v.Kind {
	case KindString:
		return fmt.Sprintf("%q", v.Str)
	case KindInt:
		return v.Int.String()
	case KindReal:
		return fmt.Sprintf("%g", v.Real)
	default:
		bits := make([]byte, len(v.Bits))

		for i, b := range v.Bits {
			if b == nil {
				bits[i] = 'x'
			} else if *b == 0 {
				bits[i] = '0'
			} else {
				bits[i] = '1'
			}
		}

		return string(bits)
	}
}

// Restriction narrows the set of values a parameter may legally take, e.g.
// an enumerated set of allowed strings or an int range.  Left unset
// (Accept == nil), any value of the declared Kind is accepted.
type Restriction struct {
	Accept func(Value) bool
}

// ParamDescriptor describes one parameter of a module, either baked-in
// (consumed during elaboration, stored as an immutable annotation) or
// proper (preserved as a parameter cell, bound at instantiation).
type ParamDescriptor struct {
	Name        Name
	Kind        ParamKind
	Default     util.Option[Value]
	Restriction util.Option[Restriction]
}

// Accepts reports whether v may be bound to this parameter: its kind must
// match, and if a restriction is present the value must satisfy it.
func (d ParamDescriptor) Accepts(v Value) bool {
	if !d.Kind.Accepts(v.Kind) {
		return false
	}

	if d.Restriction.HasValue() {
		if accept := d.Restriction.Unwrap().Accept; accept != nil {
			return accept(v)
		}
	}

	return true
}

// Accepts reports whether a value of kind other may be bound where k is
// declared, treating the two bitvector flavours as mutually accepted since
// that distinction lives on the declaration, not the binding.
func (k ParamKind) Accepts(other ParamKind) bool {
	if k == KindBitvecFixed || k == KindBitvecAny {
		return other == KindBitvecFixed || other == KindBitvecAny
	}

	return k == other
}

// Binding is a single parameter binding supplied at a request: either an
// explicit value, or "value unavailable" marking the parameter dynamic
// (its value will be supplied by the ultimate caller, not known now).
type Binding struct {
	// Name is present for named bindings; zero-valued for positional ones.
	Name util.Option[Name]
	// Position is present for positional bindings (0-based).
	Position util.Option[uint]
	// Value holds the explicit value, if any.  When empty, the binding
	// marks the parameter dynamic.
	Value util.Option[Value]
	// Dynamic, when the value is unavailable, optionally names the
	// symbolic source cell the value will come from, for type-matching
	// against the proper parameter's kind during resolution.
	DynamicKind util.Option[ParamKind]
}

// IsDynamic reports whether this binding carries "value unavailable".
func (b Binding) IsDynamic() bool {
	return b.Value.IsEmpty()
}

// NormalizedParam is one entry of an elaboration success response's
// normalized parameter list: one per proper parameter cell of the
// elaborated module, either a converted concrete value or "dynamic -
// requester supplies".  No conversion policy is mandated here: it only
// requires that, for a concrete entry, Value.Kind matches the proper
// parameter's declared Kind. Conversion itself is entirely the producing
// frontend's business.
type NormalizedParam struct {
	Name  Name
	Value util.Option[Value]
}
