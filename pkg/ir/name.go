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

import "strings"

// Name is a (text, case-sensitive) pair, the canonical name representation
// used throughout the driver.  Names are never case-folded at ingest: a
// case-sensitive frontend must still be able to recover its original
// spelling for diagnostics, so the case-insensitive flag is carried
// alongside the text rather than normalising it away.
type Name struct {
	// Text is the name as spelled by its owning frontend.
	Text string
	// CaseSensitive indicates whether Text must be matched bytewise.  When
	// false, Text is matched ignoring ASCII case.
	CaseSensitive bool
}

// NewName constructs a case-sensitive name.
func NewName(text string) Name {
	return Name{text, true}
}

// NewCaseInsensitiveName constructs a case-insensitive name.
func NewCaseInsensitiveName(text string) Name {
	return Name{text, false}
}

// Matches determines whether two names refer to the same identifier.  Two
// names match when both are case-sensitive and bytewise equal, or when at
// least one is case-insensitive and they are equal ignoring ASCII case.
func (n Name) Matches(other Name) bool {
	if n.CaseSensitive && other.CaseSensitive {
		return n.Text == other.Text
	}

	return strings.EqualFold(n.Text, other.Text)
}

// String returns the name's text, for diagnostics.
func (n Name) String() string {
	return n.Text
}

// MatchCandidates finds every candidate in candidates which matches name.
// This is the primitive used to detect ambiguity: a case-insensitive name
// which matches more than one case-sensitive candidate is unambiguous only
// when len(result) <= 1.
func MatchCandidates[T any](name Name, candidates []T, nameOf func(T) Name) []T {
	var matches []T

	for _, c := range candidates {
		if name.Matches(nameOf(c)) {
			matches = append(matches, c)
		}
	}

	return matches
}
