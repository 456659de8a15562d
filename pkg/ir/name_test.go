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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameMatches(t *testing.T) {
	tests := []struct {
		name  string
		a, b  Name
		match bool
	}{
		{"equal case-sensitive", NewName("Adder"), NewName("Adder"), true},
		{"differing case, both sensitive", NewName("Adder"), NewName("adder"), false},
		{"one case-insensitive", NewCaseInsensitiveName("adder"), NewName("Adder"), true},
		{"both case-insensitive", NewCaseInsensitiveName("ADDER"), NewCaseInsensitiveName("adder"), true},
		{"different text", NewName("Adder"), NewName("Mixer"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.match, tt.a.Matches(tt.b))
			assert.Equal(t, tt.match, tt.b.Matches(tt.a), "Matches should be symmetric")
		})
	}
}

func TestMatchCandidates(t *testing.T) {
	candidates := []Name{NewName("Adder"), NewName("ADDER"), NewName("Mixer")}
	nameOf := func(n Name) Name { return n }

	unambiguous := MatchCandidates(NewName("Adder"), candidates, nameOf)
	assert.Len(t, unambiguous, 1)

	ambiguous := MatchCandidates(NewCaseInsensitiveName("adder"), candidates, nameOf)
	assert.Len(t, ambiguous, 2)
}
