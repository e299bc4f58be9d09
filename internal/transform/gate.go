// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package transform

import (
	"sort"

	"github.com/queryforge/sqlbeam/internal/dialect"
	"github.com/queryforge/sqlbeam/internal/ir"
)

// MinOverlapScore is the threshold below which a transform is pruned from
// the gate's output, per spec.md §4.3.
const MinOverlapScore = 0.4

// Candidate is one transform surfaced by the gate, with its overlap score
// and whether it is being offered despite a dialect contraindication.
type Candidate struct {
	Transform          Transform
	Score              float64
	PortabilityCandidate bool
}

// Applicable returns the transforms whose feature fingerprint overlaps the
// query's detected features above MinOverlapScore, sorted by descending
// score, with per-dialect contraindications applied (spec.md §4.3).
func Applicable(script *ir.ScriptIR, profile dialect.Profile) []Candidate {
	queryFeatures := Detect(script)

	var out []Candidate
	for _, tr := range Registry {
		score := overlapScore(tr.RequiredFeatures, queryFeatures)
		if score < MinOverlapScore {
			continue
		}

		contraindicated := false
		if gate, ok := tr.Contraindications[profile.Name]; ok && !profile.Supports(gate) {
			contraindicated = true
		}

		if contraindicated {
			out = append(out, Candidate{Transform: tr, Score: score, PortabilityCandidate: true})
			continue
		}
		out = append(out, Candidate{Transform: tr, Score: score})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func overlapScore(required []Feature, have map[Feature]bool) float64 {
	if len(required) == 0 {
		return 0
	}
	matched := 0
	for _, f := range required {
		if have[f] {
			matched++
		}
	}
	return float64(matched) / float64(len(required))
}
