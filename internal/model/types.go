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

// Package model holds the data types shared across the Beam Orchestrator,
// Validator and Benchmark Runner: Candidate and SessionResult, as defined
// in spec.md §3.
package model

// Family groups a candidate by which beam phase produced it.
type Family string

const (
	FamilyAnalystProbe Family = "A"
	FamilyWorkerWide    Family = "B"
	FamilyWorkerFocused Family = "C"
	FamilyRetry         Family = "D"
	FamilySniper        Family = "E"
	FamilyReasoning     Family = "F"
)

// Status is a Candidate's lifecycle status, modeled as an explicit small
// state machine per design note §9 ("Retry loops: model as a small explicit
// state machine... not as exception handling").
type Status string

const (
	StatusPass       Status = "PASS"
	StatusFail       Status = "FAIL"
	StatusWin        Status = "WIN"
	StatusImproved   Status = "IMPROVED"
	StatusNeutral    Status = "NEUTRAL"
	StatusRegression Status = "REGRESSION"
	StatusError      Status = "ERROR"
)

// Candidate is one proposed rewrite of a query, per spec.md §3.
type Candidate struct {
	PatchID            string
	Family             Family
	Transform          string
	RelevanceScore     float64
	OutputSQL          string
	ApplyError         string
	SemanticPassed     bool
	CorrectnessVerified bool
	Speedup            *float64
	Status             Status
	ExplainText        string
	OriginalMs         *float64
	PatchMs            *float64
	WorkerPrompt       string
	WorkerResponse     string
	RetryCount         int
	PatchCount         int
}

// SessionResult is the final ranked outcome of one orchestrator run over a
// single query, per spec.md §3.
type SessionResult struct {
	// RunID correlates every log line, prompt/response artifact, and
	// benchmark row produced by one orchestrator run, independent of
	// QueryID (which a caller may reuse across retries or batches).
	RunID            string
	QueryID          string
	BaselineMs       float64
	BaselineRows     int64
	BaselineChecksum uint64
	Candidates       []*Candidate
	BestPatchIdx     *int
	BestSpeedup      float64
}

// ClassifySpeedupFunc lets a caller override the default status
// classification policy of spec.md §4.5 step 6.
type ClassifySpeedupFunc func(speedup float64) Status

// DefaultClassifySpeedup implements spec.md §4.5 step 6's default policy:
// PASS ⇔ speedup ≥ 0.95, refined into WIN ≥ 1.5, IMPROVED ≥ 1.05,
// NEUTRAL ∈ [0.95, 1.05), REGRESSION < 0.95.
func DefaultClassifySpeedup(speedup float64) Status {
	switch {
	case speedup < 0.95:
		return StatusRegression
	case speedup >= 1.5:
		return StatusWin
	case speedup >= 1.05:
		return StatusImproved
	default:
		return StatusNeutral
	}
}
