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

// Package promptassembly converts the shared engine inputs into the three
// prompt archetypes the Beam Orchestrator issues to the LLM client, per
// spec.md §4.7.
package promptassembly

import (
	"github.com/queryforge/sqlbeam/internal/dialect"
	"github.com/queryforge/sqlbeam/internal/transform"
)

// SharedInputs holds the fields common to every archetype, per spec.md §4.7's
// analyst prompt input list.
type SharedInputs struct {
	QueryID             string
	OriginalSQL         string
	ExplainText         string
	IRNodeMap           string
	Dialect             dialect.Name
	DialectVersion      string
	SchemaContext       string
	EngineKnowledge     string
	ApplicableTransforms []transform.Candidate
	GoldExamples        []transform.GoldExample
	ImportanceStars     int
	EquivalenceTier     int
	DoNotDo             []string
}

// ScoutResult is the analyst's wide-mode response: many shallow probes.
type ScoutResult struct {
	Dispatch string
	Probes   []Probe
}

// Probe is one wide-mode hypothesis handed to a worker.
type Probe struct {
	ID          string
	Hypothesis  string
	Reasoning   string
	AnchorHints []string
}

// FocusedTarget is one focused-mode deep target handed to a worker.
type FocusedTarget struct {
	ID         string
	Hypothesis string
	Reasoning  string
	AnchorHints []string
	HazardFlags []string
}

// WideProbeCap and FocusedTargetCap bound the Analyst response, per
// spec.md §4.6 "a mode-specific cap of probes/targets".
const (
	WideProbeCap     = 12
	FocusedTargetCap = 4
)
