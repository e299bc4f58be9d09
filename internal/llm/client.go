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

// Package llm defines the black-box LLM boundary of spec.md §1: "LLM vendor
// clients (treated as a black-box analyze(prompt) -> string)". Nothing in
// this package or its callers depends on a specific vendor SDK; concrete
// adapters live in subpackages (e.g. llm/genai).
package llm

import "context"

// Client analyzes a prompt and returns the model's raw text response.
// Implementations are expected to be safe for concurrent use (spec.md §5:
// "LLM client: treated as thread-safe; rate-limit backoff handled by the
// client") and to apply their own retry/backoff policy internally.
type Client interface {
	Analyze(ctx context.Context, prompt string) (string, error)
}

// Family picks which lane of the LLM client serves a given orchestrator
// phase, per spec.md §4.6's per-mode model tiers.
type Family string

const (
	FamilyFast      Family = "fast"
	FamilyReasoning Family = "reasoning"
)

// RoutedClient dispatches to a Fast or Reasoning backed Client depending on
// the requested Family, so the orchestrator's wide/focused/reasoning modes
// don't need to know which concrete model serves which lane.
type RoutedClient struct {
	Fast      Client
	Reasoning Client
}

// For returns the backing Client that serves fam.
// When the reasoning lane is unset, it falls back to Fast, mirroring the
// router's own "reasoning lane disabled" fallback (spec.md §4.6).
func (r RoutedClient) For(fam Family) Client {
	if fam == FamilyReasoning && r.Reasoning != nil {
		return r.Reasoning
	}
	return r.Fast
}

// ReasoningLaneEnabled reports whether a distinct reasoning-tier client is
// configured.
func (r RoutedClient) ReasoningLaneEnabled() bool {
	return r.Reasoning != nil
}
