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

package promptassembly

import (
	"encoding/json"

	"gopkg.in/src-d/go-errors.v1"
)

// ErrEmptyAnalystResponse is the hard session failure of spec.md §4.6:
// "an empty response is a hard failure for the session."
var ErrEmptyAnalystResponse = errors.NewKind("analyst produced no probes or targets")

type wireProbe struct {
	ID          string   `json:"id"`
	Hypothesis  string   `json:"hypothesis"`
	Reasoning   string   `json:"reasoning"`
	AnchorHints []string `json:"anchor_hints"`
}

type wireTarget struct {
	wireProbe
	HazardFlags []string `json:"hazard_flags"`
}

// ParseScoutResult decodes a wide-mode analyst response.
func ParseScoutResult(response string) (ScoutResult, error) {
	raw, err := ExtractJSON(response)
	if err != nil {
		return ScoutResult{}, err
	}
	var wire struct {
		Dispatch string      `json:"dispatch"`
		Probes   []wireProbe `json:"probes"`
	}
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return ScoutResult{}, ErrMalformedResponse.New(err.Error())
	}
	if len(wire.Probes) == 0 {
		return ScoutResult{}, ErrEmptyAnalystResponse.New()
	}
	if len(wire.Probes) > WideProbeCap {
		wire.Probes = wire.Probes[:WideProbeCap]
	}
	out := ScoutResult{Dispatch: wire.Dispatch}
	for _, p := range wire.Probes {
		out.Probes = append(out.Probes, Probe{ID: p.ID, Hypothesis: p.Hypothesis, Reasoning: p.Reasoning, AnchorHints: p.AnchorHints})
	}
	return out, nil
}

// ParseFocusedTargets decodes a focused-mode analyst response (a bare JSON
// array of targets).
func ParseFocusedTargets(response string) ([]FocusedTarget, error) {
	raw, err := ExtractJSON(response)
	if err != nil {
		return nil, err
	}
	var wire []wireTarget
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return nil, ErrMalformedResponse.New(err.Error())
	}
	if len(wire) == 0 {
		return nil, ErrEmptyAnalystResponse.New()
	}
	if len(wire) > FocusedTargetCap {
		wire = wire[:FocusedTargetCap]
	}
	var out []FocusedTarget
	for _, t := range wire {
		out = append(out, FocusedTarget{ID: t.ID, Hypothesis: t.Hypothesis, Reasoning: t.Reasoning, AnchorHints: t.AnchorHints, HazardFlags: t.HazardFlags})
	}
	return out, nil
}
