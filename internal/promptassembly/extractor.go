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
	"regexp"
	"strings"

	"gopkg.in/src-d/go-errors.v1"

	"github.com/queryforge/sqlbeam/internal/patch"
)

var (
	// ErrMalformedResponse is given when the extractor cannot locate or
	// parse a JSON tree in the LLM response (spec.md §7 kind 3: "malformed
	// LLM response surviving parsing").
	ErrMalformedResponse = errors.NewKind("malformed LLM response: %s")
	// ErrStepCountExceeded is given when a plan exceeds the step count cap.
	ErrStepCountExceeded = errors.NewKind("plan %s exceeds step count cap of %d")
	// ErrEmptyResponse is given for the hard-failure case of spec.md §4.6:
	// "an empty response is a hard failure for the session."
	ErrEmptyResponse = errors.NewKind("empty response")
)

// MaxStepsPerPlan is the step count cap of spec.md §4.7.
const MaxStepsPerPlan = 32

var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")
var fencedSQLBlock = regexp.MustCompile("(?si)```sql\\s*\\n?(.*?)\\n?```")

// ExtractJSON locates the JSON payload in response: the body of the first
// triple-backtick fence (unlabelled or labelled json), or else the trimmed
// response itself. A fence labelled sql is not unwrapped here; its label stays
// in the returned text. ExtractSQLFence handles that form.
func ExtractJSON(response string) (string, error) {
	trimmed := strings.TrimSpace(response)
	if trimmed == "" {
		return "", ErrEmptyResponse.New()
	}
	if m := fencedBlock.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1]), nil
	}
	return trimmed, nil
}

// ExtractSQLFence locates a fenced ```sql block, used by whole-SQL mode.
func ExtractSQLFence(response string) (string, bool) {
	m := fencedSQLBlock.FindStringSubmatch(response)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// Tree is one worker or sniper output: either a PatchPlan or a whole-SQL
// rewrite, never both.
type Tree struct {
	Plan         *patch.Plan
	OptimizedSQL string
}

// ParseWorkerResponse implements the tolerant tree extraction of spec.md
// §4.7: a single tree object, an array of 1-4 tree objects, or a tree
// wrapped in {"steps": [...]}.
func ParseWorkerResponse(response string) ([]Tree, error) {
	raw, err := ExtractJSON(response)
	if err != nil {
		return nil, err
	}

	var arr []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &arr); err == nil {
		var trees []Tree
		for _, el := range arr {
			t, err := decodeTree(el)
			if err != nil {
				return nil, err
			}
			trees = append(trees, t...)
		}
		if len(trees) == 0 {
			return nil, ErrMalformedResponse.New("empty array response")
		}
		return trees, nil
	}

	return decodeTree(json.RawMessage(raw))
}

// decodeTree decodes one JSON object, which may itself be a {"steps": [...]}
// wrapper around further tree objects rather than a patch plan's step list.
func decodeTree(raw json.RawMessage) ([]Tree, error) {
	var probe struct {
		OptimizedSQL *string           `json:"optimized_sql"`
		Steps        []json.RawMessage `json:"steps"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, ErrMalformedResponse.New(err.Error())
	}

	if probe.OptimizedSQL != nil {
		return []Tree{{OptimizedSQL: *probe.OptimizedSQL}}, nil
	}

	if len(probe.Steps) > 0 && stepsAreTrees(probe.Steps) {
		var trees []Tree
		for _, el := range probe.Steps {
			t, err := decodeTree(el)
			if err != nil {
				return nil, err
			}
			trees = append(trees, t...)
		}
		return trees, nil
	}

	var plan patch.Plan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return nil, ErrMalformedResponse.New(err.Error())
	}
	if len(plan.Steps) > MaxStepsPerPlan {
		return nil, ErrStepCountExceeded.New(plan.PlanID, MaxStepsPerPlan)
	}
	return []Tree{{Plan: &plan}}, nil
}

// stepsAreTrees distinguishes {"steps": [<patch step>, ...]} (a real plan)
// from {"steps": [<tree>, <tree>, ...]} (a wrapper around further trees):
// a patch step carries "op", a tree carries "plan_id" or "optimized_sql".
func stepsAreTrees(steps []json.RawMessage) bool {
	var probe struct {
		Op           string `json:"op"`
		PlanID       string `json:"plan_id"`
		OptimizedSQL string `json:"optimized_sql"`
	}
	if err := json.Unmarshal(steps[0], &probe); err != nil {
		return false
	}
	return probe.Op == "" && (probe.PlanID != "" || probe.OptimizedSQL != "")
}
