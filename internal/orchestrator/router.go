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

package orchestrator

// SelectMode implements the workload router of spec.md §4.6: "selects
// focused for queries responsible for a large share of total baseline time;
// otherwise wide. When focused is requested but the reasoning lane is
// disabled, the router silently falls back to wide."
//
// timeShare is this query's baseline time divided by the batch's total
// baseline time; a zero or unknown total baseline time (single-query
// sessions) always routes to wide, since there is no "share" to speak of.
func SelectMode(timeShare float64, cfg Config) Mode {
	if timeShare < cfg.FocusedTimeShareThreshold {
		return ModeWide
	}
	if !cfg.Clients.ReasoningLaneEnabled() {
		return ModeWide
	}
	return ModeFocused
}
