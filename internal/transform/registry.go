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

import "github.com/queryforge/sqlbeam/internal/dialect"

// GoldExample is one verified (original, optimized) pair backing a
// Transform, per spec.md §6 ("Gold example store").
type GoldExample struct {
	ID            string       `json:"id"`
	Dialect       dialect.Name `json:"dialect"`
	Description   string       `json:"description"`
	OriginalSQL   string       `json:"original_sql"`
	OptimizedSQL  string       `json:"optimized_sql"`
	Tags          []string     `json:"tags"`
	VerifiedSpeed float64      `json:"verified_speedup"`
}

// Transform is a named rewrite pattern with a feature fingerprint and
// per-dialect contraindications (spec.md §4.3, GLOSSARY "Transform").
type Transform struct {
	Name                string
	RequiredFeatures    []Feature
	Contraindications   map[dialect.Name]dialect.Feature
	GoldExamples        []GoldExample
}

// Registry is the static, data-driven catalog of known transforms, grounded
// on original_source/.../rulebook_registry.py's registry-of-rules shape
// (see DESIGN.md).
var Registry = []Transform{
	{
		Name:             "decorrelate_scalar_subquery",
		RequiredFeatures: []Feature{HasCorrelatedSubquery},
	},
	{
		Name:             "or_to_union",
		RequiredFeatures: []Feature{HasOrAcrossColumns},
	},
	{
		Name:             "not_in_to_anti_join",
		RequiredFeatures: []Feature{HasNotIn},
	},
	{
		Name:             "materialize_repeated_scan",
		RequiredFeatures: []Feature{RepeatsFactScan},
	},
	{
		Name:             "push_window_into_cte",
		RequiredFeatures: []Feature{HasWindowFunction},
		Contraindications: map[dialect.Name]dialect.Feature{
			dialect.DuckDB: dialect.FeatureQualify,
		},
	},
	{
		Name:             "merge_union_branches",
		RequiredFeatures: []Feature{HasUnion},
	},
	{
		Name:             "self_join_to_window",
		RequiredFeatures: []Feature{HasSelfJoin, HasWindowFunction},
	},
	{
		Name:             "approx_count_distinct",
		RequiredFeatures: []Feature{AggCountDistinct},
	},
}
