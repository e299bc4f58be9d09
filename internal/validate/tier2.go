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

package validate

import (
	"context"
	"fmt"
	"regexp"

	"github.com/queryforge/sqlbeam/internal/dialect"
	"github.com/queryforge/sqlbeam/internal/equivalence"
)

// SampledExecutor wraps a real Executor and rewrites the table named right
// after each FROM keyword to a sampled read before delegating, giving Tier-2
// a small sample of the data without a separate synthetic-data pipeline. It
// takes the 2% tablesample path rather than literal-keyed synthetic
// generation. Tables introduced by JOIN or after a comma are read in full,
// and the sample is not seeded, so repeated runs may read different rows.
type SampledExecutor struct {
	Inner   Executor
	Dialect dialect.Name
	// Percent is the sample fraction, default 2 (spec.md §4.4 example).
	Percent float64
}

// NewSampledExecutor constructs a SampledExecutor with the spec's default
// 2% sample fraction.
func NewSampledExecutor(inner Executor, dial dialect.Name) *SampledExecutor {
	return &SampledExecutor{Inner: inner, Dialect: dial, Percent: 2}
}

var tableRefPattern = regexp.MustCompile(`(?i)\bFROM\s+([a-zA-Z_][a-zA-Z0-9_.]*)`)

// Query rewrites sql's FROM-clause table references to sampled reads, then
// delegates to Inner.
func (s *SampledExecutor) Query(ctx context.Context, sql string) (equivalence.ResultSet, error) {
	sampled := tableRefPattern.ReplaceAllStringFunc(sql, func(match string) string {
		groups := tableRefPattern.FindStringSubmatch(match)
		table := groups[1]
		return "FROM " + table + " " + s.sampleClause()
	})
	return s.Inner.Query(ctx, sampled)
}

func (s *SampledExecutor) sampleClause() string {
	pct := s.Percent
	if pct <= 0 {
		pct = 2
	}
	switch s.Dialect {
	case dialect.DuckDB:
		return fmt.Sprintf("TABLESAMPLE(%g%%)", pct)
	case dialect.Postgres:
		return fmt.Sprintf("TABLESAMPLE BERNOULLI(%g)", pct)
	case dialect.Snowflake:
		return fmt.Sprintf("SAMPLE (%g)", pct)
	default:
		return ""
	}
}
