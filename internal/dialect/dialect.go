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

// Package dialect holds the small set of SQL dialects the engine targets and
// the per-dialect feature gates consulted by the transform gate and renderer.
package dialect

import "fmt"

// Name identifies a target SQL engine.
type Name string

const (
	DuckDB     Name = "duckdb"
	Postgres   Name = "postgres"
	Snowflake  Name = "snowflake"
)

// Feature is a capability a dialect may or may not support natively.
type Feature string

const (
	FeatureQualify        Feature = "qualify"
	FeatureLateralJoin    Feature = "lateral_join"
	FeatureIntervalSyntax Feature = "interval_syntax"
	FeatureSampleClause   Feature = "sample_clause"
)

// Profile describes a dialect and the version at which each feature became
// available. With an empty Version only the features whose gate is empty
// are supported; every version-gated feature reads as unsupported.
type Profile struct {
	Name    Name
	Version string
	// Gates maps a feature to the minimum dialect version required. An empty
	// string means the feature is supported at every version of this dialect.
	Gates map[Feature]string
}

// table is the single static feature-gate table referenced by design note §9:
// "Feature gates... live in a single static table."
var table = map[Name]Profile{
	DuckDB: {
		Name: DuckDB,
		Gates: map[Feature]string{
			FeatureQualify:        "0.9",
			FeatureLateralJoin:    "",
			FeatureIntervalSyntax: "",
			FeatureSampleClause:   "",
		},
	},
	Postgres: {
		Name: Postgres,
		Gates: map[Feature]string{
			FeatureLateralJoin:    "",
			FeatureIntervalSyntax: "",
			FeatureSampleClause:   "9.5",
		},
	},
	Snowflake: {
		Name: Snowflake,
		Gates: map[Feature]string{
			FeatureQualify:        "",
			FeatureLateralJoin:    "",
			FeatureIntervalSyntax: "",
			FeatureSampleClause:   "",
		},
	},
}

// Load returns the static capability profile for name, with version set
// to the caller-supplied runtime version.
func Load(name Name, version string) (Profile, error) {
	p, ok := table[name]
	if !ok {
		return Profile{}, fmt.Errorf("dialect: unknown dialect %q", name)
	}
	p.Version = version
	return p, nil
}

// Supports reports whether this profile's dialect, at its configured
// Version, supports feature f. An unlisted feature is never supported.
func (p Profile) Supports(f Feature) bool {
	minVersion, ok := p.Gates[f]
	if !ok {
		return false
	}
	if minVersion == "" {
		return true
	}
	return versionAtLeast(p.Version, minVersion)
}

// versionAtLeast does a coarse dotted-numeric compare; dialect version
// strings in this engine are always of the form "MAJOR.MINOR".
func versionAtLeast(have, want string) bool {
	if have == "" {
		return false
	}
	var haveMajor, haveMinor, wantMajor, wantMinor int
	fmt.Sscanf(have, "%d.%d", &haveMajor, &haveMinor)
	fmt.Sscanf(want, "%d.%d", &wantMajor, &wantMinor)
	if haveMajor != wantMajor {
		return haveMajor > wantMajor
	}
	return haveMinor >= wantMinor
}
