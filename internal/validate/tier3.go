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

// Tier-3 runs baseline and candidate against the real database and is
// identical to Tier-2 except for dataset size: it is simply the raw
// Executor passed to Validator.Run as `full`, with no sampling rewrite.
// A Tier-3 failure is authoritative (spec.md §4.4) and the orchestrator
// never retries it (spec.md §7 kind 3).
