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

// Package similartext produces "maybe you mean X?" suggestion strings for an
// unresolved name, used by the patch engine to turn a dead reference into an
// actionable hint instead of a bare error.
package similartext

import "sort"

// threshold is the minimum PHP-style similar_text percentage (twice the
// similarity score over the two strings' combined length), as a fraction,
// below which a suggestion is considered too weak to be useful and is
// dropped.
const threshold = 0.4

// Find returns ", maybe you mean X?" (or "X or Y?" for ties) for the closest
// matches to name among names, or "" if none are close enough.
func Find(names []string, name string) string {
	matches := closest(names, name)
	return format(matches)
}

// FindFromMap is Find over a map's keys.
func FindFromMap(names map[string]int, name string) string {
	keys := make([]string, 0, len(names))
	for k := range names {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return Find(keys, name)
}

func closest(names []string, name string) []string {
	if len(names) == 0 {
		return nil
	}
	bestScore := 0
	var best []string
	for _, n := range names {
		score := similarity(n, name)
		if score == 0 || float64(2*score)/float64(len(n)+len(name)) < threshold {
			continue
		}
		switch {
		case score > bestScore:
			bestScore = score
			best = []string{n}
		case score == bestScore:
			best = append(best, n)
		}
	}
	return best
}

func format(matches []string) string {
	switch len(matches) {
	case 0:
		return ""
	case 1:
		return ", maybe you mean " + matches[0] + "?"
	default:
		out := ", maybe you mean "
		for i, m := range matches {
			if i > 0 {
				if i == len(matches)-1 {
					out += " or "
				} else {
					out += ", "
				}
			}
			out += m
		}
		return out + "?"
	}
}

// similarity implements PHP's similar_text algorithm: the length of the
// longest common substring, plus the similarity scores of the text on
// either side of it, recursively.
func similarity(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	pos1, pos2, max := longestCommonSubstring(a, b)
	if max == 0 {
		return 0
	}
	sum := max
	if pos1 > 0 && pos2 > 0 {
		sum += similarity(a[:pos1], b[:pos2])
	}
	if pos1+max < len(a) && pos2+max < len(b) {
		sum += similarity(a[pos1+max:], b[pos2+max:])
	}
	return sum
}

func longestCommonSubstring(a, b string) (posA, posB, max int) {
	for i := 0; i < len(a); i++ {
		for j := 0; j < len(b); j++ {
			k := 0
			for i+k < len(a) && j+k < len(b) && a[i+k] == b[j+k] {
				k++
			}
			if k > max {
				max = k
				posA = i
				posB = j
			}
		}
	}
	return posA, posB, max
}
