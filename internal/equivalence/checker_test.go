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

package equivalence

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEquivalentIgnoresRowOrder(t *testing.T) {
	c := NewChecker(RelativeOrAbsolute)
	a := ResultSet{Columns: []string{"x"}, Rows: []Row{{1}, {2}, {3}}}
	b := ResultSet{Columns: []string{"x"}, Rows: []Row{{3}, {1}, {2}}}

	ok, div := c.Equivalent(a, b)
	require.True(t, ok, div)
}

func TestEquivalentSymmetric(t *testing.T) {
	c := NewChecker(RelativeOrAbsolute)
	a := ResultSet{Columns: []string{"x"}, Rows: []Row{{1}, {2}}}
	b := ResultSet{Columns: []string{"x"}, Rows: []Row{{1}, {3}}}

	ok1, _ := c.Equivalent(a, b)
	ok2, _ := c.Equivalent(b, a)
	require.Equal(t, ok1, ok2)
	require.False(t, ok1)
}

func TestFloatToleranceAcceptsNoise(t *testing.T) {
	c := NewChecker(RelativeOrAbsolute)
	a := ResultSet{Columns: []string{"x"}, Rows: []Row{{1.0000000001}}}
	b := ResultSet{Columns: []string{"x"}, Rows: []Row{{1.0000000002}}}

	ok, div := c.Equivalent(a, b)
	require.True(t, ok, div)
}

func TestChecksumIsOrderInsensitive(t *testing.T) {
	a := ResultSet{Rows: []Row{{1}, {2}, {3}}}
	b := ResultSet{Rows: []Row{{3}, {2}, {1}}}
	require.Equal(t, Checksum(a), Checksum(b))
}

func TestDivergenceReportsRowAndColumn(t *testing.T) {
	c := NewChecker(Exact)
	a := ResultSet{Columns: []string{"x", "y"}, Ordered: true, Rows: []Row{{1, "a"}, {2, "b"}}}
	b := ResultSet{Columns: []string{"x", "y"}, Ordered: true, Rows: []Row{{1, "a"}, {2, "z"}}}

	ok, div := c.Equivalent(a, b)
	require.False(t, ok)
	require.Equal(t, 1, div.RowIndex)
	require.Equal(t, 1, div.ColumnIndex)
}
