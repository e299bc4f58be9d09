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

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/queryforge/sqlbeam/internal/llm"
)

func TestSelectModeBelowThresholdIsWide(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, ModeWide, SelectMode(0.01, cfg))
}

func TestSelectModeAboveThresholdWithReasoningLaneIsFocused(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Clients = llm.RoutedClient{Fast: fakeClient{}, Reasoning: fakeClient{}}
	require.Equal(t, ModeFocused, SelectMode(0.9, cfg))
}

func TestSelectModeAboveThresholdWithoutReasoningLaneFallsBackToWide(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Clients = llm.RoutedClient{Fast: fakeClient{}}
	require.Equal(t, ModeWide, SelectMode(0.9, cfg))
}
