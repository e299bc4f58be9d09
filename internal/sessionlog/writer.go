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

// Package sessionlog writes the per-session file artifacts of spec.md §6:
// original/optimized SQL, prompts, raw LLM responses, EXPLAIN text, a
// status.json manifest and a benchmark summary CSV. Filenames are
// disambiguated by (query_id, phase, patch_id, attempt), so no process-wide
// lock is needed (spec.md §5).
package sessionlog

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/queryforge/sqlbeam/internal/model"
)

// Writer appends artifacts under a single session directory.
type Writer struct {
	Dir string
}

// NewWriter creates (if needed) and returns a Writer rooted at dir.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("sessionlog: creating session directory: %w", err)
	}
	return &Writer{Dir: dir}, nil
}

// artifactName builds the disambiguated filename of spec.md §5:
// "filenames are disambiguated by (query_id, phase, patch_id, attempt)".
func artifactName(queryID, phase, patchID string, attempt int, ext string) string {
	name := queryID + "." + phase
	if patchID != "" {
		name += "." + patchID
	}
	if attempt > 0 {
		name += ".attempt" + strconv.Itoa(attempt)
	}
	return name + "." + ext
}

func (w *Writer) writeFile(name, content string) error {
	return os.WriteFile(filepath.Join(w.Dir, name), []byte(content), 0o644)
}

// WriteOriginalSQL persists the original query text for a session.
func (w *Writer) WriteOriginalSQL(queryID, sql string) error {
	return w.writeFile(artifactName(queryID, "original", "", 0, "sql"), sql)
}

// WriteCandidateSQL persists one candidate's rewritten SQL.
func (w *Writer) WriteCandidateSQL(queryID, patchID string, attempt int, sql string) error {
	return w.writeFile(artifactName(queryID, "optimized", patchID, attempt, "sql"), sql)
}

// WritePrompt persists a phase's outbound prompt.
func (w *Writer) WritePrompt(queryID, phase, patchID string, attempt int, prompt string) error {
	return w.writeFile(artifactName(queryID, phase+".prompt", patchID, attempt, "txt"), prompt)
}

// WriteResponse persists a phase's raw LLM response.
func (w *Writer) WriteResponse(queryID, phase, patchID string, attempt int, response string) error {
	return w.writeFile(artifactName(queryID, phase+".response", patchID, attempt, "txt"), response)
}

// WriteExplain persists EXPLAIN text for a candidate.
func (w *Writer) WriteExplain(queryID, patchID, explainText string) error {
	return w.writeFile(artifactName(queryID, "explain", patchID, 0, "txt"), explainText)
}

// manifestEntry is one line of the status.json manifest: a one-line
// summary per candidate, per spec.md §7 "User-visible failure reporting is
// a one-line summary per candidate in the session manifest."
type manifestEntry struct {
	PatchID  string  `json:"patch_id"`
	Family   string  `json:"family"`
	Status   string  `json:"status"`
	Speedup  float64 `json:"speedup,omitempty"`
	Summary  string  `json:"summary"`
}

// WriteManifest writes status.json for the session's final SessionResult.
func (w *Writer) WriteManifest(result model.SessionResult) error {
	manifest := struct {
		QueryID      string          `json:"query_id"`
		BaselineMs   float64         `json:"baseline_ms"`
		BestPatchIdx *int            `json:"best_patch_idx"`
		BestSpeedup  float64         `json:"best_speedup"`
		Candidates   []manifestEntry `json:"candidates"`
	}{
		QueryID:      result.QueryID,
		BaselineMs:   result.BaselineMs,
		BestPatchIdx: result.BestPatchIdx,
		BestSpeedup:  result.BestSpeedup,
	}

	for _, c := range result.Candidates {
		entry := manifestEntry{PatchID: c.PatchID, Family: string(c.Family), Status: string(c.Status)}
		if c.Speedup != nil {
			entry.Speedup = *c.Speedup
		}
		entry.Summary = summarize(c)
		manifest.Candidates = append(manifest.Candidates, entry)
	}

	raw, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("sessionlog: marshaling manifest: %w", err)
	}
	return os.WriteFile(filepath.Join(w.Dir, "status.json"), raw, 0o644)
}

func summarize(c *model.Candidate) string {
	if c.Status == model.StatusFail || c.Status == model.StatusError {
		if c.ApplyError != "" {
			return c.ApplyError
		}
		return string(c.Status)
	}
	if c.Speedup != nil {
		return fmt.Sprintf("%s %.2fx", c.Status, *c.Speedup)
	}
	return string(c.Status)
}

// WriteBenchmarkSummaryCSV writes the batch-level benchmark summary CSV of
// spec.md §6, one row per candidate across every query in the batch.
func WriteBenchmarkSummaryCSV(path string, results []model.SessionResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("sessionlog: creating benchmark summary: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	defer writer.Flush()

	header := []string{"query_id", "patch_id", "family", "status", "speedup", "original_ms", "patch_ms", "transform"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, r := range results {
		for _, c := range r.Candidates {
			row := []string{
				r.QueryID,
				c.PatchID,
				string(c.Family),
				string(c.Status),
				floatOrEmpty(c.Speedup),
				floatOrEmpty(c.OriginalMs),
				floatOrEmpty(c.PatchMs),
				c.Transform,
			}
			if err := writer.Write(row); err != nil {
				return err
			}
		}
	}
	return nil
}

func floatOrEmpty(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', 4, 64)
}
