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

// Package genai adapts google.golang.org/genai to the llm.Client interface.
// It is the only package in this module allowed to import the vendor SDK
// directly, per spec.md §1's "LLM vendor clients... treated as a black box".
package genai

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Adapter wraps a genai client and model name behind llm.Client.
type Adapter struct {
	client *genai.Client
	model  string
}

// New constructs an Adapter over an already-configured genai client.
func New(client *genai.Client, model string) *Adapter {
	return &Adapter{client: client, model: model}
}

// Analyze implements llm.Client.
func (a *Adapter) Analyze(ctx context.Context, prompt string) (string, error) {
	resp, err := a.client.Models.GenerateContent(ctx, a.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("llm/genai: generate content: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("llm/genai: empty response")
	}
	return text, nil
}
