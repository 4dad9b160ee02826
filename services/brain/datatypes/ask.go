// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides request and response structures for the brain
// service.
//
// This file contains the /ask turn types. For ingestion and memory-seeding
// types, see ingest.go; for per-request pipeline state, see state.go.
package datatypes

import (
	"github.com/go-playground/validator/v10"
)

// MaxAskTextBytes bounds a single utterance. Larger payloads are rejected
// at the handler boundary to prevent memory exhaustion.
const MaxAskTextBytes = 32 * 1024

// askValidate is the shared validator instance for this package.
var askValidate *validator.Validate

func init() {
	askValidate = validator.New()
	_ = askValidate.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= MaxAskTextBytes
	})
}

// AskRequest is the body for POST /ask: one user utterance plus an optional
// stable user identifier for conversational memory.
//
// # Validation
//
//   - Text: required, non-empty after trimming, max 32KB
//   - UserID: optional, max 128 chars
type AskRequest struct {
	Text   string `json:"text" validate:"required,maxbytes"`
	UserID string `json:"user_id,omitempty" validate:"omitempty,max=128"`
}

// Validate validates the AskRequest fields.
func (r *AskRequest) Validate() error {
	return askValidate.Struct(r)
}

// AskResponse is the completed-turn response shape.
//
// # Fields
//
//   - TraceID: server-generated UUID correlating logs, spans, and audit rows.
//   - Text: the final answer (tool summary, generated answer, or a
//     deterministic failure/degraded string).
//   - Source: how the answer was produced — "tool", "tool_error", or
//     "rag_llm_graph".
//   - UsedContext / NumDocs: whether knowledge-base passages were injected
//     and how many.
//   - UsedConversationContext: whether conversational memory was injected.
//   - TargetExpert: the expert the router selected for this turn.
//   - Tool: the tool name when the turn took the tool path, else empty.
type AskResponse struct {
	TraceID                 string `json:"trace_id"`
	Text                    string `json:"text"`
	Source                  string `json:"source"`
	UsedContext             bool   `json:"used_context"`
	NumDocs                 int    `json:"num_docs"`
	UsedConversationContext bool   `json:"used_conversation_context"`
	TargetExpert            string `json:"target_expert"`
	Tool                    string `json:"tool,omitempty"`
}
