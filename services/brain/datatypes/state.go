// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"github.com/AleutianAI/DelilahBrain/services/brain/policy"
	"github.com/AleutianAI/DelilahBrain/services/brain/tools"
)

// BrainState accumulates everything one /ask turn computes. It is created
// at request entry, owned exclusively by the orchestrator for the lifetime
// of that request, and discarded at request exit. It is never shared across
// goroutines and never persisted as-is; the audit collaborator persists a
// projection.
type BrainState struct {
	Text    string
	UserID  string
	TraceID string

	Routing   policy.RoutingPlan
	Retrieval policy.RetrievalPlan

	ConversationContext string
	KnowledgeContext    string
	PersonaDirectives   string

	Tool       string
	ToolArgs   map[string]any
	ToolResult *tools.Result

	Answer                  string
	Source                  string
	UsedContext             bool
	NumDocs                 int
	UsedConversationContext bool
	TargetExpert            string
}

// Response projects the terminal state into the wire shape.
func (s *BrainState) Response() AskResponse {
	return AskResponse{
		TraceID:                 s.TraceID,
		Text:                    s.Answer,
		Source:                  s.Source,
		UsedContext:             s.UsedContext,
		NumDocs:                 s.NumDocs,
		UsedConversationContext: s.UsedConversationContext,
		TargetExpert:            s.TargetExpert,
		Tool:                    s.Tool,
	}
}
