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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAskRequestValidate(t *testing.T) {
	ok := AskRequest{Text: "What's the weather in Chicago?", UserID: "u1"}
	require.NoError(t, ok.Validate())

	empty := AskRequest{}
	assert.Error(t, empty.Validate(), "empty text should be rejected")

	huge := AskRequest{Text: strings.Repeat("x", MaxAskTextBytes+1)}
	assert.Error(t, huge.Validate(), "oversized text should be rejected")
}

func TestIngestRequestValidate(t *testing.T) {
	ok := IngestRequest{Collection: "delilah_knowledge", Texts: []string{"a", "b"}}
	require.NoError(t, ok.Validate())

	noTexts := IngestRequest{Collection: "delilah_knowledge"}
	assert.Error(t, noTexts.Validate(), "empty texts should be rejected")

	mismatch := IngestRequest{
		Collection: "delilah_knowledge",
		Texts:      []string{"a", "b"},
		Metadatas:  []map[string]any{{"k": "v"}},
	}
	assert.Error(t, mismatch.Validate(), "metadata length mismatch should be rejected")
}

func TestRouterHintRequestValidate(t *testing.T) {
	ok := RouterHintRequest{Phrase: "stocks and trading", Expert: "finance"}
	require.NoError(t, ok.Validate())
	assert.Error(t, (&RouterHintRequest{Phrase: "x"}).Validate(), "missing expert should be rejected")
}

func TestBrainStateResponseProjection(t *testing.T) {
	s := &BrainState{
		TraceID:      "t1",
		Answer:       "Chicago: 72 F, Sunny.",
		Source:       "tool",
		Tool:         "weather",
		TargetExpert: "general",
	}
	resp := s.Response()
	assert.Equal(t, "t1", resp.TraceID)
	assert.Equal(t, s.Answer, resp.Text)
	assert.Equal(t, "tool", resp.Source)
	assert.Equal(t, "weather", resp.Tool)
	assert.False(t, resp.UsedContext, "tool turn must not report context")
	assert.Equal(t, 0, resp.NumDocs)
}
