// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package orchestrator

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/AleutianAI/DelilahBrain/services/brain/memory"
	"github.com/AleutianAI/DelilahBrain/services/brain/observability"
	"github.com/AleutianAI/DelilahBrain/services/brain/policy"
)

const (
	// retrievalTimeout bounds every memory-store call. Failure degrades to
	// empty context, never blocks the turn.
	retrievalTimeout = 3 * time.Second

	// maxContextChars bounds each assembled context block.
	maxContextChars = 2500

	// maxPersonaChars bounds the persona directive block.
	maxPersonaChars = 1200

	truncationMarker = "\n...[truncated]..."
)

// conversationBackrefs are the explicit backward-reference phrasings that
// make conversational memory worth fetching.
var conversationBackrefs = []*regexp.Regexp{
	regexp.MustCompile(`\bremember\b`),
	regexp.MustCompile(`\byou said\b`),
	regexp.MustCompile(`\blast time\b`),
	regexp.MustCompile(`\bearlier\b`),
	regexp.MustCompile(`\bprevious(ly)?\b`),
	regexp.MustCompile(`\bwe talked\b`),
	regexp.MustCompile(`\bwhat did i say\b`),
	regexp.MustCompile(`\bmy favorite\b`),
	regexp.MustCompile(`\bmy preference\b`),
	regexp.MustCompile(`\bfrom now on\b`),
	regexp.MustCompile(`\bgoing forward\b`),
	regexp.MustCompile(`\bdon't forget\b`),
}

var shortPreferenceWords = []string{"favorite", "prefer", "like", "hate"}

// Assembler gathers persona directives, conversational memory, and
// knowledge-base passages for the knowledge path. Every retrieval call is
// independently guarded: a failing source degrades to empty content and a
// log line, never an aborted request.
type Assembler struct {
	store memory.ContextStore
}

// NewAssembler wraps a context store.
func NewAssembler(store memory.ContextStore) *Assembler {
	return &Assembler{store: store}
}

// RouterHintTarget selects the target expert for a turn: the first router
// hint whose metadata names an expert wins, else "general".
func (a *Assembler) RouterHintTarget(ctx context.Context, text string) string {
	docs, err := a.search(ctx, memory.CollectionRouterHints, text, 3)
	if err != nil {
		return "general"
	}
	for _, doc := range docs {
		if expert, _ := doc.Metadata["expert"].(string); expert != "" {
			return expert
		}
	}
	return "general"
}

// PersonaDirectives fetches persona directives, clamped to a bounded length.
func (a *Assembler) PersonaDirectives(ctx context.Context, text string) string {
	docs, err := a.search(ctx, memory.CollectionPersona, text, 2)
	if err != nil || len(docs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(docs))
	for _, doc := range docs {
		parts = append(parts, doc.Content)
	}
	return ClampText(strings.Join(parts, "\n"), maxPersonaChars)
}

// ConversationContext fetches conversational memory only when the relevance
// heuristic fires. Returns the context block and whether memory was used.
//
// Retrieval uses top-k ordering only, never a score threshold: score
// semantics are not comparable across retrieval backends.
func (a *Assembler) ConversationContext(ctx context.Context, text string) (string, bool) {
	if !conversationRelevant(text) {
		return "", false
	}
	docs, err := a.search(ctx, memory.CollectionConversation, text, 3)
	if err != nil || len(docs) == 0 {
		return "", false
	}
	parts := make([]string, 0, len(docs))
	for _, doc := range docs {
		parts = append(parts, doc.Content)
	}
	return ClampText(strings.Join(parts, "\n"), maxContextChars), true
}

// KnowledgeContext fetches knowledge-base passages per the retrieval plan.
// Returns the context block and the number of documents injected.
func (a *Assembler) KnowledgeContext(ctx context.Context, text string, plan policy.RetrievalPlan) (string, int) {
	if !plan.UseRAG || plan.TopK <= 0 {
		return "", 0
	}
	collections := plan.AllowedCollections
	if len(collections) == 0 {
		collections = []string{memory.CollectionKnowledge}
	}
	var parts []string
	count := 0
	for _, collection := range collections {
		docs, err := a.search(ctx, collection, text, plan.TopK)
		if err != nil {
			continue
		}
		for _, doc := range docs {
			parts = append(parts, doc.Content)
			count++
		}
	}
	if count == 0 {
		return "", 0
	}
	return ClampText(strings.Join(parts, "\n"), maxContextChars), count
}

// search performs one guarded, time-bounded store call.
func (a *Assembler) search(ctx context.Context, collection, text string, k int) ([]memory.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, retrievalTimeout)
	defer cancel()
	docs, err := a.store.SimilaritySearch(ctx, collection, text, k)
	if err != nil {
		slog.Warn("Retrieval degraded to empty context",
			"collection", collection, "error", err)
		if m := observability.DefaultMetrics; m != nil {
			m.RetrievalDegradedTotal.WithLabelValues(collection).Inc()
		}
		return nil, err
	}
	return docs, nil
}

// conversationRelevant reports whether the utterance references earlier
// conversation: explicit backward-reference phrasing, or a very short
// (≤18 characters) preference-style statement. The length bound is
// deliberately tight: preference words like "like" are common English, and
// only terse utterances ("I prefer tea") are reliably about the speaker.
func conversationRelevant(text string) bool {
	t := strings.ToLower(text)
	for _, re := range conversationBackrefs {
		if re.MatchString(t) {
			return true
		}
	}
	if len(t) <= 18 {
		for _, w := range shortPreferenceWords {
			if strings.Contains(t, w) {
				return true
			}
		}
	}
	return false
}

// ClampText truncates text to max characters, appending a marker so the
// prompt shows the cut.
func ClampText(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max] + truncationMarker
}
