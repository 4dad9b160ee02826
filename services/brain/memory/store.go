// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package memory provides the context-store capability consumed by the
// orchestrator: similarity search by text and bulk text insertion across
// the brain's memory collections. One implementation targets Weaviate; an
// in-memory fake backs the tests.
package memory

import "context"

// Collection class names. Weaviate requires capitalized class names.
const (
	CollectionKnowledge    = "DelilahKnowledge"
	CollectionConversation = "DelilahConversation"
	CollectionRouterHints  = "DelilahRouterHints"
	CollectionPersona      = "DelilahPersona"
)

// Document is one scored retrieval hit.
type Document struct {
	Content  string
	Metadata map[string]any
	Score    float64
}

// ContextStore is the capability interface for all memory collections.
// Exactly two operations; nothing in the pipeline needs more.
type ContextStore interface {
	// SimilaritySearch returns up to k documents from collection ranked by
	// semantic similarity to text. Ordering is the only contract; score
	// semantics are backend-specific and must not be thresholded by callers.
	SimilaritySearch(ctx context.Context, collection, text string, k int) ([]Document, error)

	// AddTexts writes texts into collection. metadatas may be nil or must
	// match texts in length.
	AddTexts(ctx context.Context, collection string, texts []string, metadatas []map[string]any) error
}
