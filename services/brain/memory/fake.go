// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// FakeStore is an in-memory ContextStore for tests. Similarity is shared
// lower-cased word count, which is enough to exercise ordering and top-k
// behavior without a vector backend.
type FakeStore struct {
	mu   sync.Mutex
	docs map[string][]Document

	// SearchErr and AddErr, when set, force the corresponding operation to
	// fail so callers' degradation paths can be tested.
	SearchErr error
	AddErr    error
}

// NewFakeStore returns an empty fake.
func NewFakeStore() *FakeStore {
	return &FakeStore{docs: make(map[string][]Document)}
}

// SimilaritySearch implements ContextStore.
func (f *FakeStore) SimilaritySearch(_ context.Context, collection, text string, k int) ([]Document, error) {
	if f.SearchErr != nil {
		return nil, f.SearchErr
	}
	if k <= 0 {
		return nil, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	queryWords := wordSet(text)
	scored := make([]Document, 0, len(f.docs[collection]))
	for _, doc := range f.docs[collection] {
		score := overlap(queryWords, wordSet(doc.Content))
		if score == 0 {
			continue
		}
		d := doc
		d.Score = score
		scored = append(scored, d)
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// AddTexts implements ContextStore.
func (f *FakeStore) AddTexts(_ context.Context, collection string, texts []string, metadatas []map[string]any) error {
	if f.AddErr != nil {
		return f.AddErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, text := range texts {
		doc := Document{Content: text}
		if i < len(metadatas) {
			doc.Metadata = metadatas[i]
		}
		f.docs[collection] = append(f.docs[collection], doc)
	}
	return nil
}

// Count reports how many documents a collection holds.
func (f *FakeStore) Count(collection string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.docs[collection])
}

func wordSet(text string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		out[strings.Trim(w, ".,!?'\"")] = true
	}
	return out
}

func overlap(a, b map[string]bool) float64 {
	var n float64
	for w := range a {
		if b[w] {
			n++
		}
	}
	return n
}
