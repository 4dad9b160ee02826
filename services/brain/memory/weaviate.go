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
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

// WeaviateStore implements ContextStore against a Weaviate instance with a
// server-side text vectorizer, so nearText search works without client-side
// embeddings.
type WeaviateStore struct {
	client *weaviate.Client
}

// NewWeaviateStore wraps an already-configured client. The client is
// connection-pooled and safe for concurrent use.
func NewWeaviateStore(client *weaviate.Client) *WeaviateStore {
	return &WeaviateStore{client: client}
}

// EnsureSchema creates the four memory collections if they do not exist.
// Metadata is stored as a JSON blob in metaJson; only content is vectorized.
func (s *WeaviateStore) EnsureSchema(ctx context.Context) error {
	for _, class := range []string{
		CollectionKnowledge, CollectionConversation,
		CollectionRouterHints, CollectionPersona,
	} {
		exists, err := s.client.Schema().ClassExistenceChecker().WithClassName(class).Do(ctx)
		if err != nil {
			return fmt.Errorf("failed to check class %s: %w", class, err)
		}
		if exists {
			continue
		}
		skip := true
		err = s.client.Schema().ClassCreator().WithClass(&models.Class{
			Class: class,
			Properties: []*models.Property{
				{Name: "content", DataType: []string{"text"}},
				{
					Name:     "metaJson",
					DataType: []string{"text"},
					ModuleConfig: map[string]any{
						"text2vec-transformers": map[string]any{"skip": skip},
					},
				},
			},
		}).Do(ctx)
		if err != nil {
			return fmt.Errorf("failed to create class %s: %w", class, err)
		}
		slog.Info("Created memory collection", "class", class)
	}
	return nil
}

// SimilaritySearch implements ContextStore via a nearText GraphQL query.
func (s *WeaviateStore) SimilaritySearch(ctx context.Context, collection, text string, k int) ([]Document, error) {
	if k <= 0 {
		return nil, nil
	}
	nearText := s.client.GraphQL().NearTextArgBuilder().
		WithConcepts([]string{text})

	result, err := s.client.GraphQL().Get().
		WithClassName(collection).
		WithFields(
			graphql.Field{Name: "content"},
			graphql.Field{Name: "metaJson"},
			graphql.Field{Name: "_additional { certainty }"},
		).
		WithNearText(nearText).
		WithLimit(k).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("similarity search on %s: %w", collection, err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("similarity search on %s: %s", collection, result.Errors[0].Message)
	}
	return parseGetResponse(result.Data, collection), nil
}

// parseGetResponse walks the GraphQL Get payload into Documents. Malformed
// entries are skipped rather than failing the whole batch.
func parseGetResponse(data map[string]models.JSONObject, collection string) []Document {
	get, ok := data["Get"].(map[string]any)
	if !ok {
		return nil
	}
	rows, ok := get[collection].([]any)
	if !ok {
		return nil
	}
	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		obj, ok := row.(map[string]any)
		if !ok {
			continue
		}
		content, _ := obj["content"].(string)
		if content == "" {
			continue
		}
		doc := Document{Content: content}
		if metaRaw, _ := obj["metaJson"].(string); metaRaw != "" {
			var meta map[string]any
			if err := json.Unmarshal([]byte(metaRaw), &meta); err == nil {
				doc.Metadata = meta
			}
		}
		if add, ok := obj["_additional"].(map[string]any); ok {
			if certainty, ok := add["certainty"].(float64); ok {
				doc.Score = certainty
			}
		}
		docs = append(docs, doc)
	}
	return docs
}

// AddTexts implements ContextStore via a single objects batch.
func (s *WeaviateStore) AddTexts(ctx context.Context, collection string, texts []string, metadatas []map[string]any) error {
	if len(texts) == 0 {
		return nil
	}
	if len(metadatas) > 0 && len(metadatas) != len(texts) {
		return fmt.Errorf("metadatas length %d does not match texts length %d", len(metadatas), len(texts))
	}

	objects := make([]*models.Object, 0, len(texts))
	for i, text := range texts {
		props := map[string]any{"content": text}
		if len(metadatas) > 0 && metadatas[i] != nil {
			metaRaw, err := json.Marshal(metadatas[i])
			if err != nil {
				return fmt.Errorf("failed to encode metadata %d: %w", i, err)
			}
			props["metaJson"] = string(metaRaw)
		}
		objects = append(objects, &models.Object{
			ID:         strfmt.UUID(uuid.NewString()),
			Class:      collection,
			Properties: props,
		})
	}

	resp, err := s.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return fmt.Errorf("batch insert into %s: %w", collection, err)
	}
	for _, obj := range resp {
		if obj.Result != nil && obj.Result.Errors != nil && len(obj.Result.Errors.Error) > 0 {
			return fmt.Errorf("batch insert into %s: %s", collection, obj.Result.Errors.Error[0].Message)
		}
	}
	slog.Debug("Added texts to memory collection", "class", collection, "count", len(texts))
	return nil
}
