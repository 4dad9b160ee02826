// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/DelilahBrain/services/brain/datatypes"
	"github.com/AleutianAI/DelilahBrain/services/brain/memory"
)

// HandleIngest bulk-loads passages into a memory collection.
func HandleIngest(store memory.ContextStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.IngestRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := store.AddTexts(c.Request.Context(), req.Collection, req.Texts, req.Metadatas); err != nil {
			slog.Error("Ingest failed", "collection", req.Collection, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store documents"})
			return
		}
		c.JSON(http.StatusOK, datatypes.IngestResponse{
			Collection: req.Collection,
			Count:      len(req.Texts),
		})
	}
}

// HandleRouterHint seeds a router hint phrase with its expert metadata.
func HandleRouterHint(store memory.ContextStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.RouterHintRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		err := store.AddTexts(c.Request.Context(), memory.CollectionRouterHints,
			[]string{req.Phrase}, []map[string]any{{"expert": req.Expert}})
		if err != nil {
			slog.Error("Router hint seed failed", "expert", req.Expert, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store router hint"})
			return
		}
		c.JSON(http.StatusOK, datatypes.IngestResponse{
			Collection: memory.CollectionRouterHints,
			Count:      1,
		})
	}
}

// HandlePersonaMemory seeds a persona directive document.
func HandlePersonaMemory(store memory.ContextStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.PersonaRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		err := store.AddTexts(c.Request.Context(), memory.CollectionPersona,
			[]string{req.Directive}, nil)
		if err != nil {
			slog.Error("Persona seed failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store persona directive"})
			return
		}
		c.JSON(http.StatusOK, datatypes.IngestResponse{
			Collection: memory.CollectionPersona,
			Count:      1,
		})
	}
}
