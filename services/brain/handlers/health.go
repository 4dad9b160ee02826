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
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/DelilahBrain/services/brain/memory"
	"github.com/AleutianAI/DelilahBrain/services/brain/tools"
)

const depProbeTimeout = 2 * time.Second

// HealthCheck is the liveness endpoint: process up, nothing probed.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "delilah-brain",
		"version": tools.Version,
	})
}

// HandleDepsHealth probes the memory store with a short-deadline search.
// A failing dependency reports degraded with 200, not an error status:
// the process itself is healthy and the pipeline degrades per design.
func HandleDepsHealth(store memory.ContextStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), depProbeTimeout)
		defer cancel()

		deps := gin.H{}
		if _, err := store.SimilaritySearch(ctx, memory.CollectionKnowledge, "ping", 1); err != nil {
			deps["memory_store"] = gin.H{"status": "degraded", "error": err.Error()}
		} else {
			deps["memory_store"] = gin.H{"status": "ok"}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "deps": deps})
	}
}
