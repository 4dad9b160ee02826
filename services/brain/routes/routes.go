// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/DelilahBrain/services/brain/handlers"
	"github.com/AleutianAI/DelilahBrain/services/brain/memory"
	"github.com/AleutianAI/DelilahBrain/services/brain/orchestrator"
)

// SetupRoutes registers the brain's HTTP surface.
func SetupRoutes(router *gin.Engine, orch *orchestrator.Orchestrator, store memory.ContextStore) {
	router.GET("/health", handlers.HealthCheck)
	router.GET("/health/deps", handlers.HandleDepsHealth(store))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	{
		v1.POST("/ask", handlers.HandleAsk(orch, store))
		v1.POST("/ingest", handlers.HandleIngest(store))
		v1.POST("/router_hint", handlers.HandleRouterHint(store))
		v1.POST("/persona_memory", handlers.HandlePersonaMemory(store))
	}
}
