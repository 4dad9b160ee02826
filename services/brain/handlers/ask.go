// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers provides the gin HTTP handlers for the brain service.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/DelilahBrain/services/brain/datatypes"
	"github.com/AleutianAI/DelilahBrain/services/brain/memory"
	"github.com/AleutianAI/DelilahBrain/services/brain/orchestrator"
)

var askTracer = otel.Tracer("delilah.brain.handlers")

// HandleAsk runs one utterance through the turn pipeline and returns the
// completed-turn response. The trace ID is generated server-side and
// correlates the response with logs, spans, and audit events.
func HandleAsk(orch *orchestrator.Orchestrator, store memory.ContextStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := askTracer.Start(c.Request.Context(), "HandleAsk")
		defer span.End()

		var req datatypes.AskRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			span.RecordError(err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		state := &datatypes.BrainState{
			Text:    req.Text,
			UserID:  req.UserID,
			TraceID: uuid.NewString(),
		}
		span.SetAttributes(attribute.String("trace.id", state.TraceID))
		slog.Info("Received ask request", "trace_id", state.TraceID, "user_id", req.UserID)

		orch.HandleTurn(ctx, state)
		orch.PersistTurn(ctx, store, state)

		c.JSON(http.StatusOK, state.Response())
	}
}
