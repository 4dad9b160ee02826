// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package audit emits structured turn and tool-call events for a durable
// collaborator to persist. The pipeline itself never writes audit storage;
// it only hands events to a Sink.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/AleutianAI/DelilahBrain/services/brain/tools"
)

// TurnEvent is the audit projection of one completed turn. Ephemeral tool
// turns (real-time lookups) are never emitted.
type TurnEvent struct {
	TraceID     string `json:"trace_id"`
	UserID      string `json:"user_id,omitempty"`
	Text        string `json:"text"`
	Answer      string `json:"answer"`
	Source      string `json:"source"`
	Tool        string `json:"tool,omitempty"`
	UsedContext bool   `json:"used_context"`
	NumDocs     int    `json:"num_docs"`
	AtMS        int64  `json:"at_ms"`
}

// Sink receives audit events. Implementations must be safe for concurrent
// use and must never block the request path for long.
type Sink interface {
	EmitTurn(ctx context.Context, ev TurnEvent)
	EmitToolCall(ctx context.Context, res tools.Result)
}

// SlogSink writes events as structured log records, the default durable
// path when no external audit collaborator is configured (a log shipper
// picks them up downstream).
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink uses logger, or slog.Default() when nil.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

func (s *SlogSink) EmitTurn(_ context.Context, ev TurnEvent) {
	if ev.AtMS == 0 {
		ev.AtMS = time.Now().UnixMilli()
	}
	s.logger.Info("audit.turn",
		"trace_id", ev.TraceID,
		"user_id", ev.UserID,
		"source", ev.Source,
		"tool", ev.Tool,
		"used_context", ev.UsedContext,
		"num_docs", ev.NumDocs,
		"at_ms", ev.AtMS,
	)
}

func (s *SlogSink) EmitToolCall(_ context.Context, res tools.Result) {
	attrs := []any{
		"trace_id", res.TraceID,
		"tool", res.ToolName,
		"ok", res.Ok,
		"duration_ms", res.DurationMS,
	}
	if res.Error != "" {
		attrs = append(attrs, "error", res.Error)
	}
	if res.Audit != nil {
		attrs = append(attrs, "risk_level", string(res.Audit.RiskLevel), "dry_run", res.Audit.DryRun)
		if res.Audit.ArgsWarning != "" {
			attrs = append(attrs, "args_warning", res.Audit.ArgsWarning)
		}
	}
	s.logger.Info("audit.tool_call", attrs...)
}

// NopSink discards everything. Used in tests and when auditing is disabled.
type NopSink struct{}

func (NopSink) EmitTurn(context.Context, TurnEvent)        {}
func (NopSink) EmitToolCall(context.Context, tools.Result) {}
