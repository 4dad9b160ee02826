// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tools

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("delilah.tools")

// Executor is the single invocation choke point. Execute never panics and
// never returns an error: every failure path produces a Result with
// Ok=false and timing populated.
type Executor struct {
	registry *Registry
	impls    map[string]Implementation
}

// NewExecutor builds an executor over a registry and a name-to-body map.
// Registered names without a body fail at call time with a distinct
// "no implementation" error rather than at construction.
func NewExecutor(registry *Registry, impls map[string]Implementation) *Executor {
	return &Executor{registry: registry, impls: impls}
}

// Execute runs one tool invocation end to end.
//
// Check order: allowlist, implementation lookup, argument validation, body
// invocation, semantic ok propagation. The clock starts before the
// allowlist check so early rejects still carry honest durations.
func (e *Executor) Execute(ctx context.Context, req Request) (res Result) {
	ctx, span := tracer.Start(ctx, "tools.Execute")
	defer span.End()
	span.SetAttributes(
		attribute.String("tool.name", req.ToolName),
		attribute.String("trace.id", req.TraceID),
	)

	startedAt := NowMS()
	audit := &Audit{
		RiskLevel: req.RiskLevel,
		Purpose:   req.Purpose,
		DryRun:    req.DryRun != nil && *req.DryRun,
	}

	finish := func(ok bool, payload map[string]any, errText string) Result {
		finishedAt := NowMS()
		r := Result{
			TraceID:      req.TraceID,
			ToolName:     req.ToolName,
			Ok:           ok,
			Payload:      payload,
			Error:        errText,
			StartedAtMS:  startedAt,
			FinishedAtMS: finishedAt,
			DurationMS:   finishedAt - startedAt,
			Audit:        audit,
		}
		if !ok {
			span.SetStatus(codes.Error, errText)
		}
		return r
	}

	// A panicking tool body must not take down the request. The recover
	// rewrites the named return so the caller still gets a normal Result.
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Tool implementation panicked",
				"tool", req.ToolName, "trace_id", req.TraceID, "panic", rec)
			res = finish(false, nil, fmt.Sprintf("tool %s panicked: %v", req.ToolName, rec))
		}
	}()

	if req.TraceID == "" {
		return finish(false, nil, "tool request missing trace_id")
	}
	if !e.registry.IsAllowed(req.ToolName) {
		return finish(false, nil, fmt.Sprintf("tool not allowed: %s", req.ToolName))
	}
	impl, ok := e.impls[req.ToolName]
	if !ok {
		return finish(false, nil, fmt.Sprintf("no implementation for tool: %s", req.ToolName))
	}
	warning, err := e.registry.ValidateArgs(req.ToolName, req.Args)
	if err != nil {
		return finish(false, nil, err.Error())
	}
	if warning != "" {
		audit.ArgsWarning = warning
		slog.Warn("Tool args carried unexpected keys",
			"tool", req.ToolName, "trace_id", req.TraceID, "warning", warning)
	}

	payload, callErr := impl.Call(ctx, req.Args)
	// Tools that decide dry-run internally (mqtt.publish weighs the dry_run
	// arg against its env default) report the effective value in the
	// payload; the audit must record what actually happened, not what the
	// request asked for.
	if payload != nil {
		if effective, isBool := payload["dry_run"].(bool); isBool {
			audit.DryRun = effective
		}
	}
	if callErr != nil {
		return finish(false, payload, callErr.Error())
	}

	// Semantic propagation: an explicit ok field in the payload decides the
	// outcome, not the absence of an error. A tool that ran cleanly but
	// reports a business-level failure must not look like a success.
	if payload != nil {
		if rawOK, present := payload["ok"]; present {
			if semanticOK, isBool := rawOK.(bool); isBool && !semanticOK {
				errText := "tool reported failure"
				if msg, hasMsg := payload["error"].(string); hasMsg && msg != "" {
					errText = msg
				}
				return finish(false, payload, errText)
			}
		}
	}
	return finish(true, payload, "")
}
