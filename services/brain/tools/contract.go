// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tools implements the tool-execution contract for the brain: the
// request/result envelope shared by every tool, the static registry that
// allowlists tool names and validates argument shapes, the executor that
// normalizes every outcome, and the individual tool implementations
// (weather lookup, system probes, MQTT publish).
//
// Design rule: the executor is the single choke point. No tool invocation
// happens outside Execute, and Execute never lets a panic or error escape
// to the caller. Every failure becomes a Result with Ok=false.
package tools

import (
	"context"
	"time"
)

// RiskLevel classifies a tool by whether it can change external state.
type RiskLevel string

const (
	RiskReadOnly RiskLevel = "READ_ONLY"
	RiskMutating RiskLevel = "MUTATING"
)

// Request is the immutable envelope for one tool invocation.
//
// TraceID must be non-empty; the executor rejects requests without one.
type Request struct {
	TraceID        string         `json:"trace_id"`
	ToolName       string         `json:"tool_name"`
	Args           map[string]any `json:"args,omitempty"`
	Purpose        string         `json:"purpose,omitempty"`
	RiskLevel      RiskLevel      `json:"risk_level,omitempty"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
	DryRun         *bool          `json:"dry_run,omitempty"`
	RequestedAtMS  int64          `json:"requested_at_ms"`
}

// Audit carries the execution metadata attached to every Result for the
// audit collaborator.
type Audit struct {
	RiskLevel   RiskLevel `json:"risk_level"`
	Purpose     string    `json:"purpose,omitempty"`
	DryRun      bool      `json:"dry_run"`
	ArgsWarning string    `json:"args_warning,omitempty"`
}

// Result is the immutable outcome of one tool invocation.
//
// Exactly one of Payload (when Ok) or Error (when not Ok) is meaningfully
// populated; a semantic failure keeps the original payload alongside the
// error so callers can inspect what the tool actually reported.
type Result struct {
	TraceID      string         `json:"trace_id"`
	ToolName     string         `json:"tool_name"`
	Ok           bool           `json:"ok"`
	Payload      map[string]any `json:"result,omitempty"`
	Error        string         `json:"error,omitempty"`
	StartedAtMS  int64          `json:"started_at_ms"`
	FinishedAtMS int64          `json:"finished_at_ms"`
	DurationMS   int64          `json:"duration_ms"`
	Audit        *Audit         `json:"audit,omitempty"`
}

// Spec is one static registry entry, read-only after startup.
type Spec struct {
	Name         string
	RiskLevel    RiskLevel
	RequiredArgs []string
	OptionalArgs []string
}

// Implementation is one tool body. Implementations return a payload map and
// may signal business-level failure either through err or through an "ok"
// field inside the payload; the executor honors both.
type Implementation interface {
	Call(ctx context.Context, args map[string]any) (map[string]any, error)
}

// ImplementationFunc adapts a plain function to the Implementation interface.
type ImplementationFunc func(ctx context.Context, args map[string]any) (map[string]any, error)

func (f ImplementationFunc) Call(ctx context.Context, args map[string]any) (map[string]any, error) {
	return f(ctx, args)
}

// NowMS returns wall-clock time in epoch milliseconds, the unit used by the
// timing fields on Request and Result.
func NowMS() int64 {
	return time.Now().UnixMilli()
}

// OKPayload builds the conventional success payload with an explicit ok flag.
func OKPayload(fields map[string]any) map[string]any {
	out := map[string]any{"ok": true}
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// ErrorPayload builds the conventional failure payload with an explicit ok
// flag and error text.
func ErrorPayload(errText string, fields map[string]any) map[string]any {
	out := map[string]any{"ok": false, "error": errText}
	for k, v := range fields {
		out[k] = v
	}
	return out
}
