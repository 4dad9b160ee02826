// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/AleutianAI/DelilahBrain/services/brain/tools"
)

func TestSlogSinkEmitTurn(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	sink := NewSlogSink(logger)

	sink.EmitTurn(context.Background(), TurnEvent{
		TraceID: "t1",
		UserID:  "u1",
		Source:  "rag_llm_graph",
		NumDocs: 2,
	})

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log record is not JSON: %v", err)
	}
	if rec["msg"] != "audit.turn" || rec["trace_id"] != "t1" {
		t.Errorf("record = %v", rec)
	}
	if rec["at_ms"] == nil || rec["at_ms"].(float64) <= 0 {
		t.Errorf("at_ms not populated: %v", rec["at_ms"])
	}
}

func TestSlogSinkEmitToolCall(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	sink := NewSlogSink(logger)

	sink.EmitToolCall(context.Background(), tools.Result{
		TraceID:    "t2",
		ToolName:   "mqtt.publish",
		Ok:         false,
		Error:      "mutations disabled",
		DurationMS: 3,
		Audit:      &tools.Audit{RiskLevel: tools.RiskMutating, DryRun: true},
	})

	out := buf.String()
	for _, want := range []string{"audit.tool_call", "mqtt.publish", "mutations disabled", "MUTATING"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q: %s", want, out)
		}
	}
}

func TestNopSink(t *testing.T) {
	var sink Sink = NopSink{}
	sink.EmitTurn(context.Background(), TurnEvent{TraceID: "x"})
	sink.EmitToolCall(context.Background(), tools.Result{})
}
