// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package orchestrator implements the turn state machine:
//
//	Start → RoutingDecided → {ToolPath | KnowledgePath} → Answered
//
// The pipeline is single-pass and mostly linear with early-return
// hard-stops. A resolved tool outcome, success or failure, terminates the
// turn without consulting the language model; a failed tool must never be
// papered over with a generated answer.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/AleutianAI/DelilahBrain/services/brain/audit"
	"github.com/AleutianAI/DelilahBrain/services/brain/datatypes"
	"github.com/AleutianAI/DelilahBrain/services/brain/memory"
	"github.com/AleutianAI/DelilahBrain/services/brain/observability"
	"github.com/AleutianAI/DelilahBrain/services/brain/policy"
	"github.com/AleutianAI/DelilahBrain/services/brain/tools"
	"github.com/AleutianAI/DelilahBrain/services/llm"
)

var tracer = otel.Tracer("delilah.orchestrator")

// Answer sources.
const (
	SourceTool      = "tool"
	SourceToolError = "tool_error"
	SourceRAG       = "rag_llm_graph"
)

// degradedAnswer replaces the generated answer when the language model
// fails or times out. Fixed text so callers never see raw backend errors.
const degradedAnswer = "I ran into an internal dependency error. Please try again."

const defaultLLMTimeout = 60 * time.Second

// Orchestrator owns the turn pipeline. All dependencies are constructor
// injected; there are no ambient globals.
type Orchestrator struct {
	policy     *policy.Engine
	assembler  *Assembler
	executor   *tools.Executor
	registry   *tools.Registry
	llmClient  llm.Client
	auditSink  audit.Sink
	llmTimeout time.Duration

	// defaultCollections are the knowledge collections offered to the
	// retrieval plan.
	defaultCollections []string
}

// New builds the orchestrator. LLM_TIMEOUT_S overrides the generation
// timeout (default 60s). A nil audit sink is replaced with a no-op.
func New(engine *policy.Engine, store memory.ContextStore, executor *tools.Executor,
	llmClient llm.Client, auditSink audit.Sink) *Orchestrator {

	timeout := defaultLLMTimeout
	if raw := os.Getenv("LLM_TIMEOUT_S"); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
			timeout = time.Duration(secs) * time.Second
		} else {
			slog.Warn("Invalid LLM_TIMEOUT_S, using default",
				"value", raw, "default", defaultLLMTimeout)
		}
	}
	if auditSink == nil {
		auditSink = audit.NopSink{}
	}
	return &Orchestrator{
		policy:             engine,
		assembler:          NewAssembler(store),
		executor:           executor,
		registry:           tools.NewRegistry(),
		llmClient:          llmClient,
		auditSink:          auditSink,
		llmTimeout:         timeout,
		defaultCollections: []string{memory.CollectionKnowledge},
	}
}

// HandleTurn runs one utterance through the full pipeline, mutating state
// in place. state is owned exclusively by this call; the terminal state
// always populates Answer, Source, UsedContext, NumDocs, and
// UsedConversationContext.
func (o *Orchestrator) HandleTurn(ctx context.Context, state *datatypes.BrainState) {
	ctx, span := tracer.Start(ctx, "orchestrator.HandleTurn")
	defer span.End()
	started := time.Now()

	state.Routing = o.policy.DecideRouting(state.Text)
	state.Retrieval = o.policy.DecideRetrieval(state.Routing, o.defaultCollections)
	state.TargetExpert = state.Routing.ExpertID

	toolName := state.Routing.ToolName
	if toolName == "" && detectWeatherIntent(state.Text) {
		// Safety net: even when policy missed it, an obvious weather ask
		// must not leak into retrieval or generation.
		slog.Info("Weather intent detected outside policy match", "trace_id", state.TraceID)
		toolName = "weather"
	}

	if toolName != "" {
		state.Tool = toolName
		o.runToolPath(ctx, state)
	} else {
		o.runKnowledgePath(ctx, state)
	}

	if m := observability.DefaultMetrics; m != nil {
		m.TurnsTotal.WithLabelValues(state.Source).Inc()
		m.TurnDurationSeconds.WithLabelValues(state.Source).Observe(time.Since(started).Seconds())
	}
	slog.Info("Turn answered",
		"trace_id", state.TraceID,
		"source", state.Source,
		"tool", state.Tool,
		"used_context", state.UsedContext,
		"num_docs", state.NumDocs,
	)
}

// =============================================================================
// Tool path
// =============================================================================

// runToolPath executes the tool and hard-stops the pipeline on its outcome.
// Retrieval never runs here; UsedContext and NumDocs stay zero.
func (o *Orchestrator) runToolPath(ctx context.Context, state *datatypes.BrainState) {
	state.ToolArgs = extractToolArgs(state.Tool, state.Text)

	spec, _ := o.registry.GetSpec(state.Tool)
	req := tools.Request{
		TraceID:       state.TraceID,
		ToolName:      state.Tool,
		Args:          state.ToolArgs,
		Purpose:       "turn",
		RiskLevel:     spec.RiskLevel,
		RequestedAtMS: tools.NowMS(),
	}
	res := o.executor.Execute(ctx, req)
	state.ToolResult = &res

	if m := observability.DefaultMetrics; m != nil {
		outcome := "ok"
		if !res.Ok {
			outcome = "error"
		}
		m.ToolExecutionsTotal.WithLabelValues(state.Tool, outcome).Inc()
		m.ToolDurationSeconds.WithLabelValues(state.Tool).Observe(float64(res.DurationMS) / 1000)
	}
	if !IsEphemeralTool(state.Tool) {
		o.auditSink.EmitToolCall(ctx, res)
	}

	if res.Ok {
		state.Answer = toolAnswer(state.Tool, res.Payload)
		state.Source = SourceTool
		return
	}
	state.Answer = toolFailureAnswer(state.Tool, res)
	state.Source = SourceToolError
}

// toolAnswer synthesizes the answer directly from the tool payload. The
// language model is never consulted on the tool path.
func toolAnswer(tool string, payload map[string]any) string {
	if summary, _ := payload["summary"].(string); summary != "" {
		return summary
	}
	return fmt.Sprintf("Tool %s completed.", tool)
}

func toolFailureAnswer(tool string, res tools.Result) string {
	if tool == "weather" {
		loc := "your location"
		if res.Payload != nil {
			if l, _ := res.Payload["location"].(string); l != "" {
				loc = l
			}
		}
		return fmt.Sprintf("Weather lookup failed for %s: %s", loc, res.Error)
	}
	return fmt.Sprintf("Tool %s failed: %s", tool, res.Error)
}

// IsEphemeralTool reports whether a tool's output must never reach audit
// storage or conversational memory (real-time lookups).
func IsEphemeralTool(tool string) bool {
	return tool == "weather"
}

// =============================================================================
// Knowledge path
// =============================================================================

// runKnowledgePath assembles context per the retrieval plan and prompts the
// language model. Any generation failure degrades to a fixed apology.
func (o *Orchestrator) runKnowledgePath(ctx context.Context, state *datatypes.BrainState) {
	state.Source = SourceRAG
	state.TargetExpert = o.assembler.RouterHintTarget(ctx, state.Text)
	state.PersonaDirectives = o.assembler.PersonaDirectives(ctx, state.Text)
	state.ConversationContext, state.UsedConversationContext =
		o.assembler.ConversationContext(ctx, state.Text)
	state.KnowledgeContext, state.NumDocs =
		o.assembler.KnowledgeContext(ctx, state.Text, state.Retrieval)
	state.UsedContext = state.NumDocs > 0

	prompt := buildPrompt(state)

	llmCtx, cancel := context.WithTimeout(ctx, o.llmTimeout)
	defer cancel()
	answer, err := o.llmClient.Generate(llmCtx, prompt, llm.GenerationParams{})
	if err != nil {
		slog.Error("Generation degraded", "trace_id", state.TraceID, "error", err)
		state.Answer = degradedAnswer
		return
	}
	state.Answer = strings.TrimSpace(answer)
	if state.Answer == "" {
		state.Answer = degradedAnswer
	}
}

// buildPrompt assembles the ordered context block (persona, conversation,
// knowledge) and omits it entirely when nothing was gathered.
func buildPrompt(state *datatypes.BrainState) string {
	var blocks []string
	if state.PersonaDirectives != "" {
		blocks = append(blocks, "Persona directives:\n"+state.PersonaDirectives)
	}
	if state.ConversationContext != "" {
		blocks = append(blocks, "Earlier conversation:\n"+state.ConversationContext)
	}
	if state.KnowledgeContext != "" {
		blocks = append(blocks, "Reference passages:\n"+state.KnowledgeContext)
	}

	var b strings.Builder
	if len(blocks) > 0 {
		b.WriteString("Use the following context when it is relevant.\n\n")
		b.WriteString(strings.Join(blocks, "\n\n"))
		b.WriteString("\n\n")
	}
	b.WriteString("User: ")
	b.WriteString(state.Text)
	b.WriteString("\nAssistant:")
	return b.String()
}

// =============================================================================
// Turn persistence
// =============================================================================

// PersistTurn emits the audit event and, when the writeback gate allows,
// stores the exchange in conversational memory. Ephemeral tool turns are
// skipped entirely.
func (o *Orchestrator) PersistTurn(ctx context.Context, store memory.ContextStore, state *datatypes.BrainState) {
	if state.Tool != "" && IsEphemeralTool(state.Tool) {
		return
	}
	o.auditSink.EmitTurn(ctx, audit.TurnEvent{
		TraceID:     state.TraceID,
		UserID:      state.UserID,
		Text:        state.Text,
		Answer:      state.Answer,
		Source:      state.Source,
		Tool:        state.Tool,
		UsedContext: state.UsedContext,
		NumDocs:     state.NumDocs,
	})

	// Single-model deployment: consensus is trivially satisfied; the
	// volatility gate still applies.
	wd := o.policy.DecideWriteback(state.Routing, true)
	if !wd.Allowed {
		slog.Debug("Writeback denied", "trace_id", state.TraceID, "reasons", wd.ReasonCodes)
		return
	}
	exchange := fmt.Sprintf("User: %s\nAssistant: %s", state.Text, state.Answer)
	err := store.AddTexts(ctx, memory.CollectionConversation,
		[]string{exchange},
		[]map[string]any{{"trace_id": state.TraceID, "user_id": state.UserID}})
	if err != nil {
		slog.Warn("Conversation writeback failed", "trace_id", state.TraceID, "error", err)
	}
}

// =============================================================================
// Tool argument extraction
// =============================================================================

var (
	locationAfterPrep = regexp.MustCompile(`(?i)\b(?:in|for|at)\s+([A-Za-z][A-Za-z0-9 .,'-]*)`)
	locationAfterWord = regexp.MustCompile(`(?i)\b(?:weather|forecast|temperature)\s+([A-Za-z][A-Za-z0-9 .,'-]*)`)
	mqttTopicPattern  = regexp.MustCompile(`(?i)topic:\s*(\S+)`)
	mqttPayloadArg    = regexp.MustCompile(`(?i)payload:\s*(.+)$`)
	snapshotLabelArg  = regexp.MustCompile(`(?i)label:\s*(\S+)`)
	weatherWords      = regexp.MustCompile(`(?i)\b(weather|forecast|temperature|rain|snow|wind)\b`)
)

// extractToolArgs builds tool-specific args from the raw utterance.
// Extraction is best-effort: a tool with no extractable args still runs and
// applies its own defaults.
func extractToolArgs(tool, text string) map[string]any {
	args := map[string]any{}
	switch tool {
	case "weather":
		if loc := parseWeatherLocation(text); loc != "" {
			args["location"] = loc
		}
	case "mqtt.publish":
		if m := mqttTopicPattern.FindStringSubmatch(text); m != nil {
			args["topic"] = m[1]
		}
		if m := mqttPayloadArg.FindStringSubmatch(text); m != nil {
			args["payload"] = strings.TrimSpace(m[1])
		}
	case "system.snapshot_capture":
		if m := snapshotLabelArg.FindStringSubmatch(text); m != nil {
			args["label"] = m[1]
		}
	}
	return args
}

// parseWeatherLocation pulls a location out of free text: prepositional
// phrasing first ("weather in Chicago"), then the shorthand form
// ("weather Chicago").
func parseWeatherLocation(text string) string {
	if m := locationAfterPrep.FindStringSubmatch(text); m != nil {
		return cleanLocation(m[1])
	}
	if m := locationAfterWord.FindStringSubmatch(text); m != nil {
		candidate := cleanLocation(m[1])
		// The shorthand capture can swallow trailing verbs ("weather
		// like today"); a leading lowercase stopword means no location.
		if candidate != "" && !weatherWords.MatchString(candidate) {
			return candidate
		}
	}
	return ""
}

var locationStopwords = map[string]bool{
	"like": true, "today": true, "tomorrow": true, "tonight": true,
	"now": true, "outside": true, "there": true, "here": true,
}

func cleanLocation(raw string) string {
	loc := strings.TrimSpace(raw)
	loc = strings.TrimRight(loc, "?!. ")
	first := strings.ToLower(strings.SplitN(loc, " ", 2)[0])
	if locationStopwords[first] {
		return ""
	}
	return loc
}

// detectWeatherIntent is the lightweight keyword safety net used by the
// orchestrator when policy classification returned no tool.
func detectWeatherIntent(text string) bool {
	return weatherWords.MatchString(text)
}
