// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package policy implements the deterministic policy engine for the brain
// orchestrator: intent and volatility classification, retrieval-plan
// enforcement, writeback gating, and cloud redaction.
//
// Every decision is a pure function of the input text and the static
// vocabulary tables embedded in the binary. The engine holds no mutable
// state and is safe for concurrent use.
//
// Two invariants are load-bearing and covered by tests:
//
//  1. Tool intent bypasses RAG: DecideRetrieval returns UseRAG=false, TopK=0
//     for any routing plan with tool intent.
//  2. Volatile never writes back: DecideWriteback denies for volatile turns
//     independent of any consensus signal.
package policy

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/AleutianAI/DelilahBrain/services/brain/policy/vocabulary"
)

// DefaultTopK is the knowledge-base retrieval depth for knowledge turns.
const DefaultTopK = 3

// Engine is the deterministic policy engine. Construct once via NewEngine
// and share across requests.
type Engine struct {
	groups   []ToolGroup
	volatile []*regexp.Regexp
}

// NewEngine parses the embedded vocabulary and compiles all patterns.
//
// Returns an error if the embedded YAML is malformed or contains a word
// that cannot compile to a whole-word pattern.
func NewEngine() (*Engine, error) {
	vf, err := ParseVocabulary(vocabulary.RoutingVocabulary)
	if err != nil {
		return nil, err
	}
	var volatile []*regexp.Regexp
	for _, w := range vf.VolatileWords {
		re, err := compileWholeWord(w)
		if err != nil {
			return nil, fmt.Errorf("volatile word: %w", err)
		}
		volatile = append(volatile, re)
	}
	return &Engine{groups: vf.ToolGroups, volatile: volatile}, nil
}

// ClassifyToolName maps raw text to a tool name, or "" when no tool applies.
//
// Groups are checked in vocabulary order (weather, system status, system
// versions, mqtt publish); the first match wins. Matching is whole-word
// against lower-cased text.
func (e *Engine) ClassifyToolName(text string) string {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return ""
	}
	for i := range e.groups {
		if e.groups[i].matches(t) {
			return e.groups[i].Tool
		}
	}
	return ""
}

// ClassifyIntent returns IntentTool iff a tool name resolves for the text.
func (e *Engine) ClassifyIntent(text string) Intent {
	if e.ClassifyToolName(text) != "" {
		return IntentTool
	}
	return IntentKnowledge
}

// ClassifyVolatility marks the turn volatile when a tool matched or the
// text carries time-sensitive phrasing.
func (e *Engine) ClassifyVolatility(text string) Volatility {
	if e.ClassifyToolName(text) != "" {
		return VolatilityVolatile
	}
	t := strings.ToLower(text)
	for _, re := range e.volatile {
		if re.MatchString(t) {
			return VolatilityVolatile
		}
	}
	return VolatilityStable
}

// DecideRouting computes the immutable routing plan for one turn.
func (e *Engine) DecideRouting(text string) RoutingPlan {
	toolName := e.ClassifyToolName(text)
	vol := e.ClassifyVolatility(text)

	if toolName != "" {
		return RoutingPlan{
			Intent:     IntentTool,
			Volatility: vol,
			ExpertID:   "general",
			ToolName:   toolName,
		}
	}
	return RoutingPlan{
		Intent:     IntentKnowledge,
		Volatility: vol,
		ExpertID:   "general",
	}
}

// DecideRetrieval derives the retrieval plan from a routing plan.
//
// Invariant: tool intent means no RAG.
func (e *Engine) DecideRetrieval(routing RoutingPlan, defaultCollections []string) RetrievalPlan {
	if routing.Intent == IntentTool {
		return RetrievalPlan{UseRAG: false, AllowedCollections: []string{}, TopK: 0}
	}
	cols := make([]string, len(defaultCollections))
	copy(cols, defaultCollections)
	return RetrievalPlan{UseRAG: true, AllowedCollections: cols, TopK: DefaultTopK}
}

// DecideWriteback gates long-term memory writes.
//
// Invariant: volatile never writes back, independent of consensus.
func (e *Engine) DecideWriteback(routing RoutingPlan, consensusOK bool) WritebackDecision {
	if routing.Volatility == VolatilityVolatile {
		return WritebackDecision{Allowed: false, ReasonCodes: []string{"volatile"}}
	}
	if !consensusOK {
		return WritebackDecision{Allowed: false, ReasonCodes: []string{"no_consensus"}}
	}
	return WritebackDecision{Allowed: true, ReasonCodes: []string{"stable_consensus"}}
}

// DecideFallback gates cloud fallback: never for tool intents, and only
// when local generation is not sufficient.
func (e *Engine) DecideFallback(routing RoutingPlan, localSufficient bool) FallbackDecision {
	if routing.Intent == IntentTool {
		return FallbackDecision{Allowed: false, ReasonCodes: []string{"intent_tool"}}
	}
	if localSufficient {
		return FallbackDecision{Allowed: false, ReasonCodes: []string{"local_sufficient"}}
	}
	return FallbackDecision{Allowed: true, ReasonCodes: []string{"local_insufficient"}}
}

// =============================================================================
// Cloud redaction
// =============================================================================

type redactionPattern struct {
	name string
	re   *regexp.Regexp
}

var redactionPatterns = []redactionPattern{
	{"email", regexp.MustCompile(`(?i)\b[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}\b`)},
	{"ipv4", regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)},
	{"api_key_like", regexp.MustCompile(`\b(sk-[A-Za-z0-9]{16,}|AIza[0-9A-Za-z\-_]{20,})\b`)},
}

// RedactForCloud masks email addresses, IPv4 addresses, and API-key-shaped
// substrings before text leaves the local boundary. The report names every
// pattern family that fired.
func (e *Engine) RedactForCloud(text string) (string, RedactionReport) {
	redacted := text
	var hits []string
	for _, p := range redactionPatterns {
		if p.re.MatchString(redacted) {
			hits = append(hits, p.name)
			redacted = p.re.ReplaceAllString(redacted, "[REDACTED]")
		}
	}
	return redacted, RedactionReport{Redacted: redacted != text, Patterns: hits}
}
