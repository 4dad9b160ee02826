// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package policy

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Intent classifies whether a turn needs a tool call or a generated answer.
type Intent string

const (
	IntentTool      Intent = "tool"
	IntentKnowledge Intent = "knowledge"
	IntentMixed     Intent = "mixed"
)

// Volatility marks whether the information behind an answer is time-sensitive.
// Volatile answers must never be written back to long-term memory.
type Volatility string

const (
	VolatilityStable   Volatility = "stable"
	VolatilityVolatile Volatility = "volatile"
)

// RoutingPlan is the immutable routing decision for one turn.
//
// Invariant: ToolName is non-empty iff Intent == IntentTool.
type RoutingPlan struct {
	Intent     Intent
	Volatility Volatility
	ExpertID   string
	ToolName   string
}

// RetrievalPlan is the immutable retrieval decision derived from a RoutingPlan.
//
// Invariant: tool intent forces UseRAG == false and TopK == 0.
type RetrievalPlan struct {
	UseRAG             bool
	AllowedCollections []string
	TopK               int
}

// WritebackDecision gates long-term memory writes for a turn.
type WritebackDecision struct {
	Allowed     bool
	ReasonCodes []string
}

// FallbackDecision gates cloud fallback for a turn.
type FallbackDecision struct {
	Allowed     bool
	ReasonCodes []string
}

// RedactionReport describes what RedactForCloud masked.
type RedactionReport struct {
	Redacted bool
	Patterns []string
}

// =============================================================================
// Embedded vocabulary file
// =============================================================================

// VocabularyFile mirrors the embedded routing_vocabulary.yaml layout.
type VocabularyFile struct {
	ToolGroups    []ToolGroup `yaml:"tool_groups"`
	VolatileWords []string    `yaml:"volatile_words"`
}

// ToolGroup is one ordered pattern group. The first group whose words match
// (and whose required markers are all present) decides the tool name.
type ToolGroup struct {
	Tool     string   `yaml:"tool"`
	Words    []string `yaml:"words"`
	Requires []string `yaml:"requires"`

	compiledWords    []*regexp.Regexp `yaml:"-"`
	compiledRequires []*regexp.Regexp `yaml:"-"`
}

// ParseVocabulary unmarshals and compiles the embedded vocabulary bytes.
//
// Every word is compiled to a whole-word pattern. Substring matching is
// forbidden by construction: "brain" must never match the weather word
// "rain".
func ParseVocabulary(raw []byte) (*VocabularyFile, error) {
	var vf VocabularyFile
	if err := yaml.Unmarshal(raw, &vf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal the embedded vocabulary file: %w", err)
	}
	if len(vf.ToolGroups) == 0 {
		return nil, fmt.Errorf("vocabulary file declares no tool groups")
	}
	for i := range vf.ToolGroups {
		g := &vf.ToolGroups[i]
		if g.Tool == "" {
			return nil, fmt.Errorf("tool group %d has no tool name", i)
		}
		for _, w := range g.Words {
			re, err := compileWholeWord(w)
			if err != nil {
				return nil, err
			}
			g.compiledWords = append(g.compiledWords, re)
		}
		for _, w := range g.Requires {
			re, err := compileWholeWord(w)
			if err != nil {
				return nil, err
			}
			g.compiledRequires = append(g.compiledRequires, re)
		}
	}
	return &vf, nil
}

// compileWholeWord turns a vocabulary entry into a word-boundary pattern.
// Multi-word entries tolerate arbitrary whitespace between words.
func compileWholeWord(word string) (*regexp.Regexp, error) {
	parts := strings.Fields(strings.ToLower(word))
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty vocabulary word")
	}
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	re, err := regexp.Compile(`\b` + strings.Join(parts, `\s+`) + `\b`)
	if err != nil {
		return nil, fmt.Errorf("failed to compile vocabulary word %q: %w", word, err)
	}
	return re, nil
}

// matches reports whether any word in the group matches, honoring the
// group's required markers.
func (g *ToolGroup) matches(normalized string) bool {
	for _, req := range g.compiledRequires {
		if !req.MatchString(normalized) {
			return false
		}
	}
	for _, re := range g.compiledWords {
		if re.MatchString(normalized) {
			return true
		}
	}
	return false
}
