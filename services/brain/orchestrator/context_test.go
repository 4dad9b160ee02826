// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package orchestrator

import (
	"context"
	"strings"
	"testing"

	"github.com/AleutianAI/DelilahBrain/services/brain/memory"
	"github.com/AleutianAI/DelilahBrain/services/brain/policy"
)

func TestConversationRelevant(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"you said we would meet on Friday", true},
		{"what did I say about the budget", true},
		{"earlier we discussed the rollout", true},
		{"don't forget the milk", true},
		{"my favorite color is blue", true},
		{"I prefer tea", true},
		{"explain how photosynthesis works", false},
		{"what is the capital of France", false},
		// Preference words in a sentence longer than 18 characters must not
		// fire without backward-reference phrasing.
		{"what do people like about functional programming in modern backend development", false},
		{"I would like a summary of the incident report", false},
	}
	for _, tc := range cases {
		if got := conversationRelevant(tc.text); got != tc.want {
			t.Errorf("conversationRelevant(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestClampText(t *testing.T) {
	short := "hello"
	if got := ClampText(short, 10); got != short {
		t.Errorf("ClampText(short) = %q", got)
	}
	long := strings.Repeat("a", 3000)
	got := ClampText(long, maxContextChars)
	if !strings.HasSuffix(got, truncationMarker) {
		t.Error("clamped text missing truncation marker")
	}
	if len(got) != maxContextChars+len(truncationMarker) {
		t.Errorf("clamped length = %d", len(got))
	}
}

func TestParseWeatherLocation(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"What's the weather in Chicago?", "Chicago"},
		{"weather forecast for San Juan, PR", "San Juan, PR"},
		{"weather Grand Rapids", "Grand Rapids"},
		{"what's the weather like today", ""},
		{"is it going to rain", ""},
	}
	for _, tc := range cases {
		if got := parseWeatherLocation(tc.text); got != tc.want {
			t.Errorf("parseWeatherLocation(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestDetectWeatherIntentCoversFullVocabulary(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"is it going to rain", true},
		{"will it snow later", true},
		{"how strong is the wind", true},
		{"what's the forecast", true},
		{"my brain hurts", false},
		{"explain the deployment model", false},
	}
	for _, tc := range cases {
		if got := detectWeatherIntent(tc.text); got != tc.want {
			t.Errorf("detectWeatherIntent(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestExtractMqttArgs(t *testing.T) {
	args := extractToolArgs("mqtt.publish", "mqtt publish topic: delilah/test payload: hello-from-env-brain")
	if args["topic"] != "delilah/test" {
		t.Errorf("topic = %v", args["topic"])
	}
	if args["payload"] != "hello-from-env-brain" {
		t.Errorf("payload = %v", args["payload"])
	}
}

func TestKnowledgeContextHonorsPlan(t *testing.T) {
	store := memory.NewFakeStore()
	_ = store.AddTexts(context.Background(), memory.CollectionKnowledge,
		[]string{"passage about deployment"}, nil)
	a := NewAssembler(store)

	// Tool-plan shape: retrieval disabled.
	block, n := a.KnowledgeContext(context.Background(), "deployment",
		policy.RetrievalPlan{UseRAG: false, TopK: 0})
	if block != "" || n != 0 {
		t.Errorf("disabled plan returned context: %q (%d)", block, n)
	}

	block, n = a.KnowledgeContext(context.Background(), "deployment",
		policy.RetrievalPlan{UseRAG: true, AllowedCollections: []string{memory.CollectionKnowledge}, TopK: 3})
	if n != 1 || !strings.Contains(block, "deployment") {
		t.Errorf("enabled plan: block=%q n=%d", block, n)
	}
}
